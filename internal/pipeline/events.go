// Package pipeline drives the outreach run: discover dependents, enrich each
// owner, store memory, generate a draft, and report every step as an Event.
package pipeline

import (
	"encoding/json"
	"fmt"

	"github.com/shpitdev/dependents-outreach/internal/contact"
)

// Kind identifies the wire shape of an Event.
type Kind int

const (
	KindStatus Kind = iota
	KindWarning
	KindError
	KindDraft
)

func (k Kind) String() string {
	switch k {
	case KindStatus:
		return "status"
	case KindWarning:
		return "warning"
	case KindError:
		return "error"
	case KindDraft:
		return "draft"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Event is one progress report of a run. Draft is set only for KindDraft.
type Event struct {
	Kind    Kind
	Message string
	Draft   *contact.Draft
}

func Status(format string, args ...any) Event {
	return Event{Kind: KindStatus, Message: fmt.Sprintf(format, args...)}
}

func Warning(format string, args ...any) Event {
	return Event{Kind: KindWarning, Message: fmt.Sprintf(format, args...)}
}

func Error(format string, args ...any) Event {
	return Event{Kind: KindError, Message: fmt.Sprintf(format, args...)}
}

func DraftEvent(d contact.Draft) Event {
	return Event{Kind: KindDraft, Draft: &d}
}

type draftWire struct {
	User         string `json:"user"`
	Name         string `json:"name"`
	EmailAddress string `json:"email_address"`
	Repo         string `json:"repo"`
	EmailBody    string `json:"email_body"`
	EmailSubject string `json:"email_subject"`
}

// MarshalJSON renders the stream wire format: {"status": ...},
// {"warning": ...}, {"error": ...} or a draft object.
func (e Event) MarshalJSON() ([]byte, error) {
	switch e.Kind {
	case KindStatus, KindWarning, KindError:
		return json.Marshal(map[string]string{e.Kind.String(): e.Message})
	case KindDraft:
		if e.Draft == nil {
			return nil, fmt.Errorf("draft event without draft")
		}
		return json.Marshal(draftWire{
			User:         e.Draft.Username,
			Name:         e.Draft.RecipientName,
			EmailAddress: e.Draft.RecipientEmail,
			Repo:         e.Draft.SourceRepo,
			EmailBody:    e.Draft.Body,
			EmailSubject: e.Draft.Subject,
		})
	default:
		return nil, fmt.Errorf("unknown event kind %d", int(e.Kind))
	}
}

// State is the position of a run, or of one candidate within it.
type State int

const (
	StateStarted State = iota
	StateDiscovering
	StateEnriching
	StateStoringMemory
	StateGenerating
	StateEmitted
	StateSkipped
	StateFinished
	StateFatal
)

func (s State) String() string {
	switch s {
	case StateStarted:
		return "started"
	case StateDiscovering:
		return "discovering"
	case StateEnriching:
		return "enriching"
	case StateStoringMemory:
		return "storing_memory"
	case StateGenerating:
		return "generating"
	case StateEmitted:
		return "emitted"
	case StateSkipped:
		return "skipped"
	case StateFinished:
		return "finished"
	case StateFatal:
		return "fatal"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}
