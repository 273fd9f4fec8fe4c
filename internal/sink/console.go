package sink

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/shpitdev/dependents-outreach/internal/pipeline"
)

var (
	statusStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#7D8590"))
	warningStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#D29922"))
	errorStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#F85149"))
	draftStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#3FB950"))
	bodyStyle    = lipgloss.NewStyle().PaddingLeft(4).Foreground(lipgloss.Color("#C9D1D9"))
)

// Console renders events as human-readable lines.
type Console struct {
	w        io.Writer
	showBody bool
}

// NewConsole renders to w. With showBody, drafts include the email body.
func NewConsole(w io.Writer, showBody bool) *Console {
	return &Console{w: w, showBody: showBody}
}

func (c *Console) Emit(ev pipeline.Event) error {
	_, err := io.WriteString(c.w, c.render(ev)+"\n")
	return err
}

func (c *Console) render(ev pipeline.Event) string {
	switch ev.Kind {
	case pipeline.KindStatus:
		return statusStyle.Render("• " + ev.Message)
	case pipeline.KindWarning:
		return warningStyle.Render("! " + ev.Message)
	case pipeline.KindError:
		return errorStyle.Render("✗ " + ev.Message)
	case pipeline.KindDraft:
		if ev.Draft == nil {
			return ""
		}
		d := ev.Draft
		line := draftStyle.Render(fmt.Sprintf("✉ %s <%s>", d.RecipientName, d.RecipientEmail)) +
			statusStyle.Render(fmt.Sprintf(" %s: %s", d.SourceRepo, d.Subject))
		if c.showBody && strings.TrimSpace(d.Body) != "" {
			line += "\n" + bodyStyle.Render(strings.TrimSpace(d.Body))
		}
		return line
	default:
		return ev.Message
	}
}

func (c *Console) Close() error { return nil }
