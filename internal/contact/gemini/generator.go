// Package gemini writes outreach emails and README feature summaries with
// the Gemini API.
package gemini

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"strings"
	"unicode/utf8"

	"google.golang.org/genai"

	"github.com/shpitdev/dependents-outreach/internal/contact"
)

const (
	DefaultModel = "gemini-2.0-flash"

	// maxReadmeChars bounds the README text sent for feature extraction.
	maxReadmeChars = 30000
)

type Config struct {
	APIKey string
	Model  string

	// BaseURL overrides the Gemini API base URL. Useful for proxies/testing.
	BaseURL string

	// Prompts overrides the embedded templates.
	Prompts *Prompts
}

type Generator struct {
	client  *genai.Client
	model   string
	prompts *Prompts
}

func New(ctx context.Context, cfg Config) (*Generator, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, fmt.Errorf("GEMINI_API_KEY is required")
	}
	model := strings.TrimSpace(cfg.Model)
	if model == "" {
		model = DefaultModel
	}
	prompts := cfg.Prompts
	if prompts == nil {
		p, err := DefaultPrompts()
		if err != nil {
			return nil, err
		}
		prompts = p
	}

	cc := &genai.ClientConfig{
		APIKey:  strings.TrimSpace(cfg.APIKey),
		Backend: genai.BackendGeminiAPI,
	}
	if strings.TrimSpace(cfg.BaseURL) != "" {
		cc.HTTPOptions.BaseURL = strings.TrimSpace(cfg.BaseURL)
	}

	client, err := genai.NewClient(ctx, cc)
	if err != nil {
		return nil, err
	}
	return &Generator{client: client, model: model, prompts: prompts}, nil
}

// Model returns the configured model name.
func (g *Generator) Model() string { return g.model }

type emailSchema struct {
	Subject string `json:"subject"`
	Body    string `json:"body"`
}

var outputSchema = &genai.Schema{
	Type: genai.TypeObject,
	Properties: map[string]*genai.Schema{
		"subject": {Type: genai.TypeString},
		"body":    {Type: genai.TypeString},
	},
	Required: []string{"subject", "body"},
}

type promptData struct {
	Profile contact.Profile
	Target  contact.Target
	Summary string
	Memory  string
}

// Generate writes one email for p. memory may be empty.
func (g *Generator) Generate(ctx context.Context, p contact.Profile, t contact.Target, memory string) (contact.Email, error) {
	if strings.TrimSpace(p.Username) == "" {
		return contact.Email{}, errors.New("empty username")
	}
	data := promptData{
		Profile: p,
		Target:  t,
		Summary: contact.Summary(p, t.FullName),
		Memory:  strings.TrimSpace(memory),
	}
	system, err := render(g.prompts.system, data)
	if err != nil {
		return contact.Email{}, err
	}
	prompt, err := render(g.prompts.email, data)
	if err != nil {
		return contact.Email{}, err
	}

	resp, err := g.client.Models.GenerateContent(
		ctx,
		g.model,
		genai.Text(prompt),
		&genai.GenerateContentConfig{
			SystemInstruction: &genai.Content{Parts: []*genai.Part{{Text: system}}},
			CandidateCount:    1,
			ResponseMIMEType:  "application/json",
			ResponseSchema:    outputSchema,
		},
	)
	if err != nil {
		return contact.Email{}, classifyErr(err)
	}
	return parseEmail(resp.Text(), t)
}

func parseEmail(text string, t contact.Target) (contact.Email, error) {
	var parsed emailSchema
	if err := json.Unmarshal([]byte(strings.TrimSpace(text)), &parsed); err != nil {
		return contact.Email{}, fmt.Errorf("gemini: parse structured json: %w", err)
	}
	body := strings.TrimSpace(parsed.Body)
	if body == "" {
		return contact.Email{}, errors.New("gemini: empty email body")
	}
	subject := strings.TrimSpace(parsed.Subject)
	if subject == "" {
		subject = "About your use of " + t.ShortName()
	}
	return contact.Email{Subject: subject, Body: body}, nil
}

// KeyFeatures asks the model to list the key features described by readme.
func (g *Generator) KeyFeatures(ctx context.Context, readme string) (string, error) {
	readme = strings.TrimSpace(readme)
	if readme == "" {
		return "", errors.New("empty readme")
	}
	readme = truncateUTF8(readme, maxReadmeChars)
	prompt, err := render(g.prompts.keyFeatures, struct{ Readme string }{Readme: readme})
	if err != nil {
		return "", err
	}
	resp, err := g.client.Models.GenerateContent(ctx, g.model, genai.Text(prompt), &genai.GenerateContentConfig{CandidateCount: 1})
	if err != nil {
		return "", classifyErr(err)
	}
	out := strings.TrimSpace(resp.Text())
	if out == "" {
		return "", errors.New("gemini: empty feature list")
	}
	return out, nil
}

func classifyErr(err error) error {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		if apiErr.Code == 429 || apiErr.Code/100 == 5 {
			return &contact.TransientError{Err: err}
		}
		return err
	}
	var ne net.Error
	if errors.As(err, &ne) && ne.Timeout() {
		return &contact.TransientError{Err: err}
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return &contact.TransientError{Err: err}
	}
	return err
}

// truncateUTF8 cuts s to at most n bytes without splitting a rune.
func truncateUTF8(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}
