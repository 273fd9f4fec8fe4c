package gemini

import (
	_ "embed"
	"fmt"
	"os"
	"strings"
	"text/template"

	"gopkg.in/yaml.v3"
)

//go:embed prompts.yaml
var defaultPromptsYAML []byte

// Prompts holds the parsed prompt templates.
type Prompts struct {
	system      *template.Template
	email       *template.Template
	keyFeatures *template.Template
}

type promptFile struct {
	System      string `yaml:"system"`
	Email       string `yaml:"email"`
	KeyFeatures string `yaml:"key_features"`
}

var funcs = template.FuncMap{
	"join": strings.Join,
}

// DefaultPrompts returns the embedded templates.
func DefaultPrompts() (*Prompts, error) {
	return ParsePrompts(defaultPromptsYAML)
}

// LoadPrompts reads templates from path. Empty path returns the defaults;
// keys missing from the file keep their default template.
func LoadPrompts(path string) (*Prompts, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return DefaultPrompts()
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read prompts file: %w", err)
	}
	return ParsePrompts(b)
}

// ParsePrompts parses a YAML prompt document, filling gaps from the embedded defaults.
func ParsePrompts(b []byte) (*Prompts, error) {
	var defaults promptFile
	if err := yaml.Unmarshal(defaultPromptsYAML, &defaults); err != nil {
		return nil, fmt.Errorf("parse embedded prompts: %w", err)
	}
	var pf promptFile
	if err := yaml.Unmarshal(b, &pf); err != nil {
		return nil, fmt.Errorf("parse prompts yaml: %w", err)
	}
	if strings.TrimSpace(pf.System) == "" {
		pf.System = defaults.System
	}
	if strings.TrimSpace(pf.Email) == "" {
		pf.Email = defaults.Email
	}
	if strings.TrimSpace(pf.KeyFeatures) == "" {
		pf.KeyFeatures = defaults.KeyFeatures
	}

	p := &Prompts{}
	var err error
	if p.system, err = template.New("system").Funcs(funcs).Option("missingkey=error").Parse(pf.System); err != nil {
		return nil, fmt.Errorf("parse system prompt: %w", err)
	}
	if p.email, err = template.New("email").Funcs(funcs).Option("missingkey=error").Parse(pf.Email); err != nil {
		return nil, fmt.Errorf("parse email prompt: %w", err)
	}
	if p.keyFeatures, err = template.New("key_features").Funcs(funcs).Option("missingkey=error").Parse(pf.KeyFeatures); err != nil {
		return nil, fmt.Errorf("parse key_features prompt: %w", err)
	}
	return p, nil
}

func render(t *template.Template, data any) (string, error) {
	var sb strings.Builder
	if err := t.Execute(&sb, data); err != nil {
		return "", fmt.Errorf("render %s prompt: %w", t.Name(), err)
	}
	return strings.TrimSpace(sb.String()), nil
}
