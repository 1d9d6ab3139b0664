package prompts

import (
	"bytes"
	_ "embed"
	"fmt"
	"os"
	"text/template"

	"gopkg.in/yaml.v3"
)

// Template names present in prompts.yaml.
const (
	Deconstruct = "deconstruct"
	Synthesize  = "synthesize"
	Quiz        = "quiz"
)

//go:embed prompts.yaml
var builtin []byte

// Set is a parsed collection of prompt templates.
type Set struct {
	templates map[string]*template.Template
}

// Default returns the templates compiled into the binary.
func Default() *Set {
	s, err := Parse(builtin)
	if err != nil {
		panic(fmt.Sprintf("builtin prompts: %v", err))
	}
	return s
}

// Load reads templates from a YAML file. When path is empty the builtin set
// is returned. Templates missing from the file fall back to the builtin ones.
func Load(path string) (*Set, error) {
	base := Default()
	if path == "" {
		return base, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read prompts: %w", err)
	}
	override, err := Parse(data)
	if err != nil {
		return nil, err
	}
	for name, tpl := range override.templates {
		base.templates[name] = tpl
	}
	return base, nil
}

// Parse compiles a YAML document mapping template names to template text.
func Parse(data []byte) (*Set, error) {
	raw := map[string]string{}
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("decode prompts: %w", err)
	}
	s := &Set{templates: make(map[string]*template.Template, len(raw))}
	for name, text := range raw {
		tpl, err := template.New(name).Option("missingkey=error").Parse(text)
		if err != nil {
			return nil, fmt.Errorf("parse prompt %q: %w", name, err)
		}
		s.templates[name] = tpl
	}
	return s, nil
}

// Render executes the named template with data.
func (s *Set) Render(name string, data any) (string, error) {
	tpl, ok := s.templates[name]
	if !ok {
		return "", fmt.Errorf("unknown prompt %q", name)
	}
	var buf bytes.Buffer
	if err := tpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("render prompt %q: %w", name, err)
	}
	return buf.String(), nil
}
