// Package prompt holds the assistant persona and renders the completion prompt.
package prompt

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed persona.yaml
var defaultPersona []byte

// Persona is the versioned instruction set sent ahead of every question
type Persona struct {
	Version  int    `yaml:"version"`
	Name     string `yaml:"name"`
	Welcome  string `yaml:"welcome"`
	Summary  string `yaml:"summary"`
	Refusal  string `yaml:"refusal"`
	Preamble string `yaml:"preamble"`
}

// Default returns the built-in persona
func Default() (*Persona, error) {
	return parse(defaultPersona)
}

// Load reads the persona at path, or the built-in one when path is empty
func Load(path string) (*Persona, error) {
	if path == "" {
		return Default()
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read persona: %w", err)
	}
	p, err := parse(data)
	if err != nil {
		return nil, fmt.Errorf("persona %s: %w", path, err)
	}
	return p, nil
}

func parse(data []byte) (*Persona, error) {
	var p Persona
	if err := yaml.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("failed to parse persona: %w", err)
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return &p, nil
}

func (p *Persona) Validate() error {
	if p.Version <= 0 {
		return errors.New("persona version must be positive")
	}
	if strings.TrimSpace(p.Preamble) == "" {
		return errors.New("persona preamble is empty")
	}
	return nil
}

// Render builds the single user message for the completion API
func (p *Persona) Render(question, context string) string {
	var b strings.Builder
	b.Grow(len(p.Preamble) + len(question) + len(context) + 24)
	b.WriteString(strings.TrimSpace(p.Preamble))
	b.WriteString("\n\nQuestion: ")
	b.WriteString(question)
	b.WriteString("\n\nContext: ")
	b.WriteString(context)
	return b.String()
}
