// Package persona loads the assistant's identity and turns it into a system
// prompt.
package persona

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Persona describes who the assistant is and how it behaves.
type Persona struct {
	Identity struct {
		Name    string `yaml:"name"`
		Type    string `yaml:"type"`
		Purpose string `yaml:"purpose"`
	} `yaml:"identity"`
	Style struct {
		Tone     string `yaml:"tone"`
		Language string `yaml:"language"`
		Persona  string `yaml:"persona"`
	} `yaml:"style"`
	Rules     []string `yaml:"rules"`
	Behaviors []string `yaml:"behaviors"`
	Manifesto []string `yaml:"manifesto"`
}

// Default is used when no persona file is configured or it does not exist.
func Default() *Persona {
	p := &Persona{}
	p.Identity.Name = "Bob"
	p.Identity.Type = "a reflective digital companion"
	p.Identity.Purpose = "remember what people teach me and help them recall it"
	p.Style.Tone = "warm and concise"
	p.Style.Language = "the user's language"
	p.Rules = []string{
		"Ground answers in what you have been taught when it is relevant.",
		"Say so plainly when you have not learned something yet.",
	}
	return p
}

// Load reads a YAML persona from path. A missing file yields Default.
func Load(path string) (*Persona, error) {
	if path == "" {
		return Default(), nil
	}
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return Default(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("read persona: %w", err)
	}

	var p Persona
	if err := yaml.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("parse persona %s: %w", path, err)
	}
	if p.Identity.Name == "" {
		return nil, fmt.Errorf("parse persona %s: identity.name is required", path)
	}
	return &p, nil
}

// SystemPrompt renders the persona as a system instruction.
func (p *Persona) SystemPrompt() string {
	var b strings.Builder
	fmt.Fprintf(&b, "My name is %s, I am %s.\n", p.Identity.Name, p.Identity.Type)
	if p.Identity.Purpose != "" {
		fmt.Fprintf(&b, "My purpose: %s\n", p.Identity.Purpose)
	}
	if p.Style.Tone != "" || p.Style.Language != "" {
		fmt.Fprintf(&b, "Communication style: %s (%s)\n", p.Style.Tone, p.Style.Language)
	}
	if p.Style.Persona != "" {
		fmt.Fprintf(&b, "Persona: %s\n", p.Style.Persona)
	}
	writeList(&b, "Rules I follow:", p.Rules)
	writeList(&b, "Special behaviors:", p.Behaviors)
	if len(p.Manifesto) > 0 {
		b.WriteString("\nManifesto:\n")
		b.WriteString(strings.Join(p.Manifesto, "\n"))
		b.WriteString("\n")
	}
	return strings.TrimSpace(b.String())
}

func writeList(b *strings.Builder, title string, items []string) {
	if len(items) == 0 {
		return
	}
	fmt.Fprintf(b, "\n%s\n", title)
	for _, it := range items {
		fmt.Fprintf(b, "- %s\n", it)
	}
}
