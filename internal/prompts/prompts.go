// Package prompts holds the system and instruction prompts sent to the model,
// as text/template sources in an embedded YAML catalogue.
package prompts

import (
	"bytes"
	_ "embed"
	"fmt"
	"os"
	"text/template"
	"time"

	"gopkg.in/yaml.v3"
)

// Template names.
const (
	ClarifyWithUser        = "clarify_with_user"
	WriteResearchBrief     = "write_research_brief"
	ResearchAgent          = "research_agent"
	CompressResearchSystem = "compress_research_system"
	CompressResearchHuman  = "compress_research_human"
	LeadResearcher         = "lead_researcher"
	SummarizeWebpage       = "summarize_webpage"
)

//go:embed prompts.yaml
var defaultCatalogue []byte

// Data carries every variable a prompt may reference.
type Data struct {
	Date                       string
	Messages                   string
	ToolsInfo                  string
	Topic                      string
	Content                    string
	MaxConcurrentResearchUnits int
	MaxResearcherIterations    int
}

// Catalogue is a parsed, immutable set of prompt templates.
type Catalogue struct {
	templates map[string]*template.Template
}

var required = []string{
	ClarifyWithUser, WriteResearchBrief, ResearchAgent,
	CompressResearchSystem, CompressResearchHuman, LeadResearcher, SummarizeWebpage,
}

// Default parses the embedded catalogue.
func Default() (*Catalogue, error) {
	return Parse(defaultCatalogue)
}

// Load parses the catalogue at path, or the embedded one when path is empty.
// Entries missing from the file fall back to the embedded text.
func Load(path string) (*Catalogue, error) {
	if path == "" {
		return Default()
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read prompt catalogue: %w", err)
	}
	var base, override map[string]string
	if err := yaml.Unmarshal(defaultCatalogue, &base); err != nil {
		return nil, fmt.Errorf("parse embedded prompts: %w", err)
	}
	if err := yaml.Unmarshal(data, &override); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	for k, v := range override {
		base[k] = v
	}
	return fromSources(base)
}

// Parse builds a catalogue from YAML source mapping names to templates.
func Parse(src []byte) (*Catalogue, error) {
	var sources map[string]string
	if err := yaml.Unmarshal(src, &sources); err != nil {
		return nil, fmt.Errorf("parse prompts: %w", err)
	}
	return fromSources(sources)
}

func fromSources(sources map[string]string) (*Catalogue, error) {
	c := &Catalogue{templates: make(map[string]*template.Template, len(sources))}
	for name, text := range sources {
		tmpl, err := template.New(name).Option("missingkey=error").Parse(text)
		if err != nil {
			return nil, fmt.Errorf("prompt %q: %w", name, err)
		}
		c.templates[name] = tmpl
	}
	for _, name := range required {
		if _, ok := c.templates[name]; !ok {
			return nil, fmt.Errorf("prompt %q missing from catalogue", name)
		}
	}
	return c, nil
}

// Render executes the named template with data.
func (c *Catalogue) Render(name string, data Data) (string, error) {
	tmpl, ok := c.templates[name]
	if !ok {
		return "", fmt.Errorf("unknown prompt %q", name)
	}
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("render prompt %q: %w", name, err)
	}
	return buf.String(), nil
}

// FormatDate renders t the way every prompt shows today's date.
func FormatDate(t time.Time) string {
	return t.Format("2006 -01 -02")
}
