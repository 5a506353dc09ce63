package suggestions

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Suggestion is a starter feed offered to users who have not subscribed to
// anything yet.
type Suggestion struct {
	Title string `yaml:"title" json:"title"`
	URL   string `yaml:"url" json:"url"`
}

type catalogFile struct {
	Suggestions []Suggestion `yaml:"suggestions"`
}

// Loader reads the suggested-feeds catalog from a YAML file.
type Loader struct {
	path string
}

func NewLoader(path string) *Loader {
	return &Loader{path: path}
}

// Load parses the catalog file. A missing file is not an error; it yields
// an empty catalog.
func (l *Loader) Load() ([]Suggestion, error) {
	data, err := os.ReadFile(l.path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read suggestions file: %w", err)
	}

	var catalog catalogFile
	if err := yaml.Unmarshal(data, &catalog); err != nil {
		return nil, fmt.Errorf("failed to parse suggestions YAML: %w", err)
	}

	if err := l.validate(catalog.Suggestions); err != nil {
		return nil, fmt.Errorf("invalid suggestions file: %w", err)
	}

	return catalog.Suggestions, nil
}

func (l *Loader) validate(suggestions []Suggestion) error {
	for i, s := range suggestions {
		if s.URL == "" {
			return fmt.Errorf("suggestion at index %d has no url", i)
		}
		if s.Title == "" {
			return fmt.Errorf("suggestion at index %d has no title", i)
		}
	}
	return nil
}
