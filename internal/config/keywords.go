package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Keywords holds the replaceable heuristic word lists. Any section left empty
// keeps the built-in defaults of the component that consumes it.
type Keywords struct {
	Regions          []RegionKeywords   `yaml:"regions"`
	Categories       []CategoryKeywords `yaml:"categories"`
	TrustedCompanies []string           `yaml:"trusted_companies"`
	RedFlags         []string           `yaml:"red_flags"`
}

// RegionKeywords maps a region bucket to the location tokens that select it.
type RegionKeywords struct {
	Bucket string   `yaml:"bucket"`
	Tokens []string `yaml:"tokens"`
}

// CategoryKeywords is one taxonomy entry. Order in the file is the tie-break order.
type CategoryKeywords struct {
	Name     string   `yaml:"name"`
	Keywords []string `yaml:"keywords"`
}

// LoadKeywords reads a YAML keyword file. An empty path returns an empty Keywords.
func LoadKeywords(path string) (*Keywords, error) {
	if path == "" {
		return &Keywords{}, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read keywords file %q: %w", path, err)
	}

	var kw Keywords
	if err := yaml.Unmarshal(data, &kw); err != nil {
		return nil, fmt.Errorf("parse keywords file %q: %w", path, err)
	}

	for _, r := range kw.Regions {
		if r.Bucket == "" {
			return nil, fmt.Errorf("%w: region entry without bucket in %q", ErrInvalidConfig, path)
		}
	}
	return &kw, nil
}
