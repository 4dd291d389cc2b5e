// Package moderation classifies free-text chat messages before they are
// forwarded to the language model. The trigger list is configuration data,
// loadable from a YAML file, not control flow.
package moderation

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Classifier reports whether a message should be treated as hostile.
type Classifier interface {
	Hostile(text string) bool
}

// defaultKeywords seed the classifier when no keyword file is configured.
var defaultKeywords = []string{
	"stupid",
	"idiot",
	"dumb",
	"trash",
	"loser",
	"pathetic",
	"garbage",
	"worthless",
	"shut up",
	"hate you",
}

type keywordFile struct {
	Keywords []string `yaml:"keywords"`
}

// KeywordClassifier flags messages containing any listed term as a
// case-insensitive substring.
type KeywordClassifier struct {
	keywords []string
}

func NewKeywordClassifier(keywords []string) *KeywordClassifier {
	cleaned := make([]string, 0, len(keywords))
	for _, k := range keywords {
		k = strings.ToLower(strings.TrimSpace(k))
		if k != "" {
			cleaned = append(cleaned, k)
		}
	}
	return &KeywordClassifier{keywords: cleaned}
}

// NewDefaultClassifier returns a classifier seeded with the built-in list.
func NewDefaultClassifier() *KeywordClassifier {
	return NewKeywordClassifier(defaultKeywords)
}

// LoadClassifier reads the keyword list from a YAML file. An empty path
// falls back to the built-in defaults.
func LoadClassifier(path string) (*KeywordClassifier, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return NewDefaultClassifier(), nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read keyword file: %w", err)
	}
	var kf keywordFile
	if err := yaml.Unmarshal(raw, &kf); err != nil {
		return nil, fmt.Errorf("parse keyword file: %w", err)
	}
	if len(kf.Keywords) == 0 {
		return nil, fmt.Errorf("keyword file %s lists no keywords", path)
	}
	return NewKeywordClassifier(kf.Keywords), nil
}

func (c *KeywordClassifier) Hostile(text string) bool {
	if c == nil || len(c.keywords) == 0 {
		return false
	}
	lowered := strings.ToLower(text)
	for _, k := range c.keywords {
		if strings.Contains(lowered, k) {
			return true
		}
	}
	return false
}
