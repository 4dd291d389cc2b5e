package moderation

import (
	"os"
	"path/filepath"
	"testing"
)

func TestHostileSubstringMatch(t *testing.T) {
	c := NewKeywordClassifier([]string{"stupid", "shut up"})

	cases := []struct {
		text string
		want bool
	}{
		{"that was a STUPID move", true},
		{"StUpId", true},
		{"superstupidity", true}, // substring match by design
		{"please shut up already", true},
		{"nice game, well played", false},
		{"", false},
	}
	for _, tc := range cases {
		if got := c.Hostile(tc.text); got != tc.want {
			t.Fatalf("Hostile(%q) = %v, want %v", tc.text, got, tc.want)
		}
	}
}

func TestDefaultClassifierNonEmpty(t *testing.T) {
	c := NewDefaultClassifier()
	if !c.Hostile("you are an idiot") {
		t.Fatalf("default list should flag obvious insults")
	}
	if c.Hostile("good luck, have fun") {
		t.Fatalf("default list should not flag friendly chat")
	}
}

func TestLoadClassifierFromYAML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "keywords.yaml")
	content := "keywords:\n  - Rubbish\n  - 'no good'\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}

	c, err := LoadClassifier(path)
	if err != nil {
		t.Fatalf("LoadClassifier: %v", err)
	}
	if !c.Hostile("total RUBBISH") {
		t.Fatalf("expected keyword from file to match case-insensitively")
	}
	if c.Hostile("fine move") {
		t.Fatalf("unexpected hostile classification")
	}
}

func TestLoadClassifierEmptyPathUsesDefaults(t *testing.T) {
	c, err := LoadClassifier("")
	if err != nil {
		t.Fatalf("LoadClassifier(\"\"): %v", err)
	}
	if !c.Hostile("trash talk") {
		t.Fatalf("defaults should apply for empty path")
	}
}

func TestLoadClassifierMissingFile(t *testing.T) {
	if _, err := LoadClassifier("/nonexistent/keywords.yaml"); err == nil {
		t.Fatalf("expected error for missing file")
	}
}
