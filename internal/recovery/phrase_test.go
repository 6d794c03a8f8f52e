package recovery

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestDefaultWordlist(t *testing.T) {
	words := DefaultWordlist()
	if len(words) != 2048 {
		t.Fatalf("wordlist size = %d, want 2048", len(words))
	}
	if words[0] != "abandon" || words[2047] != "zoo" {
		t.Errorf("wordlist bounds = %q..%q, want abandon..zoo", words[0], words[2047])
	}
	words[0] = "mutated"
	if DefaultWordlist()[0] != "abandon" {
		t.Error("DefaultWordlist should return a copy")
	}
}

func TestGenerator_Generate(t *testing.T) {
	gen, err := NewGenerator(DefaultWordlist())
	if err != nil {
		t.Fatalf("NewGenerator() error: %v", err)
	}
	inList := make(map[string]bool, gen.Size())
	for _, w := range DefaultWordlist() {
		inList[w] = true
	}

	for _, length := range []int{1, 2, 12, 24, 2048} {
		t.Run(fmt.Sprintf("len=%d", length), func(t *testing.T) {
			phrase, err := gen.Generate(length)
			if err != nil {
				t.Fatalf("Generate(%d) error: %v", length, err)
			}
			words := phrase.Words()
			if len(words) != length {
				t.Fatalf("word count = %d, want %d", len(words), length)
			}
			seen := make(map[string]bool, length)
			for _, w := range words {
				if !inList[w] {
					t.Errorf("word %q is not in the wordlist", w)
				}
				if seen[w] {
					t.Errorf("word %q drawn twice", w)
				}
				seen[w] = true
			}
		})
	}
}

func TestGenerator_Unique(t *testing.T) {
	gen, _ := NewGenerator(DefaultWordlist())
	p1, _ := gen.Generate(12)
	p2, _ := gen.Generate(12)
	if strings.Join(p1.Words(), " ") == strings.Join(p2.Words(), " ") {
		t.Error("two generated phrases should not be identical")
	}
}

func TestGenerator_LengthErrors(t *testing.T) {
	gen, _ := NewGenerator([]string{"alpha", "bravo", "charlie"})

	for _, length := range []int{0, -1, 4} {
		_, err := gen.Generate(length)
		var cfgErr *ConfigError
		if !errors.As(err, &cfgErr) {
			t.Errorf("Generate(%d) error = %v, want *ConfigError", length, err)
		}
	}

	phrase, err := gen.Generate(3)
	if err != nil {
		t.Fatalf("Generate(3) over 3 words error: %v", err)
	}
	if phrase.Len() != 3 {
		t.Errorf("Len() = %d, want 3", phrase.Len())
	}
}

func TestNewGenerator_InvalidWordlist(t *testing.T) {
	tests := []struct {
		name  string
		words []string
	}{
		{"empty", nil},
		{"duplicate", []string{"alpha", "bravo", "alpha"}},
		{"blank", []string{"alpha", " "}},
		{"whitespace", []string{"alpha", "two words"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewGenerator(tt.words)
			var cfgErr *ConfigError
			if !errors.As(err, &cfgErr) {
				t.Errorf("NewGenerator() error = %v, want *ConfigError", err)
			}
		})
	}
}

func TestPhrase_Redacted(t *testing.T) {
	phrase, err := NewPhrase([]string{"alpha", "bravo", "charlie"})
	if err != nil {
		t.Fatalf("NewPhrase() error: %v", err)
	}

	s := fmt.Sprintf("%v %s", phrase, phrase)
	data, _ := json.Marshal(map[string]interface{}{"phrase": phrase})
	for _, out := range []string{s, string(data)} {
		for _, w := range phrase.Words() {
			if strings.Contains(out, w) {
				t.Errorf("output %q leaks word %q", out, w)
			}
		}
	}
}

func TestNewPhrase_Invalid(t *testing.T) {
	for _, words := range [][]string{nil, {"a", "a"}, {"a", ""}} {
		if _, err := NewPhrase(words); err == nil {
			t.Errorf("NewPhrase(%q) should fail", words)
		}
	}
}

func TestLoadWordlist(t *testing.T) {
	path := filepath.Join(t.TempDir(), "words.txt")
	content := "# custom list\nalpha\n\n  bravo  \ncharlie\n"
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatal(err)
	}

	words, err := LoadWordlist(path)
	if err != nil {
		t.Fatalf("LoadWordlist() error: %v", err)
	}
	want := []string{"alpha", "bravo", "charlie"}
	if strings.Join(words, ",") != strings.Join(want, ",") {
		t.Errorf("words = %v, want %v", words, want)
	}

	if _, err := LoadWordlist(filepath.Join(t.TempDir(), "missing")); err == nil {
		t.Error("LoadWordlist() on a missing file should fail")
	}
}
