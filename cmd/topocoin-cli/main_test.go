package main

import (
	"bufio"
	"strings"
	"testing"
)

func TestParseWords(t *testing.T) {
	tests := []struct {
		input string
		want  []string
	}{
		{"alpha bravo charlie", []string{"alpha", "bravo", "charlie"}},
		{"alpha,bravo, charlie\n", []string{"alpha", "bravo", "charlie"}},
		{"  alpha\t\tbravo  ", []string{"alpha", "bravo"}},
		{"", nil},
		{" , ", nil},
	}
	for _, tt := range tests {
		got := parseWords(tt.input)
		if strings.Join(got, "|") != strings.Join(tt.want, "|") {
			t.Errorf("parseWords(%q) = %q, want %q", tt.input, got, tt.want)
		}
	}
}

func TestNumbered(t *testing.T) {
	if got := numbered([]string{"alpha", "bravo"}); got != "1.alpha 2.bravo" {
		t.Errorf("numbered = %q", got)
	}
}

func TestPromptWords(t *testing.T) {
	words, err := promptWords(bufio.NewReader(strings.NewReader("bravo alpha\n")), []string{"alpha", "bravo"})
	if err != nil {
		t.Fatalf("promptWords: %v", err)
	}
	if strings.Join(words, " ") != "bravo alpha" {
		t.Errorf("words = %v", words)
	}

	// Input without a trailing newline is still accepted.
	words, err = promptWords(bufio.NewReader(strings.NewReader("alpha")), nil)
	if err != nil || len(words) != 1 {
		t.Errorf("promptWords(no newline) = %v, %v", words, err)
	}

	if _, err := promptWords(bufio.NewReader(strings.NewReader("\n")), nil); err == nil {
		t.Error("empty input should fail")
	}
}
