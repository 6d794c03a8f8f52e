// Package recovery implements the recovery-phrase lifecycle used to activate
// new accounts: phrase generation, shuffled verification challenges and the
// per-account activation state machine.
package recovery

import (
	"bufio"
	"crypto/rand"
	"fmt"
	"io"
	"math/big"
	"os"
	"strings"

	"github.com/tyler-smith/go-bip39/wordlists"
)

// DefaultPhraseLength is the number of words in a generated phrase.
const DefaultPhraseLength = 12

// DefaultWordlist returns a copy of the BIP-39 English wordlist (2048 words).
func DefaultWordlist() []string {
	out := make([]string, len(wordlists.English))
	copy(out, wordlists.English)
	return out
}

// LoadWordlist reads a wordlist file with one word per line. Blank lines and
// lines starting with '#' are skipped.
func LoadWordlist(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open wordlist: %w", err)
	}
	defer f.Close()

	var words []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		words = append(words, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read wordlist: %w", err)
	}
	return words, nil
}

// Phrase is an ordered sequence of distinct words. Its String and
// MarshalJSON forms are redacted so a phrase cannot leak through logs or
// generic serialization; use Words to present it to the user.
type Phrase struct {
	words []string
}

// NewPhrase wraps words as a Phrase. Words must be non-blank and distinct.
func NewPhrase(words []string) (Phrase, error) {
	if len(words) == 0 {
		return Phrase{}, fmt.Errorf("phrase is empty")
	}
	seen := make(map[string]struct{}, len(words))
	for i, w := range words {
		if strings.TrimSpace(w) == "" {
			return Phrase{}, fmt.Errorf("phrase word %d is blank", i)
		}
		if _, dup := seen[w]; dup {
			return Phrase{}, fmt.Errorf("phrase word %q repeats", w)
		}
		seen[w] = struct{}{}
	}
	out := make([]string, len(words))
	copy(out, words)
	return Phrase{words: out}, nil
}

// Words returns a copy of the phrase in its original order.
func (p Phrase) Words() []string {
	out := make([]string, len(p.words))
	copy(out, p.words)
	return out
}

// Len returns the number of words.
func (p Phrase) Len() int { return len(p.words) }

// String implements fmt.Stringer without revealing the words.
func (p Phrase) String() string {
	return fmt.Sprintf("[redacted %d-word phrase]", len(p.words))
}

// MarshalJSON implements json.Marshaler without revealing the words.
func (p Phrase) MarshalJSON() ([]byte, error) {
	return []byte(`"` + p.String() + `"`), nil
}

// Generator draws phrases from a fixed wordlist.
type Generator struct {
	words []string
	rand  io.Reader
}

// NewGenerator creates a generator over words. The list must be non-empty
// and contain no blank or duplicate entries, otherwise a *ConfigError is
// returned.
func NewGenerator(words []string) (*Generator, error) {
	if len(words) == 0 {
		return nil, configErrorf("wordlist", "is empty")
	}
	seen := make(map[string]struct{}, len(words))
	for i, w := range words {
		if strings.TrimSpace(w) == "" || strings.ContainsAny(w, " \t\r\n") {
			return nil, configErrorf("wordlist", "entry %d is blank or contains whitespace", i)
		}
		if _, dup := seen[w]; dup {
			return nil, configErrorf("wordlist", "word %q appears more than once", w)
		}
		seen[w] = struct{}{}
	}
	list := make([]string, len(words))
	copy(list, words)
	return &Generator{words: list, rand: rand.Reader}, nil
}

// Size returns the wordlist size.
func (g *Generator) Size() int { return len(g.words) }

// Generate draws length distinct words uniformly at random. It returns a
// *ConfigError when length is not in [1, Size()].
func (g *Generator) Generate(length int) (Phrase, error) {
	if err := g.CheckLength(length); err != nil {
		return Phrase{}, err
	}

	// Partial Fisher-Yates over a scratch copy: the first length slots end
	// up holding a uniform sample without replacement.
	pool := make([]string, len(g.words))
	copy(pool, g.words)
	for i := 0; i < length; i++ {
		j, err := randIndex(g.rand, len(pool)-i)
		if err != nil {
			return Phrase{}, fmt.Errorf("draw word: %w", err)
		}
		j += i
		pool[i], pool[j] = pool[j], pool[i]
	}
	return Phrase{words: pool[:length:length]}, nil
}

// CheckLength reports whether a phrase of length words can be generated.
func (g *Generator) CheckLength(length int) error {
	if length <= 0 {
		return configErrorf("length", "must be positive, got %d", length)
	}
	if length > len(g.words) {
		return configErrorf("length", "%d exceeds wordlist size %d", length, len(g.words))
	}
	return nil
}

// randIndex returns a uniform integer in [0, n) read from r.
func randIndex(r io.Reader, n int) (int, error) {
	v, err := rand.Int(r, big.NewInt(int64(n)))
	if err != nil {
		return 0, err
	}
	return int(v.Int64()), nil
}
