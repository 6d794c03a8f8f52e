package recovery

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/binary"
	"fmt"
	"io"
	"time"

	"golang.org/x/crypto/argon2"
)

// Digest sizes.
const (
	DigestSize = 32
	SaltSize   = 16
)

// maxShuffles bounds the re-shuffle loop that rejects a presentation equal
// to the answer. For a two-word phrase each shuffle has a 1/2 chance of
// being rejected, so the bound is never reached in practice.
const maxShuffles = 128

// Outcome is the result of grading a candidate ordering.
type Outcome uint8

const (
	Incorrect Outcome = iota
	Correct
)

func (o Outcome) String() string {
	if o == Correct {
		return "correct"
	}
	return "incorrect"
}

// MarshalText implements encoding.TextMarshaler.
func (o Outcome) MarshalText() ([]byte, error) {
	return []byte(o.String()), nil
}

// DigestParams holds the Argon2id parameters used to commit to the phrase
// order. The order of a 12-word phrase has only 12! possibilities once the
// shuffled set is public, so the commitment must be slow to brute force.
type DigestParams struct {
	Memory      uint32 `json:"memory"` // in KiB
	Iterations  uint32 `json:"iterations"`
	Parallelism uint8  `json:"parallelism"`
}

// DefaultDigestParams returns the Argon2id baseline used for phrase digests.
func DefaultDigestParams() DigestParams {
	return DigestParams{
		Memory:      19 * 1024,
		Iterations:  2,
		Parallelism: 1,
	}
}

// Validate returns a *ConfigError for parameters Argon2id cannot run with.
func (p DigestParams) Validate() error {
	if p.Iterations == 0 {
		return configErrorf("argon.iterations", "must be at least 1")
	}
	if p.Parallelism == 0 {
		return configErrorf("argon.parallelism", "must be at least 1")
	}
	if p.Memory < 8*uint32(p.Parallelism) {
		return configErrorf("argon.memory", "must be at least %d KiB", 8*uint32(p.Parallelism))
	}
	return nil
}

// Challenge is a shuffled presentation of a phrase plus a salted digest of
// the correct order. It never carries the order in cleartext, so it can be
// persisted next to the activation record.
type Challenge struct {
	Words    []string     `json:"words"`
	Salt     []byte       `json:"salt"`
	Digest   []byte       `json:"digest"`
	Params   DigestParams `json:"params"`
	IssuedAt time.Time    `json:"issued_at"`
}

// Len returns the number of words in the challenge.
func (c *Challenge) Len() int { return len(c.Words) }

// Shuffled returns a copy of the presented words.
func (c *Challenge) Shuffled() []string {
	out := make([]string, len(c.Words))
	copy(out, c.Words)
	return out
}

// Grade reports Correct iff candidate equals the original phrase position
// by position. Comparison is case-sensitive and there is no partial credit.
func (c *Challenge) Grade(candidate []string) Outcome {
	if len(candidate) != len(c.Words) || len(c.Digest) != DigestSize {
		return Incorrect
	}
	got := phraseDigest(candidate, c.Salt, c.Params)
	if subtle.ConstantTimeCompare(got, c.Digest) == 1 {
		return Correct
	}
	return Incorrect
}

// Challenger builds and reissues challenges.
type Challenger struct {
	params DigestParams
	rand   io.Reader
	now    func() time.Time
}

// NewChallenger creates a Challenger with the given digest parameters.
func NewChallenger(params DigestParams) (*Challenger, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}
	return &Challenger{params: params, rand: rand.Reader, now: time.Now}, nil
}

// Build creates a challenge for phrase. When the phrase has more than one
// word the presented order always differs from the original.
func (c *Challenger) Build(phrase Phrase) (*Challenge, error) {
	if phrase.Len() == 0 {
		return nil, fmt.Errorf("build challenge: phrase is empty")
	}

	salt := make([]byte, SaltSize)
	if _, err := io.ReadFull(c.rand, salt); err != nil {
		return nil, fmt.Errorf("generate salt: %w", err)
	}

	shuffled, err := c.shuffleUntil(phrase.words, func(order []string) bool {
		return !sameOrder(order, phrase.words)
	})
	if err != nil {
		return nil, err
	}

	return &Challenge{
		Words:    shuffled,
		Salt:     salt,
		Digest:   phraseDigest(phrase.words, salt, c.params),
		Params:   c.params,
		IssuedAt: c.now().UTC(),
	}, nil
}

// Reissue returns a fresh shuffle of ch's words bound to the same digest.
// The correct order is unknown here, so a candidate shuffle is rejected when
// it grades Correct against ch.
func (c *Challenger) Reissue(ch *Challenge) (*Challenge, error) {
	if ch == nil || ch.Len() == 0 {
		return nil, fmt.Errorf("reissue challenge: challenge is empty")
	}

	shuffled, err := c.shuffleUntil(ch.Words, func(order []string) bool {
		return ch.Grade(order) == Incorrect
	})
	if err != nil {
		return nil, err
	}

	salt := make([]byte, len(ch.Salt))
	copy(salt, ch.Salt)
	digest := make([]byte, len(ch.Digest))
	copy(digest, ch.Digest)

	return &Challenge{
		Words:    shuffled,
		Salt:     salt,
		Digest:   digest,
		Params:   ch.Params,
		IssuedAt: c.now().UTC(),
	}, nil
}

// shuffleUntil shuffles a copy of words until accept returns true. A
// single-word list is returned as is.
func (c *Challenger) shuffleUntil(words []string, accept func([]string) bool) ([]string, error) {
	out := make([]string, len(words))
	copy(out, words)
	if len(out) < 2 {
		return out, nil
	}
	for i := 0; i < maxShuffles; i++ {
		if err := shuffle(c.rand, out); err != nil {
			return nil, fmt.Errorf("shuffle challenge: %w", err)
		}
		if accept(out) {
			return out, nil
		}
	}
	return nil, fmt.Errorf("shuffle challenge: no acceptable order after %d shuffles", maxShuffles)
}

// shuffle performs an in-place Fisher-Yates shuffle driven by r.
func shuffle(r io.Reader, words []string) error {
	for i := len(words) - 1; i > 0; i-- {
		j, err := randIndex(r, i+1)
		if err != nil {
			return err
		}
		words[i], words[j] = words[j], words[i]
	}
	return nil
}

// phraseDigest commits to an ordered word list. Each word is length-prefixed
// so that different splits of the same characters never collide.
func phraseDigest(words []string, salt []byte, p DigestParams) []byte {
	var buf []byte
	for _, w := range words {
		buf = binary.BigEndian.AppendUint32(buf, uint32(len(w)))
		buf = append(buf, w...)
	}
	sum := argon2.IDKey(buf, salt, p.Iterations, p.Memory, p.Parallelism, DigestSize)

	for i := range buf {
		buf[i] = 0
	}
	return sum
}

func sameOrder(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
