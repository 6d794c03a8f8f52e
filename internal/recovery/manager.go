package recovery

import (
	"context"
	"fmt"
	"io"
	"time"

	klog "github.com/lojol469-cmd/Topocoin-api/internal/log"
	"github.com/lojol469-cmd/Topocoin-api/internal/storage"
	"github.com/rs/zerolog"
)

// Defaults for Config fields left zero.
const (
	DefaultMaxAttempts = 3
	DefaultPendingTTL  = 30 * time.Minute
)

// Config controls the lifecycle manager.
type Config struct {
	PhraseLength int           // words per phrase
	MaxAttempts  int           // incorrect attempts before lockout
	PendingTTL   time.Duration // abandoned registrations expire after this; 0 = never
	Digest       DigestParams
	Wordlist     []string // nil = BIP-39 English
}

// DefaultConfig returns the production defaults.
func DefaultConfig() Config {
	return Config{
		PhraseLength: DefaultPhraseLength,
		MaxAttempts:  DefaultMaxAttempts,
		PendingTTL:   DefaultPendingTTL,
		Digest:       DefaultDigestParams(),
	}
}

// Result is returned by GradeAttempt.
type Result struct {
	AccountID         string
	Outcome           Outcome
	Previous          State
	State             State
	AttemptsUsed      int
	AttemptsRemaining int
	// Challenge holds the freshly shuffled words to present next. It is
	// empty once the record is terminal.
	Challenge []string
	// Disable is set when the record just became LockedOut; the host must
	// refuse further activation attempts for the account.
	Disable bool
}

// Option customizes a Manager.
type Option func(*Manager)

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) {
		m.now = now
		m.challenger.now = now
	}
}

// WithRandom overrides the randomness source for phrases and shuffles.
// Only tests should use this; production must use crypto/rand.
func WithRandom(r io.Reader) Option {
	return func(m *Manager) {
		m.generator.rand = r
		m.challenger.rand = r
	}
}

// Manager is the recovery-phrase lifecycle manager. It is safe for
// concurrent use; grading for a single account is serialized.
type Manager struct {
	cfg        Config
	generator  *Generator
	challenger *Challenger
	store      *Store
	locks      *keyedMutex
	now        func() time.Time
	logger     zerolog.Logger
}

// NewManager validates cfg and creates a manager persisting records in db.
// Configuration problems are reported as *ConfigError.
func NewManager(cfg Config, db storage.DB, opts ...Option) (*Manager, error) {
	words := cfg.Wordlist
	if words == nil {
		words = DefaultWordlist()
	}
	gen, err := NewGenerator(words)
	if err != nil {
		return nil, err
	}
	if err := gen.CheckLength(cfg.PhraseLength); err != nil {
		return nil, err
	}
	if cfg.MaxAttempts < 1 {
		return nil, configErrorf("max_attempts", "must be at least 1, got %d", cfg.MaxAttempts)
	}
	if cfg.PendingTTL < 0 {
		return nil, configErrorf("pending_ttl", "must not be negative")
	}
	ch, err := NewChallenger(cfg.Digest)
	if err != nil {
		return nil, err
	}

	m := &Manager{
		cfg:        cfg,
		generator:  gen,
		challenger: ch,
		store:      NewStore(db),
		locks:      newKeyedMutex(),
		now:        time.Now,
		logger:     klog.WithComponent("recovery"),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m, nil
}

// Config returns the manager configuration.
func (m *Manager) Config() Config { return m.cfg }

// GeneratePhrase draws a phrase of length words. A length of zero uses the
// configured default.
func (m *Manager) GeneratePhrase(length int) (Phrase, error) {
	if length == 0 {
		length = m.cfg.PhraseLength
	}
	return m.generator.Generate(length)
}

// IssueChallenge builds a fresh shuffled challenge for phrase.
func (m *Manager) IssueChallenge(phrase Phrase) (*Challenge, error) {
	return m.challenger.Build(phrase)
}

// Begin creates the Pending record for accountID with a first challenge.
// An existing record is only replaced when it is a pending record that has
// expired; otherwise ErrExists is returned.
func (m *Manager) Begin(ctx context.Context, accountID string, phrase Phrase) (*Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if accountID == "" {
		return nil, fmt.Errorf("begin activation: account id is empty")
	}

	unlock := m.locks.Lock(accountID)
	defer unlock()

	ch, err := m.challenger.Build(phrase)
	if err != nil {
		return nil, err
	}
	now := m.now()
	rec, err := NewRecord(accountID, m.cfg.MaxAttempts, ch, now, m.cfg.PendingTTL)
	if err != nil {
		return nil, err
	}
	err = m.store.Upsert(rec, func(existing *Record) bool {
		return existing.Expired(now)
	})
	if err != nil {
		return nil, err
	}

	m.logger.Debug().
		Str("account_id", accountID).
		Int("words", phrase.Len()).
		Int("max_attempts", rec.MaxAttempts).
		Time("expires_at", rec.ExpiresAt).
		Msg("Activation started")
	return rec, nil
}

// GradeAttempt grades candidate against the account's current challenge and
// applies the outcome. An incorrect answer that leaves the record Pending
// issues a fresh shuffle. Grading a Verified or LockedOut record fails with
// ErrInvalidState; grading an expired record fails with ErrExpired.
func (m *Manager) GradeAttempt(ctx context.Context, accountID string, candidate []string) (*Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	unlock := m.locks.Lock(accountID)
	defer unlock()
	defer klog.Benchmark("recovery.grade")()

	var res *Result
	err := m.store.Update(accountID, func(rec *Record) error {
		if rec.State.IsTerminal() {
			return fmt.Errorf("account %s is %s: %w", accountID, rec.State, ErrInvalidState)
		}
		now := m.now()
		if rec.Expired(now) {
			return ErrExpired
		}
		if rec.Challenge == nil {
			return fmt.Errorf("account %s: pending record has no challenge", accountID)
		}

		outcome := rec.Challenge.Grade(candidate)
		tr, err := rec.Apply(outcome, now)
		if err != nil {
			return err
		}
		if rec.State == Pending {
			next, err := m.challenger.Reissue(rec.Challenge)
			if err != nil {
				return err
			}
			rec.Challenge = next
		}

		res = &Result{
			AccountID:         accountID,
			Outcome:           outcome,
			Previous:          tr.From,
			State:             tr.To,
			AttemptsUsed:      rec.AttemptsUsed,
			AttemptsRemaining: rec.Remaining(),
			Disable:           tr.To == LockedOut,
		}
		if rec.Challenge != nil {
			res.Challenge = rec.Challenge.Shuffled()
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	ev := m.logger.Info()
	if res.Disable {
		ev = m.logger.Warn()
	}
	ev.Str("account_id", accountID).
		Stringer("outcome", res.Outcome).
		Stringer("state", res.State).
		Int("attempts_used", res.AttemptsUsed).
		Int("attempts_remaining", res.AttemptsRemaining).
		Msg("Activation attempt graded")
	return res, nil
}

// Current returns the stored record for accountID.
func (m *Manager) Current(ctx context.Context, accountID string) (*Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return m.store.Get(accountID)
}

// Forget deletes the record for accountID.
func (m *Manager) Forget(ctx context.Context, accountID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	unlock := m.locks.Lock(accountID)
	defer unlock()
	return m.store.Delete(accountID)
}

// Expired returns the IDs of pending records that expired at now.
func (m *Manager) Expired(ctx context.Context, now time.Time) ([]string, error) {
	var ids []string
	err := m.store.ForEach(func(rec *Record) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		if rec.Expired(now) {
			ids = append(ids, rec.AccountID)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("scan activation records: %w", err)
	}
	return ids, nil
}
