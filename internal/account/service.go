package account

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	klog "github.com/lojol469-cmd/Topocoin-api/internal/log"
	"github.com/lojol469-cmd/Topocoin-api/internal/metrics"
	"github.com/lojol469-cmd/Topocoin-api/internal/recovery"
	"github.com/lojol469-cmd/Topocoin-api/internal/security"
	"github.com/lojol469-cmd/Topocoin-api/internal/solana"
	"github.com/rs/zerolog"
)

// orphanGrace is how long a pending user without an activation record is
// assumed to be mid-registration before its name can be reclaimed.
const orphanGrace = time.Minute

// RegisterRequest carries the fields of a new registration.
type RegisterRequest struct {
	Username      string
	Password      string
	WalletAddress string // optional base58 Solana address
}

// Registration is returned once per registration. Phrase is never
// retrievable again.
type Registration struct {
	AccountID   string    `json:"account_id"`
	Username    string    `json:"username"`
	Phrase      []string  `json:"phrase"`
	Challenge   []string  `json:"challenge"`
	MaxAttempts int       `json:"max_attempts"`
	ExpiresAt   time.Time `json:"expires_at,omitempty"`
}

// VerifyResult reports a graded verification attempt.
type VerifyResult struct {
	AccountID         string   `json:"account_id"`
	Outcome           string   `json:"outcome"`
	State             string   `json:"state"`
	Status            Status   `json:"status"`
	AttemptsUsed      int      `json:"attempts_used"`
	AttemptsRemaining int      `json:"attempts_remaining"`
	Challenge         []string `json:"challenge,omitempty"`
}

// ChallengeInfo is the challenge currently presented to a pending user.
type ChallengeInfo struct {
	AccountID         string    `json:"account_id"`
	Words             []string  `json:"words"`
	AttemptsUsed      int       `json:"attempts_used"`
	AttemptsRemaining int       `json:"attempts_remaining"`
	ExpiresAt         time.Time `json:"expires_at,omitempty"`
}

// StatusInfo describes a user and its activation progress.
type StatusInfo struct {
	AccountID         string     `json:"account_id"`
	Username          string     `json:"username"`
	Status            Status     `json:"status"`
	WalletAddress     string     `json:"wallet_address,omitempty"`
	Activation        string     `json:"activation,omitempty"`
	AttemptsUsed      int        `json:"attempts_used"`
	AttemptsRemaining int        `json:"attempts_remaining"`
	ExpiresAt         *time.Time `json:"expires_at,omitempty"`
	CreatedAt         time.Time  `json:"created_at"`
	ActivatedAt       *time.Time `json:"activated_at,omitempty"`
}

// Option customizes a Service.
type Option func(*Service)

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// Service implements registration, phrase verification and login.
type Service struct {
	users    *Store
	recovery *recovery.Manager
	hasher   *security.Hasher
	tokens   *security.TokenProvider
	metrics  *metrics.Metrics
	logger   zerolog.Logger
	now      func() time.Time
}

// NewService wires the account service. m may be nil.
func NewService(users *Store, mgr *recovery.Manager, hasher *security.Hasher,
	tokens *security.TokenProvider, m *metrics.Metrics, opts ...Option) *Service {
	s := &Service{
		users:    users,
		recovery: mgr,
		hasher:   hasher,
		tokens:   tokens,
		metrics:  m,
		logger:   klog.WithComponent("account"),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Register creates a pending user, generates its recovery phrase and starts
// the activation flow.
func (s *Service) Register(ctx context.Context, req RegisterRequest) (*Registration, error) {
	reg, err := s.register(ctx, req)
	if err != nil {
		s.metrics.Registration("error")
		return nil, err
	}
	s.metrics.Registration("ok")
	return reg, nil
}

func (s *Service) register(ctx context.Context, req RegisterRequest) (*Registration, error) {
	name, err := NormalizeUsername(req.Username)
	if err != nil {
		return nil, err
	}
	var wallet string
	if req.WalletAddress != "" {
		pk, err := solana.ParsePublicKey(req.WalletAddress)
		if err != nil {
			return nil, err
		}
		wallet = pk.String()
	}
	hash, err := s.hasher.Hash([]byte(req.Password))
	if err != nil {
		return nil, err
	}
	phrase, err := s.recovery.GeneratePhrase(0)
	if err != nil {
		return nil, fmt.Errorf("generate phrase: %w", err)
	}

	u := &User{
		ID:            uuid.NewString(),
		Username:      name,
		PasswordHash:  hash,
		WalletAddress: wallet,
		Status:        StatusPending,
		CreatedAt:     s.now().UTC(),
	}
	if err := s.claim(ctx, u); err != nil {
		return nil, err
	}

	rec, err := s.recovery.Begin(ctx, u.ID, phrase)
	if err != nil {
		if derr := s.users.Delete(u); derr != nil {
			s.logger.Error().Err(derr).Str("account_id", u.ID).Msg("Failed to roll back user")
		}
		return nil, fmt.Errorf("begin activation: %w", err)
	}

	s.logger.Info().
		Str("account_id", u.ID).
		Str("username", u.Username).
		Bool("wallet", wallet != "").
		Msg("User registered")

	return &Registration{
		AccountID:   u.ID,
		Username:    u.Username,
		Phrase:      phrase.Words(),
		Challenge:   rec.Challenge.Shuffled(),
		MaxAttempts: rec.MaxAttempts,
		ExpiresAt:   rec.ExpiresAt,
	}, nil
}

// claim stores u, reclaiming the username from an abandoned registration
// if necessary.
func (s *Service) claim(ctx context.Context, u *User) error {
	err := s.users.Create(u)
	if !errors.Is(err, ErrUsernameTaken) {
		return err
	}
	existing, gerr := s.users.GetByUsername(u.Username)
	if gerr != nil || !s.abandoned(ctx, existing) {
		return err
	}
	if err := s.discard(ctx, existing); err != nil {
		return err
	}
	s.logger.Debug().Str("account_id", existing.ID).Msg("Reclaimed abandoned username")
	return s.users.Create(u)
}

// abandoned reports whether u is a pending registration that can no longer
// be completed.
func (s *Service) abandoned(ctx context.Context, u *User) bool {
	if u.Status != StatusPending {
		return false
	}
	now := s.now()
	rec, err := s.recovery.Current(ctx, u.ID)
	if errors.Is(err, recovery.ErrNotFound) {
		return now.Sub(u.CreatedAt) > orphanGrace
	}
	return err == nil && rec.Expired(now)
}

// discard removes a pending user and its activation record.
func (s *Service) discard(ctx context.Context, u *User) error {
	if err := s.recovery.Forget(ctx, u.ID); err != nil {
		return fmt.Errorf("forget activation: %w", err)
	}
	return s.users.Delete(u)
}

// Verify grades words against the user's current challenge. A correct
// answer activates the user; exhausting the attempts disables it.
func (s *Service) Verify(ctx context.Context, username string, words []string) (*VerifyResult, error) {
	u, err := s.lookup(username)
	if err != nil {
		return nil, err
	}

	res, err := s.recovery.GradeAttempt(ctx, u.ID, words)
	if errors.Is(err, recovery.ErrInvalidState) {
		s.reconcile(ctx, u)
		return nil, err
	}
	if err != nil {
		return nil, err
	}
	s.metrics.Graded(res.Outcome.String())

	status := u.Status
	switch res.State {
	case recovery.Verified:
		status = StatusActive
	case recovery.LockedOut:
		status = StatusDisabled
		s.metrics.Lockout()
	}
	if status != u.Status {
		if u, err = s.setStatus(u.ID, status); err != nil {
			return nil, err
		}
		s.logger.Info().Str("account_id", u.ID).Str("status", string(status)).Msg("User status changed")
	}

	return &VerifyResult{
		AccountID:         u.ID,
		Outcome:           res.Outcome.String(),
		State:             res.State.String(),
		Status:            u.Status,
		AttemptsUsed:      res.AttemptsUsed,
		AttemptsRemaining: res.AttemptsRemaining,
		Challenge:         res.Challenge,
	}, nil
}

// Challenge returns the words currently presented to a pending user.
func (s *Service) Challenge(ctx context.Context, username string) (*ChallengeInfo, error) {
	u, err := s.lookup(username)
	if err != nil {
		return nil, err
	}
	rec, err := s.recovery.Current(ctx, u.ID)
	if err != nil {
		return nil, err
	}
	if rec.State.IsTerminal() || rec.Challenge == nil {
		return nil, fmt.Errorf("account is %s: %w", rec.State, recovery.ErrInvalidState)
	}
	if rec.Expired(s.now()) {
		return nil, recovery.ErrExpired
	}
	return &ChallengeInfo{
		AccountID:         u.ID,
		Words:             rec.Challenge.Shuffled(),
		AttemptsUsed:      rec.AttemptsUsed,
		AttemptsRemaining: rec.Remaining(),
		ExpiresAt:         rec.ExpiresAt,
	}, nil
}

// Status reports the user's status and activation progress.
func (s *Service) Status(ctx context.Context, username string) (*StatusInfo, error) {
	u, err := s.lookup(username)
	if err != nil {
		return nil, err
	}
	u = s.reconcile(ctx, u)

	info := &StatusInfo{
		AccountID:     u.ID,
		Username:      u.Username,
		Status:        u.Status,
		WalletAddress: u.WalletAddress,
		CreatedAt:     u.CreatedAt,
	}
	if !u.ActivatedAt.IsZero() {
		at := u.ActivatedAt
		info.ActivatedAt = &at
	}
	rec, err := s.recovery.Current(ctx, u.ID)
	switch {
	case errors.Is(err, recovery.ErrNotFound):
	case err != nil:
		return nil, err
	default:
		info.Activation = rec.State.String()
		info.AttemptsUsed = rec.AttemptsUsed
		info.AttemptsRemaining = rec.Remaining()
		if !rec.ExpiresAt.IsZero() {
			at := rec.ExpiresAt
			info.ExpiresAt = &at
		}
	}
	return info, nil
}

// Login checks the password of an active user and issues an access token.
func (s *Service) Login(ctx context.Context, username, password string) (*security.Token, error) {
	u, err := s.lookup(username)
	if errors.Is(err, ErrUserNotFound) || errors.Is(err, ErrInvalidUsername) {
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, err
	}
	if err := s.hasher.Compare(u.PasswordHash, []byte(password)); err != nil {
		s.logger.Debug().Str("account_id", u.ID).Msg("Login rejected")
		return nil, ErrInvalidCredentials
	}
	u = s.reconcile(ctx, u)
	if u.Status != StatusActive {
		return nil, fmt.Errorf("%w: status %s", ErrNotActive, u.Status)
	}
	tok, err := s.tokens.Issue(u.ID, u.Username)
	if err != nil {
		return nil, err
	}
	s.logger.Info().Str("account_id", u.ID).Time("expires_at", tok.ExpiresAt).Msg("User logged in")
	return tok, nil
}

// Authenticate resolves an access token to an active user.
func (s *Service) Authenticate(ctx context.Context, token string) (*User, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	claims, err := s.tokens.Validate(token)
	if err != nil {
		return nil, err
	}
	u, err := s.users.Get(claims.Subject)
	if errors.Is(err, ErrUserNotFound) {
		return nil, security.ErrInvalidToken
	}
	if err != nil {
		return nil, err
	}
	if u.Status != StatusActive {
		return nil, fmt.Errorf("%w: status %s", ErrNotActive, u.Status)
	}
	return u, nil
}

// PurgeExpired removes pending registrations whose activation expired at
// now. It returns how many users were removed.
func (s *Service) PurgeExpired(ctx context.Context, now time.Time) (int, error) {
	ids, err := s.recovery.Expired(ctx, now)
	if err != nil {
		return 0, err
	}
	purged := 0
	for _, id := range ids {
		if err := ctx.Err(); err != nil {
			return purged, err
		}
		u, err := s.users.Get(id)
		switch {
		case errors.Is(err, ErrUserNotFound):
			if err := s.recovery.Forget(ctx, id); err != nil {
				return purged, err
			}
			continue
		case err != nil:
			return purged, err
		}
		if u.Status != StatusPending {
			continue
		}
		if err := s.discard(ctx, u); err != nil {
			return purged, err
		}
		purged++
	}
	if purged > 0 {
		s.metrics.Purged(purged)
		s.logger.Info().Int("count", purged).Msg("Purged abandoned registrations")
	}
	return purged, nil
}

func (s *Service) lookup(username string) (*User, error) {
	name, err := NormalizeUsername(username)
	if err != nil {
		return nil, err
	}
	return s.users.GetByUsername(name)
}

// reconcile brings the user status in line with its activation record. It
// repairs a status update lost after grading.
func (s *Service) reconcile(ctx context.Context, u *User) *User {
	rec, err := s.recovery.Current(ctx, u.ID)
	if err != nil {
		return u
	}
	want := u.Status
	switch {
	case rec.State == recovery.Verified && u.Status == StatusPending:
		want = StatusActive
	case rec.State == recovery.LockedOut && u.Status == StatusPending:
		want = StatusDisabled
	}
	if want == u.Status {
		return u
	}
	updated, err := s.setStatus(u.ID, want)
	if err != nil {
		s.logger.Error().Err(err).Str("account_id", u.ID).Msg("Failed to reconcile user status")
		return u
	}
	return updated
}

func (s *Service) setStatus(id string, status Status) (*User, error) {
	now := s.now().UTC()
	return s.users.Update(id, func(u *User) error {
		u.Status = status
		if status == StatusActive && u.ActivatedAt.IsZero() {
			u.ActivatedAt = now
		}
		return nil
	})
}
