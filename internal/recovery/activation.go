package recovery

import (
	"fmt"
	"time"
)

// State is the activation state of an account.
type State uint8

const (
	Pending State = iota
	Verified
	LockedOut
)

// String returns the wire name of the state.
func (s State) String() string {
	switch s {
	case Pending:
		return "pending"
	case Verified:
		return "verified"
	case LockedOut:
		return "locked_out"
	default:
		return fmt.Sprintf("state(%d)", uint8(s))
	}
}

// IsTerminal reports whether no further transitions are defined.
func (s State) IsTerminal() bool {
	return s == Verified || s == LockedOut
}

// MarshalText implements encoding.TextMarshaler.
func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (s *State) UnmarshalText(b []byte) error {
	switch string(b) {
	case "pending":
		*s = Pending
	case "verified":
		*s = Verified
	case "locked_out":
		*s = LockedOut
	default:
		return fmt.Errorf("unknown activation state %q", b)
	}
	return nil
}

// Record tracks one account through activation.
type Record struct {
	AccountID    string     `json:"account_id"`
	State        State      `json:"state"`
	AttemptsUsed int        `json:"attempts_used"`
	MaxAttempts  int        `json:"max_attempts"`
	Challenge    *Challenge `json:"challenge,omitempty"` // nil once terminal
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
	ExpiresAt    time.Time  `json:"expires_at,omitempty"` // zero = never
}

// Transition describes one applied grading result.
type Transition struct {
	From    State
	To      State
	Outcome Outcome
}

// NewRecord creates a Pending record for accountID. A zero ttl disables
// expiry.
func NewRecord(accountID string, maxAttempts int, ch *Challenge, now time.Time, ttl time.Duration) (*Record, error) {
	if maxAttempts < 1 {
		return nil, configErrorf("max_attempts", "must be at least 1, got %d", maxAttempts)
	}
	if ch == nil {
		return nil, fmt.Errorf("new record: challenge is nil")
	}
	rec := &Record{
		AccountID:   accountID,
		State:       Pending,
		MaxAttempts: maxAttempts,
		Challenge:   ch,
		CreatedAt:   now.UTC(),
		UpdatedAt:   now.UTC(),
	}
	if ttl > 0 {
		rec.ExpiresAt = now.Add(ttl).UTC()
	}
	return rec, nil
}

// Remaining returns how many incorrect attempts are still allowed.
func (r *Record) Remaining() int {
	if r.State.IsTerminal() {
		return 0
	}
	if n := r.MaxAttempts - r.AttemptsUsed; n > 0 {
		return n
	}
	return 0
}

// Expired reports whether a pending record outlived its TTL at now.
func (r *Record) Expired(now time.Time) bool {
	return r.State == Pending && !r.ExpiresAt.IsZero() && !now.Before(r.ExpiresAt)
}

// Apply advances the state machine with a grading outcome. It is the only
// place State and AttemptsUsed change. Terminal records reject every
// outcome with ErrInvalidState and are left untouched.
func (r *Record) Apply(o Outcome, now time.Time) (Transition, error) {
	if r.State.IsTerminal() {
		return Transition{}, fmt.Errorf("account %s is %s: %w", r.AccountID, r.State, ErrInvalidState)
	}

	t := Transition{From: r.State, Outcome: o}
	switch o {
	case Correct:
		r.State = Verified
	default:
		r.AttemptsUsed++
		if r.AttemptsUsed >= r.MaxAttempts {
			r.State = LockedOut
		}
	}
	if r.State.IsTerminal() {
		r.Challenge = nil
		r.ExpiresAt = time.Time{}
	}
	r.UpdatedAt = now.UTC()
	t.To = r.State
	return t, nil
}
