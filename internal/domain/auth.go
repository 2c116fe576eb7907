package domain

import (
	"errors"
	"time"
)

var (
	ErrChallengeNotFound = errors.New("login challenge not found")
	ErrTokenMissing      = errors.New("authorization token missing")
	ErrInvalidIdentity   = errors.New("identity is not a usable email address")
)

// DispatchError wraps a failure to hand the login email to the provider.
// Its message is shown to the caller as-is.
type DispatchError struct {
	Err error
}

func (e *DispatchError) Error() string { return e.Err.Error() }
func (e *DispatchError) Unwrap() error { return e.Err }

// LoginChallenge is the server-side record behind a magic link.
type LoginChallenge struct {
	ID       string
	Identity string
	IssuedAt time.Time
}

// Age reports how long ago the challenge was issued.
func (c *LoginChallenge) Age(now time.Time) time.Duration {
	return now.Sub(c.IssuedAt)
}

// Outcome is the terminal state of a login attempt.
type Outcome string

const (
	OutcomeGranted Outcome = "granted"
	OutcomeExpired Outcome = "expired"
	OutcomeInvalid Outcome = "invalid"
)

// Redemption is the result of following a magic link. Token is set only
// when Outcome is OutcomeGranted.
type Redemption struct {
	Outcome  Outcome
	Identity string
	Token    string
}

// RelayValue is what the short-lived relay cookie carries for this outcome.
func (r Redemption) RelayValue() string {
	if r.Outcome == OutcomeGranted {
		return r.Token
	}
	return string(r.Outcome)
}
