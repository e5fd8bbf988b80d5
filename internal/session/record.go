package session

import (
	"sync/atomic"
	"time"

	"github.com/desertthunder/releasedash/internal/services"
)

// State is the lifecycle state of a [TokenRecord].
type State int

const (
	Unauthenticated State = iota
	Authenticated
	Stale
)

func (s State) String() string {
	switch s {
	case Authenticated:
		return "authenticated"
	case Stale:
		return "stale"
	default:
		return "unauthenticated"
	}
}

// TokenRecord holds the tokens of one session.
//
// Fields are only written by [Manager] while the owning session is locked.
type TokenRecord struct {
	AccessToken  string
	RefreshToken string
	IssuedAt     time.Time
	Lifetime     time.Duration

	exchanged atomic.Bool
	stale     bool
}

// Exchanged reports whether an authorization code was traded for this record.
func (r *TokenRecord) Exchanged() bool {
	return r.exchanged.Load()
}

// HasToken reports whether an access token is present.
func (r *TokenRecord) HasToken() bool {
	return r.AccessToken != ""
}

// State derives the lifecycle state.
func (r *TokenRecord) State() State {
	switch {
	case !r.HasToken():
		return Unauthenticated
	case r.stale:
		return Stale
	default:
		return Authenticated
	}
}

// ExpiresAt returns when the current access token stops being valid.
func (r *TokenRecord) ExpiresAt() time.Time {
	return r.IssuedAt.Add(r.Lifetime)
}

// Remaining returns the validity left at now, negative once expired.
func (r *TokenRecord) Remaining(now time.Time) time.Duration {
	return r.ExpiresAt().Sub(now)
}

// Due reports whether the token is within margin of expiry, or past it.
func (r *TokenRecord) Due(now time.Time, margin time.Duration) bool {
	return now.Sub(r.IssuedAt) >= r.Lifetime-margin
}

// apply stores a successful exchange or refresh. A zero ExpiresIn keeps the current lifetime.
func (r *TokenRecord) apply(pair *services.TokenPair, now time.Time) {
	r.AccessToken = pair.AccessToken
	if pair.RefreshToken != "" {
		r.RefreshToken = pair.RefreshToken
	}
	if pair.ExpiresIn > 0 {
		r.Lifetime = pair.ExpiresIn
	}
	r.IssuedAt = now
	r.stale = false
}
