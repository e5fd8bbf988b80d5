package session

import (
	"context"
	"fmt"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/releasedash/internal/services"
	"github.com/desertthunder/releasedash/internal/shared"
)

// ManagerOpts contains configuration options for creating a [Manager].
type ManagerOpts struct {
	Exchanger       services.TokenExchanger
	Logger          *log.Logger
	RefreshMargin   time.Duration // Defaults to [shared.DefaultRefreshMargin]
	DefaultLifetime time.Duration // Used when the provider omits expires_in
}

// Manager applies token exchanges and refreshes to a [TokenRecord].
type Manager struct {
	exchanger       services.TokenExchanger
	logger          *log.Logger
	margin          time.Duration
	defaultLifetime time.Duration
	now             func() time.Time
}

// NewManager creates a [Manager].
func NewManager(opts ManagerOpts) *Manager {
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}
	if opts.RefreshMargin <= 0 {
		opts.RefreshMargin = shared.DefaultRefreshMargin
	}
	if opts.DefaultLifetime <= 0 {
		opts.DefaultLifetime = shared.DefaultLifetime
	}

	return &Manager{
		exchanger:       opts.Exchanger,
		logger:          opts.Logger,
		margin:          opts.RefreshMargin,
		defaultLifetime: opts.DefaultLifetime,
		now:             time.Now,
	}
}

// WithClock replaces the time source.
func (m *Manager) WithClock(now func() time.Time) *Manager {
	m.now = now
	return m
}

// Margin returns the refresh margin.
func (m *Manager) Margin() time.Duration {
	return m.margin
}

// Now returns the current time of the manager's clock.
func (m *Manager) Now() time.Time {
	return m.now()
}

// Exchange trades code for tokens and populates rec.
//
// A record that was already exchanged, or that already holds a token, is never exchanged again
// and no request is made. On failure rec is left untouched.
func (m *Manager) Exchange(ctx context.Context, rec *TokenRecord, code string) error {
	if code == "" {
		return fmt.Errorf("%w: authorization code", shared.ErrMissingArgument)
	}
	if rec.Exchanged() || rec.HasToken() {
		return shared.ErrCodeReplay
	}

	pair, err := m.exchanger.ExchangeCode(ctx, code)
	if err != nil {
		m.logger.Error("code exchange failed", "error", err)
		return err
	}

	if !rec.exchanged.CompareAndSwap(false, true) {
		return shared.ErrCodeReplay
	}

	rec.Lifetime = m.defaultLifetime
	rec.apply(pair, m.now())

	m.logger.Info("authorization complete", "expires_at", rec.ExpiresAt().Format(time.RFC3339))
	return nil
}

// Refresh mints a new access token for rec.
//
// On failure the previous access token is kept and rec becomes [Stale].
func (m *Manager) Refresh(ctx context.Context, rec *TokenRecord) error {
	if rec.RefreshToken == "" {
		if rec.HasToken() {
			rec.stale = true
		}
		return fmt.Errorf("%w: %w", shared.ErrRefreshFailed, shared.ErrNoRefreshToken)
	}

	pair, err := m.exchanger.RefreshToken(ctx, rec.RefreshToken)
	if err != nil {
		if rec.HasToken() {
			rec.stale = true
		}
		m.logger.Warn("token refresh failed, keeping previous token", "error", err)
		return err
	}

	rec.apply(pair, m.now())

	m.logger.Info("token refreshed", "expires_at", rec.ExpiresAt().Format(time.RFC3339))
	return nil
}

// RefreshIfNeeded refreshes rec when its token is due and reports whether a refresh was attempted.
//
// It makes no request when rec has no token or the token is not yet within the margin of expiry.
func (m *Manager) RefreshIfNeeded(ctx context.Context, rec *TokenRecord) (bool, error) {
	if !rec.HasToken() || !rec.Due(m.now(), m.margin) {
		return false, nil
	}

	m.logger.Debug("token due for refresh", "remaining", rec.Remaining(m.now()).Round(time.Second))
	return true, m.Refresh(ctx, rec)
}

// Ensure runs [Manager.RefreshIfNeeded] on the session's record and drops cached results for a replaced token.
//
// The caller holds the session lock.
func (m *Manager) Ensure(ctx context.Context, sess *Session) error {
	previous := sess.Record.AccessToken

	refreshed, err := m.RefreshIfNeeded(ctx, sess.Record)
	if refreshed && err == nil {
		sess.Cache.Invalidate(previous)
	}
	return err
}

// RefreshSession is [Manager.Refresh] for the session's record, dropping cached results for the old token.
//
// The caller holds the session lock.
func (m *Manager) RefreshSession(ctx context.Context, sess *Session) error {
	previous := sess.Record.AccessToken

	if err := m.Refresh(ctx, sess.Record); err != nil {
		return err
	}
	sess.Cache.Invalidate(previous)
	return nil
}
