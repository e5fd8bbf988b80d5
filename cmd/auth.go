package main

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"github.com/desertthunder/releasedash/internal/formatter"
	"github.com/desertthunder/releasedash/internal/server"
	"github.com/desertthunder/releasedash/internal/services"
	"github.com/desertthunder/releasedash/internal/session"
	"github.com/desertthunder/releasedash/internal/shared"
	"github.com/urfave/cli/v3"
)

// loginTimeout bounds how long the local callback server waits for the provider redirect.
const loginTimeout = 2 * time.Minute

type tokenStatus struct {
	State           string    `json:"state"`
	ExpiresAt       time.Time `json:"expires_at"`
	Remaining       string    `json:"remaining"`
	HasRefreshToken bool      `json:"has_refresh_token"`
}

// AuthURL prints the provider authorization URL.
func (r *Runner) AuthURL(ctx context.Context, cmd *cli.Command) error {
	oauth, err := r.oauthClient()
	if err != nil {
		return err
	}

	return r.writePlain("%s\n", oauth.AuthorizationURL(""))
}

// AuthLogin performs the authorization code flow for the runner's session and prints the token status.
//
// Starts a local HTTP server on the redirect URI, opens the browser for user authorization, and exchanges the
// code once the provider redirects back.
func (r *Runner) AuthLogin(ctx context.Context, cmd *cli.Command) error {
	oauth, err := r.oauthClient()
	if err != nil {
		return err
	}
	manager := r.manager(oauth)

	if err := r.doOAuth(ctx, oauth, manager, r.session.Record); err != nil {
		return err
	}

	status := r.status(manager)
	if cmd.Bool("json") {
		return r.writeJSON(status, true)
	}

	r.writePlainln("✓ Authorization successful")
	r.writePlain("  State:   %s\n", status.State)
	r.writePlain("  Expires: %s (%s left)\n", status.ExpiresAt.Format(time.RFC3339), status.Remaining)
	return nil
}

// authorize returns the runner's session and a manager, running the browser flow first when the session holds
// no token.
func (r *Runner) authorize(ctx context.Context) (*session.Session, *session.Manager, error) {
	oauth, err := r.oauthClient()
	if err != nil {
		return nil, nil, err
	}
	manager := r.manager(oauth)

	if !r.session.Record.HasToken() {
		r.writePlain("→ Not authorized yet\n")
		if err := r.doOAuth(ctx, oauth, manager, r.session.Record); err != nil {
			return nil, nil, err
		}
	}

	return r.session, manager, nil
}

// ensure runs the expiry check, logging a failed refresh and continuing with the stale token.
func (r *Runner) ensure(ctx context.Context, manager *session.Manager) {
	if err := manager.Ensure(ctx, r.session); err != nil {
		r.logger.Warn("token refresh failed, continuing with stale token", "error", err)
	}
}

func (r *Runner) status(manager *session.Manager) tokenStatus {
	rec := r.session.Record
	return tokenStatus{
		State:           rec.State().String(),
		ExpiresAt:       rec.ExpiresAt(),
		Remaining:       formatter.Duration(rec.Remaining(manager.Now())),
		HasRefreshToken: rec.RefreshToken != "",
	}
}

// doOAuth executes the OAuth2 authorization flow with a local HTTP server bound to the redirect URI's host.
func (r *Runner) doOAuth(ctx context.Context, oauth *services.OAuthClient, manager *session.Manager, rec *session.TokenRecord) error {
	state, err := shared.GenerateState()
	if err != nil {
		return fmt.Errorf("failed to generate state token: %w", err)
	}

	redirect, err := url.Parse(oauth.RedirectURI())
	if err != nil {
		return fmt.Errorf("%w: redirect_uri: %v", shared.ErrInvalidConfig, err)
	}

	handler, err := server.NewCallbackHandler(manager, rec, oauth.RedirectURI(), state)
	if err != nil {
		return err
	}

	router := server.NewBasicRouter()
	router.Use(server.Recover(r.logger), server.Logging(r.logger), server.FrameSecurity)
	router.Handler(handler)

	srv := server.New(server.ServerOpts{Addr: redirect.Host, Handler: router, Logger: r.logger})
	serverErrors, err := srv.Start()
	if err != nil {
		return err
	}
	defer func() {
		if err := srv.Shutdown(context.WithoutCancel(ctx)); err != nil {
			r.logger.Warn("error shutting down callback server", "error", err)
		}
	}()

	authURL := oauth.AuthorizationURL(state)

	r.writePlain("→ Opening browser for authorization...\n")
	if err := r.openURL(authURL); err != nil {
		r.logger.Warnf("failed to open browser automatically %v", err)
		r.writePlainln("⚠ Could not open browser automatically.")
		r.writePlain("Please open this URL in your browser:\n%s\n\n", authURL)
	}

	r.writePlain("→ Waiting for authorization (%s timeout)...\n", loginTimeout)

	timeout := time.NewTimer(loginTimeout)
	defer timeout.Stop()

	select {
	case result := <-handler.Result():
		if result.Err != nil {
			return fmt.Errorf("authorization failed: %w", result.Err)
		}
		return nil
	case err := <-serverErrors:
		return fmt.Errorf("server error: %w", err)
	case <-timeout.C:
		return fmt.Errorf("%w: authorization timed out after %s", shared.ErrTimeout, loginTimeout)
	case <-ctx.Done():
		return ctx.Err()
	}
}
