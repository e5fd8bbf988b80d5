// Package web implements the HTMX dashboard: authorization, token status, new releases and track listings.
//
// # Routes
//
//	GET  /                   → Dashboard; consumes code and state after the provider redirect
//	POST /refresh            → Manual token refresh, redirects to / with a flash message
//	GET  /releases           → New releases with a "Show songs" button per album
//	GET  /albums/{id}/tracks → Track list; an HTMX partial when HX-Request is set
//	POST /logout             → Drops the session
//	GET  /healthz            → Liveness JSON
//
// Every route except /healthz runs inside [server.Sessions], so handlers always have a locked
// [session.Session]. Authenticated catalog routes call [session.Manager.RefreshIfNeeded] first.
//
// # Code Replay
//
// After a successful exchange the dashboard redirects to the bare URL, so reloading the page never resends the
// authorization code. A code that arrives for an already exchanged record is ignored.
//
// # Memoization
//
// Catalog calls go through [services.CachedCatalog] backed by the session's cache. When a refresh replaces the
// access token, entries for the old token are invalidated.
package web

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/releasedash/internal/server"
	"github.com/desertthunder/releasedash/internal/services"
	"github.com/desertthunder/releasedash/internal/session"
	"github.com/desertthunder/releasedash/internal/shared"
)

// Authorizer builds provider authorization URLs.
type Authorizer interface {
	AuthorizationURL(state string) string
}

// DashboardOpts contains configuration options for creating a [Dashboard].
type DashboardOpts struct {
	Store   *session.Store
	Manager *session.Manager
	OAuth   Authorizer
	Catalog services.Catalog
	Cookies *server.CookieCodec
	Logger  *log.Logger
}

// Dashboard serves the web front end.
type Dashboard struct {
	store    *session.Store
	manager  *session.Manager
	oauth    Authorizer
	catalog  services.Catalog
	cookies  *server.CookieCodec
	logger   *log.Logger
	pages    *pages
	sessions server.Middleware
}

// NewDashboard creates a [Dashboard] and parses its templates.
func NewDashboard(opts DashboardOpts) (*Dashboard, error) {
	if opts.Store == nil || opts.Manager == nil || opts.OAuth == nil || opts.Catalog == nil || opts.Cookies == nil {
		return nil, errors.New("dashboard requires a store, manager, authorizer, catalog and cookie codec")
	}
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}

	p, err := parsePages()
	if err != nil {
		return nil, err
	}

	return &Dashboard{
		store:    opts.Store,
		manager:  opts.Manager,
		oauth:    opts.OAuth,
		catalog:  opts.Catalog,
		cookies:  opts.Cookies,
		logger:   opts.Logger,
		pages:    p,
		sessions: server.Sessions(opts.Store, opts.Cookies, opts.Logger),
	}, nil
}

// Register adds the dashboard routes to r.
func (d *Dashboard) Register(r server.Router) {
	r.Handle(http.MethodGet, "/", d.withSession(d.Index))
	r.Handle(http.MethodPost, "/refresh", d.withSession(d.Refresh))
	r.Handle(http.MethodGet, "/releases", d.withSession(d.Releases))
	r.Handle(http.MethodGet, "/albums/{id}/tracks", d.withSession(d.Tracks))
	r.Handle(http.MethodPost, "/logout", d.withSession(d.Logout))
	r.Handle(http.MethodGet, "/healthz", http.HandlerFunc(d.Health))
}

// Handler returns a router with the standard middleware and all dashboard routes.
func (d *Dashboard) Handler() http.Handler {
	r := server.NewBasicRouter()
	r.Use(server.Recover(d.logger), server.Logging(d.logger), server.FrameSecurity, server.NoStore)
	d.Register(r)
	return r
}

// Health reports liveness and the live session count.
func (d *Dashboard) Health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"status": "ok", "sessions": d.store.Len()})
}

func (d *Dashboard) withSession(fn func(http.ResponseWriter, *http.Request, *session.Session)) http.Handler {
	return server.Chain(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sess, ok := session.FromContext(r.Context())
		if !ok {
			http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
			return
		}
		fn(w, r, sess)
	}), d.sessions)
}

// catalogFor returns the catalog memoized in the session's cache.
func (d *Dashboard) catalogFor(sess *session.Session) services.Catalog {
	return services.NewCachedCatalog(d.catalog, sess.Cache)
}

func (d *Dashboard) render(w http.ResponseWriter, status int, page, name string, data any) {
	var buf bytes.Buffer
	if err := d.pages.execute(&buf, page, name, data); err != nil {
		d.logger.Error("failed to render template", "page", page, "error", err)
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
