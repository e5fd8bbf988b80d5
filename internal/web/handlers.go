package web

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/desertthunder/releasedash/internal/services"
	"github.com/desertthunder/releasedash/internal/session"
	"github.com/desertthunder/releasedash/internal/shared"
)

// Index renders the dashboard, completing an authorization first when the provider redirected back.
func (d *Dashboard) Index(w http.ResponseWriter, r *http.Request, sess *session.Session) {
	q := r.URL.Query()
	if q.Has("code") || q.Has("error") {
		d.callback(w, r, sess)
		return
	}

	data := d.pageData(sess, "Dashboard")
	if err := d.manager.Ensure(r.Context(), sess); err != nil {
		data.Error = message(err)
	}
	d.fillStatus(&data, sess)

	d.render(w, http.StatusOK, "dashboard.html", "layout", data)
}

// callback consumes code and state, then redirects to the bare URL so the code is never replayed.
func (d *Dashboard) callback(w http.ResponseWriter, r *http.Request, sess *session.Session) {
	q := r.URL.Query()
	code := q.Get("code")

	if code == "" {
		sess.SetFlash(fmt.Sprintf("Authorization was not granted: %s", q.Get("error")))
		redirectHome(w, r)
		return
	}

	rec := sess.Record
	if rec.State() == session.Authenticated {
		d.logger.Debug("ignoring authorization code for authenticated session", "session", sess.ID)
		redirectHome(w, r)
		return
	}

	if sess.State == "" || q.Get("state") != sess.State {
		d.logger.Warn("authorization state mismatch", "session", sess.ID)
		sess.SetFlash(message(shared.ErrInvalidState))
		redirectHome(w, r)
		return
	}

	// A stale session authorizes again into a fresh record.
	if rec.State() == session.Stale {
		rec = &session.TokenRecord{}
	}

	if err := d.manager.Exchange(r.Context(), rec, code); err != nil {
		if errors.Is(err, shared.ErrCodeReplay) {
			redirectHome(w, r)
			return
		}

		data := d.pageData(sess, "Dashboard")
		data.Error = message(err)
		d.fillStatus(&data, sess)
		d.render(w, http.StatusBadGateway, "dashboard.html", "layout", data)
		return
	}

	if rec != sess.Record {
		sess.Cache.Invalidate(sess.Record.AccessToken)
		sess.Record = rec
	}
	sess.State = ""
	sess.SetFlash("Authorized.")

	redirectHome(w, r)
}

// Refresh performs a manual token refresh.
func (d *Dashboard) Refresh(w http.ResponseWriter, r *http.Request, sess *session.Session) {
	rec := sess.Record
	if !rec.HasToken() {
		sess.SetFlash(message(shared.ErrNotAuthenticated))
		redirectHome(w, r)
		return
	}

	if err := d.manager.RefreshSession(r.Context(), sess); err != nil {
		sess.SetFlash(message(err))
	} else {
		sess.SetFlash("Token refreshed.")
	}

	redirectHome(w, r)
}

// Releases lists new releases.
func (d *Dashboard) Releases(w http.ResponseWriter, r *http.Request, sess *session.Session) {
	if !sess.Record.HasToken() {
		sess.SetFlash(message(shared.ErrNotAuthenticated))
		redirectHome(w, r)
		return
	}

	data := d.pageData(sess, "New releases")
	status := http.StatusOK

	if err := d.manager.Ensure(r.Context(), sess); err != nil {
		data.Error = message(err)
	}

	albums, err := d.catalogFor(sess).NewReleases(r.Context(), sess.Record.AccessToken)
	if err != nil {
		d.logger.Error("failed to list new releases", "session", sess.ID, "error", err)
		data.Error = joinMessages(data.Error, message(err))
		status = http.StatusBadGateway
	}
	data.Albums = albums
	d.fillStatus(&data, sess)

	d.render(w, status, "releases.html", "layout", data)
}

// Tracks lists an album's tracks, as an HTMX fragment when requested by htmx.
func (d *Dashboard) Tracks(w http.ResponseWriter, r *http.Request, sess *session.Session) {
	partial := r.Header.Get("HX-Request") == "true"

	data := d.pageData(sess, "Tracks")
	data.Partial = partial
	data.AlbumID = r.PathValue("id")

	if !sess.Record.HasToken() {
		if !partial {
			sess.SetFlash(message(shared.ErrNotAuthenticated))
			redirectHome(w, r)
			return
		}
		data.Error = message(shared.ErrNotAuthenticated)
		d.render(w, http.StatusOK, "tracks.html", "track-list", data)
		return
	}

	status := http.StatusOK
	if err := d.manager.Ensure(r.Context(), sess); err != nil {
		data.Error = message(err)
	}

	tracks, err := d.catalogFor(sess).AlbumTracks(r.Context(), sess.Record.AccessToken, data.AlbumID)
	if err != nil {
		d.logger.Error("failed to list album tracks", "session", sess.ID, "album", data.AlbumID, "error", err)
		data.Error = joinMessages(data.Error, message(err))
		status = http.StatusBadGateway
	}
	data.Tracks = tracks
	d.fillStatus(&data, sess)

	if partial {
		// htmx only swaps 2xx responses; the error is part of the fragment.
		d.render(w, http.StatusOK, "tracks.html", "track-list", data)
		return
	}
	d.render(w, status, "tracks.html", "layout", data)
}

// Logout discards the session and its tokens.
func (d *Dashboard) Logout(w http.ResponseWriter, r *http.Request, sess *session.Session) {
	sess.Cache.Clear()
	d.store.Delete(sess.ID)
	http.SetCookie(w, d.cookies.Clear())

	d.logger.Info("session ended", "session", sess.ID)
	redirectHome(w, r)
}

func (d *Dashboard) pageData(sess *session.Session, title string) pageData {
	return pageData{Title: title, Flash: sess.Flash()}
}

// fillStatus copies token status into data, minting OAuth state when an authorization link is shown.
func (d *Dashboard) fillStatus(data *pageData, sess *session.Session) {
	rec := sess.Record
	data.State = rec.State()
	data.Authenticated = rec.HasToken()
	data.Stale = data.State == session.Stale

	if data.Authenticated {
		data.ExpiresAt = rec.ExpiresAt()
		data.Remaining = rec.Remaining(d.manager.Now())
	}

	if !data.Authenticated || data.Stale {
		if sess.State == "" {
			state, err := shared.GenerateState()
			if err != nil {
				d.logger.Error("failed to generate state", "error", err)
				return
			}
			sess.State = state
		}
		data.AuthURL = d.oauth.AuthorizationURL(sess.State)
	}
}

// message turns an error into text for the page.
func message(err error) string {
	var respErr *services.ResponseError
	if errors.As(err, &respErr) {
		switch {
		case respErr.Timeout:
			return fmt.Sprintf("%v: the provider did not answer in time.", respErr.Kind)
		case respErr.StatusCode != 0:
			return fmt.Sprintf("%v (HTTP %d): %s", respErr.Kind, respErr.StatusCode, respErr.Body)
		}
	}
	return err.Error()
}

func joinMessages(a, b string) string {
	if a == "" {
		return b
	}
	return a + " " + b
}

func redirectHome(w http.ResponseWriter, r *http.Request) {
	http.Redirect(w, r, "/", http.StatusSeeOther)
}
