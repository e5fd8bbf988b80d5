package session

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/desertthunder/releasedash/internal/services"
	"github.com/desertthunder/releasedash/internal/shared"
	tu "github.com/desertthunder/releasedash/internal/testing"
)

// fakeExchanger returns scripted results and counts calls.
type fakeExchanger struct {
	exchange    *services.TokenPair
	exchangeErr error
	refresh     *services.TokenPair
	refreshErr  error
	exchanges   int
	refreshes   int
	lastRefresh string
}

func (f *fakeExchanger) ExchangeCode(_ context.Context, _ string) (*services.TokenPair, error) {
	f.exchanges++
	if f.exchangeErr != nil {
		return nil, f.exchangeErr
	}
	return f.exchange, nil
}

func (f *fakeExchanger) RefreshToken(_ context.Context, rt string) (*services.TokenPair, error) {
	f.refreshes++
	f.lastRefresh = rt
	if f.refreshErr != nil {
		return nil, f.refreshErr
	}
	return f.refresh, nil
}

// clock is a settable time source.
type clock struct{ t time.Time }

func (c *clock) Now() time.Time          { return c.t }
func (c *clock) Advance(d time.Duration) { c.t = c.t.Add(d) }

func newTestManager(ex services.TokenExchanger) (*Manager, *clock) {
	c := &clock{t: time.Date(2024, 4, 19, 12, 0, 0, 0, time.UTC)}
	m := NewManager(ManagerOpts{Exchanger: ex, Logger: shared.NewLogger(io.Discard)}).WithClock(c.Now)
	return m, c
}

func authenticated(issued time.Time, lifetime time.Duration) *TokenRecord {
	rec := &TokenRecord{AccessToken: "T1", RefreshToken: "R1", IssuedAt: issued, Lifetime: lifetime}
	rec.exchanged.Store(true)
	return rec
}

func TestManager(t *testing.T) {
	ctx := context.Background()

	t.Run("NewManager Defaults", func(t *testing.T) {
		m := NewManager(ManagerOpts{})
		if m.Margin() != 60*time.Second {
			t.Errorf("expected 60s margin, got %v", m.Margin())
		}
		if m.defaultLifetime != 3600*time.Second {
			t.Errorf("expected 3600s default lifetime, got %v", m.defaultLifetime)
		}
	})

	t.Run("Exchange", func(t *testing.T) {
		t.Run("Success", func(t *testing.T) {
			ex := &fakeExchanger{exchange: &services.TokenPair{AccessToken: "T1", RefreshToken: "R1", ExpiresIn: time.Hour}}
			m, c := newTestManager(ex)
			rec := &TokenRecord{}

			if err := m.Exchange(ctx, rec, "abc123"); err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if !rec.Exchanged() || rec.AccessToken != "T1" || rec.RefreshToken != "R1" {
				t.Errorf("unexpected record %+v exchanged=%v", rec, rec.Exchanged())
			}
			if !rec.IssuedAt.Equal(c.Now()) {
				t.Errorf("expected IssuedAt %v, got %v", c.Now(), rec.IssuedAt)
			}
			if rec.State() != Authenticated {
				t.Errorf("expected authenticated, got %v", rec.State())
			}
		})

		t.Run("Replay Makes No Request", func(t *testing.T) {
			ex := &fakeExchanger{exchange: &services.TokenPair{AccessToken: "T1", RefreshToken: "R1"}}
			m, _ := newTestManager(ex)
			rec := &TokenRecord{}

			if err := m.Exchange(ctx, rec, "abc123"); err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if err := m.Exchange(ctx, rec, "abc123"); !errors.Is(err, shared.ErrCodeReplay) {
				t.Errorf("expected ErrCodeReplay, got %v", err)
			}
			if ex.exchanges != 1 {
				t.Errorf("expected exactly one exchange, got %d", ex.exchanges)
			}
		})

		t.Run("Missing Expires In Uses Default Lifetime", func(t *testing.T) {
			ex := &fakeExchanger{exchange: &services.TokenPair{AccessToken: "T1"}}
			m, _ := newTestManager(ex)
			rec := &TokenRecord{}

			if err := m.Exchange(ctx, rec, "abc123"); err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if rec.Lifetime != shared.DefaultLifetime {
				t.Errorf("expected default lifetime, got %v", rec.Lifetime)
			}
		})

		t.Run("Failure Leaves Record Untouched", func(t *testing.T) {
			ex := &fakeExchanger{exchangeErr: services.StatusError("exchange", shared.ErrAuthExchange, 400, []byte("bad code"))}
			m, _ := newTestManager(ex)
			rec := &TokenRecord{}

			err := m.Exchange(ctx, rec, "bad")
			if !errors.Is(err, shared.ErrAuthExchange) {
				t.Fatalf("expected ErrAuthExchange, got %v", err)
			}
			if rec.Exchanged() || rec.HasToken() || !rec.IssuedAt.IsZero() {
				t.Errorf("expected untouched record, got %+v exchanged=%v", rec, rec.Exchanged())
			}
			if rec.State() != Unauthenticated {
				t.Errorf("expected unauthenticated, got %v", rec.State())
			}
		})

		t.Run("Empty Code", func(t *testing.T) {
			ex := &fakeExchanger{}
			m, _ := newTestManager(ex)

			if err := m.Exchange(ctx, &TokenRecord{}, ""); !errors.Is(err, shared.ErrMissingArgument) {
				t.Errorf("expected ErrMissingArgument, got %v", err)
			}
			if ex.exchanges != 0 {
				t.Errorf("expected no exchange, got %d", ex.exchanges)
			}
		})
	})

	t.Run("Refresh", func(t *testing.T) {
		t.Run("Keeps Lifetime And Refresh Token When Omitted", func(t *testing.T) {
			ex := &fakeExchanger{refresh: &services.TokenPair{AccessToken: "T2"}}
			m, c := newTestManager(ex)
			rec := authenticated(c.Now(), 30*time.Minute)
			c.Advance(time.Minute)

			if err := m.Refresh(ctx, rec); err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if rec.AccessToken != "T2" || rec.RefreshToken != "R1" || rec.Lifetime != 30*time.Minute {
				t.Errorf("unexpected record %+v", rec)
			}
			if !rec.IssuedAt.Equal(c.Now()) {
				t.Errorf("expected IssuedAt reset, got %v", rec.IssuedAt)
			}
			if ex.lastRefresh != "R1" {
				t.Errorf("expected refresh with R1, got %s", ex.lastRefresh)
			}
		})

		t.Run("Failure Marks Stale", func(t *testing.T) {
			ex := &fakeExchanger{refreshErr: services.StatusError("refresh", shared.ErrRefreshFailed, 400, nil)}
			m, c := newTestManager(ex)
			issued := c.Now()
			rec := authenticated(issued, time.Hour)

			err := m.Refresh(ctx, rec)
			if !errors.Is(err, shared.ErrRefreshFailed) {
				t.Fatalf("expected ErrRefreshFailed, got %v", err)
			}
			if rec.AccessToken != "T1" || !rec.IssuedAt.Equal(issued) || !rec.Exchanged() {
				t.Errorf("expected previous token retained, got %+v", rec)
			}
			if rec.State() != Stale {
				t.Errorf("expected stale, got %v", rec.State())
			}

			ex.refreshErr = nil
			ex.refresh = &services.TokenPair{AccessToken: "T3", ExpiresIn: time.Hour}
			if err := m.Refresh(ctx, rec); err != nil {
				t.Fatalf("expected recovery, got %v", err)
			}
			if rec.State() != Authenticated || rec.AccessToken != "T3" {
				t.Errorf("expected authenticated with T3, got %v %s", rec.State(), rec.AccessToken)
			}
		})

		t.Run("No Refresh Token", func(t *testing.T) {
			ex := &fakeExchanger{}
			m, _ := newTestManager(ex)

			rec := &TokenRecord{AccessToken: "T1"}
			err := m.Refresh(ctx, rec)
			if !errors.Is(err, shared.ErrNoRefreshToken) || !errors.Is(err, shared.ErrRefreshFailed) {
				t.Errorf("expected ErrNoRefreshToken, got %v", err)
			}
			if ex.refreshes != 0 {
				t.Errorf("expected no refresh call, got %d", ex.refreshes)
			}
			if rec.State() != Stale || rec.AccessToken != "T1" {
				t.Errorf("expected stale record keeping T1, got %v %q", rec.State(), rec.AccessToken)
			}
		})

		t.Run("No Token No Refresh Token", func(t *testing.T) {
			m, _ := newTestManager(&fakeExchanger{})
			rec := &TokenRecord{}

			if err := m.Refresh(ctx, rec); !errors.Is(err, shared.ErrNoRefreshToken) {
				t.Errorf("expected ErrNoRefreshToken, got %v", err)
			}
			if rec.State() != Unauthenticated {
				t.Errorf("expected Unauthenticated, got %v", rec.State())
			}
		})
	})

	t.Run("RefreshIfNeeded", func(t *testing.T) {
		tc := []struct {
			name    string
			elapsed time.Duration
			want    bool
		}{
			{name: "fresh", elapsed: 0, want: false},
			{name: "just before margin", elapsed: 3539 * time.Second, want: false},
			{name: "at margin", elapsed: 3540 * time.Second, want: true},
			{name: "expired", elapsed: 3601 * time.Second, want: true},
		}

		for _, tt := range tc {
			t.Run(tt.name, func(t *testing.T) {
				ex := &fakeExchanger{refresh: &services.TokenPair{AccessToken: "T2", ExpiresIn: 1800 * time.Second}}
				m, c := newTestManager(ex)
				rec := authenticated(c.Now(), 3600*time.Second)
				c.Advance(tt.elapsed)

				refreshed, err := m.RefreshIfNeeded(ctx, rec)
				if err != nil {
					t.Fatalf("expected no error, got %v", err)
				}
				if refreshed != tt.want {
					t.Errorf("refreshed = %v, want %v", refreshed, tt.want)
				}

				wantCalls, wantToken, wantLifetime := 0, "T1", 3600*time.Second
				if tt.want {
					wantCalls, wantToken, wantLifetime = 1, "T2", 1800*time.Second
				}
				if ex.refreshes != wantCalls {
					t.Errorf("expected %d refresh calls, got %d", wantCalls, ex.refreshes)
				}
				if rec.AccessToken != wantToken || rec.Lifetime != wantLifetime {
					t.Errorf("unexpected record %+v", rec)
				}
			})
		}

		t.Run("Idempotent When Not Due", func(t *testing.T) {
			ex := &fakeExchanger{}
			m, c := newTestManager(ex)
			rec := authenticated(c.Now(), time.Hour)
			issued := rec.IssuedAt

			for range 5 {
				if _, err := m.RefreshIfNeeded(ctx, rec); err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
			}
			if ex.refreshes != 0 || rec.AccessToken != "T1" || !rec.IssuedAt.Equal(issued) {
				t.Errorf("expected no change, got %+v after %d refreshes", rec, ex.refreshes)
			}
		})

		t.Run("Without Token", func(t *testing.T) {
			ex := &fakeExchanger{}
			m, _ := newTestManager(ex)

			refreshed, err := m.RefreshIfNeeded(ctx, &TokenRecord{})
			if refreshed || err != nil || ex.refreshes != 0 {
				t.Errorf("expected no-op, got %v %v %d", refreshed, err, ex.refreshes)
			}
		})
	})
}

// TestManagerWithProvider drives the manager against the fake provider over HTTP.
func TestManagerWithProvider(t *testing.T) {
	ctx := context.Background()

	setup := func(t *testing.T) (*tu.FakeProvider, *Manager, *clock, services.Catalog) {
		fake := tu.NewFakeProvider(t)
		client, err := services.NewOAuthClient(services.OAuthOpts{Provider: fake.Provider()})
		if err != nil {
			t.Fatalf("failed to create client: %v", err)
		}
		m, c := newTestManager(client)
		catalog := services.NewCatalogClient(services.CatalogOpts{BaseURL: fake.Provider().APIBaseURL})
		return fake, m, c, catalog
	}

	t.Run("Code Exchange", func(t *testing.T) {
		fake, m, _, _ := setup(t)
		fake.QueueToken(tu.Reply{JSON: tu.TokenJSON("T1", "R1", 3600)})
		rec := &TokenRecord{}

		if err := m.Exchange(ctx, rec, "abc123"); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if rec.AccessToken != "T1" || !rec.Exchanged() {
			t.Errorf("expected T1 and exchanged, got %+v", rec)
		}
		if got := fake.TokenRequests()[0].Form.Get("code"); got != "abc123" {
			t.Errorf("expected code abc123, got %s", got)
		}
	})

	t.Run("Expired Token Is Refreshed Before Catalog Call", func(t *testing.T) {
		fake, m, c, catalog := setup(t)
		fake.QueueToken(tu.Reply{JSON: tu.TokenJSON("T2", "", 3600)})
		fake.SetReleases(tu.Reply{JSON: tu.ReleasesJSON(tu.AlbumJSON("al-1", "First", "Artist"))})

		rec := authenticated(c.Now().Add(-3601*time.Second), 3600*time.Second)

		if _, err := m.RefreshIfNeeded(ctx, rec); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if _, err := catalog.NewReleases(ctx, rec.AccessToken); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}

		reqs := fake.Requests("/v1/browse/new-releases")
		if len(reqs) != 1 || reqs[0].Header.Get("Authorization") != "Bearer T2" {
			t.Errorf("expected catalog call with T2, got %+v", reqs)
		}
		if rec.RefreshToken != "R1" {
			t.Errorf("expected refresh token preserved, got %s", rec.RefreshToken)
		}
	})

	t.Run("Refresh Rejected Keeps Stale Token", func(t *testing.T) {
		fake, m, c, _ := setup(t)
		fake.QueueToken(tu.Reply{Status: 400, JSON: map[string]string{"error": "invalid_grant"}})

		rec := authenticated(c.Now().Add(-2*time.Hour), time.Hour)

		refreshed, err := m.RefreshIfNeeded(ctx, rec)
		if !refreshed {
			t.Error("expected refresh to be attempted")
		}
		if !errors.Is(err, shared.ErrRefreshFailed) {
			t.Errorf("expected ErrRefreshFailed, got %v", err)
		}
		if rec.AccessToken != "T1" || rec.State() != Stale {
			t.Errorf("expected stale T1, got %s %v", rec.AccessToken, rec.State())
		}
		if n := len(fake.TokenRequests()); n != 1 {
			t.Errorf("expected exactly one refresh request, got %d", n)
		}
	})
}

type emptyCatalog struct{}

func (emptyCatalog) NewReleases(context.Context, string) ([]services.Album, error) {
	return []services.Album{}, nil
}

func (emptyCatalog) AlbumTracks(context.Context, string, string) ([]services.Track, error) {
	return []services.Track{}, nil
}

func TestManagerSession(t *testing.T) {
	ctx := context.Background()

	cached := func(t *testing.T, sess *Session) {
		t.Helper()
		catalog := services.NewCachedCatalog(emptyCatalog{}, sess.Cache)
		if _, err := catalog.NewReleases(ctx, sess.Record.AccessToken); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}

	t.Run("Ensure Invalidates Replaced Token", func(t *testing.T) {
		ex := &fakeExchanger{refresh: &services.TokenPair{AccessToken: "T2", ExpiresIn: time.Hour}}
		m, c := newTestManager(ex)
		sess := NewSession()
		sess.Record = authenticated(c.Now().Add(-2*time.Hour), time.Hour)
		cached(t, sess)

		if err := m.Ensure(ctx, sess); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if sess.Record.AccessToken != "T2" {
			t.Errorf("expected T2, got %s", sess.Record.AccessToken)
		}
		if n := sess.Cache.Len(); n != 0 {
			t.Errorf("expected T1 entries dropped, got %d", n)
		}
	})

	t.Run("Ensure Keeps Cache When Not Due", func(t *testing.T) {
		ex := &fakeExchanger{}
		m, c := newTestManager(ex)
		sess := NewSession()
		sess.Record = authenticated(c.Now(), time.Hour)
		cached(t, sess)

		if err := m.Ensure(ctx, sess); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if ex.refreshes != 0 || sess.Cache.Len() != 1 {
			t.Errorf("expected no refresh and a kept cache, got %d refreshes %d entries", ex.refreshes, sess.Cache.Len())
		}
	})

	t.Run("Failed Refresh Keeps Cache", func(t *testing.T) {
		ex := &fakeExchanger{refreshErr: shared.ErrRefreshFailed}
		m, c := newTestManager(ex)
		sess := NewSession()
		sess.Record = authenticated(c.Now(), time.Hour)
		cached(t, sess)

		if err := m.RefreshSession(ctx, sess); !errors.Is(err, shared.ErrRefreshFailed) {
			t.Fatalf("expected ErrRefreshFailed, got %v", err)
		}
		if sess.Cache.Len() != 1 || sess.Record.State() != Stale {
			t.Errorf("expected stale record with cache kept")
		}
	})

	t.Run("RefreshSession", func(t *testing.T) {
		ex := &fakeExchanger{refresh: &services.TokenPair{AccessToken: "T2"}}
		m, c := newTestManager(ex)
		sess := NewSession()
		sess.Record = authenticated(c.Now(), time.Hour)
		cached(t, sess)

		if err := m.RefreshSession(ctx, sess); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if sess.Record.AccessToken != "T2" || sess.Cache.Len() != 0 {
			t.Errorf("expected T2 with cache cleared, got %s %d", sess.Record.AccessToken, sess.Cache.Len())
		}
	})
}
