package services

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/desertthunder/releasedash/internal/shared"
	tu "github.com/desertthunder/releasedash/internal/testing"
	"github.com/google/go-cmp/cmp"
)

func newTestCatalog(fake *tu.FakeProvider) *CatalogClient {
	return NewCatalogClient(CatalogOpts{BaseURL: fake.Provider().APIBaseURL})
}

func TestCatalogClient(t *testing.T) {
	t.Run("NewCatalogClient", func(t *testing.T) {
		t.Run("Defaults", func(t *testing.T) {
			c := NewCatalogClient(CatalogOpts{})

			if c.baseURL != "https://api.spotify.com/v1" {
				t.Errorf("expected default base URL, got %s", c.baseURL)
			}
			if c.httpClient != http.DefaultClient {
				t.Error("expected http.DefaultClient to be used")
			}
			if c.timeout != shared.DefaultTimeout {
				t.Errorf("expected default timeout, got %v", c.timeout)
			}
		})

		t.Run("Trims Trailing Slash", func(t *testing.T) {
			c := NewCatalogClient(CatalogOpts{BaseURL: "http://example.com/v1/"})
			if c.baseURL != "http://example.com/v1" {
				t.Errorf("expected trimmed base URL, got %s", c.baseURL)
			}
		})
	})

	t.Run("NewReleases", func(t *testing.T) {
		t.Run("Success", func(t *testing.T) {
			fake := tu.NewFakeProvider(t)
			fake.SetReleases(tu.Reply{JSON: tu.ReleasesJSON(
				tu.AlbumJSON("al-1", "First", "Artist One"),
				tu.AlbumJSON("al-2", "Second", "Artist Two"),
			)})

			albums, err := newTestCatalog(fake).NewReleases(context.Background(), "T1")
			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if len(albums) != 2 {
				t.Fatalf("expected 2 albums, got %d", len(albums))
			}

			want := Album{
				ID:          "al-1",
				Name:        "First",
				AlbumType:   "album",
				Artists:     []Artist{{ID: "ar-al-1", Name: "Artist One"}},
				ReleaseDate: "2024-04-19",
				TotalTracks: 2,
				Images:      []Image{{URL: "https://example.com/al-1.jpg", Height: 640, Width: 640}},
			}
			if diff := cmp.Diff(want, albums[0]); diff != "" {
				t.Errorf("album mismatch (-want +got):\n%s", diff)
			}

			reqs := fake.Requests("/v1/browse/new-releases")
			if len(reqs) != 1 {
				t.Fatalf("expected one catalog request, got %d", len(reqs))
			}
			if got := reqs[0].Header.Get("Authorization"); got != "Bearer T1" {
				t.Errorf("expected bearer header, got %q", got)
			}
		})

		t.Run("Missing Items", func(t *testing.T) {
			fake := tu.NewFakeProvider(t)
			fake.SetReleases(tu.Reply{JSON: map[string]any{"albums": map[string]any{}}})

			albums, err := newTestCatalog(fake).NewReleases(context.Background(), "T1")
			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if albums == nil || len(albums) != 0 {
				t.Errorf("expected empty non-nil slice, got %#v", albums)
			}
		})

		t.Run("Non 200 Status", func(t *testing.T) {
			for _, status := range []int{http.StatusUnauthorized, http.StatusNoContent, http.StatusInternalServerError} {
				fake := tu.NewFakeProvider(t)
				fake.SetReleases(tu.Reply{Status: status, Text: "nope"})

				_, err := newTestCatalog(fake).NewReleases(context.Background(), "T1")
				if !errors.Is(err, shared.ErrCatalogRequest) {
					t.Fatalf("status %d: expected ErrCatalogRequest, got %v", status, err)
				}

				var respErr *ResponseError
				if !errors.As(err, &respErr) || respErr.StatusCode != status {
					t.Errorf("status %d: expected ResponseError with status, got %v", status, err)
				}
			}
		})

		t.Run("Invalid JSON", func(t *testing.T) {
			fake := tu.NewFakeProvider(t)
			fake.SetReleases(tu.Reply{Text: "{not json"})

			_, err := newTestCatalog(fake).NewReleases(context.Background(), "T1")
			if !errors.Is(err, shared.ErrCatalogRequest) {
				t.Errorf("expected ErrCatalogRequest, got %v", err)
			}
		})

		t.Run("Without Token", func(t *testing.T) {
			fake := tu.NewFakeProvider(t)

			_, err := newTestCatalog(fake).NewReleases(context.Background(), "")
			if !errors.Is(err, shared.ErrNotAuthenticated) {
				t.Errorf("expected ErrNotAuthenticated, got %v", err)
			}
			if n := len(fake.Requests("/v1")); n != 0 {
				t.Errorf("expected no requests, got %d", n)
			}
		})

		t.Run("Timeout", func(t *testing.T) {
			fake := tu.NewFakeProvider(t)
			fake.SetReleases(tu.Reply{Delay: time.Second, JSON: tu.ReleasesJSON()})

			c := NewCatalogClient(CatalogOpts{BaseURL: fake.Provider().APIBaseURL, Timeout: 50 * time.Millisecond})
			_, err := c.NewReleases(context.Background(), "T1")
			if !errors.Is(err, shared.ErrTimeout) {
				t.Errorf("expected ErrTimeout, got %v", err)
			}
		})
	})

	t.Run("AlbumTracks", func(t *testing.T) {
		t.Run("Success", func(t *testing.T) {
			fake := tu.NewFakeProvider(t)
			fake.SetTracks("al-1", tu.Reply{JSON: tu.TracksJSON("Intro", "Outro")})

			tracks, err := newTestCatalog(fake).AlbumTracks(context.Background(), "T1", "al-1")
			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}

			var names []string
			for _, tr := range tracks {
				names = append(names, tr.Name)
			}
			if diff := cmp.Diff([]string{"Intro", "Outro"}, names); diff != "" {
				t.Errorf("track order mismatch (-want +got):\n%s", diff)
			}
			if tracks[1].TrackNumber != 2 || tracks[1].Duration() != 3*time.Minute {
				t.Errorf("unexpected second track %+v", tracks[1])
			}
		})

		t.Run("Missing Items", func(t *testing.T) {
			fake := tu.NewFakeProvider(t)
			fake.SetTracks("al-1", tu.Reply{JSON: map[string]any{"total": 0}})

			tracks, err := newTestCatalog(fake).AlbumTracks(context.Background(), "T1", "al-1")
			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if tracks == nil || len(tracks) != 0 {
				t.Errorf("expected empty non-nil slice, got %#v", tracks)
			}
		})

		t.Run("Unknown Album", func(t *testing.T) {
			fake := tu.NewFakeProvider(t)

			_, err := newTestCatalog(fake).AlbumTracks(context.Background(), "T1", "missing")
			var respErr *ResponseError
			if !errors.As(err, &respErr) || respErr.StatusCode != http.StatusNotFound {
				t.Errorf("expected 404 ResponseError, got %v", err)
			}
		})

		t.Run("Escapes Album ID", func(t *testing.T) {
			fake := tu.NewFakeProvider(t)
			fake.SetTracks("a b", tu.Reply{JSON: tu.TracksJSON("Only")})

			tracks, err := newTestCatalog(fake).AlbumTracks(context.Background(), "T1", "a b")
			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if len(tracks) != 1 {
				t.Errorf("expected 1 track, got %d", len(tracks))
			}
		})

		t.Run("Empty Album ID", func(t *testing.T) {
			fake := tu.NewFakeProvider(t)

			_, err := newTestCatalog(fake).AlbumTracks(context.Background(), "T1", "")
			if !errors.Is(err, shared.ErrMissingArgument) {
				t.Errorf("expected ErrMissingArgument, got %v", err)
			}
		})
	})
	t.Run("Transport", func(t *testing.T) {
		t.Run("Request Error", func(t *testing.T) {
			cause := errors.New("connection refused")
			c := NewCatalogClient(CatalogOpts{
				BaseURL:    "http://catalog.test/v1",
				HTTPClient: &http.Client{Transport: tu.NewMockRoundTripper(nil, cause)},
			})

			_, err := c.NewReleases(context.Background(), "T1")
			if !errors.Is(err, shared.ErrCatalogRequest) || !errors.Is(err, cause) {
				t.Errorf("expected ErrCatalogRequest wrapping the cause, got %v", err)
			}

			var respErr *ResponseError
			if !errors.As(err, &respErr) || respErr.StatusCode != 0 {
				t.Errorf("expected ResponseError without status, got %v", err)
			}
		})

		t.Run("Body Read Failure", func(t *testing.T) {
			resp := &http.Response{StatusCode: http.StatusOK, Body: &tu.FCloser{}, Header: http.Header{}}
			c := NewCatalogClient(CatalogOpts{
				BaseURL:    "http://catalog.test/v1",
				HTTPClient: &http.Client{Transport: tu.NewMockRoundTripper(resp, nil)},
			})

			_, err := c.AlbumTracks(context.Background(), "T1", "al-1")
			if !errors.Is(err, shared.ErrCatalogRequest) {
				t.Errorf("expected ErrCatalogRequest, got %v", err)
			}
		})
	})
}
