// package testing contains shared testing utilities
package testing

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/desertthunder/releasedash/internal/shared"
)

// Reply is a scripted provider response.
type Reply struct {
	Status int           // Defaults to 200
	JSON   any           // Encoded as the body when set
	Text   string        // Raw body when JSON is nil
	Delay  time.Duration // Sleep before responding, cut short if the client gives up
}

// RecordedRequest captures what the fake provider received.
type RecordedRequest struct {
	Method string
	Path   string
	Header http.Header
	Form   url.Values
}

// FakeProvider is an [httptest.Server] implementing the accounts and catalog endpoints.
//
// Token replies are queued and consumed in order; catalog replies are fixed per endpoint.
type FakeProvider struct {
	*httptest.Server

	mu       sync.Mutex
	token    []Reply
	releases Reply
	tracks   map[string]Reply
	requests []RecordedRequest
}

// NewFakeProvider starts a [FakeProvider] that is closed when the test ends.
func NewFakeProvider(t *testing.T) *FakeProvider {
	t.Helper()

	f := &FakeProvider{
		releases: Reply{JSON: map[string]any{"albums": map[string]any{"items": []any{}}}},
		tracks:   map[string]Reply{},
	}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/token", f.handleToken)
	mux.HandleFunc("GET /v1/browse/new-releases", f.handleReleases)
	mux.HandleFunc("GET /v1/albums/{id}/tracks", f.handleTracks)

	f.Server = httptest.NewServer(mux)
	t.Cleanup(f.Close)

	return f
}

// Provider returns provider configuration pointing at the fake.
func (f *FakeProvider) Provider() shared.ProviderConfig {
	return shared.ProviderConfig{
		ClientID:     "test_client_id",
		ClientSecret: "test_client_secret",
		RedirectURI:  "http://127.0.0.1:3000/",
		Scope:        "user-top-read",
		AuthURL:      f.URL + "/authorize",
		TokenURL:     f.URL + "/api/token",
		APIBaseURL:   f.URL + "/v1",
	}
}

// QueueToken appends replies for the token endpoint.
func (f *FakeProvider) QueueToken(replies ...Reply) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.token = append(f.token, replies...)
}

// SetReleases sets the new releases reply.
func (f *FakeProvider) SetReleases(r Reply) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.releases = r
}

// SetTracks sets the tracks reply for albumID.
func (f *FakeProvider) SetTracks(albumID string, r Reply) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.tracks[albumID] = r
}

// Requests returns recorded requests whose path has the given prefix.
func (f *FakeProvider) Requests(prefix string) []RecordedRequest {
	f.mu.Lock()
	defer f.mu.Unlock()

	var out []RecordedRequest
	for _, r := range f.requests {
		if strings.HasPrefix(r.Path, prefix) {
			out = append(out, r)
		}
	}
	return out
}

// TokenRequests returns the recorded token endpoint requests.
func (f *FakeProvider) TokenRequests() []RecordedRequest {
	return f.Requests("/api/token")
}

func (f *FakeProvider) record(r *http.Request) {
	_ = r.ParseForm()

	f.mu.Lock()
	defer f.mu.Unlock()
	f.requests = append(f.requests, RecordedRequest{
		Method: r.Method,
		Path:   r.URL.Path,
		Header: r.Header.Clone(),
		Form:   r.PostForm,
	})
}

func (f *FakeProvider) handleToken(w http.ResponseWriter, r *http.Request) {
	f.record(r)

	f.mu.Lock()
	if len(f.token) == 0 {
		f.mu.Unlock()
		http.Error(w, "no token reply queued", http.StatusInternalServerError)
		return
	}
	reply := f.token[0]
	f.token = f.token[1:]
	f.mu.Unlock()

	write(w, r, reply)
}

func (f *FakeProvider) handleReleases(w http.ResponseWriter, r *http.Request) {
	f.record(r)

	f.mu.Lock()
	reply := f.releases
	f.mu.Unlock()

	write(w, r, reply)
}

func (f *FakeProvider) handleTracks(w http.ResponseWriter, r *http.Request) {
	f.record(r)

	f.mu.Lock()
	reply, ok := f.tracks[r.PathValue("id")]
	f.mu.Unlock()

	if !ok {
		write(w, r, Reply{Status: http.StatusNotFound, JSON: map[string]any{
			"error": map[string]any{"status": 404, "message": "Non existing id"},
		}})
		return
	}

	write(w, r, reply)
}

func write(w http.ResponseWriter, r *http.Request, reply Reply) {
	if reply.Delay > 0 {
		select {
		case <-time.After(reply.Delay):
		case <-r.Context().Done():
			return
		}
	}

	status := reply.Status
	if status == 0 {
		status = http.StatusOK
	}

	if reply.JSON != nil {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_ = json.NewEncoder(w).Encode(reply.JSON)
		return
	}

	w.Header().Set("Content-Type", "text/plain")
	w.WriteHeader(status)
	fmt.Fprint(w, reply.Text)
}

// TokenJSON builds a token endpoint body. Zero expiresIn and empty refresh are omitted.
func TokenJSON(access, refresh string, expiresIn int) map[string]any {
	body := map[string]any{
		"access_token": access,
		"token_type":   "Bearer",
		"scope":        "user-top-read",
	}
	if refresh != "" {
		body["refresh_token"] = refresh
	}
	if expiresIn > 0 {
		body["expires_in"] = expiresIn
	}
	return body
}

// AlbumJSON builds a simplified album object.
func AlbumJSON(id, name, artist string) map[string]any {
	return map[string]any{
		"id":           id,
		"name":         name,
		"album_type":   "album",
		"release_date": "2024-04-19",
		"total_tracks": 2,
		"artists":      []any{map[string]any{"id": "ar-" + id, "name": artist}},
		"images":       []any{map[string]any{"url": "https://example.com/" + id + ".jpg", "height": 640, "width": 640}},
	}
}

// ReleasesJSON wraps albums in the new releases envelope.
func ReleasesJSON(albums ...map[string]any) map[string]any {
	items := make([]any, len(albums))
	for i, a := range albums {
		items[i] = a
	}
	return map[string]any{"albums": map[string]any{"items": items, "total": len(items)}}
}

// TracksJSON builds an album tracks body with one item per name.
func TracksJSON(names ...string) map[string]any {
	items := make([]any, len(names))
	for i, n := range names {
		items[i] = map[string]any{
			"id":           fmt.Sprintf("tr-%d", i+1),
			"name":         n,
			"track_number": i + 1,
			"disc_number":  1,
			"duration_ms":  180000,
		}
	}
	return map[string]any{"items": items}
}

// FWriter always returns an error on Write
type FWriter struct{}

func (f *FWriter) Write(p []byte) (n int, err error) {
	return 0, errors.New("write failed")
}

// MockRoundTripper allows custom HTTP responses for testing
type MockRoundTripper struct {
	response *http.Response
	err      error
}

func NewMockRoundTripper(r *http.Response, e error) *MockRoundTripper {
	return &MockRoundTripper{response: r, err: e}
}

func (m *MockRoundTripper) RoundTrip(*http.Request) (*http.Response, error) {
	return m.response, m.err
}

// FCloser simulates a failure when reading response body
type FCloser struct{}

func (f *FCloser) Read(p []byte) (n int, err error) {
	return 0, errors.New("read failed")
}

func (f *FCloser) Close() error {
	return nil
}
