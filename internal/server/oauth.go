package server

import (
	"fmt"
	"html/template"
	"net/http"
	"net/url"
	"sync"

	"github.com/desertthunder/releasedash/internal/session"
	"github.com/desertthunder/releasedash/internal/shared"
)

// CallbackResult is the outcome of a CLI authorization.
type CallbackResult struct {
	Record *session.TokenRecord
	Err    error
}

// CallbackHandler serves the redirect URI for a single CLI authorization.
//
// It validates state, exchanges the code through the [session.Manager] into its record, and reports the outcome
// once on [CallbackHandler.Result]. Every later hit is rejected.
type CallbackHandler struct {
	manager     *session.Manager
	record      *session.TokenRecord
	state       string
	path        string
	resultChan  chan CallbackResult
	once        sync.Once
	callbackHit bool
	mu          sync.Mutex
}

// NewCallbackHandler creates a handler for redirectURI that exchanges into rec.
func NewCallbackHandler(manager *session.Manager, rec *session.TokenRecord, redirectURI, state string) (*CallbackHandler, error) {
	u, err := url.Parse(redirectURI)
	if err != nil {
		return nil, fmt.Errorf("%w: redirect_uri: %v", shared.ErrInvalidConfig, err)
	}

	return &CallbackHandler{
		manager:    manager,
		record:     rec,
		state:      state,
		path:       u.Path,
		resultChan: make(chan CallbackResult, 1),
	}, nil
}

// Routes returns the GET pattern for the redirect URI path.
func (h *CallbackHandler) Routes() []string {
	return []string{Pattern(http.MethodGet, h.path)}
}

// ServeHTTP handles the provider's redirect.
func (h *CallbackHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.mu.Lock()
	if h.callbackHit {
		h.mu.Unlock()
		http.Error(w, "Callback already processed", http.StatusBadRequest)
		return
	}
	h.callbackHit = true
	h.mu.Unlock()

	query := r.URL.Query()

	if query.Get("state") != h.state {
		h.Send(CallbackResult{Err: shared.ErrInvalidState})
		http.Error(w, "Invalid state parameter", http.StatusBadRequest)
		return
	}

	code := query.Get("code")
	if code == "" {
		err := fmt.Errorf("%w: %s: %s", shared.ErrAuthExchange, query.Get("error"), query.Get("error_description"))
		h.Send(CallbackResult{Err: err})
		http.Error(w, "Authorization failed", http.StatusBadRequest)
		return
	}

	if err := h.manager.Exchange(r.Context(), h.record, code); err != nil {
		h.Send(CallbackResult{Err: err})
		http.Error(w, "Token exchange failed", http.StatusBadGateway)
		return
	}

	h.Send(CallbackResult{Record: h.record})

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_ = successPage.Execute(w, nil)
}

// Send delivers the result (only once).
func (h *CallbackHandler) Send(result CallbackResult) {
	h.once.Do(func() {
		h.resultChan <- result
		close(h.resultChan)
	})
}

// Result receives exactly one result and is then closed.
func (h *CallbackHandler) Result() <-chan CallbackResult {
	return h.resultChan
}

var successPage = template.Must(template.New("success").Parse(`<!DOCTYPE html>
<html>
<head>
    <title>Authorization Successful</title>
    <style>
        body { font-family: -apple-system, BlinkMacSystemFont, "Segoe UI", Roboto, sans-serif;
               display: flex; align-items: center; justify-content: center; height: 100vh;
               margin: 0; background: #f5f5f5; }
        .container { text-align: center; background: white; padding: 2rem;
                     border-radius: 8px; box-shadow: 0 2px 4px rgba(0,0,0,0.1); }
        h1 { color: #1DB954; margin: 0 0 1rem 0; }
        p { color: #666; margin: 0; }
    </style>
</head>
<body>
    <div class="container">
        <h1>✓ Authorized</h1>
        <p>releasedash has a token. You can close this window and return to the terminal.</p>
    </div>
</body>
</html>
`))
