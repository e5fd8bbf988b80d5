// Catalog API implementation of [Catalog]
//
// Response shapes follow https://developer.spotify.com/documentation/web-api/reference/
package services

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/desertthunder/releasedash/internal/shared"
	"golang.org/x/time/rate"
)

// CatalogOpts contains configuration options for creating a [CatalogClient].
type CatalogOpts struct {
	BaseURL    string
	HTTPClient *http.Client
	Timeout    time.Duration
	RateLimit  float64 // Requests per second; zero or less disables limiting
}

// CatalogClient performs authenticated, read-only GETs against the catalog API.
type CatalogClient struct {
	baseURL    string
	httpClient *http.Client
	timeout    time.Duration
	limiter    *rate.Limiter
}

var _ Catalog = (*CatalogClient)(nil)

type newReleasesResponse struct {
	Albums struct {
		Items []Album `json:"items"`
	} `json:"albums"`
}

type albumTracksResponse struct {
	Items []Track `json:"items"`
}

// NewCatalogClient creates a [CatalogClient].
func NewCatalogClient(opts CatalogOpts) *CatalogClient {
	if opts.BaseURL == "" {
		opts.BaseURL = shared.DefaultConfig().Provider.APIBaseURL
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = http.DefaultClient
	}
	if opts.Timeout <= 0 {
		opts.Timeout = shared.DefaultTimeout
	}

	limit := rate.Inf
	if opts.RateLimit > 0 {
		limit = rate.Limit(opts.RateLimit)
	}

	return &CatalogClient{
		baseURL:    strings.TrimRight(opts.BaseURL, "/"),
		httpClient: opts.HTTPClient,
		timeout:    opts.Timeout,
		limiter:    rate.NewLimiter(limit, 1),
	}
}

// NewReleases lists newly released albums.
func (c *CatalogClient) NewReleases(ctx context.Context, accessToken string) ([]Album, error) {
	var response newReleasesResponse
	if err := c.get(ctx, "list new releases", accessToken, "/browse/new-releases", &response); err != nil {
		return nil, err
	}

	if response.Albums.Items == nil {
		return []Album{}, nil
	}
	return response.Albums.Items, nil
}

// AlbumTracks lists an album's tracks in provider order.
//
// A response without an items field yields an empty slice rather than an error.
func (c *CatalogClient) AlbumTracks(ctx context.Context, accessToken, albumID string) ([]Track, error) {
	if albumID == "" {
		return nil, fmt.Errorf("%w: album id", shared.ErrMissingArgument)
	}

	var response albumTracksResponse
	endpoint := fmt.Sprintf("/albums/%s/tracks", url.PathEscape(albumID))
	if err := c.get(ctx, "list album tracks", accessToken, endpoint, &response); err != nil {
		return nil, err
	}

	if response.Items == nil {
		return []Track{}, nil
	}
	return response.Items, nil
}

// get performs an authenticated GET and decodes a 200 response into result.
func (c *CatalogClient) get(ctx context.Context, op, accessToken, endpoint string, result any) error {
	if accessToken == "" {
		return fmt.Errorf("%w: %s", shared.ErrNotAuthenticated, op)
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	if err := c.limiter.Wait(ctx); err != nil {
		return transportError(op, shared.ErrCatalogRequest, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+endpoint, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Authorization", "Bearer "+accessToken)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return transportError(op, shared.ErrCatalogRequest, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return transportError(op, shared.ErrCatalogRequest, err)
	}

	if resp.StatusCode != http.StatusOK {
		return StatusError(op, shared.ErrCatalogRequest, resp.StatusCode, body)
	}

	if err := json.Unmarshal(body, result); err != nil {
		return fmt.Errorf("%w: %s: failed to decode response: %v", shared.ErrCatalogRequest, op, err)
	}

	return nil
}
