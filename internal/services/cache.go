package services

import (
	"context"
	"slices"
	"sync"
)

type cacheKey struct {
	token    string
	endpoint string
	params   string
}

// Cache memoizes catalog results keyed by (access token, endpoint, params).
//
// Entries live until the caller invalidates them. Failed calls are never stored.
type Cache struct {
	mu      sync.Mutex
	entries map[cacheKey]any
}

// NewCache creates an empty [Cache].
func NewCache() *Cache {
	return &Cache{entries: make(map[cacheKey]any)}
}

// Invalidate drops every entry fetched with accessToken and returns how many were removed.
func (c *Cache) Invalidate(accessToken string) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	n := 0
	for k := range c.entries {
		if k.token == accessToken {
			delete(c.entries, k)
			n++
		}
	}
	return n
}

// Clear drops all entries.
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	clear(c.entries)
}

// Len reports the number of cached entries.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

func (c *Cache) load(k cacheKey) (any, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.entries[k]
	return v, ok
}

func (c *Cache) store(k cacheKey, v any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[k] = v
}

// memoize returns the cached slice for k or calls fetch and stores its result on success.
func memoize[T any](c *Cache, k cacheKey, fetch func() ([]T, error)) ([]T, error) {
	if v, ok := c.load(k); ok {
		if items, ok := v.([]T); ok {
			return slices.Clone(items), nil
		}
	}

	items, err := fetch()
	if err != nil {
		return nil, err
	}

	c.store(k, slices.Clone(items))
	return items, nil
}

// CachedCatalog wraps a [Catalog] with a [Cache].
type CachedCatalog struct {
	catalog Catalog
	cache   *Cache
}

var _ Catalog = (*CachedCatalog)(nil)

// NewCachedCatalog wraps catalog. A nil cache disables memoization.
func NewCachedCatalog(catalog Catalog, cache *Cache) *CachedCatalog {
	return &CachedCatalog{catalog: catalog, cache: cache}
}

// NewReleases returns the memoized new releases for accessToken.
func (c *CachedCatalog) NewReleases(ctx context.Context, accessToken string) ([]Album, error) {
	fetch := func() ([]Album, error) { return c.catalog.NewReleases(ctx, accessToken) }
	if c.cache == nil {
		return fetch()
	}
	return memoize(c.cache, cacheKey{token: accessToken, endpoint: "new-releases"}, fetch)
}

// AlbumTracks returns the memoized track list for (accessToken, albumID).
func (c *CachedCatalog) AlbumTracks(ctx context.Context, accessToken, albumID string) ([]Track, error) {
	fetch := func() ([]Track, error) { return c.catalog.AlbumTracks(ctx, accessToken, albumID) }
	if c.cache == nil {
		return fetch()
	}
	return memoize(c.cache, cacheKey{token: accessToken, endpoint: "album-tracks", params: albumID}, fetch)
}
