package services

import (
	"context"
	"strings"
	"time"
)

// TokenExchanger trades authorization codes and refresh tokens for access tokens.
type TokenExchanger interface {
	// ExchangeCode trades a one-time authorization code for a token pair.
	ExchangeCode(ctx context.Context, code string) (*TokenPair, error)

	// RefreshToken mints a new access token from a refresh token.
	RefreshToken(ctx context.Context, refreshToken string) (*TokenPair, error)
}

// Catalog defines the read-only catalog calls the dashboard makes.
type Catalog interface {
	// NewReleases lists newly released albums.
	NewReleases(ctx context.Context, accessToken string) ([]Album, error)

	// AlbumTracks lists the tracks of an album in provider order.
	AlbumTracks(ctx context.Context, accessToken, albumID string) ([]Track, error)
}

// TokenPair is the result of a successful exchange or refresh.
type TokenPair struct {
	AccessToken  string
	RefreshToken string // Empty when the provider did not issue one
	TokenType    string
	Scope        string
	ExpiresIn    time.Duration // Zero when the provider omitted expires_in
}

// Image represents an image resource.
type Image struct {
	URL    string `json:"url" yaml:"url"`
	Height int    `json:"height" yaml:"height"`
	Width  int    `json:"width" yaml:"width"`
}

// Artist represents a simplified artist object.
type Artist struct {
	ID   string `json:"id" yaml:"id"`
	Name string `json:"name" yaml:"name"`
	URI  string `json:"uri" yaml:"uri"`
}

// Album represents a simplified album object as returned by the new releases endpoint.
type Album struct {
	ID          string   `json:"id" yaml:"id"`
	Name        string   `json:"name" yaml:"name"`
	AlbumType   string   `json:"album_type" yaml:"album_type"`
	Artists     []Artist `json:"artists" yaml:"artists"`
	ReleaseDate string   `json:"release_date" yaml:"release_date"`
	TotalTracks int      `json:"total_tracks" yaml:"total_tracks"`
	Images      []Image  `json:"images" yaml:"images"`
	URI         string   `json:"uri" yaml:"uri"`
}

// Track represents a simplified track object as returned by the album tracks endpoint.
type Track struct {
	ID          string   `json:"id" yaml:"id"`
	Name        string   `json:"name" yaml:"name"`
	TrackNumber int      `json:"track_number" yaml:"track_number"`
	DiscNumber  int      `json:"disc_number" yaml:"disc_number"`
	DurationMS  int      `json:"duration_ms" yaml:"duration_ms"`
	Explicit    bool     `json:"explicit" yaml:"explicit"`
	Artists     []Artist `json:"artists" yaml:"artists"`
	URI         string   `json:"uri" yaml:"uri"`
}

// ArtistNames returns the album's artists as a comma separated list.
func (a Album) ArtistNames() string {
	return joinArtists(a.Artists)
}

// CoverURL returns the first (largest) image URL, if any.
func (a Album) CoverURL() string {
	if len(a.Images) == 0 {
		return ""
	}
	return a.Images[0].URL
}

// ArtistNames returns the track's artists as a comma separated list.
func (t Track) ArtistNames() string {
	return joinArtists(t.Artists)
}

// Duration converts DurationMS into a [time.Duration].
func (t Track) Duration() time.Duration {
	return time.Duration(t.DurationMS) * time.Millisecond
}

func joinArtists(artists []Artist) string {
	names := make([]string, len(artists))
	for i, a := range artists {
		names[i] = a.Name
	}
	return strings.Join(names, ", ")
}
