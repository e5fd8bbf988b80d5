package server

import (
	"crypto/rand"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ErrInvalidCookie is returned when a session cookie is missing, malformed, forged or expired.
var ErrInvalidCookie = errors.New("invalid session cookie")

// CookieCodec signs session IDs into HS256 JWT cookies.
//
// Only the session ID leaves the server; tokens stay in memory.
type CookieCodec struct {
	name   string
	secret []byte
	ttl    time.Duration
	secure bool
	now    func() time.Time
}

// CookieOpts contains configuration options for creating a [CookieCodec].
type CookieOpts struct {
	Name   string
	Secret []byte // Random when empty, which invalidates cookies on restart
	TTL    time.Duration
	Secure bool
}

// NewCookieCodec creates a [CookieCodec].
func NewCookieCodec(opts CookieOpts) (*CookieCodec, error) {
	if opts.Name == "" {
		opts.Name = "releasedash_session"
	}
	if opts.TTL <= 0 {
		opts.TTL = 24 * time.Hour
	}
	if len(opts.Secret) == 0 {
		opts.Secret = make([]byte, 32)
		if _, err := rand.Read(opts.Secret); err != nil {
			return nil, fmt.Errorf("failed to generate cookie secret: %w", err)
		}
	}

	return &CookieCodec{
		name:   opts.Name,
		secret: opts.Secret,
		ttl:    opts.TTL,
		secure: opts.Secure,
		now:    time.Now,
	}, nil
}

// Name returns the cookie name.
func (c *CookieCodec) Name() string {
	return c.name
}

// TTL returns how long an issued cookie stays valid.
func (c *CookieCodec) TTL() time.Duration {
	return c.ttl
}

// Encode returns a signed cookie for sessionID.
func (c *CookieCodec) Encode(sessionID string) (*http.Cookie, error) {
	now := c.now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		ID:        sessionID,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(c.ttl)),
	})

	value, err := token.SignedString(c.secret)
	if err != nil {
		return nil, fmt.Errorf("failed to sign session cookie: %w", err)
	}

	return &http.Cookie{
		Name:     c.name,
		Value:    value,
		Path:     "/",
		MaxAge:   int(c.ttl.Seconds()),
		HttpOnly: true,
		Secure:   c.secure,
		SameSite: http.SameSiteLaxMode,
	}, nil
}

// Decode verifies the request's session cookie and returns the session ID.
func (c *CookieCodec) Decode(r *http.Request) (string, error) {
	cookie, err := r.Cookie(c.name)
	if err != nil {
		return "", ErrInvalidCookie
	}

	claims := &jwt.RegisteredClaims{}
	_, err = jwt.ParseWithClaims(cookie.Value, claims, func(*jwt.Token) (any, error) {
		return c.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithTimeFunc(c.now))
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidCookie, err)
	}

	if claims.ID == "" {
		return "", ErrInvalidCookie
	}
	return claims.ID, nil
}

// Clear returns a cookie that deletes the session cookie.
func (c *CookieCodec) Clear() *http.Cookie {
	return &http.Cookie{
		Name:     c.name,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   c.secure,
		SameSite: http.SameSiteLaxMode,
	}
}
