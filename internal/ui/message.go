package ui

import (
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/desertthunder/releasedash/internal/services"
	"github.com/desertthunder/releasedash/internal/session"
)

// MsgKind enumerates all message types in the application.
type MsgKind int

// Msg represents all possible messages in the TUI (Elm-style message union).
type Msg struct {
	kind MsgKind
	data any
}

var (
	_ tea.Msg = Msg{}
)

const (
	MsgReleasesFetched MsgKind = iota
	MsgTracksFetched
	MsgTokenRefreshed
)

// tokenStatus is a snapshot of the session's token taken under the session lock.
type tokenStatus struct {
	state     session.State
	expiresAt time.Time
}

func snapshot(rec *session.TokenRecord) tokenStatus {
	return tokenStatus{state: rec.State(), expiresAt: rec.ExpiresAt()}
}

// fetched carries a catalog result and the outcome of the expiry check that preceded it.
type fetched[T any] struct {
	items   []T
	album   services.Album
	token   tokenStatus
	warning error
	err     error
}

type refreshResult struct {
	token tokenStatus
	err   error
}

// releasesFetchedMsg is the constructor for [MsgReleasesFetched]
func releasesFetchedMsg(albums []services.Album, token tokenStatus, warning, err error) Msg {
	return Msg{
		kind: MsgReleasesFetched,
		data: fetched[services.Album]{items: albums, token: token, warning: warning, err: err},
	}
}

// tracksFetchedMsg is the constructor for [MsgTracksFetched]
func tracksFetchedMsg(album services.Album, tracks []services.Track, token tokenStatus, warning, err error) Msg {
	return Msg{
		kind: MsgTracksFetched,
		data: fetched[services.Track]{items: tracks, album: album, token: token, warning: warning, err: err},
	}
}

// tokenRefreshedMsg is the constructor for [MsgTokenRefreshed]
func tokenRefreshedMsg(token tokenStatus, err error) Msg {
	return Msg{kind: MsgTokenRefreshed, data: refreshResult{token: token, err: err}}
}
