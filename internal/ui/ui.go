package ui

import (
	"context"
	"fmt"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/desertthunder/releasedash/internal/formatter"
	"github.com/desertthunder/releasedash/internal/services"
	"github.com/desertthunder/releasedash/internal/session"
)

// ViewState represents the current view in the TUI.
type ViewState int

const (
	ReleaseListView ViewState = iota
	TrackListView
)

// Model represents the TUI application state.
type Model struct {
	ctx         context.Context
	view        ViewState
	manager     *session.Manager
	catalog     services.Catalog
	sess        *session.Session
	width       int
	height      int
	releaseList list.Model
	trackList   list.Model
	album       services.Album
	token       tokenStatus
	loading     bool
	status      string
	warning     error
	err         error
	help        help.Model
	keys        keyMap
}

// NewModel creates a new TUI model browsing the catalog with sess's token.
func NewModel(ctx context.Context, manager *session.Manager, catalog services.Catalog, sess *session.Session) *Model {
	return &Model{
		ctx:         ctx,
		view:        ReleaseListView,
		manager:     manager,
		catalog:     catalog,
		sess:        sess,
		token:       snapshot(sess.Record),
		releaseList: newList("New Releases", nil),
		trackList:   newList("Tracks", nil),
		help:        help.New(),
		keys:        newKeyMap(),
	}
}

// Init initializes the TUI by fetching new releases.
func (m *Model) Init() tea.Cmd {
	m.loading = true
	return m.fetchReleases()
}

// Update handles incoming messages and updates the model state.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.releaseList.SetSize(msg.Width-4, msg.Height-8)
		m.trackList.SetSize(msg.Width-4, msg.Height-8)
		return m, nil

	case tea.KeyMsg:
		if m.err != nil {
			return m.handleErrorKeys(msg)
		}
		switch m.view {
		case ReleaseListView:
			return m.handleReleaseListKeys(msg)
		case TrackListView:
			return m.handleTrackListKeys(msg)
		}

	case Msg:
		return m.handleMsg(msg)
	}

	return m.updateLists(msg)
}

func (m *Model) handleMsg(msg Msg) (tea.Model, tea.Cmd) {
	switch msg.kind {
	case MsgReleasesFetched:
		data := msg.data.(fetched[services.Album])
		m.loading = false
		m.token = data.token
		m.warning = data.warning
		if data.err != nil {
			m.err = data.err
			return m, nil
		}

		items := make([]list.Item, len(data.items))
		for i, a := range data.items {
			items[i] = albumItem{album: a}
		}
		m.releaseList.SetItems(items)
		m.status = fmt.Sprintf("%d new releases", len(items))
		return m, nil

	case MsgTracksFetched:
		data := msg.data.(fetched[services.Track])
		m.loading = false
		m.token = data.token
		m.warning = data.warning
		if data.err != nil {
			m.status = fmt.Sprintf("Could not load tracks: %v", data.err)
			return m, nil
		}

		items := make([]list.Item, len(data.items))
		for i, t := range data.items {
			items[i] = trackItem{track: t}
		}
		m.album = data.album
		m.trackList.Title = fmt.Sprintf("Tracks on '%s'", data.album.Name)
		m.trackList.SetItems(items)
		m.trackList.ResetSelected()
		m.view = TrackListView
		m.status = fmt.Sprintf("%d tracks", len(items))
		return m, nil

	case MsgTokenRefreshed:
		data := msg.data.(refreshResult)
		m.loading = false
		m.token = data.token
		if data.err != nil {
			m.warning = data.err
			return m, nil
		}
		m.warning = nil
		m.status = "Token refreshed."
		return m, nil
	}
	return m, nil
}

// View renders the UI based on the current view state.
func (m *Model) View() string {
	if m.err != nil {
		return styles.err.Render(fmt.Sprintf("Error: %v\n\nPress ctrl+r to retry, q to quit", m.err))
	}

	var body string
	switch m.view {
	case ReleaseListView:
		body = m.renderReleaseList()
	case TrackListView:
		body = m.renderTrackList()
	}

	return fmt.Sprintf("%s\n%s", body, m.renderStatus())
}

func (m *Model) handleErrorKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.reload):
		m.err = nil
		m.loading = true
		m.view = ReleaseListView
		return m, m.fetchReleases()
	}
	return m, nil
}

func (m *Model) handleReleaseListKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.releaseList.FilterState() == list.Filtering {
		var cmd tea.Cmd
		m.releaseList, cmd = m.releaseList.Update(msg)
		return m, cmd
	}

	switch {
	case key.Matches(msg, m.keys.quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.refresh):
		m.loading = true
		return m, m.refreshToken()
	case key.Matches(msg, m.keys.reload):
		m.loading = true
		return m, m.fetchReleases()
	case key.Matches(msg, m.keys.enter):
		if item, ok := m.releaseList.SelectedItem().(albumItem); ok {
			m.loading = true
			return m, m.fetchTracks(item.album)
		}
		return m, nil
	}

	var cmd tea.Cmd
	m.releaseList, cmd = m.releaseList.Update(msg)
	return m, cmd
}

func (m *Model) handleTrackListKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.back):
		m.view = ReleaseListView
		m.status = ""
		return m, nil
	case key.Matches(msg, m.keys.refresh):
		m.loading = true
		return m, m.refreshToken()
	}

	var cmd tea.Cmd
	m.trackList, cmd = m.trackList.Update(msg)
	return m, cmd
}

func (m *Model) updateLists(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	switch m.view {
	case ReleaseListView:
		m.releaseList, cmd = m.releaseList.Update(msg)
	case TrackListView:
		m.trackList, cmd = m.trackList.Update(msg)
	}
	return m, cmd
}

// withSession runs fn under the session lock after the expiry check.
//
// The returned warning is the refresh failure, if any; fn still runs with the stale token.
func (m *Model) withSession(fn func(c services.Catalog, token string) error) (token tokenStatus, warning, err error) {
	m.sess.Lock()
	defer m.sess.Unlock()

	warning = m.manager.Ensure(m.ctx, m.sess)
	catalog := services.NewCachedCatalog(m.catalog, m.sess.Cache)
	err = fn(catalog, m.sess.Record.AccessToken)
	return snapshot(m.sess.Record), warning, err
}

func (m *Model) fetchReleases() tea.Cmd {
	return func() tea.Msg {
		var albums []services.Album
		status, warning, err := m.withSession(func(c services.Catalog, token string) (err error) {
			albums, err = c.NewReleases(m.ctx, token)
			return err
		})
		return releasesFetchedMsg(albums, status, warning, err)
	}
}

func (m *Model) fetchTracks(album services.Album) tea.Cmd {
	return func() tea.Msg {
		var tracks []services.Track
		status, warning, err := m.withSession(func(c services.Catalog, token string) (err error) {
			tracks, err = c.AlbumTracks(m.ctx, token, album.ID)
			return err
		})
		return tracksFetchedMsg(album, tracks, status, warning, err)
	}
}

func (m *Model) refreshToken() tea.Cmd {
	return func() tea.Msg {
		m.sess.Lock()
		defer m.sess.Unlock()

		err := m.manager.RefreshSession(m.ctx, m.sess)
		return tokenRefreshedMsg(snapshot(m.sess.Record), err)
	}
}

func (m *Model) renderReleaseList() string {
	helpKeys := []key.Binding{m.keys.enter, m.keys.refresh, m.keys.reload, m.keys.quit}
	return fmt.Sprintf("%s\n\n%s", m.releaseList.View(), m.help.ShortHelpView(helpKeys))
}

func (m *Model) renderTrackList() string {
	helpKeys := []key.Binding{m.keys.back, m.keys.refresh, m.keys.quit}
	return fmt.Sprintf("%s\n\n%s", m.trackList.View(), m.help.ShortHelpView(helpKeys))
}

// renderStatus shows the token state, time left, and the latest status or warning.
func (m *Model) renderStatus() string {
	state := m.token.state
	line := styles.ForState(state).Render(state.String())
	if state != session.Unauthenticated {
		remaining := max(m.token.expiresAt.Sub(m.manager.Now()), 0)
		line += styles.status.Render(fmt.Sprintf("expires in %s", formatter.Duration(remaining)))
	}

	switch {
	case m.loading:
		line += styles.status.Render("loading...")
	case m.warning != nil:
		line += styles.status.Render(styles.warn.Render(fmt.Sprintf("refresh failed, using stale token: %v", m.warning)))
	case m.status != "":
		line += styles.status.Render(m.status)
	}
	return line
}

func newList(title string, items []list.Item) list.Model {
	l := list.New(items, list.NewDefaultDelegate(), 0, 0)
	l.Title = title
	l.Styles.Title = styles.title
	return l
}
