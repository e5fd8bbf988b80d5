package ui

import (
	"fmt"

	"github.com/charmbracelet/bubbles/list"
	"github.com/desertthunder/releasedash/internal/formatter"
	"github.com/desertthunder/releasedash/internal/services"
)

var (
	_ list.Item = albumItem{}
	_ list.Item = trackItem{}
)

// albumItem wraps [services.Album] to implement [list.Item].
type albumItem struct {
	album services.Album
}

func (i albumItem) FilterValue() string { return i.album.Name }
func (i albumItem) Title() string       { return i.album.Name }
func (i albumItem) Description() string {
	desc := i.album.ArtistNames()
	if i.album.ReleaseDate != "" {
		desc = fmt.Sprintf("%s • %s", desc, i.album.ReleaseDate)
	}
	return fmt.Sprintf("%s • %d tracks", desc, i.album.TotalTracks)
}

// trackItem wraps [services.Track] to implement [list.Item].
type trackItem struct {
	track services.Track
}

func (i trackItem) FilterValue() string { return i.track.Name }
func (i trackItem) Title() string {
	return fmt.Sprintf("%d. %s", i.track.TrackNumber, i.track.Name)
}
func (i trackItem) Description() string {
	desc := formatter.Duration(i.track.Duration())
	if names := i.track.ArtistNames(); names != "" {
		desc = fmt.Sprintf("%s • %s", names, desc)
	}
	return desc
}
