// package formatter renders releases and track listings as text, CSV, Markdown, JSON or YAML
package formatter

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/desertthunder/releasedash/internal/services"
	"github.com/desertthunder/releasedash/internal/shared"
	"gopkg.in/yaml.v3"
)

// Format names an output format.
type Format string

const (
	Text     Format = "text"
	CSV      Format = "csv"
	Markdown Format = "md"
	JSON     Format = "json"
	YAML     Format = "yaml"
)

// Formats lists the accepted format names.
var Formats = []Format{Text, CSV, Markdown, JSON, YAML}

// ParseFormat resolves a format name, accepting common aliases.
func ParseFormat(name string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "text", "txt":
		return Text, nil
	case "csv":
		return CSV, nil
	case "md", "markdown":
		return Markdown, nil
	case "json":
		return JSON, nil
	case "yaml", "yml":
		return YAML, nil
	}
	return "", fmt.Errorf("%w: format %q (want one of %v)", shared.ErrInvalidFlag, name, Formats)
}

// Release is an album with its tracks, when they were fetched.
type Release struct {
	Album  services.Album   `json:"album" yaml:"album"`
	Tracks []services.Track `json:"tracks,omitempty" yaml:"tracks,omitempty"`
}

// Duration renders d as m:ss, or h:mm:ss from an hour up.
func Duration(d time.Duration) string {
	total := int(d.Round(time.Second).Seconds())
	if total < 0 {
		total = 0
	}
	h, m, s := total/3600, (total%3600)/60, total%60
	if h > 0 {
		return fmt.Sprintf("%d:%02d:%02d", h, m, s)
	}
	return fmt.Sprintf("%d:%02d", m, s)
}

// Releases renders releases in format.
func Releases(format Format, releases []Release) ([]byte, error) {
	switch format {
	case Text:
		return ReleasesToText(releases), nil
	case CSV:
		return ReleasesToCSV(releases)
	case Markdown:
		return ReleasesToMarkdown(releases), nil
	case JSON:
		return shared.MarshalJSON(releases, true)
	case YAML:
		return ToYAML(releases)
	}
	return nil, fmt.Errorf("%w: format %q", shared.ErrInvalidFlag, format)
}

// Tracks renders one album's track list in format.
func Tracks(format Format, tracks []services.Track) ([]byte, error) {
	switch format {
	case Text:
		return TracksToText(tracks), nil
	case CSV:
		return TracksToCSV(tracks)
	case Markdown:
		return TracksToMarkdown(tracks), nil
	case JSON:
		return shared.MarshalJSON(tracks, true)
	case YAML:
		return ToYAML(tracks)
	}
	return nil, fmt.Errorf("%w: format %q", shared.ErrInvalidFlag, format)
}

// ReleasesToText lists albums, numbered, with their tracks indented beneath when present.
func ReleasesToText(releases []Release) []byte {
	var buf bytes.Buffer

	buf.WriteString(fmt.Sprintf("New releases: %d\n\n", len(releases)))
	for i, r := range releases {
		a := r.Album
		buf.WriteString(fmt.Sprintf("%d. %s - %s (%s, %s, %d tracks) [%s]\n",
			i+1, a.ArtistNames(), a.Name, a.ReleaseDate, a.AlbumType, a.TotalTracks, a.ID))
		for _, t := range r.Tracks {
			buf.WriteString(fmt.Sprintf("    %d. %s [%s]\n", t.TrackNumber, t.Name, Duration(t.Duration())))
		}
	}

	return buf.Bytes()
}

// ReleasesToCSV writes one row per album, or one row per track when any release carries tracks.
func ReleasesToCSV(releases []Release) ([]byte, error) {
	withTracks := false
	for _, r := range releases {
		if len(r.Tracks) > 0 {
			withTracks = true
			break
		}
	}

	rows := [][]string{}
	if withTracks {
		rows = append(rows, []string{"Album ID", "Album", "Artists", "Release Date", "Track Number", "Track", "Duration"})
		for _, r := range releases {
			for _, t := range r.Tracks {
				rows = append(rows, []string{
					r.Album.ID,
					r.Album.Name,
					r.Album.ArtistNames(),
					r.Album.ReleaseDate,
					strconv.Itoa(t.TrackNumber),
					t.Name,
					Duration(t.Duration()),
				})
			}
		}
	} else {
		rows = append(rows, []string{"ID", "Name", "Artists", "Release Date", "Type", "Total Tracks"})
		for _, r := range releases {
			rows = append(rows, []string{
				r.Album.ID,
				r.Album.Name,
				r.Album.ArtistNames(),
				r.Album.ReleaseDate,
				r.Album.AlbumType,
				strconv.Itoa(r.Album.TotalTracks),
			})
		}
	}

	return writeCSV(rows)
}

// ReleasesToMarkdown renders a section per album with its cover and track list.
func ReleasesToMarkdown(releases []Release) []byte {
	var buf bytes.Buffer

	buf.WriteString("# New Releases\n\n")
	buf.WriteString(fmt.Sprintf("**Albums**: %d\n\n", len(releases)))

	for _, r := range releases {
		a := r.Album
		buf.WriteString(fmt.Sprintf("## %s\n\n", a.Name))
		if cover := a.CoverURL(); cover != "" {
			buf.WriteString(fmt.Sprintf("![Cover](%s)\n\n", cover))
		}
		buf.WriteString(fmt.Sprintf("**Artists**: %s\n", a.ArtistNames()))
		buf.WriteString(fmt.Sprintf("**Released**: %s (%s, %d tracks)\n\n", a.ReleaseDate, a.AlbumType, a.TotalTracks))

		if len(r.Tracks) > 0 {
			buf.Write(TracksToMarkdown(r.Tracks))
			buf.WriteString("\n")
		}
	}

	return buf.Bytes()
}

// TracksToText lists tracks in provider order.
func TracksToText(tracks []services.Track) []byte {
	var buf bytes.Buffer

	buf.WriteString(fmt.Sprintf("Tracks: %d\n\n", len(tracks)))
	for i, t := range tracks {
		buf.WriteString(fmt.Sprintf("%d. %s [%s]\n", i+1, t.Name, Duration(t.Duration())))
	}

	return buf.Bytes()
}

// TracksToCSV writes columns: Number, Name, Artists, Duration, Explicit, ID.
func TracksToCSV(tracks []services.Track) ([]byte, error) {
	rows := [][]string{{"Number", "Name", "Artists", "Duration", "Explicit", "ID"}}
	for _, t := range tracks {
		rows = append(rows, []string{
			strconv.Itoa(t.TrackNumber),
			t.Name,
			t.ArtistNames(),
			Duration(t.Duration()),
			strconv.FormatBool(t.Explicit),
			t.ID,
		})
	}
	return writeCSV(rows)
}

// TracksToMarkdown renders a numbered list.
func TracksToMarkdown(tracks []services.Track) []byte {
	var buf bytes.Buffer
	for i, t := range tracks {
		artists := ""
		if names := t.ArtistNames(); names != "" {
			artists = fmt.Sprintf(" (%s)", names)
		}
		buf.WriteString(fmt.Sprintf("%d. %s%s [%s]\n", i+1, t.Name, artists, Duration(t.Duration())))
	}
	return buf.Bytes()
}

// ToYAML encodes v as YAML with two-space indentation.
func ToYAML(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)

	if err := enc.Encode(v); err != nil {
		return nil, fmt.Errorf("failed to encode YAML: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("failed to encode YAML: %w", err)
	}

	return buf.Bytes(), nil
}

// WriteFile writes data to path, creating parent directories.
func WriteFile(path string, data []byte) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create directory: %w", err)
		}
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}

func writeCSV(rows [][]string) ([]byte, error) {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)

	if err := writer.WriteAll(rows); err != nil {
		return nil, fmt.Errorf("failed to write CSV: %w", err)
	}

	return buf.Bytes(), nil
}
