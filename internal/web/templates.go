package web

import (
	"embed"
	"fmt"
	"html/template"
	"io"
	"time"

	"github.com/desertthunder/releasedash/internal/formatter"
	"github.com/desertthunder/releasedash/internal/services"
	"github.com/desertthunder/releasedash/internal/session"
)

//go:embed templates/*.html
var templateFiles embed.FS

var pageNames = []string{"dashboard.html", "releases.html", "tracks.html"}

var funcs = template.FuncMap{
	"duration": formatter.Duration,
}

// pageData is the single view model shared by all templates.
type pageData struct {
	Title         string
	Flash         string
	Error         string
	Partial       bool
	Authenticated bool
	Stale         bool
	State         session.State
	AuthURL       string
	ExpiresAt     time.Time
	Remaining     time.Duration
	Albums        []services.Album
	AlbumID       string
	Tracks        []services.Track
}

// pages holds one template set per page, each sharing the layout and partials.
type pages struct {
	set map[string]*template.Template
}

func parsePages() (*pages, error) {
	base, err := template.New("base").Funcs(funcs).ParseFS(templateFiles, "templates/layout.html", "templates/partials.html")
	if err != nil {
		return nil, fmt.Errorf("failed to parse layout: %w", err)
	}

	p := &pages{set: make(map[string]*template.Template, len(pageNames))}
	for _, name := range pageNames {
		clone, err := base.Clone()
		if err != nil {
			return nil, fmt.Errorf("failed to clone layout: %w", err)
		}
		t, err := clone.ParseFS(templateFiles, "templates/"+name)
		if err != nil {
			return nil, fmt.Errorf("failed to parse %s: %w", name, err)
		}
		p.set[name] = t
	}

	return p, nil
}

func (p *pages) execute(w io.Writer, page, name string, data any) error {
	t, ok := p.set[page]
	if !ok {
		return fmt.Errorf("unknown page %s", page)
	}
	return t.ExecuteTemplate(w, name, data)
}
