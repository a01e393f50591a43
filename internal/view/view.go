// Package view renders the server-side HTML pages from embedded templates.
package view

import (
	"embed"
	"fmt"
	"html/template"
	"io"
	"strings"
	"time"

	"kiteretsu_web/internal/model"
)

//go:embed templates/*.html
var templateFS embed.FS

// pages are the renderable page templates; each one is parsed together with
// the shared layout.
var pages = []string{
	"landing.html",
	"game.html",
	"forum.html",
	"topic.html",
	"new_topic.html",
	"auth.html",
	"loading.html",
	"profile_error.html",
	"not_found.html",
	"error.html",
}

// Page carries the fields every template needs from the bootstrap snapshot.
// Handlers embed it in their page-specific data structs.
type Page struct {
	Title    string
	SignedIn bool
	Username string
}

// Renderer holds the parsed template set.
type Renderer struct {
	templates map[string]*template.Template
}

// NewRenderer parses all page templates. Fails fast at startup on any parse
// error.
func NewRenderer() (*Renderer, error) {
	funcs := template.FuncMap{
		"timeAgo":  TimeAgo,
		"excerpt":  Excerpt,
		"initials": Initials,
	}

	templates := make(map[string]*template.Template, len(pages))
	for _, page := range pages {
		t, err := template.New("layout.html").Funcs(funcs).
			ParseFS(templateFS, "templates/layout.html", "templates/"+page)
		if err != nil {
			return nil, fmt.Errorf("parse template %s: %w", page, err)
		}
		templates[page] = t
	}
	return &Renderer{templates: templates}, nil
}

// Render writes a page to w.
func (r *Renderer) Render(w io.Writer, page string, data any) error {
	t, ok := r.templates[page]
	if !ok {
		return fmt.Errorf("unknown template: %s", page)
	}
	if err := t.ExecuteTemplate(w, "layout.html", data); err != nil {
		return fmt.Errorf("render %s: %w", page, err)
	}
	return nil
}

// TimeAgo formats a timestamp as a coarse relative time.
func TimeAgo(t time.Time) string {
	if t.IsZero() {
		return "just now"
	}
	d := time.Since(t)
	switch {
	case d < time.Minute:
		return "just now"
	case d < time.Hour:
		return fmt.Sprintf("%d minutes ago", int(d.Minutes()))
	case d < 24*time.Hour:
		return fmt.Sprintf("%d hours ago", int(d.Hours()))
	case d < 30*24*time.Hour:
		return fmt.Sprintf("%d days ago", int(d.Hours()/24))
	case d < 365*24*time.Hour:
		return fmt.Sprintf("%d months ago", int(d.Hours()/(24*30)))
	default:
		return fmt.Sprintf("%d years ago", int(d.Hours()/(24*365)))
	}
}

// Excerpt truncates s to max characters with an ellipsis.
func Excerpt(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return strings.TrimSpace(string(runes[:max])) + "..."
}

// Initials returns the avatar fallback letter for a username.
func Initials(profile *model.ProfileSummary) string {
	if profile == nil || profile.Username == "" {
		return "U"
	}
	return strings.ToUpper(string([]rune(profile.Username)[0]))
}
