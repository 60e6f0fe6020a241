// Package site renders the server-side HTML pages and their shared chrome.
package site

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"io"
	"io/fs"
	"net/http"
	"strconv"
	"strings"
	"time"
)

//go:embed templates
var templatesFS embed.FS

//go:embed static
var staticFS embed.FS

// Page identifiers. Each has a template under templates/pages.
const (
	PageHome        = "home"
	PageAbout       = "about"
	PageContact     = "contact"
	PageImpact      = "impact"
	PageMarketplace = "marketplace"
)

// NavItem is one entry of the primary navigation.
type NavItem struct {
	Page   string
	Label  string
	Path   string
	Active bool
}

var navigation = []NavItem{
	{Page: PageHome, Label: "Home", Path: "/"},
	{Page: PageMarketplace, Label: "Marketplace", Path: "/marketplace"},
	{Page: PageImpact, Label: "Impact", Path: "/impact"},
	{Page: PageAbout, Label: "About", Path: "/about"},
	{Page: PageContact, Label: "Contact", Path: "/contact"},
}

// Navigation returns the nav entries with the active page marked.
func Navigation(active string) []NavItem {
	items := make([]NavItem, len(navigation))
	copy(items, navigation)
	for i := range items {
		items[i].Active = items[i].Page == active
	}
	return items
}

// PageData is the root value every page template executes against.
type PageData struct {
	Page    string
	Title   string
	Nav     []NavItem
	Alerts  []Alert
	Modal   *Modal
	Charts  map[string]template.HTML
	Year    int
	Content any
}

// Renderer holds one parsed template set per page.
type Renderer struct {
	pages map[string]*template.Template
}

var funcs = template.FuncMap{
	"price": func(v float64) string { return strconv.FormatFloat(v, 'f', 2, 64) },
	"score": func(v float64) string { return strconv.FormatFloat(v, 'f', 0, 64) },
	"date":  func(t time.Time) string { return t.Format("Jan 2, 2006") },
	"loader": func(size, label string) Loader { return Loader{Size: LoaderSize(size), Label: label} },
	"title": func(s string) string {
		if s == "" {
			return s
		}
		return strings.ToUpper(s[:1]) + s[1:]
	},
}

// StaticHandler serves the embedded stylesheet and assets rooted at static/.
func StaticHandler() http.Handler {
	sub, err := fs.Sub(staticFS, "static")
	if err != nil {
		panic(fmt.Sprintf("site: static assets: %v", err))
	}
	return http.FileServerFS(sub)
}

// NewRenderer parses the embedded layout, partials and pages once.
func NewRenderer() (*Renderer, error) {
	return newRenderer(templatesFS)
}

func newRenderer(fsys fs.FS) (*Renderer, error) {
	pages, err := fs.Glob(fsys, "templates/pages/*.html")
	if err != nil {
		return nil, fmt.Errorf("list page templates: %w", err)
	}
	if len(pages) == 0 {
		return nil, fmt.Errorf("no page templates found")
	}
	r := &Renderer{pages: make(map[string]*template.Template, len(pages))}
	for _, path := range pages {
		name := strings.TrimSuffix(path[strings.LastIndex(path, "/")+1:], ".html")
		tmpl, err := template.New("layout.html").Funcs(funcs).ParseFS(fsys,
			"templates/layout.html",
			"templates/partials/*.html",
			path,
		)
		if err != nil {
			return nil, fmt.Errorf("parse page %s: %w", name, err)
		}
		r.pages[name] = tmpl
	}
	return r, nil
}

// Has reports whether a page template exists.
func (r *Renderer) Has(page string) bool {
	_, ok := r.pages[page]
	return ok
}

// Render executes the page inside the shared layout. Output is buffered so a
// template error never produces a partial page.
func (r *Renderer) Render(w io.Writer, data PageData) error {
	tmpl, ok := r.pages[data.Page]
	if !ok {
		return fmt.Errorf("unknown page %q", data.Page)
	}
	if data.Nav == nil {
		data.Nav = Navigation(data.Page)
	}
	if data.Year == 0 {
		data.Year = time.Now().UTC().Year()
	}
	var buf bytes.Buffer
	if err := tmpl.ExecuteTemplate(&buf, "layout", data); err != nil {
		return fmt.Errorf("render %s: %w", data.Page, err)
	}
	_, err := buf.WriteTo(w)
	return err
}
