package view

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"io/fs"
	"net/http"
	"path"
	"strings"
	"time"

	"github.com/508dev/interview-service/pkg/user"
	log "github.com/sirupsen/logrus"
)

//go:embed templates
var templateFS embed.FS

const (
	LevelError   = "error"
	LevelSuccess = "success"
	LevelInfo    = "info"
)

// Message is a one-shot notice shown on the next rendered page.
type Message struct {
	Level string
	Text  string
}

// Common holds request scoped values every page needs.
type Common struct {
	User      *user.User
	Messages  []Message
	CSRFField template.HTML
	Path      string
}

// Page is the value passed to each template.
type Page struct {
	Common
	Title string
	Data  any
}

// CommonFunc collects Common for a request. It runs before the status line
// is written so it may set cookies.
type CommonFunc func(w http.ResponseWriter, r *http.Request) Common

type Renderer struct {
	pages    map[string]*template.Template
	partials *template.Template
	common   CommonFunc
}

var funcs = template.FuncMap{
	"datetime": func(t time.Time) string {
		return t.Format("January 2, 2006 at 3:04 PM MST")
	},
	"date": func(t time.Time) string {
		return t.Format("January 2, 2006")
	},
	"isoformat": func(t time.Time) string {
		return t.UTC().Format(time.RFC3339)
	},
	"hasTag": func(ids map[int]bool, id int) bool {
		return ids[id]
	},
	"orDefault": func(value, fallback string) string {
		if strings.TrimSpace(value) == "" {
			return fallback
		}
		return value
	},
}

func NewRenderer(common CommonFunc) (*Renderer, error) {
	base, err := template.New("").Funcs(funcs).ParseFS(templateFS, "templates/layout/*.html", "templates/partials/*.html")
	if err != nil {
		return nil, fmt.Errorf("failed to parse layout templates: %w", err)
	}

	pages := map[string]*template.Template{}
	err = fs.WalkDir(templateFS, "templates/pages", func(p string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return err
		}
		name := strings.TrimSuffix(strings.TrimPrefix(p, "templates/pages/"), path.Ext(p))
		t, err := template.Must(base.Clone()).ParseFS(templateFS, p)
		if err != nil {
			return fmt.Errorf("failed to parse page %s: %w", name, err)
		}
		pages[name] = t
		return nil
	})
	if err != nil {
		return nil, err
	}

	if common == nil {
		common = func(w http.ResponseWriter, r *http.Request) Common { return Common{Path: r.URL.Path} }
	}
	return &Renderer{pages: pages, partials: base, common: common}, nil
}

// Page renders a full page inside the base layout.
func (v *Renderer) Page(w http.ResponseWriter, r *http.Request, status int, name, title string, data any) {
	t, ok := v.pages[name]
	if !ok {
		log.Errorf("page template %s not found", name)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	v.execute(w, r, status, t, "base", title, data)
}

// Partial renders a named fragment without the layout, used for HTMX swaps.
func (v *Renderer) Partial(w http.ResponseWriter, r *http.Request, status int, name string, data any) {
	if v.partials.Lookup(name) == nil {
		log.Errorf("partial template %s not found", name)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	v.execute(w, r, status, v.partials, name, "", data)
}

// NotFound renders the 404 page.
func (v *Renderer) NotFound(w http.ResponseWriter, r *http.Request) {
	v.Page(w, r, http.StatusNotFound, "errors/404", "Page Not Found", nil)
}

func (v *Renderer) execute(w http.ResponseWriter, r *http.Request, status int, t *template.Template, name, title string, data any) {
	page := Page{Common: v.common(w, r), Title: title, Data: data}
	var buf bytes.Buffer
	if err := t.ExecuteTemplate(&buf, name, page); err != nil {
		log.Errorf("failed to render %s: %v", name, err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if _, err := buf.WriteTo(w); err != nil {
		log.Debugf("failed to write response: %v", err)
	}
}

// IsHTMX reports whether the request was issued by HTMX.
func IsHTMX(r *http.Request) bool {
	return r.Header.Get("HX-Request") != ""
}
