// Package page renders the profile page and serves its static assets.
package page

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"io"
	"io/fs"
	"net/http"
	"strings"

	"github.com/microcosm-cc/bluemonday"
	"github.com/yuin/goldmark"

	"github.com/mdnooraj/folio/internal/profile"
)

//go:embed templates/*.tmpl
var templatesFS embed.FS

//go:embed static
var staticFS embed.FS

// View carries the per-request parts of the page.
type View struct {
	Year   int
	Notice string
	// Errors maps contact form field names to messages.
	Errors map[string]string
	// Form holds the values to re-populate the contact form with.
	Form map[string]string
}

// Renderer renders the page for one profile record. Markdown fields are
// converted once at construction.
type Renderer struct {
	tmpl *template.Template
	data pageData
}

type pageData struct {
	Record     profile.Record
	Summary    template.HTML
	Experience []experienceView
	View
}

type experienceView struct {
	profile.Experience
	BulletsHTML []template.HTML
}

// New builds a Renderer for rec.
func New(rec profile.Record) (*Renderer, error) {
	tmpl, err := template.New("index.html.tmpl").Funcs(template.FuncMap{
		"field": func(m map[string]string, k string) string { return m[k] },
	}).ParseFS(templatesFS, "templates/index.html.tmpl")
	if err != nil {
		return nil, fmt.Errorf("parsing page template: %w", err)
	}

	md := newMarkdown()
	summary, err := md.block(rec.Summary)
	if err != nil {
		return nil, fmt.Errorf("rendering summary: %w", err)
	}

	exps := make([]experienceView, 0, len(rec.Experience))
	for _, e := range rec.Experience {
		ev := experienceView{Experience: e}
		for _, b := range e.Bullets {
			h, err := md.inline(b)
			if err != nil {
				return nil, fmt.Errorf("rendering bullet for %s: %w", e.Company, err)
			}
			ev.BulletsHTML = append(ev.BulletsHTML, h)
		}
		exps = append(exps, ev)
	}

	return &Renderer{
		tmpl: tmpl,
		data: pageData{Record: rec, Summary: summary, Experience: exps},
	}, nil
}

// Render writes the full page for v to w.
func (r *Renderer) Render(w io.Writer, v View) error {
	d := r.data
	d.View = v
	var buf bytes.Buffer
	if err := r.tmpl.Execute(&buf, d); err != nil {
		return fmt.Errorf("executing page template: %w", err)
	}
	_, err := buf.WriteTo(w)
	return err
}

// Static returns a handler serving the embedded assets. Mount it with the
// /static/ prefix stripped.
func Static() http.Handler {
	sub, err := fs.Sub(staticFS, "static")
	if err != nil {
		panic(err)
	}
	return http.FileServer(http.FS(sub))
}

type markdown struct {
	md     goldmark.Markdown
	policy *bluemonday.Policy
}

func newMarkdown() *markdown {
	return &markdown{md: goldmark.New(), policy: bluemonday.UGCPolicy()}
}

func (m *markdown) block(src string) (template.HTML, error) {
	if strings.TrimSpace(src) == "" {
		return "", nil
	}
	var buf bytes.Buffer
	if err := m.md.Convert([]byte(src), &buf); err != nil {
		return "", err
	}
	return template.HTML(m.policy.SanitizeBytes(buf.Bytes())), nil
}

// inline renders src and drops the paragraph wrapper goldmark adds around a
// single line.
func (m *markdown) inline(src string) (template.HTML, error) {
	h, err := m.block(src)
	if err != nil {
		return "", err
	}
	s := strings.TrimSpace(string(h))
	if strings.HasPrefix(s, "<p>") && strings.HasSuffix(s, "</p>") && strings.Count(s, "<p>") == 1 {
		s = strings.TrimSuffix(strings.TrimPrefix(s, "<p>"), "</p>")
	}
	return template.HTML(s), nil
}
