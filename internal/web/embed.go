package web

import (
	"embed"
	"fmt"
	"html/template"
	"io"
	"io/fs"
	"path"
)

//go:embed templates
var TemplatesFS embed.FS

//go:embed static
var StaticFS embed.FS

// Templates holds one template set per page, each layered on the base
// layout so pages can redefine the same blocks.
type Templates struct {
	pages map[string]*template.Template
}

func LoadTemplates() (*Templates, error) {
	base, err := template.ParseFS(TemplatesFS, "templates/layouts/base.html")
	if err != nil {
		return nil, err
	}

	entries, err := fs.ReadDir(TemplatesFS, "templates/pages")
	if err != nil {
		return nil, err
	}

	t := &Templates{pages: make(map[string]*template.Template, len(entries))}
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}

		page, err := base.Clone()
		if err != nil {
			return nil, err
		}
		if _, err := page.ParseFS(TemplatesFS, path.Join("templates/pages", entry.Name())); err != nil {
			return nil, fmt.Errorf("parsing %s: %w", entry.Name(), err)
		}
		t.pages[entry.Name()] = page
	}

	return t, nil
}

// ExecuteTemplate renders the page through the base layout.
func (t *Templates) ExecuteTemplate(w io.Writer, name string, data interface{}) error {
	page, ok := t.pages[name]
	if !ok {
		return fmt.Errorf("template %q not found", name)
	}
	return page.ExecuteTemplate(w, "base.html", data)
}

// GetStaticFS returns the static file system for serving static files
func GetStaticFS() (fs.FS, error) {
	return fs.Sub(StaticFS, "static")
}
