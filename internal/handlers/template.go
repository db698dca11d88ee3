package handlers

import (
	"bytes"
	"html/template"
	"io/fs"
	"net/http"
	"path"

	"github.com/agjmills/docchat/internal/logger"
	"github.com/agjmills/docchat/internal/templateutil"
)

var (
	templates  *template.Template
	templateFS fs.FS
)

// LoadTemplates parses the shared layout from fsys and keeps fsys for the page
// templates parsed at render time. fsys must contain a templates directory.
func LoadTemplates(fsys fs.FS) error {
	base, err := template.New("").Funcs(templateutil.FuncMap()).ParseFS(fsys, "templates/layout.html")
	if err != nil {
		return err
	}
	templates = base
	templateFS = fsys
	return nil
}

// render executes page inside the layout. Output is buffered so a template
// failure can still produce a clean 500.
func render(w http.ResponseWriter, page string, data map[string]any) error {
	return renderStatus(w, http.StatusOK, page, data)
}

func renderStatus(w http.ResponseWriter, status int, page string, data map[string]any) error {
	tmpl, err := templates.Clone()
	if err != nil {
		return err
	}

	if _, err = tmpl.ParseFS(templateFS, path.Join("templates", page)); err != nil {
		return err
	}

	var buf bytes.Buffer
	if err := tmpl.ExecuteTemplate(&buf, "layout.html", data); err != nil {
		logger.Error("failed to render template", "page", page, "error", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return err
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, err = buf.WriteTo(w)
	return err
}
