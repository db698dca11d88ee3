package middleware

import (
	"bytes"
	"fmt"
	"html/template"
	"io/fs"
	"net/http"
	"path"
	"runtime/debug"

	"github.com/agjmills/docchat/internal/logger"
	"github.com/agjmills/docchat/internal/templateutil"
)

var (
	errorTemplates *template.Template
	errorFS        fs.FS
)

// LoadErrorTemplates loads the layout used by the error pages from fsys.
func LoadErrorTemplates(fsys fs.FS) error {
	tmpl, err := template.New("").Funcs(templateutil.FuncMap()).ParseFS(fsys, "templates/layout.html")
	if err != nil {
		return err
	}
	errorTemplates = tmpl
	errorFS = fsys
	return nil
}

// NotFoundHandler renders a custom 404 page
func NotFoundHandler(w http.ResponseWriter, r *http.Request) {
	renderError(w, http.StatusNotFound, "404.html", map[string]any{
		"Title": "Page Not Found",
	})
}

// InternalErrorHandler renders a custom 500 page
func InternalErrorHandler(w http.ResponseWriter, r *http.Request) {
	renderError(w, http.StatusInternalServerError, "500.html", map[string]any{
		"Title": "Internal Server Error",
	})
}

func renderError(w http.ResponseWriter, status int, page string, data map[string]any) {
	if errorTemplates == nil {
		w.WriteHeader(status)
		fmt.Fprintf(w, "Error: %s", data["Title"])
		return
	}

	tmpl, err := errorTemplates.Clone()
	if err == nil {
		_, err = tmpl.ParseFS(errorFS, path.Join("templates", page))
	}
	var buf bytes.Buffer
	if err == nil {
		err = tmpl.ExecuteTemplate(&buf, "layout.html", data)
	}
	if err != nil {
		logger.Error("failed to render error page", "page", page, "error", err)
		w.WriteHeader(status)
		fmt.Fprintf(w, "Error: %s", data["Title"])
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	buf.WriteTo(w)
}

// RecoverMiddleware catches panics and renders 500 pages
func RecoverMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if err := recover(); err != nil {
				if err == http.ErrAbortHandler {
					panic(err)
				}
				logger.Error("panic recovered",
					"error", err,
					"method", r.Method,
					"path", r.URL.Path,
					"stack", string(debug.Stack()),
				)
				InternalErrorHandler(w, r)
			}
		}()
		next.ServeHTTP(w, r)
	})
}
