package handlers

import (
	"errors"
	"net/http"

	"github.com/agjmills/docchat/internal/auth"
	"github.com/agjmills/docchat/internal/flash"
	"github.com/agjmills/docchat/internal/ingest"
	"github.com/agjmills/docchat/internal/logger"
	"github.com/agjmills/docchat/internal/sessionstate"
	"github.com/alexedwards/scs/v2"
	"github.com/go-chi/chi/v5"
)

type PageHandler struct {
	files          *ingest.Service
	sessionManager *scs.SessionManager
	state          *sessionstate.Store
	defaultLang    string
}

func NewPageHandler(files *ingest.Service, sessionManager *scs.SessionManager, state *sessionstate.Store, defaultLang string) *PageHandler {
	return &PageHandler{
		files:          files,
		sessionManager: sessionManager,
		state:          state,
		defaultLang:    defaultLang,
	}
}

// ShowChat renders the chat shell with the session's history.
func (h *PageHandler) ShowChat(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	data := map[string]any{
		"Title":       "Chat",
		"User":        auth.GetUser(r),
		"Flash":       flash.Get(ctx, h.sessionManager),
		"History":     h.state.History(ctx),
		"DefaultLang": h.defaultLang,
	}
	if file, ok := h.state.LastFile(ctx); ok {
		data["LastFile"] = file
	}
	render(w, "chat.html", data)
}

func (h *PageHandler) ShowFiles(w http.ResponseWriter, r *http.Request) {
	user := auth.GetUser(r)

	files, err := h.files.List(r.Context(), user.Username)
	if err != nil {
		logger.Error("failed to list files", "username", user.Username, "error", err)
		http.Error(w, "Failed to list files", http.StatusInternalServerError)
		return
	}

	render(w, "files.html", map[string]any{
		"Title": "Files",
		"User":  user,
		"Flash": flash.Get(r.Context(), h.sessionManager),
		"Files": files,
	})
}

// ViewText shows the full extracted text of one of the user's files.
func (h *PageHandler) ViewText(w http.ResponseWriter, r *http.Request) {
	user := auth.GetUser(r)
	filename := chi.URLParam(r, "filename")

	text, err := h.files.Text(r.Context(), user.Username, filename)
	if errors.Is(err, ingest.ErrNotFound) {
		renderStatus(w, http.StatusNotFound, "404.html", map[string]any{
			"Title": "Page Not Found",
			"User":  user,
		})
		return
	}
	if err != nil {
		logger.Error("failed to load file text", "username", user.Username, "filename", filename, "error", err)
		http.Error(w, "Failed to load file", http.StatusInternalServerError)
		return
	}

	render(w, "view_text.html", map[string]any{
		"Title":    filename,
		"User":     user,
		"Filename": filename,
		"Text":     text,
	})
}
