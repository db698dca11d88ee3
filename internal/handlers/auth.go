package handlers

import (
	"net/http"

	"github.com/agjmills/docchat/internal/auth"
	"github.com/agjmills/docchat/internal/flash"
	"github.com/agjmills/docchat/internal/logger"
	"github.com/agjmills/docchat/internal/metrics"
	"github.com/agjmills/docchat/internal/sessionstate"
	"github.com/alexedwards/scs/v2"
)

// Flash texts shown on the login page.
const (
	InvalidCredentialsMessage = "Invalid credentials. Try ND / test for demo."
	LoggedOutMessage          = "Logged out."
)

type AuthHandler struct {
	users          auth.UserLookup
	sessionManager *scs.SessionManager
	state          *sessionstate.Store
	bcryptCost     int
}

func NewAuthHandler(users auth.UserLookup, sessionManager *scs.SessionManager, state *sessionstate.Store, bcryptCost int) *AuthHandler {
	return &AuthHandler{
		users:          users,
		sessionManager: sessionManager,
		state:          state,
		bcryptCost:     bcryptCost,
	}
}

func (h *AuthHandler) ShowLogin(w http.ResponseWriter, r *http.Request) {
	if auth.GetUser(r) != nil {
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}

	render(w, "login.html", map[string]any{
		"Title": "Login",
		"Flash": flash.Get(r.Context(), h.sessionManager),
	})
}

// Login binds the account to a fresh session token and starts an empty chat.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	username := r.FormValue("username")
	password := r.FormValue("password")

	user, err := auth.Authenticate(h.users, username, password, h.bcryptCost)
	if err != nil {
		metrics.RecordLogin(false)
		logger.Info("login rejected", "username", username)
		flash.Error(r.Context(), h.sessionManager, InvalidCredentialsMessage)
		render(w, "login.html", map[string]any{
			"Title":    "Login",
			"Flash":    flash.Get(r.Context(), h.sessionManager),
			"Username": username,
		})
		return
	}

	if err := h.sessionManager.RenewToken(r.Context()); err != nil {
		http.Error(w, "Failed to create session", http.StatusInternalServerError)
		return
	}
	h.sessionManager.Put(r.Context(), auth.SessionUserKey, user.ID)
	h.state.ResetHistory(r.Context())
	metrics.RecordLogin(true)
	logger.Info("user logged in", "username", user.Username)

	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// Logout drops the whole session, including chat history and the last upload.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	if err := h.sessionManager.Destroy(r.Context()); err != nil {
		http.Error(w, "Failed to logout", http.StatusInternalServerError)
		return
	}
	flash.Info(r.Context(), h.sessionManager, LoggedOutMessage)

	http.Redirect(w, r, "/login", http.StatusSeeOther)
}
