package auth

import (
	"context"
	"net/http"

	"github.com/agjmills/docchat/internal/logger"
	"github.com/agjmills/docchat/internal/users"
	"github.com/alexedwards/scs/v2"
)

type contextKey string

const UserContextKey contextKey = "user"

// resolve returns the account bound to the current session, if any.
func resolve(store UserLookup, sm *scs.SessionManager, r *http.Request) *users.User {
	id := sm.GetInt(r.Context(), SessionUserKey)
	if id == 0 {
		return nil
	}
	user, err := store.FindByID(id)
	if err != nil {
		logger.Debug("session bound to unknown user", "user_id", id)
		return nil
	}
	return user
}

// RequireAuth redirects to /login unless the session is bound to a known account.
func RequireAuth(store UserLookup, sm *scs.SessionManager) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user := resolve(store, sm, r)
			if user == nil {
				http.Redirect(w, r, "/login", http.StatusSeeOther)
				return
			}

			ctx := context.WithValue(r.Context(), UserContextKey, user)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func OptionalAuth(store UserLookup, sm *scs.SessionManager) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if user := resolve(store, sm, r); user != nil {
				r = r.WithContext(context.WithValue(r.Context(), UserContextKey, user))
			}
			next.ServeHTTP(w, r)
		})
	}
}

// GetUser returns the principal placed in the request by RequireAuth or OptionalAuth.
func GetUser(r *http.Request) *users.User {
	user, _ := r.Context().Value(UserContextKey).(*users.User)
	return user
}
