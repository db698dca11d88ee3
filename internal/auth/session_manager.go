package auth

import (
	"net/http"

	"github.com/agjmills/docchat/internal/config"
	"github.com/alexedwards/scs/postgresstore"
	"github.com/alexedwards/scs/sqlite3store"
	"github.com/alexedwards/scs/v2"
	"gorm.io/gorm"
)

// SessionUserKey is the session key holding the logged-in account id.
const SessionUserKey = "user_id"

// NewSessionManager creates and configures an scs session manager
func NewSessionManager(db *gorm.DB, cfg *config.Config) (*scs.SessionManager, error) {
	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}

	sessionManager := scs.New()
	sessionManager.Lifetime = cfg.SessionLifetime()
	sessionManager.Cookie.Name = "session_token"
	sessionManager.Cookie.HttpOnly = true
	sessionManager.Cookie.SameSite = http.SameSiteLaxMode
	sessionManager.Cookie.Secure = cfg.Env == "production" // Only use Secure in production with HTTPS

	switch cfg.DBType {
	case "postgres":
		sessionManager.Store = postgresstore.New(sqlDB)
	case "sqlite":
		sessionManager.Store = sqlite3store.New(sqlDB)
	default:
		// Falls back to the in-memory store from scs.New()
	}

	return sessionManager, nil
}
