package routes

import (
	"io/fs"
	"net"
	"net/http"
	"strings"
	"time"

	csrf "filippo.io/csrf/gorilla"
	"github.com/agjmills/docchat/internal/auth"
	"github.com/agjmills/docchat/internal/chat"
	"github.com/agjmills/docchat/internal/config"
	"github.com/agjmills/docchat/internal/handlers"
	"github.com/agjmills/docchat/internal/ingest"
	"github.com/agjmills/docchat/internal/logger"
	"github.com/agjmills/docchat/internal/middleware"
	"github.com/agjmills/docchat/internal/sessionstate"
	"github.com/agjmills/docchat/internal/storage"
	"github.com/agjmills/docchat/web"
	"github.com/alexedwards/scs/v2"
	"github.com/didip/tollbooth/v7"
	"github.com/didip/tollbooth/v7/limiter"
	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"gorm.io/gorm"
)

// parseTrustedCIDRs parses a list of CIDR strings into net.IPNet objects.
// Invalid CIDRs are logged and skipped.
func parseTrustedCIDRs(cidrs []string) []*net.IPNet {
	var result []*net.IPNet
	for _, cidr := range cidrs {
		_, ipNet, err := net.ParseCIDR(cidr)
		if err != nil {
			// Try parsing as a single IP (e.g., "127.0.0.1" without mask)
			ip := net.ParseIP(cidr)
			if ip != nil {
				// Convert single IP to /32 (IPv4) or /128 (IPv6)
				if ip.To4() != nil {
					_, ipNet, _ = net.ParseCIDR(cidr + "/32")
				} else {
					_, ipNet, _ = net.ParseCIDR(cidr + "/128")
				}
				if ipNet != nil {
					result = append(result, ipNet)
					continue
				}
			}
			logger.Warn("invalid trusted proxy CIDR, skipping", "cidr", cidr, "error", err)
			continue
		}
		result = append(result, ipNet)
	}
	return result
}

// isIPInCIDRs checks if the given IP string is contained in any of the CIDR ranges.
func isIPInCIDRs(ipStr string, cidrs []*net.IPNet) bool {
	// Handle host:port format from RemoteAddr
	host, _, err := net.SplitHostPort(ipStr)
	if err != nil {
		// No port, use as-is
		host = ipStr
	}

	ip := net.ParseIP(host)
	if ip == nil {
		return false
	}

	for _, cidr := range cidrs {
		if cidr.Contains(ip) {
			return true
		}
	}
	return false
}

// getClientIP extracts the client IP, preferring X-Real-IP or the leftmost
// X-Forwarded-For entry if from a trusted proxy. For multi-hop proxy chains
// X-Forwarded-For is parsed to get the original client IP.
func getClientIP(r *http.Request, trustedCIDRs []*net.IPNet) string {
	// First check if RemoteAddr is from a trusted proxy
	if len(trustedCIDRs) > 0 && isIPInCIDRs(r.RemoteAddr, trustedCIDRs) {
		// Trust X-Real-IP header if set (single-proxy setup)
		if realIP := r.Header.Get("X-Real-IP"); realIP != "" {
			return realIP
		}
		// Trust X-Forwarded-For header (multi-hop proxy chains)
		// Format: X-Forwarded-For: client, proxy1, proxy2
		// We want the leftmost (original client) IP
		if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
			ips := strings.Split(xff, ",")
			if len(ips) > 0 {
				clientIP := strings.TrimSpace(ips[0])
				if clientIP != "" {
					return clientIP
				}
			}
		}
	}
	return r.RemoteAddr
}

// rateLimit keys the limiter on the client IP as resolved by getClientIP, so
// forwarding headers only count when they come from a trusted proxy.
func rateLimit(lmt *limiter.Limiter, trustedCIDRs []*net.IPNet) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if httpErr := tollbooth.LimitByKeys(lmt, []string{getClientIP(r, trustedCIDRs)}); httpErr != nil {
				logger.Warn("rate limit exceeded", "path", r.URL.Path, "remote_addr", r.RemoteAddr)
				w.Header().Set("Content-Type", lmt.GetMessageContentType())
				w.WriteHeader(httpErr.StatusCode)
				w.Write([]byte(httpErr.Message))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// Services are the application components the routes are wired to.
type Services struct {
	DB              *gorm.DB
	Users           auth.UserLookup
	Storage         storage.StorageBackend
	Files           *ingest.Service
	Chat            *chat.Orchestrator
	SessionManager  *scs.SessionManager
	ModelConfigured bool
}

// Setup configures HTTP routes and middleware on the provided chi.Router: health
// and metrics endpoints, static assets, login/logout, and the authenticated chat,
// upload and file pages.
//
// CSRF protection (filippo.io/csrf) uses Fetch Metadata headers (Sec-Fetch-Site,
// Origin) rather than tokens and never reads the request body, so it also
// guards the streaming POST /upload. Cross-site and same-site browser requests
// are rejected; same-origin requests and non-browser clients without those
// headers pass.
func Setup(r chi.Router, cfg *config.Config, svc Services, version string) {
	state := sessionstate.New(svc.SessionManager)

	authHandler := handlers.NewAuthHandler(svc.Users, svc.SessionManager, state, cfg.BcryptCost)
	pageHandler := handlers.NewPageHandler(svc.Files, svc.SessionManager, state, cfg.DefaultLang)
	uploadHandler := handlers.NewUploadHandler(svc.Files, state, cfg.MaxUploadSize)
	chatHandler := handlers.NewChatHandler(svc.Chat, state)
	healthHandler := handlers.NewHealthHandler(svc.DB, svc.Storage, svc.ModelConfigured, version)

	// Allow 5 login attempts per 15 minutes per IP
	authRateLimiter := tollbooth.NewLimiter(5.0/15.0/60.0, &limiter.ExpirableOptions{
		DefaultExpirationTTL: 15 * time.Minute,
	})
	authRateLimiter.SetBurst(5)
	authRateLimiter.SetMessage("Too many requests. Please try again later.")
	trustedCIDRs := parseTrustedCIDRs(cfg.TrustedProxyCIDRs)

	var csrfMiddleware func(http.Handler) http.Handler
	if cfg.CSRFEnabled {
		csrfMiddleware = csrf.Protect(
			[]byte(cfg.SessionSecret),
			csrf.ErrorHandler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				logger.Warn("csrf validation failed",
					"reason", csrf.FailureReason(r),
					"method", r.Method,
					"path", r.URL.Path,
				)
				http.Error(w, "Forbidden", http.StatusForbidden)
			})),
		)
	} else {
		csrfMiddleware = func(next http.Handler) http.Handler {
			return next
		}
	}

	r.Get("/health", healthHandler.Health)
	r.Handle("/metrics", promhttp.Handler())

	static, err := fs.Sub(web.FS, "static")
	if err != nil {
		panic(err)
	}
	r.Handle("/static/*", http.StripPrefix("/static/", http.FileServerFS(static)))

	r.NotFound(middleware.NotFoundHandler)

	r.Group(func(r chi.Router) {
		r.Use(svc.SessionManager.LoadAndSave)
		r.Use(auth.OptionalAuth(svc.Users, svc.SessionManager))
		r.Get("/login", authHandler.ShowLogin)
	})

	r.Group(func(r chi.Router) {
		r.Use(svc.SessionManager.LoadAndSave)
		r.Use(rateLimit(authRateLimiter, trustedCIDRs))
		r.Post("/login", authHandler.Login)
	})

	r.Group(func(r chi.Router) {
		r.Use(svc.SessionManager.LoadAndSave)
		r.Use(csrfMiddleware)
		r.Get("/logout", authHandler.Logout)
		r.Post("/logout", authHandler.Logout)
	})

	r.Group(func(r chi.Router) {
		r.Use(svc.SessionManager.LoadAndSave)
		r.Use(auth.RequireAuth(svc.Users, svc.SessionManager))
		r.Use(csrfMiddleware)
		r.Get("/", pageHandler.ShowChat)
		r.Get("/files", pageHandler.ShowFiles)
		r.Get("/view_text/{filename}", pageHandler.ViewText)
		r.Get("/uploads/{username}/{filename}", uploadHandler.ServeUpload)
		r.Post("/chat", chatHandler.Chat)
		r.Post("/upload", uploadHandler.Upload)
	})
}
