package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/agjmills/docchat/internal/metrics"
	"github.com/agjmills/docchat/internal/storage"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"
)

// HealthHandler handles health check requests
type HealthHandler struct {
	db              *gorm.DB
	storageService  storage.StorageBackend
	modelConfigured bool
	version         string
}

// NewHealthHandler creates a new health handler. modelConfigured only affects
// the informational "model" check.
func NewHealthHandler(db *gorm.DB, storageService storage.StorageBackend, modelConfigured bool, version string) *HealthHandler {
	return &HealthHandler{
		db:              db,
		storageService:  storageService,
		modelConfigured: modelConfigured,
		version:         version,
	}
}

// HealthResponse represents the health check response
type HealthResponse struct {
	Status  string           `json:"status"`
	Version string           `json:"version"`
	Checks  map[string]Check `json:"checks"`
	Uptime  string           `json:"uptime,omitempty"`
}

// Check represents an individual health check
type Check struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
	Latency string `json:"latency,omitempty"`
}

var startTime = time.Now()

// Health performs comprehensive health checks
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	checks := make(map[string]Check)
	overallStatus := "healthy"

	// Database and storage are probed concurrently; each check reports its
	// own failure, so the group never returns an error.
	var dbCheck, storageCheck Check
	var g errgroup.Group
	g.Go(func() error {
		dbCheck = h.checkDatabase(r.Context())
		return nil
	})
	g.Go(func() error {
		storageCheck = h.checkStorage(r.Context())
		return nil
	})
	g.Wait()

	checks["database"] = dbCheck
	if dbCheck.Status != "healthy" {
		overallStatus = "unhealthy"
	}
	checks["storage"] = storageCheck
	if storageCheck.Status != "healthy" {
		overallStatus = "unhealthy"
	}

	// Running without a model key is a supported mode, so it never fails the check.
	if h.modelConfigured {
		checks["model"] = Check{Status: "healthy"}
	} else {
		checks["model"] = Check{Status: "healthy", Message: "offline: GEMINI_API_KEY not set"}
	}

	response := HealthResponse{
		Status:  overallStatus,
		Version: h.version,
		Checks:  checks,
		Uptime:  time.Since(startTime).Round(time.Second).String(),
	}

	w.Header().Set("Content-Type", "application/json")

	if overallStatus != "healthy" {
		w.WriteHeader(http.StatusServiceUnavailable)
	}

	json.NewEncoder(w).Encode(response)
}

// checkDatabase verifies database connectivity
func (h *HealthHandler) checkDatabase(ctx context.Context) Check {
	start := time.Now()
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	sqlDB, err := h.db.DB()
	if err != nil {
		return Check{
			Status:  "unhealthy",
			Message: "failed to get database connection: " + err.Error(),
			Latency: time.Since(start).String(),
		}
	}

	metrics.RecordDBStats(sqlDB.Stats())

	if err := sqlDB.PingContext(ctx); err != nil {
		return Check{
			Status:  "unhealthy",
			Message: "database ping failed: " + err.Error(),
			Latency: time.Since(start).String(),
		}
	}

	return Check{
		Status:  "healthy",
		Latency: time.Since(start).String(),
	}
}

// checkStorage verifies storage backend is accessible
func (h *HealthHandler) checkStorage(ctx context.Context) Check {
	start := time.Now()
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	if err := h.storageService.HealthCheck(ctx); err != nil {
		return Check{
			Status:  "unhealthy",
			Message: "storage health check failed: " + err.Error(),
			Latency: time.Since(start).String(),
		}
	}

	return Check{
		Status:  "healthy",
		Latency: time.Since(start).String(),
	}
}
