package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/agjmills/docchat/internal/auth"
	"github.com/agjmills/docchat/internal/chat"
	"github.com/agjmills/docchat/internal/config"
	"github.com/agjmills/docchat/internal/database"
	"github.com/agjmills/docchat/internal/extract"
	"github.com/agjmills/docchat/internal/handlers"
	"github.com/agjmills/docchat/internal/ingest"
	"github.com/agjmills/docchat/internal/llm"
	"github.com/agjmills/docchat/internal/logger"
	internalMiddleware "github.com/agjmills/docchat/internal/middleware"
	"github.com/agjmills/docchat/internal/routes"
	"github.com/agjmills/docchat/internal/storage"
	"github.com/agjmills/docchat/internal/users"
	"github.com/agjmills/docchat/web"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logger.Setup(logger.Options{Env: cfg.Env, Level: cfg.LogLevel, File: cfg.LogFile})

	logger.Info("configuration loaded",
		"max_upload_mb", float64(cfg.MaxUploadSize)/(1024*1024),
		"storage_backend", cfg.StorageBackend,
		"ocr_backend", cfg.OCRBackend,
		"default_lang", cfg.DefaultLang,
		"env", cfg.Env,
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := database.Connect(cfg)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	if err := database.Migrate(db); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}

	if err := handlers.LoadTemplates(web.FS); err != nil {
		log.Fatalf("Failed to load templates: %v", err)
	}

	if err := internalMiddleware.LoadErrorTemplates(web.FS); err != nil {
		log.Fatalf("Failed to load error templates: %v", err)
	}

	accounts, err := users.Open(cfg.UsersFile, func(password string) (string, error) {
		return auth.HashPassword(password, cfg.BcryptCost)
	})
	if err != nil {
		log.Fatalf("Failed to load users: %v", err)
	}

	storageService, err := storage.NewBackendFromConfig(cfg)
	if err != nil {
		log.Fatalf("Failed to initialize storage: %v", err)
	}
	if err := storageService.ValidateAccess(ctx); err != nil {
		log.Fatalf("Storage is not writable: %v", err)
	}

	sessionManager, err := auth.NewSessionManager(db, cfg)
	if err != nil {
		log.Fatalf("Failed to initialize session manager: %v", err)
	}

	var imageExtractor extract.Extractor
	switch cfg.OCRBackend {
	case "textract":
		imageExtractor, err = extract.NewTextractExtractor(ctx, cfg.AWSRegion)
		if err != nil {
			log.Fatalf("Failed to initialize Textract: %v", err)
		}
	default:
		imageExtractor = extract.NewTesseractExtractor()
	}
	files := ingest.NewService(storageService, db, extract.NewRegistry(imageExtractor), cfg.PreviewLimit)

	var (
		model      chat.Model
		translator chat.Translator
	)
	modelConfigured := cfg.GeminiAPIKey != ""
	if modelConfigured {
		gemini, err := llm.NewGemini(ctx, cfg.GeminiAPIKey, cfg.GeminiModel)
		if err != nil {
			log.Fatalf("Failed to initialize Gemini client: %v", err)
		}
		defer gemini.Close()
		model, translator = gemini, gemini
	} else {
		logger.Warn("GEMINI_API_KEY not set, chat replies will report the missing key")
		model, translator = llm.Offline{}, llm.Offline{}
	}
	orchestrator := chat.NewOrchestrator(model, translator, cfg.DefaultLang, cfg.HistoryLimit)

	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(internalMiddleware.LoggingMiddleware)
	r.Use(internalMiddleware.RecoverMiddleware)
	r.Use(internalMiddleware.SecurityHeaders)

	versionInfo := fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, date)
	routes.Setup(r, cfg, routes.Services{
		DB:              db,
		Users:           accounts,
		Storage:         storageService,
		Files:           files,
		Chat:            orchestrator,
		SessionManager:  sessionManager,
		ModelConfigured: modelConfigured,
	}, versionInfo)

	addr := fmt.Sprintf("%s:%s", cfg.Host, cfg.Port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		logger.Info("shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("graceful shutdown failed", "error", err)
		}
	}()

	logger.Info("starting docchat server",
		"address", addr,
		"environment", cfg.Env,
		"version", versionInfo,
		"users", len(accounts.All()),
	)

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatalf("Server failed to start: %v", err)
	}
}
