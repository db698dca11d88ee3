package logger

import (
	"io"
	"log/slog"
	"os"
	"strings"

	"gopkg.in/natefinch/lumberjack.v2"
)

// Logger is the global structured logger
var Logger *slog.Logger

// Options controls where and how verbosely the logger writes.
type Options struct {
	Env   string
	Level string // debug, info, warn, error; empty picks a default for Env
	File  string // optional rotating log file
}

// Init initializes the global logger based on environment
func Init(env string) {
	Setup(Options{Env: env})
}

// Setup builds the global logger from opts. Production logs are JSON,
// everything else is human-readable text.
func Setup(opts Options) {
	level := parseLevel(opts.Level, opts.Env)

	var out io.Writer = os.Stdout
	if opts.File != "" {
		out = io.MultiWriter(os.Stdout, &lumberjack.Logger{
			Filename:   opts.File,
			MaxSize:    50,
			MaxBackups: 5,
			MaxAge:     28,
			LocalTime:  true,
		})
	}

	var handler slog.Handler
	if opts.Env == "production" {
		handler = slog.NewJSONHandler(out, &slog.HandlerOptions{Level: level})
	} else {
		handler = slog.NewTextHandler(out, &slog.HandlerOptions{Level: level})
	}

	Logger = slog.New(handler)
	slog.SetDefault(Logger)
}

func parseLevel(s, env string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	}
	if env == "production" {
		return slog.LevelInfo
	}
	return slog.LevelDebug
}

// With returns a logger with additional key-value pairs
func With(args ...any) *slog.Logger {
	if Logger == nil {
		Init("development")
	}
	return Logger.With(args...)
}

// Info logs an info message
func Info(msg string, args ...any) {
	if Logger == nil {
		Init("development")
	}
	Logger.Info(msg, args...)
}

// Debug logs a debug message
func Debug(msg string, args ...any) {
	if Logger == nil {
		Init("development")
	}
	Logger.Debug(msg, args...)
}

// Warn logs a warning message
func Warn(msg string, args ...any) {
	if Logger == nil {
		Init("development")
	}
	Logger.Warn(msg, args...)
}

// Error logs an error message
func Error(msg string, args ...any) {
	if Logger == nil {
		Init("development")
	}
	Logger.Error(msg, args...)
}
