// Package app is the application bootstrap and dependency injection root.
// It creates and holds all shared infrastructure (DB pool, Echo instance)
// and wires together the account feature packages.
package app

import (
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/hnatiuk/accounts/internal/apperror"
	"github.com/hnatiuk/accounts/internal/avatar"
	"github.com/hnatiuk/accounts/internal/config"
	"github.com/hnatiuk/accounts/internal/middleware"
	"github.com/hnatiuk/accounts/internal/token"
	"github.com/hnatiuk/accounts/internal/users"
)

// App holds all shared dependencies and the Echo HTTP server instance.
// Created once at startup in main.go and used to register all routes.
type App struct {
	// Config holds the loaded application configuration.
	Config *config.Config

	// DB is the MySQL connection pool, the sole source of truth for
	// account state.
	DB *sql.DB

	// Echo is the HTTP server instance.
	Echo *echo.Echo

	// Users is the account service; also the session gate.
	Users users.Service

	handler *users.Handler
}

// New creates a new App instance with the given dependencies and configures
// the Echo server with global middleware and error handling.
func New(cfg *config.Config, db *sql.DB) *App {
	e := echo.New()

	// Disable Echo's default banner and startup message -- we log our own.
	e.HideBanner = true
	e.HidePort = true

	// Configure trusted reverse proxy IPs so c.RealIP() returns the actual
	// client IP instead of the proxy's IP.
	middleware.TrustedProxies(e, []string{
		"127.0.0.0/8",    // Localhost
		"10.0.0.0/8",     // Docker default bridge
		"172.16.0.0/12",  // Docker bridge (alternate range)
		"192.168.0.0/16", // Common LAN
		"fd00::/8",       // IPv6 private
	})

	// Wire the account feature bottom-up: repository, token issuer,
	// service, avatar ingestion, handler.
	repo := users.NewRepository(db)
	issuer := token.NewIssuer([]byte(cfg.Auth.SecretKey), cfg.Auth.TokenTTL)
	svc := users.NewService(repo, issuer, cfg.Auth.BcryptCost, cfg.Subscriptions)
	avatars := avatar.NewService(repo, cfg.Upload.AvatarDir)
	handler := users.NewHandler(svc, avatars, cfg.Upload.MaxSize, cfg.Upload.TmpDir)

	app := &App{
		Config:  cfg,
		DB:      db,
		Echo:    e,
		Users:   svc,
		handler: handler,
	}

	// Register global middleware in order of execution.
	app.setupMiddleware()

	// Register the custom error handler that maps AppErrors to HTTP responses.
	e.HTTPErrorHandler = app.errorHandler

	// Serve processed avatars statically.
	e.Static("/avatars", cfg.Upload.AvatarDir)

	return app
}

// setupMiddleware registers global middleware on the Echo instance.
// Order matters: outermost (recovery) runs first.
func (a *App) setupMiddleware() {
	// Panic recovery -- must be outermost to catch panics from all other middleware.
	a.Echo.Use(middleware.Recovery())

	// Request logging -- log every request with method, path, status, latency.
	a.Echo.Use(middleware.RequestLogger())

	// Security headers on every response.
	a.Echo.Use(middleware.SecurityHeaders())

	// CORS -- allow cross-origin requests from the configured front-end.
	a.Echo.Use(middleware.CORS(middleware.CORSConfig{
		AllowedOrigins:   []string{a.Config.BaseURL},
		AllowCredentials: true,
	}))
}

// errorHandler is the custom Echo error handler. It maps domain errors
// (AppError) to JSON responses with the taxonomy's status code. Internal
// errors surface the underlying message -- this is an internal-facing API;
// a public deployment would sanitize 500s here.
func (a *App) errorHandler(err error, c echo.Context) {
	// Don't double-write if response is already committed.
	if c.Response().Committed {
		return
	}

	code := http.StatusInternalServerError
	message := "An unexpected error occurred"

	var appErr *apperror.AppError
	if errors.As(err, &appErr) {
		code = appErr.Code
		message = appErr.Message

		// Log internal errors with the underlying cause.
		if appErr.Internal != nil {
			slog.Error("internal error",
				slog.String("type", appErr.Type),
				slog.String("message", appErr.Message),
				slog.Any("internal", appErr.Internal),
				slog.String("path", c.Request().URL.Path),
			)
		}
	} else {
		// Check for Echo's built-in HTTP errors (e.g., 404 from router).
		var echoErr *echo.HTTPError
		if errors.As(err, &echoErr) {
			code = echoErr.Code
			if msg, ok := echoErr.Message.(string); ok {
				message = msg
			} else {
				message = http.StatusText(code)
			}
		} else {
			// Truly unexpected error -- log it and surface its message.
			slog.Error("unhandled error",
				slog.Any("error", err),
				slog.String("path", c.Request().URL.Path),
			)
			message = err.Error()
		}
	}

	c.JSON(code, map[string]string{"message": message})
}

// Start begins listening for HTTP requests on the configured port.
func (a *App) Start() error {
	addr := fmt.Sprintf(":%d", a.Config.Port)
	slog.Info("starting accounts server",
		slog.String("addr", addr),
		slog.String("env", a.Config.Env),
	)
	return a.Echo.Start(addr)
}
