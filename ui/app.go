// Package ui exposes the analysis engine over HTTP: a chi JSON API for
// programmatic access and a gin-rendered dashboard for the browser.
package ui

import (
	"log"
	"net/http"

	"datalab/app"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// App is the JSON API application
type App struct {
	router   *chi.Mux
	imports  *app.ImportService
	analysis *app.AnalysisService
	cleaning *app.CleaningService
	audits   *app.AuditService

	maxUploadBytes int64
}

// Config holds API application configuration
type Config struct {
	MaxUploadBytes int64
}

// NewApp creates the API application over the wired services
func NewApp(config Config, imports *app.ImportService, analysis *app.AnalysisService, cleaning *app.CleaningService, audits *app.AuditService) *App {
	a := &App{
		router:         chi.NewRouter(),
		imports:        imports,
		analysis:       analysis,
		cleaning:       cleaning,
		audits:         audits,
		maxUploadBytes: config.MaxUploadBytes,
	}

	a.setupMiddleware()
	a.setupRoutes()

	return a
}

// setupMiddleware configures HTTP middleware
func (a *App) setupMiddleware() {
	a.router.Use(middleware.Logger)
	a.router.Use(middleware.Recoverer)
	a.router.Use(middleware.Compress(5))
}

// setupRoutes configures the application routes
func (a *App) setupRoutes() {
	a.router.Get("/api/health", a.handleHealth)

	// Dataset slot
	a.router.Post("/api/analysis/import", a.handleImport)
	a.router.Get("/api/analysis/datasets", a.handleDatasets)
	a.router.Delete("/api/analysis/datasets", a.handleClearDataset)

	// Analysis
	a.router.Post("/api/analysis/quality-check", a.handleQualityCheck)
	a.router.Post("/api/analysis/describe", a.handleDescribe)
	a.router.Post("/api/analysis/run", a.handleRun)
	a.router.Post("/api/analysis/assumptions", a.handleAssumptions)
	a.router.Post("/api/analysis/reliability", a.handleReliability)
	a.router.Get("/api/analysis/tests", a.handleTests)

	// Cleaning and history
	a.router.Post("/api/analysis/clean", a.handleClean)
	a.router.Post("/api/analysis/restore", a.handleRestore)
	a.router.Get("/api/analysis/audit", a.handleAudit)
	a.router.Post("/api/analysis/audit/undo", a.handleAuditUndo)
}

// Router exposes the configured mux, for embedding in another server or
// driving the app with httptest.
func (a *App) Router() http.Handler {
	return a.router
}

// Start starts the HTTP server
func (a *App) Start(addr string) error {
	log.Printf("Starting DataLab API server on %s", addr)
	return http.ListenAndServe(addr, a.router)
}
