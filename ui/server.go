package ui

import (
	"embed"
	"fmt"
	"html/template"
	"io/fs"
	"log"
	"net/http"

	"datalab/app"

	"github.com/gin-gonic/gin"
)

//go:embed templates/* static/*
var embeddedFiles embed.FS

// Server renders the browser dashboard: upload form, quality view,
// descriptives view, analysis runner, and the audit appendix.
type Server struct {
	router    *gin.Engine
	templates *template.Template

	imports  *app.ImportService
	analysis *app.AnalysisService
	cleaning *app.CleaningService
	audits   *app.AuditService
}

// NewServer creates the dashboard server over the wired services
func NewServer(imports *app.ImportService, analysis *app.AnalysisService, cleaning *app.CleaningService, audits *app.AuditService) (*Server, error) {
	funcMap := template.FuncMap{
		"mul": func(a, b float64) float64 { return a * b },
		"add": func(a, b int) int { return a + b },
		"pct": func(v float64) string { return fmt.Sprintf("%.1f%%", v) },
		"f2":  func(v float64) string { return fmt.Sprintf("%.2f", v) },
	}

	templates, err := template.New("").Funcs(funcMap).ParseFS(embeddedFiles, "templates/*.html", "templates/fragments/*.html")
	if err != nil {
		return nil, fmt.Errorf("failed to parse templates: %w", err)
	}

	s := &Server{
		router:    gin.Default(),
		templates: templates,
		imports:   imports,
		analysis:  analysis,
		cleaning:  cleaning,
		audits:    audits,
	}

	s.setupRoutes()

	return s, nil
}

// setupRoutes configures the dashboard routes
func (s *Server) setupRoutes() {
	staticFS, err := fs.Sub(embeddedFiles, "static")
	if err != nil {
		log.Printf("[Dashboard] Static assets unavailable: %v", err)
	} else {
		s.router.StaticFS("/static", http.FS(staticFS))
	}

	s.router.GET("/", s.handleIndex)
	s.router.POST("/upload", s.handleUpload)
	s.router.POST("/clear", s.handleClear)

	s.router.GET("/quality", s.handleQualityView)
	s.router.GET("/descriptives", s.handleDescriptivesView)

	s.router.GET("/analysis", s.handleAnalysisView)
	s.router.POST("/analysis", s.handleAnalysisRun)

	s.router.POST("/clean", s.handleCleanForm)
	s.router.GET("/audit", s.handleAuditView)
}

// Start starts the dashboard server
func (s *Server) Start(addr string) error {
	log.Printf("Starting DataLab dashboard on %s", addr)
	return s.router.Run(addr)
}
