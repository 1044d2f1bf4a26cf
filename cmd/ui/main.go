package main

import (
	"log"

	"datalab/adapters/session"
	statstests "datalab/adapters/stats/tests"
	"datalab/adapters/tabular"
	"datalab/app"
	"datalab/internal/config"
	"datalab/ui"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using system environment variables")
	}

	appConfig, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	gin.SetMode(appConfig.Server.GinMode)

	store := session.NewStore()
	reader := tabular.NewReader(appConfig.Upload.MaxBytes)
	runner := statstests.NewEngine(appConfig.Workers.MaxConcurrent)

	imports := app.NewImportService(reader, store)
	analysis := app.NewAnalysisService(store, runner, appConfig.Workers.MaxConcurrent)
	cleaning := app.NewCleaningService(store, store, nil)
	audits := app.NewAuditService(store)

	server, err := ui.NewServer(imports, analysis, cleaning, audits)
	if err != nil {
		log.Fatalf("Failed to initialize dashboard: %v", err)
	}

	log.Printf("🚀 Starting DataLab dashboard on port %s", appConfig.Server.Port)
	log.Fatal(server.Start(":" + appConfig.Server.Port))
}
