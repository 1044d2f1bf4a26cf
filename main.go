package main

import (
	"context"
	"log"
	"net/http"
	_ "net/http/pprof"

	"datalab/adapters/postgres"
	"datalab/adapters/session"
	statstests "datalab/adapters/stats/tests"
	"datalab/adapters/tabular"
	"datalab/app"
	"datalab/internal/config"
	"datalab/internal/errors"
	"datalab/internal/migration"
	"datalab/ports"
	"datalab/ui"

	"github.com/jmoiron/sqlx"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
)

// initDatabase connects the audit sink database and bootstraps its
// schema. Only called when DATABASE_URL is configured.
func initDatabase(appConfig *config.Config) (*sqlx.DB, error) {
	db, err := sqlx.Connect("postgres", appConfig.Database.URL)
	if err != nil {
		return nil, errors.Wrap(err, "failed to connect to database")
	}

	if err := db.Ping(); err != nil {
		return nil, errors.Wrap(err, "failed to ping database")
	}

	migrator := migration.NewRunner()
	if err := migrator.Run(context.Background(), db); err != nil {
		return nil, errors.Wrap(err, "database migration failed")
	}

	return db, nil
}

func main() {
	// Load environment variables from .env file
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using system environment variables")
	}

	appConfig, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// The audit sink is optional. Without a database the trail still
	// lives in the session store; it just does not survive restarts.
	var sink ports.AuditSink
	if appConfig.Database.URL == "" {
		log.Println("DATABASE_URL not set, audit history is memory-only")
	} else {
		db, err := initDatabase(appConfig)
		if err != nil {
			log.Fatalf("Failed to initialize database: %v", err)
		}
		defer db.Close()
		sink = postgres.NewAuditSink(db)
	}

	store := session.NewStore()
	reader := tabular.NewReader(appConfig.Upload.MaxBytes)
	runner := statstests.NewEngine(appConfig.Workers.MaxConcurrent)

	imports := app.NewImportService(reader, store)
	analysis := app.NewAnalysisService(store, runner, appConfig.Workers.MaxConcurrent)
	cleaning := app.NewCleaningService(store, store, sink)
	audits := app.NewAuditService(store)

	apiApp := ui.NewApp(ui.Config{
		MaxUploadBytes: appConfig.Upload.MaxBytes,
	}, imports, analysis, cleaning, audits)

	// Start pprof server for performance profiling
	if appConfig.Profiling.Enabled {
		go func() {
			log.Printf("🚀 Performance profiling server starting on :%s", appConfig.Profiling.Port)
			if err := http.ListenAndServe(":"+appConfig.Profiling.Port, nil); err != nil {
				log.Printf("❌ pprof server failed: %v", err)
			}
		}()
	}

	log.Printf("🚀 Starting DataLab API server on port %s", appConfig.Server.APIPort)
	log.Fatal(apiApp.Start(":" + appConfig.Server.APIPort))
}
