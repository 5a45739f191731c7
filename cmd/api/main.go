package main

import (
	"context"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"

	"godecide/adapters/filestore"
	"godecide/adapters/postgres"
	"godecide/app"
	"godecide/internal/api"
	"godecide/internal/config"
	"godecide/internal/errors"
	"godecide/internal/migration"
	"godecide/internal/ops"
	"godecide/ports"
)

// newStore selects the problem store: PostgreSQL when DATABASE_URL is set,
// else JSON files under the data directory.
func newStore(appConfig *config.Config) (ports.ProblemStore, error) {
	if appConfig.Database.URL == "" {
		log.Printf("[Bootstrap] using file store at %s", appConfig.Store.DataDir)
		return filestore.New(appConfig.Store.DataDir)
	}

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
	log.Printf("[Bootstrap] using postgres store (schema %s)", migrator.Version())
	return postgres.NewProblemStore(db), nil
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
	gin.SetMode(appConfig.Server.GinMode)

	store, err := newStore(appConfig)
	if err != nil {
		log.Fatalf("Failed to initialize problem store: %v", err)
	}
	defer store.Close()

	svc := app.NewAnalysisService(store, appConfig.Service.EvalConcurrency)
	server := api.NewServer(svc, appConfig.Limits, appConfig.Engine)

	if appConfig.Ops.Enabled {
		opsRouter := ops.NewRouter(func() error {
			_, err := store.List(context.Background())
			return err
		})
		go func() {
			addr := ":" + appConfig.Ops.Port
			log.Printf("[Bootstrap] diagnostics server on %s", addr)
			if err := http.ListenAndServe(addr, opsRouter); err != nil {
				log.Printf("[Bootstrap] diagnostics server stopped: %v", err)
			}
		}()
	}

	addr := ":" + appConfig.Server.Port
	log.Printf("[Bootstrap] API server on %s", addr)
	if err := server.Router().Run(addr); err != nil {
		log.Fatalf("API server failed: %v", err)
	}
}
