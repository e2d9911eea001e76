// Command syncjob runs a single catalog sync: git pull (or clone) the
// feed catalog repository and apply any changed company/feed definition
// files, guarded by the same rss_sync job lock the HTTP sync endpoint
// uses. It exits 0 on success (including "nothing changed") and 1 on
// failure, making it suitable for a cron entry or a manual one-off run.
package main

import (
	"context"
	"database/sql"
	"errors"
	"flag"
	"log/slog"
	"os"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"manifeed/internal/domain/entity"
	pgRepo "manifeed/internal/infra/adapter/persistence/postgres"
	"manifeed/internal/infra/db"
	"manifeed/pkg/config"

	catalogUC "manifeed/internal/usecase/catalog"
)

func waitForMigrations(logger *slog.Logger, database *sql.DB) {
	const probe = "SELECT 1 FROM companies LIMIT 1"
	for i := 0; i < 10; i++ {
		if _, err := database.Exec(probe); err == nil {
			return
		}
		logger.Info("waiting for migrations, retrying in 3s", slog.Int("attempt", i+1))
		time.Sleep(3 * time.Second)
	}
	logger.Error("migrations did not complete in time")
	os.Exit(1)
}

func main() {
	force := flag.Bool("force", false, "re-clone the catalog repository even if a local checkout exists")
	flag.Parse()

	logger := initLogger()

	database := db.Open()
	defer func() {
		if err := database.Close(); err != nil {
			logger.Error("failed to close database", slog.Any("error", err))
		}
	}()
	waitForMigrations(logger, database)

	svc := catalogUC.NewService(
		pgRepo.NewCompanyRepo(database),
		pgRepo.NewFeedRepo(database),
		database,
		loadCatalogConfig(),
	)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	result, err := svc.Sync(ctx, *force)
	if err != nil {
		if errors.Is(err, entity.ErrJobAlreadyRunning) {
			logger.Warn("catalog sync already running elsewhere, skipping this run")
			os.Exit(0)
		}
		logger.Error("catalog sync failed", slog.Any("error", err))
		os.Exit(1)
	}

	logger.Info("catalog sync complete",
		slog.String("repository_action", string(result.RepositoryAction)),
		slog.Int("processed_files", result.ProcessedFiles),
		slog.Int("processed_feeds", result.ProcessedFeeds),
		slog.Int("created_companies", result.CreatedCompanies),
		slog.Int("created_feeds", result.CreatedFeeds),
		slog.Int("updated_feeds", result.UpdatedFeeds))
}

func initLogger() *slog.Logger {
	logLevel := slog.LevelInfo
	if os.Getenv("LOG_LEVEL") == "debug" {
		logLevel = slog.LevelDebug
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel,
	}))
	slog.SetDefault(logger)
	return logger
}

// loadCatalogConfig reads the git-sourced feed catalog's location from
// environment variables, matching cmd/api's loader.
func loadCatalogConfig() catalogUC.Config {
	return catalogUC.Config{
		RepositoryURL:  os.Getenv("RSS_FEEDS_REPOSITORY_URL"),
		RepositoryPath: config.GetEnvString("RSS_FEEDS_REPOSITORY_PATH", "./data/feeds-catalog"),
		Branch:         config.GetEnvString("RSS_FEEDS_REPOSITORY_BRANCH", "main"),
	}
}
