package main

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/redis/go-redis/v9"
	"github.com/robfig/cron/v3"
	httpSwagger "github.com/swaggo/http-swagger/v2"

	"manifeed/internal/common/pagination"
	"manifeed/internal/infra/adapter/bus/redisbus"
	pgRepo "manifeed/internal/infra/adapter/persistence/postgres"
	"manifeed/internal/infra/db"
	pkgconfig "manifeed/internal/pkg/config"
	"manifeed/pkg/config"

	artUC "manifeed/internal/usecase/article"
	catalogUC "manifeed/internal/usecase/catalog"
	jobUC "manifeed/internal/usecase/job"

	hhttp "manifeed/internal/handler/http"
	harticle "manifeed/internal/handler/http/article"
	hauth "manifeed/internal/handler/http/auth"
	hjob "manifeed/internal/handler/http/jobstatus"
	"manifeed/internal/handler/http/requestid"
	hrss "manifeed/internal/handler/http/rss"

	_ "manifeed/docs" // swagger docs
)

// @title           Catchup Feed API
// @version         1.0
// @description     RSS/Atom フィード収集パイプラインの REST API
// @description     フィードカタログ管理、ジョブ投入、記事の読み取りを提供します。

// @contact.name   API Support
// @contact.url    https://github.com/yujitsuchiya/catchup-feed
// @contact.email  support@example.com

// @license.name  MIT
// @license.url   https://opensource.org/licenses/MIT

// @host      localhost:8080
// @BasePath  /

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description JWT トークンによる認証。ヘッダーに "Bearer {token}" 形式で指定してください。ワーカーは /internal/workers/token から取得します。

func main() {
	logger := initLogger()
	validateJWTSecret(logger)
	database := initDatabase(logger)
	defer func() {
		if err := database.Close(); err != nil {
			logger.Error("failed to close database", slog.Any("error", err))
		}
	}()

	redisClient := redisbus.Open()
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Error("failed to close redis client", slog.Any("error", err))
		}
	}()

	version := getVersion()
	serverComponents := setupServer(logger, database, redisClient, version)

	runServer(logger, serverComponents, version)
}

// initLogger initializes and returns a structured logger based on environment configuration.
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

// validateJWTSecret validates the JWT_SECRET environment variable for security requirements.
// Workers authenticate via /internal/workers/token, which signs with this secret.
func validateJWTSecret(logger *slog.Logger) {
	secret := os.Getenv("JWT_SECRET")
	if secret == "" {
		logger.Error("JWT_SECRET must be set")
		os.Exit(1)
	}
	// セキュリティ: 最小32文字（256ビット）を強制
	if len(secret) < 32 {
		logger.Error("JWT_SECRET must be at least 32 characters (256 bits)")
		os.Exit(1)
	}
	// セキュリティ: よくある弱い秘密鍵を拒否
	weakSecrets := []string{"secret", "password", "test", "admin", "default"}
	for _, weak := range weakSecrets {
		if secret == weak || secret == weak+"123" {
			logger.Error("JWT_SECRET must not be a common weak value", slog.String("weak_value", weak))
			os.Exit(1)
		}
	}
}

// initDatabase opens the database connection and runs migrations.
func initDatabase(logger *slog.Logger) *sql.DB {
	database := db.Open()
	if err := db.MigrateUp(database); err != nil {
		logger.Error("failed to migrate database", slog.Any("error", err))
		os.Exit(1)
	}
	return database
}

// getVersion returns the application version from environment or default.
func getVersion() string {
	version := os.Getenv("VERSION")
	if version == "" {
		version = "dev"
	}
	return version
}

// loadCatalogConfig reads the git-sourced feed catalog's location from
// environment variables.
func loadCatalogConfig() catalogUC.Config {
	return catalogUC.Config{
		RepositoryURL:  os.Getenv("RSS_FEEDS_REPOSITORY_URL"),
		RepositoryPath: config.GetEnvString("RSS_FEEDS_REPOSITORY_PATH", "./data/feeds-catalog"),
		Branch:         config.GetEnvString("RSS_FEEDS_REPOSITORY_BRANCH", "main"),
	}
}

// loadQueueBatchSize reads the per-message feed batch size used when
// publishing scrape jobs to the queue.
func loadQueueBatchSize() int {
	return config.GetEnvInt("RSS_SCRAPE_QUEUE_BATCH_SIZE", jobUC.DefaultQueueBatchSize)
}

// loadImgDir reads the directory company icon SVGs are served from.
func loadImgDir() string {
	return config.GetEnvString("RSS_IMG_DIR", "./data/feeds-catalog/img")
}

// ingestCronConfig controls the periodic enqueue_sources_ingest trigger.
type ingestCronConfig struct {
	Schedule string
	Timezone string
}

// loadIngestCronConfig reads the ingest cron schedule from environment
// variables, falling back to its defaults on an invalid value.
//
// Environment variables:
//   - INGEST_CRON_SCHEDULE: Cron expression (default: "0 3 * * *")
//   - INGEST_CRON_TIMEZONE: IANA timezone name (default: "UTC")
func loadIngestCronConfig(logger *slog.Logger) ingestCronConfig {
	cfg := ingestCronConfig{Schedule: "0 3 * * *", Timezone: "UTC"}

	result := pkgconfig.LoadEnvWithFallback("INGEST_CRON_SCHEDULE", cfg.Schedule, pkgconfig.ValidateCronSchedule)
	cfg.Schedule = result.Value.(string)
	for _, warning := range result.Warnings {
		logger.Warn("ingest cron schedule fallback applied", slog.String("warning", warning))
	}

	result = pkgconfig.LoadEnvWithFallback("INGEST_CRON_TIMEZONE", cfg.Timezone, pkgconfig.ValidateTimezone)
	cfg.Timezone = result.Value.(string)
	for _, warning := range result.Warnings {
		logger.Warn("ingest cron timezone fallback applied", slog.String("warning", warning))
	}

	return cfg
}

// startIngestCron schedules a periodic enqueue_sources_ingest trigger: a
// full, enabled-feeds ingest job, the message-bus-driven replacement for a
// monolithic crawl loop. It returns the running scheduler so the caller can
// stop it on shutdown.
func startIngestCron(logger *slog.Logger, jobSvc *jobUC.Service, cfg ingestCronConfig) *cron.Cron {
	loc, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		logger.Error("invalid ingest cron timezone, using UTC", slog.String("timezone", cfg.Timezone), slog.Any("error", err))
		loc = time.UTC
	}

	c := cron.New(cron.WithLocation(loc))
	_, err = c.AddFunc(cfg.Schedule, func() {
		job, err := jobSvc.EnqueueSourcesIngest(context.Background(), nil)
		if err != nil {
			logger.Error("scheduled sources ingest failed", slog.Any("error", err))
			return
		}
		logger.Info("scheduled sources ingest enqueued",
			slog.String("job_id", job.JobID),
			slog.Int("feed_count", job.FeedCount))
	})
	if err != nil {
		logger.Error("failed to add ingest cron job", slog.Any("error", err))
		return c
	}

	c.Start()
	logger.Info("ingest cron started", slog.String("schedule", cfg.Schedule), slog.String("timezone", cfg.Timezone))
	return c
}

// ServerComponents holds components needed for server operation and cleanup.
type ServerComponents struct {
	Handler http.Handler
	JobSvc  *jobUC.Service
}

// setupServer configures and returns the HTTP handler with all routes and middleware.
func setupServer(logger *slog.Logger, database *sql.DB, redisClient *redis.Client, version string) *ServerComponents {
	artSvc := artUC.Service{Repo: pgRepo.NewArticleRepo(database)}

	catalogSvc := catalogUC.NewService(
		pgRepo.NewCompanyRepo(database),
		pgRepo.NewFeedRepo(database),
		database,
		loadCatalogConfig(),
	)

	jobBus := redisbus.NewJobBus(redisClient, "manifeed-api")
	jobSvc := jobUC.NewService(
		pgRepo.NewScrapePayloadRepo(database),
		pgRepo.NewJobRepo(database),
		jobBus,
		loadQueueBatchSize(),
	)

	rootMux := setupRoutes(database, version, catalogSvc, jobSvc, artSvc, logger)
	handler := applyMiddleware(logger, rootMux)

	return &ServerComponents{
		Handler: handler,
		JobSvc:  jobSvc,
	}
}

// setupRoutes registers all HTTP routes (public and worker-facing).
func setupRoutes(
	database *sql.DB,
	version string,
	catalogSvc *catalogUC.Service,
	jobSvc *jobUC.Service,
	artSvc artUC.Service,
	logger *slog.Logger,
) *http.ServeMux {
	rootMux := http.NewServeMux()

	// ワーカー認証トークン発行（認証不要）
	rootMux.Handle("/internal/workers/token", hauth.WorkerTokenHandler())

	// ヘルスチェックエンドポイント（認証不要）
	rootMux.Handle("/health", &hhttp.HealthHandler{DB: database, Version: version})
	rootMux.Handle("/ready", &hhttp.ReadyHandler{DB: database})
	rootMux.Handle("/live", &hhttp.LiveHandler{})
	rootMux.Handle("/metrics", hhttp.MetricsHandler())

	// Swagger UI（認証不要）
	rootMux.Handle("/swagger/", httpSwagger.WrapHandler)

	paginationCfg := pagination.LoadFromEnv()

	hrss.Register(rootMux, catalogSvc, jobSvc, loadImgDir())
	hjob.Register(rootMux, jobSvc)
	harticle.Register(rootMux, artSvc, paginationCfg, logger)

	return rootMux
}

// applyMiddleware wraps the handler with the ambient middleware chain.
// Middleware order: Request ID → Recovery → Logging → Body Limit → Metrics.
func applyMiddleware(logger *slog.Logger, handler http.Handler) http.Handler {
	middlewareChain := handler

	// Apply in reverse order (innermost to outermost)
	middlewareChain = hhttp.MetricsMiddleware(middlewareChain)
	middlewareChain = hhttp.LimitRequestBody(1 << 20)(middlewareChain) // 1MB limit
	middlewareChain = hhttp.Logging(logger)(middlewareChain)
	middlewareChain = hhttp.Recover(logger)(middlewareChain)
	middlewareChain = requestid.Middleware(middlewareChain)

	return middlewareChain
}

// runServer starts the HTTP server and handles graceful shutdown.
func runServer(logger *slog.Logger, components *ServerComponents, version string) {
	// Create a context for background goroutines
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ingestCron := startIngestCron(logger, components.JobSvc, loadIngestCronConfig(logger))

	srv := &http.Server{
		Addr:              ":8080",
		Handler:           components.Handler,
		ReadHeaderTimeout: 10 * time.Second, // Prevent Slowloris attacks
		BaseContext: func(_ net.Listener) context.Context {
			return ctx
		},
	}

	go func() {
		logger.Info("server starting",
			slog.String("addr", ":8080"),
			slog.String("version", version))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server failed", slog.Any("error", err))
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("shutting down server...")

	cancel()

	stopCtx := ingestCron.Stop()
	<-stopCtx.Done()
	logger.Debug("ingest cron stopped")

	// Shutdown HTTP server with timeout
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown failed", slog.Any("error", err))
	}
	logger.Info("server stopped")
}
