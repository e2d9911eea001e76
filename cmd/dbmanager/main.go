// Command dbmanager runs the Result Persistence Service: it consumes
// WorkerResult messages off the check/ingest/error result streams and
// applies them durably — job result insert, feed scraping state upsert,
// ingest-only article upsert, and job status refresh.
package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"manifeed/internal/handler/http/respond"
	"manifeed/internal/infra/adapter/bus/redisbus"
	pgRepo "manifeed/internal/infra/adapter/persistence/postgres"
	"manifeed/internal/infra/db"
	"manifeed/internal/infra/notifier"
	workerPkg "manifeed/internal/infra/worker"
	"manifeed/internal/repository"
	"manifeed/internal/usecase/persist"
	"manifeed/pkg/config"
)

func waitForMigrations(logger *slog.Logger, db *sql.DB) {
	const probe = "SELECT 1 FROM jobs LIMIT 1"
	for i := 0; i < 10; i++ {
		if _, err := db.Exec(probe); err == nil {
			return
		}
		logger.Info("waiting for migrations, retrying in 3s", slog.Int("attempt", i+1))
		time.Sleep(3 * time.Second)
	}
	logger.Error("migrations did not complete in time")
	os.Exit(1)
}

func main() {
	logger := initLogger()
	database := initDatabase(logger)
	defer func() {
		if err := database.Close(); err != nil {
			logger.Error("failed to close database", slog.Any("error", err))
		}
	}()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	workerMetrics := workerPkg.NewWorkerMetrics()
	workerMetrics.MustRegister()
	workerConfig, err := workerPkg.LoadConfigFromEnv(logger, workerMetrics)
	if err != nil {
		logger.Error("failed to load dbmanager configuration", slog.Any("error", err))
		os.Exit(1)
	}
	logger.Info("dbmanager configuration loaded",
		slog.Int("queue_read_count", workerConfig.QueueReadCount),
		slog.Int("health_port", workerConfig.HealthPort))

	healthAddr := fmt.Sprintf(":%d", workerConfig.HealthPort)
	healthServer := workerPkg.NewHealthServer(healthAddr, logger)
	go func() {
		if serveErr := healthServer.Start(ctx); serveErr != nil && serveErr != http.ErrServerClosed {
			logger.Error("health server failed", slog.Any("error", serveErr))
		}
	}()
	logger.Info("health check server started", slog.String("addr", healthAddr))

	redisClient := redisbus.Open()
	defer func() {
		if closeErr := redisClient.Close(); closeErr != nil {
			logger.Error("failed to close redis client", slog.Any("error", closeErr))
		}
	}()

	resultBus := redisbus.NewResultBus(redisClient, consumerName())
	if err := resultBus.EnsureGroups(ctx); err != nil {
		logger.Error("failed to ensure result consumer groups", slog.Any("error", err))
		os.Exit(1)
	}

	svc := persist.NewService(
		pgRepo.NewJobResultRepo(database),
		pgRepo.NewFeedScrapingStateRepo(database),
		pgRepo.NewArticleRepo(database),
		pgRepo.NewJobRepo(database),
	)
	if n := buildNotifier(logger); n != nil {
		svc = svc.WithNotifier(n)
	}

	healthServer.SetReady(true)
	logger.Info("dbmanager marked as ready")

	go runConsumeLoop(ctx, logger, resultBus, svc, workerConfig, workerMetrics)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("shutting down dbmanager...")
	cancel()
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

func initDatabase(logger *slog.Logger) *sql.DB {
	database := db.Open()
	waitForMigrations(logger, database)
	return database
}

func consumerName() string {
	name := config.GetEnvString("DBMANAGER_CONSUMER_NAME", "")
	if name != "" {
		return name
	}
	host, err := os.Hostname()
	if err != nil || host == "" {
		return "manifeed-dbmanager"
	}
	return "manifeed-dbmanager-" + host
}

// buildNotifier assembles the job-completion notifier from whichever
// channels are enabled in the environment. Returns nil if none are,
// leaving persist.Service on its default no-op notifier.
func buildNotifier(logger *slog.Logger) notifier.Notifier {
	var channels []notifier.Notifier

	if discordCfg := loadDiscordConfig(logger); discordCfg.Enabled {
		channels = append(channels, notifier.NewDiscordNotifier(discordCfg))
		logger.Info("discord job notifications enabled")
	}
	if slackCfg := loadSlackConfig(logger); slackCfg.Enabled {
		channels = append(channels, notifier.NewSlackNotifier(slackCfg))
		logger.Info("slack job notifications enabled")
	}

	switch len(channels) {
	case 0:
		return nil
	case 1:
		return channels[0]
	default:
		return notifier.NewMultiNotifier(channels...)
	}
}

// loadDiscordConfig loads Discord configuration from environment variables.
//
// Environment variables:
//   - DISCORD_ENABLED: Boolean flag to enable Discord notifications (default: false)
//   - DISCORD_WEBHOOK_URL: Discord webhook URL (required if enabled)
func loadDiscordConfig(logger *slog.Logger) notifier.DiscordConfig {
	enabled := os.Getenv("DISCORD_ENABLED") == "true"
	webhookURL := os.Getenv("DISCORD_WEBHOOK_URL")
	if !enabled {
		return notifier.DiscordConfig{Enabled: false}
	}
	if webhookURL == "" {
		logger.Warn("discord webhook URL is empty, disabling notifications")
		return notifier.DiscordConfig{Enabled: false}
	}
	u, err := url.Parse(webhookURL)
	if err != nil {
		logger.Warn("invalid discord webhook URL format, disabling notifications", slog.Any("error", err))
		return notifier.DiscordConfig{Enabled: false}
	}
	if u.Scheme != "https" {
		logger.Warn("discord webhook URL must use HTTPS, disabling notifications")
		return notifier.DiscordConfig{Enabled: false}
	}
	if u.Host != "discord.com" {
		logger.Warn("invalid discord webhook host, disabling notifications", slog.String("host", u.Host))
		return notifier.DiscordConfig{Enabled: false}
	}
	if !strings.HasPrefix(u.Path, "/api/webhooks/") {
		logger.Warn("invalid discord webhook path, disabling notifications", slog.String("path", u.Path))
		return notifier.DiscordConfig{Enabled: false}
	}
	return notifier.DiscordConfig{Enabled: true, WebhookURL: webhookURL, Timeout: 30 * time.Second}
}

// loadSlackConfig loads Slack configuration from environment variables.
//
// Environment variables:
//   - SLACK_ENABLED: Boolean flag to enable Slack notifications (default: false)
//   - SLACK_WEBHOOK_URL: Slack webhook URL (required if enabled)
func loadSlackConfig(logger *slog.Logger) notifier.SlackConfig {
	enabled := os.Getenv("SLACK_ENABLED") == "true"
	webhookURL := os.Getenv("SLACK_WEBHOOK_URL")
	if !enabled {
		return notifier.SlackConfig{Enabled: false}
	}
	if webhookURL == "" {
		logger.Warn("slack webhook URL is empty, disabling notifications")
		return notifier.SlackConfig{Enabled: false}
	}
	u, err := url.Parse(webhookURL)
	if err != nil {
		logger.Warn("invalid slack webhook URL format, disabling notifications", slog.Any("error", err))
		return notifier.SlackConfig{Enabled: false}
	}
	if u.Scheme != "https" {
		logger.Warn("slack webhook URL must use HTTPS, disabling notifications")
		return notifier.SlackConfig{Enabled: false}
	}
	if u.Host != "hooks.slack.com" {
		logger.Warn("invalid slack webhook host, disabling notifications", slog.String("host", u.Host))
		return notifier.SlackConfig{Enabled: false}
	}
	if !strings.HasPrefix(u.Path, "/services/") {
		logger.Warn("invalid slack webhook path, disabling notifications", slog.String("path", u.Path))
		return notifier.SlackConfig{Enabled: false}
	}
	return notifier.SlackConfig{Enabled: true, WebhookURL: webhookURL, Timeout: 30 * time.Second}
}

func queueKindForStream(stream string) string {
	switch stream {
	case redisbus.StreamCheck:
		return "check"
	case redisbus.StreamIngest:
		return "ingest"
	case redisbus.StreamErrors:
		return "error"
	default:
		return ""
	}
}

// runConsumeLoop repeatedly reads a batch of result messages across all
// three result streams, applies each one, and acks it.
func runConsumeLoop(
	ctx context.Context,
	logger *slog.Logger,
	resultBus *redisbus.ResultBus,
	svc *persist.Service,
	cfg *workerPkg.WorkerConfig,
	metrics *workerPkg.WorkerMetrics,
) {
	const blockMillis = 5000

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		messages, err := resultBus.ReadResults(ctx, cfg.QueueReadCount, blockMillis)
		if err != nil {
			logger.Error("failed to read results", slog.Any("error", err))
			time.Sleep(time.Second)
			continue
		}

		for _, msg := range messages {
			processMessage(ctx, logger, resultBus, svc, msg, metrics)
		}
	}
}

func processMessage(
	ctx context.Context,
	logger *slog.Logger,
	resultBus *redisbus.ResultBus,
	svc *persist.Service,
	msg repository.ConsumedMessage,
	metrics *workerPkg.WorkerMetrics,
) {
	startTime := time.Now()
	queueKind := queueKindForStream(msg.Stream)

	var result repository.WorkerResult
	if err := json.Unmarshal(msg.Payload, &result); err != nil {
		logger.Error("failed to decode result message", slog.Any("error", respond.SanitizeError(err)))
		metrics.RecordJobRun("failure")
		_ = resultBus.Ack(ctx, msg.Stream, msg.MessageID)
		return
	}

	applied, err := svc.HandleResult(ctx, result, queueKind)
	if err != nil {
		logger.Error("failed to handle result",
			slog.String("job_id", result.JobID),
			slog.Int64("feed_id", result.FeedID),
			slog.Any("error", respond.SanitizeError(err)))
		metrics.RecordJobRun("failure")
		metrics.RecordJobDuration(time.Since(startTime).Seconds())
		return
	}

	metrics.RecordJobRun("success")
	metrics.RecordJobDuration(time.Since(startTime).Seconds())
	if applied {
		metrics.RecordFeedsProcessed(1)
		metrics.RecordLastSuccess()
	}

	logger.Info("result applied",
		slog.String("job_id", result.JobID),
		slog.Int64("feed_id", result.FeedID),
		slog.String("status", result.Status),
		slog.String("queue_kind", queueKind),
		slog.Bool("applied", applied))

	if err := resultBus.Ack(ctx, msg.Stream, msg.MessageID); err != nil {
		logger.Error("failed to ack result message", slog.Any("error", err))
	}
}
