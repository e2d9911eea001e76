// Command worker runs a Scrape Worker: it consumes batches of feed-fetch
// requests off the job stream, runs the per-feed fetch pipeline
// company-group by company-group, and publishes one result per feed onto
// the appropriate result stream.
package main

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"manifeed/internal/handler/http/respond"
	"manifeed/internal/infra/adapter/bus/redisbus"
	workerPkg "manifeed/internal/infra/worker"
	"manifeed/internal/infra/workerauth"
	"manifeed/internal/repository"
	"manifeed/internal/usecase/scrape"
	"manifeed/pkg/config"
)

func main() {
	logger := initLogger()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	workerMetrics := workerPkg.NewWorkerMetrics()
	workerMetrics.MustRegister()
	workerConfig, err := workerPkg.LoadConfigFromEnv(logger, workerMetrics)
	if err != nil {
		logger.Error("failed to load worker configuration", slog.Any("error", err))
		os.Exit(1)
	}
	logger.Info("worker configuration loaded",
		slog.Int("queue_read_count", workerConfig.QueueReadCount),
		slog.Int("company_max_requests_per_second", workerConfig.CompanyMaxRequestsPerSecond),
		slog.Int("feed_fetch_parallelism", workerConfig.FeedFetchParallelism),
		slog.Duration("token_refresh_buffer", workerConfig.TokenRefreshBuffer),
		slog.Int("health_port", workerConfig.HealthPort))

	healthAddr := fmt.Sprintf(":%d", workerConfig.HealthPort)
	healthServer := workerPkg.NewHealthServer(healthAddr, logger)
	go func() {
		if err := healthServer.Start(ctx); err != nil && err != http.ErrServerClosed {
			logger.Error("health server failed", slog.Any("error", err))
		}
	}()
	logger.Info("health check server started", slog.String("addr", healthAddr))

	redisClient := redisbus.Open()
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Error("failed to close redis client", slog.Any("error", err))
		}
	}()

	jobBus := redisbus.NewJobBus(redisClient, consumerName())
	resultBus := redisbus.NewResultBus(redisClient, consumerName())
	if err := jobBus.EnsureGroup(ctx); err != nil {
		logger.Error("failed to ensure job consumer group", slog.Any("error", err))
		os.Exit(1)
	}

	authClient := setupAuthClient(workerConfig)
	httpClient := createHTTPClient()
	fetcher := scrape.NewFetcher(httpClient)
	scrapeWorker := scrape.NewWorker(fetcher, resultBus, workerConfig.CompanyMaxRequestsPerSecond)

	healthServer.SetReady(true)
	logger.Info("worker marked as ready")

	runConsumeLoop(ctx, logger, jobBus, scrapeWorker, authClient, workerConfig, workerMetrics)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("shutting down worker...")
	cancel()
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

// createHTTPClient creates an HTTP client with timeouts and connection
// pooling. TLS 1.2+ is enforced for security.
func createHTTPClient() *http.Client {
	return &http.Client{
		Timeout: 30 * time.Second,
		Transport: &http.Transport{
			MaxIdleConns:        100,
			MaxIdleConnsPerHost: 10,
			IdleConnTimeout:     90 * time.Second,
			TLSClientConfig: &tls.Config{
				MinVersion: tls.VersionTLS12,
			},
		},
	}
}

func consumerName() string {
	name := config.GetEnvString("WORKER_CONSUMER_NAME", "")
	if name != "" {
		return name
	}
	host, err := os.Hostname()
	if err != nil || host == "" {
		return "manifeed-worker"
	}
	return "manifeed-worker-" + host
}

func setupAuthClient(cfg *workerPkg.WorkerConfig) *workerauth.Client {
	apiURL := config.GetEnvString("MANIFEED_API_URL", "http://localhost:8080")
	workerID := os.Getenv("WORKER_ID")
	workerSecret := os.Getenv("WORKER_SECRET")
	return workerauth.NewClient(&http.Client{Timeout: 10 * time.Second}, apiURL, workerID, workerSecret)
}

// runConsumeLoop repeatedly reads a batch of job messages, processes each
// one through the fetch pipeline, and acks it. It never exits on its own;
// the caller cancels ctx to stop it.
func runConsumeLoop(
	ctx context.Context,
	logger *slog.Logger,
	jobBus *redisbus.JobBus,
	scrapeWorker *scrape.Worker,
	authClient *workerauth.Client,
	cfg *workerPkg.WorkerConfig,
	metrics *workerPkg.WorkerMetrics,
) {
	const blockMillis = 5000

	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			default:
			}

			// The worker token is acquired here purely to keep the cached
			// credential warm ahead of its refresh buffer; no outbound call
			// in this loop currently requires bearer auth, but the Result
			// Persistence Service's peers may in a future iteration.
			if _, err := authClient.Token(ctx); err != nil {
				logger.Warn("failed to refresh worker token", slog.Any("error", err))
			}

			messages, err := jobBus.ReadJobs(ctx, cfg.QueueReadCount, blockMillis)
			if err != nil {
				logger.Error("failed to read jobs", slog.Any("error", err))
				time.Sleep(time.Second)
				continue
			}

			for _, msg := range messages {
				processMessage(ctx, logger, jobBus, scrapeWorker, msg, metrics)
			}
		}
	}()
}

func processMessage(
	ctx context.Context,
	logger *slog.Logger,
	jobBus *redisbus.JobBus,
	scrapeWorker *scrape.Worker,
	msg repository.ConsumedMessage,
	metrics *workerPkg.WorkerMetrics,
) {
	startTime := time.Now()

	var req repository.ScrapeJobRequest
	if err := json.Unmarshal(msg.Payload, &req); err != nil {
		logger.Error("failed to decode job message", slog.Any("error", respond.SanitizeError(err)))
		metrics.RecordJobRun("failure")
		_ = jobBus.Ack(ctx, msg.MessageID)
		return
	}

	if err := scrapeWorker.ProcessJob(ctx, req); err != nil {
		logger.Error("job processing failed",
			slog.String("job_id", req.JobID),
			slog.Any("error", respond.SanitizeError(err)))
		metrics.RecordJobRun("failure")
		metrics.RecordJobDuration(time.Since(startTime).Seconds())
		// A per-feed failure already became a durable error_feeds_parsing
		// result; the message is acked regardless so it is not redelivered.
		_ = jobBus.Ack(ctx, msg.MessageID)
		return
	}

	metrics.RecordJobRun("success")
	metrics.RecordJobDuration(time.Since(startTime).Seconds())
	metrics.RecordFeedsProcessed(len(req.Feeds))
	metrics.RecordLastSuccess()

	logger.Info("job processed",
		slog.String("job_id", req.JobID),
		slog.Bool("ingest", req.Ingest),
		slog.Int("feeds", len(req.Feeds)))

	if err := jobBus.Ack(ctx, msg.MessageID); err != nil {
		logger.Error("failed to ack job message", slog.Any("error", err))
	}
}
