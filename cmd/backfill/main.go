package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/pawel-modine/AsanaBot/common/logger"
	"github.com/pawel-modine/AsanaBot/common/otel"
	"github.com/pawel-modine/AsanaBot/core/config"
	"github.com/pawel-modine/AsanaBot/internal/queue"
	"github.com/pawel-modine/AsanaBot/internal/service"
	"github.com/pawel-modine/AsanaBot/internal/service/issue_tracker"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(config.ServiceTypeBackfill)
	if err != nil {
		slog.ErrorContext(ctx, "failed to load config", "error", err)
		os.Exit(1)
	}

	telemetry, err := otel.Setup(ctx, cfg.OTel)
	if err != nil {
		os.Stderr.WriteString("failed to initialize otel: " + err.Error() + "\n")
		os.Exit(1)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := telemetry.Shutdown(shutdownCtx); err != nil {
			slog.ErrorContext(shutdownCtx, "otel shutdown error", "error", err)
		}
	}()

	logger.Setup(cfg)

	redisOpts, err := redis.ParseURL(cfg.Pipeline.RedisURL)
	if err != nil {
		slog.ErrorContext(ctx, "failed to parse redis url", "error", err)
		os.Exit(1)
	}
	redisClient := redis.NewClient(redisOpts)
	defer redisClient.Close()
	if err := redisClient.Ping(ctx).Err(); err != nil {
		slog.ErrorContext(ctx, "failed to connect to redis", "error", err)
		os.Exit(1)
	}

	tracker, err := issue_tracker.NewGitHubTracker(issue_tracker.GitHubOptions{
		Token:        cfg.GitHub.Token,
		APIBaseURL:   cfg.GitHub.APIBaseURL,
		AcceptHeader: cfg.GitHub.AcceptHeader,
	})
	if err != nil {
		slog.ErrorContext(ctx, "failed to create github client", "error", err)
		os.Exit(1)
	}

	producer := queue.NewRedisProducer(redisClient, cfg.Pipeline.RedisStream, slog.Default())

	slog.InfoContext(ctx, "backfill starting",
		"organization", cfg.Backfill.Organization,
		"repositories", cfg.Backfill.Repositories,
		"since", cfg.Backfill.Since)

	n, err := service.NewBackfillService(tracker, producer, slog.Default()).Run(ctx, service.BackfillParams{
		Organization: cfg.Backfill.Organization,
		Repositories: cfg.Backfill.Repositories,
		Since:        cfg.Backfill.Since,
	})
	if err != nil {
		slog.ErrorContext(ctx, "backfill failed", "error", err, "enqueued", n)
		os.Exit(1)
	}

	slog.InfoContext(ctx, "backfill complete", "enqueued", n)
}
