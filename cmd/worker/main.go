package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/pawel-modine/AsanaBot/common/id"
	"github.com/pawel-modine/AsanaBot/common/logger"
	"github.com/pawel-modine/AsanaBot/common/otel"
	"github.com/pawel-modine/AsanaBot/core/config"
	"github.com/pawel-modine/AsanaBot/core/db"
	"github.com/pawel-modine/AsanaBot/internal/asana"
	"github.com/pawel-modine/AsanaBot/internal/mapper"
	"github.com/pawel-modine/AsanaBot/internal/model"
	"github.com/pawel-modine/AsanaBot/internal/queue"
	"github.com/pawel-modine/AsanaBot/internal/reconcile"
	"github.com/pawel-modine/AsanaBot/internal/service/issue_tracker"
	"github.com/pawel-modine/AsanaBot/internal/store"
	"github.com/pawel-modine/AsanaBot/internal/worker"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cfg, err := config.Load(config.ServiceTypeWorker)
	if err != nil {
		slog.ErrorContext(ctx, "failed to load config", "error", err)
		os.Exit(1)
	}

	fmt.Printf("%s\n", banner)

	telemetry, err := otel.Setup(ctx, cfg.OTel)
	if err != nil {
		os.Stderr.WriteString("failed to initialize otel: " + err.Error() + "\n")
		os.Exit(1)
	}

	logger.Setup(cfg)

	slog.InfoContext(ctx, "asanabot worker starting",
		"env", cfg.Env,
		"consumer_group", cfg.Pipeline.RedisGroup,
		"consumer_name", cfg.Pipeline.RedisConsumer,
		"assignee_policy", cfg.Sync.AssigneePolicy)

	if err := id.Init(id.NodeWorker); err != nil {
		slog.ErrorContext(ctx, "failed to initialize id generator", "error", err)
		os.Exit(1)
	}

	database, err := db.New(ctx, cfg.DB)
	if err != nil {
		slog.ErrorContext(ctx, "failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer database.Close()
	slog.InfoContext(ctx, "database connected")

	redisOpts, err := redis.ParseURL(cfg.Pipeline.RedisURL)
	if err != nil {
		slog.ErrorContext(ctx, "failed to parse redis url", "error", err)
		os.Exit(1)
	}

	redisClient := redis.NewClient(redisOpts)
	if err := redisClient.Ping(ctx).Err(); err != nil {
		slog.ErrorContext(ctx, "failed to connect to redis", "error", err)
		os.Exit(1)
	}
	defer redisClient.Close()
	slog.InfoContext(ctx, "redis connected", "stream", cfg.Pipeline.RedisStream)

	consumer, err := queue.NewRedisConsumer(redisClient, queue.ConsumerConfig{
		Stream:       cfg.Pipeline.RedisStream,
		Group:        cfg.Pipeline.RedisGroup,
		Consumer:     cfg.Pipeline.RedisConsumer,
		DLQStream:    cfg.Pipeline.RedisDLQStream,
		BatchSize:    1, // one event is synced to completion before the next
		Block:        5 * time.Second,
		MaxAttempts:  cfg.Pipeline.MaxAttempts,
		RequeueDelay: time.Second,
	})
	if err != nil {
		slog.ErrorContext(ctx, "failed to create consumer", "error", err)
		os.Exit(1)
	}

	engine, cache, err := newEngine(cfg)
	if err != nil {
		slog.ErrorContext(ctx, "failed to build sync engine", "error", err)
		os.Exit(1)
	}

	mappers, err := newMappers(cfg)
	if err != nil {
		slog.ErrorContext(ctx, "failed to build source clients", "error", err)
		os.Exit(1)
	}

	stores := store.NewStores(database.Querier())
	w := worker.New(consumer, worker.NewSyncProcessor(mappers, engine), stores.Deliveries(), worker.Config{
		MaxAttempts: cfg.Pipeline.MaxAttempts,
	})

	reclaimer := worker.NewRedisReclaimer(redisClient, worker.RedisReclaimerConfig{
		Stream:    cfg.Pipeline.RedisStream,
		Group:     cfg.Pipeline.RedisGroup,
		Consumer:  cfg.Pipeline.RedisConsumer + "-reclaimer",
		MinIdle:   5 * time.Minute,
		Interval:  1 * time.Minute,
		BatchSize: 10,
	}, consumer, w.Handle)

	errCh := make(chan error, 2)
	go func() {
		errCh <- w.Run(ctx)
	}()
	go func() {
		reclaimer.Run(ctx)
		errCh <- nil
	}()
	go resetCachePeriodically(ctx, cache, cfg.Sync.CacheResetInterval)

	slog.InfoContext(ctx, "worker initialized and running")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.InfoContext(ctx, "shutting down worker...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	reclaimer.Stop()
	w.Stop()

	select {
	case <-shutdownCtx.Done():
		slog.WarnContext(ctx, "shutdown timeout exceeded")
	case err := <-errCh:
		if err != nil {
			slog.ErrorContext(ctx, "worker error during shutdown", "error", err)
		}
	}
	cancel()

	if err := telemetry.Shutdown(shutdownCtx); err != nil {
		slog.ErrorContext(shutdownCtx, "otel shutdown error", "error", err)
	}

	slog.InfoContext(shutdownCtx, "worker shutdown complete")
}

func newEngine(cfg config.Config) (*reconcile.Engine, *reconcile.Cache, error) {
	policy, err := reconcile.ParseAssigneePolicy(cfg.Sync.AssigneePolicy)
	if err != nil {
		return nil, nil, err
	}

	client := asana.NewClient(asana.Options{
		BaseURL:     cfg.Asana.BaseURL,
		AccessToken: cfg.Asana.AccessToken,
		MaxRetries:  cfg.Asana.MaxRetries,
	})

	cache := reconcile.NewCache()
	engine := reconcile.NewEngine(client, cache, reconcile.Options{
		TrackingTag:    cfg.Sync.TrackingTag,
		DoneSection:    cfg.Sync.DoneSection,
		AssigneePolicy: policy,
	})
	return engine, cache, nil
}

func newMappers(cfg config.Config) (mapper.Registry, error) {
	gh, err := issue_tracker.NewGitHubTracker(issue_tracker.GitHubOptions{
		Token:        cfg.GitHub.Token,
		APIBaseURL:   cfg.GitHub.APIBaseURL,
		AcceptHeader: cfg.GitHub.AcceptHeader,
	})
	if err != nil {
		return nil, fmt.Errorf("github client: %w", err)
	}

	gl, err := issue_tracker.NewGitLabTracker(cfg.GitLab.BaseURL, cfg.GitLab.Token, nil)
	if err != nil {
		return nil, fmt.Errorf("gitlab client: %w", err)
	}

	return mapper.Registry{
		model.ProviderGitHub: mapper.NewGitHubIssueMapper(gh),
		model.ProviderGitLab: mapper.NewGitLabIssueMapper(gl),
	}, nil
}

// resetCachePeriodically drops memoized destination lookups so entities
// created in Asana after startup are picked up.
func resetCachePeriodically(ctx context.Context, cache *reconcile.Cache, interval time.Duration) {
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n := cache.Len()
			cache.Reset()
			slog.DebugContext(ctx, "destination cache reset", "entries", n)
		}
	}
}

const banner = `
   _                        _           _
  /_\  ___  __ _ _ __   __ _| |__   ___ | |_
 //_\\/ __|/ _' | '_ \ / _' | '_ \ / _ \| __|
/  _  \__ \ (_| | | | | (_| | |_) | (_) | |_
\_/ \_/___/\__,_|_| |_|\__,_|_.__/ \___/ \__|  worker
`
