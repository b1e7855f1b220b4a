package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/pawel-modine/AsanaBot/internal/model"
	"github.com/pawel-modine/AsanaBot/internal/queue"
	"github.com/pawel-modine/AsanaBot/internal/service/issue_tracker"
)

const backfillEventType = "backfill"

type BackfillParams struct {
	Organization string
	Repositories []string
	Since        time.Time
}

// BackfillService replays the current state of existing issues through the
// same queue webhooks use, so the worker syncs them identically.
type BackfillService struct {
	source   issue_tracker.Backfiller
	producer queue.Producer
	logger   *slog.Logger
}

func NewBackfillService(source issue_tracker.Backfiller, producer queue.Producer, logger *slog.Logger) *BackfillService {
	if logger == nil {
		logger = slog.Default()
	}
	return &BackfillService{source: source, producer: producer, logger: logger}
}

// Run enqueues one message per issue or pull request and returns how many
// were enqueued. It stops at the first repository that fails.
func (s *BackfillService) Run(ctx context.Context, params BackfillParams) (int, error) {
	total := 0
	for _, repo := range params.Repositories {
		payloads, err := s.source.ListEventPayloads(ctx, issue_tracker.BackfillParams{
			Organization: params.Organization,
			Repository:   repo,
			Since:        params.Since,
		})
		if err != nil {
			return total, fmt.Errorf("listing %s/%s: %w", params.Organization, repo, err)
		}

		for i, payload := range payloads {
			if err := s.producer.Enqueue(ctx, queue.EventMessage{
				TaskType:   queue.TaskTypeBackfill,
				Source:     model.ProviderGitHub,
				DeliveryID: queue.BackfillDeliveryID(params.Organization, repo, i),
				EventType:  backfillEventType,
				Payload:    payload,
				Attempt:    1,
			}); err != nil {
				return total, fmt.Errorf("enqueueing %s/%s item %d: %w", params.Organization, repo, i, err)
			}
			total++
		}

		s.logger.InfoContext(ctx, "repository backfilled",
			"organization", params.Organization, "repository", repo, "items", len(payloads))
	}
	return total, nil
}
