package worker

import (
	"context"
	"fmt"

	"github.com/pawel-modine/AsanaBot/internal/mapper"
	"github.com/pawel-modine/AsanaBot/internal/queue"
	"github.com/pawel-modine/AsanaBot/internal/reconcile"
)

// SyncProcessor normalizes the payload for its source and syncs the result.
type SyncProcessor struct {
	mappers mapper.Registry
	syncer  Syncer
}

func NewSyncProcessor(mappers mapper.Registry, syncer Syncer) *SyncProcessor {
	return &SyncProcessor{mappers: mappers, syncer: syncer}
}

func (p *SyncProcessor) Process(ctx context.Context, msg queue.Message) (reconcile.Result, error) {
	m, err := p.mappers.For(msg.Source)
	if err != nil {
		return reconcile.Result{}, err
	}

	issue, err := m.Map(ctx, msg.Payload)
	if err != nil {
		return reconcile.Result{}, fmt.Errorf("normalizing %s event: %w", msg.Source, err)
	}

	return p.syncer.Sync(ctx, *issue)
}
