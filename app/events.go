package app

import (
	"context"
	"log"
	"time"

	"kabu-agent/pipeline"
)

// snapshotInvalidator is the slice of the cache the event hook needs.
type snapshotInvalidator interface {
	InvalidateTodayActions(ctx context.Context) error
}

// runEvents forwards pipeline lifecycle events to the broker and drops the
// cached today-actions payload when a run completes, so readers never see a
// stale Redis copy next to a fresh snapshot.
type runEvents struct {
	next  pipeline.EventPublisher
	cache snapshotInvalidator
}

func newRunEvents(next pipeline.EventPublisher, cache snapshotInvalidator) *runEvents {
	return &runEvents{next: next, cache: cache}
}

// PublishJSON implements pipeline.EventPublisher.
func (e *runEvents) PublishJSON(event string, payload any) {
	e.next.PublishJSON(event, payload)

	state, ok := payload.(pipeline.RunState)
	if !ok || state.Status != pipeline.StatusCompleted || e.cache == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := e.cache.InvalidateTodayActions(ctx); err != nil {
		log.Printf("⚠️ Failed to invalidate cached today actions: %v", err)
	}
}
