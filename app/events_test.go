package app

import (
	"context"
	"sync"
	"testing"

	"kabu-agent/pipeline"
)

type recordingPublisher struct {
	mu     sync.Mutex
	events []string
}

func (p *recordingPublisher) PublishJSON(event string, payload any) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
}

func (p *recordingPublisher) count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.events)
}

type countingInvalidator struct {
	mu    sync.Mutex
	calls int
}

func (c *countingInvalidator) InvalidateTodayActions(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls++
	return nil
}

func (c *countingInvalidator) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.calls
}

func TestRunEventsInvalidatesCacheOnCompletion(t *testing.T) {
	tests := []struct {
		name            string
		status          pipeline.RunStatus
		wantInvalidated int
	}{
		{"running does not invalidate", pipeline.StatusRunning, 0},
		{"failed does not invalidate", pipeline.StatusFailed, 0},
		{"completed invalidates", pipeline.StatusCompleted, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			next := &recordingPublisher{}
			inv := &countingInvalidator{}
			events := newRunEvents(next, inv)

			events.PublishJSON("pipeline_status", pipeline.RunState{Status: tt.status})

			if next.count() != 1 {
				t.Errorf("event must always be forwarded, got %d forwards", next.count())
			}
			if inv.count() != tt.wantInvalidated {
				t.Errorf("expected %d invalidations, got %d", tt.wantInvalidated, inv.count())
			}
		})
	}
}

func TestRunEventsWithoutCache(t *testing.T) {
	next := &recordingPublisher{}
	events := newRunEvents(next, nil)

	// Caching disabled: completion events still reach the broker.
	events.PublishJSON("pipeline_status", pipeline.RunState{Status: pipeline.StatusCompleted})
	if next.count() != 1 {
		t.Errorf("expected the event to be forwarded, got %d", next.count())
	}
}
