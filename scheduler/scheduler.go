// Package scheduler triggers the analysis pipeline on a cron schedule,
// mirroring the manual POST /agent/run-pipeline trigger.
package scheduler

import (
	"errors"
	"fmt"
	"log"

	"github.com/robfig/cron/v3"

	"kabu-agent/pipeline"
)

// Triggerable is the slice of the orchestrator the scheduler needs.
type Triggerable interface {
	Trigger() (string, error)
}

// Scheduler wraps a cron instance with a single pipeline-trigger entry.
type Scheduler struct {
	cron *cron.Cron
	spec string
}

// New builds a scheduler for the given cron expression. A trigger that
// lands while a run is in flight is logged and dropped, not queued.
func New(spec string, target Triggerable) (*Scheduler, error) {
	c := cron.New()
	_, err := c.AddFunc(spec, func() {
		runID, err := target.Trigger()
		switch {
		case errors.Is(err, pipeline.ErrAlreadyRunning):
			log.Println("⚠️ Scheduled pipeline trigger skipped: run already in progress")
		case err != nil:
			log.Printf("❌ Scheduled pipeline trigger failed: %v", err)
		default:
			log.Printf("⏰ Scheduled pipeline run %s triggered", runID)
		}
	})
	if err != nil {
		return nil, fmt.Errorf("invalid pipeline schedule %q: %w", spec, err)
	}
	return &Scheduler{cron: c, spec: spec}, nil
}

// Start begins scheduling in the background.
func (s *Scheduler) Start() {
	s.cron.Start()
	log.Printf("⏰ Pipeline scheduler started (%s)", s.spec)
}

// Stop halts scheduling; a run already triggered keeps going.
func (s *Scheduler) Stop() {
	s.cron.Stop()
}
