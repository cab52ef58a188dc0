// Package pipeline orchestrates the daily scoring run: indicator
// computation, scoring, signal classification and trade plan construction
// fanned out over the stock universe, with a single exclusive run state
// machine and a single atomic commit point for the day's results.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"kabu-agent/analysis"
)

// RunStatus is the lifecycle state of the pipeline.
type RunStatus string

const (
	StatusNotRun    RunStatus = "not_run"
	StatusRunning   RunStatus = "running"
	StatusCompleted RunStatus = "completed"
	StatusFailed    RunStatus = "failed"
)

// RunState is the observable state of the current (or last) run.
type RunState struct {
	RunID      string     `json:"run_id,omitempty"`
	Status     RunStatus  `json:"status"`
	Message    string     `json:"message,omitempty"`
	StartedAt  *time.Time `json:"started_at,omitempty"`
	FinishedAt *time.Time `json:"finished_at,omitempty"`
	Total      int        `json:"total_stocks,omitempty"`
	Succeeded  int        `json:"succeeded,omitempty"`
	Failed     int        `json:"failed,omitempty"`
}

// StockInfo identifies one stock of the trading universe.
type StockInfo struct {
	Code   string `json:"code"`
	Name   string `json:"name"`
	Market string `json:"market"`
	Sector string `json:"sector"`
}

// MarketData is the upstream read-only store of price and fundamental
// history. Implementations must be safe for concurrent use: per-stock
// work fans out across workers.
type MarketData interface {
	Universe(ctx context.Context) ([]StockInfo, error)
	PriceHistory(ctx context.Context, code string) ([]analysis.PriceBar, error)
	LatestFundamental(ctx context.Context, code string) (*analysis.FundamentalSnapshot, error)
}

// Recorder persists a completed snapshot. Persistence happens at the
// commit point only: a failed run never writes partial results.
type Recorder interface {
	SaveRun(ctx context.Context, snap *Snapshot) error
}

// EventPublisher receives pipeline lifecycle events for live observers.
type EventPublisher interface {
	PublishJSON(event string, payload any)
}

// Config tunes one pipeline run.
type Config struct {
	Concurrency    int           // bounded worker count for per-stock fan-out
	RunTimeout     time.Duration // run is marked failed past this deadline
	MaxFailureRate float64       // run fails when failed/total exceeds this fraction
	StockRetries   int           // extra attempts per stock on ErrDataUnavailable
	Scoring        analysis.ScoringConfig
	Classifier     analysis.ClassifierConfig
	Planner        analysis.PlannerConfig
}

// DefaultConfig returns the standard run tuning: 4 workers, 10 minute
// deadline, half the universe allowed to fail, 2 retries per stock.
func DefaultConfig() Config {
	return Config{
		Concurrency:    4,
		RunTimeout:     10 * time.Minute,
		MaxFailureRate: 0.5,
		StockRetries:   2,
		Scoring:        analysis.DefaultScoringConfig(),
		Classifier:     analysis.DefaultClassifierConfig(),
		Planner:        analysis.DefaultPlannerConfig(),
	}
}

// Validate checks the whole run configuration. Any violation is fatal for
// the orchestrator and wrapped in ErrInvalidConfiguration.
func (c Config) Validate() error {
	if c.Concurrency <= 0 {
		return fmt.Errorf("%w: concurrency must be positive (got %d)", ErrInvalidConfiguration, c.Concurrency)
	}
	if c.RunTimeout <= 0 {
		return fmt.Errorf("%w: run timeout must be positive (got %v)", ErrInvalidConfiguration, c.RunTimeout)
	}
	if c.MaxFailureRate < 0 || c.MaxFailureRate > 1 {
		return fmt.Errorf("%w: max failure rate must be in [0,1] (got %v)", ErrInvalidConfiguration, c.MaxFailureRate)
	}
	if c.StockRetries < 0 {
		return fmt.Errorf("%w: stock retries cannot be negative (got %d)", ErrInvalidConfiguration, c.StockRetries)
	}
	if err := c.Scoring.Validate(); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfiguration, err)
	}
	if err := c.Classifier.Validate(); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfiguration, err)
	}
	if err := c.Planner.Validate(); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfiguration, err)
	}
	return nil
}

// Orchestrator owns the process-wide run state machine and the published
// snapshot. At most one run is in flight at any time; triggers while
// running are rejected, not queued.
type Orchestrator struct {
	cfg      Config
	data     MarketData
	recorder Recorder
	events   EventPublisher

	mu              sync.Mutex
	state           RunState
	cancelRun       context.CancelFunc
	cancelRequested bool

	snapMu  sync.RWMutex
	current *Snapshot
}

// NewOrchestrator validates the configuration and returns an orchestrator
// in the not_run state.
func NewOrchestrator(cfg Config, data MarketData) (*Orchestrator, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Orchestrator{
		cfg:   cfg,
		data:  data,
		state: RunState{Status: StatusNotRun},
	}, nil
}

// SetRecorder attaches the persistence sink for completed runs.
func (o *Orchestrator) SetRecorder(r Recorder) {
	o.recorder = r
}

// SetEvents attaches the live status publisher.
func (o *Orchestrator) SetEvents(p EventPublisher) {
	o.events = p
}

// Trigger starts a run and returns immediately with its run ID. Returns
// ErrAlreadyRunning without changing state when a run is in flight.
func (o *Orchestrator) Trigger() (string, error) {
	o.mu.Lock()
	if o.state.Status == StatusRunning {
		o.mu.Unlock()
		return "", ErrAlreadyRunning
	}

	runID := uuid.NewString()
	now := time.Now().UTC()
	o.state = RunState{RunID: runID, Status: StatusRunning, StartedAt: &now}
	ctx, cancel := context.WithTimeout(context.Background(), o.cfg.RunTimeout)
	o.cancelRun = cancel
	o.cancelRequested = false
	o.mu.Unlock()

	log.Printf("🚀 Pipeline run %s started", runID)
	o.publishState()
	go o.run(ctx, cancel, runID)
	return runID, nil
}

// Cancel requests cooperative cancellation of the in-flight run: no new
// per-stock work is scheduled, in-flight computations finish, and the run
// ends failed with a cancellation message.
func (o *Orchestrator) Cancel() error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.state.Status != StatusRunning || o.cancelRun == nil {
		return ErrNotRunning
	}
	o.cancelRequested = true
	o.cancelRun()
	log.Printf("⚠️ Pipeline run %s cancellation requested", o.state.RunID)
	return nil
}

// State returns a copy of the current run state.
func (o *Orchestrator) State() RunState {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.state
}

// Current returns the last successfully published snapshot, or nil before
// the first completed run. The snapshot is immutable.
func (o *Orchestrator) Current() *Snapshot {
	o.snapMu.RLock()
	defer o.snapMu.RUnlock()
	return o.current
}

type stockResult struct {
	code       string
	indicators *analysis.IndicatorSnapshot
	signal     *analysis.Signal
	plan       *analysis.TradePlan
	err        error
}

func (o *Orchestrator) run(ctx context.Context, cancel context.CancelFunc, runID string) {
	defer cancel()

	universe, err := o.data.Universe(ctx)
	if err != nil {
		o.finish(StatusFailed, fmt.Sprintf("loading stock universe: %v", err), 0, 0, 0)
		return
	}
	if len(universe) == 0 {
		o.finish(StatusFailed, "stock universe is empty", 0, 0, 0)
		return
	}

	jobs := make(chan StockInfo)
	results := make(chan stockResult, len(universe))

	workers := o.cfg.Concurrency
	if workers > len(universe) {
		workers = len(universe)
	}

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for stock := range jobs {
				results <- o.processStock(ctx, stock)
			}
		}()
	}

	// Scheduling loop: cancellation and timeout stop new work here while
	// in-flight per-stock computations are allowed to finish.
	scheduled := 0
dispatch:
	for _, stock := range universe {
		select {
		case <-ctx.Done():
			break dispatch
		case jobs <- stock:
			scheduled++
		}
	}
	close(jobs)

	go func() {
		wg.Wait()
		close(results)
	}()

	var signals []analysis.Signal
	var plans []*analysis.TradePlan
	var failures []string
	indicators := make(map[string]analysis.IndicatorSnapshot)
	for res := range results {
		if res.err != nil {
			failures = append(failures, fmt.Sprintf("%s: %v", res.code, res.err))
			log.Printf("⚠️ Pipeline run %s: stock %s skipped: %v", runID, res.code, res.err)
			continue
		}
		if res.indicators != nil {
			indicators[res.code] = *res.indicators
		}
		if res.signal != nil {
			signals = append(signals, *res.signal)
		}
		if res.plan != nil {
			plans = append(plans, res.plan)
		}
	}

	total := len(universe)
	succeeded := scheduled - len(failures)

	if o.isCancelRequested() {
		o.finish(StatusFailed, ErrRunCancelled.Error(), total, succeeded, len(failures))
		return
	}
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		o.finish(StatusFailed, fmt.Sprintf("%v after %v", ErrRunTimeout, o.cfg.RunTimeout), total, succeeded, len(failures))
		return
	}

	if failRate := float64(len(failures)) / float64(total); failRate > o.cfg.MaxFailureRate {
		msg := fmt.Sprintf("%d of %d stocks failed (%.0f%% > %.0f%% allowed); first error: %s",
			len(failures), total, failRate*100, o.cfg.MaxFailureRate*100, failures[0])
		o.finish(StatusFailed, msg, total, succeeded, len(failures))
		return
	}

	snap := BuildSnapshot(time.Now().UTC().Truncate(24*time.Hour), signals, plans)
	snap.Indicators = indicators
	if o.recorder != nil {
		if err := o.recorder.SaveRun(ctx, snap); err != nil {
			o.finish(StatusFailed, fmt.Sprintf("persisting run results: %v", err), total, succeeded, len(failures))
			return
		}
	}

	// Single commit point: readers see the previous snapshot until here.
	o.snapMu.Lock()
	o.current = snap
	o.snapMu.Unlock()

	o.finish(StatusCompleted, snap.Summary, total, succeeded, len(failures))
}

// processStock runs the Indicator → Score → Classify → Plan chain for one
// stock. Data source failures are retried before the stock is reported as
// failed; a stock that simply produces no signal is a success.
func (o *Orchestrator) processStock(ctx context.Context, stock StockInfo) stockResult {
	res := stockResult{code: stock.Code}

	var bars []analysis.PriceBar
	err := o.withRetry(ctx, func() error {
		var e error
		bars, e = o.data.PriceHistory(ctx, stock.Code)
		return e
	})
	if err != nil {
		res.err = fmt.Errorf("price history: %w", err)
		return res
	}
	if len(bars) == 0 {
		return res
	}

	var fund *analysis.FundamentalSnapshot
	err = o.withRetry(ctx, func() error {
		var e error
		fund, e = o.data.LatestFundamental(ctx, stock.Code)
		return e
	})
	if err != nil {
		res.err = fmt.Errorf("fundamentals: %w", err)
		return res
	}

	last := bars[len(bars)-1]
	ind := analysis.ComputeIndicators(bars)
	res.indicators = &ind
	fund = analysis.NormalizeFundamentals(fund, last.Close)

	score := analysis.Score(ind, fund, analysis.PriceContext{Close: last.Close, Volume: last.Volume}, o.cfg.Scoring)
	signalType, ok := analysis.Classify(score.Score, o.cfg.Classifier)
	if !ok {
		return res
	}

	sig := analysis.Signal{
		StockCode:        stock.Code,
		StockName:        stock.Name,
		Date:             last.Date,
		SignalType:       signalType,
		Score:            score.Score,
		TechnicalScore:   score.TechnicalScore,
		FundamentalScore: score.FundamentalScore,
		Reasons:          score.Reasons,
	}
	res.signal = &sig

	if plan, ok := analysis.BuildPlan(sig, ind, last.Close, o.cfg.Planner); ok {
		res.plan = plan
	}
	return res
}

// withRetry re-runs fn on ErrDataUnavailable up to the configured retry
// count. Other errors, and runs past cancellation, fail immediately.
func (o *Orchestrator) withRetry(ctx context.Context, fn func() error) error {
	var err error
	for attempt := 0; attempt <= o.cfg.StockRetries; attempt++ {
		err = fn()
		if err == nil || !errors.Is(err, ErrDataUnavailable) || ctx.Err() != nil {
			return err
		}
	}
	return err
}

func (o *Orchestrator) isCancelRequested() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.cancelRequested
}

func (o *Orchestrator) finish(status RunStatus, message string, total, succeeded, failed int) {
	now := time.Now().UTC()
	o.mu.Lock()
	o.state.Status = status
	o.state.Message = message
	o.state.FinishedAt = &now
	o.state.Total = total
	o.state.Succeeded = succeeded
	o.state.Failed = failed
	o.cancelRun = nil
	runID := o.state.RunID
	o.mu.Unlock()

	if status == StatusCompleted {
		log.Printf("✅ Pipeline run %s completed: %s", runID, message)
	} else {
		log.Printf("❌ Pipeline run %s failed: %s", runID, message)
	}
	o.publishState()
}

func (o *Orchestrator) publishState() {
	if o.events == nil {
		return
	}
	o.events.PublishJSON("pipeline_status", o.State())
}
