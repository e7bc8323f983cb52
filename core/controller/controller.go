package controller

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"hypertuner/core/executor"
	"hypertuner/core/ledger"
	"hypertuner/core/models"
	"hypertuner/core/search"
	"hypertuner/core/space"
)

// Recorder persists job and trial state changes. Recording is
// write-behind: the in-memory ledger stays authoritative and recording
// failures are logged, never fatal.
type Recorder interface {
	RecordJob(job models.TuningJob) error
	RecordJobEvent(event models.JobEvent) error
	RecordTrial(trial models.Trial) error
}

// Options controls controller timing and submission retries
type Options struct {
	AdmissionInterval time.Duration
	PollInterval      time.Duration
	SubmitRetries     int
	SubmitBackoff     time.Duration
	Recorder          Recorder
}

func (o Options) withDefaults() Options {
	if o.AdmissionInterval <= 0 {
		o.AdmissionInterval = 2 * time.Second
	}
	if o.PollInterval <= 0 {
		o.PollInterval = 5 * time.Second
	}
	if o.SubmitRetries <= 0 {
		o.SubmitRetries = 3
	}
	if o.SubmitBackoff <= 0 {
		o.SubmitBackoff = 200 * time.Millisecond
	}
	return o
}

// completionEvent delivers a terminal executor result to the control loop
type completionEvent struct {
	trialID int
	result  executor.Result
}

// Controller drives one tuning job: it admits trials within the budget
// and parallelism bounds, submits them to the executor and ingests
// completions into the ledger. All ledger and job mutation happens on
// the single control loop goroutine; watcher goroutines only poll the
// executor and deliver events over a channel.
type Controller struct {
	job      *models.TuningJob
	sp       *space.ParameterSpace
	strategy search.Strategy
	exec     executor.TrialExecutor
	trials   *ledger.TrialLedger
	opts     Options

	events   chan completionEvent
	stopCh   chan struct{}
	stopOnce sync.Once
	done     chan struct{}

	mu    sync.RWMutex
	trail []models.JobEvent

	// control-loop state, touched only by Run
	stopping  bool
	exhausted bool
}

// New creates a controller for a job. The job must carry a validated
// parameter space, budget and parallelism bound.
func New(job *models.TuningJob, strategy search.Strategy, exec executor.TrialExecutor, opts Options) *Controller {
	eventCap := 2 * job.MaxParallel
	if eventCap < 16 {
		eventCap = 16
	}

	return &Controller{
		job:      job,
		sp:       job.Space,
		strategy: strategy,
		exec:     exec,
		trials:   ledger.New(job.ID, job.Direction),
		opts:     opts.withDefaults(),
		events:   make(chan completionEvent, eventCap),
		stopCh:   make(chan struct{}),
		done:     make(chan struct{}),
	}
}

// Run executes the control loop until the job reaches a terminal state.
// Context cancellation ends the loop immediately (process shutdown);
// a Stop request instead drains running trials first.
func (c *Controller) Run(ctx context.Context) {
	c.recordEvent(nil, models.JobStatusInProgress, "job_started")

	ticker := time.NewTicker(c.opts.AdmissionInterval)
	defer ticker.Stop()

	c.admit(ctx)
	if c.maybeFinish() {
		return
	}

	stopCh := c.stopCh
	for {
		select {
		case <-ctx.Done():
			c.finalize(models.JobStatusStopped, "context_canceled")
			return

		case <-stopCh:
			stopCh = nil
			c.stopping = true
			c.recordEvent(nil, models.JobStatusInProgress, "stop_requested")

		case ev := <-c.events:
			if err := c.ingest(ev); err != nil {
				c.finalize(models.JobStatusFailed, err.Error())
				return
			}
			if !c.stopping {
				c.admit(ctx)
			}

		case <-ticker.C:
			if !c.stopping {
				c.admit(ctx)
			}
		}

		if c.maybeFinish() {
			return
		}
	}
}

// Stop requests a graceful stop: no further trials are admitted, but
// running trials finish before the job reports a terminal state
func (c *Controller) Stop() {
	c.stopOnce.Do(func() { close(c.stopCh) })
}

// Done is closed when the job reaches a terminal state
func (c *Controller) Done() <-chan struct{} {
	return c.done
}

// Job returns a copy of the job's current state
func (c *Controller) Job() models.TuningJob {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return *c.job
}

// Ledger exposes the job's trial ledger for read access
func (c *Controller) Ledger() *ledger.TrialLedger {
	return c.trials
}

// Events returns the job's status transition trail
func (c *Controller) Events() []models.JobEvent {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]models.JobEvent, len(c.trail))
	copy(out, c.trail)
	return out
}

// admit runs one admission cycle: compute free capacity and remaining
// budget, ask the strategy for that many candidates, validate and
// submit each one
func (c *Controller) admit(ctx context.Context) {
	capacity := c.job.MaxParallel - c.trials.CountStatus(models.TrialStatusRunning)
	if capacity <= 0 {
		return
	}

	remaining := c.job.MaxTrials - c.trials.Len()
	if remaining <= 0 {
		return
	}

	want := capacity
	if remaining < want {
		want = remaining
	}

	candidates, err := c.strategy.Propose(c.sp, c.observations(), want)
	if errors.Is(err, search.ErrExhausted) {
		c.markExhausted()
		return
	}
	if err != nil {
		log.Printf("Job %s: strategy %s failed to propose: %v", c.job.ID, c.strategy.Name(), err)
		return
	}
	if len(candidates) < want {
		c.markExhausted()
	}

	for _, candidate := range candidates {
		key := c.sp.Key(candidate)
		if c.trials.Seen(key) {
			continue
		}

		t := c.trials.Append(candidate, key)

		if err := c.sp.Validate(candidate); err != nil {
			// Invalid candidates consume budget and are never retried
			c.failTrial(t.ID, fmt.Sprintf("invalid assignment: %v", err))
			continue
		}

		handle, err := c.submitWithRetry(ctx, candidate)
		if err != nil {
			c.failTrial(t.ID, fmt.Sprintf("executor unavailable: %v", err))
			continue
		}

		if err := c.trials.MarkRunning(t.ID); err != nil {
			log.Printf("Job %s: %v", c.job.ID, err)
			continue
		}
		c.recordTrial(t.ID)

		go c.watch(ctx, t.ID, handle)
	}
}

// failTrial marks a trial failed without it ever reaching the executor.
// Such trials still consume budget and are never retried.
func (c *Controller) failTrial(id int, reason string) {
	if err := c.trials.Fail(id, reason); err != nil {
		log.Printf("Job %s: failing trial %d: %v", c.job.ID, id, err)
		return
	}
	log.Printf("Job %s: trial %d failed: %s", c.job.ID, id, reason)
	c.recordTrial(id)
}

// submitWithRetry retries submission with doubling backoff up to the
// configured cap before the trial degrades to failed
func (c *Controller) submitWithRetry(ctx context.Context, candidate space.Assignment) (executor.Handle, error) {
	backoff := c.opts.SubmitBackoff

	var lastErr error
	for attempt := 0; attempt < c.opts.SubmitRetries; attempt++ {
		handle, err := c.exec.Submit(ctx, candidate, c.job.Resources)
		if err == nil {
			return handle, nil
		}
		lastErr = err

		log.Printf("Job %s: submit attempt %d failed: %v", c.job.ID, attempt+1, err)
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-time.After(backoff):
		}
		backoff *= 2
	}
	return "", lastErr
}

// maxPollFailures is the number of consecutive poll errors a watcher
// tolerates before the trial degrades to failed
const maxPollFailures = 5

// watch polls the executor for one trial until it reaches a terminal
// state and delivers the result to the control loop. The events channel
// is sized so delivery never blocks a watcher behind the admission loop.
func (c *Controller) watch(ctx context.Context, trialID int, handle executor.Handle) {
	ticker := time.NewTicker(c.opts.PollInterval)
	defer ticker.Stop()

	failures := 0
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		result, err := c.exec.Poll(ctx, handle)
		if err != nil {
			failures++
			log.Printf("Job %s: polling trial %d: %v", c.job.ID, trialID, err)
			if failures >= maxPollFailures {
				c.events <- completionEvent{trialID: trialID, result: executor.Result{
					Status: models.TrialStatusFailed,
					Reason: fmt.Sprintf("polling failed %d times: %v", failures, err),
				}}
				return
			}
			continue
		}
		failures = 0

		if result.Status.Terminal() {
			c.events <- completionEvent{trialID: trialID, result: result}
			return
		}
	}
}

// ingest applies a completion event to the ledger. A transition error
// here means the state machine contract is broken and the job must
// surface a hard failure.
func (c *Controller) ingest(ev completionEvent) error {
	var err error
	switch ev.result.Status {
	case models.TrialStatusCompleted:
		err = c.trials.Complete(ev.trialID, ev.result.Objective)
	case models.TrialStatusFailed:
		err = c.trials.Fail(ev.trialID, ev.result.Reason)
	default:
		err = fmt.Errorf("%w: non-terminal result %q for trial %d", ledger.ErrInvariantViolation, ev.result.Status, ev.trialID)
	}
	if err != nil {
		return err
	}

	c.recordTrial(ev.trialID)
	return nil
}

// observations exposes every admitted trial to the strategy: completed
// trials carry their objective, all others count as explored-and-rejected
func (c *Controller) observations() []search.Observation {
	snapshot := c.trials.Snapshot()
	obs := make([]search.Observation, 0, len(snapshot))
	for _, t := range snapshot {
		o := search.Observation{Assignment: t.Assignment, Failed: true}
		if t.Status == models.TrialStatusCompleted && t.Objective != nil {
			o.Failed = false
			o.Objective = *t.Objective
		}
		obs = append(obs, o)
	}
	return obs
}

// maybeFinish finalizes the job when no trial is in flight and either
// the budget is consumed, the strategy is exhausted, or a stop was
// requested
func (c *Controller) maybeFinish() bool {
	active := c.trials.CountStatus(models.TrialStatusRunning) + c.trials.CountStatus(models.TrialStatusPending)
	if active > 0 {
		return false
	}

	budgetConsumed := c.trials.Len() >= c.job.MaxTrials

	switch {
	case budgetConsumed:
		c.finalize(models.JobStatusCompleted, "budget_exhausted")
	case c.exhausted:
		c.finalize(models.JobStatusCompleted, "search_exhausted")
	case c.stopping:
		c.finalize(models.JobStatusStopped, "stop_requested")
	default:
		return false
	}
	return true
}

func (c *Controller) markExhausted() {
	if !c.exhausted {
		c.exhausted = true
		log.Printf("Job %s: strategy %s cannot propose further distinct candidates", c.job.ID, c.strategy.Name())
	}
}

func (c *Controller) finalize(status models.JobStatus, reason string) {
	now := time.Now()
	from := c.job.Status

	c.mu.Lock()
	c.job.Status = status
	c.job.Exhausted = c.exhausted
	c.job.CompletedAt = &now
	c.mu.Unlock()

	c.recordEvent(&from, status, reason)
	log.Printf("Job %s finished with status %s (%s): %d trials recorded", c.job.ID, status, reason, c.trials.Len())
	close(c.done)
}

func (c *Controller) recordEvent(from *models.JobStatus, to models.JobStatus, reason string) {
	ev := models.JobEvent{
		JobID:      c.job.ID,
		At:         time.Now(),
		FromStatus: from,
		ToStatus:   to,
		Reason:     reason,
	}

	c.mu.Lock()
	ev.ID = int64(len(c.trail) + 1)
	c.trail = append(c.trail, ev)
	job := *c.job
	c.mu.Unlock()

	if c.opts.Recorder != nil {
		if err := c.opts.Recorder.RecordJob(job); err != nil {
			log.Printf("Job %s: recording job state: %v", c.job.ID, err)
		}
		if err := c.opts.Recorder.RecordJobEvent(ev); err != nil {
			log.Printf("Job %s: recording event: %v", c.job.ID, err)
		}
	}
}

func (c *Controller) recordTrial(id int) {
	if c.opts.Recorder == nil {
		return
	}
	t, ok := c.trials.Get(id)
	if !ok {
		return
	}
	if err := c.opts.Recorder.RecordTrial(t); err != nil {
		log.Printf("Job %s: recording trial %d: %v", c.job.ID, id, err)
	}
}
