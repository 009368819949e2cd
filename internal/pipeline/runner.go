package pipeline

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"sync"
	"time"

	"niftybot/internal/logger"
	"niftybot/internal/trade"

	"github.com/google/uuid"
)

// ErrRunInProgress is reported when a trigger arrives while a run is still going.
var ErrRunInProgress = errors.New("pipeline: run already in progress")

// Outcome summarises one run. It is kept in memory only.
type Outcome struct {
	RunID      string         `json:"run_id"`
	StartedAt  time.Time      `json:"started_at"`
	FinishedAt time.Time      `json:"finished_at"`
	Skipped    bool           `json:"skipped"`
	Reason     string         `json:"reason,omitempty"`
	Source     string         `json:"source,omitempty"`
	Records    []trade.Record `json:"records,omitempty"`
	Selected   *trade.Record  `json:"selected,omitempty"`
	Message    string         `json:"message,omitempty"`
	Warnings   []string       `json:"warnings,omitempty"`
	Delivered  bool           `json:"delivered"`

	SourceErr   error `json:"-"`
	DeliveryErr error `json:"-"`
	Err         error `json:"-"`

	// String forms of the errors above for JSON consumers.
	SourceError   string `json:"source_error,omitempty"`
	DeliveryError string `json:"delivery_error,omitempty"`
	Error         string `json:"error,omitempty"`
}

// Runner executes the pipeline once per trigger. Triggers never overlap: one
// arriving during a run is skipped.
type Runner struct {
	pipe   *Pipeline
	prompt string
	now    func() time.Time
	newID  func() string

	running sync.Mutex
	mu      sync.RWMutex
	last    *Outcome
}

func NewRunner(pipe *Pipeline, prompt string) *Runner {
	return &Runner{
		pipe:   pipe,
		prompt: prompt,
		now:    time.Now,
		newID:  func() string { return uuid.NewString() },
	}
}

// SetClock overrides the run timestamp source.
func (r *Runner) SetClock(now func() time.Time) {
	if now != nil {
		r.now = now
	}
}

func (r *Runner) Pipeline() *Pipeline { return r.pipe }

// Tick adapts Run to scheduler.Scheduler.
func (r *Runner) Tick(ctx context.Context) func() {
	return func() { r.Run(ctx) }
}

// Run executes one invocation. Panics are recovered and reported in Outcome.Err.
func (r *Runner) Run(ctx context.Context) Outcome {
	if !r.running.TryLock() {
		logger.Warnf("[pipeline] previous run still in progress, skip trigger")
		return Outcome{Skipped: true, Reason: "busy", Err: ErrRunInProgress, Error: ErrRunInProgress.Error()}
	}
	defer r.running.Unlock()

	rc := NewRunContext(r.newID(), r.prompt, r.now())
	log := logger.With("run_id", rc.RunID)
	log.Infof("[pipeline] run started")

	err := r.execute(ctx, rc)
	out := r.collect(rc, err)
	switch {
	case out.Err != nil:
		log.Errorf("[pipeline] run failed: %v", out.Err)
	case out.Skipped:
		log.Infof("[pipeline] run skipped: %s", out.Reason)
	default:
		log.Infof("[pipeline] run finished records=%d selected=%v delivered=%v in %s",
			len(out.Records), out.Selected != nil, out.Delivered, out.FinishedAt.Sub(out.StartedAt).Truncate(time.Millisecond))
	}

	r.mu.Lock()
	r.last = &out
	r.mu.Unlock()
	return out
}

func (r *Runner) execute(ctx context.Context, rc *RunContext) (err error) {
	defer func() {
		if p := recover(); p != nil {
			logger.With("run_id", rc.RunID).Errorf("[pipeline] panic: %v\n%s", p, debug.Stack())
			err = fmt.Errorf("pipeline panic: %v", p)
		}
	}()
	if r.pipe == nil {
		return errors.New("pipeline not configured")
	}
	return r.pipe.Run(ctx, rc)
}

func (r *Runner) collect(rc *RunContext, err error) Outcome {
	out := Outcome{
		RunID:      rc.RunID,
		StartedAt:  rc.StartedAt,
		FinishedAt: r.now(),
		Records:    rc.Records(),
		Message:    rc.Message(),
		Warnings:   rc.Warnings(),
		Err:        err,
	}
	out.Skipped, out.Reason = rc.Halted()
	out.Source, _, out.SourceErr = rc.Response()
	if rk := rc.Ranking(); rk.Found {
		best := rk.Best
		out.Selected = &best
	}
	out.Delivered, out.DeliveryErr = rc.Delivery()
	if out.SourceErr != nil {
		out.SourceError = out.SourceErr.Error()
	}
	if out.DeliveryErr != nil {
		out.DeliveryError = out.DeliveryErr.Error()
	}
	if out.Err != nil {
		out.Error = out.Err.Error()
	}
	return out
}

// LastRun returns the most recent outcome, if any.
func (r *Runner) LastRun() (Outcome, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.last == nil {
		return Outcome{}, false
	}
	return *r.last, true
}
