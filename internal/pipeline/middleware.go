package pipeline

import (
	"context"
	"time"
)

// Middleware is one step of a run.
type Middleware interface {
	Meta() MiddlewareMeta
	Handle(ctx context.Context, rc *RunContext) error
}

// MiddlewareMeta places a step and sets its failure policy.
// A failing Critical middleware aborts the run; other failures become warnings.
type MiddlewareMeta struct {
	Name     string
	Stage    int
	Critical bool
	Timeout  time.Duration
}

func (m MiddlewareMeta) fail(err error, critical bool) *MiddlewareError {
	return &MiddlewareError{Middleware: m.Name, Stage: m.Stage, Critical: critical, Err: err}
}

// MiddlewareError records which step failed and whether it stopped the run.
type MiddlewareError struct {
	Middleware string
	Stage      int
	Critical   bool
	Err        error
}

func (e *MiddlewareError) Error() string {
	if e.Err == nil {
		return e.Middleware
	}
	return e.Middleware + ": " + e.Err.Error()
}

func (e *MiddlewareError) Unwrap() error { return e.Err }
