package pipeline

import (
	"cmp"
	"context"
	"fmt"
	"runtime/debug"
	"slices"

	"niftybot/internal/logger"

	"golang.org/x/sync/errgroup"
)

// Pipeline runs middlewares stage by stage. Middlewares sharing a stage run
// concurrently; the next stage starts once the current one has finished.
type Pipeline struct {
	name   string
	stages [][]Middleware
}

// New groups middlewares by ascending stage, keeping registration order
// within a stage.
func New(name string, middlewares ...Middleware) *Pipeline {
	mws := slices.DeleteFunc(slices.Clone(middlewares), func(mw Middleware) bool { return mw == nil })
	slices.SortStableFunc(mws, func(a, b Middleware) int {
		return cmp.Compare(a.Meta().Stage, b.Meta().Stage)
	})
	p := &Pipeline{name: name}
	for i, mw := range mws {
		if i == 0 || mw.Meta().Stage != mws[i-1].Meta().Stage {
			p.stages = append(p.stages, nil)
		}
		last := len(p.stages) - 1
		p.stages[last] = append(p.stages[last], mw)
	}
	return p
}

func (p *Pipeline) Name() string { return p.name }

// Stages lists middleware names per stage, for startup summaries.
func (p *Pipeline) Stages() [][]string {
	out := make([][]string, len(p.stages))
	for i, stage := range p.stages {
		for _, mw := range stage {
			out[i] = append(out[i], mw.Meta().Name)
		}
	}
	return out
}

// Run executes every stage until one fails critically or a middleware halts the run.
func (p *Pipeline) Run(ctx context.Context, rc *RunContext) error {
	if rc == nil {
		return fmt.Errorf("nil run context")
	}
	if ctx == nil {
		ctx = context.Background()
	}
	for _, stage := range p.stages {
		if halted, _ := rc.Halted(); halted {
			return nil
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := p.runStage(ctx, rc, stage); err != nil {
			rc.AddWarning(err.Error())
			return err
		}
	}
	return nil
}

// runStage returns the first critical failure. Non-critical failures are
// recorded on rc as they happen.
func (p *Pipeline) runStage(ctx context.Context, rc *RunContext, stage []Middleware) error {
	group, stageCtx := errgroup.WithContext(ctx)
	for _, mw := range stage {
		group.Go(func() error {
			err := p.runOne(stageCtx, rc, mw)
			if err == nil || err.Critical {
				return asError(err)
			}
			rc.AddWarning(err.Error())
			logger.With("run_id", rc.RunID).Warnf("[pipeline] %s %s", p.name, err.Error())
			return nil
		})
	}
	return group.Wait()
}

// runOne applies the middleware timeout and turns a panic into a critical
// failure so the errgroup goroutine never takes the process down.
func (p *Pipeline) runOne(ctx context.Context, rc *RunContext, mw Middleware) (failure *MiddlewareError) {
	meta := mw.Meta()
	defer func() {
		if r := recover(); r != nil {
			logger.With("run_id", rc.RunID).Errorf("[pipeline] %s panic: %v\n%s", meta.Name, r, debug.Stack())
			failure = meta.fail(fmt.Errorf("panic: %v", r), true)
		}
	}()
	if meta.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, meta.Timeout)
		defer cancel()
	}
	if err := mw.Handle(ctx, rc); err != nil {
		return meta.fail(err, meta.Critical)
	}
	return nil
}

// asError avoids returning a typed nil inside a non-nil error interface.
func asError(e *MiddlewareError) error {
	if e == nil {
		return nil
	}
	return e
}
