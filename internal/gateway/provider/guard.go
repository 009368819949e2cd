package provider

import (
	"context"
	"fmt"
	"time"

	"niftybot/internal/pkg/circuit"
)

// Guarded short-circuits fetches while its breaker is open, so a dead service
// is not hit on every scheduled run.
type Guarded struct {
	inner   Source
	breaker *circuit.Breaker
}

func NewGuarded(inner Source, breaker *circuit.Breaker) *Guarded {
	return &Guarded{inner: inner, breaker: breaker}
}

func (g *Guarded) Name() string { return g.inner.Name() }

func (g *Guarded) Breaker() *circuit.Breaker { return g.breaker }

func (g *Guarded) Fetch(ctx context.Context, prompt string) (string, error) {
	if !g.breaker.Allow() {
		return "", fmt.Errorf("%w: %w, retry in %s", ErrSourceUnavailable, circuit.ErrOpen, g.breaker.RetryIn().Round(time.Second))
	}
	text, err := g.inner.Fetch(ctx, prompt)
	if err != nil {
		if ctx.Err() == nil {
			g.breaker.RecordFailure()
		}
		return "", err
	}
	g.breaker.RecordSuccess()
	return text, nil
}
