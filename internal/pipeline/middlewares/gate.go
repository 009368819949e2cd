package middlewares

import (
	"context"
	"time"

	"niftybot/internal/logger"
	"niftybot/internal/pipeline"
)

// ClosedChecker answers whether the market is shut on a given instant.
type ClosedChecker interface {
	Reason(ref time.Time) string
}

// MarketGate halts the run on weekends and exchange holidays.
type MarketGate struct {
	meta     pipeline.MiddlewareMeta
	calendar ClosedChecker
	now      func() time.Time
}

func NewMarketGate(cfg Config, calendar ClosedChecker, now func() time.Time) *MarketGate {
	if now == nil {
		now = time.Now
	}
	return &MarketGate{meta: cfg.meta("market_gate"), calendar: calendar, now: now}
}

func (g *MarketGate) Meta() pipeline.MiddlewareMeta { return g.meta }

func (g *MarketGate) Handle(_ context.Context, rc *pipeline.RunContext) error {
	if g.calendar == nil {
		return nil
	}
	if reason := g.calendar.Reason(g.now()); reason != "" {
		logger.With("run_id", rc.RunID, "reason", reason).Infof("Market closed today. Skipping job.")
		rc.Halt("market closed (" + reason + ")")
	}
	return nil
}
