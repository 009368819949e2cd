package middlewares

import (
	"context"
	"fmt"

	"niftybot/internal/logger"
	"niftybot/internal/pipeline"
	"niftybot/internal/trade"
)

// Extract turns the reply text into trade records.
type Extract struct {
	meta      pipeline.MiddlewareMeta
	extractor trade.Extractor
}

func NewExtract(cfg Config, extractor trade.Extractor) *Extract {
	return &Extract{meta: cfg.meta("extract"), extractor: extractor}
}

func (e *Extract) Meta() pipeline.MiddlewareMeta { return e.meta }

func (e *Extract) Handle(_ context.Context, rc *pipeline.RunContext) error {
	if e.extractor == nil {
		return fmt.Errorf("no extractor configured")
	}
	_, text, _ := rc.Response()
	records := e.extractor.Parse(text)
	logger.With("run_id", rc.RunID).Infof("extracted %d trade record(s)", len(records))
	rc.SetRecords(records)
	return nil
}
