package middlewares

import (
	"context"

	"niftybot/internal/logger"
	"niftybot/internal/pipeline"
	"niftybot/internal/trade"
)

// Select keeps the highest-confidence record.
type Select struct {
	meta pipeline.MiddlewareMeta
}

func NewSelect(cfg Config) *Select {
	return &Select{meta: cfg.meta("select")}
}

func (s *Select) Meta() pipeline.MiddlewareMeta { return s.meta }

func (s *Select) Handle(_ context.Context, rc *pipeline.RunContext) error {
	ranking := trade.Rank(rc.Records())
	log := logger.With("run_id", rc.RunID)
	for _, skipped := range ranking.Skipped {
		log.Warnf("skipping record: %v", skipped)
		rc.AddWarning(skipped.Error())
	}
	if ranking.Found {
		log.Infof("selected trade #%d %s %s confidence=%s",
			ranking.Index+1, ranking.Best.OptionType, ranking.Best.StrikePrice, ranking.Best.ConfidenceLevel)
	}
	rc.SetRanking(ranking)
	return nil
}
