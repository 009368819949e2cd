package factory

import (
	"fmt"
	"strings"
	"time"

	"niftybot/internal/gateway/notifier"
	"niftybot/internal/gateway/provider"
	"niftybot/internal/pipeline"
	"niftybot/internal/pipeline/middlewares"
	"niftybot/internal/trade"
)

// StageConfig selects one middleware by name.
type StageConfig struct {
	Name           string
	Stage          int
	Critical       bool
	TimeoutSeconds int
}

// DefaultStages is the standard alert run.
var DefaultStages = []StageConfig{
	{Name: "market_gate", Stage: 0, Critical: true},
	{Name: "fetch", Stage: 1},
	{Name: "extract", Stage: 2, Critical: true},
	{Name: "select", Stage: 3, Critical: true},
	{Name: "render", Stage: 4, Critical: true},
	{Name: "deliver", Stage: 5},
}

// Factory holds the dependencies a run needs.
type Factory struct {
	Calendar  middlewares.ClosedChecker
	Source    provider.Source
	Extractor trade.Extractor
	Formatter middlewares.Renderer
	Notifier  notifier.TextNotifier
	Now       func() time.Time
	// FetchTimeout bounds the source call when the stage sets none.
	FetchTimeout time.Duration
}

func (f *Factory) Build(cfg StageConfig) (pipeline.Middleware, error) {
	mc := middlewares.Config{
		Name:     cfg.Name,
		Stage:    cfg.Stage,
		Critical: cfg.Critical,
		Timeout:  time.Duration(cfg.TimeoutSeconds) * time.Second,
	}
	switch strings.TrimSpace(cfg.Name) {
	case "market_gate":
		if f.Calendar == nil {
			return nil, fmt.Errorf("market_gate requires a calendar")
		}
		return middlewares.NewMarketGate(mc, f.Calendar, f.Now), nil
	case "fetch":
		if f.Source == nil {
			return nil, fmt.Errorf("fetch requires a source")
		}
		if mc.Timeout <= 0 {
			mc.Timeout = f.FetchTimeout
		}
		return middlewares.NewFetch(mc, f.Source), nil
	case "extract":
		if f.Extractor == nil {
			return nil, fmt.Errorf("extract requires an extractor")
		}
		return middlewares.NewExtract(mc, f.Extractor), nil
	case "select":
		return middlewares.NewSelect(mc), nil
	case "render":
		if f.Formatter == nil {
			return nil, fmt.Errorf("render requires a formatter")
		}
		return middlewares.NewRender(mc, f.Formatter), nil
	case "deliver":
		if f.Notifier == nil {
			return nil, fmt.Errorf("deliver requires a notifier")
		}
		return middlewares.NewDeliver(mc, f.Notifier), nil
	default:
		return nil, fmt.Errorf("unknown middleware: %s", cfg.Name)
	}
}

// Pipeline builds the named chain; an empty list means DefaultStages.
func (f *Factory) Pipeline(name string, stages []StageConfig) (*pipeline.Pipeline, error) {
	if len(stages) == 0 {
		stages = DefaultStages
	}
	mws := make([]pipeline.Middleware, 0, len(stages))
	for _, st := range stages {
		mw, err := f.Build(st)
		if err != nil {
			return nil, err
		}
		mws = append(mws, mw)
	}
	return pipeline.New(name, mws...), nil
}
