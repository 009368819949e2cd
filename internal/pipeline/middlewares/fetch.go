package middlewares

import (
	"context"
	"fmt"

	"niftybot/internal/gateway/provider"
	"niftybot/internal/logger"
	"niftybot/internal/pipeline"
	textutil "niftybot/internal/pkg/text"
)

const previewRunes = 240

// Fetch asks the advisory source for a reply. A failing source does not stop
// the run: its error text becomes the response so the run still reports.
type Fetch struct {
	meta   pipeline.MiddlewareMeta
	source provider.Source
}

func NewFetch(cfg Config, source provider.Source) *Fetch {
	return &Fetch{meta: cfg.meta("fetch"), source: source}
}

func (f *Fetch) Meta() pipeline.MiddlewareMeta { return f.meta }

func (f *Fetch) Handle(ctx context.Context, rc *pipeline.RunContext) error {
	if f.source == nil {
		return fmt.Errorf("no response source configured")
	}
	name := f.source.Name()
	log := logger.With("run_id", rc.RunID, "source", name)
	log.Infof("requesting trade advice")
	text, err := f.source.Fetch(ctx, rc.Prompt)
	if err != nil {
		rc.SetResponse(name, provider.DegradedText(name, err), err)
		return fmt.Errorf("%s: %w", name, err)
	}
	log.Infof("received reply (%d chars)", len(text))
	log.Debugf("reply: %s", textutil.Preview(text, previewRunes))
	rc.SetResponse(name, text, nil)
	return nil
}
