package middlewares

import (
	"context"
	"fmt"

	"niftybot/internal/pipeline"
	"niftybot/internal/trade"
)

// Renderer formats the selected record as a chat message.
type Renderer interface {
	Render(rec trade.Record, ok bool) string
}

type Render struct {
	meta     pipeline.MiddlewareMeta
	renderer Renderer
}

func NewRender(cfg Config, renderer Renderer) *Render {
	return &Render{meta: cfg.meta("render"), renderer: renderer}
}

func (r *Render) Meta() pipeline.MiddlewareMeta { return r.meta }

func (r *Render) Handle(_ context.Context, rc *pipeline.RunContext) error {
	if r.renderer == nil {
		return fmt.Errorf("no formatter configured")
	}
	ranking := rc.Ranking()
	rc.SetMessage(r.renderer.Render(ranking.Best, ranking.Found))
	return nil
}
