package middlewares

import (
	"context"
	"fmt"
	"strings"

	"niftybot/internal/gateway/notifier"
	"niftybot/internal/logger"
	"niftybot/internal/pipeline"
)

// Deliver posts the message once. Failures are recorded, never retried.
type Deliver struct {
	meta     pipeline.MiddlewareMeta
	notifier notifier.TextNotifier
}

func NewDeliver(cfg Config, n notifier.TextNotifier) *Deliver {
	return &Deliver{meta: cfg.meta("deliver"), notifier: n}
}

func (d *Deliver) Meta() pipeline.MiddlewareMeta { return d.meta }

func (d *Deliver) Handle(_ context.Context, rc *pipeline.RunContext) error {
	msg := rc.Message()
	if strings.TrimSpace(msg) == "" {
		return nil
	}
	if d.notifier == nil {
		err := fmt.Errorf("no notifier configured")
		rc.SetDelivery(err)
		return err
	}
	err := d.notifier.SendText(msg)
	rc.SetDelivery(err)
	if err != nil {
		return fmt.Errorf("send alert: %w", err)
	}
	logger.With("run_id", rc.RunID).Infof("alert delivered")
	return nil
}
