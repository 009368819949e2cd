package app

import (
	"context"
	"fmt"
	"time"

	brcfg "niftybot/internal/config"
	cfgloader "niftybot/internal/config/loader"
	"niftybot/internal/gateway/notifier"
	"niftybot/internal/logger"
	"niftybot/internal/market"
	"niftybot/internal/pipeline"
	statushttp "niftybot/internal/transport/http/status"

	"golang.org/x/sync/errgroup"
)

// App wires configuration and dependencies, then runs the alert pipeline on schedule.
type App struct {
	cfg      *brcfg.Config
	runner   *pipeline.Runner
	calendar *market.Calendar
	holidays *cfgloader.HolidayLoader
	status   *statushttp.Server
	notifier notifier.TextNotifier
	now      func() time.Time
	Summary  *StartupSummary
}

// NewApp builds the application from cfg without starting it.
func NewApp(cfg *brcfg.Config) (*App, error) {
	if cfg == nil {
		return nil, fmt.Errorf("nil config")
	}
	logger.SetLevel(cfg.App.LogLevel)
	return buildAppWithWire(context.Background(), cfg)
}

// Run starts the scheduler and, when configured, the status server. It
// returns once ctx is cancelled or the status server fails.
func (a *App) Run(ctx context.Context) error {
	if a == nil || a.cfg == nil || a.runner == nil {
		return fmt.Errorf("app not initialized")
	}
	if a.Summary != nil {
		a.Summary.Print()
	}
	sched, err := buildScheduler(ctx, a.cfg.Schedule, a.calendar.Location())
	if err != nil {
		return err
	}

	group, ctx := errgroup.WithContext(ctx)
	if a.status != nil {
		group.Go(func() error {
			if err := a.status.Start(ctx); err != nil {
				return fmt.Errorf("status http server error: %w", err)
			}
			return nil
		})
	}
	group.Go(func() error {
		a.sendStartupNotice()
		sched.Start(a.runner.Tick(ctx))
		return nil
	})
	return group.Wait()
}

// RunOnce executes a single pipeline run.
func (a *App) RunOnce(ctx context.Context) pipeline.Outcome {
	return a.runner.Run(ctx)
}

func (a *App) Calendar() *market.Calendar { return a.calendar }

func (a *App) Runner() *pipeline.Runner { return a.runner }

func (a *App) sendStartupNotice() {
	if !a.cfg.Notify.StartupNotice || a.notifier == nil || a.Summary == nil {
		return
	}
	notice := notifier.Notice{
		Icon:      "🚀",
		Title:     "niftybot started",
		Lines:     a.Summary.NoticeLines(),
		Timestamp: a.now().In(a.calendar.Location()),
	}
	if err := a.notifier.SendText(notice.Render()); err != nil {
		logger.Warnf("startup notice failed: %v", err)
	}
}
