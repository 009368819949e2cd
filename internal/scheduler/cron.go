package scheduler

import (
	"context"
	"fmt"
	"strings"
	"time"

	"niftybot/internal/logger"

	"github.com/robfig/cron/v3"
)

var cronParser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)

// ValidateCron checks a standard five-field expression (or @every/@daily style descriptor).
func ValidateCron(expr string) error {
	if _, err := cronParser.Parse(strings.TrimSpace(expr)); err != nil {
		return fmt.Errorf("invalid cron expression %q: %w", expr, err)
	}
	return nil
}

// CronScheduler runs the task on a cron expression evaluated in Location.
// A tick that arrives while the previous run is still going is skipped.
type CronScheduler struct {
	Expr     string
	Location *time.Location
	// Window drops ticks outside a time-of-day range; nil means all day.
	Window *DayWindow

	ctx context.Context
}

func NewCronScheduler(ctx context.Context, expr string, loc *time.Location) *CronScheduler {
	if ctx == nil {
		ctx = context.Background()
	}
	if loc == nil {
		loc = time.UTC
	}
	return &CronScheduler{Expr: strings.TrimSpace(expr), Location: loc, ctx: ctx}
}

// Start blocks until the context ends.
func (s *CronScheduler) Start(task func()) {
	if s == nil || task == nil {
		return
	}
	c := cron.New(
		cron.WithLocation(s.Location),
		cron.WithParser(cronParser),
		cron.WithChain(cron.SkipIfStillRunning(cronLogger{})),
	)
	id, err := c.AddFunc(s.Expr, func() {
		now := time.Now().In(s.Location)
		if !s.Window.Contains(now) {
			logger.Debugf("CronScheduler: %s outside window %s, skip", now.Format("15:04"), s.Window)
			return
		}
		task()
	})
	if err != nil {
		logger.Errorf("CronScheduler: invalid expression %q: %v", s.Expr, err)
		return
	}
	c.Start()
	logger.Infof("CronScheduler: started expr=%q loc=%s next=%s", s.Expr, s.Location, c.Entry(id).Next.Format(time.RFC3339))

	<-s.ctx.Done()
	stopped := c.Stop()
	<-stopped.Done()
	logger.Infof("CronScheduler: ctx done, exit")
}

// cronLogger adapts the package logger to cron.Logger.
type cronLogger struct{}

func (cronLogger) Info(msg string, keysAndValues ...any) {
	logger.Debugf("cron: %s %v", msg, keysAndValues)
}

func (cronLogger) Error(err error, msg string, keysAndValues ...any) {
	logger.Errorf("cron: %s: %v %v", msg, err, keysAndValues)
}
