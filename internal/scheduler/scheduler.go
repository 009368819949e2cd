package scheduler

import (
	"context"
	"time"

	"niftybot/internal/logger"
)

// Scheduler wakes task until its context ends. Runs are sequential: a slow
// task delays or skips later ticks instead of overlapping them.
type Scheduler interface {
	Start(task func())
}

// AlignedScheduler fires on wall-clock multiples of Interval counted from
// midnight in Location (e.g. :00/:15/:30/:45 for 15m), shifted by Offset.
type AlignedScheduler struct {
	Interval       time.Duration
	Offset         time.Duration
	RunImmediately bool
	Location       *time.Location
	// Window limits ticks to a time-of-day range; nil means all day.
	Window *DayWindow

	ctx   context.Context
	nowFn func() time.Time
}

func NewAlignedScheduler(ctx context.Context, interval, offset time.Duration) *AlignedScheduler {
	if ctx == nil {
		ctx = context.Background()
	}
	return &AlignedScheduler{
		Interval: interval,
		Offset:   offset,
		Location: time.UTC,
		ctx:      ctx,
		nowFn:    time.Now,
	}
}

func (s *AlignedScheduler) Start(task func()) {
	if s == nil {
		return
	}
	if task == nil {
		logger.Warnf("AlignedScheduler: task is nil, exit")
		return
	}
	if s.Interval <= 0 {
		logger.Warnf("AlignedScheduler: invalid interval=%s, exit", s.Interval)
		return
	}
	if s.Offset < 0 {
		logger.Warnf("AlignedScheduler: negative offset=%s, clamp to 0", s.Offset)
		s.Offset = 0
	}
	if s.ctx == nil {
		s.ctx = context.Background()
	}
	if s.nowFn == nil {
		s.nowFn = time.Now
	}
	if s.Location == nil {
		s.Location = time.UTC
	}

	startAt := s.nowFn().In(s.Location)
	logger.Infof("AlignedScheduler: started interval=%s offset=%s window=%s run_immediately=%v at=%s",
		s.Interval, s.Offset, s.Window, s.RunImmediately, startAt.Format(time.RFC3339))

	if s.RunImmediately {
		logger.Infof("AlignedScheduler: RunImmediately=true, execute once before alignment loop")
		s.fire(startAt, task)
	}

	for {
		now := s.nowFn().In(s.Location)
		wakeAt, wait := s.nextTimes(now)
		logger.Infof("AlignedScheduler: next run at %s (in %s) | uptime=%s",
			wakeAt.Format(time.RFC3339),
			wait.Truncate(time.Second),
			now.Sub(startAt).Truncate(time.Second),
		)

		if wait > 0 {
			timer := time.NewTimer(wait)
			select {
			case <-s.ctx.Done():
				timer.Stop()
				logger.Infof("AlignedScheduler: ctx done, exit")
				return
			case <-timer.C:
			}
		} else if s.ctx.Err() != nil {
			return
		}
		s.fire(wakeAt, task)
	}
}

func (s *AlignedScheduler) fire(at time.Time, task func()) {
	if s.Window != nil && !s.Window.Contains(at) {
		logger.Debugf("AlignedScheduler: %s outside window %s, skip", at.Format("15:04"), s.Window)
		return
	}
	task()
}

// nextTimes returns the next aligned wake-up strictly after now.
func (s *AlignedScheduler) nextTimes(now time.Time) (wakeAt time.Time, wait time.Duration) {
	loc := s.Location
	if loc == nil {
		loc = time.UTC
	}
	now = now.In(loc)
	var boundary time.Time
	if s.Interval <= 24*time.Hour {
		midnight := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, loc)
		elapsed := now.Sub(midnight) - s.Offset
		steps := elapsed/s.Interval + 1
		if elapsed < 0 {
			steps = 0
		}
		boundary = midnight.Add(time.Duration(steps) * s.Interval)
	} else {
		boundary = now.Add(-s.Offset).Truncate(s.Interval).Add(s.Interval)
	}
	wakeAt = boundary.Add(s.Offset)
	return wakeAt, wakeAt.Sub(now)
}
