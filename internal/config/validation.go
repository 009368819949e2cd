package config

import (
	"fmt"
	"strings"

	"niftybot/internal/scheduler"
)

// validate checks ranges and required fields.
// Missing credentials are not checked here: they surface as auth failures at run time.
func validate(c *Config) error {
	if err := c.Source.validate(); err != nil {
		return err
	}
	switch strings.ToLower(strings.TrimSpace(c.Extract.Strategy)) {
	case "block", "labeled":
	default:
		return fmt.Errorf("extract.strategy must be block or labeled, got %q", c.Extract.Strategy)
	}
	switch strings.ToLower(strings.TrimSpace(c.Alert.Style)) {
	case "markdown", "plain":
	default:
		return fmt.Errorf("alert.style must be markdown or plain, got %q", c.Alert.Style)
	}
	if err := c.Schedule.validate(); err != nil {
		return err
	}
	return c.Pipeline.validate()
}

func (s *SourceConfig) validate() error {
	if s.BreakerThreshold < 0 || s.BreakerCooldownSeconds < 0 {
		return fmt.Errorf("source.breaker_threshold/breaker_cooldown_seconds must be >= 0")
	}
	switch strings.ToLower(strings.TrimSpace(s.Kind)) {
	case "chat":
		if s.TimeoutSeconds <= 0 {
			return fmt.Errorf("source.timeout_seconds must be > 0")
		}
		if s.MaxRetries < 0 {
			return fmt.Errorf("source.max_retries must be >= 0")
		}
		if s.Temperature < 0 || s.Temperature > 2 {
			return fmt.Errorf("source.temperature must be within [0, 2]")
		}
	case "browser":
		b := s.Browser
		if b.PollSeconds < 0 || b.TimeoutSeconds < 0 || b.StablePolls < 0 {
			return fmt.Errorf("source.browser poll_seconds/timeout_seconds/stable_polls must be positive")
		}
		if b.TimeoutSeconds > 0 && b.PollSeconds > 0 && b.PollSeconds >= b.TimeoutSeconds {
			return fmt.Errorf("source.browser.poll_seconds must be shorter than timeout_seconds")
		}
	default:
		return fmt.Errorf("source.kind must be chat or browser, got %q", s.Kind)
	}
	return nil
}

func (s *ScheduleConfig) validate() error {
	if s.OffsetSeconds < 0 {
		return fmt.Errorf("schedule.offset_seconds must be >= 0")
	}
	if s.UsesCron() {
		if err := scheduler.ValidateCron(s.Cron); err != nil {
			return fmt.Errorf("schedule.cron: %w", err)
		}
	} else if _, ok := scheduler.ParseIntervalDuration(s.Interval); !ok {
		return fmt.Errorf("schedule.interval %q is invalid (e.g. 15m, 1h)", s.Interval)
	}
	if _, err := scheduler.ParseDayWindow(s.Window); err != nil {
		return fmt.Errorf("schedule.window: %w", err)
	}
	return nil
}

func (p *PipelineConfig) validate() error {
	seen := make(map[string]bool, len(p.Stages))
	for i, st := range p.Stages {
		name := strings.TrimSpace(st.Name)
		if name == "" {
			return fmt.Errorf("pipeline.stages[%d] missing name", i)
		}
		if seen[name] {
			return fmt.Errorf("pipeline.stages contains duplicate %s", name)
		}
		seen[name] = true
		if st.TimeoutSeconds < 0 {
			return fmt.Errorf("pipeline.stages.%s timeout_seconds must be >= 0", name)
		}
	}
	return nil
}
