package middlewares

import (
	"strings"
	"time"

	"niftybot/internal/pipeline"
)

// Config is shared by every middleware in this package.
type Config struct {
	Name     string
	Stage    int
	Critical bool
	Timeout  time.Duration
}

func (c Config) meta(fallback string) pipeline.MiddlewareMeta {
	return pipeline.MiddlewareMeta{
		Name:     nameOrDefault(c.Name, fallback),
		Stage:    c.Stage,
		Critical: c.Critical,
		Timeout:  c.Timeout,
	}
}

func nameOrDefault(val, fallback string) string {
	if val = strings.TrimSpace(val); val != "" {
		return val
	}
	return fallback
}
