package config

import (
	"os"
	"strings"
)

// Defaults.
const (
	defaultAppEnv           = "dev"
	defaultAppLogLevel      = "info"
	defaultAppLogPath       = "nifty_bot.log"
	defaultSourceKind       = "chat"
	defaultSourcePreset     = "grok"
	defaultSourceTimeout    = 120
	defaultSourceRetries    = 2
	defaultSourceTemp       = 0.7
	defaultBreakerThreshold = 3
	defaultBreakerCooldown  = 1800
	defaultExtractStrategy  = "block"
	defaultAlertStyle       = "markdown"
	defaultPromptPreset     = "standard"
	defaultTelegramMode     = "Markdown"
	defaultScheduleInterval = "15m"
	defaultScheduleWindow   = "09:15-15:30"
	defaultFetchTimeout     = 360
)

// Default returns the configuration used when no file is given.
func Default() *Config {
	var cfg Config
	cfg.applyDefaults(nil)
	cfg.applyEnv()
	return &cfg
}

// applyDefaults fills every key the config files left unset.
func (c *Config) applyDefaults(keys keySet) {
	c.App.applyDefaults(keys)
	c.Source.applyDefaults(keys)
	applyFieldDefaults(keys,
		stringFieldDefault("extract.strategy", &c.Extract.Strategy, defaultExtractStrategy),
		stringFieldDefault("alert.style", &c.Alert.Style, defaultAlertStyle),
	)
	c.Prompt.applyDefaults(keys)
	c.Notify.applyDefaults(keys)
	c.Schedule.applyDefaults(keys)
	c.Pipeline.applyDefaults(keys)
}

func (a *AppConfig) applyDefaults(keys keySet) {
	if a == nil {
		return
	}
	applyFieldDefaults(keys,
		stringFieldDefault("app.env", &a.Env, defaultAppEnv),
		stringFieldDefault("app.log_level", &a.LogLevel, defaultAppLogLevel),
		stringFieldDefault("app.log_path", &a.LogPath, defaultAppLogPath),
	)
}

func (s *SourceConfig) applyDefaults(keys keySet) {
	if s == nil {
		return
	}
	applyFieldDefaults(keys,
		stringFieldDefault("source.kind", &s.Kind, defaultSourceKind),
		fieldDefault{
			key:   "source.preset",
			need:  func() bool { return strings.TrimSpace(s.Preset) == "" && s.Kind == defaultSourceKind },
			apply: func() { s.Preset = defaultSourcePreset },
		},
		fieldDefault{
			key:   "source.timeout_seconds",
			need:  func() bool { return s.TimeoutSeconds <= 0 },
			apply: func() { s.TimeoutSeconds = defaultSourceTimeout },
		},
		fieldDefault{
			key:   "source.max_retries",
			need:  func() bool { return s.MaxRetries <= 0 },
			apply: func() { s.MaxRetries = defaultSourceRetries },
		},
		fieldDefault{
			key:   "source.temperature",
			need:  func() bool { return s.Temperature == 0 },
			apply: func() { s.Temperature = defaultSourceTemp },
		},
		fieldDefault{
			key:   "source.breaker_threshold",
			need:  func() bool { return s.BreakerThreshold == 0 },
			apply: func() { s.BreakerThreshold = defaultBreakerThreshold },
		},
		fieldDefault{
			key:   "source.breaker_cooldown_seconds",
			need:  func() bool { return s.BreakerCooldownSeconds <= 0 },
			apply: func() { s.BreakerCooldownSeconds = defaultBreakerCooldown },
		},
		boolFieldDefault("source.chrome.headless", &s.Chrome.Headless, true),
	)
}

func (p *PromptConfig) applyDefaults(keys keySet) {
	if p == nil {
		return
	}
	applyFieldDefaults(keys,
		stringFieldDefault("prompt.preset", &p.Preset, defaultPromptPreset),
		boolFieldDefault("prompt.format_hint", &p.FormatHint, true),
	)
}

func (n *NotifyConfig) applyDefaults(keys keySet) {
	if n == nil {
		return
	}
	applyFieldDefaults(keys,
		stringFieldDefault("notify.telegram.parse_mode", &n.Telegram.ParseMode, defaultTelegramMode),
	)
}

func (s *ScheduleConfig) applyDefaults(keys keySet) {
	if s == nil {
		return
	}
	applyFieldDefaults(keys,
		fieldDefault{
			key:   "schedule.interval",
			need:  func() bool { return strings.TrimSpace(s.Interval) == "" && !s.UsesCron() },
			apply: func() { s.Interval = defaultScheduleInterval },
		},
		stringFieldDefault("schedule.window", &s.Window, defaultScheduleWindow),
	)
}

func (p *PipelineConfig) applyDefaults(keys keySet) {
	if p == nil {
		return
	}
	applyFieldDefaults(keys,
		fieldDefault{
			key:   "pipeline.fetch_timeout_seconds",
			need:  func() bool { return p.FetchTimeoutSeconds <= 0 },
			apply: func() { p.FetchTimeoutSeconds = defaultFetchTimeout },
		},
	)
}

// applyEnv expands ${VAR} references in credential fields and fills empty
// credentials from the conventional environment variables.
func (c *Config) applyEnv() {
	s := &c.Source
	s.APIKey = strings.TrimSpace(os.ExpandEnv(s.APIKey))
	s.BaseURL = strings.TrimSpace(os.ExpandEnv(s.BaseURL))
	if s.APIKey == "" {
		switch strings.ToLower(strings.TrimSpace(s.Preset)) {
		case "grok":
			s.APIKey = os.Getenv("XAI_API_KEY")
		default:
			s.APIKey = os.Getenv("OPENAI_API_KEY")
		}
	}
	for k, v := range s.Headers {
		s.Headers[k] = os.ExpandEnv(v)
	}

	tg := &c.Notify.Telegram
	tg.BotToken = strings.TrimSpace(os.ExpandEnv(tg.BotToken))
	tg.ChatID = strings.TrimSpace(os.ExpandEnv(tg.ChatID))
	if tg.BotToken == "" {
		tg.BotToken = os.Getenv("TELEGRAM_BOT_TOKEN")
	}
	if tg.ChatID == "" {
		tg.ChatID = firstEnv("TELEGRAM_CHAT_ID", "CHAT_ID")
	}
}

func firstEnv(names ...string) string {
	for _, name := range names {
		if v := strings.TrimSpace(os.Getenv(name)); v != "" {
			return v
		}
	}
	return ""
}

// Helper functions

func applyFieldDefaults(keys keySet, defs ...fieldDefault) {
	for _, def := range defs {
		if def.apply == nil {
			continue
		}
		if def.key != "" && keys.isSet(def.key) {
			continue
		}
		if def.need != nil && !def.need() {
			continue
		}
		def.apply()
	}
}

func stringFieldDefault(key string, target *string, def string) fieldDefault {
	return fieldDefault{
		key: key,
		need: func() bool {
			return target != nil && strings.TrimSpace(*target) == ""
		},
		apply: func() {
			if target != nil {
				*target = def
			}
		},
	}
}

func boolFieldDefault(key string, target *bool, def bool) fieldDefault {
	return fieldDefault{
		key:  key,
		need: func() bool { return target != nil },
		apply: func() {
			if target != nil {
				*target = def
			}
		},
	}
}
