package config

import "strings"

// Config is the root niftybot configuration.
type Config struct {
	App      AppConfig      `toml:"app"`
	Source   SourceConfig   `toml:"source"`
	Extract  ExtractConfig  `toml:"extract"`
	Alert    AlertConfig    `toml:"alert"`
	Prompt   PromptConfig   `toml:"prompt"`
	Notify   NotifyConfig   `toml:"notify"`
	Market   MarketConfig   `toml:"market"`
	Schedule ScheduleConfig `toml:"schedule"`
	Pipeline PipelineConfig `toml:"pipeline"`
}

type AppConfig struct {
	Env      string `toml:"env"`
	LogLevel string `toml:"log_level"`
	// HTTPAddr enables the status server; empty disables it.
	HTTPAddr string `toml:"http_addr"`
	LogPath  string `toml:"log_path"`
	LLMLog   string `toml:"llm_log_path"`
}

// SourceConfig selects the advisory source: chat (HTTP API) or browser (web session).
type SourceConfig struct {
	Kind           string            `toml:"kind"`
	Preset         string            `toml:"preset"`
	Name           string            `toml:"name"`
	BaseURL        string            `toml:"base_url"`
	APIKey         string            `toml:"api_key"`
	Model          string            `toml:"model"`
	Temperature    float64           `toml:"temperature"`
	TimeoutSeconds int               `toml:"timeout_seconds"`
	MaxRetries     int               `toml:"max_retries"`
	Headers        map[string]string `toml:"headers"`
	Browser        BrowserConfig     `toml:"browser"`
	Chrome         ChromeConfig      `toml:"chrome"`

	// After breaker_threshold consecutive failures the source is paused for
	// breaker_cooldown_seconds. 0 disables the breaker.
	BreakerThreshold       int `toml:"breaker_threshold"`
	BreakerCooldownSeconds int `toml:"breaker_cooldown_seconds"`
}

type BrowserConfig struct {
	URL                     string   `toml:"url"`
	HostMarker              string   `toml:"host_marker"`
	InputSelector           string   `toml:"input_selector"`
	SendSelector            string   `toml:"send_selector"`
	ResponseSelector        string   `toml:"response_selector"`
	DismissPhrases          []string `toml:"dismiss_phrases"`
	ChallengeMarkers        []string `toml:"challenge_markers"`
	ErrorBannerText         string   `toml:"error_banner_text"`
	RetryButtonText         string   `toml:"retry_button_text"`
	SettleSeconds           int      `toml:"settle_seconds"`
	PollSeconds             int      `toml:"poll_seconds"`
	ChallengeBackoffSeconds int      `toml:"challenge_backoff_seconds"`
	StablePolls             int      `toml:"stable_polls"`
	TimeoutSeconds          int      `toml:"timeout_seconds"`
}

type ChromeConfig struct {
	Headless             bool   `toml:"headless"`
	UserDataDir          string `toml:"user_data_dir"`
	ExecPath             string `toml:"exec_path"`
	UserAgent            string `toml:"user_agent"`
	ActionTimeoutSeconds int    `toml:"action_timeout_seconds"`
}

type ExtractConfig struct {
	Strategy string `toml:"strategy"`
}

type AlertConfig struct {
	Style string `toml:"style"`
}

type PromptConfig struct {
	Preset     string `toml:"preset"`
	UserFile   string `toml:"user_file"`
	SystemFile string `toml:"system_file"`
	System     string `toml:"system"`
	// FormatHint appends layout instructions for the configured extract strategy.
	FormatHint bool `toml:"format_hint"`
}

type NotifyConfig struct {
	Telegram TelegramConfig `toml:"telegram"`
	// StartupNotice posts a short message when the scheduler starts.
	StartupNotice bool `toml:"startup_notice"`
}

type TelegramConfig struct {
	Enabled   bool   `toml:"enabled"`
	BotToken  string `toml:"bot_token"`
	ChatID    string `toml:"chat_id"`
	ParseMode string `toml:"parse_mode"`
	APIBase   string `toml:"api_base"`
}

type MarketConfig struct {
	// HolidaysFile overrides the built-in NSE holiday list and is watched for changes.
	HolidaysFile string `toml:"holidays_file"`
}

type ScheduleConfig struct {
	Interval       string `toml:"interval"`
	OffsetSeconds  int    `toml:"offset_seconds"`
	Cron           string `toml:"cron"`
	Window         string `toml:"window"`
	RunImmediately bool   `toml:"run_immediately"`
}

// UsesCron reports whether the cron expression takes precedence over the interval.
func (s ScheduleConfig) UsesCron() bool {
	return strings.TrimSpace(s.Cron) != ""
}

type PipelineConfig struct {
	FetchTimeoutSeconds int           `toml:"fetch_timeout_seconds"`
	Stages              []StageConfig `toml:"stages"`
}

// StageConfig mirrors factory.StageConfig for file-based chains.
type StageConfig struct {
	Name           string `toml:"name"`
	Stage          int    `toml:"stage"`
	Critical       bool   `toml:"critical"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
}

// keySet tracks the key paths set explicitly in config files.
type keySet map[string]struct{}

func (k keySet) mark(path string) {
	path = strings.ToLower(strings.TrimSpace(path))
	if path == "" {
		return
	}
	k[path] = struct{}{}
}

func (k keySet) isSet(path string) bool {
	if len(k) == 0 {
		return false
	}
	path = strings.ToLower(strings.TrimSpace(path))
	if path == "" {
		return false
	}
	_, ok := k[path]
	return ok
}

// fieldDefault is the default rule for one field.
type fieldDefault struct {
	key   string
	need  func() bool
	apply func()
}
