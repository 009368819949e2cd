package app

import (
	"context"
	"fmt"
	"strings"
	"time"

	"niftybot/internal/alert"
	brcfg "niftybot/internal/config"
	cfgloader "niftybot/internal/config/loader"
	"niftybot/internal/gateway/notifier"
	"niftybot/internal/gateway/provider"
	"niftybot/internal/logger"
	"niftybot/internal/market"
	"niftybot/internal/pipeline"
	"niftybot/internal/pipeline/factory"
	promptkit "niftybot/internal/prompt"
	"niftybot/internal/scheduler"
	"niftybot/internal/trade"
	statushttp "niftybot/internal/transport/http/status"
)

const pipelineName = "nifty-alert"

type AppBuilder struct {
	cfg *brcfg.Config

	sessionFactory   provider.SessionFactory
	notifierOverride notifier.TextNotifier
	now              func() time.Time
}

type AppBuilderOption func(*AppBuilder)

// WithSessionFactory replaces the Chrome launcher used by browser sources.
func WithSessionFactory(f provider.SessionFactory) AppBuilderOption {
	return func(b *AppBuilder) { b.sessionFactory = f }
}

// WithNotifier bypasses the configured Telegram transport (dry runs, tests).
func WithNotifier(n notifier.TextNotifier) AppBuilderOption {
	return func(b *AppBuilder) { b.notifierOverride = n }
}

// WithClock fixes the time source for the market gate and run timestamps.
func WithClock(now func() time.Time) AppBuilderOption {
	return func(b *AppBuilder) { b.now = now }
}

func NewAppBuilder(cfg *brcfg.Config, opts ...AppBuilderOption) *AppBuilder {
	b := &AppBuilder{cfg: cfg, now: time.Now}
	for _, opt := range opts {
		if opt != nil {
			opt(b)
		}
	}
	return b
}

func (b *AppBuilder) Build(ctx context.Context) (*App, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	if b.cfg == nil {
		return nil, fmt.Errorf("nil config")
	}
	cfg := b.cfg
	logger.SetLevel(cfg.App.LogLevel)

	prompts, err := promptkit.Load(promptOptions(cfg))
	if err != nil {
		return nil, fmt.Errorf("load prompt: %w", err)
	}
	logger.Infof("✓ prompt ready preset=%s system=%d chars user=%d chars", cfg.Prompt.Preset, len(prompts.System), len(prompts.User))

	calendar, holidays, err := buildCalendar(cfg.Market)
	if err != nil {
		return nil, err
	}
	logger.Infof("✓ trading calendar loaded with %d holidays", calendar.Holidays().Len())

	source, err := provider.Build(sourceConfig(cfg.Source, prompts.System), b.sessionFactory)
	if err != nil {
		return nil, fmt.Errorf("build source: %w", err)
	}
	extractor, err := trade.NewExtractor(cfg.Extract.Strategy)
	if err != nil {
		return nil, err
	}
	textNotifier := b.notifierOverride
	if textNotifier == nil {
		textNotifier = newNotifier(cfg.Notify)
	}

	f := &factory.Factory{
		Calendar:     calendar,
		Source:       source,
		Extractor:    extractor,
		Formatter:    alert.New(cfg.Alert.Style, source.Name()),
		Notifier:     textNotifier,
		Now:          b.now,
		FetchTimeout: time.Duration(cfg.Pipeline.FetchTimeoutSeconds) * time.Second,
	}
	pipe, err := f.Pipeline(pipelineName, stageConfigs(cfg.Pipeline.Stages))
	if err != nil {
		return nil, fmt.Errorf("build pipeline: %w", err)
	}
	runner := pipeline.NewRunner(pipe, prompts.User)
	runner.SetClock(b.now)

	status, err := buildStatusServer(cfg.App, runner, calendar)
	if err != nil {
		return nil, err
	}

	return &App{
		cfg:      cfg,
		runner:   runner,
		calendar: calendar,
		holidays: holidays,
		status:   status,
		notifier: textNotifier,
		now:      b.now,
		Summary:  newStartupSummary(cfg, source.Name(), textNotifier, pipe, calendar, prompts),
	}, nil
}

func promptOptions(cfg *brcfg.Config) promptkit.Options {
	opts := promptkit.Options{
		Preset:     cfg.Prompt.Preset,
		UserFile:   cfg.Prompt.UserFile,
		SystemFile: cfg.Prompt.SystemFile,
		System:     cfg.Prompt.System,
	}
	if cfg.Prompt.FormatHint {
		opts.FormatHint = cfg.Extract.Strategy
	}
	return opts
}

func buildCalendar(cfg brcfg.MarketConfig) (*market.Calendar, *cfgloader.HolidayLoader, error) {
	path := strings.TrimSpace(cfg.HolidaysFile)
	if path == "" {
		return market.NewCalendar(market.IST, nil), nil, nil
	}
	hl, err := cfgloader.NewHolidayLoader(path)
	if err != nil {
		return nil, nil, fmt.Errorf("load holidays file: %w", err)
	}
	set := hl.Snapshot().Set
	cal := market.NewCalendar(market.IST, &set)
	hl.WatchCalendar(cal)
	return cal, hl, nil
}

// sourceConfig flattens the source section, overlaying set browser values on the defaults.
func sourceConfig(cfg brcfg.SourceConfig, system string) provider.SourceCfg {
	bc := provider.DefaultBrowserConfig()
	b := cfg.Browser
	setString(&bc.URL, b.URL)
	setString(&bc.HostMarker, b.HostMarker)
	setString(&bc.InputSelector, b.InputSelector)
	setString(&bc.SendSelector, b.SendSelector)
	setString(&bc.ResponseSelector, b.ResponseSelector)
	setString(&bc.ErrorBannerText, b.ErrorBannerText)
	setString(&bc.RetryButtonText, b.RetryButtonText)
	if len(b.DismissPhrases) > 0 {
		bc.DismissPhrases = b.DismissPhrases
	}
	if len(b.ChallengeMarkers) > 0 {
		bc.ChallengeMarkers = b.ChallengeMarkers
	}
	setSeconds(&bc.SettleDelay, b.SettleSeconds)
	setSeconds(&bc.PollInterval, b.PollSeconds)
	setSeconds(&bc.ChallengeBackoff, b.ChallengeBackoffSeconds)
	setSeconds(&bc.Timeout, b.TimeoutSeconds)
	if b.StablePolls > 0 {
		bc.StablePolls = b.StablePolls
	}
	return provider.SourceCfg{
		Kind:         cfg.Kind,
		Preset:       cfg.Preset,
		Name:         cfg.Name,
		BaseURL:      cfg.BaseURL,
		APIKey:       cfg.APIKey,
		Model:        cfg.Model,
		Temperature:  cfg.Temperature,
		Timeout:      time.Duration(cfg.TimeoutSeconds) * time.Second,
		MaxRetries:   cfg.MaxRetries,
		Headers:      cfg.Headers,
		SystemPrompt: system,
		Browser:      bc,
		Chrome: provider.ChromeOptions{
			Headless:      cfg.Chrome.Headless,
			UserDataDir:   cfg.Chrome.UserDataDir,
			ExecPath:      cfg.Chrome.ExecPath,
			UserAgent:     cfg.Chrome.UserAgent,
			ActionTimeout: time.Duration(cfg.Chrome.ActionTimeoutSeconds) * time.Second,
		},
		BreakerThreshold: cfg.BreakerThreshold,
		BreakerCooldown:  time.Duration(cfg.BreakerCooldownSeconds) * time.Second,
	}
}

func setString(dst *string, v string) {
	if v = strings.TrimSpace(v); v != "" {
		*dst = v
	}
}

func setSeconds(dst *time.Duration, secs int) {
	if secs > 0 {
		*dst = time.Duration(secs) * time.Second
	}
}

func stageConfigs(list []brcfg.StageConfig) []factory.StageConfig {
	if len(list) == 0 {
		return nil
	}
	out := make([]factory.StageConfig, 0, len(list))
	for _, st := range list {
		out = append(out, factory.StageConfig{
			Name:           st.Name,
			Stage:          st.Stage,
			Critical:       st.Critical,
			TimeoutSeconds: st.TimeoutSeconds,
		})
	}
	return out
}

func newNotifier(cfg brcfg.NotifyConfig) notifier.TextNotifier {
	if !cfg.Telegram.Enabled {
		logger.Infof("telegram disabled, alerts go to the log only")
		return notifier.LogNotifier{}
	}
	tg := notifier.NewTelegram(cfg.Telegram.BotToken, cfg.Telegram.ChatID)
	if api := strings.TrimSpace(cfg.Telegram.APIBase); api != "" {
		tg = notifier.NewTelegramWithAPI(api, cfg.Telegram.BotToken, cfg.Telegram.ChatID)
	}
	if strings.EqualFold(cfg.Telegram.ParseMode, "none") {
		tg.ParseMode = ""
	} else if mode := strings.TrimSpace(cfg.Telegram.ParseMode); mode != "" {
		tg.ParseMode = mode
	}
	if tg.BotToken == "" || tg.ChatID == "" {
		logger.Warnf("telegram enabled without bot_token or chat_id, delivery will fail")
	}
	return tg
}

func buildStatusServer(cfg brcfg.AppConfig, runner *pipeline.Runner, cal *market.Calendar) (*statushttp.Server, error) {
	if strings.TrimSpace(cfg.HTTPAddr) == "" {
		return nil, nil
	}
	logPaths := map[string]string{}
	if p := strings.TrimSpace(cfg.LogPath); p != "" {
		logPaths["app"] = p
	}
	if p := strings.TrimSpace(cfg.LLMLog); p != "" {
		logPaths["llm"] = p
	}
	return statushttp.NewServer(statushttp.ServerConfig{
		Addr:     cfg.HTTPAddr,
		Runs:     runner,
		Trigger:  runner,
		Calendar: cal,
		LogPaths: logPaths,
	})
}

// buildScheduler prefers cron when configured; otherwise aligns to the interval.
func buildScheduler(ctx context.Context, cfg brcfg.ScheduleConfig, loc *time.Location) (scheduler.Scheduler, error) {
	window, err := scheduler.ParseDayWindow(cfg.Window)
	if err != nil {
		return nil, err
	}
	if cfg.UsesCron() {
		s := scheduler.NewCronScheduler(ctx, cfg.Cron, loc)
		s.Window = window
		return s, nil
	}
	interval, ok := scheduler.ParseIntervalDuration(cfg.Interval)
	if !ok {
		return nil, fmt.Errorf("invalid schedule.interval %q", cfg.Interval)
	}
	s := scheduler.NewAlignedScheduler(ctx, interval, time.Duration(cfg.OffsetSeconds)*time.Second)
	s.Location = loc
	s.Window = window
	s.RunImmediately = cfg.RunImmediately
	return s, nil
}

type appBuilderDeps interface {
	Build(context.Context) (*App, error)
}

func provideAppFromBuilder(b appBuilderDeps, ctx context.Context) (*App, error) {
	return b.Build(ctx)
}

func provideAppBuilder(cfg *brcfg.Config) *AppBuilder {
	return NewAppBuilder(cfg)
}
