package app

import (
	"fmt"
	"strings"
	"time"

	brcfg "niftybot/internal/config"
	"niftybot/internal/gateway/notifier"
	"niftybot/internal/market"
	"niftybot/internal/pipeline"
	promptkit "niftybot/internal/prompt"
)

type StartupSummary struct {
	Source   SourceSummary
	Pipeline PipelineSummary
	Schedule ScheduleSummary
	Market   MarketSummary
	Prompts  map[string]string
}

type SourceSummary struct {
	Name     string
	Kind     string
	Model    string
	Notifier string
}

type PipelineSummary struct {
	Strategy string
	Style    string
	Stages   [][]string
}

type ScheduleSummary struct {
	Mode           string
	Window         string
	RunImmediately bool
	StatusAddr     string
}

type MarketSummary struct {
	Holidays     int
	HolidaysFile string
	NextOpen     string
}

func newStartupSummary(cfg *brcfg.Config, sourceName string, n notifier.TextNotifier, pipe *pipeline.Pipeline, cal *market.Calendar, prompts promptkit.Prompt) *StartupSummary {
	mode := "every " + cfg.Schedule.Interval
	if cfg.Schedule.OffsetSeconds > 0 {
		mode += fmt.Sprintf(" +%ds", cfg.Schedule.OffsetSeconds)
	}
	if cfg.Schedule.UsesCron() {
		mode = "cron " + cfg.Schedule.Cron
	}
	window := strings.TrimSpace(cfg.Schedule.Window)
	if window == "" {
		window = "all-day"
	}
	next := "-"
	if t, ok := cal.NextOpen(time.Now()); ok {
		next = t.Format("2006-01-02")
	}
	notifierName := "log"
	if _, ok := n.(*notifier.Telegram); ok {
		notifierName = "telegram"
	}
	return &StartupSummary{
		Source: SourceSummary{
			Name:     sourceName,
			Kind:     cfg.Source.Kind,
			Model:    cfg.Source.Model,
			Notifier: notifierName,
		},
		Pipeline: PipelineSummary{
			Strategy: cfg.Extract.Strategy,
			Style:    cfg.Alert.Style,
			Stages:   pipe.Stages(),
		},
		Schedule: ScheduleSummary{
			Mode:           mode,
			Window:         window,
			RunImmediately: cfg.Schedule.RunImmediately,
			StatusAddr:     cfg.App.HTTPAddr,
		},
		Market: MarketSummary{
			Holidays:     cal.Holidays().Len(),
			HolidaysFile: cfg.Market.HolidaysFile,
			NextOpen:     next,
		},
		Prompts: map[string]string{"System": prompts.System, "User": prompts.User},
	}
}

func (s *StartupSummary) Print() {
	fmt.Println(strings.Repeat("=", 80))
	fmt.Printf("%*s\n", 40+len("启动配置摘要 (STARTUP SUMMARY)")/2, "启动配置摘要 (STARTUP SUMMARY)")
	fmt.Println(strings.Repeat("=", 80))

	fmt.Println("[建议来源 (SOURCE)]")
	fmt.Printf("  名称: %s (%s)\n", s.Source.Name, s.Source.Kind)
	fmt.Printf("  模型: %s\n", orDash(s.Source.Model))
	fmt.Printf("  通知: %s\n", s.Source.Notifier)
	fmt.Println()

	fmt.Println("[流程 (PIPELINE)]")
	fmt.Printf("  解析策略: %s\n", s.Pipeline.Strategy)
	fmt.Printf("  消息格式: %s\n", s.Pipeline.Style)
	for i, stage := range s.Pipeline.Stages {
		fmt.Printf("  stage %d: %s\n", i, formatList(stage))
	}
	fmt.Println()

	fmt.Println("[调度与日历 (SCHEDULE & CALENDAR)]")
	fmt.Printf("  调度: %s\n", s.Schedule.Mode)
	fmt.Printf("  时段: %s\n", s.Schedule.Window)
	fmt.Printf("  立即执行: %v\n", s.Schedule.RunImmediately)
	fmt.Printf("  节假日: %d (%s)\n", s.Market.Holidays, orDash(s.Market.HolidaysFile))
	fmt.Printf("  下个交易日: %s\n", s.Market.NextOpen)
	fmt.Printf("  状态服务: %s\n", orDash(s.Schedule.StatusAddr))
	fmt.Println()

	fmt.Println("[提示词 (PROMPTS)]")
	for _, role := range []string{"System", "User"} {
		content := s.Prompts[role]
		preview := content
		if lines := strings.Split(content, "\n"); len(lines) > 5 {
			preview = strings.Join(lines[:5], "\n") + "\n    ... (truncated)"
		}
		preview = strings.ReplaceAll(preview, "\n", "\n    ")
		fmt.Printf("  [%s Prompt]:\n    %s\n", role, preview)
	}
	fmt.Println(strings.Repeat("=", 80))
}

// NoticeLines 是启动通知里附带的简短摘要。
func (s *StartupSummary) NoticeLines() []string {
	return []string{
		"source: " + s.Source.Name,
		"schedule: " + s.Schedule.Mode + " (" + s.Schedule.Window + ")",
		"next trading day: " + s.Market.NextOpen,
	}
}

func formatList(items []string) string {
	if len(items) == 0 {
		return "-"
	}
	return strings.Join(items, ", ")
}

func orDash(v string) string {
	if strings.TrimSpace(v) == "" {
		return "-"
	}
	return v
}
