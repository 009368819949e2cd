package provider

import (
	"fmt"
	"strings"
	"time"

	"niftybot/internal/logger"
	"niftybot/internal/pkg/circuit"
)

const (
	KindChat    = "chat"
	KindBrowser = "browser"
)

// Preset holds the built-in settings of a chat completion service.
type Preset struct {
	Name    string
	BaseURL string
	Model   string
}

var presets = map[string]Preset{
	"openai": {Name: "ChatGPT", BaseURL: "https://api.openai.com/v1", Model: "gpt-3.5-turbo"},
	"grok":   {Name: "Grok", BaseURL: "https://api.x.ai/v1", Model: "grok-3"},
}

// LookupPreset returns the preset registered under name.
func LookupPreset(name string) (Preset, bool) {
	p, ok := presets[strings.ToLower(strings.TrimSpace(name))]
	return p, ok
}

// SourceCfg is the flattened source section of the app config.
type SourceCfg struct {
	Kind         string
	Preset       string
	Name         string
	BaseURL      string
	APIKey       string
	Model        string
	Temperature  float64
	Timeout      time.Duration
	MaxRetries   int
	Headers      map[string]string
	SystemPrompt string

	// BreakerThreshold consecutive failures open the breaker for
	// BreakerCooldown. Zero disables it.
	BreakerThreshold int
	BreakerCooldown  time.Duration

	Browser BrowserConfig
	Chrome  ChromeOptions
}

// Build selects the Source variant. factory overrides the Chrome launcher
// for the browser variant; nil means a local Chrome.
func Build(cfg SourceCfg, factory SessionFactory) (Source, error) {
	src, err := buildSource(cfg, factory)
	if err != nil || cfg.BreakerThreshold <= 0 {
		return src, err
	}
	return NewGuarded(src, circuit.New(src.Name(), cfg.BreakerThreshold, cfg.BreakerCooldown)), nil
}

func buildSource(cfg SourceCfg, factory SessionFactory) (Source, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.Kind)) {
	case "", KindChat:
		return buildChat(cfg)
	case KindBrowser:
		if factory == nil {
			factory = NewChromeSessionFactory(cfg.Chrome)
		}
		bc := cfg.Browser
		if strings.TrimSpace(cfg.Name) != "" {
			bc.Name = cfg.Name
		}
		if strings.TrimSpace(bc.URL) == "" {
			return nil, fmt.Errorf("browser source requires url")
		}
		return NewBrowserSource(bc, factory), nil
	default:
		return nil, fmt.Errorf("unknown source kind %q", cfg.Kind)
	}
}

func buildChat(cfg SourceCfg) (*ChatSource, error) {
	preset, ok := LookupPreset(cfg.Preset)
	if !ok && strings.TrimSpace(cfg.Preset) != "" {
		return nil, fmt.Errorf("unknown source preset %q", cfg.Preset)
	}
	name := firstNonEmpty(cfg.Name, preset.Name, "LLM")
	client := &OpenAIChatClient{
		BaseURL:      firstNonEmpty(cfg.BaseURL, preset.BaseURL),
		APIKey:       cfg.APIKey,
		Model:        firstNonEmpty(cfg.Model, preset.Model),
		Temperature:  cfg.Temperature,
		Timeout:      cfg.Timeout,
		MaxRetries:   cfg.MaxRetries,
		ExtraHeaders: cfg.Headers,
	}
	if client.Model == "" {
		return nil, fmt.Errorf("chat source %s requires a model", name)
	}
	if client.APIKey == "" {
		logger.Warnf("no API key configured for %s, requests will fail authentication", name)
	}
	return NewChatSource(name, cfg.SystemPrompt, client), nil
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}
