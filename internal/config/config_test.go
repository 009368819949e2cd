package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, dir, name, body string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func clearCredentialEnv(t *testing.T) {
	for _, k := range []string{"XAI_API_KEY", "OPENAI_API_KEY", "TELEGRAM_BOT_TOKEN", "TELEGRAM_CHAT_ID", "CHAT_ID", EnvConfigPath} {
		t.Setenv(k, "")
	}
}

func TestLoadEmptyPathUsesDefaults(t *testing.T) {
	clearCredentialEnv(t)
	t.Chdir(t.TempDir())

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "info", cfg.App.LogLevel)
	assert.Equal(t, "nifty_bot.log", cfg.App.LogPath)
	assert.Empty(t, cfg.App.HTTPAddr)
	assert.Equal(t, "chat", cfg.Source.Kind)
	assert.Equal(t, "grok", cfg.Source.Preset)
	assert.Equal(t, "block", cfg.Extract.Strategy)
	assert.Equal(t, "markdown", cfg.Alert.Style)
	assert.Equal(t, "standard", cfg.Prompt.Preset)
	assert.True(t, cfg.Prompt.FormatHint)
	assert.True(t, cfg.Source.Chrome.Headless)
	assert.Equal(t, 3, cfg.Source.BreakerThreshold)
	assert.Equal(t, 1800, cfg.Source.BreakerCooldownSeconds)
	assert.Equal(t, "15m", cfg.Schedule.Interval)
	assert.Equal(t, "09:15-15:30", cfg.Schedule.Window)
	assert.Equal(t, "Markdown", cfg.Notify.Telegram.ParseMode)
}

func TestLoadMergesIncludesAndKeepsExplicitValues(t *testing.T) {
	clearCredentialEnv(t)
	dir := t.TempDir()
	writeFile(t, dir, "schedule.yaml", `
schedule:
  cron: "*/15 9-15 * * 1-5"
  window: ""
`)
	path := writeFile(t, dir, "main.yaml", `
include:
  - schedule.yaml
source:
  kind: browser
  breaker_threshold: 0
  chrome:
    headless: false
prompt:
  format_hint: false
  user_file: prompts/user.txt
market:
  holidays_file: holidays.yaml
pipeline:
  stages:
    - name: market_gate
      stage: 0
      critical: true
    - name: fetch
      stage: 1
      timeout_seconds: 30
`)
	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "browser", cfg.Source.Kind)
	assert.Empty(t, cfg.Source.Preset, "preset defaults only apply to chat sources")
	assert.False(t, cfg.Source.Chrome.Headless)
	assert.Zero(t, cfg.Source.BreakerThreshold, "explicit zero disables the breaker")
	assert.False(t, cfg.Prompt.FormatHint)
	assert.True(t, cfg.Schedule.UsesCron())
	assert.Empty(t, cfg.Schedule.Interval)
	assert.Empty(t, cfg.Schedule.Window, "explicit empty window means all day")
	assert.Equal(t, filepath.Join(dir, "holidays.yaml"), cfg.Market.HolidaysFile)
	assert.Equal(t, filepath.Join(dir, "prompts", "user.txt"), cfg.Prompt.UserFile)
	require.Len(t, cfg.Pipeline.Stages, 2)
	assert.Equal(t, 30, cfg.Pipeline.Stages[1].TimeoutSeconds)
	assert.True(t, cfg.Pipeline.Stages[0].Critical)
}

func TestLoadExpandsAndDefaultsCredentials(t *testing.T) {
	clearCredentialEnv(t)
	t.Setenv("XAI_API_KEY", "xai-secret")
	t.Setenv("CHAT_ID", "-1001")
	t.Setenv("MY_BOT", "123:abc")
	path := writeFile(t, t.TempDir(), "main.yaml", `
notify:
  telegram:
    enabled: true
    bot_token: ${MY_BOT}
`)
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "xai-secret", cfg.Source.APIKey)
	assert.Equal(t, "123:abc", cfg.Notify.Telegram.BotToken)
	assert.Equal(t, "-1001", cfg.Notify.Telegram.ChatID)
}

func TestLoadMissingCredentialsIsNotAnError(t *testing.T) {
	clearCredentialEnv(t)
	path := writeFile(t, t.TempDir(), "main.yaml", `
notify:
  telegram:
    enabled: true
`)
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Empty(t, cfg.Notify.Telegram.BotToken)
}

func TestLoadFromEnvPath(t *testing.T) {
	clearCredentialEnv(t)
	path := writeFile(t, t.TempDir(), "main.yaml", "alert:\n  style: plain\n")
	t.Setenv(EnvConfigPath, path)
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "plain", cfg.Alert.Style)
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	clearCredentialEnv(t)
	cases := map[string]string{
		"kind":     "source:\n  kind: carrier-pigeon\n",
		"strategy": "extract:\n  strategy: fuzzy\n",
		"style":    "alert:\n  style: html\n",
		"interval": "schedule:\n  interval: soon\n",
		"cron":     "schedule:\n  cron: \"every day\"\n",
		"window":   "schedule:\n  window: \"15:30-09:15\"\n",
		"poll":     "source:\n  kind: browser\n  browser:\n    poll_seconds: 400\n    timeout_seconds: 300\n",
		"breaker":  "source:\n  breaker_threshold: -1\n",
		"stages":   "pipeline:\n  stages:\n    - name: fetch\n    - name: fetch\n",
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			path := writeFile(t, t.TempDir(), "main.yaml", body)
			_, err := Load(path)
			assert.Error(t, err)
		})
	}
}

func TestIncludeCycleDetected(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "a.yaml", "include:\n  - b.yaml\n")
	path := writeFile(t, dir, "b.yaml", "include:\n  - a.yaml\n")
	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "cycle")
}

func TestIncludeAcceptsScalarAndMainFileWins(t *testing.T) {
	clearCredentialEnv(t)
	dir := t.TempDir()
	writeFile(t, dir, "alert.yaml", "alert:\n  style: plain\nextract:\n  strategy: labeled\n")
	path := writeFile(t, dir, "main.yaml", "include: alert.yaml\nextract:\n  strategy: block\n")
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "plain", cfg.Alert.Style)
	assert.Equal(t, "block", cfg.Extract.Strategy)
}
