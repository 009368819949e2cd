package cli

import (
	"bytes"
	"context"
	"log"
	"os"
	"path/filepath"
	"testing"

	brcfg "niftybot/internal/config"
	"niftybot/internal/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	t.Setenv(brcfg.EnvConfigPath, "")
	t.Chdir(t.TempDir())
	var out bytes.Buffer
	cmd := NewRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestVersionCommand(t *testing.T) {
	out, err := execute(t, "version")
	require.NoError(t, err)
	assert.Equal(t, "niftybot dev\n", out)
}

func TestCalendarCommandHoliday(t *testing.T) {
	out, err := execute(t, "calendar", "--date", "2025-08-15")
	require.NoError(t, err)
	assert.Contains(t, out, "2025-08-15 (Friday): closed, holiday")
	assert.Contains(t, out, "next trading day: 2025-08-18 (Monday)")
}

func TestCalendarCommandOpenDay(t *testing.T) {
	out, err := execute(t, "calendar", "--date", "2025-06-10")
	require.NoError(t, err)
	assert.Contains(t, out, "2025-06-10 (Tuesday): open")
}

func TestCalendarCommandRejectsBadDate(t *testing.T) {
	_, err := execute(t, "calendar", "--date", "15/08/2025")
	assert.Error(t, err)
}

func TestConfigFlagErrorsOnMissingFile(t *testing.T) {
	_, err := execute(t, "calendar", "--config", filepath.Join(os.TempDir(), "niftybot-missing.yaml"))
	assert.Error(t, err)
}

func TestOpenLogsCreatesFiles(t *testing.T) {
	dir := t.TempDir()
	cfg := brcfg.Default()
	cfg.App.LogPath = filepath.Join(dir, "logs", "nifty_bot.log")
	cfg.App.LLMLog = filepath.Join(dir, "logs", "llm.log")

	t.Cleanup(func() {
		log.SetOutput(os.Stderr)
		logger.SetOutput(os.Stderr)
		logger.SetLLMWriter(nil)
	})

	var stdout bytes.Buffer
	files, err := openLogs(cfg, &stdout)
	require.NoError(t, err)
	assert.Len(t, files, 2)
	files.Close()

	assert.FileExists(t, cfg.App.LogPath)
	assert.FileExists(t, cfg.App.LLMLog)
}
