package cli

import (
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"

	brcfg "niftybot/internal/config"
	"niftybot/internal/logger"
)

type closers []io.Closer

func (c closers) Close() {
	for _, f := range c {
		_ = f.Close()
	}
}

// openLogs tees the app log to stdout and app.log_path, and routes LLM
// transcripts to app.llm_log when set.
func openLogs(cfg *brcfg.Config, stdout io.Writer) (closers, error) {
	var out closers
	logFile, err := openAppend(cfg.App.LogPath)
	if err != nil {
		return nil, err
	}
	if logFile != nil {
		out = append(out, logFile)
		mw := io.MultiWriter(stdout, logFile)
		log.SetOutput(mw)
		logger.SetOutput(mw)
	}
	logger.SetLLMWriter(nil)
	llmFile, err := openAppend(cfg.App.LLMLog)
	if err != nil {
		out.Close()
		return nil, err
	}
	if llmFile != nil {
		out = append(out, llmFile)
		logger.SetLLMWriter(llmFile)
	}
	return out, nil
}

func openAppend(path string) (*os.File, error) {
	trimmed := strings.TrimSpace(path)
	if trimmed == "" {
		return nil, nil
	}
	dir := filepath.Dir(trimmed)
	if dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, err
		}
	}
	return os.OpenFile(trimmed, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
}
