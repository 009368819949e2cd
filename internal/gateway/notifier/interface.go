package notifier

import "niftybot/internal/logger"

// TextNotifier defines a minimal text notification interface.
// Delivery is best effort: callers log a returned error and move on.
type TextNotifier interface {
	SendText(text string) error
}

// LogNotifier writes messages to the log instead of a chat. Used for dry runs
// and when Telegram is disabled.
type LogNotifier struct{}

func (LogNotifier) SendText(text string) error {
	logger.Infof("[notify] message (%d chars)", len(text))
	logger.InfoBlock(text)
	return nil
}
