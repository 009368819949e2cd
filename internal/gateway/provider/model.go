package provider

import (
	"context"
	"errors"
	"fmt"
)

var (
	// ErrSourceUnavailable: the service could not be reached or returned an unusable response.
	ErrSourceUnavailable = errors.New("source unavailable")
	// ErrAutomation: driving the browser session failed.
	ErrAutomation = errors.New("browser automation failed")
)

// Source returns raw advisory text for a prompt. An application-level failure
// reported inside otherwise valid text is not an error; callers must cope with
// replies that contain no trades.
type Source interface {
	Name() string
	Fetch(ctx context.Context, prompt string) (string, error)
}

// DegradedText is the advisory text substituted when a fetch fails. It never
// contains trade blocks, so extraction yields nothing.
func DegradedText(name string, err error) string {
	return fmt.Sprintf("%s Error: %v", name, err)
}
