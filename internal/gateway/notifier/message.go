package notifier

import (
	"strings"
	"time"
	"unicode/utf8"
)

// Telegram caps messages at 4096 characters; keep headroom for the ellipsis.
const maxStructuredMessageLen = 3800

// Notice is an operational message such as startup or shutdown, rendered
// apart from trade alerts.
type Notice struct {
	Icon      string
	Title     string
	Lines     []string
	Timestamp time.Time
}

// Render returns the text, truncated to the Telegram limit.
func (n Notice) Render() string {
	var b strings.Builder
	if header := strings.TrimSpace(n.Icon + " " + n.Title); header != "" {
		b.WriteString(header)
		b.WriteString("\n\n")
	}
	for _, line := range n.Lines {
		if line = strings.TrimSpace(line); line != "" {
			b.WriteString("- ")
			b.WriteString(line)
			b.WriteString("\n")
		}
	}
	if !n.Timestamp.IsZero() {
		b.WriteString("Time: " + n.Timestamp.Format("2006-01-02 15:04:05 MST"))
	}
	return truncateMessage(strings.TrimSpace(b.String()))
}

// truncateMessage cuts text on a rune boundary so it fits one Telegram message.
func truncateMessage(text string) string {
	if len(text) <= maxStructuredMessageLen {
		return text
	}
	cut := maxStructuredMessageLen
	for cut > 0 && !utf8.RuneStart(text[cut]) {
		cut--
	}
	return text[:cut] + "..."
}
