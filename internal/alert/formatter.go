package alert

import (
	"fmt"
	"strings"

	"niftybot/internal/trade"
)

const (
	StyleMarkdown = "markdown"
	StylePlain    = "plain"
)

const (
	bannerTitle = "NIFTY Trade Alert (Highest Confidence)"
	emptyValue  = "N/A"
)

var markdownEscaper = strings.NewReplacer("*", `\*`, "_", `\_`, "`", "\\`", "[", `\[`)

// Formatter renders the selected trade as a chat message.
type Formatter struct {
	Style string
	// Source names the advisory service in the "no trade" message.
	Source string
}

func New(style, source string) Formatter {
	return Formatter{Style: style, Source: source}
}

// Render returns the alert for rec, or the fixed no-trade message when ok is false.
func (f Formatter) Render(rec trade.Record, ok bool) string {
	if !ok {
		return f.NoTrade()
	}
	markdown := f.Style != StylePlain
	var b strings.Builder
	if markdown {
		b.WriteString("🔔 *" + bannerTitle + "*\n\n")
	} else {
		b.WriteString("🔔 " + bannerTitle + "\n\n")
	}
	fields := rec.Fields()
	for i, field := range fields {
		value := strings.TrimSpace(field.Value)
		if value == "" {
			value = emptyValue
		}
		if markdown {
			fmt.Fprintf(&b, "*%s* %s", field.Label, markdownEscaper.Replace(value))
		} else {
			fmt.Fprintf(&b, "%s: %s", field.Label, value)
		}
		if i < len(fields)-1 {
			b.WriteString("\n")
		}
	}
	return b.String()
}

func (f Formatter) NoTrade() string {
	source := strings.TrimSpace(f.Source)
	if source == "" {
		source = "advisory"
	}
	return fmt.Sprintf("No valid trade found in the %s response.", source)
}
