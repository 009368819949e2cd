package trade

import (
	"fmt"
	"regexp"
	"strings"
)

// Extractor turns advisory text into trade records. Parse never fails: text
// that does not follow the expected layout yields an empty slice.
type Extractor interface {
	Parse(text string) []Record
}

const (
	StrategyBlock   = "block"
	StrategyLabeled = "labeled"
)

// NewExtractor returns the extraction strategy registered under name.
func NewExtractor(name string) (Extractor, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", StrategyBlock:
		return BlockExtractor{}, nil
	case StrategyLabeled:
		return LabeledExtractor{}, nil
	default:
		return nil, fmt.Errorf("unknown extraction strategy %q", name)
	}
}

var (
	optionCodeRe = regexp.MustCompile(`(?i)\b(CE|PE)\b`)
	callWordRe   = regexp.MustCompile(`(?i)\bcalls?\b`)
	putWordRe    = regexp.MustCompile(`(?i)\bputs?\b`)
	digitsRe     = regexp.MustCompile(`\d+`)
	ruleLineRe   = regexp.MustCompile(`^[-*_=\s]+$`)
)

// cleanValue trims whitespace and the markdown emphasis models like to wrap values in.
func cleanValue(s string) string {
	s = strings.TrimSpace(s)
	s = strings.Trim(s, "*_`")
	return strings.TrimSpace(s)
}

// collapseLines joins the non-empty lines of s with single spaces.
func collapseLines(s string) string {
	lines := strings.Split(strings.ReplaceAll(s, "\r\n", "\n"), "\n")
	out := make([]string, 0, len(lines))
	for _, line := range lines {
		line = strings.TrimSpace(line)
		if line == "" || ruleLineRe.MatchString(line) {
			continue
		}
		out = append(out, line)
	}
	return cleanValue(strings.Join(out, " "))
}

func normalizeOptionType(s string) OptionType {
	if m := optionCodeRe.FindStringSubmatch(s); m != nil {
		return OptionType(strings.ToUpper(m[1]))
	}
	switch {
	case callWordRe.MatchString(s):
		return OptionCall
	case putWordRe.MatchString(s):
		return OptionPut
	}
	return OptionUnknown
}

// normalizeConfidence keeps the first run of digits ("82% (high)" -> "82").
// Values without digits are kept verbatim so the selector can report them.
func normalizeConfidence(s string) string {
	s = cleanValue(s)
	if d := digitsRe.FindString(s); d != "" {
		return d
	}
	return s
}
