package trade

import (
	"regexp"
	"strings"
)

// LabeledExtractor matches the whole text against a single pattern that needs
// every label present in a fixed order. A reply that reorders or drops a
// field produces no records at all.
type LabeledExtractor struct{}

// label matches a literal field label with optional emphasis around the colon.
func label(name string) string {
	return regexp.QuoteMeta(name) + `[*_]*:[*_]*\s*`
}

const (
	priceClass = `₹?[\d₹–\-to .,]+`
	timeClass  = `[\d:.–\-to APMapm]+`
)

var labeledRe = regexp.MustCompile(`(?s)` +
	label("Option Type") + `(?P<type>CE|PE)` + `.*?` +
	label("Strike Price") + `(?P<strike>[\d,]+)` + `.*?` +
	label("Premium Entry Range") + `(?P<entry>` + priceClass + `)` + `.*?` +
	label("Target(s)") + `(?P<target>` + priceClass + `)` + `.*?` +
	label("Stop Loss") + `(?P<sl>` + priceClass + `)` + `.*?` +
	label("Ideal Entry Time") + `(?P<entry_time>` + timeClass + `)` + `.*?` +
	label("Ideal Exit Time") + `(?P<exit_time>` + timeClass + `)` + `.*?` +
	label("Confidence Level") + `(?P<confidence>\d+)\s*%` + `.*?` +
	label("Key Factors") + `(?P<keyfactors>.*?)` +
	label("Short Reason") + `(?P<reason>.*?)(?:\n\d|\z)`)

var labeledGroups = func() map[string]int {
	idx := make(map[string]int)
	for i, name := range labeledRe.SubexpNames() {
		if name != "" {
			idx[name] = i
		}
	}
	return idx
}()

func (LabeledExtractor) Parse(text string) []Record {
	if strings.TrimSpace(text) == "" {
		return nil
	}
	matches := labeledRe.FindAllStringSubmatch(text, -1)
	if len(matches) == 0 {
		return nil
	}
	records := make([]Record, 0, len(matches))
	for _, m := range matches {
		group := func(name string) string { return m[labeledGroups[name]] }
		records = append(records, Record{
			OptionType:        OptionType(cleanValue(group("type"))),
			StrikePrice:       cleanValue(group("strike")),
			PremiumEntryRange: cleanValue(group("entry")),
			Targets:           cleanValue(group("target")),
			StopLoss:          cleanValue(group("sl")),
			IdealEntryTime:    cleanValue(group("entry_time")),
			IdealExitTime:     cleanValue(group("exit_time")),
			ConfidenceLevel:   cleanValue(group("confidence")),
			KeyFactors:        collapseLines(group("keyfactors")),
			Reason:            collapseLines(group("reason")),
		})
	}
	return records
}
