package trade

import (
	"regexp"
	"sort"
	"strings"
)

// BlockExtractor splits the text into "Trade #n" sections and searches each
// section for every field independently. A missing field leaves that
// attribute empty instead of dropping the whole trade.
type BlockExtractor struct{}

// blockHeaderRe matches "Trade #<n>" with an optional colon after a section
// marker. Bold and heading markers must open the line; a chart emoji may
// introduce a header anywhere.
var blockHeaderRe = regexp.MustCompile(`(?im)(?:^[ \t>]*(?:\*\*|__|#{1,6})[ \t*_]*(?:📈|📉)?|(?:\*\*|__)?[ \t]*(?:📈|📉))[ \t*_]*Trade[ \t]*#[ \t]*\d+[ \t]*[*_]*[ \t]*:?[ \t]*[*_]*`)

// plainHeaderRe matches an unmarked "Trade #<n>:" line opener.
var plainHeaderRe = regexp.MustCompile(`(?im)^[ \t]*Trade[ \t]*#[ \t]*\d+[ \t]*:`)

var blankLineRe = regexp.MustCompile(`\n[ \t]*\r?\n`)

type blockField struct {
	re        *regexp.Regexp
	multiline bool
	set       func(*Record, string)
}

// fieldPattern anchors a label at line start. Bullets, numbering, emoji and
// emphasis may precede it; a short qualifier such as "(%)", "Price" or
// "(by 11:00)" may sit between the label and the colon. A clock time is the
// only colon the qualifier may contain. A bold label line without a colon is
// accepted too, in which case the value is read from the following line.
func fieldPattern(alts string) *regexp.Regexp {
	return regexp.MustCompile(`(?im)^[^\p{L}\n]{0,12}(?:` + alts + `)(?:(?:\d:\d|[^:\n]){0,60}:(.*)|[^:\n*_]{0,30}(?:\*\*|__)[ \t]*$)`)
}

var blockFields = []blockField{
	{re: fieldPattern(`Option[ \t]*Type`), set: func(r *Record, v string) { r.OptionType = normalizeOptionType(v) }},
	{re: fieldPattern(`Strike`), set: func(r *Record, v string) { r.StrikePrice = cleanValue(v) }},
	{re: fieldPattern(`Entry[ \t]*(?:Premium|Price|Range|Zone)|Premium(?:[ \t]*Entry)?`), set: func(r *Record, v string) { r.PremiumEntryRange = cleanValue(v) }},
	{re: fieldPattern(`Target`), set: func(r *Record, v string) { r.Targets = cleanValue(v) }},
	{re: fieldPattern(`Stop[ \t-]*Loss|SL\b`), set: func(r *Record, v string) { r.StopLoss = cleanValue(v) }},
	{re: fieldPattern(`(?:Ideal[ \t]*)?Entry[ \t]*Time`), set: func(r *Record, v string) { r.IdealEntryTime = cleanValue(v) }},
	{re: fieldPattern(`(?:Ideal[ \t]*)?Exit[ \t]*Time`), set: func(r *Record, v string) { r.IdealExitTime = cleanValue(v) }},
	{re: fieldPattern(`Confidence`), set: func(r *Record, v string) { r.ConfidenceLevel = normalizeConfidence(v) }},
	{re: fieldPattern(`Key\b[^:\n]{0,40}?Factors`), multiline: true, set: func(r *Record, v string) { r.KeyFactors = v }},
	{re: fieldPattern(`(?:Short[ \t]*)?(?:Reason|Justification|Rationale)`), multiline: true, set: func(r *Record, v string) { r.Reason = v }},
}

func (BlockExtractor) Parse(text string) []Record {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	if strings.TrimSpace(text) == "" {
		return nil
	}
	headers := blockHeaderRe.FindAllStringIndex(text, -1)
	if len(headers) == 0 {
		headers = plainHeaderRe.FindAllStringIndex(text, -1)
	}
	if len(headers) == 0 {
		// A reply describing a single trade without a section header.
		rec := parseBlock(text)
		if rec.OptionType == OptionUnknown && rec.StrikePrice == "" {
			return nil
		}
		return []Record{rec}
	}
	records := make([]Record, 0, len(headers))
	for i, h := range headers {
		end := len(text)
		if i+1 < len(headers) {
			end = headers[i+1][0]
		}
		records = append(records, parseBlock(text[h[1]:end]))
	}
	return records
}

func parseBlock(block string) Record {
	var rec Record
	matches := make([][]int, len(blockFields))
	labelStarts := make(map[int]bool)
	var starts []int
	for i, f := range blockFields {
		all := f.re.FindAllStringSubmatchIndex(block, -1)
		if len(all) == 0 {
			continue
		}
		matches[i] = all[0]
		for _, m := range all {
			if !labelStarts[m[0]] {
				labelStarts[m[0]] = true
				starts = append(starts, m[0])
			}
		}
	}
	sort.Ints(starts)

	for i, f := range blockFields {
		loc := matches[i]
		if loc == nil {
			continue
		}
		var value string
		if f.multiline {
			from := loc[1]
			if loc[2] >= 0 {
				from = loc[2]
			}
			to := len(block)
			if j := sort.SearchInts(starts, loc[0]+1); j < len(starts) {
				to = starts[j]
			}
			value = collapseLines(firstParagraph(block[from:to]))
		} else {
			if loc[2] >= 0 {
				value = block[loc[2]:loc[3]]
			}
			if cleanValue(value) == "" {
				value = followingValueLine(block, loc[1], labelStarts)
			}
		}
		f.set(&rec, value)
	}
	return rec
}

// followingValueLine returns the first non-blank line after offset, or ""
// when that line is itself a label.
func followingValueLine(block string, offset int, labelStarts map[int]bool) string {
	nl := strings.IndexByte(block[offset:], '\n')
	if nl < 0 {
		return ""
	}
	pos := offset + nl + 1
	for pos < len(block) {
		end := strings.IndexByte(block[pos:], '\n')
		line := block[pos:]
		if end >= 0 {
			line = block[pos : pos+end]
		}
		trimmed := strings.TrimSpace(line)
		if trimmed != "" && !ruleLineRe.MatchString(trimmed) {
			if labelStarts[pos] {
				return ""
			}
			return line
		}
		if end < 0 {
			break
		}
		pos += end + 1
	}
	return ""
}

// firstParagraph drops leading blank lines and emphasis, then cuts s at the
// next blank line.
func firstParagraph(s string) string {
	s = strings.TrimLeft(s, " \t\r\n*_")
	if loc := blankLineRe.FindStringIndex(s); loc != nil {
		return s[:loc[0]]
	}
	return s
}
