package trade

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleRecord() Record {
	return Record{
		OptionType:        OptionCall,
		StrikePrice:       "24500",
		PremiumEntryRange: "₹80 - 85",
		Targets:           "₹110 - 120",
		StopLoss:          "₹65",
		IdealEntryTime:    "9:30 AM - 9:45 AM",
		IdealExitTime:     "11:00 AM - 11:30 AM",
		ConfidenceLevel:   "82",
		KeyFactors:        "Higher lows on the 15m chart, VIX easing",
		Reason:            "Breakout above the opening range with volume",
	}
}

// labeledLayout renders r the way the advisory prompt asks the model to answer.
func labeledLayout(r Record) string {
	return fmt.Sprintf(`Option Type: %s
Strike Price: %s
Premium Entry Range: %s
Target(s): %s
Stop Loss: %s
Ideal Entry Time: %s
Ideal Exit Time: %s
Confidence Level: %s%%
Key Factors: %s
Short Reason: %s
`, r.OptionType, r.StrikePrice, r.PremiumEntryRange, r.Targets, r.StopLoss,
		r.IdealEntryTime, r.IdealExitTime, r.ConfidenceLevel, r.KeyFactors, r.Reason)
}

func tradeBlock(n int, option, strike, confidence string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "**📈 Trade #%d:**\n", n)
	fmt.Fprintf(&b, "- **Option Type:** %s\n", option)
	fmt.Fprintf(&b, "- **Strike:** %s\n", strike)
	b.WriteString("- **Entry Premium:** ₹120–125\n")
	b.WriteString("- **Target:** ₹150\n")
	b.WriteString("- **Stop Loss:** ₹105\n")
	b.WriteString("- **Ideal Entry Time:** 9:45 AM\n")
	b.WriteString("- **Ideal Exit Time:** 11:15 AM\n")
	if confidence != "" {
		fmt.Fprintf(&b, "- **Confidence:** %s%%\n", confidence)
	}
	b.WriteString("- **Justification:** Opening range breakout\n  with rising volume.\n\n")
	return b.String()
}

func allExtractors() map[string]Extractor {
	return map[string]Extractor{
		StrategyBlock:   BlockExtractor{},
		StrategyLabeled: LabeledExtractor{},
	}
}

func TestParseEmptyAndNoise(t *testing.T) {
	inputs := []string{
		"",
		"   \n\t",
		"The market looks choppy today; no clear setups.",
		"openai Error: provider unavailable: dial tcp: connection refused",
		"No response received.",
	}
	for name, ex := range allExtractors() {
		for _, in := range inputs {
			assert.NotPanics(t, func() {
				assert.Empty(t, ex.Parse(in), "%s: %q", name, in)
			})
		}
	}
}

func TestParseRoundTrip(t *testing.T) {
	want := sampleRecord()
	for name, ex := range allExtractors() {
		t.Run(name, func(t *testing.T) {
			got := ex.Parse(labeledLayout(want))
			require.Len(t, got, 1)
			assert.Equal(t, want, got[0])
		})
	}
}

func TestLabeledRequiresEveryLabel(t *testing.T) {
	text := strings.Replace(labeledLayout(sampleRecord()), "Short Reason: ", "Summary: ", 1)
	assert.Empty(t, LabeledExtractor{}.Parse(text))
}

func TestLabeledMultipleTrades(t *testing.T) {
	first := sampleRecord()
	second := sampleRecord()
	second.OptionType = OptionPut
	second.StrikePrice = "24,300"
	second.ConfidenceLevel = "74"

	text := "1. " + labeledLayout(first) + "2. " + labeledLayout(second)
	got := LabeledExtractor{}.Parse(text)
	require.Len(t, got, 2)
	assert.Equal(t, first.Reason, got[0].Reason)
	assert.Equal(t, OptionPut, got[1].OptionType)
	assert.Equal(t, "24,300", got[1].StrikePrice)
	assert.Equal(t, "74", got[1].ConfidenceLevel)
}

func TestBlockSingleTrade(t *testing.T) {
	text := "Here are today's setups.\n\n" + tradeBlock(1, "CE", "24500", "82")
	got := BlockExtractor{}.Parse(text)
	require.Len(t, got, 1)

	rec := got[0]
	assert.Equal(t, OptionCall, rec.OptionType)
	assert.Equal(t, "24500", rec.StrikePrice)
	assert.Equal(t, "₹120–125", rec.PremiumEntryRange)
	assert.Equal(t, "₹150", rec.Targets)
	assert.Equal(t, "₹105", rec.StopLoss)
	assert.Equal(t, "9:45 AM", rec.IdealEntryTime)
	assert.Equal(t, "11:15 AM", rec.IdealExitTime)
	assert.Equal(t, "82", rec.ConfidenceLevel)
	assert.Equal(t, "Opening range breakout with rising volume.", rec.Reason)

	best, ok := Pick(got)
	require.True(t, ok)
	assert.Equal(t, "82", best.ConfidenceLevel)
}

func TestBlockTwoTradesPicksHigherConfidence(t *testing.T) {
	text := tradeBlock(1, "PE", "24400", "70") + tradeBlock(2, "CE", "24600", "91")
	got := BlockExtractor{}.Parse(text)
	require.Len(t, got, 2)
	assert.Equal(t, "70", got[0].ConfidenceLevel)
	assert.Equal(t, "91", got[1].ConfidenceLevel)

	best, ok := Pick(got)
	require.True(t, ok)
	assert.Equal(t, "24600", best.StrikePrice)
	assert.Equal(t, "91", best.ConfidenceLevel)
}

func TestBlockMissingConfidenceIsExcluded(t *testing.T) {
	text := tradeBlock(1, "CE", "24500", "") + tradeBlock(2, "PE", "24300", "60")
	got := BlockExtractor{}.Parse(text)
	require.Len(t, got, 2)
	assert.Equal(t, "", got[0].ConfidenceLevel)
	assert.Equal(t, "24500", got[0].StrikePrice)

	r := Rank(got)
	require.True(t, r.Found)
	assert.Equal(t, 1, r.Index)
	assert.Equal(t, "24300", r.Best.StrikePrice)
	require.Len(t, r.Skipped, 1)
	assert.ErrorIs(t, r.Skipped[0], ErrMalformedConfidence)
}

func TestBlockToleratesLayoutVariants(t *testing.T) {
	text := `### Trade #1
**Strike Price**
24,450

**Option Type:** Put (PE)
**Confidence Level (%):** 77% (moderate)
**Key Factors:**
- VIX rising
- Weak breadth

**Short Reason:** Lower highs since the open.
`
	got := BlockExtractor{}.Parse(text)
	require.Len(t, got, 1)
	rec := got[0]
	assert.Equal(t, OptionPut, rec.OptionType)
	assert.Equal(t, "24,450", rec.StrikePrice)
	assert.Equal(t, "77", rec.ConfidenceLevel)
	assert.Equal(t, "- VIX rising - Weak breadth", rec.KeyFactors)
	assert.Equal(t, "Lower highs since the open.", rec.Reason)
	assert.Empty(t, rec.Targets)
	assert.Empty(t, rec.StopLoss)
}

func TestBlockSplitsPlainHeaders(t *testing.T) {
	text := `Trade #1:
Option Type: PE
Strike: 24400
Confidence: 70%

Trade #2:
Option Type: CE
Strike: 24600
Confidence: 91%
`
	got := BlockExtractor{}.Parse(text)
	require.Len(t, got, 2)
	assert.Equal(t, "70", got[0].ConfidenceLevel)
	assert.Equal(t, "91", got[1].ConfidenceLevel)

	best, ok := Pick(got)
	require.True(t, ok)
	assert.Equal(t, OptionCall, best.OptionType)
	assert.Equal(t, "24600", best.StrikePrice)
}

func TestBlockEmojiHeaderMidLine(t *testing.T) {
	text := `Setups: 📈 Trade #1:
Option Type: CE
Strike: 24500
Confidence: 80%
Next up 📉 Trade #2:
Option Type: PE
Strike: 24300
Confidence: 65%
`
	got := BlockExtractor{}.Parse(text)
	require.Len(t, got, 2)
	assert.Equal(t, "24500", got[0].StrikePrice)
	assert.Equal(t, "80", got[0].ConfidenceLevel)
	assert.Equal(t, OptionPut, got[1].OptionType)
	assert.Equal(t, "24300", got[1].StrikePrice)
}

func TestBlockQualifierMayHoldClockTime(t *testing.T) {
	text := "**Trade #1:**\nOption Type: CE\nTarget (by 11:00): ₹150\nIdeal Exit Time: 11:15 AM\n"
	got := BlockExtractor{}.Parse(text)
	require.Len(t, got, 1)
	assert.Equal(t, "₹150", got[0].Targets)
	assert.Equal(t, "11:15 AM", got[0].IdealExitTime)
}

func TestBlockKeepsNonNumericConfidence(t *testing.T) {
	text := "**Trade #1:**\nOption Type: Call\nStrike: 24500\nConfidence: high\n"
	got := BlockExtractor{}.Parse(text)
	require.Len(t, got, 1)
	assert.Equal(t, OptionCall, got[0].OptionType)
	assert.Equal(t, "high", got[0].ConfidenceLevel)

	_, err := got[0].Confidence()
	var ce *ConfidenceError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, "high", ce.Raw)
}

func TestNewExtractor(t *testing.T) {
	ex, err := NewExtractor("")
	require.NoError(t, err)
	assert.IsType(t, BlockExtractor{}, ex)

	ex, err = NewExtractor(" Labeled ")
	require.NoError(t, err)
	assert.IsType(t, LabeledExtractor{}, ex)

	_, err = NewExtractor("fuzzy")
	assert.Error(t, err)
}
