package trade

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func withConfidence(strike, confidence string) Record {
	return Record{OptionType: OptionCall, StrikePrice: strike, ConfidenceLevel: confidence}
}

func TestPick(t *testing.T) {
	tests := []struct {
		name       string
		records    []Record
		wantOK     bool
		wantStrike string
	}{
		{name: "empty", records: nil, wantOK: false},
		{name: "single", records: []Record{withConfidence("A", "55")}, wantOK: true, wantStrike: "A"},
		{name: "higher wins", records: []Record{withConfidence("A", "80"), withConfidence("B", "95")}, wantOK: true, wantStrike: "B"},
		{name: "tie keeps first", records: []Record{withConfidence("A", "90"), withConfidence("B", "90")}, wantOK: true, wantStrike: "A"},
		{name: "zero is rankable", records: []Record{withConfidence("A", "0")}, wantOK: true, wantStrike: "A"},
		{name: "all malformed", records: []Record{withConfidence("A", ""), withConfidence("B", "high")}, wantOK: false},
		{name: "malformed skipped", records: []Record{withConfidence("A", "n/a"), withConfidence("B", "40")}, wantOK: true, wantStrike: "B"},
		{name: "out of range skipped", records: []Record{withConfidence("A", "150"), withConfidence("B", "60")}, wantOK: true, wantStrike: "B"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, ok := Pick(tc.records)
			assert.Equal(t, tc.wantOK, ok)
			if tc.wantOK {
				assert.Equal(t, tc.wantStrike, got.StrikePrice)
			}
		})
	}
}

func TestRankReportsSkipped(t *testing.T) {
	r := Rank([]Record{withConfidence("A", "x"), withConfidence("B", "70"), withConfidence("C", "")})
	require.True(t, r.Found)
	assert.Equal(t, 1, r.Index)
	require.Len(t, r.Skipped, 2)
	assert.ErrorIs(t, r.Skipped[0], ErrMalformedConfidence)
	assert.Contains(t, r.Skipped[0].Error(), "trade #1")
	assert.Contains(t, r.Skipped[1].Error(), "trade #3")
}

func TestRankEmpty(t *testing.T) {
	r := Rank(nil)
	assert.False(t, r.Found)
	assert.Equal(t, -1, r.Index)
	assert.Empty(t, r.Skipped)
}

func TestFieldsListEveryLabelOnce(t *testing.T) {
	seen := map[string]int{}
	for _, f := range sampleRecord().Fields() {
		seen[f.Label]++
	}
	assert.Len(t, seen, 14)
	for label, n := range seen {
		assert.Equal(t, 1, n, label)
	}
}

func TestConfidenceTrimsWhitespace(t *testing.T) {
	n, err := Record{ConfidenceLevel: " 64 "}.Confidence()
	require.NoError(t, err)
	assert.Equal(t, 64, n)
}
