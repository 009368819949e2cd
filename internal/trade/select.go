package trade

import "fmt"

// Ranking is the outcome of comparing candidate records by confidence.
type Ranking struct {
	Best  Record
	Index int
	Found bool
	// Skipped holds one error per candidate left out because its confidence
	// could not be parsed. Each wraps ErrMalformedConfidence.
	Skipped []error
}

// Rank returns the record with the highest confidence. Ties keep the earliest
// record. Candidates with a malformed confidence are excluded and reported in
// Skipped rather than failing the whole comparison.
func Rank(records []Record) Ranking {
	out := Ranking{Index: -1}
	best := -1
	for i, rec := range records {
		c, err := rec.Confidence()
		if err != nil {
			out.Skipped = append(out.Skipped, fmt.Errorf("trade #%d: %w", i+1, err))
			continue
		}
		if c > best {
			best = c
			out.Best = rec
			out.Index = i
			out.Found = true
		}
	}
	return out
}

// Pick returns the highest-confidence record, or false when there is none.
func Pick(records []Record) (Record, bool) {
	r := Rank(records)
	return r.Best, r.Found
}
