package trade

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// OptionType is the side of an index option recommendation.
type OptionType string

const (
	OptionUnknown OptionType = ""
	OptionCall    OptionType = "CE"
	OptionPut     OptionType = "PE"
)

// Field labels, in the order alerts list them.
const (
	LabelOptionType        = "Option Type"
	LabelStrikePrice       = "Strike Price"
	LabelPremiumEntryRange = "Premium Entry Range"
	LabelTargets           = "Target(s)"
	LabelStopLoss          = "Stop Loss"
	LabelIdealEntryTime    = "Ideal Entry Time"
	LabelIdealExitTime     = "Ideal Exit Time"
	LabelConfidenceLevel   = "Confidence Level"
	LabelKeyFactors        = "Key Factors"
	LabelVolumeSurge       = "Volume Surge"
	LabelVIX               = "VIX"
	LabelPriceAction       = "Price Action"
	LabelMomentum          = "Momentum"
	LabelReason            = "Reason"
)

// Record is one trade recommendation extracted from advisory text.
// Records are handled by value; extraction never hands out shared state.
type Record struct {
	OptionType        OptionType `json:"option_type,omitempty"`
	StrikePrice       string     `json:"strike_price,omitempty"`
	PremiumEntryRange string     `json:"premium_entry_range,omitempty"`
	Targets           string     `json:"targets,omitempty"`
	StopLoss          string     `json:"stop_loss,omitempty"`
	IdealEntryTime    string     `json:"ideal_entry_time,omitempty"`
	IdealExitTime     string     `json:"ideal_exit_time,omitempty"`
	ConfidenceLevel   string     `json:"confidence_level,omitempty"`
	KeyFactors        string     `json:"key_factors,omitempty"`
	Reason            string     `json:"reason,omitempty"`

	// Not populated by extraction; kept so richer sources can fill them.
	VolumeSurge string `json:"volume_surge,omitempty"`
	VIX         string `json:"vix,omitempty"`
	PriceAction string `json:"price_action,omitempty"`
	Momentum    string `json:"momentum,omitempty"`
}

// Field is a single labelled value of a Record.
type Field struct {
	Label string
	Value string
}

// Fields lists every attribute of r with its label, each label exactly once.
func (r Record) Fields() []Field {
	return []Field{
		{LabelOptionType, string(r.OptionType)},
		{LabelStrikePrice, r.StrikePrice},
		{LabelPremiumEntryRange, r.PremiumEntryRange},
		{LabelTargets, r.Targets},
		{LabelStopLoss, r.StopLoss},
		{LabelIdealEntryTime, r.IdealEntryTime},
		{LabelIdealExitTime, r.IdealExitTime},
		{LabelConfidenceLevel, r.ConfidenceLevel},
		{LabelKeyFactors, r.KeyFactors},
		{LabelVolumeSurge, r.VolumeSurge},
		{LabelVIX, r.VIX},
		{LabelPriceAction, r.PriceAction},
		{LabelMomentum, r.Momentum},
		{LabelReason, r.Reason},
	}
}

// ErrMalformedConfidence marks a record whose confidence cannot be ranked.
var ErrMalformedConfidence = errors.New("malformed confidence level")

// ConfidenceError carries the raw confidence value that failed to parse.
type ConfidenceError struct {
	Raw string
}

func (e *ConfidenceError) Error() string {
	return fmt.Sprintf("%v: %q", ErrMalformedConfidence, e.Raw)
}

func (e *ConfidenceError) Unwrap() error { return ErrMalformedConfidence }

// Confidence parses the confidence level as a base-10 percentage in [0, 100].
func (r Record) Confidence() (int, error) {
	raw := strings.TrimSpace(r.ConfidenceLevel)
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 || n > 100 {
		return 0, &ConfidenceError{Raw: r.ConfidenceLevel}
	}
	return n, nil
}
