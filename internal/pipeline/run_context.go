package pipeline

import (
	"strings"
	"sync"
	"time"

	"niftybot/internal/trade"
)

// RunContext carries the state of one run between stages.
type RunContext struct {
	RunID     string
	StartedAt time.Time
	Prompt    string

	mu          sync.RWMutex
	halted      bool
	haltReason  string
	source      string
	response    string
	sourceErr   error
	records     []trade.Record
	ranking     trade.Ranking
	message     string
	delivered   bool
	deliveryErr error
	warnings    []string
}

func NewRunContext(runID, prompt string, startedAt time.Time) *RunContext {
	return &RunContext{RunID: runID, Prompt: prompt, StartedAt: startedAt}
}

// Halt stops the run before the next stage without treating it as a failure.
func (rc *RunContext) Halt(reason string) {
	rc.mu.Lock()
	defer rc.mu.Unlock()
	rc.halted = true
	rc.haltReason = strings.TrimSpace(reason)
}

func (rc *RunContext) Halted() (bool, string) {
	rc.mu.RLock()
	defer rc.mu.RUnlock()
	return rc.halted, rc.haltReason
}

// SetResponse records the source reply. err is kept even when text is the degraded fallback.
func (rc *RunContext) SetResponse(source, text string, err error) {
	rc.mu.Lock()
	defer rc.mu.Unlock()
	rc.source = source
	rc.response = text
	rc.sourceErr = err
}

func (rc *RunContext) Response() (source, text string, err error) {
	rc.mu.RLock()
	defer rc.mu.RUnlock()
	return rc.source, rc.response, rc.sourceErr
}

func (rc *RunContext) SetRecords(records []trade.Record) {
	rc.mu.Lock()
	defer rc.mu.Unlock()
	rc.records = append([]trade.Record(nil), records...)
}

func (rc *RunContext) Records() []trade.Record {
	rc.mu.RLock()
	defer rc.mu.RUnlock()
	return append([]trade.Record(nil), rc.records...)
}

func (rc *RunContext) SetRanking(r trade.Ranking) {
	rc.mu.Lock()
	defer rc.mu.Unlock()
	rc.ranking = r
}

func (rc *RunContext) Ranking() trade.Ranking {
	rc.mu.RLock()
	defer rc.mu.RUnlock()
	return rc.ranking
}

func (rc *RunContext) SetMessage(msg string) {
	rc.mu.Lock()
	defer rc.mu.Unlock()
	rc.message = msg
}

func (rc *RunContext) Message() string {
	rc.mu.RLock()
	defer rc.mu.RUnlock()
	return rc.message
}

func (rc *RunContext) SetDelivery(err error) {
	rc.mu.Lock()
	defer rc.mu.Unlock()
	rc.delivered = err == nil
	rc.deliveryErr = err
}

func (rc *RunContext) Delivery() (bool, error) {
	rc.mu.RLock()
	defer rc.mu.RUnlock()
	return rc.delivered, rc.deliveryErr
}

// AddWarning records a warning.
func (rc *RunContext) AddWarning(msg string) {
	msg = strings.TrimSpace(msg)
	if msg == "" {
		return
	}
	rc.mu.Lock()
	defer rc.mu.Unlock()
	rc.warnings = append(rc.warnings, msg)
}

func (rc *RunContext) Warnings() []string {
	rc.mu.RLock()
	defer rc.mu.RUnlock()
	return append([]string(nil), rc.warnings...)
}
