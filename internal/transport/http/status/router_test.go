package statushttp

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"niftybot/internal/market"
	"niftybot/internal/pipeline"
	"niftybot/internal/trade"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeRuns struct {
	out pipeline.Outcome
	ok  bool
}

func (f *fakeRuns) LastRun() (pipeline.Outcome, bool) { return f.out, f.ok }

type fakeTrigger struct {
	out pipeline.Outcome
}

func (f *fakeTrigger) Run(context.Context) pipeline.Outcome { return f.out }

func serve(t *testing.T, cfg ServerConfig, method, target string) *httptest.ResponseRecorder {
	t.Helper()
	srv, err := NewServer(cfg)
	require.NoError(t, err)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(method, target, nil))
	return rec
}

func TestHealthz(t *testing.T) {
	rec := serve(t, ServerConfig{Runs: &fakeRuns{}}, http.MethodGet, "/healthz")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestLastRunNotFoundBeforeFirstRun(t *testing.T) {
	rec := serve(t, ServerConfig{Runs: &fakeRuns{}}, http.MethodGet, "/api/runs/last")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestLastRunReturnsOutcome(t *testing.T) {
	sel := trade.Record{OptionType: trade.OptionCall, StrikePrice: "24500", ConfidenceLevel: "82"}
	runs := &fakeRuns{ok: true, out: pipeline.Outcome{
		RunID:     "abc",
		StartedAt: time.Date(2025, 6, 10, 9, 15, 0, 0, time.UTC),
		Source:    "Grok",
		Selected:  &sel,
		Delivered: true,
	}}
	rec := serve(t, ServerConfig{Runs: runs}, http.MethodGet, "/api/runs/last")
	require.Equal(t, http.StatusOK, rec.Code)

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "abc", body["run_id"])
	assert.Equal(t, true, body["delivered"])
	selected, ok := body["selected"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "CE", selected["option_type"])
}

func TestTriggerRunConflictWhenBusy(t *testing.T) {
	trig := &fakeTrigger{out: pipeline.Outcome{Skipped: true, Err: pipeline.ErrRunInProgress, Error: pipeline.ErrRunInProgress.Error()}}
	rec := serve(t, ServerConfig{Runs: &fakeRuns{}, Trigger: trig}, http.MethodPost, "/api/runs")
	assert.Equal(t, http.StatusConflict, rec.Code)

	trig.out = pipeline.Outcome{RunID: "r2"}
	rec = serve(t, ServerConfig{Runs: &fakeRuns{}, Trigger: trig}, http.MethodPost, "/api/runs")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"run_id":"r2"`)
}

func TestTriggerRouteAbsentWithoutTrigger(t *testing.T) {
	rec := serve(t, ServerConfig{Runs: &fakeRuns{}}, http.MethodPost, "/api/runs")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCalendarEndpoint(t *testing.T) {
	cfg := ServerConfig{Runs: &fakeRuns{}, Calendar: market.NewCalendar(market.IST, nil)}

	rec := serve(t, cfg, http.MethodGet, "/api/calendar?date=2025-08-15")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"date":"2025-08-15","closed":true,"reason":"holiday","next_open":"2025-08-18"}`, rec.Body.String())

	rec = serve(t, cfg, http.MethodGet, "/api/calendar?date=2025-06-10")
	assert.JSONEq(t, `{"date":"2025-06-10","closed":false,"reason":"","next_open":"2025-06-10"}`, rec.Body.String())

	rec = serve(t, cfg, http.MethodGet, "/api/calendar?date=10-06-2025")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestLogsEndpointTailsFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nifty_bot.log")
	require.NoError(t, os.WriteFile(path, []byte("one\ntwo\nthree\nfour\n"), 0o644))

	cfg := ServerConfig{Runs: &fakeRuns{}, LogPaths: map[string]string{"app": path}}
	rec := serve(t, cfg, http.MethodGet, "/api/logs?limit=2")
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Name  string   `json:"name"`
		Lines []string `json:"lines"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "app", body.Name)
	assert.Equal(t, []string{"three", "four"}, body.Lines)
}

func TestLogsEndpointCapsLimit(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nifty_bot.log")
	var content strings.Builder
	for i := 0; i < maxLogLines+50; i++ {
		fmt.Fprintf(&content, "line %d\n", i)
	}
	require.NoError(t, os.WriteFile(path, []byte(content.String()), 0o644))

	cfg := ServerConfig{Runs: &fakeRuns{}, LogPaths: map[string]string{"app": path}}
	rec := serve(t, cfg, http.MethodGet, "/api/logs?name=app&limit=4611686018427387904")
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Lines []string `json:"lines"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Len(t, body.Lines, maxLogLines)
	assert.Equal(t, fmt.Sprintf("line %d", maxLogLines+49), body.Lines[len(body.Lines)-1])
}

func TestNewServerRequiresReporter(t *testing.T) {
	_, err := NewServer(ServerConfig{})
	assert.Error(t, err)
}

func TestStartStopsOnCancel(t *testing.T) {
	srv, err := NewServer(ServerConfig{Addr: "127.0.0.1:0", Runs: &fakeRuns{}})
	require.NoError(t, err)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.Start(ctx) }()
	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(10 * time.Second):
		t.Fatal("server did not stop")
	}
}

func TestStartReportsBindFailure(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()

	srv, err := NewServer(ServerConfig{Addr: ln.Addr().String(), Runs: &fakeRuns{}})
	require.NoError(t, err)
	assert.Error(t, srv.Start(context.Background()))
}
