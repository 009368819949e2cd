package provider

import (
	"context"
	"testing"
	"time"

	"niftybot/internal/pkg/circuit"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildChatPresets(t *testing.T) {
	src, err := Build(SourceCfg{Kind: "chat", Preset: "grok", APIKey: "k"}, nil)
	require.NoError(t, err)
	chat, ok := src.(*ChatSource)
	require.True(t, ok)
	assert.Equal(t, "Grok", chat.Name())
	assert.Equal(t, "grok-3", chat.client.Model)
	assert.Equal(t, "https://api.x.ai/v1/chat/completions", chat.client.endpoint())

	src, err = Build(SourceCfg{Preset: "OpenAI", Model: "gpt-4o-mini"}, nil)
	require.NoError(t, err)
	chat = src.(*ChatSource)
	assert.Equal(t, "ChatGPT", chat.Name())
	assert.Equal(t, "gpt-4o-mini", chat.client.Model)
}

func TestBuildChatCustomEndpoint(t *testing.T) {
	src, err := Build(SourceCfg{Kind: "chat", Name: "Local", BaseURL: "http://localhost:8080/v1/chat/completions", Model: "llama"}, nil)
	require.NoError(t, err)
	chat := src.(*ChatSource)
	assert.Equal(t, "Local", chat.Name())
	assert.Equal(t, "http://localhost:8080/v1/chat/completions", chat.client.endpoint())
}

func TestBuildRejectsUnknown(t *testing.T) {
	_, err := Build(SourceCfg{Kind: "carrier-pigeon"}, nil)
	assert.Error(t, err)

	_, err = Build(SourceCfg{Kind: "chat", Preset: "claude-web"}, nil)
	assert.Error(t, err)

	_, err = Build(SourceCfg{Kind: "chat"}, nil)
	assert.Error(t, err, "no preset and no model")
}

func TestBuildBrowser(t *testing.T) {
	factory := func(ctx context.Context) (BrowserSession, error) { return &fakeSession{}, nil }
	cfg := SourceCfg{Kind: "browser", Browser: DefaultBrowserConfig()}
	src, err := Build(cfg, factory)
	require.NoError(t, err)
	assert.Equal(t, "ChatGPT", src.Name())
	assert.IsType(t, &BrowserSource{}, src)

	cfg.Browser.URL = ""
	_, err = Build(cfg, factory)
	assert.Error(t, err)
}

type flakySource struct {
	calls int
	err   error
}

func (f *flakySource) Name() string { return "Grok" }

func (f *flakySource) Fetch(context.Context, string) (string, error) {
	f.calls++
	if f.err != nil {
		return "", f.err
	}
	return "ok", nil
}

func TestBuildWrapsSourceInBreaker(t *testing.T) {
	src, err := Build(SourceCfg{Preset: "grok", BreakerThreshold: 3, BreakerCooldown: time.Minute}, nil)
	require.NoError(t, err)
	g, ok := src.(*Guarded)
	require.True(t, ok)
	assert.Equal(t, "Grok", g.Name())
	assert.Equal(t, circuit.StateClosed, g.Breaker().State())
}

func TestGuardedStopsCallingAfterThreshold(t *testing.T) {
	inner := &flakySource{err: ErrSourceUnavailable}
	g := NewGuarded(inner, circuit.New("Grok", 2, time.Hour))
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		_, err := g.Fetch(ctx, "p")
		assert.ErrorIs(t, err, ErrSourceUnavailable)
	}
	_, err := g.Fetch(ctx, "p")
	assert.ErrorIs(t, err, circuit.ErrOpen)
	assert.ErrorIs(t, err, ErrSourceUnavailable)
	assert.Equal(t, 2, inner.calls)
}

func TestGuardedIgnoresCancelledRuns(t *testing.T) {
	inner := &flakySource{err: context.Canceled}
	g := NewGuarded(inner, circuit.New("Grok", 1, time.Hour))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := g.Fetch(ctx, "p")
	assert.Error(t, err)
	assert.Equal(t, circuit.StateClosed, g.Breaker().State())
}
