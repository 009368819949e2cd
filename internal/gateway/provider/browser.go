package provider

import (
	"context"
	"fmt"
	"strings"
	"time"

	"niftybot/internal/logger"

	md "github.com/JohannesKaufmann/html-to-markdown"
	"github.com/PuerkitoBio/goquery"
)

// NoResponseSentinel is returned when the chat page produced nothing before the deadline.
const NoResponseSentinel = "No response received."

// BrowserSession is one exclusive browser instance. Close must release it.
type BrowserSession interface {
	Navigate(ctx context.Context, url string) error
	Location(ctx context.Context) (string, error)
	HTML(ctx context.Context) (string, error)
	// ClickByText clicks every visible element matching one of selectors whose
	// text contains one of phrases (case-insensitive) and reports how many were clicked.
	ClickByText(ctx context.Context, selectors []string, phrases []string) (int, error)
	Type(ctx context.Context, selector, text string) error
	Click(ctx context.Context, selector string) error
	Close() error
}

// SessionFactory starts a fresh session for one fetch.
type SessionFactory func(ctx context.Context) (BrowserSession, error)

// BrowserConfig describes how to drive a web chat page.
type BrowserConfig struct {
	Name             string
	URL              string
	HostMarker       string
	InputSelector    string
	SendSelector     string
	ResponseSelector string
	DismissPhrases   []string
	ChallengeMarkers []string
	ErrorBannerText  string
	RetryButtonText  string
	SettleDelay      time.Duration
	PollInterval     time.Duration
	ChallengeBackoff time.Duration
	StablePolls      int
	Timeout          time.Duration
}

func DefaultBrowserConfig() BrowserConfig {
	return BrowserConfig{
		Name:             "ChatGPT",
		URL:              "https://chatgpt.com/",
		HostMarker:       "chatgpt",
		InputSelector:    "#prompt-textarea",
		SendSelector:     `button[aria-label="Send message"], button[data-testid="send-button"]`,
		ResponseSelector: "div.markdown.prose",
		DismissPhrases:   []string{"stay logged out", "continue", "got it", "dismiss", "okay"},
		ChallengeMarkers: []string{"verify you are human", "cloudflare", "just a moment"},
		ErrorBannerText:  "something went wrong",
		RetryButtonText:  "retry",
		SettleDelay:      2 * time.Second,
		PollInterval:     5 * time.Second,
		ChallengeBackoff: 10 * time.Second,
		StablePolls:      5,
		Timeout:          300 * time.Second,
	}
}

// BrowserSource drives a chat web UI. Completion is inferred from the answer
// text staying unchanged for StablePolls consecutive polls; there is no
// end-of-stream signal to wait on.
type BrowserSource struct {
	cfg        BrowserConfig
	newSession SessionFactory
	converter  *md.Converter

	now   func() time.Time
	sleep func(ctx context.Context, d time.Duration) error
}

func NewBrowserSource(cfg BrowserConfig, factory SessionFactory) *BrowserSource {
	def := DefaultBrowserConfig()
	if cfg.Name == "" {
		cfg.Name = def.Name
	}
	if cfg.InputSelector == "" {
		cfg.InputSelector = def.InputSelector
	}
	if cfg.SendSelector == "" {
		cfg.SendSelector = def.SendSelector
	}
	if cfg.ResponseSelector == "" {
		cfg.ResponseSelector = def.ResponseSelector
	}
	if len(cfg.DismissPhrases) == 0 {
		cfg.DismissPhrases = def.DismissPhrases
	}
	if len(cfg.ChallengeMarkers) == 0 {
		cfg.ChallengeMarkers = def.ChallengeMarkers
	}
	if cfg.ErrorBannerText == "" {
		cfg.ErrorBannerText = def.ErrorBannerText
	}
	if cfg.RetryButtonText == "" {
		cfg.RetryButtonText = def.RetryButtonText
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = def.PollInterval
	}
	if cfg.ChallengeBackoff <= 0 {
		cfg.ChallengeBackoff = def.ChallengeBackoff
	}
	if cfg.StablePolls <= 0 {
		cfg.StablePolls = def.StablePolls
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = def.Timeout
	}
	return &BrowserSource{
		cfg:        cfg,
		newSession: factory,
		converter:  md.NewConverter("", true, nil),
		now:        time.Now,
		sleep:      sleepCtx,
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

func (s *BrowserSource) Name() string { return s.cfg.Name }

func (s *BrowserSource) Fetch(ctx context.Context, prompt string) (out string, err error) {
	if s.newSession == nil {
		return "", fmt.Errorf("%w: no browser session factory", ErrAutomation)
	}
	sess, err := s.newSession(ctx)
	if err != nil {
		return "", fmt.Errorf("%w: start browser: %v", ErrAutomation, err)
	}
	defer func() {
		if cerr := sess.Close(); cerr != nil {
			logger.Warnf("[browser] close session failed: %v", cerr)
		}
	}()
	defer func() {
		if r := recover(); r != nil {
			out, err = "", fmt.Errorf("%w: panic: %v", ErrAutomation, r)
		}
	}()

	logger.LogPrompt(s.cfg.Name, "", prompt)
	if err := sess.Navigate(ctx, s.cfg.URL); err != nil {
		return "", fmt.Errorf("%w: open %s: %v", ErrAutomation, s.cfg.URL, err)
	}
	if marker := strings.ToLower(s.cfg.HostMarker); marker != "" {
		loc, err := sess.Location(ctx)
		if err != nil {
			return "", fmt.Errorf("%w: read location: %v", ErrAutomation, err)
		}
		if !strings.Contains(strings.ToLower(loc), marker) {
			logger.Warnf("[browser] unexpected redirect: %s", loc)
			return "", fmt.Errorf("%w: redirected from %s page to %s, log in manually", ErrAutomation, s.cfg.Name, loc)
		}
	}
	if err := s.sleep(ctx, s.cfg.SettleDelay); err != nil {
		return "", fmt.Errorf("%w: %v", ErrAutomation, err)
	}
	s.dismissDialogs(ctx, sess)

	if err := sess.Type(ctx, s.cfg.InputSelector, singleLine(prompt)); err != nil {
		return "", fmt.Errorf("%w: type prompt: %v", ErrAutomation, err)
	}
	if err := sess.Click(ctx, s.cfg.SendSelector); err != nil {
		return "", fmt.Errorf("%w: send prompt: %v", ErrAutomation, err)
	}
	logger.Infof("[browser] prompt sent to %s, waiting for response", s.cfg.Name)

	out, err = s.awaitResponse(ctx, sess)
	if err == nil {
		logger.LogReply(s.cfg.Name, out)
	}
	return out, err
}

// dismissDialogs clicks onboarding buttons and links. Finding none is normal.
// singleLine joins a multi-line prompt with spaces; chat composers treat a
// newline as "send".
func singleLine(prompt string) string {
	return strings.Join(strings.Fields(prompt), " ")
}

func (s *BrowserSource) dismissDialogs(ctx context.Context, sess BrowserSession) {
	n, err := sess.ClickByText(ctx, []string{"button", "a"}, s.cfg.DismissPhrases)
	if err != nil {
		logger.Debugf("[browser] dismiss dialogs: %v", err)
		return
	}
	if n > 0 {
		logger.Infof("[browser] closed %d popup element(s)", n)
	}
}

func (s *BrowserSource) awaitResponse(ctx context.Context, sess BrowserSession) (string, error) {
	deadline := s.now().Add(s.cfg.Timeout)
	var last string
	stable := 0
	for s.now().Before(deadline) {
		if err := s.sleep(ctx, s.cfg.PollInterval); err != nil {
			return "", fmt.Errorf("%w: %v", ErrAutomation, err)
		}
		html, err := sess.HTML(ctx)
		if err != nil {
			logger.Warnf("[browser] read page failed: %v", err)
			stable = 0
			continue
		}
		page := s.inspect(html)
		switch {
		case page.challenge:
			logger.Warnf("[browser] challenge page detected, solve it in the browser window; backing off %s", s.cfg.ChallengeBackoff)
			if err := s.sleep(ctx, s.cfg.ChallengeBackoff); err != nil {
				return "", fmt.Errorf("%w: %v", ErrAutomation, err)
			}
			continue
		case page.failed:
			stable = 0
			n, err := sess.ClickByText(ctx, []string{"button"}, []string{s.cfg.RetryButtonText})
			if err != nil || n == 0 {
				logger.Warnf("[browser] error banner shown but no retry button clicked: %v", err)
			} else {
				logger.Infof("[browser] clicked retry after error banner")
			}
			continue
		case page.answer == "":
			stable = 0
			continue
		case page.answer == last:
			stable++
		default:
			last = page.answer
			stable = 1
			logger.Debugf("[browser] response updating: %d chars", len(last))
		}
		if stable >= s.cfg.StablePolls {
			return last, nil
		}
	}
	if last != "" {
		logger.Warnf("[browser] timed out after %s, using last partial response", s.cfg.Timeout)
		return last, nil
	}
	logger.Warnf("[browser] no response within %s", s.cfg.Timeout)
	return NoResponseSentinel, nil
}

type pageState struct {
	challenge bool
	failed    bool
	answer    string
}

// inspect classifies a rendered chat page.
func (s *BrowserSource) inspect(html string) pageState {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return pageState{}
	}
	doc.Find("script, style, noscript").Remove()
	var st pageState
	visible := strings.ToLower(doc.Find("title").Text() + " " + doc.Find("body").Text())
	for _, marker := range s.cfg.ChallengeMarkers {
		if marker != "" && strings.Contains(visible, strings.ToLower(marker)) {
			st.challenge = true
			return st
		}
	}
	if doc.Find(`#challenge-form, iframe[src*="challenges.cloudflare.com"]`).Length() > 0 {
		st.challenge = true
		return st
	}

	if s.cfg.ErrorBannerText != "" && strings.Contains(visible, strings.ToLower(s.cfg.ErrorBannerText)) {
		retry := strings.ToLower(s.cfg.RetryButtonText)
		st.failed = doc.Find("button").FilterFunction(func(_ int, b *goquery.Selection) bool {
			return strings.Contains(strings.ToLower(b.Text()), retry)
		}).Length() > 0
	}

	answers := doc.Find(s.cfg.ResponseSelector)
	if answers.Length() > 0 {
		latest, err := goquery.OuterHtml(answers.Last())
		if err == nil {
			if text, err := s.converter.ConvertString(latest); err == nil {
				st.answer = strings.TrimSpace(text)
			}
		}
	}
	return st
}
