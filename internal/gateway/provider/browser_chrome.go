package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/chromedp/cdproto/input"
	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"
)

// ChromeOptions controls how the local Chrome is launched.
type ChromeOptions struct {
	Headless    bool
	UserDataDir string
	ExecPath    string
	UserAgent   string
	// ActionTimeout bounds single steps such as waiting for the input box.
	ActionTimeout time.Duration
}

// stealthJS hides navigator.webdriver from the chat page.
const stealthJS = `Object.defineProperty(navigator, 'webdriver', {get: () => undefined});`

// NewChromeSessionFactory launches a dedicated Chrome process per session.
func NewChromeSessionFactory(opts ChromeOptions) SessionFactory {
	return func(ctx context.Context) (BrowserSession, error) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		allocatorOpts := append(chromedp.DefaultExecAllocatorOptions[:],
			chromedp.NoFirstRun,
			chromedp.NoDefaultBrowserCheck,
			chromedp.Flag("start-maximized", true),
			chromedp.Flag("enable-automation", false),
			chromedp.Flag("disable-blink-features", "AutomationControlled"),
			chromedp.Flag("disable-dev-shm-usage", true),
		)
		if opts.Headless {
			allocatorOpts = append(allocatorOpts, chromedp.Flag("headless", "new"), chromedp.DisableGPU)
		} else {
			allocatorOpts = append(allocatorOpts, chromedp.Flag("headless", false))
		}
		if opts.UserDataDir != "" {
			allocatorOpts = append(allocatorOpts, chromedp.UserDataDir(opts.UserDataDir))
		}
		if opts.ExecPath != "" {
			allocatorOpts = append(allocatorOpts, chromedp.ExecPath(opts.ExecPath))
		}
		if opts.UserAgent != "" {
			allocatorOpts = append(allocatorOpts, chromedp.UserAgent(opts.UserAgent))
		}

		allocCtx, allocCancel := chromedp.NewExecAllocator(context.Background(), allocatorOpts...)
		browserCtx, browserCancel := chromedp.NewContext(allocCtx)
		sess := &chromeSession{
			ctx:           browserCtx,
			actionTimeout: opts.ActionTimeout,
			cancel: func() {
				browserCancel()
				allocCancel()
			},
		}
		if sess.actionTimeout <= 0 {
			sess.actionTimeout = 120 * time.Second
		}
		// The first Run starts the browser and must use the browser context itself.
		err := chromedp.Run(browserCtx, chromedp.ActionFunc(func(c context.Context) error {
			_, err := page.AddScriptToEvaluateOnNewDocument(stealthJS).Do(c)
			return err
		}))
		if err != nil {
			sess.cancel()
			return nil, fmt.Errorf("launch chrome: %w", err)
		}
		return sess, nil
	}
}

type chromeSession struct {
	ctx           context.Context
	cancel        func()
	actionTimeout time.Duration
}

// run executes actions on the browser context while also honouring the caller's ctx.
func (s *chromeSession) run(ctx context.Context, actions ...chromedp.Action) error {
	runCtx, cancel := context.WithTimeout(s.ctx, s.actionTimeout)
	defer cancel()
	stop := context.AfterFunc(ctx, cancel)
	defer stop()
	return chromedp.Run(runCtx, actions...)
}

func (s *chromeSession) Navigate(ctx context.Context, url string) error {
	return s.run(ctx, chromedp.Navigate(url))
}

func (s *chromeSession) Location(ctx context.Context) (string, error) {
	var loc string
	err := s.run(ctx, chromedp.Location(&loc))
	return loc, err
}

func (s *chromeSession) HTML(ctx context.Context) (string, error) {
	var html string
	err := s.run(ctx, chromedp.OuterHTML("html", &html, chromedp.ByQuery))
	return html, err
}

const clickByTextJS = `(() => {
  const selectors = %s;
  const phrases = %s;
  let clicked = 0;
  for (const el of document.querySelectorAll(selectors.join(','))) {
    const text = (el.innerText || el.textContent || '').toLowerCase();
    if (!text || el.offsetParent === null) continue;
    if (phrases.some(p => text.includes(p))) {
      try { el.click(); clicked++; } catch (e) {}
    }
  }
  return clicked;
})()`

func (s *chromeSession) ClickByText(ctx context.Context, selectors []string, phrases []string) (int, error) {
	lowered := make([]string, 0, len(phrases))
	for _, p := range phrases {
		if p = strings.ToLower(strings.TrimSpace(p)); p != "" {
			lowered = append(lowered, p)
		}
	}
	if len(selectors) == 0 || len(lowered) == 0 {
		return 0, nil
	}
	sel, err := json.Marshal(selectors)
	if err != nil {
		return 0, err
	}
	phr, err := json.Marshal(lowered)
	if err != nil {
		return 0, err
	}
	var clicked int
	err = s.run(ctx, chromedp.Evaluate(fmt.Sprintf(clickByTextJS, sel, phr), &clicked))
	return clicked, err
}

// Type focuses the input and inserts text as a single edit. SendKeys would
// emit an Enter key event for every newline and submit the prompt early.
func (s *chromeSession) Type(ctx context.Context, selector, text string) error {
	return s.run(ctx,
		chromedp.WaitVisible(selector, chromedp.ByQuery),
		chromedp.Click(selector, chromedp.ByQuery),
		chromedp.ActionFunc(func(ctx context.Context) error {
			return input.InsertText(text).Do(ctx)
		}),
	)
}

func (s *chromeSession) Click(ctx context.Context, selector string) error {
	return s.run(ctx,
		chromedp.WaitEnabled(selector, chromedp.ByQuery),
		chromedp.Click(selector, chromedp.ByQuery),
	)
}

// Close terminates the Chrome process.
func (s *chromeSession) Close() error {
	if s.cancel != nil {
		s.cancel()
	}
	return nil
}
