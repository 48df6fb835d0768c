package browser

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/chromedp/chromedp"
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/annuaire/internal/common"
	"github.com/ternarybob/annuaire/internal/interfaces"
)

const (
	elementAttempts    = 3
	elementRetryDelay  = time.Second
	elementWaitTimeout = 10 * time.Second

	navigateAttempts   = 3
	navigateRetryDelay = 2 * time.Second

	visibilityPoll = 500 * time.Millisecond
	settleDelay    = 500 * time.Millisecond
)

var errElementNotFound = errors.New("element not found")

// ChromeBrowser is an interfaces.Browser backed by a chromedp session. The
// first tab of the session is the main tab; OpenTab pushes side tabs on top
// of it and the most recent one has focus.
type ChromeBrowser struct {
	mu              sync.Mutex
	mainCtx         context.Context
	tabs            []tab
	focus           int
	browserCancel   context.CancelFunc
	allocatorCancel context.CancelFunc
	setup           chromedp.Action
	pageLoadTimeout time.Duration
	logger          arbor.ILogger
	quitOnce        sync.Once
}

type tab struct {
	ctx    context.Context
	cancel context.CancelFunc
}

var _ interfaces.Browser = (*ChromeBrowser)(nil)

func newChromeBrowser(browserCtx context.Context, browserCancel, allocatorCancel context.CancelFunc, setup chromedp.Action, pageLoadTimeout time.Duration, logger arbor.ILogger) *ChromeBrowser {
	return &ChromeBrowser{
		mainCtx:         browserCtx,
		tabs:            []tab{{ctx: browserCtx, cancel: browserCancel}},
		browserCancel:   browserCancel,
		allocatorCancel: allocatorCancel,
		setup:           setup,
		pageLoadTimeout: pageLoadTimeout,
		logger:          logger,
	}
}

func (b *ChromeBrowser) focused() context.Context {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.tabs[b.focus].ctx
}

// scoped derives a context for one driver call on the focused tab. It is
// cancelled by the caller's ctx, the timeout (if positive) or the returned
// cancel function.
func (b *ChromeBrowser) scoped(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	var scopedCtx context.Context
	var cancel context.CancelFunc
	if timeout > 0 {
		scopedCtx, cancel = context.WithTimeout(b.focused(), timeout)
	} else {
		scopedCtx, cancel = context.WithCancel(b.focused())
	}
	stop := context.AfterFunc(ctx, cancel)
	return scopedCtx, func() {
		stop()
		cancel()
	}
}

func (b *ChromeBrowser) evaluate(ctx context.Context, timeout time.Duration, script string, res interface{}) error {
	scopedCtx, cancel := b.scoped(ctx, timeout)
	defer cancel()
	return chromedp.Run(scopedCtx, chromedp.Evaluate(script, res))
}

// Navigate loads url and waits for document.readyState to be complete.
func (b *ChromeBrowser) Navigate(ctx context.Context, url string) bool {
	policy := common.NewRetryPolicy(navigateAttempts, navigateRetryDelay)
	err := policy.Do(ctx, b.logger, func(ctx context.Context, attempt int) error {
		scopedCtx, cancel := b.scoped(ctx, b.pageLoadTimeout)
		defer cancel()

		if err := chromedp.Run(scopedCtx, chromedp.Navigate(url)); err != nil {
			b.logger.Error().Err(err).Str("url", url).Int("attempt", attempt).Msg("Navigation attempt failed")
			return err
		}
		if err := waitDocumentComplete(scopedCtx); err != nil {
			b.logger.Warn().Err(err).Str("url", url).Msg("Page load incomplete")
			return err
		}
		return nil
	})
	if err != nil {
		b.logger.Error().Str("url", url).Int("attempts", navigateAttempts).Msg("Failed to navigate")
		return false
	}

	b.logger.Debug().Str("url", url).Msg("Successfully navigated")
	return true
}

func waitDocumentComplete(ctx context.Context) error {
	for {
		var state string
		if err := chromedp.Run(ctx, chromedp.Evaluate("document.readyState", &state)); err != nil {
			return err
		}
		if state == "complete" {
			return nil
		}
		if err := common.Sleep(ctx, visibilityPoll); err != nil {
			return err
		}
	}
}

// FindLinks returns the anchors matching locator without waiting for them.
func (b *ChromeBrowser) FindLinks(ctx context.Context, locator string) []interfaces.Link {
	var raw []struct {
		Href string `json:"href"`
		Text string `json:"text"`
	}
	if err := b.evaluate(ctx, elementWaitTimeout, linksScript(locator), &raw); err != nil {
		b.logger.Error().Err(err).Str("locator", locator).Msg("Failed retrieving links")
		return nil
	}

	links := make([]interfaces.Link, 0, len(raw))
	for _, l := range raw {
		if l.Href == "" {
			continue
		}
		links = append(links, interfaces.Link{Href: l.Href, Text: l.Text})
	}
	return links
}

// ClickViaScript waits for the element, scrolls it into view and clicks it
// from script. Retries up to three times.
func (b *ChromeBrowser) ClickViaScript(ctx context.Context, locator string) bool {
	policy := common.NewRetryPolicy(elementAttempts, elementRetryDelay)
	err := policy.Do(ctx, b.logger, func(ctx context.Context, attempt int) error {
		if !b.waitReady(ctx, locator, elementWaitTimeout) {
			return common.Permanent(fmt.Errorf("%w: %s", errElementNotFound, locator))
		}
		var clicked bool
		if err := b.evaluate(ctx, elementWaitTimeout, clickScript(locator), &clicked); err != nil {
			return err
		}
		if !clicked {
			return fmt.Errorf("%w: %s", errElementNotFound, locator)
		}
		return common.Sleep(ctx, settleDelay)
	})
	if err != nil {
		b.logger.Error().Err(err).Str("locator", locator).Msg("JavaScript click failed")
		return false
	}
	return true
}

// TypeText replaces the value of an input with text and verifies the result,
// typing once more on mismatch.
func (b *ChromeBrowser) TypeText(ctx context.Context, locator, text string) bool {
	if text == "" {
		b.logger.Warn().Str("locator", locator).Msg("Empty text provided for input")
		return true
	}

	policy := common.NewRetryPolicy(elementAttempts, elementRetryDelay)
	err := policy.Do(ctx, b.logger, func(ctx context.Context, attempt int) error {
		if !b.waitReady(ctx, locator, elementWaitTimeout) {
			return common.Permanent(fmt.Errorf("%w: %s", errElementNotFound, locator))
		}
		if err := b.fillInput(ctx, locator, text); err != nil {
			return err
		}

		value, err := b.inputValue(ctx, locator)
		if err != nil {
			return err
		}
		if value != text {
			b.logger.Warn().
				Str("expected", text).
				Str("actual", value).
				Msg("Input verification failed, typing again")
			return b.fillInput(ctx, locator, text)
		}
		return nil
	})
	if err != nil {
		b.logger.Error().Err(err).Str("locator", locator).Msg("Element input failed")
		return false
	}
	return true
}

func (b *ChromeBrowser) fillInput(ctx context.Context, locator, text string) error {
	var found bool
	if err := b.evaluate(ctx, elementWaitTimeout, clearValueScript(locator), &found); err != nil {
		return err
	}
	if !found {
		return fmt.Errorf("%w: %s", errElementNotFound, locator)
	}

	scopedCtx, cancel := b.scoped(ctx, elementWaitTimeout)
	defer cancel()
	return chromedp.Run(scopedCtx, chromedp.SendKeys(locator, text, chromedp.BySearch))
}

func (b *ChromeBrowser) inputValue(ctx context.Context, locator string) (string, error) {
	var value string
	err := b.evaluate(ctx, elementWaitTimeout, fmt.Sprintf("(function(){const el = %s; return el ? el.value : '';})()", locateOne(locator)), &value)
	return value, err
}

// ReadText returns the visible text of the first match or "".
func (b *ChromeBrowser) ReadText(ctx context.Context, locator string, timeout time.Duration) string {
	scopedCtx, cancel := b.scoped(ctx, timeout)
	defer cancel()

	var text string
	if err := chromedp.Run(scopedCtx, chromedp.Text(locator, &text, chromedp.BySearch)); err != nil {
		if ctx.Err() == nil {
			b.logger.Debug().Str("locator", locator).Dur("timeout", timeout).Msg("Element not visible for text extraction")
		}
		return ""
	}
	return strings.TrimSpace(text)
}

// ElementExists reports whether locator matches a node within timeout.
func (b *ChromeBrowser) ElementExists(ctx context.Context, locator string, timeout time.Duration) bool {
	return b.waitReady(ctx, locator, timeout)
}

func (b *ChromeBrowser) waitReady(ctx context.Context, locator string, timeout time.Duration) bool {
	scopedCtx, cancel := b.scoped(ctx, timeout)
	defer cancel()
	return chromedp.Run(scopedCtx, chromedp.WaitReady(locator, chromedp.BySearch)) == nil
}

// WaitWhileVisible polls every half second until the element is gone or
// hidden. Reaching the timeout is only logged.
func (b *ChromeBrowser) WaitWhileVisible(ctx context.Context, locator string, timeout time.Duration) {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		var visible bool
		if err := b.evaluate(ctx, visibilityPoll*4, visibleScript(locator), &visible); err != nil || !visible {
			return
		}
		if err := common.Sleep(ctx, visibilityPoll); err != nil {
			return
		}
	}
	b.logger.Warn().Str("locator", locator).Dur("timeout", timeout).Msg("Timeout waiting for element to stop displaying")
}

// OpenTab opens a blank tab in the same browser and focuses it.
func (b *ChromeBrowser) OpenTab(ctx context.Context) bool {
	tabCtx, tabCancel := chromedp.NewContext(b.mainCtx)

	setup := func(targetCtx context.Context) error {
		return chromedp.Run(targetCtx, b.setup, chromedp.Navigate("about:blank"))
	}
	if err := attach(ctx, tabCtx, tabCancel, b.pageLoadTimeout, setup); err != nil {
		b.logger.Error().Err(err).Msg("Failed to open new tab")
		return false
	}

	b.mu.Lock()
	b.tabs = append(b.tabs, tab{ctx: tabCtx, cancel: tabCancel})
	b.focus = len(b.tabs) - 1
	b.mu.Unlock()
	return true
}

// CloseTab closes the focused side tab. The main tab is never closed here.
func (b *ChromeBrowser) CloseTab() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.focus == 0 {
		return
	}
	b.tabs[b.focus].cancel()
	b.tabs = append(b.tabs[:b.focus], b.tabs[b.focus+1:]...)
	b.focus = len(b.tabs) - 1
}

// SwitchToMain focuses the main tab. Returns false when the session is gone.
func (b *ChromeBrowser) SwitchToMain() bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.focus = 0
	return b.mainCtx.Err() == nil
}

// WindowCount returns the number of open page targets, 0 if the browser
// cannot be reached.
func (b *ChromeBrowser) WindowCount(ctx context.Context) int {
	if b.mainCtx.Err() != nil {
		return 0
	}
	scopedCtx, cancel := context.WithTimeout(b.mainCtx, elementWaitTimeout)
	defer cancel()
	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	targets, err := chromedp.Targets(scopedCtx)
	if err != nil {
		b.logger.Warn().Err(err).Msg("Failed to list browser targets")
		return 0
	}

	count := 0
	for _, t := range targets {
		if t.Type == "page" {
			count++
		}
	}
	return count
}

// Quit closes every tab and terminates the browser process.
func (b *ChromeBrowser) Quit() {
	b.quitOnce.Do(func() {
		b.mu.Lock()
		for i := len(b.tabs) - 1; i > 0; i-- {
			b.tabs[i].cancel()
		}
		b.tabs = b.tabs[:1]
		b.focus = 0
		b.mu.Unlock()

		done := make(chan struct{})
		go func() {
			b.browserCancel()
			b.allocatorCancel()
			close(done)
		}()

		select {
		case <-done:
			b.logger.Debug().Msg("Browser session closed")
		case <-time.After(30 * time.Second):
			b.logger.Warn().Msg("Browser shutdown timed out")
		}
	})
}
