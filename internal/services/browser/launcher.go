package browser

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/chromedp/cdproto/emulation"
	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/annuaire/internal/common"
	"github.com/ternarybob/annuaire/internal/interfaces"
)

const (
	startupDelay   = 3 * time.Second
	startupTimeout = 60 * time.Second
)

// ChromeLauncher starts Chrome sessions configured to look like a regular
// desktop browser.
type ChromeLauncher struct {
	config common.BrowserConfig
	logger arbor.ILogger
}

func NewChromeLauncher(config common.BrowserConfig, logger arbor.ILogger) *ChromeLauncher {
	return &ChromeLauncher{config: config, logger: logger}
}

// Launch starts Chrome, retrying up to StartupAttempts times.
func (l *ChromeLauncher) Launch(ctx context.Context) (interfaces.Browser, error) {
	var session *ChromeBrowser
	policy := common.NewRetryPolicy(l.config.StartupAttempts, startupDelay)

	err := policy.Do(ctx, l.logger, func(ctx context.Context, attempt int) error {
		b, err := l.start(ctx)
		if err != nil {
			l.logger.Error().
				Err(err).
				Int("attempt", attempt).
				Msg("Browser startup attempt failed")
			return err
		}
		l.logger.Info().
			Int("attempt", attempt).
			Bool("headless", l.config.Headless).
			Msg("Chrome session initialized")
		session = b
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("could not start browser: %w", err)
	}
	return session, nil
}

func (l *ChromeLauncher) start(ctx context.Context) (*ChromeBrowser, error) {
	startTime := time.Now()

	// The allocator outlives the caller's context so teardown still works
	// after an interrupt.
	allocatorCtx, allocatorCancel := chromedp.NewExecAllocator(context.Background(), l.allocatorOptions()...)
	browserCtx, browserCancel := chromedp.NewContext(allocatorCtx)

	shutdown := func() {
		browserCancel()
		allocatorCancel()
	}
	startup := func(targetCtx context.Context) error {
		return chromedp.Run(targetCtx, l.tabSetup(), chromedp.Navigate("about:blank"))
	}
	if err := attach(ctx, browserCtx, shutdown, startupTimeout, startup); err != nil {
		return nil, fmt.Errorf("browser failed startup test: %w", err)
	}

	l.logger.Debug().
		Dur("startup_time", time.Since(startTime)).
		Msg("Browser instance created and tested successfully")

	return newChromeBrowser(browserCtx, browserCancel, allocatorCancel, l.tabSetup(), l.config.PageLoadTimeoutDuration(), l.logger), nil
}

// tabSetup returns the actions run on every new tab before first use.
func (l *ChromeLauncher) tabSetup() chromedp.Action {
	disableJS := l.config.DisableJavaScript
	return chromedp.ActionFunc(func(ctx context.Context) error {
		if _, err := page.AddScriptToEvaluateOnNewDocument(stealthScript).Do(ctx); err != nil {
			return fmt.Errorf("install stealth script: %w", err)
		}
		if disableJS {
			if err := emulation.SetScriptExecutionDisabled(true).Do(ctx); err != nil {
				return fmt.Errorf("disable scripts: %w", err)
			}
		}
		return nil
	})
}

func (l *ChromeLauncher) allocatorOptions() []chromedp.ExecAllocatorOption {
	opts := append(
		chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", l.config.Headless),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("log-level", "3"),
		chromedp.Flag("enable-automation", false),
		chromedp.Flag("disable-blink-features", "AutomationControlled"),
		chromedp.Flag("disable-extensions", true),
		chromedp.Flag("disable-plugins", true),
		chromedp.Flag("blink-settings", "imagesEnabled=false"),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("disable-background-timer-throttling", true),
		chromedp.Flag("disable-backgrounding-occluded-windows", true),
		chromedp.Flag("disable-renderer-backgrounding", true),
		chromedp.Flag("disable-features", "TranslateUI"),
		chromedp.Flag("disable-ipc-flooding-protection", true),
	)

	if l.config.Headless {
		opts = append(opts,
			chromedp.Flag("disable-gpu", true),
			chromedp.WindowSize(1920, 1080),
		)
	} else {
		opts = append(opts, chromedp.Flag("start-maximized", true))
	}

	if dir := l.userDataDir(); dir != "" {
		opts = append(opts, chromedp.UserDataDir(dir))
	}
	if l.config.ExecPath != "" {
		opts = append(opts, chromedp.ExecPath(l.config.ExecPath))
	}
	if l.config.UserAgent != "" {
		opts = append(opts, chromedp.UserAgent(l.config.UserAgent))
	}
	return opts
}

// userDataDir resolves and creates the persistent profile directory. An
// unusable directory falls back to a throwaway profile.
func (l *ChromeLauncher) userDataDir() string {
	if l.config.UserDataDir == "" {
		return ""
	}
	dir, err := filepath.Abs(l.config.UserDataDir)
	if err != nil {
		dir = l.config.UserDataDir
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		l.logger.Error().Err(err).Str("path", dir).Msg("Failed to create chrome directory")
		return ""
	}
	return dir
}
