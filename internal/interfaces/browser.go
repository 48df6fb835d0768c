package interfaces

import (
	"context"
	"time"

	"github.com/ternarybob/annuaire/internal/models"
)

// Link is an anchor found on the current page.
type Link struct {
	Href string
	Text string
}

// Browser drives one interactive browser session. Every method is tolerant:
// driver failures are logged by the implementation and surface as false, ""
// or nil so the scraping core never deals with driver errors directly.
// Locators starting with "/" are XPath expressions, everything else is CSS.
type Browser interface {
	// Navigate loads url in the focused tab and waits for the document to be
	// ready, retrying internally.
	Navigate(ctx context.Context, url string) bool

	// FindLinks returns the anchors matching locator. Href is absolute.
	FindLinks(ctx context.Context, locator string) []Link

	// ClickViaScript scrolls the element into view and clicks it from script.
	ClickViaScript(ctx context.Context, locator string) bool

	TypeText(ctx context.Context, locator, text string) bool

	// ReadText returns the trimmed visible text of the first match, or "" if
	// nothing matched within timeout.
	ReadText(ctx context.Context, locator string, timeout time.Duration) string

	ElementExists(ctx context.Context, locator string, timeout time.Duration) bool

	// WaitWhileVisible returns as soon as the element is absent or hidden, or
	// when timeout elapses.
	WaitWhileVisible(ctx context.Context, locator string, timeout time.Duration)

	// OpenTab opens a blank tab and focuses it.
	OpenTab(ctx context.Context) bool

	// CloseTab closes the focused tab if it is not the main one.
	CloseTab()

	// SwitchToMain focuses the first tab of the session.
	SwitchToMain() bool

	// WindowCount returns the number of open page targets.
	WindowCount(ctx context.Context) int

	Quit()
}

// BrowserLauncher starts browser sessions.
type BrowserLauncher interface {
	Launch(ctx context.Context) (Browser, error)
}

// CompanyEnricher resolves company registry data for a professional.
type CompanyEnricher interface {
	FetchCompanyData(ctx context.Context, name, siren string) models.CompanyEnrichment
}
