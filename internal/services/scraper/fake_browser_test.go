package scraper

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/ternarybob/annuaire/internal/interfaces"
	"github.com/ternarybob/annuaire/internal/models"
)

const rootURL = "https://annuaire.sante.fr/"

// fakeBrowser plays back a scripted directory: a list of result pages on the
// main tab and a set of profile pages reachable from the side tab.
type fakeBrowser struct {
	mu sync.Mutex

	resultPages [][]interfaces.Link
	profiles    map[string]map[string]string
	noData      map[string]bool

	failRoot     bool
	failNavigate map[string]int
	panicOn      string
	openTabFails bool
	lostWindows  bool

	// onProfile is called after every profile navigation.
	onProfile func(href string)
	// onRead is called after every ReadText with the locator read.
	onRead func(locator string)

	page        int
	onTab       bool
	current     string
	typed       map[string]string
	navigations map[string]int
	quit        bool
}

func newFakeBrowser(resultPages ...[]interfaces.Link) *fakeBrowser {
	return &fakeBrowser{
		resultPages:  resultPages,
		profiles:     make(map[string]map[string]string),
		noData:       make(map[string]bool),
		failNavigate: make(map[string]int),
		typed:        make(map[string]string),
		navigations:  make(map[string]int),
	}
}

func (b *fakeBrowser) Navigate(ctx context.Context, url string) bool {
	b.mu.Lock()
	b.navigations[url]++
	if url == rootURL && b.failRoot {
		b.mu.Unlock()
		return false
	}
	if b.failNavigate[url] > 0 {
		b.failNavigate[url]--
		b.mu.Unlock()
		return false
	}
	b.current = url
	onProfile := b.onProfile
	b.mu.Unlock()

	if url == b.panicOn {
		panic("renderer crashed")
	}
	if onProfile != nil && url != rootURL {
		onProfile(url)
	}
	return true
}

func (b *fakeBrowser) FindLinks(ctx context.Context, locator string) []interfaces.Link {
	b.mu.Lock()
	defer b.mu.Unlock()
	if locator != ResultLinksLocator || b.onTab || b.page >= len(b.resultPages) {
		return nil
	}
	return b.resultPages[b.page]
}

func (b *fakeBrowser) ClickViaScript(ctx context.Context, locator string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	if locator == NextPageLocator {
		b.page++
	}
	return true
}

func (b *fakeBrowser) TypeText(ctx context.Context, locator, text string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.typed[locator] = text
	return true
}

// ReadText behaves like the Chrome adapter: nothing is read once ctx is done.
func (b *fakeBrowser) ReadText(ctx context.Context, locator string, timeout time.Duration) string {
	if ctx.Err() != nil {
		return ""
	}
	b.mu.Lock()
	text := b.profiles[b.current][locator]
	onRead := b.onRead
	b.mu.Unlock()

	if onRead != nil {
		onRead(locator)
	}
	return text
}

func (b *fakeBrowser) ElementExists(ctx context.Context, locator string, timeout time.Duration) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	switch locator {
	case NoDataLocator:
		return b.noData[b.current]
	case NextPageLocator:
		return !b.onTab && b.page < len(b.resultPages)-1
	}
	return false
}

func (b *fakeBrowser) WaitWhileVisible(ctx context.Context, locator string, timeout time.Duration) {}

func (b *fakeBrowser) OpenTab(ctx context.Context) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.openTabFails {
		return false
	}
	b.onTab = true
	return true
}

func (b *fakeBrowser) CloseTab() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.onTab = false
}

func (b *fakeBrowser) SwitchToMain() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return !b.lostWindows
}

func (b *fakeBrowser) WindowCount(ctx context.Context) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.lostWindows {
		return 0
	}
	return 1
}

func (b *fakeBrowser) Quit() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.quit = true
}

func (b *fakeBrowser) navigationsTo(url string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.navigations[url]
}

// addProfile registers a complete profile page at href.
func (b *fakeBrowser) addProfile(href, name, rpps string) {
	b.profiles[href] = map[string]string{
		NameLocator:             name,
		RPPSLocator:             "N° RPPS : " + rpps,
		PhoneLocator:            "05 56 00 00 00",
		FinessLocator:           "330000000",
		SirenLocator:            "123 456 789",
		AddressLocator:          "12 Rue Sainte-Catherine",
		SecondaryAddressLocator: "12 RUE SAINTE CATHERINE 33000 BORDEAUX CEDEX",
		RegionLocator:           "Nouvelle-Aquitaine",
		SpecialtyLocator:        "Médecin généraliste",
	}
}

type fakeLauncher struct {
	browser interfaces.Browser
	err     error
	calls   int
}

func (l *fakeLauncher) Launch(ctx context.Context) (interfaces.Browser, error) {
	l.calls++
	if l.err != nil {
		return nil, l.err
	}
	return l.browser, nil
}

var errLaunch = errors.New("chrome not found")

type mockEnricher struct {
	mock.Mock
}

func (m *mockEnricher) FetchCompanyData(ctx context.Context, name, siren string) models.CompanyEnrichment {
	args := m.Called(ctx, name, siren)
	return args.Get(0).(models.CompanyEnrichment)
}

// emptyEnricher returns a mock that answers every lookup with an empty bag.
func emptyEnricher() *mockEnricher {
	m := &mockEnricher{}
	m.On("FetchCompanyData", mock.Anything, mock.Anything, mock.Anything).Return(models.CompanyEnrichment{})
	return m
}
