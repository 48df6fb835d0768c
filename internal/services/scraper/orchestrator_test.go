package scraper

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/annuaire/internal/common"
	"github.com/ternarybob/annuaire/internal/interfaces"
	"github.com/ternarybob/annuaire/internal/services/output"
)

const (
	profileA = "https://annuaire.sante.fr/detail?id=A"
	profileB = "https://annuaire.sante.fr/detail?id=B"
	profileC = "https://annuaire.sante.fr/detail?id=C"
)

func testConfig(t *testing.T) *common.Config {
	t.Helper()
	dir := t.TempDir()
	config := common.NewDefaultConfig()
	config.Scraper.BaseURL = rootURL
	config.Scraper.RetryDelay = "1ms"
	config.Storage.OutputDir = filepath.Join(dir, "scraped_data")
	config.Storage.DoneDir = filepath.Join(dir, "done")
	return config
}

func runPaths(config *common.Config) output.RunPaths {
	return output.NewRunPaths(config.Storage.OutputDir, config.Storage.DoneDir, config.Scraper.Keyword, config.Scraper.Location)
}

func twoPageDirectory() *fakeBrowser {
	browser := newFakeBrowser(
		[]interfaces.Link{{Href: profileA, Text: "DUPONT Jean"}, {Href: profileB, Text: "MARTIN Anne"}},
		[]interfaces.Link{{Href: profileC, Text: "DURAND Paul"}},
	)
	browser.addProfile(profileA, "DUPONT Jean", "10000000001")
	browser.addProfile(profileB, "MARTIN Anne", "10000000002")
	browser.addProfile(profileC, "DURAND Paul", "10000000003")
	return browser
}

func prettyRecords(t *testing.T, path string) []map[string]interface{} {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	var records []map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &records))
	return records
}

func TestRun_WalksAllPages(t *testing.T) {
	config := testConfig(t)
	browser := twoPageDirectory()
	orchestrator := NewOrchestrator(config, &fakeLauncher{browser: browser}, emptyEnricher(), arbor.NewLogger())

	stats, err := orchestrator.Run(context.Background())

	require.NoError(t, err)
	assert.Equal(t, 3, stats.Processed)
	assert.Zero(t, stats.Skipped)
	assert.Zero(t, stats.Failed)
	assert.Equal(t, 2, stats.Pages)
	assert.NotEmpty(t, stats.RunID)
	assert.False(t, stats.FinishedAt.IsZero())

	assert.True(t, browser.quit)
	assert.Equal(t, "Médecin", browser.typed[SearchKeywordLocator])
	assert.Equal(t, "bordeaux", browser.typed[SearchLocationLocator])
	assert.Len(t, prettyRecords(t, runPaths(config).Pretty), 3)
}

func TestRun_ResumesFromDoneFile(t *testing.T) {
	config := testConfig(t)
	paths := runPaths(config)
	require.NoError(t, paths.EnsureDirs())
	require.NoError(t, os.WriteFile(paths.Done, []byte("10000000001\n10000000003\n"), 0644))

	browser := twoPageDirectory()
	// Only C carries its RPPS in the link; A is detected after loading the page.
	browser.resultPages[1][0].Href = profileC + "&rpps=10000000003"
	browser.profiles[profileC+"&rpps=10000000003"] = browser.profiles[profileC]

	orchestrator := NewOrchestrator(config, &fakeLauncher{browser: browser}, emptyEnricher(), arbor.NewLogger())

	stats, err := orchestrator.Run(context.Background())

	require.NoError(t, err)
	assert.Equal(t, 1, stats.Processed)
	assert.Equal(t, 2, stats.Skipped)
	assert.Equal(t, 1, browser.navigationsTo(profileA))
	assert.Zero(t, browser.navigationsTo(profileC+"&rpps=10000000003"))
}

func TestRun_RetriesFailedProfiles(t *testing.T) {
	config := testConfig(t)
	config.Scraper.ProfileRetry = 2

	browser := twoPageDirectory()
	browser.failNavigate[profileA] = 1
	browser.failNavigate[profileB] = 5

	orchestrator := NewOrchestrator(config, &fakeLauncher{browser: browser}, emptyEnricher(), arbor.NewLogger())

	stats, err := orchestrator.Run(context.Background())

	require.NoError(t, err)
	assert.Equal(t, 2, stats.Processed)
	assert.Equal(t, 1, stats.Failed)
	assert.Equal(t, 2, browser.navigationsTo(profileA))
	assert.Equal(t, 2, browser.navigationsTo(profileB))
}

func TestRun_SkippedProfilesAreNotRetried(t *testing.T) {
	config := testConfig(t)
	config.Scraper.ProfileRetry = 3

	browser := twoPageDirectory()
	browser.noData[profileB] = true

	orchestrator := NewOrchestrator(config, &fakeLauncher{browser: browser}, emptyEnricher(), arbor.NewLogger())

	stats, err := orchestrator.Run(context.Background())

	require.NoError(t, err)
	assert.Equal(t, 2, stats.Processed)
	assert.Equal(t, 1, stats.Skipped)
	assert.Equal(t, 1, browser.navigationsTo(profileB))
}

func TestRun_SessionUnavailable(t *testing.T) {
	config := testConfig(t)
	launcher := &fakeLauncher{err: errLaunch}
	orchestrator := NewOrchestrator(config, launcher, emptyEnricher(), arbor.NewLogger())

	stats, err := orchestrator.Run(context.Background())

	assert.ErrorIs(t, err, ErrSessionUnavailable)
	assert.ErrorIs(t, err, errLaunch)
	assert.Zero(t, stats.Processed)
	assert.Equal(t, 1, launcher.calls)
}

func TestRun_InitialNavigationFailure(t *testing.T) {
	config := testConfig(t)
	browser := twoPageDirectory()
	browser.failRoot = true
	orchestrator := NewOrchestrator(config, &fakeLauncher{browser: browser}, emptyEnricher(), arbor.NewLogger())

	_, err := orchestrator.Run(context.Background())

	assert.ErrorIs(t, err, ErrInitialNavigation)
	assert.True(t, browser.quit)
	assert.NoFileExists(t, runPaths(config).Pretty)
}

func TestRun_ResumeLoadFailureAbortsBeforeBrowser(t *testing.T) {
	config := testConfig(t)
	paths := runPaths(config)
	// A directory where the resume file should be cannot be read.
	require.NoError(t, os.MkdirAll(paths.Done, 0755))

	launcher := &fakeLauncher{browser: twoPageDirectory()}
	orchestrator := NewOrchestrator(config, launcher, emptyEnricher(), arbor.NewLogger())

	_, err := orchestrator.Run(context.Background())

	assert.ErrorIs(t, err, ErrResumeLoad)
	assert.Zero(t, launcher.calls)
}

func TestRun_LostWindowsAbort(t *testing.T) {
	config := testConfig(t)
	browser := twoPageDirectory()
	browser.lostWindows = true
	orchestrator := NewOrchestrator(config, &fakeLauncher{browser: browser}, emptyEnricher(), arbor.NewLogger())

	stats, err := orchestrator.Run(context.Background())

	assert.ErrorIs(t, err, ErrNoWindows)
	assert.Equal(t, 2, stats.Processed)
	assert.Equal(t, 1, stats.Pages)
	assert.True(t, browser.quit)
	assert.Len(t, prettyRecords(t, runPaths(config).Pretty), 2)
}

func TestRun_InterruptStopsBetweenProfiles(t *testing.T) {
	config := testConfig(t)
	browser := twoPageDirectory()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	browser.onProfile = func(href string) {
		if href == profileB {
			cancel()
		}
	}

	orchestrator := NewOrchestrator(config, &fakeLauncher{browser: browser}, emptyEnricher(), arbor.NewLogger())

	stats, err := orchestrator.Run(ctx)

	require.NoError(t, err)
	assert.Equal(t, 1, stats.Processed)
	assert.Zero(t, stats.Failed)
	assert.Equal(t, 1, browser.navigationsTo(profileB))
	assert.Zero(t, browser.navigationsTo(profileC))
	assert.True(t, browser.quit)
	assert.Len(t, prettyRecords(t, runPaths(config).Pretty), 1)

	// The visit cut short is left for the next run.
	done, err := os.ReadFile(runPaths(config).Done)
	require.NoError(t, err)
	assert.Contains(t, string(done), "10000000001")
	assert.NotContains(t, string(done), "10000000002")
}

func TestRun_MaxPages(t *testing.T) {
	config := testConfig(t)
	config.Scraper.MaxPages = 1
	browser := twoPageDirectory()
	orchestrator := NewOrchestrator(config, &fakeLauncher{browser: browser}, emptyEnricher(), arbor.NewLogger())

	stats, err := orchestrator.Run(context.Background())

	require.NoError(t, err)
	assert.Equal(t, 1, stats.Pages)
	assert.Equal(t, 2, stats.Processed)
	assert.Zero(t, browser.navigationsTo(profileC))
}

func TestRun_EmptyResults(t *testing.T) {
	config := testConfig(t)
	browser := newFakeBrowser()
	orchestrator := NewOrchestrator(config, &fakeLauncher{browser: browser}, emptyEnricher(), arbor.NewLogger())

	stats, err := orchestrator.Run(context.Background())

	require.NoError(t, err)
	assert.Zero(t, stats.Pages)
	assert.True(t, browser.quit)
}
