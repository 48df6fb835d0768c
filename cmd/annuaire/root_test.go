package main

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/annuaire/internal/app"
	"github.com/ternarybob/annuaire/internal/common"
	"github.com/ternarybob/annuaire/internal/interfaces"
	"github.com/ternarybob/annuaire/internal/services/scraper"
)

type unavailableLauncher struct{}

func (unavailableLauncher) Launch(ctx context.Context) (interfaces.Browser, error) {
	return nil, errors.New("chrome not found")
}

func TestExitCode(t *testing.T) {
	assert.Equal(t, 0, exitCode(nil))
	assert.Equal(t, 1, exitCode(&configError{err: errors.New("keyword is required")}))
	assert.Equal(t, 1, exitCode(errors.New("unknown flag: --bogus")))
}

func TestRunApp_FatalRunExitsWithSuccess(t *testing.T) {
	dir := t.TempDir()
	config := common.NewDefaultConfig()
	config.Storage.OutputDir = filepath.Join(dir, "scraped_data")
	config.Storage.DoneDir = filepath.Join(dir, "done")

	logger := arbor.NewLogger()
	application, err := app.New(config, logger)
	require.NoError(t, err)
	defer application.Close()
	application.Orchestrator = scraper.NewOrchestrator(config, unavailableLauncher{}, application.Enricher, logger)

	err = runApp(context.Background(), application, logger)

	assert.NoError(t, err)
	assert.Equal(t, 0, exitCode(err))
}
