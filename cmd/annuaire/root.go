package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/annuaire/internal/app"
	"github.com/ternarybob/annuaire/internal/common"
)

const defaultConfigFile = "annuaire.toml"

var (
	configFiles  []string
	envFile      string
	keyword      string
	location     string
	headless     bool
	disableJS    bool
	profileRetry int
	maxPages     int
	schedule     string
)

var rootCmd = &cobra.Command{
	Use:   "annuaire",
	Short: "Scrape health professional profiles from annuaire.sante.fr",
	Long: `Searches the public health professional directory for a keyword and
location, visits every profile, enriches it with company registry data and
writes CSV, JSON Lines and JSON outputs. Already scraped RPPS numbers are
remembered so interrupted runs resume where they stopped.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          runScrape,
}

func init() {
	flags := rootCmd.Flags()
	flags.StringArrayVar(&configFiles, "config", nil, "Configuration file path (repeatable, later files override earlier ones)")
	flags.StringVar(&envFile, "env-file", ".env", "Environment file loaded before configuration")
	flags.StringVarP(&keyword, "keyword", "k", "", "Search keyword (profession)")
	flags.StringVarP(&location, "location", "l", "", "Search location / city")
	flags.BoolVar(&headless, "headless", false, "Run the browser in headless mode")
	flags.BoolVar(&disableJS, "disable-js", false, "Disable page scripts in the browser")
	flags.IntVar(&profileRetry, "profile-retry", 0, "Attempts per profile before counting it failed")
	flags.IntVar(&maxPages, "max-pages", 0, "Stop after this many result pages (0 = unlimited)")
	flags.StringVar(&schedule, "schedule", "", "Cron expression for recurring runs")

	rootCmd.AddCommand(versionCmd)
}

// configError marks failures that happen before a scrape starts.
type configError struct {
	err error
}

func (e *configError) Error() string { return e.err.Error() }
func (e *configError) Unwrap() error { return e.err }

func execute(ctx context.Context) int {
	return exitCode(rootCmd.ExecuteContext(ctx))
}

// exitCode maps the command result to the process status: 1 only when the
// command could not start a scrape, 0 otherwise.
func exitCode(err error) int {
	if err == nil {
		return 0
	}
	var cfgErr *configError
	if errors.As(err, &cfgErr) {
		fmt.Fprintf(os.Stderr, "Configuration error: %v\n", err)
	} else {
		fmt.Fprintln(os.Stderr, err)
	}
	return 1
}

func runScrape(cmd *cobra.Command, args []string) error {
	// Startup sequence (REQUIRED ORDER):
	// 1. Load .env (does not override the process environment)
	// 2. Load config (defaults -> file1 -> file2 -> ... -> env)
	// 3. Apply CLI overrides (highest priority)
	// 4. Initialize logger
	// 5. Print banner
	bootLogger := common.NewConsoleLogger()

	if _, err := common.LoadEnvFile(envFile, bootLogger); err != nil {
		bootLogger.Warn().Err(err).Str("file", envFile).Msg("Failed to load .env file")
	}

	if len(configFiles) == 0 {
		if _, err := os.Stat(defaultConfigFile); err == nil {
			configFiles = append(configFiles, defaultConfigFile)
		}
	}

	config, err := common.LoadFromFiles(configFiles...)
	if err != nil {
		return &configError{err: err}
	}

	common.ApplyFlagOverrides(config, flagOverrides(cmd))
	if err := config.Validate(); err != nil {
		return &configError{err: err}
	}

	logger := common.InitLogger(config)
	common.SetCrashDir(config.Logging.Dir)
	common.PrintBanner(config, logger)

	logger.Debug().
		Strs("config_files", configFiles).
		Str("log_level", config.Logging.Level).
		Strs("log_output", config.Logging.Output).
		Msg("Resolved configuration (sanitized)")

	application, err := app.New(config, logger)
	if err != nil {
		return &configError{err: err}
	}
	defer application.Close()

	return runApp(cmd.Context(), application, logger)
}

// runApp runs the scrape. A run that ends on a fatal condition has already
// torn down its session and rebuilt the aggregate, so it is logged and the
// process still exits with the success status like a completed run.
func runApp(ctx context.Context, application *app.App, logger arbor.ILogger) error {
	if err := application.Run(ctx); err != nil {
		logger.Error().Err(err).Msg("Scrape ended on a fatal error, partial results preserved")
		return nil
	}
	if ctx.Err() != nil {
		logger.Info().Msg("Interrupt signal received, stopped cleanly")
	}
	return nil
}

// flagOverrides collects only the flags given on the command line.
func flagOverrides(cmd *cobra.Command) common.FlagOverrides {
	flags := cmd.Flags()
	var overrides common.FlagOverrides
	if flags.Changed("keyword") {
		overrides.Keyword = &keyword
	}
	if flags.Changed("location") {
		overrides.Location = &location
	}
	if flags.Changed("headless") {
		overrides.Headless = &headless
	}
	if flags.Changed("disable-js") {
		overrides.DisableJS = &disableJS
	}
	if flags.Changed("profile-retry") {
		overrides.ProfileRetry = &profileRetry
	}
	if flags.Changed("max-pages") {
		overrides.MaxPages = &maxPages
	}
	if flags.Changed("schedule") {
		overrides.Schedule = &schedule
	}
	return overrides
}
