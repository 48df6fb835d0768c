package common

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/arbor/models"
)

const (
	logFileName    = "annuaire.log"
	logTimeFormat  = "15:04:05"
	logMaxSize     = 50 * 1024 * 1024
	logMaxBackups  = 5
	defaultLogsDir = "logs"
)

func consoleWriter() models.WriterConfiguration {
	return models.WriterConfiguration{
		Type:       models.LogWriterTypeConsole,
		TimeFormat: logTimeFormat,
	}
}

func fileWriter(dir string) models.WriterConfiguration {
	return models.WriterConfiguration{
		Type:       models.LogWriterTypeFile,
		FileName:   filepath.Join(dir, logFileName),
		TimeFormat: logTimeFormat,
		MaxSize:    logMaxSize,
		MaxBackups: logMaxBackups,
	}
}

// NewConsoleLogger returns a console-only logger used until the
// configuration has been loaded.
func NewConsoleLogger() arbor.ILogger {
	return arbor.NewLogger().WithConsoleWriter(consoleWriter())
}

// InitLogger builds the run logger from the [logging] section. Outputs are
// "console" (alias "stdout") and "file"; the file lives at <dir>/annuaire.log.
// A logs directory that cannot be created downgrades to console output.
func InitLogger(config *Config) arbor.ILogger {
	var toFile, toConsole bool
	for _, out := range config.Logging.Output {
		switch strings.ToLower(strings.TrimSpace(out)) {
		case "file":
			toFile = true
		case "console", "stdout":
			toConsole = true
		}
	}

	logger := arbor.NewLogger()

	if toFile {
		dir := config.Logging.Dir
		if dir == "" {
			dir = defaultLogsDir
		}
		if err := os.MkdirAll(dir, 0755); err != nil {
			fmt.Fprintf(os.Stderr, "logging: cannot create %s, file output disabled: %v\n", dir, err)
			toConsole = true
		} else {
			logger = logger.WithFileWriter(fileWriter(dir))
		}
	}
	if toConsole {
		logger = logger.WithConsoleWriter(consoleWriter())
	}

	return logger.WithLevelFromString(config.Logging.Level)
}
