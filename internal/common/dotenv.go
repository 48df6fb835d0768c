package common

import (
	"bufio"
	"errors"
	"io/fs"
	"os"
	"strings"

	"github.com/ternarybob/arbor"
)

// LoadEnvFile loads variables from a .env file into the process environment.
// Variables already present in the environment are left untouched.
// Format supported:
//   - KEY=value
//   - KEY="value" or KEY='value' (quotes stripped)
//   - export KEY=value
//   - # comments (lines starting with #)
//   - Empty lines are ignored
//
// A missing file is not an error. Returns the number of variables set.
func LoadEnvFile(filePath string, logger arbor.ILogger) (int, error) {
	file, err := os.Open(filePath)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			logger.Debug().Str("file", filePath).Msg(".env file does not exist, skipping")
			return 0, nil
		}
		return 0, err
	}
	defer file.Close()

	loadedCount := 0
	lineNum := 0

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		lineNum++
		line := strings.TrimSpace(scanner.Text())

		// Skip empty lines and comments
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		line = strings.TrimPrefix(line, "export ")

		key, value, found := strings.Cut(line, "=")
		if !found {
			logger.Warn().
				Str("file", filePath).
				Int("line", lineNum).
				Msg("Invalid line format, expected KEY=value")
			continue
		}

		key = strings.TrimSpace(key)
		value = strings.TrimSpace(value)
		if key == "" {
			continue
		}

		// Strip surrounding quotes from value
		if len(value) >= 2 {
			if (value[0] == '"' && value[len(value)-1] == '"') ||
				(value[0] == '\'' && value[len(value)-1] == '\'') {
				value = value[1 : len(value)-1]
			}
		}

		if _, exists := os.LookupEnv(key); exists {
			continue
		}
		if err := os.Setenv(key, value); err != nil {
			logger.Warn().Err(err).Str("key", key).Msg("Failed to set environment variable")
			continue
		}
		loadedCount++
	}

	if err := scanner.Err(); err != nil {
		return loadedCount, err
	}

	logger.Debug().
		Str("file", filePath).
		Int("loaded", loadedCount).
		Msg("Loaded variables from .env file")

	return loadedCount, nil
}
