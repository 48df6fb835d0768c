package output

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/ternarybob/arbor"
)

const maxRecordLine = 4 * 1024 * 1024

// FinalizeAggregate rebuilds prettyPath as an indented JSON array of every
// well-formed record in jsonlPath. Blank lines are ignored and malformed ones
// skipped with a warning. A missing JSONL file leaves prettyPath untouched.
// Returns the number of records written.
func FinalizeAggregate(jsonlPath, prettyPath string, logger arbor.ILogger) (int, error) {
	file, err := os.Open(jsonlPath)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			logger.Info().Str("path", jsonlPath).Msg("JSONL file not found, skipping pretty JSON aggregation")
			return 0, nil
		}
		return 0, fmt.Errorf("failed to open %s: %w", jsonlPath, err)
	}
	defer file.Close()

	records := make([]json.RawMessage, 0)
	reader := bufio.NewReaderSize(file, 64*1024)
	for lineNum := 1; ; lineNum++ {
		raw, oversized, err := nextLine(reader)
		if err == io.EOF {
			break
		}
		if err != nil {
			return 0, fmt.Errorf("failed to read %s: %w", jsonlPath, err)
		}
		if oversized {
			logger.Warn().Str("path", jsonlPath).Int("line", lineNum).Int("limit", maxRecordLine).Msg("Skipping oversized JSONL line")
			continue
		}
		line := bytes.TrimSpace(raw)
		if len(line) == 0 {
			continue
		}
		if !json.Valid(line) {
			logger.Warn().Str("path", jsonlPath).Int("line", lineNum).Msg("Skipping malformed JSONL line")
			continue
		}
		records = append(records, json.RawMessage(line))
	}

	var buf bytes.Buffer
	encoder := json.NewEncoder(&buf)
	encoder.SetEscapeHTML(false)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(records); err != nil {
		return 0, fmt.Errorf("failed to encode aggregate: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(prettyPath), filepath.Base(prettyPath)+".*.tmp")
	if err != nil {
		return 0, fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpPath := tmp.Name()
	if _, err := tmp.Write(buf.Bytes()); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return 0, fmt.Errorf("failed to write aggregate: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return 0, fmt.Errorf("failed to write aggregate: %w", err)
	}
	if err := os.Rename(tmpPath, prettyPath); err != nil {
		os.Remove(tmpPath)
		return 0, fmt.Errorf("failed to replace %s: %w", prettyPath, err)
	}

	logger.Info().
		Str("path", prettyPath).
		Int("records", len(records)).
		Msg("Wrote aggregated pretty JSON")
	return len(records), nil
}

// nextLine returns the next line of r including its terminator. A line longer
// than maxRecordLine is consumed without being buffered and reported as
// oversized. io.EOF is returned only when no data is left.
func nextLine(r *bufio.Reader) (line []byte, oversized bool, err error) {
	for {
		chunk, err := r.ReadSlice('\n')
		if !oversized {
			if len(line)+len(chunk) > maxRecordLine {
				oversized = true
				line = nil
			} else {
				line = append(line, chunk...)
			}
		}
		switch {
		case errors.Is(err, bufio.ErrBufferFull):
			continue
		case errors.Is(err, io.EOF):
			if len(line) == 0 && !oversized {
				return nil, false, io.EOF
			}
			return line, oversized, nil
		case err != nil:
			return nil, false, err
		}
		return line, oversized, nil
	}
}
