package output

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"sync"

	"github.com/ternarybob/annuaire/internal/common"
	"github.com/ternarybob/annuaire/internal/models"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// CSVWriter appends profile rows to CSV files, writing the BOM and header
// once when it creates a file.
type CSVWriter struct {
	mu            sync.Mutex
	headerWritten map[string]bool
}

func NewCSVWriter() *CSVWriter {
	return &CSVWriter{headerWritten: make(map[string]bool)}
}

// WriteRow appends profile to path. Lines end with "\n" on every platform.
func (w *CSVWriter) WriteRow(path string, profile models.ScrapedProfile) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	create := false
	if !w.headerWritten[path] {
		if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
			create = true
		}
	}

	var buf bytes.Buffer
	if create {
		buf.Write(utf8BOM)
	}
	cw := csv.NewWriter(&buf)
	if create {
		if err := cw.Write(models.ProfileCSVHeader()); err != nil {
			return fmt.Errorf("failed to encode header: %w", err)
		}
	}
	if err := cw.Write(profile.CSVRow()); err != nil {
		return fmt.Errorf("failed to encode row: %w", err)
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("failed to encode row: %w", err)
	}

	var file *os.File
	var err error
	if create {
		file, err = os.OpenFile(path, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0644)
	} else {
		file, err = common.OpenAppend(path)
	}
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer file.Close()

	if _, err := file.Write(buf.Bytes()); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	if create {
		w.headerWritten[path] = true
	}
	return nil
}
