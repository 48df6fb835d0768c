package output

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/ternarybob/annuaire/internal/models"
	"github.com/ternarybob/arbor"
)

// RunPaths are the files of one (keyword, location) run.
type RunPaths struct {
	CSV    string
	JSONL  string
	Pretty string
	Done   string
}

// NewRunPaths derives the run files: {k}_{l}.csv/.jsonl/.json under
// outputDir and {k}_{l}.txt under doneDir. Path separators in keyword and
// location are replaced so every file stays directly inside its directory.
func NewRunPaths(outputDir, doneDir, keyword, location string) RunPaths {
	base := fmt.Sprintf("%s_%s", fileNamePart(keyword), fileNamePart(location))
	return RunPaths{
		CSV:    filepath.Join(outputDir, base+".csv"),
		JSONL:  filepath.Join(outputDir, base+".jsonl"),
		Pretty: filepath.Join(outputDir, base+".json"),
		Done:   filepath.Join(doneDir, base+".txt"),
	}
}

var fileNameReplacer = strings.NewReplacer("/", "-", "\\", "-", "\x00", "")

func fileNamePart(s string) string {
	return fileNameReplacer.Replace(strings.TrimSpace(s))
}

// EnsureDirs creates the output and done directories.
func (p RunPaths) EnsureDirs() error {
	for _, dir := range []string{filepath.Dir(p.CSV), filepath.Dir(p.Done)} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}
	return nil
}

// Writer persists profiles of one run. Write failures are logged and do not
// stop the run.
type Writer struct {
	paths  RunPaths
	csv    *CSVWriter
	logger arbor.ILogger
	now    func() time.Time
}

func NewWriter(paths RunPaths, logger arbor.ILogger) *Writer {
	return &Writer{
		paths:  paths,
		csv:    NewCSVWriter(),
		logger: logger,
		now:    time.Now,
	}
}

func (w *Writer) Paths() RunPaths {
	return w.paths
}

// Persist writes the CSV row then the structured JSONL record.
func (w *Writer) Persist(profile models.ScrapedProfile) {
	if err := w.csv.WriteRow(w.paths.CSV, profile); err != nil {
		w.logger.Error().Err(err).Str("rpps", profile.RPPSNumber).Msg("Failed writing CSV row")
	}
	record := BuildStructuredRecord(profile, w.now())
	if err := AppendJSONLine(w.paths.JSONL, record); err != nil {
		w.logger.Error().Err(err).Str("rpps", profile.RPPSNumber).Msg("Failed to append JSON record")
	}
}

// Finalize rebuilds the pretty JSON document from the JSONL store.
func (w *Writer) Finalize() int {
	count, err := FinalizeAggregate(w.paths.JSONL, w.paths.Pretty, w.logger)
	if err != nil {
		w.logger.Error().Err(err).Msg("Failed to produce pretty JSON")
	}
	return count
}
