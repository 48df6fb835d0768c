package resume

import (
	"bufio"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/annuaire/internal/common"
)

// LoadDone reads the set of completed identifiers from path, one per line.
// Blank lines are ignored and surrounding whitespace trimmed. A missing file
// yields an empty set; any other read failure is returned.
func LoadDone(path string) (map[string]struct{}, error) {
	done := make(map[string]struct{})

	file, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return done, nil
		}
		return nil, fmt.Errorf("failed to open resume file %s: %w", path, err)
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		id := strings.TrimSpace(scanner.Text())
		if id == "" {
			continue
		}
		done[id] = struct{}{}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read resume file %s: %w", path, err)
	}
	return done, nil
}

// AppendDone appends id and a newline to path and syncs the file before
// returning, so a crash loses at most the profile in flight.
func AppendDone(path, id string) error {
	file, err := common.OpenAppend(path)
	if err != nil {
		return fmt.Errorf("failed to open resume file %s: %w", path, err)
	}

	if _, err := file.WriteString(id + "\n"); err != nil {
		file.Close()
		return fmt.Errorf("failed to append to resume file %s: %w", path, err)
	}
	if err := file.Sync(); err != nil {
		file.Close()
		return fmt.Errorf("failed to sync resume file %s: %w", path, err)
	}
	return file.Close()
}

// Store is the resume set of one run: the on-disk file is the durable
// source, the in-memory set is the fast path within the run.
type Store struct {
	path   string
	done   map[string]struct{}
	logger arbor.ILogger
}

// NewStore creates an empty store bound to path. Call Load before use.
func NewStore(path string, logger arbor.ILogger) *Store {
	return &Store{
		path:   path,
		done:   make(map[string]struct{}),
		logger: logger,
	}
}

// Load replaces the in-memory set with the contents of the resume file.
func (s *Store) Load() error {
	done, err := LoadDone(s.path)
	if err != nil {
		return err
	}
	s.done = done
	s.logger.Info().
		Str("path", s.path).
		Int("identifiers", len(done)).
		Msg("Loaded resume set")
	return nil
}

// Path returns the resume file path.
func (s *Store) Path() string {
	return s.path
}

// Len returns the number of identifiers known to be done.
func (s *Store) Len() int {
	return len(s.done)
}

// Contains reports whether id has already been persisted.
func (s *Store) Contains(id string) bool {
	if id == "" {
		return false
	}
	_, ok := s.done[id]
	return ok
}

// MatchesAny reports whether text embeds any identifier that is already
// done, such as a profile URL or a result link label carrying the RPPS
// number.
func (s *Store) MatchesAny(text string) bool {
	if text == "" {
		return false
	}
	for id := range s.done {
		if strings.Contains(text, id) {
			return true
		}
	}
	return false
}

// MarkDone appends id to the resume file and adds it to the set. A failed
// append is logged and swallowed; the id then stays out of the set and the
// profile may be visited again on restart.
func (s *Store) MarkDone(id string) {
	if err := AppendDone(s.path, id); err != nil {
		s.logger.Error().Err(err).Str("rpps", id).Msg("Failed to record identifier in resume file")
		return
	}
	s.done[id] = struct{}{}
}
