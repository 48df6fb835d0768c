package models

import "time"

// RunStats holds the counters reported at the end of a scrape run.
type RunStats struct {
	RunID      string
	Processed  int
	Skipped    int
	Failed     int
	Pages      int
	StartedAt  time.Time
	FinishedAt time.Time
}

// Duration returns the wall time of the run, or zero while it is running.
func (s RunStats) Duration() time.Duration {
	if s.FinishedAt.IsZero() {
		return 0
	}
	return s.FinishedAt.Sub(s.StartedAt)
}

// ProfileOutcome is the terminal state of one profile visit.
type ProfileOutcome int

const (
	OutcomeFailed ProfileOutcome = iota
	OutcomeSkipped
	OutcomePersisted
)

func (o ProfileOutcome) String() string {
	switch o {
	case OutcomePersisted:
		return "persisted"
	case OutcomeSkipped:
		return "skipped"
	default:
		return "failed"
	}
}

// ProfileResult is returned by the profile processor. RPPSNumber is only set
// for OutcomePersisted.
type ProfileResult struct {
	Outcome    ProfileOutcome
	RPPSNumber string
	Reason     string
}
