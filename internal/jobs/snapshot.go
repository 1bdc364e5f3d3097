package jobs

import (
	"fmt"
	"time"

	"episode-mapper/internal/domain"
)

// Snapshot is the read-only view of the machine state handed to renderers.
type Snapshot struct {
	Phase        Phase             `json:"phase"`
	Generation   uint64            `json:"generation"`
	Submission   domain.Submission `json:"submission"`
	Job          domain.Job        `json:"job"`
	StatusLabel  string            `json:"statusLabel"`
	Step         int               `json:"step"`
	Elapsed      time.Duration     `json:"elapsed"`
	ElapsedLabel string            `json:"elapsedLabel"`
	ErrorMessage string            `json:"errorMessage,omitempty"`
	Asset        string            `json:"asset,omitempty"`
}

// Snapshot derives display fields from the state.
func (s State) Snapshot() Snapshot {
	return Snapshot{
		Phase:        s.Phase,
		Generation:   s.Generation,
		Submission:   s.Submission,
		Job:          s.Job,
		StatusLabel:  StatusLabel(s.Job.Status),
		Step:         StepIndex(s.Job.Status),
		Elapsed:      s.Elapsed,
		ElapsedLabel: FormatElapsed(s.Elapsed),
		ErrorMessage: s.ErrorMessage,
		Asset:        s.Asset,
	}
}

// HasJob reports whether a job id has been assigned.
func (s Snapshot) HasJob() bool { return s.Job.ID != "" }

// Err describes a terminal failure, wrapping ErrJobFailed or ErrJobTimeout.
// It is nil for every other phase.
func (s Snapshot) Err() error {
	switch s.Phase {
	case PhaseErrored:
		return fmt.Errorf("%w: %s", ErrJobFailed, s.ErrorMessage)
	case PhaseTimedOut:
		return fmt.Errorf("%w: %s", ErrJobTimeout, s.ErrorMessage)
	default:
		return nil
	}
}
