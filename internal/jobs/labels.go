package jobs

import (
	"fmt"
	"time"

	"episode-mapper/internal/domain"
)

// StepTitles are the progress indicator steps shown while polling.
var StepTitles = []string{"Queued", "Transcribing", "Mapping"}

// StatusLabel maps a remote status to display text. Unknown and absent
// statuses read as "Starting".
func StatusLabel(status domain.JobStatus) string {
	switch status {
	case domain.JobStatusQueued:
		return "Queued, waiting to start"
	case domain.JobStatusTranscribing:
		return "Transcribing audio"
	case domain.JobStatusMapping:
		return "Generating mapping"
	case domain.JobStatusDone:
		return "Completed"
	case domain.JobStatusTimeout:
		return "Timed out"
	default:
		return "Starting"
	}
}

// StepIndex maps a remote status to the progress indicator position.
func StepIndex(status domain.JobStatus) int {
	switch status {
	case domain.JobStatusQueued:
		return 0
	case domain.JobStatusTranscribing:
		return 1
	case domain.JobStatusMapping:
		return 2
	case domain.JobStatusDone:
		return 3
	default:
		return 0
	}
}

// FormatElapsed renders d as minutes:seconds with two-digit seconds.
func FormatElapsed(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	total := int64(d / time.Second)
	return fmt.Sprintf("%d:%02d", total/60, total%60)
}

func formatTimeout(d time.Duration) string {
	if d >= time.Minute && d%time.Minute == 0 {
		minutes := int64(d / time.Minute)
		if minutes == 1 {
			return "1 minute"
		}
		return fmt.Sprintf("%d minutes", minutes)
	}
	return d.String()
}
