package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// JobStatus is the remote processing stage reported by the status endpoint.
type JobStatus string

const (
	JobStatusStarting     JobStatus = ""
	JobStatusQueued       JobStatus = "queued"
	JobStatusTranscribing JobStatus = "transcribing"
	JobStatusMapping      JobStatus = "mapping"
	JobStatusDone         JobStatus = "done"
	JobStatusTimeout      JobStatus = "timeout"
	JobStatusError        JobStatus = "error"
)

// Submission is the user-entered form payload sent to the submit webhook.
type Submission struct {
	VideoURL    string `json:"driveVideoUrl"`
	EpisodeName string `json:"episodeName"`
}

// PollResult is one snapshot returned by the status endpoint.
type PollResult struct {
	ID            FlexibleID `json:"id,omitempty"`
	Status        JobStatus  `json:"status,omitempty"`
	Error         bool       `json:"error,omitempty"`
	TranscriptURL string     `json:"resultTranscriptUrl,omitempty"`
	MappingURL    string     `json:"resultMappingUrl,omitempty"`
}

// Job stores the active job identity, last known status and result links.
type Job struct {
	ID            string    `json:"id"`
	Status        JobStatus `json:"status"`
	TranscriptURL string    `json:"transcriptUrl,omitempty"`
	MappingURL    string    `json:"mappingUrl,omitempty"`
	StartedAt     time.Time `json:"startedAt"`
}

// FlexibleID accepts identifiers encoded either as JSON strings or numbers.
type FlexibleID string

// UnmarshalJSON decodes string, number and null identifiers.
func (id *FlexibleID) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		*id = ""
		return nil
	}

	if trimmed[0] == '"' {
		var s string
		if err := json.Unmarshal(trimmed, &s); err != nil {
			return err
		}
		*id = FlexibleID(strings.TrimSpace(s))
		return nil
	}

	var n json.Number
	dec := json.NewDecoder(bytes.NewReader(trimmed))
	dec.UseNumber()
	if err := dec.Decode(&n); err != nil {
		return fmt.Errorf("id must be a string or number: %w", err)
	}
	*id = FlexibleID(n.String())
	return nil
}

// String returns the identifier text.
func (id FlexibleID) String() string { return string(id) }
