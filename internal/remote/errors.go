package remote

import (
	"errors"
	"fmt"
)

// ConfigError reports a required endpoint that is not configured. It is
// fatal to the attempted operation and never retried.
type ConfigError struct {
	Setting string `json:"setting"`
	Message string `json:"message"`
}

func (e *ConfigError) Error() string {
	if e == nil {
		return ""
	}
	return e.Message
}

// SubmissionError reports a submit call that failed or returned no usable
// job id. The form stays editable.
type SubmissionError struct {
	StatusCode int    `json:"statusCode,omitempty"`
	Message    string `json:"message"`
	Err        error  `json:"-"`
}

func (e *SubmissionError) Error() string {
	if e == nil {
		return ""
	}
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s (HTTP %d)", e.Message, e.StatusCode)
	}
	return e.Message
}

// Unwrap exposes underlying error for errors.Is / errors.As.
func (e *SubmissionError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// TransientPollError is a network or remote hiccup during polling. Polling
// continues after it.
type TransientPollError struct {
	StatusCode int    `json:"statusCode,omitempty"`
	Message    string `json:"message"`
	Err        error  `json:"-"`
}

func (e *TransientPollError) Error() string {
	if e == nil {
		return ""
	}
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s (HTTP %d)", e.Message, e.StatusCode)
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap exposes underlying error for errors.Is / errors.As.
func (e *TransientPollError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// UserMessage returns the text to show in a notification for err, preferring
// a server-provided message when one was returned.
func UserMessage(err error, fallback string) string {
	var cfgErr *ConfigError
	if errors.As(err, &cfgErr) && cfgErr.Message != "" {
		return cfgErr.Message
	}
	var subErr *SubmissionError
	if errors.As(err, &subErr) && subErr.Message != "" {
		return subErr.Message
	}
	var pollErr *TransientPollError
	if errors.As(err, &pollErr) && pollErr.Message != "" {
		return pollErr.Message
	}
	if err != nil && err.Error() != "" {
		return err.Error()
	}
	return fallback
}
