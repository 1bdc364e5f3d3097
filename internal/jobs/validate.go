package jobs

import (
	"net/url"
	"sort"
	"strings"

	"episode-mapper/internal/domain"
)

const (
	FieldVideoURL    = "driveVideoUrl"
	FieldEpisodeName = "episodeName"
)

// ValidationError lists per-field problems with a submission form.
type ValidationError struct {
	Fields map[string]string `json:"fields"`
}

func (e *ValidationError) Error() string {
	if e == nil || len(e.Fields) == 0 {
		return "invalid submission"
	}
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	msgs := make([]string, 0, len(keys))
	for _, k := range keys {
		msgs = append(msgs, e.Fields[k])
	}
	return strings.Join(msgs, "; ")
}

// ValidateSubmission trims the form values and checks the video URL is a
// well-formed http(s) URL and the episode name is present.
func ValidateSubmission(sub domain.Submission) (domain.Submission, error) {
	sub.VideoURL = strings.TrimSpace(sub.VideoURL)
	sub.EpisodeName = strings.TrimSpace(sub.EpisodeName)

	fields := map[string]string{}
	switch {
	case sub.VideoURL == "":
		fields[FieldVideoURL] = "Drive video URL is required"
	case !isWellFormedURL(sub.VideoURL):
		fields[FieldVideoURL] = "Please enter a valid URL"
	}
	if sub.EpisodeName == "" {
		fields[FieldEpisodeName] = "Episode name is required"
	}

	if len(fields) > 0 {
		return sub, &ValidationError{Fields: fields}
	}
	return sub, nil
}

func isWellFormedURL(raw string) bool {
	if strings.ContainsAny(raw, " \t\r\n") {
		return false
	}
	parsed, err := url.Parse(raw)
	if err != nil {
		return false
	}
	switch strings.ToLower(parsed.Scheme) {
	case "http", "https":
	default:
		return false
	}
	host := parsed.Hostname()
	return host != "" && !strings.HasPrefix(host, ".") && !strings.HasSuffix(host, ".")
}
