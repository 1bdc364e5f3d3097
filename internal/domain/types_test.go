package domain

import (
	"encoding/json"
	"testing"
)

// TestFlexibleIDAcceptsStringAndNumber verifies both id encodings decode.
func TestFlexibleIDAcceptsStringAndNumber(t *testing.T) {
	tests := []struct {
		name string
		body string
		want FlexibleID
	}{
		{name: "string", body: `{"id":"abc"}`, want: "abc"},
		{name: "number", body: `{"id":42}`, want: "42"},
		{name: "large number", body: `{"id":12345678901234567}`, want: "12345678901234567"},
		{name: "null", body: `{"id":null}`, want: ""},
		{name: "missing", body: `{}`, want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var row PollResult
			if err := json.Unmarshal([]byte(tt.body), &row); err != nil {
				t.Fatalf("unmarshal: %v", err)
			}
			if row.ID != tt.want {
				t.Fatalf("id = %q, want %q", row.ID, tt.want)
			}
		})
	}
}

// TestFlexibleIDRejectsObjects checks malformed ids surface as decode errors.
func TestFlexibleIDRejectsObjects(t *testing.T) {
	var row PollResult
	if err := json.Unmarshal([]byte(`{"id":{"nested":true}}`), &row); err == nil {
		t.Fatal("expected error for object id")
	}
}

// TestPollResultDecodesResultLinks checks status endpoint field names.
func TestPollResultDecodesResultLinks(t *testing.T) {
	body := `{"status":"done","error":false,"resultTranscriptUrl":"https://t","resultMappingUrl":"https://m"}`
	var row PollResult
	if err := json.Unmarshal([]byte(body), &row); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if row.Status != JobStatusDone || row.TranscriptURL != "https://t" || row.MappingURL != "https://m" {
		t.Fatalf("row = %+v", row)
	}
}
