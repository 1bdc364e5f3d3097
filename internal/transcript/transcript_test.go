package transcript

import (
	"archive/zip"
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"episode-mapper/internal/config"
	"episode-mapper/internal/direction"
	"episode-mapper/internal/preview"
	"episode-mapper/internal/remote"
)

const documentXML = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main">
  <w:body>
    <w:p><w:r><w:t>Speaker 1:</w:t></w:r></w:p>
    <w:p></w:p>
    <w:p><w:r><w:t xml:space="preserve">Hello </w:t></w:r><w:r><w:t>there</w:t></w:r></w:p>
    <w:p><w:r><w:t>Col A</w:t><w:tab/><w:t>Col B</w:t><w:br/><w:t>next line</w:t></w:r></w:p>
  </w:body>
</w:document>`

func buildDocx(t *testing.T, document string) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for name, body := range map[string]string{
		"[Content_Types].xml": `<?xml version="1.0"?><Types xmlns="http://schemas.openxmlformats.org/package/2006/content-types"/>`,
		"word/document.xml":   document,
	} {
		w, err := zw.Create(name)
		if err != nil {
			t.Fatalf("create entry: %v", err)
		}
		if _, err := w.Write([]byte(body)); err != nil {
			t.Fatalf("write entry: %v", err)
		}
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("close zip: %v", err)
	}
	return buf.Bytes()
}

// TestExportURL checks Google Docs links become docx exports.
func TestExportURL(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"", ""},
		{"https://docs.google.com/document/d/abc_DEF-123/edit?usp=sharing", "https://docs.google.com/document/d/abc_DEF-123/export?format=docx"},
		{"http://docs.google.com/document/d/xyz", "https://docs.google.com/document/d/xyz/export?format=docx"},
		{"https://drive.google.com/file/d/abc/view", "https://drive.google.com/file/d/abc/view"},
		{"https://example.com/transcript.docx", "https://example.com/transcript.docx"},
	}
	for _, tt := range tests {
		if got := ExportURL(tt.in); got != tt.want {
			t.Errorf("ExportURL(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

// TestClean checks whitespace normalization and tight speaker labels.
func TestClean(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{name: "crlf", in: "a\r\nb", want: "a\nb"},
		{name: "trailing spaces", in: "a  \t\nb", want: "a\nb"},
		{name: "blank runs", in: "a\n\n\n\n\nb", want: "a\n\nb"},
		{name: "speaker label", in: "Host:\n\nWelcome back", want: "Host:\nWelcome back"},
		{name: "speaker label with spaces", in: "Host:  \n \n  Welcome", want: "Host:\n  Welcome"},
		{name: "trim", in: "\n\n  text  \n\n", want: "text"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Clean(tt.in); got != tt.want {
				t.Fatalf("Clean(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

// TestDocxText extracts paragraphs, tabs and breaks.
func TestDocxText(t *testing.T) {
	text, err := DocxText(buildDocx(t, documentXML))
	if err != nil {
		t.Fatalf("DocxText() error = %v", err)
	}
	want := "Speaker 1:\nHello there\n\nCol A\tCol B\nnext line"
	if got := Clean(text); got != want {
		t.Fatalf("text = %q, want %q", got, want)
	}
}

// TestDocxTextRejectsNonZip checks corrupt documents fail.
func TestDocxTextRejectsNonZip(t *testing.T) {
	if _, err := DocxText([]byte("plain text")); err == nil {
		t.Fatal("expected error for non-zip input")
	}
}

// TestDocxTextRequiresDocumentXML checks archives without a body fail.
func TestDocxTextRequiresDocumentXML(t *testing.T) {
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	if _, err := zw.Create("other.xml"); err != nil {
		t.Fatalf("create: %v", err)
	}
	_ = zw.Close()

	_, err := DocxText(buf.Bytes())
	if err == nil || !strings.Contains(err.Error(), "word/document.xml") {
		t.Fatalf("error = %v", err)
	}
}

// TestDecodeHTMLInterstitial names the page that came back.
func TestDecodeHTMLInterstitial(t *testing.T) {
	_, err := Decode(remote.Payload{
		MIMEType: "text/html; charset=utf-8",
		Body:     []byte("<html><head><title>Google Docs:\n Sign-in</title></head><body></body></html>"),
	})
	var userErr *preview.UserError
	if !errors.As(err, &userErr) {
		t.Fatalf("error = %v, want UserError", err)
	}
	if !strings.Contains(userErr.Message, `"Google Docs: Sign-in"`) {
		t.Fatalf("message = %q", userErr.Message)
	}
}

// TestDecodePlainText cleans text bodies.
func TestDecodePlainText(t *testing.T) {
	got, err := Decode(remote.Payload{MIMEType: "text/plain; charset=utf-8", Body: []byte("Host:\r\n\r\nHi  \n")})
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	if got != "Host:\nHi" {
		t.Fatalf("text = %q", got)
	}
}

// TestDecodeUnsupported rejects binary formats.
func TestDecodeUnsupported(t *testing.T) {
	if _, err := Decode(remote.Payload{MIMEType: "image/png"}); err == nil {
		t.Fatal("expected error for image payload")
	}
}

// TestViewerLoadsGoogleDocExport runs the viewer against a fake Docs host.
func TestViewerLoadsGoogleDocExport(t *testing.T) {
	docx := buildDocx(t, `<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main"><w:body><w:p><w:r><w:t>`+
		"\u0645\u0631\u062d\u0628\u0627"+`</w:t></w:r></w:p></w:body></w:document>`)

	var gotPath, gotQuery string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotQuery = r.URL.RawQuery
		_, _ = w.Write(docx)
	}))
	defer srv.Close()

	cfg := config.Defaults()
	cfg.RequestTimeout = 2 * time.Second
	client := remote.NewClient(cfg)

	v := preview.New(client, preview.Options{
		Kind: "transcript",
		Rewrite: func(link string) string {
			return strings.Replace(ExportURL(link), "https://docs.google.com", srv.URL, 1)
		},
		Decode: Decode,
	})

	snap, err := v.Load(context.Background(), "https://docs.google.com/document/d/doc123/edit")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if gotPath != "/document/d/doc123/export" || gotQuery != "format=docx" {
		t.Fatalf("fetched %s?%s", gotPath, gotQuery)
	}
	if snap.State != preview.StateReady || snap.Direction != direction.RTL {
		t.Fatalf("snapshot = %+v", snap)
	}
}

// TestNewViewerReportsStatusCode checks the transcript-specific message.
func TestNewViewerReportsStatusCode(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	v := NewViewer(remote.NewClient(config.Defaults()))
	snap, _ := v.Load(context.Background(), srv.URL+"/t.docx")
	if snap.Error != "Failed to download transcript (401)" {
		t.Fatalf("error = %q", snap.Error)
	}
}
