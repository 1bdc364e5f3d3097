// Package transcript turns a transcript result link into readable text.
package transcript

import (
	"fmt"
	"regexp"
	"strings"

	"episode-mapper/internal/preview"
	"episode-mapper/internal/remote"
)

const (
	mimeDocx = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
	mimeZip  = "application/zip"
	mimeHTML = "text/html"
	mimeText = "text/plain"
)

var googleDocPattern = regexp.MustCompile(`https?://docs\.google\.com/document/d/([a-zA-Z0-9_-]+)`)

// ExportURL rewrites a Google Docs document link to its docx export link.
// Other links are returned unchanged.
func ExportURL(link string) string {
	if link == "" {
		return ""
	}
	m := googleDocPattern.FindStringSubmatch(link)
	if m == nil {
		return link
	}
	return "https://docs.google.com/document/d/" + m[1] + "/export?format=docx"
}

// NewViewer returns a preview viewer for transcript links.
func NewViewer(dl preview.Downloader) *preview.Viewer {
	return preview.New(dl, preview.Options{
		Kind:    "transcript",
		Rewrite: ExportURL,
		Decode:  Decode,
	})
}

// Decode extracts cleaned text from a downloaded transcript.
func Decode(p remote.Payload) (string, error) {
	switch {
	case p.Is(mimeDocx), p.Is(mimeZip):
		text, err := DocxText(p.Body)
		if err != nil {
			return "", &preview.UserError{Message: "Transcript is not a readable document", Err: err}
		}
		return Clean(text), nil
	case p.Is(mimeHTML):
		return "", htmlPageError(p.Body)
	case p.Is(mimeText):
		return Clean(string(p.Body)), nil
	default:
		return "", &preview.UserError{Message: fmt.Sprintf("Unsupported transcript format (%s)", p.MIMEType)}
	}
}

var (
	trailingSpace = regexp.MustCompile(`[ \t]+\n`)
	blankRuns     = regexp.MustCompile(`\n{3,}`)
	labelGap      = regexp.MustCompile(`:\s*\n\s*\n`)
)

// Clean normalizes extracted transcript text. Speaker labels ending in a
// colon stay on the line directly above their text.
func Clean(text string) string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = trailingSpace.ReplaceAllString(text, "\n")
	text = blankRuns.ReplaceAllString(text, "\n\n")
	text = labelGap.ReplaceAllString(text, ":\n")
	return strings.TrimSpace(text)
}
