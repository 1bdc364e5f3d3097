// Package mapping loads the markdown mapping document and exports its
// tables to a spreadsheet.
package mapping

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"episode-mapper/internal/preview"
	"episode-mapper/internal/remote"
)

// NewViewer returns a preview viewer for mapping links.
func NewViewer(dl preview.Downloader) *preview.Viewer {
	return preview.New(dl, preview.Options{Kind: "mapping", Decode: Decode, Render: RenderHTML})
}

// Decode accepts any UTF-8 text body as markdown.
func Decode(p remote.Payload) (string, error) {
	if p.Is("text/html") {
		return "", &preview.UserError{Message: "Mapping link returned a web page instead of a document. Check the file is shared publicly."}
	}
	if !strings.HasPrefix(p.MIMEType, "text/") && !utf8.Valid(p.Body) {
		return "", &preview.UserError{Message: fmt.Sprintf("Unsupported mapping format (%s)", p.MIMEType)}
	}
	text := strings.ReplaceAll(string(p.Body), "\r\n", "\n")
	return strings.TrimSpace(text), nil
}
