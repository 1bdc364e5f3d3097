package transcript

import (
	"bytes"
	"fmt"
	"strings"

	"golang.org/x/net/html"

	"episode-mapper/internal/preview"
)

// htmlPageError explains that a link served a web page, usually a sign-in
// or permission screen, instead of the document.
func htmlPageError(body []byte) error {
	title := pageTitle(body)
	if title == "" {
		return &preview.UserError{Message: "Transcript link returned a web page instead of a document. Check the file is shared publicly."}
	}
	return &preview.UserError{Message: fmt.Sprintf("Transcript link returned a web page (%q) instead of a document. Check the file is shared publicly.", title)}
}

func pageTitle(body []byte) string {
	node, err := html.Parse(bytes.NewReader(body))
	if err != nil {
		return ""
	}

	var title string
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if title != "" {
			return
		}
		if n.Type == html.ElementNode && strings.EqualFold(n.Data, "title") && n.FirstChild != nil {
			title = strings.Join(strings.Fields(n.FirstChild.Data), " ")
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(node)
	return title
}
