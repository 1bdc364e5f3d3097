package mapping

import (
	"bytes"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	extast "github.com/yuin/goldmark/extension/ast"
	"github.com/yuin/goldmark/text"
	"github.com/yuin/goldmark/util"
)

// Table is one GFM pipe table found in a markdown document.
type Table struct {
	Title  string
	Header []string
	Rows   [][]string
}

var md = goldmark.New(goldmark.WithExtensions(extension.GFM))

// ParseTables returns every pipe table in markdown, titled by the nearest
// heading above it.
func ParseTables(markdown string) []Table {
	src := []byte(strings.ReplaceAll(markdown, "\r\n", "\n"))
	doc := md.Parser().Parse(text.NewReader(src))

	var tables []Table
	heading := ""
	_ = ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		switch n := n.(type) {
		case *ast.Heading:
			heading = inlineText(n, src)
			return ast.WalkSkipChildren, nil
		case *extast.Table:
			tables = append(tables, readTable(n, heading, src))
			return ast.WalkSkipChildren, nil
		}
		return ast.WalkContinue, nil
	})
	return tables
}

// RenderHTML converts markdown to HTML. Raw HTML in the source is omitted.
func RenderHTML(markdown string) (string, error) {
	var buf bytes.Buffer
	if err := md.Convert([]byte(markdown), &buf); err != nil {
		return "", err
	}
	return buf.String(), nil
}

func readTable(n *extast.Table, title string, src []byte) Table {
	t := Table{Title: title}
	for row := n.FirstChild(); row != nil; row = row.NextSibling() {
		var cells []string
		for cell := row.FirstChild(); cell != nil; cell = cell.NextSibling() {
			if c, ok := cell.(*extast.TableCell); ok {
				cells = append(cells, inlineText(c, src))
			}
		}
		switch row.(type) {
		case *extast.TableHeader:
			t.Header = cells
		case *extast.TableRow:
			t.Rows = append(t.Rows, cells)
		}
	}
	for i, r := range t.Rows {
		t.Rows[i] = normalize(r, len(t.Header))
	}
	return t
}

// inlineText flattens the inline children of n to plain text.
func inlineText(n ast.Node, src []byte) string {
	var b bytes.Buffer
	_ = ast.Walk(n, func(c ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		switch c := c.(type) {
		case *ast.Text:
			b.Write(c.Segment.Value(src))
			if c.SoftLineBreak() || c.HardLineBreak() {
				b.WriteByte(' ')
			}
		case *ast.String:
			b.Write(c.Value)
		case *ast.AutoLink:
			b.Write(c.Label(src))
		}
		return ast.WalkContinue, nil
	})
	return strings.TrimSpace(string(util.UnescapePunctuations(b.Bytes())))
}

func normalize(cells []string, width int) []string {
	if len(cells) > width {
		return cells[:width]
	}
	for len(cells) < width {
		cells = append(cells, "")
	}
	return cells
}
