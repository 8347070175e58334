// Package doctext turns documentation files into plain text for chunking.
package doctext

import (
	"bytes"
	"io"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/m-mizutani/goerr/v2"
	"github.com/yuin/goldmark"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// ErrUnsupported is returned for file types that have no text extractor
var ErrUnsupported = goerr.New("unsupported document type")

// Supported reports whether Extract can read a file named name
func Supported(name string) bool {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".md", ".markdown", ".txt", ".html", ".htm":
		return true
	}
	return false
}

// Extract converts file content to plain text based on the extension of name
func Extract(name string, data []byte) (string, error) {
	if !utf8.Valid(data) {
		data = bytes.ToValidUTF8(data, nil)
	}

	switch strings.ToLower(filepath.Ext(name)) {
	case ".md", ".markdown":
		return MarkdownText(data)
	case ".html", ".htm":
		return HTMLText(bytes.NewReader(data))
	case ".txt":
		return string(data), nil
	}
	return "", goerr.Wrap(ErrUnsupported, "no extractor for file", goerr.V("name", name))
}

// MarkdownText renders markdown and returns its visible text
func MarkdownText(src []byte) (string, error) {
	var buf bytes.Buffer
	if err := goldmark.Convert(src, &buf); err != nil {
		return "", goerr.Wrap(err, "failed to render markdown")
	}
	return HTMLText(&buf)
}

var skipped = map[atom.Atom]bool{
	atom.Head:     true,
	atom.Script:   true,
	atom.Style:    true,
	atom.Noscript: true,
	atom.Template: true,
}

var blocks = map[atom.Atom]bool{
	atom.P: true, atom.Div: true, atom.Br: true, atom.Li: true, atom.Tr: true,
	atom.H1: true, atom.H2: true, atom.H3: true, atom.H4: true, atom.H5: true, atom.H6: true,
	atom.Pre: true, atom.Blockquote: true, atom.Section: true, atom.Article: true,
	atom.Table: true, atom.Ul: true, atom.Ol: true, atom.Hr: true, atom.Dt: true, atom.Dd: true,
}

var whitespace = strings.NewReplacer("\r\n", " ", "\n", " ", "\r", " ", "\t", " ")

// HTMLText returns the visible text of an HTML document, one block per line
func HTMLText(r io.Reader) (string, error) {
	root, err := html.Parse(r)
	if err != nil {
		return "", goerr.Wrap(err, "failed to parse HTML")
	}

	var sb strings.Builder
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		switch n.Type {
		case html.TextNode:
			// line breaks come from block elements only
			sb.WriteString(whitespace.Replace(n.Data))
			return
		case html.ElementNode:
			if skipped[n.DataAtom] {
				return
			}
		}

		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
		if n.Type == html.ElementNode && blocks[n.DataAtom] {
			sb.WriteString("\n")
		}
	}
	walk(root)

	var lines []string
	for _, line := range strings.Split(sb.String(), "\n") {
		if line = strings.Join(strings.Fields(line), " "); line != "" {
			lines = append(lines, line)
		}
	}
	return strings.Join(lines, "\n"), nil
}
