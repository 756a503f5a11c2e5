package partition

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/JohannesKaufmann/html-to-markdown/v2/converter"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/base"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/commonmark"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/table"
	"github.com/microcosm-cc/bluemonday"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// sanitizer strips scripts, styles, event handlers and other non-content
// markup before conversion. UGC keeps the structural elements (headings,
// lists, tables) the converter needs.
var sanitizer = bluemonday.UGCPolicy()

var mdConverter = converter.NewConverter(
	converter.WithPlugins(
		base.NewBasePlugin(),
		commonmark.NewCommonmarkPlugin(),
		table.NewTablePlugin(),
	),
)

// PartitionHTML extracts structured elements from an HTML file. The raw
// markup is sanitized, converted to Markdown, and flattened through the
// shared Markdown element parser, so headings, lists, tables and code
// blocks survive with their structure. The document <title> becomes a
// leading heading when the body itself has none.
func PartitionHTML(_ context.Context, path string) ([]Element, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	clean := sanitizer.SanitizeBytes(data)
	md, err := mdConverter.ConvertString(string(clean))
	if err != nil {
		return nil, fmt.Errorf("convert html: %w", err)
	}

	elements, err := parseMarkdown([]byte(md))
	if err != nil {
		return nil, err
	}

	if title := htmlTitle(data); title != "" && !hasHeading(elements) {
		elements = append([]Element{{
			Type:     "heading",
			Level:    1,
			Text:     title,
			Metadata: map[string]string{"source": "title"},
		}}, elements...)
	}
	return elements, nil
}

func hasHeading(elements []Element) bool {
	for _, el := range elements {
		if el.Type == "heading" {
			return true
		}
	}
	return false
}

// htmlTitle extracts the <title> text from raw markup. Sanitization drops
// the head section, so this reads the original bytes.
func htmlTitle(data []byte) string {
	doc, err := html.Parse(bytes.NewReader(data))
	if err != nil {
		return ""
	}
	var find func(*html.Node) string
	find = func(n *html.Node) string {
		if n.Type == html.ElementNode && n.DataAtom == atom.Title {
			if n.FirstChild != nil {
				return strings.TrimSpace(n.FirstChild.Data)
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			if t := find(c); t != "" {
				return t
			}
		}
		return ""
	}
	return find(doc)
}
