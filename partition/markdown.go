package partition

import (
	"context"
	"os"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	gtext "github.com/yuin/goldmark/text"
)

// PartitionMd extracts structured elements from a Markdown file: headings
// with their level, paragraphs, lists, and fenced code blocks.
func PartitionMd(_ context.Context, path string) ([]Element, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return parseMarkdown(data)
}

var markdown = goldmark.New()

// parseMarkdown walks the goldmark AST and flattens block nodes into
// elements. Shared with the HTML partitioner, which converts to Markdown
// first.
func parseMarkdown(src []byte) ([]Element, error) {
	root := markdown.Parser().Parse(gtext.NewReader(src))

	var elements []Element
	err := ast.Walk(root, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		switch t := n.(type) {
		case *ast.Heading:
			if text := nodeText(t, src); text != "" {
				elements = append(elements, Element{Type: "heading", Level: t.Level, Text: text})
			}
			return ast.WalkSkipChildren, nil

		case *ast.Paragraph:
			if text := nodeText(t, src); text != "" {
				elements = append(elements, Element{Type: "paragraph", Text: text})
			}
			return ast.WalkSkipChildren, nil

		case *ast.List:
			var items []string
			for c := t.FirstChild(); c != nil; c = c.NextSibling() {
				if text := nodeText(c, src); text != "" {
					items = append(items, text)
				}
			}
			if len(items) > 0 {
				elements = append(elements, Element{Type: "list", Text: strings.Join(items, "\n")})
			}
			return ast.WalkSkipChildren, nil

		case *ast.FencedCodeBlock, *ast.CodeBlock:
			if text := strings.TrimRight(rawLines(n, src), "\n"); text != "" {
				elements = append(elements, Element{Type: "code", Text: text})
			}
			return ast.WalkSkipChildren, nil
		}
		return ast.WalkContinue, nil
	})
	if err != nil {
		return nil, err
	}
	return elements, nil
}

// nodeText collects the plain text of a node subtree.
func nodeText(n ast.Node, src []byte) string {
	var sb strings.Builder
	_ = ast.Walk(n, func(c ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		switch t := c.(type) {
		case *ast.Text:
			sb.Write(t.Segment.Value(src))
			if t.SoftLineBreak() || t.HardLineBreak() {
				sb.WriteByte(' ')
			}
		case *ast.String:
			sb.Write(t.Value)
		}
		return ast.WalkContinue, nil
	})
	return strings.TrimSpace(sb.String())
}

// rawLines reads a block node's source segments verbatim (code blocks).
func rawLines(n ast.Node, src []byte) string {
	var sb strings.Builder
	lines := n.Lines()
	for i := 0; i < lines.Len(); i++ {
		seg := lines.At(i)
		sb.Write(seg.Value(src))
	}
	return sb.String()
}
