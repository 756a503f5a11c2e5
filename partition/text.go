package partition

import (
	"context"
	"os"
	"strings"
	"unicode"
)

// PartitionText extracts content from a plain text file as one paragraph
// element with normalized whitespace.
func PartitionText(_ context.Context, path string) ([]Element, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	text := normalizeWhitespace(string(data))
	if text == "" {
		return nil, nil
	}
	return []Element{{Type: "paragraph", Text: text}}, nil
}

func normalizeWhitespace(text string) string {
	var sb strings.Builder
	prevSpace := false
	for _, r := range text {
		if unicode.IsSpace(r) {
			if !prevSpace && sb.Len() > 0 {
				sb.WriteByte(' ')
				prevSpace = true
			}
		} else {
			sb.WriteRune(r)
			prevSpace = false
		}
	}
	return strings.TrimSpace(sb.String())
}
