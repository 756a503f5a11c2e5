package partition

import (
	"context"
	"io"
	"net/mail"
	"os"
	"strings"
)

// PartitionEmail parses an RFC 822 message: the Subject/From/To headers
// become header elements, the body a sequence of paragraphs split on blank
// lines. Only plain bodies are handled; MIME multipart decoding is the
// upstream mail fetcher's job.
func PartitionEmail(_ context.Context, path string) ([]Element, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	msg, err := mail.ReadMessage(f)
	if err != nil {
		return nil, err
	}

	var elements []Element
	for _, name := range []string{"Subject", "From", "To", "Date"} {
		if v := msg.Header.Get(name); v != "" {
			elements = append(elements, Element{
				Type:     "header",
				Text:     v,
				Metadata: map[string]string{"header": name},
			})
		}
	}

	body, err := io.ReadAll(msg.Body)
	if err != nil {
		return nil, err
	}
	for _, para := range strings.Split(string(body), "\n\n") {
		if text := normalizeWhitespace(para); text != "" {
			elements = append(elements, Element{Type: "paragraph", Text: text})
		}
	}

	return elements, nil
}
