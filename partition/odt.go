package partition

import (
	"archive/zip"
	"context"
	"encoding/xml"
	"fmt"
	"strconv"
	"strings"
)

// PartitionOdt parses an .odt file by reading content.xml from the ZIP
// archive.
func PartitionOdt(_ context.Context, path string) ([]Element, error) {
	r, err := zip.OpenReader(path)
	if err != nil {
		return nil, fmt.Errorf("open zip: %w", err)
	}
	defer r.Close()

	var contentFile *zip.File
	for _, f := range r.File {
		if f.Name == "content.xml" {
			contentFile = f
			break
		}
	}
	if contentFile == nil {
		return nil, fmt.Errorf("content.xml not found in archive")
	}

	rc, err := contentFile.Open()
	if err != nil {
		return nil, fmt.Errorf("open content.xml: %w", err)
	}
	defer rc.Close()

	decoder := xml.NewDecoder(rc)
	var elements []Element
	var currentText strings.Builder
	var inHeading bool
	var headingLevel int
	var inParagraph bool
	var inList bool

	for {
		tok, err := decoder.Token()
		if err != nil {
			break
		}

		switch t := tok.(type) {
		case xml.StartElement:
			switch {
			case t.Name.Local == "h": // <text:h>
				inHeading = true
				currentText.Reset()
				headingLevel = 1
				for _, attr := range t.Attr {
					if attr.Name.Local == "outline-level" {
						if n, err := strconv.Atoi(attr.Value); err == nil {
							headingLevel = n
						}
					}
				}
			case t.Name.Local == "p": // <text:p>
				inParagraph = true
				currentText.Reset()
			case t.Name.Local == "list": // <text:list>
				inList = true
			}

		case xml.CharData:
			if inHeading || inParagraph {
				currentText.Write(t)
			}

		case xml.EndElement:
			switch {
			case t.Name.Local == "h" && inHeading:
				inHeading = false
				text := strings.TrimSpace(currentText.String())
				if text == "" {
					continue
				}
				elements = append(elements, Element{Type: "heading", Level: headingLevel, Text: text})

			case t.Name.Local == "p" && inParagraph:
				inParagraph = false
				text := strings.TrimSpace(currentText.String())
				if text == "" {
					continue
				}
				etype := "paragraph"
				if inList {
					etype = "list"
				}
				elements = append(elements, Element{Type: etype, Text: text})

			case t.Name.Local == "list":
				inList = false
			}
		}
	}

	return elements, nil
}
