package partition

// Element is a structural unit extracted from a document.
type Element struct {
	// Type is one of heading, paragraph, table, list, code, page, image,
	// header.
	Type string `json:"type"`
	// Level is the heading level 1-6, 0 for non-headings.
	Level int `json:"level,omitempty"`
	// Text is the extracted content.
	Text string `json:"text"`
	// Metadata carries extra per-element attributes (page numbers, header
	// names).
	Metadata map[string]string `json:"metadata,omitempty"`
}

// Document is the result of partitioning one file.
type Document struct {
	Path string `json:"path"`
	// FileType is the registry name of the detected type.
	FileType string `json:"file_type"`
	// MimeType is the canonical MIME type of the detected file type,
	// written verbatim for downstream connectors.
	MimeType string    `json:"mime_type"`
	Title    string    `json:"title"`
	Elements []Element `json:"elements"`
	// RawText is the concatenated full text of all elements.
	RawText string `json:"raw_text"`
}
