// Package sink defines delivery backends for partitioned documents.
package sink

import (
	"context"
	"time"

	"github.com/hazyhaar/ingestkit/partition"
)

// Record is the delivery unit: a partitioned document flattened together
// with the identity the ingester assigned to it.
type Record struct {
	ID          string              `json:"id"`
	Fingerprint string              `json:"fingerprint"`
	Path        string              `json:"path"`
	FileType    string              `json:"file_type"`
	MimeType    string              `json:"mime_type"`
	Title       string              `json:"title,omitempty"`
	Text        string              `json:"text"`
	Elements    []partition.Element `json:"elements"`
	IngestedAt  time.Time           `json:"ingested_at"`
}

// Flatten builds a Record from a partitioned document.
func Flatten(doc *partition.Document, id, fingerprint string) Record {
	return Record{
		ID:          id,
		Fingerprint: fingerprint,
		Path:        doc.Path,
		FileType:    doc.FileType,
		MimeType:    doc.MimeType,
		Title:       doc.Title,
		Text:        doc.RawText,
		Elements:    doc.Elements,
		IngestedAt:  time.Now().UTC(),
	}
}

// Sink is the delivery interface. Implementations persist or forward a
// record (SQLite, webhook, stdout).
type Sink interface {
	Deliver(ctx context.Context, rec Record) error
	Close() error
}

// Fanout delivers to every sink in order and returns the first error.
type Fanout []Sink

func (f Fanout) Deliver(ctx context.Context, rec Record) error {
	for _, s := range f {
		if err := s.Deliver(ctx, rec); err != nil {
			return err
		}
	}
	return nil
}

func (f Fanout) Close() error {
	var first error
	for _, s := range f {
		if err := s.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}
