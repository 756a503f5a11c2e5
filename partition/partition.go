// Package partition turns raw document files into structured element
// sequences.
//
// Partitioners are plain functions with the Func signature, bound to file
// types on the filetype registry at init time (the same way database/sql
// drivers self-register). The Pipeline resolves the bound handler for a
// discovered file and invokes it; formats the registry knows but no handler
// covers (xls, pptx, rtf) classify fine and fail only at dispatch.
//
// Supported out of the box: txt, md, html, docx, odt, pdf, csv, tsv, eml,
// and the raster image family (metadata-only, no OCR).
package partition

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/hazyhaar/ingestkit/filetype"
)

// Func is the signature every partitioner implements. Handlers are bound on
// the filetype registry as untyped values; Pipeline asserts them back to
// this type at dispatch.
type Func func(ctx context.Context, path string) ([]Element, error)

func init() {
	for _, b := range []struct {
		ft *filetype.FileType
		fn Func
	}{
		{filetype.TXT, PartitionText},
		{filetype.MD, PartitionMd},
		{filetype.HTML, PartitionHTML},
		{filetype.DOCX, PartitionDocx},
		{filetype.ODT, PartitionOdt},
		{filetype.PDF, PartitionPDF},
		{filetype.CSV, PartitionCSV},
		{filetype.TSV, PartitionTSV},
		{filetype.EML, PartitionEmail},
		{filetype.BMP, PartitionImage},
		{filetype.HEIC, PartitionImage},
		{filetype.JPG, PartitionImage},
		{filetype.PNG, PartitionImage},
		{filetype.TIFF, PartitionImage},
	} {
		if err := filetype.RegisterPartitioner(b.ft, b.fn); err != nil {
			panic("partition: " + err.Error())
		}
	}
}

// Config configures a Pipeline.
type Config struct {
	// MaxFileSize is the maximum file size to process (default: 100 MB).
	MaxFileSize int64 `json:"max_file_size" yaml:"max_file_size"`

	// Logger for debug/error messages.
	Logger *slog.Logger `json:"-" yaml:"-"`
}

func (c *Config) defaults() {
	if c.MaxFileSize <= 0 {
		c.MaxFileSize = 100 * 1024 * 1024
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
}

// Pipeline dispatches files to the partitioner registered for their type.
type Pipeline struct {
	cfg    Config
	logger *slog.Logger
}

// New creates a Pipeline with the given configuration.
func New(cfg Config) *Pipeline {
	cfg.defaults()
	return &Pipeline{cfg: cfg, logger: cfg.Logger}
}

// Detect classifies a file by its extension. Unknown extensions are an
// error here (the pipeline was asked to process this exact file); callers
// scanning trees use filetype.FromExtension directly and skip nils instead.
func (p *Pipeline) Detect(path string) (*filetype.FileType, error) {
	ext := strings.ToLower(filepath.Ext(path))
	ft := filetype.FromExtension(ext)
	if ft == nil {
		return nil, fmt.Errorf("unsupported file type: %q", ext)
	}
	return ft, nil
}

// Partition classifies path, runs the partitioner bound to its type, and
// wraps the elements into a Document stamped with the canonical MIME type.
func (p *Pipeline) Partition(ctx context.Context, path string) (*Document, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("stat %s: %w", path, err)
	}
	if info.Size() > p.cfg.MaxFileSize {
		return nil, fmt.Errorf("file too large: %d bytes (max %d)", info.Size(), p.cfg.MaxFileSize)
	}

	ft, err := p.Detect(path)
	if err != nil {
		return nil, err
	}

	handler, bound := ft.Partitioner()
	if !bound {
		return nil, fmt.Errorf("no partitioner bound for file type %s", ft.Name())
	}
	fn, ok := handler.(Func)
	if !ok {
		return nil, fmt.Errorf("partitioner for %s has unexpected signature %T", ft.Name(), handler)
	}

	p.logger.Debug("partitioning document", "path", path, "file_type", ft.Name())

	elements, err := fn(ctx, path)
	if err != nil {
		return nil, fmt.Errorf("partition %s (%s): %w", path, ft.Name(), err)
	}

	doc := &Document{
		Path:     path,
		FileType: ft.Name(),
		MimeType: ft.MimeType(),
		Elements: elements,
	}
	doc.Title = deriveTitle(elements)
	doc.RawText = joinText(elements)
	return doc, nil
}

// Supported returns the names of all file types with a bound partitioner,
// sorted.
func Supported() []string {
	var names []string
	for _, ft := range filetype.All() {
		if _, bound := ft.Partitioner(); bound {
			names = append(names, ft.Name())
		}
	}
	return names
}

// deriveTitle picks the first heading, falling back to the first line of
// the first element.
func deriveTitle(elements []Element) string {
	for _, el := range elements {
		if el.Type == "heading" && el.Text != "" {
			return firstLine(el.Text)
		}
	}
	for _, el := range elements {
		if el.Text != "" {
			return firstLine(el.Text)
		}
	}
	return ""
}

func joinText(elements []Element) string {
	var sb strings.Builder
	for i, el := range elements {
		if el.Text == "" {
			continue
		}
		if i > 0 && sb.Len() > 0 {
			sb.WriteByte('\n')
		}
		sb.WriteString(el.Text)
	}
	return sb.String()
}

func firstLine(text string) string {
	if idx := strings.IndexByte(text, '\n'); idx >= 0 {
		text = text[:idx]
	}
	text = strings.TrimSpace(text)
	if len(text) > 200 {
		text = text[:200]
	}
	return text
}
