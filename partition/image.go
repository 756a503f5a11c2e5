package partition

import (
	"context"
	"os"
	"path/filepath"
	"strconv"
)

// PartitionImage handles the raster image family. There is no OCR in this
// pipeline, so the result is a single metadata-only element downstream
// connectors can still index by filename and size.
func PartitionImage(_ context.Context, path string) ([]Element, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	return []Element{{
		Type: "image",
		Metadata: map[string]string{
			"filename":   filepath.Base(path),
			"size_bytes": strconv.FormatInt(info.Size(), 10),
		},
	}}, nil
}
