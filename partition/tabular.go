package partition

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"strconv"
	"strings"
)

// PartitionCSV extracts a comma-separated file as one table element, rows
// joined by newlines and cells by tabs.
func PartitionCSV(_ context.Context, path string) ([]Element, error) {
	return partitionDelimited(path, ',')
}

// PartitionTSV extracts a tab-separated file as one table element.
func PartitionTSV(_ context.Context, path string) ([]Element, error) {
	return partitionDelimited(path, '\t')
}

func partitionDelimited(path string, comma rune) ([]Element, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.Comma = comma
	r.FieldsPerRecord = -1 // ragged rows are data, not errors

	records, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read delimited file: %w", err)
	}
	if len(records) == 0 {
		return nil, nil
	}

	rows := make([]string, 0, len(records))
	for _, rec := range records {
		rows = append(rows, strings.Join(rec, "\t"))
	}

	return []Element{{
		Type: "table",
		Text: strings.Join(rows, "\n"),
		Metadata: map[string]string{
			"rows": strconv.Itoa(len(records)),
		},
	}}, nil
}
