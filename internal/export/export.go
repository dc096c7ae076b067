// Package export writes mock datasets to files.
package export

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/leapstack-labs/leapmix/pkg/core"
)

// Format is an output file format.
type Format string

// Supported formats.
const (
	FormatCSV    Format = "csv"
	FormatJSON   Format = "json"
	FormatNDJSON Format = "ndjson"
	FormatXLSX   Format = "xlsx"
)

// Formats lists the supported formats.
func Formats() []Format {
	return []Format{FormatCSV, FormatJSON, FormatNDJSON, FormatXLSX}
}

// ParseFormat converts a format name (case-insensitive) to a Format.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimPrefix(strings.TrimSpace(s), "."))); f {
	case FormatCSV, FormatJSON, FormatNDJSON, FormatXLSX:
		return f, nil
	case "jsonl":
		return FormatNDJSON, nil
	default:
		return "", fmt.Errorf("unknown export format %q, must be one of: csv, json, ndjson, xlsx", s)
	}
}

// FormatFromPath infers the format from a file extension.
func FormatFromPath(path string) (Format, error) {
	ext := filepath.Ext(path)
	if ext == "" {
		return "", fmt.Errorf("cannot infer export format from %q", path)
	}
	return ParseFormat(ext)
}

// Write encodes ds to w in the given format.
func Write(w io.Writer, ds *core.MockDataset, format Format) error {
	switch format {
	case FormatCSV:
		return CSV(w, ds)
	case FormatJSON:
		return JSON(w, ds)
	case FormatNDJSON:
		return NDJSON(w, ds)
	case FormatXLSX:
		return XLSX(w, ds, DefaultSheet)
	default:
		return fmt.Errorf("unknown export format %q", format)
	}
}

// WriteFile writes ds to path. An empty format is inferred from the extension.
func WriteFile(path string, ds *core.MockDataset, format Format) (err error) {
	if format == "" {
		if format, err = FormatFromPath(path); err != nil {
			return err
		}
	}

	f, err := os.Create(path) //nolint:gosec // G304: path is chosen by the user
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()

	if err := Write(f, ds, format); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}

// CSV writes a header row followed by one record per dataset row. Null
// cells are written as empty strings.
func CSV(w io.Writer, ds *core.MockDataset) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(ds.Columns); err != nil {
		return err
	}
	record := make([]string, len(ds.Columns))
	for _, row := range ds.Rows {
		for i := range record {
			record[i] = ""
			if i < len(row) {
				record[i] = FormatCell(row[i])
			}
		}
		if err := cw.Write(record); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// JSON writes the dataset as a single indented document.
func JSON(w io.Writer, ds *core.MockDataset) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(ds)
}

// FormatCell renders a cell as text.
func FormatCell(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case int64:
		return strconv.FormatInt(x, 10)
	default:
		return fmt.Sprint(x)
	}
}
