// Package export writes report row sets to delimited files. Files are
// UTF-8 with a byte-order mark so spreadsheet tools pick up the encoding,
// and every write goes through a temporary file renamed into place: a failed
// run leaves the previous file intact, never a truncated one.
package export

import (
	"encoding/csv"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

type CSVWriter struct {
	dir    string
	logger *slog.Logger
}

func NewCSVWriter(dir string, logger *slog.Logger) *CSVWriter {
	return &CSVWriter{dir: dir, logger: logger.With("component", "CSVWriter")}
}

// Export writes the header and records to <dir>/<filename>, creating the
// directory if absent and overwriting any previous file atomically.
func (w *CSVWriter) Export(filename string, header []string, records [][]string) error {
	if err := os.MkdirAll(w.dir, 0o755); err != nil {
		return fmt.Errorf("failed to create export directory %s: %w", w.dir, err)
	}

	tmp, err := os.CreateTemp(w.dir, filename+".tmp-*")
	if err != nil {
		return fmt.Errorf("failed to create temporary export file: %w", err)
	}
	tmpName := tmp.Name()

	if err := w.writeAll(tmp, header, records); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to close temporary export file: %w", err)
	}

	target := filepath.Join(w.dir, filename)
	if err := os.Rename(tmpName, target); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to move export file into place: %w", err)
	}

	w.logger.Debug("Exported CSV file", "file", target, "rows", len(records))
	return nil
}

func (w *CSVWriter) writeAll(f *os.File, header []string, records [][]string) error {
	if _, err := f.Write(utf8BOM); err != nil {
		return fmt.Errorf("failed to write BOM: %w", err)
	}

	cw := csv.NewWriter(f)
	if err := cw.Write(header); err != nil {
		return fmt.Errorf("failed to write CSV header: %w", err)
	}
	if err := cw.WriteAll(records); err != nil {
		return fmt.Errorf("failed to write CSV records: %w", err)
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("failed to flush CSV: %w", err)
	}
	return nil
}
