// Package report accumulates evidence records and persists them as two
// artifacts: an indented JSON array and a fixed-column CSV table. Both
// writes are atomic (temp file in the destination directory, then
// rename).
package report

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"evscan/internal/evidence"
	"evscan/internal/logging"
)

// csvHeader is the fixed tabular column order.
var csvHeader = []string{"source_file", "internal_path", "pattern_type", "match_value", "file_type", "context", "timestamp"}

// Reporter collects records across archives. Accumulation is
// mutex-guarded so archive workers may append concurrently.
type Reporter struct {
	jsonPath string
	csvPath  string
	logger   logging.Logger

	mu      sync.Mutex
	records []evidence.Record
}

// NewReporter creates a Reporter writing to the given artifact paths.
func NewReporter(jsonPath, csvPath string, logger logging.Logger) *Reporter {
	return &Reporter{jsonPath: jsonPath, csvPath: csvPath, logger: logger}
}

// JSONPath returns the structured artifact destination.
func (r *Reporter) JSONPath() string { return r.jsonPath }

// CSVPath returns the tabular artifact destination.
func (r *Reporter) CSVPath() string { return r.csvPath }

// Add appends one record.
func (r *Reporter) Add(record evidence.Record) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.records = append(r.records, record)
}

// AddAll appends a batch of records.
func (r *Reporter) AddAll(records []evidence.Record) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.records = append(r.records, records...)
}

// Count returns the running number of accumulated records.
func (r *Reporter) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.records)
}

// Records returns a copy of the accumulated records.
func (r *Reporter) Records() []evidence.Record {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]evidence.Record(nil), r.records...)
}

// Clear discards all accumulated records.
func (r *Reporter) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.records = nil
}

// Write persists both artifacts. Each is written independently and
// atomically; a second Write with the same records produces identical
// bytes.
func (r *Reporter) Write() error {
	records := r.Records()

	if err := writeAtomic(r.jsonPath, func(f *os.File) error {
		return encodeJSON(f, records)
	}); err != nil {
		return fmt.Errorf("writing structured report: %w", err)
	}

	if err := writeAtomic(r.csvPath, func(f *os.File) error {
		return encodeCSV(f, records)
	}); err != nil {
		return fmt.Errorf("writing tabular report: %w", err)
	}

	r.logger.Info("wrote consolidated reports", "count", len(records), "json", r.jsonPath, "csv", r.csvPath)
	return nil
}

func encodeJSON(f *os.File, records []evidence.Record) error {
	// Keep the artifact a JSON array even when empty.
	if records == nil {
		records = []evidence.Record{}
	}
	enc := json.NewEncoder(f)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	return enc.Encode(records)
}

func encodeCSV(f *os.File, records []evidence.Record) error {
	w := csv.NewWriter(f)
	if err := w.Write(csvHeader); err != nil {
		return err
	}
	for _, rec := range records {
		row := []string{rec.SourceFile, rec.InternalPath, rec.PatternType, rec.MatchValue, rec.FileType, rec.Context, rec.Timestamp}
		if err := w.Write(row); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}

// writeAtomic writes via a temp file in the destination directory and
// renames over the final path.
func writeAtomic(path string, write func(*os.File) error) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("creating output directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".tmp-*")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	tmpPath := tmp.Name()

	success := false
	defer func() {
		if !success {
			os.Remove(tmpPath)
		}
	}()

	if err := write(tmp); err != nil {
		tmp.Close()
		return fmt.Errorf("writing temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("closing temp file: %w", err)
	}

	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("replacing %s: %w", path, err)
	}
	success = true
	return nil
}
