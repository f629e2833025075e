package report_test

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"evscan/internal/evidence"
	"evscan/internal/report"
	"evscan/internal/testutil"
)

func newReporter(t *testing.T) (*report.Reporter, string) {
	t.Helper()
	dir := t.TempDir()
	jsonPath := filepath.Join(dir, "out", "results.json")
	csvPath := filepath.Join(dir, "out", "results.csv")
	return report.NewReporter(jsonPath, csvPath, testutil.NewCaptureLogger()), filepath.Join(dir, "out")
}

func sampleRecords() []evidence.Record {
	return []evidence.Record{
		{
			SourceFile:   "phone_dump.ufdr",
			InternalPath: "data/messages.db",
			PatternType:  "Email",
			MatchValue:   "x@y.com",
			FileType:     "database",
			Context:      "table messages | row 7 | contact x@y.com",
			Timestamp:    "2025-11-03T18:12:55Z",
		},
		{
			SourceFile:   "phone_dump.ufdr",
			InternalPath: "notes.txt",
			PatternType:  "Phone",
			MatchValue:   "+1 555 0100",
		},
	}
}

func TestReporter_Write(t *testing.T) {
	t.Run("round-trips sparse records through JSON", func(t *testing.T) {
		t.Parallel()
		r, _ := newReporter(t)
		r.AddAll(sampleRecords())

		if err := r.Write(); err != nil {
			t.Fatalf("Write() error = %v", err)
		}

		data := testutil.FileBytes(t, r.JSONPath())
		var got []evidence.Record
		if err := json.Unmarshal(data, &got); err != nil {
			t.Fatalf("decoding structured artifact: %v", err)
		}
		if len(got) != 2 {
			t.Fatalf("got %d records, want 2", len(got))
		}
		if got[0] != sampleRecords()[0] {
			t.Errorf("got[0] = %+v, want %+v", got[0], sampleRecords()[0])
		}
		// Optional fields on the sparse record are omitted entirely.
		if strings.Contains(string(data), `"file_type": ""`) {
			t.Error("empty optional field serialized instead of omitted")
		}
	})

	t.Run("empty run yields an empty JSON array", func(t *testing.T) {
		t.Parallel()
		r, _ := newReporter(t)

		if err := r.Write(); err != nil {
			t.Fatalf("Write() error = %v", err)
		}
		data := bytes.TrimSpace(testutil.FileBytes(t, r.JSONPath()))
		if string(data) != "[]" {
			t.Errorf("structured artifact = %q, want empty array", data)
		}
	})

	t.Run("CSV carries the fixed header and all columns", func(t *testing.T) {
		t.Parallel()
		r, _ := newReporter(t)
		r.AddAll(sampleRecords())

		if err := r.Write(); err != nil {
			t.Fatalf("Write() error = %v", err)
		}

		f, err := os.Open(r.CSVPath())
		if err != nil {
			t.Fatal(err)
		}
		defer f.Close()
		rows, err := csv.NewReader(f).ReadAll()
		if err != nil {
			t.Fatalf("decoding tabular artifact: %v", err)
		}

		if len(rows) != 3 {
			t.Fatalf("got %d CSV rows, want header plus 2", len(rows))
		}
		wantHeader := "source_file,internal_path,pattern_type,match_value,file_type,context,timestamp"
		if strings.Join(rows[0], ",") != wantHeader {
			t.Errorf("header = %v, want %q", rows[0], wantHeader)
		}
		if rows[1][3] != "x@y.com" || rows[2][3] != "+1 555 0100" {
			t.Errorf("match_value column = %q/%q, want x@y.com and +1 555 0100", rows[1][3], rows[2][3])
		}
		// Sparse record leaves optional columns blank, never shifted.
		if rows[2][4] != "" || rows[2][6] != "" {
			t.Errorf("sparse row optional columns = %q/%q, want blank", rows[2][4], rows[2][6])
		}
	})

	t.Run("rewrite produces identical bytes and leaves no temp files", func(t *testing.T) {
		t.Parallel()
		r, outDir := newReporter(t)
		r.AddAll(sampleRecords())

		if err := r.Write(); err != nil {
			t.Fatal(err)
		}
		firstJSON := testutil.FileBytes(t, r.JSONPath())
		firstCSV := testutil.FileBytes(t, r.CSVPath())

		if err := r.Write(); err != nil {
			t.Fatal(err)
		}
		if !bytes.Equal(firstJSON, testutil.FileBytes(t, r.JSONPath())) {
			t.Error("structured artifact changed across identical writes")
		}
		if !bytes.Equal(firstCSV, testutil.FileBytes(t, r.CSVPath())) {
			t.Error("tabular artifact changed across identical writes")
		}

		entries, err := os.ReadDir(outDir)
		if err != nil {
			t.Fatal(err)
		}
		for _, e := range entries {
			if strings.HasPrefix(e.Name(), ".tmp-") {
				t.Errorf("leftover temp file %s", e.Name())
			}
		}
		if len(entries) != 2 {
			t.Errorf("got %d entries in output dir, want the 2 artifacts", len(entries))
		}
	})
}

func TestReporter_Accumulation(t *testing.T) {
	t.Parallel()
	r, _ := newReporter(t)

	r.Add(sampleRecords()[0])
	r.AddAll(sampleRecords())
	if r.Count() != 3 {
		t.Fatalf("Count() = %d, want 3", r.Count())
	}

	records := r.Records()
	records[0].PatternType = "mutated"
	if r.Records()[0].PatternType != "Email" {
		t.Error("Records() exposed internal storage")
	}

	r.Clear()
	if r.Count() != 0 {
		t.Errorf("Count() after Clear = %d, want 0", r.Count())
	}
}
