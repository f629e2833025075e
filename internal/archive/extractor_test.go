package archive_test

import (
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"evscan/internal/archive"
	"evscan/internal/testutil"
)

func TestExtractor_Validate(t *testing.T) {
	t.Run("missing container", func(t *testing.T) {
		t.Parallel()
		ex := archive.NewExtractor(filepath.Join(t.TempDir(), "missing.ufdr"), testutil.NewCaptureLogger())

		err := ex.Validate()
		if !errors.Is(err, archive.ErrNotFound) {
			t.Fatalf("Validate() error = %v, want ErrNotFound", err)
		}
	})

	t.Run("directory is not a valid source", func(t *testing.T) {
		t.Parallel()
		ex := archive.NewExtractor(t.TempDir(), testutil.NewCaptureLogger())

		err := ex.Validate()
		if !errors.Is(err, archive.ErrInvalidSource) {
			t.Fatalf("Validate() error = %v, want ErrInvalidSource", err)
		}
	})

	t.Run("regular file passes", func(t *testing.T) {
		t.Parallel()
		path := filepath.Join(t.TempDir(), "case.ufdr")
		testutil.TextArchive(t, path, map[string]string{"a.txt": "hello"})

		ex := archive.NewExtractor(path, testutil.NewCaptureLogger())
		if err := ex.Validate(); err != nil {
			t.Fatalf("Validate() error = %v", err)
		}
	})
}

func TestExtractor_ListMembers(t *testing.T) {
	t.Run("returns metadata for every entry", func(t *testing.T) {
		t.Parallel()
		path := filepath.Join(t.TempDir(), "case.ufdr")
		modified := time.Date(2025, 11, 3, 18, 12, 55, 0, time.UTC)
		testutil.BuildArchive(t, path, []testutil.ArchiveEntry{
			{Name: "reports/report.txt", Content: []byte("Contact: analyst@example.com"), Modified: modified},
			{Name: "data/messages.db", Content: []byte("not really a db")},
		})

		ex := archive.NewExtractor(path, testutil.NewCaptureLogger())
		members, err := ex.ListMembers()
		if err != nil {
			t.Fatalf("ListMembers() error = %v", err)
		}

		if len(members) != 2 {
			t.Fatalf("got %d members, want 2", len(members))
		}
		if members[0].Name != "reports/report.txt" {
			t.Errorf("members[0].Name = %q, want %q", members[0].Name, "reports/report.txt")
		}
		if members[0].Size != uint64(len("Contact: analyst@example.com")) {
			t.Errorf("members[0].Size = %d, want %d", members[0].Size, len("Contact: analyst@example.com"))
		}
		if members[0].IsDir {
			t.Error("members[0].IsDir = true, want false")
		}
		if members[0].Modified == nil {
			t.Fatal("members[0].Modified = nil, want timestamp")
		}
		if !members[0].Modified.Equal(modified) {
			t.Errorf("members[0].Modified = %v, want %v", members[0].Modified, modified)
		}
	})

	t.Run("corrupt container", func(t *testing.T) {
		t.Parallel()
		path := filepath.Join(t.TempDir(), "broken.ufdr")
		if err := os.WriteFile(path, []byte("not a zip file"), 0644); err != nil {
			t.Fatal(err)
		}

		ex := archive.NewExtractor(path, testutil.NewCaptureLogger())
		_, err := ex.ListMembers()
		if !errors.Is(err, archive.ErrCorruptArchive) {
			t.Fatalf("ListMembers() error = %v, want ErrCorruptArchive", err)
		}
	})
}

func TestExtractor_OpenMember(t *testing.T) {
	t.Run("streams member content", func(t *testing.T) {
		t.Parallel()
		path := filepath.Join(t.TempDir(), "case.ufdr")
		testutil.TextArchive(t, path, map[string]string{"notes.txt": "meet at 9"})

		ex := archive.NewExtractor(path, testutil.NewCaptureLogger())
		rc, err := ex.OpenMember("notes.txt")
		if err != nil {
			t.Fatalf("OpenMember() error = %v", err)
		}
		defer rc.Close()

		data, err := io.ReadAll(rc)
		if err != nil {
			t.Fatalf("reading member: %v", err)
		}
		if string(data) != "meet at 9" {
			t.Errorf("content = %q, want %q", data, "meet at 9")
		}
	})

	t.Run("unknown member", func(t *testing.T) {
		t.Parallel()
		path := filepath.Join(t.TempDir(), "case.ufdr")
		testutil.TextArchive(t, path, map[string]string{"notes.txt": "x"})

		ex := archive.NewExtractor(path, testutil.NewCaptureLogger())
		if _, err := ex.OpenMember("nope.txt"); err == nil {
			t.Fatal("OpenMember() error = nil, want error")
		}
	})
}

func TestExtractor_ExtractSelected(t *testing.T) {
	t.Run("creates destination and overwrites on re-extraction", func(t *testing.T) {
		t.Parallel()
		dir := t.TempDir()
		path := filepath.Join(dir, "case.ufdr")
		testutil.TextArchive(t, path, map[string]string{
			"data/messages.db": "db bytes",
			"notes.txt":        "text",
		})

		dest := filepath.Join(dir, "out", "nested")
		ex := archive.NewExtractor(path, testutil.NewCaptureLogger())

		for i := 0; i < 2; i++ {
			extracted, err := ex.ExtractSelected(dest, []string{"data/messages.db"})
			if err != nil {
				t.Fatalf("ExtractSelected() error = %v", err)
			}
			if len(extracted) != 1 {
				t.Fatalf("got %d extracted paths, want 1", len(extracted))
			}
			got := testutil.FileBytes(t, extracted[0])
			if string(got) != "db bytes" {
				t.Errorf("extracted content = %q, want %q", got, "db bytes")
			}
		}
	})

	t.Run("rejects members escaping the destination", func(t *testing.T) {
		t.Parallel()
		dir := t.TempDir()
		path := filepath.Join(dir, "case.ufdr")
		testutil.TextArchive(t, path, map[string]string{"../evil.txt": "x"})

		ex := archive.NewExtractor(path, testutil.NewCaptureLogger())
		if _, err := ex.ExtractSelected(filepath.Join(dir, "out"), []string{"../evil.txt"}); err == nil {
			t.Fatal("ExtractSelected() error = nil, want traversal rejection")
		}
	})

	t.Run("empty selection is a no-op", func(t *testing.T) {
		t.Parallel()
		path := filepath.Join(t.TempDir(), "case.ufdr")
		testutil.TextArchive(t, path, map[string]string{"a.txt": "x"})

		ex := archive.NewExtractor(path, testutil.NewCaptureLogger())
		extracted, err := ex.ExtractSelected(filepath.Join(t.TempDir(), "out"), nil)
		if err != nil {
			t.Fatalf("ExtractSelected() error = %v", err)
		}
		if len(extracted) != 0 {
			t.Fatalf("got %d extracted paths, want 0", len(extracted))
		}
	})
}
