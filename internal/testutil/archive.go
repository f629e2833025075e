package testutil

import (
	"archive/zip"
	"os"
	"testing"
	"time"
)

// ArchiveEntry describes one member of a test evidence container.
type ArchiveEntry struct {
	Name     string
	Content  []byte
	Modified time.Time
}

// BuildArchive writes a zip evidence container at path from the given
// members, in order.
func BuildArchive(t *testing.T, path string, entries []ArchiveEntry) {
	t.Helper()

	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("creating archive file: %v", err)
	}
	defer f.Close()

	w := zip.NewWriter(f)
	for _, e := range entries {
		header := &zip.FileHeader{Name: e.Name, Method: zip.Deflate}
		if !e.Modified.IsZero() {
			header.Modified = e.Modified
		}
		fw, err := w.CreateHeader(header)
		if err != nil {
			t.Fatalf("creating archive member %s: %v", e.Name, err)
		}
		if _, err := fw.Write(e.Content); err != nil {
			t.Fatalf("writing archive member %s: %v", e.Name, err)
		}
	}
	if err := w.Close(); err != nil {
		t.Fatalf("finalizing archive: %v", err)
	}
}

// TextArchive builds a container whose members are all text files.
func TextArchive(t *testing.T, path string, members map[string]string) {
	t.Helper()
	entries := make([]ArchiveEntry, 0, len(members))
	for name, content := range members {
		entries = append(entries, ArchiveEntry{Name: name, Content: []byte(content)})
	}
	BuildArchive(t, path, entries)
}
