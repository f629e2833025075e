package archive

import (
	"archive/zip"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"evscan/internal/logging"
)

// Sentinel errors for container validation and reads.
var (
	// ErrNotFound indicates the container path does not exist.
	ErrNotFound = errors.New("container not found")
	// ErrInvalidSource indicates the container path is not a regular file.
	ErrInvalidSource = errors.New("container is not a regular file")
	// ErrCorruptArchive indicates the container is not a readable zip archive.
	ErrCorruptArchive = errors.New("corrupt or invalid archive")
)

// Extractor opens an evidence container and exposes its members.
// A container is a zip-formatted archive holding extracted device data.
type Extractor struct {
	path   string
	logger logging.Logger
}

// NewExtractor creates an Extractor for the container at path.
func NewExtractor(path string, logger logging.Logger) *Extractor {
	return &Extractor{path: path, logger: logger}
}

// Path returns the container path this extractor was created with.
func (e *Extractor) Path() string {
	return e.path
}

// Validate ensures the container exists and is a regular file.
func (e *Extractor) Validate() error {
	info, err := os.Stat(e.path)
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("%w: %s", ErrNotFound, e.path)
		}
		return fmt.Errorf("stat container %s: %w", e.path, err)
	}
	if !info.Mode().IsRegular() {
		return fmt.Errorf("%w: %s", ErrInvalidSource, e.path)
	}
	return nil
}

// ListMembers returns metadata for every entry in the container.
func (e *Extractor) ListMembers() ([]Member, error) {
	if err := e.Validate(); err != nil {
		return nil, err
	}

	r, err := e.open()
	if err != nil {
		return nil, err
	}
	defer r.Close()

	members := make([]Member, 0, len(r.File))
	for _, f := range r.File {
		members = append(members, memberFromHeader(f))
	}

	e.logger.Info("indexed container entries", "path", e.path, "count", len(members))
	return members, nil
}

// OpenMember returns a sequentially-readable stream for a single member.
// The caller must close the stream; closing releases the container handle
// acquired for the read.
func (e *Extractor) OpenMember(name string) (io.ReadCloser, error) {
	if err := e.Validate(); err != nil {
		return nil, err
	}

	r, err := e.open()
	if err != nil {
		return nil, err
	}

	for _, f := range r.File {
		if f.Name != name {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			r.Close()
			return nil, fmt.Errorf("opening member %q: %w", name, err)
		}
		return &memberReader{member: rc, container: r}, nil
	}

	r.Close()
	return nil, fmt.Errorf("member %q not found in %s", name, e.path)
}

// ExtractSelected materializes the named members under destination,
// creating the directory if absent. Re-extraction overwrites existing
// files. Returns the paths of the extracted files.
func (e *Extractor) ExtractSelected(destination string, names []string) ([]string, error) {
	if len(names) == 0 {
		return nil, nil
	}

	if err := e.Validate(); err != nil {
		return nil, err
	}
	if err := os.MkdirAll(destination, 0755); err != nil {
		return nil, fmt.Errorf("creating destination directory: %w", err)
	}

	r, err := e.open()
	if err != nil {
		return nil, err
	}
	defer r.Close()

	byName := make(map[string]*zip.File, len(r.File))
	for _, f := range r.File {
		byName[f.Name] = f
	}

	extracted := make([]string, 0, len(names))
	for _, name := range names {
		f, ok := byName[name]
		if !ok {
			return extracted, fmt.Errorf("member %q not found in %s", name, e.path)
		}
		if !filepath.IsLocal(filepath.FromSlash(name)) {
			return extracted, fmt.Errorf("member name %q escapes the destination", name)
		}

		dest := filepath.Join(destination, filepath.FromSlash(name))
		if f.FileInfo().IsDir() {
			if err := os.MkdirAll(dest, 0755); err != nil {
				return extracted, fmt.Errorf("creating member directory: %w", err)
			}
			extracted = append(extracted, dest)
			continue
		}

		if err := extractFile(f, dest); err != nil {
			return extracted, fmt.Errorf("extracting member %q: %w", name, err)
		}
		extracted = append(extracted, dest)
	}

	return extracted, nil
}

// open opens the underlying zip archive, mapping format errors to
// ErrCorruptArchive.
func (e *Extractor) open() (*zip.ReadCloser, error) {
	r, err := zip.OpenReader(e.path)
	if err != nil {
		if errors.Is(err, zip.ErrFormat) {
			e.logger.Error("container is not a valid zip archive", "path", e.path)
			return nil, fmt.Errorf("%w: %s", ErrCorruptArchive, e.path)
		}
		return nil, fmt.Errorf("opening container %s: %w", e.path, err)
	}
	return r, nil
}

func memberFromHeader(f *zip.File) Member {
	var modified *time.Time
	if !f.Modified.IsZero() {
		t := f.Modified
		modified = &t
	}
	return Member{
		Name:           f.Name,
		Size:           f.UncompressedSize64,
		CompressedSize: f.CompressedSize64,
		IsDir:          f.FileInfo().IsDir(),
		Modified:       modified,
	}
}

func extractFile(f *zip.File, dest string) error {
	if err := os.MkdirAll(filepath.Dir(dest), 0755); err != nil {
		return fmt.Errorf("creating parent directory: %w", err)
	}

	src, err := f.Open()
	if err != nil {
		return fmt.Errorf("opening member stream: %w", err)
	}
	defer src.Close()

	out, err := os.Create(dest)
	if err != nil {
		return fmt.Errorf("creating destination file: %w", err)
	}

	if _, err := io.Copy(out, src); err != nil {
		out.Close()
		return fmt.Errorf("writing member content: %w", err)
	}
	return out.Close()
}

// memberReader couples a member's decompression stream with the container
// handle that backs it, so closing one releases both.
type memberReader struct {
	member    io.ReadCloser
	container *zip.ReadCloser
}

func (r *memberReader) Read(p []byte) (int, error) {
	return r.member.Read(p)
}

func (r *memberReader) Close() error {
	err := r.member.Close()
	if cerr := r.container.Close(); err == nil {
		err = cerr
	}
	return err
}

func lowerExt(name string) string {
	return strings.ToLower(filepath.Ext(name))
}
