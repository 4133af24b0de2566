package archive

import (
	"archive/zip"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// ExtractError reports a corrupt or unreadable archive. The caller's
// recovery policy is to evict the cached archive and fail the run; the
// next run will re-fetch. The extractor itself never deletes or re-fetches.
type ExtractError struct {
	Path string
	Err  error
}

func (e *ExtractError) Error() string {
	return fmt.Sprintf("extract %s: %v", e.Path, e.Err)
}

func (e *ExtractError) Unwrap() error { return e.Err }

// Extract unpacks every entry of the zip at archivePath into destDir,
// preserving entry names under that directory. Checksum mismatches and
// truncated archives surface as *ExtractError.
func Extract(archivePath, destDir string) error {
	zr, err := zip.OpenReader(archivePath)
	if err != nil {
		return &ExtractError{Path: archivePath, Err: err}
	}
	defer zr.Close()

	if err := os.MkdirAll(destDir, 0755); err != nil {
		return &ExtractError{Path: archivePath, Err: err}
	}

	for _, entry := range zr.File {
		if err := extractEntry(entry, destDir); err != nil {
			return &ExtractError{Path: archivePath, Err: err}
		}
	}
	return nil
}

func extractEntry(entry *zip.File, destDir string) error {
	// Reject entries that would escape the destination directory.
	target := filepath.Join(destDir, filepath.FromSlash(entry.Name))
	if !strings.HasPrefix(target, filepath.Clean(destDir)+string(os.PathSeparator)) {
		return fmt.Errorf("entry %q escapes destination directory", entry.Name)
	}

	if entry.FileInfo().IsDir() {
		return os.MkdirAll(target, 0755)
	}

	if err := os.MkdirAll(filepath.Dir(target), 0755); err != nil {
		return err
	}

	rc, err := entry.Open()
	if err != nil {
		return fmt.Errorf("entry %q: %w", entry.Name, err)
	}
	defer rc.Close()

	f, err := os.Create(target)
	if err != nil {
		return err
	}

	// CRC mismatches on truncated archives show up here as copy errors.
	if _, err := io.Copy(f, rc); err != nil {
		f.Close()
		os.Remove(target)
		return fmt.Errorf("entry %q: %w", entry.Name, err)
	}
	return f.Close()
}
