package archive

import (
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
)

// FetchError reports a failed archive download. It carries the source URL
// so the caller can log what was being fetched.
type FetchError struct {
	URL string
	Err error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("fetch %s: %v", e.URL, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// EnsureArchive downloads url into dest unless dest already exists.
// The cached file is trusted as-is: no re-validation, no conditional GET,
// no retry. The download is written to a ".part" file and renamed into
// place only on full success, so a failed run never leaves a partial file
// at the canonical path.
func EnsureArchive(url, dest string) error {
	if _, err := os.Stat(dest); err == nil {
		return nil
	}

	if err := os.MkdirAll(filepath.Dir(dest), 0755); err != nil {
		return &FetchError{URL: url, Err: err}
	}

	resp, err := http.Get(url)
	if err != nil {
		return &FetchError{URL: url, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &FetchError{URL: url, Err: fmt.Errorf("unexpected status %s", resp.Status)}
	}

	tmp := dest + ".part"
	f, err := os.Create(tmp)
	if err != nil {
		return &FetchError{URL: url, Err: err}
	}

	if _, err := io.Copy(f, resp.Body); err != nil {
		f.Close()
		os.Remove(tmp)
		return &FetchError{URL: url, Err: err}
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return &FetchError{URL: url, Err: err}
	}

	if err := os.Rename(tmp, dest); err != nil {
		os.Remove(tmp)
		return &FetchError{URL: url, Err: err}
	}
	return nil
}
