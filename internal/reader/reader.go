// Package reader parses the extracted Standard Reference table files into
// rows keyed by column name. Opening a table materializes its file on
// demand: a missing file triggers the archive fetcher and extractor first.
package reader

import (
	"bufio"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"log"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"

	"nutridb/internal/archive"
	"nutridb/internal/registry"

	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/transform"
)

// Row maps lower-cased column names to field values. Blank source fields
// carry Valid=false. Each row is freshly allocated and owned by the caller.
type Row map[string]sql.NullString

// Options locate the dataset on disk and on the network.
type Options struct {
	SourceURL string // archive download URL
	CacheDir  string // cache root; archive lands directly under it
	Version   string // dataset version, the extraction subdirectory (e.g. "sr28")

	// Lenient makes malformed rows log-and-skip instead of aborting the
	// table. Off by default: the upstream loader fails fast.
	Lenient bool
}

// ParseError reports a malformed row. The whole table read is abandoned;
// no partial row is produced for the offending line.
type ParseError struct {
	Table string
	Line  int
	Raw   string
	Err   error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse %s line %d: %v (row: %q)", e.Table, e.Line, e.Err, e.Raw)
}

func (e *ParseError) Unwrap() error { return e.Err }

// TableReader produces the rows of one table. Each reader exclusively owns
// its file handle; the handle is released on EOF, on parse error, and via
// Close, whichever comes first.
type TableReader struct {
	table     string
	cols      []string // lower-cased, in schema order
	file      *os.File
	scanner   *bufio.Scanner
	line      int
	exhausted bool
	lenient   bool
}

// Open resolves the table's extracted text file, fetching and extracting
// the archive if the file is absent, and binds a parser to the table's
// column schema. An unknown table name is fatal.
func Open(table string, opts Options) (*TableReader, error) {
	canon, err := registry.Canonical(table)
	if err != nil {
		return nil, fmt.Errorf("open table %q: %w", table, err)
	}
	cols, _ := registry.Columns(canon)

	filePath := filepath.Join(opts.CacheDir, opts.Version, canon+".txt")
	if _, err := os.Stat(filePath); err != nil {
		if err := Materialize(opts); err != nil {
			return nil, err
		}
	}

	f, err := os.Open(filePath)
	if err != nil {
		return nil, fmt.Errorf("open table file for %s: %w", canon, err)
	}

	// The upstream files are ISO-8859-1, not UTF-8.
	dec := transform.NewReader(f, charmap.ISO8859_1.NewDecoder())
	sc := bufio.NewScanner(dec)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	lower := make([]string, len(cols))
	for i, c := range cols {
		lower[i] = strings.ToLower(c)
	}

	return &TableReader{
		table:   canon,
		cols:    lower,
		file:    f,
		scanner: sc,
		lenient: opts.Lenient,
	}, nil
}

// Materialize downloads and extracts the archive so the per-table text
// files exist under <cache>/<version>/. Cache hits on both the archive and
// the extracted files short-circuit. On extraction failure the cached
// archive is presumed corrupt and evicted, so the next run re-fetches.
func Materialize(opts Options) error {
	archivePath := filepath.Join(opts.CacheDir, archiveFileName(opts.SourceURL))
	if err := archive.EnsureArchive(opts.SourceURL, archivePath); err != nil {
		return err
	}

	destDir := filepath.Join(opts.CacheDir, opts.Version)
	if err := archive.Extract(archivePath, destDir); err != nil {
		var xerr *archive.ExtractError
		if errors.As(err, &xerr) {
			log.Printf("Warning: evicting corrupt archive %s", archivePath)
			os.Remove(archivePath)
		}
		return err
	}
	return nil
}

func archiveFileName(source string) string {
	if u, err := url.Parse(source); err == nil && u.Path != "" {
		if base := path.Base(u.Path); base != "." && base != "/" {
			return base
		}
	}
	return "archive.zip"
}

// Table returns the canonical table name.
func (r *TableReader) Table() string { return r.table }

// Columns returns the lower-cased column names in schema order, matching
// the key set of every emitted Row.
func (r *TableReader) Columns() []string {
	out := make([]string, len(r.cols))
	copy(out, r.cols)
	return out
}

// Next returns the next parsed row. At end of input it releases the file
// handle and returns io.EOF; further calls keep returning io.EOF.
func (r *TableReader) Next() (Row, error) {
	if r.exhausted {
		return nil, io.EOF
	}

	for r.scanner.Scan() {
		r.line++
		raw := r.scanner.Text()

		fields, err := splitFields(raw)
		if err == nil && len(fields) != len(r.cols) {
			err = fmt.Errorf("expected %d fields, got %d", len(r.cols), len(fields))
		}
		if err != nil {
			if r.lenient {
				log.Printf("Warning: %s line %d: %v, skipping row %q", r.table, r.line, err, raw)
				continue
			}
			r.Close()
			return nil, &ParseError{Table: r.table, Line: r.line, Raw: raw, Err: err}
		}

		row := make(Row, len(r.cols))
		for i, c := range r.cols {
			row[c] = fields[i]
		}
		return row, nil
	}

	if err := r.scanner.Err(); err != nil {
		r.Close()
		return nil, fmt.Errorf("read %s line %d: %w", r.table, r.line, err)
	}

	r.Close()
	r.exhausted = true
	return nil, io.EOF
}

// Close releases the underlying file handle. Safe to call repeatedly and
// after exhaustion.
func (r *TableReader) Close() error {
	if r.file == nil {
		return nil
	}
	err := r.file.Close()
	r.file = nil
	return err
}
