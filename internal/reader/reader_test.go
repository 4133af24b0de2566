package reader_test

import (
	"archive/zip"
	"bytes"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"nutridb/internal/archive"
	"nutridb/internal/reader"
	"nutridb/internal/registry"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTableFile(t *testing.T, opts reader.Options, table string, data []byte) {
	t.Helper()
	dir := filepath.Join(opts.CacheDir, opts.Version)
	require.NoError(t, os.MkdirAll(dir, 0755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, table+".txt"), data, 0644))
}

// localOpts points at a cache with an unroutable source URL, so any
// accidental fetch fails loudly.
func localOpts(t *testing.T) reader.Options {
	t.Helper()
	return reader.Options{
		SourceURL: "http://127.0.0.1:1/sr28asc.zip",
		CacheDir:  t.TempDir(),
		Version:   "sr28",
	}
}

// quote wraps a value in the SR text format's tilde quoting.
func quote(s string) string {
	return "~" + strings.ReplaceAll(s, "~", "~~") + "~"
}

func TestOpenAndReadRows(t *testing.T) {
	opts := localOpts(t)
	writeTableFile(t, opts, "FD_GROUP", []byte(
		"~0100~^~Dairy and Egg Products~\r\n"+
			"~0200~^~Spices and Herbs~\r\n"+
			"~0300~^~Baby Foods~\r\n"))

	r, err := reader.Open("fd_group", opts)
	require.NoError(t, err)
	defer r.Close()

	assert.Equal(t, "FD_GROUP", r.Table())

	var rows []reader.Row
	for {
		row, err := r.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		require.NoError(t, err)
		rows = append(rows, row)
	}
	require.Len(t, rows, 3)

	// Row keys are the lower-cased schema columns, nothing more.
	for _, row := range rows {
		assert.Len(t, row, 2)
		assert.Contains(t, row, "fdgrp_cd")
		assert.Contains(t, row, "fdgrp_desc")
	}
	assert.Equal(t, "0100", rows[0]["fdgrp_cd"].String)
	assert.Equal(t, "Spices and Herbs", rows[1]["fdgrp_desc"].String)

	// Exhausted readers keep returning EOF.
	_, err = r.Next()
	assert.ErrorIs(t, err, io.EOF)
	_, err = r.Next()
	assert.ErrorIs(t, err, io.EOF)
}

func TestAdjacentDelimitersAreNull(t *testing.T) {
	opts := localOpts(t)
	writeTableFile(t, opts, "DATSRCLN", []byte("~01001~^^~D101~\r\n"))

	r, err := reader.Open("DATSRCLN", opts)
	require.NoError(t, err)
	defer r.Close()

	row, err := r.Next()
	require.NoError(t, err)
	assert.True(t, row["ndb_no"].Valid)
	assert.False(t, row["nutr_no"].Valid, "blank field must be null, not empty string")
	assert.Equal(t, "D101", row["datasrc_id"].String)
}

func TestEscapedTildeInQuotedField(t *testing.T) {
	opts := localOpts(t)
	writeTableFile(t, opts, "FD_GROUP", []byte("~0100~^~foo~~bar~\r\n"))

	r, err := reader.Open("FD_GROUP", opts)
	require.NoError(t, err)
	defer r.Close()

	row, err := r.Next()
	require.NoError(t, err)
	assert.Equal(t, "foo~bar", row["fdgrp_desc"].String)
}

func TestQuotedEmptyFieldIsNull(t *testing.T) {
	opts := localOpts(t)
	writeTableFile(t, opts, "FD_GROUP", []byte("~0100~^~~\r\n"))

	r, err := reader.Open("FD_GROUP", opts)
	require.NoError(t, err)
	defer r.Close()

	row, err := r.Next()
	require.NoError(t, err)
	assert.False(t, row["fdgrp_desc"].Valid)
}

func TestShortLineAbortsTable(t *testing.T) {
	opts := localOpts(t)
	writeTableFile(t, opts, "FD_GROUP", []byte(
		"~0100~^~Dairy and Egg Products~\r\n"+
			"~0200~\r\n"+
			"~0300~^~Baby Foods~\r\n"))

	r, err := reader.Open("FD_GROUP", opts)
	require.NoError(t, err)
	defer r.Close()

	_, err = r.Next()
	require.NoError(t, err)

	_, err = r.Next()
	require.Error(t, err)

	var parseErr *reader.ParseError
	require.ErrorAs(t, err, &parseErr)
	assert.Equal(t, "FD_GROUP", parseErr.Table)
	assert.Equal(t, 2, parseErr.Line)
	assert.Equal(t, "~0200~", parseErr.Raw)

	// No rows after the failure: the table read is abandoned.
	row, err := r.Next()
	assert.Nil(t, row)
	assert.Error(t, err)
}

func TestLenientSkipsMalformedRows(t *testing.T) {
	opts := localOpts(t)
	opts.Lenient = true
	writeTableFile(t, opts, "FD_GROUP", []byte(
		"~0100~^~Dairy and Egg Products~\r\n"+
			"garbage~line\r\n"+
			"~0300~^~Baby Foods~\r\n"))

	r, err := reader.Open("FD_GROUP", opts)
	require.NoError(t, err)
	defer r.Close()

	count := 0
	for {
		_, err := r.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		require.NoError(t, err)
		count++
	}
	assert.Equal(t, 2, count)
}

func TestUnknownTable(t *testing.T) {
	_, err := reader.Open("NOT_A_TABLE", localOpts(t))
	assert.ErrorIs(t, err, registry.ErrUnknownTable)
}

func TestCacheHitSkipsFetchAndExtract(t *testing.T) {
	// The source URL is unroutable: a present file must short-circuit
	// both the fetcher and the extractor.
	opts := localOpts(t)
	writeTableFile(t, opts, "SRC_CD", []byte("~1~^~Analytical data~\r\n"))

	r, err := reader.Open("SRC_CD", opts)
	require.NoError(t, err)
	defer r.Close()

	row, err := r.Next()
	require.NoError(t, err)
	assert.Equal(t, "1", row["src_cd"].String)
}

func TestHandleReleasedAfterExhaustion(t *testing.T) {
	opts := localOpts(t)
	writeTableFile(t, opts, "SRC_CD", []byte("~1~^~Analytical data~\r\n"))

	r, err := reader.Open("SRC_CD", opts)
	require.NoError(t, err)

	_, err = r.Next()
	require.NoError(t, err)
	_, err = r.Next()
	require.ErrorIs(t, err, io.EOF)

	// Close after exhaustion is a no-op, and a second reader can open
	// the same file immediately.
	assert.NoError(t, r.Close())

	again, err := reader.Open("SRC_CD", opts)
	require.NoError(t, err)
	defer again.Close()
	_, err = again.Next()
	assert.NoError(t, err)
}

func TestLatin1Decoding(t *testing.T) {
	opts := localOpts(t)
	// 0xE9 is 'é' in ISO-8859-1 and invalid as standalone UTF-8.
	writeTableFile(t, opts, "FD_GROUP", []byte{
		'~', '0', '1', '0', '0', '~', '^', '~', 'p', 'u', 'r', 0xE9, 'e', '~', '\r', '\n',
	})

	r, err := reader.Open("FD_GROUP", opts)
	require.NoError(t, err)
	defer r.Close()

	row, err := r.Next()
	require.NoError(t, err)
	assert.Equal(t, "purée", row["fdgrp_desc"].String)
}

func buildArchive(t *testing.T, entries map[string]string) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for name, content := range entries {
		w, err := zw.Create(name)
		require.NoError(t, err)
		_, err = w.Write([]byte(content))
		require.NoError(t, err)
	}
	require.NoError(t, zw.Close())
	return buf.Bytes()
}

func TestOpenMaterializesFromArchive(t *testing.T) {
	archiveBytes := buildArchive(t, map[string]string{
		"FD_GROUP.txt": "~0100~^~Dairy and Egg Products~\r\n",
		"SRC_CD.txt":   "~1~^~Analytical data~\r\n",
	})

	hits := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
		w.Write(archiveBytes)
	}))
	defer srv.Close()

	opts := reader.Options{
		SourceURL: srv.URL + "/sr28asc.zip",
		CacheDir:  t.TempDir(),
		Version:   "sr28",
	}

	r, err := reader.Open("FD_GROUP", opts)
	require.NoError(t, err)
	row, err := r.Next()
	require.NoError(t, err)
	assert.Equal(t, "0100", row["fdgrp_cd"].String)
	r.Close()

	// The second table was extracted alongside the first; no new fetch.
	r2, err := reader.Open("SRC_CD", opts)
	require.NoError(t, err)
	defer r2.Close()
	_, err = r2.Next()
	require.NoError(t, err)
	assert.Equal(t, 1, hits)
}

func TestCorruptArchiveIsEvicted(t *testing.T) {
	opts := localOpts(t)
	archivePath := filepath.Join(opts.CacheDir, "sr28asc.zip")
	require.NoError(t, os.MkdirAll(opts.CacheDir, 0755))
	require.NoError(t, os.WriteFile(archivePath, []byte("definitely not a zip"), 0644))

	_, err := reader.Open("FD_GROUP", opts)
	require.Error(t, err)

	var extractErr *archive.ExtractError
	require.ErrorAs(t, err, &extractErr)

	// The cached archive is presumed corrupt and evicted so the next
	// run re-fetches from source.
	_, statErr := os.Stat(archivePath)
	assert.True(t, os.IsNotExist(statErr))
}

func TestGeneratedRowsRoundTrip(t *testing.T) {
	faker := gofakeit.New(11)

	type srcRow struct{ code, desc string }
	var want []srcRow
	var buf bytes.Buffer
	for i := 0; i < 50; i++ {
		row := srcRow{
			code: fmt.Sprintf("%04d", i+1),
			desc: faker.Sentence(4) + " ~ " + faker.Word(),
		}
		want = append(want, row)
		fmt.Fprintf(&buf, "%s^%s\r\n", quote(row.code), quote(row.desc))
	}

	opts := localOpts(t)
	writeTableFile(t, opts, "FD_GROUP", buf.Bytes())

	r, err := reader.Open("FD_GROUP", opts)
	require.NoError(t, err)
	defer r.Close()

	for i := range want {
		row, err := r.Next()
		require.NoError(t, err, "row %d", i)
		assert.Equal(t, want[i].code, row["fdgrp_cd"].String)
		assert.Equal(t, want[i].desc, row["fdgrp_desc"].String)
	}
	_, err = r.Next()
	assert.ErrorIs(t, err, io.EOF)
}
