// Package csvio reads and writes the delimited files exchanged between stages.
package csvio

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/gocarina/gocsv"

	"github.com/cobrasdm/sightings-etl/internal/domain"
)

// ReadHeader returns the trimmed column names of the file at path.
func ReadHeader(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()
	return readHeader(csv.NewReader(f), path)
}

func readHeader(r *csv.Reader, path string) ([]string, error) {
	header, err := r.Read()
	if errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("%s: empty file", path)
	}
	if err != nil {
		return nil, fmt.Errorf("read header of %s: %w", path, err)
	}
	for i, h := range header {
		header[i] = strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))
	}
	return header, nil
}

// ReadRows validates that the file at path has every required column and
// decodes its rows into T. Columns T does not declare are ignored. A missing
// column yields a *domain.SchemaError before any row is decoded.
func ReadRows[T any](path string, required []string) ([]T, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	header, err := readHeader(r, path)
	if err != nil {
		return nil, err
	}
	if err := domain.RequireColumns(path, header, required); err != nil {
		return nil, err
	}

	var rows []T
	if err := gocsv.UnmarshalCSV(&headerReader{header: header, r: r}, &rows); err != nil && !errors.Is(err, gocsv.ErrEmptyCSVFile) {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	return rows, nil
}

// headerReader replays an already consumed, cleaned header before the rest
// of the records.
type headerReader struct {
	header []string
	r      *csv.Reader
	done   bool
}

func (h *headerReader) Read() ([]string, error) {
	if !h.done {
		h.done = true
		return h.header, nil
	}
	return h.r.Read()
}

func (h *headerReader) ReadAll() ([][]string, error) {
	var out [][]string
	for {
		rec, err := h.Read()
		if errors.Is(err, io.EOF) {
			return out, nil
		}
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
}

// CheckColumns validates the header of every path against required without
// decoding any rows.
func CheckColumns(required []string, paths ...string) error {
	for _, p := range paths {
		header, err := ReadHeader(p)
		if err != nil {
			return err
		}
		if err := domain.RequireColumns(p, header, required); err != nil {
			return err
		}
	}
	return nil
}

// WriteRows encodes rows to path with a header row. The file is written to
// a temporary sibling and renamed into place, so a failed write never leaves
// a partial output.
func WriteRows[T any](path string, rows []T) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if rows == nil {
		rows = []T{}
	}
	if err := gocsv.MarshalFile(&rows, tmp); err != nil {
		tmp.Close()
		return fmt.Errorf("encode %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close %s: %w", path, err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("rename into %s: %w", path, err)
	}
	return nil
}
