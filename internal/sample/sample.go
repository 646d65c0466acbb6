// Package sample reads a bounded prefix of a delimited source file into an
// in-memory tabular sample for type inference.
//
// Sampling is bounded and blocking: at most SampleRows rows are materialized
// regardless of source size, read in chunks of ChunkRows records, so memory
// stays flat even for multi-gigabyte dumps. A sample is created per
// invocation and discarded after inference; it is never persisted.
package sample

import (
	"compress/gzip"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
)

var (
	// ErrUnknownColumn indicates a selected-columns filter naming a header
	// that does not exist in the source. This is a configuration error, not
	// a silent no-op.
	ErrUnknownColumn = errors.New("sample: selected column not in header")

	// ErrNoHeader indicates a source with no header row at all.
	ErrNoHeader = errors.New("sample: source has no header row")
)

// Options control how much of the source is read and which columns are kept.
type Options struct {
	// SampleRows is the maximum number of data rows to materialize. Must be > 0.
	SampleRows int

	// ChunkRows is the number of records read per chunk while accumulating
	// toward SampleRows. Must be > 0.
	ChunkRows int

	// UseCols optionally restricts the sample to these original header
	// strings. Empty means all columns. A name not present in the source
	// header fails with ErrUnknownColumn.
	UseCols []string
}

// Sample is a bounded in-memory prefix of a source file.
//
// Rows are positionally aligned with Headers: Rows[r][c] is the raw cell
// value for Headers[c]. Headers keep their original, pre-normalization form.
type Sample struct {
	Headers []string
	Rows    [][]string
}

// Column returns every cell value of column i, in row order.
func (s *Sample) Column(i int) []string {
	out := make([]string, 0, len(s.Rows))
	for _, r := range s.Rows {
		out = append(out, r[i])
	}
	return out
}

// Read samples the tab-separated file at path.
//
// A path ending in ".gz" is decompressed transparently; detection is by file
// extension, not magic bytes, so callers must name files correctly. Records
// whose field count does not match the header are skipped (sampling is
// best-effort, matching the rest of the probing pipeline). A source with a
// header but zero data rows yields a Sample with headers and no rows.
func Read(path string, opts Options) (*Sample, error) {
	if opts.SampleRows <= 0 {
		return nil, fmt.Errorf("sample: sample rows must be > 0, got %d", opts.SampleRows)
	}
	if opts.ChunkRows <= 0 {
		return nil, fmt.Errorf("sample: chunk rows must be > 0, got %d", opts.ChunkRows)
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("sample: open source: %w", err)
	}
	defer f.Close()

	var src io.Reader = f
	if strings.HasSuffix(path, ".gz") {
		gz, err := gzip.NewReader(f)
		if err != nil {
			return nil, fmt.Errorf("sample: gzip reader: %w", err)
		}
		defer gz.Close()
		src = gz
	}

	s, err := read(src, opts)
	if err != nil {
		return nil, err
	}
	return s, nil
}

func read(src io.Reader, opts Options) (*Sample, error) {
	r := csv.NewReader(src)
	r.Comma = '\t'
	r.FieldsPerRecord = -1 // alignment is validated manually
	r.LazyQuotes = true

	headers, err := r.Read()
	if err != nil {
		if err == io.EOF {
			return nil, ErrNoHeader
		}
		return nil, fmt.Errorf("sample: read header: %w", err)
	}
	for i := range headers {
		headers[i] = strings.TrimSpace(headers[i])
	}

	rows := make([][]string, 0, opts.SampleRows)
	for len(rows) < opts.SampleRows {
		n, done, err := readChunk(r, len(headers), opts.ChunkRows, &rows)
		if err != nil {
			return nil, err
		}
		if done || n == 0 {
			break
		}
	}
	if len(rows) > opts.SampleRows {
		rows = rows[:opts.SampleRows]
	}

	s := &Sample{Headers: headers, Rows: rows}
	if len(opts.UseCols) > 0 {
		return s.project(opts.UseCols)
	}
	return s, nil
}

// readChunk reads up to chunkRows records, appending aligned rows to dst.
// It returns the number of records consumed and whether the source ended.
func readChunk(r *csv.Reader, width, chunkRows int, dst *[][]string) (int, bool, error) {
	read := 0
	for read < chunkRows {
		rec, err := r.Read()
		if err != nil {
			if err == io.EOF {
				return read, true, nil
			}
			return read, false, fmt.Errorf("sample: read record: %w", err)
		}
		read++
		if len(rec) != width {
			continue
		}
		for i := range rec {
			rec[i] = strings.TrimSpace(rec[i])
		}
		*dst = append(*dst, rec)
	}
	return read, false, nil
}

// project restricts the sample to the selected original headers. Kept
// columns stay in source order regardless of the order of the selection.
func (s *Sample) project(useCols []string) (*Sample, error) {
	wanted := make(map[string]bool, len(useCols))
	for _, c := range useCols {
		wanted[c] = true
	}

	keep := make([]int, 0, len(useCols))
	for i, h := range s.Headers {
		if wanted[h] {
			keep = append(keep, i)
			delete(wanted, h)
		}
	}
	for c := range wanted {
		return nil, fmt.Errorf("%w: %q", ErrUnknownColumn, c)
	}

	out := &Sample{
		Headers: make([]string, 0, len(keep)),
		Rows:    make([][]string, 0, len(s.Rows)),
	}
	for _, i := range keep {
		out.Headers = append(out.Headers, s.Headers[i])
	}
	for _, row := range s.Rows {
		pr := make([]string, 0, len(keep))
		for _, i := range keep {
			pr = append(pr, row[i])
		}
		out.Rows = append(out.Rows, pr)
	}
	return out, nil
}
