package sample

import (
	"compress/gzip"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

func writeGzip(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("create %s: %v", name, err)
	}
	gz := gzip.NewWriter(f)
	if _, err := gz.Write([]byte(content)); err != nil {
		t.Fatalf("gzip write: %v", err)
	}
	if err := gz.Close(); err != nil {
		t.Fatalf("gzip close: %v", err)
	}
	if err := f.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	return path
}

func defaultOpts() Options {
	return Options{SampleRows: 100, ChunkRows: 10}
}

func TestReadPlainTSV(t *testing.T) {
	t.Parallel()

	path := writeFile(t, "data.tsv", "id\tname\n1\talice\n2\tbob\n")
	s, err := Read(path, defaultOpts())
	if err != nil {
		t.Fatalf("Read: %v", err)
	}

	if !reflect.DeepEqual(s.Headers, []string{"id", "name"}) {
		t.Errorf("headers = %v", s.Headers)
	}
	want := [][]string{{"1", "alice"}, {"2", "bob"}}
	if !reflect.DeepEqual(s.Rows, want) {
		t.Errorf("rows = %v, want %v", s.Rows, want)
	}
	if got := s.Column(1); !reflect.DeepEqual(got, []string{"alice", "bob"}) {
		t.Errorf("Column(1) = %v", got)
	}
}

func TestReadGzip(t *testing.T) {
	t.Parallel()

	path := writeGzip(t, "data.tsv.gz", "a\tb\nx\ty\n")
	s, err := Read(path, defaultOpts())
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if len(s.Rows) != 1 || s.Rows[0][1] != "y" {
		t.Errorf("rows = %v", s.Rows)
	}
}

func TestReadGzipByExtensionOnly(t *testing.T) {
	t.Parallel()

	// A .gz name with plain content must fail: detection is by extension.
	path := writeFile(t, "data.tsv.gz", "a\tb\nx\ty\n")
	if _, err := Read(path, defaultOpts()); err == nil {
		t.Fatal("expected gzip error for mislabeled plain file")
	}
}

func TestReadSkipsMisalignedRows(t *testing.T) {
	t.Parallel()

	path := writeFile(t, "data.tsv", strings.Join([]string{
		"a\tb\tc",
		"1\t2\t3",
		"too\tfew",
		"way\ttoo\tmany\tfields",
		"4\t5\t6",
	}, "\n")+"\n")

	s, err := Read(path, defaultOpts())
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	want := [][]string{{"1", "2", "3"}, {"4", "5", "6"}}
	if !reflect.DeepEqual(s.Rows, want) {
		t.Errorf("rows = %v, want %v", s.Rows, want)
	}
}

func TestReadBoundsSampleAcrossChunks(t *testing.T) {
	t.Parallel()

	var b strings.Builder
	b.WriteString("n\n")
	for i := 0; i < 50; i++ {
		fmt.Fprintf(&b, "%d\n", i)
	}
	path := writeFile(t, "data.tsv", b.String())

	// Chunk size deliberately not a divisor of the sample target.
	s, err := Read(path, Options{SampleRows: 7, ChunkRows: 3})
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if len(s.Rows) != 7 {
		t.Errorf("rows = %d, want 7", len(s.Rows))
	}
	if s.Rows[6][0] != "6" {
		t.Errorf("last sampled value = %q, want \"6\"", s.Rows[6][0])
	}
}

func TestReadHeaderOnly(t *testing.T) {
	t.Parallel()

	path := writeFile(t, "data.tsv", "a\tb\n")
	s, err := Read(path, defaultOpts())
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if len(s.Headers) != 2 || len(s.Rows) != 0 {
		t.Errorf("headers=%v rows=%v", s.Headers, s.Rows)
	}
}

func TestReadEmptyFile(t *testing.T) {
	t.Parallel()

	path := writeFile(t, "data.tsv", "")
	if _, err := Read(path, defaultOpts()); !errors.Is(err, ErrNoHeader) {
		t.Fatalf("err = %v, want ErrNoHeader", err)
	}
}

func TestReadValidatesOptions(t *testing.T) {
	t.Parallel()

	path := writeFile(t, "data.tsv", "a\n1\n")
	if _, err := Read(path, Options{SampleRows: 0, ChunkRows: 10}); err == nil {
		t.Error("expected error for zero sample rows")
	}
	if _, err := Read(path, Options{SampleRows: 10, ChunkRows: 0}); err == nil {
		t.Error("expected error for zero chunk rows")
	}
}

func TestUseColsKeepsSourceOrder(t *testing.T) {
	t.Parallel()

	path := writeFile(t, "data.tsv", "a\tb\tc\n1\t2\t3\n")
	opts := defaultOpts()
	opts.UseCols = []string{"c", "a"} // selection order differs from source order

	s, err := Read(path, opts)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if !reflect.DeepEqual(s.Headers, []string{"a", "c"}) {
		t.Errorf("headers = %v, want [a c]", s.Headers)
	}
	if !reflect.DeepEqual(s.Rows, [][]string{{"1", "3"}}) {
		t.Errorf("rows = %v", s.Rows)
	}
}

func TestUseColsUnknownColumn(t *testing.T) {
	t.Parallel()

	path := writeFile(t, "data.tsv", "a\tb\n1\t2\n")
	opts := defaultOpts()
	opts.UseCols = []string{"a", "nope"}

	if _, err := Read(path, opts); !errors.Is(err, ErrUnknownColumn) {
		t.Fatalf("err = %v, want ErrUnknownColumn", err)
	}
}

func TestReadTrimsWhitespace(t *testing.T) {
	t.Parallel()

	path := writeFile(t, "data.tsv", " a \t b \n 1 \t x \n")
	s, err := Read(path, defaultOpts())
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if !reflect.DeepEqual(s.Headers, []string{"a", "b"}) {
		t.Errorf("headers = %v", s.Headers)
	}
	if !reflect.DeepEqual(s.Rows[0], []string{"1", "x"}) {
		t.Errorf("row = %v", s.Rows[0])
	}
}
