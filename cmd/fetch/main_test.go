package main

import (
	"net/http"
	"net/http/httptest"
	"reflect"
	"testing"
)

func TestSplitNonEmpty(t *testing.T) {
	t.Parallel()

	cases := []struct {
		in   string
		want []string
	}{
		{"transactions", []string{"transactions"}},
		{"transactions,outputs", []string{"transactions", "outputs"}},
		{" transactions , outputs ", []string{"transactions", "outputs"}},
		{",,", nil},
		{"", nil},
	}
	for _, tc := range cases {
		if got := splitNonEmpty(tc.in); !reflect.DeepEqual(got, tc.want) {
			t.Errorf("splitNonEmpty(%q) = %v, want %v", tc.in, got, tc.want)
		}
	}
}

func TestRunArgValidation(t *testing.T) {
	if code := run([]string{"-no-console-logs"}); code != 1 {
		t.Errorf("missing coin exit code = %d, want 1", code)
	}
	if code := run([]string{"-types", " , ", "-no-console-logs", "bitcoin"}); code != 1 {
		t.Errorf("empty types exit code = %d, want 1", code)
	}
}

func TestRunDownloadsFiles(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("dump bytes"))
	}))
	defer srv.Close()

	dir := t.TempDir()
	code := run([]string{
		"-base-url", srv.URL,
		"-base-dir", dir,
		"-days", "2",
		"-types", "blocks",
		"-no-console-logs",
		"bitcoin",
	})
	if code != 0 {
		t.Fatalf("exit code = %d, want 0", code)
	}
}

func TestRunListMode(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/bitcoin/blocks/" {
			http.NotFound(w, r)
			return
		}
		w.Write([]byte(`<html><body>
<a href="blockchair_bitcoin_blocks_20240516.tsv.gz">x</a>
</body></html>`))
	}))
	defer srv.Close()

	code := run([]string{
		"-base-url", srv.URL,
		"-types", "blocks",
		"-list",
		"-no-console-logs",
		"bitcoin",
	})
	if code != 0 {
		t.Fatalf("exit code = %d, want 0", code)
	}
}

func TestRunDownloadFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	defer srv.Close()

	code := run([]string{
		"-base-url", srv.URL,
		"-base-dir", t.TempDir(),
		"-types", "blocks",
		"-retries", "1",
		"-no-console-logs",
		"bitcoin",
	})
	if code != 5 {
		t.Fatalf("exit code = %d, want 5", code)
	}
}
