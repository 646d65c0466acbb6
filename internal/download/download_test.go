package download

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

var testDay = time.Date(2024, 5, 17, 0, 0, 0, 0, time.UTC)

func okResponse(body string) *http.Response {
	return &http.Response{
		StatusCode: http.StatusOK,
		Status:     "200 OK",
		Body:       io.NopCloser(bytes.NewBufferString(body)),
	}
}

func statusResponse(code int, status string) *http.Response {
	return &http.Response{
		StatusCode: code,
		Status:     status,
		Body:       io.NopCloser(bytes.NewBuffer(nil)),
	}
}

func TestFileNameAndURL(t *testing.T) {
	t.Parallel()

	c := NewClient(zerolog.Nop(), nil, Options{BaseDir: "/data"})

	wantName := "blockchair_bitcoin_transactions_20240517.tsv.gz"
	if got := FileName("bitcoin", "transactions", testDay); got != wantName {
		t.Errorf("FileName = %q, want %q", got, wantName)
	}
	wantURL := "https://gz.blockchair.com/bitcoin/transactions/" + wantName
	if got := c.URL("bitcoin", "transactions", testDay); got != wantURL {
		t.Errorf("URL = %q, want %q", got, wantURL)
	}
	wantPath := filepath.Join("/data", "bitcoin", "transactions", wantName)
	if got := c.LocalPath("bitcoin", "transactions", testDay); got != wantPath {
		t.Errorf("LocalPath = %q, want %q", got, wantPath)
	}
}

func TestFetchDayWritesFile(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	var gotURL string
	c := NewClient(zerolog.Nop(), nil, Options{
		BaseDir: dir,
		httpDo: func(req *http.Request) (*http.Response, error) {
			gotURL = req.URL.String()
			return okResponse("payload"), nil
		},
	})

	path, skipped, err := c.FetchDay(context.Background(), "bitcoin", "blocks", testDay)
	if err != nil {
		t.Fatalf("FetchDay: %v", err)
	}
	if skipped {
		t.Fatal("unexpected skip")
	}
	if gotURL != c.URL("bitcoin", "blocks", testDay) {
		t.Errorf("requested URL = %q", gotURL)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read downloaded file: %v", err)
	}
	if string(data) != "payload" {
		t.Errorf("file content = %q", data)
	}
}

func TestFetchDaySkipsExisting(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	c := NewClient(zerolog.Nop(), nil, Options{
		BaseDir:      dir,
		SkipExisting: true,
		httpDo: func(req *http.Request) (*http.Response, error) {
			t.Fatal("no request expected for existing file")
			return nil, nil
		},
	})

	path := c.LocalPath("bitcoin", "blocks", testDay)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte("existing"), 0o644); err != nil {
		t.Fatal(err)
	}

	got, skipped, err := c.FetchDay(context.Background(), "bitcoin", "blocks", testDay)
	if err != nil {
		t.Fatalf("FetchDay: %v", err)
	}
	if !skipped || got != path {
		t.Errorf("skipped=%v path=%q", skipped, got)
	}
}

func TestFetchDayRetriesThenSucceeds(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	attempts := 0
	var slept []time.Duration
	c := NewClient(zerolog.Nop(), nil, Options{
		BaseDir:    dir,
		Retries:    3,
		RetryDelay: time.Second,
		httpDo: func(req *http.Request) (*http.Response, error) {
			attempts++
			if attempts < 3 {
				return statusResponse(503, "503 Service Unavailable"), nil
			}
			return okResponse("late but fine"), nil
		},
		sleep: func(d time.Duration) { slept = append(slept, d) },
	})

	if _, _, err := c.FetchDay(context.Background(), "bitcoin", "outputs", testDay); err != nil {
		t.Fatalf("FetchDay: %v", err)
	}
	if attempts != 3 {
		t.Errorf("attempts = %d, want 3", attempts)
	}
	// Backoff doubles between attempts.
	if len(slept) != 2 || slept[0] != time.Second || slept[1] != 2*time.Second {
		t.Errorf("sleeps = %v", slept)
	}
}

func TestFetchDayExhaustsRetries(t *testing.T) {
	t.Parallel()

	boom := errors.New("connection refused")
	c := NewClient(zerolog.Nop(), nil, Options{
		BaseDir: t.TempDir(),
		Retries: 2,
		httpDo:  func(req *http.Request) (*http.Response, error) { return nil, boom },
		sleep:   func(time.Duration) {},
	})

	_, _, err := c.FetchDay(context.Background(), "bitcoin", "outputs", testDay)
	if !errors.Is(err, boom) {
		t.Fatalf("err = %v, want wrapped %v", err, boom)
	}
}

func TestFetchRangeContinuesPastFailures(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	c := NewClient(zerolog.Nop(), nil, Options{
		BaseDir: dir,
		Retries: 1,
		httpDo: func(req *http.Request) (*http.Response, error) {
			if filepath.Base(req.URL.Path) == FileName("bitcoin", "blocks", testDay.AddDate(0, 0, -1)) {
				return statusResponse(404, "404 Not Found"), nil
			}
			return okResponse("ok"), nil
		},
		sleep: func(time.Duration) {},
	})

	paths, err := c.FetchRange(context.Background(), "bitcoin", []string{"blocks"}, 2, testDay)
	if err == nil {
		t.Fatal("expected first error to surface")
	}
	if len(paths) != 1 {
		t.Fatalf("paths = %v, want one success", paths)
	}
}
