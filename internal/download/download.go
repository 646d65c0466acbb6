// Package download fetches daily Blockchair dump files (TSV.GZ) over HTTP so
// they can be sampled locally.
//
// Dump files follow a fixed naming scheme:
//
//	blockchair_<coin>_<kind>_<YYYYMMDD>.tsv.gz
//
// served under <base-url>/<coin>/<kind>/<file>. Downloads go to a temporary
// file first and are renamed into place only on success, so a partially
// written file never looks complete to later runs.
package download

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"

	"ddlgen/internal/metrics"
)

// DefaultBaseURL is the public Blockchair dump host.
const DefaultBaseURL = "https://gz.blockchair.com"

// Options configures a Client.
type Options struct {
	// BaseURL defaults to DefaultBaseURL.
	BaseURL string

	// BaseDir is the local root; files land in <BaseDir>/<coin>/<kind>/.
	BaseDir string

	// Retries is the number of attempts per file. Defaults to 3.
	Retries int

	// RetryDelay is the base delay between attempts, doubled each retry.
	// Defaults to 2 seconds.
	RetryDelay time.Duration

	// SkipExisting skips files that already exist locally with size > 0.
	SkipExisting bool

	// httpDo is a test seam; production code leaves it nil and gets
	// http.DefaultClient.Do.
	httpDo func(req *http.Request) (*http.Response, error)

	// sleep is a test seam over time.Sleep.
	sleep func(d time.Duration)
}

// Client downloads dump files.
type Client struct {
	baseURL      string
	baseDir      string
	retries      int
	retryDelay   time.Duration
	skipExisting bool

	httpDo func(req *http.Request) (*http.Response, error)
	sleep  func(d time.Duration)

	log     zerolog.Logger
	metrics metrics.Backend
}

// NewClient builds a Client. A nil metrics backend is replaced with a no-op.
func NewClient(log zerolog.Logger, backend metrics.Backend, opts Options) *Client {
	if opts.BaseURL == "" {
		opts.BaseURL = DefaultBaseURL
	}
	if opts.Retries <= 0 {
		opts.Retries = 3
	}
	if opts.RetryDelay <= 0 {
		opts.RetryDelay = 2 * time.Second
	}
	if opts.httpDo == nil {
		opts.httpDo = http.DefaultClient.Do
	}
	if opts.sleep == nil {
		opts.sleep = time.Sleep
	}
	if backend == nil {
		backend = metrics.Noop{}
	}
	return &Client{
		baseURL:      opts.BaseURL,
		baseDir:      opts.BaseDir,
		retries:      opts.Retries,
		retryDelay:   opts.RetryDelay,
		skipExisting: opts.SkipExisting,
		httpDo:       opts.httpDo,
		sleep:        opts.sleep,
		log:          log,
		metrics:      backend,
	}
}

// FileName returns the dump file name for one coin, kind, and day.
func FileName(coin, kind string, day time.Time) string {
	return fmt.Sprintf("blockchair_%s_%s_%s.tsv.gz", coin, kind, day.Format("20060102"))
}

// URL returns the remote URL for one coin, kind, and day.
func (c *Client) URL(coin, kind string, day time.Time) string {
	return fmt.Sprintf("%s/%s/%s/%s", c.baseURL, coin, kind, FileName(coin, kind, day))
}

// LocalPath returns where FetchDay stores the file.
func (c *Client) LocalPath(coin, kind string, day time.Time) string {
	return filepath.Join(c.baseDir, coin, kind, FileName(coin, kind, day))
}

// FetchDay downloads one dump file and returns its local path. When
// SkipExisting is set and the file is already present, it returns the path
// with skipped=true and no network traffic.
func (c *Client) FetchDay(ctx context.Context, coin, kind string, day time.Time) (path string, skipped bool, err error) {
	path = c.LocalPath(coin, kind, day)

	if c.skipExisting {
		if fi, statErr := os.Stat(path); statErr == nil && fi.Size() > 0 {
			c.log.Info().Str("path", path).Msg("file already downloaded, skipping")
			return path, true, nil
		}
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", false, fmt.Errorf("create target dir: %w", err)
	}

	url := c.URL(coin, kind, day)
	start := time.Now()

	var lastErr error
	for attempt := 1; attempt <= c.retries; attempt++ {
		if err := ctx.Err(); err != nil {
			return "", false, err
		}
		if attempt > 1 {
			c.metrics.IncCounter(metrics.CounterDownloadRetries, 1)
			c.sleep(c.retryDelay << (attempt - 2))
		}

		lastErr = c.fetchOnce(ctx, url, path)
		if lastErr == nil {
			c.metrics.IncCounter(metrics.CounterFilesDownloaded, 1)
			c.metrics.ObserveDuration(metrics.DurationDownload, time.Since(start).Seconds())
			c.log.Info().Str("url", url).Str("path", path).Int("attempt", attempt).Msg("downloaded file")
			return path, false, nil
		}
		c.log.Warn().Err(lastErr).Str("url", url).Int("attempt", attempt).Msg("download attempt failed")
	}
	return "", false, fmt.Errorf("download %s: %w", url, lastErr)
}

func (c *Client) fetchOnce(ctx context.Context, url, path string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	resp, err := c.httpDo(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status %s", resp.Status)
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".tmp*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if _, err := io.Copy(tmp, resp.Body); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}

// FetchRange downloads the files for the given number of days ending
// yesterday (dumps for the current day are still being written upstream).
// It keeps going past per-day failures and returns the paths that succeeded
// plus the first error encountered, if any.
func (c *Client) FetchRange(ctx context.Context, coin string, kinds []string, days int, today time.Time) ([]string, error) {
	var paths []string
	var firstErr error

	for offset := 1; offset <= days; offset++ {
		day := today.AddDate(0, 0, -offset)
		for _, kind := range kinds {
			path, _, err := c.FetchDay(ctx, coin, kind, day)
			if err != nil {
				if firstErr == nil {
					firstErr = err
				}
				continue
			}
			paths = append(paths, path)
		}
	}
	return paths, firstErr
}
