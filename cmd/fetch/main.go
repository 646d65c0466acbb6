// Command fetch downloads daily Blockchair dump files so ddlgen can sample
// them locally.
//
// Usage:
//
//	fetch [flags] <coin>
//
// By default it fetches yesterday's files for the configured dump types.
// With -days N it walks the last N days ending yesterday (the current day's
// dumps are still being written upstream). Failed days are logged and
// skipped so one missing file does not abort a backfill.
//
// With -list the command instead scrapes the remote index page and prints
// every dump file it offers, without downloading anything.
//
// Exit codes
//
//	0  all requested files fetched (or listed)
//	1  invalid arguments
//	5  one or more downloads failed
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"ddlgen/internal/catalog"
	"ddlgen/internal/download"
	"ddlgen/internal/logging"
	"ddlgen/internal/metrics"
	"ddlgen/internal/metrics/datadog"
)

const version = "1.3.0"

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	fs := flag.NewFlagSet("fetch", flag.ContinueOnError)

	var (
		flagDays    = fs.Int("days", 1, "Number of days to fetch, ending yesterday")
		flagTypes   = fs.String("types", "transactions", "Dump types to fetch, comma separated (e.g. transactions,outputs)")
		flagBaseURL = fs.String("base-url", download.DefaultBaseURL, "Dump server base URL")
		flagBaseDir = fs.String("base-dir", "data", "Local directory for downloaded files")

		flagSkipExisting = fs.Bool("skip-existing", true, "Skip files that were already downloaded")
		flagRetries      = fs.Int("retries", 3, "Download attempts per file")

		flagList = fs.Bool("list", false, "List the files offered by the remote index instead of downloading")

		flagLogLevel  = fs.String("log-level", "info", "Log level: debug, info, warn, error")
		flagLogDir    = fs.String("log-dir", "", "Directory for the daily JSON log file (disabled when empty)")
		flagNoConsole = fs.Bool("no-console-logs", false, "Disable console log output")

		flagMetrics = fs.Bool("metrics", false, "Submit download metrics to Datadog (DD_API_KEY must be set)")
	)

	if err := fs.Parse(args); err != nil {
		return 1
	}
	if fs.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "usage: fetch [flags] <coin>")
		fs.PrintDefaults()
		return 1
	}
	coin := fs.Arg(0)

	kinds := splitNonEmpty(*flagTypes)
	if len(kinds) == 0 {
		fmt.Fprintln(os.Stderr, "fetch: -types must name at least one dump type")
		return 1
	}

	log, _, logCloser, err := logging.New(logging.Options{
		Script:  "fetch",
		Version: version,
		Level:   *flagLogLevel,
		Dir:     *flagLogDir,
		Console: !*flagNoConsole,
	})
	if err != nil {
		fmt.Fprintln(os.Stderr, "fetch:", err)
		return 1
	}
	if logCloser != nil {
		defer logCloser.Close()
	}

	ctx := context.Background()

	if *flagList {
		for _, kind := range kinds {
			entries, err := catalog.List(ctx, *flagBaseURL, coin, kind)
			if err != nil {
				log.Error().Err(err).Str("kind", kind).Msg("listing remote index failed")
				return 5
			}
			for _, e := range entries {
				fmt.Printf("%s\t%s\n", e.Date.Format("2006-01-02"), e.URL)
			}
		}
		return 0
	}

	var backend metrics.Backend = metrics.Noop{}
	if *flagMetrics {
		dd, err := datadog.NewBackend(ctx, datadog.Options{JobName: "fetch", Tags: []string{"coin:" + coin}})
		if err != nil {
			log.Error().Err(err).Msg("initializing metrics failed")
			return 1
		}
		defer func() {
			closeCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			if err := dd.Close(closeCtx); err != nil {
				log.Warn().Err(err).Msg("flushing metrics failed")
			}
		}()
		backend = dd
	}

	client := download.NewClient(log, backend, download.Options{
		BaseURL:      *flagBaseURL,
		BaseDir:      *flagBaseDir,
		Retries:      *flagRetries,
		SkipExisting: *flagSkipExisting,
	})

	paths, err := client.FetchRange(ctx, coin, kinds, *flagDays, time.Now().UTC())
	for _, p := range paths {
		fmt.Println(p)
	}
	if err != nil {
		log.Error().Err(err).Msg("one or more downloads failed")
		return 5
	}
	return 0
}

func splitNonEmpty(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
