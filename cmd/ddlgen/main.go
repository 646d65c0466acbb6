// Command ddlgen infers a table schema from a sampled TSV (or TSV.GZ) file
// and emits a Snowflake CREATE OR REPLACE TABLE statement.
//
// Usage:
//
//	ddlgen [flags] <file.tsv[.gz]> <table-name>
//
// The inference configuration (string tiers, date and timestamp layouts,
// optional column selection) comes from a JSON file passed via -config.
//
// Outputs
//
//   - Default: the DDL statement is printed to stdout.
//   - -output-ddl <path>: the DDL is written to the given file instead of
//     stdout.
//   - -output-schema-json <path>: a JSON sidecar with the inferred columns is
//     written, enabling exact schema comparison on later runs.
//
// Schema evolution
//
// With -skip-existing, a previously generated schema (the JSON sidecar when
// present, otherwise the DDL file) guards regeneration: the new schema only
// replaces the old one when at least one shared column strictly widened and
// none narrowed. A rejected replacement exits 1 without touching the outputs.
//
// Publishing
//
// With -publish <kind> and -dsn, the inferred schema is additionally applied
// to a live database ("postgres", "mssql", or "sqlite"), dropping and
// recreating the table there.
//
// Exit codes
//
//	0  DDL generated (and published, if requested)
//	1  invalid input, or replacement rejected by the evolution guard
//	2  configuration error
//	5  empty schema or unexpected execution error
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"ddlgen/internal/config"
	"ddlgen/internal/generate"
	"ddlgen/internal/logging"
	"ddlgen/internal/metrics"
	"ddlgen/internal/metrics/datadog"
	"ddlgen/internal/publish"
	_ "ddlgen/internal/publish/mssql"
	_ "ddlgen/internal/publish/postgres"
	_ "ddlgen/internal/publish/sqlite"
)

const version = "1.3.0"

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	fs := flag.NewFlagSet("ddlgen", flag.ContinueOnError)

	var (
		flagConfig = fs.String("config", "", "Path to the JSON inference config (required)")

		// Sampling is bounded so multi-gigabyte dump files stay cheap to
		// process: rows are read in chunks until the sample target is met.
		flagSampleRows = fs.Int("sample-rows", 1000, "Number of data rows to sample")
		flagChunkSize  = fs.Int("chunk-size", 10000, "Rows read per chunk while sampling")

		flagOutputDDL  = fs.String("output-ddl", "", "Write the DDL statement to this file")
		flagOutputJSON = fs.String("output-schema-json", "", "Write the inferred schema as JSON to this file")

		flagSkipExisting = fs.Bool("skip-existing", false, "Keep an existing schema unless the new one strictly widens it")

		flagPublish = fs.String("publish", "", "Also apply the schema to a database: postgres, mssql, or sqlite")
		flagDSN     = fs.String("dsn", "", "DSN for -publish")

		flagLogLevel  = fs.String("log-level", "info", "Log level: debug, info, warn, error")
		flagLogDir    = fs.String("log-dir", "", "Directory for the daily JSON log file (disabled when empty)")
		flagNoConsole = fs.Bool("no-console-logs", false, "Disable console log output")

		flagMetrics     = fs.Bool("metrics", false, "Submit run metrics to Datadog (DD_API_KEY must be set)")
		flagMetricsTags = fs.String("metrics-tags", "", "Extra Datadog tags, comma separated (e.g. coin:bitcoin,team:data)")
	)

	if err := fs.Parse(args); err != nil {
		return 1
	}
	if fs.NArg() != 2 {
		fmt.Fprintln(os.Stderr, "usage: ddlgen [flags] <file.tsv[.gz]> <table-name>")
		fs.PrintDefaults()
		return 1
	}
	filePath, tableName := fs.Arg(0), fs.Arg(1)

	log, _, logCloser, err := logging.New(logging.Options{
		Script:  "ddlgen",
		Version: version,
		Level:   *flagLogLevel,
		Dir:     *flagLogDir,
		Console: !*flagNoConsole,
	})
	if err != nil {
		fmt.Fprintln(os.Stderr, "ddlgen:", err)
		return 2
	}
	if logCloser != nil {
		defer logCloser.Close()
	}

	if *flagConfig == "" {
		log.Error().Msg("-config is required")
		return 2
	}
	cfg, err := config.Load(*flagConfig)
	if err != nil {
		log.Error().Err(err).Str("path", *flagConfig).Msg("loading config failed")
		return 2
	}

	ctx := context.Background()

	var backend metrics.Backend = metrics.Noop{}
	if *flagMetrics {
		var tags []string
		if *flagMetricsTags != "" {
			tags = strings.Split(*flagMetricsTags, ",")
		}
		dd, err := datadog.NewBackend(ctx, datadog.Options{JobName: "ddlgen", Tags: tags})
		if err != nil {
			log.Error().Err(err).Msg("initializing metrics failed")
			return 2
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

	gen := generate.New(log, backend)
	res, err := gen.Run(ctx, generate.Options{
		FilePath:     filePath,
		TableName:    tableName,
		SampleRows:   *flagSampleRows,
		ChunkRows:    *flagChunkSize,
		Config:       cfg.Infer(),
		UseCols:      cfg.UseCols,
		OutputDDL:    *flagOutputDDL,
		OutputJSON:   *flagOutputJSON,
		SkipExisting: *flagSkipExisting,
	})
	if err != nil {
		log.Error().Err(err).Str("status", res.Status.String()).Msg("run failed")
		return res.Status.ExitCode()
	}
	if res.Status != generate.Success {
		return res.Status.ExitCode()
	}

	// The statement goes to stdout only when no file output was requested,
	// keeping piped usage clean.
	if *flagOutputDDL == "" {
		fmt.Println(res.DDL)
	}

	if *flagPublish != "" {
		pub, err := publish.New(ctx, publish.Config{Kind: *flagPublish, DSN: *flagDSN})
		if err != nil {
			log.Error().Err(err).Str("kind", *flagPublish).Msg("connecting publish backend failed")
			return 5
		}
		defer pub.Close()

		if err := pub.CreateTable(ctx, tableName, res.Schema); err != nil {
			log.Error().Err(err).Str("kind", *flagPublish).Str("table", tableName).Msg("publishing schema failed")
			return 5
		}
		log.Info().Str("kind", *flagPublish).Str("table", tableName).Msg("published schema")
	}

	return 0
}
