// Package generate runs the end-to-end DDL pipeline: sample a delimited file,
// infer a column schema, check it against any previously generated schema,
// and render the CREATE OR REPLACE TABLE statement plus an optional JSON
// sidecar.
package generate

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"

	"ddlgen/internal/evolve"
	"ddlgen/internal/infer"
	"ddlgen/internal/metrics"
	"ddlgen/internal/sample"
	"ddlgen/internal/schema"
)

// Status classifies a pipeline run for callers that must map outcomes to
// process exit codes.
type Status int

const (
	// Success means DDL was generated and written.
	Success Status = iota

	// InvalidInput covers unreadable files, malformed samples, and invalid
	// table names.
	InvalidInput

	// ConfigError covers invalid inference configuration, including selected
	// columns that do not exist in the source header.
	ConfigError

	// SchemaEmpty means sampling produced zero columns.
	SchemaEmpty

	// EvolutionRejected means an existing schema was found and the newly
	// inferred schema did not qualify to replace it. This is an intentional
	// no-op, not a failure: the run itself worked.
	EvolutionRejected
)

func (s Status) String() string {
	switch s {
	case Success:
		return "success"
	case InvalidInput:
		return "invalid_input"
	case ConfigError:
		return "config_error"
	case SchemaEmpty:
		return "schema_empty"
	case EvolutionRejected:
		return "evolution_rejected"
	default:
		return fmt.Sprintf("status(%d)", int(s))
	}
}

// ExitCode maps a status to the process exit code contract used by the CLIs.
func (s Status) ExitCode() int {
	switch s {
	case Success:
		return 0
	case InvalidInput, EvolutionRejected:
		return 1
	case ConfigError:
		return 2
	case SchemaEmpty:
		return 5
	default:
		return 5
	}
}

// Options describes one pipeline run.
type Options struct {
	// FilePath is the TSV or TSV.GZ source file.
	FilePath string

	// TableName is used verbatim in the rendered DDL.
	TableName string

	// SampleRows and ChunkRows control sampling; see sample.Options.
	SampleRows int
	ChunkRows  int

	// Config is the inference configuration.
	Config infer.Config

	// UseCols optionally restricts sampling to the named source columns.
	UseCols []string

	// OutputDDL and OutputJSON are output file paths. Empty disables that
	// output. Parent directories are created as needed.
	OutputDDL  string
	OutputJSON string

	// SkipExisting enables the evolution guard: when a previously generated
	// schema exists at OutputJSON (preferred) or OutputDDL, the new schema
	// only replaces it when at least one shared column strictly widened and
	// none narrowed.
	SkipExisting bool
}

// Result is the outcome of one run. DDL and Schema are populated on Success;
// Schema is also populated on EvolutionRejected so callers can log what was
// inferred.
type Result struct {
	Status Status
	DDL    string
	Schema schema.Schema
}

// Generator wires logging and metrics into the pipeline.
type Generator struct {
	log     zerolog.Logger
	metrics metrics.Backend
}

// New returns a Generator. A nil backend is replaced with a no-op.
func New(log zerolog.Logger, backend metrics.Backend) *Generator {
	if backend == nil {
		backend = metrics.Noop{}
	}
	return &Generator{log: log, metrics: backend}
}

// Run executes the pipeline. The Result is always non-nil; inspect its Status
// to classify the outcome. Failed statuses carry a non-nil error explaining
// them, with one exception: EvolutionRejected returns a nil error because a
// rejected replacement is the guard doing its job.
func (g *Generator) Run(ctx context.Context, opts Options) (*Result, error) {
	if err := ctx.Err(); err != nil {
		return &Result{Status: InvalidInput}, err
	}

	if !schema.ValidTableName(opts.TableName) {
		err := fmt.Errorf("%w: table name %q", schema.ErrInvalidIdentifier, opts.TableName)
		g.log.Error().Str("table", opts.TableName).Msg("invalid table name")
		return &Result{Status: InvalidInput}, err
	}
	if err := opts.Config.Validate(); err != nil {
		g.log.Error().Err(err).Msg("invalid inference config")
		return &Result{Status: ConfigError}, err
	}

	start := time.Now()
	smp, err := sample.Read(opts.FilePath, sample.Options{
		SampleRows: opts.SampleRows,
		ChunkRows:  opts.ChunkRows,
		UseCols:    opts.UseCols,
	})
	if err != nil {
		g.log.Error().Err(err).Str("file", opts.FilePath).Msg("sampling failed")
		if errors.Is(err, sample.ErrUnknownColumn) {
			return &Result{Status: ConfigError}, err
		}
		return &Result{Status: InvalidInput}, err
	}
	g.metrics.ObserveDuration(metrics.DurationSample, time.Since(start).Seconds())
	g.metrics.IncCounter(metrics.CounterFilesSampled, 1)
	g.metrics.IncCounter(metrics.CounterRowsSampled, float64(len(smp.Rows)))
	g.log.Info().
		Str("file", opts.FilePath).
		Int("rows", len(smp.Rows)).
		Int("columns", len(smp.Headers)).
		Msg("sampled source file")

	start = time.Now()
	inferred, err := infer.Infer(smp, opts.Config)
	if err != nil {
		g.log.Error().Err(err).Str("file", opts.FilePath).Msg("inference failed")
		if errors.Is(err, schema.ErrSchemaEmpty) {
			return &Result{Status: SchemaEmpty}, err
		}
		return &Result{Status: InvalidInput}, err
	}
	g.metrics.ObserveDuration(metrics.DurationInfer, time.Since(start).Seconds())
	g.metrics.IncCounter(metrics.CounterSchemasInferred, 1)

	if opts.SkipExisting {
		existing, found, err := g.loadExisting(opts)
		if err != nil {
			// A present but unreadable prior schema is not "no old schema":
			// overwriting it would bypass the guard entirely.
			g.log.Error().Err(err).Msg("reading existing schema failed")
			return &Result{Status: InvalidInput}, fmt.Errorf("existing schema: %w", err)
		}
		if found && !evolve.ShouldReplace(inferred, existing) {
			g.metrics.IncCounter(metrics.CounterEvolutionRejected, 1)
			g.log.Info().
				Str("table", opts.TableName).
				Msg("existing schema kept, new schema does not qualify to replace it")
			return &Result{Status: EvolutionRejected, Schema: inferred}, nil
		}
	}

	ddl, err := schema.RenderDDL(opts.TableName, inferred)
	if err != nil {
		g.log.Error().Err(err).Str("table", opts.TableName).Msg("rendering DDL failed")
		if errors.Is(err, schema.ErrSchemaEmpty) {
			return &Result{Status: SchemaEmpty}, err
		}
		return &Result{Status: InvalidInput}, err
	}

	if opts.OutputDDL != "" {
		if err := writeFile(opts.OutputDDL, []byte(ddl+"\n")); err != nil {
			return &Result{Status: InvalidInput}, fmt.Errorf("write DDL: %w", err)
		}
		g.log.Info().Str("path", opts.OutputDDL).Msg("wrote DDL file")
	}
	if opts.OutputJSON != "" {
		js, err := schema.RenderJSON(inferred)
		if err != nil {
			return &Result{Status: InvalidInput}, fmt.Errorf("render schema JSON: %w", err)
		}
		if err := writeFile(opts.OutputJSON, []byte(js+"\n")); err != nil {
			return &Result{Status: InvalidInput}, fmt.Errorf("write schema JSON: %w", err)
		}
		g.log.Info().Str("path", opts.OutputJSON).Msg("wrote schema JSON file")
	}

	return &Result{Status: Success, DDL: ddl, Schema: inferred}, nil
}

// loadExisting finds the previously generated schema, preferring the JSON
// sidecar over re-parsing generated DDL.
func (g *Generator) loadExisting(opts Options) (schema.Schema, bool, error) {
	if opts.OutputJSON != "" {
		data, err := os.ReadFile(opts.OutputJSON)
		switch {
		case err == nil:
			s, perr := schema.ParseJSON(data)
			if perr != nil {
				return nil, false, fmt.Errorf("parse %s: %w", opts.OutputJSON, perr)
			}
			return s, true, nil
		case !os.IsNotExist(err):
			return nil, false, err
		}
	}
	if opts.OutputDDL != "" {
		data, err := os.ReadFile(opts.OutputDDL)
		switch {
		case err == nil:
			s, perr := schema.ParseDDL(data)
			if perr != nil {
				return nil, false, fmt.Errorf("parse %s: %w", opts.OutputDDL, perr)
			}
			return s, true, nil
		case !os.IsNotExist(err):
			return nil, false, err
		}
	}
	return nil, false, nil
}

func writeFile(path string, data []byte) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	return os.WriteFile(path, data, 0o644)
}
