// Package metrics defines the minimal observability surface the DDL tooling
// emits through.
//
// The engine packages depend only on Backend, never on a concrete vendor
// client, so the core stays a pure function plus an explicit side channel.
// The default backend is a no-op; CLIs opt in to a real backend.
package metrics

import "context"

// Backend receives counters and duration observations.
//
// Implementations must be safe for concurrent use. Flush submits buffered
// data; Close flushes one final time and releases resources.
type Backend interface {
	// IncCounter adds delta to the named counter.
	IncCounter(name string, delta float64)

	// ObserveDuration records one duration sample, in seconds, under name.
	ObserveDuration(name string, seconds float64)

	// Flush submits buffered metrics.
	Flush(ctx context.Context) error

	// Close flushes and shuts the backend down. Call once at exit.
	Close(ctx context.Context) error
}

// Counter and duration names emitted by the DDL tooling.
const (
	CounterFilesSampled      = "ddlgen.files_sampled"
	CounterRowsSampled       = "ddlgen.rows_sampled"
	CounterSchemasInferred   = "ddlgen.schemas_inferred"
	CounterEvolutionRejected = "ddlgen.evolution_rejected"
	CounterFilesDownloaded   = "ddlgen.files_downloaded"
	CounterDownloadRetries   = "ddlgen.download_retries"

	DurationInfer    = "ddlgen.infer_seconds"
	DurationSample   = "ddlgen.sample_seconds"
	DurationDownload = "ddlgen.download_seconds"
)

// Noop discards everything. It is the default backend.
type Noop struct{}

func (Noop) IncCounter(string, float64)        {}
func (Noop) ObserveDuration(string, float64)   {}
func (Noop) Flush(context.Context) error       { return nil }
func (Noop) Close(context.Context) error       { return nil }
