// Package datadog implements a Datadog backend for the internal/metrics
// package.
//
// The DDL tooling runs both as short-lived one-shot commands and inside
// long-lived schedulers, so submitting once at exit is not enough: long runs
// would show up as a single spike. The backend therefore buffers metrics
// in-memory, flushes on a ticker, and flushes one final time on Close.
//
// Concurrency model:
//   - callers may IncCounter/ObserveDuration at any time
//   - Flush snapshots and resets the buffers under a mutex, then submits
//     out-of-lock
//   - the flush loop calls Flush periodically; Close stops the loop
package datadog

import (
	"context"
	"net/http"
	"os"
	"sort"
	"strings"
	"sync"
	"time"

	dd "github.com/DataDog/datadog-api-client-go/v2/api/datadog"
	"github.com/DataDog/datadog-api-client-go/v2/api/datadogV2"
)

// Options controls Datadog backend configuration.
type Options struct {
	// JobName becomes tag "job:<name>" on every metric. Defaults to "ddlgen".
	JobName string

	// Tags are extra Datadog tags (e.g. []string{"coin:bitcoin"}).
	Tags []string

	// FlushEvery controls how often buffered metrics are submitted.
	// If <= 0, defaults to 60 seconds.
	FlushEvery time.Duration

	// Unexported test seams. Production code never sets them; unit tests set
	// them to avoid real network submission and nondeterministic tickers.
	now       func() time.Time
	newTicker func(d time.Duration) *time.Ticker
	submitter metricsSubmitter
}

// metricsSubmitter is the minimal interface needed to submit metrics. The
// Datadog SDK exposes a concrete *datadogV2.MetricsApi; depending on this
// interface instead enables deterministic tests with a fake submitter.
type metricsSubmitter interface {
	SubmitMetrics(ctx context.Context, body datadogV2.MetricPayload, params ...datadogV2.SubmitMetricsOptionalParameters) (datadogV2.IntakePayloadAccepted, *http.Response, error)
}

// Backend implements metrics.Backend for Datadog.
type Backend struct {
	api metricsSubmitter

	// ctx is the parent context given to NewBackend; it bounds flushes
	// triggered by the background loop. Explicit Flush/Close calls use the
	// caller's context instead.
	ctx context.Context

	flushEvery time.Duration
	stopCh     chan struct{}
	doneCh     chan struct{}

	baseTags []string

	now       func() time.Time
	newTicker func(d time.Duration) *time.Ticker

	mu        sync.Mutex
	counters  map[string]float64
	durations map[string][]float64
}

func resolveEnvTag() string {
	if v := strings.TrimSpace(os.Getenv("ENV")); v != "" {
		return "env:" + v
	}
	if v := strings.TrimSpace(os.Getenv("DD_ENV")); v != "" {
		return "env:" + v
	}
	return "env:unknown"
}

// NewBackend constructs a Datadog backend using the official client.
//
// Credentials come from the standard DD_API_KEY / DD_APP_KEY environment and
// are layered onto the submission context per flush. Network errors surface
// from Flush, not here.
func NewBackend(parent context.Context, opts Options) (*Backend, error) {
	job := opts.JobName
	if job == "" {
		job = "ddlgen"
	}

	flushEvery := opts.FlushEvery
	if flushEvery <= 0 {
		flushEvery = 60 * time.Second
	}

	baseTags := make([]string, 0, 2+len(opts.Tags))
	baseTags = append(baseTags, resolveEnvTag(), "job:"+job)
	baseTags = append(baseTags, opts.Tags...)

	nowFn := opts.now
	if nowFn == nil {
		nowFn = time.Now
	}
	newTicker := opts.newTicker
	if newTicker == nil {
		newTicker = time.NewTicker
	}

	submitter := opts.submitter
	if submitter == nil {
		client := dd.NewAPIClient(dd.NewConfiguration())
		submitter = datadogV2.NewMetricsApi(client)
	}

	b := &Backend{
		api:        submitter,
		ctx:        parent,
		flushEvery: flushEvery,
		stopCh:     make(chan struct{}),
		doneCh:     make(chan struct{}),
		baseTags:   baseTags,
		now:        nowFn,
		newTicker:  newTicker,
		counters:   make(map[string]float64),
		durations:  make(map[string][]float64),
	}

	go b.loop()
	return b, nil
}

func (b *Backend) loop() {
	defer close(b.doneCh)

	t := b.newTicker(b.flushEvery)
	defer t.Stop()

	for {
		select {
		case <-t.C:
			_ = b.Flush(b.ctx)
		case <-b.stopCh:
			return
		}
	}
}

// IncCounter implements metrics.Backend.
func (b *Backend) IncCounter(name string, delta float64) {
	if delta <= 0 || name == "" {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.counters[name] += delta
}

// ObserveDuration implements metrics.Backend.
func (b *Backend) ObserveDuration(name string, seconds float64) {
	if seconds < 0 || name == "" {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.durations[name] = append(b.durations[name], seconds)
}

// snapshot is the detached buffered state used to build one flush payload.
// Flush must reset buffers under the lock but submit out-of-lock; snapshot
// separates collect+reset from payload building.
type snapshot struct {
	counters  map[string]float64
	durations map[string][]float64
}

func (b *Backend) snapshotAndReset() snapshot {
	b.mu.Lock()
	defer b.mu.Unlock()

	s := snapshot{counters: b.counters, durations: b.durations}
	b.counters = make(map[string]float64)
	b.durations = make(map[string][]float64)
	return s
}

func (s snapshot) isEmpty() bool {
	return len(s.counters) == 0 && len(s.durations) == 0
}

// Flush submits buffered metrics to Datadog and resets local buffers.
//
// The caller's ctx bounds the submission (cancellation and deadline apply);
// the Datadog credential values are layered on top of it per call. Buffers
// are reset even when submission fails, keeping callers fast rather than
// blocking future writes on delivery.
func (b *Backend) Flush(ctx context.Context) error {
	snap := b.snapshotAndReset()
	if snap.isEmpty() {
		return nil
	}

	payload := datadogV2.MetricPayload{Series: b.buildSeries(snap, b.now().Unix())}

	_, _, err := b.api.SubmitMetrics(dd.NewDefaultContext(ctx), payload, *datadogV2.NewSubmitMetricsOptionalParameters())
	return err
}

// Close stops the background flush loop and performs one final Flush. Call
// once at process exit; a second Close panics on the closed stop channel.
func (b *Backend) Close(ctx context.Context) error {
	close(b.stopCh)
	<-b.doneCh
	return b.Flush(ctx)
}

// buildSeries constructs Datadog series for a snapshot at a fixed timestamp.
// It is pure (no locks, no network, no clocks), which keeps the naming and
// tagging contract unit-testable. Output order is deterministic.
func (b *Backend) buildSeries(s snapshot, nowUnix int64) []datadogV2.MetricSeries {
	series := make([]datadogV2.MetricSeries, 0, len(s.counters)+5*len(s.durations))

	names := make([]string, 0, len(s.counters))
	for name := range s.counters {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		v := s.counters[name]
		if v == 0 {
			continue
		}
		series = append(series, datadogV2.MetricSeries{
			Metric: name,
			Type:   datadogV2.METRICINTAKETYPE_COUNT.Ptr(),
			Points: []datadogV2.MetricPoint{
				{Timestamp: dd.PtrInt64(nowUnix), Value: dd.PtrFloat64(v)},
			},
			Tags: b.baseTags,
		})
	}

	names = names[:0]
	for name := range s.durations {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		samples := s.durations[name]
		if len(samples) == 0 {
			continue
		}
		cp := append([]float64(nil), samples...)
		sort.Float64s(cp)

		series = append(series,
			gaugeSeries(name+".p50", percentileNearestRank(cp, 0.50), b.baseTags, nowUnix),
			gaugeSeries(name+".p95", percentileNearestRank(cp, 0.95), b.baseTags, nowUnix),
			gaugeSeries(name+".p99", percentileNearestRank(cp, 0.99), b.baseTags, nowUnix),
			gaugeSeries(name+".max", cp[len(cp)-1], b.baseTags, nowUnix),
			gaugeSeries(name+".samples", float64(len(cp)), b.baseTags, nowUnix),
		)
	}

	return series
}

func gaugeSeries(metric string, value float64, tags []string, nowUnix int64) datadogV2.MetricSeries {
	return datadogV2.MetricSeries{
		Metric: metric,
		Type:   datadogV2.METRICINTAKETYPE_GAUGE.Ptr(),
		Points: []datadogV2.MetricPoint{
			{Timestamp: dd.PtrInt64(nowUnix), Value: dd.PtrFloat64(value)},
		},
		Tags: tags,
	}
}

// percentileNearestRank computes a nearest-rank percentile over sorted input.
func percentileNearestRank(sorted []float64, q float64) float64 {
	if len(sorted) == 0 {
		return 0
	}
	rank := int(q*float64(len(sorted)) + 0.5)
	if rank < 1 {
		rank = 1
	}
	if rank > len(sorted) {
		rank = len(sorted)
	}
	return sorted[rank-1]
}
