package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/couchcryptid/boiler-telemetry-etl/internal/domain"
	"github.com/couchcryptid/boiler-telemetry-etl/internal/observability"
)

// ErrSyncInProgress is returned when a sync is requested while another runs.
var ErrSyncInProgress = errors.New("sync already in progress")

// Source fetches the current workbook bytes.
type Source interface {
	Fetch(ctx context.Context) (domain.RawWorkbook, error)
	Kind() string
}

// Transformer builds records from a raw workbook.
type Transformer interface {
	Transform(ctx context.Context, raw domain.RawWorkbook) (domain.Records, error)
}

// cachingTransformer is a Transformer that can tell whether a result came
// from its cache.
type cachingTransformer interface {
	TransformCached(ctx context.Context, raw domain.RawWorkbook) (domain.Records, bool, error)
}

// Loader publishes one sync's records to the destination.
type Loader interface {
	Load(ctx context.Context, res domain.SyncResult) error
}

// Status is the pipeline state reported over HTTP.
type Status struct {
	Syncing     bool                `json:"syncing"`
	LastSuccess *domain.SyncSummary `json:"lastSuccess,omitempty"`
	LastError   string              `json:"lastError,omitempty"`
}

// Pipeline orchestrates the fetch-transform-load cycle. At most one sync
// runs at a time, whether started by the ticker or on demand.
type Pipeline struct {
	source      Source
	transformer Transformer
	loader      Loader
	logger      *slog.Logger
	metrics     *observability.Metrics
	interval    time.Duration

	mu      sync.Mutex
	syncing atomic.Bool
	ready   atomic.Bool
	latest  atomic.Pointer[domain.SyncResult]
	lastErr atomic.Pointer[string]
}

// New creates a Pipeline with the given stages and observability.
func New(s Source, t Transformer, l Loader, logger *slog.Logger, metrics *observability.Metrics, interval time.Duration) *Pipeline {
	return &Pipeline{
		source:      s,
		transformer: t,
		loader:      l,
		logger:      logger,
		metrics:     metrics,
		interval:    interval,
	}
}

// CheckReadiness returns nil once a sync has succeeded, or an error
// describing why the service is not yet ready.
func (p *Pipeline) CheckReadiness(_ context.Context) error {
	if !p.ready.Load() {
		if msg := p.lastErr.Load(); msg != nil {
			return fmt.Errorf("no successful sync yet: %s", *msg)
		}
		return errors.New("no successful sync yet")
	}
	return nil
}

// Latest returns the result of the most recent successful sync.
func (p *Pipeline) Latest() (domain.SyncResult, bool) {
	res := p.latest.Load()
	if res == nil {
		return domain.SyncResult{}, false
	}
	return *res, true
}

// Status reports whether a sync is running and how the last ones went.
func (p *Pipeline) Status() Status {
	st := Status{Syncing: p.syncing.Load()}
	if res := p.latest.Load(); res != nil {
		s := res.Summary()
		st.LastSuccess = &s
	}
	if msg := p.lastErr.Load(); msg != nil {
		st.LastError = *msg
	}
	return st
}

// Run syncs once immediately and then on every tick until the context is
// cancelled. A failed sync is logged and retried at the next tick.
func (p *Pipeline) Run(ctx context.Context) error {
	p.logger.Info("pipeline started", "interval", p.interval, "source", p.source.Kind())
	p.metrics.SyncRunning.Set(1)
	defer p.metrics.SyncRunning.Set(0)

	ticker := clock.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		p.scheduledSync(ctx)

		select {
		case <-ctx.Done():
			p.logger.Info("pipeline stopping", "reason", ctx.Err())
			return nil
		case <-ticker.Chan():
		}
	}
}

func (p *Pipeline) scheduledSync(ctx context.Context) {
	_, err := p.SyncOnce(ctx)
	switch {
	case err == nil:
	case errors.Is(err, ErrSyncInProgress):
		p.logger.Info("scheduled sync skipped, previous run still active")
	case ctx.Err() != nil:
	default:
		p.logger.Error("sync failed", "error", err)
	}
}

// SyncOnce runs one fetch-transform-load cycle. It returns
// ErrSyncInProgress without waiting if another sync holds the lock.
func (p *Pipeline) SyncOnce(ctx context.Context) (domain.SyncResult, error) {
	if !p.mu.TryLock() {
		p.metrics.SyncRuns.WithLabelValues("skipped").Inc()
		return domain.SyncResult{}, ErrSyncInProgress
	}
	defer p.mu.Unlock()

	p.syncing.Store(true)
	defer p.syncing.Store(false)

	res, err := p.sync(ctx)
	if err != nil {
		msg := err.Error()
		p.lastErr.Store(&msg)
		p.metrics.SyncRuns.WithLabelValues("error").Inc()
		return res, err
	}

	p.lastErr.Store(nil)
	p.latest.Store(&res)
	p.ready.Store(true)
	p.metrics.SyncRuns.WithLabelValues("success").Inc()
	return res, nil
}

func (p *Pipeline) sync(ctx context.Context) (domain.SyncResult, error) {
	res := domain.SyncResult{
		RunID:     uuid.NewString(),
		StartedAt: clock.Now().UTC(),
	}
	logger := p.logger.With("run_id", res.RunID)

	fetchStart := clock.Now()
	raw, err := p.source.Fetch(ctx)
	p.metrics.SourceFetchDuration.WithLabelValues(p.source.Kind()).Observe(clock.Since(fetchStart).Seconds())
	if err != nil {
		return res, fmt.Errorf("fetch workbook: %w", err)
	}
	res.SourceName = raw.Name
	res.SourceHash = domain.ContentHash(raw.Bytes)

	rec, hit, err := p.transform(ctx, raw)
	if err != nil {
		return res, fmt.Errorf("transform workbook: %w", err)
	}
	res.Records = rec
	res.CacheHit = hit
	res.FinishedAt = clock.Now().UTC()

	if err := p.loader.Load(ctx, res); err != nil {
		return res, fmt.Errorf("load records: %w", err)
	}

	p.observe(res)
	s := res.Summary()
	logger.Info("sync complete",
		"source", res.SourceName,
		"cache_hit", res.CacheHit,
		"snapshot_row", s.SnapshotRow,
		"daily_records", s.DailyRecords,
		"hourly_records", s.HourlyRecords,
		"issues", s.Issues,
		"clamped", s.Clamped,
		"degraded", s.Degraded,
		"duration", res.Duration(),
	)
	return res, nil
}

func (p *Pipeline) transform(ctx context.Context, raw domain.RawWorkbook) (domain.Records, bool, error) {
	if ct, ok := p.transformer.(cachingTransformer); ok {
		return ct.TransformCached(ctx, raw)
	}
	rec, err := p.transformer.Transform(ctx, raw)
	return rec, false, err
}

func (p *Pipeline) observe(res domain.SyncResult) {
	rec := res.Records
	p.metrics.SyncDuration.Observe(res.Duration().Seconds())

	if rec.Snapshot != nil {
		p.metrics.RecordsEmitted.WithLabelValues("snapshot").Add(float64(len(rec.Snapshot.Boilers)))
		p.metrics.SnapshotRow.Set(float64(rec.Snapshot.SourceRow))
	} else {
		p.metrics.SnapshotRow.Set(-1)
	}
	s := res.Summary()
	p.metrics.RecordsEmitted.WithLabelValues("daily").Add(float64(s.DailyRecords))
	p.metrics.RecordsEmitted.WithLabelValues("hourly").Add(float64(s.HourlyRecords))
	p.metrics.RecordsEmitted.WithLabelValues("issue").Add(float64(s.Issues))

	for _, f := range rec.Flags {
		boiler := "shared"
		if f.Boiler.Valid() {
			boiler = f.Boiler.String()
		}
		p.metrics.FlaggedValues.WithLabelValues(string(f.Kind), boiler).Inc()
	}
}
