package datapull

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/robertsoden/naturewatch-go/internal/geo"
)

// Attempt outcomes reported to the metrics recorder.
const (
	OutcomeHit         = "hit"
	OutcomeEmpty       = "empty"
	OutcomeUnavailable = "unavailable"
)

// AttemptRecorder receives per-source attempt timings. Implemented by
// metrics.Collector; nil disables recording.
type AttemptRecorder interface {
	RecordAttempt(source, outcome string, d time.Duration)
	RecordPull(fellBack bool)
}

// Orchestrator drives the try/fallback chain for one data pull: resolve the
// AOI bounds once, pick candidate handlers (route table first, then the
// registry scan), try them strictly sequentially, and normalize the winning
// result. Safe for concurrent use across conversations; it holds no mutable
// state of its own.
type Orchestrator struct {
	registry *Registry
	routes   *Routes
	logger   *slog.Logger
	recorder AttemptRecorder
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithRecorder attaches a metrics recorder for attempt timings.
func WithRecorder(r AttemptRecorder) Option {
	return func(o *Orchestrator) { o.recorder = r }
}

// NewOrchestrator creates the orchestrator over an immutable registry and
// routing table.
func NewOrchestrator(reg *Registry, routes *Routes, logger *slog.Logger, opts ...Option) *Orchestrator {
	if logger == nil {
		logger = slog.Default()
	}
	o := &Orchestrator{registry: reg, routes: routes, logger: logger}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// PullData is the sole public entry point of the orchestrator.
//
// Candidates are tried strictly sequentially, never in parallel: the
// decision to try a fallback depends on the outcome of the previous
// attempt. The returned error is non-nil only for fatal conditions
// (invalid geometry, handler programming errors, caller cancellation); all
// provider-level failures are folded into the Result.
func (o *Orchestrator) PullData(ctx context.Context, aoi geo.AreaOfInterest, ds Dataset, start, end time.Time) (Result, error) {
	reqID := uuid.NewString()[:8]
	log := o.logger.With("pull_id", reqID, "source", ds.Source, "metric", ds.Metric, "aoi", aoi.Name)

	// Re-validate the AOI defensively before any handler runs, even though
	// the upstream area-selection tool already resolved it.
	if _, err := aoi.Geometry.Bounds(); err != nil {
		return Result{}, fmt.Errorf("resolve AOI bounds: %w", err)
	}

	candidates := o.candidates(ds)
	if len(candidates) == 0 {
		log.Warn("no handler can serve dataset")
		return Result{
			Success: false,
			Message: fmt.Sprintf("No registered data source can handle dataset %q (metric %q).", ds.Source, ds.Metric),
		}, nil
	}

	var (
		warnings []string
		last     Result
		lastName string
	)

	for i, h := range candidates {
		if err := ctx.Err(); err != nil {
			// Caller aborted; do not complete the rest of the chain.
			return Result{}, err
		}

		began := time.Now()
		res, err := h.Pull(ctx, aoi, ds, start, end)
		elapsed := time.Since(began)

		if err != nil {
			// Fatal by contract: halt the state machine, no further candidates.
			return Result{}, fmt.Errorf("%s: %w", h.Name(), err)
		}

		warnings = append(warnings, res.Warnings...)

		if res.DataPointsCount > 0 {
			o.record(h.Name(), OutcomeHit, elapsed, i > 0)
			log.Info("pull succeeded", "handler", h.Name(), "records", res.DataPointsCount, "fallback", i > 0, "duration_ms", elapsed.Milliseconds())
			return finalize(res, h.Name(), i > 0, warnings), nil
		}

		outcome := OutcomeEmpty
		if !res.Success {
			outcome = OutcomeUnavailable
		}
		o.record(h.Name(), outcome, elapsed, false)
		log.Debug("advancing to next candidate", "handler", h.Name(), "outcome", outcome, "duration_ms", elapsed.Milliseconds())

		last = res
		lastName = h.Name()
	}

	// Exhausted: every candidate was tried and none produced data. Not an
	// error; the last attempted handler's empty result is annotated and
	// returned so callers can see the full picture.
	if o.recorder != nil {
		o.recorder.RecordPull(false)
	}
	log.Info("all candidates exhausted", "tried", len(candidates))

	last.Success = true
	last.Data = nil
	last.DataPointsCount = 0
	last.SourceUsed = lastName
	last.Warnings = warnings
	last.Message = fmt.Sprintf(
		"No source had data for %s between %s and %s (%d source(s) tried).",
		describeArea(aoi), start.Format("2006-01-02"), end.Format("2006-01-02"), len(candidates),
	)
	return last, nil
}

// candidates resolves the ordered handler list for a dataset. A matching
// route bypasses the registry scan entirely.
func (o *Orchestrator) candidates(ds Dataset) []Handler {
	if name, ok := o.routes.Lookup(ds); ok {
		if h := o.registry.Named(name); h != nil {
			return []Handler{h}
		}
		o.logger.Warn("route targets unregistered handler", "handler", name)
		return nil
	}
	return o.registry.Candidates(ds)
}

func (o *Orchestrator) record(source, outcome string, d time.Duration, fellBack bool) {
	if o.recorder == nil {
		return
	}
	o.recorder.RecordAttempt(source, outcome, d)
	if outcome == OutcomeHit {
		o.recorder.RecordPull(fellBack)
	}
}

// finalize is the result normalizer: it stamps the winning source, prepends
// the fallback provenance marker when the winner was not the top-priority
// candidate, and carries warnings accumulated from every attempted handler.
func finalize(res Result, source string, fellBack bool, warnings []string) Result {
	res.SourceUsed = source
	res.Warnings = warnings
	if fellBack {
		if source == GlobalAnalyticsName {
			res.Message = "[Using global dataset] " + res.Message
		} else {
			res.Message = fmt.Sprintf("[Using fallback source: %s] %s", source, res.Message)
		}
	}
	return res
}

func describeArea(aoi geo.AreaOfInterest) string {
	if aoi.Name != "" {
		return aoi.Name
	}
	return "the requested area"
}
