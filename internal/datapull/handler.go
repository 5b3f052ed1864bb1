package datapull

import (
	"context"
	"time"

	"github.com/robertsoden/naturewatch-go/internal/geo"
)

// Dataset describes what to pull: a source name selecting a handler family,
// an optional metric, and free-form provider parameters (context layer,
// characteristic, DOI). Immutable, supplied by the caller.
type Dataset struct {
	Source string            `json:"source"`
	Metric string            `json:"metric,omitempty"`
	Params map[string]string `json:"params,omitempty"`
}

// Handler wraps one data provider behind the common capability contract.
//
// CanHandle must be a pure predicate over the dataset's source/metric
// fields, no I/O. Pull returns a Go error only for fatal conditions
// (malformed geometry or query construction); expected empty conditions are
// signaled through the Result so the fallback controller can advance
// without exception-based control flow.
type Handler interface {
	Name() string
	CanHandle(ds Dataset) bool
	Pull(ctx context.Context, aoi geo.AreaOfInterest, ds Dataset, start, end time.Time) (Result, error)
}
