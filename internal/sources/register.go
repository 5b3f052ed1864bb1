package sources

import (
	"database/sql"
	"log/slog"
	"time"

	"github.com/robertsoden/naturewatch-go/internal/datapull"
)

// Options configures the default handler chain.
type Options struct {
	// DB is the PostGIS pool for pre-ingested datasets; nil leaves the
	// spatial handler registered but unavailable.
	DB *sql.DB

	EBirdAPIKey      string
	EBirdRegion      string
	DataStreamAPIKey string
	GFWAPIKey        string

	INatRequestsPerMinute int
	Timeout               time.Duration

	Logger *slog.Logger
}

// NewRegistry builds the registry with every handler in fallback priority
// order: the local spatial database first, then the external APIs, with
// global analytics last as the terminal fallback. Registration order is
// the tie-break when several handlers claim a dataset.
func NewRegistry(opts Options) *datapull.Registry {
	reg := datapull.NewRegistry()
	reg.Register(NewSpatialDB(opts.DB, opts.Timeout, opts.Logger))
	reg.Register(NewEBird(opts.EBirdAPIKey, opts.EBirdRegion, opts.Timeout, opts.Logger))
	reg.Register(NewINaturalist(opts.INatRequestsPerMinute, opts.Timeout, opts.Logger))
	reg.Register(NewDataStream(opts.DataStreamAPIKey, opts.Timeout, opts.Logger))
	reg.Register(NewAnalytics(opts.GFWAPIKey, opts.Timeout, opts.Logger))
	return reg
}
