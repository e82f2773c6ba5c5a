// Package pipeline coordinates the daily insider crawl: index sync, chunked
// dispatch with an idempotency ledger, concurrent transaction fetches under a
// shared time budget, validation with retry, and cluster analysis.
package pipeline

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/seenimoa/edgarinsiders/internal/analysis/cluster"
)

// AlertSubject titles every operator alert.
const AlertSubject = "INSIDERS ERROR"

// Deps are the collaborators of an Orchestrator.
type Deps struct {
	Scraper  Scraper
	Store    Store
	Queue    Queue
	Notifier Notifier
	Engine   Engine
	Logger   zerolog.Logger
}

// Options tune the pipeline.
type Options struct {
	ChunkSize       int
	SubChunkSize    int
	DispatchDelay   time.Duration
	BatchTimeout    time.Duration
	DispatchSubject string
	RetrySubject    string
	States          []string
	FetchOwners     bool
}

// Orchestrator runs pipeline operations. It holds no per-run state; the
// store's ledger is the only state shared between invocations.
type Orchestrator struct {
	scraper  Scraper
	store    Store
	queue    Queue
	notifier Notifier
	engine   Engine
	opts     Options
	logger   zerolog.Logger

	newRequestID func() string
	now          func() time.Time
}

// New wires an orchestrator. A nil Engine selects the default cluster engine.
func New(deps Deps, opts Options) *Orchestrator {
	if opts.ChunkSize <= 0 {
		opts.ChunkSize = 100
	}
	if opts.SubChunkSize <= 0 {
		opts.SubChunkSize = 20
	}
	if opts.BatchTimeout <= 0 {
		opts.BatchTimeout = 60 * time.Second
	}
	engine := deps.Engine
	if engine == nil {
		engine = cluster.New()
	}
	return &Orchestrator{
		scraper:      deps.Scraper,
		store:        deps.Store,
		queue:        deps.Queue,
		notifier:     deps.Notifier,
		engine:       engine,
		opts:         opts,
		logger:       deps.Logger.With().Str("component", "pipeline").Logger(),
		newRequestID: uuid.NewString,
		now:          time.Now,
	}
}

// alert reports to the operator; delivery failures are only logged.
func (o *Orchestrator) alert(ctx context.Context, message string) {
	if o.notifier == nil {
		o.logger.Warn().Msg(message)
		return
	}
	if err := o.notifier.Alert(ctx, AlertSubject, message); err != nil {
		o.logger.Error().Err(err).Str("alert", message).Msg("failed to send alert")
	}
}
