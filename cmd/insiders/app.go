package main

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/seenimoa/edgarinsiders/internal/edgar"
	"github.com/seenimoa/edgarinsiders/internal/infra"
	"github.com/seenimoa/edgarinsiders/internal/log"
	"github.com/seenimoa/edgarinsiders/internal/pipeline"
	"github.com/seenimoa/edgarinsiders/internal/queue"
	"github.com/seenimoa/edgarinsiders/internal/store"
)

// app holds the adapters one command runs against.
type app struct {
	logger zerolog.Logger
	store  store.Store
	queue  *queue.NATS
	orch   *pipeline.Orchestrator
}

func sessionConfig() infra.SessionConfig {
	return infra.SessionConfig{
		UserAgent:      cfg.EDGAR.UserAgent,
		RequestTimeout: cfg.EDGAR.RequestTimeout,
		RateLimit:      cfg.EDGAR.RateLimit,
		MaxBodySize:    cfg.EDGAR.MaxBodyBytes,
	}
}

func newScraper(s *infra.Session) *edgar.Client {
	return edgar.NewClient(s, edgar.Config{
		BaseURL:   cfg.EDGAR.BaseURL,
		PageSize:  cfg.EDGAR.PageSize,
		StartYear: cfg.EDGAR.StartYear,
		MaxPages:  cfg.EDGAR.MaxPages,
	}, log.Logger)
}

// scrape runs fn with a scraper bound to a session released on return.
func scrape(fn func(*edgar.Client) error) error {
	return infra.WithSession(sessionConfig(), func(s *infra.Session) error {
		return fn(newScraper(s))
	})
}

// run opens the store, optionally the queue, and a scraper session, then
// hands fn an orchestrator wired to them. Everything is closed on return.
func run(ctx context.Context, withQueue bool, fn func(*app) error) error {
	logger := log.WithComponent("cli")

	st, err := store.Open(ctx, store.Options{
		Backend:    cfg.Store.Backend,
		BoltPath:   cfg.Store.BoltPath,
		ProjectID:  cfg.Store.ProjectID,
		Bucket:     cfg.Store.Bucket,
		Collection: cfg.Store.Collection,
		CacheTTL:   cfg.Store.CacheTTL,
		Logger:     log.Logger,
	})
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer func() {
		if err := st.Close(); err != nil {
			logger.Error().Err(err).Msg("failed to close store")
		}
	}()

	a := &app{logger: logger, store: st}
	deps := pipeline.Deps{Store: st, Logger: log.Logger}

	if withQueue {
		q, err := queue.Connect(ctx, queue.Options{
			URL:      cfg.Queue.URL,
			Token:    cfg.Queue.Token,
			Stream:   cfg.Queue.Stream,
			Consumer: cfg.Queue.Consumer,
			Subjects: []string{cfg.Queue.DispatchSubject, cfg.Queue.RetrySubject},
			AckWait:  2 * cfg.Pipeline.BatchTimeout,
		}, log.Logger)
		if err != nil {
			return err
		}
		defer q.Close()
		a.queue = q
		deps.Queue = q
		deps.Notifier = queue.NewNotifier(q.Conn(), cfg.Notify.AlertSubject, cfg.Notify.FoundSubject, log.Logger)
	}

	return infra.WithSession(sessionConfig(), func(s *infra.Session) error {
		deps.Scraper = newScraper(s)
		a.orch = pipeline.New(deps, pipeline.Options{
			ChunkSize:       cfg.Pipeline.ChunkSize,
			SubChunkSize:    cfg.Pipeline.SubChunkSize,
			DispatchDelay:   cfg.Pipeline.DispatchDelay,
			BatchTimeout:    cfg.Pipeline.BatchTimeout,
			DispatchSubject: cfg.Queue.DispatchSubject,
			RetrySubject:    cfg.Queue.RetrySubject,
			States:          cfg.EDGAR.States,
			FetchOwners:     cfg.Pipeline.FetchOwners,
		})
		return fn(a)
	})
}
