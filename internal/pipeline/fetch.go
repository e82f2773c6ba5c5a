package pipeline

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/seenimoa/edgarinsiders/internal/edgar"
	"github.com/seenimoa/edgarinsiders/internal/metrics"
	"github.com/seenimoa/edgarinsiders/pkg/models"
)

// BatchResult summarises one concurrent fetch.
type BatchResult struct {
	Successful []models.CIK // persisted
	Codes      []int        // statuses of every fetch that completed
	Dropped    []models.CIK // cut off by the batch deadline or cancellation
	Elapsed    time.Duration
}

// SyncTransactions fetches every CIK concurrently under one shared deadline.
// Fetches still running at the deadline are cancelled and their CIKs dropped.
// Series with more than one row and more than one purchase are persisted.
func (o *Orchestrator) SyncTransactions(ctx context.Context, items []models.CIK, ft models.FileType) BatchResult {
	timer := metrics.NewTimer()
	defer timer.ObserveDurationVec(metrics.BatchDuration, string(ft))

	o.logger.Info().Str("kind", string(ft)).Int("ciks", len(items)).Msg("fetching transactions")

	bctx, cancel := context.WithTimeout(ctx, o.opts.BatchTimeout)
	defer cancel()

	results := make([]edgar.TransactionResult, len(items))
	g, gctx := errgroup.WithContext(bctx)
	for i, cik := range items {
		g.Go(func() error {
			results[i] = o.scraper.FetchTransactions(gctx, ft, cik)
			return nil
		})
	}
	_ = g.Wait()

	var out BatchResult
	for i, res := range results {
		cik := items[i]
		if res.Failure == edgar.FailureCancelled {
			out.Dropped = append(out.Dropped, cik)
			continue
		}
		out.Codes = append(out.Codes, res.Statuses...)
		if !worthKeeping(res.Records) {
			continue
		}
		if err := o.persist(ctx, ft, cik, res.Records); err != nil {
			o.logger.Error().Err(err).Int64("cik", cik).Str("kind", string(ft)).Msg("failed to persist transactions")
			continue
		}
		out.Successful = append(out.Successful, cik)
	}

	if len(out.Dropped) > 0 {
		metrics.FetchDropped.WithLabelValues(string(ft)).Add(float64(len(out.Dropped)))
		o.logger.Warn().Str("kind", string(ft)).Int("dropped", len(out.Dropped)).
			Dur("budget", o.opts.BatchTimeout).Msg("fetches cut off by batch deadline")
	}
	metrics.RecordsPersisted.WithLabelValues(string(ft)).Add(float64(len(out.Successful)))
	out.Elapsed = timer.Duration()
	return out
}

// worthKeeping filters out series too thin to analyse.
func worthKeeping(rows []models.TransactionRecord) bool {
	return rows != nil && len(rows) > 1 && models.CountPurchases(rows) > 1
}

func (o *Orchestrator) persist(ctx context.Context, ft models.FileType, cik models.CIK, rows []models.TransactionRecord) error {
	if ft == models.FileTypeOwner {
		return o.store.UpdateOwnersTransactions(ctx, cik, rows)
	}
	return o.store.UpdateTransactions(ctx, cik, rows)
}

// SyncCompanies crawls the company directory of every configured state
// concurrently, stores the combined list and records a COMPANIES entry.
func (o *Orchestrator) SyncCompanies(ctx context.Context) (int, error) {
	timer := metrics.NewTimer()
	defer timer.ObserveDurationVec(metrics.BatchDuration, "companies")

	states := o.opts.States
	o.logger.Info().Int("states", len(states)).Msg("syncing companies")

	bctx, cancel := context.WithTimeout(ctx, o.opts.BatchTimeout)
	defer cancel()

	results := make([]edgar.CompanyResult, len(states))
	g, gctx := errgroup.WithContext(bctx)
	for i, state := range states {
		g.Go(func() error {
			results[i] = o.scraper.FetchCompaniesByState(gctx, state, "")
			return nil
		})
	}
	_ = g.Wait()

	var all []models.CompanyRecord
	var codes []int
	dropped := 0
	for _, res := range results {
		if res.Failure == edgar.FailureCancelled {
			dropped++
			continue
		}
		codes = append(codes, res.Statuses...)
		if len(res.Records) > 1 {
			o.logger.Debug().Str("state", res.ID).Int("companies", len(res.Records)).Msg("state crawled")
			all = append(all, res.Records...)
		}
	}
	if dropped > 0 {
		metrics.FetchDropped.WithLabelValues("companies").Add(float64(dropped))
	}

	if err := o.store.UpdateCompanies(ctx, all); err != nil {
		return 0, err
	}
	metrics.RecordsPersisted.WithLabelValues("companies").Add(float64(len(all)))

	msg := models.AuditMessage{Codes: codes}
	if err := o.store.SaveAnalytics(ctx, models.AuditCompanies, "Company directory sync", msg, o.now(), len(all), "", ""); err != nil {
		o.logger.Error().Err(err).Msg("failed to record COMPANIES")
	}
	o.logger.Info().Int("companies", len(all)).Msg("companies updated")
	return len(all), nil
}

// batchDescription names the audit entry of a fetch batch.
func batchDescription(ft models.FileType, elapsed time.Duration) string {
	return "Transactions fetched for " + string(ft) + " in " + elapsed.Round(time.Millisecond).String()
}
