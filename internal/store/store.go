// Package store persists the audit ledger, scraped transactions, the company
// directory and analysis results.
package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/seenimoa/edgarinsiders/internal/infra"
	"github.com/seenimoa/edgarinsiders/pkg/models"
	"github.com/seenimoa/edgarinsiders/pkg/utils"
)

// ErrNotFound is returned when a record addressed by key does not exist.
var ErrNotFound = errors.New("record not found")

// Store defines the persistence operations of the pipeline.
type Store interface {
	// Audit ledger
	SaveAnalytics(ctx context.Context, kind models.AuditKind, description string, msg models.AuditMessage,
		date time.Time, count int, requestID, chunkID string) error
	GetAnalytics(ctx context.Context, kind models.AuditKind, date time.Time, period models.Period) ([]models.AuditRecord, error)
	UpdateAnalytics(ctx context.Context, rec models.AuditRecord, processed bool) error

	// Transactions and companies
	UpdateTransactions(ctx context.Context, cik models.CIK, rows []models.TransactionRecord) error
	UpdateOwnersTransactions(ctx context.Context, cik models.CIK, rows []models.TransactionRecord) error
	UpdateCompanies(ctx context.Context, rows []models.CompanyRecord) error
	ListCompanies(ctx context.Context) ([]models.CompanyRecord, error)

	// Analysis
	ReadFireHose(ctx context.Context, kind models.FileType, ciks []models.CIK, date time.Time) error
	GetTimeSeries(ctx context.Context, cik models.CIK, kind models.FileType) ([]models.TransactionRecord, error)
	UpdateResults(ctx context.Context, date time.Time, findings []models.Finding) error
	GetResults(ctx context.Context, date time.Time) ([]models.Finding, error)

	Close() error
}

// Options selects and configures a backend.
type Options struct {
	Backend    string // "bolt" or "cloud"
	BoltPath   string
	ProjectID  string
	Bucket     string
	Collection string
	CacheTTL   time.Duration
	Logger     zerolog.Logger
}

// Open creates the configured backend.
func Open(ctx context.Context, opts Options) (Store, error) {
	switch opts.Backend {
	case "", "bolt":
		return NewBoltStore(opts.BoltPath, opts.CacheTTL, opts.Logger)
	case "cloud":
		return NewCloudStore(ctx, CloudOptions{
			ProjectID:  opts.ProjectID,
			Bucket:     opts.Bucket,
			Collection: opts.Collection,
			CacheTTL:   opts.CacheTTL,
		}, opts.Logger)
	default:
		return nil, fmt.Errorf("unknown store backend %q", opts.Backend)
	}
}

func newAuditRecord(kind models.AuditKind, description string, msg models.AuditMessage,
	date time.Time, count int, requestID, chunkID string, now time.Time) models.AuditRecord {
	return models.AuditRecord{
		Kind:            kind,
		Description:     description,
		Message:         msg,
		Date:            utils.FormatDate(date),
		Count:           count,
		RequestID:       requestID,
		ChunkID:         chunkID,
		TransactionTime: transactionTime(now),
	}
}

func transactionTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

// periodPrefix is the date prefix selecting a day or a month.
func periodPrefix(date time.Time, period models.Period) string {
	if period == models.PeriodMonth {
		return utils.FormatMonth(date) + "-"
	}
	return utils.FormatDate(date)
}

// --- Time series cache ---

type seriesKey struct {
	kind models.FileType
	cik  models.CIK
}

// fireHose preloads transaction series for analysis and serves them from an
// in-memory cache. load returns nil rows for an unknown CIK.
type fireHose struct {
	cache *infra.Cache[seriesKey, []models.TransactionRecord]
	load  func(ctx context.Context, kind models.FileType, cik models.CIK) ([]models.TransactionRecord, error)
}

func newFireHose(ttl time.Duration, load func(context.Context, models.FileType, models.CIK) ([]models.TransactionRecord, error)) *fireHose {
	if ttl <= 0 {
		ttl = 30 * time.Minute
	}
	return &fireHose{
		cache: infra.NewCache[seriesKey, []models.TransactionRecord](ttl),
		load:  load,
	}
}

// preload drops expired series before loading, so a long-running process
// holds only the working set of recent analyses.
func (h *fireHose) preload(ctx context.Context, kind models.FileType, ciks []models.CIK) error {
	h.cache.Cleanup()
	for _, cik := range ciks {
		if err := ctx.Err(); err != nil {
			return err
		}
		rows, err := h.load(ctx, kind, cik)
		if err != nil {
			return fmt.Errorf("preload %s %d: %w", kind, cik, err)
		}
		if rows != nil {
			h.cache.Set(seriesKey{kind, cik}, rows)
		}
	}
	return nil
}

func (h *fireHose) get(ctx context.Context, kind models.FileType, cik models.CIK) ([]models.TransactionRecord, error) {
	if rows, ok := h.cache.Get(seriesKey{kind, cik}); ok {
		return rows, nil
	}
	rows, err := h.load(ctx, kind, cik)
	if err != nil {
		return nil, err
	}
	if rows != nil {
		h.cache.Set(seriesKey{kind, cik}, rows)
	}
	return rows, nil
}

func (h *fireHose) invalidate(kind models.FileType, cik models.CIK) {
	h.cache.Invalidate(seriesKey{kind, cik})
}
