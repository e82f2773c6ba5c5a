package pipeline

import (
	"context"
	"time"

	"github.com/seenimoa/edgarinsiders/internal/edgar"
	"github.com/seenimoa/edgarinsiders/pkg/models"
)

// Scraper fetches EDGAR data. *edgar.Client satisfies it.
type Scraper interface {
	FetchTransactions(ctx context.Context, ft models.FileType, cik models.CIK) edgar.TransactionResult
	FetchCompaniesByState(ctx context.Context, state, cursor string) edgar.CompanyResult
	FetchDailyIndex(ctx context.Context, date time.Time) (string, error)
	FetchCurrentFilings(ctx context.Context, formType string) ([]models.CIK, error)
}

// Store persists the ledger, transactions and results.
type Store interface {
	SaveAnalytics(ctx context.Context, kind models.AuditKind, description string, msg models.AuditMessage,
		date time.Time, count int, requestID, chunkID string) error
	GetAnalytics(ctx context.Context, kind models.AuditKind, date time.Time, period models.Period) ([]models.AuditRecord, error)
	UpdateAnalytics(ctx context.Context, rec models.AuditRecord, processed bool) error
	UpdateTransactions(ctx context.Context, cik models.CIK, rows []models.TransactionRecord) error
	UpdateOwnersTransactions(ctx context.Context, cik models.CIK, rows []models.TransactionRecord) error
	UpdateCompanies(ctx context.Context, rows []models.CompanyRecord) error
	ReadFireHose(ctx context.Context, kind models.FileType, ciks []models.CIK, date time.Time) error
	GetTimeSeries(ctx context.Context, cik models.CIK, kind models.FileType) ([]models.TransactionRecord, error)
	UpdateResults(ctx context.Context, date time.Time, findings []models.Finding) error
}

// Queue publishes chunks of work.
type Queue interface {
	Publish(ctx context.Context, subject string, msg models.DispatchMessage) error
}

// Notifier reaches the operator.
type Notifier interface {
	Alert(ctx context.Context, subject, message string) error
	Found(ctx context.Context, date time.Time, ciks []models.CIK) error
}

// Engine scores an issuer's transaction series.
type Engine interface {
	ClusterBuying(series []models.TransactionRecord, date time.Time, threshold float64, cik models.CIK) models.ClusterSignal
}
