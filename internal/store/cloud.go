package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sort"
	"time"

	"cloud.google.com/go/firestore"
	"cloud.google.com/go/storage"
	"github.com/rs/zerolog"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/seenimoa/edgarinsiders/pkg/models"
	"github.com/seenimoa/edgarinsiders/pkg/utils"
)

const (
	resultsCollection = "results"
	companiesObject   = "companies.json"
)

// CloudOptions configures the Firestore and Cloud Storage backend.
type CloudOptions struct {
	ProjectID  string
	Bucket     string
	Collection string
	CacheTTL   time.Duration
}

// CloudStore keeps the audit ledger and results in Firestore and the
// transaction series and company directory as JSON objects in a GCS bucket.
type CloudStore struct {
	fs         *firestore.Client
	gcs        *storage.Client
	bucket     *storage.BucketHandle
	collection string
	hose       *fireHose
	now        func() time.Time
	logger     zerolog.Logger
}

// NewCloudStore connects to Firestore and Cloud Storage using application
// default credentials.
func NewCloudStore(ctx context.Context, opts CloudOptions, logger zerolog.Logger) (*CloudStore, error) {
	if opts.ProjectID == "" {
		return nil, fmt.Errorf("projectID must be provided to create a firestore client")
	}
	if opts.Bucket == "" {
		return nil, fmt.Errorf("bucket must be provided for the cloud store")
	}
	if opts.Collection == "" {
		opts.Collection = "analytics"
	}

	fs, err := firestore.NewClient(ctx, opts.ProjectID)
	if err != nil {
		return nil, fmt.Errorf("failed to create Firestore client: %w", err)
	}
	gcs, err := storage.NewClient(ctx)
	if err != nil {
		fs.Close()
		return nil, fmt.Errorf("failed to create storage client: %w", err)
	}

	s := &CloudStore{
		fs:         fs,
		gcs:        gcs,
		bucket:     gcs.Bucket(opts.Bucket),
		collection: opts.Collection,
		now:        time.Now,
		logger:     logger.With().Str("component", "store").Str("backend", "cloud").Logger(),
	}
	s.hose = newFireHose(opts.CacheTTL, s.loadSeries)
	return s, nil
}

// Close releases both clients.
func (s *CloudStore) Close() error {
	return errors.Join(s.fs.Close(), s.gcs.Close())
}

func auditDocID(kind models.AuditKind, txTime string) string {
	return string(kind) + "_" + txTime
}

// dateRange returns the inclusive YYYY-MM-DD bounds of a period.
func dateRange(date time.Time, period models.Period) (string, string) {
	if period == models.PeriodMonth {
		first := time.Date(date.Year(), date.Month(), 1, 0, 0, 0, 0, time.UTC)
		last := first.AddDate(0, 1, -1)
		return utils.FormatDate(first), utils.FormatDate(last)
	}
	d := utils.FormatDate(date)
	return d, d
}

// Audit ledger operations

func (s *CloudStore) SaveAnalytics(ctx context.Context, kind models.AuditKind, description string, msg models.AuditMessage,
	date time.Time, count int, requestID, chunkID string) error {
	now := s.now()
	rec := newAuditRecord(kind, description, msg, date, count, requestID, chunkID, now)
	for attempt := 0; attempt < 5; attempt++ {
		ref := s.fs.Collection(s.collection).Doc(auditDocID(kind, rec.TransactionTime))
		_, err := ref.Create(ctx, rec)
		if err == nil {
			return nil
		}
		if status.Code(err) != codes.AlreadyExists {
			return fmt.Errorf("save %s record: %w", kind, err)
		}
		now = now.Add(time.Nanosecond)
		rec.TransactionTime = transactionTime(now)
	}
	return fmt.Errorf("save %s record: transaction time collision", kind)
}

func (s *CloudStore) GetAnalytics(ctx context.Context, kind models.AuditKind, date time.Time, period models.Period) ([]models.AuditRecord, error) {
	from, to := dateRange(date, period)
	iter := s.fs.Collection(s.collection).
		Where("Kind", "==", string(kind)).
		Where("Date", ">=", from).
		Where("Date", "<=", to).
		Documents(ctx)
	defer iter.Stop()

	var records []models.AuditRecord
	for {
		doc, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("query %s records: %w", kind, err)
		}
		var rec models.AuditRecord
		if err := doc.DataTo(&rec); err != nil {
			return nil, fmt.Errorf("decode %s: %w", doc.Ref.ID, err)
		}
		records = append(records, rec)
	}
	return records, nil
}

func (s *CloudStore) UpdateAnalytics(ctx context.Context, rec models.AuditRecord, processed bool) error {
	ref := s.fs.Collection(s.collection).Doc(auditDocID(rec.Kind, rec.TransactionTime))
	_, err := ref.Update(ctx, []firestore.Update{{Path: "Processed", Value: processed}})
	if status.Code(err) == codes.NotFound {
		return fmt.Errorf("%w: %s", ErrNotFound, ref.ID)
	}
	return err
}

// Transaction operations

func seriesObject(kind models.FileType, cik models.CIK) string {
	dir := "issuers"
	if kind == models.FileTypeOwner {
		dir = "owners"
	}
	return fmt.Sprintf("%s/%s.json", dir, utils.PadCIK(cik))
}

func (s *CloudStore) UpdateTransactions(ctx context.Context, cik models.CIK, rows []models.TransactionRecord) error {
	return s.putSeries(ctx, models.FileTypeIssuer, cik, rows)
}

func (s *CloudStore) UpdateOwnersTransactions(ctx context.Context, cik models.CIK, rows []models.TransactionRecord) error {
	return s.putSeries(ctx, models.FileTypeOwner, cik, rows)
}

func (s *CloudStore) putSeries(ctx context.Context, kind models.FileType, cik models.CIK, rows []models.TransactionRecord) error {
	if err := s.writeJSON(ctx, seriesObject(kind, cik), rows); err != nil {
		return err
	}
	s.hose.invalidate(kind, cik)
	return nil
}

func (s *CloudStore) loadSeries(ctx context.Context, kind models.FileType, cik models.CIK) ([]models.TransactionRecord, error) {
	rows := make([]models.TransactionRecord, 0)
	found, err := s.readJSON(ctx, seriesObject(kind, cik), &rows)
	if err != nil || !found {
		return nil, err
	}
	return rows, nil
}

func (s *CloudStore) UpdateCompanies(ctx context.Context, rows []models.CompanyRecord) error {
	var existing []models.CompanyRecord
	if _, err := s.readJSON(ctx, companiesObject, &existing); err != nil {
		return err
	}
	return s.writeJSON(ctx, companiesObject, mergeCompanies(existing, rows))
}

// ListCompanies returns the stored company directory ordered by CIK.
func (s *CloudStore) ListCompanies(ctx context.Context) ([]models.CompanyRecord, error) {
	var companies []models.CompanyRecord
	if _, err := s.readJSON(ctx, companiesObject, &companies); err != nil {
		return nil, err
	}
	return companies, nil
}

// mergeCompanies overlays updates onto existing by CIK, ordered by CIK.
func mergeCompanies(existing, updates []models.CompanyRecord) []models.CompanyRecord {
	byCIK := make(map[string]models.CompanyRecord, len(existing)+len(updates))
	for _, c := range existing {
		byCIK[c.CIK] = c
	}
	for _, c := range updates {
		byCIK[c.CIK] = c
	}
	out := make([]models.CompanyRecord, 0, len(byCIK))
	for _, c := range byCIK {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CIK < out[j].CIK })
	return out
}

func (s *CloudStore) writeJSON(ctx context.Context, object string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	w := s.bucket.Object(object).NewWriter(ctx)
	w.ContentType = "application/json"
	if _, err := w.Write(data); err != nil {
		_ = w.Close()
		return fmt.Errorf("failed to write to GCS object %s: %w", object, err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("failed to finalize GCS write %s: %w", object, err)
	}
	return nil
}

// readJSON decodes an object into v, reporting false when it does not exist.
func (s *CloudStore) readJSON(ctx context.Context, object string, v any) (bool, error) {
	r, err := s.bucket.Object(object).NewReader(ctx)
	if errors.Is(err, storage.ErrObjectNotExist) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to open GCS object %s: %w", object, err)
	}
	defer r.Close()

	data, err := io.ReadAll(r)
	if err != nil {
		return false, fmt.Errorf("failed to read GCS object %s: %w", object, err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return false, fmt.Errorf("decode %s: %w", object, err)
	}
	return true, nil
}

// Analysis operations

func (s *CloudStore) ReadFireHose(ctx context.Context, kind models.FileType, ciks []models.CIK, date time.Time) error {
	s.logger.Debug().Str("kind", string(kind)).Int("ciks", len(ciks)).Str("date", utils.FormatDate(date)).Msg("preloading series")
	return s.hose.preload(ctx, kind, ciks)
}

func (s *CloudStore) GetTimeSeries(ctx context.Context, cik models.CIK, kind models.FileType) ([]models.TransactionRecord, error) {
	return s.hose.get(ctx, kind, cik)
}

type resultsDoc struct {
	Date     string `firestore:"Date"`
	Findings string `firestore:"Findings"` // JSON encoded []models.Finding
	Count    int    `firestore:"Count"`
}

func (s *CloudStore) UpdateResults(ctx context.Context, date time.Time, findings []models.Finding) error {
	data, err := json.Marshal(findings)
	if err != nil {
		return err
	}
	d := utils.FormatDate(date)
	_, err = s.fs.Collection(resultsCollection).Doc(d).Set(ctx, resultsDoc{
		Date:     d,
		Findings: string(data),
		Count:    len(findings),
	})
	return err
}

func (s *CloudStore) GetResults(ctx context.Context, date time.Time) ([]models.Finding, error) {
	d := utils.FormatDate(date)
	snap, err := s.fs.Collection(resultsCollection).Doc(d).Get(ctx)
	if status.Code(err) == codes.NotFound {
		return nil, fmt.Errorf("%w: results for %s", ErrNotFound, d)
	}
	if err != nil {
		return nil, err
	}
	var doc resultsDoc
	if err := snap.DataTo(&doc); err != nil {
		return nil, err
	}
	var findings []models.Finding
	if err := json.Unmarshal([]byte(doc.Findings), &findings); err != nil {
		return nil, fmt.Errorf("decode results %s: %w", d, err)
	}
	return findings, nil
}
