package store

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"
	bolt "go.etcd.io/bbolt"

	"github.com/seenimoa/edgarinsiders/pkg/models"
	"github.com/seenimoa/edgarinsiders/pkg/utils"
)

var (
	// Bucket names
	bucketAnalytics          = []byte("analytics")
	bucketIssuerTransactions = []byte("issuer_transactions")
	bucketOwnerTransactions  = []byte("owner_transactions")
	bucketCompanies          = []byte("companies")
	bucketResults            = []byte("results")
)

// BoltStore implements Store using a local BoltDB file.
type BoltStore struct {
	db     *bolt.DB
	hose   *fireHose
	now    func() time.Time
	logger zerolog.Logger
}

// NewBoltStore opens (creating if needed) the database at path.
func NewBoltStore(path string, cacheTTL time.Duration, logger zerolog.Logger) (*BoltStore, error) {
	if path == "" {
		return nil, fmt.Errorf("bolt path is required")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	db, err := bolt.Open(path, 0600, &bolt.Options{Timeout: 5 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		for _, bucket := range [][]byte{
			bucketAnalytics,
			bucketIssuerTransactions,
			bucketOwnerTransactions,
			bucketCompanies,
			bucketResults,
		} {
			if _, err := tx.CreateBucketIfNotExists(bucket); err != nil {
				return fmt.Errorf("failed to create bucket %s: %w", bucket, err)
			}
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, err
	}

	s := &BoltStore{
		db:     db,
		now:    time.Now,
		logger: logger.With().Str("component", "store").Str("backend", "bolt").Logger(),
	}
	s.hose = newFireHose(cacheTTL, s.loadSeries)
	return s, nil
}

// Close closes the database
func (s *BoltStore) Close() error {
	return s.db.Close()
}

func analyticsKey(kind models.AuditKind, date, txTime string) []byte {
	return []byte(string(kind) + "/" + date + "/" + txTime)
}

// Audit ledger operations

func (s *BoltStore) SaveAnalytics(ctx context.Context, kind models.AuditKind, description string, msg models.AuditMessage,
	date time.Time, count int, requestID, chunkID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketAnalytics)
		now := s.now()
		rec := newAuditRecord(kind, description, msg, date, count, requestID, chunkID, now)
		key := analyticsKey(kind, rec.Date, rec.TransactionTime)
		// TransactionTime is the record identity, so nudge it past any collision.
		for b.Get(key) != nil {
			now = now.Add(time.Nanosecond)
			rec.TransactionTime = transactionTime(now)
			key = analyticsKey(kind, rec.Date, rec.TransactionTime)
		}
		data, err := json.Marshal(rec)
		if err != nil {
			return err
		}
		return b.Put(key, data)
	})
}

func (s *BoltStore) GetAnalytics(ctx context.Context, kind models.AuditKind, date time.Time, period models.Period) ([]models.AuditRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	prefix := []byte(string(kind) + "/" + periodPrefix(date, period))
	var records []models.AuditRecord
	err := s.db.View(func(tx *bolt.Tx) error {
		c := tx.Bucket(bucketAnalytics).Cursor()
		for k, v := c.Seek(prefix); k != nil && bytes.HasPrefix(k, prefix); k, v = c.Next() {
			var rec models.AuditRecord
			if err := json.Unmarshal(v, &rec); err != nil {
				return fmt.Errorf("decode %s: %w", k, err)
			}
			records = append(records, rec)
		}
		return nil
	})
	return records, err
}

func (s *BoltStore) UpdateAnalytics(ctx context.Context, rec models.AuditRecord, processed bool) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketAnalytics)
		key := analyticsKey(rec.Kind, rec.Date, rec.TransactionTime)
		data := b.Get(key)
		if data == nil {
			return fmt.Errorf("%w: %s", ErrNotFound, key)
		}
		var stored models.AuditRecord
		if err := json.Unmarshal(data, &stored); err != nil {
			return err
		}
		stored.Processed = processed
		out, err := json.Marshal(stored)
		if err != nil {
			return err
		}
		return b.Put(key, out)
	})
}

// Transaction operations

func seriesBucket(kind models.FileType) []byte {
	if kind == models.FileTypeOwner {
		return bucketOwnerTransactions
	}
	return bucketIssuerTransactions
}

func (s *BoltStore) UpdateTransactions(ctx context.Context, cik models.CIK, rows []models.TransactionRecord) error {
	return s.putSeries(ctx, models.FileTypeIssuer, cik, rows)
}

func (s *BoltStore) UpdateOwnersTransactions(ctx context.Context, cik models.CIK, rows []models.TransactionRecord) error {
	return s.putSeries(ctx, models.FileTypeOwner, cik, rows)
}

func (s *BoltStore) putSeries(ctx context.Context, kind models.FileType, cik models.CIK, rows []models.TransactionRecord) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	data, err := json.Marshal(rows)
	if err != nil {
		return err
	}
	err = s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(seriesBucket(kind)).Put([]byte(utils.PadCIK(cik)), data)
	})
	if err == nil {
		s.hose.invalidate(kind, cik)
	}
	return err
}

func (s *BoltStore) loadSeries(_ context.Context, kind models.FileType, cik models.CIK) ([]models.TransactionRecord, error) {
	var rows []models.TransactionRecord
	err := s.db.View(func(tx *bolt.Tx) error {
		data := tx.Bucket(seriesBucket(kind)).Get([]byte(utils.PadCIK(cik)))
		if data == nil {
			return nil
		}
		rows = make([]models.TransactionRecord, 0)
		return json.Unmarshal(data, &rows)
	})
	return rows, err
}

func (s *BoltStore) UpdateCompanies(ctx context.Context, rows []models.CompanyRecord) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketCompanies)
		for _, row := range rows {
			data, err := json.Marshal(row)
			if err != nil {
				return err
			}
			if err := b.Put([]byte(row.CIK), data); err != nil {
				return err
			}
		}
		return nil
	})
}

// ListCompanies returns the stored company directory ordered by CIK.
func (s *BoltStore) ListCompanies(ctx context.Context) ([]models.CompanyRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var companies []models.CompanyRecord
	err := s.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketCompanies).ForEach(func(k, v []byte) error {
			var c models.CompanyRecord
			if err := json.Unmarshal(v, &c); err != nil {
				return err
			}
			companies = append(companies, c)
			return nil
		})
	})
	return companies, err
}

// Analysis operations

func (s *BoltStore) ReadFireHose(ctx context.Context, kind models.FileType, ciks []models.CIK, date time.Time) error {
	s.logger.Debug().Str("kind", string(kind)).Int("ciks", len(ciks)).Str("date", utils.FormatDate(date)).Msg("preloading series")
	return s.hose.preload(ctx, kind, ciks)
}

func (s *BoltStore) GetTimeSeries(ctx context.Context, cik models.CIK, kind models.FileType) ([]models.TransactionRecord, error) {
	return s.hose.get(ctx, kind, cik)
}

func (s *BoltStore) UpdateResults(ctx context.Context, date time.Time, findings []models.Finding) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	data, err := json.Marshal(findings)
	if err != nil {
		return err
	}
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketResults).Put([]byte(utils.FormatDate(date)), data)
	})
}

func (s *BoltStore) GetResults(ctx context.Context, date time.Time) ([]models.Finding, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var findings []models.Finding
	err := s.db.View(func(tx *bolt.Tx) error {
		data := tx.Bucket(bucketResults).Get([]byte(utils.FormatDate(date)))
		if data == nil {
			return fmt.Errorf("%w: results for %s", ErrNotFound, utils.FormatDate(date))
		}
		return json.Unmarshal(data, &findings)
	})
	return findings, err
}
