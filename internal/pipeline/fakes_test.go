package pipeline

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/seenimoa/edgarinsiders/internal/edgar"
	"github.com/seenimoa/edgarinsiders/pkg/models"
	"github.com/seenimoa/edgarinsiders/pkg/utils"
)

type fakeScraper struct {
	mu        sync.Mutex
	index     string
	indexErr  error
	feed      []models.CIK
	results   map[models.CIK]edgar.TransactionResult
	companies map[string]edgar.CompanyResult
	block     map[models.CIK]bool // wait for cancellation
	blockOwn  map[models.CIK]bool // same, owner side only
	calls     []models.CIK
}

func (f *fakeScraper) FetchTransactions(ctx context.Context, ft models.FileType, cik models.CIK) edgar.TransactionResult {
	f.mu.Lock()
	f.calls = append(f.calls, cik)
	blocked := f.block[cik] || (ft == models.FileTypeOwner && f.blockOwn[cik])
	res, ok := f.results[cik]
	f.mu.Unlock()

	if blocked {
		<-ctx.Done()
		return edgar.TransactionResult{ID: fmt.Sprint(cik), Failure: edgar.FailureCancelled, Err: ctx.Err()}
	}
	if !ok {
		return edgar.TransactionResult{ID: fmt.Sprint(cik), Records: []models.TransactionRecord{}, Statuses: []int{200}}
	}
	return res
}

func (f *fakeScraper) FetchCompaniesByState(ctx context.Context, state, _ string) edgar.CompanyResult {
	if res, ok := f.companies[state]; ok {
		return res
	}
	return edgar.CompanyResult{ID: state, Records: []models.CompanyRecord{}, Statuses: []int{200}}
}

func (f *fakeScraper) FetchDailyIndex(context.Context, time.Time) (string, error) {
	return f.index, f.indexErr
}

func (f *fakeScraper) FetchCurrentFilings(context.Context, string) ([]models.CIK, error) {
	return f.feed, nil
}

type memStore struct {
	mu           sync.Mutex
	seq          int
	records      []models.AuditRecord
	issuers      map[models.CIK][]models.TransactionRecord
	owners       map[models.CIK][]models.TransactionRecord
	companies    []models.CompanyRecord
	results      map[string][]models.Finding
	hoseRequests [][]models.CIK
	failPersist  map[models.CIK]bool
}

func newMemStore() *memStore {
	return &memStore{
		issuers: map[models.CIK][]models.TransactionRecord{},
		owners:  map[models.CIK][]models.TransactionRecord{},
		results: map[string][]models.Finding{},
	}
}

func (s *memStore) SaveAnalytics(_ context.Context, kind models.AuditKind, desc string, msg models.AuditMessage,
	date time.Time, count int, requestID, chunkID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seq++
	s.records = append(s.records, models.AuditRecord{
		Kind:            kind,
		Description:     desc,
		Message:         msg,
		Date:            utils.FormatDate(date),
		Count:           count,
		RequestID:       requestID,
		ChunkID:         chunkID,
		TransactionTime: fmt.Sprintf("t%06d", s.seq),
	})
	return nil
}

func (s *memStore) GetAnalytics(_ context.Context, kind models.AuditKind, date time.Time, period models.Period) ([]models.AuditRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	prefix := utils.FormatDate(date)
	if period == models.PeriodMonth {
		prefix = utils.FormatMonth(date)
	}
	var out []models.AuditRecord
	for _, r := range s.records {
		if r.Kind == kind && strings.HasPrefix(r.Date, prefix) {
			out = append(out, r)
		}
	}
	return out, nil
}

func (s *memStore) UpdateAnalytics(_ context.Context, rec models.AuditRecord, processed bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.records {
		if s.records[i].TransactionTime == rec.TransactionTime {
			s.records[i].Processed = processed
			return nil
		}
	}
	return fmt.Errorf("missing %s", rec.TransactionTime)
}

func (s *memStore) UpdateTransactions(_ context.Context, cik models.CIK, rows []models.TransactionRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failPersist[cik] {
		return fmt.Errorf("disk full")
	}
	s.issuers[cik] = rows
	return nil
}

func (s *memStore) UpdateOwnersTransactions(_ context.Context, cik models.CIK, rows []models.TransactionRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.owners[cik] = rows
	return nil
}

func (s *memStore) UpdateCompanies(_ context.Context, rows []models.CompanyRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.companies = append(s.companies, rows...)
	return nil
}

func (s *memStore) ReadFireHose(_ context.Context, _ models.FileType, ciks []models.CIK, _ time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.hoseRequests = append(s.hoseRequests, ciks)
	return nil
}

func (s *memStore) GetTimeSeries(_ context.Context, cik models.CIK, kind models.FileType) ([]models.TransactionRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if kind == models.FileTypeOwner {
		return s.owners[cik], nil
	}
	return s.issuers[cik], nil
}

func (s *memStore) UpdateResults(_ context.Context, date time.Time, findings []models.Finding) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.results[utils.FormatDate(date)] = findings
	return nil
}

func (s *memStore) byKind(kind models.AuditKind) []models.AuditRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.AuditRecord
	for _, r := range s.records {
		if r.Kind == kind {
			out = append(out, r)
		}
	}
	return out
}

type sentMsg struct {
	subject string
	msg     models.DispatchMessage
}

type fakeQueue struct {
	mu   sync.Mutex
	sent []sentMsg
	fail map[string]bool // chunk ids that fail to publish
}

func (q *fakeQueue) Publish(_ context.Context, subject string, msg models.DispatchMessage) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.fail[msg.ChunkID] {
		return fmt.Errorf("queue unavailable")
	}
	q.sent = append(q.sent, sentMsg{subject, msg})
	return nil
}

type fakeNotifier struct {
	mu     sync.Mutex
	alerts []string
	found  []models.CIK
}

func (n *fakeNotifier) Alert(_ context.Context, _, message string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.alerts = append(n.alerts, message)
	return nil
}

func (n *fakeNotifier) Found(_ context.Context, _ time.Time, ciks []models.CIK) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.found = append(n.found, ciks...)
	return nil
}
