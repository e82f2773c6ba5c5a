package pipeline

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/seenimoa/edgarinsiders/internal/edgar"
	"github.com/seenimoa/edgarinsiders/internal/metrics"
	"github.com/seenimoa/edgarinsiders/pkg/models"
)

var testDate = time.Date(2023, 1, 15, 0, 0, 0, 0, time.UTC)

type fixture struct {
	scraper  *fakeScraper
	store    *memStore
	queue    *fakeQueue
	notifier *fakeNotifier
	orch     *Orchestrator
}

func newFixture(opts Options, engine Engine) *fixture {
	f := &fixture{
		scraper:  &fakeScraper{results: map[models.CIK]edgar.TransactionResult{}},
		store:    newMemStore(),
		queue:    &fakeQueue{},
		notifier: &fakeNotifier{},
	}
	if opts.DispatchSubject == "" {
		opts.DispatchSubject = "insiders.dispatch"
	}
	if opts.RetrySubject == "" {
		opts.RetrySubject = "insiders.retry"
	}
	f.orch = New(Deps{
		Scraper:  f.scraper,
		Store:    f.store,
		Queue:    f.queue,
		Notifier: f.notifier,
		Engine:   engine,
		Logger:   zerolog.Nop(),
	}, opts)
	return f
}

func rows(types ...string) []models.TransactionRecord {
	out := make([]models.TransactionRecord, len(types))
	for i, t := range types {
		out[i] = models.TransactionRecord{
			FilingDate:      "2023-01-10",
			Counterparty:    fmt.Sprintf("Owner %d", i),
			CounterpartyCIK: fmt.Sprintf("%d", 1000+i),
			TransactionType: t,
		}
	}
	return out
}

func ok(cik models.CIK, records []models.TransactionRecord) edgar.TransactionResult {
	return edgar.TransactionResult{ID: fmt.Sprint(cik), Records: records, Statuses: []int{200}}
}

func TestParseDailyIndex(t *testing.T) {
	text := "Description:           Daily Index of EDGAR Dissemination Feed by Company Name\n" +
		"CIK|Company Name|Form Type|Date Filed|File Name\n" +
		"--------------------------------------------------------------------------------\n" +
		"320193|APPLE INC|4|20230113|edgar/data/320193/0000320193-23-000001.txt\r\n" +
		"320193|APPLE INC|4|20230113|edgar/data/320193/0000320193-23-000002.txt\n" +
		"789019|MICROSOFT CORP|10-K|20230113|edgar/data/789019/0000789019-23-000001.txt\n" +
		"1318605|Tesla, Inc.|4/A|20230113|edgar/data/1318605/0001318605-23-000001.txt\n" +
		"garbage|line\n" +
		"notanumber|X|4|20230113|x.txt\n"

	assert.Equal(t, []models.CIK{320193, 1318605}, ParseDailyIndex(text))
	assert.Empty(t, ParseDailyIndex(""))
}

func TestSyncDailyIndexRecordsFound(t *testing.T) {
	f := newFixture(Options{}, nil)
	f.scraper.index = "CIK|Company Name|Form Type|Date Filed|File Name\n" +
		"320193|APPLE INC|4|20230113|edgar/data/320193/a.txt\n" +
		"320193|APPLE INC|4|20230113|edgar/data/320193/b.txt\n" +
		"789019|MICROSOFT CORP|8-K|20230113|edgar/data/789019/c.txt\n"

	ciks, err := f.orch.SyncDailyIndex(context.Background(), testDate)
	require.NoError(t, err)
	assert.Equal(t, []models.CIK{320193}, ciks)

	found := f.store.byKind(models.AuditFound)
	require.Len(t, found, 1)
	assert.Equal(t, 1, found[0].Count)
	assert.Equal(t, "2023-01-15", found[0].Date)
	assert.Equal(t, []models.CIK{320193}, found[0].Message.Received)
}

func TestSyncDailyIndexError(t *testing.T) {
	f := newFixture(Options{}, nil)
	f.scraper.indexErr = &edgar.ErrHTTP{StatusCode: 404, URL: "x"}

	_, err := f.orch.SyncDailyIndex(context.Background(), testDate)
	require.Error(t, err)
	assert.Empty(t, f.store.byKind(models.AuditFound))
}

func TestSyncCurrentFeedDedupes(t *testing.T) {
	f := newFixture(Options{}, nil)
	f.scraper.feed = []models.CIK{5, 7, 5, 9, 7}

	ciks, err := f.orch.SyncCurrentFeed(context.Background(), testDate)
	require.NoError(t, err)
	assert.Equal(t, []models.CIK{5, 7, 9}, ciks)
	require.Len(t, f.store.byKind(models.AuditFound), 1)
	assert.Equal(t, 3, f.store.byKind(models.AuditFound)[0].Count)
}

func TestDispatchPartitionsIntoChunks(t *testing.T) {
	f := newFixture(Options{ChunkSize: 100}, nil)
	ciks := make([]models.CIK, 250)
	for i := range ciks {
		ciks[i] = models.CIK(i + 1)
	}

	n, err := f.orch.Dispatch(context.Background(), ciks, testDate, "req-1")
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	require.Len(t, f.queue.sent, 3)
	for i, want := range []int{100, 100, 50} {
		m := f.queue.sent[i]
		assert.Equal(t, "insiders.dispatch", m.subject)
		assert.Equal(t, fmt.Sprint(i+1), m.msg.ChunkID)
		assert.Equal(t, "req-1", m.msg.RequestID)
		assert.Equal(t, 20230115, m.msg.Date)
		assert.Len(t, m.msg.CIK, want)
	}
	assert.Equal(t, models.CIK(201), f.queue.sent[2].msg.CIK[0])
}

func TestDispatchGeneratesRequestID(t *testing.T) {
	f := newFixture(Options{}, nil)
	f.orch.newRequestID = func() string { return "generated" }

	_, err := f.orch.Dispatch(context.Background(), []models.CIK{1, 2}, testDate, "")
	require.NoError(t, err)
	require.Len(t, f.queue.sent, 1)
	assert.Equal(t, "generated", f.queue.sent[0].msg.RequestID)
}

func TestDispatchSkipsFailedPublish(t *testing.T) {
	f := newFixture(Options{ChunkSize: 1}, nil)
	f.queue.fail = map[string]bool{"2": true}

	n, err := f.orch.Dispatch(context.Background(), []models.CIK{1, 2, 3}, testDate, "req")
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	require.Len(t, f.queue.sent, 2)
	assert.Equal(t, "3", f.queue.sent[1].msg.ChunkID)
}

func TestDispatchStopsOnCancel(t *testing.T) {
	f := newFixture(Options{ChunkSize: 1, DispatchDelay: time.Hour}, nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	n, err := f.orch.Dispatch(ctx, []models.CIK{1, 2}, testDate, "req")
	require.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, n)
}

func TestCheckIfProcessedIsIdempotent(t *testing.T) {
	f := newFixture(Options{}, nil)
	ctx := context.Background()

	done, err := f.orch.CheckIfProcessed(ctx, []models.CIK{1, 2}, testDate, "req", "1")
	require.NoError(t, err)
	assert.False(t, done)

	done, err = f.orch.CheckIfProcessed(ctx, []models.CIK{1, 2}, testDate, "req", "1")
	require.NoError(t, err)
	assert.True(t, done)

	done, err = f.orch.CheckIfProcessed(ctx, []models.CIK{1, 2}, testDate, "other", "1")
	require.NoError(t, err)
	assert.False(t, done)

	savings := f.store.byKind(models.AuditSaving)
	require.Len(t, savings, 2)
	assert.Equal(t, []models.CIK{1, 2}, savings[0].Message.Received)
	assert.Equal(t, 2, savings[0].Count)
}

func TestUpdateProcessedMarksAncestors(t *testing.T) {
	f := newFixture(Options{}, nil)
	ctx := context.Background()
	for _, id := range []string{"3", "31", "3.1", "3.2", "4"} {
		require.NoError(t, f.store.SaveAnalytics(ctx, models.AuditSaving, "", models.AuditMessage{}, testDate, 1, "req", id))
	}
	require.NoError(t, f.store.SaveAnalytics(ctx, models.AuditSaving, "", models.AuditMessage{}, testDate, 1, "other", "3"))

	require.NoError(t, f.orch.UpdateProcessed(ctx, testDate, "req", "3.1"))

	got := map[string]bool{}
	for _, s := range f.store.byKind(models.AuditSaving) {
		got[s.RequestID+"/"+s.ChunkID] = s.Processed
	}
	assert.Equal(t, map[string]bool{
		"req/3":   true,
		"req/31":  false,
		"req/3.1": true,
		"req/3.2": false,
		"req/4":   false,
		"other/3": false,
	}, got)
}

func TestUpdateProcessedRejectsMalformedChunk(t *testing.T) {
	f := newFixture(Options{}, nil)
	err := f.orch.UpdateProcessed(context.Background(), testDate, "req", "3..1")
	require.ErrorIs(t, err, models.ErrInvalidChunkID)
}

func TestSyncTransactionsFiltersNoise(t *testing.T) {
	f := newFixture(Options{}, nil)
	f.scraper.results[1] = ok(1, rows(models.TxPurchase, models.TxPurchase))
	f.scraper.results[2] = ok(2, rows(models.TxPurchase))
	f.scraper.results[3] = ok(3, rows(models.TxPurchase, models.TxSale, models.TxSale))
	f.scraper.results[4] = edgar.TransactionResult{ID: "4", Failure: edgar.FailureStatus, Statuses: []int{503}}
	f.scraper.results[5] = edgar.TransactionResult{ID: "5", Statuses: []int{200, 500},
		Records: rows(models.TxPurchase, models.TxPurchase, models.TxSale)}

	res := f.orch.SyncTransactions(context.Background(), []models.CIK{1, 2, 3, 4, 5}, models.FileTypeIssuer)

	assert.Equal(t, []models.CIK{1, 5}, res.Successful)
	assert.Equal(t, []int{200, 200, 200, 503, 200, 500}, res.Codes)
	assert.Empty(t, res.Dropped)
	assert.Len(t, f.store.issuers, 2)
	assert.Empty(t, f.store.owners)
}

func TestSyncTransactionsOwnerSide(t *testing.T) {
	f := newFixture(Options{}, nil)
	f.scraper.results[1] = ok(1, rows(models.TxPurchase, models.TxPurchase))

	res := f.orch.SyncTransactions(context.Background(), []models.CIK{1}, models.FileTypeOwner)
	assert.Equal(t, []models.CIK{1}, res.Successful)
	assert.Contains(t, f.store.owners, models.CIK(1))
	assert.Empty(t, f.store.issuers)
}

func TestSyncTransactionsPersistFailureNotSuccessful(t *testing.T) {
	f := newFixture(Options{}, nil)
	f.scraper.results[1] = ok(1, rows(models.TxPurchase, models.TxPurchase))
	f.store.failPersist = map[models.CIK]bool{1: true}

	res := f.orch.SyncTransactions(context.Background(), []models.CIK{1}, models.FileTypeIssuer)
	assert.Empty(t, res.Successful)
	assert.Equal(t, []int{200}, res.Codes)
}

func TestSyncTransactionsDropsAtDeadline(t *testing.T) {
	f := newFixture(Options{BatchTimeout: 50 * time.Millisecond}, nil)
	f.scraper.results[1] = ok(1, rows(models.TxPurchase, models.TxPurchase))
	f.scraper.block = map[models.CIK]bool{2: true}

	start := time.Now()
	res := f.orch.SyncTransactions(context.Background(), []models.CIK{1, 2}, models.FileTypeIssuer)

	assert.Less(t, time.Since(start), 5*time.Second)
	assert.Equal(t, []models.CIK{1}, res.Successful)
	assert.Equal(t, []models.CIK{2}, res.Dropped)
	assert.Equal(t, []int{200}, res.Codes)
}

func TestWorthKeeping(t *testing.T) {
	assert.False(t, worthKeeping(nil))
	assert.False(t, worthKeeping(rows(models.TxPurchase)))
	assert.False(t, worthKeeping(rows(models.TxSale, models.TxPurchase)))
	assert.True(t, worthKeeping(rows(models.TxPurchase, models.TxSale, models.TxPurchase)))
}

func TestConsumeProcessesChunkOnce(t *testing.T) {
	f := newFixture(Options{FetchOwners: true}, nil)
	f.scraper.results[1] = ok(1, rows(models.TxPurchase, models.TxPurchase))
	msg := models.DispatchMessage{Date: 20230115, CIK: []models.CIK{1, 2}, RequestID: "req", ChunkID: "1"}
	ctx := context.Background()

	require.NoError(t, f.orch.Consume(ctx, msg))

	savings := f.store.byKind(models.AuditSaving)
	require.Len(t, savings, 1)
	assert.True(t, savings[0].Processed)

	issuers := f.store.byKind(models.AuditIssuers)
	require.Len(t, issuers, 1)
	assert.Equal(t, []models.CIK{1}, issuers[0].Message.Processed)
	assert.Equal(t, "req", issuers[0].RequestID)
	assert.Equal(t, "1", issuers[0].ChunkID)
	assert.Len(t, f.store.byKind(models.AuditOwners), 1)

	skipped := testutil.ToFloat64(metrics.ChunksSkipped)
	calls := len(f.scraper.calls)
	require.NoError(t, f.orch.Consume(ctx, msg))
	assert.Equal(t, skipped+1, testutil.ToFloat64(metrics.ChunksSkipped))
	assert.Len(t, f.scraper.calls, calls)
	assert.Len(t, f.store.byKind(models.AuditIssuers), 1)
}

func TestConsumeLeavesDroppedChunkUnprocessed(t *testing.T) {
	f := newFixture(Options{BatchTimeout: 20 * time.Millisecond}, nil)
	f.scraper.block = map[models.CIK]bool{2: true}
	msg := models.DispatchMessage{Date: 20230115, CIK: []models.CIK{1, 2}, RequestID: "req", ChunkID: "2"}

	require.NoError(t, f.orch.Consume(context.Background(), msg))

	savings := f.store.byKind(models.AuditSaving)
	require.Len(t, savings, 1)
	assert.False(t, savings[0].Processed)
	issuers := f.store.byKind(models.AuditIssuers)
	require.Len(t, issuers, 1)
	assert.Equal(t, []models.CIK{2}, issuers[0].Message.Dropped)
}

func TestConsumeLeavesOwnerDroppedChunkUnprocessed(t *testing.T) {
	f := newFixture(Options{FetchOwners: true, BatchTimeout: 20 * time.Millisecond}, nil)
	f.scraper.blockOwn = map[models.CIK]bool{2: true}
	msg := models.DispatchMessage{Date: 20230115, CIK: []models.CIK{1, 2}, RequestID: "req", ChunkID: "3"}

	require.NoError(t, f.orch.Consume(context.Background(), msg))

	savings := f.store.byKind(models.AuditSaving)
	require.Len(t, savings, 1)
	assert.False(t, savings[0].Processed)
	issuers := f.store.byKind(models.AuditIssuers)
	require.Len(t, issuers, 1)
	assert.Empty(t, issuers[0].Message.Dropped)
	owners := f.store.byKind(models.AuditOwners)
	require.Len(t, owners, 1)
	assert.Equal(t, []models.CIK{2}, owners[0].Message.Dropped)
}

func TestConsumeRejectsBadMessage(t *testing.T) {
	f := newFixture(Options{}, nil)
	ctx := context.Background()

	assert.Error(t, f.orch.Consume(ctx, models.DispatchMessage{Date: 20231340, ChunkID: "1"}))
	assert.Error(t, f.orch.Consume(ctx, models.DispatchMessage{Date: 20230115, ChunkID: "x"}))
	assert.Empty(t, f.store.byKind(models.AuditSaving))
}

func TestValidateWithoutFoundAlerts(t *testing.T) {
	f := newFixture(Options{}, nil)

	report, err := f.orch.ValidateResults(context.Background(), ValidateOptions{Date: testDate})
	require.NoError(t, err)
	assert.Equal(t, []string{"No FOUND events on 2023-01-15"}, report.Alerts)
	assert.Equal(t, report.Alerts, f.notifier.alerts)
}

func TestValidateEmptyFoundAlerts(t *testing.T) {
	f := newFixture(Options{}, nil)
	ctx := context.Background()
	require.NoError(t, f.store.SaveAnalytics(ctx, models.AuditFound, "", models.AuditMessage{}, testDate, 0, "", ""))

	report, err := f.orch.ValidateResults(ctx, ValidateOptions{Date: testDate})
	require.NoError(t, err)
	assert.Equal(t, []string{"No FOUND events on 2023-01-15"}, report.Alerts)
}

func seedValidation(t *testing.T, s *memStore) {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, s.SaveAnalytics(ctx, models.AuditFound, "", models.AuditMessage{Received: []models.CIK{1, 2, 3, 4, 5, 6}}, testDate, 6, "", ""))
	require.NoError(t, s.SaveAnalytics(ctx, models.AuditSaving, "", models.AuditMessage{Received: []models.CIK{6}}, testDate, 1, "req", "1"))
	require.NoError(t, s.UpdateAnalytics(ctx, s.records[len(s.records)-1], true))
	require.NoError(t, s.SaveAnalytics(ctx, models.AuditSaving, "", models.AuditMessage{Received: []models.CIK{1, 2, 3, 4, 5}}, testDate, 5, "req", "3"))
	require.NoError(t, s.SaveAnalytics(ctx, models.AuditIssuers, "",
		models.AuditMessage{Codes: []int{200, 503}, Dropped: []models.CIK{4}}, testDate, 0, "req", "3"))
}

func TestValidateAlertsWithoutFix(t *testing.T) {
	f := newFixture(Options{}, nil)
	seedValidation(t, f.store)

	report, err := f.orch.ValidateResults(context.Background(), ValidateOptions{Date: testDate})
	require.NoError(t, err)
	assert.Equal(t, []string{
		"ISSUERS events have [503] errors on 2023-01-15 for req 3",
		"ISSUERS events dropped [4] on 2023-01-15 for req 3",
		"[1 2 3 4 5] events are still not processed on 2023-01-15 for req 3",
	}, report.Alerts)
	assert.Empty(t, report.Republished)
	assert.Empty(t, f.queue.sent)
}

func TestValidateFixModeSplitsChunk(t *testing.T) {
	f := newFixture(Options{}, nil)
	seedValidation(t, f.store)

	report, err := f.orch.ValidateResults(context.Background(), ValidateOptions{
		Date:         testDate,
		FixMode:      true,
		RetrySubject: "insiders.retry",
		SubChunkSize: 2,
	})
	require.NoError(t, err)
	require.Len(t, report.Republished, 3)
	require.Len(t, f.queue.sent, 3)

	wantIDs := []string{"3.1", "3.2", "3.3"}
	wantCIKs := [][]models.CIK{{1, 2}, {3, 4}, {5}}
	for i, sent := range f.queue.sent {
		assert.Equal(t, "insiders.retry", sent.subject)
		assert.Equal(t, wantIDs[i], sent.msg.ChunkID)
		assert.Equal(t, wantCIKs[i], sent.msg.CIK)
		assert.Equal(t, "req", sent.msg.RequestID)
		assert.Equal(t, 20230115, sent.msg.Date)
	}
	assert.Len(t, report.Alerts, 2)
}

func TestValidateFixModeContinuesNumbering(t *testing.T) {
	f := newFixture(Options{}, nil)
	seedValidation(t, f.store)
	ctx := context.Background()
	require.NoError(t, f.store.SaveAnalytics(ctx, models.AuditSaving, "", models.AuditMessage{Received: []models.CIK{1, 2}}, testDate, 2, "req", "3.1"))
	require.NoError(t, f.store.UpdateAnalytics(ctx, f.store.records[len(f.store.records)-1], true))

	_, err := f.orch.ValidateResults(ctx, ValidateOptions{Date: testDate, FixMode: true, RetrySubject: "r", SubChunkSize: 5})
	require.NoError(t, err)
	require.Len(t, f.queue.sent, 1)
	assert.Equal(t, "3.2", f.queue.sent[0].msg.ChunkID)
}

func TestNextChildIndex(t *testing.T) {
	parent := models.ChunkID{3}
	savings := []models.AuditRecord{
		{RequestID: "req", ChunkID: "3.1"},
		{RequestID: "req", ChunkID: "3.4"},
		{RequestID: "req", ChunkID: "3.2.7"},
		{RequestID: "req", ChunkID: "31"},
		{RequestID: "other", ChunkID: "3.9"},
	}
	assert.Equal(t, 5, nextChildIndex(savings, "req", parent))
	assert.Equal(t, 1, nextChildIndex(nil, "req", parent))
}

type fakeEngine map[models.CIK]float64

func (e fakeEngine) ClusterBuying(_ []models.TransactionRecord, _ time.Time, _ float64, cik models.CIK) models.ClusterSignal {
	return models.ClusterSignal{CIK: cik, PurchaseMagnitude: e[cik], PurchaseRatio: e[cik]}
}

func TestAnalyseWithoutIssuersAlerts(t *testing.T) {
	f := newFixture(Options{}, fakeEngine{})

	findings, err := f.orch.Analyse(context.Background(), testDate, 3)
	require.NoError(t, err)
	assert.Empty(t, findings)
	assert.Equal(t, []string{"No ISSUERS to analyse on 2023-01-15"}, f.notifier.alerts)
}

func TestAnalyseReportsFindings(t *testing.T) {
	f := newFixture(Options{}, fakeEngine{1: 5, 2: 1})
	ctx := context.Background()
	require.NoError(t, f.store.SaveAnalytics(ctx, models.AuditIssuers, "", models.AuditMessage{Processed: []models.CIK{1, 2}}, testDate, 2, "req", "1"))
	require.NoError(t, f.store.SaveAnalytics(ctx, models.AuditIssuers, "", models.AuditMessage{Processed: []models.CIK{2, 3}}, testDate, 2, "req", "2"))
	f.store.issuers[1] = rows(models.TxPurchase, models.TxPurchase)
	f.store.issuers[2] = rows(models.TxPurchase, models.TxPurchase)

	findings, err := f.orch.Analyse(ctx, testDate, 3)
	require.NoError(t, err)

	require.Len(t, findings, 1)
	assert.Equal(t, models.CIK(1), findings[0].Signal.CIK)
	assert.Equal(t, "2023-01-15", findings[0].Date)
	assert.Equal(t, findings, f.store.results["2023-01-15"])
	assert.Equal(t, []models.CIK{1}, f.notifier.found)
	assert.Equal(t, []string{"Error reading 3 from store on 2023-01-15"}, f.notifier.alerts)
	assert.Equal(t, [][]models.CIK{{1, 2, 3}}, f.store.hoseRequests)
}

func TestAnalyseWithClusterEngine(t *testing.T) {
	f := newFixture(Options{}, nil)
	ctx := context.Background()
	require.NoError(t, f.store.SaveAnalytics(ctx, models.AuditIssuers, "", models.AuditMessage{Processed: []models.CIK{1}}, testDate, 1, "req", "1"))
	f.store.issuers[1] = rows(models.TxPurchase, models.TxPurchase, models.TxPurchase, models.TxPurchase, models.TxPurchase)

	findings, err := f.orch.Analyse(ctx, testDate, 3)
	require.NoError(t, err)
	require.Len(t, findings, 1)
	assert.Equal(t, float64(5), findings[0].Signal.PurchaseMagnitude)
}

func TestSyncCompanies(t *testing.T) {
	f := newFixture(Options{States: []string{"CA", "NY", "TX"}}, nil)
	f.scraper.companies = map[string]edgar.CompanyResult{
		"CA": {ID: "CA", Statuses: []int{200, 200}, Records: []models.CompanyRecord{
			{CIK: "1", State: "CA", Name: "A"}, {CIK: "2", State: "CA", Name: "B"},
		}},
		"NY": {ID: "NY", Statuses: []int{200}, Records: []models.CompanyRecord{{CIK: "3", State: "NY", Name: "C"}}},
		"TX": {ID: "TX", Failure: edgar.FailureStatus, Statuses: []int{503}, Records: []models.CompanyRecord{}},
	}

	n, err := f.orch.SyncCompanies(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Len(t, f.store.companies, 2)

	recs := f.store.byKind(models.AuditCompanies)
	require.Len(t, recs, 1)
	assert.Equal(t, 2, recs[0].Count)
	assert.ElementsMatch(t, []int{200, 200, 200, 503}, recs[0].Message.Codes)
}
