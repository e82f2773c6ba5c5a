package cluster

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/seenimoa/edgarinsiders/pkg/models"
)

func row(date, typ, cik string) models.TransactionRecord {
	return models.TransactionRecord{FilingDate: date, TransactionType: typ, CounterpartyCIK: cik}
}

var asOf = time.Date(2023, 3, 31, 0, 0, 0, 0, time.UTC)

func TestClusterBuyingCountsDistinctRecentBuyers(t *testing.T) {
	series := []models.TransactionRecord{
		row("2023-03-30", models.TxPurchase, "1"),
		row("2023-03-29", models.TxPurchase, "1"), // same insider twice
		row("2023-03-20", models.TxPurchase, "2"),
		row("2023-03-05", models.TxPurchase, "3"),
		row("2023-03-31", models.TxPurchase, "4"), // on the as-of date
		row("2023-04-01", models.TxPurchase, "5"), // after the as-of date
		row("2023-03-10", models.TxSale, "6"),
	}

	sig := New().ClusterBuying(series, asOf, 3, 320193)
	assert.Equal(t, models.CIK(320193), sig.CIK)
	assert.Equal(t, 4.0, sig.PurchaseMagnitude)
	assert.Equal(t, 0.0, sig.PurchaseBaseline)
	assert.Equal(t, 4.0, sig.PurchaseRatio)
	assert.Equal(t, 1.0, sig.SaleMagnitude)
}

func TestClusterBuyingBaselineFromPriorYear(t *testing.T) {
	var series []models.TransactionRecord
	// one buyer in each of the twelve prior windows
	for k := 1; k <= 12; k++ {
		d := asOf.Add(-time.Duration(k)*DefaultWindow - 24*time.Hour)
		series = append(series, row(d.Format("2006-01-02"), models.TxPurchase, "9"))
	}
	series = append(series,
		row("2023-03-30", models.TxPurchase, "1"),
		row("2023-03-29", models.TxPurchase, "2"),
	)

	sig := New().ClusterBuying(series, asOf, 3, 1)
	assert.Equal(t, 2.0, sig.PurchaseMagnitude)
	assert.InDelta(t, 1.0, sig.PurchaseBaseline, 1e-9)
	assert.InDelta(t, 2.0, sig.PurchaseRatio, 1e-9)
}

func TestClusterBuyingIgnoresOtherTypesAndBadDates(t *testing.T) {
	series := []models.TransactionRecord{
		row("2023-03-30", "A-Award", "1"),
		row("not a date", models.TxPurchase, "2"),
		{FilingDate: "2023-03-30", TransactionType: models.TxPurchase, Counterparty: "Doe John"},
	}

	sig := New().ClusterBuying(series, asOf, 3, 1)
	assert.Equal(t, 1.0, sig.PurchaseMagnitude)
}

func TestClusterBuyingEmptySeries(t *testing.T) {
	sig := New().ClusterBuying(nil, asOf, 3, 7)
	assert.Equal(t, models.ClusterSignal{CIK: 7}, sig)
}

func TestNewWithWindowDefaults(t *testing.T) {
	e := NewWithWindow(0, 0)
	assert.Equal(t, DefaultWindow, e.window)
	assert.Equal(t, DefaultLookback, e.lookback)
}
