// Package cluster detects clustered insider buying: several distinct insiders
// purchasing the same issuer within a short window, compared against how
// often that happened over the preceding year.
package cluster

import (
	"time"

	"github.com/seenimoa/edgarinsiders/pkg/models"
)

const (
	// DefaultWindow is the span over which distinct insiders are counted.
	DefaultWindow = 30 * 24 * time.Hour
	// DefaultLookback is the number of prior windows averaged into the baseline.
	DefaultLookback = 12
)

// Engine computes cluster signals from an issuer's transaction series.
type Engine struct {
	window   time.Duration
	lookback int
}

// New creates an engine with the default 30-day window and one-year baseline.
func New() *Engine {
	return &Engine{window: DefaultWindow, lookback: DefaultLookback}
}

// NewWithWindow creates an engine with a custom window and lookback count.
func NewWithWindow(window time.Duration, lookback int) *Engine {
	if window <= 0 {
		window = DefaultWindow
	}
	if lookback <= 0 {
		lookback = DefaultLookback
	}
	return &Engine{window: window, lookback: lookback}
}

type trade struct {
	day          time.Time
	counterparty string
	purchase     bool
}

// ClusterBuying scores the series of issuer cik as of date. The magnitude is
// the number of distinct insiders trading in the window ending on date; the
// baseline is the mean of that count over the preceding lookback windows.
// The threshold is applied by the caller; it does not change the scores.
func (e *Engine) ClusterBuying(series []models.TransactionRecord, date time.Time, _ float64, cik models.CIK) models.ClusterSignal {
	trades := parseTrades(series)
	end := dayOf(date)

	sig := models.ClusterSignal{CIK: cik}
	sig.PurchaseMagnitude, sig.PurchaseBaseline, sig.PurchaseRatio = e.score(trades, end, true)
	sig.SaleMagnitude, sig.SaleBaseline, sig.SaleRatio = e.score(trades, end, false)
	return sig
}

func (e *Engine) score(trades []trade, end time.Time, purchase bool) (magnitude, baseline, ratio float64) {
	magnitude = float64(distinctIn(trades, end.Add(-e.window), end, purchase))

	total := 0
	for k := 1; k <= e.lookback; k++ {
		hi := end.Add(-time.Duration(k) * e.window)
		total += distinctIn(trades, hi.Add(-e.window), hi, purchase)
	}
	baseline = float64(total) / float64(e.lookback)
	ratio = magnitude / max(baseline, 1)
	return magnitude, baseline, ratio
}

// distinctIn counts distinct counterparties with trades in (from, to].
func distinctIn(trades []trade, from, to time.Time, purchase bool) int {
	seen := make(map[string]struct{})
	for _, t := range trades {
		if t.purchase != purchase || !t.day.After(from) || t.day.After(to) {
			continue
		}
		seen[t.counterparty] = struct{}{}
	}
	return len(seen)
}

func parseTrades(series []models.TransactionRecord) []trade {
	out := make([]trade, 0, len(series))
	for _, r := range series {
		if !r.IsPurchase() && !r.IsSale() {
			continue
		}
		day, err := time.Parse("2006-01-02", r.FilingDate)
		if err != nil {
			continue
		}
		who := r.CounterpartyCIK
		if who == "" {
			who = r.Counterparty
		}
		out = append(out, trade{day: day, counterparty: who, purchase: r.IsPurchase()})
	}
	return out
}

func dayOf(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
