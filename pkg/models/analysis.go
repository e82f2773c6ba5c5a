package models

// ClusterSignal is the verdict of the cluster analysis for one issuer.
// Magnitudes count distinct insiders active in the recent window; baselines
// are their historical per-window averages.
type ClusterSignal struct {
	CIK               CIK     `json:"cik"`
	PurchaseMagnitude float64 `json:"purchase_magnitude"`
	PurchaseBaseline  float64 `json:"purchase_baseline"`
	PurchaseRatio     float64 `json:"purchase_ratio"`
	SaleMagnitude     float64 `json:"sale_magnitude"`
	SaleBaseline      float64 `json:"sale_baseline"`
	SaleRatio         float64 `json:"sale_ratio"`
}

// Finding is a cluster signal that crossed the alert threshold on a date.
type Finding struct {
	Date   string        `json:"date"`
	Signal ClusterSignal `json:"signal"`
}
