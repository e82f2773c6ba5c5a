package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/seenimoa/edgarinsiders/internal/metrics"
	"github.com/seenimoa/edgarinsiders/pkg/models"
	"github.com/seenimoa/edgarinsiders/pkg/utils"
)

// Analyse scores every issuer persisted on date and reports those whose
// recent purchase magnitude exceeds threshold.
func (o *Orchestrator) Analyse(ctx context.Context, date time.Time, threshold float64) ([]models.Finding, error) {
	day := utils.FormatDate(date)
	issuers, err := o.store.GetAnalytics(ctx, models.AuditIssuers, date, models.PeriodDay)
	if err != nil {
		return nil, fmt.Errorf("read ISSUERS records: %w", err)
	}
	if len(issuers) == 0 {
		o.alert(ctx, fmt.Sprintf("No ISSUERS to analyse on %s", day))
		return nil, nil
	}

	var ciks []models.CIK
	for _, r := range issuers {
		ciks = append(ciks, r.Message.Processed...)
	}
	ciks = utils.UniqueCIKs(ciks)
	o.logger.Info().Str("date", day).Int("issuers", len(ciks)).Msg("analysing")

	if err := o.store.ReadFireHose(ctx, models.FileTypeIssuer, ciks, date); err != nil {
		o.logger.Error().Err(err).Msg("failed to preload series, reading one by one")
	}

	var findings []models.Finding
	for _, cik := range ciks {
		series, err := o.store.GetTimeSeries(ctx, cik, models.FileTypeIssuer)
		if err != nil || series == nil {
			if err != nil {
				o.logger.Error().Err(err).Int64("cik", cik).Msg("failed to read series")
			}
			o.alert(ctx, fmt.Sprintf("Error reading %d from store on %s", cik, day))
			continue
		}
		sig := o.engine.ClusterBuying(series, date, threshold, cik)
		if sig.PurchaseMagnitude > threshold {
			o.logger.Info().Int64("cik", cik).Float64("magnitude", sig.PurchaseMagnitude).
				Float64("ratio", sig.PurchaseRatio).Msg("cluster buying found")
			findings = append(findings, models.Finding{Date: day, Signal: sig})
		}
	}

	if len(findings) == 0 {
		return nil, nil
	}
	metrics.FindingsTotal.Add(float64(len(findings)))

	if err := o.store.UpdateResults(ctx, date, findings); err != nil {
		o.logger.Error().Err(err).Msg("failed to store results")
	}
	found := make([]models.CIK, len(findings))
	for i, f := range findings {
		found[i] = f.Signal.CIK
	}
	if o.notifier != nil {
		if err := o.notifier.Found(ctx, date, found); err != nil {
			o.logger.Error().Err(err).Msg("failed to publish findings")
		}
	}
	return findings, nil
}
