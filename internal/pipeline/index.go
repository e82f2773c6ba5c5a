package pipeline

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/seenimoa/edgarinsiders/pkg/models"
	"github.com/seenimoa/edgarinsiders/pkg/utils"
)

// SyncDailyIndex returns the distinct CIKs with a Form 4 or 4/A in the day's
// master index, in first-seen order, and records a FOUND entry with the count.
func (o *Orchestrator) SyncDailyIndex(ctx context.Context, date time.Time) ([]models.CIK, error) {
	text, err := o.scraper.FetchDailyIndex(ctx, date)
	if err != nil {
		return nil, fmt.Errorf("sync daily index: %w", err)
	}
	ciks := ParseDailyIndex(text)
	o.logger.Info().Str("date", utils.FormatDate(date)).Int("ciks", len(ciks)).Msg("daily index synced")
	o.recordFound(ctx, date, ciks, "Form 4 filers in the daily index")
	return ciks, nil
}

// SyncCurrentFeed returns the distinct CIKs in the latest Form 4 filings feed
// and records a FOUND entry for date.
func (o *Orchestrator) SyncCurrentFeed(ctx context.Context, date time.Time) ([]models.CIK, error) {
	found, err := o.scraper.FetchCurrentFilings(ctx, "4")
	if err != nil {
		return nil, fmt.Errorf("sync current feed: %w", err)
	}
	ciks := utils.UniqueCIKs(found)
	o.logger.Info().Str("date", utils.FormatDate(date)).Int("ciks", len(ciks)).Msg("current feed synced")
	o.recordFound(ctx, date, ciks, "Form 4 filers in the current feed")
	return ciks, nil
}

func (o *Orchestrator) recordFound(ctx context.Context, date time.Time, ciks []models.CIK, desc string) {
	msg := models.AuditMessage{Received: ciks}
	if err := o.store.SaveAnalytics(ctx, models.AuditFound, desc, msg, date, len(ciks), "", ""); err != nil {
		o.logger.Error().Err(err).Msg("failed to record FOUND")
	}
}

// ParseDailyIndex extracts the distinct insider-form CIKs from a master index.
// Header lines, malformed lines and unparsable CIKs are skipped.
func ParseDailyIndex(text string) []models.CIK {
	seen := make(map[models.CIK]bool)
	var ciks []models.CIK
	for _, line := range strings.Split(text, "\n") {
		entry, ok := models.ParseIndexLine(line)
		if !ok || !entry.IsInsiderForm() {
			continue
		}
		cik, err := strconv.ParseInt(strings.TrimSpace(entry.CIK), 10, 64)
		if err != nil || cik <= 0 || seen[cik] {
			continue
		}
		seen[cik] = true
		ciks = append(ciks, cik)
	}
	return ciks
}
