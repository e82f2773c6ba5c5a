package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/seenimoa/edgarinsiders/pkg/models"
)

// CheckIfProcessed reports whether (requestID, chunkID) already has a SAVING
// record for date. If not, it records one with the received CIKs before any
// work starts, so a redelivery of the same chunk is recognised.
func (o *Orchestrator) CheckIfProcessed(ctx context.Context, items []models.CIK, date time.Time, requestID, chunkID string) (bool, error) {
	savings, err := o.store.GetAnalytics(ctx, models.AuditSaving, date, models.PeriodDay)
	if err != nil {
		return false, fmt.Errorf("read SAVING records: %w", err)
	}
	for _, s := range savings {
		if s.RequestID == requestID && s.ChunkID == chunkID {
			o.logger.Info().Str("request_id", requestID).Str("chunk_id", chunkID).Msg("already processed")
			return true, nil
		}
	}

	msg := models.AuditMessage{Received: items}
	if err := o.store.SaveAnalytics(ctx, models.AuditSaving, "Batch of CIKs to process", msg, date, len(items), requestID, chunkID); err != nil {
		return false, fmt.Errorf("save SAVING record: %w", err)
	}
	o.logger.Info().Str("request_id", requestID).Str("chunk_id", chunkID).Msg("start processing")
	return false, nil
}

// UpdateProcessed marks the SAVING record of chunkID processed, together with
// every record of the same request whose chunk is an ancestor of chunkID.
func (o *Orchestrator) UpdateProcessed(ctx context.Context, date time.Time, requestID, chunkID string) error {
	target, err := models.ParseChunkID(chunkID)
	if err != nil {
		return err
	}
	savings, err := o.store.GetAnalytics(ctx, models.AuditSaving, date, models.PeriodDay)
	if err != nil {
		return fmt.Errorf("read SAVING records: %w", err)
	}

	for _, s := range savings {
		if s.RequestID != requestID || s.Processed {
			continue
		}
		id, err := models.ParseChunkID(s.ChunkID)
		if err != nil {
			o.logger.Warn().Str("chunk_id", s.ChunkID).Msg("skipping SAVING record with malformed chunk")
			continue
		}
		if !id.Equal(target) && !id.IsAncestorOf(target) {
			continue
		}
		if err := o.store.UpdateAnalytics(ctx, s, true); err != nil {
			return fmt.Errorf("update SAVING %s: %w", s.ChunkID, err)
		}
		o.logger.Info().Str("request_id", requestID).Str("chunk_id", s.ChunkID).Msg("marked processed")
	}
	return nil
}
