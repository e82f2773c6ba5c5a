package pipeline

import (
	"context"
	"fmt"
	"time"

	logx "github.com/seenimoa/edgarinsiders/internal/log"
	"github.com/seenimoa/edgarinsiders/internal/metrics"
	"github.com/seenimoa/edgarinsiders/pkg/models"
	"github.com/seenimoa/edgarinsiders/pkg/utils"
)

// Consume processes one dispatched chunk: it claims the chunk in the ledger,
// fetches issuer (and optionally owner) transactions, records the outcomes
// and marks the chunk processed. A chunk where either batch dropped CIKs to
// the deadline stays unprocessed so validation can retry it.
func (o *Orchestrator) Consume(ctx context.Context, msg models.DispatchMessage) error {
	date, err := utils.FromDateInt(msg.Date)
	if err != nil {
		return err
	}
	if _, err := models.ParseChunkID(msg.ChunkID); err != nil {
		return err
	}
	log := logx.WithChunk(o.logger, msg.RequestID, msg.ChunkID)

	done, err := o.CheckIfProcessed(ctx, msg.CIK, date, msg.RequestID, msg.ChunkID)
	if err != nil {
		return fmt.Errorf("check chunk %s: %w", msg.ChunkID, err)
	}
	if done {
		metrics.ChunksSkipped.Inc()
		return nil
	}

	issuers := o.SyncTransactions(ctx, msg.CIK, models.FileTypeIssuer)
	o.recordBatch(ctx, models.FileTypeIssuer, issuers, date, msg)

	dropped := len(issuers.Dropped)
	if o.opts.FetchOwners {
		owners := o.SyncTransactions(ctx, msg.CIK, models.FileTypeOwner)
		o.recordBatch(ctx, models.FileTypeOwner, owners, date, msg)
		dropped += len(owners.Dropped)
	}

	if dropped > 0 {
		log.Warn().Int("dropped", dropped).Msg("chunk left unprocessed for retry")
		return nil
	}
	if err := o.UpdateProcessed(ctx, date, msg.RequestID, msg.ChunkID); err != nil {
		return fmt.Errorf("mark chunk %s processed: %w", msg.ChunkID, err)
	}
	log.Info().Int("successful", len(issuers.Successful)).Msg("chunk processed")
	return nil
}

func (o *Orchestrator) recordBatch(ctx context.Context, ft models.FileType, res BatchResult, date time.Time, msg models.DispatchMessage) {
	audit := models.AuditMessage{
		Processed: res.Successful,
		Codes:     res.Codes,
		Dropped:   res.Dropped,
	}
	kind := models.AuditKindFor(ft)
	if err := o.store.SaveAnalytics(ctx, kind, batchDescription(ft, res.Elapsed), audit, date,
		len(res.Successful), msg.RequestID, msg.ChunkID); err != nil {
		o.logger.Error().Err(err).Str("kind", string(kind)).Str("chunk_id", msg.ChunkID).Msg("failed to record batch")
	}
}
