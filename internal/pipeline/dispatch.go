package pipeline

import (
	"context"
	"strconv"
	"time"

	"github.com/seenimoa/edgarinsiders/internal/infra"
	"github.com/seenimoa/edgarinsiders/internal/metrics"
	"github.com/seenimoa/edgarinsiders/pkg/models"
	"github.com/seenimoa/edgarinsiders/pkg/utils"
)

// Dispatch partitions ciks into chunks and publishes one message per chunk,
// numbered "1".."n", pacing sends by the dispatch delay. An empty requestID
// gets a fresh one. Publish failures are logged and skipped; the count of
// published chunks is returned.
func (o *Orchestrator) Dispatch(ctx context.Context, ciks []models.CIK, date time.Time, requestID string) (int, error) {
	if requestID == "" {
		requestID = o.newRequestID()
	}
	chunks := models.Partition(ciks, o.opts.ChunkSize)
	log := o.logger.With().Str("request_id", requestID).Str("date", utils.FormatDate(date)).Logger()
	log.Info().Int("ciks", len(ciks)).Int("chunks", len(chunks)).Msg("dispatching")

	published := 0
	for i, chunk := range chunks {
		if i > 0 {
			if err := infra.Sleep(ctx, o.opts.DispatchDelay); err != nil {
				return published, err
			}
		}
		msg := models.DispatchMessage{
			Date:      utils.DateInt(date),
			CIK:       chunk,
			RequestID: requestID,
			ChunkID:   strconv.Itoa(i + 1),
		}
		if err := o.queue.Publish(ctx, o.opts.DispatchSubject, msg); err != nil {
			log.Error().Err(err).Str("chunk_id", msg.ChunkID).Msg("failed to publish chunk")
			continue
		}
		published++
		metrics.ChunksDispatched.Inc()
	}
	return published, nil
}
