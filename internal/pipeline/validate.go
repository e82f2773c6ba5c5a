package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/seenimoa/edgarinsiders/internal/infra"
	"github.com/seenimoa/edgarinsiders/pkg/models"
	"github.com/seenimoa/edgarinsiders/pkg/utils"
)

// ValidateOptions controls a validation pass.
type ValidateOptions struct {
	Date         time.Time
	FixMode      bool // republish unprocessed chunks instead of alerting
	RetrySubject string
	Delay        time.Duration
	SubChunkSize int
}

// ValidationReport lists what a validation pass did.
type ValidationReport struct {
	Alerts      []string
	Republished []models.DispatchMessage
}

// ValidateResults audits a day's ledger. Without a non-empty FOUND record it
// alerts and stops. Otherwise it alerts on batches with non-200 statuses or
// dropped CIKs, and on every unprocessed chunk, which in fix mode is split
// into sub-chunks and republished instead.
func (o *Orchestrator) ValidateResults(ctx context.Context, opts ValidateOptions) (ValidationReport, error) {
	var report ValidationReport
	day := utils.FormatDate(opts.Date)
	alert := func(message string) {
		report.Alerts = append(report.Alerts, message)
		o.alert(ctx, message)
	}

	founds, err := o.store.GetAnalytics(ctx, models.AuditFound, opts.Date, models.PeriodDay)
	if err != nil {
		return report, fmt.Errorf("read FOUND records: %w", err)
	}
	if len(founds) == 0 || anyEmpty(founds) {
		alert(fmt.Sprintf("No FOUND events on %s", day))
		return report, nil
	}

	for _, kind := range []models.AuditKind{models.AuditOwners, models.AuditIssuers} {
		records, err := o.store.GetAnalytics(ctx, kind, opts.Date, models.PeriodDay)
		if err != nil {
			return report, fmt.Errorf("read %s records: %w", kind, err)
		}
		for _, r := range records {
			if codes := r.NonOKCodes(); len(codes) > 0 {
				alert(fmt.Sprintf("%s events have %v errors on %s for %s %s", kind, codes, day, r.RequestID, r.ChunkID))
			}
			if len(r.Message.Dropped) > 0 {
				alert(fmt.Sprintf("%s events dropped %v on %s for %s %s", kind, r.Message.Dropped, day, r.RequestID, r.ChunkID))
			}
		}
	}

	savings, err := o.store.GetAnalytics(ctx, models.AuditSaving, opts.Date, models.PeriodDay)
	if err != nil {
		return report, fmt.Errorf("read SAVING records: %w", err)
	}
	size := opts.SubChunkSize
	if size <= 0 {
		size = o.opts.SubChunkSize
	}

	for _, s := range savings {
		if s.Processed {
			o.logger.Debug().Str("request_id", s.RequestID).Str("chunk_id", s.ChunkID).Msg("all events processed")
			continue
		}
		if !opts.FixMode {
			alert(fmt.Sprintf("%v events are still not processed on %s for %s %s", s.Message.Received, day, s.RequestID, s.ChunkID))
			continue
		}

		parent, err := models.ParseChunkID(s.ChunkID)
		if err != nil {
			o.logger.Warn().Str("chunk_id", s.ChunkID).Msg("cannot split SAVING record with malformed chunk")
			continue
		}
		next := nextChildIndex(savings, s.RequestID, parent)
		for i, part := range models.Partition(s.Message.Received, size) {
			if len(report.Republished) > 0 {
				if err := infra.Sleep(ctx, opts.Delay); err != nil {
					return report, err
				}
			}
			msg := models.DispatchMessage{
				Date:      utils.DateInt(opts.Date),
				CIK:       part,
				RequestID: s.RequestID,
				ChunkID:   parent.Child(next + i).String(),
			}
			if err := o.queue.Publish(ctx, opts.RetrySubject, msg); err != nil {
				o.logger.Error().Err(err).Str("chunk_id", msg.ChunkID).Msg("failed to republish")
				continue
			}
			o.logger.Warn().Str("request_id", msg.RequestID).Str("chunk_id", msg.ChunkID).Int("ciks", len(part)).Msg("resending")
			report.Republished = append(report.Republished, msg)
		}
	}
	return report, nil
}

func anyEmpty(records []models.AuditRecord) bool {
	for _, r := range records {
		if r.Count == 0 {
			return true
		}
	}
	return false
}

// nextChildIndex returns the first direct-child number of parent not already
// used by a ledger record of the request, so a second retry round never
// reuses a claimed chunk id.
func nextChildIndex(savings []models.AuditRecord, requestID string, parent models.ChunkID) int {
	next := 1
	for _, s := range savings {
		if s.RequestID != requestID {
			continue
		}
		id, err := models.ParseChunkID(s.ChunkID)
		if err != nil || !id.Parent().Equal(parent) {
			continue
		}
		if n := id[len(id)-1]; n >= next {
			next = n + 1
		}
	}
	return next
}
