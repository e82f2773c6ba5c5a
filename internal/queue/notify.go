package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/seenimoa/edgarinsiders/pkg/models"
	"github.com/seenimoa/edgarinsiders/pkg/utils"
)

// Publisher is the core NATS publish call; *nats.Conn satisfies it.
type Publisher interface {
	Publish(subject string, data []byte) error
}

// Alert is the payload of an operator alert.
type Alert struct {
	Subject string `json:"Subject"`
	Message string `json:"Message"`
}

// FoundEvent announces the issuers flagged by analysis on a day.
type FoundEvent struct {
	Date  string       `json:"Date"`
	Found []models.CIK `json:"FOUND"`
}

// Notifier publishes alerts and findings.
type Notifier struct {
	pub          Publisher
	alertSubject string
	foundSubject string
	logger       zerolog.Logger
}

// NewNotifier creates a notifier publishing on the given subjects.
func NewNotifier(pub Publisher, alertSubject, foundSubject string, logger zerolog.Logger) *Notifier {
	return &Notifier{
		pub:          pub,
		alertSubject: alertSubject,
		foundSubject: foundSubject,
		logger:       logger.With().Str("component", "notifier").Logger(),
	}
}

// Alert publishes an operator alert.
func (n *Notifier) Alert(ctx context.Context, subject, message string) error {
	n.logger.Warn().Str("subject", subject).Msg(message)
	return n.publish(ctx, n.alertSubject, Alert{Subject: subject, Message: message})
}

// Found publishes the CIKs flagged on date.
func (n *Notifier) Found(ctx context.Context, date time.Time, ciks []models.CIK) error {
	return n.publish(ctx, n.foundSubject, FoundEvent{Date: utils.FormatDate(date), Found: ciks})
}

func (n *Notifier) publish(ctx context.Context, subject string, v any) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	if err := n.pub.Publish(subject, data); err != nil {
		return fmt.Errorf("publish to %s: %w", subject, err)
	}
	return nil
}
