// Package queue carries dispatch chunks over NATS JetStream and publishes
// operator alerts and findings on core NATS subjects.
package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
	"github.com/rs/zerolog"

	"github.com/seenimoa/edgarinsiders/pkg/models"
	"github.com/seenimoa/edgarinsiders/pkg/utils"
)

// Options configures the connection, the work stream and its consumer.
type Options struct {
	URL      string
	Token    string
	Stream   string
	Consumer string
	Subjects []string      // subjects captured by the stream and consumed
	AckWait  time.Duration // time a delivery may take before redelivery
}

// Handler processes one dispatch message. A returned error naks it.
type Handler func(ctx context.Context, msg models.DispatchMessage) error

// NATS publishes and consumes dispatch messages on a JetStream stream.
type NATS struct {
	nc     *nats.Conn
	js     jetstream.JetStream
	opts   Options
	logger zerolog.Logger
}

// Connect dials the server and makes sure the work stream exists.
func Connect(ctx context.Context, opts Options, logger zerolog.Logger) (*NATS, error) {
	natsOpts := []nats.Option{nats.Name("insiders")}
	if opts.Token != "" {
		natsOpts = append(natsOpts, nats.Token(opts.Token))
	}
	nc, err := nats.Connect(opts.URL, natsOpts...)
	if err != nil {
		return nil, fmt.Errorf("connect to NATS at %s: %w", opts.URL, err)
	}

	js, err := jetstream.New(nc)
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("get jetstream: %w", err)
	}

	if _, err := js.CreateOrUpdateStream(ctx, jetstream.StreamConfig{
		Name:      opts.Stream,
		Subjects:  opts.Subjects,
		Retention: jetstream.WorkQueuePolicy,
	}); err != nil {
		nc.Close()
		return nil, fmt.Errorf("create stream %s: %w", opts.Stream, err)
	}

	return &NATS{
		nc:     nc,
		js:     js,
		opts:   opts,
		logger: logger.With().Str("component", "queue").Logger(),
	}, nil
}

// Conn exposes the underlying connection for core publishing.
func (q *NATS) Conn() *nats.Conn { return q.nc }

// Close drains and closes the connection.
func (q *NATS) Close() {
	if err := q.nc.Drain(); err != nil {
		q.nc.Close()
	}
}

// Publish sends a dispatch message to a stream subject and waits for the ack.
func (q *NATS) Publish(ctx context.Context, subject string, msg models.DispatchMessage) error {
	data, err := EncodeDispatch(msg)
	if err != nil {
		return err
	}
	if _, err := q.js.Publish(ctx, subject, data); err != nil {
		return fmt.Errorf("publish chunk %s to %s: %w", msg.ChunkID, subject, err)
	}
	return nil
}

// Consume runs the durable consumer until ctx is done.
func (q *NATS) Consume(ctx context.Context, handler Handler) error {
	ackWait := q.opts.AckWait
	if ackWait <= 0 {
		ackWait = 5 * time.Minute
	}
	consumer, err := q.js.CreateOrUpdateConsumer(ctx, q.opts.Stream, jetstream.ConsumerConfig{
		Durable:        q.opts.Consumer,
		FilterSubjects: q.opts.Subjects,
		AckPolicy:      jetstream.AckExplicitPolicy,
		AckWait:        ackWait,
		MaxDeliver:     5,
	})
	if err != nil {
		return fmt.Errorf("create consumer %s: %w", q.opts.Consumer, err)
	}

	q.logger.Info().Str("stream", q.opts.Stream).Str("consumer", q.opts.Consumer).Msg("consumer connected")

	for {
		select {
		case <-ctx.Done():
			return nil
		default:
		}

		msgs, err := consumer.Fetch(1, jetstream.FetchMaxWait(5*time.Second))
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			continue
		}

		for msg := range msgs.Messages() {
			select {
			case <-ctx.Done():
				// leave it for redelivery
				_ = msg.Nak()
				for remaining := range msgs.Messages() {
					_ = remaining.Nak()
				}
				return nil
			default:
				q.handle(ctx, msg, handler)
			}
		}
		if err := msgs.Error(); err != nil && !errors.Is(err, jetstream.ErrNoMessages) && ctx.Err() == nil {
			q.logger.Warn().Err(err).Msg("fetch ended with error")
		}
	}
}

func (q *NATS) handle(ctx context.Context, msg jetstream.Msg, handler Handler) {
	dm, err := DecodeDispatch(msg.Data())
	if err != nil {
		q.logger.Warn().Err(err).Str("subject", msg.Subject()).Msg("failed to decode dispatch message")
		_ = msg.Nak()
		return
	}

	if err := handler(ctx, dm); err != nil {
		q.logger.Error().Err(err).Str("request_id", dm.RequestID).Str("chunk_id", dm.ChunkID).Msg("failed to process chunk")
		_ = msg.Nak()
		return
	}
	_ = msg.Ack()
}

// EncodeDispatch serializes a dispatch message.
func EncodeDispatch(msg models.DispatchMessage) ([]byte, error) {
	data, err := json.Marshal(msg)
	if err != nil {
		return nil, fmt.Errorf("encode dispatch message: %w", err)
	}
	return data, nil
}

// DecodeDispatch parses and validates a dispatch message.
func DecodeDispatch(data []byte) (models.DispatchMessage, error) {
	var msg models.DispatchMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return msg, fmt.Errorf("decode dispatch message: %w", err)
	}
	if _, err := utils.FromDateInt(msg.Date); err != nil {
		return msg, fmt.Errorf("dispatch message date: %w", err)
	}
	if _, err := models.ParseChunkID(msg.ChunkID); err != nil {
		return msg, fmt.Errorf("dispatch message chunk: %w", err)
	}
	return msg, nil
}
