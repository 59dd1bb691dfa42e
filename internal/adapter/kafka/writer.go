package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	kafkago "github.com/segmentio/kafka-go"

	"github.com/couchcryptid/boiler-telemetry-etl/internal/config"
	"github.com/couchcryptid/boiler-telemetry-etl/internal/domain"
)

// Record types carried in the record_type header.
const (
	RecordSnapshot   = "snapshot"
	RecordDaily      = "daily"
	RecordHourly     = "hourly"
	RecordValidation = "validation"
	RecordSync       = "sync"
)

// Writer publishes each sync's record sets to a Kafka topic.
// It implements pipeline.Loader.
type Writer struct {
	writer *kafkago.Writer
	logger *slog.Logger
}

// NewWriter creates a Kafka producer for the configured sink topic.
func NewWriter(cfg *config.Config, logger *slog.Logger) *Writer {
	w := &kafkago.Writer{
		Addr:         kafkago.TCP(cfg.KafkaBrokers...),
		Topic:        cfg.KafkaSinkTopic,
		Balancer:     &kafkago.Hash{},
		RequiredAcks: kafkago.RequireAll,
	}
	return &Writer{writer: w, logger: logger}
}

// Load publishes the snapshot, every boiler's daily and hourly series, the
// validation issues and the sync summary in a single WriteMessages call.
// Keys are stable per record set so a compacted topic keeps the latest of
// each.
func (w *Writer) Load(ctx context.Context, res domain.SyncResult) error {
	msgs, err := buildMessages(res)
	if err != nil {
		return err
	}
	if err := w.writer.WriteMessages(ctx, msgs...); err != nil {
		return fmt.Errorf("publish records: %w", err)
	}
	w.logger.Debug("records published", "run_id", res.RunID, "messages", len(msgs))
	return nil
}

func (w *Writer) Close() error {
	return w.writer.Close()
}

type validationPayload struct {
	Issues []domain.Issue `json:"issues"`
	Flags  []domain.Flag  `json:"flags"`
}

func buildMessages(res domain.SyncResult) ([]kafkago.Message, error) {
	rec := res.Records
	var msgs []kafkago.Message

	add := func(recordType, key string, v any) error {
		msg, err := serializeToMessage(res, recordType, key, v)
		if err != nil {
			return err
		}
		msgs = append(msgs, msg)
		return nil
	}

	if rec.Snapshot != nil {
		if err := add(RecordSnapshot, "snapshot", rec.Snapshot); err != nil {
			return nil, err
		}
	}
	for _, d := range rec.Daily {
		if err := add(RecordDaily, fmt.Sprintf("boiler-%d-daily", int(d.BoilerID)), d); err != nil {
			return nil, err
		}
	}
	for _, h := range rec.Hourly {
		if err := add(RecordHourly, fmt.Sprintf("boiler-%d-hourly", int(h.BoilerID)), h); err != nil {
			return nil, err
		}
	}
	if err := add(RecordValidation, "validation", validationPayload{Issues: rec.Issues, Flags: rec.Flags}); err != nil {
		return nil, err
	}
	if err := add(RecordSync, "sync", res.Summary()); err != nil {
		return nil, err
	}
	return msgs, nil
}

// serializeToMessage marshals one record set into a Kafka message.
func serializeToMessage(res domain.SyncResult, recordType, key string, v any) (kafkago.Message, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return kafkago.Message{}, fmt.Errorf("serialize %s record: %w", recordType, err)
	}
	return kafkago.Message{
		Key:   []byte(key),
		Value: data,
		Headers: []kafkago.Header{
			{Key: "record_type", Value: []byte(recordType)},
			{Key: "run_id", Value: []byte(res.RunID)},
			{Key: "synced_at", Value: []byte(res.FinishedAt.UTC().Format(time.RFC3339))},
		},
	}, nil
}
