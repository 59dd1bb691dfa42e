//go:build integration

package integration_test

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net"
	"strconv"
	"testing"
	"time"

	kafkago "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	tckafka "github.com/testcontainers/testcontainers-go/modules/kafka"

	"github.com/couchcryptid/boiler-telemetry-etl/internal/adapter/kafka"
	"github.com/couchcryptid/boiler-telemetry-etl/internal/adapter/spreadsheet"
	"github.com/couchcryptid/boiler-telemetry-etl/internal/config"
	"github.com/couchcryptid/boiler-telemetry-etl/internal/domain"
	"github.com/couchcryptid/boiler-telemetry-etl/internal/observability"
	"github.com/couchcryptid/boiler-telemetry-etl/internal/pipeline"
	"github.com/couchcryptid/boiler-telemetry-etl/internal/sample"
)

const testSinkTopic = "test-boiler-telemetry"

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func startKafka(ctx context.Context, t *testing.T) string {
	t.Helper()
	container, err := tckafka.Run(ctx, "confluentinc/confluent-local:7.5.0", tckafka.WithClusterID("boiler-test"))
	require.NoError(t, err, "start kafka container")
	t.Cleanup(func() { _ = container.Terminate(context.Background()) })

	brokers, err := container.Brokers(ctx)
	require.NoError(t, err)
	require.NotEmpty(t, brokers)
	return brokers[0]
}

func createTopic(t *testing.T, broker, topic string) {
	t.Helper()
	conn, err := kafkago.Dial("tcp", broker)
	require.NoError(t, err)
	defer conn.Close()

	controller, err := conn.Controller()
	require.NoError(t, err)
	cc, err := kafkago.Dial("tcp", net.JoinHostPort(controller.Host, strconv.Itoa(controller.Port)))
	require.NoError(t, err)
	defer cc.Close()

	require.NoError(t, cc.CreateTopics(kafkago.TopicConfig{
		Topic:             topic,
		NumPartitions:     1,
		ReplicationFactor: 1,
	}))
}

// memorySource serves a fixed workbook.
type memorySource struct {
	raw domain.RawWorkbook
}

func (m memorySource) Fetch(context.Context) (domain.RawWorkbook, error) { return m.raw, nil }
func (m memorySource) Kind() string                                      { return "memory" }

type sinkMessage struct {
	Key     string
	Value   []byte
	Headers map[string]string
}

func readSink(ctx context.Context, t *testing.T, consumer *kafkago.Reader, n int) []sinkMessage {
	t.Helper()
	out := make([]sinkMessage, 0, n)
	for len(out) < n {
		readCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
		msg, err := consumer.ReadMessage(readCtx)
		cancel()
		require.NoError(t, err, "read from sink topic")

		headers := make(map[string]string, len(msg.Headers))
		for _, h := range msg.Headers {
			headers[h.Key] = string(h.Value)
		}
		out = append(out, sinkMessage{Key: string(msg.Key), Value: msg.Value, Headers: headers})
	}
	return out
}

// TestPipelineEndToEnd syncs a generated workbook through the decoder,
// record builder and Kafka writer, then reads every record set back.
func TestPipelineEndToEnd(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	broker := startKafka(ctx, t)
	createTopic(t, broker, testSinkTopic)

	cfg := &config.Config{
		KafkaBrokers:   []string{broker},
		KafkaSinkTopic: testSinkTopic,
	}

	opts := sample.DefaultOptions()
	data, err := sample.Bytes(opts)
	require.NoError(t, err)
	src := memorySource{raw: domain.RawWorkbook{Name: "boiler_data.xlsx", Bytes: data}}

	transformer := pipeline.NewCachedTransformer(
		pipeline.NewTransformer(spreadsheet.Decode, domain.DefaultBuildConfig(), discardLogger()),
		4, observability.NewMetricsForTesting(),
	)
	writer := kafka.NewWriter(cfg, discardLogger())
	t.Cleanup(func() { _ = writer.Close() })

	p := pipeline.New(src, transformer, writer, discardLogger(), observability.NewMetricsForTesting(), time.Minute)
	res, err := p.SyncOnce(ctx)
	require.NoError(t, err)
	require.NotNil(t, res.Records.Snapshot)

	consumer := kafkago.NewReader(kafkago.ReaderConfig{
		Brokers:     []string{broker},
		Topic:       testSinkTopic,
		GroupID:     fmt.Sprintf("test-sink-%d", time.Now().UnixNano()),
		StartOffset: kafkago.FirstOffset,
	})
	t.Cleanup(func() { _ = consumer.Close() })

	// snapshot, three daily, three hourly, validation, sync
	received := readSink(ctx, t, consumer, 9)

	byKey := map[string]sinkMessage{}
	for _, m := range received {
		byKey[m.Key] = m
		assert.Equal(t, res.RunID, m.Headers["run_id"])
		_, err := time.Parse(time.RFC3339, m.Headers["synced_at"])
		assert.NoError(t, err, "synced_at should be valid RFC3339")
	}

	snapMsg, ok := byKey["snapshot"]
	require.True(t, ok)
	assert.Equal(t, kafka.RecordSnapshot, snapMsg.Headers["record_type"])
	var snap domain.Snapshot
	require.NoError(t, json.Unmarshal(snapMsg.Value, &snap))
	assert.Equal(t, opts.LatestRow(), snap.SourceRow)
	assert.Equal(t, "2024-01-05T07:00:00Z", snap.Timestamp)
	require.Len(t, snap.Boilers, 3)

	for _, b := range domain.Boilers {
		m, ok := byKey[fmt.Sprintf("boiler-%d-daily", int(b))]
		require.True(t, ok, "daily records for boiler %d", b)
		var d domain.BoilerDaily
		require.NoError(t, json.Unmarshal(m.Value, &d))
		assert.Equal(t, b, d.BoilerID)
		assert.Len(t, d.Records, opts.Days)
	}

	syncMsg, ok := byKey["sync"]
	require.True(t, ok)
	var summary domain.SyncSummary
	require.NoError(t, json.Unmarshal(syncMsg.Value, &summary))
	assert.Equal(t, res.RunID, summary.RunID)
	assert.Equal(t, 2, summary.Clamped)
}

// TestPipelineResyncHitsCache verifies a second sync of unchanged bytes is
// served from the transform cache and republishes the same records.
func TestPipelineResyncHitsCache(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	broker := startKafka(ctx, t)
	createTopic(t, broker, testSinkTopic)

	cfg := &config.Config{KafkaBrokers: []string{broker}, KafkaSinkTopic: testSinkTopic}

	data, err := sample.Bytes(sample.DefaultOptions())
	require.NoError(t, err)
	src := memorySource{raw: domain.RawWorkbook{Name: "boiler_data.xlsx", Bytes: data}}

	transformer := pipeline.NewCachedTransformer(
		pipeline.NewTransformer(spreadsheet.Decode, domain.DefaultBuildConfig(), discardLogger()),
		4, observability.NewMetricsForTesting(),
	)
	writer := kafka.NewWriter(cfg, discardLogger())
	t.Cleanup(func() { _ = writer.Close() })

	p := pipeline.New(src, transformer, writer, discardLogger(), observability.NewMetricsForTesting(), time.Minute)
	first, err := p.SyncOnce(ctx)
	require.NoError(t, err)
	second, err := p.SyncOnce(ctx)
	require.NoError(t, err)

	assert.False(t, first.CacheHit)
	assert.True(t, second.CacheHit)
	assert.NotEqual(t, first.RunID, second.RunID)

	consumer := kafkago.NewReader(kafkago.ReaderConfig{
		Brokers:     []string{broker},
		Topic:       testSinkTopic,
		GroupID:     fmt.Sprintf("test-resync-%d", time.Now().UnixNano()),
		StartOffset: kafkago.FirstOffset,
	})
	t.Cleanup(func() { _ = consumer.Close() })

	received := readSink(ctx, t, consumer, 18)
	snapshots := map[string][]byte{}
	for _, m := range received {
		if m.Key == "snapshot" {
			snapshots[m.Headers["run_id"]] = m.Value
		}
	}
	require.Len(t, snapshots, 2)
	assert.JSONEq(t, string(snapshots[first.RunID]), string(snapshots[second.RunID]))
}
