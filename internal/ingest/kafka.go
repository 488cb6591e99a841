package ingest

import (
	"context"
	"fmt"
	"sync/atomic"

	"github.com/rs/zerolog"
	"github.com/segmentio/kafka-go"

	"alphatrend/internal/domain"
)

// KafkaSource consumes batches from a Kafka topic. One message carries one
// complete batch; offsets are committed by the consumer group reader after
// a successful read.
type KafkaSource struct {
	reader *kafka.Reader
	log    zerolog.Logger
	closed atomic.Bool
}

// KafkaOptions configures the Kafka source.
type KafkaOptions struct {
	Brokers []string
	Topic   string
	GroupID string
}

// NewKafkaSource creates a Kafka batch source.
func NewKafkaSource(opts KafkaOptions, log zerolog.Logger) *KafkaSource {
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:  opts.Brokers,
		GroupID:  opts.GroupID,
		Topic:    opts.Topic,
		MinBytes: 1,
		MaxBytes: 10e6,
	})
	return &KafkaSource{
		reader: reader,
		log:    log.With().Str("component", "kafka_source").Logger(),
	}
}

// Compile-time interface check.
var _ Source = (*KafkaSource)(nil)

// Next reads messages until one decodes as a full batch. Undecodable
// messages are logged and skipped so one bad producer cannot wedge the
// topic.
func (s *KafkaSource) Next(ctx context.Context) (*domain.Batch, error) {
	if s.closed.Load() {
		return nil, ErrSourceClosed
	}

	for {
		m, err := s.reader.ReadMessage(ctx)
		if err != nil {
			if s.closed.Load() {
				return nil, ErrSourceClosed
			}
			return nil, fmt.Errorf("read kafka message: %w", err)
		}

		batch, err := decodeBatch(m.Value)
		if err != nil {
			s.log.Warn().
				Err(err).
				Int64("offset", m.Offset).
				Int("partition", m.Partition).
				Msg("skipping undecodable message")
			continue
		}

		s.log.Debug().
			Int64("offset", m.Offset).
			Int("tokens", len(batch.Tokens)).
			Int("metas", len(batch.Metas)).
			Msg("batch received")
		return batch, nil
	}
}

// Close shuts down the reader.
func (s *KafkaSource) Close() error {
	s.closed.Store(true)
	return s.reader.Close()
}
