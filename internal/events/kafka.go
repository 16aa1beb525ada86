package events

import (
	"context"
	"fmt"
	"time"

	json "github.com/goccy/go-json"
	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

// kafkaWriter is the subset of kafka.Writer the publisher uses. Tests swap in
// a fake.
type kafkaWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaPublisher delivers engine events to Kafka. Messages carry their topic
// so a single writer serves all event types; the duel id is the message key
// to keep per-duel ordering within a partition.
type KafkaPublisher struct {
	writer kafkaWriter
	logger *zap.Logger
}

// KafkaConfig holds Kafka publisher configuration.
type KafkaConfig struct {
	Brokers []string
	Logger  *zap.Logger
}

// NewKafkaPublisher creates a Kafka-backed publisher.
func NewKafkaPublisher(cfg *KafkaConfig) (*KafkaPublisher, error) {
	if len(cfg.Brokers) == 0 {
		return nil, fmt.Errorf("kafka brokers cannot be empty")
	}
	if cfg.Logger == nil {
		return nil, fmt.Errorf("logger cannot be nil")
	}

	writer := &kafka.Writer{
		Addr:         kafka.TCP(cfg.Brokers...),
		Balancer:     &kafka.LeastBytes{},
		RequiredAcks: kafka.RequireOne,
		BatchTimeout: 10 * time.Millisecond,
	}

	cfg.Logger.Info("kafka-publisher-initialized",
		zap.Strings("brokers", cfg.Brokers))

	return &KafkaPublisher{writer: writer, logger: cfg.Logger}, nil
}

func (k *KafkaPublisher) publish(ctx context.Context, topic, key string, payload any) error {
	value, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encode event: %w", err)
	}

	err = k.writer.WriteMessages(ctx, kafka.Message{
		Topic: topic,
		Key:   []byte(key),
		Value: value,
	})
	if err != nil {
		PublishErrorsTotal.WithLabelValues(topic).Inc()
		return fmt.Errorf("write message: %w", err)
	}

	PublishedTotal.WithLabelValues(topic).Inc()
	return nil
}

// PublishBetPlaced delivers a bet-placed event.
func (k *KafkaPublisher) PublishBetPlaced(ctx context.Context, e BetPlaced) error {
	e.TsUnixMs = time.Now().UnixMilli()
	return k.publish(ctx, TopicBetPlaced, e.DuelID, e)
}

// PublishDuelResolved delivers a duel-resolved event.
func (k *KafkaPublisher) PublishDuelResolved(ctx context.Context, e DuelResolved) error {
	e.TsUnixMs = time.Now().UnixMilli()
	return k.publish(ctx, TopicDuelResolved, e.DuelID, e)
}

// PublishDuelCancelled delivers a duel-cancelled event.
func (k *KafkaPublisher) PublishDuelCancelled(ctx context.Context, e DuelCancelled) error {
	e.TsUnixMs = time.Now().UnixMilli()
	return k.publish(ctx, TopicDuelCancelled, e.DuelID, e)
}

// Close flushes and closes the writer.
func (k *KafkaPublisher) Close() error {
	k.logger.Info("closing-kafka-publisher")
	return k.writer.Close()
}
