package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/twmb/franz-go/pkg/kgo"
	"go.uber.org/zap"

	"github.com/ticketrush/reservation-engine/pkg/logger"
	"github.com/ticketrush/reservation-engine/pkg/retry"
)

const (
	keyTicketsReserved = "tickets.reserved"
	keyOrderSettled    = "order.settled"
)

// KafkaNotifierConfig holds configuration for the Kafka notifier
type KafkaNotifierConfig struct {
	Brokers  []string
	Topic    string
	ClientID string
}

// KafkaNotifier publishes notifications to a Kafka topic with franz-go.
// Produces are asynchronous; failed records are handed to the DLQ
// publisher and never surface to the caller.
type KafkaNotifier struct {
	client *kgo.Client
	topic  string
	dlq    retry.DLQPublisher
}

// NewKafkaNotifier creates a new KafkaNotifier
func NewKafkaNotifier(cfg *KafkaNotifierConfig) (*KafkaNotifier, error) {
	if cfg == nil || len(cfg.Brokers) == 0 {
		return nil, fmt.Errorf("kafka brokers are required")
	}
	if cfg.Topic == "" {
		return nil, fmt.Errorf("kafka topic is required")
	}

	opts := []kgo.Opt{
		kgo.SeedBrokers(cfg.Brokers...),
		kgo.ClientID(cfg.ClientID),
		kgo.ProducerBatchCompression(kgo.SnappyCompression()),
		kgo.RecordRetries(3),
	}

	client, err := kgo.NewClient(opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create kafka client: %w", err)
	}

	n := &KafkaNotifier{
		client: client,
		topic:  cfg.Topic,
	}
	n.dlq = retry.NewKafkaDLQPublisher(
		&retry.KafkaProducerAdapter{Producer: n},
		&retry.DLQConfig{TopicSuffix: ".dlq", Source: "reservation-engine"},
	)

	return n, nil
}

// TicketsReserved publishes a tickets.reserved notification
func (n *KafkaNotifier) TicketsReserved(ctx context.Context, event *TicketsReservedEvent) {
	n.produce(ctx, keyTicketsReserved, event.OrderID, event)
}

// OrderSettled publishes an order.settled notification
func (n *KafkaNotifier) OrderSettled(ctx context.Context, event *OrderSettledEvent) {
	n.produce(ctx, keyOrderSettled, event.OrderID, event)
}

// ProduceJSON publishes arbitrary JSON to a topic synchronously. Used
// by the DLQ publisher.
func (n *KafkaNotifier) ProduceJSON(ctx context.Context, topic string, key string, data interface{}, headers map[string]string) error {
	value, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("failed to marshal record: %w", err)
	}

	record := &kgo.Record{
		Topic: topic,
		Key:   []byte(key),
		Value: value,
	}
	for k, v := range headers {
		record.Headers = append(record.Headers, kgo.RecordHeader{Key: k, Value: []byte(v)})
	}

	return n.client.ProduceSync(ctx, record).FirstErr()
}

// produce fires an async record; errors go to the DLQ
func (n *KafkaNotifier) produce(ctx context.Context, kind, key string, payload interface{}) {
	log := logger.Get()

	value, err := json.Marshal(payload)
	if err != nil {
		log.Error("failed to marshal notification",
			zap.String("kind", kind),
			zap.Error(err),
		)
		return
	}

	record := &kgo.Record{
		Topic: n.topic,
		Key:   []byte(key),
		Value: value,
		Headers: []kgo.RecordHeader{
			{Key: "kind", Value: []byte(kind)},
		},
	}

	n.client.Produce(ctx, record, func(r *kgo.Record, err error) {
		if err == nil {
			return
		}
		log.Warn("notification produce failed, moving to DLQ",
			zap.String("kind", kind),
			zap.String("key", key),
			zap.Error(err),
		)
		dlqCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		dlqErr := n.dlq.PublishToDLQ(dlqCtx, &retry.DLQMessage{
			ID:            key,
			OriginalTopic: n.topic,
			OriginalKey:   key,
			Payload:       value,
			Headers:       map[string]string{"kind": kind},
			Error:         err.Error(),
			Attempts:      1,
			LastAttemptAt: time.Now(),
		})
		if dlqErr != nil {
			log.Error("failed to publish notification to DLQ",
				zap.String("kind", kind),
				zap.Error(dlqErr),
			)
		}
	})
}

// Close flushes pending records and closes the client
func (n *KafkaNotifier) Close() {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = n.client.Flush(ctx)
	n.client.Close()
}

// Ensure KafkaNotifier implements Notifier
var _ Notifier = (*KafkaNotifier)(nil)
