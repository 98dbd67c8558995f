package sink

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ridge/solstream/event"
	"github.com/ridge/solstream/retry"
	"github.com/ridge/solstream/tlog"
	"github.com/ridge/solstream/tnet"
	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

var kafkaRetry = retry.FixedConfig{RetryAfter: time.Second, MaxAttempts: 10}

const kafkaWriteTimeout = 30 * time.Second

// The subset of kafka.Writer used here, mockable in tests
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Kafka writes event envelopes to a Kafka topic, keyed by Key
type Kafka struct {
	topic  string
	writer messageWriter
}

// NewKafka creates a sink writing to topic on the given brokers
func NewKafka(brokers []string, topic string) *Kafka {
	if len(brokers) == 0 {
		panic("need at least one Kafka broker")
	}
	return newKafka(topic, &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  topic,
		Balancer:               &kafka.Hash{},
		RequiredAcks:           kafka.RequireAll,
		AllowAutoTopicCreation: true,
	})
}

func newKafka(topic string, writer messageWriter) *Kafka {
	return &Kafka{topic: topic, writer: writer}
}

// Write implements Sink
func (k *Kafka) Write(ctx context.Context, ev event.DexEvent) error {
	value, err := Encode(ev)
	if err != nil {
		return err
	}
	msg := kafka.Message{
		Key:     Key(ev),
		Value:   value,
		Headers: []kafka.Header{{Key: "type", Value: []byte(ev.Metadata().Type)}},
	}

	ctx = tlog.With(ctx, zap.String("topic", k.topic))
	return retry.Do(ctx, kafkaRetry, func() error {
		ctx, cancel := context.WithTimeout(ctx, kafkaWriteTimeout)
		defer cancel()
		if err := k.writer.WriteMessages(ctx, msg); err != nil {
			err = fmt.Errorf("failed to write Kafka message: %w", err)
			if shouldRetry(err) {
				return retry.Retriable(err)
			}
			return err
		}
		return nil
	})
}

// Close implements Sink
func (k *Kafka) Close() error {
	return k.writer.Close()
}

func shouldRetry(err error) bool {
	if errors.Is(err, kafka.Unknown) {
		return true
	}
	var kerr kafka.Error
	if errors.As(err, &kerr) {
		return kerr.Temporary() || kerr.Timeout()
	}
	return retry.IsRetriable(tnet.MaybeRetriableError(err))
}
