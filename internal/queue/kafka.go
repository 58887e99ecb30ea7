package queue

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/segmentio/kafka-go"
)

// KafkaQueue publishes to and consumes from one Kafka topic. The message key
// carries Message.Type.
type KafkaQueue struct {
	brokers []string
	topic   string
	groupID string
	writer  *kafka.Writer
	log     *slog.Logger
}

// NewKafkaQueue creates a queue on topic. groupID names the consumer group used by Consume.
// Broker and group errors, which kafka-go retries internally, are logged at warn level.
func NewKafkaQueue(brokers []string, topic, groupID string, log *slog.Logger) *KafkaQueue {
	if log == nil {
		log = slog.Default()
	}
	log = log.With(slog.String("component", "kafka_queue"), slog.String("topic", topic))
	return &KafkaQueue{
		brokers: brokers,
		topic:   topic,
		groupID: groupID,
		log:     log,
		writer: &kafka.Writer{
			Addr:         kafka.TCP(brokers...),
			Topic:        topic,
			Balancer:     &kafka.LeastBytes{},
			BatchTimeout: 10 * time.Millisecond,
			RequiredAcks: kafka.RequireOne,
			ErrorLogger:  errorLogger(log, "kafka_writer_err"),
		},
	}
}

func errorLogger(log *slog.Logger, msg string) kafka.Logger {
	return kafka.LoggerFunc(func(format string, args ...interface{}) {
		log.Warn(msg, slog.String("err", fmt.Sprintf(format, args...)))
	})
}

// Publish writes one message.
func (q *KafkaQueue) Publish(ctx context.Context, msg Message) error {
	return q.writer.WriteMessages(ctx, kafka.Message{Key: []byte(msg.Type), Value: msg.Body})
}

// Consume reads the topic as part of the consumer group until ctx is done.
func (q *KafkaQueue) Consume(ctx context.Context) (<-chan Message, error) {
	if q.groupID == "" {
		return nil, errors.New("kafka consume needs a group id")
	}
	q.log.Info("consumer_start", slog.String("group", q.groupID))
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:     q.brokers,
		GroupID:     q.groupID,
		Topic:       q.topic,
		StartOffset: kafka.LastOffset,
		MinBytes:    1,
		MaxBytes:    1e6,
		ErrorLogger: errorLogger(q.log, "kafka_reader_err"),
	})
	out := make(chan Message)
	go func() {
		defer close(out)
		defer reader.Close()
		for {
			m, err := reader.ReadMessage(ctx)
			if err != nil {
				if ctx.Err() != nil {
					return
				}
				q.log.Warn("kafka_read_err", slog.Any("err", err))
				select {
				case <-time.After(time.Second):
				case <-ctx.Done():
					return
				}
				continue
			}
			select {
			case out <- Message{Type: string(m.Key), Body: m.Value}:
			case <-ctx.Done():
				return
			}
		}
	}()
	return out, nil
}

// Close flushes and closes the writer.
func (q *KafkaQueue) Close() error {
	return q.writer.Close()
}
