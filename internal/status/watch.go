package status

import (
	"context"
	"log/slog"

	"scanattend/internal/queue"
	"scanattend/internal/scan"
)

// Watch consumes the outcome stream and hands each decoded outcome to sink
// until ctx is done or the stream closes. Messages of other types are skipped.
func Watch(ctx context.Context, q queue.Queue, sink scan.StatusSink, log *slog.Logger) error {
	messages, err := q.Consume(ctx)
	if err != nil {
		return err
	}
	for msg := range messages {
		if msg.Type != queue.TypeOutcome {
			log.Debug("skipping message", "type", msg.Type)
			continue
		}
		o, err := DecodeOutcome(msg)
		if err != nil {
			log.Warn("undecodable outcome", "err", err)
			continue
		}
		sink.Publish(o)
	}
	return nil
}
