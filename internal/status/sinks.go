package status

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"scanattend/internal/queue"
	"scanattend/internal/scan"
)

// Fanout publishes each outcome to every sink in order.
type Fanout []scan.StatusSink

// Publish implements scan.StatusSink.
func (f Fanout) Publish(o scan.Outcome) {
	for _, s := range f {
		s.Publish(o)
	}
}

// LogSink writes outcomes as operator-facing log lines.
type LogSink struct {
	Log *slog.Logger
}

// Publish implements scan.StatusSink.
func (s LogSink) Publish(o scan.Outcome) {
	level := slog.LevelInfo
	switch o.Kind {
	case scan.KindStorageFailure:
		level = slog.LevelError
	case scan.KindBadFormat, scan.KindUnknownCode:
		level = slog.LevelWarn
	}
	s.Log.Log(context.Background(), level, o.Message(), "kind", o.Kind, "event_id", o.EventID)
}

// QueueSink forwards outcomes as JSON messages to a queue from its own
// goroutine, so a slow backend never stalls the coordinator. When the buffer
// is full the outcome is dropped and logged.
type QueueSink struct {
	q       queue.Queue
	log     *slog.Logger
	timeout time.Duration
	buf     chan scan.Outcome

	wg sync.WaitGroup
}

// NewQueueSink creates a sink buffering up to size outcomes.
func NewQueueSink(q queue.Queue, size int, log *slog.Logger) *QueueSink {
	if size <= 0 {
		size = 64
	}
	return &QueueSink{
		q:       q,
		log:     log.With("component", "queue_sink"),
		timeout: 2 * time.Second,
		buf:     make(chan scan.Outcome, size),
	}
}

// Publish implements scan.StatusSink.
func (s *QueueSink) Publish(o scan.Outcome) {
	select {
	case s.buf <- o:
	default:
		s.log.Warn("outcome stream full, dropping outcome", "event_id", o.EventID, "kind", o.Kind)
	}
}

// Start forwards buffered outcomes until ctx is done, then flushes whatever
// is still buffered, each publish bounded by the sink timeout.
func (s *QueueSink) Start(ctx context.Context) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		for {
			select {
			case o := <-s.buf:
				s.forward(ctx, o)
			case <-ctx.Done():
				s.flush()
				return
			}
		}
	}()
}

func (s *QueueSink) flush() {
	for {
		select {
		case o := <-s.buf:
			s.forward(context.Background(), o)
		default:
			return
		}
	}
}

// Wait blocks until the forwarding goroutine exits.
func (s *QueueSink) Wait() {
	s.wg.Wait()
}

func (s *QueueSink) forward(ctx context.Context, o scan.Outcome) {
	body, err := json.Marshal(o)
	if err != nil {
		s.log.Error("encode outcome", "event_id", o.EventID, "err", err)
		return
	}
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	if err := s.q.Publish(ctx, queue.Message{Type: queue.TypeOutcome, Body: body}); err != nil {
		s.log.Error("queue publish failed", "event_id", o.EventID, "err", err)
	}
}

// DecodeOutcome parses a message produced by QueueSink.
func DecodeOutcome(msg queue.Message) (scan.Outcome, error) {
	var o scan.Outcome
	err := json.Unmarshal(msg.Body, &o)
	return o, err
}
