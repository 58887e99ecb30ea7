package camera

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"scanattend/internal/metrics"
	"scanattend/internal/scan"
)

// DefaultInterval is the frame cadence, about 30 frames per second.
const DefaultInterval = 33 * time.Millisecond

// Submitter accepts decoded scans; *scan.Coordinator implements it.
type Submitter interface {
	Submit(ctx context.Context, ev scan.RawScanEvent) (scan.Outcome, bool)
}

// ProducerOptions configures a Producer. Zero values pick defaults.
type ProducerOptions struct {
	Interval time.Duration
	Logger   *slog.Logger
	Metrics  *metrics.Camera
}

// Producer pulls one frame per tick, always shows it, and decodes it only when
// no earlier decode is still in flight. Decoding runs off the tick goroutine,
// and ticks missed while a tick runs are dropped rather than queued.
type Producer struct {
	source   Source
	decoder  Decoder
	display  Display
	submit   Submitter
	interval time.Duration
	log      *slog.Logger
	metrics  *metrics.Camera

	inFlight atomic.Bool
	wg       sync.WaitGroup
}

// NewProducer wires a producer.
func NewProducer(source Source, decoder Decoder, display Display, submit Submitter, opts ProducerOptions) *Producer {
	if opts.Interval <= 0 {
		opts.Interval = DefaultInterval
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Producer{
		source:   source,
		decoder:  decoder,
		display:  display,
		submit:   submit,
		interval: opts.Interval,
		log:      opts.Logger.With("component", "frame_producer"),
		metrics:  opts.Metrics,
	}
}

// Run ticks until ctx is done, then waits for an in-flight decode to finish.
func (p *Producer) Run(ctx context.Context) error {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()
	defer p.wg.Wait()

	p.log.Info("frame producer started", "interval", p.interval)
	for {
		select {
		case <-ctx.Done():
			p.log.Info("frame producer stopped")
			return ctx.Err()
		case <-ticker.C:
			p.tick(ctx)
		}
	}
}

func (p *Producer) tick(ctx context.Context) {
	if !p.source.IsOpen() {
		return
	}
	frame, ok := p.source.NextFrame()
	if !ok || frame.Empty() {
		return
	}
	p.display.Show(frame)
	p.metrics.Frame()

	if !p.inFlight.CompareAndSwap(false, true) {
		p.metrics.DecodeSkipped()
		return
	}
	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		defer p.inFlight.Store(false)
		p.decode(ctx, frame)
	}()
}

func (p *Producer) decode(ctx context.Context, frame Frame) {
	defer func() {
		if r := recover(); r != nil {
			p.metrics.DecodePanicked()
			p.log.Error("decode cycle panicked", "seq", frame.Seq, "panic", r)
		}
	}()
	text, found := p.decoder.Decode(frame)
	p.metrics.Decoded(found)
	if !found {
		return
	}
	p.submit.Submit(ctx, scan.RawScanEvent{
		ID:         uuid.NewString(),
		Text:       text,
		Source:     scan.SourceCamera,
		ObservedAt: frame.At,
	})
}
