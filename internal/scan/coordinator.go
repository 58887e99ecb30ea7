package scan

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"scanattend/internal/attendance"
	"scanattend/internal/metrics"
)

// Resolver looks up enrolled subjects by bare code.
type Resolver interface {
	Resolve(ctx context.Context, code string) (attendance.Subject, bool, error)
}

// Ledger records once-per-day attendance.
type Ledger interface {
	HasRecordToday(ctx context.Context, code, date string) (bool, error)
	RecordAttendance(ctx context.Context, e attendance.Entry) (bool, error)
	TotalScans(ctx context.Context, code string) (int, error)
}

// Options configures a Coordinator. Zero values pick defaults; a negative
// DebounceWindow turns debouncing off.
type Options struct {
	DebounceWindow time.Duration
	Location       *time.Location
	Now            func() time.Time
	Logger         *slog.Logger
	Metrics        *metrics.Scan
}

// Coordinator runs raw scans through gate, parser, registry and ledger and
// publishes the outcome. Submit is safe for concurrent use by both producers.
type Coordinator struct {
	registry Resolver
	ledger   Ledger
	sink     StatusSink
	gate     *DedupGate
	loc      *time.Location
	now      func() time.Time
	log      *slog.Logger
	metrics  *metrics.Scan
}

// NewCoordinator wires a coordinator.
func NewCoordinator(registry Resolver, ledger Ledger, sink StatusSink, opts Options) *Coordinator {
	if opts.DebounceWindow == 0 {
		opts.DebounceWindow = DefaultDebounceWindow
	}
	if opts.Location == nil {
		opts.Location = time.Local
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if sink == nil {
		sink = SinkFunc(func(Outcome) {})
	}
	return &Coordinator{
		registry: registry,
		ledger:   ledger,
		sink:     sink,
		gate:     NewDedupGate(opts.DebounceWindow),
		loc:      opts.Location,
		now:      opts.Now,
		log:      opts.Logger.With("component", "coordinator"),
		metrics:  opts.Metrics,
	}
}

// Submit processes one raw scan. ok is false when the scan was dropped without
// an outcome: blank text, or a repeat suppressed by the dedup gate.
func (c *Coordinator) Submit(ctx context.Context, ev RawScanEvent) (Outcome, bool) {
	text := strings.TrimSpace(ev.Text)
	if text == "" {
		return Outcome{}, false
	}
	if ev.ID == "" {
		ev.ID = uuid.NewString()
	}
	now := c.now()
	if ev.ObservedAt.IsZero() {
		ev.ObservedAt = now
	}

	if !c.gate.ShouldProcess(GateKey(text), now) {
		c.log.Debug("scan suppressed by debounce", "event_id", ev.ID, "source", ev.Source)
		c.metrics.Suppressed(string(ev.Source))
		return Outcome{}, false
	}

	out := c.process(ctx, ev, text, now)
	c.publish(out)
	return out, true
}

func (c *Coordinator) process(ctx context.Context, ev RawScanEvent, text string, now time.Time) Outcome {
	out := Outcome{EventID: ev.ID, Source: ev.Source, At: now}

	payload, structured := Parse(text)
	if !structured {
		// Bare codes trust the registry; structured payloads trust their own fields.
		code := attendance.NormalizeCode(payload.SubjectCode)
		out.Payload = Payload{SubjectCode: code}
		subject, found, err := c.registry.Resolve(ctx, code)
		if err != nil {
			return c.storageFailure(out, err)
		}
		if !found {
			out.Kind = KindUnknownCode
			return out
		}
		payload = Payload{Name: subject.Name, Major: subject.Major, SubjectCode: subject.Code}
	}
	// The ledger stores codes upper-cased; report the code as stored.
	payload.SubjectCode = attendance.NormalizeCode(payload.SubjectCode)
	out.Payload = payload
	if !payload.Valid() {
		out.Kind = KindBadFormat
		return out
	}

	out.Date = attendance.Day(now.In(c.loc))
	code := payload.SubjectCode
	already, err := c.ledger.HasRecordToday(ctx, code, out.Date)
	if err != nil {
		return c.storageFailure(out, err)
	}
	if already {
		out.Kind = KindAlreadyScanned
		return out
	}
	created, err := c.ledger.RecordAttendance(ctx, attendance.Entry{
		Name:   payload.Name,
		Major:  payload.Major,
		Code:   code,
		Date:   out.Date,
		Source: string(ev.Source),
		At:     now,
	})
	if err != nil {
		return c.storageFailure(out, err)
	}
	if !created {
		// Lost the insert race to a concurrent cycle.
		out.Kind = KindAlreadyScanned
		return out
	}

	out.Kind = KindSuccess
	total, err := c.ledger.TotalScans(ctx, code)
	if err != nil {
		c.log.Warn("total scans unavailable", "event_id", ev.ID, "code", code, "err", err)
		return out
	}
	out.TotalScans = total
	return out
}

func (c *Coordinator) storageFailure(out Outcome, err error) Outcome {
	c.log.Error("scan processing failed", "event_id", out.EventID, "source", out.Source, "err", err)
	out.Kind = KindStorageFailure
	out.Error = err.Error()
	return out
}

func (c *Coordinator) publish(out Outcome) {
	c.log.Info("scan outcome",
		"event_id", out.EventID,
		"source", out.Source,
		"kind", out.Kind,
		"code", out.Payload.SubjectCode,
		"total_scans", out.TotalScans,
	)
	c.metrics.Outcome(string(out.Kind), string(out.Source))
	c.sink.Publish(out)
}
