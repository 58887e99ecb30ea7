package scan

import (
	"fmt"
	"time"
)

// Source identifies which producer observed a scan.
type Source string

const (
	SourceCamera Source = "camera"
	SourceKeyed  Source = "keyed"
)

// RawScanEvent is one piece of scanned text as it arrived from a producer.
type RawScanEvent struct {
	ID         string    `json:"id"`
	Text       string    `json:"text"`
	Source     Source    `json:"source"`
	ObservedAt time.Time `json:"observed_at"`
}

// Kind classifies the terminal result of a processing cycle.
type Kind string

const (
	KindSuccess        Kind = "success"
	KindAlreadyScanned Kind = "already_scanned_today"
	KindBadFormat      Kind = "bad_format"
	KindUnknownCode    Kind = "unknown_code"
	KindStorageFailure Kind = "storage_failure"
)

// Outcome is what a processing cycle reports to the status sink.
type Outcome struct {
	Kind       Kind      `json:"kind"`
	EventID    string    `json:"event_id"`
	Source     Source    `json:"source"`
	Payload    Payload   `json:"payload"`
	Date       string    `json:"date,omitempty"`
	TotalScans int       `json:"total_scans,omitempty"`
	Error      string    `json:"error,omitempty"`
	At         time.Time `json:"at"`
}

// Message is the operator-facing status line for o.
func (o Outcome) Message() string {
	switch o.Kind {
	case KindSuccess:
		return fmt.Sprintf("Attendance recorded: %s - attended %d times", o.Payload.Name, o.TotalScans)
	case KindAlreadyScanned:
		return fmt.Sprintf("%s was already scanned today", o.Payload.Name)
	case KindBadFormat:
		return fmt.Sprintf("Invalid %s format", o.Source.label())
	case KindUnknownCode:
		return fmt.Sprintf("Unknown code: %s", o.Payload.SubjectCode)
	case KindStorageFailure:
		return fmt.Sprintf("Error while processing %s", o.Source.label())
	default:
		return string(o.Kind)
	}
}

func (s Source) label() string {
	if s == SourceCamera {
		return "QR code"
	}
	return "barcode"
}

// StatusSink receives every terminal outcome. Implementations must not block for long.
type StatusSink interface {
	Publish(Outcome)
}

// SinkFunc adapts a function to StatusSink.
type SinkFunc func(Outcome)

// Publish calls f(o).
func (f SinkFunc) Publish(o Outcome) { f(o) }
