// Package camera drives the optical scan path: it pulls frames at a fixed
// cadence, hands each to a display, and decodes QR payloads without ever
// holding up the next frame.
package camera

import (
	"image"
	"time"
)

// Frame is one captured image.
type Frame struct {
	Seq   uint64
	At    time.Time
	Image image.Image
}

// Empty reports whether the frame carries no pixels.
func (f Frame) Empty() bool {
	return f.Image == nil || f.Image.Bounds().Empty()
}

// Source yields frames from a camera.
type Source interface {
	NextFrame() (Frame, bool)
	IsOpen() bool
}

// Decoder extracts a payload string from a frame. found is false when the
// frame holds no readable code, which is the common case and not an error.
type Decoder interface {
	Decode(Frame) (text string, found bool)
}

// Display shows frames. Show must return quickly.
type Display interface {
	Show(Frame)
}
