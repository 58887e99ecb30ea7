package camera

import (
	"bytes"
	"errors"
	"image/jpeg"
	"sync"
)

// ErrNoFrame is returned by LatestFrame.JPEG before any frame was shown.
var ErrNoFrame = errors.New("no frame yet")

// LatestFrame is a Display that keeps only the newest frame, for serving to
// remote viewers.
type LatestFrame struct {
	mu    sync.RWMutex
	frame Frame
	shown uint64
}

// Show implements Display.
func (d *LatestFrame) Show(f Frame) {
	d.mu.Lock()
	d.frame = f
	d.shown++
	d.mu.Unlock()
}

// Latest returns the newest frame and the number of frames shown so far.
func (d *LatestFrame) Latest() (Frame, uint64) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.frame, d.shown
}

// JPEG encodes the newest frame.
func (d *LatestFrame) JPEG(quality int) ([]byte, error) {
	f, _ := d.Latest()
	if f.Empty() {
		return nil, ErrNoFrame
	}
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, f.Image, &jpeg.Options{Quality: quality}); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
