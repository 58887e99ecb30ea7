package camera

import (
	"image"
	_ "image/jpeg"
	_ "image/png"
	"os"
	"sync"
	"time"
)

// SnapshotSource reads frames from an image file that an external capture
// process keeps overwriting. A frame is produced only when the file changed
// since the last read.
type SnapshotSource struct {
	path string

	mu      sync.Mutex
	seq     uint64
	lastMod time.Time
	lastLen int64
}

// NewSnapshotSource watches path.
func NewSnapshotSource(path string) *SnapshotSource {
	return &SnapshotSource{path: path}
}

// IsOpen reports whether the snapshot file exists.
func (s *SnapshotSource) IsOpen() bool {
	_, err := os.Stat(s.path)
	return err == nil
}

// NextFrame implements Source.
func (s *SnapshotSource) NextFrame() (Frame, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	info, err := os.Stat(s.path)
	if err != nil {
		return Frame{}, false
	}
	if info.ModTime().Equal(s.lastMod) && info.Size() == s.lastLen {
		return Frame{}, false
	}
	f, err := os.Open(s.path)
	if err != nil {
		return Frame{}, false
	}
	defer f.Close()
	img, _, err := image.Decode(f)
	if err != nil {
		// Likely caught mid-write; retry on the next tick.
		return Frame{}, false
	}
	s.lastMod = info.ModTime()
	s.lastLen = info.Size()
	s.seq++
	return Frame{Seq: s.seq, At: time.Now(), Image: img}, true
}
