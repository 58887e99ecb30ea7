package camera

import (
	"errors"
	"log/slog"

	"github.com/makiuchi-d/gozxing"
	"github.com/makiuchi-d/gozxing/qrcode"
)

// QRDecoder reads QR codes with gozxing.
type QRDecoder struct {
	log *slog.Logger
}

// NewQRDecoder creates a decoder; log receives unexpected decode errors at debug level.
func NewQRDecoder(log *slog.Logger) *QRDecoder {
	if log == nil {
		log = slog.Default()
	}
	return &QRDecoder{log: log}
}

// Decode implements Decoder. A reader is created per call because gozxing
// readers keep per-decode state.
func (d *QRDecoder) Decode(f Frame) (string, bool) {
	if f.Empty() {
		return "", false
	}
	bmp, err := gozxing.NewBinaryBitmapFromImage(f.Image)
	if err != nil {
		d.log.Debug("frame not decodable", "seq", f.Seq, "err", err)
		return "", false
	}
	res, err := qrcode.NewQRCodeReader().Decode(bmp, nil)
	if err != nil {
		var notFound gozxing.NotFoundException
		if !errors.As(err, &notFound) {
			d.log.Debug("qr decode failed", "seq", f.Seq, "err", err)
		}
		return "", false
	}
	return res.GetText(), true
}
