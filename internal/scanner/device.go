package scanner

import (
	"context"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"os"

	"receiving-service/internal/models"

	"github.com/makiuchi-d/gozxing"
	"github.com/makiuchi-d/gozxing/oned"
	"github.com/makiuchi-d/gozxing/qrcode"
)

// FileSource reads frames from an image file that a capture daemon keeps refreshing
type FileSource struct {
	Path string
}

// NewFileSource creates a source for the snapshot file at path
func NewFileSource(path string) *FileSource {
	return &FileSource{Path: path}
}

func (s *FileSource) Open(ctx context.Context) (Capture, error) {
	info, err := os.Stat(s.Path)
	if err != nil {
		return nil, fmt.Errorf("capture device %s: %v: %w", s.Path, err, models.ErrResourceUnavailable)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("capture device %s is a directory: %w", s.Path, models.ErrResourceUnavailable)
	}
	return &fileCapture{path: s.Path}, nil
}

type fileCapture struct {
	path string
}

func (c *fileCapture) Read() (image.Image, error) {
	f, err := os.Open(c.path)
	if err != nil {
		return nil, fmt.Errorf("failed to open frame: %w", err)
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("failed to decode frame: %w", err)
	}
	return img, nil
}

func (c *fileCapture) Close() error { return nil }

// ImageDecoder reads linear retail barcodes and QR codes
type ImageDecoder struct {
	readers []gozxing.Reader
	hints   map[gozxing.DecodeHintType]interface{}
}

// NewImageDecoder creates a decoder for EAN-13, EAN-8, UPC-A, Code 128, Code 39 and QR
func NewImageDecoder() *ImageDecoder {
	return &ImageDecoder{
		readers: []gozxing.Reader{
			oned.NewEAN13Reader(),
			oned.NewEAN8Reader(),
			oned.NewUPCAReader(),
			oned.NewCode128Reader(),
			oned.NewCode39Reader(),
			qrcode.NewQRCodeReader(),
		},
		hints: map[gozxing.DecodeHintType]interface{}{
			gozxing.DecodeHintType_TRY_HARDER: true,
		},
	}
}

func (d *ImageDecoder) Decode(img image.Image) (string, bool) {
	bmp, err := gozxing.NewBinaryBitmapFromImage(img)
	if err != nil {
		return "", false
	}

	for _, reader := range d.readers {
		result, err := reader.Decode(bmp, d.hints)
		if err == nil && result.GetText() != "" {
			return result.GetText(), true
		}
	}
	return "", false
}
