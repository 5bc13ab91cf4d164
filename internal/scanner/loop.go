// Package scanner turns a capture device into at most one decoded code per
// scan session.
package scanner

import (
	"context"
	"errors"
	"fmt"
	"image"
	"sync"
	"time"

	"receiving-service/internal/models"
	"receiving-service/internal/util"

	"go.uber.org/zap"
)

// ErrCancelled is returned by Run after Cancel
var ErrCancelled = errors.New("scan cancelled")

// Capture is an open capture device
type Capture interface {
	Read() (image.Image, error)
	Close() error
}

// Source opens a capture device
type Source interface {
	Open(ctx context.Context) (Capture, error)
}

// Decoder finds a barcode in a frame
type Decoder interface {
	Decode(img image.Image) (string, bool)
}

// Loop polls a capture device once per tick until a frame decodes
type Loop struct {
	source  Source
	decoder Decoder
	tick    time.Duration

	cancel     chan struct{}
	cancelOnce sync.Once
	logger     *zap.Logger
}

// NewLoop creates a scan loop
func NewLoop(source Source, decoder Decoder, tick time.Duration) *Loop {
	return &Loop{
		source:  source,
		decoder: decoder,
		tick:    tick,
		cancel:  make(chan struct{}),
		logger:  util.GetLogger(),
	}
}

// Cancel stops the loop at its next tick. Safe to call more than once.
func (l *Loop) Cancel() {
	l.cancelOnce.Do(func() { close(l.cancel) })
}

// Run opens the device and returns the first decoded code. The device is
// closed on every return path. A device that cannot be opened is reported
// as models.ErrResourceUnavailable and not retried.
func (l *Loop) Run(ctx context.Context) (string, error) {
	capture, err := l.source.Open(ctx)
	if err != nil {
		if errors.Is(err, models.ErrResourceUnavailable) {
			return "", err
		}
		return "", fmt.Errorf("failed to open capture device: %v: %w", err, models.ErrResourceUnavailable)
	}
	defer func() {
		if err := capture.Close(); err != nil {
			l.logger.Warn("Failed to close capture device", zap.Error(err))
		}
	}()

	ticker := time.NewTicker(l.tick)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-l.cancel:
			return "", ErrCancelled
		case <-ticker.C:
			frame, err := capture.Read()
			if err != nil {
				l.logger.Debug("Frame capture failed", zap.Error(err))
				continue
			}

			start := time.Now()
			code, ok := l.decoder.Decode(frame)
			util.ScanDecodeLatency.Observe(time.Since(start).Seconds())
			if ok {
				return code, nil
			}
		}
	}
}
