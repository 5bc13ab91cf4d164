package scanner

import (
	"context"
	"errors"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"receiving-service/internal/models"
	"receiving-service/internal/redisclient"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/makiuchi-d/gozxing"
	"github.com/makiuchi-d/gozxing/qrcode"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testTick = time.Millisecond

type fakeCapture struct {
	mu     sync.Mutex
	reads  int
	closed int
	fail   bool
}

func (c *fakeCapture) Read() (image.Image, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.reads++
	if c.fail {
		return nil, errors.New("frame dropped")
	}
	return image.NewGray(image.Rect(0, 0, 1, 1)), nil
}

func (c *fakeCapture) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed++
	return nil
}

func (c *fakeCapture) closeCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

type fakeSource struct {
	capture *fakeCapture
	err     error
}

func (s *fakeSource) Open(ctx context.Context) (Capture, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.capture, nil
}

// countingDecoder decodes code on the n-th frame and never before
type countingDecoder struct {
	mu    sync.Mutex
	n     int
	seen  int
	code  string
	never bool
}

func (d *countingDecoder) Decode(img image.Image) (string, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.seen++
	if d.never || d.seen < d.n {
		return "", false
	}
	return d.code, true
}

func TestLoopReturnsFirstCodeAndReleases(t *testing.T) {
	capture := &fakeCapture{}
	decoder := &countingDecoder{n: 3, code: "123"}
	loop := NewLoop(&fakeSource{capture: capture}, decoder, testTick)

	code, err := loop.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "123", code)
	assert.Equal(t, 3, capture.reads)
	assert.Equal(t, 1, capture.closeCount())
}

func TestLoopSkipsFailedFrames(t *testing.T) {
	capture := &fakeCapture{fail: true}
	loop := NewLoop(&fakeSource{capture: capture}, &countingDecoder{n: 1, code: "123"}, testTick)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := loop.Run(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Greater(t, capture.reads, 1)
	assert.Equal(t, 1, capture.closeCount())
}

func TestLoopCancel(t *testing.T) {
	capture := &fakeCapture{}
	loop := NewLoop(&fakeSource{capture: capture}, &countingDecoder{never: true}, testTick)

	errCh := make(chan error, 1)
	go func() {
		_, err := loop.Run(context.Background())
		errCh <- err
	}()

	time.Sleep(5 * time.Millisecond)
	loop.Cancel()
	loop.Cancel()

	select {
	case err := <-errCh:
		assert.ErrorIs(t, err, ErrCancelled)
	case <-time.After(time.Second):
		t.Fatal("loop did not stop after Cancel")
	}
	assert.Equal(t, 1, capture.closeCount())
}

func TestLoopContextCancel(t *testing.T) {
	capture := &fakeCapture{}
	loop := NewLoop(&fakeSource{capture: capture}, &countingDecoder{never: true}, testTick)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := loop.Run(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, capture.closeCount())
}

func TestLoopOpenFailureIsUnavailable(t *testing.T) {
	loop := NewLoop(&fakeSource{err: errors.New("no camera")}, &countingDecoder{never: true}, testTick)

	_, err := loop.Run(context.Background())
	assert.ErrorIs(t, err, models.ErrResourceUnavailable)
}

func TestFileSourceMissingDevice(t *testing.T) {
	_, err := NewFileSource(filepath.Join(t.TempDir(), "missing.png")).Open(context.Background())
	assert.ErrorIs(t, err, models.ErrResourceUnavailable)

	_, err = NewFileSource(t.TempDir()).Open(context.Background())
	assert.ErrorIs(t, err, models.ErrResourceUnavailable)
}

func writeQRCode(t *testing.T, path, text string) {
	t.Helper()

	matrix, err := qrcode.NewQRCodeWriter().Encode(text, gozxing.BarcodeFormat_QR_CODE, 200, 200, nil)
	require.NoError(t, err)

	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()
	require.NoError(t, png.Encode(f, matrix))
}

func TestFileSourceWithImageDecoder(t *testing.T) {
	path := filepath.Join(t.TempDir(), "frame.png")
	writeQRCode(t, path, "4006381333931")

	loop := NewLoop(NewFileSource(path), NewImageDecoder(), testTick)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	code, err := loop.Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, "4006381333931", code)
}

func TestImageDecoderBlankFrame(t *testing.T) {
	blank := image.NewGray(image.Rect(0, 0, 64, 64))
	_, ok := NewImageDecoder().Decode(blank)
	assert.False(t, ok)
}

type fakeResolver struct {
	mu    sync.Mutex
	codes []string
}

func (r *fakeResolver) Resolve(ctx context.Context, code string) (models.Product, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.codes = append(r.codes, code)
	if code != "123" {
		return models.Product{}, models.ErrNotFound
	}
	return models.Product{Barcode: "123", SKU: "A1", Brand: "ACME", Name: "Widget"}, nil
}

func waitDone(t *testing.T, ch <-chan struct{}) {
	t.Helper()
	select {
	case <-ch:
	case <-time.After(time.Second):
		t.Fatal("scan did not finish")
	}
}

func TestCoordinatorDeliversOneCode(t *testing.T) {
	c := NewCoordinator(&fakeSource{capture: &fakeCapture{}}, &countingDecoder{n: 2, code: "123"}, testTick, nil, "cam0", time.Minute)
	defer c.Shutdown()

	resolver := &fakeResolver{}
	require.NoError(t, c.Start("s1", resolver))
	waitDone(t, c.Done("s1"))

	status, ok := c.Status("s1")
	require.True(t, ok)
	assert.False(t, status.Running)
	assert.Equal(t, "123", status.Code)
	require.NotNil(t, status.Product)
	assert.Equal(t, "Widget", status.Product.Name)
	assert.Equal(t, []string{"123"}, resolver.codes)
}

func TestCoordinatorNotFound(t *testing.T) {
	c := NewCoordinator(&fakeSource{capture: &fakeCapture{}}, &countingDecoder{n: 1, code: "999"}, testTick, nil, "cam0", time.Minute)
	defer c.Shutdown()

	require.NoError(t, c.Start("s1", &fakeResolver{}))
	waitDone(t, c.Done("s1"))

	status, _ := c.Status("s1")
	assert.Equal(t, "999", status.Code)
	assert.Nil(t, status.Product)
	assert.NotEmpty(t, status.Error)
}

func TestCoordinatorOneScanPerSession(t *testing.T) {
	capture := &fakeCapture{}
	c := NewCoordinator(&fakeSource{capture: capture}, &countingDecoder{never: true}, testTick, nil, "cam0", time.Minute)
	defer c.Shutdown()

	require.NoError(t, c.Start("s1", &fakeResolver{}))
	assert.ErrorIs(t, c.Start("s1", &fakeResolver{}), ErrScanInProgress)

	done := c.Done("s1")
	assert.True(t, c.Cancel("s1"))
	waitDone(t, done)

	status, _ := c.Status("s1")
	assert.Equal(t, ErrCancelled.Error(), status.Error)
	assert.Equal(t, 1, capture.closeCount())
	assert.False(t, c.Cancel("s1"))
}

func TestCoordinatorDeviceLock(t *testing.T) {
	mr := miniredis.RunT(t)
	locker := redisclient.Wrap(redis.NewClient(&redis.Options{Addr: mr.Addr()}))

	first := NewCoordinator(&fakeSource{capture: &fakeCapture{}}, &countingDecoder{never: true}, testTick, locker, "cam0", time.Minute)
	second := NewCoordinator(&fakeSource{capture: &fakeCapture{}}, &countingDecoder{never: true}, testTick, locker, "cam0", time.Minute)
	defer first.Shutdown()
	defer second.Shutdown()

	require.NoError(t, first.Start("s1", &fakeResolver{}))
	assert.True(t, mr.Exists("lock:scanner:cam0"))

	err := second.Start("s2", &fakeResolver{})
	assert.ErrorIs(t, err, models.ErrResourceUnavailable)

	done := first.Done("s1")
	first.Cancel("s1")
	waitDone(t, done)
	assert.False(t, mr.Exists("lock:scanner:cam0"))

	require.NoError(t, second.Start("s2", &fakeResolver{}))
}

func TestCoordinatorDeviceLockAlwaysExpires(t *testing.T) {
	mr := miniredis.RunT(t)
	locker := redisclient.Wrap(redis.NewClient(&redis.Options{Addr: mr.Addr()}))

	c := NewCoordinator(&fakeSource{capture: &fakeCapture{}}, &countingDecoder{never: true}, testTick, locker, "cam0", 0)
	defer c.Shutdown()

	require.NoError(t, c.Start("s1", &fakeResolver{}))
	assert.Equal(t, DefaultLockTTL, mr.TTL("lock:scanner:cam0"))

	// a holder that never releases loses the device once the ttl passes
	mr.FastForward(DefaultLockTTL + time.Second)
	assert.False(t, mr.Exists("lock:scanner:cam0"))

	done := c.Done("s1")
	c.Cancel("s1")
	waitDone(t, done)
}

func TestCoordinatorUnavailableDevice(t *testing.T) {
	c := NewCoordinator(&fakeSource{err: models.ErrResourceUnavailable}, &countingDecoder{never: true}, testTick, nil, "cam0", time.Minute)
	defer c.Shutdown()

	require.NoError(t, c.Start("s1", &fakeResolver{}))
	waitDone(t, c.Done("s1"))

	status, _ := c.Status("s1")
	assert.Contains(t, status.Error, models.ErrResourceUnavailable.Error())

	c.Forget("s1")
	_, ok := c.Status("s1")
	assert.False(t, ok)
}
