package scanner

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"receiving-service/internal/models"
	"receiving-service/internal/util"

	"go.uber.org/zap"
)

// ErrScanInProgress is returned when a session already has a running scan
var ErrScanInProgress = errors.New("scan already in progress")

// DefaultLockTTL bounds how long a crashed process can hold the capture device
const DefaultLockTTL = 30 * time.Second

// Resolver receives the decoded code; workflow sessions implement it
type Resolver interface {
	Resolve(ctx context.Context, code string) (models.Product, error)
}

// Locker guards the capture device across processes
type Locker interface {
	AcquireLock(ctx context.Context, lockKey, owner string, ttl time.Duration) (bool, error)
	ReleaseLock(ctx context.Context, lockKey, owner string) error
}

// Status reports the running or last finished scan of a session
type Status struct {
	Running bool            `json:"running"`
	Code    string          `json:"code,omitempty"`
	Product *models.Product `json:"product,omitempty"`
	Error   string          `json:"error,omitempty"`
}

type scan struct {
	loop *Loop
	done chan struct{}
}

// Coordinator runs at most one scan loop per workflow session and hands the
// decoded code to that session
type Coordinator struct {
	source  Source
	decoder Decoder
	tick    time.Duration
	locker  Locker
	lockKey string
	lockTTL time.Duration

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu      sync.Mutex
	running map[string]*scan
	results map[string]Status
	logger  *zap.Logger
}

// NewCoordinator creates a coordinator. locker may be nil when a single process owns the device.
// A non-positive lockTTL falls back to DefaultLockTTL; the device lock always expires.
func NewCoordinator(source Source, decoder Decoder, tick time.Duration, locker Locker, device string, lockTTL time.Duration) *Coordinator {
	if lockTTL <= 0 {
		lockTTL = DefaultLockTTL
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Coordinator{
		source:  source,
		decoder: decoder,
		tick:    tick,
		locker:  locker,
		lockKey: "scanner:" + device,
		lockTTL: lockTTL,
		ctx:     ctx,
		cancel:  cancel,
		running: make(map[string]*scan),
		results: make(map[string]Status),
		logger:  util.GetLogger(),
	}
}

// Start begins a scan for sessionID in the background
func (c *Coordinator) Start(sessionID string, target Resolver) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.ctx.Err() != nil {
		return fmt.Errorf("scanner stopped: %w", models.ErrResourceUnavailable)
	}
	if _, ok := c.running[sessionID]; ok {
		return ErrScanInProgress
	}

	if c.locker != nil {
		ok, err := c.locker.AcquireLock(c.ctx, c.lockKey, sessionID, c.lockTTL)
		if err != nil {
			return fmt.Errorf("failed to lock capture device: %v: %w", err, models.ErrResourceUnavailable)
		}
		if !ok {
			util.ScanSessionsTotal.WithLabelValues("busy").Inc()
			return fmt.Errorf("capture device is busy: %w", models.ErrResourceUnavailable)
		}
	}

	sc := &scan{loop: NewLoop(c.source, c.decoder, c.tick), done: make(chan struct{})}
	c.running[sessionID] = sc
	c.results[sessionID] = Status{Running: true}

	c.wg.Add(1)
	go c.run(sessionID, sc, target)
	return nil
}

func (c *Coordinator) run(sessionID string, sc *scan, target Resolver) {
	defer c.wg.Done()
	defer close(sc.done)

	code, err := sc.loop.Run(c.ctx)
	c.releaseLock(sessionID)

	status := Status{Code: code}
	outcome := "resolved"
	switch {
	case errors.Is(err, ErrCancelled), errors.Is(err, context.Canceled):
		outcome = "cancelled"
		status.Error = ErrCancelled.Error()
	case errors.Is(err, models.ErrResourceUnavailable):
		outcome = "unavailable"
		status.Error = err.Error()
	case err != nil:
		outcome = "error"
		status.Error = err.Error()
	default:
		product, rerr := target.Resolve(c.ctx, code)
		if rerr != nil {
			outcome = "not_found"
			if !errors.Is(rerr, models.ErrNotFound) {
				outcome = "error"
			}
			status.Error = rerr.Error()
		} else {
			status.Product = &product
		}
	}

	util.ScanSessionsTotal.WithLabelValues(outcome).Inc()
	c.logger.Info("Scan finished",
		zap.String("session_id", sessionID),
		zap.String("outcome", outcome),
		zap.String("code", code),
	)

	c.mu.Lock()
	delete(c.running, sessionID)
	if _, forgotten := c.results[sessionID]; forgotten {
		c.results[sessionID] = status
	}
	c.mu.Unlock()
}

func (c *Coordinator) releaseLock(sessionID string) {
	if c.locker == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := c.locker.ReleaseLock(ctx, c.lockKey, sessionID); err != nil {
		c.logger.Warn("Failed to release capture device lock", zap.String("session_id", sessionID), zap.Error(err))
	}
}

// Cancel stops the running scan of sessionID, if any
func (c *Coordinator) Cancel(sessionID string) bool {
	c.mu.Lock()
	sc, ok := c.running[sessionID]
	c.mu.Unlock()

	if ok {
		sc.loop.Cancel()
	}
	return ok
}

// Done returns a channel closed when the current scan of sessionID ends
func (c *Coordinator) Done(sessionID string) <-chan struct{} {
	c.mu.Lock()
	defer c.mu.Unlock()

	if sc, ok := c.running[sessionID]; ok {
		return sc.done
	}
	closed := make(chan struct{})
	close(closed)
	return closed
}

// Status returns the scan status of sessionID
func (c *Coordinator) Status(sessionID string) (Status, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	st, ok := c.results[sessionID]
	return st, ok
}

// Forget cancels any scan of sessionID and drops its status
func (c *Coordinator) Forget(sessionID string) {
	c.Cancel(sessionID)
	c.mu.Lock()
	delete(c.results, sessionID)
	c.mu.Unlock()
}

// Shutdown cancels every running scan and waits for them to release the device
func (c *Coordinator) Shutdown() {
	c.cancel()
	c.wg.Wait()
}
