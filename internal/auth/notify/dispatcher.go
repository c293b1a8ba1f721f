package notify

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/aussiebroadwan/roomstay/internal/auth/domain"
	"github.com/aussiebroadwan/roomstay/internal/auth/service"
)

// ErrQueueFull is returned when a message is dropped because the queue is
// at capacity.
var ErrQueueFull = errors.New("notify: queue full")

// ErrStopped is returned for messages offered after Stop.
var ErrStopped = errors.New("notify: dispatcher stopped")

const (
	DefaultQueueSize   = 256
	DefaultWorkers     = 2
	DefaultSendTimeout = 10 * time.Second
)

type jobKind int

const (
	jobCode jobKind = iota
	jobWelcome
)

type job struct {
	kind        jobKind
	email       string
	code        string
	displayName string
	purpose     domain.Purpose
}

// DispatcherConfig tunes the queue. Zero values take the defaults.
type DispatcherConfig struct {
	QueueSize   int
	Workers     int
	SendTimeout time.Duration

	// RatePerSecond caps outbound sends across all workers; zero disables it.
	RatePerSecond float64
}

// Dispatcher queues messages for a sender and delivers them from a fixed
// pool of workers. Enqueueing never blocks.
type Dispatcher struct {
	sender  service.Notifier
	logger  *slog.Logger
	cfg     DispatcherConfig
	limiter *rate.Limiter

	queue chan job

	mu      sync.RWMutex
	started bool
	stopped bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

var _ service.Notifier = (*Dispatcher)(nil)

// NewDispatcher wraps sender. Call Start before messages are offered.
func NewDispatcher(sender service.Notifier, logger *slog.Logger, cfg DispatcherConfig) *Dispatcher {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = DefaultQueueSize
	}
	if cfg.Workers <= 0 {
		cfg.Workers = DefaultWorkers
	}
	if cfg.SendTimeout <= 0 {
		cfg.SendTimeout = DefaultSendTimeout
	}

	d := &Dispatcher{
		sender: sender,
		logger: logger.With("component", "notify"),
		cfg:    cfg,
		queue:  make(chan job, cfg.QueueSize),
	}
	if cfg.RatePerSecond > 0 {
		d.limiter = rate.NewLimiter(rate.Limit(cfg.RatePerSecond), 1)
	}
	return d
}

// Start launches the workers. They run until Stop.
func (d *Dispatcher) Start() {
	ctx, cancel := context.WithCancel(context.Background())
	d.mu.Lock()
	d.cancel = cancel
	d.started = true
	d.mu.Unlock()

	for i := range d.cfg.Workers {
		d.wg.Add(1)
		go d.worker(ctx, i)
	}
	d.logger.Info("notification dispatcher started", "workers", d.cfg.Workers, "queue_size", d.cfg.QueueSize)
}

// Running reports whether workers were started and Stop has not been called.
func (d *Dispatcher) Running() bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.started && !d.stopped
}

// Stop refuses new messages, drains what is queued and waits for the
// workers. If ctx ends first the remaining messages are abandoned.
func (d *Dispatcher) Stop(ctx context.Context) error {
	d.mu.Lock()
	if d.stopped {
		d.mu.Unlock()
		return nil
	}
	d.stopped = true
	close(d.queue)
	d.mu.Unlock()

	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		d.logger.Info("notification dispatcher stopped")
		return nil
	case <-ctx.Done():
		if d.cancel != nil {
			d.cancel()
		}
		d.logger.Warn("notification dispatcher stopped before draining", "pending", len(d.queue))
		return ctx.Err()
	}
}

// SendCode queues a verification code.
func (d *Dispatcher) SendCode(_ context.Context, email, code, displayName string, purpose domain.Purpose) error {
	return d.enqueue(job{kind: jobCode, email: email, code: code, displayName: displayName, purpose: purpose})
}

// SendWelcome queues a welcome message.
func (d *Dispatcher) SendWelcome(_ context.Context, email, displayName string) error {
	return d.enqueue(job{kind: jobWelcome, email: email, displayName: displayName})
}

func (d *Dispatcher) enqueue(j job) error {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if d.stopped {
		return ErrStopped
	}
	select {
	case d.queue <- j:
		return nil
	default:
		d.logger.Warn("notification dropped, queue full", "email", j.email)
		return ErrQueueFull
	}
}

func (d *Dispatcher) worker(ctx context.Context, id int) {
	defer d.wg.Done()

	for j := range d.queue {
		if ctx.Err() != nil {
			return
		}
		if d.limiter != nil {
			if err := d.limiter.Wait(ctx); err != nil {
				return
			}
		}
		d.deliver(ctx, id, j)
	}
}

func (d *Dispatcher) deliver(ctx context.Context, worker int, j job) {
	ctx, cancel := context.WithTimeout(ctx, d.cfg.SendTimeout)
	defer cancel()

	var err error
	switch j.kind {
	case jobCode:
		err = d.sender.SendCode(ctx, j.email, j.code, j.displayName, j.purpose)
	case jobWelcome:
		err = d.sender.SendWelcome(ctx, j.email, j.displayName)
	}
	if err != nil {
		d.logger.Error("notification delivery failed", "worker", worker, "email", j.email, "error", err)
	}
}
