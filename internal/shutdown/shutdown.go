// Package shutdown stops the watch loop and its servers in order when the
// process receives SIGINT or SIGTERM.
package shutdown

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"sync"
	"sync/atomic"
	"syscall"
	"time"
)

// Callback is a function called during shutdown.
type Callback func(ctx context.Context) error

// Handler runs registered callbacks in reverse order once shutdown begins.
type Handler struct {
	mu        sync.Mutex
	callbacks []Callback
	names     []string

	shuttingDown atomic.Bool
	done         chan struct{}
	timeout      time.Duration
	err          error

	ctx    context.Context
	cancel context.CancelFunc

	sigChan chan os.Signal
	onDone  func(elapsed time.Duration, err error)
}

// Config holds shutdown configuration.
type Config struct {
	Timeout time.Duration
	Signals []os.Signal
	OnDone  func(elapsed time.Duration, err error)
}

// DefaultConfig returns default configuration.
func DefaultConfig() Config {
	return Config{
		Timeout: 15 * time.Second,
		Signals: []os.Signal{syscall.SIGINT, syscall.SIGTERM},
	}
}

// New creates a handler listening for the configured signals.
func New(cfg Config) *Handler {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}
	if len(cfg.Signals) == 0 {
		cfg.Signals = []os.Signal{syscall.SIGINT, syscall.SIGTERM}
	}

	ctx, cancel := context.WithCancel(context.Background())

	h := &Handler{
		done:    make(chan struct{}),
		timeout: cfg.Timeout,
		ctx:     ctx,
		cancel:  cancel,
		sigChan: make(chan os.Signal, 1),
		onDone:  cfg.OnDone,
	}

	signal.Notify(h.sigChan, cfg.Signals...)
	return h
}

// Register adds a named callback. Callbacks run last-registered first.
func (h *Handler) Register(name string, callback Callback) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.callbacks = append(h.callbacks, callback)
	h.names = append(h.names, name)
}

// RegisterFunc registers a cleanup function that cannot fail.
func (h *Handler) RegisterFunc(name string, fn func()) {
	h.Register(name, func(context.Context) error {
		fn()
		return nil
	})
}

// Context is cancelled when shutdown begins.
func (h *Handler) Context() context.Context {
	return h.ctx
}

// Done is closed when every callback has finished.
func (h *Handler) Done() <-chan struct{} {
	return h.done
}

// Err returns the joined callback errors once Done is closed.
func (h *Handler) Err() error {
	<-h.done
	return h.err
}

// Listen starts a goroutine that shuts down on the first signal or when
// parent ends.
func (h *Handler) Listen(parent context.Context) {
	go func() {
		select {
		case <-h.sigChan:
		case <-parent.Done():
		case <-h.ctx.Done():
			return
		}
		h.Shutdown()
	}()
}

// Shutdown cancels the context and runs the callbacks. Only the first call
// has an effect.
func (h *Handler) Shutdown() {
	if !h.shuttingDown.CompareAndSwap(false, true) {
		return
	}
	signal.Stop(h.sigChan)

	start := time.Now()
	h.cancel()

	ctx, cancel := context.WithTimeout(context.Background(), h.timeout)
	defer cancel()

	h.mu.Lock()
	callbacks := append([]Callback(nil), h.callbacks...)
	names := append([]string(nil), h.names...)
	h.mu.Unlock()

	var errs []error
	for i := len(callbacks) - 1; i >= 0; i-- {
		if err := run(ctx, names[i], callbacks[i]); err != nil {
			errs = append(errs, err)
		}
	}
	h.err = errors.Join(errs...)

	if h.onDone != nil {
		h.onDone(time.Since(start), h.err)
	}
	close(h.done)
}

func run(ctx context.Context, name string, callback Callback) error {
	done := make(chan error, 1)
	go func() {
		done <- callback(ctx)
	}()

	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return &TimeoutError{CallbackName: name}
	}
}

// Trigger starts shutdown as if SIGTERM had arrived.
func (h *Handler) Trigger() {
	select {
	case h.sigChan <- syscall.SIGTERM:
	default:
	}
}

// TimeoutError is returned when a callback outlives the shutdown timeout.
type TimeoutError struct {
	CallbackName string
}

func (e *TimeoutError) Error() string {
	return "shutdown callback timed out: " + e.CallbackName
}

// GracefulServer is anything with an http.Server style Shutdown.
type GracefulServer interface {
	Shutdown(ctx context.Context) error
}

// RegisterServer registers a server's Shutdown as a callback.
func (h *Handler) RegisterServer(name string, server GracefulServer) {
	h.Register(name, server.Shutdown)
}
