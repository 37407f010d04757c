package shutdown

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"go.uber.org/zap"

	"planforge/core"
	"planforge/logging"
)

// Manager coordinates graceful shutdown of the pipeline service. It
// composes the OperationTracker, the cleanup Registry, and the
// SignalCounter behind one interface.
//
// Usage:
//
//	manager := NewManager(logger)
//	manager.Register("database", 30, func(ctx context.Context) error {
//	    return database.Close()
//	})
//	manager.Start()
//
//	// In request paths:
//	err := manager.WrapOperation(ctx, "render-batch", func(ctx context.Context) error {
//	    return runBatch(ctx)
//	})
//
//	manager.Wait()
//	manager.Shutdown()
type Manager struct {
	logger   *logging.Logger
	timeout  time.Duration
	mu       sync.Mutex
	started  bool
	shutdown bool

	ctx    context.Context
	cancel context.CancelFunc

	tracker  *OperationTracker
	registry *Registry
	signals  *SignalCounter

	sigChan chan os.Signal
	lastSig os.Signal
}

// ManagerOption configures a Manager.
type ManagerOption func(*Manager)

// WithTimeout sets the shutdown timeout. Default is 60 seconds.
func WithTimeout(timeout time.Duration) ManagerOption {
	return func(m *Manager) {
		m.timeout = timeout
	}
}

// NewManager creates a Manager. logger may be nil. The second OS signal
// forces an immediate exit.
func NewManager(logger *logging.Logger, opts ...ManagerOption) *Manager {
	ctx, cancel := context.WithCancel(context.Background())

	if logger != nil {
		logger = logger.Named("shutdown")
	}
	m := &Manager{
		logger:   logger,
		timeout:  60 * time.Second,
		ctx:      ctx,
		cancel:   cancel,
		tracker:  NewOperationTracker(),
		registry: NewRegistry(),
		sigChan:  make(chan os.Signal, 1),
	}
	for _, opt := range opts {
		opt(m)
	}

	m.signals = NewSignalCounter(2, func() {
		code := m.exitCode()
		m.logWarn("received second signal, forcing immediate shutdown",
			zap.String("exit", core.ExitCodeName(code)))
		os.Exit(code)
	})
	return m
}

// exitCode maps the last received signal to its Unix exit code.
func (m *Manager) exitCode() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.lastSig == syscall.SIGTERM {
		return core.ExitCodeSIGTERM
	}
	return core.ExitCodeSIGINT
}

// Context returns the managed context, cancelled when shutdown begins.
func (m *Manager) Context() context.Context {
	return m.ctx
}

// Register adds a cleanup function. Lower priority values run first; see
// Registry.Register for the priority convention.
func (m *Manager) Register(name string, priority int, fn core.ShutdownFunc) {
	m.registry.Register(name, priority, fn)
	if m.logger != nil {
		m.logger.Debug("registered shutdown handler",
			zap.String("name", name),
			zap.Int("priority", priority))
	}
}

// Start begins listening for SIGINT and SIGTERM. The first signal cancels
// the managed context; the second forces an exit. Safe to call repeatedly.
func (m *Manager) Start() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.started {
		return
	}
	m.started = true

	signal.Notify(m.sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		for sig := range m.sigChan {
			m.mu.Lock()
			m.lastSig = sig
			m.mu.Unlock()

			count := m.signals.Increment()
			if count == 1 {
				m.logInfo("received shutdown signal, initiating graceful shutdown",
					zap.String("signal", sig.String()))
				m.cancel()
			}
		}
	}()

	m.logInfo("shutdown manager started, listening for signals")
}

// Shutdown runs the graceful shutdown sequence: reject new operations,
// wait for in-flight ones (bounded by the timeout), then run the cleanup
// functions in priority order. Idempotent; later calls return nil.
func (m *Manager) Shutdown() error {
	m.mu.Lock()
	if m.shutdown {
		m.mu.Unlock()
		return nil
	}
	m.shutdown = true
	m.mu.Unlock()

	startTime := time.Now()
	m.logInfo("initiating graceful shutdown",
		zap.Duration("timeout", m.timeout),
		zap.Int("registered_handlers", m.registry.Count()))

	m.tracker.Close()

	if active := m.tracker.ActiveCount(); active > 0 {
		m.logInfo("waiting for in-flight operations", zap.Int64("active_count", active))
	}
	if err := m.tracker.Wait(m.timeout); err != nil {
		m.logWarn("timeout waiting for in-flight operations",
			zap.Duration("waited", time.Since(startTime)),
			zap.Int64("remaining_ops", m.tracker.ActiveCount()))
	}

	// Cleanup gets whatever time remains, with a one second floor.
	remaining := m.timeout - time.Since(startTime)
	if remaining < time.Second {
		remaining = time.Second
	}
	ctx, cancel := context.WithTimeout(context.Background(), remaining)
	defer cancel()

	errs := m.registry.Shutdown(ctx)
	for _, err := range errs {
		m.logError("cleanup function failed", zap.Error(err))
	}

	duration := time.Since(startTime)
	if len(errs) > 0 {
		m.logError("shutdown completed with errors",
			zap.Duration("duration", duration),
			zap.Int("error_count", len(errs)))
		return fmt.Errorf("shutdown had %d errors", len(errs))
	}

	m.logInfo("graceful shutdown completed", zap.Duration("duration", duration))

	signal.Stop(m.sigChan)
	close(m.sigChan)
	return nil
}

// Wait blocks until the managed context is cancelled.
func (m *Manager) Wait() {
	<-m.ctx.Done()
}

// WrapOperation runs fn while tracking it as an in-flight operation.
// Returns ErrTrackerClosed without running fn when shutdown has begun.
func (m *Manager) WrapOperation(ctx context.Context, name string, fn func(context.Context) error) error {
	if !m.tracker.Start() {
		if m.logger != nil {
			m.logger.Debug("operation rejected, system shutting down",
				zap.String("operation", name))
		}
		return ErrTrackerClosed
	}
	defer m.tracker.Done()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-m.ctx.Done():
		return context.Canceled
	default:
	}
	return fn(ctx)
}

// ActiveOperations returns the count of in-flight operations.
func (m *Manager) ActiveOperations() int64 {
	return m.tracker.ActiveCount()
}

// IsShuttingDown reports whether shutdown has been initiated.
func (m *Manager) IsShuttingDown() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.shutdown || m.tracker.IsClosed()
}

// RegisteredHandlers returns the cleanup handler names in execution order.
func (m *Manager) RegisteredHandlers() []string {
	return m.registry.Names()
}

func (m *Manager) logInfo(msg string, fields ...zap.Field) {
	if m.logger != nil {
		m.logger.Info(msg, fields...)
	}
}

func (m *Manager) logWarn(msg string, fields ...zap.Field) {
	if m.logger != nil {
		m.logger.Warn(msg, fields...)
	}
}

func (m *Manager) logError(msg string, fields ...zap.Field) {
	if m.logger != nil {
		m.logger.Error(msg, fields...)
	}
}
