package db

import (
	"context"
	"sync"
	"time"
)

// DefaultQueueCapacity is the default buffer size for the async write queue.
const DefaultQueueCapacity = 100

// WriteOperation is one queued database write.
type WriteOperation struct {
	// Data holds the write payload
	Data interface{}
	// Timestamp when the operation was queued
	Timestamp time.Time
}

// WriteHandler processes one queued write. Implementations handle their own
// error logging; a failed write is not retried.
type WriteHandler func(op WriteOperation) error

// AsyncWriter provides non-blocking database writes through a buffered
// channel and a background goroutine. The render loop appends its records
// through this so a slow disk never stalls rendering; Stop drains anything
// still queued before returning.
type AsyncWriter struct {
	writeChan chan WriteOperation
	handler   WriteHandler
	wg        sync.WaitGroup
	ctx       context.Context
	cancel    context.CancelFunc
	started   bool
	mu        sync.Mutex
}

// NewAsyncWriter creates an async writer with the default queue capacity.
func NewAsyncWriter(handler WriteHandler) *AsyncWriter {
	return NewAsyncWriterWithCapacity(handler, DefaultQueueCapacity)
}

// NewAsyncWriterWithCapacity creates an async writer with a custom queue
// capacity.
func NewAsyncWriterWithCapacity(handler WriteHandler, capacity int) *AsyncWriter {
	ctx, cancel := context.WithCancel(context.Background())
	return &AsyncWriter{
		writeChan: make(chan WriteOperation, capacity),
		handler:   handler,
		ctx:       ctx,
		cancel:    cancel,
	}
}

// Start launches the background processor. Must be called before queued
// writes are processed. Calling Start twice is a no-op.
func (w *AsyncWriter) Start() {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.started {
		return
	}
	w.started = true
	w.wg.Add(1)
	go w.processWrites()
}

func (w *AsyncWriter) processWrites() {
	defer w.wg.Done()

	for {
		select {
		case <-w.ctx.Done():
			w.drain()
			return
		case op, ok := <-w.writeChan:
			if !ok {
				return
			}
			_ = w.handler(op)
		}
	}
}

// drain processes whatever is still buffered at shutdown.
func (w *AsyncWriter) drain() {
	for {
		select {
		case op, ok := <-w.writeChan:
			if !ok {
				return
			}
			_ = w.handler(op)
		default:
			return
		}
	}
}

// Write queues a write without blocking. Returns false when the queue is
// full; callers decide whether to drop or fall back to a sync write.
func (w *AsyncWriter) Write(data interface{}) bool {
	op := WriteOperation{Data: data, Timestamp: time.Now()}
	select {
	case w.writeChan <- op:
		return true
	default:
		return false
	}
}

// Pending returns the number of operations waiting in the queue.
func (w *AsyncWriter) Pending() int {
	return len(w.writeChan)
}

// Stop signals the processor to stop and waits for the queue to drain.
func (w *AsyncWriter) Stop() {
	w.cancel()
	w.wg.Wait()
}

// StopWithTimeout stops the writer, waiting at most timeout for the drain.
// Returns false on timeout.
func (w *AsyncWriter) StopWithTimeout(timeout time.Duration) bool {
	w.cancel()

	done := make(chan struct{})
	go func() {
		w.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return true
	case <-time.After(timeout):
		return false
	}
}

// IsStarted reports whether the background processor is running.
func (w *AsyncWriter) IsStarted() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.started
}
