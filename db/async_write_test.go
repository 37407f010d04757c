package db

import (
	"sync"
	"testing"
	"time"
)

func TestAsyncWriterProcessesQueuedWrites(t *testing.T) {
	var mu sync.Mutex
	var got []interface{}

	writer := NewAsyncWriter(func(op WriteOperation) error {
		mu.Lock()
		got = append(got, op.Data)
		mu.Unlock()
		return nil
	})
	writer.Start()

	for i := 0; i < 10; i++ {
		if !writer.Write(i) {
			t.Fatalf("Write(%d) rejected with empty queue", i)
		}
	}
	writer.Stop()

	mu.Lock()
	defer mu.Unlock()
	if len(got) != 10 {
		t.Fatalf("processed = %d, want 10", len(got))
	}
	for i, v := range got {
		if v != i {
			t.Errorf("got[%d] = %v, want %d (queue order)", i, v, i)
		}
	}
}

func TestAsyncWriterFullQueueRejects(t *testing.T) {
	// Processor never started, so the buffer fills.
	writer := NewAsyncWriterWithCapacity(func(op WriteOperation) error { return nil }, 2)

	if !writer.Write("a") || !writer.Write("b") {
		t.Fatal("writes within capacity rejected")
	}
	if writer.Write("c") {
		t.Error("write beyond capacity should be rejected")
	}
	if writer.Pending() != 2 {
		t.Errorf("Pending = %d, want 2", writer.Pending())
	}
}

func TestAsyncWriterStopDrainsPending(t *testing.T) {
	var mu sync.Mutex
	processed := 0

	writer := NewAsyncWriterWithCapacity(func(op WriteOperation) error {
		mu.Lock()
		processed++
		mu.Unlock()
		return nil
	}, 10)

	// Queue before starting so everything is pending at Stop time.
	for i := 0; i < 5; i++ {
		writer.Write(i)
	}
	writer.Start()
	writer.Stop()

	mu.Lock()
	defer mu.Unlock()
	if processed != 5 {
		t.Errorf("processed = %d, want 5 (pending writes drain on Stop)", processed)
	}
}

func TestAsyncWriterStopWithTimeout(t *testing.T) {
	block := make(chan struct{})
	writer := NewAsyncWriter(func(op WriteOperation) error {
		<-block
		return nil
	})
	writer.Start()
	writer.Write("stuck")

	if writer.StopWithTimeout(20 * time.Millisecond) {
		t.Error("StopWithTimeout should time out while the handler is blocked")
	}
	close(block)
}

func TestAsyncWriterStartIsIdempotent(t *testing.T) {
	writer := NewAsyncWriter(func(op WriteOperation) error { return nil })
	writer.Start()
	writer.Start()
	if !writer.IsStarted() {
		t.Error("IsStarted = false after Start")
	}
	writer.Stop()
}
