package shutdown

import "testing"

func TestSignalCounter_Increment(t *testing.T) {
	counter := NewSignalCounter(2, nil)

	if counter.Count() != 0 {
		t.Errorf("new counter should start at 0, got %d", counter.Count())
	}
	if got := counter.Increment(); got != 1 {
		t.Errorf("first Increment = %d, want 1", got)
	}
	if got := counter.Increment(); got != 2 {
		t.Errorf("second Increment = %d, want 2", got)
	}
}

func TestSignalCounter_ForceCallback(t *testing.T) {
	var forced int
	counter := NewSignalCounter(2, func() { forced++ })

	counter.Increment()
	if forced != 0 {
		t.Error("force callback should not fire on the first signal")
	}
	counter.Increment()
	if forced != 1 {
		t.Errorf("force callback should fire on the second signal, fired %d times", forced)
	}
	counter.Increment()
	if forced != 2 {
		t.Errorf("force callback should fire on every signal past the threshold, fired %d times", forced)
	}
}

func TestSignalCounter_Reset(t *testing.T) {
	counter := NewSignalCounter(2, nil)
	counter.Increment()
	counter.Reset()

	if counter.Count() != 0 {
		t.Errorf("count after Reset = %d, want 0", counter.Count())
	}
}

func TestSignalCounter_SetForceCallback(t *testing.T) {
	var replaced bool
	counter := NewSignalCounter(1, func() {
		t.Error("original callback should have been replaced")
	})
	counter.SetForceCallback(func() { replaced = true })

	counter.Increment()
	if !replaced {
		t.Error("replacement callback should fire")
	}
}
