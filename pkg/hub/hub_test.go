package hub

import (
	"sync"
	"testing"
	"time"
)

func TestHub_RunAndStop(t *testing.T) {
	h := New("test", nil)
	done := make(chan struct{})
	go func() {
		h.Run()
		close(done)
	}()

	deadline := time.Now().Add(time.Second)
	for !h.IsRunning() {
		if time.Now().After(deadline) {
			t.Fatal("Hub never started")
		}
		time.Sleep(time.Millisecond)
	}

	h.Stop()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run did not return after Stop")
	}
	if h.IsRunning() {
		t.Error("Expected not running after Stop")
	}

	// Second Stop is a no-op.
	h.Stop()
}

func TestHub_ConcurrentStops(t *testing.T) {
	// Overlapping Stops racing the Run loop's shutdown must not close
	// the quit channel twice.
	for i := 0; i < 500; i++ {
		h := New("test", nil)
		done := make(chan struct{})
		go func() {
			h.Run()
			close(done)
		}()

		deadline := time.Now().Add(time.Second)
		for !h.IsRunning() {
			if time.Now().After(deadline) {
				t.Fatal("Hub never started")
			}
		}

		var wg sync.WaitGroup
		for j := 0; j < 4; j++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				h.Stop()
			}()
		}
		wg.Wait()

		select {
		case <-done:
		case <-time.After(time.Second):
			t.Fatal("Run did not return after Stop")
		}
	}
}

func TestHub_BroadcastWithoutClients(t *testing.T) {
	h := New("test", nil)
	go h.Run()
	defer h.Stop()

	if err := h.BroadcastJSON(map[string]int{"x": 1}); err != nil {
		t.Errorf("BroadcastJSON failed: %v", err)
	}
	if h.ClientCount() != 0 {
		t.Errorf("Expected 0 clients, got %d", h.ClientCount())
	}
}

func TestHub_BroadcastJSONRejectsUnencodable(t *testing.T) {
	h := New("test", nil)
	if err := h.BroadcastJSON(make(chan int)); err == nil {
		t.Error("Expected marshal error for a channel value")
	}
}

func TestHub_QueueOverflowCounted(t *testing.T) {
	h := New("test", nil) // not running: nothing drains the queue
	for i := 0; i < 300; i++ {
		h.Broadcast(NewJSONMessage([]byte("{}")))
	}
	if h.Dropped() == 0 {
		t.Error("Expected overflow broadcasts counted as dropped")
	}
}
