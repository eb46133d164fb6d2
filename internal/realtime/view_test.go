package realtime

import (
	"fmt"
	"sync"
	"testing"
)

func TestView_SnapshotDedup(t *testing.T) {
	// History snapshot loaded before subscribing.
	view := NewView([]string{"m1", "m2", "m3"})

	// An in-flight insert event for a snapshot message arrives right after
	// subscribing: it must not be shown again.
	if view.Observe("m3") {
		t.Error("Observe(snapshot id) = true, want false")
	}

	// A genuinely new message is shown once.
	if !view.Observe("m4") {
		t.Error("Observe(new id) = false, want true")
	}

	// At-least-once transport may redeliver it.
	if view.Observe("m4") {
		t.Error("Observe(redelivered id) = true, want false")
	}
}

func TestView_EmptySnapshot(t *testing.T) {
	view := NewView(nil)
	if !view.Observe("m1") {
		t.Error("Observe() on empty view = false, want true")
	}
	if view.Size() != 1 {
		t.Errorf("Size() = %d, want 1", view.Size())
	}
}

func TestView_ConcurrentObserve(t *testing.T) {
	view := NewView(nil)

	// Each id is delivered by several goroutines at once; exactly one
	// Observe per id may win.
	const ids, deliveries = 50, 4
	wins := make(chan string, ids*deliveries)
	var wg sync.WaitGroup
	for i := 0; i < ids; i++ {
		id := fmt.Sprintf("m%d", i)
		for j := 0; j < deliveries; j++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				if view.Observe(id) {
					wins <- id
				}
			}()
		}
	}
	wg.Wait()
	close(wins)

	won := make(map[string]int)
	for id := range wins {
		won[id]++
	}
	if len(won) != ids {
		t.Errorf("expected %d distinct winners, got %d", ids, len(won))
	}
	for id, n := range won {
		if n != 1 {
			t.Errorf("id %s observed as new %d times", id, n)
		}
	}
}
