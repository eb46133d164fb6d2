package ws

import (
	"net"
	"sync"
	"testing"
	"time"
)

func newTestConnection(id string, fd int) (*Connection, net.Conn) {
	server, client := net.Pipe()
	c := &Connection{
		ID:        id,
		Conn:      server,
		Fd:        fd,
		CreatedAt: time.Now(),
	}
	c.TouchPing()
	return c, client
}

// Worker goroutines touch the liveness timestamp on every frame while the
// heartbeat goroutine reads it; both directions must be safe concurrently.
func TestConnection_ConcurrentPingAccess(t *testing.T) {
	c, client := newTestConnection("session-1", 1)
	defer c.Close()
	defer client.Close()

	before := time.Now()
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 200; j++ {
				c.TouchPing()
			}
		}()
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 200; j++ {
				if got := c.LastPing(); got.Before(before) {
					t.Errorf("LastPing() = %v, before test start %v", got, before)
					return
				}
			}
		}()
	}
	wg.Wait()
}

func TestConnection_TouchPingAdvances(t *testing.T) {
	c, client := newTestConnection("session-1", 1)
	defer c.Close()
	defer client.Close()

	first := c.LastPing()
	time.Sleep(10 * time.Millisecond)
	c.TouchPing()
	if got := c.LastPing(); !got.After(first) {
		t.Errorf("LastPing() = %v, want after %v", got, first)
	}
}

func TestConnectionManager_AddRemove(t *testing.T) {
	cm := NewConnectionManager()
	c, client := newTestConnection("session-1", 7)
	defer client.Close()

	cm.Add(c)
	if cm.Count() != 1 {
		t.Fatalf("Count() = %d, want 1", cm.Count())
	}
	if got := cm.Get("session-1"); got != c {
		t.Errorf("Get() = %v, want the added connection", got)
	}

	// Racing cleanup paths must agree on a single winner.
	if !cm.Remove("session-1") {
		t.Error("first Remove() = false, want true")
	}
	if cm.Remove("session-1") {
		t.Error("second Remove() = true, want false")
	}
	if cm.Count() != 0 {
		t.Errorf("Count() after remove = %d, want 0", cm.Count())
	}
}
