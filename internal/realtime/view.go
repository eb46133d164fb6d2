package realtime

import "sync"

// View tracks which message ids one open conversation view has already
// shown. A late joiner loads history once via the store and then subscribes;
// an insert event that was already in the snapshot (or that the transport
// redelivers) must not be shown twice. The transport is at-least-once, so
// this dedup is the only duplicate protection.
type View struct {
	mu   sync.Mutex
	seen map[string]struct{}
}

// NewView creates the dedup state for a conversation view, seeded with the
// ids of the messages in the initial history snapshot.
func NewView(snapshotIDs []string) *View {
	seen := make(map[string]struct{}, len(snapshotIDs))
	for _, id := range snapshotIDs {
		seen[id] = struct{}{}
	}
	return &View{seen: seen}
}

// Observe records a delivered message id and reports whether it is new to
// this view. Returns false for snapshot messages and redelivered events.
func (v *View) Observe(messageID string) bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	if _, dup := v.seen[messageID]; dup {
		return false
	}
	v.seen[messageID] = struct{}{}
	return true
}

// Size returns the number of distinct message ids this view has seen.
func (v *View) Size() int {
	v.mu.Lock()
	defer v.mu.Unlock()
	return len(v.seen)
}
