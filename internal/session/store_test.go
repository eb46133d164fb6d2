package session

import (
	"context"
	"testing"

	"github.com/redis/go-redis/v9"

	"github.com/helpdesk/support-chat/internal/gate"
)

// newTestStore creates a Store connected to a local Redis instance. Tests
// that call this helper require a running Redis on localhost:6379 and are
// skipped otherwise.
func newTestStore(t *testing.T) *Store {
	t.Helper()
	probe := redis.NewClient(&redis.Options{Addr: "localhost:6379"})
	ctx := context.Background()
	if err := probe.Ping(ctx).Err(); err != nil {
		t.Skipf("redis not available: %v", err)
	}
	probe.Close()

	store, err := NewStore("localhost:6379", "test-server")
	if err != nil {
		t.Fatalf("NewStore() error: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func TestBindAndGet(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	sid := "test_bind_sid"
	t.Cleanup(func() { store.Delete(ctx, sid) })

	if err := store.Create(ctx, sid); err != nil {
		t.Fatalf("Create() error: %v", err)
	}

	sess, err := store.Get(ctx, sid)
	if err != nil {
		t.Fatalf("Get() error: %v", err)
	}
	if sess.Authed() {
		t.Error("expected fresh session to be unauthenticated")
	}

	if err := store.Bind(ctx, sid, "acct-1", gate.RoleStandard); err != nil {
		t.Fatalf("Bind() error: %v", err)
	}

	sess, err = store.Get(ctx, sid)
	if err != nil {
		t.Fatalf("Get() after bind error: %v", err)
	}
	if !sess.Authed() || sess.AccountID != "acct-1" || sess.Role != string(gate.RoleStandard) {
		t.Errorf("unexpected session after bind: %+v", sess)
	}

	ids, err := store.SessionsForAccount(ctx, "acct-1")
	if err != nil {
		t.Fatalf("SessionsForAccount() error: %v", err)
	}
	if len(ids) != 1 || ids[0] != sid {
		t.Errorf("SessionsForAccount() = %v", ids)
	}
}

func TestDeleteForAccount(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	for _, sid := range []string{"test_sweep_a", "test_sweep_b"} {
		if err := store.Create(ctx, sid); err != nil {
			t.Fatalf("Create(%s) error: %v", sid, err)
		}
		if err := store.Bind(ctx, sid, "acct-sweep", gate.RoleStandard); err != nil {
			t.Fatalf("Bind(%s) error: %v", sid, err)
		}
	}

	if err := store.DeleteForAccount(ctx, "acct-sweep"); err != nil {
		t.Fatalf("DeleteForAccount() error: %v", err)
	}

	for _, sid := range []string{"test_sweep_a", "test_sweep_b"} {
		sess, err := store.Get(ctx, sid)
		if err != nil {
			t.Fatalf("Get(%s) error: %v", sid, err)
		}
		if sess != nil {
			t.Errorf("expected session %s gone, got %+v", sid, sess)
		}
	}

	ids, err := store.SessionsForAccount(ctx, "acct-sweep")
	if err != nil {
		t.Fatalf("SessionsForAccount() error: %v", err)
	}
	if len(ids) != 0 {
		t.Errorf("expected empty index, got %v", ids)
	}

	// Sweeping again is a no-op.
	if err := store.DeleteForAccount(ctx, "acct-sweep"); err != nil {
		t.Errorf("DeleteForAccount() rerun error: %v", err)
	}
}

func TestDelete_RemovesIndexEntry(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	sid := "test_del_sid"

	if err := store.Create(ctx, sid); err != nil {
		t.Fatalf("Create() error: %v", err)
	}
	if err := store.Bind(ctx, sid, "acct-del", gate.RoleStaff); err != nil {
		t.Fatalf("Bind() error: %v", err)
	}
	if err := store.Delete(ctx, sid); err != nil {
		t.Fatalf("Delete() error: %v", err)
	}

	ids, err := store.SessionsForAccount(ctx, "acct-del")
	if err != nil {
		t.Fatalf("SessionsForAccount() error: %v", err)
	}
	if len(ids) != 0 {
		t.Errorf("expected index cleared, got %v", ids)
	}
}
