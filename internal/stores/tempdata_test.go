package stores

import (
	"context"
	"errors"
	"testing"
	"time"
)

func newTempStore(t *testing.T) (*TempDataStore, func()) {
	t.Helper()
	mr, rdb := newTestRedis(t)
	store := NewTempDataStore(rdb, "slt", 3*time.Second, []string{"setup-totp", "restore-account"})
	return store, mr.Close
}

func TestTempDataPutGetDelete(t *testing.T) {
	store, done := newTempStore(t)
	defer done()

	ctx := context.Background()

	if err := store.Put(ctx, "setup-totp", "0", "u1", []byte("blob"), time.Minute); err != nil {
		t.Fatalf("Put failed: %v", err)
	}

	data, err := store.Get(ctx, "setup-totp", "0", "u1")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if string(data) != "blob" {
		t.Fatalf("unexpected blob %q", data)
	}

	if err := store.Delete(ctx, "setup-totp", "0", "u1"); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if _, err := store.Get(ctx, "setup-totp", "0", "u1"); !errors.Is(err, ErrTempDataNotFound) {
		t.Fatalf("expected ErrTempDataNotFound, got %v", err)
	}

	// Deleting again is a no-op.
	if err := store.Delete(ctx, "setup-totp", "0", "u1"); err != nil {
		t.Fatalf("repeat Delete failed: %v", err)
	}
}

func TestTempDataPutOverwrites(t *testing.T) {
	store, done := newTempStore(t)
	defer done()

	ctx := context.Background()

	if err := store.Put(ctx, "setup-totp", "0", "u1", []byte("old"), time.Minute); err != nil {
		t.Fatalf("first Put failed: %v", err)
	}
	if err := store.Put(ctx, "setup-totp", "0", "u1", []byte("new"), time.Minute); err != nil {
		t.Fatalf("second Put failed: %v", err)
	}

	data, err := store.Get(ctx, "setup-totp", "0", "u1")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if string(data) != "new" {
		t.Fatalf("expected overwrite, got %q", data)
	}
}

func TestTempDataExpiry(t *testing.T) {
	mr, rdb := newTestRedis(t)
	defer mr.Close()

	ctx := context.Background()
	store := NewTempDataStore(rdb, "slt", 3*time.Second, []string{"restore-account"})

	if err := store.Put(ctx, "restore-account", "0", "k1", []byte("map"), time.Minute); err != nil {
		t.Fatalf("Put failed: %v", err)
	}

	mr.FastForward(2 * time.Minute)

	if _, err := store.Get(ctx, "restore-account", "0", "k1"); !errors.Is(err, ErrTempDataNotFound) {
		t.Fatalf("expected expired blob to read as absent, got %v", err)
	}
}

func TestTempDataUnknownNamespace(t *testing.T) {
	store, done := newTempStore(t)
	defer done()

	ctx := context.Background()

	if err := store.Put(ctx, "bogus", "0", "u1", []byte("x"), time.Minute); !errors.Is(err, ErrUnknownNamespace) {
		t.Fatalf("expected ErrUnknownNamespace on Put, got %v", err)
	}
	if _, err := store.Get(ctx, "bogus", "0", "u1"); !errors.Is(err, ErrUnknownNamespace) {
		t.Fatalf("expected ErrUnknownNamespace on Get, got %v", err)
	}
	if err := store.Delete(ctx, "bogus", "0", "u1"); !errors.Is(err, ErrUnknownNamespace) {
		t.Fatalf("expected ErrUnknownNamespace on Delete, got %v", err)
	}
}

func TestTempDataNamespaceAndTenantIsolation(t *testing.T) {
	store, done := newTempStore(t)
	defer done()

	ctx := context.Background()

	if err := store.Put(ctx, "setup-totp", "a", "u1", []byte("one"), time.Minute); err != nil {
		t.Fatalf("Put failed: %v", err)
	}
	if err := store.Put(ctx, "restore-account", "a", "u1", []byte("two"), time.Minute); err != nil {
		t.Fatalf("Put failed: %v", err)
	}

	if _, err := store.Get(ctx, "setup-totp", "b", "u1"); !errors.Is(err, ErrTempDataNotFound) {
		t.Fatalf("expected cross-tenant miss, got %v", err)
	}

	data, err := store.Get(ctx, "setup-totp", "a", "u1")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if string(data) != "one" {
		t.Fatalf("namespace bleed: got %q", data)
	}
}

func TestTempDataEmptyTenantDefaults(t *testing.T) {
	store, done := newTempStore(t)
	defer done()

	ctx := context.Background()

	if err := store.Put(ctx, "setup-totp", "", "u1", []byte("blob"), time.Minute); err != nil {
		t.Fatalf("Put failed: %v", err)
	}
	// "" and "0" address the same slot.
	if _, err := store.Get(ctx, "setup-totp", "0", "u1"); err != nil {
		t.Fatalf("expected default tenant alias, got %v", err)
	}
}
