package linking

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestRestoreFlow(t *testing.T) {
	mr, rdb := newTestRedis(t)
	defer mr.Close()

	ctx := context.Background()
	deleted := &Account{ID: "u1", Email: "u1@example.com", Deleted: true}
	ids := newMockIdentityStore(deleted)
	deliverer := &mockDeliverer{}
	engine := newTestEngine(t, rdb, ids, deliverer)

	restoreKey, err := engine.StageRestore(ctx, "u1")
	if err != nil {
		t.Fatalf("StageRestore failed: %v", err)
	}
	if restoreKey == "" || restoreKey == "u1" {
		t.Fatalf("restore key must be opaque, got %q", restoreKey)
	}

	pending, err := engine.BeginRestore(ctx, restoreKey)
	if err != nil {
		t.Fatalf("BeginRestore failed: %v", err)
	}
	if pending.Destination != "u1@example.com" {
		t.Fatalf("unexpected destination %q", pending.Destination)
	}

	code := deliverer.last(t).code
	if err := engine.ConfirmRestore(ctx, restoreKey, code); err != nil {
		t.Fatalf("ConfirmRestore failed: %v", err)
	}

	if !ids.restored["u1"] {
		t.Fatal("expected account restored")
	}
	account, err := ids.FindAccount(ctx, "u1")
	if err != nil {
		t.Fatalf("FindAccount failed: %v", err)
	}
	if account.Deleted {
		t.Fatal("expected deleted flag cleared")
	}

	// The restore key is single-use end to end.
	err = engine.ConfirmRestore(ctx, restoreKey, code)
	if !errors.Is(err, ErrRecordNotFound) {
		t.Fatalf("expected ErrRecordNotFound on replay, got %v", err)
	}
}

func TestStageRestoreRequiresDeletedAccount(t *testing.T) {
	mr, rdb := newTestRedis(t)
	defer mr.Close()

	ctx := context.Background()
	ids := newMockIdentityStore(liveAccount("u1"))
	engine := newTestEngine(t, rdb, ids, &mockDeliverer{})

	if _, err := engine.StageRestore(ctx, "u1"); !errors.Is(err, ErrAccountNotDeleted) {
		t.Fatalf("expected ErrAccountNotDeleted, got %v", err)
	}
	if _, err := engine.StageRestore(ctx, "nobody"); !errors.Is(err, ErrAccountNotFound) {
		t.Fatalf("expected ErrAccountNotFound, got %v", err)
	}
	if _, err := engine.StageRestore(ctx, ""); !errors.Is(err, ErrInvalidSubject) {
		t.Fatalf("expected ErrInvalidSubject, got %v", err)
	}
}

func TestBeginRestoreUnknownKey(t *testing.T) {
	mr, rdb := newTestRedis(t)
	defer mr.Close()

	ctx := context.Background()
	engine := newTestEngine(t, rdb, newMockIdentityStore(), &mockDeliverer{})

	if _, err := engine.BeginRestore(ctx, "not-a-staged-key"); !errors.Is(err, ErrRecordNotFound) {
		t.Fatalf("expected ErrRecordNotFound, got %v", err)
	}
}

func TestRestoreKeyExpires(t *testing.T) {
	mr, rdb := newTestRedis(t)
	defer mr.Close()

	ctx := context.Background()
	deleted := &Account{ID: "u1", Email: "u1@example.com", Deleted: true}
	engine := newTestEngine(t, rdb, newMockIdentityStore(deleted), &mockDeliverer{})

	restoreKey, err := engine.StageRestore(ctx, "u1")
	if err != nil {
		t.Fatalf("StageRestore failed: %v", err)
	}

	mr.FastForward(16 * time.Minute)

	if _, err := engine.BeginRestore(ctx, restoreKey); !errors.Is(err, ErrRecordNotFound) {
		t.Fatalf("expected expired key to miss, got %v", err)
	}
}
