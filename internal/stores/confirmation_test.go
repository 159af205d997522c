package stores

import (
	"context"
	"crypto/sha256"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newTestRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis.Run failed: %v", err)
	}

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	return mr, client
}

func hashOf(code string) [32]byte {
	return sha256.Sum256([]byte(code))
}

func recordFor(code string, now time.Time, ttl time.Duration) *ConfirmationRecord {
	return &ConfirmationRecord{
		CodeHash:  hashOf(code),
		IssuedAt:  now.Unix(),
		ExpiresAt: now.Add(ttl).Unix(),
	}
}

func TestConfirmationSaveAndConsume(t *testing.T) {
	mr, rdb := newTestRedis(t)
	defer mr.Close()

	ctx := context.Background()
	store := NewConfirmationStore(rdb, "slc", 3*time.Second)
	now := time.Unix(1_700_000_000, 0)

	if err := store.Save(ctx, "setup-totp", "0", "u1", recordFor("123456", now, 15*time.Minute), 15*time.Minute); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	record, err := store.Consume(ctx, "setup-totp", "0", "u1", hashOf("123456"), now)
	if err != nil {
		t.Fatalf("Consume failed: %v", err)
	}
	if record.IssuedAt != now.Unix() {
		t.Fatalf("unexpected IssuedAt %d", record.IssuedAt)
	}

	_, err = store.Consume(ctx, "setup-totp", "0", "u1", hashOf("123456"), now)
	if !errors.Is(err, ErrConfirmationNotFound) {
		t.Fatalf("expected ErrConfirmationNotFound on replay, got %v", err)
	}
}

func TestConfirmationMismatchKeepsRecord(t *testing.T) {
	mr, rdb := newTestRedis(t)
	defer mr.Close()

	ctx := context.Background()
	store := NewConfirmationStore(rdb, "slc", 3*time.Second)
	now := time.Unix(1_700_000_000, 0)

	if err := store.Save(ctx, "disable-totp", "0", "u1", recordFor("654321", now, 15*time.Minute), 15*time.Minute); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	_, err := store.Consume(ctx, "disable-totp", "0", "u1", hashOf("000000"), now)
	if !errors.Is(err, ErrConfirmationCodeMismatch) {
		t.Fatalf("expected ErrConfirmationCodeMismatch, got %v", err)
	}

	if _, err := store.Consume(ctx, "disable-totp", "0", "u1", hashOf("654321"), now); err != nil {
		t.Fatalf("expected record intact after mismatch, got %v", err)
	}
}

func TestConfirmationEmbeddedExpiry(t *testing.T) {
	mr, rdb := newTestRedis(t)
	defer mr.Close()

	ctx := context.Background()
	store := NewConfirmationStore(rdb, "slc", 3*time.Second)
	now := time.Unix(1_700_000_000, 0)

	if err := store.Save(ctx, "restore-account", "0", "k1", recordFor("111111", now, 15*time.Minute), 15*time.Minute); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	// Past the embedded expiry the record reads as absent and is reaped,
	// even if the Redis TTL has not fired yet.
	late := now.Add(16 * time.Minute)
	_, err := store.Consume(ctx, "restore-account", "0", "k1", hashOf("111111"), late)
	if !errors.Is(err, ErrConfirmationNotFound) {
		t.Fatalf("expected ErrConfirmationNotFound past expiry, got %v", err)
	}
	if mr.Exists("slc:restore-account:0:k1") {
		t.Fatal("expected expired record deleted")
	}
}

func TestConfirmationSupersede(t *testing.T) {
	mr, rdb := newTestRedis(t)
	defer mr.Close()

	ctx := context.Background()
	store := NewConfirmationStore(rdb, "slc", 3*time.Second)
	now := time.Unix(1_700_000_000, 0)

	if err := store.Save(ctx, "connect-google", "0", "u1", recordFor("111111", now, 15*time.Minute), 15*time.Minute); err != nil {
		t.Fatalf("first Save failed: %v", err)
	}
	if err := store.Save(ctx, "connect-google", "0", "u1", recordFor("222222", now, 15*time.Minute), 15*time.Minute); err != nil {
		t.Fatalf("second Save failed: %v", err)
	}

	if _, err := store.Consume(ctx, "connect-google", "0", "u1", hashOf("111111"), now); err == nil {
		t.Fatal("expected superseded code to be rejected")
	}
	if _, err := store.Consume(ctx, "connect-google", "0", "u1", hashOf("222222"), now); err != nil {
		t.Fatalf("expected superseding code to win, got %v", err)
	}
}

func TestConfirmationDeleteIdempotent(t *testing.T) {
	mr, rdb := newTestRedis(t)
	defer mr.Close()

	ctx := context.Background()
	store := NewConfirmationStore(rdb, "slc", 3*time.Second)

	if err := store.Delete(ctx, "setup-totp", "0", "absent"); err != nil {
		t.Fatalf("Delete of absent key failed: %v", err)
	}
}

func TestConfirmationRecordCodec(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	original := recordFor("987654", now, 15*time.Minute)

	encoded, err := encodeConfirmationRecord(original)
	if err != nil {
		t.Fatalf("encode failed: %v", err)
	}
	if len(encoded) != 49 {
		t.Fatalf("unexpected encoded length %d", len(encoded))
	}
	if encoded[0] != confirmationRecordVersionV1 {
		t.Fatalf("unexpected version byte %d", encoded[0])
	}

	decoded, err := decodeConfirmationRecord(encoded)
	if err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if *decoded != *original {
		t.Fatalf("round trip mismatch: %+v vs %+v", decoded, original)
	}

	if _, err := decodeConfirmationRecord(encoded[:10]); err == nil {
		t.Fatal("expected error on truncated record")
	}

	encoded[0] = 99
	if _, err := decodeConfirmationRecord(encoded); err == nil {
		t.Fatal("expected error on unknown version")
	}
}

func TestConfirmationUnknownVersionReaped(t *testing.T) {
	mr, rdb := newTestRedis(t)
	defer mr.Close()

	ctx := context.Background()
	store := NewConfirmationStore(rdb, "slc", 3*time.Second)
	now := time.Unix(1_700_000_000, 0)

	// A record written by a future version is treated as absent and removed.
	garbage := append([]byte{99}, make([]byte, 48)...)
	mr.Set("slc:setup-totp:0:u1", string(garbage))

	_, err := store.Consume(ctx, "setup-totp", "0", "u1", hashOf("123456"), now)
	if !errors.Is(err, ErrConfirmationNotFound) {
		t.Fatalf("expected ErrConfirmationNotFound, got %v", err)
	}
	if mr.Exists("slc:setup-totp:0:u1") {
		t.Fatal("expected unreadable record deleted")
	}
}
