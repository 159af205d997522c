package linking

import (
	"bytes"
	"context"
	"errors"
	"net/url"
	"strings"
	"testing"
)

func testTOTPKey() []byte {
	return bytes.Repeat([]byte{0x42}, 32)
}

func secretFromProvisioningURL(t *testing.T, raw string) string {
	t.Helper()
	u, err := url.Parse(raw)
	if err != nil {
		t.Fatalf("parsing provisioning URL failed: %v", err)
	}
	secret := u.Query().Get("secret")
	if secret == "" {
		t.Fatalf("provisioning URL carries no secret: %q", raw)
	}
	return secret
}

func TestTOTPSetupRoundTrip(t *testing.T) {
	mr, rdb := newTestRedis(t)
	defer mr.Close()

	ctx := context.Background()
	ids := newMockIdentityStore(liveAccount("u1"))
	deliverer := &mockDeliverer{}
	engine := newTestEngine(t, rdb, ids, deliverer)
	engine.config.TOTP.SecretKey = testTOTPKey()

	provisioning, err := engine.BeginTOTPSetup(ctx, "u1")
	if err != nil {
		t.Fatalf("BeginTOTPSetup failed: %v", err)
	}
	if !strings.HasPrefix(provisioning.URL, "otpauth://totp/") {
		t.Fatalf("unexpected provisioning URL %q", provisioning.URL)
	}
	if !strings.Contains(provisioning.URL, "u1@example.com") {
		t.Fatalf("provisioning URL misses account name: %q", provisioning.URL)
	}
	secret := secretFromProvisioningURL(t, provisioning.URL)

	code := deliverer.last(t).code
	if err := engine.ConfirmTOTPSetup(ctx, "u1", code); err != nil {
		t.Fatalf("ConfirmTOTPSetup failed: %v", err)
	}

	// The secret handed to the authenticator is the one activated in the
	// identity store, surviving the encrypt/stage/decrypt round trip.
	if got := string(ids.secrets["u1"]); got != secret {
		t.Fatalf("activated secret %q does not match provisioned %q", got, secret)
	}

	account, err := ids.FindAccount(ctx, "u1")
	if err != nil {
		t.Fatalf("FindAccount failed: %v", err)
	}
	if !account.TOTPEnabled {
		t.Fatal("expected second factor enabled")
	}

	// Staged secret is discarded after activation.
	if _, err := engine.PeekPayload(ctx, ActionSetupTOTP, "u1"); !errors.Is(err, ErrRecordNotFound) {
		t.Fatalf("expected staged secret gone, got %v", err)
	}
}

func TestTOTPSetupSupersedesStagedSecret(t *testing.T) {
	mr, rdb := newTestRedis(t)
	defer mr.Close()

	ctx := context.Background()
	ids := newMockIdentityStore(liveAccount("u1"))
	deliverer := &mockDeliverer{}
	engine := newTestEngine(t, rdb, ids, deliverer)
	engine.config.TOTP.SecretKey = testTOTPKey()

	first, err := engine.BeginTOTPSetup(ctx, "u1")
	if err != nil {
		t.Fatalf("first BeginTOTPSetup failed: %v", err)
	}
	second, err := engine.BeginTOTPSetup(ctx, "u1")
	if err != nil {
		t.Fatalf("second BeginTOTPSetup failed: %v", err)
	}
	if secretFromProvisioningURL(t, first.URL) == secretFromProvisioningURL(t, second.URL) {
		t.Fatal("expected a fresh secret on restage")
	}

	code := deliverer.last(t).code
	if err := engine.ConfirmTOTPSetup(ctx, "u1", code); err != nil {
		t.Fatalf("ConfirmTOTPSetup failed: %v", err)
	}
	if got := string(ids.secrets["u1"]); got != secretFromProvisioningURL(t, second.URL) {
		t.Fatal("expected the restaged secret to win")
	}
}

func TestTOTPSetupGuards(t *testing.T) {
	mr, rdb := newTestRedis(t)
	defer mr.Close()

	ctx := context.Background()
	enabled := &Account{ID: "u2", Email: "u2@example.com", TOTPEnabled: true}
	ids := newMockIdentityStore(liveAccount("u1"), enabled)
	engine := newTestEngine(t, rdb, ids, &mockDeliverer{})

	// No encryption key configured.
	if _, err := engine.BeginTOTPSetup(ctx, "u1"); !errors.Is(err, ErrTOTPKeyMissing) {
		t.Fatalf("expected ErrTOTPKeyMissing, got %v", err)
	}

	engine.config.TOTP.SecretKey = testTOTPKey()
	if _, err := engine.BeginTOTPSetup(ctx, "u2"); !errors.Is(err, ErrTOTPAlreadyEnabled) {
		t.Fatalf("expected ErrTOTPAlreadyEnabled, got %v", err)
	}
}

func TestTOTPDisableFlow(t *testing.T) {
	mr, rdb := newTestRedis(t)
	defer mr.Close()

	ctx := context.Background()
	enabled := &Account{ID: "u1", Email: "u1@example.com", TOTPEnabled: true}
	ids := newMockIdentityStore(enabled)
	ids.secrets["u1"] = []byte("SECRET")
	deliverer := &mockDeliverer{}
	engine := newTestEngine(t, rdb, ids, deliverer)

	if _, err := engine.BeginTOTPDisable(ctx, "u1"); err != nil {
		t.Fatalf("BeginTOTPDisable failed: %v", err)
	}
	code := deliverer.last(t).code

	if err := engine.ConfirmTOTPDisable(ctx, "u1", code); err != nil {
		t.Fatalf("ConfirmTOTPDisable failed: %v", err)
	}

	account, err := ids.FindAccount(ctx, "u1")
	if err != nil {
		t.Fatalf("FindAccount failed: %v", err)
	}
	if account.TOTPEnabled {
		t.Fatal("expected second factor disabled")
	}
	if _, ok := ids.secrets["u1"]; ok {
		t.Fatal("expected stored secret removed")
	}
}

func TestTOTPDisableRequiresEnabledFactor(t *testing.T) {
	mr, rdb := newTestRedis(t)
	defer mr.Close()

	ctx := context.Background()
	engine := newTestEngine(t, rdb, newMockIdentityStore(liveAccount("u1")), &mockDeliverer{})

	if _, err := engine.BeginTOTPDisable(ctx, "u1"); !errors.Is(err, ErrTOTPNotEnabled) {
		t.Fatalf("expected ErrTOTPNotEnabled, got %v", err)
	}
}
