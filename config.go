package linking

import (
	"errors"
	"time"
)

// Config carries all tunables of the linking engine. Configure before
// Build and treat as immutable afterwards.
type Config struct {
	Confirmation ConfirmationConfig
	TempData     TempDataConfig
	Store        StoreConfig
	TOTP         TOTPConfig
	Audit        AuditConfig
	Metrics      MetricsConfig
}

/*
====================================
CONFIRMATION CONFIG
====================================
*/

// ConfirmationConfig governs code issuance.
type ConfirmationConfig struct {
	// TTL bounds the lifetime of every confirmation record and staged
	// payload. Expiry is the only garbage collection; there is no sweeper.
	TTL time.Duration
	// CodeDigits is the length of generated numeric codes (4..10).
	CodeDigits int
	// RedisPrefix namespaces confirmation record keys.
	RedisPrefix string
}

/*
====================================
TEMP DATA CONFIG
====================================
*/

// TempDataConfig governs the staged-payload store.
type TempDataConfig struct {
	// RedisPrefix namespaces temp payload keys.
	RedisPrefix string
}

/*
====================================
STORE CONFIG
====================================
*/

// StoreConfig bounds every Redis round-trip.
type StoreConfig struct {
	// OpTimeout caps a single store operation. A timeout surfaces as
	// ErrStoreUnavailable; the engine never retries on its own.
	OpTimeout time.Duration
}

/*
====================================
TOTP CONFIG
====================================
*/

// TOTPConfig governs second-factor setup flows.
type TOTPConfig struct {
	// Issuer appears in the otpauth provisioning URL.
	Issuer string
	// SecretKey (32 bytes) encrypts staged TOTP secrets at rest. Required
	// only when the TOTP flows are used.
	SecretKey []byte
	// SecretSize is the generated TOTP secret length in bytes.
	SecretSize int
}

/*
====================================
AUDIT / METRICS CONFIG
====================================
*/

// AuditConfig governs the async audit dispatcher.
type AuditConfig struct {
	Enabled    bool
	BufferSize int
	DropIfFull bool
}

// MetricsConfig toggles the lock-free outcome counters.
type MetricsConfig struct {
	Enabled bool
}

// DefaultConfig returns the configuration Build starts from: 15-minute
// TTL, 6-digit codes, 3-second store timeouts, audit disabled, metrics
// enabled.
func DefaultConfig() Config {
	return defaultConfig()
}

func defaultConfig() Config {
	return Config{
		Confirmation: ConfirmationConfig{
			TTL:         15 * time.Minute,
			CodeDigits:  6,
			RedisPrefix: "slc",
		},
		TempData: TempDataConfig{
			RedisPrefix: "slt",
		},
		Store: StoreConfig{
			OpTimeout: 3 * time.Second,
		},
		TOTP: TOTPConfig{
			Issuer:     "SharkFlow",
			SecretSize: 20,
		},
		Audit: AuditConfig{
			Enabled:    false,
			BufferSize: 256,
			DropIfFull: true,
		},
		Metrics: MetricsConfig{
			Enabled: true,
		},
	}
}

func cloneConfig(cfg Config) Config {
	out := cfg
	out.TOTP.SecretKey = cloneBytes(cfg.TOTP.SecretKey)
	return out
}

func cloneBytes(b []byte) []byte {
	if b == nil {
		return nil
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out
}

// Validate rejects configurations the engine cannot run with.
func (c Config) Validate() error {
	if c.Confirmation.TTL <= 0 {
		return errors.New("Confirmation TTL must be positive")
	}
	if c.Confirmation.CodeDigits < 4 || c.Confirmation.CodeDigits > 10 {
		return errors.New("Confirmation CodeDigits must be between 4 and 10")
	}
	if c.Store.OpTimeout <= 0 {
		return errors.New("Store OpTimeout must be positive")
	}
	if len(c.TOTP.SecretKey) != 0 && len(c.TOTP.SecretKey) != 32 {
		return errors.New("TOTP SecretKey must be 32 bytes when set")
	}
	if c.TOTP.SecretSize <= 0 {
		return errors.New("TOTP SecretSize must be positive")
	}
	if c.Audit.Enabled && c.Audit.BufferSize <= 0 {
		return errors.New("Audit BufferSize must be positive when audit is enabled")
	}
	return nil
}
