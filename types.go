package linking

import (
	"context"
	"time"
)

// ActionType is the closed enumeration of confirmable actions. Each value
// maps to its own key namespace in the expiring record store; codes and
// payloads issued under different action types never interfere.
type ActionType uint8

const (
	actionInvalid ActionType = iota

	// ActionConnectGoogle links a Google identity to the account.
	ActionConnectGoogle
	// ActionConnectGithub links a GitHub identity to the account.
	ActionConnectGithub
	// ActionConnectYandex links a Yandex identity to the account.
	ActionConnectYandex
	// ActionDisableGoogle unlinks all enabled Google bindings.
	ActionDisableGoogle
	// ActionDisableGithub unlinks all enabled GitHub bindings.
	ActionDisableGithub
	// ActionDisableYandex unlinks all enabled Yandex bindings.
	ActionDisableYandex
	// ActionSetupTOTP stages and activates a TOTP second factor.
	ActionSetupTOTP
	// ActionDisableTOTP deactivates the TOTP second factor.
	ActionDisableTOTP
	// ActionRestoreAccount confirms restoration of a soft-deleted account.
	// Its subject key is an opaque restore key, not a user identifier.
	ActionRestoreAccount

	actionSentinel
)

var actionNamespaces = [...]string{
	ActionConnectGoogle:  "connect-google",
	ActionConnectGithub:  "connect-github",
	ActionConnectYandex:  "connect-yandex",
	ActionDisableGoogle:  "disable-google",
	ActionDisableGithub:  "disable-github",
	ActionDisableYandex:  "disable-yandex",
	ActionSetupTOTP:      "setup-totp",
	ActionDisableTOTP:    "disable-totp",
	ActionRestoreAccount: "restore-account",
}

// Valid reports whether a is a member of the closed enumeration.
func (a ActionType) Valid() bool {
	return a > actionInvalid && a < actionSentinel
}

// Namespace returns the fixed key namespace for a. Empty for invalid values.
func (a ActionType) Namespace() string {
	if !a.Valid() {
		return ""
	}
	return actionNamespaces[a]
}

func (a ActionType) String() string {
	if !a.Valid() {
		return "invalid"
	}
	return actionNamespaces[a]
}

// allNamespaces feeds the temp-data store allow-list at Build time.
func allNamespaces() []string {
	out := make([]string, 0, int(actionSentinel)-1)
	for a := actionInvalid + 1; a < actionSentinel; a++ {
		out = append(out, a.Namespace())
	}
	return out
}

// Provider identifies an external OAuth identity provider.
type Provider string

const (
	// ProviderGoogle is the Google OAuth provider.
	ProviderGoogle Provider = "google"
	// ProviderGithub is the GitHub OAuth provider.
	ProviderGithub Provider = "github"
	// ProviderYandex is the Yandex OAuth provider.
	ProviderYandex Provider = "yandex"
)

// ConnectAction maps a provider to its connect action type.
func ConnectAction(p Provider) (ActionType, error) {
	switch p {
	case ProviderGoogle:
		return ActionConnectGoogle, nil
	case ProviderGithub:
		return ActionConnectGithub, nil
	case ProviderYandex:
		return ActionConnectYandex, nil
	}
	return actionInvalid, ErrUnknownProvider
}

// DisableAction maps a provider to its disable action type.
func DisableAction(p Provider) (ActionType, error) {
	switch p {
	case ProviderGoogle:
		return ActionDisableGoogle, nil
	case ProviderGithub:
		return ActionDisableGithub, nil
	case ProviderYandex:
		return ActionDisableYandex, nil
	}
	return actionInvalid, ErrUnknownProvider
}

// Account is the engine's view of a record in the persistent identity
// store. The engine never mutates accounts directly; all writes go through
// the IdentityStore collaborator.
type Account struct {
	ID          string
	Email       string
	Deleted     bool
	TOTPEnabled bool
}

// ProviderIdentity carries the external identity captured during the OAuth
// exchange, staged until the connect confirmation arrives.
type ProviderIdentity struct {
	ProviderID string
	Email      string
}

// ProviderBinding is the association written to the identity store on a
// confirmed connect, keyed by (Provider, ProviderID).
type ProviderBinding struct {
	Provider   Provider
	ProviderID string
	Email      string
	Enabled    bool
}

// IdentityStore is the persistent identity collaborator. Implementations
// must return ErrAccountNotFound when the subject does not resolve and
// ErrProviderConflict when a binding upsert would attach a provider
// identity already owned by a different account.
type IdentityStore interface {
	FindAccount(ctx context.Context, subjectKey string) (*Account, error)
	UpsertProviderBinding(ctx context.Context, accountID string, binding ProviderBinding) error
	DisableProviderBindings(ctx context.Context, accountID string, provider Provider) error
	ActivateSecondFactor(ctx context.Context, accountID string, secret []byte) error
	DisableSecondFactor(ctx context.Context, accountID string) error
	RestoreAccount(ctx context.Context, accountID string) error
}

// Deliverer sends a confirmation code out-of-band (email, Telegram, ...).
// A delivery failure never rolls back an already-issued code.
type Deliverer interface {
	Deliver(ctx context.Context, destination, code string) error
}

// Clock abstracts time for deterministic tests.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

// CodeSource generates a fresh confirmation code of the given digit count.
// Injectable for deterministic tests; the default draws from crypto/rand.
type CodeSource func(digits int) (string, error)

// Issued is the result of issuing a confirmation code.
type Issued struct {
	Code      string
	ExpiresAt time.Time
}

// Pending is the caller-visible handle for a begun flow. The code itself
// travels out-of-band only.
type Pending struct {
	Destination string
	ExpiresAt   time.Time
}

// TOTPProvisioning is returned by BeginTOTPSetup. URL is the otpauth://
// provisioning URI for authenticator apps.
type TOTPProvisioning struct {
	URL         string
	Destination string
	ExpiresAt   time.Time
}
