package linking

import "errors"

var (
	// ErrUnknownAction reports an ActionType outside the closed enumeration.
	// It is a configuration error, detectable at startup, never a runtime
	// fallback.
	ErrUnknownAction = errors.New("unknown action type")
	// ErrUnknownProvider reports a provider name outside the supported set.
	ErrUnknownProvider = errors.New("unknown oauth provider")
	// ErrInvalidSubject reports an empty subject key.
	ErrInvalidSubject = errors.New("invalid subject key")
	// ErrRecordNotFound reports a confirmation record or payload that was
	// never issued, already consumed, or expired. The three cases are never
	// distinguished.
	ErrRecordNotFound = errors.New("confirmation record not found or expired")
	// ErrCodeMismatch reports a wrong confirmation code. The pending record
	// survives, so the caller may retry until the TTL elapses.
	ErrCodeMismatch = errors.New("confirmation code mismatch")
	// ErrStoreUnavailable reports a backend timeout or outage. The engine
	// never retries internally; retry policy belongs to the caller.
	ErrStoreUnavailable = errors.New("record store unavailable")
	// ErrProviderConflict reports that the external provider identity is
	// already bound to a different account. The confirmation code is spent
	// at this point; the caller must restart from Begin.
	ErrProviderConflict = errors.New("provider identity bound to another account")
	// ErrAccountNotFound reports that the subject does not resolve to an account.
	ErrAccountNotFound = errors.New("account not found")
	// ErrAccountDeleted reports an action against a soft-deleted account.
	ErrAccountDeleted = errors.New("account deleted")
	// ErrAccountNotDeleted reports a restore attempt against a live account.
	ErrAccountNotDeleted = errors.New("account not deleted")
	// ErrEmailMissing reports an account with no delivery address.
	ErrEmailMissing = errors.New("account email missing")
	// ErrDeliveryFailed reports an out-of-band delivery failure. The issued
	// code is not rolled back: the pending handle is still returned and the
	// caller decides whether to retry delivery.
	ErrDeliveryFailed = errors.New("confirmation code delivery failed")
	// ErrTOTPAlreadyEnabled reports a setup attempt for an account that
	// already has an active second factor.
	ErrTOTPAlreadyEnabled = errors.New("totp already enabled")
	// ErrTOTPNotEnabled reports a disable attempt for an account without an
	// active second factor.
	ErrTOTPNotEnabled = errors.New("totp not enabled")
	// ErrTOTPKeyMissing reports TOTP flows used without Config.TOTP.SecretKey.
	ErrTOTPKeyMissing = errors.New("totp secret key not configured")
	// ErrPayloadInvalid reports a staged payload that could not be decoded
	// or decrypted.
	ErrPayloadInvalid = errors.New("staged payload invalid")
	// ErrEngineNotReady reports Engine use before Builder.Build wiring.
	ErrEngineNotReady = errors.New("engine not initialized")
)
