package linking

import (
	"context"
	"errors"
	"time"
)

const (
	auditEventCodeIssued        = "code_issued"
	auditEventCodeConsumed      = "code_consumed"
	auditEventCodeRejected      = "code_rejected"
	auditEventPayloadDiscarded  = "payload_discarded"
	auditEventDeliveryFailed    = "delivery_failed"
	auditEventProviderConnected = "provider_connected"
	auditEventProviderDisabled  = "provider_disabled"
	auditEventTOTPSetupStarted  = "totp_setup_started"
	auditEventTOTPEnabled       = "totp_enabled"
	auditEventTOTPDisabled      = "totp_disabled"
	auditEventRestoreStaged     = "restore_staged"
	auditEventRestoreStarted    = "restore_started"
	auditEventAccountRestored   = "account_restored"
)

// AuditErrorCode is the stable wire form of an engine error inside an
// AuditEvent.
type AuditErrorCode string

const (
	auditErrUnknownAction     AuditErrorCode = "unknown_action"
	auditErrUnknownProvider   AuditErrorCode = "unknown_provider"
	auditErrInvalidSubject    AuditErrorCode = "invalid_subject"
	auditErrRecordNotFound    AuditErrorCode = "record_not_found"
	auditErrCodeMismatch      AuditErrorCode = "code_mismatch"
	auditErrStoreUnavailable  AuditErrorCode = "store_unavailable"
	auditErrProviderConflict  AuditErrorCode = "provider_conflict"
	auditErrAccountNotFound   AuditErrorCode = "account_not_found"
	auditErrAccountDeleted    AuditErrorCode = "account_deleted"
	auditErrAccountNotDeleted AuditErrorCode = "account_not_deleted"
	auditErrEmailMissing      AuditErrorCode = "email_missing"
	auditErrDeliveryFailed    AuditErrorCode = "delivery_failed"
	auditErrTOTPState         AuditErrorCode = "totp_state"
	auditErrPayloadInvalid    AuditErrorCode = "payload_invalid"
	auditErrInternal          AuditErrorCode = "internal_error"
)

func auditErrorCode(err error) AuditErrorCode {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrUnknownAction):
		return auditErrUnknownAction
	case errors.Is(err, ErrUnknownProvider):
		return auditErrUnknownProvider
	case errors.Is(err, ErrInvalidSubject):
		return auditErrInvalidSubject
	case errors.Is(err, ErrRecordNotFound):
		return auditErrRecordNotFound
	case errors.Is(err, ErrCodeMismatch):
		return auditErrCodeMismatch
	case errors.Is(err, ErrStoreUnavailable):
		return auditErrStoreUnavailable
	case errors.Is(err, ErrProviderConflict):
		return auditErrProviderConflict
	case errors.Is(err, ErrAccountNotFound):
		return auditErrAccountNotFound
	case errors.Is(err, ErrAccountDeleted):
		return auditErrAccountDeleted
	case errors.Is(err, ErrAccountNotDeleted):
		return auditErrAccountNotDeleted
	case errors.Is(err, ErrEmailMissing):
		return auditErrEmailMissing
	case errors.Is(err, ErrDeliveryFailed):
		return auditErrDeliveryFailed
	case errors.Is(err, ErrTOTPAlreadyEnabled),
		errors.Is(err, ErrTOTPNotEnabled),
		errors.Is(err, ErrTOTPKeyMissing):
		return auditErrTOTPState
	case errors.Is(err, ErrPayloadInvalid):
		return auditErrPayloadInvalid
	default:
		return auditErrInternal
	}
}

func (e *Engine) emitAudit(
	ctx context.Context,
	eventType string,
	success bool,
	action ActionType,
	subject string,
	err error,
	metadataBuilder func() map[string]string,
) {
	if e == nil || e.audit == nil {
		return
	}

	var metadata map[string]string
	if metadataBuilder != nil {
		metadata = metadataBuilder()
	}

	event := AuditEvent{
		Timestamp: time.Now().UTC(),
		EventType: eventType,
		Action:    action.String(),
		Subject:   subject,
		TenantID:  tenantIDFromContext(ctx),
		IP:        clientIPFromContext(ctx),
		Success:   success,
		Metadata:  metadata,
	}
	if code := auditErrorCode(err); code != "" {
		event.Error = string(code)
	}

	e.audit.Emit(ctx, event)
}
