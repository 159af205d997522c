package linking

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/Kramarich000/sharkflow-linking/internal"
	"github.com/Kramarich000/sharkflow-linking/internal/stores"
)

// Engine drives the confirmation/linking workflow. Build via Builder;
// immutable and safe for concurrent use afterwards.
type Engine struct {
	config        Config
	confirmations *stores.ConfirmationStore
	tempData      *stores.TempDataStore
	identity      IdentityStore
	deliverer     Deliverer
	clock         Clock
	codeSource    CodeSource
	audit         *auditDispatcher
	metrics       *Metrics
}

// Close flushes and stops the audit dispatcher.
func (e *Engine) Close() {
	if e == nil {
		return
	}
	if e.audit != nil {
		e.audit.Close()
	}
}

// AuditDropped reports how many audit events the dispatcher discarded
// because its buffer was full.
func (e *Engine) AuditDropped() uint64 {
	if e == nil || e.audit == nil {
		return 0
	}
	return e.audit.Dropped()
}

// MetricsSnapshot returns a point-in-time copy of all outcome counters.
func (e *Engine) MetricsSnapshot() MetricsSnapshot {
	if e == nil || e.metrics == nil {
		return MetricsSnapshot{Counters: map[MetricID]uint64{}}
	}
	return e.metrics.Snapshot()
}

func (e *Engine) metricInc(id MetricID) {
	if e == nil || e.metrics == nil {
		return
	}
	e.metrics.Inc(id)
}

func (e *Engine) checkIssueArgs(action ActionType, subject string) error {
	if e == nil || e.confirmations == nil || e.tempData == nil {
		return ErrEngineNotReady
	}
	if !action.Valid() {
		return ErrUnknownAction
	}
	if subject == "" {
		return ErrInvalidSubject
	}
	return nil
}

// Issue generates a fresh single-use code for (action, subject), stores
// its record under the configured TTL, and — when payload is non-nil —
// stages the payload under the same namespace and TTL. Issuing supersedes
// any prior unconsumed record for the pair: the old code is dead
// immediately, not just after its TTL.
func (e *Engine) Issue(ctx context.Context, action ActionType, subject string, payload []byte) (*Issued, error) {
	if err := e.checkIssueArgs(action, subject); err != nil {
		return nil, err
	}

	code, err := e.codeSource(e.config.Confirmation.CodeDigits)
	if err != nil {
		e.metricInc(MetricIssueFailure)
		return nil, err
	}

	now := e.clock.Now()
	ttl := e.config.Confirmation.TTL
	expiresAt := now.Add(ttl)
	tenantID := tenantIDFromContext(ctx)
	namespace := action.Namespace()

	if payload != nil {
		if err := e.tempData.Put(ctx, namespace, tenantID, subject, payload, ttl); err != nil {
			e.metricInc(MetricIssueFailure)
			mapped := mapTempDataError(err)
			e.emitAudit(ctx, auditEventCodeIssued, false, action, subject, mapped, nil)
			return nil, mapped
		}
	}

	record := &stores.ConfirmationRecord{
		CodeHash:  internal.HashCode(code),
		IssuedAt:  now.Unix(),
		ExpiresAt: expiresAt.Unix(),
	}
	if err := e.confirmations.Save(ctx, namespace, tenantID, subject, record, ttl); err != nil {
		e.metricInc(MetricIssueFailure)
		mapped := mapConfirmationError(err)
		e.emitAudit(ctx, auditEventCodeIssued, false, action, subject, mapped, nil)
		return nil, mapped
	}

	e.metricInc(MetricIssueSuccess)
	e.emitAudit(ctx, auditEventCodeIssued, true, action, subject, nil, func() map[string]string {
		return map[string]string{
			"ttl_seconds": strconv.Itoa(int(ttl.Seconds())),
			"has_payload": strconv.FormatBool(payload != nil),
		}
	})

	return &Issued{Code: code, ExpiresAt: expiresAt}, nil
}

// ValidateAndConsume redeems a code in one atomic fetch-and-delete.
// Exactly one of N concurrent callers holding the correct code succeeds;
// the rest observe ErrRecordNotFound. A wrong code returns
// ErrCodeMismatch and leaves the record in place.
func (e *Engine) ValidateAndConsume(ctx context.Context, action ActionType, subject, submittedCode string) error {
	if err := e.checkIssueArgs(action, subject); err != nil {
		return err
	}

	_, err := e.confirmations.Consume(
		ctx,
		action.Namespace(),
		tenantIDFromContext(ctx),
		subject,
		internal.HashCode(submittedCode),
		e.clock.Now(),
	)
	if err != nil {
		mapped := mapConfirmationError(err)
		switch {
		case errors.Is(mapped, ErrRecordNotFound):
			e.metricInc(MetricConsumeNotFound)
		case errors.Is(mapped, ErrCodeMismatch):
			e.metricInc(MetricConsumeMismatch)
		default:
			e.metricInc(MetricStoreUnavailable)
		}
		e.emitAudit(ctx, auditEventCodeRejected, false, action, subject, mapped, nil)
		return mapped
	}

	e.metricInc(MetricConsumeSuccess)
	e.emitAudit(ctx, auditEventCodeConsumed, true, action, subject, nil, nil)
	return nil
}

// PeekPayload returns the staged payload for (action, subject) without
// removing it. Absent and expired payloads both map to ErrRecordNotFound.
func (e *Engine) PeekPayload(ctx context.Context, action ActionType, subject string) ([]byte, error) {
	if err := e.checkIssueArgs(action, subject); err != nil {
		return nil, err
	}

	data, err := e.tempData.Get(ctx, action.Namespace(), tenantIDFromContext(ctx), subject)
	if err != nil {
		return nil, mapTempDataError(err)
	}
	return data, nil
}

// DiscardPayload removes the staged payload. Discarding an absent payload
// is a no-op.
func (e *Engine) DiscardPayload(ctx context.Context, action ActionType, subject string) error {
	if err := e.checkIssueArgs(action, subject); err != nil {
		return err
	}

	if err := e.tempData.Delete(ctx, action.Namespace(), tenantIDFromContext(ctx), subject); err != nil {
		return mapTempDataError(err)
	}
	e.emitAudit(ctx, auditEventPayloadDiscarded, true, action, subject, nil, nil)
	return nil
}

func mapConfirmationError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, stores.ErrConfirmationNotFound):
		return ErrRecordNotFound
	case errors.Is(err, stores.ErrConfirmationCodeMismatch):
		return ErrCodeMismatch
	default:
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
}

func mapTempDataError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, stores.ErrTempDataNotFound):
		return ErrRecordNotFound
	case errors.Is(err, stores.ErrUnknownNamespace):
		return ErrUnknownAction
	default:
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
}

func (e *Engine) resolveAccount(ctx context.Context, subject string) (*Account, error) {
	if e.identity == nil {
		return nil, ErrEngineNotReady
	}
	account, err := e.identity.FindAccount(ctx, subject)
	if err != nil {
		return nil, err
	}
	if account == nil {
		return nil, ErrAccountNotFound
	}
	return account, nil
}

func (e *Engine) resolveLiveAccount(ctx context.Context, subject string) (*Account, error) {
	account, err := e.resolveAccount(ctx, subject)
	if err != nil {
		return nil, err
	}
	if account.Deleted {
		return nil, ErrAccountDeleted
	}
	if account.Email == "" {
		return nil, ErrEmailMissing
	}
	return account, nil
}

func (e *Engine) deliver(ctx context.Context, action ActionType, subject, destination, code string) error {
	if e.deliverer == nil {
		return ErrEngineNotReady
	}
	if err := e.deliverer.Deliver(ctx, destination, code); err != nil {
		e.metricInc(MetricDeliveryFailure)
		e.emitAudit(ctx, auditEventDeliveryFailed, false, action, subject, ErrDeliveryFailed, nil)
		return fmt.Errorf("%w: %v", ErrDeliveryFailed, err)
	}
	return nil
}
