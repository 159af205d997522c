package linking

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/Kramarich000/sharkflow-linking/internal"
	"github.com/Kramarich000/sharkflow-linking/internal/flows"
)

// restorePayload maps an opaque restore key back to the account it may
// restore. The account ID never appears in anything handed to the user.
type restorePayload struct {
	AccountID string `json:"account_id"`
}

// StageRestore mints an opaque restore key for a soft-deleted account and
// stages the mapping under the restore namespace. The key expires with
// the TTL like every other staged record.
func (e *Engine) StageRestore(ctx context.Context, accountID string) (string, error) {
	if e == nil || e.tempData == nil {
		return "", ErrEngineNotReady
	}
	if accountID == "" {
		return "", ErrInvalidSubject
	}

	account, err := e.resolveAccount(ctx, accountID)
	if err != nil {
		return "", err
	}
	if !account.Deleted {
		return "", ErrAccountNotDeleted
	}

	payload, err := json.Marshal(restorePayload{AccountID: account.ID})
	if err != nil {
		return "", err
	}

	restoreKey := internal.NewRestoreKey()
	err = e.tempData.Put(
		ctx,
		ActionRestoreAccount.Namespace(),
		tenantIDFromContext(ctx),
		restoreKey,
		payload,
		e.config.Confirmation.TTL,
	)
	if err != nil {
		return "", mapTempDataError(err)
	}

	e.emitAudit(ctx, auditEventRestoreStaged, true, ActionRestoreAccount, restoreKey, nil, nil)
	return restoreKey, nil
}

// BeginRestore resolves a staged restore key and issues a confirmation
// code to the account's email. The subject of the confirmation record is
// the restore key itself, not the account.
func (e *Engine) BeginRestore(ctx context.Context, restoreKey string) (*Pending, error) {
	staged, err := e.restorePayloadFor(ctx, restoreKey)
	if err != nil {
		return nil, err
	}

	account, err := e.resolveAccount(ctx, staged.AccountID)
	if err != nil {
		return nil, err
	}
	if account.Email == "" {
		return nil, ErrEmailMissing
	}

	machine := flows.Resume(flows.KindSetup, flows.StatePendingSecret)
	if err := machine.Apply(flows.EventIssue); err != nil {
		return nil, err
	}

	// Reissue the mapping alongside the code so both carry the same TTL.
	payload, err := json.Marshal(staged)
	if err != nil {
		return nil, err
	}
	issued, err := e.Issue(ctx, ActionRestoreAccount, restoreKey, payload)
	if err != nil {
		return nil, err
	}

	e.emitAudit(ctx, auditEventRestoreStarted, true, ActionRestoreAccount, restoreKey, nil, nil)

	pending := &Pending{Destination: account.Email, ExpiresAt: issued.ExpiresAt}
	if err := e.deliver(ctx, ActionRestoreAccount, restoreKey, account.Email, issued.Code); err != nil {
		return pending, err
	}
	return pending, nil
}

// ConfirmRestore redeems the confirmation code and marks the account
// restored in the identity store.
func (e *Engine) ConfirmRestore(ctx context.Context, restoreKey, submittedCode string) error {
	machine := flows.Resume(flows.KindSetup, flows.StatePendingConfirmation)

	if err := e.ValidateAndConsume(ctx, ActionRestoreAccount, restoreKey, submittedCode); err != nil {
		return err
	}
	if err := machine.Apply(flows.EventConfirm); err != nil {
		return err
	}

	staged, err := e.restorePayloadFor(ctx, restoreKey)
	if err != nil {
		return err
	}
	if err := e.DiscardPayload(ctx, ActionRestoreAccount, restoreKey); err != nil {
		return err
	}

	if e.identity == nil {
		return ErrEngineNotReady
	}
	if err := e.identity.RestoreAccount(ctx, staged.AccountID); err != nil {
		e.emitAudit(ctx, auditEventAccountRestored, false, ActionRestoreAccount, restoreKey, err, nil)
		return err
	}

	e.metricInc(MetricAccountRestored)
	e.emitAudit(ctx, auditEventAccountRestored, true, ActionRestoreAccount, restoreKey, nil, nil)
	return nil
}

func (e *Engine) restorePayloadFor(ctx context.Context, restoreKey string) (*restorePayload, error) {
	raw, err := e.PeekPayload(ctx, ActionRestoreAccount, restoreKey)
	if err != nil {
		return nil, err
	}

	var staged restorePayload
	if err := json.Unmarshal(raw, &staged); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPayloadInvalid, err)
	}
	if staged.AccountID == "" {
		return nil, ErrPayloadInvalid
	}
	return &staged, nil
}
