package linking

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/Kramarich000/sharkflow-linking/internal/flows"
)

// connectPayload is the staged form of a ProviderIdentity, written when
// the connect flow begins and consumed on confirmation.
type connectPayload struct {
	ProviderID string `json:"provider_id"`
	Email      string `json:"email"`
}

// BeginConnectProvider stages the external identity captured during the
// OAuth exchange and issues a confirmation code for linking it to the
// subject's account. The code is delivered to the account email; on
// delivery failure the pending handle is still returned alongside
// ErrDeliveryFailed, since the code is already live.
func (e *Engine) BeginConnectProvider(
	ctx context.Context,
	subject string,
	provider Provider,
	identity ProviderIdentity,
) (*Pending, error) {
	action, err := ConnectAction(provider)
	if err != nil {
		return nil, err
	}
	if identity.ProviderID == "" {
		return nil, ErrPayloadInvalid
	}

	account, err := e.resolveLiveAccount(ctx, subject)
	if err != nil {
		return nil, err
	}

	payload, err := json.Marshal(connectPayload{
		ProviderID: identity.ProviderID,
		Email:      normalizeEmail(identity.Email),
	})
	if err != nil {
		return nil, err
	}

	machine := flows.NewMachine(flows.KindSetup)
	if err := machine.Apply(flows.EventStage); err != nil {
		return nil, err
	}
	if err := machine.Apply(flows.EventIssue); err != nil {
		return nil, err
	}

	issued, err := e.Issue(ctx, action, subject, payload)
	if err != nil {
		return nil, err
	}

	pending := &Pending{Destination: account.Email, ExpiresAt: issued.ExpiresAt}
	if err := e.deliver(ctx, action, subject, account.Email, issued.Code); err != nil {
		return pending, err
	}
	return pending, nil
}

// ConfirmConnectProvider redeems the confirmation code and applies the
// binding with update-or-create semantics. An identity already bound to a
// different account surfaces as ErrProviderConflict; the code is spent
// either way, so a conflicting caller must restart from Begin.
func (e *Engine) ConfirmConnectProvider(
	ctx context.Context,
	subject string,
	provider Provider,
	submittedCode string,
) error {
	action, err := ConnectAction(provider)
	if err != nil {
		return err
	}

	machine := flows.Resume(flows.KindSetup, flows.StatePendingConfirmation)

	if err := e.ValidateAndConsume(ctx, action, subject, submittedCode); err != nil {
		return err
	}
	if err := machine.Apply(flows.EventConfirm); err != nil {
		return err
	}

	raw, err := e.PeekPayload(ctx, action, subject)
	if err != nil {
		return err
	}
	if err := e.DiscardPayload(ctx, action, subject); err != nil {
		return err
	}

	var staged connectPayload
	if err := json.Unmarshal(raw, &staged); err != nil {
		return fmt.Errorf("%w: %v", ErrPayloadInvalid, err)
	}

	account, err := e.resolveLiveAccount(ctx, subject)
	if err != nil {
		return err
	}

	binding := ProviderBinding{
		Provider:   provider,
		ProviderID: staged.ProviderID,
		Email:      staged.Email,
		Enabled:    true,
	}
	if err := e.identity.UpsertProviderBinding(ctx, account.ID, binding); err != nil {
		if errors.Is(err, ErrProviderConflict) {
			e.metricInc(MetricProviderConflict)
		}
		e.emitAudit(ctx, auditEventProviderConnected, false, action, subject, err, nil)
		return err
	}

	e.metricInc(MetricProviderConnected)
	e.emitAudit(ctx, auditEventProviderConnected, true, action, subject, nil, func() map[string]string {
		return map[string]string{"provider": string(provider)}
	})
	return nil
}

// BeginDisableProvider issues a confirmation code for unlinking a
// provider from the subject's account.
func (e *Engine) BeginDisableProvider(
	ctx context.Context,
	subject string,
	provider Provider,
) (*Pending, error) {
	action, err := DisableAction(provider)
	if err != nil {
		return nil, err
	}

	account, err := e.resolveLiveAccount(ctx, subject)
	if err != nil {
		return nil, err
	}

	machine := flows.NewMachine(flows.KindConfirmOnly)
	if err := machine.Apply(flows.EventIssue); err != nil {
		return nil, err
	}

	issued, err := e.Issue(ctx, action, subject, nil)
	if err != nil {
		return nil, err
	}

	pending := &Pending{Destination: account.Email, ExpiresAt: issued.ExpiresAt}
	if err := e.deliver(ctx, action, subject, account.Email, issued.Code); err != nil {
		return pending, err
	}
	return pending, nil
}

// ConfirmDisableProvider redeems the confirmation code and disables all
// enabled bindings for the provider.
func (e *Engine) ConfirmDisableProvider(
	ctx context.Context,
	subject string,
	provider Provider,
	submittedCode string,
) error {
	action, err := DisableAction(provider)
	if err != nil {
		return err
	}

	machine := flows.Resume(flows.KindConfirmOnly, flows.StatePendingConfirmation)

	if err := e.ValidateAndConsume(ctx, action, subject, submittedCode); err != nil {
		return err
	}
	if err := machine.Apply(flows.EventConfirm); err != nil {
		return err
	}

	account, err := e.resolveLiveAccount(ctx, subject)
	if err != nil {
		return err
	}

	if err := e.identity.DisableProviderBindings(ctx, account.ID, provider); err != nil {
		e.emitAudit(ctx, auditEventProviderDisabled, false, action, subject, err, nil)
		return err
	}

	e.metricInc(MetricProviderDisabled)
	e.emitAudit(ctx, auditEventProviderDisabled, true, action, subject, nil, func() map[string]string {
		return map[string]string{"provider": string(provider)}
	})
	return nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
