package linking

import (
	"context"
	"fmt"

	"github.com/Kramarich000/sharkflow-linking/internal"
	"github.com/Kramarich000/sharkflow-linking/internal/flows"
	"github.com/pquerna/otp/totp"
)

// BeginTOTPSetup generates a TOTP secret for the subject's account,
// stages it encrypted under the setup namespace, and issues a
// confirmation code delivered to the account email. Calling it again
// supersedes: a fresh secret and a fresh code replace the staged ones.
// The otpauth provisioning URL is returned for authenticator apps.
func (e *Engine) BeginTOTPSetup(ctx context.Context, subject string) (*TOTPProvisioning, error) {
	if len(e.config.TOTP.SecretKey) == 0 {
		return nil, ErrTOTPKeyMissing
	}

	account, err := e.resolveLiveAccount(ctx, subject)
	if err != nil {
		return nil, err
	}
	if account.TOTPEnabled {
		return nil, ErrTOTPAlreadyEnabled
	}

	key, err := totp.Generate(totp.GenerateOpts{
		Issuer:      e.config.TOTP.Issuer,
		AccountName: account.Email,
		SecretSize:  uint(e.config.TOTP.SecretSize),
	})
	if err != nil {
		return nil, err
	}

	sealed, err := internal.Seal(e.config.TOTP.SecretKey, []byte(key.Secret()))
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

	issued, err := e.Issue(ctx, ActionSetupTOTP, subject, sealed)
	if err != nil {
		return nil, err
	}

	e.emitAudit(ctx, auditEventTOTPSetupStarted, true, ActionSetupTOTP, subject, nil, nil)

	provisioning := &TOTPProvisioning{
		URL:         key.URL(),
		Destination: account.Email,
		ExpiresAt:   issued.ExpiresAt,
	}
	if err := e.deliver(ctx, ActionSetupTOTP, subject, account.Email, issued.Code); err != nil {
		return provisioning, err
	}
	return provisioning, nil
}

// ConfirmTOTPSetup redeems the confirmation code, recovers the staged
// secret, and activates the second factor in the identity store.
func (e *Engine) ConfirmTOTPSetup(ctx context.Context, subject, submittedCode string) error {
	if len(e.config.TOTP.SecretKey) == 0 {
		return ErrTOTPKeyMissing
	}

	machine := flows.Resume(flows.KindSetup, flows.StatePendingConfirmation)

	if err := e.ValidateAndConsume(ctx, ActionSetupTOTP, subject, submittedCode); err != nil {
		return err
	}
	if err := machine.Apply(flows.EventConfirm); err != nil {
		return err
	}

	sealed, err := e.PeekPayload(ctx, ActionSetupTOTP, subject)
	if err != nil {
		return err
	}
	if err := e.DiscardPayload(ctx, ActionSetupTOTP, subject); err != nil {
		return err
	}

	secret, err := internal.Open(e.config.TOTP.SecretKey, sealed)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrPayloadInvalid, err)
	}

	account, err := e.resolveLiveAccount(ctx, subject)
	if err != nil {
		return err
	}

	if err := e.identity.ActivateSecondFactor(ctx, account.ID, secret); err != nil {
		e.emitAudit(ctx, auditEventTOTPEnabled, false, ActionSetupTOTP, subject, err, nil)
		return err
	}

	e.metricInc(MetricTOTPEnabled)
	e.emitAudit(ctx, auditEventTOTPEnabled, true, ActionSetupTOTP, subject, nil, nil)
	return nil
}

// BeginTOTPDisable issues a confirmation code for deactivating the
// subject's second factor.
func (e *Engine) BeginTOTPDisable(ctx context.Context, subject string) (*Pending, error) {
	account, err := e.resolveLiveAccount(ctx, subject)
	if err != nil {
		return nil, err
	}
	if !account.TOTPEnabled {
		return nil, ErrTOTPNotEnabled
	}

	machine := flows.NewMachine(flows.KindConfirmOnly)
	if err := machine.Apply(flows.EventIssue); err != nil {
		return nil, err
	}

	issued, err := e.Issue(ctx, ActionDisableTOTP, subject, nil)
	if err != nil {
		return nil, err
	}

	pending := &Pending{Destination: account.Email, ExpiresAt: issued.ExpiresAt}
	if err := e.deliver(ctx, ActionDisableTOTP, subject, account.Email, issued.Code); err != nil {
		return pending, err
	}
	return pending, nil
}

// ConfirmTOTPDisable redeems the confirmation code and deactivates the
// second factor.
func (e *Engine) ConfirmTOTPDisable(ctx context.Context, subject, submittedCode string) error {
	machine := flows.Resume(flows.KindConfirmOnly, flows.StatePendingConfirmation)

	if err := e.ValidateAndConsume(ctx, ActionDisableTOTP, subject, submittedCode); err != nil {
		return err
	}
	if err := machine.Apply(flows.EventConfirm); err != nil {
		return err
	}

	account, err := e.resolveLiveAccount(ctx, subject)
	if err != nil {
		return err
	}

	if err := e.identity.DisableSecondFactor(ctx, account.ID); err != nil {
		e.emitAudit(ctx, auditEventTOTPDisabled, false, ActionDisableTOTP, subject, err, nil)
		return err
	}

	e.metricInc(MetricTOTPDisabled)
	e.emitAudit(ctx, auditEventTOTPDisabled, true, ActionDisableTOTP, subject, nil, nil)
	return nil
}
