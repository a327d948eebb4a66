package auth

import (
	"context"
	"fmt"

	"github.com/kat-co/vala"
	"github.com/pkg/errors"

	"github.com/trezcool/academia/core"
	"github.com/trezcool/academia/core/identity"
	"github.com/trezcool/academia/core/session"
)

type Service struct {
	identities *identity.Service
	audit      AuditLog
	logger     core.Logger
}

func NewService(identities *identity.Service, audit AuditLog, logger core.Logger) *Service {
	vala.BeginValidation().Validate(
		vala.IsNotNil(identities, "identities"),
		vala.IsNotNil(audit, "audit"),
		vala.IsNotNil(logger, "logger"),
	).CheckAndPanic()

	return &Service{
		identities: identities,
		audit:      audit,
		logger:     logger,
	}
}

// Authenticate checks the credentials and, on success, overwrites sess with the matched identity.
// It returns false, leaving sess untouched, whatever made the check fail: the outcome never tells
// whether the email exists nor which role it has. An error is only returned when the store fails.
func (svc *Service) Authenticate(ctx context.Context, sess *session.Session, email, pwd string) (bool, error) {
	email = core.CleanString(email, true /* lower */)

	idt, err := svc.identities.VerifyCredentials(ctx, email, pwd)
	if err != nil {
		if errors.Is(err, identity.ErrInvalidCredentials) {
			svc.record(ctx, email, EventLoginFailure, nil)
			return false, nil
		}
		return false, errors.Wrap(err, "verifying credentials")
	}

	sess.Create(idt.ID, idt.Email, idt.Role)
	svc.record(ctx, idt.Email, EventLoginSuccess, nil)
	return true, nil
}

// ChangePassword replaces the password of the identity with that email once oldPwd checks out.
// The check does not touch any session. newPwd must satisfy the password policy (*core.ValidationError).
// Wrong credentials are audited as a login failure. It returns false when they are wrong or nothing was updated.
func (svc *Service) ChangePassword(ctx context.Context, email, oldPwd, newPwd string) (bool, error) {
	email = core.CleanString(email, true /* lower */)

	if _, err := svc.identities.VerifyCredentials(ctx, email, oldPwd); err != nil {
		if errors.Is(err, identity.ErrInvalidCredentials) {
			svc.record(ctx, email, EventLoginFailure, nil)
			return false, nil
		}
		return false, errors.Wrap(err, "verifying credentials")
	}

	updated, err := svc.identities.SetPassword(ctx, email, newPwd)
	if err != nil {
		if core.IsValidation(err) {
			svc.record(ctx, email, EventPasswordRejected, nil)
		}
		return false, err
	}
	if !updated {
		return false, nil
	}
	svc.record(ctx, email, EventPasswordChange, nil)
	return true, nil
}

// Logout closes the latest open login of the session's user in the audit ledger, then clears the session.
func (svc *Service) Logout(ctx context.Context, sess *session.Session) {
	if sess.IsLoggedIn() {
		actor := sess.Username()
		var ref *int
		if login, err := svc.audit.LastOpenLogin(ctx, actor); err == nil {
			ref = &login.ID
		} else if !errors.Is(err, ErrNoOpenLogin) {
			svc.logger.Warn(fmt.Sprintf("finding open login of %s: %v", actor, err), err)
		}
		svc.record(ctx, actor, EventLogout, ref)
	}
	sess.Clear()
}

// AuditTrail lists the audit entries of an actor, oldest first.
func (svc *Service) AuditTrail(ctx context.Context, email string) ([]AuditEntry, error) {
	return svc.audit.Entries(ctx, core.CleanString(email, true /* lower */))
}

// record appends to the audit ledger. Failures are logged and swallowed.
func (svc *Service) record(ctx context.Context, actor string, event Event, ref *int) {
	entry := AuditEntry{
		Actor:      actor,
		Event:      event,
		OccurredAt: core.Now(),
		RefID:      ref,
	}
	if _, err := svc.audit.Append(ctx, entry); err != nil {
		svc.logger.Error(fmt.Sprintf("appending %s audit entry: %v", event, err), err)
	}
}
