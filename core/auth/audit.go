package auth

import (
	"context"
	"time"

	"github.com/trezcool/academia/core"
)

type Event string

const (
	EventLoginSuccess     Event = "login_success"
	EventLoginFailure     Event = "login_failure"
	EventLogout           Event = "logout"
	EventPasswordChange   Event = "password_change"
	EventPasswordRejected Event = "password_rejected" // new password refused by the policy
)

var ErrNoOpenLogin = core.NewNotFoundError("no open login")

// AuditEntry is one append-only record of the audit ledger.
type AuditEntry struct {
	ID         int       `json:"id"`
	Actor      string    `json:"actor"` // email
	Event      Event     `json:"event"`
	OccurredAt time.Time `json:"occurred_at"` // UTC
	RefID      *int      `json:"ref_id,omitempty"` // logout: the login it closes
}

// AuditLog is the append-only audit ledger.
type AuditLog interface {
	Append(ctx context.Context, entry AuditEntry) (AuditEntry, error)
	// LastOpenLogin returns the latest login_success of actor that no logout refers to, or ErrNoOpenLogin.
	LastOpenLogin(ctx context.Context, actor string) (AuditEntry, error)
	Entries(ctx context.Context, actor string) ([]AuditEntry, error)
}
