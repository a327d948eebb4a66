package sqlxrepos

import (
	"context"
	"time"

	"github.com/volatiletech/null/v8"

	"github.com/trezcool/academia/core/auth"
)

const auditCols = "id, actor, event, occurred_at, ref_id"

type auditRow struct {
	ID         int       `db:"id"`
	Actor      string    `db:"actor"`
	Event      string    `db:"event"`
	OccurredAt time.Time `db:"occurred_at"`
	RefID      null.Int  `db:"ref_id"`
}

func (r auditRow) toEntry() auth.AuditEntry {
	return auth.AuditEntry{
		ID:         r.ID,
		Actor:      r.Actor,
		Event:      auth.Event(r.Event),
		OccurredAt: r.OccurredAt.UTC(),
		RefID:      r.RefID.Ptr(),
	}
}

type auditLog struct {
	m *TxManager
}

var _ auth.AuditLog = (*auditLog)(nil) // interface compliance check

func NewAuditLog(m *TxManager) auth.AuditLog {
	return &auditLog{m: m}
}

func (log *auditLog) Append(ctx context.Context, entry auth.AuditEntry) (auth.AuditEntry, error) {
	err := log.m.exec(ctx).QueryRowxContext(ctx,
		"INSERT INTO audit_log (actor, event, occurred_at, ref_id) VALUES ($1, $2, $3, $4) RETURNING id",
		entry.Actor, string(entry.Event), entry.OccurredAt, null.IntFromPtr(entry.RefID),
	).Scan(&entry.ID)
	if err != nil {
		return auth.AuditEntry{}, trapErr(err)
	}
	return entry, nil
}

func (log *auditLog) LastOpenLogin(ctx context.Context, actor string) (auth.AuditEntry, error) {
	var row auditRow
	err := log.m.exec(ctx).GetContext(ctx, &row, `
		SELECT `+auditCols+` FROM audit_log l
		WHERE l.actor = $1 AND l.event = $2
		  AND NOT EXISTS (SELECT 1 FROM audit_log o WHERE o.event = $3 AND o.ref_id = l.id)
		ORDER BY l.occurred_at DESC, l.id DESC
		LIMIT 1`,
		actor, string(auth.EventLoginSuccess), string(auth.EventLogout),
	)
	if err != nil {
		return auth.AuditEntry{}, trapErr(err, auth.ErrNoOpenLogin)
	}
	return row.toEntry(), nil
}

func (log *auditLog) Entries(ctx context.Context, actor string) ([]auth.AuditEntry, error) {
	var rows []auditRow
	q := "SELECT " + auditCols + " FROM audit_log WHERE actor = $1 ORDER BY occurred_at, id"
	if err := log.m.exec(ctx).SelectContext(ctx, &rows, q, actor); err != nil {
		return nil, trapErr(err)
	}
	entries := make([]auth.AuditEntry, 0, len(rows))
	for _, r := range rows {
		entries = append(entries, r.toEntry())
	}
	return entries, nil
}
