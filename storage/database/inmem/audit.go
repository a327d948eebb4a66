package inmemdb

import (
	"context"
	"sort"

	"github.com/trezcool/academia/core/auth"
)

type auditLog struct {
	db *DB
}

var _ auth.AuditLog = (*auditLog)(nil) // interface compliance check

func NewAuditLog(db *DB) auth.AuditLog {
	return &auditLog{db: db}
}

func (log *auditLog) Append(ctx context.Context, entry auth.AuditEntry) (auth.AuditEntry, error) {
	defer log.db.lock(ctx)()

	entry.ID = log.db.nextID("audit")
	if entry.RefID != nil {
		ref := *entry.RefID
		entry.RefID = &ref
	}
	log.db.audit[entry.ID] = entry
	return entry, nil
}

func (log *auditLog) LastOpenLogin(ctx context.Context, actor string) (auth.AuditEntry, error) {
	defer log.db.lock(ctx)()

	closed := make(map[int]bool)
	for _, e := range log.db.audit {
		if e.Event == auth.EventLogout && e.RefID != nil {
			closed[*e.RefID] = true
		}
	}

	var last *auth.AuditEntry
	for _, e := range log.entries(actor) {
		if e.Event != auth.EventLoginSuccess || closed[e.ID] {
			continue
		}
		e := e
		last = &e
	}
	if last == nil {
		return auth.AuditEntry{}, auth.ErrNoOpenLogin
	}
	return *last, nil
}

func (log *auditLog) Entries(ctx context.Context, actor string) ([]auth.AuditEntry, error) {
	defer log.db.lock(ctx)()
	return log.entries(actor), nil
}

// entries of actor, oldest first. Caller holds the lock.
func (log *auditLog) entries(actor string) []auth.AuditEntry {
	entries := make([]auth.AuditEntry, 0)
	for _, e := range log.db.audit {
		if e.Actor == actor {
			entries = append(entries, e)
		}
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].OccurredAt.Equal(entries[j].OccurredAt) {
			return entries[i].ID < entries[j].ID
		}
		return entries[i].OccurredAt.Before(entries[j].OccurredAt)
	})
	return entries
}
