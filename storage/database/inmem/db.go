package inmemdb

import (
	"context"
	"sync"

	"github.com/trezcool/academia/core"
	"github.com/trezcool/academia/core/auth"
	"github.com/trezcool/academia/core/coursework"
	"github.com/trezcool/academia/core/enrollment"
	"github.com/trezcool/academia/core/identity"
)

type txKey struct{}

type (
	// DB is an in-memory store. Transactions hold the DB lock from begin to end, so they run one at a time,
	// and roll back by restoring a copy of the tables taken at begin.
	DB struct {
		mu sync.Mutex
		tables
	}

	tables struct {
		identities    map[int]identity.Identity
		courses       map[int]enrollment.Course
		enrollments   map[int]enrollment.Enrollment
		assignments   map[int]coursework.Assignment
		distributions map[int]coursework.Distribution
		audit         map[int]auth.AuditEntry
		seq           map[string]int
	}
)

var _ core.TxManager = (*DB)(nil) // interface compliance check

func Open() *DB {
	return &DB{
		tables: tables{
			identities:    make(map[int]identity.Identity),
			courses:       make(map[int]enrollment.Course),
			enrollments:   make(map[int]enrollment.Enrollment),
			assignments:   make(map[int]coursework.Assignment),
			distributions: make(map[int]coursework.Distribution),
			audit:         make(map[int]auth.AuditEntry),
			seq:           make(map[string]int),
		},
	}
}

func (db *DB) WithinTx(ctx context.Context, fn func(ctx context.Context) error) (err error) {
	if db.inTx(ctx) {
		return fn(ctx)
	}

	db.mu.Lock()
	defer db.mu.Unlock()

	snapshot := db.tables.clone()
	defer func() {
		if p := recover(); p != nil {
			db.tables = snapshot
			panic(p)
		}
		if err != nil {
			db.tables = snapshot
		}
	}()
	return fn(context.WithValue(ctx, txKey{}, db))
}

// Reset empties all tables.
func (db *DB) Reset() {
	db.mu.Lock()
	defer db.mu.Unlock()
	db.tables = Open().tables
}

func (db *DB) inTx(ctx context.Context) bool {
	txDB, ok := ctx.Value(txKey{}).(*DB)
	return ok && txDB == db
}

// lock takes the DB lock unless ctx already runs inside one of its transactions. Call the returned func to release.
func (db *DB) lock(ctx context.Context) func() {
	if db.inTx(ctx) {
		return func() {}
	}
	db.mu.Lock()
	return db.mu.Unlock
}

func (db *DB) nextID(table string) int {
	db.seq[table]++
	return db.seq[table]
}

func (t tables) clone() tables {
	return tables{
		identities:    cloneTable(t.identities),
		courses:       cloneTable(t.courses),
		enrollments:   cloneTable(t.enrollments),
		assignments:   cloneTable(t.assignments),
		distributions: cloneTable(t.distributions),
		audit:         cloneTable(t.audit),
		seq:           cloneTable(t.seq),
	}
}

func cloneTable[K comparable, V any](m map[K]V) map[K]V {
	c := make(map[K]V, len(m))
	for k, v := range m {
		c[k] = v
	}
	return c
}
