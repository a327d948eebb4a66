package sqlxrepos

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"net"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/pkg/errors"

	"github.com/trezcool/academia/core"
)

type txKey struct{}

// executor is implemented by both *sqlx.DB and *sqlx.Tx.
type executor interface {
	sqlx.ExtContext
	GetContext(ctx context.Context, dest interface{}, query string, args ...interface{}) error
	SelectContext(ctx context.Context, dest interface{}, query string, args ...interface{}) error
}

// TxManager runs transactions on a postgres database and hands them to repositories through the ctx.
type TxManager struct {
	db *sqlx.DB
}

var _ core.TxManager = (*TxManager)(nil) // interface compliance check

func NewTxManager(db *sqlx.DB) *TxManager {
	return &TxManager{db: db}
}

func (m *TxManager) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if _, ok := ctx.Value(txKey{}).(*sqlx.Tx); ok {
		return fn(ctx)
	}

	tx, err := m.db.BeginTxx(ctx, nil)
	if err != nil {
		return trapErr(errors.Wrap(err, "beginning transaction"))
	}
	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
	}()

	if err = fn(context.WithValue(ctx, txKey{}, tx)); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return errors.Wrapf(err, "rollback failed: %v", rbErr)
		}
		return err
	}
	if err = tx.Commit(); err != nil {
		return trapErr(errors.Wrap(err, "committing transaction"))
	}
	return nil
}

// exec returns the transaction carried by ctx, or the database itself.
func (m *TxManager) exec(ctx context.Context) executor {
	if tx, ok := ctx.Value(txKey{}).(*sqlx.Tx); ok {
		return tx
	}
	return m.db
}

// trapErr turns driver errors into domain errors: sql.ErrNoRows into notFound (when given),
// and lost connections into *core.ConnectivityError.
func trapErr(err error, notFound ...error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) && len(notFound) > 0 {
		return notFound[0]
	}
	if isConnectivity(err) {
		return core.NewConnectivityError(err)
	}
	return err
}

func isConnectivity(err error) bool {
	if errors.Is(err, driver.ErrBadConn) || errors.Is(err, sql.ErrConnDone) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code.Class() == "08" // connection_exception
}

func isUniqueViolation(err error, constraint ...string) bool {
	var pqErr *pq.Error
	if !errors.As(err, &pqErr) || pqErr.Code != "23505" {
		return false
	}
	return len(constraint) == 0 || pqErr.Constraint == constraint[0]
}

func isForeignKeyViolation(err error, constraint ...string) bool {
	var pqErr *pq.Error
	if !errors.As(err, &pqErr) || pqErr.Code != "23503" {
		return false
	}
	return len(constraint) == 0 || pqErr.Constraint == constraint[0]
}
