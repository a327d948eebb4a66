package core

import "context"

// TxManager runs fn inside one scoped transaction: begin, fn, commit.
// The transaction is rolled back when fn returns an error or panics.
// Repositories pick the transaction up from the ctx handed to fn; a nested call joins the outer transaction.
type TxManager interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context) error) error
}
