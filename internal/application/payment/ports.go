package payment

import (
	"context"

	"github.com/cassiomorais/paygate/internal/domain/txn"
)

// TransactionManager defines the interface for transaction management.
// This is an application-layer port, not a domain concern. fn receives
// the open transaction explicitly as tx; stores that must participate
// in it take tx as a parameter rather than recovering it from ctx.
type TransactionManager interface {
	WithTransaction(ctx context.Context, fn func(ctx context.Context, tx txn.Tx) error) error
}
