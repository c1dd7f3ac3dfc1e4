// Package txn defines the transaction capability stores accept
// explicitly. The TransactionManager that opens a Tx and the store
// implementation that executes against it agree on its concrete type;
// every other caller treats it as opaque and threads it through
// unchanged, never recovering it from context.
package txn

// Tx is an opaque transaction handle.
type Tx any
