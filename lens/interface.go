package lens

import (
	"context"
	"errors"

	"github.com/wormhole-foundation/suigov/ptb"
)

var (
	// ErrObjectNotFound is returned when the ledger has no live object with the requested id.
	ErrObjectNotFound = errors.New("object not found")
	// ErrTransactionRejected is returned when the ledger refuses a transaction or executes it with a failure status.
	ErrTransactionRejected = errors.New("transaction rejected")
)

// API is the subset of a ledger node used to resolve state and submit transactions.
type API interface {
	GetObject(ctx context.Context, id ptb.ObjectID, opts ObjectOptions) (*Object, error)
	// SignAndExecuteTransaction resolves the inputs of tx, selects gas, signs it with the
	// sender key and waits for local execution. A failed execution is ErrTransactionRejected.
	SignAndExecuteTransaction(ctx context.Context, tx *ptb.Transaction, opts ResponseOptions) (*TransactionResponse, error)
	GetTransaction(ctx context.Context, digest string, opts ResponseOptions) (*TransactionResponse, error)
}

// DryRunner is implemented by APIs able to simulate a transaction without committing it.
type DryRunner interface {
	DryRunTransaction(ctx context.Context, tx *ptb.Transaction) (*TransactionResponse, error)
}

type APICloser func()

type APIOpener interface {
	Open(context.Context) (API, APICloser, error)
}
