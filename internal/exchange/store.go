package exchange

import (
	"context"
	"time"

	"github.com/pkarasev/exchange-api/internal/model"
)

// Store is the persistence contract for accounts, instruments, and the
// transaction ledger. Implementations must make Apply atomic and serialize
// balance mutations per account (see Apply).
type Store interface {
	// CreateAccount inserts a new account. Returns ErrDuplicateAccount if
	// the username is taken.
	CreateAccount(ctx context.Context, acct model.Account) error

	// GetAccount returns the account or ErrAccountNotFound.
	GetAccount(ctx context.Context, username string) (model.Account, error)

	// CreateInstrument inserts a new instrument. Returns
	// ErrDuplicateInstrument if the ticker is taken.
	CreateInstrument(ctx context.Context, inst model.Instrument) error

	// GetInstrument returns the instrument or ErrInstrumentNotFound.
	GetInstrument(ctx context.Context, ticker string) (model.Instrument, error)

	// ListInstruments returns all instruments ordered by ticker.
	ListInstruments(ctx context.Context) ([]model.Instrument, error)

	// Apply atomically applies txn's balance effect and records it in the
	// ledger. For a BUY the debit is conditional: if the account balance is
	// below txn.Price, nothing changes and ErrInsufficientFunds is
	// returned. A SELL credits unconditionally. Returns ErrAccountNotFound
	// if txn.Account does not exist. On any storage failure neither the
	// balance nor the ledger retains partial state.
	Apply(ctx context.Context, txn model.Transaction) error

	// ListTransactions returns all of the account's transactions ordered by
	// creation time ascending, or ErrAccountNotFound.
	ListTransactions(ctx context.Context, username string) ([]model.Transaction, error)

	// ListTransactionsInRange is ListTransactions restricted to
	// start <= created_at <= end.
	ListTransactionsInRange(ctx context.Context, username string, start, end time.Time) ([]model.Transaction, error)
}
