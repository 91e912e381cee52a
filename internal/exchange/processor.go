package exchange

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/pkarasev/exchange-api/internal/model"
)

// Observer receives every settled transaction, after commit. Used to feed
// the live trade stream.
type Observer func(model.Transaction)

// Processor validates trade requests, computes the settlement amount, and
// applies them through the Store.
type Processor struct {
	store    Store
	logger   *slog.Logger
	observer Observer
	now      func() time.Time
}

// ProcessorOption customizes a Processor.
type ProcessorOption func(*Processor)

// WithLogger sets the processor's logger.
func WithLogger(logger *slog.Logger) ProcessorOption {
	return func(p *Processor) {
		if logger != nil {
			p.logger = logger
		}
	}
}

// WithObserver registers a post-commit transaction observer.
func WithObserver(fn Observer) ProcessorOption {
	return func(p *Processor) { p.observer = fn }
}

// WithClock overrides the transaction timestamp source. Tests only.
func WithClock(now func() time.Time) ProcessorOption {
	return func(p *Processor) { p.now = now }
}

// NewProcessor creates a Processor on top of store.
func NewProcessor(store Store, opts ...ProcessorOption) *Processor {
	p := &Processor{
		store:  store,
		logger: slog.Default(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Submit processes one trade request. Settlement amount is
// instrument price x volume at the moment of processing (flat spot-price
// model: no slippage, no partial fills). BUY fails with
// ErrInsufficientFunds when the balance doesn't cover the amount; SELL
// credits unconditionally. All validation happens before any write, and the
// balance effect plus the ledger record commit atomically or not at all.
func (p *Processor) Submit(ctx context.Context, account, ticker string, kind model.TransactionKind, volume decimal.Decimal) (model.Transaction, error) {
	if kind != model.KindBuy && kind != model.KindSell {
		return model.Transaction{}, ErrInvalidKind
	}
	if volume.Sign() <= 0 {
		return model.Transaction{}, ErrInvalidVolume
	}
	if _, err := p.store.GetAccount(ctx, account); err != nil {
		return model.Transaction{}, err
	}
	inst, err := p.store.GetInstrument(ctx, ticker)
	if err != nil {
		return model.Transaction{}, err
	}

	txn := model.Transaction{
		ID:        uuid.New(),
		Account:   account,
		Ticker:    inst.Ticker,
		Kind:      kind,
		Volume:    volume,
		Price:     inst.Price.Mul(volume),
		CreatedAt: p.now().UTC(),
	}

	if err := p.store.Apply(ctx, txn); err != nil {
		return model.Transaction{}, err
	}

	p.logger.Info("transaction settled",
		"account", txn.Account,
		"ticker", txn.Ticker,
		"kind", txn.Kind,
		"volume", txn.Volume,
		"price", txn.Price,
	)

	if p.observer != nil {
		p.observer(txn)
	}
	return txn, nil
}

// History returns the account's full transaction history, creation time
// ascending.
func (p *Processor) History(ctx context.Context, account string) ([]model.Transaction, error) {
	return p.store.ListTransactions(ctx, account)
}

// HistoryInRange returns the account's transactions with
// start <= created_at <= end (inclusive bounds). A start after end is
// ErrInvalidTimeRange; an empty window is an empty list, not an error.
func (p *Processor) HistoryInRange(ctx context.Context, account string, start, end time.Time) ([]model.Transaction, error) {
	if start.After(end) {
		return nil, ErrInvalidTimeRange
	}
	return p.store.ListTransactionsInRange(ctx, account, start, end)
}
