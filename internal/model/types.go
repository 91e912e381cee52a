package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// TransactionKind is the direction of a transaction.
type TransactionKind string

const (
	KindBuy  TransactionKind = "BUY"
	KindSell TransactionKind = "SELL"
)

// ParseTransactionKind validates a wire-format transaction type.
func ParseTransactionKind(s string) (TransactionKind, bool) {
	switch TransactionKind(s) {
	case KindBuy:
		return KindBuy, true
	case KindSell:
		return KindSell, true
	}
	return "", false
}

// Account holds a user's cash balance. The username is the primary key.
// Accounts are created explicitly (POST /users/) and mutated only by the
// transaction processor; they are never deleted.
type Account struct {
	Username string          `json:"username"`
	Balance  decimal.Decimal `json:"balance"`
}

// Instrument is a tradable stock. Read-only to the transaction processor.
type Instrument struct {
	Ticker string          `json:"ticker"`  // Primary key (e.g., "AAPL")
	Price  decimal.Decimal `json:"stock_price"`
	Name   string          `json:"stock_name"`
}

// Transaction is an immutable ledger record of a BUY or SELL. Price is the
// settlement amount (instrument price x volume at processing time), not the
// per-share price. CreatedAt is server-assigned.
type Transaction struct {
	ID        uuid.UUID       `json:"id"`
	Account   string          `json:"user"`   // Foreign key to Account
	Ticker    string          `json:"ticker"` // Foreign key to Instrument
	Kind      TransactionKind `json:"transaction_type"`
	Volume    decimal.Decimal `json:"transaction_volume"`
	Price     decimal.Decimal `json:"transaction_price"`
	CreatedAt time.Time       `json:"created_time"`
}
