package exchange

import "errors"

// Domain errors. The transport layer translates these to status codes;
// anything not listed here surfaces as an internal error.
var (
	ErrAccountNotFound     = errors.New("account not found")
	ErrInstrumentNotFound  = errors.New("instrument not found")
	ErrDuplicateAccount    = errors.New("username already taken")
	ErrDuplicateInstrument = errors.New("ticker already exists")
	ErrInvalidKind         = errors.New("transaction type must be BUY or SELL")
	ErrInvalidVolume       = errors.New("transaction volume must be positive")
	ErrInvalidBalance      = errors.New("balance must not be negative")
	ErrInsufficientFunds   = errors.New("insufficient balance")
	ErrInvalidTimeRange    = errors.New("invalid time range")
)
