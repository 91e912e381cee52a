// Package exchange implements the core brokerage logic: the account and
// instrument registries, the transaction processor, and the storage
// interface behind them.
//
// The processor couples the balance mutation to the ledger insert: a BUY
// debits the account only if funds cover the settlement amount, a SELL
// credits unconditionally, and in both cases the balance update and the
// transaction record land as one atomic unit. Serialization scope is per
// account; transactions against different accounts never contend.
//
// Domain failures are package-level sentinel errors. Transport code maps
// them to status codes once; nothing in here knows about HTTP.
package exchange
