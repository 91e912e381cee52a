// Package database provides the PostgreSQL connection pool and schema
// bootstrap for the exchange API.
//
// One database holds everything: credentials (auth_users), balances
// (accounts), the instrument catalog (instruments), and the immutable
// transaction ledger (transactions).
package database
