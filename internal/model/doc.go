// Package model defines shared data types used across the exchange API.
//
// Conventions:
//   - Money and volumes: decimal.Decimal (NUMERIC in Postgres), never floats
//   - Timestamps: time.Time in UTC
//   - IDs: string usernames/tickers for natural keys, uuid.UUID for
//     transaction and credential IDs
//
// JSON tags mirror the public API field names (ticker, stock_price,
// transaction_volume, ...), so handlers marshal these types directly.
package model
