// Package httpapi is the HTTP transport for the exchange: route wiring,
// request decoding, the auth middleware, and the single place where domain
// errors become status codes. It also hosts the websocket trade feed.
package httpapi
