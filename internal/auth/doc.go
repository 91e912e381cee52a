// Package auth provides bearer-credential issuance and verification.
//
// Credentials are HS256-signed JWTs carrying the user id, username,
// issued-at, and a 24-hour expiry. Passwords are stored as bcrypt hashes.
// The credential store (auth users) is deliberately separate from the
// brokerage account table: registering grants API access, it does not open
// a balance-holding account.
package auth
