// Package session owns finapp's session records.
//
// A session pairs one access token and one refresh token issued to a single
// login. Tokens are never stored in plaintext; rows carry keyed digests
// (see security/token.Digester) and every lookup compares digests.
//
// The package provides the Store contract with Postgres and in-memory
// implementations, the Registry that lists and revokes an account's
// sessions, and the Reaper that deletes sessions whose refresh token has
// expired.
package session
