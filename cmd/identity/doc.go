// Package identity is finapp's account collaborator boundary.
//
// The auth core never owns accounts; it reads them (identity, password hash,
// status), creates them on registration, and reactivates them on login.
// Directory is that boundary, with Postgres and in-memory implementations.
// PasswordVerifier adapts security/password to the credential-verification
// capability the core consumes.
package identity
