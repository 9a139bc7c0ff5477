// Package password provides password hashing and verification for finapp.
//
// New hashes are Argon2id in a PHC-like encoded string. Verification also
// accepts bcrypt hashes ("$2a$", "$2b$", "$2y$") carried over from accounts
// created before the Argon2id migration.
//
// Hash strings are untrusted input during Verify: malformed hashes and
// Argon2id parameters far above the configured cost are rejected.
package password
