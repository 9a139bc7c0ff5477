// Package token provides the bearer-token primitives for finapp.
//
// It is the single source of truth for two things:
//   - Codec: minting and verifying signed, time-bound JWTs (HS256) for access
//     and refresh tokens. Codec is stateless and has no side effects.
//   - Digester: the keyed digest under which tokens are stored at rest.
//     Stores never see a plain token; equality of digests is equality of tokens.
//
// Digest modes:
//   - Production: HMAC-SHA256(token, key) when a digest key is configured.
//   - Development: SHA-256(token) when no key is configured.
//
// Both produce a stable 64-char hex string.
package token
