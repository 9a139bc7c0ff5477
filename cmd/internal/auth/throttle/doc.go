// Package throttle implements login-failure backoff.
//
// Failures are counted per (ip, user agent, email). Each failure escalates a
// mandatory wait taken from a fixed backoff table; the caller surfaces that
// wait as Retry-After. A successful login clears every record for the
// (ip, email) pair.
package throttle
