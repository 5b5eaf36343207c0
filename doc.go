// Package auth provides authentication primitives (JWT issuance and
// validation, refresh token rotation, stateful repositories, HTTP helpers)
// for password and social login flows.
//
// Token lifecycle:
//   - TokenService mints dual-key JWT pairs: access tokens and refresh tokens
//     are signed with distinct secrets so a leaked refresh key never validates
//     API traffic. Validation checks signature, expiry, and token kind in that
//     order.
//   - TokenIssuer couples the service with a tokenstore.Store so the current
//     refresh token per subject is tracked server side. Rotation is a
//     compare-and-swap: concurrent rotations of the same token produce exactly
//     one winner, replayed tokens are rejected, and store outages surface as
//     internal errors rather than authentication failures.
//
// Store strategies:
//   - tokenstore.New selects between a durable Bun table, an expiring Redis
//     cache, and a stateless mode that skips server side tracking entirely.
//     Stateless deployments give up revocation and replay detection in
//     exchange for zero storage.
//
// Activity sinks:
//   - ActivitySink is a light-weight audit emitter used by Auther to describe
//     login, registration, token refresh, logout, and password reset events.
//     Sinks run best-effort (errors are logged) so you can forward to a
//     database or queue without blocking authentication.
package auth
