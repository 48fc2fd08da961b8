// Package middleware exposes HTTP middleware built on Engine validation
// and the role checks.
//
// # Guards
//
//   - [Guard] — auto-selects the validation mode from Engine config.
//   - [RequireRoles] — Guard plus an exact role allow-list.
//   - [RequireLevel] — Guard plus a minimum role level.
//
// Each guard reads the Authorization header, calls Engine.Validate, applies
// the role requirement, and injects the verified identity into the request
// context for [AuthResultFromContext]. The client IP and User-Agent are
// attached to the request context first so session records and audit events
// carry them.
//
// This package translates HTTP semantics into Engine calls; it makes no
// authentication decision itself.
package middleware
