// Package session provides the Redis-backed session store.
//
// Each login creates a session record keyed by a random session ID, with
// two secondary indexes: a token-hash key for O(1) lookup during request
// validation, and a per-user set for listing and bulk revocation. Records
// carry an Active flag; revocation deactivates the record in place instead
// of deleting it, and the Redis TTL reclaims it once the token would have
// expired anyway.
package session
