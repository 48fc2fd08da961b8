// Package jwt issues and verifies the signed access tokens used by authcore.
// Tokens are stateless: Parse checks signature and expiry only and never
// consults the session store, so revocation has to be enforced by whoever
// holds the session records.
package jwt
