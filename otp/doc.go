// Package otp generates and consumes short-lived one-time codes.
//
// A [Service] is configured with an alphabet, length, and TTL, and backed
// by a pluggable [Store]. Codes are stored hashed and are strictly single
// use: a successful Consume deletes the record, and repeated mismatches
// burn it. The engine runs two services, one for login challenges keyed by
// user ID and one for password resets keyed by email.
package otp
