// Package password implements credential hashing with Argon2id in PHC string
// format. Every hash embeds a fresh random salt, so hashing the same input
// twice yields different strings; verification recomputes with the embedded
// parameters and compares in constant time.
package password
