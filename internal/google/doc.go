// Package google holds the OAuth2 configuration and web flow for Google
// API access. Exchanged tokens live in the caller's session; this package
// never persists them.
package google
