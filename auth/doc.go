// Package auth implements an authenticating HTTP middleware: it attaches
// the right credentials to each outgoing request to a package index,
// discovering them from an already-cached entry, a netrc file, or a
// keyring, and coalesces concurrent discovery for the same realm so only
// one external lookup runs at a time.
package auth
