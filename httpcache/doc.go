// Package httpcache implements an RFC 9111 HTTP cache-policy decision
// engine: given a cached response's distilled metadata and cache-control
// configuration, it decides whether a subsequent request may be served from
// cache, must be revalidated, or cannot use the cached entry at all.
//
// This package deliberately does not implement an HTTP cache itself (no
// body storage, no eviction policy); it only makes the freshness and
// storability decisions a cache would need, plus an archived on-disk form
// that can be read back without full deserialization.
package httpcache
