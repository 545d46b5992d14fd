package auth

import (
	"context"
	"net/url"
)

// KeyringProvider is an external credential source consulted as the last
// resort in the discovery order (cache, then netrc, then keyring). Fetch
// returns found=false when the keyring has nothing for (u, username),
// never an error for a plain miss.
type KeyringProvider interface {
	Fetch(ctx context.Context, u *url.URL, username Username) (Password, bool)
}

// DisabledKeyring never returns a credential, used when no external
// keyring integration is configured.
type DisabledKeyring struct{}

func (DisabledKeyring) Fetch(ctx context.Context, u *url.URL, username Username) (Password, bool) {
	return Password{}, false
}

// StaticKeyring is a fixed table of passwords keyed by (url, username),
// useful for tests and for environments that provision credentials out of
// band (CI secrets, a mounted file) rather than through a live keyring
// daemon.
type StaticKeyring struct {
	entries map[staticKey]Password
}

type staticKey struct {
	url      string
	username string
}

// NewStaticKeyring builds a StaticKeyring from a url->username->password
// table.
func NewStaticKeyring() *StaticKeyring {
	return &StaticKeyring{entries: make(map[staticKey]Password)}
}

// Set records the password for (rawURL, username). rawURL must match the
// credential-free form of the request URL the middleware will look up.
func (k *StaticKeyring) Set(rawURL string, username Username, password Password) {
	k.entries[staticKey{rawURL, username.String()}] = password
}

func (k *StaticKeyring) Fetch(ctx context.Context, u *url.URL, username Username) (Password, bool) {
	p, ok := k.entries[staticKey{u.String(), username.String()}]
	return p, ok
}
