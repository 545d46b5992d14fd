package auth

import (
	"fmt"
	"net/url"
)

// Username is a newtype around an optional username: the zero value means
// "no username requested", distinct from an explicit empty string.
type Username struct {
	name    string
	present bool
}

// NoUsername is the "no username requested" value.
var NoUsername = Username{}

// NewUsername wraps name as a present username.
func NewUsername(name string) Username { return Username{name: name, present: true} }

// Get returns the username text and whether one is present.
func (u Username) Get() (string, bool) { return u.name, u.present }

// String renders the username for logging, "<none>" when absent.
func (u Username) String() string {
	if !u.present {
		return "<none>"
	}
	return u.name
}

// Password is an optional password value.
type Password struct {
	secret  string
	present bool
}

// NoPassword is the "no password" value.
var NoPassword = Password{}

// NewPassword wraps secret as a present password.
func NewPassword(secret string) Password { return Password{secret: secret, present: true} }

// Get returns the password text and whether one is present. Deliberately
// named Get rather than exposing a String method, so a stray %v/%s format
// verb never leaks a secret into a log line.
func (p Password) Get() (string, bool) { return p.secret, p.present }

// Credentials is an (optional username, optional password) pair attached
// to a request or discovered from a credential source.
type Credentials struct {
	Username Username
	Password Password
}

// HasPassword reports whether c carries a password.
func (c Credentials) HasPassword() bool { return c.Password.present }

// HasUsername reports whether c carries a username.
func (c Credentials) HasUsername() bool { return c.Username.present }

// Empty reports whether c carries neither a username nor a password.
func (c Credentials) Empty() bool { return !c.HasUsername() && !c.HasPassword() }

// Realm is the (scheme, host, port) scope credentials are reused across.
// Port is significant: "localhost:8000" and "localhost" are distinct
// realms.
type Realm struct {
	Scheme string
	Host   string
	Port   string // empty means "no explicit port in the URL"
}

// RealmFromURL derives a Realm from u.
func RealmFromURL(u *url.URL) Realm {
	return Realm{Scheme: u.Scheme, Host: u.Hostname(), Port: u.Port()}
}

// String renders the realm as "scheme://host:port" (or "scheme://host" when
// Port is empty), used for log lines and as a cache-key component.
func (r Realm) String() string {
	if r.Port == "" {
		return fmt.Sprintf("%s://%s", r.Scheme, r.Host)
	}
	return fmt.Sprintf("%s://%s:%s", r.Scheme, r.Host, r.Port)
}

// requestCredentialsFromURL extracts any credentials already present on
// the request's URL userinfo.
func requestCredentialsFromURL(u *url.URL) Credentials {
	if u.User == nil {
		return Credentials{}
	}
	var creds Credentials
	if name := u.User.Username(); name != "" {
		creds.Username = NewUsername(name)
	}
	if pw, ok := u.User.Password(); ok {
		creds.Password = NewPassword(pw)
	}
	return creds
}
