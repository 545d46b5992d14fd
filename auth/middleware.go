package auth

import (
	"net/http"
	"net/url"

	"github.com/pkg/errors"
)

// URLPolicy controls whether a URL's requests ever carry discovered
// credentials.
type URLPolicy uint8

const (
	// PolicyDefault discovers credentials only after an unauthenticated
	// probe comes back 401/403/404.
	PolicyDefault URLPolicy = iota
	// PolicyAlways requires credentials; discovery runs unconditionally
	// and a request with none found fails rather than going out bare.
	PolicyAlways
	// PolicyNever strips any credentials present on the request and
	// never attempts discovery.
	PolicyNever
)

// ErrMissingCredentials is returned when a policy requires credentials
// and none could be discovered.
var ErrMissingCredentials = errors.New("auth: missing credentials")

var unauthenticatedProbeStatuses = map[int]bool{
	http.StatusUnauthorized: true,
	http.StatusForbidden:    true,
	http.StatusNotFound:     true,
}

// Middleware is a net/http.RoundTripper that attaches the right
// credentials to each outgoing request: credentials already on the URL are
// completed from the cache, bare requests are probed unauthenticated
// first, and discovery (cache, netrc, keyring) runs only once a request
// actually needs credentials.
type Middleware struct {
	// Transport is the underlying round tripper; defaults to
	// http.DefaultTransport when nil.
	Transport http.RoundTripper
	// Cache is the shared credentials cache; required.
	Cache *Cache
	// Netrc is consulted during discovery; nil is equivalent to
	// NetrcDisabled().
	Netrc *Netrc
	// Keyring is consulted during discovery, only when a username is
	// known; nil is equivalent to DisabledKeyring.
	Keyring KeyringProvider
	// OnlyAuthenticated fails any request for which discovery finds no
	// credentials, regardless of per-URL policy.
	OnlyAuthenticated bool

	policies map[string]URLPolicy
}

// NewMiddleware constructs a Middleware backed by transport (or
// http.DefaultTransport if nil) and cache.
func NewMiddleware(transport http.RoundTripper, cache *Cache) *Middleware {
	return &Middleware{Transport: transport, Cache: cache, policies: make(map[string]URLPolicy)}
}

// SetPolicy records the auth policy for requests whose URL host matches
// host exactly.
func (m *Middleware) SetPolicy(host string, policy URLPolicy) {
	if m.policies == nil {
		m.policies = make(map[string]URLPolicy)
	}
	m.policies[host] = policy
}

func (m *Middleware) policyFor(u *url.URL) URLPolicy {
	return m.policies[u.Hostname()]
}

func (m *Middleware) transport() http.RoundTripper {
	if m.Transport != nil {
		return m.Transport
	}
	return http.DefaultTransport
}

// RoundTrip implements http.RoundTripper.
func (m *Middleware) RoundTrip(req *http.Request) (*http.Response, error) {
	policy := m.policyFor(req.URL)
	reqCreds := requestCredentialsFromURL(req.URL)

	if policy == PolicyNever {
		return m.transport().RoundTrip(stripCredentials(req))
	}

	if reqCreds.HasPassword() {
		return m.sendWithCredentials(req, reqCreds)
	}

	if reqCreds.HasUsername() {
		realm := RealmFromURL(req.URL)
		creds, ok := m.Cache.GetByRealm(realm, reqCreds.Username)
		if !ok {
			creds, ok = m.Cache.GetByURLPrefix(stripURLCredentials(req.URL).String())
		}
		if !ok {
			creds, ok = m.discover(req, realm, reqCreds.Username)
		}
		if !ok {
			return m.missingOrBare(req, policy)
		}
		merged := Credentials{Username: reqCreds.Username, Password: creds.Password}
		return m.sendWithCredentials(req, merged)
	}

	if policy != PolicyAlways {
		if creds, ok := m.Cache.GetByURLPrefix(req.URL.String()); ok && creds.HasPassword() {
			return m.sendWithCredentials(req, creds)
		}
		resp, err := m.transport().RoundTrip(cloneRequest(req))
		if err != nil {
			return resp, err
		}
		if !unauthenticatedProbeStatuses[resp.StatusCode] {
			return resp, nil
		}
		resp.Body.Close()
	}

	realm := RealmFromURL(req.URL)
	creds, ok := m.Cache.GetByRealm(realm, NoUsername)
	if !ok {
		creds, ok = m.discover(req, realm, NoUsername)
	}
	if !ok {
		return m.missingOrBare(req, policy)
	}
	return m.sendWithCredentials(req, creds)
}

func (m *Middleware) missingOrBare(req *http.Request, policy URLPolicy) (*http.Response, error) {
	if m.OnlyAuthenticated || policy == PolicyAlways {
		return nil, ErrMissingCredentials
	}
	return m.transport().RoundTrip(cloneRequest(req))
}

func (m *Middleware) sendWithCredentials(req *http.Request, creds Credentials) (*http.Response, error) {
	resp, err := m.transport().RoundTrip(applyCredentials(req, creds))
	if err == nil && resp.StatusCode/100 == 2 {
		// Key the cache by the credential-free URL so later bare requests
		// to the same index hit it.
		m.Cache.PutURL(stripURLCredentials(req.URL).String(), creds)
	}
	return resp, err
}

// discover runs the realm-cache-then-netrc-then-keyring lookup chain for
// (realm, username), coalesced through m.Cache.Discover so concurrent
// callers for the same key share one outcome and a memoized result, found
// or not, short-circuits the fetch.
func (m *Middleware) discover(req *http.Request, realm Realm, username Username) (Credentials, bool) {
	u := stripURLCredentials(req.URL)
	ctx := req.Context()
	return m.Cache.Discover(realm, username, func() (Credentials, bool) {
		if m.Netrc != nil {
			if creds, ok := m.Netrc.Lookup(splitHostPort(req.URL.Host)); ok {
				wantName, wantPresent := username.Get()
				gotName, gotPresent := creds.Username.Get()
				if !wantPresent || (gotPresent && gotName == wantName) {
					return creds, true
				}
			}
		}
		if name, present := username.Get(); present && m.Keyring != nil {
			if pw, ok := m.Keyring.Fetch(ctx, u, username); ok {
				return Credentials{Username: NewUsername(name), Password: pw}, true
			}
		}
		return Credentials{}, false
	})
}

func cloneRequest(req *http.Request) *http.Request {
	clone := req.Clone(req.Context())
	clone.URL = stripURLCredentials(req.URL)
	return clone
}

func stripCredentials(req *http.Request) *http.Request {
	clone := req.Clone(req.Context())
	clone.URL = stripURLCredentials(req.URL)
	clone.Header.Del("Authorization")
	return clone
}

func applyCredentials(req *http.Request, creds Credentials) *http.Request {
	clone := req.Clone(req.Context())
	clone.URL = stripURLCredentials(req.URL)
	name, _ := creds.Username.Get()
	pw, _ := creds.Password.Get()
	clone.SetBasicAuth(name, pw)
	return clone
}

func stripURLCredentials(u *url.URL) *url.URL {
	stripped := *u
	stripped.User = nil
	return &stripped
}
