package auth

import (
	"sync"

	radix "github.com/armon/go-radix"
	"golang.org/x/sync/singleflight"
)

// entry is the value stored for both the Realm+Username map and the
// URL-prefix tree. found=false is a memoized negative result: "we already
// looked, there is nothing here", so repeated misses don't re-probe.
type entry struct {
	creds Credentials
	found bool
}

type realmKey struct {
	realm    Realm
	username Username
}

// Cache is the shared, mutably-updated credentials cache: entries keyed
// by URL (prefix-scoped, via a radix tree) and by Realm+Username, plus an
// in-flight group ensuring at most one external lookup runs per
// (Realm, Username) key concurrently.
type Cache struct {
	mu       sync.Mutex
	byURL    *radix.Tree
	byRealm  map[realmKey]entry
	inflight singleflight.Group
}

// NewCache constructs an empty credentials cache.
func NewCache() *Cache {
	return &Cache{
		byURL:   radix.New(),
		byRealm: make(map[realmKey]entry),
	}
}

// GetByURLPrefix returns the longest-prefix-matching cache entry for url,
// if any.
func (c *Cache) GetByURLPrefix(url string) (Credentials, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, v, ok := c.byURL.LongestPrefix(url); ok {
		e := v.(entry)
		return e.creds, e.found
	}
	return Credentials{}, false
}

// PutURL records creds (found=true) for exact URL url, giving subsequent
// requests to the same index a fast path.
func (c *Cache) PutURL(url string, creds Credentials) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.byURL.Insert(url, entry{creds: creds, found: true})
}

// GetByRealm returns the cached credentials for (realm, username), if any.
func (c *Cache) GetByRealm(realm Realm, username Username) (Credentials, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.byRealm[realmKey{realm, username}]
	if !ok {
		return Credentials{}, false
	}
	return e.creds, e.found
}

// realmEntry returns the raw cache entry for (realm, username), reporting
// whether any entry exists at all. Unlike GetByRealm, it distinguishes "no
// entry" from a memoized negative result, which Discover needs so a
// recorded miss suppresses re-fetching.
func (c *Cache) realmEntry(realm Realm, username Username) (entry, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.byRealm[realmKey{realm, username}]
	return e, ok
}

// PutRealm records creds for (realm, username). found=false is a deliberate
// negative memoization: "discovery already failed for this key", so later
// callers stop re-probing it.
func (c *Cache) PutRealm(realm Realm, username Username, creds Credentials, found bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.byRealm[realmKey{realm, username}] = entry{creds: creds, found: found}
}

// Discover runs fetch at most once per (realm, username) key, both under
// concurrent callers and across sequential ones. A recorded result, found
// or not, is served from the realm map without re-fetching, so a failed
// discovery stays memoized as a miss. On a cold key the first caller runs
// fetch and every concurrent caller for the same key blocks on its result;
// singleflight is the single-producer/many-consumer notifier here, in
// place of a hand-rolled channel-based one. The entry is re-checked inside
// the flight so a caller that lost the race to a just-completed fetch
// still sees its outcome rather than fetching again.
//
// Discover takes no context: a waiting caller is not released early when
// its own request is canceled, and a miss returned by fetch is memoized
// like any other, including one from a fetch cut short by cancellation.
func (c *Cache) Discover(realm Realm, username Username, fetch func() (Credentials, bool)) (Credentials, bool) {
	if e, ok := c.realmEntry(realm, username); ok {
		return e.creds, e.found
	}
	key := realm.String() + "\x00" + username.String()
	v, _, _ := c.inflight.Do(key, func() (interface{}, error) {
		if e, ok := c.realmEntry(realm, username); ok {
			return discoverResult{e.creds, e.found}, nil
		}
		creds, found := fetch()
		c.PutRealm(realm, username, creds, found)
		return discoverResult{creds, found}, nil
	})
	r := v.(discoverResult)
	return r.creds, r.found
}

type discoverResult struct {
	creds Credentials
	found bool
}
