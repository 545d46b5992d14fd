package httpcache

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"
)

// Method is the distilled subset of HTTP methods this engine understands;
// anything else is Unrecognized and is never storable.
type Method uint8

const (
	MethodUnrecognized Method = iota
	MethodGet
	MethodHead
)

func methodOf(m string) Method {
	switch strings.ToUpper(m) {
	case http.MethodGet:
		return MethodGet
	case http.MethodHead:
		return MethodHead
	default:
		return MethodUnrecognized
	}
}

// ETag is a distilled entity tag. A weak ETag (the "W/" prefixed form)
// never participates in the strong-comparison rules this engine applies.
type ETag struct {
	Present bool
	Value   []byte
	Weak    bool
}

func (e ETag) strongEquals(o ETag) (equal, comparable bool) {
	if !e.Present || !o.Present {
		return false, false
	}
	if e.Weak || o.Weak {
		return false, false
	}
	return string(e.Value) == string(o.Value), true
}

// VaryEntry pins one response-time request header value for later
// comparison against a subsequent request's header of the same name.
type VaryEntry struct {
	Name  string
	Value string
}

// OptionalUnix is an optional UNIX-second timestamp.
type OptionalUnix struct {
	Present bool
	Seconds int64
}

// CacheConfig carries the two configuration knobs this engine's caller
// controls: whether the cache is shared (always false for a per-user
// package cache) and the heuristic freshness percentage.
type CacheConfig struct {
	Shared           bool
	HeuristicPercent int
}

// DefaultCacheConfig mirrors the original's CacheConfig::default().
func DefaultCacheConfig() CacheConfig {
	return CacheConfig{Shared: false, HeuristicPercent: 10}
}

// CachePolicy is the persisted record attached to each cached HTTP
// response. It is immutable once built.
type CachePolicy struct {
	Config CacheConfig

	RequestURI              string
	RequestMethod           Method
	RequestCacheControl     CacheControl
	RequestHasAuthorization bool
	RequestTime             int64

	ResponseStatus       int
	ResponseCacheControl CacheControl
	ResponseAge          OptionalUnix
	ResponseDate         OptionalUnix
	ResponseExpires      OptionalUnix
	ResponseLastModified OptionalUnix
	ResponseETag         ETag

	// Vary holds the request header snapshot pinned at cache time, one
	// entry per header named in the response's Vary list. VaryMatchesNone
	// is set when the response sent "Vary: *", which never matches any
	// subsequent request.
	Vary            []VaryEntry
	VaryMatchesNone bool
}

// HasFinalStatus reports whether the response carries a final (>= 200)
// status code; provisional 1xx responses are never storable.
func (p *CachePolicy) HasFinalStatus() bool { return p.ResponseStatus >= 200 }

var heuristicallyCacheableStatus = map[int]bool{
	200: true, 203: true, 204: true, 206: true, 300: true, 301: true,
	308: true, 404: true, 405: true, 410: true, 414: true, 501: true,
}

// IsStorable reports whether the response may be stored at all, per RFC
// 9111 §3: a final GET/HEAD response that is neither partial (206) nor a
// bare revalidation result (304), carries no no-store on either side,
// respects the shared-cache Authorization restrictions, and has at least
// one positive cacheability signal.
func (p *CachePolicy) IsStorable() bool {
	if p.RequestMethod != MethodGet && p.RequestMethod != MethodHead {
		return false
	}
	if !p.HasFinalStatus() {
		return false
	}
	if p.ResponseStatus == 206 || p.ResponseStatus == 304 {
		return false
	}
	if p.RequestCacheControl.NoStore || p.ResponseCacheControl.NoStore {
		return false
	}
	if p.Config.Shared {
		if p.ResponseCacheControl.Private {
			return false
		}
		if p.RequestHasAuthorization {
			permitsShared := p.ResponseCacheControl.MustRevalidate ||
				p.ResponseCacheControl.Public ||
				p.ResponseCacheControl.SMaxAge.Present
			if !permitsShared {
				return false
			}
		}
	}
	switch {
	case p.ResponseCacheControl.Public:
		return true
	case !p.Config.Shared && p.ResponseCacheControl.Private:
		return true
	case p.ResponseExpires.Present:
		return true
	case p.ResponseCacheControl.MaxAge.Present:
		return true
	case p.Config.Shared && p.ResponseCacheControl.SMaxAge.Present:
		return true
	case heuristicallyCacheableStatus[p.ResponseStatus]:
		return true
	default:
		return false
	}
}

// age computes the current age of the cached response at instant now, per
// RFC 9111 §4.2.3's age-calculation formula.
func (p *CachePolicy) age(now time.Time) int64 {
	responseTime := p.RequestTime // approximation when ResponseDate absent; refined below
	if p.ResponseDate.Present {
		responseTime = p.ResponseDate.Seconds
	}
	apparentAge := responseTime - p.dateOrRequestTime()
	if apparentAge < 0 {
		apparentAge = 0
	}
	var responseAge int64
	if p.ResponseAge.Present {
		responseAge = p.ResponseAge.Seconds
	}
	correctedAgeValue := responseAge + (responseTime - p.RequestTime)
	age := apparentAge
	if correctedAgeValue > age {
		age = correctedAgeValue
	}
	residentAge := now.Unix() - responseTime
	if residentAge < 0 {
		residentAge = 0
	}
	return age + residentAge
}

func (p *CachePolicy) dateOrRequestTime() int64 {
	if p.ResponseDate.Present {
		return p.ResponseDate.Seconds
	}
	return p.RequestTime
}

// freshnessLifetime computes how long the response may be served without
// revalidation, per RFC 9111 §4.2.1: s-maxage (shared caches only), then
// max-age, then Expires - Date, then the Last-Modified heuristic.
func (p *CachePolicy) freshnessLifetime() int64 {
	if p.Config.Shared && p.ResponseCacheControl.SMaxAge.Present {
		return p.ResponseCacheControl.SMaxAge.Seconds
	}
	if p.ResponseCacheControl.MaxAge.Present {
		return p.ResponseCacheControl.MaxAge.Seconds
	}
	if p.ResponseExpires.Present {
		lifetime := p.ResponseExpires.Seconds - p.dateOrRequestTime()
		if lifetime < 0 {
			return 0
		}
		return lifetime
	}
	if p.ResponseLastModified.Present {
		delta := p.dateOrRequestTime() - p.ResponseLastModified.Seconds
		if delta > 0 {
			return delta * int64(p.Config.HeuristicPercent) / 100
		}
	}
	return 0
}

// IsFresh decides whether the cached response may be served unmodified at
// now, including the immutable short-circuit (which ignores request-side
// no-cache/max-age/min-fresh entirely) and the max-stale allowance for
// responses without must-revalidate.
func (p *CachePolicy) IsFresh(now time.Time, reqCC CacheControl) bool {
	age := p.age(now)
	lifetime := p.freshnessLifetime()

	if !p.ResponseCacheControl.Immutable {
		if reqCC.NoCache {
			return false
		}
		if reqCC.MaxAge.Present && reqCC.MaxAge.Seconds < lifetime {
			lifetime = reqCC.MaxAge.Seconds
		}
		if reqCC.MinFresh.Present && age+reqCC.MinFresh.Seconds > lifetime {
			return false
		}
	}

	if age <= lifetime {
		return true
	}

	if !p.ResponseCacheControl.MustRevalidate {
		excess := age - lifetime
		if reqCC.MaxStaleUnlimited {
			return true
		}
		if reqCC.MaxStale.Present && excess <= reqCC.MaxStale.Seconds {
			return true
		}
	}
	return false
}

// Explain renders a human-readable dump of the freshness decision at now,
// for Debug-level logging and tests.
func (p *CachePolicy) Explain(now time.Time) string {
	age := p.age(now)
	lifetime := p.freshnessLifetime()
	return fmt.Sprintf("age=%ds freshness_lifetime=%ds fresh=%v storable=%v",
		age, lifetime, age <= lifetime, p.IsStorable())
}

// varyMatches reports whether the pinned Vary snapshot matches the headers
// of a new request.
func (p *CachePolicy) varyMatches(newHeaders http.Header) bool {
	if p.VaryMatchesNone {
		return false
	}
	for _, entry := range p.Vary {
		if newHeaders.Get(entry.Name) != entry.Value {
			return false
		}
	}
	return true
}

// CachePolicyBuilder snapshots a request's headers so that, once the
// matching response arrives, Build can pin the Vary-named header values
// and distill the response's own metadata.
type CachePolicyBuilder struct {
	uri              string
	method           Method
	cacheControl     CacheControl
	hasAuthorization bool
	requestTime      int64
	requestHeaders   http.Header
}

// NewCachePolicyBuilder snapshots req at requestTime.
func NewCachePolicyBuilder(req *http.Request, requestTime time.Time) *CachePolicyBuilder {
	return &CachePolicyBuilder{
		uri:              req.URL.String(),
		method:           methodOf(req.Method),
		cacheControl:     ParseCacheControl(req.Header),
		hasAuthorization: req.Header.Get("Authorization") != "",
		requestTime:      requestTime.Unix(),
		requestHeaders:   req.Header.Clone(),
	}
}

// Build produces a CachePolicy from the builder's request snapshot and
// resp's headers, received at responseTime.
func (b *CachePolicyBuilder) Build(cfg CacheConfig, resp *http.Response, responseTime time.Time) (*CachePolicy, error) {
	respCC := ParseCacheControl(resp.Header)

	p := &CachePolicy{
		Config:                  cfg,
		RequestURI:              b.uri,
		RequestMethod:           b.method,
		RequestCacheControl:     b.cacheControl,
		RequestHasAuthorization: b.hasAuthorization,
		RequestTime:             b.requestTime,
		ResponseStatus:          resp.StatusCode,
		ResponseCacheControl:    respCC,
		ResponseETag:            parseETag(resp.Header.Get("ETag")),
	}

	if age, ok := parseNonNegativeInt(resp.Header.Get("Age")); ok {
		p.ResponseAge = OptionalUnix{Present: true, Seconds: age}
	}
	if d, ok := parseHTTPDate(resp.Header.Get("Date")); ok {
		p.ResponseDate = OptionalUnix{Present: true, Seconds: d}
	} else {
		p.ResponseDate = OptionalUnix{Present: true, Seconds: responseTime.Unix()}
	}
	if expires := resp.Header.Get("Expires"); expires != "" {
		ts, ok := parseHTTPDate(expires)
		if !ok {
			ts = 0
		}
		p.ResponseExpires = OptionalUnix{Present: true, Seconds: ts}
	}
	if lm, ok := parseHTTPDate(resp.Header.Get("Last-Modified")); ok {
		p.ResponseLastModified = OptionalUnix{Present: true, Seconds: lm}
	}

	if vary := resp.Header.Values("Vary"); len(vary) > 0 {
		names := splitVaryNames(vary)
		for _, name := range names {
			if name == "*" {
				p.VaryMatchesNone = true
				p.Vary = nil
				break
			}
			p.Vary = append(p.Vary, VaryEntry{Name: name, Value: b.requestHeaders.Get(name)})
		}
	}

	return p, nil
}

func splitVaryNames(values []string) []string {
	var names []string
	for _, v := range values {
		for _, name := range strings.Split(v, ",") {
			name = strings.TrimSpace(name)
			if name != "" {
				names = append(names, name)
			}
		}
	}
	return names
}

func parseETag(raw string) ETag {
	if raw == "" {
		return ETag{}
	}
	weak := false
	if strings.HasPrefix(raw, "W/") {
		weak = true
		raw = raw[2:]
	}
	raw = strings.Trim(raw, `"`)
	return ETag{Present: true, Value: []byte(raw), Weak: weak}
}

func parseNonNegativeInt(s string) (int64, bool) {
	if s == "" {
		return 0, false
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil || n < 0 {
		return 0, false
	}
	return n, true
}

// parseHTTPDate parses the three date formats permitted by RFC 9110 for
// response Date/Expires/Last-Modified headers. A malformed value is
// reported as absent (ok=false), never a hard error; real-world servers
// emit malformed dates often enough that failing hard would be wrong.
func parseHTTPDate(s string) (int64, bool) {
	if s == "" {
		return 0, false
	}
	for _, layout := range []string{http.TimeFormat, time.RFC850, time.ANSIC} {
		if t, err := time.Parse(layout, s); err == nil {
			return t.Unix(), true
		}
	}
	return 0, false
}

// BeforeRequestKind enumerates the three outcomes of BeforeRequest.
type BeforeRequestKind uint8

const (
	BeforeNoMatch BeforeRequestKind = iota
	BeforeFresh
	BeforeStale
)

// BeforeRequestResult is the outcome of BeforeRequest; Builder is only set
// when Kind is BeforeStale.
type BeforeRequestResult struct {
	Kind    BeforeRequestKind
	Builder *CachePolicyBuilder
}

// BeforeRequest decides whether the cached response can serve newReq:
// Fresh (serve the cached body unmodified), Stale (newReq has been mutated
// in place into a revalidation request), or NoMatch (the cached policy
// cannot be used for this request at all). On BeforeStale the returned
// builder snapshots the mutated request for a later AfterResponse call.
func (p *CachePolicy) BeforeRequest(newReq *http.Request, now time.Time) BeforeRequestResult {
	if !p.IsStorable() {
		return BeforeRequestResult{Kind: BeforeNoMatch}
	}
	if p.RequestURI != newReq.URL.String() {
		return BeforeRequestResult{Kind: BeforeNoMatch}
	}
	m := methodOf(newReq.Method)
	if m != MethodGet && m != MethodHead {
		return BeforeRequestResult{Kind: BeforeNoMatch}
	}

	reqCC := ParseCacheControl(newReq.Header)

	if !p.varyMatches(newReq.Header) {
		p.addRevalidationHeaders(newReq)
		return BeforeRequestResult{Kind: BeforeStale, Builder: NewCachePolicyBuilder(newReq, now)}
	}
	if p.ResponseCacheControl.NoCache {
		p.addRevalidationHeaders(newReq)
		return BeforeRequestResult{Kind: BeforeStale, Builder: NewCachePolicyBuilder(newReq, now)}
	}
	if p.IsFresh(now, reqCC) {
		return BeforeRequestResult{Kind: BeforeFresh}
	}
	p.addRevalidationHeaders(newReq)
	return BeforeRequestResult{Kind: BeforeStale, Builder: NewCachePolicyBuilder(newReq, now)}
}

func (p *CachePolicy) addRevalidationHeaders(req *http.Request) {
	if p.ResponseETag.Present && !p.ResponseETag.Weak {
		req.Header.Set("If-None-Match", `"`+string(p.ResponseETag.Value)+`"`)
	}
	if req.Header.Get("If-Modified-Since") == "" && p.ResponseLastModified.Present {
		req.Header.Set("If-Modified-Since",
			time.Unix(p.ResponseLastModified.Seconds, 0).UTC().Format(http.TimeFormat))
	}
}

// AfterResponseKind enumerates the two outcomes of AfterResponse.
type AfterResponseKind uint8

const (
	Modified AfterResponseKind = iota
	NotModified
)

// AfterResponse interprets the revalidation response: NotModified when the
// server confirmed the cached body is still good (the new policy's status
// is patched back to the cached one), Modified when the status is not 304
// or the validators disagree.
func AfterResponse(old *CachePolicy, builder *CachePolicyBuilder, cfg CacheConfig, newResp *http.Response, responseTime time.Time) (AfterResponseKind, *CachePolicy, error) {
	newPolicy, err := builder.Build(cfg, newResp, responseTime)
	if err != nil {
		return Modified, nil, errors.Wrap(err, "httpcache: build response policy")
	}

	etagsDiffer := false
	if equal, comparable := old.ResponseETag.strongEquals(newPolicy.ResponseETag); comparable {
		etagsDiffer = !equal
	}
	lastModDiffer := old.ResponseLastModified.Present && newPolicy.ResponseLastModified.Present &&
		old.ResponseLastModified.Seconds != newPolicy.ResponseLastModified.Seconds

	if newResp.StatusCode != http.StatusNotModified || etagsDiffer || lastModDiffer {
		return Modified, newPolicy, nil
	}

	newPolicy.ResponseStatus = old.ResponseStatus
	return NotModified, newPolicy, nil
}
