package httpcache

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func buildPolicy(t *testing.T, reqHeaders, respHeaders http.Header, status int, reqTime, respTime time.Time) *CachePolicy {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, "https://pkg.example/foo", nil)
	for k, vs := range reqHeaders {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	b := NewCachePolicyBuilder(req, reqTime)
	resp := &http.Response{StatusCode: status, Header: respHeaders}
	if resp.Header == nil {
		resp.Header = http.Header{}
	}
	p, err := b.Build(DefaultCacheConfig(), resp, respTime)
	require.NoError(t, err)
	return p
}

func TestFreshWithinMaxAge(t *testing.T) {
	now := time.Now()
	respHeaders := http.Header{"Cache-Control": {"max-age=600"}, "Age": {"100"}}
	p := buildPolicy(t, nil, respHeaders, 200, now, now)
	require.True(t, p.IsStorable())
	assert.True(t, p.IsFresh(now.Add(100*time.Second), CacheControl{}))
}

func TestStaleAfterMaxAge(t *testing.T) {
	now := time.Now()
	respHeaders := http.Header{"Cache-Control": {"max-age=600"}, "Age": {"100"}, "ETag": {`"abc123"`}}
	p := buildPolicy(t, nil, respHeaders, 200, now, now)
	assert.False(t, p.IsFresh(now.Add(601*time.Second), CacheControl{}))

	req := httptest.NewRequest(http.MethodGet, "https://pkg.example/foo", nil)
	result := p.BeforeRequest(req, now.Add(601*time.Second))
	require.Equal(t, BeforeStale, result.Kind)
	assert.Equal(t, `"abc123"`, req.Header.Get("If-None-Match"))
}

func TestVaryMismatchYieldsStale(t *testing.T) {
	now := time.Now()
	reqHeaders := http.Header{"Accept": {"application/json"}}
	respHeaders := http.Header{"Cache-Control": {"max-age=600"}, "Vary": {"Accept"}}
	p := buildPolicy(t, reqHeaders, respHeaders, 200, now, now)

	req := httptest.NewRequest(http.MethodGet, "https://pkg.example/foo", nil)
	req.Header.Set("Accept", "text/html")
	result := p.BeforeRequest(req, now)
	assert.Equal(t, BeforeStale, result.Kind)
}

func TestVaryStarAlwaysStale(t *testing.T) {
	now := time.Now()
	respHeaders := http.Header{"Cache-Control": {"max-age=600"}, "Vary": {"*"}}
	p := buildPolicy(t, nil, respHeaders, 200, now, now)
	req := httptest.NewRequest(http.MethodGet, "https://pkg.example/foo", nil)
	result := p.BeforeRequest(req, now)
	assert.Equal(t, BeforeStale, result.Kind)
}

func TestNotModifiedMatchingETag(t *testing.T) {
	now := time.Now()
	old := buildPolicy(t, nil, http.Header{"Cache-Control": {"max-age=0"}, "ETag": {`"v1"`}}, 200, now, now)
	req := httptest.NewRequest(http.MethodGet, "https://pkg.example/foo", nil)
	b := NewCachePolicyBuilder(req, now)
	newResp := &http.Response{StatusCode: http.StatusNotModified, Header: http.Header{"ETag": {`"v1"`}}}
	kind, policy, err := AfterResponse(old, b, DefaultCacheConfig(), newResp, now)
	require.NoError(t, err)
	assert.Equal(t, NotModified, kind)
	assert.Equal(t, 200, policy.ResponseStatus)
}

func TestModifiedOnDifferentETag(t *testing.T) {
	now := time.Now()
	old := buildPolicy(t, nil, http.Header{"Cache-Control": {"max-age=0"}, "ETag": {`"v1"`}}, 200, now, now)
	req := httptest.NewRequest(http.MethodGet, "https://pkg.example/foo", nil)
	b := NewCachePolicyBuilder(req, now)
	newResp := &http.Response{StatusCode: http.StatusNotModified, Header: http.Header{"ETag": {`"v2"`}}}
	kind, _, err := AfterResponse(old, b, DefaultCacheConfig(), newResp, now)
	require.NoError(t, err)
	assert.Equal(t, Modified, kind)
}

func TestImmutableSuppressesNoCache(t *testing.T) {
	now := time.Now()
	p := buildPolicy(t, nil, http.Header{"Cache-Control": {"max-age=600,immutable"}}, 200, now, now)
	reqCC := CacheControl{NoCache: true}
	assert.True(t, p.IsFresh(now.Add(10*time.Second), reqCC))
}

func TestArchiveRoundTrip(t *testing.T) {
	now := time.Now()
	p := buildPolicy(t, nil, http.Header{"Cache-Control": {"max-age=600"}, "ETag": {`"xyz"`}}, 200, now, now)
	buf := p.Archive()
	archived, err := ParseArchived(buf)
	require.NoError(t, err)
	assert.Equal(t, p.RequestURI, archived.URI())
	assert.Equal(t, p.ResponseStatus, archived.ResponseStatus())
	val, weak, present := archived.ETag()
	assert.True(t, present)
	assert.False(t, weak)
	assert.Equal(t, "xyz", string(val))
}

func TestStorabilityRequiresCacheabilitySignal(t *testing.T) {
	now := time.Now()
	p := buildPolicy(t, nil, http.Header{}, 200, now, now)
	assert.True(t, p.IsStorable(), "200 is in the heuristically cacheable set")

	p2 := buildPolicy(t, nil, http.Header{}, 418, now, now)
	assert.False(t, p2.IsStorable())
}
