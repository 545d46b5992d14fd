package httpcache

import (
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := OpenStore(filepath.Join(t.TempDir(), "http.db"), nil)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestStorePutGetRoundTrip(t *testing.T) {
	s := openTestStore(t)
	now := time.Now()

	req := httptest.NewRequest(http.MethodGet, "https://pkg.example/simple/requests/", nil)
	b := NewCachePolicyBuilder(req, now)
	resp := &http.Response{
		StatusCode: 200,
		Header:     http.Header{"Cache-Control": {"max-age=600"}, "ETag": {`"abc"`}},
	}
	policy, err := b.Build(DefaultCacheConfig(), resp, now)
	require.NoError(t, err)

	key := Key(http.MethodGet, req.URL.String())
	require.NoError(t, s.Put(key, policy))

	archived, err := s.Get(key)
	require.NoError(t, err)
	require.NotNil(t, archived)
	assert.Equal(t, policy.RequestURI, archived.URI())
	assert.Equal(t, 200, archived.ResponseStatus())
	assert.True(t, archived.IsFresh(now.Add(100*time.Second)))
	assert.False(t, archived.IsFresh(now.Add(700*time.Second)))
}

func TestStoreGetMiss(t *testing.T) {
	s := openTestStore(t)
	archived, err := s.Get(Key(http.MethodGet, "https://pkg.example/never-stored"))
	require.NoError(t, err)
	assert.Nil(t, archived)
}

func TestStoreDelete(t *testing.T) {
	s := openTestStore(t)
	now := time.Now()

	req := httptest.NewRequest(http.MethodGet, "https://pkg.example/simple/urllib3/", nil)
	b := NewCachePolicyBuilder(req, now)
	policy, err := b.Build(DefaultCacheConfig(), &http.Response{StatusCode: 200, Header: http.Header{}}, now)
	require.NoError(t, err)

	key := Key(http.MethodGet, req.URL.String())
	require.NoError(t, s.Put(key, policy))
	require.NoError(t, s.Delete(key))

	archived, err := s.Get(key)
	require.NoError(t, err)
	assert.Nil(t, archived)
}
