package requirement

import (
	"testing"

	"github.com/pkgforge/pkgforge/version"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseSimple(t *testing.T) {
	r, err := Parse("requests")
	require.NoError(t, err)
	assert.Equal(t, "requests", r.Name())
	assert.Empty(t, r.Extras())
}

func TestParseExtrasAndSpecifiers(t *testing.T) {
	r, err := Parse("requests[security,socks]>=2.0,<3.0")
	require.NoError(t, err)
	assert.Equal(t, "requests", r.Name())
	assert.Equal(t, []string{"security", "socks"}, r.Extras())
	spec, ok := r.Specifiers()
	require.True(t, ok)
	assert.True(t, spec.Contains(mustVersion(t, "2.5")))
	assert.False(t, spec.Contains(mustVersion(t, "3.0")))
}

func TestParseURL(t *testing.T) {
	r, err := Parse("requests @ https://example.com/requests-2.0.tar.gz")
	require.NoError(t, err)
	url, ok := r.URL()
	require.True(t, ok)
	assert.Equal(t, "https://example.com/requests-2.0.tar.gz", url)
}

func TestParseBareURLRejected(t *testing.T) {
	_, err := Parse("./local/path")
	require.Error(t, err)
	_, err2 := Parse("https://example.com/foo.tar.gz")
	require.Error(t, err2)
}

func TestParseMarkerClause(t *testing.T) {
	r, err := Parse(`requests>=2.0; python_version >= '3.7' and sys_platform == 'linux'`)
	require.NoError(t, err)
	tree, ok := r.Marker()
	require.True(t, ok)

	env := MarkerEnvironment{PythonVersion: "3.9", SysPlatform: "linux"}
	assert.True(t, tree.Evaluate(env, nil))

	env2 := MarkerEnvironment{PythonVersion: "3.6", SysPlatform: "linux"}
	assert.False(t, tree.Evaluate(env2, nil))
}

func TestParseExtraMarker(t *testing.T) {
	r, err := Parse(`pytest; extra == 'test'`)
	require.NoError(t, err)
	tree, ok := r.Marker()
	require.True(t, ok)
	assert.True(t, tree.Evaluate(MarkerEnvironment{}, map[string]bool{"test": true}))
	assert.False(t, tree.Evaluate(MarkerEnvironment{}, map[string]bool{"docs": true}))
}

func TestStringRoundTrip(t *testing.T) {
	r, err := Parse("requests[security]>=2.0,<3.0")
	require.NoError(t, err)
	assert.Contains(t, r.String(), "requests[security]")
	assert.Contains(t, r.String(), ">=2.0")
}

func TestNormalizeName(t *testing.T) {
	assert.Equal(t, "my-pkg", NormalizeName("My_Pkg"))
	assert.Equal(t, "my-pkg", NormalizeName("my.pkg"))
}

func mustVersion(t *testing.T, s string) version.Version {
	t.Helper()
	v, err := version.Parse(s)
	require.NoError(t, err)
	return v
}
