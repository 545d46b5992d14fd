package auth

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeNetrc(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "netrc")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestNetrcLookupByMachine(t *testing.T) {
	path := writeNetrc(t, `
machine pkg.example login alice password s3cret
machine other.example login bob password hunter2
`)
	n := NewNetrcEnabled(path, nil)

	creds, ok := n.Lookup("pkg.example")
	require.True(t, ok)
	name, _ := creds.Username.Get()
	pw, _ := creds.Password.Get()
	assert.Equal(t, "alice", name)
	assert.Equal(t, "s3cret", pw)

	_, ok = n.Lookup("missing.example")
	assert.False(t, ok)
}

func TestNetrcDefaultFallback(t *testing.T) {
	path := writeNetrc(t, `
machine pkg.example login alice password s3cret
default login anon password anonpw
`)
	n := NewNetrcEnabled(path, nil)

	creds, ok := n.Lookup("anything.example")
	require.True(t, ok)
	name, _ := creds.Username.Get()
	assert.Equal(t, "anon", name)
}

func TestNetrcAutomaticLoadsLazily(t *testing.T) {
	path := writeNetrc(t, `machine pkg.example login alice password s3cret`)
	n := NewNetrcAutomatic(path, nil)
	assert.Nil(t, n.entries, "automatic mode must not parse before first lookup")

	_, ok := n.Lookup("pkg.example")
	assert.True(t, ok)
	assert.NotNil(t, n.entries)
}

func TestNetrcDisabledNeverMatches(t *testing.T) {
	n := NetrcDisabled()
	_, ok := n.Lookup("pkg.example")
	assert.False(t, ok)
}

func TestNetrcMissingFileTreatedAsAbsent(t *testing.T) {
	n := NewNetrcEnabled(filepath.Join(t.TempDir(), "does-not-exist"), nil)
	_, ok := n.Lookup("pkg.example")
	assert.False(t, ok)
}

func TestRealmIncludesPort(t *testing.T) {
	a := RealmFromURL(mustURL(t, "http://localhost:8000/simple/"))
	b := RealmFromURL(mustURL(t, "http://localhost/simple/"))
	assert.NotEqual(t, a, b, "an explicit port is a distinct realm")
	assert.Equal(t, "http://localhost:8000", a.String())
	assert.Equal(t, "http://localhost", b.String())
}
