package version

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustParse(t *testing.T, s string) Version {
	t.Helper()
	v, err := Parse(s)
	require.NoError(t, err)
	return v
}

func TestSpecifierEqualWildcard(t *testing.T) {
	spec, err := ParseSpecifier("==1.2.*")
	require.NoError(t, err)
	assert.True(t, spec.Contains(mustParse(t, "1.2.0")))
	assert.True(t, spec.Contains(mustParse(t, "1.2.9")))
	assert.False(t, spec.Contains(mustParse(t, "1.3.0")))
}

func TestSpecifierEqualIgnoresLocalWhenAbsent(t *testing.T) {
	spec, err := ParseSpecifier("==1.2.3")
	require.NoError(t, err)
	assert.True(t, spec.Contains(mustParse(t, "1.2.3+deadbeef")))

	specLocal, err := ParseSpecifier("==1.2.3+deadbeef")
	require.NoError(t, err)
	assert.False(t, specLocal.Contains(mustParse(t, "1.2.3+other")))
	assert.True(t, specLocal.Contains(mustParse(t, "1.2.3+deadbeef")))
}

func TestSpecifierNotEqual(t *testing.T) {
	spec, err := ParseSpecifier("!=1.2.*")
	require.NoError(t, err)
	assert.False(t, spec.Contains(mustParse(t, "1.2.5")))
	assert.True(t, spec.Contains(mustParse(t, "1.3.0")))
}

func TestSpecifierGreaterThanExcludesOwnPostRelease(t *testing.T) {
	spec, err := ParseSpecifier(">1.7")
	require.NoError(t, err)
	assert.False(t, spec.Contains(mustParse(t, "1.7")))
	assert.False(t, spec.Contains(mustParse(t, "1.7.post1")),
		"a post-release of the exact boundary version is excluded by exclusive >")
	assert.True(t, spec.Contains(mustParse(t, "1.7.1")))
	assert.True(t, spec.Contains(mustParse(t, "1.8")))
}

func TestSpecifierLessThanExcludesOwnPreRelease(t *testing.T) {
	spec, err := ParseSpecifier("<1.7")
	require.NoError(t, err)
	assert.False(t, spec.Contains(mustParse(t, "1.7a1")),
		"a pre-release of the exact boundary version is excluded by exclusive <")
	assert.True(t, spec.Contains(mustParse(t, "1.6.9")))
	assert.False(t, spec.Contains(mustParse(t, "1.7")))
}

func TestSpecifierLessThanExcludesOwnDevRelease(t *testing.T) {
	spec, err := ParseSpecifier("<3.1")
	require.NoError(t, err)
	assert.False(t, spec.Contains(mustParse(t, "3.1.dev0")),
		"a dev-release of the exact boundary version is excluded by exclusive <, same as a pre-release")
	assert.True(t, spec.Contains(mustParse(t, "3.0.dev0")),
		"a dev-release of an earlier release is still included")
}

func TestSpecifierLessThanAllowsOwnPreReleaseWhenSpecIsPreRelease(t *testing.T) {
	spec, err := ParseSpecifier("<3.1a1")
	require.NoError(t, err)
	assert.True(t, spec.Contains(mustParse(t, "3.1a0")),
		"the boundary-exclusion rule does not apply when the specifier itself is a pre-release")
}

func TestSpecifierCompatibleRelease(t *testing.T) {
	spec, err := ParseSpecifier("~=2.2")
	require.NoError(t, err)
	assert.True(t, spec.Contains(mustParse(t, "2.2")))
	assert.True(t, spec.Contains(mustParse(t, "2.3")))
	assert.False(t, spec.Contains(mustParse(t, "3.0")))
	assert.False(t, spec.Contains(mustParse(t, "2.1")))

	specFiner, err := ParseSpecifier("~=1.4.5")
	require.NoError(t, err)
	assert.True(t, specFiner.Contains(mustParse(t, "1.4.5")))
	assert.True(t, specFiner.Contains(mustParse(t, "1.4.9")))
	assert.False(t, specFiner.Contains(mustParse(t, "1.5.0")))
}

func TestSpecifierArbitraryEqual(t *testing.T) {
	spec, err := ParseSpecifier("===1.0-custom")
	require.NoError(t, err)
	assert.True(t, spec.Contains(Version{orig: "1.0-custom"}))
	assert.False(t, spec.Contains(Version{orig: "1.0"}))
}

func TestSpecifierRejectsWildcardForOrderedOperators(t *testing.T) {
	_, err := ParseSpecifier(">=1.0.*")
	require.Error(t, err)
}

func TestSpecifierRejectsShortCompatibleRelease(t *testing.T) {
	_, err := ParseSpecifier("~=1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "requires at least two segments in the release version")
}

func TestSpecifierCompatibleReleaseWithPostCandidates(t *testing.T) {
	spec, err := ParseSpecifier("~=1.0")
	require.NoError(t, err)
	assert.True(t, spec.Contains(mustParse(t, "1.0.1")))
	assert.True(t, spec.Contains(mustParse(t, "1.1")))
	assert.True(t, spec.Contains(mustParse(t, "1.1.post1")))
	assert.False(t, spec.Contains(mustParse(t, "2.0")))
	assert.False(t, spec.Contains(mustParse(t, "0.9")))
}

func TestSpecifierWildcardIncludesPostRelease(t *testing.T) {
	spec, err := ParseSpecifier("==1.1.*")
	require.NoError(t, err)
	assert.True(t, spec.Contains(mustParse(t, "1.1.post1")))
	assert.False(t, spec.Contains(mustParse(t, "1.2")))
}

func TestSpecifierGreaterThanPostReleaseBoundary(t *testing.T) {
	spec, err := ParseSpecifier(">3.1")
	require.NoError(t, err)
	assert.False(t, spec.Contains(mustParse(t, "3.1.post0")),
		"a post-release of the boundary itself is excluded")
	assert.True(t, spec.Contains(mustParse(t, "3.2.post0")),
		"a post-release of a later release is included")
}

func TestSpecifierLocalLabelConstruction(t *testing.T) {
	_, err := ParseSpecifier(">=1.0+5")
	require.Error(t, err, "ordered operators reject versions with local labels")

	spec, err := ParseSpecifier("==1.0+5")
	require.NoError(t, err)
	assert.True(t, spec.Contains(mustParse(t, "1.0+5")))
	assert.False(t, spec.Contains(mustParse(t, "1.0")))
	assert.False(t, spec.Contains(mustParse(t, "1.0+6")))
}

func TestSpecifierOrderedOperatorsStripCandidateLocal(t *testing.T) {
	le, err := ParseSpecifier("<=1.0")
	require.NoError(t, err)
	assert.True(t, le.Contains(mustParse(t, "1.0+5")),
		"the candidate's local label is ignored for ordered comparison")

	ge, err := ParseSpecifier(">=1.0")
	require.NoError(t, err)
	assert.True(t, ge.Contains(mustParse(t, "1.0+5")))
}

func TestSpecifiersConjunction(t *testing.T) {
	set, err := ParseSpecifiers(">=1.2,!=1.2.1,<2.0")
	require.NoError(t, err)
	assert.True(t, set.Contains(mustParse(t, "1.5.0")))
	assert.False(t, set.Contains(mustParse(t, "1.2.1")))
	assert.False(t, set.Contains(mustParse(t, "2.0")))
	assert.False(t, set.Contains(mustParse(t, "1.0")))
}

func TestSpecifiersEmptyMatchesAnything(t *testing.T) {
	set, err := ParseSpecifiers("")
	require.NoError(t, err)
	assert.True(t, set.Contains(mustParse(t, "0.0.1")))
}
