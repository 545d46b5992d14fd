package version

import (
	"fmt"
	"strings"
)

// Specifier is one `<operator><version>` clause of a PEP 440 specifier set,
// e.g. ">=1.2,!=1.2.1" is two Specifiers joined by Specifiers.
type Specifier struct {
	op      Operator
	pattern Pattern
}

// NewSpecifier validates and constructs a Specifier from an operator and a
// pattern, enforcing the PEP 440 construction invariants: wildcard patterns
// are only legal with `==`/`!=`; versions with local labels are only legal
// with `==`/`!=`/`===`; `~=` requires at least two release segments and
// forbids a wildcard; `===` forbids a wildcard.
func NewSpecifier(op Operator, pat Pattern) (Specifier, error) {
	if pat.IsWildcard() && !op.AllowsStar() {
		return Specifier{}, fmt.Errorf("operator %s does not accept a wildcard version", op)
	}
	if pat.Version().HasLocal() && !op.LocalCompatible() {
		return Specifier{}, fmt.Errorf("operator %s does not accept a version with a local label (+%s)", op, localDisplay(pat.Version().local))
	}
	if op == OpCompatible {
		if pat.IsWildcard() {
			return Specifier{}, fmt.Errorf("operator ~= does not accept a wildcard version")
		}
		if len(pat.Version().release) < 2 {
			return Specifier{}, fmt.Errorf("operator ~= requires at least two segments in the release version")
		}
	}
	if op == OpArbitraryEqual && pat.IsWildcard() {
		return Specifier{}, fmt.Errorf("operator === does not accept a wildcard version")
	}
	return Specifier{op: op, pattern: pat}, nil
}

func localDisplay(segs []LocalSegment) string {
	var b strings.Builder
	for i, seg := range segs {
		if i > 0 {
			b.WriteByte('.')
		}
		if seg.IsInt {
			fmt.Fprintf(&b, "%d", seg.Int)
		} else {
			b.WriteString(seg.Str)
		}
	}
	return b.String()
}

// ParseSpecifier parses a single "<op><version>" clause.
func ParseSpecifier(s string) (Specifier, error) {
	trimmed := strings.TrimSpace(s)
	op, rest, ok := parseOperator(trimmed)
	if !ok {
		return Specifier{}, newParseError(s, 0, len(s), "expected a comparison operator (==, !=, <=, >=, <, >, ~=, ===)")
	}
	rest = strings.TrimSpace(rest)
	if op == OpArbitraryEqual {
		// `===` compares the candidate's raw string form literally; the
		// right-hand side need not be a legal PEP 440 version at all, so it
		// is stored as-is rather than parsed.
		return Specifier{op: op, pattern: Pattern{version: Version{orig: rest}}}, nil
	}
	pat, err := ParsePattern(rest)
	if err != nil {
		return Specifier{}, err
	}
	return NewSpecifier(op, pat)
}

// Operator returns the specifier's comparison operator.
func (s Specifier) Operator() Operator { return s.op }

// Pattern returns the specifier's right-hand-side pattern.
func (s Specifier) Pattern() Pattern { return s.pattern }

// String renders the specifier in canonical form.
func (s Specifier) String() string {
	if s.op == OpArbitraryEqual {
		return s.op.String() + s.pattern.version.orig
	}
	return s.op.String() + s.pattern.String()
}

// Contains reports whether v satisfies this specifier, implementing PEP
// 440 §"Version specifiers" matching rules including the pre-release
// exclusion windows for `<`/`>` and the local-version-stripping rule for
// `==`/`!=`/`<=`/`>=`.
func (s Specifier) Contains(v Version) bool {
	switch s.op {
	case OpArbitraryEqual:
		return strings.TrimSpace(v.orig) == strings.TrimSpace(s.pattern.version.orig)
	case OpEqual:
		if s.pattern.IsWildcard() {
			return s.pattern.matchesPrefix(v)
		}
		return equalIgnoringLocalIfAbsent(v, s.pattern.version)
	case OpNotEqual:
		if s.pattern.IsWildcard() {
			return !s.pattern.matchesPrefix(v)
		}
		return !equalIgnoringLocalIfAbsent(v, s.pattern.version)
	case OpLessThanEqual:
		// Ordered operators never carry a local label themselves (rejected
		// at construction), so the candidate's label is always stripped.
		return Compare(v.WithoutLocal(), s.pattern.version) <= 0
	case OpGreaterEqual:
		return Compare(v.WithoutLocal(), s.pattern.version) >= 0
	case OpGreaterThan:
		return compareGreaterThan(v, s.pattern.version)
	case OpLessThan:
		return compareLessThan(v, s.pattern.version)
	case OpCompatible:
		return compareCompatible(v, s.pattern.version)
	default:
		return false
	}
}

// equalIgnoringLocalIfAbsent implements PEP 440's `==` matching rule: when
// the specifier's version carries no local label, the candidate's local
// label is ignored; when it does carry one, comparison is exact.
func equalIgnoringLocalIfAbsent(candidate, spec Version) bool {
	if len(spec.local) == 0 {
		return Compare(candidate.WithoutLocal(), spec) == 0
	}
	return Equal(candidate, spec)
}

// compareGreaterThan implements PEP 440's exclusive-ordered `>` rule: a
// post-release of the exact same release as the specifier is excluded
// (">1.7" does not match "1.7.post1"), and local versions are compared by
// their public (non-local) portion when deciding the boundary exclusion.
func compareGreaterThan(candidate, spec Version) bool {
	if Compare(candidate, spec) <= 0 {
		return false
	}
	if !spec.postSet && candidate.postSet && sameRelease(candidate, spec) {
		return false
	}
	if len(candidate.local) > 0 && samePublicVersion(candidate, spec) {
		return false
	}
	return true
}

// compareLessThan implements PEP 440's exclusive-ordered `<` rule: a
// pre-release (or dev-release) of the exact same release as the specifier
// is excluded ("<1.7" does not match "1.7a1", and does not match
// "1.7.dev0" either, since a dev release is pre-release-like for this
// rule), UNLESS the specifier itself is a pre-release, in which case the
// exclusion does not apply ("<3.1a1" must still match "3.1a0").
func compareLessThan(candidate, spec Version) bool {
	if Compare(candidate, spec) >= 0 {
		return false
	}
	if !isPreReleaseLike(spec) && isPreReleaseLike(candidate) && sameRelease(candidate, spec) {
		return false
	}
	return true
}

// isPreReleaseLike reports whether v is a pre-release or dev-release for
// the purposes of the `<`/`>` boundary-exclusion rules, which PEP 440
// treats identically for this purpose (`Version.is_prerelease` in
// pypa/packaging covers both `pre` and `dev`).
func isPreReleaseLike(v Version) bool {
	return v.preSet || v.devSet
}

// compareCompatible implements `~=`: equivalent to
// ">=V, ==<V with last release segment stripped>.*".
func compareCompatible(candidate, spec Version) bool {
	if Compare(candidate, spec) < 0 {
		return false
	}
	prefixLen := len(spec.release) - 1
	prefix := Pattern{version: Version{epoch: spec.epoch, release: append([]uint64(nil), spec.release[:prefixLen]...)}, isWildcard: true}
	return prefix.matchesPrefix(candidate)
}

func sameRelease(a, b Version) bool {
	return a.epoch == b.epoch && cmpReleaseTuple(trimmedRelease(a.release), trimmedRelease(b.release)) == 0
}

func samePublicVersion(a, b Version) bool {
	pa, pb := a, b
	pa.local, pb.local = nil, nil
	return Compare(pa, pb) == 0
}
