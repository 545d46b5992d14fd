package version

import "strings"

// Pattern is a version string that may carry a trailing `.*` wildcard, as
// used on the right-hand side of `==`/`!=` specifiers (e.g. "2.1.*"). A
// wildcard pattern may not also specify a pre/post/dev segment or a local
// label: PEP 440 forbids "2.1.*.dev1" and "1.0.*+local" outright.
type Pattern struct {
	version    Version
	isWildcard bool
}

// ParsePattern parses a version pattern, accepting an optional trailing
// ".*". When wildcard is present, v.Version() holds the version formed by
// the segments preceding the star.
func ParsePattern(s string) (Pattern, error) {
	trimmed := strings.TrimSpace(s)
	wildcard := strings.HasSuffix(trimmed, ".*")
	body := trimmed
	if wildcard {
		body = strings.TrimSuffix(trimmed, ".*")
	}
	v, err := Parse(body)
	if err != nil {
		return Pattern{}, err
	}
	if wildcard && (v.preSet || v.postSet || v.devSet || len(v.local) > 0) {
		return Pattern{}, newParseError(s, 0, len(s),
			"wildcard version pattern may not include a pre/post/dev segment or local label")
	}
	return Pattern{version: v, isWildcard: wildcard}, nil
}

// NewPattern constructs a non-wildcard pattern wrapping v, for callers that
// already hold a parsed Version (e.g. marker evaluation's `~=` operator).
func NewPattern(v Version) Pattern {
	return Pattern{version: v}
}

// Version returns the concrete version component of the pattern (the part
// preceding ".*", if any).
func (p Pattern) Version() Version { return p.version }

// IsWildcard reports whether the pattern ends in ".*".
func (p Pattern) IsWildcard() bool { return p.isWildcard }

// String renders the pattern in canonical form.
func (p Pattern) String() string {
	if p.isWildcard {
		return p.version.String() + ".*"
	}
	return p.version.String()
}

// matchesPrefix reports whether candidate's release tuple (and epoch)
// matches this pattern's release tuple as a prefix, used by `==`/`!=`
// wildcard matching. Trailing zero-trimming does not apply here: wildcard
// prefix matching is segment-literal, per PEP 440.
func (p Pattern) matchesPrefix(candidate Version) bool {
	if candidate.epoch != p.version.epoch {
		return false
	}
	if len(candidate.release) < len(p.version.release) {
		return false
	}
	for i, seg := range p.version.release {
		if candidate.release[i] != seg {
			return false
		}
	}
	return true
}
