// Package requirement implements PEP 508 dependency requirement parsing,
// display, and environment-marker evaluation, built on top of the version
// package's PEP 440 model.
package requirement

import (
	"regexp"
	"strings"

	"github.com/pkgforge/pkgforge/version"
)

// nameRe validates a package or extra name per PEP 508's name grammar:
// alphanumeric at both ends, with dots, dashes, and underscores permitted
// in between. A one-rune alternative covers real-world single-letter
// package names (e.g. "a" on PyPI).
var nameRe = regexp.MustCompile(`(?i)^(?:[A-Z0-9]|[A-Z0-9][A-Z0-9._-]*[A-Z0-9])$`)

// ValidName reports whether s is a legal PEP 508 package or extra name.
func ValidName(s string) bool { return nameRe.MatchString(s) }

// Requirement is a parsed PEP 508 dependency requirement.
type Requirement struct {
	name          string
	extras        []string
	specifiers    version.Specifiers
	hasSpecifiers bool
	url           string
	hasURL        bool
	marker        *MarkerTree
	origin        string
}

// New constructs a Requirement directly (rather than via parsing), validating
// the name and extras against the PEP 508 name grammar.
func New(name string, extras []string) (Requirement, error) {
	if !ValidName(name) {
		return Requirement{}, newParseError(name, 0, len(name), "invalid package name")
	}
	for _, e := range extras {
		if !ValidName(e) {
			return Requirement{}, newParseError(e, 0, len(e), "invalid extra name")
		}
	}
	return Requirement{name: NormalizeName(name), extras: append([]string(nil), extras...)}, nil
}

// NormalizeName lower-cases and collapses runs of `-`, `_`, `.` to a single
// `-`, matching PEP 503's package-name normalization (the de facto
// normalization PEP 508 tooling applies for comparison purposes).
func NormalizeName(name string) string {
	var b strings.Builder
	lastSep := false
	for _, r := range strings.ToLower(name) {
		if r == '-' || r == '_' || r == '.' {
			if !lastSep {
				b.WriteByte('-')
			}
			lastSep = true
			continue
		}
		lastSep = false
		b.WriteRune(r)
	}
	return b.String()
}

// Name returns the (already-normalized) package name.
func (r Requirement) Name() string { return r.name }

// Extras returns the requested extras in display order.
func (r Requirement) Extras() []string { return append([]string(nil), r.extras...) }

// Specifiers returns the version constraint and whether one is present.
func (r Requirement) Specifiers() (version.Specifiers, bool) { return r.specifiers, r.hasSpecifiers }

// URL returns the direct URL constraint and whether one is present.
func (r Requirement) URL() (string, bool) { return r.url, r.hasURL }

// Marker returns the marker tree and whether one is present.
func (r Requirement) Marker() (MarkerTree, bool) {
	if r.marker == nil {
		return MarkerTree{}, false
	}
	return *r.marker, true
}

// Origin returns opaque caller-supplied diagnostic info (e.g. "from
// requirements.txt line 12"), empty if never set.
func (r Requirement) Origin() string { return r.origin }

// WithOrigin returns a copy of r with Origin set.
func (r Requirement) WithOrigin(origin string) Requirement {
	r.origin = origin
	return r
}

// Evaluate reports whether the requirement's marker (if any) is satisfied
// by env and activeExtras. A requirement with no marker always evaluates
// to true.
func (r Requirement) Evaluate(env MarkerEnvironment, activeExtras map[string]bool) bool {
	if r.marker == nil {
		return true
	}
	return r.marker.Evaluate(env, activeExtras)
}

// String renders the requirement in canonical PEP 508 form:
// "name[extra1,extra2] <constraint> ; <marker>" or
// "name[...] @ <url> ; <marker>".
func (r Requirement) String() string {
	var b strings.Builder
	b.WriteString(r.name)
	if len(r.extras) > 0 {
		b.WriteByte('[')
		b.WriteString(strings.Join(r.extras, ","))
		b.WriteByte(']')
	}
	switch {
	case r.hasURL:
		b.WriteString(" @ ")
		b.WriteString(r.url)
	case r.hasSpecifiers && r.specifiers.Len() > 0:
		b.WriteByte(' ')
		b.WriteString(specifiersDisplay(r.specifiers))
	}
	if r.marker != nil {
		b.WriteString(" ; ")
		b.WriteString(markerDisplay(*r.marker))
	}
	return b.String()
}

// specifiersDisplay renders the specifier set with ", " joining, the
// conventional PEP 508 display form.
func specifiersDisplay(s version.Specifiers) string {
	items := s.Items()
	parts := make([]string, len(items))
	for i, it := range items {
		parts[i] = it.String()
	}
	return strings.Join(parts, ", ")
}

func markerDisplay(t MarkerTree) string {
	switch t.kind {
	case markerExpr:
		e := t.expr
		if e.Swapped {
			return "'" + e.Value + "' " + e.Op.String() + " " + e.Key
		}
		return e.Key + " " + e.Op.String() + " '" + e.Value + "'"
	case markerAnd:
		parts := make([]string, len(t.children))
		for i, c := range t.children {
			parts[i] = markerDisplay(c)
			if c.kind == markerOr {
				parts[i] = "(" + parts[i] + ")"
			}
		}
		return strings.Join(parts, " and ")
	case markerOr:
		parts := make([]string, len(t.children))
		for i, c := range t.children {
			parts[i] = "(" + markerDisplay(c) + ")"
		}
		return strings.Join(parts, " or ")
	default:
		return ""
	}
}

// MarshalText implements encoding.TextMarshaler, letting Requirement values
// drop directly into a caller's json/toml struct without this module
// depending on either encoding package.
func (r Requirement) MarshalText() ([]byte, error) {
	return []byte(r.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (r *Requirement) UnmarshalText(text []byte) error {
	parsed, err := Parse(string(text))
	if err != nil {
		return err
	}
	*r = parsed
	return nil
}
