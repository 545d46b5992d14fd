package version

import (
	"sort"
	"strings"
)

// Specifiers is a comma-joined, conjunctive set of Specifier clauses, e.g.
// ">=1.2,!=1.2.1,<2.0". A version satisfies a Specifiers set only if it
// satisfies every clause.
type Specifiers struct {
	items []Specifier
}

// ParseSpecifiers parses a comma-separated specifier set. Whitespace
// around commas and within clauses is permitted, matching PEP 508's
// version-spec grammar.
func ParseSpecifiers(s string) (Specifiers, error) {
	if strings.TrimSpace(s) == "" {
		return Specifiers{}, nil
	}
	var items []Specifier
	offset := 0
	for _, part := range strings.Split(s, ",") {
		clause := strings.TrimSpace(part)
		if clause == "" {
			return Specifiers{}, newParseError(s, offset, len(part), "empty specifier clause")
		}
		spec, err := ParseSpecifier(clause)
		if err != nil {
			if pe, ok := err.(*ParseError); ok {
				pe.Input = s
				pe.Offset = offset + strings.Index(part, strings.TrimLeft(part, " "))
			}
			return Specifiers{}, err
		}
		items = append(items, spec)
		offset += len(part) + 1
	}
	sortSpecifiers(items)
	return Specifiers{items: items}, nil
}

// sortSpecifiers orders clauses deterministically for String() output: by
// version, then by operator as a tie-break. This has no effect on matching
// semantics, only on canonical display.
func sortSpecifiers(items []Specifier) {
	sort.SliceStable(items, func(i, j int) bool {
		if c := Compare(items[i].pattern.version, items[j].pattern.version); c != 0 {
			return c < 0
		}
		return items[i].op < items[j].op
	})
}

// Items returns the specifier clauses in canonical sorted order.
func (s Specifiers) Items() []Specifier {
	out := make([]Specifier, len(s.items))
	copy(out, s.items)
	return out
}

// Contains reports whether v satisfies every clause in the set. An empty
// set is satisfied by any version.
func (s Specifiers) Contains(v Version) bool {
	for _, item := range s.items {
		if !item.Contains(v) {
			return false
		}
	}
	return true
}

// String renders the set in canonical comma-joined form.
func (s Specifiers) String() string {
	parts := make([]string, len(s.items))
	for i, item := range s.items {
		parts[i] = item.String()
	}
	return strings.Join(parts, ",")
}

// Len returns the number of clauses in the set.
func (s Specifiers) Len() int { return len(s.items) }
