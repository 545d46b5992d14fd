// Package version implements PEP 440 version parsing, comparison, and
// matching. Values are immutable once parsed.
package version

import (
	"regexp"
	"sort"
	"strconv"
	"strings"
)

// PreKind identifies the flavor of a pre-release tag.
type PreKind uint8

const (
	preNone PreKind = iota
	PreAlpha
	PreBeta
	PreRC
)

func (k PreKind) String() string {
	switch k {
	case PreAlpha:
		return "a"
	case PreBeta:
		return "b"
	case PreRC:
		return "rc"
	default:
		return ""
	}
}

// LocalSegment is one dot-separated piece of a local version label. Exactly
// one of Str or IsInt is meaningful: if IsInt, Int holds the numeric value;
// otherwise Str holds the lower-cased alphanumeric string.
type LocalSegment struct {
	IsInt bool
	Int   uint64
	Str   string
}

// Version is a parsed, immutable PEP 440 version.
type Version struct {
	epoch   uint64
	release []uint64
	preSet  bool
	preKind PreKind
	preNum  uint64
	postSet bool
	post    uint64
	devSet  bool
	dev     uint64
	local   []LocalSegment
	// original input, preserved for the `===` operator's string-equality
	// comparison and for rendering a `===` specifier; String renders the
	// parsed fields instead.
	orig string
}

var versionRe = regexp.MustCompile(`(?i)^\s*` +
	`v?` +
	`(?:(?P<epoch>[0-9]+)!)?` +
	`(?P<release>[0-9]+(?:\.[0-9]+)*)` +
	`(?P<pre>[-_.]?(?P<prel>(a|b|c|rc|alpha|beta|pre|preview))[-_.]?(?P<pren>[0-9]+)?)?` +
	`(?P<post>(?:-(?P<postn1>[0-9]+))|(?:[-_.]?(?:post|rev|r)[-_.]?(?P<postn2>[0-9]+)?))?` +
	`(?P<dev>[-_.]?dev[-_.]?(?P<devn>[0-9]+)?)?` +
	`(?:\+(?P<local>[a-z0-9]+(?:[-_.][a-z0-9]+)*))?` +
	`\s*$`)

// Parse parses a PEP 440 version string.
func Parse(s string) (Version, error) {
	m := versionRe.FindStringSubmatch(s)
	if m == nil {
		return Version{}, newParseError(s, 0, len(s), "invalid version: does not match PEP 440 grammar")
	}
	names := versionRe.SubexpNames()
	get := func(name string) string {
		for i, n := range names {
			if n == name {
				return m[i]
			}
		}
		return ""
	}

	v := Version{orig: s}

	if e := get("epoch"); e != "" {
		n, err := strconv.ParseUint(e, 10, 64)
		if err != nil {
			return Version{}, newParseError(s, 0, len(s), "invalid epoch")
		}
		v.epoch = n
	}

	relStr := get("release")
	for _, part := range strings.Split(relStr, ".") {
		n, err := strconv.ParseUint(part, 10, 64)
		if err != nil {
			return Version{}, newParseError(s, 0, len(s), "invalid release segment")
		}
		v.release = append(v.release, n)
	}

	if pre := get("prel"); pre != "" {
		v.preSet = true
		v.preKind = normalizePre(pre)
		if n := get("pren"); n != "" {
			num, _ := strconv.ParseUint(n, 10, 64)
			v.preNum = num
		}
	}

	if post := get("post"); post != "" {
		v.postSet = true
		if n := get("postn1"); n != "" {
			num, _ := strconv.ParseUint(n, 10, 64)
			v.post = num
		} else if n := get("postn2"); n != "" {
			num, _ := strconv.ParseUint(n, 10, 64)
			v.post = num
		}
	}

	if dev := get("dev"); dev != "" {
		v.devSet = true
		if n := get("devn"); n != "" {
			num, _ := strconv.ParseUint(n, 10, 64)
			v.dev = num
		}
	}

	if loc := get("local"); loc != "" {
		segs, err := parseLocal(loc)
		if err != nil {
			return Version{}, newParseError(s, 0, len(s), "invalid local version label")
		}
		v.local = segs
	}

	return v, nil
}

func parseLocal(raw string) ([]LocalSegment, error) {
	norm := strings.NewReplacer("-", ".", "_", ".").Replace(raw)
	parts := strings.Split(norm, ".")
	segs := make([]LocalSegment, 0, len(parts))
	for _, p := range parts {
		if p == "" {
			return nil, newParseError(raw, 0, len(raw), "empty local segment")
		}
		lower := strings.ToLower(p)
		if n, err := strconv.ParseUint(lower, 10, 64); err == nil {
			segs = append(segs, LocalSegment{IsInt: true, Int: n})
		} else {
			segs = append(segs, LocalSegment{Str: lower})
		}
	}
	return segs, nil
}

func normalizePre(tag string) PreKind {
	switch strings.ToLower(tag) {
	case "a", "alpha":
		return PreAlpha
	case "b", "beta":
		return PreBeta
	case "c", "rc", "pre", "preview":
		return PreRC
	}
	return preNone
}

// Epoch returns the version's epoch (0 if unspecified).
func (v Version) Epoch() uint64 { return v.epoch }

// Release returns the release segment tuple, e.g. [1, 2, 3] for "1.2.3".
func (v Version) Release() []uint64 {
	out := make([]uint64, len(v.release))
	copy(out, v.release)
	return out
}

// IsPreRelease reports whether the version carries a pre-release segment.
func (v Version) IsPreRelease() bool { return v.preSet }

// PreRelease returns the pre-release kind and number, and whether one is set.
func (v Version) PreRelease() (PreKind, uint64, bool) { return v.preKind, v.preNum, v.preSet }

// IsPostRelease reports whether the version carries a post-release segment.
func (v Version) IsPostRelease() bool { return v.postSet }

// Post returns the post-release number, and whether one is set.
func (v Version) Post() (uint64, bool) { return v.post, v.postSet }

// IsDevRelease reports whether the version carries a dev-release segment.
func (v Version) IsDevRelease() bool { return v.devSet }

// Dev returns the dev-release number, and whether one is set.
func (v Version) Dev() (uint64, bool) { return v.dev, v.devSet }

// HasLocal reports whether the version carries a local label.
func (v Version) HasLocal() bool { return len(v.local) > 0 }

// Local returns the local version label segments.
func (v Version) Local() []LocalSegment {
	out := make([]LocalSegment, len(v.local))
	copy(out, v.local)
	return out
}

// trimmedRelease returns the release tuple with trailing zeros removed,
// used only for comparison; Display preserves the original segment count.
func trimmedRelease(r []uint64) []uint64 {
	n := len(r)
	for n > 1 && r[n-1] == 0 {
		n--
	}
	return r[:n]
}

// WithoutLocal returns a copy of v with its local label stripped, as used
// when matching a candidate against a specifier lacking a local label
// (PEP 440's local-version-identifier matching rule).
func (v Version) WithoutLocal() Version {
	v2 := v
	v2.local = nil
	return v2
}

// String renders the version in canonical PEP 440 form.
func (v Version) String() string {
	var b strings.Builder
	if v.epoch != 0 {
		b.WriteString(strconv.FormatUint(v.epoch, 10))
		b.WriteByte('!')
	}
	for i, seg := range v.release {
		if i > 0 {
			b.WriteByte('.')
		}
		b.WriteString(strconv.FormatUint(seg, 10))
	}
	if v.preSet {
		b.WriteString(v.preKind.String())
		b.WriteString(strconv.FormatUint(v.preNum, 10))
	}
	if v.postSet {
		b.WriteString(".post")
		b.WriteString(strconv.FormatUint(v.post, 10))
	}
	if v.devSet {
		b.WriteString(".dev")
		b.WriteString(strconv.FormatUint(v.dev, 10))
	}
	if len(v.local) > 0 {
		b.WriteByte('+')
		for i, seg := range v.local {
			if i > 0 {
				b.WriteByte('.')
			}
			if seg.IsInt {
				b.WriteString(strconv.FormatUint(seg.Int, 10))
			} else {
				b.WriteString(seg.Str)
			}
		}
	}
	return b.String()
}

// Compare returns -1, 0, or +1 comparing a and b per PEP 440 ordering. The
// comparison key mirrors pypa/packaging's `_cmpkey`: epoch, trimmed
// release, a pre-release rank (a dev-only release with no pre/post sorts
// before every pre-release of the same release; a release with no
// pre-release component sorts after every pre-release of it), a
// post-release rank (absent sorts before any post number), a dev rank
// (absent sorts after any dev number), and finally the local label as a
// tie-break.
func Compare(a, b Version) int {
	if a.epoch != b.epoch {
		return cmpUint(a.epoch, b.epoch)
	}
	ra, rb := trimmedRelease(a.release), trimmedRelease(b.release)
	if c := cmpReleaseTuple(ra, rb); c != 0 {
		return c
	}
	if c := comparePreRank(a, b); c != 0 {
		return c
	}
	if c := comparePostRank(a, b); c != 0 {
		return c
	}
	if c := compareDevRank(a, b); c != 0 {
		return c
	}
	return compareLocal(a.local, b.local)
}

func cmpReleaseTuple(a, b []uint64) int {
	n := len(a)
	if len(b) > n {
		n = len(b)
	}
	for i := 0; i < n; i++ {
		var av, bv uint64
		if i < len(a) {
			av = a[i]
		}
		if i < len(b) {
			bv = b[i]
		}
		if av != bv {
			return cmpUint(av, bv)
		}
	}
	return 0
}

// preRankOf returns -1, 0, or +1 identifying which of the three buckets v
// falls into: -1 = dev-only (no pre, no post, has dev) sorts before every
// pre-release; 0 = has an actual pre-release, compare kind/number; +1 = no
// pre-release component at all (a final or post release), sorts after
// every pre-release of the same release.
func preRankOf(v Version) int {
	switch {
	case !v.preSet && !v.postSet && v.devSet:
		return -1
	case !v.preSet:
		return 1
	default:
		return 0
	}
}

func comparePreRank(a, b Version) int {
	ra, rb := preRankOf(a), preRankOf(b)
	if ra != rb {
		return cmpInt(ra, rb)
	}
	if ra != 0 {
		return 0
	}
	if a.preKind != b.preKind {
		return cmpInt(int(a.preKind), int(b.preKind))
	}
	return cmpUint(a.preNum, b.preNum)
}

// comparePostRank: no post sorts before any post number.
func comparePostRank(a, b Version) int {
	switch {
	case !a.postSet && !b.postSet:
		return 0
	case !a.postSet:
		return -1
	case !b.postSet:
		return 1
	default:
		return cmpUint(a.post, b.post)
	}
}

// compareDevRank: no dev sorts after any dev number (a dev release always
// precedes the corresponding non-dev release of the same pre/post stage).
func compareDevRank(a, b Version) int {
	switch {
	case !a.devSet && !b.devSet:
		return 0
	case !a.devSet:
		return 1
	case !b.devSet:
		return -1
	default:
		return cmpUint(a.dev, b.dev)
	}
}

func compareLocal(a, b []LocalSegment) int {
	n := len(a)
	if len(b) > n {
		n = len(b)
	}
	for i := 0; i < n; i++ {
		if i >= len(a) {
			return -1 // a has fewer segments => a sorts first, per PEP 440
		}
		if i >= len(b) {
			return 1
		}
		sa, sb := a[i], b[i]
		if sa.IsInt && sb.IsInt {
			if sa.Int != sb.Int {
				return cmpUint(sa.Int, sb.Int)
			}
			continue
		}
		if sa.IsInt != sb.IsInt {
			// numeric segments sort after alphanumeric ones at the same
			// position, per PEP 440's local version ordering.
			if sa.IsInt {
				return 1
			}
			return -1
		}
		if sa.Str != sb.Str {
			if sa.Str < sb.Str {
				return -1
			}
			return 1
		}
	}
	return 0
}

// Sort orders versions ascending in place per PEP 440 ordering.
func Sort(versions []Version) {
	sort.SliceStable(versions, func(i, j int) bool {
		return Compare(versions[i], versions[j]) < 0
	})
}

// Equal reports strict equality: same normalized tuple, including local
// label.
func Equal(a, b Version) bool {
	return Compare(a, b) == 0 && compareLocal(a.local, b.local) == 0 && len(a.local) == len(b.local)
}

func cmpUint(a, b uint64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

func cmpInt(a, b int) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}
