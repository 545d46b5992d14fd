package httpcache

import (
	"encoding/binary"
	"time"

	"github.com/pkg/errors"
)

// Archived is a validated read-only view over a byte buffer produced by
// CachePolicy.Archive. Accessors read directly from the buffer at fixed
// offsets; only ParseArchived ever walks the whole record, and it performs
// a bounds check rather than a full field-by-field deserialization, so the
// hot fresh-path check never materializes an owned CachePolicy tree.
type Archived struct {
	buf []byte
}

const archiveMagic = 0x50434831 // "PCH1"

// header field byte offsets within buf. Every integer is little-endian.
const (
	offMagic            = 0
	offShared           = 4
	offHeuristicPct     = 5
	offRequestMethod    = 6
	offHasAuthorization = 7
	offResponseStatusLo = 8  // uint16
	offRequestTime      = 10 // int64
	offResponseDateSet  = 18
	offResponseDate     = 19 // int64
	offResponseAgeSet   = 27
	offResponseAge      = 28 // int64
	offResponseExpSet   = 36
	offResponseExp      = 37 // int64
	offResponseLMSet    = 45
	offResponseLM       = 46 // int64
	offETagPresent      = 54
	offETagWeak         = 55
	offETagOff          = 56 // uint32
	offETagLen          = 60 // uint32
	offURIOff           = 64 // uint32
	offURILen           = 68 // uint32
	offVaryMatchesNone  = 72
	offVaryCount        = 73 // uint32

	// Response cache-control directives needed to recompute freshness
	// directly off the buffer, mirroring the subset of CacheControl that
	// freshnessLifetime and IsFresh consult.
	offRespMustRevalidate = 77
	offRespImmutable      = 78
	offRespMaxAgeSet      = 79
	offRespMaxAge         = 80 // int64
	offRespSMaxAgeSet     = 88
	offRespSMaxAge        = 89 // int64

	headerFixedLen = 97
)

// Archive encodes p into a byte-stable buffer: a fixed-width header
// followed by variable-length data (the request URI, the ETag bytes, and
// each Vary entry's name/value) referenced from the header by
// offset/length pairs.
func (p *CachePolicy) Archive() []byte {
	var trailer []byte
	putBytes := func(b []byte) (uint32, uint32) {
		off := uint32(len(trailer))
		trailer = append(trailer, b...)
		return off, uint32(len(b))
	}

	header := make([]byte, headerFixedLen)
	binary.LittleEndian.PutUint32(header[offMagic:], archiveMagic)
	header[offShared] = boolByte(p.Config.Shared)
	header[offHeuristicPct] = byte(p.Config.HeuristicPercent)
	header[offRequestMethod] = byte(p.RequestMethod)
	header[offHasAuthorization] = boolByte(p.RequestHasAuthorization)
	binary.LittleEndian.PutUint16(header[offResponseStatusLo:], uint16(p.ResponseStatus))
	binary.LittleEndian.PutUint64(header[offRequestTime:], uint64(p.RequestTime))

	header[offResponseDateSet] = boolByte(p.ResponseDate.Present)
	binary.LittleEndian.PutUint64(header[offResponseDate:], uint64(p.ResponseDate.Seconds))
	header[offResponseAgeSet] = boolByte(p.ResponseAge.Present)
	binary.LittleEndian.PutUint64(header[offResponseAge:], uint64(p.ResponseAge.Seconds))
	header[offResponseExpSet] = boolByte(p.ResponseExpires.Present)
	binary.LittleEndian.PutUint64(header[offResponseExp:], uint64(p.ResponseExpires.Seconds))
	header[offResponseLMSet] = boolByte(p.ResponseLastModified.Present)
	binary.LittleEndian.PutUint64(header[offResponseLM:], uint64(p.ResponseLastModified.Seconds))

	header[offETagPresent] = boolByte(p.ResponseETag.Present)
	header[offETagWeak] = boolByte(p.ResponseETag.Weak)
	eOff, eLen := putBytes(p.ResponseETag.Value)
	binary.LittleEndian.PutUint32(header[offETagOff:], eOff)
	binary.LittleEndian.PutUint32(header[offETagLen:], eLen)

	uOff, uLen := putBytes([]byte(p.RequestURI))
	binary.LittleEndian.PutUint32(header[offURIOff:], uOff)
	binary.LittleEndian.PutUint32(header[offURILen:], uLen)

	header[offVaryMatchesNone] = boolByte(p.VaryMatchesNone)
	binary.LittleEndian.PutUint32(header[offVaryCount:], uint32(len(p.Vary)))

	header[offRespMustRevalidate] = boolByte(p.ResponseCacheControl.MustRevalidate)
	header[offRespImmutable] = boolByte(p.ResponseCacheControl.Immutable)
	header[offRespMaxAgeSet] = boolByte(p.ResponseCacheControl.MaxAge.Present)
	binary.LittleEndian.PutUint64(header[offRespMaxAge:], uint64(p.ResponseCacheControl.MaxAge.Seconds))
	header[offRespSMaxAgeSet] = boolByte(p.ResponseCacheControl.SMaxAge.Present)
	binary.LittleEndian.PutUint64(header[offRespSMaxAge:], uint64(p.ResponseCacheControl.SMaxAge.Seconds))

	varyTable := make([]byte, 16*len(p.Vary))
	for i, v := range p.Vary {
		nOff, nLen := putBytes([]byte(v.Name))
		vOff, vLen := putBytes([]byte(v.Value))
		base := i * 16
		binary.LittleEndian.PutUint32(varyTable[base:], nOff)
		binary.LittleEndian.PutUint32(varyTable[base+4:], nLen)
		binary.LittleEndian.PutUint32(varyTable[base+8:], vOff)
		binary.LittleEndian.PutUint32(varyTable[base+12:], vLen)
	}

	buf := make([]byte, 0, headerFixedLen+len(varyTable)+len(trailer))
	buf = append(buf, header...)
	buf = append(buf, varyTable...)
	buf = append(buf, trailer...)
	return buf
}

func boolByte(b bool) byte {
	if b {
		return 1
	}
	return 0
}

// ParseArchived validates buf's header and vary table bounds and returns a
// reference to it. No field is copied out; accessors below slice buf
// directly.
func ParseArchived(buf []byte) (*Archived, error) {
	if len(buf) < headerFixedLen {
		return nil, errors.New("httpcache: archived record too short")
	}
	if binary.LittleEndian.Uint32(buf[offMagic:]) != archiveMagic {
		return nil, errors.New("httpcache: bad archive magic")
	}
	varyCount := int(binary.LittleEndian.Uint32(buf[offVaryCount:]))
	varyTableEnd := headerFixedLen + varyCount*16
	if len(buf) < varyTableEnd {
		return nil, errors.New("httpcache: archived record truncated vary table")
	}
	a := &Archived{buf: buf}
	// bounds-check every offset/length pair referenced from the header.
	if _, err := a.slice(offETagOff, offETagLen); err != nil {
		return nil, err
	}
	if _, err := a.slice(offURIOff, offURILen); err != nil {
		return nil, err
	}
	for i := 0; i < varyCount; i++ {
		base := headerFixedLen + i*16
		for _, pair := range [][2]int{{base, base + 4}, {base + 8, base + 12}} {
			off := int(binary.LittleEndian.Uint32(buf[pair[0]:]))
			ln := int(binary.LittleEndian.Uint32(buf[pair[1]:]))
			if off < 0 || ln < 0 || varyTableEnd+off+ln > len(buf) {
				return nil, errors.New("httpcache: archived record truncated vary entry")
			}
		}
	}
	return a, nil
}

func (a *Archived) slice(offField, lenField int) ([]byte, error) {
	off := int(binary.LittleEndian.Uint32(a.buf[offField:]))
	ln := int(binary.LittleEndian.Uint32(a.buf[lenField:]))
	start := a.trailerStart() + off
	if off < 0 || ln < 0 || start+ln > len(a.buf) {
		return nil, errors.New("httpcache: archived record field out of bounds")
	}
	return a.buf[start : start+ln], nil
}

func (a *Archived) varyCount() int {
	return int(binary.LittleEndian.Uint32(a.buf[offVaryCount:]))
}

func (a *Archived) trailerStart() int {
	return headerFixedLen + a.varyCount()*16
}

// URI returns a copy of the archived request URI.
func (a *Archived) URI() string {
	b, _ := a.slice(offURIOff, offURILen)
	return string(b)
}

// ResponseStatus returns the archived response status code.
func (a *Archived) ResponseStatus() int {
	return int(binary.LittleEndian.Uint16(a.buf[offResponseStatusLo:]))
}

// RequestTime returns the archived request UNIX timestamp.
func (a *Archived) RequestTime() int64 {
	return int64(binary.LittleEndian.Uint64(a.buf[offRequestTime:]))
}

// ResponseDate returns the archived response Date and whether it was set.
func (a *Archived) ResponseDate() (int64, bool) {
	return int64(binary.LittleEndian.Uint64(a.buf[offResponseDate:])), a.buf[offResponseDateSet] == 1
}

// ETag returns the archived ETag value, weak flag, and presence.
func (a *Archived) ETag() (value []byte, weak bool, present bool) {
	b, _ := a.slice(offETagOff, offETagLen)
	return b, a.buf[offETagWeak] == 1, a.buf[offETagPresent] == 1
}

// Shared returns the archived cache-shared flag.
func (a *Archived) Shared() bool { return a.buf[offShared] == 1 }

// HeuristicPercent returns the archived heuristic percentage.
func (a *Archived) HeuristicPercent() int { return int(a.buf[offHeuristicPct]) }

// ResponseAge returns the archived response Age header value, if any.
func (a *Archived) ResponseAge() (int64, bool) {
	return int64(binary.LittleEndian.Uint64(a.buf[offResponseAge:])), a.buf[offResponseAgeSet] == 1
}

// ResponseExpires returns the archived response Expires value, if any.
func (a *Archived) ResponseExpires() (int64, bool) {
	return int64(binary.LittleEndian.Uint64(a.buf[offResponseExp:])), a.buf[offResponseExpSet] == 1
}

// ResponseLastModified returns the archived response Last-Modified value, if any.
func (a *Archived) ResponseLastModified() (int64, bool) {
	return int64(binary.LittleEndian.Uint64(a.buf[offResponseLM:])), a.buf[offResponseLMSet] == 1
}

func (a *Archived) respMaxAge() (int64, bool) {
	return int64(binary.LittleEndian.Uint64(a.buf[offRespMaxAge:])), a.buf[offRespMaxAgeSet] == 1
}

func (a *Archived) respSMaxAge() (int64, bool) {
	return int64(binary.LittleEndian.Uint64(a.buf[offRespSMaxAge:])), a.buf[offRespSMaxAgeSet] == 1
}

// MustRevalidate returns the archived response's must-revalidate directive.
func (a *Archived) MustRevalidate() bool { return a.buf[offRespMustRevalidate] == 1 }

// Immutable returns the archived response's immutable directive.
func (a *Archived) Immutable() bool { return a.buf[offRespImmutable] == 1 }

// dateOrRequestTime mirrors CachePolicy.dateOrRequestTime.
func (a *Archived) dateOrRequestTime() int64 {
	if d, ok := a.ResponseDate(); ok {
		return d
	}
	return a.RequestTime()
}

// Age computes the archived response's current age at now, per RFC 9111
// §4.2.3's age-calculation formula, reading straight off the buffer with
// no allocation.
func (a *Archived) Age(now time.Time) int64 {
	responseTime := a.RequestTime()
	if d, ok := a.ResponseDate(); ok {
		responseTime = d
	}
	apparentAge := responseTime - a.dateOrRequestTime()
	if apparentAge < 0 {
		apparentAge = 0
	}
	var responseAge int64
	if ra, ok := a.ResponseAge(); ok {
		responseAge = ra
	}
	correctedAgeValue := responseAge + (responseTime - a.RequestTime())
	age := apparentAge
	if correctedAgeValue > age {
		age = correctedAgeValue
	}
	residentAge := now.Unix() - responseTime
	if residentAge < 0 {
		residentAge = 0
	}
	return age + residentAge
}

// FreshnessLifetime computes the archived response's freshness lifetime,
// per RFC 9111 §4.2.1, reading straight off the buffer with no allocation.
func (a *Archived) FreshnessLifetime() int64 {
	if a.Shared() {
		if sm, ok := a.respSMaxAge(); ok {
			return sm
		}
	}
	if ma, ok := a.respMaxAge(); ok {
		return ma
	}
	if exp, ok := a.ResponseExpires(); ok {
		lifetime := exp - a.dateOrRequestTime()
		if lifetime < 0 {
			return 0
		}
		return lifetime
	}
	if lm, ok := a.ResponseLastModified(); ok {
		delta := a.dateOrRequestTime() - lm
		if delta > 0 {
			return delta * int64(a.HeuristicPercent()) / 100
		}
	}
	return 0
}

// IsFresh reports whether the archived response is still fresh at now.
// This is the zero-copy fresh-path check: unlike CachePolicy.IsFresh, it
// has no live request to apply request-side Cache-Control overrides
// (no-cache, max-age, min-fresh, max-stale) to, so a caller that needs
// those overrides honored still has to go through CachePolicy.BeforeRequest
// on the full policy.
func (a *Archived) IsFresh(now time.Time) bool {
	return a.Age(now) <= a.FreshnessLifetime()
}
