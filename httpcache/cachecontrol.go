package httpcache

import (
	"net/http"
	"strconv"
	"strings"
)

// OptionalSeconds is an optional duration-valued cache-control argument
// (max-age, s-maxage, max-stale, min-fresh). A malformed numeric argument
// is treated as absent, never a parse error.
type OptionalSeconds struct {
	Present bool
	Seconds int64
}

// CacheControl holds the distilled subset of Cache-Control directives this
// engine reasons about, from either a request or a response.
type CacheControl struct {
	NoStore           bool
	NoCache           bool
	Private           bool
	Public            bool
	MustRevalidate    bool
	Immutable         bool
	MaxAge            OptionalSeconds
	SMaxAge           OptionalSeconds
	MaxStale          OptionalSeconds
	MaxStaleUnlimited bool // "max-stale" present with no argument
	MinFresh          OptionalSeconds
}

// ParseCacheControl distills the Cache-Control header(s) of h. Unknown
// directives are ignored; malformed numeric arguments leave the
// corresponding OptionalSeconds absent rather than failing the parse.
func ParseCacheControl(h http.Header) CacheControl {
	var cc CacheControl
	for _, line := range h.Values("Cache-Control") {
		for _, raw := range strings.Split(line, ",") {
			directive := strings.TrimSpace(raw)
			if directive == "" {
				continue
			}
			name, arg, hasArg := splitDirective(directive)
			switch strings.ToLower(name) {
			case "no-store":
				cc.NoStore = true
			case "no-cache":
				cc.NoCache = true
			case "private":
				cc.Private = true
			case "public":
				cc.Public = true
			case "must-revalidate":
				cc.MustRevalidate = true
			case "immutable":
				cc.Immutable = true
			case "max-age":
				cc.MaxAge = parseSeconds(arg, hasArg)
			case "s-maxage":
				cc.SMaxAge = parseSeconds(arg, hasArg)
			case "min-fresh":
				cc.MinFresh = parseSeconds(arg, hasArg)
			case "max-stale":
				if !hasArg {
					cc.MaxStaleUnlimited = true
				} else {
					cc.MaxStale = parseSeconds(arg, hasArg)
				}
			}
		}
	}
	return cc
}

func splitDirective(d string) (name, arg string, hasArg bool) {
	if i := strings.IndexByte(d, '='); i >= 0 {
		return strings.TrimSpace(d[:i]), strings.Trim(strings.TrimSpace(d[i+1:]), `"`), true
	}
	return d, "", false
}

func parseSeconds(arg string, hasArg bool) OptionalSeconds {
	if !hasArg {
		return OptionalSeconds{}
	}
	n, err := strconv.ParseInt(arg, 10, 64)
	if err != nil || n < 0 {
		return OptionalSeconds{}
	}
	return OptionalSeconds{Present: true, Seconds: n}
}
