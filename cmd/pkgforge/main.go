// Command pkgforge is a smoke-test harness, not a CLI surface: it wires
// the core packages together end to end so they can be exercised as a
// whole, the way a real installer would call them. Argument parsing, the
// resolver, and lockfile I/O belong to callers and have no home here.
package main

import (
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/pkgforge/pkgforge/auth"
	"github.com/pkgforge/pkgforge/httpcache"
	"github.com/pkgforge/pkgforge/link"
	"github.com/pkgforge/pkgforge/pkglog"
	"github.com/pkgforge/pkgforge/requirement"
	"github.com/pkgforge/pkgforge/version"
)

func main() {
	logger := pkglog.New(os.Stderr)

	if err := run(logger); err != nil {
		fmt.Fprintln(os.Stderr, "pkgforge:", err)
		os.Exit(1)
	}
}

func run(logger *pkglog.Logger) error {
	// V: parse a requirement the way a resolver's input would arrive, and
	// check a candidate version against its specifiers.
	req, err := requirement.Parse(`requests[security]>=2.28,!=2.29.0; python_version >= "3.8"`)
	if err != nil {
		return err
	}
	specs, _ := req.Specifiers()
	candidate, err := version.Parse("2.30.0")
	if err != nil {
		return err
	}
	logger.Debug("requirement matched", "requirement", req.String(), "candidate", candidate.String(), "matches", specs.Contains(candidate))

	env := requirement.MarkerEnvironment{PythonVersion: "3.11"}
	if marker, ok := req.Marker(); ok {
		logger.Debug("marker evaluated", "satisfied", marker.Evaluate(env, nil))
	}

	// C: build a cache policy from a canned response and ask whether a
	// later request could be served from cache.
	cacheDir, err := os.MkdirTemp("", "pkgforge-cache")
	if err != nil {
		return err
	}
	defer os.RemoveAll(cacheDir)

	store, err := httpcache.OpenStore(filepath.Join(cacheDir, "http.db"), logger)
	if err != nil {
		return err
	}
	defer store.Close()

	reqTime := time.Now()
	httpReq, _ := http.NewRequest(http.MethodGet, "https://pypi.org/simple/requests/", nil)
	builder := httpcache.NewCachePolicyBuilder(httpReq, reqTime)

	resp := &http.Response{
		StatusCode: http.StatusOK,
		Header: http.Header{
			"Cache-Control": {"max-age=600"},
			"Date":          {reqTime.UTC().Format(http.TimeFormat)},
			"ETag":          {`"abc123"`},
		},
	}
	policy, err := builder.Build(httpcache.DefaultCacheConfig(), resp, reqTime)
	if err != nil {
		return err
	}
	if err := store.Put(httpcache.Key(http.MethodGet, httpReq.URL.String()), policy); err != nil {
		return err
	}

	later := httpReq.Clone(httpReq.Context())
	decision := policy.BeforeRequest(later, reqTime.Add(30*time.Second))
	logger.Debug("cache decision after 30s", "kind", decision.Kind)

	// A: a middleware with a pre-seeded credentials cache, so the request
	// goes out with the cached credentials and no unauthenticated probe is
	// made.
	credCache := auth.NewCache()
	credCache.PutURL("https://pkg.example/", auth.Credentials{
		Username: auth.NewUsername("ci"),
		Password: auth.NewPassword("token"),
	})
	mw := auth.NewMiddleware(stubTransport{}, credCache)
	authed, err := mw.RoundTrip(mustRequest("https://pkg.example/simple/requests/"))
	if err != nil {
		return err
	}
	logger.Debug("authenticated fetch", "status", authed.StatusCode)

	// L: materialize a small tree from the global cache into a venv-like
	// destination, letting the cascade pick whatever the filesystem
	// supports.
	src, err := os.MkdirTemp("", "pkgforge-src")
	if err != nil {
		return err
	}
	defer os.RemoveAll(src)
	if err := os.WriteFile(filepath.Join(src, "requests-2.30.0.dist-info"), []byte("Name: requests\n"), 0o644); err != nil {
		return err
	}

	dst, err := os.MkdirTemp("", "pkgforge-dst")
	if err != nil {
		return err
	}
	defer os.RemoveAll(dst)
	dst = filepath.Join(dst, "venv")

	result, err := link.Dir(src, dst, link.Options{
		Mode:      link.DefaultMode(),
		Existing:  link.Fail,
		CopyLocks: link.NewCopyLocks(),
	})
	if err != nil {
		return err
	}
	logger.Debug("installed", "mode", result.Mode)

	return nil
}

func mustRequest(rawURL string) *http.Request {
	r, err := http.NewRequest(http.MethodGet, rawURL, nil)
	if err != nil {
		panic(err)
	}
	return r
}

// stubTransport stands in for the network so the demo never makes a real
// HTTP call; a real caller would pass http.DefaultTransport or similar.
type stubTransport struct{}

func (stubTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	return &http.Response{
		StatusCode: http.StatusOK,
		Body:       http.NoBody,
		Request:    req,
	}, nil
}
