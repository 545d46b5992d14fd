package auth

import (
	"bufio"
	"os"
	"strings"
	"sync"

	"github.com/pkg/errors"
	"github.com/pkgforge/pkgforge/pkglog"
)

// NetrcMode selects when the netrc file is parsed: Automatic loads lazily
// on first credential miss, Enabled loads eagerly at construction (a parse
// failure is logged and treated as absent), Disabled never consults netrc
// at all.
type NetrcMode uint8

const (
	NetrcDisabledMode NetrcMode = iota
	NetrcAutomatic
	NetrcEnabled
)

type netrcEntry struct {
	login    string
	password string
	hasLogin bool
	hasPass  bool
}

// Netrc is a lazily- or eagerly-loaded netrc credential source.
type Netrc struct {
	mode    NetrcMode
	path    string
	log     *pkglog.Logger
	once    sync.Once
	entries map[string]netrcEntry
	def     *netrcEntry
	loadErr error
}

// NewNetrcAutomatic constructs a Netrc that parses path lazily on first
// lookup.
func NewNetrcAutomatic(path string, log *pkglog.Logger) *Netrc {
	return &Netrc{mode: NetrcAutomatic, path: path, log: pkglog.OrNop(log)}
}

// NewNetrcEnabled constructs a Netrc that parses path immediately;
// a parse failure is logged and treated as "no entries" rather than
// returned to the caller.
func NewNetrcEnabled(path string, log *pkglog.Logger) *Netrc {
	n := &Netrc{mode: NetrcEnabled, path: path, log: pkglog.OrNop(log)}
	n.load()
	return n
}

// NetrcDisabled returns a Netrc that never consults any file.
func NetrcDisabled() *Netrc {
	return &Netrc{mode: NetrcDisabledMode}
}

// Lookup returns the login/password recorded for machine (or the netrc
// "default" entry if no exact match), loading the file on first use if
// this source is Automatic.
func (n *Netrc) Lookup(machine string) (Credentials, bool) {
	if n.mode == NetrcDisabledMode {
		return Credentials{}, false
	}
	if n.mode == NetrcAutomatic {
		n.once.Do(n.load)
	}
	if n.loadErr != nil {
		return Credentials{}, false
	}
	e, ok := n.entries[machine]
	if !ok {
		if n.def == nil {
			return Credentials{}, false
		}
		e = *n.def
	}
	var creds Credentials
	if e.hasLogin {
		creds.Username = NewUsername(e.login)
	}
	if e.hasPass {
		creds.Password = NewPassword(e.password)
	}
	return creds, true
}

func (n *Netrc) load() {
	entries, def, err := parseNetrcFile(n.path)
	if err != nil {
		n.loadErr = err
		n.log.Warn("netrc parse failed, treating as absent", "path", n.path, "error", err.Error())
		return
	}
	n.entries = entries
	n.def = def
}

// parseNetrcFile parses the classic four-keyword netrc grammar
// (machine/login/password/default; macdef blocks are skipped) with a
// bufio.Scanner word tokenizer.
func parseNetrcFile(path string) (map[string]netrcEntry, *netrcEntry, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, errors.Wrapf(err, "auth: open netrc %s", path)
	}
	defer f.Close()

	entries := make(map[string]netrcEntry)
	var def *netrcEntry
	var cur *netrcEntry
	var curMachine string
	inMacdef := false

	flush := func() {
		if cur == nil {
			return
		}
		if curMachine == "" {
			def = cur
		} else {
			entries[curMachine] = *cur
		}
		cur = nil
		curMachine = ""
	}

	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 0, 64*1024), 1<<20)
	sc.Split(bufio.ScanWords)
	var pendingKey string
	for sc.Scan() {
		tok := sc.Text()
		if inMacdef {
			if tok == "" {
				inMacdef = false
			}
			continue
		}
		if pendingKey != "" {
			switch pendingKey {
			case "machine":
				flush()
				cur = &netrcEntry{}
				curMachine = tok
			case "login":
				if cur == nil {
					cur = &netrcEntry{}
				}
				cur.login = tok
				cur.hasLogin = true
			case "password":
				if cur == nil {
					cur = &netrcEntry{}
				}
				cur.password = tok
				cur.hasPass = true
			}
			pendingKey = ""
			continue
		}
		switch tok {
		case "machine", "login", "password":
			pendingKey = tok
		case "default":
			flush()
			cur = &netrcEntry{}
			curMachine = ""
		case "macdef":
			inMacdef = true
		}
	}
	flush()
	if err := sc.Err(); err != nil {
		return nil, nil, errors.Wrapf(err, "auth: scan netrc %s", path)
	}
	return entries, def, nil
}

// splitHostPort is a small helper used by callers that need the bare host
// for netrc machine matching (netrc entries are keyed by host, not by
// scheme://host:port).
func splitHostPort(host string) string {
	if i := strings.IndexByte(host, ':'); i >= 0 {
		return host[:i]
	}
	return host
}
