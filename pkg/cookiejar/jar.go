// Package cookiejar implements an http.CookieJar that mirrors every change
// of its cookies to a plain text file, one cookie per line.
package cookiejar

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"golang.org/x/exp/slog"
	"golang.org/x/net/publicsuffix"
)

// Jar keeps cookies in memory and rewrites the whole file on each change.
// The file is not locked: two processes sharing it overwrite each other.
type Jar struct {
	log  *slog.Logger
	path string
	now  func() time.Time

	mu      sync.Mutex
	entries []entry
}

type entry struct {
	name     string
	value    string
	domain   string
	hostOnly bool
	path     string
	expires  time.Time // zero for session cookies
	secure   bool
	httpOnly bool
}

func (e entry) expired(now time.Time) bool { return !e.expires.IsZero() && !e.expires.After(now) }

func (e entry) sameKey(o entry) bool {
	return e.name == o.name && e.domain == o.domain && e.path == o.path
}

// New makes a jar backed by the file at path and loads its cookies.
// A missing file is an empty jar. An empty path makes a memory-only jar.
func New(lg *slog.Logger, path string) (*Jar, error) {
	j := &Jar{log: lg, path: path, now: time.Now}

	if path == "" {
		return j, nil
	}

	data, err := os.ReadFile(path)
	switch {
	case os.IsNotExist(err):
		return j, nil
	case err != nil:
		return nil, fmt.Errorf("read cookies file %s: %w", path, err)
	}

	j.entries = parse(string(data), j.now())
	return j, nil
}

// SetCookies stores the cookies received from u and rewrites the file.
func (j *Jar) SetCookies(u *url.URL, cookies []*http.Cookie) {
	j.mu.Lock()
	defer j.mu.Unlock()

	now := j.now()
	host := canonicalHost(u.Host)

	for _, c := range cookies {
		e, ok := j.newEntry(host, u.Path, c, now)
		if !ok {
			continue
		}
		j.put(e, now)
	}

	j.entries = purge(j.entries, now)

	if err := j.save(); err != nil {
		j.log.Warn("failed to save cookies", slog.String("path", j.path), slog.Any("err", err))
	}
}

// Cookies returns the cookies to send in a request for u.
func (j *Jar) Cookies(u *url.URL) []*http.Cookie {
	j.mu.Lock()
	defer j.mu.Unlock()

	now := j.now()
	host := canonicalHost(u.Host)
	secure := u.Scheme == "https"
	path := u.Path
	if path == "" {
		path = "/"
	}

	var matched []entry
	for _, e := range j.entries {
		if e.expired(now) || (e.secure && !secure) {
			continue
		}
		if !domainMatch(host, e) || !pathMatch(path, e.path) {
			continue
		}
		matched = append(matched, e)
	}

	// more specific paths go first
	sort.SliceStable(matched, func(a, b int) bool { return len(matched[a].path) > len(matched[b].path) })

	res := make([]*http.Cookie, 0, len(matched))
	for _, e := range matched {
		res = append(res, &http.Cookie{Name: e.name, Value: e.value})
	}
	return res
}

// All returns every cookie held by the jar, with its domain and path.
func (j *Jar) All() []*http.Cookie {
	j.mu.Lock()
	defer j.mu.Unlock()

	res := make([]*http.Cookie, 0, len(j.entries))
	for _, e := range j.entries {
		c := e.cookie()
		c.Domain = e.domain
		res = append(res, c)
	}
	return res
}

// Len returns the number of cookies held by the jar.
func (j *Jar) Len() int {
	j.mu.Lock()
	defer j.mu.Unlock()
	return len(j.entries)
}

// Save rewrites the file with the current cookies.
func (j *Jar) Save() error {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.save()
}

func (j *Jar) save() error {
	if j.path == "" {
		return nil
	}

	if err := os.MkdirAll(filepath.Dir(j.path), 0o700); err != nil {
		return fmt.Errorf("make cookies dir: %w", err)
	}

	lines := make([]string, 0, len(j.entries))
	for _, e := range j.entries {
		lines = append(lines, e.line())
	}

	if err := os.WriteFile(j.path, []byte(strings.Join(lines, "\n")), 0o600); err != nil {
		return fmt.Errorf("write cookies file: %w", err)
	}

	j.log.DebugCtx(context.Background(), "cookies saved", slog.String("path", j.path), slog.Int("count", len(lines)))
	return nil
}

func (j *Jar) put(e entry, now time.Time) {
	for i := range j.entries {
		if !j.entries[i].sameKey(e) {
			continue
		}
		if e.expired(now) {
			j.entries = append(j.entries[:i], j.entries[i+1:]...)
			return
		}
		j.entries[i] = e
		return
	}

	if !e.expired(now) {
		j.entries = append(j.entries, e)
	}
}

func (j *Jar) newEntry(host, reqPath string, c *http.Cookie, now time.Time) (entry, bool) {
	e := entry{
		name:     c.Name,
		value:    c.Value,
		secure:   c.Secure,
		httpOnly: c.HttpOnly,
		path:     c.Path,
	}

	if e.name == "" {
		return entry{}, false
	}

	if e.path == "" || e.path[0] != '/' {
		e.path = defaultPath(reqPath)
	}

	switch {
	case c.MaxAge < 0:
		e.expires = time.Unix(1, 0)
	case c.MaxAge > 0:
		e.expires = now.Add(time.Duration(c.MaxAge) * time.Second)
	default:
		e.expires = c.Expires
	}

	domain, hostOnly, ok := cookieDomain(host, c.Domain)
	if !ok {
		j.log.Debug("cookie rejected", slog.String("name", c.Name),
			slog.String("host", host), slog.String("domain", c.Domain))
		return entry{}, false
	}
	e.domain, e.hostOnly = domain, hostOnly

	return e, true
}

// cookieDomain applies the storage rules of RFC 6265 section 5.3 for the
// domain attribute.
func cookieDomain(host, attr string) (domain string, hostOnly, ok bool) {
	if attr == "" {
		return host, true, true
	}

	domain = strings.ToLower(strings.TrimPrefix(attr, "."))
	if domain == "" {
		return host, true, true
	}

	if net.ParseIP(host) != nil {
		return host, true, domain == host
	}

	if ps, _ := publicsuffix.PublicSuffix(domain); ps == domain {
		// a public suffix is only acceptable as the exact host
		return host, true, domain == host
	}

	if host != domain && !strings.HasSuffix(host, "."+domain) {
		return "", false, false
	}

	return domain, false, true
}

func domainMatch(host string, e entry) bool {
	if e.hostOnly {
		return host == e.domain
	}
	return host == e.domain || strings.HasSuffix(host, "."+e.domain)
}

func pathMatch(reqPath, cookiePath string) bool {
	if reqPath == cookiePath {
		return true
	}
	if !strings.HasPrefix(reqPath, cookiePath) {
		return false
	}
	return strings.HasSuffix(cookiePath, "/") || reqPath[len(cookiePath)] == '/'
}

func defaultPath(p string) string {
	if p == "" || p[0] != '/' {
		return "/"
	}
	i := strings.LastIndex(p, "/")
	if i == 0 {
		return "/"
	}
	return p[:i]
}

func canonicalHost(host string) string {
	if h, _, err := net.SplitHostPort(host); err == nil {
		host = h
	}
	host = strings.TrimSuffix(host, ".")
	return strings.ToLower(strings.Trim(host, "[]"))
}

func purge(entries []entry, now time.Time) []entry {
	res := entries[:0]
	for _, e := range entries {
		if !e.expired(now) {
			res = append(res, e)
		}
	}
	return res
}
