package cookiejar

import (
	"net/http"
	"strings"
	"time"
)

// cookie returns the entry as a cookie without the domain attribute.
func (e entry) cookie() *http.Cookie {
	return &http.Cookie{
		Name:     e.name,
		Value:    e.value,
		Path:     e.path,
		Expires:  e.expires,
		Secure:   e.secure,
		HttpOnly: e.httpOnly,
	}
}

// line renders the entry in the Set-Cookie syntax. Domain cookies keep the
// leading dot so that the host-only flag survives a reload.
func (e entry) line() string {
	domain := e.domain
	if !e.hostOnly {
		domain = "." + domain
	}
	return e.cookie().String() + "; Domain=" + domain
}

// parse reads the lines written by line, skipping expired and malformed ones.
func parse(data string, now time.Time) []entry {
	var lines []string
	for _, l := range strings.Split(data, "\n") {
		if l = strings.TrimSpace(l); l != "" {
			lines = append(lines, l)
		}
	}

	resp := &http.Response{Header: http.Header{"Set-Cookie": lines}}

	var res []entry
	for _, c := range resp.Cookies() {
		domain := strings.ToLower(c.Domain)
		e := entry{
			name:     c.Name,
			value:    c.Value,
			domain:   strings.TrimPrefix(domain, "."),
			hostOnly: !strings.HasPrefix(domain, "."),
			path:     c.Path,
			expires:  c.Expires,
			secure:   c.Secure,
			httpOnly: c.HttpOnly,
		}
		if e.domain == "" || e.expired(now) {
			continue
		}
		if e.path == "" {
			e.path = "/"
		}
		res = append(res, e)
	}
	return res
}
