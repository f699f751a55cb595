package network

import (
	"context"
	"crypto/x509"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestManager_DescribeErr(t *testing.T) {
	m := &Manager{msgs: DefaultMessages()}
	target, err := url.Parse("http://books.example.org/opds")
	require.NoError(t, err)

	urlErr := func(err error) error { return &url.Error{Op: "Get", URL: target.String(), Err: err} }
	dnsErr := &net.DNSError{Err: "no such host", Name: "books.example.org", IsNotFound: true}

	tbl := []struct {
		name    string
		err     error
		expired bool
		want    string
	}{
		{name: "deadline", err: urlErr(context.DeadlineExceeded), want: "Operation timed out"},
		{name: "cancelled", err: urlErr(context.Canceled), want: "Operation timed out"},
		{name: "expired exchange", err: errors.New("read: connection reset"), expired: true, want: "Operation timed out"},
		{name: "dns", err: urlErr(&net.OpError{Op: "dial", Net: "tcp", Err: dnsErr}),
			want: "Couldn't connect to http://books.example.org/opds"},
		{name: "proxy not resolved", err: urlErr(&net.OpError{Op: "proxyconnect", Net: "tcp", Err: dnsErr}),
			want: "Couldn't resolve proxy for http://books.example.org/opds"},
		{name: "ssl", err: urlErr(x509.UnknownAuthorityError{}),
			want: "SSL connect error while accessing http://books.example.org/opds"},
		{name: "ssl by message", err: urlErr(errors.New("tls: handshake failure")),
			want: "SSL connect error while accessing http://books.example.org/opds"},
		{name: "scheme", err: fmt.Errorf("%w: %q", ErrUnsupportedScheme, "ftp"), want: "Unknown error"},
		{name: "other", err: errors.New("connection reset by peer"), want: "connection reset by peer"},
	}

	for _, tt := range tbl {
		t.Run(tt.name, func(t *testing.T) {
			sc := &scope{target: target}
			sc.timeOut.Store(tt.expired)
			assert.Equal(t, tt.want, m.describeErr(sc, tt.err))
		})
	}
}

func TestManager_DescribeStatus(t *testing.T) {
	m := &Manager{msgs: DefaultMessages()}
	sc := &scope{params: Params{URL: "books.example.org"}}

	tbl := []struct {
		status string
		code   int
		want   string
	}{
		{status: "200 OK", code: 200, want: ""},
		{status: "302 Found", code: 302, want: ""},
		{status: "401 Unauthorized", code: 401, want: "Authentication failed"},
		{status: "404 Not Found", code: 404, want: "Something is wrong with books.example.org, please try again later"},
		{status: "405 Nope", code: 405, want: "Error transferring books.example.org - server replied: Nope"},
		{status: "407", code: 407, want: "Error transferring books.example.org - server replied: Proxy Authentication Required"},
		{status: "503 Service Unavailable", code: 503, want: "Unknown error"},
	}

	for _, tt := range tbl {
		t.Run(tt.status, func(t *testing.T) {
			assert.Equal(t, tt.want, m.describeStatus(sc, &http.Response{StatusCode: tt.code, Status: tt.status}))
		})
	}
}

func TestWithMessages(t *testing.T) {
	m, err := NewManager(Config{}, WithMessages(Messages{CouldntConnect: "Нет соединения с %s"}))
	require.NoError(t, err)
	defer m.Close()

	assert.Equal(t, "Нет соединения с books.example.org", format(m.msgs.CouldntConnect, "books.example.org"))
	assert.Equal(t, DefaultMessages().UnknownError, m.msgs.UnknownError)
	assert.Equal(t, "no placeholder", format("no placeholder", "x"))
}

func TestHelpers(t *testing.T) {
	home, err := os.UserHomeDir()
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(home, ".opdsnet", "cookies.txt"), ExpandHome("~/.opdsnet/cookies.txt"))
	assert.Equal(t, "/etc/cookies.txt", ExpandHome("/etc/cookies.txt"))
	assert.Equal(t, "~user/cookies.txt", ExpandHome("~user/cookies.txt"))

	assert.Equal(t, "books.example.org", hostOf("books.example.org/opds"))
	assert.Equal(t, "books.example.org", hostOf("https://books.example.org:8443/opds"))
	assert.Equal(t, "", hostOf(""))

	u, err := parseUserURL(" books.example.org/opds ")
	require.NoError(t, err)
	assert.Equal(t, "http://books.example.org/opds", u.String())

	assert.Equal(t, "q=war+and+peace&lang=ru", encodeForm([]KV{{Key: "q", Value: "war and peace"}, {Key: "lang", Value: "ru"}}))
}
