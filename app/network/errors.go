package network

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
)

var (
	// ErrTooManyRedirects is returned when the redirect chain exceeds maxRedirects.
	ErrTooManyRedirects = errors.New("too many redirects")
	// ErrUnsupportedScheme is returned for the URLs with a scheme other than http(s).
	ErrUnsupportedScheme = errors.New("unsupported scheme")
)

// describeErr turns a failed round trip into the message for the batch.
func (m *Manager) describeErr(sc *scope, err error) string {
	target := sc.url()

	var (
		opErr  *net.OpError
		dnsErr *net.DNSError
	)

	switch {
	case sc.expired(), errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return m.msgs.OperationTimedOut
	case errors.As(err, &opErr) && opErr.Op == "proxyconnect":
		if errors.As(err, &dnsErr) {
			return format(m.msgs.CouldntResolveProxy, target)
		}
		if opErr.Timeout() {
			return m.msgs.OperationTimedOut
		}
		return err.Error()
	case isTLSErr(err):
		return format(m.msgs.SSLConnectError, target)
	case errors.As(err, &dnsErr):
		return format(m.msgs.CouldntConnect, target)
	case errors.Is(err, ErrUnsupportedScheme):
		return m.msgs.UnknownError
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return m.msgs.OperationTimedOut
	}

	return err.Error()
}

// describeStatus returns the message for the unsuccessful status code of
// the final response, empty if the status is not an error.
func (m *Manager) describeStatus(sc *scope, resp *http.Response) string {
	target := sc.url()

	switch code := resp.StatusCode; {
	case code < http.StatusBadRequest:
		return ""
	case code == http.StatusUnauthorized:
		return m.msgs.AuthenticationFailed
	case code == http.StatusNotFound:
		return format(m.msgs.SomethingWrong, target)
	case code == http.StatusForbidden,
		code == http.StatusMethodNotAllowed,
		code == http.StatusProxyAuthRequired:
		return fmt.Sprintf("Error transferring %s - server replied: %s", target, reason(resp))
	default:
		return m.msgs.UnknownError
	}
}

func isTLSErr(err error) bool {
	var (
		verifyErr   *tls.CertificateVerificationError
		recordErr   tls.RecordHeaderError
		authErr     x509.UnknownAuthorityError
		hostErr     x509.HostnameError
		invalidErr  x509.CertificateInvalidError
		sysRootsErr x509.SystemRootsError
	)

	return errors.As(err, &verifyErr) ||
		errors.As(err, &recordErr) ||
		errors.As(err, &authErr) ||
		errors.As(err, &hostErr) ||
		errors.As(err, &invalidErr) ||
		errors.As(err, &sysRootsErr) ||
		hasTLSPrefix(err)
}

func hasTLSPrefix(err error) bool {
	for ; err != nil; err = errors.Unwrap(err) {
		if strings.HasPrefix(err.Error(), "tls: ") {
			return true
		}
	}
	return false
}

// reason returns the reason phrase of the response status.
func reason(resp *http.Response) string {
	if r := strings.TrimSpace(strings.TrimPrefix(resp.Status, fmt.Sprint(resp.StatusCode))); r != "" {
		return r
	}
	return http.StatusText(resp.StatusCode)
}
