package logx

import (
	"bytes"
	"errors"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/go-pkgz/requester/middleware"
	"github.com/samber/lo"
	"golang.org/x/exp/slog"
)

// DefaultSecretHeaders are masked when no secret headers are given.
var DefaultSecretHeaders = []string{"Authorization", "Cookie", "Set-Cookie", "Proxy-Authorization"}

// RoundTripperOpts contains options for client logger.
type RoundTripperOpts struct {
	Level         slog.Level
	SecretHeaders []string
	// BodyLimit is the number of body bytes to log, 0 means trimBodyAt.
	BodyLimit int64
}

// LoggingRoundTripper logs every client request.
func LoggingRoundTripper(lg *slog.Logger, opts RoundTripperOpts) middleware.RoundTripperHandler {
	if len(opts.SecretHeaders) == 0 {
		opts.SecretHeaders = DefaultSecretHeaders
	}
	if opts.BodyLimit <= 0 {
		opts.BodyLimit = trimBodyAt
	}

	return func(next http.RoundTripper) http.RoundTripper {
		return middleware.RoundTripperFunc(func(req *http.Request) (*http.Response, error) {
			if !lg.Handler().Enabled(req.Context(), opts.Level) {
				return next.RoundTrip(req)
			}

			le := logEntry{}

			le.Request.URL = req.URL.String()
			le.Request.Method = req.Method
			le.Request.Headers = maskHeaders(req.Header, opts.SecretHeaders)
			req.Body, le.Request.RequestBody = copyAndTrim(req.Body, opts.BodyLimit)

			lg.LogAttrs(req.Context(), opts.Level, "request sent", slog.Any("request", le.Request))

			start := time.Now()
			resp, err := next.RoundTrip(req)
			le.Elapsed = time.Since(start)
			le.Error = err

			if resp != nil {
				le.Response.Headers = maskHeaders(resp.Header, opts.SecretHeaders)
				le.Response.StatusCode = resp.StatusCode
			}

			lg.LogAttrs(req.Context(), opts.Level, "response received",
				slog.Any("response", le.Response),
				slog.Any("elapsed", le.Elapsed),
				slog.Any("err", le.Error),
			)

			// the response body is logged as the caller reads it, reading it
			// here would hide the first chunks from the caller's idle timer
			if resp != nil && resp.Body != nil && resp.Body != http.NoBody {
				ctx := req.Context()
				resp.Body = &bodyCapture{ReadCloser: resp.Body, limit: opts.BodyLimit, report: func(body string) {
					lg.LogAttrs(ctx, opts.Level, "response body", slog.String("body", body))
				}}
			}

			return resp, err
		})
	}
}

func maskHeaders(h http.Header, secret []string) map[string]string {
	res := make(map[string]string, len(h))
	for k, vals := range h {
		if lo.Contains(secret, http.CanonicalHeaderKey(k)) {
			res[k] = "***"
			continue
		}
		res[k] = strings.Join(vals, ",")
	}
	return res
}

type logEntry struct {
	Request struct {
		Method      string
		URL         string
		Headers     map[string]string
		RequestBody string
	}
	Response struct {
		StatusCode int
		Headers    map[string]string
	}
	Error   error
	Elapsed time.Duration
}

const trimBodyAt = 1024

func copyAndTrim(r io.ReadCloser, limit int64) (rd io.ReadCloser, result string) {
	if r == nil || r == http.NoBody {
		return r, ""
	}

	rd, result, _ = readPortion(r, limit+1)
	return rd, trimBody(result, limit)
}

func trimBody(s string, limit int64) string {
	if int64(len(s)) > limit {
		s = s[:limit] + "..."
	}
	s = strings.ReplaceAll(s, "\n", "")
	return strings.ReplaceAll(s, "\t", "")
}

// bodyCapture keeps the first bytes of the body read by the consumer and
// reports them once, on EOF or close.
type bodyCapture struct {
	io.ReadCloser
	limit  int64
	buf    bytes.Buffer
	once   sync.Once
	report func(body string)
}

func (b *bodyCapture) Read(p []byte) (int, error) {
	n, err := b.ReadCloser.Read(p)
	if room := b.limit + 1 - int64(b.buf.Len()); room > 0 && n > 0 {
		if int64(n) < room {
			room = int64(n)
		}
		b.buf.Write(p[:room])
	}
	if errors.Is(err, io.EOF) {
		b.flush()
	}
	return n, err
}

func (b *bodyCapture) Close() error {
	b.flush()
	return b.ReadCloser.Close()
}

func (b *bodyCapture) flush() {
	b.once.Do(func() { b.report(trimBody(b.buf.String(), b.limit)) })
}

func readPortion(src io.ReadCloser, limit int64) (rd io.ReadCloser, portion string, read int64) {
	buf := &bytes.Buffer{}

	read, err := io.CopyN(buf, src, limit)
	switch {
	case errors.Is(err, io.EOF):
		return &closer{rd: bytes.NewReader(buf.Bytes()), closeFn: src.Close}, buf.String(), read
	case err != nil:
		// keep the read failure for the actual consumer of the body
		return &closer{rd: io.MultiReader(bytes.NewReader(buf.Bytes()), errReader{err: err}), closeFn: src.Close},
			buf.String(), read
	}

	return &closer{rd: io.MultiReader(bytes.NewReader(buf.Bytes()), src), closeFn: src.Close}, buf.String(), read
}

type closer struct {
	rd      io.Reader
	closeFn func() error
}

func (c *closer) Read(p []byte) (n int, err error) { return c.rd.Read(p) }
func (c *closer) Close() error                     { return c.closeFn() }

type errReader struct{ err error }

func (e errReader) Read([]byte) (int, error) { return 0, e.err }
