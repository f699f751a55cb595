package httpcache

import (
	"bytes"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/go-pkgz/requester/middleware"
	"golang.org/x/exp/slog"
)

// HeaderFromCache is set on responses served from the cache.
const HeaderFromCache = "X-From-Cache"

// Middleware revalidates cached GET responses with the server and answers
// "304 Not Modified" from the cache. Successful responses carrying a
// validator are stored once their body is read to the end.
func (b *Bolt) Middleware() middleware.RoundTripperHandler {
	return func(next http.RoundTripper) http.RoundTripper {
		return middleware.RoundTripperFunc(func(req *http.Request) (*http.Response, error) {
			if !cacheable(req) {
				return next.RoundTrip(req)
			}

			ctx := req.Context()
			key := req.URL.String()

			cached, err := b.Get(ctx, key)
			hit := err == nil && cached.Validated()
			if err != nil && !errors.Is(err, ErrNotFound) {
				b.log.WarnCtx(ctx, "failed to read cached response", slog.String("url", key), slog.Any("err", err))
			}

			if hit {
				req = req.Clone(ctx)
				if etag := cached.Header.Get("ETag"); etag != "" {
					req.Header.Set("If-None-Match", etag)
				}
				if lm := cached.Header.Get("Last-Modified"); lm != "" {
					req.Header.Set("If-Modified-Since", lm)
				}
			}

			resp, err := next.RoundTrip(req)
			if err != nil {
				return nil, err
			}

			switch {
			case hit && resp.StatusCode == http.StatusNotModified:
				_, _ = io.Copy(io.Discard, resp.Body)
				_ = resp.Body.Close()
				b.log.DebugCtx(ctx, "serving from cache", slog.String("url", key))
				return cached.response(req), nil
			case resp.StatusCode == http.StatusOK &&
				(resp.Header.Get("ETag") != "" || resp.Header.Get("Last-Modified") != ""):
				resp.Body = &recorder{rc: resp.Body, onEOF: func(body []byte) {
					e := Entry{
						URL:        key,
						StatusCode: resp.StatusCode,
						Status:     resp.Status,
						Header:     resp.Header.Clone(),
						Body:       body,
						StoredAt:   time.Now(),
					}
					if err := b.Put(ctx, e); err != nil {
						b.log.WarnCtx(ctx, "failed to store response", slog.String("url", key), slog.Any("err", err))
					}
				}}
			}

			return resp, nil
		})
	}
}

// cacheable reports whether the response for the request may be shared
// between users: only plain GET requests without credentials.
func cacheable(req *http.Request) bool {
	return req.Method == http.MethodGet &&
		req.Header.Get("Range") == "" &&
		req.Header.Get("Authorization") == "" &&
		req.Header.Get("If-None-Match") == "" &&
		req.Header.Get("If-Modified-Since") == ""
}

func (e Entry) response(req *http.Request) *http.Response {
	h := e.Header.Clone()
	h.Set(HeaderFromCache, "1")
	return &http.Response{
		Status:        e.Status,
		StatusCode:    e.StatusCode,
		Proto:         "HTTP/1.1",
		ProtoMajor:    1,
		ProtoMinor:    1,
		Header:        h,
		Body:          io.NopCloser(bytes.NewReader(e.Body)),
		ContentLength: int64(len(e.Body)),
		Request:       req,
	}
}

// recorder copies the body while it is read and hands it over once the
// reader reaches io.EOF. Bodies closed early are not recorded.
type recorder struct {
	rc    io.ReadCloser
	buf   bytes.Buffer
	onEOF func([]byte)
	done  bool
}

func (r *recorder) Read(p []byte) (int, error) {
	n, err := r.rc.Read(p)
	r.buf.Write(p[:n])
	if errors.Is(err, io.EOF) && !r.done {
		r.done = true
		r.onEOF(r.buf.Bytes())
	}
	return n, err
}

func (r *recorder) Close() error { return r.rc.Close() }
