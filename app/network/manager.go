// Package network implements the dispatcher of batched HTTP requests with
// persistent cookies, response cache and the error texts for the user.
package network

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"os"
	"sort"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/go-pkgz/requester"
	"github.com/go-pkgz/requester/middleware"
	"github.com/google/uuid"
	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
	"github.com/samber/lo"
	"golang.org/x/exp/slog"
	"golang.org/x/sync/errgroup"

	"github.com/Semior001/opdsnet/pkg/cookiejar"
	"github.com/Semior001/opdsnet/pkg/httpcache"
	"github.com/Semior001/opdsnet/pkg/logx"
)

const maxRedirects = 10

// Manager performs batches of requests. It is safe for concurrent use.
type Manager struct {
	cfg          Config
	log          *slog.Logger
	msgs         Messages
	memCacheKeys int

	jar   *cookiejar.Jar
	cache *httpcache.Bolt

	secure   http.Client
	insecure http.Client
	mws      []middleware.RoundTripperHandler
	proxy    atomic.Pointer[url.URL]

	mu        sync.Mutex
	exchanges map[string]*scope
	detached  sync.WaitGroup
}

// NewManager makes a new manager, loads cookies and opens the cache.
func NewManager(cfg Config, opts ...Option) (*Manager, error) {
	m := &Manager{
		cfg:          cfg,
		log:          slog.New(logx.NoOp()),
		msgs:         DefaultMessages(),
		memCacheKeys: 100,
		exchanges:    map[string]*scope{},
	}

	for _, opt := range opts {
		opt(m)
	}

	var err error
	if m.jar, err = cookiejar.New(m.log.With(slog.String("prefix", "cookies")), ExpandHome(cfg.CookiesPath)); err != nil {
		return nil, fmt.Errorf("make cookie jar: %w", err)
	}

	// the last middleware is the outermost one
	m.mws = []middleware.RoundTripperHandler{
		logx.LoggingRoundTripper(m.log, logx.RoundTripperOpts{Level: slog.LevelDebug}),
	}

	if cfg.CacheDir != "" {
		dir := ExpandHome(cfg.CacheDir)
		if err = os.MkdirAll(dir, 0o750); err != nil {
			return nil, fmt.Errorf("make cache dir %s: %w", dir, err)
		}

		if m.cache, err = httpcache.NewBolt(m.log.With(slog.String("prefix", "cache")), dir, m.memCacheKeys); err != nil {
			return nil, fmt.Errorf("make response cache: %w", err)
		}

		m.mws = append(m.mws, m.cache.Middleware())
	}

	if cfg.UserAgent != "" {
		m.mws = append(m.mws, middleware.Header("User-Agent", cfg.UserAgent))
	}

	m.secure = m.client(false)
	m.insecure = m.client(true)

	return m, nil
}

// Jar returns the cookies of the manager.
func (m *Manager) Jar() *cookiejar.Jar { return m.jar }

// InFlight returns the number of exchanges that are not finished yet.
func (m *Manager) InFlight() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.exchanges)
}

// Close waits for the detached requests, saves cookies and closes the cache.
func (m *Manager) Close() error {
	m.detached.Wait()

	var errs []error
	if err := m.jar.Save(); err != nil {
		errs = append(errs, fmt.Errorf("save cookies: %w", err))
	}

	if m.cache != nil {
		st := m.cache.Stat()
		m.log.Debug("cache stats", slog.Int("hits", st.Hits), slog.Int("misses", st.Misses),
			slog.Int("added", st.Added), slog.Int("evicted", st.Evicted))

		if err := m.cache.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close cache: %w", err))
		}
	}

	return errors.Join(errs...)
}

// Perform dispatches the requests and waits for every request without
// a listener to finish. It returns the errors of the batch joined by
// newlines, in the order of the requests, or an empty string.
func (m *Manager) Perform(ctx context.Context, reqs ...Request) string {
	if p := m.cfg.Proxy; p.Enabled {
		m.proxy.Store(&url.URL{Scheme: "http", Host: net.JoinHostPort(p.Host, strconv.Itoa(p.Port))})
	}

	errs := newBatchErrors(len(reqs))
	ewg := &errgroup.Group{}

	for i, req := range reqs {
		if req == nil {
			continue
		}

		if !req.Before() {
			p := req.Params()
			m.log.DebugCtx(ctx, "request cancelled before dispatch", slog.String("url", p.URL))
			if p.Listener != nil {
				continue
			}

			msg := req.ErrorMessage()
			if msg == "" {
				msg = format(m.msgs.SomethingWrong, hostOf(p.URL))
			}
			errs.add(i, msg)
			continue
		}

		sc := m.open(ctx, req, i)

		if sc.params.Listener != nil {
			m.detached.Add(1)
			go func() {
				defer m.detached.Done()
				m.finish(sc, m.exchange(sc), nil)
			}()
			continue
		}

		ewg.Go(func() error {
			m.finish(sc, m.exchange(sc), errs)
			return nil
		})
	}

	_ = ewg.Wait()

	return errs.String()
}

func (m *Manager) open(ctx context.Context, req Request, slot int) *scope {
	p := req.Params()
	id := uuid.NewString()

	if p.Listener != nil {
		// detached requests outlive the batch
		ctx = context.Background()
	}

	sc := &scope{id: id, slot: slot, req: req, params: p, timeout: m.cfg.Timeout}
	sc.ctx, sc.cancel = context.WithCancel(logx.ContextWithExchangeID(ctx, id))
	sc.target, sc.urlErr = parseUserURL(p.URL)

	m.mu.Lock()
	m.exchanges[id] = sc
	m.mu.Unlock()

	return sc
}

func (m *Manager) finish(sc *scope, errMsg string, errs *batchErrors) {
	defer func() {
		m.mu.Lock()
		delete(m.exchanges, sc.id)
		m.mu.Unlock()
	}()

	if errMsg != "" {
		m.log.WarnCtx(sc.ctx, "exchange failed", slog.String("url", sc.url()), slog.String("err", errMsg))
	}

	ok := sc.req.After(errMsg)

	if sc.params.Listener != nil {
		sc.params.Listener(errMsg)
		return
	}

	errs.add(sc.slot, errMsg)
	if !ok {
		errs.add(sc.slot, sc.req.ErrorMessage())
	}
}

// exchange runs the request through redirects and authentication and
// returns the error message, empty on success.
func (m *Manager) exchange(sc *scope) string {
	defer sc.cancel()

	if sc.urlErr != nil {
		m.log.DebugCtx(sc.ctx, "invalid url", slog.String("url", sc.params.URL), slog.Any("err", sc.urlErr))
		return m.msgs.UnknownError
	}

	m.log.DebugCtx(sc.ctx, "requesting", slog.String("url", sc.url()))

	sc.arm()
	defer sc.stopTimer()

	for hop := 0; ; hop++ {
		if sc.target.Scheme != "http" && sc.target.Scheme != "https" {
			return m.describeErr(sc, fmt.Errorf("%w: %q", ErrUnsupportedScheme, sc.target.Scheme))
		}

		resp, err := m.roundTrip(sc)
		if err != nil {
			return m.describeErr(sc, err)
		}

		next, ok := redirectTarget(sc, resp)
		if !ok {
			return m.deliver(sc, resp)
		}

		m.discard(sc, resp)

		if hop >= maxRedirects {
			return m.describeErr(sc, fmt.Errorf("%w: stopped after %d hops", ErrTooManyRedirects, maxRedirects))
		}

		m.log.DebugCtx(sc.ctx, "following redirect", slog.String("from", sc.url()), slog.String("to", next.String()))
		sc.target = next
		sc.authAsked = false
		sc.touch()
	}
}

// roundTrip sends the request and answers the first authentication
// challenge with the credentials of the request.
func (m *Manager) roundTrip(sc *scope) (*http.Response, error) {
	resp, err := m.send(sc, false)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode != http.StatusUnauthorized || resp.Header.Get("WWW-Authenticate") == "" || sc.authAsked {
		return resp, nil
	}

	sc.authAsked = true
	m.discard(sc, resp)

	m.log.DebugCtx(sc.ctx, "answering authentication challenge",
		slog.String("url", sc.url()), slog.String("user", sc.params.UserName))

	return m.send(sc, true)
}

func (m *Manager) send(sc *scope, auth bool) (*http.Response, error) {
	method, body := http.MethodGet, io.Reader(http.NoBody)
	if sc.params.PostData != nil {
		method, body = http.MethodPost, strings.NewReader(encodeForm(sc.params.PostData))
	}

	req, err := http.NewRequestWithContext(sc.ctx, method, sc.target.String(), body)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}

	if method == http.MethodPost {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}

	cl := m.secure
	if sc.params.InsecureSkipVerify {
		cl = m.insecure
	}

	mws := m.mws
	if auth {
		mws = append(append([]middleware.RoundTripperHandler{}, m.mws...),
			middleware.BasicAuth(sc.params.UserName, sc.params.Password))
	}

	return requester.New(cl, mws...).Do(req)
}

// deliver passes the final response to the request.
func (m *Manager) deliver(sc *scope, resp *http.Response) string {
	defer func() {
		if err := resp.Body.Close(); err != nil {
			m.log.WarnCtx(sc.ctx, "failed to close response body", slog.Any("err", err))
		}
	}()

	body, readErr := readBody(sc, resp)
	sc.stopTimer()

	if sc.expired() {
		return m.msgs.OperationTimedOut
	}

	errMsg := m.describeStatus(sc, resp)
	if errMsg == "" && readErr != nil {
		errMsg = m.describeErr(sc, readErr)
	}

	for _, line := range headerLines(resp) {
		sc.req.HandleHeader(line)
	}

	if errMsg == "" && len(body) > 0 {
		sc.req.HandleContent(body)
	}

	return errMsg
}

func (m *Manager) discard(sc *scope, resp *http.Response) {
	_, _ = io.Copy(io.Discard, &idleReader{r: resp.Body, touch: sc.touch})
	if err := resp.Body.Close(); err != nil {
		m.log.WarnCtx(sc.ctx, "failed to close response body", slog.Any("err", err))
	}
}

func (m *Manager) client(insecure bool) http.Client {
	tr := http.DefaultTransport.(*http.Transport).Clone()
	tr.Proxy = func(*http.Request) (*url.URL, error) { return m.proxy.Load(), nil }
	if insecure {
		tr.TLSClientConfig = &tls.Config{InsecureSkipVerify: true} //nolint:gosec // requested per exchange
	}

	return http.Client{
		Transport: tr,
		Jar:       m.jar,
		// redirects are followed by the manager
		CheckRedirect: func(*http.Request, []*http.Request) error { return http.ErrUseLastResponse },
	}
}

func redirectTarget(sc *scope, resp *http.Response) (*url.URL, bool) {
	if sc.params.NoRedirect {
		return nil, false
	}

	switch resp.StatusCode {
	case http.StatusMovedPermanently, http.StatusFound, http.StatusSeeOther,
		http.StatusTemporaryRedirect, http.StatusPermanentRedirect:
	default:
		return nil, false
	}

	loc := resp.Header.Get("Location")
	if loc == "" {
		return nil, false
	}

	next, err := sc.target.Parse(loc)
	if err != nil {
		return nil, false
	}

	return next, true
}

func readBody(sc *scope, resp *http.Response) ([]byte, error) {
	var rd io.Reader = &idleReader{r: resp.Body, touch: sc.touch}

	switch enc := strings.ToLower(resp.Header.Get("Content-Encoding")); {
	case strings.Contains(enc, "gzip"):
		gz, err := gzip.NewReader(rd)
		if errors.Is(err, io.EOF) {
			return nil, nil
		}
		if err != nil {
			return nil, fmt.Errorf("read gzip header: %w", err)
		}
		defer gz.Close()
		rd = gz
	case strings.Contains(enc, "zstd"):
		zr, err := zstd.NewReader(rd)
		if err != nil {
			return nil, fmt.Errorf("make zstd reader: %w", err)
		}
		defer zr.Close()
		rd = zr
	}

	return io.ReadAll(rd)
}

// headerLines renders the status line and the headers, sorted by name.
// Content-Encoding is dropped for the bodies decoded by readBody.
func headerLines(resp *http.Response) []string {
	lines := []string{fmt.Sprintf("HTTP/1.1 %d %s", resp.StatusCode, reason(resp))}

	keys := lo.Keys(resp.Header)
	sort.Strings(keys)

	for _, k := range keys {
		for _, v := range resp.Header[k] {
			enc := strings.ToLower(v)
			if http.CanonicalHeaderKey(k) == "Content-Encoding" &&
				(strings.Contains(enc, "gzip") || strings.Contains(enc, "zstd")) {
				continue
			}
			lines = append(lines, k+": "+v)
		}
	}

	return lines
}

// encodeForm URL-encodes the pairs keeping their order.
func encodeForm(kvs []KV) string {
	parts := make([]string, 0, len(kvs))
	for _, kv := range kvs {
		parts = append(parts, url.QueryEscape(kv.Key)+"="+url.QueryEscape(kv.Value))
	}
	return strings.Join(parts, "&")
}

func hostOf(raw string) string {
	u, err := parseUserURL(raw)
	if err != nil || u.Host == "" {
		return raw
	}
	return u.Hostname()
}
