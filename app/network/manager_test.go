package network

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/klauspost/compress/zstd"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newManager(t *testing.T, cfg Config, opts ...Option) *Manager {
	m, err := NewManager(cfg, opts...)
	require.NoError(t, err)
	t.Cleanup(func() { _ = m.Close() })
	return m
}

func mockRequest(p Params, before bool, errMsg string) *RequestMock {
	return &RequestMock{
		ParamsFunc:        func() Params { return p },
		BeforeFunc:        func() bool { return before },
		HandleHeaderFunc:  func(string) {},
		HandleContentFunc: func([]byte) {},
		AfterFunc:         func(string) bool { return true },
		ErrorMessageFunc:  func() string { return errMsg },
	}
}

func TestManager_Perform(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("body of " + r.URL.Path))
	}))
	defer ts.Close()

	m := newManager(t, Config{Timeout: 5 * time.Second})

	cancelled := mockRequest(Params{URL: "http://books.example.org/opds"}, false, "")
	first := NewBufferRequest(Params{URL: ts.URL + "/first"})
	second := NewBufferRequest(Params{URL: ts.URL + "/second"})

	res := m.Perform(context.Background(), first, cancelled, second)
	assert.Equal(t, "Something is wrong with books.example.org, please try again later", res)

	assert.Equal(t, "body of /first", first.Body.String())
	assert.Equal(t, "body of /second", second.Body.String())
	assert.Equal(t, "HTTP/1.1 200 OK", first.Status)
	assert.Empty(t, cancelled.HandleHeaderCalls())
	assert.Empty(t, cancelled.AfterCalls())
	assert.Equal(t, 0, m.InFlight())

	t.Run("pre-flight message of the request", func(t *testing.T) {
		req := mockRequest(Params{URL: ts.URL}, false, "not signed in")
		assert.Equal(t, "not signed in", m.Perform(context.Background(), req))
	})

	t.Run("empty batch", func(t *testing.T) {
		assert.Equal(t, "", m.Perform(context.Background()))
	})
}

func TestManager_PerformErrorsInOrder(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/slow" {
			time.Sleep(50 * time.Millisecond)
		}
		http.NotFound(w, r)
	}))
	defer ts.Close()

	m := newManager(t, Config{})

	res := m.Perform(context.Background(),
		NewBufferRequest(Params{URL: ts.URL + "/slow"}),
		NewBufferRequest(Params{URL: ts.URL + "/fast"}),
	)

	assert.Equal(t, []string{
		"Something is wrong with " + ts.URL + "/slow, please try again later",
		"Something is wrong with " + ts.URL + "/fast, please try again later",
	}, strings.Split(res, "\n"))
}

func TestManager_PerformListener(t *testing.T) {
	release := make(chan struct{})
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/slow":
			<-release
			_, _ = w.Write([]byte("ok"))
		default:
			http.NotFound(w, r)
		}
	}))
	defer ts.Close()

	m := newManager(t, Config{})

	done := make(chan string, 1)
	detached := NewBufferRequest(Params{URL: ts.URL + "/slow", Listener: func(errMsg string) { done <- errMsg }})
	tracked := NewBufferRequest(Params{URL: ts.URL + "/missing"})

	res := m.Perform(context.Background(), detached, tracked)
	assert.Equal(t, "Something is wrong with "+ts.URL+"/missing, please try again later", res)
	assert.Equal(t, 1, m.InFlight())

	close(release)

	select {
	case errMsg := <-done:
		assert.Empty(t, errMsg)
	case <-time.After(5 * time.Second):
		t.Fatal("listener was not notified")
	}

	assert.Equal(t, "ok", detached.Body.String())
	require.NoError(t, m.Close())
	assert.Equal(t, 0, m.InFlight())
}

func TestManager_PerformListenerErrorsNotCollected(t *testing.T) {
	ts := httptest.NewServer(http.NotFoundHandler())
	defer ts.Close()

	m := newManager(t, Config{})

	done := make(chan string, 1)
	req := NewBufferRequest(Params{URL: ts.URL + "/x", Listener: func(errMsg string) { done <- errMsg }})

	assert.Equal(t, "", m.Perform(context.Background(), req))
	assert.Equal(t, "Something is wrong with "+ts.URL+"/x, please try again later", <-done)
	assert.Equal(t, "Something is wrong with "+ts.URL+"/x, please try again later", req.ErrorMessage())
}

func TestManager_Redirect(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/old" {
			http.Redirect(w, r, "/new", http.StatusFound)
			return
		}
		_, _ = w.Write([]byte("moved here"))
	}))
	defer ts.Close()

	m := newManager(t, Config{})

	t.Run("followed", func(t *testing.T) {
		req := NewBufferRequest(Params{URL: ts.URL + "/old"})
		assert.Equal(t, "", m.Perform(context.Background(), req))
		assert.Equal(t, "HTTP/1.1 200 OK", req.Status)
		assert.Equal(t, "moved here", req.Body.String())
	})

	t.Run("not followed", func(t *testing.T) {
		req := NewBufferRequest(Params{URL: ts.URL + "/old", NoRedirect: true})
		assert.Equal(t, "", m.Perform(context.Background(), req))
		assert.Equal(t, "HTTP/1.1 302 Found", req.Status)
		assert.Contains(t, req.Headers, "Location: /new")
		assert.Contains(t, req.Body.String(), "/new")
	})
}

func TestManager_TooManyRedirects(t *testing.T) {
	var hits int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := atomic.AddInt32(&hits, 1)
		http.Redirect(w, r, "/hop"+strconv.Itoa(int(n)), http.StatusMovedPermanently)
	}))
	defer ts.Close()

	m := newManager(t, Config{})

	req := mockRequest(Params{URL: ts.URL}, true, "")
	res := m.Perform(context.Background(), req)
	assert.Contains(t, res, ErrTooManyRedirects.Error())
	assert.Equal(t, int32(maxRedirects+1), atomic.LoadInt32(&hits))
	assert.Empty(t, req.HandleContentCalls())
}

func TestManager_Authentication(t *testing.T) {
	var total, withAuth int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&total, 1)
		user, pass, ok := r.BasicAuth()
		if ok {
			atomic.AddInt32(&withAuth, 1)
		}
		if ok && user == "reader" && pass == "secret" {
			_, _ = w.Write([]byte("welcome"))
			return
		}
		w.Header().Set("WWW-Authenticate", `Basic realm="opds"`)
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer ts.Close()

	m := newManager(t, Config{})

	tbl := []struct {
		name     string
		password string
		wantErr  string
		wantBody string
		status   string
	}{
		{name: "accepted", password: "secret", wantBody: "welcome", status: "HTTP/1.1 200 OK"},
		{name: "rejected", password: "wrong", wantErr: "Authentication failed", status: "HTTP/1.1 401 Unauthorized"},
	}

	for _, tt := range tbl {
		t.Run(tt.name, func(t *testing.T) {
			atomic.StoreInt32(&total, 0)
			atomic.StoreInt32(&withAuth, 0)

			req := NewBufferRequest(Params{URL: ts.URL + "/catalog", UserName: "reader", Password: tt.password})
			assert.Equal(t, tt.wantErr, m.Perform(context.Background(), req))
			assert.Equal(t, tt.wantBody, req.Body.String())
			assert.Equal(t, tt.status, req.Status)

			// the challenge is answered only once
			assert.Equal(t, int32(2), atomic.LoadInt32(&total))
			assert.Equal(t, int32(1), atomic.LoadInt32(&withAuth))
		})
	}
}

func TestManager_Timeout(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/stall":
			w.WriteHeader(http.StatusOK)
			w.(http.Flusher).Flush()
			select {
			case <-time.After(5 * time.Second):
			case <-r.Context().Done():
			}
		case "/drip":
			for i := 0; i < 5; i++ {
				_, _ = w.Write([]byte("x"))
				w.(http.Flusher).Flush()
				time.Sleep(30 * time.Millisecond)
			}
		}
	}))
	defer ts.Close()

	m := newManager(t, Config{Timeout: 100 * time.Millisecond})

	t.Run("stalled body", func(t *testing.T) {
		req := mockRequest(Params{URL: ts.URL + "/stall"}, true, "")
		assert.Equal(t, "Operation timed out", m.Perform(context.Background(), req))
		assert.Empty(t, req.HandleHeaderCalls())
		assert.Empty(t, req.HandleContentCalls())
		require.Len(t, req.AfterCalls(), 1)
		assert.Equal(t, "Operation timed out", req.AfterCalls()[0].ErrMsg)
	})

	t.Run("every chunk refreshes the timer", func(t *testing.T) {
		req := NewBufferRequest(Params{URL: ts.URL + "/drip"})
		assert.Equal(t, "", m.Perform(context.Background(), req))
		assert.Equal(t, "xxxxx", req.Body.String())
	})

	t.Run("cancelled context", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		req := NewBufferRequest(Params{URL: ts.URL + "/drip"})
		assert.Equal(t, "Operation timed out", m.Perform(ctx, req))
	})
}

func TestManager_Headers(t *testing.T) {
	enc, err := zstd.NewWriter(nil)
	require.NoError(t, err)
	compressed := enc.EncodeAll([]byte("decoded feed"), nil)

	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Zeta", "last")
		w.Header().Set("Content-Encoding", "zstd")
		w.Header().Add("X-Alpha", "one")
		w.Header().Add("X-Alpha", "two")
		_, _ = w.Write(compressed)
	}))
	defer ts.Close()

	m := newManager(t, Config{})

	req := NewBufferRequest(Params{URL: ts.URL})
	assert.Equal(t, "", m.Perform(context.Background(), req))
	assert.Equal(t, "decoded feed", req.Body.String())

	assert.Equal(t, "HTTP/1.1 200 OK", req.Status)
	for _, h := range req.Headers {
		assert.NotContains(t, h, "Content-Encoding")
	}

	var custom []string
	for _, h := range req.Headers {
		if strings.HasPrefix(h, "X-") {
			custom = append(custom, h)
		}
	}
	assert.Equal(t, []string{"X-Alpha: one", "X-Alpha: two", "X-Zeta: last"}, custom)
}

func TestManager_PostAndUserAgent(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		_, _ = w.Write([]byte(strings.Join([]string{
			r.Method, r.Header.Get("Content-Type"), r.UserAgent(), string(body),
		}, "|")))
	}))
	defer ts.Close()

	m := newManager(t, Config{UserAgent: "opdsnet/test"})

	post := NewBufferRequest(Params{URL: ts.URL, PostData: []KV{{Key: "login", Value: "a b"}, {Key: "author", Value: "Lev&Tolstoy"}}})
	get := NewBufferRequest(Params{URL: ts.URL})
	assert.Equal(t, "", m.Perform(context.Background(), post, get))

	assert.Equal(t, "POST|application/x-www-form-urlencoded|opdsnet/test|login=a+b&author=Lev%26Tolstoy", post.Body.String())
	assert.Equal(t, "GET||opdsnet/test|", get.Body.String())
}

func TestManager_TLS(t *testing.T) {
	ts := httptest.NewTLSServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("secure"))
	}))
	defer ts.Close()

	m := newManager(t, Config{})

	verified := NewBufferRequest(Params{URL: ts.URL})
	assert.Equal(t, "SSL connect error while accessing "+ts.URL, m.Perform(context.Background(), verified))
	assert.Empty(t, verified.Status)

	skipped := NewBufferRequest(Params{URL: ts.URL, InsecureSkipVerify: true})
	assert.Equal(t, "", m.Perform(context.Background(), skipped))
	assert.Equal(t, "secure", skipped.Body.String())
}

func TestManager_StatusErrors(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		code, err := strconv.Atoi(strings.TrimPrefix(r.URL.Path, "/"))
		require.NoError(t, err)
		w.WriteHeader(code)
		_, _ = w.Write([]byte("error page"))
	}))
	defer ts.Close()

	m := newManager(t, Config{})

	tbl := []struct {
		code int
		want string
	}{
		{code: http.StatusNotFound, want: "Something is wrong with " + ts.URL + "/404, please try again later"},
		{code: http.StatusForbidden, want: "Error transferring " + ts.URL + "/403 - server replied: Forbidden"},
		{code: http.StatusInternalServerError, want: "Unknown error"},
		{code: http.StatusTeapot, want: "Unknown error"},
		{code: http.StatusUnauthorized, want: "Authentication failed"},
	}

	for _, tt := range tbl {
		t.Run(strconv.Itoa(tt.code), func(t *testing.T) {
			req := mockRequest(Params{URL: ts.URL + "/" + strconv.Itoa(tt.code)}, true, "")
			assert.Equal(t, tt.want, m.Perform(context.Background(), req))
			assert.NotEmpty(t, req.HandleHeaderCalls(), "headers are delivered")
			assert.Empty(t, req.HandleContentCalls(), "content is not")
		})
	}
}

func TestManager_AfterFailure(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/missing" {
			http.NotFound(w, r)
		}
	}))
	defer ts.Close()

	m := newManager(t, Config{})

	req := mockRequest(Params{URL: ts.URL + "/ok"}, true, "failed to parse catalog")
	req.AfterFunc = func(string) bool { return false }
	assert.Equal(t, "failed to parse catalog", m.Perform(context.Background(), req))

	req = mockRequest(Params{URL: ts.URL + "/missing"}, true, "no catalog")
	req.AfterFunc = func(string) bool { return false }
	assert.Equal(t, "Something is wrong with "+ts.URL+"/missing, please try again later\nno catalog",
		m.Perform(context.Background(), req))
}

func TestManager_UnsupportedURL(t *testing.T) {
	m := newManager(t, Config{})

	req := mockRequest(Params{URL: "ftp://books.example.org/file.epub"}, true, "")
	assert.Equal(t, "Unknown error", m.Perform(context.Background(), req))
	assert.Empty(t, req.HandleHeaderCalls())

	req = mockRequest(Params{URL: "http://[::1"}, true, "")
	assert.Equal(t, "Unknown error", m.Perform(context.Background(), req))
}

func TestManager_Proxy(t *testing.T) {
	proxy := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("proxied " + r.URL.Host))
	}))
	defer proxy.Close()

	u, err := url.Parse(proxy.URL)
	require.NoError(t, err)
	port, err := strconv.Atoi(u.Port())
	require.NoError(t, err)

	m := newManager(t, Config{Proxy: Proxy{Enabled: true, Host: u.Hostname(), Port: port}})

	req := NewBufferRequest(Params{URL: "books.example.org/opds"})
	assert.Equal(t, "", m.Perform(context.Background(), req))
	assert.Equal(t, "proxied books.example.org", req.Body.String())
}

func TestManager_Cookies(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/login" {
			http.SetCookie(w, &http.Cookie{Name: "sid", Value: "42", Path: "/"})
			return
		}
		c, err := r.Cookie("sid")
		if err != nil {
			_, _ = w.Write([]byte("anonymous"))
			return
		}
		_, _ = w.Write([]byte(c.Value))
	}))
	defer ts.Close()

	path := filepath.Join(t.TempDir(), "cookies.txt")
	m := newManager(t, Config{CookiesPath: path})

	assert.Equal(t, "", m.Perform(context.Background(), NewBufferRequest(Params{URL: ts.URL + "/login"})))

	check := NewBufferRequest(Params{URL: ts.URL + "/check"})
	assert.Equal(t, "", m.Perform(context.Background(), check))
	assert.Equal(t, "42", check.Body.String())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Len(t, strings.Split(string(data), "\n"), 1)
	assert.Contains(t, string(data), "sid=42")
	assert.Equal(t, 1, m.Jar().Len())

	all := m.Jar().All()
	require.Len(t, all, 1)
	assert.Equal(t, "sid", all[0].Name)
	assert.Equal(t, "127.0.0.1", all[0].Domain)
}

func TestManager_Cache(t *testing.T) {
	var notModified int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("If-None-Match") == `"rev1"` {
			atomic.AddInt32(&notModified, 1)
			w.WriteHeader(http.StatusNotModified)
			return
		}
		w.Header().Set("ETag", `"rev1"`)
		_, _ = w.Write([]byte("<feed/>"))
	}))
	defer ts.Close()

	dir := filepath.Join(t.TempDir(), "nested", "cache")
	m := newManager(t, Config{CacheDir: dir}, WithMemCacheKeys(1))

	_, err := os.Stat(filepath.Join(dir, "http-cache.db"))
	require.NoError(t, err)

	first := NewBufferRequest(Params{URL: ts.URL + "/feed"})
	assert.Equal(t, "", m.Perform(context.Background(), first))

	second := NewBufferRequest(Params{URL: ts.URL + "/feed"})
	assert.Equal(t, "", m.Perform(context.Background(), second))

	assert.Equal(t, "<feed/>", second.Body.String())
	assert.Equal(t, "HTTP/1.1 200 OK", second.Status)
	assert.Contains(t, second.Headers, "X-From-Cache: 1")
	assert.Equal(t, int32(1), atomic.LoadInt32(&notModified))

	assert.Equal(t, 1, m.memCacheKeys)
	st := m.cache.Stat()
	assert.Equal(t, 1, st.Hits, "second request is validated against the memory entry")
	assert.Equal(t, 1, st.Misses)
	assert.Equal(t, 1, st.Added)
}

func TestFileRequest(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("epub bytes"))
	}))
	defer ts.Close()

	m := newManager(t, Config{})
	dir := t.TempDir()

	req := NewFileRequest(Params{URL: ts.URL}, filepath.Join(dir, "books", "war.epub"))
	assert.Equal(t, "", m.Perform(context.Background(), req))

	data, err := os.ReadFile(filepath.Join(dir, "books", "war.epub"))
	require.NoError(t, err)
	assert.Equal(t, "epub bytes", string(data))

	// a file in place of the directory fails the write
	blocker := filepath.Join(dir, "blocker")
	require.NoError(t, os.WriteFile(blocker, nil, 0o600))
	req = NewFileRequest(Params{URL: ts.URL}, filepath.Join(blocker, "war.epub"))
	res := m.Perform(context.Background(), req)
	assert.Contains(t, res, "make directory for")
}

func TestManager_EmptyBody(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))
	defer ts.Close()

	m := newManager(t, Config{})

	req := mockRequest(Params{URL: ts.URL}, true, "")
	assert.Equal(t, "", m.Perform(context.Background(), req))
	assert.Empty(t, req.HandleContentCalls())
	require.NotEmpty(t, req.HandleHeaderCalls())
	assert.Equal(t, "HTTP/1.1 204 No Content", req.HandleHeaderCalls()[0].Line)
	require.Len(t, req.AfterCalls(), 1)
	assert.Equal(t, "", req.AfterCalls()[0].ErrMsg)

	path := filepath.Join(t.TempDir(), "empty", "ping")
	file := NewFileRequest(Params{URL: ts.URL}, path)
	assert.Equal(t, "", m.Perform(context.Background(), file))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Empty(t, data)
}
