package network

import (
	"context"
	"io"
	"net/url"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/samber/lo"
)

// scope holds everything an exchange needs until its completion.
type scope struct {
	id   string
	slot int // position of the request in the batch
	ctx  context.Context

	req    Request
	params Params
	target *url.URL
	urlErr error

	// authAsked is reset on each redirect hop.
	authAsked bool

	cancel  context.CancelFunc
	timeout time.Duration
	timer   *time.Timer
	timeOut atomic.Bool
}

func (sc *scope) url() string {
	if sc.target == nil {
		return sc.params.URL
	}
	return sc.target.String()
}

// arm starts the idle timer, expiry aborts the exchange.
func (sc *scope) arm() {
	if sc.timeout <= 0 {
		return
	}
	sc.timer = time.AfterFunc(sc.timeout, func() {
		sc.timeOut.Store(true)
		sc.cancel()
	})
}

// touch restarts the idle timer.
func (sc *scope) touch() {
	if sc.timer == nil || sc.expired() {
		return
	}
	sc.timer.Reset(sc.timeout)
}

func (sc *scope) stopTimer() {
	if sc.timer != nil {
		sc.timer.Stop()
	}
}

func (sc *scope) expired() bool { return sc.timeOut.Load() }

// idleReader touches the scope on every received chunk.
type idleReader struct {
	r     io.Reader
	touch func()
}

func (i *idleReader) Read(p []byte) (int, error) {
	n, err := i.r.Read(p)
	if n > 0 {
		i.touch()
	}
	return n, err
}

// parseUserURL parses the URL the way a user would type it, assuming http
// when the scheme is missing.
func parseUserURL(s string) (*url.URL, error) {
	s = strings.TrimSpace(s)
	if !strings.Contains(s, "://") {
		s = "http://" + s
	}
	return url.Parse(s)
}

// batchErrors keeps error lines by request position.
type batchErrors struct {
	mu    sync.Mutex
	slots [][]string
}

func newBatchErrors(n int) *batchErrors { return &batchErrors{slots: make([][]string, n)} }

func (b *batchErrors) add(slot int, line string) {
	if line == "" {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.slots[slot] = append(b.slots[slot], line)
}

func (b *batchErrors) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return strings.Join(lo.Flatten(b.slots), "\n")
}
