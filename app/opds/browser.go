package opds

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"

	"golang.org/x/exp/slog"

	"github.com/Semior001/opdsnet/app/catalog"
	"github.com/Semior001/opdsnet/app/network"
	"github.com/Semior001/opdsnet/app/store"
)

// ErrNoSearch is returned when searching in a catalog without a search link.
var ErrNoSearch = errors.New("catalog has no search")

// ErrNoAuth is returned when signing in to a catalog without authentication.
var ErrNoAuth = errors.New("catalog has no authentication")

// Browser loads catalogs into the registry and fetches their feeds.
type Browser struct {
	log   *slog.Logger
	net   Performer
	store store.Interface
}

// NewBrowser makes a new browser.
func NewBrowser(lg *slog.Logger, net Performer, st store.Interface) *Browser {
	return &Browser{log: lg, net: net, store: st}
}

// AddURL downloads the catalog description and puts it to the registry.
func (b *Browser) AddURL(ctx context.Context, u string) (catalog.Link, error) {
	req := NewCatalogRequest(u)
	if errMsg := b.net.Perform(ctx, req); errMsg != "" {
		return catalog.Link{}, fmt.Errorf("load catalog description: %s", errMsg)
	}

	return b.put(ctx, *req.Link)
}

// AddFile parses the catalog description file and puts it to the registry.
func (b *Browser) AddFile(ctx context.Context, path string) (catalog.Link, error) {
	f, err := os.Open(path) //nolint:gosec // path is given by the user
	if err != nil {
		return catalog.Link{}, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	l, err := catalog.Read(f)
	if err != nil {
		return catalog.Link{}, fmt.Errorf("read %s: %w", path, err)
	}

	return b.put(ctx, *l)
}

func (b *Browser) put(ctx context.Context, l catalog.Link) (catalog.Link, error) {
	if err := b.store.Put(ctx, l); err != nil {
		return catalog.Link{}, fmt.Errorf("put catalog %s: %w", l.SiteName, err)
	}

	b.log.InfoCtx(ctx, "catalog added", slog.String("site", l.SiteName), slog.String("title", l.Title))
	return l, nil
}

// Browse fetches the main feed of the catalog, or the search results when
// the query is not empty.
func (b *Browser) Browse(ctx context.Context, site, query string) (Feed, error) {
	l, err := b.store.Get(ctx, site)
	if err != nil {
		return Feed{}, fmt.Errorf("get catalog %s: %w", site, err)
	}

	u := l.MainURL()
	if query != "" {
		if u = l.SearchURL(query); u == "" {
			return Feed{}, ErrNoSearch
		}
	}

	return b.Fetch(ctx, &l, u)
}

// Fetch fetches the page of the catalog at u.
func (b *Browser) Fetch(ctx context.Context, l *catalog.Link, u string) (Feed, error) {
	req := NewFeedRequest(l, u, network.Params{})
	if errMsg := b.net.Perform(ctx, req); errMsg != "" {
		return Feed{}, fmt.Errorf("fetch feed: %s", errMsg)
	}

	return req.Feed, nil
}

// BasicAuthManager signs in to a catalog with a user name and a password.
type BasicAuthManager struct {
	net  Performer
	link *catalog.Link

	mu   sync.Mutex
	user string
}

// NewBasicAuthManager makes the authentication manager of the catalog.
func NewBasicAuthManager(net Performer, l *catalog.Link) (*BasicAuthManager, error) {
	if l.Auth == nil || l.Auth.Type != catalog.AuthBasic || l.Auth.SignInURL() == "" {
		return nil, ErrNoAuth
	}
	return &BasicAuthManager{net: net, link: l}, nil
}

// SignIn requests the sign-in URL with the credentials.
func (m *BasicAuthManager) SignIn(ctx context.Context, user, password string) error {
	req := network.NewBufferRequest(network.Params{
		URL:      m.link.RewriteURL(m.link.Auth.SignInURL()),
		UserName: user,
		Password: password,
	})

	if errMsg := m.net.Perform(ctx, req); errMsg != "" {
		return fmt.Errorf("sign in to %s: %s", m.link.SiteName, errMsg)
	}

	m.mu.Lock()
	m.user = user
	m.mu.Unlock()
	return nil
}

// SignOut requests the sign-out URL, if the catalog has one, and forgets
// the user.
func (m *BasicAuthManager) SignOut(ctx context.Context) error {
	m.mu.Lock()
	m.user = ""
	m.mu.Unlock()

	u := m.link.Auth.SignOutURL()
	if u == "" {
		return nil
	}

	if errMsg := m.net.Perform(ctx, network.NewBufferRequest(network.Params{URL: m.link.RewriteURL(u)})); errMsg != "" {
		return fmt.Errorf("sign out from %s: %s", m.link.SiteName, errMsg)
	}

	return nil
}

// UserName returns the name of the signed in user, empty if not signed in.
func (m *BasicAuthManager) UserName() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.user
}

// String describes the entry for the terminal.
func (e Entry) String() string {
	sb := &strings.Builder{}
	sb.WriteString(e.Title)
	if len(e.Authors) > 0 {
		sb.WriteString(" - " + strings.Join(e.Authors, ", "))
	}
	if e.AccountDependent {
		sb.WriteString(" [sign in required]")
	}
	return sb.String()
}
