package network

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/samber/lo"
	"golang.org/x/exp/slog"
)

// Config defines the settings of the manager.
type Config struct {
	// CookiesPath is a file to keep cookies in, empty for memory-only cookies.
	CookiesPath string
	// CacheDir is a directory for the response cache, empty to disable it.
	CacheDir string
	// Timeout is an idle timeout of a single exchange.
	Timeout   time.Duration
	UserAgent string
	Proxy     Proxy
}

// Proxy describes the HTTP proxy to route requests through.
type Proxy struct {
	Enabled bool
	Host    string
	Port    int
}

// Messages are the texts reported for failed exchanges. The first "%s" of a
// template is replaced by the URL or host of the failed request.
type Messages struct {
	AuthenticationFailed string `yaml:"authentication_failed"`
	OperationTimedOut    string `yaml:"operation_timed_out"`
	SSLConnectError      string `yaml:"ssl_connect_error"`
	CouldntConnect       string `yaml:"couldnt_connect"`
	SomethingWrong       string `yaml:"something_wrong"`
	UnknownError         string `yaml:"unknown_error"`
	CouldntResolveProxy  string `yaml:"couldnt_resolve_proxy"`
}

// DefaultMessages returns english texts for the failed exchanges.
func DefaultMessages() Messages {
	return Messages{
		AuthenticationFailed: "Authentication failed",
		OperationTimedOut:    "Operation timed out",
		SSLConnectError:      "SSL connect error while accessing %s",
		CouldntConnect:       "Couldn't connect to %s",
		SomethingWrong:       "Something is wrong with %s, please try again later",
		UnknownError:         "Unknown error",
		CouldntResolveProxy:  "Couldn't resolve proxy for %s",
	}
}

// orDefault fills the empty texts with the default ones.
func (m Messages) orDefault() Messages {
	def := DefaultMessages()
	return Messages{
		AuthenticationFailed: or(m.AuthenticationFailed, def.AuthenticationFailed),
		OperationTimedOut:    or(m.OperationTimedOut, def.OperationTimedOut),
		SSLConnectError:      or(m.SSLConnectError, def.SSLConnectError),
		CouldntConnect:       or(m.CouldntConnect, def.CouldntConnect),
		SomethingWrong:       or(m.SomethingWrong, def.SomethingWrong),
		UnknownError:         or(m.UnknownError, def.UnknownError),
		CouldntResolveProxy:  or(m.CouldntResolveProxy, def.CouldntResolveProxy),
	}
}

func or(s, def string) string { return lo.Ternary(s != "", s, def) }

func format(tmpl, arg string) string { return strings.Replace(tmpl, "%s", arg, 1) }

// Option is a functional option for the manager.
type Option func(*Manager)

// WithLogger sets logger for the manager.
func WithLogger(lg *slog.Logger) Option {
	return func(m *Manager) { m.log = lg }
}

// WithMessages overrides the texts reported for the failed exchanges.
func WithMessages(msgs Messages) Option {
	return func(m *Manager) { m.msgs = msgs.orDefault() }
}

// WithMemCacheKeys sets the number of responses kept in memory in front of
// the disk cache.
func WithMemCacheKeys(n int) Option {
	return func(m *Manager) { m.memCacheKeys = n }
}

// ExpandHome replaces the leading "~" of the path with the home directory.
func ExpandHome(path string) string {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}

	return filepath.Join(home, strings.TrimPrefix(path, "~"))
}
