// Package cmd contains commands for the application.
package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/exp/slog"
	"gopkg.in/yaml.v3"

	"github.com/Semior001/opdsnet/app/network"
	"github.com/Semior001/opdsnet/app/store"
)

// NetOpts are the settings of the network manager.
type NetOpts struct {
	Cookies   string        `long:"cookies" env:"COOKIES" default:"~/.opdsnet/cookies.txt" description:"file to keep cookies in"`
	CacheDir  string        `long:"cache-dir" env:"CACHE_DIR" default:"~/.opdsnet/cache" description:"directory for the response cache"`
	CacheKeys int           `long:"cache-keys" env:"CACHE_KEYS" default:"100" description:"responses kept in memory in front of the cache"`
	Timeout   time.Duration `long:"timeout" env:"TIMEOUT" default:"15s" description:"idle timeout of a single request"`
	UserAgent string        `long:"user-agent" env:"USER_AGENT" description:"user agent, opdsnet/<version> if empty"`
	Messages  string        `long:"messages" env:"MESSAGES" description:"yaml file with the texts of network errors"`

	Proxy struct {
		Enabled bool   `long:"enabled" env:"ENABLED" description:"route requests through the proxy"`
		Host    string `long:"host" env:"HOST" description:"proxy host"`
		Port    int    `long:"port" env:"PORT" default:"8080" description:"proxy port"`
	} `group:"proxy" namespace:"proxy" env-namespace:"PROXY"`
}

// Common contains the options shared by the commands.
type Common struct {
	Net       NetOpts `group:"net" namespace:"net" env-namespace:"NET"`
	StorePath string  `long:"store-path" env:"STORE_PATH" default:"~/.opdsnet" description:"parent dir for bolt files"`

	version string
	out     io.Writer
}

// SetVersion sets the version of the application, it goes to the user agent.
func (c *Common) SetVersion(v string) { c.version = v }

func (c Common) stdout() io.Writer {
	if c.out == nil {
		return os.Stdout
	}
	return c.out
}

func (c Common) manager(lg *slog.Logger) (*network.Manager, error) {
	opts := []network.Option{network.WithLogger(lg.With(slog.String("prefix", "network")))}
	if c.Net.CacheKeys > 0 {
		opts = append(opts, network.WithMemCacheKeys(c.Net.CacheKeys))
	}

	if c.Net.Messages != "" {
		msgs, err := loadMessages(c.Net.Messages)
		if err != nil {
			return nil, fmt.Errorf("load messages: %w", err)
		}
		opts = append(opts, network.WithMessages(msgs))
	}

	ua := c.Net.UserAgent
	if ua == "" {
		ua = "opdsnet/" + c.version
	}

	m, err := network.NewManager(network.Config{
		CookiesPath: c.Net.Cookies,
		CacheDir:    c.Net.CacheDir,
		Timeout:     c.Net.Timeout,
		UserAgent:   ua,
		Proxy: network.Proxy{
			Enabled: c.Net.Proxy.Enabled,
			Host:    c.Net.Proxy.Host,
			Port:    c.Net.Proxy.Port,
		},
	}, opts...)
	if err != nil {
		return nil, fmt.Errorf("make network manager: %w", err)
	}

	return m, nil
}

func (c Common) store() (*store.Bolt, error) {
	dir := network.ExpandHome(c.StorePath)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("make store dir %s: %w", dir, err)
	}

	s, err := store.NewBolt(dir)
	if err != nil {
		return nil, fmt.Errorf("make store: %w", err)
	}

	return s, nil
}

func loadMessages(path string) (network.Messages, error) {
	data, err := os.ReadFile(path) //nolint:gosec // path is given by the user
	if err != nil {
		return network.Messages{}, fmt.Errorf("read file: %w", err)
	}

	var msgs network.Messages
	if err := yaml.Unmarshal(data, &msgs); err != nil {
		return network.Messages{}, fmt.Errorf("parse yaml: %w", err)
	}

	return msgs, nil
}

// signalContext returns a context that is cancelled on SIGINT or SIGTERM.
func signalContext() (context.Context, context.CancelFunc) {
	ctx, stop := context.WithCancel(context.Background())

	go func() {
		sig := make(chan os.Signal, 1)
		signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
		defer signal.Stop(sig)

		select {
		case s := <-sig:
			slog.Warn("caught signal, stopping", slog.String("signal", s.String()))
			stop()
		case <-ctx.Done():
		}
	}()

	return ctx, stop
}

func closeAll(lg *slog.Logger, closers map[string]io.Closer) {
	for name, c := range closers {
		if err := c.Close(); err != nil {
			lg.Error("failed to close "+name, slog.Any("err", err))
		}
	}
}
