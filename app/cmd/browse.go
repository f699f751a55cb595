package cmd

import (
	"fmt"
	"io"

	"golang.org/x/exp/slog"

	"github.com/Semior001/opdsnet/app/opds"
)

// Browse is a command to list a page of a catalog.
type Browse struct {
	Common
	Search   string `long:"search" description:"search query"`
	Page     string `long:"page" description:"url of the page to open instead of the main one"`
	User     string `long:"user" env:"OPDS_USER" description:"user to sign in with"`
	Password string `long:"password" env:"OPDS_PASSWORD" description:"password to sign in with"`

	Args struct {
		Site string `positional-arg-name:"site" required:"true" description:"site name of the catalog"`
	} `positional-args:"yes"`
}

// Execute runs the command.
func (b Browse) Execute(_ []string) error {
	lg := slog.Default()

	s, err := b.store()
	if err != nil {
		return err
	}

	m, err := b.manager(lg)
	if err != nil {
		_ = s.Close()
		return err
	}
	defer closeAll(lg, map[string]io.Closer{"store": s, "network manager": m})

	ctx, stop := signalContext()
	defer stop()

	br := opds.NewBrowser(lg.With(slog.String("prefix", "opds")), m, s)

	if b.User != "" {
		l, err := s.Get(ctx, b.Args.Site)
		if err != nil {
			return fmt.Errorf("get catalog %s: %w", b.Args.Site, err)
		}

		am, err := opds.NewBasicAuthManager(m, &l)
		if err != nil {
			return fmt.Errorf("sign in to %s: %w", b.Args.Site, err)
		}

		if err := am.SignIn(ctx, b.User, b.Password); err != nil {
			return err
		}
		lg.Info("signed in", slog.String("site", b.Args.Site), slog.String("user", am.UserName()))
	}

	var feed opds.Feed
	if b.Page != "" {
		l, err := s.Get(ctx, b.Args.Site)
		if err != nil {
			return fmt.Errorf("get catalog %s: %w", b.Args.Site, err)
		}
		feed, err = br.Fetch(ctx, &l, b.Page)
		if err != nil {
			return err
		}
	} else if feed, err = br.Browse(ctx, b.Args.Site, b.Search); err != nil {
		return err
	}

	out := b.stdout()
	_, _ = fmt.Fprintln(out, feed.Title)
	for _, e := range feed.Entries {
		_, _ = fmt.Fprintf(out, "  %s\n", e)
		for _, l := range e.Links {
			_, _ = fmt.Fprintf(out, "    %s %s\n", l.Type, l.Href)
		}
	}
	if feed.Next != "" {
		_, _ = fmt.Fprintf(out, "next: %s\n", feed.Next)
	}

	return nil
}
