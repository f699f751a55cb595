package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"

	"golang.org/x/exp/slog"

	"github.com/Semior001/opdsnet/app/catalog"
	"github.com/Semior001/opdsnet/app/opds"
)

// Parse is a command to parse a catalog description file and print it.
type Parse struct {
	Common
	Args struct {
		File string `positional-arg-name:"file" required:"true" description:"catalog description file"`
	} `positional-args:"yes"`
}

// Execute runs the command.
func (p Parse) Execute(_ []string) error {
	f, err := os.Open(p.Args.File) //nolint:gosec // path is given by the user
	if err != nil {
		return fmt.Errorf("open %s: %w", p.Args.File, err)
	}
	defer f.Close()

	l, err := catalog.Read(f)
	if err != nil {
		return fmt.Errorf("read catalog description: %w", err)
	}

	enc := json.NewEncoder(p.stdout())
	enc.SetIndent("", "  ")
	if err := enc.Encode(l); err != nil {
		return fmt.Errorf("print catalog: %w", err)
	}

	return nil
}

// Catalog is a group of commands to manage the catalog registry.
type Catalog struct {
	Add    CatalogAdd    `command:"add" description:"add a catalog from a description file or url"`
	List   CatalogList   `command:"list" description:"list known catalogs"`
	Remove CatalogRemove `command:"remove" description:"remove a catalog"`
}

// CatalogAdd is a command to add a catalog to the registry.
type CatalogAdd struct {
	Common
	Args struct {
		Source string `positional-arg-name:"file|url" required:"true" description:"description file or its url"`
	} `positional-args:"yes"`
}

// Execute runs the command.
func (c CatalogAdd) Execute(_ []string) error {
	lg := slog.Default()

	s, err := c.store()
	if err != nil {
		return err
	}

	m, err := c.manager(lg)
	if err != nil {
		_ = s.Close()
		return err
	}
	defer closeAll(lg, map[string]io.Closer{"store": s, "network manager": m})

	ctx, stop := signalContext()
	defer stop()

	b := opds.NewBrowser(lg.With(slog.String("prefix", "opds")), m, s)

	var l catalog.Link
	if isURL(c.Args.Source) {
		l, err = b.AddURL(ctx, c.Args.Source)
	} else {
		l, err = b.AddFile(ctx, c.Args.Source)
	}
	if err != nil {
		return fmt.Errorf("add catalog: %w", err)
	}

	_, _ = fmt.Fprintf(c.stdout(), "added %s (%s)\n", l.SiteName, l.Title)
	return nil
}

// CatalogList is a command to list the catalogs of the registry.
type CatalogList struct {
	Common
}

// Execute runs the command.
func (c CatalogList) Execute(_ []string) error {
	s, err := c.store()
	if err != nil {
		return err
	}
	defer closeAll(slog.Default(), map[string]io.Closer{"store": s})

	links, err := s.List(context.Background())
	if err != nil {
		return fmt.Errorf("list catalogs: %w", err)
	}

	w := tabwriter.NewWriter(c.stdout(), 0, 4, 2, ' ', 0)
	for _, l := range links {
		var flags []string
		if l.Links[catalog.RelSearch] != "" {
			flags = append(flags, "search")
		}
		if l.Auth != nil {
			flags = append(flags, "auth:"+l.Auth.Type)
		}
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", l.SiteName, l.Title, l.MainURL(), strings.Join(flags, ","))
	}

	if err := w.Flush(); err != nil {
		return fmt.Errorf("print catalogs: %w", err)
	}

	return nil
}

// CatalogRemove is a command to remove a catalog from the registry.
type CatalogRemove struct {
	Common
	Args struct {
		Site string `positional-arg-name:"site" required:"true" description:"site name of the catalog"`
	} `positional-args:"yes"`
}

// Execute runs the command.
func (c CatalogRemove) Execute(_ []string) error {
	s, err := c.store()
	if err != nil {
		return err
	}
	defer closeAll(slog.Default(), map[string]io.Closer{"store": s})

	if err := s.Delete(context.Background(), c.Args.Site); err != nil {
		return fmt.Errorf("remove catalog %s: %w", c.Args.Site, err)
	}

	return nil
}

func isURL(s string) bool {
	return strings.HasPrefix(s, "http://") || strings.HasPrefix(s, "https://")
}
