package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/exp/slog"
	"golang.org/x/sync/errgroup"

	"github.com/Semior001/opdsnet/app/network"
)

// Fetch is a command to download a batch of URLs.
type Fetch struct {
	Common
	Batch   string `long:"batch" description:"yaml file with the requests"`
	Dir     string `long:"dir" description:"directory to save responses to, printed to stdout if empty"`
	Headers bool   `long:"headers" description:"print the status line and headers of responses"`

	Args struct {
		URLs []string `positional-arg-name:"url"`
	} `positional-args:"yes"`
}

// Execute runs the command.
func (f Fetch) Execute(_ []string) error {
	lg := slog.Default()

	batch, err := f.batch()
	if err != nil {
		return err
	}

	m, err := f.manager(lg)
	if err != nil {
		return err
	}
	defer closeAll(lg, map[string]io.Closer{"network manager": m})

	reqs := f.requests(lg, batch)

	var errMsg string

	ctx, stop := context.WithCancel(context.Background())
	defer stop()

	ewg, ctx := errgroup.WithContext(ctx)
	ewg.Go(func() error {
		sig := make(chan os.Signal, 1)
		signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
		defer signal.Stop(sig)

		select {
		case sig := <-sig:
			slog.Warn("caught signal, stopping", slog.String("signal", sig.String()))
			stop()
			return ctx.Err()
		case <-ctx.Done():
			return ctx.Err()
		}
	})
	ewg.Go(func() error {
		defer stop()
		lg.Debug("dispatching batch", slog.Int("requests", len(reqs)))
		errMsg = m.Perform(ctx, reqs...)
		return nil
	})

	if err := ewg.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}

	f.report(reqs)

	if errMsg != "" {
		return fmt.Errorf("fetch failed:\n%s", errMsg)
	}

	return nil
}

func (f Fetch) batch() (Batch, error) {
	switch {
	case f.Batch != "" && len(f.Args.URLs) > 0:
		return Batch{}, errors.New("either batch file or urls must be given, not both")
	case f.Batch != "":
		b, err := loadBatch(f.Batch)
		if err != nil {
			return Batch{}, fmt.Errorf("load batch: %w", err)
		}
		return b, nil
	case len(f.Args.URLs) > 0:
		return batchOf(f.Args.URLs, f.Dir), nil
	default:
		return Batch{}, errors.New("nothing to fetch")
	}
}

func (f Fetch) requests(lg *slog.Logger, b Batch) []network.Request {
	reqs := make([]network.Request, 0, len(b.Requests))

	for _, br := range b.Requests {
		p := network.Params{
			URL:                br.URL,
			PostData:           br.Post,
			UserName:           br.User,
			Password:           br.Password,
			InsecureSkipVerify: br.Insecure,
			NoRedirect:         br.NoRedirect,
		}

		if br.Detached {
			u := br.URL
			p.Listener = func(errMsg string) {
				if errMsg != "" {
					lg.Warn("detached request failed", slog.String("url", u), slog.String("err", errMsg))
					return
				}
				lg.Info("detached request finished", slog.String("url", u))
			}
		}

		if br.File != "" {
			reqs = append(reqs, network.NewFileRequest(p, network.ExpandHome(br.File)))
			continue
		}

		reqs = append(reqs, network.NewBufferRequest(p))
	}

	return reqs
}

func (f Fetch) report(reqs []network.Request) {
	out := f.stdout()

	for _, req := range reqs {
		// detached requests may still be running
		if req.Params().Listener != nil || req.ErrorMessage() != "" {
			continue
		}

		switch r := req.(type) {
		case *network.FileRequest:
			_, _ = fmt.Fprintf(out, "%s -> %s\n", r.Params().URL, r.Path)
		case *network.BufferRequest:
			if r.Status == "" {
				continue
			}
			if f.Headers {
				_, _ = fmt.Fprintln(out, r.Status)
				for _, h := range r.Headers {
					_, _ = fmt.Fprintln(out, h)
				}
				_, _ = fmt.Fprintln(out)
			}
			_, _ = out.Write(r.Body.Bytes())
		}
	}
}
