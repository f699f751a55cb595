// Package main is an entrypoint for application
package main

import (
	"fmt"
	"os"
	"runtime/debug"

	"github.com/jessevdk/go-flags"
	"golang.org/x/exp/slog"

	"github.com/Semior001/opdsnet/app/cmd"
	"github.com/Semior001/opdsnet/pkg/logx"
)

var opts struct {
	Parse   cmd.Parse   `command:"parse" description:"parse a catalog description and print it as json"`
	Catalog cmd.Catalog `command:"catalog" description:"manage known catalogs"`
	Browse  cmd.Browse  `command:"browse" description:"list a page of a catalog"`
	Fetch   cmd.Fetch   `command:"fetch" description:"download a batch of urls"`

	JSONLogs bool `long:"json-logs" env:"JSON_LOGS" description:"turn on json logs"`
	Debug    bool `long:"dbg" env:"DEBUG" description:"turn on debug mode"`
}

var version = "unknown"

func getVersion() string {
	v, ok := debug.ReadBuildInfo()
	if !ok || v.Main.Version == "(devel)" || v.Main.Version == "" {
		return version
	}
	return v.Main.Version
}

func main() {
	// stdout is reserved for the command output
	fmt.Fprintf(os.Stderr, "opdsnet, version: %s\n", getVersion())

	p := flags.NewParser(&opts, flags.Default)
	p.CommandHandler = func(command flags.Commander, args []string) error {
		setupLog()

		if v, ok := command.(interface{ SetVersion(string) }); ok {
			v.SetVersion(getVersion())
		}

		if err := command.Execute(args); err != nil {
			slog.Error("failed to execute command", slog.Any("err", err))
			os.Exit(1)
		}

		return nil
	}

	// after failure command does not return non-zero code
	if _, err := p.Parse(); err != nil {
		if flagsErr, ok := err.(*flags.Error); ok && flagsErr.Type == flags.ErrHelp {
			os.Exit(0)
		} else {
			slog.Error("failed to parse flags", slog.Any("err", err))
			os.Exit(1)
		}
	}
}

func setupLog() {
	handler := slog.HandlerOptions{
		AddSource: false,
		Level:     slog.LevelInfo,
	}

	if opts.Debug {
		handler.Level = slog.LevelDebug
		handler.AddSource = true
	}

	var h slog.Handler = handler.NewTextHandler(os.Stderr)
	if opts.JSONLogs {
		h = handler.NewJSONHandler(os.Stderr)
	}

	slog.SetDefault(slog.New(&logx.Chain{
		Middleware: []logx.Middleware{logx.ExchangeID},
		Handler:    h,
	}))
}
