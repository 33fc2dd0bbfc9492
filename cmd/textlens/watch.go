package main

import (
	"context"
	"flag"
	"fmt"
	"io"

	"github.com/basket/textlens/internal/config"
)

// runWatchCommand analyzes file once and again after every change until ctx
// is done.
func runWatchCommand(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("watch", flag.ContinueOnError)
	fs.SetOutput(stderr)
	methodsFlag := fs.String("m", "", "comma separated methods, or all (default: analysis.default_methods)")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if fs.NArg() != 1 {
		fmt.Fprintln(stderr, "usage: textlens watch [-m list] file")
		return 2
	}
	path := fs.Arg(0)

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(stderr, "config load: %v\n", err)
		return 1
	}
	methods, err := resolveMethods(*methodsFlag, cfg)
	if err != nil {
		fmt.Fprintln(stderr, err)
		return 2
	}
	rt, closeRuntime, err := newCommandRuntime(ctx, cfg)
	if err != nil {
		fmt.Fprintln(stderr, err)
		return 1
	}
	defer closeRuntime()
	if err := rt.session.SetMethods(methods); err != nil {
		fmt.Fprintln(stderr, err)
		return 1
	}

	w := config.NewWatcher(rt.logger, path)
	if err := w.Start(ctx); err != nil {
		fmt.Fprintf(stderr, "watch %s: %v\n", path, err)
		return 1
	}

	run := func() {
		if err := rt.session.LoadPath(ctx, path); err != nil {
			printLoadError(stderr, err)
			return
		}
		res, err := rt.session.Analyze(ctx)
		if err != nil {
			if ctx.Err() == nil {
				fmt.Fprintf(stderr, "analyze: %v\n", err)
			}
			return
		}
		writeReport(stdout, res)
		fmt.Fprintf(stdout, "\nwatching %s (ctrl+c to stop)\n", path)
	}
	run()

	for {
		select {
		case <-ctx.Done():
			return 0
		case _, ok := <-w.Events():
			if !ok {
				return 0
			}
			run()
		}
	}
}
