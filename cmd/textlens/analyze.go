package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"math"
	"strings"

	"github.com/basket/textlens/internal/analysis"
	"github.com/basket/textlens/internal/config"
	"github.com/basket/textlens/internal/render"
	"github.com/basket/textlens/internal/session"
	"github.com/basket/textlens/internal/telemetry"
)

const reportBarWidth = 30

func runAnalyzeCommand(ctx context.Context, args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("analyze", flag.ContinueOnError)
	fs.SetOutput(stderr)
	methodsFlag := fs.String("m", "", "comma separated methods, or all (default: analysis.default_methods)")
	jsonOut := fs.Bool("json", false, "print results as JSON")
	chartDir := fs.String("chart-dir", "", "write charts for the results into this directory")
	formatFlag := fs.String("format", "svg", "chart format: svg or png")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if fs.NArg() > 1 {
		fmt.Fprintln(stderr, "usage: textlens analyze [-m list] [-json] [-chart-dir dir] [-format svg|png] [file|-]")
		return 2
	}
	format, err := render.ParseFormat(*formatFlag)
	if err != nil {
		fmt.Fprintln(stderr, err)
		return 2
	}

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
	source := cfg.Analysis.InputFile
	if fs.NArg() == 1 {
		source = fs.Arg(0)
	}
	if source == "" {
		fmt.Fprintln(stderr, "analyze: no input; pass a .txt file, - for stdin, or set analysis.input_file")
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
	if source == "-" {
		err = rt.session.LoadFile(ctx, "stdin.txt", stdin)
	} else {
		err = rt.session.LoadPath(ctx, source)
	}
	if err != nil {
		printLoadError(stderr, err)
		return 1
	}

	res, err := rt.session.Analyze(ctx)
	if err != nil {
		fmt.Fprintf(stderr, "analyze: %v\n", err)
		return 1
	}

	if *jsonOut {
		enc := json.NewEncoder(stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(res); err != nil {
			fmt.Fprintf(stderr, "encode results: %v\n", err)
			return 1
		}
	} else {
		writeReport(stdout, res)
	}

	if *chartDir != "" {
		paths, err := rt.renderer.WriteAll(ctx, *chartDir, format, res)
		if err != nil {
			fmt.Fprintf(stderr, "charts: %v\n", err)
			return 1
		}
		for _, p := range paths {
			fmt.Fprintf(stderr, "chart written: %s\n", p)
		}
	}
	return 0
}

// newCommandRuntime builds a runtime for one-shot commands. Logs go to the
// log file only so stdout stays machine readable.
func newCommandRuntime(ctx context.Context, cfg config.Config) (*runtime, func(), error) {
	logger, closer, err := telemetry.NewLogger(cfg.HomeDir, cfg.LogLevel, true)
	if err != nil {
		return nil, nil, fmt.Errorf("logger init: %w", err)
	}
	rt, err := newRuntime(ctx, cfg, logger)
	if err != nil {
		closer.Close()
		return nil, nil, err
	}
	return rt, func() {
		rt.shutdown()
		closer.Close()
	}, nil
}

// resolveMethods picks the -m flag, then analysis.default_methods, then
// frequency and entropy.
func resolveMethods(flagValue string, cfg config.Config) (analysis.MethodSet, error) {
	flagValue = strings.TrimSpace(flagValue)
	if strings.EqualFold(flagValue, "all") {
		return analysis.NewMethodSet(analysis.AllMethods...), nil
	}
	if flagValue != "" {
		set, err := analysis.ParseMethods([]string{flagValue})
		if err != nil {
			return 0, fmt.Errorf("-m: %w", err)
		}
		if set.Empty() {
			return 0, fmt.Errorf("-m: %w", analysis.ErrNothingToAnalyze)
		}
		return set, nil
	}
	set, err := analysis.ParseMethods(cfg.Analysis.DefaultMethods)
	if err != nil {
		return 0, fmt.Errorf("analysis.default_methods: %w", err)
	}
	if set.Empty() {
		set = analysis.NewMethodSet(analysis.MethodFrequency, analysis.MethodEntropy)
	}
	return set, nil
}

func printLoadError(w io.Writer, err error) {
	var warn *session.Warning
	if errors.As(err, &warn) {
		fmt.Fprintf(w, "warning: %v\n", warn)
		return
	}
	fmt.Fprintf(w, "load: %v\n", err)
}

// writeReport prints results as plain text.
func writeReport(w io.Writer, res *analysis.Results) {
	fmt.Fprintf(w, "run %s  %d tokens  %.1f ms\n", res.RunID, res.TokenCount, res.DurationMS)

	if res.Methods.Has(analysis.MethodFrequency) {
		fmt.Fprintf(w, "\n%s\n", analysis.MethodFrequency.Label())
		if len(res.WordFrequency) == 0 {
			fmt.Fprintln(w, "  no words")
		}
		wordW, maxCount := 4, 0.0
		for _, c := range res.WordFrequency {
			wordW = max(wordW, len([]rune(c.Word)))
			maxCount = math.Max(maxCount, float64(c.Count))
		}
		for _, c := range res.WordFrequency {
			fmt.Fprintf(w, "  %-*s %s %d\n", wordW, c.Word, render.Bar(float64(c.Count), maxCount, reportBarWidth), c.Count)
		}
	}

	if res.Methods.Has(analysis.MethodEntropy) {
		fmt.Fprintf(w, "\n%s\n", analysis.MethodEntropy.Label())
		if len(res.Entropy) == 0 {
			fmt.Fprintln(w, "  needs at least 100 words")
		}
		for _, s := range res.Entropy {
			fmt.Fprintf(w, "  %7d words  %.4f bits\n", s.Words, s.Entropy)
		}
	}

	if res.Sentiment != nil {
		fmt.Fprintf(w, "\n%s (placeholder)\n", analysis.MethodSentiment.Label())
		fmt.Fprintf(w, "  %s\n", render.SentimentSummary(res.Sentiment.Score, 21))
	}

	if res.POS != nil {
		fmt.Fprintf(w, "\n%s (placeholder)\n", analysis.MethodPOS.Label())
		maxV := 0.0
		for _, s := range res.POS.Tags {
			maxV = math.Max(maxV, s.Value)
		}
		for _, s := range res.POS.Tags {
			fmt.Fprintf(w, "  %-9s %s %.1f\n", s.Tag, render.Bar(s.Value, maxV, reportBarWidth), s.Value)
		}
	}
}
