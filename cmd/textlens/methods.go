package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/basket/textlens/internal/analysis"
	"github.com/basket/textlens/internal/config"
)

func runMethodsCommand(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("methods", flag.ContinueOnError)
	fs.SetOutput(stderr)
	jsonOut := fs.Bool("json", false, "print as JSON")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if fs.NArg() != 0 {
		fmt.Fprintln(stderr, "usage: textlens methods [-json]")
		return 2
	}

	catalogue := analysis.Catalogue()
	if *jsonOut {
		if err := json.NewEncoder(stdout).Encode(catalogue); err != nil {
			fmt.Fprintf(stderr, "encode: %v\n", err)
			return 1
		}
		return 0
	}
	tw := tabwriter.NewWriter(stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tLABEL\tNOTE")
	for _, m := range catalogue {
		note := ""
		if m.Placeholder {
			note = "random placeholder"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\n", m.ID, m.Label, note)
	}
	_ = tw.Flush()
	return 0
}

func runInitCommand(args []string, stdout, stderr io.Writer) int {
	if len(args) != 0 {
		fmt.Fprintln(stderr, "usage: textlens init")
		return 2
	}
	path, err := config.WriteDefault(config.HomeDir())
	if err != nil {
		fmt.Fprintln(stderr, err)
		return 1
	}
	fmt.Fprintf(stdout, "config: %s\n", path)
	return 0
}
