// Copyright (c) 2025 AUTHORS All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Command optcheck validates command line schema files and parses command
// lines against them.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"

	"github.com/charmbracelet/log"
	"github.com/fatih/color"
	"github.com/shayne/yargs"
	"github.com/yeetrun/opts/pkg/bind"
	"github.com/yeetrun/opts/pkg/fragments"
	"github.com/yeetrun/opts/pkg/knf"
	"github.com/yeetrun/opts/pkg/opts"
	"github.com/yeetrun/opts/pkg/schemafile"
)

const splitEnv = "OPTCHECK_SPLIT"

var (
	errColor = color.New(color.FgRed)
	okColor  = color.New(color.FgGreen)
)

type globalFlagsParsed struct {
	Verbose bool `flag:"verbose" help:"Log reachability search steps"`
}

func parseGlobalFlags(args []string) (globalFlagsParsed, []string, error) {
	result, err := yargs.ParseKnownFlags[globalFlagsParsed](args, yargs.KnownFlagsOptions{})
	if err != nil {
		return globalFlagsParsed{}, nil, err
	}
	return result.Flags, result.RemainingArgs, nil
}

// cli holds the streams and settings shared by every subcommand.
type cli struct {
	stdin   io.Reader
	stdout  io.Writer
	stderr  io.Writer
	log     *log.Logger
	verbose bool
	getenv  func(string) string
}

func newCLI(stdin io.Reader, stdout, stderr io.Writer, verbose bool) *cli {
	logger := log.NewWithOptions(stderr, log.Options{Prefix: "optcheck"})
	if verbose {
		logger.SetLevel(log.DebugLevel)
	}
	return &cli{
		stdin:   stdin,
		stdout:  stdout,
		stderr:  stderr,
		log:     logger,
		verbose: verbose,
		getenv:  os.Getenv,
	}
}

func (c *cli) handlers() map[string]yargs.SubcommandHandler {
	return map[string]yargs.SubcommandHandler{
		"check":   c.handleCheck,
		"convert": c.handleConvert,
		"formula": c.handleFormula,
		"parse":   c.handleParse,
		"repl":    c.handleRepl,
	}
}

// schemaPath returns args[0], or the nearest schemafile.DefaultName above
// the working directory.
func (c *cli) schemaPath(args []string) (string, error) {
	if len(args) > 0 {
		return args[0], nil
	}
	wd, err := os.Getwd()
	if err != nil {
		return "", err
	}
	path, err := schemafile.FindFrom(wd, schemafile.DefaultName)
	if err != nil {
		return "", fmt.Errorf("no schema given and no %s found: %w", schemafile.DefaultName, err)
	}
	c.log.Debug("using schema", "path", path)
	return path, nil
}

func (c *cli) compile(ctx context.Context, path string, solver knf.Solver) (*bind.Binding, error) {
	f, err := schemafile.Load(path)
	if err != nil {
		return nil, err
	}
	if c.verbose {
		solver.Logf = c.log.With("schema", path).Debugf
	}
	b, err := f.CompileContext(ctx, func(s *bind.Spec) { s.Solver = &solver })
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return b, nil
}

func (c *cli) splitMode(flag string) (fragments.Mode, error) {
	if flag == "" {
		flag = c.getenv(splitEnv)
	}
	return fragments.ParseMode(flag)
}

func stripCommand(args []string, name string) []string {
	if len(args) > 0 && args[0] == name {
		return args[1:]
	}
	return args
}

func printCLIError(w io.Writer, err error) {
	if err == nil {
		return
	}
	var prefix string
	switch {
	case opts.IsParseError(err):
		prefix = "parse error: "
	case errors.Is(err, knf.ErrBudgetExceeded):
		prefix = "gave up: "
	default:
		prefix = "error: "
	}
	errColor.Fprint(w, prefix)
	fmt.Fprintln(w, err)
}

func asJSON(v any) string {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Sprintf("%v", v)
	}
	return string(b)
}

func main() {
	args := os.Args[1:]
	globalFlags, remaining, err := parseGlobalFlags(args)
	if err != nil {
		printCLIError(os.Stderr, err)
		os.Exit(2)
	}
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	c := newCLI(os.Stdin, os.Stdout, os.Stderr, globalFlags.Verbose)
	if err := yargs.RunSubcommands(ctx, remaining, buildHelpConfig(), globalFlagsParsed{}, c.handlers()); err != nil {
		printCLIError(os.Stderr, err)
		stop()
		os.Exit(1)
	}
}
