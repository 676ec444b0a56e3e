// Copyright (c) 2025 AUTHORS All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"maps"
	"os"
	"runtime"
	"slices"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/shayne/yargs"
	"github.com/yeetrun/opts/pkg/bind"
	"github.com/yeetrun/opts/pkg/cmdutil"
	"github.com/yeetrun/opts/pkg/env"
	"github.com/yeetrun/opts/pkg/fileutil"
	"github.com/yeetrun/opts/pkg/fragments"
	"github.com/yeetrun/opts/pkg/knf"
	"github.com/yeetrun/opts/pkg/opts"
	"github.com/yeetrun/opts/pkg/schemafile"
	"golang.org/x/sync/errgroup"
)

type checkFlagsParsed struct {
	MaxSteps int `flag:"max-steps" help:"Give up on a schema after this many search steps"`
	Workers  int `flag:"workers" help:"Search each schema with this many goroutines"`
}

func (c *cli) handleCheck(ctx context.Context, args []string) error {
	args = stripCommand(args, "check")
	result, err := yargs.ParseFlags[checkFlagsParsed](args)
	if err != nil {
		return err
	}
	paths := result.Args
	if len(paths) == 0 {
		path, err := c.schemaPath(nil)
		if err != nil {
			return err
		}
		paths = []string{path}
	}
	solver := knf.Solver{MaxSteps: result.Flags.MaxSteps, Workers: result.Flags.Workers}

	bindings := make([]*bind.Binding, len(paths))
	errs := make([]error, len(paths))
	var g errgroup.Group
	g.SetLimit(runtime.GOMAXPROCS(0))
	for i, path := range paths {
		g.Go(func() error {
			start := time.Now()
			bindings[i], errs[i] = c.compile(ctx, path, solver)
			c.log.Debug("checked", "schema", path, "took", time.Since(start))
			return nil
		})
	}
	g.Wait()

	failed := 0
	for i, path := range paths {
		if errs[i] != nil {
			failed++
			errColor.Fprint(c.stdout, "FAIL")
			fmt.Fprintf(c.stdout, " %s\n", path)
			for _, line := range strings.Split(errs[i].Error(), "\n") {
				fmt.Fprintf(c.stdout, "    %s\n", line)
			}
			continue
		}
		okColor.Fprint(c.stdout, "ok")
		fmt.Fprintf(c.stdout, "   %s (%s)\n", path, summary(bindings[i].Pool()))
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d schemas failed", failed, len(paths))
	}
	return nil
}

func summary(p *opts.Pool) string {
	args := len(p.Arguments())
	if _, ok := p.Vararg(); ok {
		args--
	}
	s := fmt.Sprintf("%d arguments, %d options, %d restrictions", args, len(p.Options()), len(p.Restrictions()))
	if _, ok := p.Vararg(); ok {
		s += ", vararg"
	}
	return s
}

type formulaFlagsParsed struct {
	Sets bool `flag:"sets" help:"Print clauses in set notation"`
}

func (c *cli) handleFormula(ctx context.Context, args []string) error {
	args = stripCommand(args, "formula")
	result, err := yargs.ParseFlags[formulaFlagsParsed](args)
	if err != nil {
		return err
	}
	path, err := c.schemaPath(result.Args)
	if err != nil {
		return err
	}
	b, err := c.compile(ctx, path, knf.Solver{})
	if err != nil {
		return err
	}
	f := b.Pool().Formula()
	if result.Flags.Sets {
		fmt.Fprintln(c.stdout, f.SetString())
	} else {
		fmt.Fprintln(c.stdout, f.String())
	}
	return nil
}

type parseFlagsParsed struct {
	Split string `flag:"split" help:"How to split --line: native, posix or shell (OPTCHECK_SPLIT)"`
	Line  string `flag:"line" help:"Command line to split and parse instead of the arguments after --"`
	JSON  bool   `flag:"json" help:"Print values as JSON"`

	Env       bool   `flag:"env" help:"Print values as shell assignments for eval"`
	EnvFile   string `flag:"env-file" help:"Write values as shell assignments to this file"`
	EnvPrefix string `flag:"env-prefix" default:"OPTS" help:"Prefix of variable names for --env and --env-file"`
}

func (c *cli) handleParse(ctx context.Context, args []string) error {
	args = stripCommand(args, "parse")
	result, err := yargs.ParseFlags[parseFlagsParsed](args)
	if err != nil {
		return err
	}
	path, err := c.schemaPath(result.Args)
	if err != nil {
		return err
	}
	mode, err := c.splitMode(result.Flags.Split)
	if err != nil {
		return err
	}
	b, err := c.compile(ctx, path, knf.Solver{})
	if err != nil {
		return err
	}
	frags := result.RemainingArgs
	if result.Flags.Line != "" {
		if len(frags) > 0 {
			return errors.New("use either --line or arguments after --, not both")
		}
		if frags, err = fragments.SplitMode(mode, result.Flags.Line, c.getenv); err != nil {
			return err
		}
	}
	if frags == nil {
		frags = []string{}
	}
	c.log.Debug("parsing", "fragments", frags)
	s, err := b.Parse(frags)
	if err != nil {
		return err
	}
	if path := result.Flags.EnvFile; path != "" {
		if err := env.Write(path, envValues(b, s, result.Flags.EnvPrefix)); err != nil {
			return err
		}
		c.log.Debug("wrote env file", "path", path)
	}
	switch {
	case result.Flags.JSON:
		fmt.Fprintln(c.stdout, asJSON(jsonValues(b, s)))
	case result.Flags.Env:
		return env.Marshal(c.stdout, envValues(b, s, result.Flags.EnvPrefix))
	case result.Flags.EnvFile == "":
		printValues(c.stdout, b, s)
	}
	return nil
}

// printValues writes one line per field of b, in declaration order.
func printValues(w io.Writer, b *bind.Binding, s *opts.Set) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	defer tw.Flush()
	for _, name := range b.Names() {
		d, ok := b.Lookup(name)
		if !ok {
			fmt.Fprintf(tw, "%s\t%s\n", name, formatWildcards(s.Wildcards()))
			continue
		}
		v, err := s.Get(d)
		if err != nil {
			fmt.Fprintf(tw, "%s\t-\n", name)
			continue
		}
		fmt.Fprintf(tw, "%s\t%v\n", name, v)
	}
}

func formatWildcards(ws map[string]opts.WildcardValue) string {
	if len(ws) == 0 {
		return "-"
	}
	var parts []string
	for _, k := range slices.Sorted(maps.Keys(ws)) {
		if w := ws[k]; w.HasValue {
			parts = append(parts, k+"="+w.Value)
		} else {
			parts = append(parts, k)
		}
	}
	return strings.Join(parts, " ")
}

func jsonValues(b *bind.Binding, s *opts.Set) map[string]any {
	out := make(map[string]any)
	for _, name := range b.Names() {
		d, ok := b.Lookup(name)
		if !ok {
			ws := make(map[string]any)
			for k, w := range s.Wildcards() {
				if w.HasValue {
					ws[k] = w.Value
				} else {
					ws[k] = nil
				}
			}
			out[name] = ws
			continue
		}
		v, err := s.Get(d)
		if err != nil {
			continue
		}
		out[name] = jsonValue(v)
	}
	return out
}

// envValues names each value prefix_FIELD. Vararg elements become
// prefix_FIELD_0, prefix_FIELD_1 and so on, with the count in prefix_FIELD.
// Wildcards become prefix_FIELD_NAME.
func envValues(b *bind.Binding, s *opts.Set, prefix string) map[string]string {
	out := make(map[string]string)
	for _, name := range b.Names() {
		d, ok := b.Lookup(name)
		if !ok {
			for k, w := range s.Wildcards() {
				out[env.Name(prefix, name, k)] = w.Value
			}
			continue
		}
		v, err := s.Get(d)
		if err != nil {
			continue
		}
		if vs, ok := v.([]any); ok {
			out[env.Name(prefix, name)] = strconv.Itoa(len(vs))
			for i, e := range vs {
				out[env.Name(prefix, name, strconv.Itoa(i))] = fmt.Sprint(e)
			}
			continue
		}
		out[env.Name(prefix, name)] = fmt.Sprint(v)
	}
	return out
}

func jsonValue(v any) any {
	switch v := v.(type) {
	case time.Duration:
		return v.String()
	case []any:
		out := make([]any, len(v))
		for i, e := range v {
			out[i] = jsonValue(e)
		}
		return out
	}
	return v
}

type convertFlagsParsed struct {
	Yes bool `flag:"yes" help:"Overwrite OUT without asking"`
}

func (c *cli) handleConvert(_ context.Context, args []string) error {
	args = stripCommand(args, "convert")
	result, err := yargs.ParseFlags[convertFlagsParsed](args)
	if err != nil {
		return err
	}
	if len(result.Args) != 2 {
		return errors.New("usage: optcheck convert SCHEMA OUT")
	}
	in, out := result.Args[0], result.Args[1]
	f, err := schemafile.Load(in)
	if err != nil {
		return err
	}
	var buf bytes.Buffer
	if err := schemafile.Encode(&buf, f, schemafile.FormatOf(out)); err != nil {
		return err
	}
	if same, err := fileutil.Identical(out, buf.Bytes()); err != nil {
		return err
	} else if same {
		c.log.Info("schema unchanged", "path", out)
		return nil
	}
	if _, err := os.Stat(out); err == nil && !result.Flags.Yes {
		ok, err := cmdutil.Confirm(c.stdin, c.stderr, fmt.Sprintf("%s exists. Overwrite?", out))
		if err != nil {
			return err
		}
		if !ok {
			return errors.New("not overwriting " + out)
		}
	}
	if err := fileutil.WriteFile(out, buf.Bytes(), 0o644); err != nil {
		return err
	}
	c.log.Info("wrote schema", "path", out, "format", schemafile.FormatOf(out))
	return nil
}
