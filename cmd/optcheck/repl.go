// Copyright (c) 2025 AUTHORS All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/shayne/yargs"
	"github.com/yeetrun/opts/pkg/bind"
	"github.com/yeetrun/opts/pkg/cmdutil"
	"github.com/yeetrun/opts/pkg/fragments"
	"github.com/yeetrun/opts/pkg/knf"
	"golang.org/x/term"
)

const replPrompt = "opts> "

type replFlagsParsed struct {
	Split string `flag:"split" help:"How to split each line: native, posix or shell (OPTCHECK_SPLIT)"`
}

// lineReader is implemented by term.Terminal and cmdutil.Prompter.
type lineReader interface {
	ReadLine() (string, error)
}

func (c *cli) handleRepl(ctx context.Context, args []string) error {
	args = stripCommand(args, "repl")
	result, err := yargs.ParseFlags[replFlagsParsed](args)
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
	in, w, restore, err := c.openLines()
	if err != nil {
		return err
	}
	defer restore()
	return c.repl(ctx, b, mode, in, w)
}

// openLines returns a raw-mode terminal when stdin is one, and a plain line
// reader otherwise.
func (c *cli) openLines() (lineReader, io.Writer, func(), error) {
	f, ok := c.stdin.(*os.File)
	if !ok || !term.IsTerminal(int(f.Fd())) {
		return cmdutil.NewPrompter(c.stdin, c.stdout, ""), c.stdout, func() {}, nil
	}
	fd := int(f.Fd())
	state, err := term.MakeRaw(fd)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to set raw mode: %w", err)
	}
	t := term.NewTerminal(struct {
		io.Reader
		io.Writer
	}{f, c.stdout}, replPrompt)
	if width, height, err := term.GetSize(fd); err == nil {
		t.SetSize(width, height)
	}
	return t, t, func() { term.Restore(fd, state) }, nil
}

// repl parses each line read from in until EOF or ":quit". Parse errors are
// printed and reading continues.
func (c *cli) repl(ctx context.Context, b *bind.Binding, mode fragments.Mode, in lineReader, w io.Writer) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		line, err := in.ReadLine()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}
		switch strings.TrimSpace(line) {
		case "":
			continue
		case ":quit", ":q":
			return nil
		case ":formula":
			fmt.Fprintln(w, b.Pool().Formula())
			continue
		}
		frags, err := fragments.SplitMode(mode, line, c.getenv)
		if err != nil {
			printCLIError(w, err)
			continue
		}
		s, err := b.Parse(frags)
		if err != nil {
			printCLIError(w, err)
			continue
		}
		printValues(w, b, s)
	}
}
