// Copyright (c) 2025 AUTHORS All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package fragments splits a command line into the fragments a parser
// consumes.
package fragments

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/google/shlex"
	"mvdan.cc/sh/v3/shell"
)

type state int

const (
	between state = iota
	unquoted
	quoted
	escape
)

// Split splits line using Windows command line quoting rules:
//
//   - whitespace outside quotes separates fragments;
//   - a double quote toggles quoting and is not emitted;
//   - n backslashes followed by a double quote emit n/2 backslashes, and a
//     literal quote if n is odd;
//   - backslashes not followed by a double quote are literal;
//   - a double quote right after a closing quote is literal and reopens
//     quoting.
//
// An empty quoted span yields an empty fragment.
func Split(line string) []string {
	out := []string{}
	var (
		cur     strings.Builder
		st      = between
		prev    = between // state before escape
		slashes int
		closed  bool // previous rune closed a quoted span
	)
	flushSlashes := func() {
		cur.WriteString(strings.Repeat(`\`, slashes))
		slashes = 0
	}
	emit := func() {
		out = append(out, cur.String())
		cur.Reset()
	}
	for _, r := range line {
		if st == escape {
			if r == '\\' {
				slashes++
				continue
			}
			if r == '"' {
				cur.WriteString(strings.Repeat(`\`, slashes/2))
				odd := slashes%2 == 1
				slashes = 0
				st = prev
				if odd {
					cur.WriteRune('"')
					closed = false
					continue
				}
				// An even run leaves the quote to toggle quoting below.
			} else {
				flushSlashes()
				st = prev
			}
		}
		wasClosed := closed
		closed = false
		switch {
		case r == '\\':
			if st == between {
				st = unquoted
			}
			prev = st
			st = escape
			slashes = 1
		case r == '"':
			switch st {
			case quoted:
				st = unquoted
				closed = true
			default:
				if wasClosed {
					cur.WriteRune('"')
				}
				st = quoted
			}
		case unicode.IsSpace(r) && st != quoted:
			if st == unquoted {
				emit()
			}
			st = between
		default:
			if st == between {
				st = unquoted
			}
			cur.WriteRune(r)
		}
	}
	if st == escape {
		flushSlashes()
		st = prev
	}
	if st != between {
		emit()
	}
	return out
}

// SplitPOSIX splits line using POSIX shell word rules.
func SplitPOSIX(line string) ([]string, error) {
	out, err := shlex.Split(line)
	if err != nil {
		return nil, fmt.Errorf("split %q: %w", line, err)
	}
	if out == nil {
		out = []string{}
	}
	return out, nil
}

// SplitShell splits line into shell fields, expanding parameters with env.
// A nil env expands every parameter to the empty string.
func SplitShell(line string, env func(string) string) ([]string, error) {
	if env == nil {
		env = func(string) string { return "" }
	}
	out, err := shell.Fields(line, env)
	if err != nil {
		return nil, fmt.Errorf("split %q: %w", line, err)
	}
	if out == nil {
		out = []string{}
	}
	return out, nil
}

// Mode selects a splitting rule set.
type Mode int

const (
	Native Mode = iota
	POSIX
	Shell
)

func (m Mode) String() string {
	switch m {
	case Native:
		return "native"
	case POSIX:
		return "posix"
	case Shell:
		return "shell"
	}
	return fmt.Sprintf("Mode(%d)", int(m))
}

// ParseMode returns the Mode named s.
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(s) {
	case "", "native":
		return Native, nil
	case "posix":
		return POSIX, nil
	case "shell":
		return Shell, nil
	}
	return 0, fmt.Errorf("unknown split mode %q", s)
}

// SplitMode splits line according to m. env is only used by Shell.
func SplitMode(m Mode, line string, env func(string) string) ([]string, error) {
	switch m {
	case Native:
		return Split(line), nil
	case POSIX:
		return SplitPOSIX(line)
	case Shell:
		return SplitShell(line, env)
	}
	return nil, fmt.Errorf("unknown split mode %v", m)
}
