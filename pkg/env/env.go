// Copyright (c) 2025 AUTHORS All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package env renders parsed values as shell variable assignments.
package env

import (
	"bytes"
	"fmt"
	"io"
	"maps"
	"slices"
	"strings"
	"unicode"

	"github.com/yeetrun/opts/pkg/fileutil"
	"mvdan.cc/sh/v3/syntax"
)

// Name joins parts with '_' and upper-cases them. Every rune that is not an
// ASCII letter or digit becomes '_', and a leading digit gets a '_' prefix.
func Name(parts ...string) string {
	var sb strings.Builder
	for i, p := range parts {
		if p == "" {
			continue
		}
		if i > 0 && sb.Len() > 0 {
			sb.WriteByte('_')
		}
		for _, r := range p {
			switch {
			case r < unicode.MaxASCII && (unicode.IsLetter(r) || unicode.IsDigit(r)):
				sb.WriteRune(unicode.ToUpper(r))
			default:
				sb.WriteByte('_')
			}
		}
	}
	s := sb.String()
	if s != "" && s[0] >= '0' && s[0] <= '9' {
		s = "_" + s
	}
	return s
}

// Marshal writes one NAME=value line per variable, sorted by name, with
// values quoted for POSIX shells.
func Marshal(w io.Writer, vars map[string]string) error {
	for _, name := range slices.Sorted(maps.Keys(vars)) {
		q, err := syntax.Quote(vars[name], syntax.LangPOSIX)
		if err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
		if _, err := fmt.Fprintf(w, "%s=%s\n", name, q); err != nil {
			return err
		}
	}
	return nil
}

// Write writes vars as an environment file at name.
func Write(name string, vars map[string]string) error {
	var buf bytes.Buffer
	if err := Marshal(&buf, vars); err != nil {
		return fmt.Errorf("failed to marshal env: %w", err)
	}
	if err := fileutil.WriteFile(name, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("failed to write env file: %w", err)
	}
	return nil
}
