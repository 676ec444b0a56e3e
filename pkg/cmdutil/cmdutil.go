// Copyright (c) 2025 AUTHORS All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package cmdutil

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"
)

// Prompter prints a prompt to w and reads one line from r per call. It
// mirrors the ReadLine method of golang.org/x/term.Terminal for input that
// is not a terminal.
type Prompter struct {
	r      *bufio.Reader
	w      io.Writer
	prompt string
}

func NewPrompter(r io.Reader, w io.Writer, prompt string) *Prompter {
	return &Prompter{r: bufio.NewReader(r), w: w, prompt: prompt}
}

// ReadLine returns the next line without its line ending. A final line
// without a newline is returned before io.EOF.
func (p *Prompter) ReadLine() (string, error) {
	if p.prompt != "" {
		fmt.Fprint(p.w, p.prompt)
	}
	line, err := p.r.ReadString('\n')
	if err != nil {
		if errors.Is(err, io.EOF) && line != "" {
			return strings.TrimRight(line, "\r"), nil
		}
		if errors.Is(err, io.EOF) {
			return "", io.EOF
		}
		return "", fmt.Errorf("failed to read line: %w", err)
	}
	return strings.TrimRight(line, "\r\n"), nil
}

// Confirm asks a yes/no question on w and reads the answer from r.
func Confirm(r io.Reader, w io.Writer, msg string) (bool, error) {
	answer, err := NewPrompter(r, w, msg+" [y/N]: ").ReadLine()
	if err != nil && !errors.Is(err, io.EOF) {
		return false, fmt.Errorf("failed to read confirmation: %w", err)
	}
	return strings.EqualFold(strings.TrimSpace(answer), "y"), nil
}
