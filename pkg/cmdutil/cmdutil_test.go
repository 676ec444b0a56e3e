// Copyright (c) 2025 AUTHORS All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package cmdutil

import (
	"bytes"
	"errors"
	"io"
	"reflect"
	"strings"
	"testing"
)

func TestPrompterReadLine(t *testing.T) {
	var out bytes.Buffer
	p := NewPrompter(strings.NewReader("one\r\n\ntwo three\nlast"), &out, "> ")
	var got []string
	for {
		line, err := p.ReadLine()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			t.Fatalf("ReadLine() error = %v", err)
		}
		got = append(got, line)
	}
	want := []string{"one", "", "two three", "last"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("lines = %q, want %q", got, want)
	}
	if out.String() != "> > > > > " {
		t.Errorf("prompts = %q", out.String())
	}
}

func TestConfirm(t *testing.T) {
	tests := []struct {
		in   string
		want bool
	}{
		{"y\n", true},
		{"Y", true},
		{" y \n", true},
		{"yes\n", false},
		{"\n", false},
		{"", false},
	}
	for _, tt := range tests {
		var out bytes.Buffer
		got, err := Confirm(strings.NewReader(tt.in), &out, "Continue?")
		if err != nil {
			t.Fatalf("Confirm(%q) error = %v", tt.in, err)
		}
		if got != tt.want {
			t.Errorf("Confirm(%q) = %v, want %v", tt.in, got, tt.want)
		}
		if out.String() != "Continue? [y/N]: " {
			t.Errorf("prompt = %q", out.String())
		}
	}
}
