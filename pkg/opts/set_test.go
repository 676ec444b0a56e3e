// Copyright (c) 2025 AUTHORS All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package opts

import (
	"errors"
	"reflect"
	"testing"
	"time"

	"tailscale.com/util/must"
)

func TestDefaultRoundTrip(t *testing.T) {
	timeout := must.Get(NewOption("timeout", Duration, OptionDefault(5*time.Second)))
	pb := NewPoolBuilder()
	must.Do(pb.AddOption(timeout))
	p := must.Get(pb.Build())

	s := mustParse(t, p)
	if got := mustGet(t, s, timeout); got != 5*time.Second {
		t.Errorf("Get() = %v, want default", got)
	}
	if set := must.Get(s.IsSet(timeout)); set {
		t.Error("IsSet() = true for default value")
	}

	s = mustParse(t, p, "--timeout=1m")
	if got := mustGet(t, s, timeout); got != time.Minute {
		t.Errorf("Get() = %v, want 1m", got)
	}
	if set := must.Get(s.IsSet(timeout)); !set {
		t.Error("IsSet() = false for explicit value")
	}
}

func TestGetWithoutValue(t *testing.T) {
	name := must.Get(NewOption("name", String))
	pb := NewPoolBuilder()
	must.Do(pb.AddOption(name))
	p := must.Get(pb.Build())
	s := mustParse(t, p)

	if _, err := s.Get(name); !errors.Is(err, ErrNoValue) {
		t.Errorf("Get() error = %v, want %v", err, ErrNoValue)
	}
	if got := must.Get(s.GetOrElse(name, "fallback")); got != "fallback" {
		t.Errorf("GetOrElse() = %v, want fallback", got)
	}
	if got := must.Get(ValueOr(s, name, "typed")); got != "typed" {
		t.Errorf("ValueOr() = %v, want typed", got)
	}
}

func TestForeignDeclaration(t *testing.T) {
	p := must.Get(NewPoolBuilder().Build())
	s := mustParse(t, p)
	foreign := must.Get(NewOption("foreign", String, OptionDefault("x")))
	for _, d := range []Declaration{foreign, NewArgument(String), nil} {
		if _, err := s.Get(d); !errors.Is(err, ErrForeignDeclaration) {
			t.Errorf("Get(%v) error = %v, want %v", d, err, ErrForeignDeclaration)
		}
		if _, err := s.GetOrElse(d, 1); !errors.Is(err, ErrForeignDeclaration) {
			t.Errorf("GetOrElse(%v) error = %v, want %v", d, err, ErrForeignDeclaration)
		}
		if _, err := s.IsSet(d); !errors.Is(err, ErrForeignDeclaration) {
			t.Errorf("IsSet(%v) error = %v, want %v", d, err, ErrForeignDeclaration)
		}
	}
}

func TestOptionalArgumentBeforeVararg(t *testing.T) {
	first := NewArgument(String, Optional(), ArgumentDefault("d"))
	rest := NewArgument(String, Optional())
	pb := NewPoolBuilder()
	must.Do(pb.AddArgument(first))
	must.Do(pb.AddVararg(rest))
	p := must.Get(pb.Build())

	tests := []struct {
		frags     []string
		wantFirst any
		wantRest  []any
	}{
		{nil, "d", []any{}},
		{[]string{"x"}, "x", []any{}},
		{[]string{"x", "y", "z"}, "x", []any{"y", "z"}},
	}
	for _, tt := range tests {
		s := mustParse(t, p, tt.frags...)
		if got := mustGet(t, s, first); got != tt.wantFirst {
			t.Errorf("Parse(%q): first = %v, want %v", tt.frags, got, tt.wantFirst)
		}
		got, err := Value[[]any](s, rest)
		if err != nil {
			t.Fatalf("Value() error = %v", err)
		}
		if !reflect.DeepEqual(got, tt.wantRest) {
			t.Errorf("Parse(%q): rest = %#v, want %#v", tt.frags, got, tt.wantRest)
		}
	}
}

func TestRequiredVararg(t *testing.T) {
	files := NewArgument(String)
	pb := NewPoolBuilder()
	must.Do(pb.AddVararg(files))
	p := must.Get(pb.Build())
	if _, err := Parse(p, nil); !errors.Is(err, ErrMissingArgument) {
		t.Fatalf("Parse() error = %v, want %v", err, ErrMissingArgument)
	}
	s := mustParse(t, p, "a")
	if got := mustGet(t, s, files); !reflect.DeepEqual(got, []any{"a"}) {
		t.Errorf("files = %#v", got)
	}
}

func TestValueType(t *testing.T) {
	n := must.Get(NewOption("n", Int64))
	pb := NewPoolBuilder()
	must.Do(pb.AddOption(n))
	p := must.Get(pb.Build())
	s := mustParse(t, p, "--n=42")

	if got, err := Value[int64](s, n); err != nil || got != 42 {
		t.Errorf("Value[int64]() = %v, %v", got, err)
	}
	if _, err := Value[string](s, n); err == nil {
		t.Error("Value[string]() expected type error")
	}
}
