// Copyright (c) 2025 AUTHORS All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package schemafile

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/yeetrun/opts/pkg/bind"
	"github.com/yeetrun/opts/pkg/knf"
	"github.com/yeetrun/opts/pkg/opts"
)

const deployTOML = `
name = "deploy"

[[argument]]
name = "service"

[[argument]]
name = "replicas"
type = "int"
optional = true
default = "1"

[vararg]
name = "tags"
optional = true

[wildcard]
name = "defines"

[[option]]
long = "verbose"
short = "v"
type = "bool"
marker_only = true

[[option]]
long = "timeout"
type = "duration"
default = "30s"

[[option]]
name = "dry"
long = "dry-run"
short = "n"
type = "bool"
marker = "true"

[[restriction]]
kind = "imply-presence"
triggers = ["dry"]
targets = ["verbose"]
`

const deployYAML = `
name: deploy
arguments:
  - name: service
  - name: replicas
    type: int
    optional: true
    default: "1"
vararg:
  name: tags
  optional: true
wildcard:
  name: defines
options:
  - long: verbose
    short: v
    type: bool
    marker_only: true
  - long: timeout
    type: duration
    default: 30s
  - name: dry
    long: dry-run
    short: "n"
    type: bool
    marker: "true"
restrictions:
  - kind: imply-presence
    triggers: [dry]
    targets: [verbose]
`

func TestDecodeFormats(t *testing.T) {
	fromTOML, err := Decode([]byte(deployTOML), TOML)
	if err != nil {
		t.Fatalf("Decode(TOML) error = %v", err)
	}
	fromYAML, err := Decode([]byte(deployYAML), YAML)
	if err != nil {
		t.Fatalf("Decode(YAML) error = %v", err)
	}
	if diff := cmp.Diff(fromTOML, fromYAML); diff != "" {
		t.Errorf("TOML and YAML schemas differ (-toml +yaml):\n%s", diff)
	}
	if fromTOML.Version != currentVersion || fromTOML.Name != "deploy" {
		t.Errorf("Decode() = %+v", fromTOML)
	}
}

func TestCompileAndParse(t *testing.T) {
	f, err := Decode([]byte(deployTOML), TOML)
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	b, err := f.Compile(func(s *bind.Spec) { s.Solver = &knf.Solver{Workers: 2} })
	if err != nil {
		t.Fatalf("Compile() error = %v", err)
	}
	s, err := b.Parse([]string{"web", "3", "a", "b", "-nv", "--timeout", "2m", "-#k=v"})
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	get := func(name string) any {
		d, ok := b.Lookup(name)
		if !ok {
			t.Fatalf("Lookup(%q) failed", name)
		}
		v, err := s.Get(d)
		if err != nil {
			t.Fatalf("Get(%q) error = %v", name, err)
		}
		return v
	}
	want := map[string]any{
		"service":  "web",
		"replicas": 3,
		"tags":     []any{"a", "b"},
		"verbose":  true,
		"dry":      true,
		"timeout":  2 * time.Minute,
	}
	for name, w := range want {
		if diff := cmp.Diff(w, get(name)); diff != "" {
			t.Errorf("%s mismatch (-want +got):\n%s", name, diff)
		}
	}
	if w, ok := s.Wildcard("k"); !ok || w.Value != "v" {
		t.Errorf("Wildcard(k) = %+v, %v", w, ok)
	}

	s, err = b.Parse([]string{"api"})
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if got := get("timeout"); got != 30*time.Second {
		t.Errorf("timeout default = %v, want 30s", got)
	}
	if got := get("replicas"); got != 1 {
		t.Errorf("replicas default = %v, want 1", got)
	}
}

func TestSpecErrors(t *testing.T) {
	const bad = `
[[argument]]
name = "n"
type = "int"
default = "many"

[[option]]
long = "when"
type = "calendar"

[[option]]
long = "x"
short = "xy"
`
	f, err := Decode([]byte(bad), TOML)
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	_, err = f.Spec()
	for _, want := range []error{ErrBadText, ErrUnknownParser, opts.ErrInvalidShortToken} {
		if !errors.Is(err, want) {
			t.Errorf("Spec() error = %v, want %v", err, want)
		}
	}
}

func TestImplicitMarker(t *testing.T) {
	const src = `
[[option]]
long = "flag"
type = "bool"
marker_only = true

[[option]]
long = "label"
marker_only = true

[[option]]
long = "count"
type = "int"
marker_only = true
`
	f, err := Decode([]byte(src), TOML)
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	if _, err := f.Spec(); !errors.Is(err, ErrBadText) || !strings.Contains(err.Error(), "option count") {
		t.Fatalf("Spec() error = %v, want %v for count", err, ErrBadText)
	}

	f.Options = f.Options[:2]
	b, err := f.Compile(nil)
	if err != nil {
		t.Fatalf("Compile() error = %v", err)
	}
	s, err := b.Parse([]string{"--flag", "--label"})
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	for name, want := range map[string]any{"flag": true, "label": "true"} {
		d, _ := b.Lookup(name)
		got, err := s.Get(d)
		if err != nil || got != want {
			t.Errorf("Get(%s) = %#v, %v; want %#v", name, got, err, want)
		}
	}
}

func TestDecodeRejectsUnknownKeys(t *testing.T) {
	if _, err := Decode([]byte("[[option]]\nlong = \"a\"\nlongg = \"b\"\n"), TOML); err == nil {
		t.Error("Decode(TOML) expected error for unknown key")
	}
	if _, err := Decode([]byte("options:\n  - long: a\n    longg: b\n"), YAML); err == nil {
		t.Error("Decode(YAML) expected error for unknown key")
	}
	if _, err := Decode([]byte("version = 7\n"), TOML); err == nil {
		t.Error("Decode() expected error for unsupported version")
	}
}

func TestUnreachableSchema(t *testing.T) {
	const src = `
[[option]]
long = "a"
[[option]]
long = "b"
[[restriction]]
kind = "imply-presence"
triggers = ["a"]
targets = ["b"]
[[restriction]]
kind = "mutually-exclude"
options = ["a", "b"]
`
	f, err := Decode([]byte(src), TOML)
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	if _, err := f.Compile(nil); !errors.Is(err, opts.ErrUnreachableOptions) {
		t.Fatalf("Compile() error = %v, want %v", err, opts.ErrUnreachableOptions)
	}
}

func TestEnforceRestrictions(t *testing.T) {
	for _, tt := range []struct {
		src  string
		want bool
	}{
		{deployTOML, false},
		{"enforce_restrictions = true\n" + deployTOML, true},
	} {
		f, err := Decode([]byte(tt.src), TOML)
		if err != nil {
			t.Fatalf("Decode() error = %v", err)
		}
		b, err := f.Compile(nil)
		if err != nil {
			t.Fatalf("Compile() error = %v", err)
		}
		if got := b.Pool().Enforced(); got != tt.want {
			t.Errorf("Enforced() = %v, want %v", got, tt.want)
		}
		_, err = b.Parse([]string{"web", "-n"})
		if got := errors.Is(err, opts.ErrRestrictionViolated); got != tt.want {
			t.Errorf("Parse(-n) error = %v, want violation %v", err, tt.want)
		}
	}
}

func TestEncodeDecode(t *testing.T) {
	f, err := Decode([]byte(deployTOML), TOML)
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	for _, format := range []Format{TOML, YAML} {
		var buf bytes.Buffer
		if err := Encode(&buf, f, format); err != nil {
			t.Fatalf("Encode(%v) error = %v", format, err)
		}
		got, err := Decode(buf.Bytes(), format)
		if err != nil {
			t.Fatalf("Decode(%v) error = %v\n%s", format, err, buf.String())
		}
		if diff := cmp.Diff(f, got); diff != "" {
			t.Errorf("%v mismatch (-want +got):\n%s", format, diff)
		}
	}
}

func TestLoadAndFind(t *testing.T) {
	root := t.TempDir()
	nested := filepath.Join(root, "a", "b")
	if err := os.MkdirAll(nested, 0o755); err != nil {
		t.Fatal(err)
	}
	path := filepath.Join(root, DefaultName)
	if err := os.WriteFile(path, []byte(deployTOML), 0o644); err != nil {
		t.Fatal(err)
	}
	found, err := FindFrom(nested, DefaultName)
	if err != nil || found != path {
		t.Fatalf("FindFrom() = %q, %v; want %q", found, err, path)
	}
	if _, err := FindFrom(nested, "missing.toml"); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("FindFrom(missing) error = %v", err)
	}
	if _, err := Load(path); err != nil {
		t.Errorf("Load() error = %v", err)
	}

	yml := filepath.Join(root, "schema.yml")
	if err := os.WriteFile(yml, []byte(deployYAML), 0o644); err != nil {
		t.Fatal(err)
	}
	if FormatOf(yml) != YAML {
		t.Errorf("FormatOf(%q) = %v", yml, FormatOf(yml))
	}
	if _, err := Load(yml); err != nil {
		t.Errorf("Load(yml) error = %v", err)
	}
}
