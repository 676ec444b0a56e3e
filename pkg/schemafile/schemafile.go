// Copyright (c) 2025 AUTHORS All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package schemafile reads command line schemas from TOML or YAML files.
package schemafile

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/BurntSushi/toml"
	"github.com/yeetrun/opts/pkg/bind"
	"github.com/yeetrun/opts/pkg/opts"
	"gopkg.in/yaml.v3"
)

// DefaultName is the schema file FindFrom looks for.
const DefaultName = "opts.toml"

const currentVersion = 1

const implicitMarker = "true"

var (
	ErrUnknownParser = errors.New("unknown value type")
	ErrBadText       = errors.New("invalid default or marker text")
)

// File is a schema description. Defaults and markers are written as text and
// converted with the declaration's type.
type File struct {
	Version      int           `toml:"version,omitempty" yaml:"version,omitempty"`
	Name         string        `toml:"name,omitempty" yaml:"name,omitempty"`
	Description  string        `toml:"description,omitempty" yaml:"description,omitempty"`
	Enforce      bool          `toml:"enforce_restrictions,omitempty" yaml:"enforce_restrictions,omitempty"`
	Arguments    []Argument    `toml:"argument,omitempty" yaml:"arguments,omitempty"`
	Vararg       *Vararg       `toml:"vararg,omitempty" yaml:"vararg,omitempty"`
	Wildcard     *Wildcard     `toml:"wildcard,omitempty" yaml:"wildcard,omitempty"`
	Options      []Option      `toml:"option,omitempty" yaml:"options,omitempty"`
	Restrictions []Restriction `toml:"restriction,omitempty" yaml:"restrictions,omitempty"`
}

type Argument struct {
	Name     string  `toml:"name" yaml:"name"`
	Type     string  `toml:"type,omitempty" yaml:"type,omitempty"`
	Optional bool    `toml:"optional,omitempty" yaml:"optional,omitempty"`
	Default  *string `toml:"default,omitempty" yaml:"default,omitempty"`
}

type Vararg struct {
	Name     string `toml:"name" yaml:"name"`
	Type     string `toml:"type,omitempty" yaml:"type,omitempty"`
	Optional bool   `toml:"optional,omitempty" yaml:"optional,omitempty"`
}

type Wildcard struct {
	Name string `toml:"name" yaml:"name"`
}

// Option describes a named option. Name defaults to Long. A marker-only
// option without a Marker uses the text "true", converted with its Type.
type Option struct {
	Name       string  `toml:"name,omitempty" yaml:"name,omitempty"`
	Long       string  `toml:"long" yaml:"long"`
	Short      string  `toml:"short,omitempty" yaml:"short,omitempty"`
	Type       string  `toml:"type,omitempty" yaml:"type,omitempty"`
	Default    *string `toml:"default,omitempty" yaml:"default,omitempty"`
	Marker     *string `toml:"marker,omitempty" yaml:"marker,omitempty"`
	MarkerOnly bool    `toml:"marker_only,omitempty" yaml:"marker_only,omitempty"`
}

// Restriction names option fields; see bind.Restriction.
type Restriction struct {
	Kind     string   `toml:"kind" yaml:"kind"`
	Triggers []string `toml:"triggers,omitempty" yaml:"triggers,omitempty"`
	Targets  []string `toml:"targets,omitempty" yaml:"targets,omitempty"`
	Unless   []string `toml:"unless,omitempty" yaml:"unless,omitempty"`
	Options  []string `toml:"options,omitempty" yaml:"options,omitempty"`
}

// Format is a file encoding.
type Format int

const (
	TOML Format = iota
	YAML
)

func (f Format) String() string {
	if f == YAML {
		return "yaml"
	}
	return "toml"
}

// FormatOf picks the format from a file name's extension. Anything other
// than .yaml or .yml is TOML.
func FormatOf(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return YAML
	}
	return TOML
}

// Load reads and decodes the schema file at path.
func Load(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	f, err := Decode(data, FormatOf(path))
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	return f, nil
}

// Decode decodes a schema file. Unknown keys are errors.
func Decode(data []byte, format Format) (*File, error) {
	var f File
	switch format {
	case YAML:
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(&f); err != nil && !errors.Is(err, io.EOF) {
			return nil, err
		}
	default:
		md, err := toml.Decode(string(data), &f)
		if err != nil {
			return nil, err
		}
		if undecoded := md.Undecoded(); len(undecoded) > 0 {
			return nil, fmt.Errorf("unknown keys %v", undecoded)
		}
	}
	if f.Version == 0 {
		f.Version = currentVersion
	}
	if f.Version != currentVersion {
		return nil, fmt.Errorf("unsupported schema version %d", f.Version)
	}
	return &f, nil
}

// Encode writes f in the given format.
func Encode(w io.Writer, f *File, format Format) error {
	if format == YAML {
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(f); err != nil {
			return err
		}
		return enc.Close()
	}
	return toml.NewEncoder(w).Encode(f)
}

// FindFrom looks for name in dir and its parents. It returns os.ErrNotExist
// if there is none.
func FindFrom(dir, name string) (string, error) {
	dir = filepath.Clean(dir)
	for {
		path := filepath.Join(dir, name)
		if _, err := os.Stat(path); err == nil {
			return path, nil
		} else if !os.IsNotExist(err) {
			return "", err
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
	return "", os.ErrNotExist
}

var parsers = map[string]opts.Parser{
	"":          opts.String,
	"string":    opts.String,
	"bool":      opts.Bool,
	"boolean":   opts.Bool,
	"char":      opts.Char,
	"character": opts.Char,
	"byte":      opts.Int8,
	"int8":      opts.Int8,
	"short":     opts.Int16,
	"int16":     opts.Int16,
	"int32":     opts.Int32,
	"long":      opts.Int64,
	"int64":     opts.Int64,
	"int":       opts.Int,
	"integer":   opts.Int,
	"float":     opts.Float32,
	"float32":   opts.Float32,
	"double":    opts.Float64,
	"float64":   opts.Float64,
	"duration":  opts.Duration,
	"semver":    opts.SemVer,
	"uuid":      opts.UUID,
}

// LookupParser returns the parser registered under name. The empty name is
// the string parser.
func LookupParser(name string) (opts.Parser, bool) {
	p, ok := parsers[strings.ToLower(name)]
	return p, ok
}

type converter struct {
	errs []error
}

func (c *converter) parser(subject, name string) opts.Parser {
	p, ok := LookupParser(name)
	if !ok {
		c.errs = append(c.errs, fmt.Errorf("%s: %w %q", subject, ErrUnknownParser, name))
		return opts.String
	}
	return p
}

func (c *converter) text(subject string, p opts.Parser, s *string) (any, bool) {
	if s == nil {
		return nil, false
	}
	v, err := p.Parse(*s)
	if err != nil {
		c.errs = append(c.errs, fmt.Errorf("%s: %w %q: %v", subject, ErrBadText, *s, err))
		return nil, false
	}
	return v, true
}

// Spec converts f into a bind.Spec without setters. Every problem found is
// reported, joined with errors.Join.
func (f *File) Spec() (bind.Spec, error) {
	var (
		c    converter
		spec bind.Spec
	)
	for i, a := range f.Arguments {
		subject := "argument " + a.Name
		p := c.parser(subject, a.Type)
		def, hasDef := c.text(subject, p, a.Default)
		spec.Fields = append(spec.Fields, bind.Field{
			Name: a.Name,
			Argument: &bind.Argument{
				Index:      i,
				Parser:     p,
				Optional:   a.Optional,
				Default:    def,
				HasDefault: hasDef,
			},
		})
	}
	if v := f.Vararg; v != nil {
		spec.Fields = append(spec.Fields, bind.Field{
			Name:   v.Name,
			Vararg: &bind.Vararg{Parser: c.parser("vararg "+v.Name, v.Type), Optional: v.Optional},
		})
	}
	if w := f.Wildcard; w != nil {
		spec.Fields = append(spec.Fields, bind.Field{Name: w.Name, Wildcard: &bind.Wildcard{}})
	}
	for _, o := range f.Options {
		name := o.Name
		if name == "" {
			name = o.Long
		}
		subject := "option " + name
		p := c.parser(subject, o.Type)
		bo := &bind.Option{Long: o.Long, Parser: p, MarkerOnly: o.MarkerOnly}
		if o.Short != "" {
			r, n := utf8.DecodeRuneInString(o.Short)
			if n != len(o.Short) {
				c.errs = append(c.errs, &opts.ConfigError{Kind: opts.ErrInvalidShortToken, Subject: subject, Detail: fmt.Sprintf("%q is not a single letter", o.Short)})
			}
			bo.Short = r
		}
		bo.Default, bo.HasDefault = c.text(subject, p, o.Default)
		bo.Marker, bo.HasMarker = c.text(subject, p, o.Marker)
		if o.MarkerOnly && o.Marker == nil {
			implicit := implicitMarker
			bo.Marker, bo.HasMarker = c.text(subject+" implicit marker", p, &implicit)
		}
		spec.Fields = append(spec.Fields, bind.Field{Name: name, Option: bo})
	}
	for _, r := range f.Restrictions {
		spec.Restrictions = append(spec.Restrictions, bind.Restriction{
			Kind:     bind.RestrictionKind(r.Kind),
			Triggers: r.Triggers,
			Targets:  r.Targets,
			Unless:   r.Unless,
			Options:  r.Options,
		})
	}
	if len(c.errs) > 0 {
		return bind.Spec{}, errors.Join(c.errs...)
	}
	spec.EnforceRestrictions = f.Enforce
	return spec, nil
}

// Compile converts f and compiles it. customize, if non-nil, may adjust the
// spec before compiling, for example to set its Solver.
func (f *File) Compile(customize func(*bind.Spec)) (*bind.Binding, error) {
	return f.CompileContext(context.Background(), customize)
}

// CompileContext is Compile with a context bounding the reachability search.
func (f *File) CompileContext(ctx context.Context, customize func(*bind.Spec)) (*bind.Binding, error) {
	spec, err := f.Spec()
	if err != nil {
		return nil, err
	}
	if customize != nil {
		customize(&spec)
	}
	return bind.CompileContext(ctx, spec)
}
