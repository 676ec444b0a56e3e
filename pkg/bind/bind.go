// Copyright (c) 2025 AUTHORS All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package bind builds a schema from a list of named fields and copies parsed
// values back into caller-owned variables.
//
//	var cfg struct {
//		Verbose bool
//		Files   []string
//	}
//	b, err := bind.Compile(bind.Spec{Fields: []bind.Field{
//		{Name: "verbose", Option: &bind.Option{Long: "verbose", Short: 'v', Parser: opts.Bool, Marker: true, MarkerOnly: true}, Set: bind.To(&cfg.Verbose)},
//		{Name: "files", Vararg: &bind.Vararg{Optional: true}, Set: bind.ToSlice(&cfg.Files)},
//	}})
//	...
//	_, err = b.Parse(os.Args[1:])
package bind

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"github.com/yeetrun/opts/pkg/fragments"
	"github.com/yeetrun/opts/pkg/knf"
	"github.com/yeetrun/opts/pkg/opts"
	"tailscale.com/util/set"
)

// Argument describes a positional argument at Index.
type Argument struct {
	Index      int
	Parser     opts.Parser // opts.String if nil
	Optional   bool
	Default    any
	HasDefault bool
}

// Option describes a named option.
type Option struct {
	Long       string
	Short      rune // 0 for none
	Parser     opts.Parser
	Default    any
	HasDefault bool
	Marker     any
	HasMarker  bool
	MarkerOnly bool // implies HasMarker
}

// Vararg describes the trailing argument that collects remaining values. Its
// value is a []any.
type Vararg struct {
	Parser     opts.Parser
	Optional   bool
	Default    []any
	HasDefault bool
}

// Wildcard collects every -#name option. Its value is a
// map[string]opts.WildcardValue.
type Wildcard struct{}

// Field is one named entry of a Spec. Exactly one of Argument, Option,
// Vararg and Wildcard must be set.
type Field struct {
	Name string

	Argument *Argument
	Option   *Option
	Vararg   *Vararg
	Wildcard *Wildcard

	// Set receives the field's resolved value after a successful parse. It
	// is not called for fields without a value.
	Set Setter
}

// Setter checks a resolved value and returns the function that stores it.
// Binding.Apply stores nothing until every field's Setter has succeeded.
type Setter func(v any) (store func(), err error)

func (f *Field) roles() int {
	n := 0
	for _, ok := range []bool{f.Argument != nil, f.Option != nil, f.Vararg != nil, f.Wildcard != nil} {
		if ok {
			n++
		}
	}
	return n
}

// RestrictionKind names a form of opts.Restriction.
type RestrictionKind string

const (
	ImplyPresence   RestrictionKind = "imply-presence"
	ImplyAbsence    RestrictionKind = "imply-absence"
	MutuallyExclude RestrictionKind = "mutually-exclude"
	MutuallyRequire RestrictionKind = "mutually-require"
)

// Restriction refers to option fields by name. Triggers, Targets and Unless
// are used by the implication kinds; Options by the mutual kinds.
type Restriction struct {
	Kind     RestrictionKind
	Triggers []string
	Targets  []string
	Unless   []string
	Options  []string
}

// Spec describes a command line.
type Spec struct {
	Fields       []Field
	Restrictions []Restriction

	// Solver, if non-nil, is used to check the restrictions.
	Solver *knf.Solver

	// EnforceRestrictions makes Parse fail with opts.ErrRestrictionViolated
	// when the given options break a restriction.
	EnforceRestrictions bool
}

// Binding is a compiled Spec.
type Binding struct {
	fields   []Field
	pool     *opts.Pool
	decls    map[string]opts.Declaration
	wildcard *Field
}

type compiler struct {
	errs []error
}

func (c *compiler) fail(kind error, subject, format string, args ...any) {
	c.errs = append(c.errs, &opts.ConfigError{Kind: kind, Subject: subject, Detail: fmt.Sprintf(format, args...)})
}

func (c *compiler) add(err error) {
	if err != nil {
		c.errs = append(c.errs, err)
	}
}

// Compile validates spec and builds its schema. Every problem found in the
// fields is reported together, joined with errors.Join.
func Compile(spec Spec) (*Binding, error) {
	return CompileContext(context.Background(), spec)
}

// CompileContext is Compile with a context bounding the reachability search.
func CompileContext(ctx context.Context, spec Spec) (*Binding, error) {
	var c compiler
	b := &Binding{
		fields: slices.Clone(spec.Fields),
		decls:  map[string]opts.Declaration{},
	}
	var (
		names   = make(set.Set[string])
		byIndex = map[int]*Field{}
		options = map[string]*opts.Option{}
		order   []*opts.Option
		vararg  *Field
	)
	for i := range b.fields {
		f := &b.fields[i]
		if n := f.roles(); n != 1 {
			c.fail(opts.ErrInvalidRole, f.Name, "field has %d roles, want exactly one", n)
			continue
		}
		if names.Contains(f.Name) {
			c.fail(opts.ErrInvalidRole, f.Name, "field name used more than once")
			continue
		}
		names.Add(f.Name)
		switch {
		case f.Argument != nil:
			if prev, ok := byIndex[f.Argument.Index]; ok {
				c.fail(opts.ErrDuplicateArgumentIndex, f.Name, "index %d is already used by %s", f.Argument.Index, prev.Name)
				continue
			}
			byIndex[f.Argument.Index] = f
		case f.Option != nil:
			o, err := newOption(f.Option)
			if err != nil {
				c.add(fmt.Errorf("field %s: %w", f.Name, err))
				continue
			}
			options[f.Name] = o
			order = append(order, o)
			b.decls[f.Name] = o
		case f.Vararg != nil:
			if vararg != nil {
				c.fail(opts.ErrMultipleVarargs, f.Name, "%s is already the vararg", vararg.Name)
				continue
			}
			vararg = f
		case f.Wildcard != nil:
			if b.wildcard != nil {
				c.fail(opts.ErrMultipleWildcards, f.Name, "%s already collects wildcards", b.wildcard.Name)
				continue
			}
			b.wildcard = f
		}
	}
	for i := range len(byIndex) {
		if _, ok := byIndex[i]; !ok {
			c.fail(opts.ErrArgumentIndexGap, "", "no argument at index %d of %d", i, len(byIndex))
			break
		}
	}
	restrictions := make([]opts.Restriction, 0, len(spec.Restrictions))
	for _, r := range spec.Restrictions {
		or, err := resolveRestriction(r, options)
		if err != nil {
			c.add(err)
			continue
		}
		restrictions = append(restrictions, or)
	}
	if len(c.errs) > 0 {
		return nil, errors.Join(c.errs...)
	}

	pb := opts.NewPoolBuilder().WithSolver(spec.Solver)
	if spec.EnforceRestrictions {
		pb.EnforceRestrictions()
	}
	for i := range len(byIndex) {
		f := byIndex[i]
		a := newArgument(f.Argument.Parser, f.Argument.Optional, f.Argument.Default, f.Argument.HasDefault)
		if err := pb.AddArgument(a); err != nil {
			c.add(fmt.Errorf("field %s: %w", f.Name, err))
			continue
		}
		b.decls[f.Name] = a
	}
	if vararg != nil {
		v := vararg.Vararg
		a := newArgument(v.Parser, v.Optional, v.Default, v.HasDefault)
		if err := pb.AddVararg(a); err != nil {
			c.add(fmt.Errorf("field %s: %w", vararg.Name, err))
		}
		b.decls[vararg.Name] = a
	}
	for _, o := range order {
		c.add(pb.AddOption(o))
	}
	for _, r := range restrictions {
		c.add(pb.AddRestriction(r))
	}
	if len(c.errs) > 0 {
		return nil, errors.Join(c.errs...)
	}
	pool, err := pb.BuildContext(ctx)
	if err != nil {
		return nil, err
	}
	b.pool = pool
	return b, nil
}

func newOption(o *Option) (*opts.Option, error) {
	var settings []opts.OptionSetting
	if o.Short != 0 {
		settings = append(settings, opts.Short(o.Short))
	}
	if o.HasDefault {
		settings = append(settings, opts.OptionDefault(o.Default))
	}
	switch {
	case o.MarkerOnly:
		settings = append(settings, opts.MarkerOnly(o.Marker))
	case o.HasMarker:
		settings = append(settings, opts.MarkerValue(o.Marker))
	}
	return opts.NewOption(o.Long, o.Parser, settings...)
}

func newArgument[T any](p opts.Parser, optional bool, def T, hasDef bool) *opts.Argument {
	var settings []opts.ArgumentSetting
	if optional {
		settings = append(settings, opts.Optional())
	}
	if hasDef {
		settings = append(settings, opts.ArgumentDefault(def))
	}
	return opts.NewArgument(p, settings...)
}

func resolveRestriction(r Restriction, options map[string]*opts.Option) (opts.Restriction, error) {
	var missing []string
	lookup := func(names []string) []*opts.Option {
		out := make([]*opts.Option, 0, len(names))
		for _, n := range names {
			o, ok := options[n]
			if !ok {
				missing = append(missing, n)
				continue
			}
			out = append(out, o)
		}
		return out
	}
	var out opts.Restriction
	switch r.Kind {
	case ImplyPresence:
		out = opts.ImplyPresenceUnless(lookup(r.Triggers), lookup(r.Targets), lookup(r.Unless))
	case ImplyAbsence:
		out = opts.ImplyAbsenceUnless(lookup(r.Triggers), lookup(r.Targets), lookup(r.Unless))
	case MutuallyExclude:
		out = opts.MutuallyExclude(lookup(r.Options)...)
	case MutuallyRequire:
		out = opts.MutuallyRequire(lookup(r.Options)...)
	default:
		return opts.Restriction{}, &opts.ConfigError{Kind: opts.ErrInvalidRole, Subject: string(r.Kind), Detail: "unknown restriction kind"}
	}
	if len(missing) > 0 {
		return opts.Restriction{}, &opts.ConfigError{Kind: opts.ErrForeignOption, Subject: string(r.Kind), Detail: fmt.Sprintf("no option fields named %q", missing)}
	}
	return out, nil
}

// Pool returns the compiled schema.
func (b *Binding) Pool() *opts.Pool { return b.pool }

// Lookup returns the declaration compiled for the field named name. Wildcard
// fields have no declaration.
func (b *Binding) Lookup(name string) (opts.Declaration, bool) {
	d, ok := b.decls[name]
	return d, ok
}

// Names returns the field names in declaration order.
func (b *Binding) Names() []string {
	out := make([]string, len(b.fields))
	for i, f := range b.fields {
		out[i] = f.Name
	}
	return out
}

// Parse parses frags and applies the result.
func (b *Binding) Parse(frags []string) (*opts.Set, error) {
	s, err := opts.Parse(b.pool, frags)
	if err != nil {
		return nil, err
	}
	if err := b.Apply(s); err != nil {
		return nil, err
	}
	return s, nil
}

// ParseLine splits line with fragments.Split, then parses and applies it.
func (b *Binding) ParseLine(line string) (*opts.Set, error) {
	return b.Parse(fragments.Split(line))
}

// Apply calls each field's Set with its value in s. If any field fails,
// no field is stored.
func (b *Binding) Apply(s *opts.Set) error {
	var stores []func()
	for i := range b.fields {
		f := &b.fields[i]
		if f.Set == nil {
			continue
		}
		var v any
		if f.Wildcard != nil {
			v = s.Wildcards()
		} else {
			var err error
			v, err = s.Get(b.decls[f.Name])
			if errors.Is(err, opts.ErrNoValue) {
				continue
			}
			if err != nil {
				return fmt.Errorf("field %s: %w", f.Name, err)
			}
		}
		store, err := f.Set(v)
		if err != nil {
			return fmt.Errorf("field %s: %w", f.Name, err)
		}
		stores = append(stores, store)
	}
	for _, store := range stores {
		store()
	}
	return nil
}

// To returns a setter storing values of type T into p.
func To[T any](p *T) Setter {
	return func(v any) (func(), error) {
		t, ok := v.(T)
		if !ok {
			return nil, fmt.Errorf("cannot assign %T to %T", v, *p)
		}
		return func() { *p = t }, nil
	}
}

// ToSlice returns a setter storing a vararg's values into p.
func ToSlice[T any](p *[]T) Setter {
	return func(v any) (func(), error) {
		vs, ok := v.([]any)
		if !ok {
			return nil, fmt.Errorf("cannot assign %T to %T", v, *p)
		}
		out := make([]T, 0, len(vs))
		for _, e := range vs {
			t, ok := e.(T)
			if !ok {
				return nil, fmt.Errorf("cannot assign element %T to %T", e, *p)
			}
			out = append(out, t)
		}
		return func() { *p = out }, nil
	}
}
