// Copyright (c) 2025 AUTHORS All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package opts parses command lines against a schema of positional
// arguments, named options, and restrictions between options.
//
// A schema is assembled with a PoolBuilder. Building it rejects restriction
// sets under which some option could never be given:
//
//	b := opts.NewPoolBuilder()
//	verbose, _ := opts.NewOption("verbose", opts.Bool, opts.Short('v'), opts.MarkerOnly(true))
//	b.AddOption(verbose)
//	b.AddArgument(opts.NewArgument(opts.String))
//	pool, err := b.Build()
//	...
//	set, err := opts.ParseLine(pool, `-v "some file"`)
package opts

import (
	"context"
	"slices"

	"github.com/yeetrun/opts/pkg/knf"
)

// Pool is a built, immutable schema.
type Pool struct {
	args         []*Argument
	options      []*Option
	byLong       map[string]*Option
	byShort      map[rune]*Option
	varOf        map[*Option]knf.Var
	restrictions []Restriction
	formula      *knf.Formula
	enforce      bool
}

// Arguments returns the positional declarations in index order.
func (p *Pool) Arguments() []*Argument { return slices.Clone(p.args) }

// Argument returns the argument at index i.
func (p *Pool) Argument(i int) (*Argument, bool) {
	if i < 0 || i >= len(p.args) {
		return nil, false
	}
	return p.args[i], true
}

// Vararg returns the trailing vararg argument, if any.
func (p *Pool) Vararg() (*Argument, bool) {
	if n := len(p.args); n > 0 && p.args[n-1].vararg {
		return p.args[n-1], true
	}
	return nil, false
}

// Options returns the options in declaration order.
func (p *Pool) Options() []*Option { return slices.Clone(p.options) }

// OptionByLong returns the option with long token s.
func (p *Pool) OptionByLong(s string) (*Option, bool) {
	o, ok := p.byLong[s]
	return o, ok
}

// OptionByShort returns the option with short token r.
func (p *Pool) OptionByShort(r rune) (*Option, bool) {
	o, ok := p.byShort[r]
	return o, ok
}

// Restrictions returns the schema's restrictions in declaration order.
func (p *Pool) Restrictions() []Restriction { return slices.Clone(p.restrictions) }

// Formula returns the restrictions compiled to conjunctive normal form, one
// variable per option in declaration order.
func (p *Pool) Formula() *knf.Formula { return p.formula }

// Enforced reports whether Parse checks results against the restrictions.
func (p *Pool) Enforced() bool { return p.enforce }

// Contains reports whether d was declared in p.
func (p *Pool) Contains(d Declaration) bool {
	switch d := d.(type) {
	case *Argument:
		return d != nil && d.index >= 0 && d.index < len(p.args) && p.args[d.index] == d
	case *Option:
		_, ok := p.varOf[d]
		return ok
	}
	return false
}

// PoolBuilder assembles a Pool. Adding a declaration that breaks the
// schema's structure fails immediately.
type PoolBuilder struct {
	args         []*Argument
	options      []*Option
	byLong       map[string]*Option
	byShort      map[rune]*Option
	restrictions []Restriction
	solver       *knf.Solver
	enforce      bool
}

// NewPoolBuilder returns an empty PoolBuilder.
func NewPoolBuilder() *PoolBuilder {
	return &PoolBuilder{
		byLong:  map[string]*Option{},
		byShort: map[rune]*Option{},
	}
}

// WithSolver sets the solver used by Build to find unreachable options.
func (b *PoolBuilder) WithSolver(s *knf.Solver) *PoolBuilder {
	b.solver = s
	return b
}

// EnforceRestrictions makes Parse reject results whose present options
// break a restriction, with ErrRestrictionViolated. By default restrictions
// only decide which options are reachable.
func (b *PoolBuilder) EnforceRestrictions() *PoolBuilder {
	b.enforce = true
	return b
}

func (b *PoolBuilder) addArgument(a *Argument, vararg bool) error {
	if a.index >= 0 {
		return configErr(ErrInvalidRole, a.String(), "argument already belongs to a schema")
	}
	if n := len(b.args); n > 0 {
		last := b.args[n-1]
		if last.vararg {
			return configErr(ErrArgumentAfterVararg, "", "the vararg must be the last argument")
		}
		if last.optional && !a.optional {
			return configErr(ErrRequiredAfterOptional, "", "argument %d follows optional argument %d", n, n-1)
		}
	}
	a.index = len(b.args)
	a.vararg = vararg
	b.args = append(b.args, a)
	return nil
}

// AddArgument appends a positional argument.
func (b *PoolBuilder) AddArgument(a *Argument) error {
	return b.addArgument(a, false)
}

// AddVararg appends the argument that collects every remaining positional
// value. No argument may follow it.
func (b *PoolBuilder) AddVararg(a *Argument) error {
	return b.addArgument(a, true)
}

// AddOption adds an option. Long and short tokens must be unique.
func (b *PoolBuilder) AddOption(o *Option) error {
	if o == nil {
		return configErr(ErrInvalidRole, "", "nil option")
	}
	if prev, ok := b.byLong[o.long]; ok {
		if prev == o {
			return configErr(ErrDuplicateToken, o.String(), "option added twice")
		}
		return configErr(ErrDuplicateToken, o.String(), "--%s is already used by %s", o.long, prev)
	}
	if o.short != 0 {
		if prev, ok := b.byShort[o.short]; ok {
			return configErr(ErrDuplicateToken, o.String(), "-%c is already used by %s", o.short, prev)
		}
		b.byShort[o.short] = o
	}
	b.byLong[o.long] = o
	b.options = append(b.options, o)
	return nil
}

// AddRestriction adds a restriction. Every option it mentions must already
// have been added.
func (b *PoolBuilder) AddRestriction(r Restriction) error {
	for _, o := range r.Options() {
		if o == nil || b.byLong[o.long] != o {
			return configErr(ErrForeignOption, r.String(), "%v is not part of this schema", o)
		}
	}
	b.restrictions = append(b.restrictions, r)
	return nil
}

// Build compiles the restrictions and returns the schema. It fails with a
// *ConfigError of kind ErrUnreachableOptions if the restrictions make some
// option impossible to give.
func (b *PoolBuilder) Build() (*Pool, error) {
	return b.BuildContext(context.Background())
}

// BuildContext is Build with a context bounding the reachability search.
func (b *PoolBuilder) BuildContext(ctx context.Context) (*Pool, error) {
	p := &Pool{
		args:         slices.Clone(b.args),
		options:      slices.Clone(b.options),
		byLong:       make(map[string]*Option, len(b.byLong)),
		byShort:      make(map[rune]*Option, len(b.byShort)),
		varOf:        make(map[*Option]knf.Var, len(b.options)),
		restrictions: slices.Clone(b.restrictions),
		enforce:      b.enforce,
	}
	for k, v := range b.byLong {
		p.byLong[k] = v
	}
	for k, v := range b.byShort {
		p.byShort[k] = v
	}
	names := make([]string, len(p.options))
	for i, o := range p.options {
		p.varOf[o] = knf.Var(i)
		names[i] = o.long
	}
	fb := knf.NewBuilder(len(p.options)).Names(names...)
	varOf := func(o *Option) knf.Var { return p.varOf[o] }
	for _, r := range p.restrictions {
		for _, c := range r.Clauses(varOf) {
			fb.And(c...)
		}
	}
	f, err := fb.Build()
	if err != nil {
		return nil, err
	}
	p.formula = f

	solver := b.solver
	if solver == nil {
		solver = new(knf.Solver)
	}
	vs, err := solver.Unreachable(ctx, f)
	if err != nil {
		return nil, err
	}
	if len(vs) > 0 {
		ce := &ConfigError{Kind: ErrUnreachableOptions}
		for _, v := range vs {
			ce.Unreachable = append(ce.Unreachable, p.options[v])
		}
		return nil, ce
	}
	return p, nil
}
