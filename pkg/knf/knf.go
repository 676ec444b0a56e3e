// Copyright (c) 2025 AUTHORS All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package knf holds boolean formulas in conjunctive normal form over a fixed
// set of variables and answers which variables can be true in some model.
package knf

import (
	"cmp"
	"fmt"
	"slices"
	"strings"
)

// Var is a formula variable. Variables of a formula with n variables are
// numbered 0 through n-1.
type Var int

// Literal is a variable or its negation.
type Literal struct {
	Var Var
	Neg bool
}

// Pos returns the positive literal of v.
func Pos(v Var) Literal { return Literal{Var: v} }

// Neg returns the negative literal of v.
func Neg(v Var) Literal { return Literal{Var: v, Neg: true} }

// Not returns the complement of l.
func (l Literal) Not() Literal { return Literal{Var: l.Var, Neg: !l.Neg} }

func compareLiterals(a, b Literal) int {
	if c := cmp.Compare(a.Var, b.Var); c != 0 {
		return c
	}
	switch {
	case a.Neg == b.Neg:
		return 0
	case a.Neg:
		return -1
	}
	return 1
}

// Clause is a disjunction of literals. Clauses held by a Formula are sorted by
// variable and never modified.
type Clause []Literal

// normalize sorts and deduplicates lits. It reports false if the clause is a
// tautology.
func normalize(lits []Literal) (Clause, bool) {
	c := slices.Clone(lits)
	slices.SortFunc(c, compareLiterals)
	c = slices.Compact(c)
	for i := 1; i < len(c); i++ {
		if c[i].Var == c[i-1].Var {
			return nil, false
		}
	}
	return c, true
}

func (c Clause) contains(l Literal) bool {
	_, ok := slices.BinarySearchFunc(c, l, compareLiterals)
	return ok
}

// Formula is an immutable conjunction of clauses.
type Formula struct {
	n       int
	names   []string
	clauses []Clause
}

// NumVars returns the number of variables of f.
func (f *Formula) NumVars() int { return f.n }

// Clauses returns a copy of the clauses of f.
func (f *Formula) Clauses() []Clause {
	out := make([]Clause, len(f.clauses))
	for i, c := range f.clauses {
		out[i] = slices.Clone(c)
	}
	return out
}

// Name returns the display name of v.
func (f *Formula) Name(v Var) string {
	if int(v) < len(f.names) && f.names[v] != "" {
		return f.names[v]
	}
	return fmt.Sprintf("x%d", v)
}

func (f *Formula) literalString(l Literal) string {
	if l.Neg {
		return "¬" + f.Name(l.Var)
	}
	return f.Name(l.Var)
}

// String renders f as a boolean expression such as (¬a ∨ b) ∧ (a ∨ b).
func (f *Formula) String() string {
	if len(f.clauses) == 0 {
		return "()"
	}
	var sb strings.Builder
	for i, c := range f.clauses {
		if i > 0 {
			sb.WriteString(" ∧ ")
		}
		sb.WriteByte('(')
		for j, l := range c {
			if j > 0 {
				sb.WriteString(" ∨ ")
			}
			sb.WriteString(f.literalString(l))
		}
		sb.WriteByte(')')
	}
	return sb.String()
}

// SetString renders f in set notation such as {{¬a, b}, {a, b}}.
func (f *Formula) SetString() string {
	var sb strings.Builder
	sb.WriteByte('{')
	for i, c := range f.clauses {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteByte('{')
		for j, l := range c {
			if j > 0 {
				sb.WriteString(", ")
			}
			sb.WriteString(f.literalString(l))
		}
		sb.WriteByte('}')
	}
	sb.WriteByte('}')
	return sb.String()
}

// Builder accumulates clauses for a Formula.
type Builder struct {
	n       int
	names   []string
	clauses []Clause
	err     error
}

// NewBuilder returns a Builder for a formula over n variables.
func NewBuilder(n int) *Builder {
	return &Builder{n: n}
}

// Names sets the display names of the variables, in variable order.
func (b *Builder) Names(names ...string) *Builder {
	b.names = slices.Clone(names)
	return b
}

// And adds the clause (l1 ∨ l2 ∨ ...). Tautologies are dropped. An empty
// clause makes the formula unsatisfiable.
func (b *Builder) And(lits ...Literal) *Builder {
	for _, l := range lits {
		if l.Var < 0 || int(l.Var) >= b.n {
			if b.err == nil {
				b.err = fmt.Errorf("knf: variable %d out of range [0,%d)", l.Var, b.n)
			}
			return b
		}
	}
	c, ok := normalize(lits)
	if !ok {
		return b
	}
	b.clauses = append(b.clauses, c)
	return b
}

// Build returns the formula. It fails if a clause referenced a variable
// outside the formula.
func (b *Builder) Build() (*Formula, error) {
	if b.err != nil {
		return nil, b.err
	}
	return &Formula{
		n:       b.n,
		names:   slices.Clone(b.names),
		clauses: slices.Clone(b.clauses),
	}, nil
}
