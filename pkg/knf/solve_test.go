// Copyright (c) 2025 AUTHORS All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package knf

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"slices"
	"testing"

	"github.com/go-air/gini"
	"github.com/go-air/gini/z"
	"github.com/google/go-cmp/cmp"
)

const (
	a Var = iota
	b
	c
	d
)

func TestUnreachable(t *testing.T) {
	tests := []struct {
		name   string
		n      int
		build  func(*Builder)
		wantUn []Var
	}{
		{
			name:   "no clauses",
			n:      3,
			build:  func(*Builder) {},
			wantUn: nil,
		},
		{
			name: "implication is satisfiable",
			n:    2,
			build: func(f *Builder) {
				f.And(Neg(a), Pos(b))
			},
		},
		{
			// a requires b, b excludes a.
			name: "self defeating option",
			n:    2,
			build: func(f *Builder) {
				f.And(Neg(a), Pos(b))
				f.And(Neg(a), Neg(b))
			},
			wantUn: []Var{a},
		},
		{
			name: "mutual exclusion keeps both",
			n:    2,
			build: func(f *Builder) {
				f.And(Neg(a), Neg(b))
			},
		},
		{
			name: "unsatisfiable",
			n:    2,
			build: func(f *Builder) {
				f.And(Pos(a))
				f.And(Neg(a))
			},
			wantUn: []Var{a, b},
		},
		{
			name: "chain of implications into exclusion",
			n:    4,
			build: func(f *Builder) {
				f.And(Neg(a), Pos(b))
				f.And(Neg(b), Pos(c))
				f.And(Neg(c), Neg(a))
				f.And(Neg(d), Pos(c))
			},
			wantUn: []Var{a},
		},
		{
			name: "negative only variable still reachable",
			n:    3,
			build: func(f *Builder) {
				f.And(Neg(a), Pos(b))
				f.And(Neg(a), Pos(c))
			},
		},
		{
			name: "forced false",
			n:    2,
			build: func(f *Builder) {
				f.And(Neg(b))
				f.And(Pos(a), Pos(b))
			},
			wantUn: []Var{b},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			bld := NewBuilder(tt.n)
			tt.build(bld)
			f := mustBuild(t, bld)
			got := f.Unreachable()
			if diff := cmp.Diff(tt.wantUn, got, cmpEmpty); diff != "" {
				t.Errorf("Unreachable() mismatch (-want +got):\n%s", diff)
			}
			if want := bruteForce(f); !slices.Equal(got, want) {
				t.Errorf("Unreachable() = %v, brute force = %v", got, want)
			}
		})
	}
}

var cmpEmpty = cmp.Comparer(func(x, y []Var) bool {
	return len(x) == 0 && len(y) == 0 || slices.Equal(x, y)
})

// bruteForce enumerates every assignment of f.
func bruteForce(f *Formula) []Var {
	reach := make([]bool, f.n)
	for m := 0; m < 1<<f.n; m++ {
		if !satisfies(f, m) {
			continue
		}
		for v := range f.n {
			if m&(1<<v) != 0 {
				reach[v] = true
			}
		}
	}
	var out []Var
	for v, ok := range reach {
		if !ok {
			out = append(out, Var(v))
		}
	}
	return out
}

func satisfies(f *Formula, m int) bool {
	for _, c := range f.clauses {
		sat := false
		for _, l := range c {
			if (m&(1<<l.Var) != 0) != l.Neg {
				sat = true
				break
			}
		}
		if !sat {
			return false
		}
	}
	return true
}

// oracle answers reachability one variable at a time with gini, using a
// fresh solver per query.
func oracle(f *Formula) []Var {
	lit := func(l Literal) z.Lit {
		v := z.Var(l.Var + 1)
		if l.Neg {
			return v.Neg()
		}
		return v.Pos()
	}
	var out []Var
	for v := range f.n {
		g := gini.New()
		for _, c := range f.clauses {
			for _, l := range c {
				g.Add(lit(l))
			}
			g.Add(z.LitNull)
		}
		g.Assume(lit(Pos(Var(v))))
		if g.Solve() != 1 {
			out = append(out, Var(v))
		}
	}
	return out
}

// randomFormula builds formulas shaped like option restrictions: mostly
// short clauses with a negative trigger.
func randomFormula(r *rand.Rand, n, clauses int) *Formula {
	bld := NewBuilder(n)
	for range clauses {
		width := 1 + r.IntN(3)
		lits := make([]Literal, 0, width)
		for range width {
			l := Literal{Var: Var(r.IntN(n)), Neg: r.IntN(3) != 0}
			lits = append(lits, l)
		}
		bld.And(lits...)
	}
	f, err := bld.Build()
	if err != nil {
		panic(err)
	}
	return f
}

func TestUnreachableMatchesBruteForce(t *testing.T) {
	r := rand.New(rand.NewPCG(1, 2))
	for i := range 500 {
		n := 1 + r.IntN(10)
		f := randomFormula(r, n, r.IntN(3*n))
		got := f.Unreachable()
		want := bruteForce(f)
		if !slices.Equal(got, want) {
			t.Fatalf("formula %d %s: Unreachable() = %v, want %v", i, f, got, want)
		}
	}
}

func TestUnreachableMatchesOracle(t *testing.T) {
	r := rand.New(rand.NewPCG(3, 4))
	for i := range 200 {
		n := 8 + r.IntN(17)
		f := randomFormula(r, n, n+r.IntN(2*n))
		got := f.Unreachable()
		want := oracle(f)
		if !slices.Equal(got, want) {
			t.Fatalf("formula %d %s: Unreachable() = %v, gini = %v", i, f, got, want)
		}
	}
}

func TestUnreachableMonotone(t *testing.T) {
	r := rand.New(rand.NewPCG(5, 6))
	for i := range 200 {
		n := 2 + r.IntN(8)
		f := randomFormula(r, n, r.IntN(2*n))
		before := f.Unreachable()

		bld := NewBuilder(n)
		for _, c := range f.clauses {
			bld.And(c...)
		}
		bld.And(Neg(Var(r.IntN(n))), Neg(Var(r.IntN(n))))
		g := mustBuild(t, bld)
		after := g.Unreachable()
		for _, v := range before {
			if !slices.Contains(after, v) {
				t.Fatalf("formula %d: %v unreachable in %s but reachable in %s", i, v, f, g)
			}
		}
	}
}

func TestParallelMatchesSequential(t *testing.T) {
	r := rand.New(rand.NewPCG(7, 8))
	for i := range 100 {
		n := 6 + r.IntN(14)
		f := randomFormula(r, n, n+r.IntN(2*n))
		want := f.Unreachable()
		for _, workers := range []int{2, 4, 8} {
			s := &Solver{Workers: workers}
			got, err := s.Unreachable(context.Background(), f)
			if err != nil {
				t.Fatalf("Unreachable() error = %v", err)
			}
			if !slices.Equal(got, want) {
				t.Fatalf("formula %d with %d workers: got %v, want %v", i, workers, got, want)
			}
		}
	}
}

func TestSolverBudget(t *testing.T) {
	bld := NewBuilder(12)
	for v := Var(0); v < 11; v++ {
		bld.And(Neg(v), Neg(v+1))
		bld.And(Pos(v), Pos(v+1), Neg(0))
	}
	f := mustBuild(t, bld)
	s := &Solver{MaxSteps: 1}
	if _, err := s.Unreachable(context.Background(), f); !errors.Is(err, ErrBudgetExceeded) {
		t.Fatalf("Unreachable() error = %v, want %v", err, ErrBudgetExceeded)
	}
	s.MaxSteps = 0
	if _, err := s.Unreachable(context.Background(), f); err != nil {
		t.Fatalf("Unreachable() without budget error = %v", err)
	}
}

func TestSolverCanceled(t *testing.T) {
	f := mustBuild(t, NewBuilder(2).And(Neg(a), Neg(b)))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := new(Solver).Unreachable(ctx, f); !errors.Is(err, context.Canceled) {
		t.Fatalf("Unreachable() error = %v, want %v", err, context.Canceled)
	}
}

func TestSolverTrace(t *testing.T) {
	var lines []string
	s := &Solver{Logf: func(format string, args ...any) {
		lines = append(lines, fmt.Sprintf(format, args...))
	}}
	f := mustBuild(t, NewBuilder(2).And(Neg(a), Pos(b)).And(Neg(a), Neg(b)))
	got, err := s.Unreachable(context.Background(), f)
	if err != nil {
		t.Fatalf("Unreachable() error = %v", err)
	}
	if !slices.Equal(got, []Var{a}) {
		t.Errorf("Unreachable() = %v, want [0]", got)
	}
	if len(lines) == 0 {
		t.Error("Logf was never called")
	}
}
