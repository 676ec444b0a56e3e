// Copyright (c) 2025 AUTHORS All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package knf

import (
	"context"
	"errors"
	"slices"
	"sync"
	"sync/atomic"

	"golang.org/x/sync/errgroup"
	"tailscale.com/types/logger"
	"tailscale.com/util/set"
)

// ErrBudgetExceeded is returned when a search takes more steps than the
// Solver allows.
var ErrBudgetExceeded = errors.New("knf: search step budget exceeded")

// Solver finds the variables of a formula that are false in every model.
// The zero value searches sequentially without a step limit.
type Solver struct {
	// MaxSteps bounds the number of simplification and branching steps.
	// Zero means no limit.
	MaxSteps int

	// Workers is the number of goroutines exploring the search tree. Values
	// below two search on the calling goroutine.
	Workers int

	// Logf, if non-nil, receives a trace of the search.
	Logf logger.Logf
}

// Unreachable returns, in ascending order, the variables of f that cannot be
// true in any satisfying assignment of f. If f is unsatisfiable every
// variable is returned.
func (f *Formula) Unreachable() []Var {
	vs, err := new(Solver).Unreachable(context.Background(), f)
	if err != nil {
		// Only a budget or a cancelled context can stop a search.
		panic(err)
	}
	return vs
}

// Unreachable returns, in ascending order, the variables of f that cannot be
// true in any satisfying assignment of f.
func (s *Solver) Unreachable(ctx context.Context, f *Formula) ([]Var, error) {
	sr := &search{
		logf:     s.Logf,
		maxSteps: int64(s.MaxSteps),
		pending:  make(set.Set[Var]),
	}
	if sr.logf == nil {
		sr.logf = logger.Discard
	}
	for v := range f.n {
		sr.pending.Add(Var(v))
	}
	root := &frame{
		clauses:   f.clauses,
		falsified: make(set.Set[Var]),
	}
	var err error
	if s.Workers > 1 {
		err = sr.runParallel(ctx, root, s.Workers)
	} else {
		err = sr.run(ctx, root)
	}
	if err != nil {
		return nil, err
	}
	out := sr.pending.Slice()
	slices.Sort(out)
	sr.logf("knf: %d steps, %d of %d variables unreachable", sr.steps.Load(), len(out), f.n)
	return out, nil
}

// frame is one node of the search tree. Clauses are shared between frames and
// never mutated; assign replaces the slice.
type frame struct {
	clauses   []Clause
	falsified set.Set[Var]
	depth     int
}

func (fr *frame) assign(l Literal) {
	if l.Neg {
		fr.falsified.Add(l.Var)
	}
	not := l.Not()
	out := make([]Clause, 0, len(fr.clauses))
	for _, c := range fr.clauses {
		if c.contains(l) {
			continue
		}
		if c.contains(not) {
			c = slices.DeleteFunc(slices.Clone(c), func(x Literal) bool { return x == not })
		}
		out = append(out, c)
	}
	fr.clauses = out
}

type search struct {
	logf     logger.Logf
	maxSteps int64
	steps    atomic.Int64

	mu      sync.Mutex
	pending set.Set[Var] // not yet shown to be true in some model
}

func (s *search) done() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pending.Len() == 0
}

// hopeless reports whether every pending variable is already false in fr, in
// which case no model below fr can prove anything new.
func (s *search) hopeless(fr *frame) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for v := range s.pending {
		if !fr.falsified.Contains(v) {
			return false
		}
	}
	return true
}

// reach records a model: every variable not assigned false is reachable.
func (s *search) reach(fr *frame) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var proved []Var
	for v := range s.pending {
		if !fr.falsified.Contains(v) {
			proved = append(proved, v)
		}
	}
	for _, v := range proved {
		s.pending.Delete(v)
	}
	if len(proved) > 0 {
		slices.Sort(proved)
		s.logf("knf: model at depth %d proves %v", fr.depth, proved)
	}
}

func (s *search) proven(v Var) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return !s.pending.Contains(v)
}

func (s *search) tick() error {
	n := s.steps.Add(1)
	if s.maxSteps > 0 && n > s.maxSteps {
		return ErrBudgetExceeded
	}
	return nil
}

// step simplifies fr until it is a model, a conflict, or needs a decision. In
// the last case it returns the two children, the true branch first.
func (s *search) step(ctx context.Context, fr *frame) ([]*frame, error) {
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if err := s.tick(); err != nil {
			return nil, err
		}
		if len(fr.clauses) == 0 {
			s.reach(fr)
			return nil, nil
		}
		if slices.ContainsFunc(fr.clauses, func(c Clause) bool { return len(c) == 0 }) {
			s.logf("knf: conflict at depth %d", fr.depth)
			return nil, nil
		}
		if s.hopeless(fr) {
			return nil, nil
		}
		if l, ok := unitLiteral(fr.clauses); ok {
			fr.assign(l)
			continue
		}
		if l, ok := s.pureLiteral(fr.clauses); ok {
			fr.assign(l)
			continue
		}
		l := branchLiteral(fr.clauses)
		t := &frame{clauses: fr.clauses, falsified: fr.falsified.Clone(), depth: fr.depth + 1}
		t.assign(l)
		f := &frame{clauses: fr.clauses, falsified: fr.falsified, depth: fr.depth + 1}
		f.assign(l.Not())
		return []*frame{t, f}, nil
	}
}

func (s *search) run(ctx context.Context, root *frame) error {
	stack := []*frame{root}
	for len(stack) > 0 && !s.done() {
		fr := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		kids, err := s.step(ctx, fr)
		if err != nil {
			return err
		}
		for i := len(kids) - 1; i >= 0; i-- {
			stack = append(stack, kids[i])
		}
	}
	return nil
}

// runParallel expands the tree breadth first until there is a subtree per
// worker, then searches the subtrees concurrently.
func (s *search) runParallel(ctx context.Context, root *frame, workers int) error {
	queue := []*frame{root}
	for len(queue) > 0 && len(queue) < workers && !s.done() {
		fr := queue[0]
		queue = queue[1:]
		kids, err := s.step(ctx, fr)
		if err != nil {
			return err
		}
		queue = append(queue, kids...)
	}
	s.logf("knf: searching %d subtrees on %d workers", len(queue), workers)
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for _, fr := range queue {
		g.Go(func() error { return s.run(ctx, fr) })
	}
	return g.Wait()
}

func unitLiteral(clauses []Clause) (Literal, bool) {
	for _, c := range clauses {
		if len(c) == 1 {
			return c[0], true
		}
	}
	return Literal{}, false
}

const (
	seenPos = 1 << iota
	seenNeg
)

// pureLiteral returns the lowest variable occurring with a single polarity.
// A variable occurring only negatively is returned only once it has been
// shown reachable; fixing it false earlier could hide its only models.
func (s *search) pureLiteral(clauses []Clause) (Literal, bool) {
	seen := map[Var]int{}
	for _, c := range clauses {
		for _, l := range c {
			if l.Neg {
				seen[l.Var] |= seenNeg
			} else {
				seen[l.Var] |= seenPos
			}
		}
	}
	vars := make([]Var, 0, len(seen))
	for v := range seen {
		vars = append(vars, v)
	}
	slices.Sort(vars)
	for _, v := range vars {
		switch seen[v] {
		case seenPos:
			return Pos(v), true
		case seenNeg:
			if s.proven(v) {
				return Neg(v), true
			}
		}
	}
	return Literal{}, false
}

// branchLiteral picks from the first shortest clause the literal whose
// variable occurs in the most clauses.
func branchLiteral(clauses []Clause) Literal {
	shortest := clauses[0]
	for _, c := range clauses[1:] {
		if len(c) < len(shortest) {
			shortest = c
		}
	}
	freq := map[Var]int{}
	for _, c := range clauses {
		for _, l := range c {
			freq[l.Var]++
		}
	}
	best := shortest[0]
	for _, l := range shortest[1:] {
		if freq[l.Var] > freq[best.Var] {
			best = l
		}
	}
	return best
}
