// Copyright (c) 2025 AUTHORS All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package opts

import (
	"fmt"
	"slices"
	"strings"

	"github.com/yeetrun/opts/pkg/knf"
)

// RestrictionKind distinguishes the forms of Restriction.
type RestrictionKind int

const (
	// Implication: when every trigger is present and not every limiter is
	// present, every target must be present (or absent).
	Implication RestrictionKind = iota + 1
	// Mutual: the options must all be present together (require) or at most
	// one of them may be present (exclude).
	Mutual
)

// Restriction is a constraint on which options may appear together.
type Restriction struct {
	kind RestrictionKind

	triggers []*Option
	targets  []*Option
	limiters []*Option

	options []*Option

	// presence is whether targets must be present (Implication) or whether
	// the options require each other (Mutual).
	presence bool
}

// ImplyPresence requires every target whenever every trigger is present.
func ImplyPresence(triggers, targets []*Option) Restriction {
	return ImplyPresenceUnless(triggers, targets, nil)
}

// ImplyPresenceUnless is ImplyPresence that does not apply when every limiter
// is present.
func ImplyPresenceUnless(triggers, targets, limiters []*Option) Restriction {
	return Restriction{
		kind:     Implication,
		triggers: slices.Clone(triggers),
		targets:  slices.Clone(targets),
		limiters: slices.Clone(limiters),
		presence: true,
	}
}

// ImplyAbsence forbids every target whenever every trigger is present.
func ImplyAbsence(triggers, targets []*Option) Restriction {
	return ImplyAbsenceUnless(triggers, targets, nil)
}

// ImplyAbsenceUnless is ImplyAbsence that does not apply when every limiter is
// present.
func ImplyAbsenceUnless(triggers, targets, limiters []*Option) Restriction {
	r := ImplyPresenceUnless(triggers, targets, limiters)
	r.presence = false
	return r
}

// MutuallyExclude allows at most one of opts.
func MutuallyExclude(opts ...*Option) Restriction {
	return Restriction{kind: Mutual, options: slices.Clone(opts)}
}

// MutuallyRequire requires all of opts as soon as one of them is present.
func MutuallyRequire(opts ...*Option) Restriction {
	return Restriction{kind: Mutual, options: slices.Clone(opts), presence: true}
}

// Kind returns the restriction's form.
func (r Restriction) Kind() RestrictionKind { return r.kind }

// Options returns every option the restriction mentions, without duplicates.
func (r Restriction) Options() []*Option {
	var out []*Option
	for _, group := range [][]*Option{r.triggers, r.targets, r.limiters, r.options} {
		for _, o := range group {
			if !slices.Contains(out, o) {
				out = append(out, o)
			}
		}
	}
	return out
}

// Clauses compiles the restriction into clauses over the variables returned by
// varOf.
func (r Restriction) Clauses(varOf func(*Option) knf.Var) [][]knf.Literal {
	var out [][]knf.Literal
	switch r.kind {
	case Implication:
		var base []knf.Literal
		for _, t := range r.triggers {
			base = append(base, knf.Neg(varOf(t)))
		}
		target := func(o *Option) knf.Literal {
			if r.presence {
				return knf.Pos(varOf(o))
			}
			return knf.Neg(varOf(o))
		}
		for _, y := range r.targets {
			if len(r.limiters) == 0 {
				out = append(out, append(slices.Clone(base), target(y)))
				continue
			}
			for _, l := range r.limiters {
				c := append(slices.Clone(base), knf.Pos(varOf(l)), target(y))
				out = append(out, c)
			}
		}
	case Mutual:
		for i, a := range r.options {
			for j, b := range r.options {
				if i == j {
					continue
				}
				if r.presence {
					out = append(out, []knf.Literal{knf.Neg(varOf(a)), knf.Pos(varOf(b))})
				} else if i < j {
					out = append(out, []knf.Literal{knf.Neg(varOf(a)), knf.Neg(varOf(b))})
				}
			}
		}
	}
	return out
}

func allPresent(opts []*Option, present func(*Option) bool) bool {
	for _, o := range opts {
		if !present(o) {
			return false
		}
	}
	return true
}

// AppliesTo reports whether the restriction constrains an invocation in
// which exactly the options satisfying present were given. Mutual
// restrictions always apply.
func (r Restriction) AppliesTo(present func(*Option) bool) bool {
	if r.kind != Implication {
		return true
	}
	if !allPresent(r.triggers, present) {
		return false
	}
	return len(r.limiters) == 0 || !allPresent(r.limiters, present)
}

// ViolatedBy reports whether an invocation in which exactly the options
// satisfying present were given breaks the restriction.
func (r Restriction) ViolatedBy(present func(*Option) bool) bool {
	switch r.kind {
	case Implication:
		if !r.AppliesTo(present) {
			return false
		}
		for _, t := range r.targets {
			if present(t) != r.presence {
				return true
			}
		}
	case Mutual:
		n := 0
		for _, o := range r.options {
			if present(o) {
				n++
			}
		}
		if r.presence {
			return n > 0 && n < len(r.options)
		}
		return n > 1
	}
	return false
}

func joinOptions(opts []*Option) string {
	s := make([]string, len(opts))
	for i, o := range opts {
		s[i] = o.String()
	}
	return strings.Join(s, " ")
}

func (r Restriction) String() string {
	switch r.kind {
	case Implication:
		verb := "requires"
		if !r.presence {
			verb = "excludes"
		}
		s := fmt.Sprintf("%s %s %s", joinOptions(r.triggers), verb, joinOptions(r.targets))
		if len(r.limiters) > 0 {
			s += " unless " + joinOptions(r.limiters)
		}
		return s
	case Mutual:
		if r.presence {
			return "all or none of " + joinOptions(r.options)
		}
		return "at most one of " + joinOptions(r.options)
	}
	return "empty restriction"
}
