// Copyright (c) 2025 AUTHORS All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package opts

import (
	"fmt"
	"maps"
)

// WildcardValue is the value of a -#name option. HasValue is false when the
// wildcard was given without one.
type WildcardValue struct {
	Value    string
	HasValue bool
}

// Set is the result of parsing a command line against a Pool.
type Set struct {
	pool      *Pool
	values    map[Declaration]any
	wildcards map[string]WildcardValue
}

func newSet(p *Pool) *Set {
	return &Set{pool: p, values: map[Declaration]any{}}
}

// Pool returns the schema the set was parsed against.
func (s *Set) Pool() *Pool { return s.pool }

func (s *Set) check(d Declaration) error {
	if d == nil || !s.pool.Contains(d) {
		return fmt.Errorf("%v: %w", d, ErrForeignDeclaration)
	}
	return nil
}

// Get returns the value given for d, or its default. It fails with
// ErrNoValue if neither exists. A vararg that received nothing and has no
// default yields an empty []any.
func (s *Set) Get(d Declaration) (any, error) {
	if err := s.check(d); err != nil {
		return nil, err
	}
	if v, ok := s.values[d]; ok {
		return v, nil
	}
	if v, ok := d.defaultValue(); ok {
		return v, nil
	}
	if a, ok := d.(*Argument); ok && a.vararg {
		return []any{}, nil
	}
	return nil, fmt.Errorf("%v: %w", d, ErrNoValue)
}

// GetOrElse returns the value given for d, or fallback if d was not given.
// Defaults are ignored.
func (s *Set) GetOrElse(d Declaration, fallback any) (any, error) {
	if err := s.check(d); err != nil {
		return nil, err
	}
	if v, ok := s.values[d]; ok {
		return v, nil
	}
	return fallback, nil
}

// IsSet reports whether d was given on the command line.
func (s *Set) IsSet(d Declaration) (bool, error) {
	if err := s.check(d); err != nil {
		return false, err
	}
	_, ok := s.values[d]
	return ok, nil
}

// Wildcard returns the wildcard option named name.
func (s *Set) Wildcard(name string) (WildcardValue, bool) {
	w, ok := s.wildcards[name]
	return w, ok
}

// Wildcards returns every wildcard option given, keyed by name.
func (s *Set) Wildcards() map[string]WildcardValue {
	out := maps.Clone(s.wildcards)
	if out == nil {
		out = map[string]WildcardValue{}
	}
	return out
}

// Value returns the value of d converted to T. It fails if the value is
// missing or of another type.
func Value[T any](s *Set, d Declaration) (T, error) {
	var zero T
	v, err := s.Get(d)
	if err != nil {
		return zero, err
	}
	t, ok := v.(T)
	if !ok {
		return zero, fmt.Errorf("%v: value %v is %T, not %T", d, v, v, zero)
	}
	return t, nil
}

// ValueOr is Value that returns fallback when d was not given.
func ValueOr[T any](s *Set, d Declaration, fallback T) (T, error) {
	set, err := s.IsSet(d)
	if err != nil || !set {
		return fallback, err
	}
	return Value[T](s, d)
}
