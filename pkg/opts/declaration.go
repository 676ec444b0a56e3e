// Copyright (c) 2025 AUTHORS All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package opts

import (
	"fmt"
	"regexp"
	"unicode/utf8"
)

// Declaration is an *Argument or an *Option. Results are keyed by the
// declaration's identity.
type Declaration interface {
	fmt.Stringer
	parser() Parser
	defaultValue() (any, bool)
}

var longTokenRE = regexp.MustCompile(`^[A-Za-z][A-Za-z0-9.-]*$`)

// ValidLongToken reports whether s may name an option.
func ValidLongToken(s string) bool { return longTokenRE.MatchString(s) }

// ValidShortToken reports whether r may be an option's single-letter alias.
// Only ASCII letters are accepted, matching what a short chain can spell.
func ValidShortToken(r rune) bool { return 'a' <= r && r <= 'z' || 'A' <= r && r <= 'Z' }

// Option is a named declaration reached with --long, or -s when it has a
// short token. Options are immutable once created.
type Option struct {
	long  string
	short rune // 0 if none
	p     Parser

	def    any
	hasDef bool

	marker     any
	hasMarker  bool
	markerOnly bool
}

// OptionSetting configures an Option in NewOption.
type OptionSetting func(*Option) error

// Short gives the option a single-letter alias.
func Short(r rune) OptionSetting {
	return func(o *Option) error {
		if !ValidShortToken(r) {
			return configErr(ErrInvalidShortToken, "--"+o.long, "%q is not an ASCII letter", r)
		}
		o.short = r
		return nil
	}
}

// OptionDefault sets the value reported when the option is absent.
func OptionDefault(v any) OptionSetting {
	return func(o *Option) error {
		o.def, o.hasDef = v, true
		return nil
	}
}

// MarkerValue sets the value used when the option is given without a value.
func MarkerValue(v any) OptionSetting {
	return func(o *Option) error {
		o.marker, o.hasMarker = v, true
		return nil
	}
}

// MarkerOnly makes the option a switch: it never takes a value and yields v
// when present.
func MarkerOnly(v any) OptionSetting {
	return func(o *Option) error {
		o.marker, o.hasMarker, o.markerOnly = v, true, true
		return nil
	}
}

// NewOption declares an option named long whose values are converted by p.
func NewOption(long string, p Parser, settings ...OptionSetting) (*Option, error) {
	if !ValidLongToken(long) {
		return nil, configErr(ErrInvalidLongToken, "", "%q must start with a letter followed by letters, digits, '-' or '.'", long)
	}
	if p == nil {
		p = String
	}
	o := &Option{long: long, p: p}
	for _, s := range settings {
		if err := s(o); err != nil {
			return nil, err
		}
	}
	return o, nil
}

// Long returns the option's long token.
func (o *Option) Long() string { return o.long }

// Short returns the option's short token and whether it has one.
func (o *Option) Short() (rune, bool) { return o.short, o.short != 0 }

// Parser returns the option's value parser.
func (o *Option) Parser() Parser { return o.p }

// Default returns the option's default value and whether it has one.
func (o *Option) Default() (any, bool) { return o.def, o.hasDef }

// Marker returns the option's marker value and whether it has one.
func (o *Option) Marker() (any, bool) { return o.marker, o.hasMarker }

// IsMarkerOnly reports whether the option never takes a value.
func (o *Option) IsMarkerOnly() bool { return o.markerOnly }

func (o *Option) String() string {
	if o.short != 0 {
		return fmt.Sprintf("--%s/-%c", o.long, o.short)
	}
	return "--" + o.long
}

func (o *Option) parser() Parser            { return o.p }
func (o *Option) defaultValue() (any, bool) { return o.def, o.hasDef }

// Argument is a positional declaration. Its index is its position in the
// schema.
type Argument struct {
	index    int // set by the schema builder; -1 until then
	p        Parser
	optional bool
	vararg   bool

	def    any
	hasDef bool
}

// ArgumentSetting configures an Argument in NewArgument.
type ArgumentSetting func(*Argument)

// Optional allows the argument to be left out.
func Optional() ArgumentSetting {
	return func(a *Argument) { a.optional = true }
}

// ArgumentDefault sets the value reported when the argument is absent. It
// does not make the argument optional.
func ArgumentDefault(v any) ArgumentSetting {
	return func(a *Argument) { a.def, a.hasDef = v, true }
}

// NewArgument declares a positional argument whose values are converted by p.
func NewArgument(p Parser, settings ...ArgumentSetting) *Argument {
	if p == nil {
		p = String
	}
	a := &Argument{index: -1, p: p}
	for _, s := range settings {
		s(a)
	}
	return a
}

// Index returns the argument's position, or -1 if it is not part of a schema.
func (a *Argument) Index() int { return a.index }

// IsOptional reports whether the argument may be left out.
func (a *Argument) IsOptional() bool { return a.optional }

// IsVararg reports whether the argument collects all remaining values.
func (a *Argument) IsVararg() bool { return a.vararg }

// Parser returns the argument's value parser.
func (a *Argument) Parser() Parser { return a.p }

// Default returns the argument's default value and whether it has one.
func (a *Argument) Default() (any, bool) { return a.def, a.hasDef }

func (a *Argument) String() string {
	switch {
	case a.vararg:
		return fmt.Sprintf("argument %d...", a.index)
	case a.optional:
		return fmt.Sprintf("argument [%d]", a.index)
	}
	return fmt.Sprintf("argument %d", a.index)
}

func (a *Argument) parser() Parser            { return a.p }
func (a *Argument) defaultValue() (any, bool) { return a.def, a.hasDef }

func isShortChainToken(s string) bool {
	if s == "" {
		return false
	}
	for len(s) > 0 {
		r, n := utf8.DecodeRuneInString(s)
		if !ValidShortToken(r) {
			return false
		}
		s = s[n:]
	}
	return true
}
