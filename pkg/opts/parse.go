// Copyright (c) 2025 AUTHORS All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package opts

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/yeetrun/opts/pkg/fragments"
	"tailscale.com/util/mak"
)

type fragmentKind int

const (
	kindArgument fragmentKind = iota
	kindEscape
	kindLong
	kindWildcard
	kindShortChain
)

const escapeFragment = "--"

// classify reports how a fragment is read. The escape fragment is always
// the escape, even once escaped; every other fragment after it is an
// argument.
func classify(frag string, escaped bool) fragmentKind {
	switch {
	case frag == escapeFragment:
		return kindEscape
	case escaped:
		return kindArgument
	case strings.HasPrefix(frag, "--"):
		return kindLong
	case strings.HasPrefix(frag, "-#"):
		return kindWildcard
	case len(frag) > 1 && frag[0] == '-':
		r, _ := utf8.DecodeRuneInString(frag[1:])
		if unicode.IsDigit(r) {
			return kindArgument
		}
		return kindShortChain
	}
	return kindArgument
}

// optionRE splits an option fragment into prefix, token and optional value.
var optionRE = regexp.MustCompile(`(?s)^(--|-#|-)([A-Za-z][A-Za-z0-9.-]*)(?:=(.*))?$`)

type optionFragment struct {
	token    string
	value    string
	hasValue bool
}

func splitOption(frag string) (optionFragment, bool) {
	m := optionRE.FindStringSubmatchIndex(frag)
	if m == nil {
		return optionFragment{}, false
	}
	of := optionFragment{token: frag[m[4]:m[5]]}
	if m[6] >= 0 {
		of.value = frag[m[6]:m[7]]
		of.hasValue = true
	}
	return of, true
}

// parser holds the state of one Parse call.
type parser struct {
	pool    *Pool
	frags   []string
	pos     int
	escaped bool
	argIdx  int
	set     *Set
}

// Parse reads fragments against pool. The first failure is returned as a
// *ParseError.
func Parse(pool *Pool, frags []string) (*Set, error) {
	p := &parser{pool: pool, frags: frags, set: newSet(pool)}
	for p.pos < len(p.frags) {
		frag := p.frags[p.pos]
		p.pos++
		var err error
		switch classify(frag, p.escaped) {
		case kindEscape:
			p.escaped = true
		case kindLong:
			err = p.long(frag)
		case kindWildcard:
			err = p.wildcard(frag)
		case kindShortChain:
			err = p.shortChain(frag)
		default:
			err = p.argument(frag)
		}
		if err != nil {
			return nil, err
		}
	}
	if err := p.finish(); err != nil {
		return nil, err
	}
	return p.set, nil
}

// ParseLine splits line into fragments with fragments.Split and parses them.
func ParseLine(pool *Pool, line string) (*Set, error) {
	return Parse(pool, fragments.Split(line))
}

// lookahead returns the next fragment if it reads as an argument, consuming
// it.
func (p *parser) lookahead() (string, bool) {
	if p.pos >= len(p.frags) {
		return "", false
	}
	next := p.frags[p.pos]
	if classify(next, p.escaped) != kindArgument {
		return "", false
	}
	p.pos++
	return next, true
}

func (p *parser) convert(frag string, d Declaration, text string) (any, error) {
	v, err := d.parser().Parse(text)
	if err != nil {
		return nil, &ParseError{Kind: ErrInvalidValue, Fragment: frag, Detail: d.String(), Err: err}
	}
	return v, nil
}

func (p *parser) long(frag string) error {
	of, ok := splitOption(frag)
	if !ok {
		return parseErr(ErrMalformedOption, frag, "")
	}
	o, ok := p.pool.OptionByLong(of.token)
	if !ok {
		return parseErr(ErrUnknownOption, frag, "")
	}
	if _, dup := p.set.values[o]; dup {
		return parseErr(ErrDuplicateOption, frag, "%v", o)
	}
	if o.markerOnly {
		if of.hasValue {
			return parseErr(ErrMarkerOnlyValue, frag, "%v takes no value", o)
		}
		p.set.values[o] = o.marker
		return nil
	}
	if !of.hasValue {
		of.value, of.hasValue = p.lookahead()
	}
	if !of.hasValue {
		if !o.hasMarker {
			return parseErr(ErrMissingValue, frag, "%v requires a value", o)
		}
		p.set.values[o] = o.marker
		return nil
	}
	v, err := p.convert(frag, o, of.value)
	if err != nil {
		return err
	}
	p.set.values[o] = v
	return nil
}

func (p *parser) wildcard(frag string) error {
	of, ok := splitOption(frag)
	if !ok {
		return parseErr(ErrMalformedOption, frag, "")
	}
	if _, dup := p.set.wildcards[of.token]; dup {
		return parseErr(ErrDuplicateWildcard, frag, "")
	}
	if !of.hasValue {
		of.value, of.hasValue = p.lookahead()
	}
	mak.Set(&p.set.wildcards, of.token, WildcardValue{Value: of.value, HasValue: of.hasValue})
	return nil
}

func (p *parser) shortChain(frag string) error {
	of, ok := splitOption(frag)
	if !ok || !isShortChainToken(of.token) {
		return parseErr(ErrMalformedOption, frag, "")
	}
	var (
		chain         []*Option
		anyMarkerOnly bool
		allMarkerOnly = true
		allHaveMarker = true
	)
	for _, r := range of.token {
		o, ok := p.pool.OptionByShort(r)
		if !ok {
			return parseErr(ErrUnknownOption, frag, "-%c", r)
		}
		if _, dup := p.set.values[o]; dup {
			return parseErr(ErrDuplicateOption, frag, "%v", o)
		}
		for _, c := range chain {
			if c == o {
				return parseErr(ErrDuplicateOption, frag, "%v", o)
			}
		}
		if o.markerOnly && of.hasValue {
			return parseErr(ErrMarkerOnlyValue, frag, "%v takes no value", o)
		}
		anyMarkerOnly = anyMarkerOnly || o.markerOnly
		allMarkerOnly = allMarkerOnly && o.markerOnly
		allHaveMarker = allHaveMarker && o.hasMarker
		chain = append(chain, o)
	}
	if anyMarkerOnly && !allHaveMarker {
		return parseErr(ErrChainMix, frag, "")
	}
	if !anyMarkerOnly && !of.hasValue {
		of.value, of.hasValue = p.lookahead()
	}
	if allMarkerOnly || (allHaveMarker && !of.hasValue) {
		for _, o := range chain {
			p.set.values[o] = o.marker
		}
		return nil
	}
	if !of.hasValue {
		return parseErr(ErrMissingValue, frag, "")
	}
	for _, o := range chain {
		v, err := p.convert(frag, o, of.value)
		if err != nil {
			return err
		}
		p.set.values[o] = v
	}
	return nil
}

func (p *parser) argument(frag string) error {
	a, ok := p.pool.Argument(p.argIdx)
	if !ok {
		return parseErr(ErrArgumentOutOfRange, frag, "at most %d positional values allowed", len(p.pool.args))
	}
	v, err := p.convert(frag, a, frag)
	if err != nil {
		return err
	}
	if a.vararg {
		prev, _ := p.set.values[a].([]any)
		p.set.values[a] = append(prev, v)
		return nil
	}
	p.set.values[a] = v
	p.argIdx++
	return nil
}

// finish checks for missing required arguments and, when the pool enforces
// them, broken restrictions.
func (p *parser) finish() error {
	for _, a := range p.pool.args {
		if a.optional {
			continue
		}
		if _, ok := p.set.values[a]; !ok {
			return parseErr(ErrMissingArgument, "", "%v", a)
		}
	}
	if !p.pool.enforce {
		return nil
	}
	present := func(o *Option) bool {
		_, ok := p.set.values[o]
		return ok
	}
	for _, r := range p.pool.restrictions {
		if r.ViolatedBy(present) {
			return parseErr(ErrRestrictionViolated, "", "%v", r)
		}
	}
	return nil
}
