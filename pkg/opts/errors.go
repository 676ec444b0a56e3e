// Copyright (c) 2025 AUTHORS All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package opts

import (
	"errors"
	"fmt"
	"strings"
)

// Configuration error kinds. They are matched with errors.Is against a
// *ConfigError.
var (
	ErrInvalidLongToken       = errors.New("invalid long token")
	ErrInvalidShortToken      = errors.New("invalid short token")
	ErrDuplicateToken         = errors.New("duplicate option token")
	ErrDuplicateArgumentIndex = errors.New("duplicate argument index")
	ErrArgumentIndexGap       = errors.New("gap in argument indexes")
	ErrRequiredAfterOptional  = errors.New("required argument after optional argument")
	ErrArgumentAfterVararg    = errors.New("argument after vararg")
	ErrMultipleVarargs        = errors.New("more than one vararg")
	ErrMultipleWildcards      = errors.New("more than one wildcard")
	ErrForeignOption          = errors.New("option not declared in schema")
	ErrInvalidRole            = errors.New("invalid declaration role")
	ErrUnreachableOptions     = errors.New("unreachable options")
)

// Parse error kinds. They are matched with errors.Is against a *ParseError.
var (
	ErrUnknownOption       = errors.New("unknown option")
	ErrDuplicateOption     = errors.New("option given more than once")
	ErrMarkerOnlyValue     = errors.New("marker-only option given a value")
	ErrMissingValue        = errors.New("missing option value")
	ErrChainMix            = errors.New("option chain mixes marker-only options with options lacking a marker value")
	ErrMalformedOption     = errors.New("malformed option")
	ErrArgumentOutOfRange  = errors.New("too many arguments")
	ErrDuplicateWildcard   = errors.New("wildcard given more than once")
	ErrInvalidValue        = errors.New("invalid value")
	ErrMissingArgument     = errors.New("missing required argument")
	ErrRestrictionViolated = errors.New("restriction violated")
)

// Result lookup errors.
var (
	ErrNoValue            = errors.New("no value")
	ErrForeignDeclaration = errors.New("declaration not part of schema")
)

// ConfigError reports a schema that cannot be built.
type ConfigError struct {
	Kind    error  // one of the Err* configuration kinds
	Subject string // the declaration concerned, if any
	Detail  string

	// Unreachable lists the offending options when Kind is
	// ErrUnreachableOptions.
	Unreachable []*Option
}

func (e *ConfigError) Error() string {
	var sb strings.Builder
	sb.WriteString("schema: ")
	if e.Subject != "" {
		sb.WriteString(e.Subject)
		sb.WriteString(": ")
	}
	sb.WriteString(e.Kind.Error())
	if len(e.Unreachable) > 0 {
		names := make([]string, len(e.Unreachable))
		for i, o := range e.Unreachable {
			names[i] = o.String()
		}
		sb.WriteString(" ")
		sb.WriteString(strings.Join(names, ", "))
	}
	if e.Detail != "" {
		sb.WriteString(": ")
		sb.WriteString(e.Detail)
	}
	return sb.String()
}

func (e *ConfigError) Unwrap() error { return e.Kind }

func configErr(kind error, subject, format string, args ...any) *ConfigError {
	return &ConfigError{Kind: kind, Subject: subject, Detail: fmt.Sprintf(format, args...)}
}

// ParseError reports a command line that does not match a schema.
type ParseError struct {
	Kind     error  // one of the Err* parse kinds
	Fragment string // the offending fragment, if any
	Detail   string
	Err      error // underlying value parser error, if any
}

func (e *ParseError) Error() string {
	var sb strings.Builder
	sb.WriteString(e.Kind.Error())
	if e.Fragment != "" {
		fmt.Fprintf(&sb, " %q", e.Fragment)
	}
	if e.Detail != "" {
		sb.WriteString(": ")
		sb.WriteString(e.Detail)
	}
	if e.Err != nil {
		sb.WriteString(": ")
		sb.WriteString(e.Err.Error())
	}
	return sb.String()
}

func (e *ParseError) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

func parseErr(kind error, fragment, format string, args ...any) *ParseError {
	return &ParseError{Kind: kind, Fragment: fragment, Detail: fmt.Sprintf(format, args...)}
}

// IsParseError reports whether err was caused by user input rather than by
// the schema.
func IsParseError(err error) bool {
	var pe *ParseError
	return errors.As(err, &pe)
}

// IsConfigError reports whether err was caused by an invalid schema.
func IsConfigError(err error) bool {
	var ce *ConfigError
	return errors.As(err, &ce)
}
