// Copyright (c) 2025 AUTHORS All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package opts

import (
	"fmt"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/Masterminds/semver/v3"
	"github.com/google/uuid"
)

// Parser converts the raw text of an argument or option into a typed value.
// Parsers must not keep state between calls.
type Parser interface {
	Parse(text string) (any, error)
}

// ParserFunc adapts a typed conversion function to a Parser.
type ParserFunc[T any] func(text string) (T, error)

func (f ParserFunc[T]) Parse(text string) (any, error) {
	v, err := f(text)
	if err != nil {
		return nil, err
	}
	return v, nil
}

func parseInt[T ~int | ~int8 | ~int16 | ~int32 | ~int64](bits int) ParserFunc[T] {
	return func(text string) (T, error) {
		n, err := strconv.ParseInt(text, 10, bits)
		if err != nil {
			return 0, fmt.Errorf("not an integer: %w", err)
		}
		return T(n), nil
	}
}

func parseFloat[T ~float32 | ~float64](bits int) ParserFunc[T] {
	return func(text string) (T, error) {
		n, err := strconv.ParseFloat(text, bits)
		if err != nil {
			return 0, fmt.Errorf("not a number: %w", err)
		}
		return T(n), nil
	}
}

// Built-in parsers.
var (
	// Bool is true for "1" and any casing of "true", false for everything
	// else. It never fails.
	Bool Parser = ParserFunc[bool](func(text string) (bool, error) {
		return text == "1" || strings.EqualFold(text, "true"), nil
	})

	Int8  Parser = parseInt[int8](8)
	Int16 Parser = parseInt[int16](16)
	Int32 Parser = parseInt[int32](32)
	Int64 Parser = parseInt[int64](64)
	Int   Parser = parseInt[int](strconv.IntSize)

	Float32 Parser = parseFloat[float32](32)
	Float64 Parser = parseFloat[float64](64)

	// Char accepts exactly one character and yields it as a rune.
	Char Parser = ParserFunc[rune](func(text string) (rune, error) {
		if utf8.RuneCountInString(text) != 1 {
			return 0, fmt.Errorf("want exactly one character, got %d", utf8.RuneCountInString(text))
		}
		r, _ := utf8.DecodeRuneInString(text)
		return r, nil
	})

	// String returns the text unchanged.
	String Parser = ParserFunc[string](func(text string) (string, error) {
		return text, nil
	})

	Duration Parser = ParserFunc[time.Duration](time.ParseDuration)

	// SemVer yields a *semver.Version.
	SemVer Parser = ParserFunc[*semver.Version](semver.NewVersion)

	UUID Parser = ParserFunc[uuid.UUID](uuid.Parse)
)
