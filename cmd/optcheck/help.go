// Copyright (c) 2025 AUTHORS All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package main

import "github.com/shayne/yargs"

func buildHelpConfig() yargs.HelpConfig {
	return yargs.HelpConfig{
		Command: yargs.CommandInfo{
			Name:        "optcheck",
			Description: "Check command line schemas for unreachable options and parse command lines against them.",
			Examples: []string{
				"optcheck check opts.toml tools/*.yaml",
				"optcheck parse opts.toml -- -nv web 3 --timeout 2m",
				`optcheck parse opts.toml --split=posix --line "web 'a b'"`,
			},
		},
		SubCommands: map[string]yargs.SubCommandInfo{
			"check": {
				Name:        "check",
				Description: "Compile schemas and report unreachable options",
				Usage:       "[SCHEMA...] [--max-steps=N] [--workers=N]",
				Examples:    []string{"optcheck check", "optcheck check a.toml b.yaml --workers=4"},
			},
			"convert": {
				Name:        "convert",
				Description: "Rewrite a schema as TOML or YAML, chosen by the output extension",
				Usage:       "SCHEMA OUT [--yes]",
				Examples:    []string{"optcheck convert opts.toml opts.yaml"},
			},
			"formula": {
				Name:        "formula",
				Description: "Print the restriction formula of a schema",
				Usage:       "[SCHEMA] [--sets]",
			},
			"parse": {
				Name:        "parse",
				Description: "Parse a command line against a schema and print the values",
				Usage:       "[SCHEMA] [--split=native|posix|shell] [--line=LINE] [--json|--env] [--env-file=PATH] [-- FRAGMENT...]",
				Examples: []string{
					"optcheck parse opts.toml -- web -#region=east",
					`eval "$(optcheck parse opts.toml --env -- "$@")"`,
					"OPTCHECK_SPLIT=shell optcheck parse opts.toml --line 'web $USER'",
				},
			},
			"repl": {
				Name:        "repl",
				Description: "Read command lines interactively and print the values of each",
				Usage:       "[SCHEMA] [--split=native|posix|shell]",
			},
		},
	}
}
