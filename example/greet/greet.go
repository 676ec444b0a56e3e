// Copyright (c) 2025 AUTHORS All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Greet prints a greeting for each name it is given.
//
//	greet -l --times 2 ann bob
//	greet --every 2s world
package main

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/yeetrun/opts/pkg/bind"
	"github.com/yeetrun/opts/pkg/opts"
)

type config struct {
	Names    []string
	Greeting string
	Loud     bool
	Whisper  bool
	Times    int
	Every    time.Duration
}

func spec(cfg *config) bind.Spec {
	return bind.Spec{
		Fields: []bind.Field{
			{Name: "names", Vararg: &bind.Vararg{}, Set: bind.ToSlice(&cfg.Names)},
			{Name: "greeting", Option: &bind.Option{Long: "greeting", Short: 'g', Default: "Hello", HasDefault: true}, Set: bind.To(&cfg.Greeting)},
			{Name: "loud", Option: &bind.Option{Long: "loud", Short: 'l', Parser: opts.Bool, Marker: true, MarkerOnly: true}, Set: bind.To(&cfg.Loud)},
			{Name: "whisper", Option: &bind.Option{Long: "whisper", Short: 'w', Parser: opts.Bool, Marker: true, MarkerOnly: true}, Set: bind.To(&cfg.Whisper)},
			{Name: "times", Option: &bind.Option{Long: "times", Short: 'n', Parser: opts.Int, Default: 1, HasDefault: true}, Set: bind.To(&cfg.Times)},
			{Name: "every", Option: &bind.Option{Long: "every", Parser: opts.Duration}, Set: bind.To(&cfg.Every)},
		},
		Restrictions: []bind.Restriction{
			{Kind: bind.MutuallyExclude, Options: []string{"loud", "whisper"}},
			{Kind: bind.ImplyAbsence, Triggers: []string{"every"}, Targets: []string{"times"}},
		},
		EnforceRestrictions: true,
	}
}

func greeting(cfg *config, name string) string {
	s := fmt.Sprintf("%s, %s!", cfg.Greeting, name)
	switch {
	case cfg.Loud:
		return strings.ToUpper(s)
	case cfg.Whisper:
		return strings.ToLower(s)
	}
	return s
}

func main() {
	var cfg config
	b, err := bind.Compile(spec(&cfg))
	if err != nil {
		log.Fatal("bad schema", "err", err)
	}
	if _, err := b.Parse(os.Args[1:]); err != nil {
		log.Fatal(err)
	}
	for {
		for range cfg.Times {
			for _, name := range cfg.Names {
				fmt.Println(greeting(&cfg, name))
			}
		}
		if cfg.Every == 0 {
			return
		}
		time.Sleep(cfg.Every)
	}
}
