// Copyright © 2025 J. Salvador Arias <jsalarias@gmail.com>
// All rights reserved.
// Distributed under BSD2 license that can be found in the LICENSE file.

// BammTools is a tool for the analysis
// of macroevolutionary rate shifts
// sampled from the posterior of a diversification analysis.
package main

import (
	"github.com/cran/BAMMtools/cmd/bammtools/eventcmd"
	"github.com/cran/BAMMtools/cmd/bammtools/frac"
	"github.com/cran/BAMMtools/cmd/bammtools/rate"
	"github.com/cran/BAMMtools/cmd/bammtools/shifts"
	"github.com/cran/BAMMtools/cmd/bammtools/tree"
	"github.com/js-arias/command"
)

var app = &command.Command{
	Usage: "bammtools <command> [<argument>...]",
	Short: "a tool for the analysis of macroevolutionary rate shifts",
}

func init() {
	app.Add(eventcmd.Command)
	app.Add(frac.Command)
	app.Add(rate.Command)
	app.Add(shifts.Command)
	app.Add(tree.Command)
}

func main() {
	app.Main()
}
