// Copyright © 2025 J. Salvador Arias <jsalarias@gmail.com>
// All rights reserved.
// Distributed under BSD2 license that can be found in the LICENSE file.

// Package rate is a metapackage for commands
// that dealt with rates through time.
package rate

import (
	"github.com/cran/BAMMtools/cmd/bammtools/rate/matrix"
	"github.com/cran/BAMMtools/cmd/bammtools/rate/summary"
	"github.com/cran/BAMMtools/cmd/bammtools/rate/timevar"
	"github.com/js-arias/command"
)

var Command = &command.Command{
	Usage: "rate <command> [<argument>...]",
	Short: "commands for rates through time",
}

func init() {
	Command.Add(matrix.Command)
	Command.Add(summary.Command)
	Command.Add(timevar.Command)
}
