// Copyright © 2025 J. Salvador Arias <jsalarias@gmail.com>
// All rights reserved.
// Distributed under BSD2 license that can be found in the LICENSE file.

// Package frac is a metapackage for commands
// that dealt with taxon sampling fractions.
package frac

import (
	"github.com/cran/BAMMtools/cmd/bammtools/frac/set"
	"github.com/js-arias/command"
)

var Command = &command.Command{
	Usage: "frac <command> [<argument>...]",
	Short: "commands for taxon sampling fractions",
}

func init() {
	Command.Add(set.Command)
}
