// Copyright © 2025 J. Salvador Arias <jsalarias@gmail.com>
// All rights reserved.
// Distributed under BSD2 license that can be found in the LICENSE file.

// Package shifts is a metapackage for commands
// that dealt with rate shift configurations.
package shifts

import (
	"github.com/cran/BAMMtools/cmd/bammtools/shifts/credible"
	"github.com/cran/BAMMtools/cmd/bammtools/shifts/distinct"
	"github.com/cran/BAMMtools/cmd/bammtools/shifts/prior"
	"github.com/js-arias/command"
)

var Command = &command.Command{
	Usage: "shifts <command> [<argument>...]",
	Short: "commands for rate shift configurations",
}

func init() {
	Command.Add(credible.Command)
	Command.Add(distinct.Command)
	Command.Add(prior.Command)
}
