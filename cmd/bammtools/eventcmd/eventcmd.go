// Copyright © 2025 J. Salvador Arias <jsalarias@gmail.com>
// All rights reserved.
// Distributed under BSD2 license that can be found in the LICENSE file.

// Package eventcmd is a metapackage for commands
// that dealt with rate shift event samples.
package eventcmd

import (
	"github.com/cran/BAMMtools/cmd/bammtools/eventcmd/add"
	"github.com/cran/BAMMtools/cmd/bammtools/eventcmd/export"
	"github.com/js-arias/command"
)

var Command = &command.Command{
	Usage: "event <command> [<argument>...]",
	Short: "commands for rate shift event samples",
}

func init() {
	Command.Add(add.Command)
	Command.Add(export.Command)
}
