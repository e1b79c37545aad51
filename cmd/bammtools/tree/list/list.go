// Copyright © 2025 J. Salvador Arias <jsalarias@gmail.com>
// All rights reserved.
// Distributed under BSD2 license that can be found in the LICENSE file.

// Package list implements a command to print
// the list of trees in a BammTools project.
package list

import (
	"fmt"

	"github.com/cran/BAMMtools/project"
	"github.com/js-arias/command"
)

var Command = &command.Command{
	Usage: "list [--terms <tree-name>] <project-file>",
	Short: "print a list of the trees in a project",
	Long: `
Command list reads the trees from a BammTools project and print the tree names
in the standard output.

The argument of the command is the name of the project file.

If the flag --terms is given with a tree name, the terminals of the indicated
tree will be printed instead of the tree names.
	`,
	SetFlags: setFlags,
	Run:      run,
}

var termsTree string

func setFlags(c *command.Command) {
	c.Flags().StringVar(&termsTree, "terms", "", "")
}

func run(c *command.Command, args []string) error {
	if len(args) < 1 {
		return c.UsageError("expecting project file")
	}

	p, err := project.Read(args[0])
	if err != nil {
		return err
	}

	tc, err := p.Trees()
	if err != nil {
		return err
	}

	if termsTree != "" {
		t := tc.Tree(termsTree)
		if t == nil {
			return fmt.Errorf("tree %q not in project %q", termsTree, args[0])
		}
		for _, n := range t.Terms() {
			fmt.Fprintf(c.Stdout(), "%s\n", n)
		}
		return nil
	}

	ls := tc.Names()
	for _, t := range ls {
		fmt.Fprintf(c.Stdout(), "%s\n", t)
	}
	return nil
}
