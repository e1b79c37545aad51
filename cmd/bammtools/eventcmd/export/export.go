// Copyright © 2025 J. Salvador Arias <jsalarias@gmail.com>
// All rights reserved.
// Distributed under BSD2 license that can be found in the LICENSE file.

// Package export implements a command to export
// the tree and event samples of a BammTools project.
package export

import (
	"fmt"
	"os"

	"github.com/cran/BAMMtools/event"
	"github.com/cran/BAMMtools/phylo"
	"github.com/cran/BAMMtools/project"
	"github.com/js-arias/command"
)

var Command = &command.Command{
	Usage: `export [-o|--output <file-prefix>]
	[--tree <tree-name>]
	[--burnin <fraction>] [--thin <number>]
	<project-file>`,
	Short: "export the tree and events of a BammTools project",
	Long: `
Command export reads a tree and its rate shift events from a BammTools
project and writes them as a file pair: the tree in newick (parenthetical)
format, and the events as a comma-delimited file with canonical columns and
sample indexes renumbered from one.

The exported pair is self-contained: node identifiers in the event file refer
to the node numbering of the exported newick tree, with terminals numbered
first in the order of the tree, followed by the internal nodes from the root.

The argument of the command is the name of the project file.

By default, the first tree in the project will be exported. Use the flag
--tree to select a different tree by its name.

Use the flag --burnin, with a fraction between 0 and 1, to discard the first
samples. Use the flag --thin, with a positive number, to keep only every
given sample.

The flag --output, or -o, defines the prefix of the output files; the tree
will be stored in '<prefix>.tre' and the events in '<prefix>.csv'. By default
the name of the tree will be used as prefix.
	`,
	SetFlags: setFlags,
	Run:      run,
}

var output string
var treeName string
var burnin float64
var thinning int

func setFlags(c *command.Command) {
	c.Flags().StringVar(&output, "output", "", "")
	c.Flags().StringVar(&output, "o", "", "")
	c.Flags().StringVar(&treeName, "tree", "", "")
	c.Flags().Float64Var(&burnin, "burnin", 0, "")
	c.Flags().IntVar(&thinning, "thin", 0, "")
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
	if treeName == "" {
		ls := tc.Names()
		if len(ls) == 0 {
			return fmt.Errorf("project %q without trees", args[0])
		}
		treeName = ls[0]
	}
	tt := tc.Tree(treeName)
	if tt == nil {
		return fmt.Errorf("tree %q not in project %q", treeName, args[0])
	}
	t, err := phylo.FromTimeTree(tt)
	if err != nil {
		return err
	}

	samples, err := p.Events(t, event.ReadOptions{
		Burnin: burnin,
		Thin:   thinning,
	})
	if err != nil {
		return err
	}

	if output == "" {
		output = treeName
	}
	if err := writeTree(t, output+".tre"); err != nil {
		return err
	}
	if err := writeEvents(samples, output+".csv"); err != nil {
		return err
	}
	return nil
}

func writeTree(t *phylo.Tree, name string) (err error) {
	f, err := os.Create(name)
	if err != nil {
		return err
	}
	defer func() {
		e := f.Close()
		if e != nil && err == nil {
			err = e
		}
	}()

	if err := t.Newick(f); err != nil {
		return fmt.Errorf("while writing to %q: %v", name, err)
	}
	return nil
}

func writeEvents(samples []event.Sample, name string) (err error) {
	f, err := os.Create(name)
	if err != nil {
		return err
	}
	defer func() {
		e := f.Close()
		if e != nil && err == nil {
			err = e
		}
	}()

	if err := event.WriteCSV(f, samples); err != nil {
		return fmt.Errorf("while writing to %q: %v", name, err)
	}
	return nil
}
