// Copyright © 2025 J. Salvador Arias <jsalarias@gmail.com>
// All rights reserved.
// Distributed under BSD2 license that can be found in the LICENSE file.

// Package matrix implements a command to build
// a rate through time matrix
// from the samples of a BammTools project.
package matrix

import (
	"fmt"
	"os"

	"github.com/cran/BAMMtools/event"
	"github.com/cran/BAMMtools/phylo"
	"github.com/cran/BAMMtools/project"
	"github.com/cran/BAMMtools/ratemat"
	"github.com/js-arias/command"
)

var Command = &command.Command{
	Usage: `matrix [--type <value>]
	[--from <age>] [--to <age>] [--slices <number>]
	[--node <id>] [--exclude]
	[--tree <tree-name>]
	[--burnin <fraction>] [--thin <number>]
	[-o|--output <file>] <project-file>`,
	Short: "build a rate through time matrix",
	Long: `
Command matrix reads the rate shift events of a BammTools project and builds
a matrix of mean rates through time, with a row per posterior sample and a
column per time slice.

The argument of the command is the name of the project file.

By default a diversification matrix will be built, with speciation and
extinction rates. If the events were sampled from a trait evolution analysis,
use the flag --type with the value "trait".

By default, the matrix spans the whole tree, from the root to the present,
using 100 time slices. The flags --from and --to define a different time
window, in million years from the root; the flag --slices defines the number
of time slices.

If the flag --node is given with a node identifier, only the branches of the
clade rooted at that node will be added to the matrix. With the flag
--exclude, the indicated clade will be removed instead, and the rest of the
tree will be used.

By default, the first tree in the project will be used. Use the flag --tree
to select a different tree by its name. Use the flags --burnin and --thin to
discard samples as in the event add command.

The output is a tab-delimited file with a row per sample-slice pair. By
default it will be printed in the standard output; use the flag --output, or
-o, to define an output file.
	`,
	SetFlags: setFlags,
	Run:      run,
}

var typeFlag string
var fromAge float64
var toAge float64
var numSlices int
var nodeID int
var exclude bool
var treeName string
var burnin float64
var thinning int
var output string

func setFlags(c *command.Command) {
	c.Flags().StringVar(&typeFlag, "type", "diversification", "")
	c.Flags().Float64Var(&fromAge, "from", 0, "")
	c.Flags().Float64Var(&toAge, "to", 0, "")
	c.Flags().IntVar(&numSlices, "slices", 100, "")
	c.Flags().IntVar(&nodeID, "node", 0, "")
	c.Flags().BoolVar(&exclude, "exclude", false, "")
	c.Flags().StringVar(&treeName, "tree", "", "")
	c.Flags().Float64Var(&burnin, "burnin", 0, "")
	c.Flags().IntVar(&thinning, "thin", 0, "")
	c.Flags().StringVar(&output, "output", "", "")
	c.Flags().StringVar(&output, "o", "", "")
}

func run(c *command.Command, args []string) error {
	if len(args) < 1 {
		return c.UsageError("expecting project file")
	}
	p, err := project.Read(args[0])
	if err != nil {
		return err
	}

	typ, err := ratemat.ParseType(typeFlag)
	if err != nil {
		return err
	}

	t, err := projectTree(p, treeName)
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

	m, err := ratemat.Compute(t, samples, typ, ratemat.Options{
		Start:   fromAge,
		End:     toAge,
		Node:    nodeID,
		Exclude: exclude,
		Slices:  numSlices,
	})
	if err != nil {
		return err
	}

	if output == "" {
		return m.TSV(c.Stdout())
	}
	return writeMatrix(m, output)
}

func projectTree(p *project.Project, name string) (*phylo.Tree, error) {
	tc, err := p.Trees()
	if err != nil {
		return nil, err
	}
	if name == "" {
		ls := tc.Names()
		if len(ls) == 0 {
			return nil, fmt.Errorf("project %q without trees", p.Name())
		}
		name = ls[0]
	}
	tt := tc.Tree(name)
	if tt == nil {
		return nil, fmt.Errorf("tree %q not in project %q", name, p.Name())
	}
	return phylo.FromTimeTree(tt)
}

func writeMatrix(m *ratemat.Matrix, name string) (err error) {
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

	if err := m.TSV(f); err != nil {
		return fmt.Errorf("while writing to %q: %v", name, err)
	}
	return nil
}
