// Copyright © 2025 J. Salvador Arias <jsalarias@gmail.com>
// All rights reserved.
// Distributed under BSD2 license that can be found in the LICENSE file.

// Package prior implements a command to print
// the prior and posterior shift probabilities
// of each branch of a tree.
package prior

import (
	"bufio"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/cran/BAMMtools/event"
	"github.com/cran/BAMMtools/phylo"
	"github.com/cran/BAMMtools/project"
	"github.com/cran/BAMMtools/shiftset"
	"github.com/js-arias/command"
)

var Command = &command.Command{
	Usage: `prior [--shifts <number>]
	[--tree <tree-name>]
	[--burnin <fraction>] [--thin <number>]
	[-o|--output <file>] <project-file>`,
	Short: "print branch shift probabilities",
	Long: `
Command prior reads the rate shift events of a BammTools project and prints,
for each branch of the tree, the prior probability of at least one shift on
the branch, the posterior marginal probability measured from the samples, and
the marginal odds ratio of the branch.

The prior probability is based on a Poisson process over the tree, in which
the expected number of shifts is distributed in proportion to the branch
lengths. The flag --shifts defines the expected number of shifts of the
prior; the default is 1.

The argument of the command is the name of the project file.

By default, the first tree in the project will be used. Use the flag --tree
to select a different tree by its name. Use the flags --burnin and --thin to
discard samples as in the event add command.

The output is a tab-delimited file with a row per branch. By default it will
be printed in the standard output; use the flag --output, or -o, to define an
output file.
	`,
	SetFlags: setFlags,
	Run:      run,
}

var expShifts float64
var treeName string
var burnin float64
var thinning int
var output string

func setFlags(c *command.Command) {
	c.Flags().Float64Var(&expShifts, "shifts", 1, "")
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

	priors, err := shiftset.BranchPriors(t, expShifts)
	if err != nil {
		return err
	}
	post := shiftset.MarginalProbs(t, samples)

	var w io.Writer = c.Stdout()
	if output != "" {
		f, err := os.Create(output)
		if err != nil {
			return err
		}
		defer f.Close()
		w = f
	}
	return writeTable(w, t, priors, post)
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

func writeTable(w io.Writer, t *phylo.Tree, priors, post []float64) error {
	bw := bufio.NewWriter(w)
	fmt.Fprintf(bw, "# branch shift probabilities, %.3f expected shifts\n", expShifts)

	tab := csv.NewWriter(bw)
	tab.Comma = '\t'
	tab.UseCRLF = true
	if err := tab.Write([]string{"node", "length", "prior", "posterior", "odds"}); err != nil {
		return err
	}
	for b := 0; b < t.NBranches(); b++ {
		odds := 0.0
		if priors[b] > 0 {
			odds = post[b] / priors[b]
		}
		row := []string{
			strconv.Itoa(t.Child(b)),
			strconv.FormatFloat(t.Length(b), 'f', 6, 64),
			strconv.FormatFloat(priors[b], 'f', 6, 64),
			strconv.FormatFloat(post[b], 'f', 6, 64),
			strconv.FormatFloat(odds, 'f', 6, 64),
		}
		if err := tab.Write(row); err != nil {
			return err
		}
	}

	tab.Flush()
	if err := tab.Error(); err != nil {
		return err
	}
	return bw.Flush()
}
