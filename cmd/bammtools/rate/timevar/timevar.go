// Copyright © 2025 J. Salvador Arias <jsalarias@gmail.com>
// All rights reserved.
// Distributed under BSD2 license that can be found in the LICENSE file.

// Package timevar implements a command to measure
// the evidence of time varying rates
// on each branch of a tree.
package timevar

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
	tv "github.com/cran/BAMMtools/timevar"
	"github.com/js-arias/command"
)

var Command = &command.Command{
	Usage: `timevar [--kind <value>] [--prior <fraction>]
	[--newick]
	[--tree <tree-name>]
	[--burnin <fraction>] [--thin <number>]
	[-o|--output <file>] <project-file>`,
	Short: "measure evidence of time varying rates per branch",
	Long: `
Command timevar reads the rate shift events of a BammTools project and
measures, for each branch of the tree, the evidence that the rate regime of
the branch varies in time.

The argument of the command is the name of the project file.

The flag --kind defines the reported evidence. Valid values are:

	posterior  default value, the fraction of samples in which the branch
	           regime is time varying
	bayes      the Bayes factor of a time varying regime against the prior
	           probability given with the flag --prior

The flag --prior is the prior probability that a regime is time varying; it
is required by the bayes kind and must be a fraction between 0 and 1.

By default, the first tree in the project will be used. Use the flag --tree
to select a different tree by its name. Use the flags --burnin and --thin to
discard samples as in the event add command.

By default, the output is a tab-delimited file with a row per branch, with
the node at the tip of the branch, the branch length in million years, and
the evidence value. With the flag --newick, the tree will be printed in
parenthetical format using the evidence values as branch lengths. By default
the output will be printed in the standard output; use the flag --output, or
-o, to define an output file.
	`,
	SetFlags: setFlags,
	Run:      run,
}

var kindFlag string
var priorProb float64
var asNewick bool
var treeName string
var burnin float64
var thinning int
var output string

func setFlags(c *command.Command) {
	c.Flags().StringVar(&kindFlag, "kind", "posterior", "")
	c.Flags().Float64Var(&priorProb, "prior", 0, "")
	c.Flags().BoolVar(&asNewick, "newick", false, "")
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

	kind, err := tv.ParseKind(kindFlag)
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

	ev, err := tv.Branches(t, samples, priorProb, kind)
	if err != nil {
		return err
	}

	var w io.Writer = c.Stdout()
	if output != "" {
		f, err := os.Create(output)
		if err != nil {
			return err
		}
		defer f.Close()
		w = f
	}

	if asNewick {
		return ev.Newick(w)
	}
	return writeBranches(w, t, ev, kind)
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

func writeBranches(w io.Writer, t, ev *phylo.Tree, kind tv.Kind) error {
	bw := bufio.NewWriter(w)
	fmt.Fprintf(bw, "# time varying rate evidence: %s\n", kind)

	tab := csv.NewWriter(bw)
	tab.Comma = '\t'
	tab.UseCRLF = true
	if err := tab.Write([]string{"node", "length", "evidence"}); err != nil {
		return err
	}
	for b := 0; b < t.NBranches(); b++ {
		row := []string{
			strconv.Itoa(t.Child(b)),
			strconv.FormatFloat(t.Length(b), 'f', 6, 64),
			strconv.FormatFloat(ev.Length(b), 'f', 6, 64),
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
