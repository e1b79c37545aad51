// Copyright © 2025 J. Salvador Arias <jsalarias@gmail.com>
// All rights reserved.
// Distributed under BSD2 license that can be found in the LICENSE file.

// Package distinct implements a command to print
// the distinct shift configurations
// sampled in a BammTools project.
package distinct

import (
	"bufio"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/cran/BAMMtools/event"
	"github.com/cran/BAMMtools/phylo"
	"github.com/cran/BAMMtools/project"
	"github.com/cran/BAMMtools/shiftset"
	"github.com/js-arias/command"
)

var Command = &command.Command{
	Usage: `distinct [--shifts <number>] [--threshold <value>]
	[--tree <tree-name>]
	[--burnin <fraction>] [--thin <number>]
	[-o|--output <file>] <project-file>`,
	Short: "print the distinct shift configurations",
	Long: `
Command distinct reads the rate shift events of a BammTools project, reduces
each posterior sample to its core shifts, and prints the distinct shift
configurations ranked by decreasing frequency.

A shift is a core shift if its marginal odds ratio, the ratio between the
posterior and prior probabilities of a shift on its branch, is at or above a
threshold. The flag --shifts defines the expected number of shifts of the
Poisson prior; the default is 1. The flag --threshold defines the minimum
odds ratio of a core shift; the default is 5.

The argument of the command is the name of the project file.

By default, the first tree in the project will be used. Use the flag --tree
to select a different tree by its name. Use the flags --burnin and --thin to
discard samples as in the event add command.

The output is a tab-delimited file with a row per configuration, with its
frequency, the cumulative frequency, the number of assigned samples, and the
core shift nodes separated by commas. By default it will be printed in the
standard output; use the flag --output, or -o, to define an output file.
	`,
	SetFlags: setFlags,
	Run:      run,
}

var expShifts float64
var threshold float64
var treeName string
var burnin float64
var thinning int
var output string

func setFlags(c *command.Command) {
	c.Flags().Float64Var(&expShifts, "shifts", 1, "")
	c.Flags().Float64Var(&threshold, "threshold", 5, "")
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

	cs, err := shiftset.Distinct(t, samples, expShifts, threshold)
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
	return writeConfigs(w, cs)
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

func writeConfigs(w io.Writer, cs []*shiftset.Config) error {
	bw := bufio.NewWriter(w)
	fmt.Fprintf(bw, "# distinct shift configurations: %d\n", len(cs))

	tab := csv.NewWriter(bw)
	tab.Comma = '\t'
	tab.UseCRLF = true
	if err := tab.Write([]string{"rank", "freq", "cumfreq", "samples", "nodes"}); err != nil {
		return err
	}
	for i, cf := range cs {
		nodes := make([]string, 0, len(cf.Nodes))
		for _, n := range cf.Nodes {
			nodes = append(nodes, strconv.Itoa(n))
		}
		row := []string{
			strconv.Itoa(i + 1),
			strconv.FormatFloat(cf.Freq, 'f', 6, 64),
			strconv.FormatFloat(cf.CumFreq, 'f', 6, 64),
			strconv.Itoa(len(cf.Samples)),
			strings.Join(nodes, ","),
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
