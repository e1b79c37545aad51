// Copyright © 2025 J. Salvador Arias <jsalarias@gmail.com>
// All rights reserved.
// Distributed under BSD2 license that can be found in the LICENSE file.

// Package credible implements a command to build
// the credible set of shift configurations
// of a BammTools project.
package credible

import (
	"bufio"
	"encoding/csv"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/cran/BAMMtools/event"
	"github.com/cran/BAMMtools/phylo"
	"github.com/cran/BAMMtools/project"
	"github.com/cran/BAMMtools/shiftset"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/js-arias/command"
)

var Command = &command.Command{
	Usage: `credible [--shifts <number>] [--threshold <value>]
	[--limit <fraction>] [--window <value>]
	[--tree <tree-name>]
	[--burnin <fraction>] [--thin <number>]
	[-o|--output <file>] [--tips <file>]
	<project-file>`,
	Short: "build the credible set of shift configurations",
	Long: `
Command credible reads the rate shift events of a BammTools project and
builds the credible set of distinct shift configurations: the smallest set of
configurations, in rank order, with a cumulative frequency at or above a
given limit. The flag --limit defines the cumulative frequency of the set;
the default is 0.95.

Core shifts are detected as in the distinct command, with the flags --shifts
and --threshold.

For each configuration of the set, the parameters of each core shift are
averaged over all the samples assigned to the configuration. By default, the
events are matched by their node. If the flag --window is given with a value
in million years, only events within that window around the time of the first
matched event will be averaged.

The argument of the command is the name of the project file.

By default, the first tree in the project will be used. Use the flag --tree
to select a different tree by its name. Use the flags --burnin and --thin to
discard samples as in the event add command.

A summary table of the set will be printed in the standard output. The flag
--output, or -o, defines a tab-delimited output file with the averaged shift
parameters of each configuration. The flag --tips defines a tab-delimited
output file with the averaged tip rates of each configuration.
	`,
	SetFlags: setFlags,
	Run:      run,
}

var expShifts float64
var threshold float64
var limit float64
var window float64
var treeName string
var burnin float64
var thinning int
var output string
var tipsFile string

func setFlags(c *command.Command) {
	c.Flags().Float64Var(&expShifts, "shifts", 1, "")
	c.Flags().Float64Var(&threshold, "threshold", 5, "")
	c.Flags().Float64Var(&limit, "limit", 0.95, "")
	c.Flags().Float64Var(&window, "window", 0, "")
	c.Flags().StringVar(&treeName, "tree", "", "")
	c.Flags().Float64Var(&burnin, "burnin", 0, "")
	c.Flags().IntVar(&thinning, "thin", 0, "")
	c.Flags().StringVar(&output, "output", "", "")
	c.Flags().StringVar(&output, "o", "", "")
	c.Flags().StringVar(&tipsFile, "tips", "", "")
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

	o := shiftset.Options{
		ExpectedShifts: expShifts,
		Threshold:      threshold,
		Limit:          limit,
	}
	if window > 0 {
		o.Match = shiftset.MatchNodeTime
		o.Window = window
	}
	set, err := shiftset.Credible(t, samples, o)
	if err != nil {
		return err
	}

	printSet(c, set)

	if output != "" {
		if err := writeShifts(set, output); err != nil {
			return err
		}
	}
	if tipsFile != "" {
		if err := writeTips(set, t, tipsFile); err != nil {
			return err
		}
	}
	return nil
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

func printSet(c *command.Command, set *shiftset.Set) {
	tbl := table.NewWriter()
	tbl.SetOutputMirror(c.Stdout())
	tbl.SetStyle(table.StyleLight)
	tbl.AppendHeader(table.Row{"rank", "freq", "cum freq", "samples", "core nodes"})
	for i, cf := range set.Configs {
		nodes := make([]string, 0, len(cf.Nodes))
		for _, n := range cf.Nodes {
			nodes = append(nodes, strconv.Itoa(n))
		}
		tbl.AppendRow(table.Row{
			i + 1,
			fmt.Sprintf("%.4f", cf.Freq),
			fmt.Sprintf("%.4f", cf.CumFreq),
			len(cf.Samples),
			strings.Join(nodes, ","),
		})
	}
	tbl.AppendFooter(table.Row{"", "", "", "", fmt.Sprintf("%.0f%% credible set", set.Limit*100)})
	tbl.Render()
}

func writeShifts(set *shiftset.Set, name string) (err error) {
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

	bw := bufio.NewWriter(f)
	fmt.Fprintf(bw, "# %.0f%% credible set of shift configurations\n", set.Limit*100)

	tab := csv.NewWriter(bw)
	tab.Comma = '\t'
	tab.UseCRLF = true
	if err := tab.Write([]string{"rank", "freq", "node", "time", "lam1", "lam2", "mu1", "mu2"}); err != nil {
		return err
	}
	for i, cf := range set.Configs {
		for _, s := range cf.Shifts {
			row := []string{
				strconv.Itoa(i + 1),
				strconv.FormatFloat(cf.Freq, 'f', 6, 64),
				strconv.Itoa(s.Node),
				strconv.FormatFloat(s.Time, 'f', 6, 64),
				strconv.FormatFloat(s.Lam1, 'f', 6, 64),
				strconv.FormatFloat(s.Lam2, 'f', 6, 64),
				strconv.FormatFloat(s.Mu1, 'f', 6, 64),
				strconv.FormatFloat(s.Mu2, 'f', 6, 64),
			}
			if err := tab.Write(row); err != nil {
				return err
			}
		}
	}

	tab.Flush()
	if err := tab.Error(); err != nil {
		return err
	}
	if err := bw.Flush(); err != nil {
		return fmt.Errorf("while writing to %q: %v", name, err)
	}
	return nil
}

func writeTips(set *shiftset.Set, t *phylo.Tree, name string) (err error) {
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

	bw := bufio.NewWriter(f)
	fmt.Fprintf(bw, "# averaged tip rates of the credible set\n")

	tab := csv.NewWriter(bw)
	tab.Comma = '\t'
	tab.UseCRLF = true
	if err := tab.Write([]string{"rank", "tip", "name", "lambda"}); err != nil {
		return err
	}
	for i, cf := range set.Configs {
		for tip := 1; tip <= t.NTips(); tip++ {
			row := []string{
				strconv.Itoa(i + 1),
				strconv.Itoa(tip),
				t.Tip(tip),
				strconv.FormatFloat(cf.TipLambda[tip-1], 'f', 6, 64),
			}
			if err := tab.Write(row); err != nil {
				return err
			}
		}
	}

	tab.Flush()
	if err := tab.Error(); err != nil {
		return err
	}
	if err := bw.Flush(); err != nil {
		return fmt.Errorf("while writing to %q: %v", name, err)
	}
	return nil
}
