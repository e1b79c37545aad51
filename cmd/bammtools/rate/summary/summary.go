// Copyright © 2025 J. Salvador Arias <jsalarias@gmail.com>
// All rights reserved.
// Distributed under BSD2 license that can be found in the LICENSE file.

// Package summary implements a command to summarize
// a rate through time matrix
// as mean and quantile curves.
package summary

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
	"github.com/cran/BAMMtools/ratemat"
	"github.com/js-arias/command"
)

var Command = &command.Command{
	Usage: `summary [--kind <value>] [--q <quantiles>]
	[-i|--input <matrix-file>]
	[--type <value>]
	[--from <age>] [--to <age>] [--slices <number>]
	[--node <id>] [--exclude]
	[--tree <tree-name>]
	[--burnin <fraction>] [--thin <number>]
	[-o|--output <file>] [<project-file>]`,
	Short: "summarize a rate through time matrix",
	Long: `
Command summary reduces a rate through time matrix to the data of a rate plot:
for each time slice, the mean rate over all posterior samples and one or more
empirical quantiles.

The argument of the command is the name of the project file; it is only
required when the matrix is computed from the project events.

By default, the matrix will be computed from the project events, accepting
the same flags of the matrix command (--type, --from, --to, --slices, --node,
--exclude, --tree, --burnin, --thin). Alternatively, the flag --input, or -i,
reads a previously stored matrix file; in that case the matrix flags are
invalid, as the stored matrix already defines the time window and the
included branches.

The flag --kind defines the summarized rate. Valid values are:

	speciation  default value
	extinction
	netdiv      speciation minus extinction
	trait       for trait evolution matrices

The flag --q defines the quantiles, as a comma separated list of
probabilities; the default is "0.05,0.95".

Slices in which no branch of the tree is alive are omitted from the output.

The output is a tab-delimited file with a row per time slice and a column per
quantile. By default it will be printed in the standard output; use the flag
--output, or -o, to define an output file.
	`,
	SetFlags: setFlags,
	Run:      run,
}

var kindFlag string
var quantFlag string
var input string
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
	c.Flags().StringVar(&kindFlag, "kind", "speciation", "")
	c.Flags().StringVar(&quantFlag, "q", "0.05,0.95", "")
	c.Flags().StringVar(&input, "input", "", "")
	c.Flags().StringVar(&input, "i", "", "")
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
	if input == "" && len(args) < 1 {
		return c.UsageError("expecting project file")
	}

	kind, err := ratemat.ParseRateKind(kindFlag)
	if err != nil {
		return err
	}
	qs, err := parseQuantiles(quantFlag)
	if err != nil {
		return err
	}

	var m *ratemat.Matrix
	if input != "" {
		if windowFlags() {
			return c.UsageError("matrix flags are invalid with --input")
		}
		m, err = readMatrix(input)
	} else {
		m, err = computeMatrix(args[0])
	}
	if err != nil {
		return err
	}

	s, err := m.Summary(kind, qs)
	if err != nil {
		return err
	}

	if output == "" {
		return writeSummary(c.Stdout(), s, qs)
	}
	f, err := os.Create(output)
	if err != nil {
		return err
	}
	defer f.Close()
	if err := writeSummary(f, s, qs); err != nil {
		return fmt.Errorf("while writing to %q: %v", output, err)
	}
	return nil
}

// windowFlags reports if any flag
// that defines the matrix was given
// a non default value.
func windowFlags() bool {
	if typeFlag != "diversification" {
		return true
	}
	if fromAge != 0 || toAge != 0 || numSlices != 100 {
		return true
	}
	return nodeID != 0 || exclude
}

func parseQuantiles(s string) ([]float64, error) {
	var qs []float64
	for _, v := range strings.Split(s, ",") {
		q, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			return nil, fmt.Errorf("invalid quantile %q: %v", v, err)
		}
		qs = append(qs, q)
	}
	return qs, nil
}

func computeMatrix(pFile string) (*ratemat.Matrix, error) {
	p, err := project.Read(pFile)
	if err != nil {
		return nil, err
	}

	typ, err := ratemat.ParseType(typeFlag)
	if err != nil {
		return nil, err
	}

	tc, err := p.Trees()
	if err != nil {
		return nil, err
	}
	if treeName == "" {
		ls := tc.Names()
		if len(ls) == 0 {
			return nil, fmt.Errorf("project %q without trees", pFile)
		}
		treeName = ls[0]
	}
	tt := tc.Tree(treeName)
	if tt == nil {
		return nil, fmt.Errorf("tree %q not in project %q", treeName, pFile)
	}
	t, err := phylo.FromTimeTree(tt)
	if err != nil {
		return nil, err
	}

	samples, err := p.Events(t, event.ReadOptions{
		Burnin: burnin,
		Thin:   thinning,
	})
	if err != nil {
		return nil, err
	}

	return ratemat.Compute(t, samples, typ, ratemat.Options{
		Start:   fromAge,
		End:     toAge,
		Node:    nodeID,
		Exclude: exclude,
		Slices:  numSlices,
	})
}

func readMatrix(name string) (*ratemat.Matrix, error) {
	f, err := os.Open(name)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	m, err := ratemat.ReadTSV(f)
	if err != nil {
		return nil, fmt.Errorf("while reading file %q: %v", name, err)
	}
	return m, nil
}

func writeSummary(w io.Writer, s *ratemat.Summary, qs []float64) error {
	bw := bufio.NewWriter(w)
	fmt.Fprintf(bw, "# rate summary: %s\n", s.Kind)

	tab := csv.NewWriter(bw)
	tab.Comma = '\t'
	tab.UseCRLF = true

	header := []string{"time", "mean"}
	for _, q := range qs {
		header = append(header, fmt.Sprintf("q-%.3f", q))
	}
	if err := tab.Write(header); err != nil {
		return err
	}

	for i, tm := range s.Times {
		row := []string{
			strconv.FormatFloat(tm, 'f', 6, 64),
			strconv.FormatFloat(s.Mean[i], 'f', 6, 64),
		}
		for _, q := range qs {
			row = append(row, strconv.FormatFloat(s.Quantiles[q][i], 'f', 6, 64))
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
