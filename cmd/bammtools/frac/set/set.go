// Copyright © 2025 J. Salvador Arias <jsalarias@gmail.com>
// All rights reserved.
// Distributed under BSD2 license that can be found in the LICENSE file.

// Package set implements a command to build
// the sampling fraction table
// of a BammTools project.
package set

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/cran/BAMMtools/phylo"
	"github.com/cran/BAMMtools/project"
	"github.com/cran/BAMMtools/sampfrac"
	"github.com/js-arias/command"
)

var Command = &command.Command{
	Usage: `set [-f|--file <sampling-file>]
	[--backbone <fraction>]
	[--tree <tree-name>]
	<project-file> [<richness-file>]`,
	Short: "set the sampling fractions of a BammTools project",
	Long: `
Command set reads a richness file, builds the per-species sampling fraction
table for a tree of a BammTools project, and stores the table in the project.

The first argument of the command is the name of the project file.

The second argument is the name of the richness file. If no file is given,
the richness will be read from the standard input. The richness file is a
tab-delimited file, with lines starting with '#' taken as comments, and the
following columns:

	species   the name of a terminal of the tree
	clade     the name of the clade of the species
	richness  the known number of species of the clade

The sampling fraction of each species is the number of terminals of its clade
present in the tree, divided by the clade richness. All terminals of the tree
must be assigned to a clade.

The flag --backbone defines the sampling fraction of the tree backbone, a
value between 0 and 1; the default is 1.

By default, the first tree in the project will be used. Use the flag --tree
to select a different tree by its name.

By default, the table will be stored in the sampling file currently defined
for the project. If the project does not have a sampling file, a new one will
be created with the name 'sampling.tab'. A different file name can be defined
using the flag --file, or -f.
	`,
	SetFlags: setFlags,
	Run:      run,
}

var samplingFile string
var backbone float64
var treeName string

func setFlags(c *command.Command) {
	c.Flags().StringVar(&samplingFile, "file", "", "")
	c.Flags().StringVar(&samplingFile, "f", "", "")
	c.Flags().Float64Var(&backbone, "backbone", 1, "")
	c.Flags().StringVar(&treeName, "tree", "", "")
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

	in := "-"
	if len(args) > 1 {
		in = args[1]
	}
	clades, richness, err := readRichness(c.Stdin(), in)
	if err != nil {
		return err
	}

	tb, err := sampfrac.FromRichness(t, clades, richness, backbone)
	if err != nil {
		return err
	}
	if err := tb.Validate(t); err != nil {
		return err
	}

	if samplingFile == "" {
		samplingFile = p.Path(project.Sampling)
		if samplingFile == "" {
			samplingFile = "sampling.tab"
		}
	}

	if err := writeTable(tb); err != nil {
		return err
	}
	p.Add(project.Sampling, samplingFile)
	if err := p.Write(); err != nil {
		return err
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

func readRichness(r io.Reader, name string) (map[string]string, map[string]int, error) {
	if name != "-" {
		f, err := os.Open(name)
		if err != nil {
			return nil, nil, err
		}
		defer f.Close()
		r = f
	} else {
		name = "stdin"
	}

	tab := csv.NewReader(r)
	tab.Comma = '\t'
	tab.Comment = '#'

	head, err := tab.Read()
	if err != nil {
		return nil, nil, fmt.Errorf("on file %q: while reading header: %v", name, err)
	}
	fields := make(map[string]int, len(head))
	for i, h := range head {
		h = strings.ToLower(h)
		fields[h] = i
	}
	for _, h := range []string{"species", "clade", "richness"} {
		if _, ok := fields[h]; !ok {
			return nil, nil, fmt.Errorf("on file %q: expecting field %q", name, h)
		}
	}

	clades := make(map[string]string)
	richness := make(map[string]int)
	for {
		row, err := tab.Read()
		if err == io.EOF {
			break
		}
		ln, _ := tab.FieldPos(0)
		if err != nil {
			return nil, nil, fmt.Errorf("on file %q: on row %d: %v", name, ln, err)
		}

		f := "species"
		sp := strings.Join(strings.Fields(row[fields[f]]), " ")
		if sp == "" {
			return nil, nil, fmt.Errorf("on file %q: on row %d, field %q: expecting species name", name, ln, f)
		}

		f = "clade"
		cl := strings.Join(strings.Fields(row[fields[f]]), " ")
		if cl == "" {
			return nil, nil, fmt.Errorf("on file %q: on row %d, field %q: expecting clade name", name, ln, f)
		}
		clades[sp] = cl

		f = "richness"
		rich, err := strconv.Atoi(row[fields[f]])
		if err != nil {
			return nil, nil, fmt.Errorf("on file %q: on row %d, field %q: %v", name, ln, f, err)
		}
		if rich < 1 {
			return nil, nil, fmt.Errorf("on file %q: on row %d, field %q: invalid richness %d", name, ln, f, rich)
		}
		if rv, ok := richness[cl]; ok && rv != rich {
			return nil, nil, fmt.Errorf("on file %q: on row %d: clade %q with richness %d and %d", name, ln, cl, rv, rich)
		}
		richness[cl] = rich
	}
	return clades, richness, nil
}

func writeTable(tb *sampfrac.Table) (err error) {
	f, err := os.Create(samplingFile)
	if err != nil {
		return err
	}
	defer func() {
		e := f.Close()
		if e != nil && err == nil {
			err = e
		}
	}()

	if err := tb.TSV(f); err != nil {
		return fmt.Errorf("while writing to %q: %v", samplingFile, err)
	}
	return nil
}
