// Copyright © 2025 J. Salvador Arias <jsalarias@gmail.com>
// All rights reserved.
// Distributed under BSD2 license that can be found in the LICENSE file.

// Package add implements a command to add
// an event sample file to a BammTools project.
package add

import (
	"fmt"
	"io"
	"os"

	"github.com/cran/BAMMtools/event"
	"github.com/cran/BAMMtools/phylo"
	"github.com/cran/BAMMtools/project"
	"github.com/js-arias/command"
)

var Command = &command.Command{
	Usage: `add [-f|--file <event-file>]
	[--tree <tree-name>]
	[--burnin <fraction>] [--thin <number>]
	<project-file> [<event-file>]`,
	Short: "add sampled rate shift events to a BammTools project",
	Long: `
Command add reads a file with rate shift events sampled from the posterior of
a diversification analysis, validates the events against a tree in the
project, and stores the validated samples in the project.

The first argument of the command is the name of the project file. The
project must contain at least one tree.

The second argument is the name of the event file. If no file is given the
events will be read from the standard input. The event file is a
comma-delimited file with the following columns:

	index  the sample that contains the event
	node   the most tipward node of the branch with the event
	time   the time of the event, in million years from the root
	lam1   initial speciation (or trait) rate of the event
	lam2   exponential rate change parameter
	mu1    initial extinction rate of the event
	mu2    extinction rate change parameter (usually zero)

Rows of a sample must be contiguous. Each sample must contain an event at the
root node with time zero, the root regime of the sample.

By default, the events are validated against the first tree in the project.
Use the flag --tree to select a different tree by its name.

Use the flag --burnin, with a fraction between 0 and 1, to discard the first
samples of the file. Use the flag --thin, with a positive number, to keep
only every given sample. Discarded samples will not be stored.

By default, the validated events will be stored in the event file currently
defined for the project. If the project does not have an event file, a new
one will be created with the name 'events.csv'. A different file name can be
defined using the flag --file, or -f.
	`,
	SetFlags: setFlags,
	Run:      run,
}

var eventFile string
var treeName string
var burnin float64
var thinning int

func setFlags(c *command.Command) {
	c.Flags().StringVar(&eventFile, "file", "", "")
	c.Flags().StringVar(&eventFile, "f", "", "")
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

	t, err := projectTree(p, treeName)
	if err != nil {
		return err
	}

	in := "-"
	if len(args) > 1 {
		in = args[1]
	}
	samples, err := readEvents(c.Stdin(), in, t)
	if err != nil {
		return err
	}
	if len(samples) == 0 {
		return fmt.Errorf("no samples left on file %q", in)
	}

	if eventFile == "" {
		eventFile = p.Path(project.Events)
		if eventFile == "" {
			eventFile = "events.csv"
		}
	}

	if err := writeEvents(samples); err != nil {
		return err
	}
	p.Add(project.Events, eventFile)
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

func readEvents(r io.Reader, name string, t *phylo.Tree) ([]event.Sample, error) {
	if name != "-" {
		f, err := os.Open(name)
		if err != nil {
			return nil, err
		}
		defer f.Close()
		r = f
	} else {
		name = "stdin"
	}

	samples, err := event.ReadCSV(r, t, event.ReadOptions{
		Burnin: burnin,
		Thin:   thinning,
	})
	if err != nil {
		return nil, fmt.Errorf("while reading file %q: %v", name, err)
	}
	return samples, nil
}

func writeEvents(samples []event.Sample) (err error) {
	f, err := os.Create(eventFile)
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
		return fmt.Errorf("while writing to %q: %v", eventFile, err)
	}
	return nil
}
