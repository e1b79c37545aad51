// Copyright © 2025 J. Salvador Arias <jsalarias@gmail.com>
// All rights reserved.
// Distributed under BSD2 license that can be found in the LICENSE file.

package project

import (
	"fmt"
	"os"

	"github.com/cran/BAMMtools/event"
	"github.com/cran/BAMMtools/phylo"
	"github.com/cran/BAMMtools/sampfrac"
	"github.com/js-arias/timetree"
)

// Trees reads a tree collection file
// as defined in a project.
func (p *Project) Trees() (*timetree.Collection, error) {
	name := p.Path(Trees)
	if name == "" {
		return nil, fmt.Errorf("trees not defined in project %q", p.name)
	}

	f, err := os.Open(name)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	c, err := timetree.ReadTSV(f)
	if err != nil {
		return nil, fmt.Errorf("while reading file %q: %v", name, err)
	}
	return c, nil
}

// Events reads the event data file
// as defined in a project,
// for the given tree.
func (p *Project) Events(t *phylo.Tree, o event.ReadOptions) ([]event.Sample, error) {
	name := p.Path(Events)
	if name == "" {
		return nil, fmt.Errorf("event data not defined in project %q", p.name)
	}

	f, err := os.Open(name)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	samples, err := event.ReadCSV(f, t, o)
	if err != nil {
		return nil, fmt.Errorf("on file %q: %v", name, err)
	}
	return samples, nil
}

// Sampling reads the sampling fraction file
// as defined in a project.
func (p *Project) Sampling() (*sampfrac.Table, error) {
	name := p.Path(Sampling)
	if name == "" {
		return nil, fmt.Errorf("sampling fractions not defined in project %q", p.name)
	}

	f, err := os.Open(name)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	tb, err := sampfrac.ReadTSV(f)
	if err != nil {
		return nil, fmt.Errorf("on file %q: %v", name, err)
	}
	return tb, nil
}
