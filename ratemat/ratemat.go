// Copyright © 2025 J. Salvador Arias <jsalarias@gmail.com>
// All rights reserved.
// Distributed under BSD2 license that can be found in the LICENSE file.

// Package ratemat implements the rate through time matrix
// of a collection of posterior samples.
//
// The matrix is built by sampling the tree
// with a uniform grid of time points:
// at each grid point,
// the rate of a sample is the mean
// of the instantaneous rates
// of all branch segments alive at that time.
package ratemat

import (
	"fmt"
	"math"

	"github.com/cran/BAMMtools/event"
	"github.com/cran/BAMMtools/phylo"
	"gonum.org/v1/gonum/floats"
)

// timeTol is the tolerance used to compare a grid time
// with the time span of a branch segment.
const timeTol = 1e-5

// Type indicates the kind of analysis
// stored in a rate matrix.
type Type int

// Valid analysis types.
const (
	// Diversification analyses store speciation
	// and extinction rates.
	Diversification Type = iota

	// Trait analyses store the rate
	// of phenotypic evolution.
	Trait
)

func (ty Type) String() string {
	switch ty {
	case Diversification:
		return "diversification"
	case Trait:
		return "trait"
	}
	return "unknown"
}

// ParseType returns the analysis type
// for a given keyword.
func ParseType(s string) (Type, error) {
	switch s {
	case "diversification":
		return Diversification, nil
	case "trait":
		return Trait, nil
	}
	return 0, fmt.Errorf("unknown analysis type %q", s)
}

// Options are the options used
// to build a rate through time matrix.
type Options struct {
	// Start and End define the time window
	// of the matrix,
	// in absolute time.
	// If both are zero,
	// the window spans from the root
	// to the most recent tip.
	Start float64
	End   float64

	// Node restricts the matrix
	// to the subtree rooted at the given node.
	// The zero value means the whole tree.
	Node int

	// Exclude inverts the node restriction:
	// the subtree rooted at Node
	// is removed from the matrix.
	Exclude bool

	// Slices is the number of time points
	// of the grid.
	// It must be at least 2.
	Slices int
}

// A Matrix is a rate through time matrix:
// one row per posterior sample,
// one column per time slice.
//
// In a diversification analysis
// Lambda holds speciation rates
// and Mu extinction rates;
// in a trait analysis
// Beta holds the rate of phenotypic evolution.
// A cell is NaN when no branch segment
// was alive at the slice time
// for that sample.
type Matrix struct {
	Type   Type
	Times  []float64
	Lambda [][]float64
	Mu     [][]float64
	Beta   [][]float64
}

// Compute builds the rate through time matrix
// of a collection of posterior samples
// on a tree.
func Compute(t *phylo.Tree, samples []event.Sample, typ Type, o Options) (*Matrix, error) {
	switch typ {
	case Diversification, Trait:
	default:
		return nil, fmt.Errorf("unknown analysis type %d", typ)
	}
	if len(samples) == 0 {
		return nil, fmt.Errorf("no posterior samples given")
	}
	if o.Slices < 2 {
		return nil, fmt.Errorf("invalid number of slices %d", o.Slices)
	}
	if o.Node != 0 {
		if o.Node < 1 || o.Node > t.NNodes() {
			return nil, fmt.Errorf("invalid node %d", o.Node)
		}
	} else if o.Exclude {
		return nil, fmt.Errorf("exclude without a node")
	}
	start, end := o.Start, o.End
	if end == 0 {
		end = t.Age()
	}
	if end <= start {
		return nil, fmt.Errorf("invalid time window [%.6f, %.6f]", start, end)
	}

	m := &Matrix{
		Type:  typ,
		Times: floats.Span(make([]float64, o.Slices), start, end),
	}
	switch typ {
	case Diversification:
		m.Lambda = newRows(len(samples), o.Slices)
		m.Mu = newRows(len(samples), o.Slices)
	case Trait:
		m.Beta = newRows(len(samples), o.Slices)
	}

	for i, s := range samples {
		for j, tm := range m.Times {
			var sumL, sumM float64
			var num int
			for _, sg := range s.Segments {
				if tm < sg.Begin-timeTol || tm > sg.End+timeTol {
					continue
				}
				if o.Node != 0 {
					in := t.Descendant(o.Node, sg.Node)
					if o.Exclude {
						if in {
							continue
						}
					} else if !in {
						continue
					}
				}
				e := s.Events[sg.Event]
				sumL += e.Speciation(tm)
				sumM += e.Extinction(tm)
				num++
			}

			lv, mv := math.NaN(), math.NaN()
			if num > 0 {
				lv = sumL / float64(num)
				mv = sumM / float64(num)
			}
			switch typ {
			case Diversification:
				m.Lambda[i][j] = lv
				m.Mu[i][j] = mv
			case Trait:
				m.Beta[i][j] = lv
			}
		}
	}
	return m, nil
}

func newRows(rows, cols int) [][]float64 {
	m := make([][]float64, rows)
	for i := range m {
		m[i] = make([]float64, cols)
	}
	return m
}

// NSamples returns the number of posterior samples
// (rows) of the matrix.
func (m *Matrix) NSamples() int {
	if m.Type == Trait {
		return len(m.Beta)
	}
	return len(m.Lambda)
}

// NSlices returns the number of time slices
// (columns) of the matrix.
func (m *Matrix) NSlices() int {
	return len(m.Times)
}
