// Copyright © 2025 J. Salvador Arias <jsalarias@gmail.com>
// All rights reserved.
// Distributed under BSD2 license that can be found in the LICENSE file.

// Package event implements rate shift events
// sampled from the posterior distribution
// of a macroevolutionary rate analysis.
//
// A posterior sample is a collection of shift events
// placed on the branches of a tree.
// Each branch is divided into segments,
// each one governed by a single event:
// the most recent event
// on the path from the root to the segment.
package event

import (
	"fmt"
	"math"

	"github.com/cran/BAMMtools/phylo"
)

// timeTol is the tolerance used to compare branch times.
const timeTol = 1e-8

// An Event is a rate shift event on a tree.
//
// An event is anchored to the branch
// that ends at the given node,
// at an absolute time inside that branch.
// Rates follow an exponential function of time:
// an initial rate at the origin of the event
// and an exponential shape parameter;
// a zero shape parameter means a constant rate.
type Event struct {
	Node int     // node at the tipward end of the branch
	Time float64 // absolute origin time

	// Speciation (or trait) rate parameters
	Lam1 float64
	Lam2 float64

	// Extinction rate parameters
	Mu1 float64
	Mu2 float64
}

// Rate returns the instantaneous rate at time t
// for a rate function with initial rate r1,
// shape parameter r2,
// and origin time t0.
// It must be called with t >= t0.
func Rate(r1, r2, t0, t float64) float64 {
	if r2 == 0 {
		return r1
	}
	return r1 * math.Exp(r2*(t-t0))
}

// Speciation returns the instantaneous speciation
// (or trait) rate of the event at time t.
func (e Event) Speciation(t float64) float64 {
	return Rate(e.Lam1, e.Lam2, e.Time, t)
}

// Extinction returns the instantaneous extinction rate
// of the event at time t.
func (e Event) Extinction(t float64) float64 {
	return Rate(e.Mu1, e.Mu2, e.Time, t)
}

// IsTimeVarying reports whether the speciation rate
// of the event changes over time.
// The shape parameter is compared
// against ten times the machine epsilon,
// so rates that decay slower than that
// are taken as constant.
func (e Event) IsTimeVarying() bool {
	eps := math.Nextafter(1, 2) - 1
	return math.Abs(e.Lam2) > 10*eps
}

// A Segment is the portion of a branch
// governed by a single event.
// The segment spans the absolute times
// [Begin, End) of its branch,
// and Event is the index of the governing event
// in the sample that owns the segment.
type Segment struct {
	Node  int
	Begin float64
	End   float64
	Event int
}

// A Sample is a single draw
// from the posterior distribution
// of shift configurations.
//
// Events holds the shift events of the sample;
// the first event is always the root regime,
// a baseline event at time 0.
// Segments covers every branch of the tree exactly,
// in pre-order,
// with the segments of a branch in time order.
type Sample struct {
	Events   []Event
	Segments []Segment
}

// Assign builds a posterior sample
// from a set of events on a tree.
//
// If no event is given for the root regime
// (an event at the root node, at time 0),
// a zero-rate baseline event is added,
// so every branch has a governing event.
func Assign(t *phylo.Tree, events []Event) (Sample, error) {
	root := t.Root()

	evs := make([]Event, 0, len(events)+1)
	rootEv := -1
	for _, e := range events {
		if e.Node == root {
			if e.Time > timeTol {
				return Sample{}, fmt.Errorf("event at root node %d with time %.6f", e.Node, e.Time)
			}
			if rootEv >= 0 {
				return Sample{}, fmt.Errorf("multiple root regime events")
			}
			rootEv = len(evs)
		}
		evs = append(evs, e)
	}
	if rootEv < 0 {
		// baseline root regime
		rootEv = len(evs)
		evs = append(evs, Event{Node: root})
	}

	// events per branch, in time order
	onBranch := make(map[int][]int, len(evs))
	for i, e := range evs {
		if e.Node == root {
			continue
		}
		b := t.BranchOf(e.Node)
		if b < 0 {
			return Sample{}, fmt.Errorf("event on invalid node %d", e.Node)
		}
		if e.Time < t.Begin(b)-timeTol || e.Time > t.End(b)+timeTol {
			return Sample{}, fmt.Errorf("event on node %d: time %.6f outside branch span [%.6f, %.6f]", e.Node, e.Time, t.Begin(b), t.End(b))
		}
		ls := onBranch[e.Node]
		pos := len(ls)
		for j, o := range ls {
			if evs[o].Time > e.Time {
				pos = j
				break
			}
		}
		ls = append(ls, 0)
		copy(ls[pos+1:], ls[pos:])
		ls[pos] = i
		onBranch[e.Node] = ls
	}

	s := Sample{
		Events:   evs,
		Segments: make([]Segment, 0, t.NBranches()+len(evs)),
	}

	var walk func(n, gov int)
	walk = func(n, gov int) {
		for _, c := range t.Children(n) {
			b := t.BranchOf(c)
			cur := t.Begin(b)
			g := gov
			for _, i := range onBranch[c] {
				if evs[i].Time > cur+timeTol {
					s.Segments = append(s.Segments, Segment{
						Node:  c,
						Begin: cur,
						End:   evs[i].Time,
						Event: g,
					})
					cur = evs[i].Time
				}
				g = i
			}
			if t.End(b) > cur+timeTol || cur == t.Begin(b) {
				s.Segments = append(s.Segments, Segment{
					Node:  c,
					Begin: cur,
					End:   t.End(b),
					Event: g,
				})
			}
			walk(c, g)
		}
	}
	walk(root, rootEv)

	return s, nil
}

// TipRate returns the instantaneous speciation
// (or trait) rate at the tipward end
// of the branch that arrives to a tip node.
func (s Sample) TipRate(t *phylo.Tree, tip int) float64 {
	b := t.BranchOf(tip)
	if b < 0 {
		return math.NaN()
	}
	end := t.End(b)
	for _, sg := range s.Segments {
		if sg.Node != tip {
			continue
		}
		if sg.End+timeTol >= end {
			return s.Events[sg.Event].Speciation(end)
		}
	}
	return math.NaN()
}

// TipwardEvent returns the event that governs
// the tipward end of the branch
// that ends at the given node.
func (s Sample) TipwardEvent(t *phylo.Tree, n int) (Event, error) {
	b := t.BranchOf(n)
	if b < 0 {
		return Event{}, fmt.Errorf("node %d: no branch ends at node", n)
	}
	end := t.End(b)
	for _, sg := range s.Segments {
		if sg.Node != n {
			continue
		}
		if sg.End+timeTol >= end {
			return s.Events[sg.Event], nil
		}
	}
	return Event{}, fmt.Errorf("node %d: no segment at branch end", n)
}
