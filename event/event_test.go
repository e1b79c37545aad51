// Copyright © 2025 J. Salvador Arias <jsalarias@gmail.com>
// All rights reserved.
// Distributed under BSD2 license that can be found in the LICENSE file.

package event_test

import (
	"bytes"
	"fmt"
	"math"
	"strings"
	"testing"

	"github.com/cran/BAMMtools/event"
	"github.com/cran/BAMMtools/phylo"
)

func newBalanced(t testing.TB) *phylo.Tree {
	t.Helper()

	tips := []string{"A", "B", "C", "D"}
	edges := [][2]int{{5, 6}, {6, 1}, {6, 2}, {5, 7}, {7, 3}, {7, 4}}
	lengths := []float64{1, 1, 1, 1, 2, 2}
	tr, err := phylo.New(tips, edges, lengths)
	if err != nil {
		t.Fatalf("unable to build tree: %v", err)
	}
	return tr
}

func TestRate(t *testing.T) {
	if g := event.Rate(0.1, 0, 0, 5); g != 0.1 {
		t.Errorf("constant rate: got %.6f, want %.6f", g, 0.1)
	}

	want := 0.1 * math.Exp(-0.5*2)
	if g := event.Rate(0.1, -0.5, 1, 3); math.Abs(g-want) > 1e-10 {
		t.Errorf("decaying rate: got %.6f, want %.6f", g, want)
	}

	e := event.Event{Time: 1, Lam1: 0.1, Lam2: -0.5, Mu1: 0.05}
	if g := e.Speciation(3); math.Abs(g-want) > 1e-10 {
		t.Errorf("speciation rate: got %.6f, want %.6f", g, want)
	}
	if g := e.Extinction(3); g != 0.05 {
		t.Errorf("extinction rate: got %.6f, want %.6f", g, 0.05)
	}
}

func TestAssign(t *testing.T) {
	tr := newBalanced(t)

	// a shift in the middle of the branch to node 7
	// and a second shift on the branch to tip C
	evs := []event.Event{
		{Node: 5, Time: 0, Lam1: 0.1, Mu1: 0.05},
		{Node: 7, Time: 0.5, Lam1: 0.3, Lam2: -0.1, Mu1: 0.02},
		{Node: 3, Time: 2, Lam1: 0.5},
	}
	s, err := event.Assign(tr, evs)
	if err != nil {
		t.Fatalf("unable to assign events: %v", err)
	}

	testPartition(t, tr, s)

	// the branch to node 7 must be split in two
	var segs []event.Segment
	for _, sg := range s.Segments {
		if sg.Node == 7 {
			segs = append(segs, sg)
		}
	}
	if len(segs) != 2 {
		t.Fatalf("node 7: got %d segments, want 2", len(segs))
	}
	if g := s.Events[segs[0].Event].Node; g != 5 {
		t.Errorf("node 7, first segment: governed by event on node %d, want 5", g)
	}
	if g := s.Events[segs[1].Event].Node; g != 7 {
		t.Errorf("node 7, second segment: governed by event on node %d, want 7", g)
	}

	// the shift on node 7 governs the branch to tip D
	ev, err := s.TipwardEvent(tr, 4)
	if err != nil {
		t.Fatalf("tipward event of node 4: %v", err)
	}
	if ev.Node != 7 {
		t.Errorf("tipward event of node 4: event on node %d, want 7", ev.Node)
	}

	// the shift on tip C overrides the shift on node 7
	ev, err = s.TipwardEvent(tr, 3)
	if err != nil {
		t.Fatalf("tipward event of node 3: %v", err)
	}
	if ev.Node != 3 {
		t.Errorf("tipward event of node 3: event on node %d, want 3", ev.Node)
	}

	// tip rate at tip C: constant 0.5
	if g := s.TipRate(tr, 3); math.Abs(g-0.5) > 1e-10 {
		t.Errorf("tip rate of node 3: got %.6f, want %.6f", g, 0.5)
	}
}

func TestAssignBaseline(t *testing.T) {
	tr := newBalanced(t)

	s, err := event.Assign(tr, nil)
	if err != nil {
		t.Fatalf("unable to assign events: %v", err)
	}
	if len(s.Events) != 1 {
		t.Fatalf("got %d events, want 1", len(s.Events))
	}
	e := s.Events[0]
	if e.Node != tr.Root() || e.Time != 0 || e.Lam1 != 0 {
		t.Errorf("baseline event: got %+v", e)
	}
	testPartition(t, tr, s)
}

func TestAssignInvalid(t *testing.T) {
	tr := newBalanced(t)

	tests := map[string][]event.Event{
		"invalid node":       {{Node: 20, Time: 1}},
		"time out of span":   {{Node: 1, Time: 0.5}},
		"root event in time": {{Node: 5, Time: 1}},
	}
	for name, evs := range tests {
		if _, err := event.Assign(tr, evs); err == nil {
			t.Errorf("%s: expecting error", name)
		}
	}
}

// testPartition checks that the segments of a sample
// cover every branch of the tree exactly,
// without gaps or overlaps,
// and that no event governs a time before its origin.
func testPartition(t testing.TB, tr *phylo.Tree, s event.Sample) {
	t.Helper()

	byNode := make(map[int][]event.Segment)
	for _, sg := range s.Segments {
		byNode[sg.Node] = append(byNode[sg.Node], sg)
		e := s.Events[sg.Event]
		if e.Time > sg.Begin+1e-8 {
			t.Errorf("node %d: segment [%.6f, %.6f) governed by later event at %.6f", sg.Node, sg.Begin, sg.End, e.Time)
		}
	}

	for b := 0; b < tr.NBranches(); b++ {
		n := tr.Child(b)
		segs := byNode[n]
		if len(segs) == 0 {
			t.Errorf("node %d: branch without segments", n)
			continue
		}
		if g := segs[0].Begin; g != tr.Begin(b) {
			t.Errorf("node %d: first segment begins at %.6f, want %.6f", n, g, tr.Begin(b))
		}
		for i := 1; i < len(segs); i++ {
			if segs[i].Begin != segs[i-1].End {
				t.Errorf("node %d: gap or overlap between segments at %.6f and %.6f", n, segs[i-1].End, segs[i].Begin)
			}
		}
		if g := segs[len(segs)-1].End; g != tr.End(b) {
			t.Errorf("node %d: last segment ends at %.6f, want %.6f", n, g, tr.End(b))
		}
	}
}

func TestCSV(t *testing.T) {
	tr := newBalanced(t)

	samples := make([]event.Sample, 0, 2)
	s1, err := event.Assign(tr, []event.Event{
		{Node: 5, Time: 0, Lam1: 0.1, Mu1: 0.05},
		{Node: 7, Time: 0.5, Lam1: 0.3, Lam2: -0.1},
	})
	if err != nil {
		t.Fatalf("unable to assign events: %v", err)
	}
	s2, err := event.Assign(tr, []event.Event{
		{Node: 5, Time: 0, Lam1: 0.12, Mu1: 0.04},
	})
	if err != nil {
		t.Fatalf("unable to assign events: %v", err)
	}
	samples = append(samples, s1, s2)

	var w bytes.Buffer
	if err := event.WriteCSV(&w, samples); err != nil {
		t.Fatalf("unable to write event data: %v", err)
	}
	out := w.String()
	if !strings.Contains(out, "node,time,lam1,lam2,mu1,mu2,index") {
		t.Errorf("output without canonical header:\n%s", out)
	}

	ns, err := event.ReadCSV(strings.NewReader(out), tr, event.ReadOptions{})
	if err != nil {
		t.Fatalf("unable to read event data: %v", err)
	}
	if len(ns) != 2 {
		t.Fatalf("got %d samples, want 2", len(ns))
	}
	for i, s := range ns {
		if len(s.Events) != len(samples[i].Events) {
			t.Errorf("sample %d: got %d events, want %d", i, len(s.Events), len(samples[i].Events))
		}
		testPartition(t, tr, s)
	}
	if g := ns[0].Events[1].Lam1; math.Abs(g-0.3) > 1e-6 {
		t.Errorf("sample 0: shift lam1: got %.6f, want %.6f", g, 0.3)
	}
}

func TestReadOptions(t *testing.T) {
	tr := newBalanced(t)

	rows := []string{"node,time,lam1,lam2,mu1,mu2,index"}
	for i := 1; i <= 10; i++ {
		rows = append(rows, fmt.Sprintf("5,0.000000,0.100000,0.000000,0.050000,0.000000,%d", i))
	}
	data := strings.Join(rows, "\n")

	ns, err := event.ReadCSV(strings.NewReader(data), tr, event.ReadOptions{Burnin: 0.5})
	if err != nil {
		t.Fatalf("unable to read event data: %v", err)
	}
	if len(ns) != 5 {
		t.Errorf("burn-in 0.5: got %d samples, want 5", len(ns))
	}

	ns, err = event.ReadCSV(strings.NewReader(data), tr, event.ReadOptions{Thin: 2})
	if err != nil {
		t.Fatalf("unable to read event data: %v", err)
	}
	if len(ns) != 5 {
		t.Errorf("thin 2: got %d samples, want 5", len(ns))
	}

	if _, err := event.ReadCSV(strings.NewReader(data), tr, event.ReadOptions{Burnin: 1}); err == nil {
		t.Errorf("burn-in 1: expecting error")
	}
	if _, err := event.ReadCSV(strings.NewReader(data), tr, event.ReadOptions{Thin: -1}); err == nil {
		t.Errorf("thin -1: expecting error")
	}
}
