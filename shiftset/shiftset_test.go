// Copyright © 2025 J. Salvador Arias <jsalarias@gmail.com>
// All rights reserved.
// Distributed under BSD2 license that can be found in the LICENSE file.

package shiftset_test

import (
	"math"
	"reflect"
	"testing"

	"github.com/cran/BAMMtools/event"
	"github.com/cran/BAMMtools/phylo"
	"github.com/cran/BAMMtools/shiftset"
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

func assign(t testing.TB, tr *phylo.Tree, evs []event.Event) event.Sample {
	t.Helper()

	s, err := event.Assign(tr, evs)
	if err != nil {
		t.Fatalf("unable to assign events: %v", err)
	}
	return s
}

// newScenario returns four posterior samples:
// two with a shift on node 6,
// one with shifts on nodes 6 and 7,
// and one without shifts.
func newScenario(t testing.TB, tr *phylo.Tree) []event.Sample {
	t.Helper()

	return []event.Sample{
		assign(t, tr, []event.Event{
			{Node: 5, Lam1: 0.1},
			{Node: 6, Time: 0.5, Lam1: 0.2},
		}),
		assign(t, tr, []event.Event{
			{Node: 5, Lam1: 0.1},
			{Node: 6, Time: 0.7, Lam1: 0.4},
		}),
		assign(t, tr, []event.Event{
			{Node: 5, Lam1: 0.1},
			{Node: 6, Time: 0.6, Lam1: 0.3},
			{Node: 7, Time: 0.5, Lam1: 0.6},
		}),
		assign(t, tr, []event.Event{
			{Node: 5, Lam1: 0.1},
		}),
	}
}

func TestBranchPriors(t *testing.T) {
	tr := newBalanced(t)

	prior, err := shiftset.BranchPriors(tr, 1)
	if err != nil {
		t.Fatalf("unable to compute priors: %v", err)
	}
	if len(prior) != tr.NBranches() {
		t.Fatalf("got %d priors, want %d", len(prior), tr.NBranches())
	}
	// rate = 1 / 8
	for b := 0; b < tr.NBranches(); b++ {
		want := 1 - math.Exp(-tr.Length(b)/8)
		if g := prior[b]; math.Abs(g-want) > 1e-10 {
			t.Errorf("branch %d: prior: got %.6f, want %.6f", b, g, want)
		}
	}

	if _, err := shiftset.BranchPriors(tr, 0); err == nil {
		t.Errorf("zero expected shifts: expecting error")
	}
}

func TestMarginalProbs(t *testing.T) {
	tr := newBalanced(t)
	samples := newScenario(t, tr)

	post := shiftset.MarginalProbs(tr, samples)
	want := map[int]float64{
		tr.BranchOf(6): 0.75,
		tr.BranchOf(7): 0.25,
		tr.BranchOf(1): 0,
	}
	for b, w := range want {
		if g := post[b]; math.Abs(g-w) > 1e-10 {
			t.Errorf("branch %d: marginal probability: got %.6f, want %.6f", b, g, w)
		}
	}
}

func TestDistinct(t *testing.T) {
	tr := newBalanced(t)
	samples := newScenario(t, tr)

	cs, err := shiftset.Distinct(tr, samples, 1, 0)
	if err != nil {
		t.Fatalf("unable to cluster configurations: %v", err)
	}
	if len(cs) != 3 {
		t.Fatalf("got %d configurations, want 3", len(cs))
	}

	if g := cs[0].Nodes; !reflect.DeepEqual(g, []int{6}) {
		t.Errorf("rank 1: nodes: got %v, want %v", g, []int{6})
	}
	if g := cs[1].Nodes; !reflect.DeepEqual(g, []int{6, 7}) {
		t.Errorf("rank 2: nodes: got %v, want %v", g, []int{6, 7})
	}
	if len(cs[2].Nodes) != 0 {
		t.Errorf("rank 3: nodes: got %v, want empty", cs[2].Nodes)
	}

	freqs := []float64{0.5, 0.25, 0.25}
	cum := 0.0
	total := 0.0
	for i, c := range cs {
		if math.Abs(c.Freq-freqs[i]) > 1e-10 {
			t.Errorf("rank %d: frequency: got %.6f, want %.6f", i+1, c.Freq, freqs[i])
		}
		cum += c.Freq
		if math.Abs(c.CumFreq-cum) > 1e-10 {
			t.Errorf("rank %d: cumulative: got %.6f, want %.6f", i+1, c.CumFreq, cum)
		}
		total += c.Freq
	}
	if math.Abs(total-1) > 1e-10 {
		t.Errorf("total frequency: got %.6f, want 1", total)
	}

	// every sample in exactly one configuration
	used := make(map[int]bool)
	for _, c := range cs {
		for _, s := range c.Samples {
			if used[s] {
				t.Errorf("sample %d in more than one configuration", s)
			}
			used[s] = true
		}
	}
	if len(used) != len(samples) {
		t.Errorf("got %d assigned samples, want %d", len(used), len(samples))
	}
}

// TestThreshold checks that raising the threshold
// never increases the number
// of distinct configurations.
func TestThreshold(t *testing.T) {
	tr := newBalanced(t)
	samples := newScenario(t, tr)

	prev := math.MaxInt
	for _, threshold := range []float64{0, 1, 5, 1e6} {
		cs, err := shiftset.Distinct(tr, samples, 1, threshold)
		if err != nil {
			t.Fatalf("threshold %.6f: unable to cluster configurations: %v", threshold, err)
		}
		if len(cs) > prev {
			t.Errorf("threshold %.6f: got %d configurations, more than %d", threshold, len(cs), prev)
		}
		prev = len(cs)
	}

	// with an impossible threshold
	// all samples collapse to the empty configuration
	cs, err := shiftset.Distinct(tr, samples, 1, 1e6)
	if err != nil {
		t.Fatalf("unable to cluster configurations: %v", err)
	}
	if len(cs) != 1 {
		t.Fatalf("got %d configurations, want 1", len(cs))
	}
	if g := cs[0].Freq; g != 1 {
		t.Errorf("frequency: got %.6f, want 1", g)
	}
}

func TestCredible(t *testing.T) {
	tr := newBalanced(t)
	samples := newScenario(t, tr)

	set, err := shiftset.Credible(tr, samples, shiftset.Options{
		ExpectedShifts: 1,
		Threshold:      0,
		Limit:          0.75,
	})
	if err != nil {
		t.Fatalf("unable to build credible set: %v", err)
	}
	if len(set.Configs) != 2 {
		t.Fatalf("got %d configurations, want 2", len(set.Configs))
	}
	if g := set.Configs[1].CumFreq; math.Abs(g-0.75) > 1e-10 {
		t.Errorf("last cumulative: got %.6f, want %.6f", g, 0.75)
	}

	// averaged shift on node 6:
	// samples 0 and 1,
	// times 0.5 and 0.7,
	// lam1 0.2 and 0.4
	c := set.Configs[0]
	if len(c.Shifts) != 1 {
		t.Fatalf("rank 1: got %d shifts, want 1", len(c.Shifts))
	}
	sh := c.Shifts[0]
	if sh.Node != 6 {
		t.Errorf("rank 1: shift node: got %d, want 6", sh.Node)
	}
	if math.Abs(sh.Time-0.6) > 1e-10 {
		t.Errorf("rank 1: shift time: got %.6f, want %.6f", sh.Time, 0.6)
	}
	if math.Abs(sh.Lam1-0.3) > 1e-10 {
		t.Errorf("rank 1: shift lam1: got %.6f, want %.6f", sh.Lam1, 0.3)
	}

	// tip A is governed by the node 6 shift
	// in both assigned samples
	if g := c.TipLambda[0]; math.Abs(g-0.3) > 1e-10 {
		t.Errorf("rank 1: tip A rate: got %.6f, want %.6f", g, 0.3)
	}
	// tip C keeps the root regime
	if g := c.TipLambda[2]; math.Abs(g-0.1) > 1e-10 {
		t.Errorf("rank 1: tip C rate: got %.6f, want %.6f", g, 0.1)
	}
}

func TestCredibleInvalid(t *testing.T) {
	tr := newBalanced(t)
	samples := newScenario(t, tr)

	tests := map[string]shiftset.Options{
		"zero limit":     {ExpectedShifts: 1, Limit: 0},
		"limit above 1":  {ExpectedShifts: 1, Limit: 1.5},
		"bad policy":     {ExpectedShifts: 1, Limit: 0.9, Match: shiftset.MatchPolicy(10)},
		"bad window":     {ExpectedShifts: 1, Limit: 0.9, Match: shiftset.MatchNodeTime},
		"bad threshold":  {ExpectedShifts: 1, Limit: 0.9, Threshold: -1},
		"no prior shift": {ExpectedShifts: 0, Limit: 0.9},
	}
	for name, o := range tests {
		if _, err := shiftset.Credible(tr, samples, o); err == nil {
			t.Errorf("%s: expecting error", name)
		}
	}
}

func TestMatchNodeTime(t *testing.T) {
	tr := newBalanced(t)
	samples := newScenario(t, tr)

	set, err := shiftset.Credible(tr, samples, shiftset.Options{
		ExpectedShifts: 1,
		Threshold:      0,
		Limit:          0.75,
		Match:          shiftset.MatchNodeTime,
		Window:         0.1,
	})
	if err != nil {
		t.Fatalf("unable to build credible set: %v", err)
	}

	// with a 0.1 window around the first event (time 0.5)
	// the shift at time 0.7 is left out of the average
	sh := set.Configs[0].Shifts[0]
	if math.Abs(sh.Time-0.5) > 1e-10 {
		t.Errorf("shift time: got %.6f, want %.6f", sh.Time, 0.5)
	}
	if math.Abs(sh.Lam1-0.2) > 1e-10 {
		t.Errorf("shift lam1: got %.6f, want %.6f", sh.Lam1, 0.2)
	}
}
