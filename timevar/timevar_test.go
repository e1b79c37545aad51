// Copyright © 2025 J. Salvador Arias <jsalarias@gmail.com>
// All rights reserved.
// Distributed under BSD2 license that can be found in the LICENSE file.

package timevar_test

import (
	"math"
	"testing"

	"github.com/cran/BAMMtools/event"
	"github.com/cran/BAMMtools/phylo"
	"github.com/cran/BAMMtools/timevar"
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

func newSamples(t testing.TB, tr *phylo.Tree) []event.Sample {
	t.Helper()

	return []event.Sample{
		// time dependent root regime
		assign(t, tr, []event.Event{{Node: 5, Lam1: 0.1, Lam2: -0.5}}),
		// constant root regime
		assign(t, tr, []event.Event{{Node: 5, Lam1: 0.1}}),
		// constant root regime,
		// time dependent shift on the branch to node 7
		assign(t, tr, []event.Event{
			{Node: 5, Lam1: 0.1},
			{Node: 7, Time: 0.5, Lam1: 0.3, Lam2: -0.3},
		}),
	}
}

func TestPosterior(t *testing.T) {
	tr := newBalanced(t)
	samples := newSamples(t, tr)

	et, err := timevar.Branches(tr, samples, 0, timevar.Posterior)
	if err != nil {
		t.Fatalf("unable to compute evidence: %v", err)
	}
	if g := et.NBranches(); g != tr.NBranches() {
		t.Fatalf("branches: got %d, want %d", g, tr.NBranches())
	}

	third := 1.0 / 3
	want := map[int]float64{
		1: third,     // tip A: only sample 1
		2: third,     // tip B
		6: third,     // node 6
		3: 2 * third, // tip C: samples 1 and 3
		4: 2 * third, // tip D
		7: 2 * third, // node 7
	}
	for n, w := range want {
		b := et.BranchOf(n)
		if g := et.Length(b); math.Abs(g-w) > 1e-10 {
			t.Errorf("node %d: posterior: got %.6f, want %.6f", n, g, w)
		}
	}
}

// TestBayesFactor checks that with a 0.5 prior
// the Bayes factor is the posterior odds ratio.
func TestBayesFactor(t *testing.T) {
	tr := newBalanced(t)
	samples := newSamples(t, tr)

	pt, err := timevar.Branches(tr, samples, 0.5, timevar.Posterior)
	if err != nil {
		t.Fatalf("unable to compute posterior: %v", err)
	}
	bt, err := timevar.Branches(tr, samples, 0.5, timevar.BayesFactor)
	if err != nil {
		t.Fatalf("unable to compute bayes factor: %v", err)
	}

	for b := 0; b < tr.NBranches(); b++ {
		p := pt.Length(b)
		want := p / (1 - p)
		if g := bt.Length(b); math.Abs(g-want) > 1e-10 {
			t.Errorf("branch %d: bayes factor: got %.6f, want %.6f", b, g, want)
		}
	}
}

func TestBranchesInvalid(t *testing.T) {
	tr := newBalanced(t)
	samples := newSamples(t, tr)

	if _, err := timevar.Branches(tr, samples, 0.5, timevar.Kind(10)); err == nil {
		t.Errorf("unknown kind: expecting error")
	}
	if _, err := timevar.Branches(tr, samples, 0, timevar.BayesFactor); err == nil {
		t.Errorf("zero prior: expecting error")
	}
	if _, err := timevar.Branches(tr, samples, 1, timevar.BayesFactor); err == nil {
		t.Errorf("unit prior: expecting error")
	}
	if _, err := timevar.Branches(tr, nil, 0.5, timevar.Posterior); err == nil {
		t.Errorf("no samples: expecting error")
	}
}

func TestParseKind(t *testing.T) {
	for _, s := range []string{"posterior", "bayesfactor"} {
		k, err := timevar.ParseKind(s)
		if err != nil {
			t.Fatalf("unable to parse %q: %v", s, err)
		}
		if g := k.String(); g != s {
			t.Errorf("kind: got %q, want %q", g, s)
		}
	}
	if _, err := timevar.ParseKind("odds"); err != nil {
		return
	}
	t.Errorf("unknown keyword: expecting error")
}
