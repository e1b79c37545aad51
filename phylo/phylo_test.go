// Copyright © 2025 J. Salvador Arias <jsalarias@gmail.com>
// All rights reserved.
// Distributed under BSD2 license that can be found in the LICENSE file.

package phylo_test

import (
	"bytes"
	"math"
	"reflect"
	"strings"
	"testing"

	"github.com/cran/BAMMtools/phylo"
	"github.com/js-arias/timetree"
)

// newBalanced returns a four tip balanced tree:
//
//	((A:1,B:1):1,(C:2,D:2):1);
//
// with the root (node 5) at time 0.
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

func TestNew(t *testing.T) {
	tr := newBalanced(t)

	if g := tr.NTips(); g != 4 {
		t.Errorf("tips: got %d, want %d", g, 4)
	}
	if g := tr.NNodes(); g != 7 {
		t.Errorf("nodes: got %d, want %d", g, 7)
	}
	if g := tr.Root(); g != 5 {
		t.Errorf("root: got node %d, want %d", g, 5)
	}
	if g := tr.Age(); g != 3 {
		t.Errorf("age: got %.6f, want %.6f", g, 3.0)
	}
	if g := tr.TreeLength(); g != 8 {
		t.Errorf("tree length: got %.6f, want %.6f", g, 8.0)
	}
	if g := tr.Tips(); !reflect.DeepEqual(g, []string{"A", "B", "C", "D"}) {
		t.Errorf("tip names: got %v", g)
	}

	// branch times
	times := map[int][2]float64{
		1: {1, 2}, // A
		2: {1, 2}, // B
		3: {1, 3}, // C
		4: {1, 3}, // D
		6: {0, 1},
		7: {0, 1},
	}
	for n, w := range times {
		b := tr.BranchOf(n)
		if b < 0 {
			t.Fatalf("node %d: no branch", n)
		}
		if g := tr.Begin(b); g != w[0] {
			t.Errorf("node %d: begin: got %.6f, want %.6f", n, g, w[0])
		}
		if g := tr.End(b); g != w[1] {
			t.Errorf("node %d: end: got %.6f, want %.6f", n, g, w[1])
		}
	}
	if b := tr.BranchOf(5); b != -1 {
		t.Errorf("root branch: got %d, want -1", b)
	}
}

func TestDescendant(t *testing.T) {
	tr := newBalanced(t)

	desc := map[int][]int{
		5: {1, 2, 3, 4, 5, 6, 7},
		6: {1, 2, 6},
		7: {3, 4, 7},
		1: {1},
	}
	for anc, nodes := range desc {
		in := make(map[int]bool, len(nodes))
		for _, n := range nodes {
			in[n] = true
		}
		for n := 1; n <= tr.NNodes(); n++ {
			if g := tr.Descendant(anc, n); g != in[n] {
				t.Errorf("descendant of %d: node %d: got %v, want %v", anc, n, g, in[n])
			}
		}
	}
}

func TestNewick(t *testing.T) {
	tr := newBalanced(t)

	var w bytes.Buffer
	if err := tr.Newick(&w); err != nil {
		t.Fatalf("unable to write newick: %v", err)
	}
	want := "((A:1.000000,B:1.000000):1.000000,(C:2.000000,D:2.000000):1.000000);\n"
	if g := w.String(); g != want {
		t.Errorf("newick: got %q, want %q", g, want)
	}
}

func TestWithBranchLengths(t *testing.T) {
	tr := newBalanced(t)

	vals := []float64{0.5, 0.25, 0.25, 0.5, 1, 1}
	nt, err := tr.WithBranchLengths(vals)
	if err != nil {
		t.Fatalf("unable to replace branch lengths: %v", err)
	}
	for b := 0; b < nt.NBranches(); b++ {
		if g := nt.Length(b); g != vals[b] {
			t.Errorf("branch %d: length: got %.6f, want %.6f", b, g, vals[b])
		}
	}
	if g, w := nt.Root(), tr.Root(); g != w {
		t.Errorf("root: got %d, want %d", g, w)
	}
	if g := tr.Length(0); g != 1 {
		t.Errorf("source tree modified: branch 0 length %.6f", g)
	}
}

func TestFromTimeTree(t *testing.T) {
	c, err := timetree.Newick(strings.NewReader("((A:1,B:1):1,(C:2,D:2):1);"), "balanced", 0)
	if err != nil {
		t.Fatalf("unable to read newick tree: %v", err)
	}
	name := c.Names()[0]
	tr, err := phylo.FromTimeTree(c.Tree(name))
	if err != nil {
		t.Fatalf("unable to build tree: %v", err)
	}

	if g := tr.NTips(); g != 4 {
		t.Errorf("tips: got %d, want %d", g, 4)
	}
	if g := tr.NNodes(); g != 7 {
		t.Errorf("nodes: got %d, want %d", g, 7)
	}
	if g := tr.Age(); math.Abs(g-3) > 1e-6 {
		t.Errorf("age: got %.6f, want %.6f", g, 3.0)
	}
	if g := tr.TreeLength(); math.Abs(g-8) > 1e-6 {
		t.Errorf("tree length: got %.6f, want %.6f", g, 8.0)
	}

	tips := tr.Tips()
	names := make(map[string]bool, len(tips))
	for _, nm := range tips {
		names[nm] = true
	}
	for _, nm := range []string{"A", "B", "C", "D"} {
		if !names[strings.ToLower(nm)] && !names[nm] {
			t.Errorf("tip %q not found in %v", nm, tips)
		}
	}
}

func TestInvalidTrees(t *testing.T) {
	tests := map[string]struct {
		tips    []string
		edges   [][2]int
		lengths []float64
	}{
		"length mismatch": {
			tips:    []string{"A", "B"},
			edges:   [][2]int{{3, 1}, {3, 2}},
			lengths: []float64{1},
		},
		"multiple parents": {
			tips:    []string{"A", "B"},
			edges:   [][2]int{{3, 1}, {3, 1}},
			lengths: []float64{1, 1},
		},
		"root as child": {
			tips:    []string{"A", "B"},
			edges:   [][2]int{{3, 1}, {3, 3}},
			lengths: []float64{1, 1},
		},
		"negative length": {
			tips:    []string{"A", "B"},
			edges:   [][2]int{{3, 1}, {3, 2}},
			lengths: []float64{1, -1},
		},
		"tip as parent": {
			tips:    []string{"A", "B", "C"},
			edges:   [][2]int{{4, 1}, {4, 5}, {5, 2}, {1, 3}},
			lengths: []float64{1, 1, 1, 1},
		},
	}

	for name, p := range tests {
		if _, err := phylo.New(p.tips, p.edges, p.lengths); err == nil {
			t.Errorf("%s: expecting error", name)
		}
	}
}
