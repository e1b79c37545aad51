// Copyright © 2025 J. Salvador Arias <jsalarias@gmail.com>
// All rights reserved.
// Distributed under BSD2 license that can be found in the LICENSE file.

// Package phylo implements an immutable rooted tree
// with absolute branch times,
// used as the scaffold for macroevolutionary rate summaries.
//
// Nodes are identified by integers:
// tips are numbered from 1 to NTips,
// in the order in which they are found
// in a pre-order traversal,
// and internal nodes from NTips+1 onwards,
// so the root is always NTips+1.
// Each branch is identified
// by the node at its tipward end.
package phylo

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/js-arias/timetree"
)

// MillionYears is the base time unit of a tree.
const MillionYears = 1_000_000

// A Tree is a rooted phylogenetic tree
// with branch lengths in million years.
//
// Branch times are absolute:
// the root node is at time 0
// and time increases tipward,
// so for every branch its end time
// is the begin time plus the branch length.
type Tree struct {
	tips   []string
	parent []int
	child  []int
	length []float64
	begin  []float64
	end    []float64

	children  [][]int
	branchOf  []int // node -> branch index, -1 for the root
	downSeq   []int // pre-order node sequence
	seqIndex  []int // node -> index in downSeq
	lastVisit []int // node -> downSeq index of its last descendant
	age       float64
}

// New creates a tree from a list of tip names,
// a list of parent-child pairs,
// and the branch length of each pair.
//
// Tips must be numbered from 1 to len(tips),
// internal nodes from len(tips)+1 onwards,
// and the root must be node len(tips)+1.
func New(tips []string, edges [][2]int, lengths []float64) (*Tree, error) {
	if len(tips) < 2 {
		return nil, fmt.Errorf("tree must have at least two tips, got %d", len(tips))
	}
	if len(edges) != len(lengths) {
		return nil, fmt.Errorf("got %d branches and %d branch lengths", len(edges), len(lengths))
	}
	t := &Tree{
		tips:   tips,
		parent: make([]int, len(edges)),
		child:  make([]int, len(edges)),
		length: lengths,
	}

	nNodes := len(edges) + 1
	if nNodes <= len(tips) {
		return nil, fmt.Errorf("got %d branches for %d tips", len(edges), len(tips))
	}
	t.children = make([][]int, nNodes+1)
	t.branchOf = make([]int, nNodes+1)
	for i := range t.branchOf {
		t.branchOf[i] = -1
	}

	for i, e := range edges {
		p, c := e[0], e[1]
		if p <= len(tips) || p > nNodes {
			return nil, fmt.Errorf("branch %d: invalid parent node %d", i, p)
		}
		if c < 1 || c > nNodes {
			return nil, fmt.Errorf("branch %d: invalid child node %d", i, c)
		}
		if c == t.Root() {
			return nil, fmt.Errorf("branch %d: root node %d as child", i, c)
		}
		if t.branchOf[c] != -1 {
			return nil, fmt.Errorf("branch %d: node %d with multiple parents", i, c)
		}
		if lengths[i] < 0 {
			return nil, fmt.Errorf("branch %d: negative length %.6f", i, lengths[i])
		}
		t.parent[i] = p
		t.child[i] = c
		t.branchOf[c] = i
		t.children[p] = append(t.children[p], c)
	}

	if err := t.setTraversal(); err != nil {
		return nil, err
	}
	return t, nil
}

// FromTimeTree creates a tree from a time calibrated tree.
//
// In a timetree ages are in years before present;
// here they become absolute times in million years
// counted forward from the root.
// Tips are renumbered from 1 to NTips
// following a pre-order traversal.
func FromTimeTree(t *timetree.Tree) (*Tree, error) {
	root := t.Root()

	var terms, inner []int
	var walk func(n int)
	walk = func(n int) {
		if t.IsTerm(n) {
			terms = append(terms, n)
			return
		}
		inner = append(inner, n)
		for _, c := range t.Children(n) {
			walk(c)
		}
	}
	walk(root)

	ids := make(map[int]int, len(terms)+len(inner))
	tips := make([]string, 0, len(terms))
	for i, n := range terms {
		ids[n] = i + 1
		tips = append(tips, t.Taxon(n))
	}
	for i, n := range inner {
		ids[n] = len(terms) + i + 1
	}

	var edges [][2]int
	var lengths []float64
	var addEdges func(n int)
	addEdges = func(n int) {
		for _, c := range t.Children(n) {
			edges = append(edges, [2]int{ids[n], ids[c]})
			lengths = append(lengths, float64(t.Age(n)-t.Age(c))/MillionYears)
			addEdges(c)
		}
	}
	addEdges(root)

	nt, err := New(tips, edges, lengths)
	if err != nil {
		return nil, fmt.Errorf("tree %q: %v", t.Name(), err)
	}
	return nt, nil
}

// setTraversal makes the pre-order traversal of the tree,
// storing the traversal sequence,
// the descendant range of every node,
// and the absolute begin and end time of every branch.
func (t *Tree) setTraversal() error {
	nNodes := len(t.parent) + 1
	t.begin = make([]float64, len(t.parent))
	t.end = make([]float64, len(t.parent))
	t.downSeq = make([]int, 0, nNodes)
	t.seqIndex = make([]int, nNodes+1)
	t.lastVisit = make([]int, nNodes+1)

	visited := 0
	var walk func(n int, time float64)
	walk = func(n int, time float64) {
		t.seqIndex[n] = len(t.downSeq)
		t.downSeq = append(t.downSeq, n)
		visited++
		for _, c := range t.children[n] {
			b := t.branchOf[c]
			t.begin[b] = time
			t.end[b] = time + t.length[b]
			if t.end[b] > t.age {
				t.age = t.end[b]
			}
			walk(c, t.end[b])
		}
		t.lastVisit[n] = len(t.downSeq) - 1
	}
	walk(t.Root(), 0)

	if visited != nNodes {
		return fmt.Errorf("tree with unconnected nodes: visited %d of %d", visited, nNodes)
	}
	for i, nm := range t.tips {
		if len(t.children[i+1]) > 0 {
			return fmt.Errorf("tip %d %q is not a terminal", i+1, nm)
		}
	}
	return nil
}

// NTips returns the number of tips (terminals) of the tree.
func (t *Tree) NTips() int {
	return len(t.tips)
}

// NNodes returns the total number of nodes of the tree.
func (t *Tree) NNodes() int {
	return len(t.parent) + 1
}

// NBranches returns the number of branches of the tree.
func (t *Tree) NBranches() int {
	return len(t.parent)
}

// Root returns the ID of the root node.
func (t *Tree) Root() int {
	return len(t.tips) + 1
}

// Tip returns the name of a tip node.
// It returns an empty string for an internal node.
func (t *Tree) Tip(n int) string {
	if n < 1 || n > len(t.tips) {
		return ""
	}
	return t.tips[n-1]
}

// Tips returns the names of the tree tips
// in node order.
func (t *Tree) Tips() []string {
	tips := make([]string, len(t.tips))
	copy(tips, t.tips)
	return tips
}

// IsTip reports whether a node is a terminal.
func (t *Tree) IsTip(n int) bool {
	return n >= 1 && n <= len(t.tips)
}

// Children returns the children of a node.
func (t *Tree) Children(n int) []int {
	if n < 1 || n >= len(t.children) {
		return nil
	}
	c := make([]int, len(t.children[n]))
	copy(c, t.children[n])
	return c
}

// Parent returns the branch-wise parent of a branch,
// that is the parent node of the given branch index.
func (t *Tree) Parent(b int) int {
	return t.parent[b]
}

// Child returns the node at the tipward end
// of the given branch index.
func (t *Tree) Child(b int) int {
	return t.child[b]
}

// Length returns the length of a branch in million years.
func (t *Tree) Length(b int) float64 {
	return t.length[b]
}

// Begin returns the absolute begin time of a branch.
func (t *Tree) Begin(b int) float64 {
	return t.begin[b]
}

// End returns the absolute end time of a branch.
func (t *Tree) End(b int) float64 {
	return t.end[b]
}

// BranchOf returns the index of the branch
// that ends at the given node,
// or -1 for the root.
func (t *Tree) BranchOf(n int) int {
	if n < 1 || n >= len(t.branchOf) {
		return -1
	}
	return t.branchOf[n]
}

// Age returns the absolute time of the most recent tip.
func (t *Tree) Age() float64 {
	return t.age
}

// TreeLength returns the sum of all branch lengths.
func (t *Tree) TreeLength() float64 {
	var sum float64
	for _, l := range t.length {
		sum += l
	}
	return sum
}

// Descendant reports whether node n is anc
// or one of its descendants.
// The test uses the pre-order descendant range of anc,
// so it does not traverse the tree.
func (t *Tree) Descendant(anc, n int) bool {
	if anc < 1 || anc >= len(t.seqIndex) {
		return false
	}
	if n < 1 || n >= len(t.seqIndex) {
		return false
	}
	i := t.seqIndex[n]
	return i >= t.seqIndex[anc] && i <= t.lastVisit[anc]
}

// WithBranchLengths returns a tree with the same topology
// and tip names,
// but with every branch length replaced
// by the given value for its branch index.
func (t *Tree) WithBranchLengths(lengths []float64) (*Tree, error) {
	if len(lengths) != len(t.length) {
		return nil, fmt.Errorf("got %d branch lengths, want %d", len(lengths), len(t.length))
	}
	edges := make([][2]int, len(t.parent))
	for i := range t.parent {
		edges[i] = [2]int{t.parent[i], t.child[i]}
	}
	ls := make([]float64, len(lengths))
	copy(ls, lengths)
	tips := make([]string, len(t.tips))
	copy(tips, t.tips)
	return New(tips, edges, ls)
}

// Newick writes the tree in parenthetical (newick) format.
func (t *Tree) Newick(w io.Writer) error {
	bw := bufio.NewWriter(w)
	if err := t.writeNode(bw, t.Root()); err != nil {
		return err
	}
	if _, err := bw.WriteString(";\n"); err != nil {
		return err
	}
	return bw.Flush()
}

func (t *Tree) writeNode(w *bufio.Writer, n int) error {
	if t.IsTip(n) {
		nm := strings.Join(strings.Fields(t.Tip(n)), "_")
		if _, err := fmt.Fprintf(w, "%s:%.6f", nm, t.length[t.branchOf[n]]); err != nil {
			return err
		}
		return nil
	}

	if err := w.WriteByte('('); err != nil {
		return err
	}
	for i, c := range t.children[n] {
		if i > 0 {
			if err := w.WriteByte(','); err != nil {
				return err
			}
		}
		if err := t.writeNode(w, c); err != nil {
			return err
		}
	}
	if err := w.WriteByte(')'); err != nil {
		return err
	}
	if n != t.Root() {
		if _, err := fmt.Fprintf(w, ":%.6f", t.length[t.branchOf[n]]); err != nil {
			return err
		}
	}
	return nil
}
