// Copyright © 2025 J. Salvador Arias <jsalarias@gmail.com>
// All rights reserved.
// Distributed under BSD2 license that can be found in the LICENSE file.

// Package timevar implements the per-branch evidence
// for temporal rate variation:
// the fraction of posterior samples
// in which the event that governs the tipward end
// of a branch
// has a time dependent rate.
package timevar

import (
	"fmt"

	"github.com/cran/BAMMtools/event"
	"github.com/cran/BAMMtools/phylo"
)

// Kind indicates the evidence value
// stored on each branch.
type Kind int

// Valid evidence kinds.
const (
	// Posterior stores the posterior probability
	// of a time dependent rate on the branch.
	Posterior Kind = iota

	// BayesFactor stores the Bayes factor
	// of a time dependent rate on the branch,
	// against a prior probability
	// of time variation.
	BayesFactor
)

func (k Kind) String() string {
	switch k {
	case Posterior:
		return "posterior"
	case BayesFactor:
		return "bayesfactor"
	}
	return "unknown"
}

// ParseKind returns the evidence kind
// for a given keyword.
func ParseKind(s string) (Kind, error) {
	switch s {
	case "posterior":
		return Posterior, nil
	case "bayesfactor":
		return BayesFactor, nil
	}
	return 0, fmt.Errorf("unknown evidence kind %q", s)
}

// Branches returns a tree with the same topology
// as the given tree,
// but with every branch length replaced
// by the evidence of temporal rate variation
// on the branch.
//
// The prior is the prior probability
// that a branch rate is time dependent;
// it is only used for Bayes factors.
func Branches(t *phylo.Tree, samples []event.Sample, prior float64, kind Kind) (*phylo.Tree, error) {
	switch kind {
	case Posterior:
	case BayesFactor:
		if prior <= 0 || prior >= 1 {
			return nil, fmt.Errorf("invalid prior probability %.6f", prior)
		}
	default:
		return nil, fmt.Errorf("unknown evidence kind %d", kind)
	}
	if len(samples) == 0 {
		return nil, fmt.Errorf("no posterior samples given")
	}

	vals := make([]float64, t.NBranches())
	for b := range vals {
		n := t.Child(b)
		var num int
		for _, s := range samples {
			e, err := s.TipwardEvent(t, n)
			if err != nil {
				return nil, fmt.Errorf("sample without segments: %v", err)
			}
			if e.IsTimeVarying() {
				num++
			}
		}
		p := float64(num) / float64(len(samples))
		switch kind {
		case Posterior:
			vals[b] = p
		case BayesFactor:
			vals[b] = (p / (1 - p)) * ((1 - prior) / prior)
		}
	}
	return t.WithBranchLengths(vals)
}
