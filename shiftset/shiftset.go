// Copyright © 2025 J. Salvador Arias <jsalarias@gmail.com>
// All rights reserved.
// Distributed under BSD2 license that can be found in the LICENSE file.

// Package shiftset implements the credible set
// of distinct rate shift configurations
// sampled from a posterior distribution.
//
// A shift is a "core" shift when the marginal odds ratio
// of its branch
// (the marginal posterior probability of a shift
// on the branch,
// against the prior probability
// under a Poisson process on the tree)
// is larger than a threshold.
// Samples with the same set of core shift nodes
// belong to the same configuration.
package shiftset

import (
	"fmt"
	"math"
	"slices"
	"sort"
	"strconv"
	"strings"

	"github.com/cran/BAMMtools/event"
	"github.com/cran/BAMMtools/phylo"
	"gonum.org/v1/gonum/stat/distuv"
)

// BranchPriors returns the prior probability
// of one or more shift events on each branch,
// under a Poisson process with an expected number of shifts
// over the whole tree.
func BranchPriors(t *phylo.Tree, expectedShifts float64) ([]float64, error) {
	if expectedShifts <= 0 {
		return nil, fmt.Errorf("invalid expected number of shifts %.6f", expectedShifts)
	}

	rate := expectedShifts / t.TreeLength()
	prior := make([]float64, t.NBranches())
	for b := range prior {
		l := t.Length(b)
		if l == 0 {
			continue
		}
		p := distuv.Poisson{Lambda: rate * l}
		prior[b] = 1 - p.Prob(0)
	}
	return prior, nil
}

// MarginalProbs returns the marginal posterior probability
// of one or more shift events on each branch:
// the fraction of samples
// in which a shift originates on the branch.
func MarginalProbs(t *phylo.Tree, samples []event.Sample) []float64 {
	post := make([]float64, t.NBranches())
	root := t.Root()
	for _, s := range samples {
		seen := make(map[int]bool, len(s.Events))
		for _, e := range s.Events {
			if e.Node == root {
				// the root regime is not a shift
				continue
			}
			if seen[e.Node] {
				continue
			}
			seen[e.Node] = true
			post[t.BranchOf(e.Node)]++
		}
	}
	for b := range post {
		post[b] /= float64(len(samples))
	}
	return post
}

// A Config is a distinct shift configuration:
// a set of core shift nodes
// shared by one or more posterior samples.
type Config struct {
	// Nodes is the sorted set of core shift nodes.
	Nodes []int

	// Samples holds the indexes
	// of the posterior samples
	// assigned to this configuration.
	Samples []int

	// Freq is the fraction of samples
	// assigned to this configuration,
	// and CumFreq the cumulative fraction
	// up to and including this configuration
	// in rank order.
	Freq    float64
	CumFreq float64

	// Shifts holds the per-node averaged shift events
	// of the configuration.
	// It is only filled for credible sets.
	Shifts []Shift

	// TipLambda holds the averaged tip speciation
	// (or trait) rate for each tip,
	// indexed by tip node minus one.
	// It is only filled for credible sets.
	TipLambda []float64
}

// A Shift is a shift event
// averaged over all the samples
// of a configuration.
type Shift struct {
	Node int
	Time float64
	Lam1 float64
	Lam2 float64
	Mu1  float64
	Mu2  float64
}

// Distinct returns the distinct shift configurations
// of a collection of posterior samples,
// ranked by decreasing frequency.
//
// Ties in frequency keep the order
// in which the configurations were first found,
// so the result is deterministic
// for a given sample order.
func Distinct(t *phylo.Tree, samples []event.Sample, expectedShifts, threshold float64) ([]*Config, error) {
	if threshold < 0 {
		return nil, fmt.Errorf("invalid threshold %.6f", threshold)
	}
	if len(samples) == 0 {
		return nil, fmt.Errorf("no posterior samples given")
	}
	prior, err := BranchPriors(t, expectedShifts)
	if err != nil {
		return nil, err
	}
	post := MarginalProbs(t, samples)

	// marginal odds ratio per branch;
	// a branch with a zero prior cannot be penalized
	// and contributes nothing
	odds := make([]float64, t.NBranches())
	for b := range odds {
		if prior[b] == 0 {
			continue
		}
		odds[b] = post[b] / prior[b]
	}

	root := t.Root()
	byKey := make(map[string]*Config)
	var cs []*Config
	for i, s := range samples {
		var core []int
		for _, e := range s.Events {
			if e.Node == root {
				continue
			}
			if odds[t.BranchOf(e.Node)] < threshold {
				continue
			}
			if !slices.Contains(core, e.Node) {
				core = append(core, e.Node)
			}
		}
		slices.Sort(core)

		sb := make([]string, len(core))
		for j, n := range core {
			sb[j] = strconv.Itoa(n)
		}
		key := strings.Join(sb, ",")

		c, ok := byKey[key]
		if !ok {
			c = &Config{Nodes: core}
			byKey[key] = c
			cs = append(cs, c)
		}
		c.Samples = append(c.Samples, i)
	}

	sort.SliceStable(cs, func(i, j int) bool {
		return len(cs[i].Samples) > len(cs[j].Samples)
	})

	cum := 0.0
	for _, c := range cs {
		c.Freq = float64(len(c.Samples)) / float64(len(samples))
		cum += c.Freq
		c.CumFreq = cum
	}
	return cs, nil
}

// A MatchPolicy defines how shift events
// are matched across different samples
// when averaging the parameters
// of a configuration.
type MatchPolicy int

// Valid match policies.
const (
	// MatchNode matches events
	// that originate on the same node.
	MatchNode MatchPolicy = iota

	// MatchNodeTime matches events
	// that originate on the same node
	// within a time window
	// around the first matched event.
	MatchNodeTime
)

// Options are the options used
// to build a credible shift set.
type Options struct {
	// ExpectedShifts is the expected number of shifts
	// of the Poisson prior.
	ExpectedShifts float64

	// Threshold is the minimum marginal odds ratio
	// of a core shift.
	Threshold float64

	// Limit is the cumulative posterior probability
	// of the credible set.
	// It must be in the range (0, 1].
	Limit float64

	// Match defines how events are matched
	// across samples when averaging.
	Match MatchPolicy

	// Window is the time window
	// used by the MatchNodeTime policy.
	Window float64
}

// A Set is a credible set
// of distinct shift configurations:
// the smallest set of configurations
// with a cumulative frequency
// at or above the requested limit.
type Set struct {
	Limit   float64
	Configs []*Config
}

// Credible builds the credible set
// of distinct shift configurations
// of a collection of posterior samples.
func Credible(t *phylo.Tree, samples []event.Sample, o Options) (*Set, error) {
	if o.Limit <= 0 || o.Limit > 1 {
		return nil, fmt.Errorf("invalid set limit %.6f", o.Limit)
	}
	switch o.Match {
	case MatchNode:
	case MatchNodeTime:
		if o.Window <= 0 {
			return nil, fmt.Errorf("invalid match window %.6f", o.Window)
		}
	default:
		return nil, fmt.Errorf("unknown match policy %d", o.Match)
	}

	cs, err := Distinct(t, samples, o.ExpectedShifts, o.Threshold)
	if err != nil {
		return nil, err
	}

	set := &Set{Limit: o.Limit}
	for _, c := range cs {
		set.Configs = append(set.Configs, c)
		if c.CumFreq >= o.Limit {
			break
		}
	}

	for _, c := range set.Configs {
		c.Shifts = averageShifts(c, samples, o)
		c.TipLambda = averageTipRates(t, c, samples)
	}
	return set, nil
}

// averageShifts averages the event parameters
// of each core shift node of a configuration
// over all its assigned samples.
func averageShifts(c *Config, samples []event.Sample, o Options) []Shift {
	shifts := make([]Shift, 0, len(c.Nodes))
	for _, n := range c.Nodes {
		var sum Shift
		var num int
		ref := math.NaN()
		for _, si := range c.Samples {
			for _, e := range samples[si].Events {
				if e.Node != n {
					continue
				}
				if o.Match == MatchNodeTime {
					if math.IsNaN(ref) {
						ref = e.Time
					} else if math.Abs(e.Time-ref) > o.Window {
						continue
					}
				}
				sum.Time += e.Time
				sum.Lam1 += e.Lam1
				sum.Lam2 += e.Lam2
				sum.Mu1 += e.Mu1
				sum.Mu2 += e.Mu2
				num++
			}
		}
		if num == 0 {
			continue
		}
		shifts = append(shifts, Shift{
			Node: n,
			Time: sum.Time / float64(num),
			Lam1: sum.Lam1 / float64(num),
			Lam2: sum.Lam2 / float64(num),
			Mu1:  sum.Mu1 / float64(num),
			Mu2:  sum.Mu2 / float64(num),
		})
	}
	return shifts
}

// averageTipRates averages the speciation
// (or trait) rate at each tip
// over all the samples of a configuration.
func averageTipRates(t *phylo.Tree, c *Config, samples []event.Sample) []float64 {
	rates := make([]float64, t.NTips())
	for tip := 1; tip <= t.NTips(); tip++ {
		var sum float64
		var num int
		for _, si := range c.Samples {
			r := samples[si].TipRate(t, tip)
			if math.IsNaN(r) {
				continue
			}
			sum += r
			num++
		}
		if num == 0 {
			rates[tip-1] = math.NaN()
			continue
		}
		rates[tip-1] = sum / float64(num)
	}
	return rates
}
