// Copyright © 2025 J. Salvador Arias <jsalarias@gmail.com>
// All rights reserved.
// Distributed under BSD2 license that can be found in the LICENSE file.

package ratemat

import (
	"fmt"
	"math"

	"golang.org/x/exp/slices"
	"gonum.org/v1/gonum/stat"
)

// RateKind indicates the rate extracted
// from a rate through time matrix.
type RateKind int

// Valid rate kinds.
const (
	// Speciation rate of a diversification analysis.
	Speciation RateKind = iota

	// Extinction rate of a diversification analysis.
	Extinction

	// NetDiv is the net diversification rate,
	// speciation minus extinction.
	NetDiv

	// TraitRate is the rate of phenotypic evolution
	// of a trait analysis.
	TraitRate
)

func (k RateKind) String() string {
	switch k {
	case Speciation:
		return "speciation"
	case Extinction:
		return "extinction"
	case NetDiv:
		return "netdiv"
	case TraitRate:
		return "trait"
	}
	return "unknown"
}

// ParseRateKind returns the rate kind
// for a given keyword.
func ParseRateKind(s string) (RateKind, error) {
	switch s {
	case "speciation":
		return Speciation, nil
	case "extinction":
		return Extinction, nil
	case "netdiv":
		return NetDiv, nil
	case "trait":
		return TraitRate, nil
	}
	return 0, fmt.Errorf("unknown rate kind %q", s)
}

// A Summary is the per-slice summary
// of a rate through time matrix,
// the data behind a rate through time plot.
//
// Time slices in which any sample has a NaN rate
// are removed from the summary.
type Summary struct {
	Kind  RateKind
	Times []float64
	Mean  []float64

	// Quantiles holds the per-slice empirical quantile
	// for each requested probability.
	Quantiles map[float64][]float64
}

// Summary builds the per-slice summary of the matrix
// for the given rate kind
// and quantile probabilities.
func (m *Matrix) Summary(kind RateKind, qs []float64) (*Summary, error) {
	switch kind {
	case Speciation, Extinction, NetDiv:
		if m.Type != Diversification {
			return nil, fmt.Errorf("rate kind %q on a %q matrix", kind, m.Type)
		}
	case TraitRate:
		if m.Type != Trait {
			return nil, fmt.Errorf("rate kind %q on a %q matrix", kind, m.Type)
		}
	default:
		return nil, fmt.Errorf("unknown rate kind %d", kind)
	}
	for _, q := range qs {
		if q < 0 || q > 1 {
			return nil, fmt.Errorf("invalid quantile probability %.6f", q)
		}
	}

	s := &Summary{
		Kind:      kind,
		Quantiles: make(map[float64][]float64, len(qs)),
	}
	for j := range m.Times {
		col := make([]float64, 0, m.NSamples())
		for i := 0; i < m.NSamples(); i++ {
			v := m.rate(kind, i, j)
			if math.IsNaN(v) {
				col = nil
				break
			}
			col = append(col, v)
		}
		if col == nil {
			// a plotting layer concern:
			// slices without rates in every sample
			// are dropped from the summary
			continue
		}

		s.Times = append(s.Times, m.Times[j])
		s.Mean = append(s.Mean, stat.Mean(col, nil))

		slices.Sort(col)
		weights := make([]float64, len(col))
		for i := range weights {
			weights[i] = 1
		}
		for _, q := range qs {
			s.Quantiles[q] = append(s.Quantiles[q], stat.Quantile(q, stat.Empirical, col, weights))
		}
	}
	return s, nil
}

func (m *Matrix) rate(kind RateKind, i, j int) float64 {
	switch kind {
	case Speciation:
		return m.Lambda[i][j]
	case Extinction:
		return m.Mu[i][j]
	case NetDiv:
		return m.Lambda[i][j] - m.Mu[i][j]
	case TraitRate:
		return m.Beta[i][j]
	}
	panic("unreachable")
}
