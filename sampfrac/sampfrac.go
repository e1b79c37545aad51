// Copyright © 2025 J. Salvador Arias <jsalarias@gmail.com>
// All rights reserved.
// Distributed under BSD2 license that can be found in the LICENSE file.

// Package sampfrac implements species sampling fraction tables
// used to account for incomplete taxon sampling
// in a macroevolutionary rate analysis.
//
// Each tip of a tree is assigned to a clade
// with a known number of described species;
// the sampling fraction of the tip
// is the fraction of the clade species
// present in the tree.
// A backbone fraction accounts for the sampling
// of the tree as a whole.
package sampfrac

import (
	"bufio"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/cran/BAMMtools/phylo"
)

// A Table is a collection of per-species sampling fractions
// with a backbone fraction for the whole tree.
type Table struct {
	backbone float64
	sp       map[string]record
}

type record struct {
	clade string
	frac  float64
}

// New creates an empty table
// with the given backbone sampling fraction.
func New(backbone float64) (*Table, error) {
	if backbone <= 0 || backbone > 1 {
		return nil, fmt.Errorf("invalid backbone fraction %.6f", backbone)
	}
	return &Table{
		backbone: backbone,
		sp:       make(map[string]record),
	}, nil
}

// FromRichness builds a sampling fraction table
// for the tips of a tree.
//
// Every tip must be assigned to a clade
// in the clades map,
// and every clade must have its number
// of described species
// in the richness map.
// The sampling fraction of a tip
// is the number of tree tips of its clade
// divided by the clade richness.
func FromRichness(t *phylo.Tree, clades map[string]string, richness map[string]int, backbone float64) (*Table, error) {
	tb, err := New(backbone)
	if err != nil {
		return nil, err
	}

	inTree := make(map[string]int)
	for _, nm := range t.Tips() {
		cl, ok := clades[nm]
		if !ok {
			return nil, fmt.Errorf("tip %q without clade assignment", nm)
		}
		inTree[cl]++
	}

	for _, nm := range t.Tips() {
		cl := clades[nm]
		rich, ok := richness[cl]
		if !ok {
			return nil, fmt.Errorf("clade %q without species richness", cl)
		}
		if rich < inTree[cl] {
			return nil, fmt.Errorf("clade %q: richness %d smaller than %d sampled tips", cl, rich, inTree[cl])
		}
		if err := tb.Add(nm, cl, float64(inTree[cl])/float64(rich)); err != nil {
			return nil, err
		}
	}
	return tb, nil
}

// Add adds a species with its clade
// and sampling fraction.
func (tb *Table) Add(species, clade string, frac float64) error {
	species = strings.Join(strings.Fields(species), " ")
	if species == "" {
		return fmt.Errorf("empty species name")
	}
	if frac <= 0 || frac > 1 {
		return fmt.Errorf("species %q: invalid sampling fraction %.6f", species, frac)
	}
	tb.sp[species] = record{clade: clade, frac: frac}
	return nil
}

// Backbone returns the backbone sampling fraction.
func (tb *Table) Backbone() float64 {
	return tb.backbone
}

// Species returns the sorted names
// of the species in the table.
func (tb *Table) Species() []string {
	sp := make([]string, 0, len(tb.sp))
	for nm := range tb.sp {
		sp = append(sp, nm)
	}
	slices.Sort(sp)
	return sp
}

// Clade returns the clade of a species.
func (tb *Table) Clade(species string) string {
	return tb.sp[species].clade
}

// Fraction returns the sampling fraction of a species.
// It returns zero for an unknown species.
func (tb *Table) Fraction(species string) float64 {
	return tb.sp[species].frac
}

// Validate checks that every tip of a tree
// has a sampling fraction in the table.
func (tb *Table) Validate(t *phylo.Tree) error {
	for _, nm := range t.Tips() {
		if _, ok := tb.sp[nm]; !ok {
			return fmt.Errorf("tip %q without sampling fraction", nm)
		}
	}
	return nil
}

// ReadTSV reads a sampling fraction table
// from a TSV file.
//
// The first data row holds the backbone fraction
// as its single field;
// every other row has the fields
// species, clade, and fraction.
//
// Here is an example file:
//
//	# sampling fractions
//	0.850000
//	Homo_sapiens	Hominidae	0.800000
//	Pan_troglodytes	Hominidae	0.800000
//	Mus_musculus	Muridae	0.150000
func ReadTSV(r io.Reader) (*Table, error) {
	tsv := csv.NewReader(r)
	tsv.Comma = '\t'
	tsv.Comment = '#'
	tsv.FieldsPerRecord = -1

	var tb *Table
	for {
		row, err := tsv.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		ln, _ := tsv.FieldPos(0)
		if err != nil {
			return nil, fmt.Errorf("on row %d: %v", ln, err)
		}

		if tb == nil {
			if len(row) != 1 {
				return nil, fmt.Errorf("on row %d: expecting backbone fraction", ln)
			}
			bb, err := strconv.ParseFloat(strings.TrimSpace(row[0]), 64)
			if err != nil {
				return nil, fmt.Errorf("on row %d: %v", ln, err)
			}
			tb, err = New(bb)
			if err != nil {
				return nil, fmt.Errorf("on row %d: %v", ln, err)
			}
			continue
		}

		if len(row) != 3 {
			return nil, fmt.Errorf("on row %d: got %d fields, want 3", ln, len(row))
		}
		frac, err := strconv.ParseFloat(strings.TrimSpace(row[2]), 64)
		if err != nil {
			return nil, fmt.Errorf("on row %d: field \"fraction\": %v", ln, err)
		}
		if err := tb.Add(row[0], row[1], frac); err != nil {
			return nil, fmt.Errorf("on row %d: %v", ln, err)
		}
	}
	if tb == nil {
		return nil, fmt.Errorf("while reading data: %v", io.EOF)
	}
	return tb, nil
}

// TSV writes the sampling fraction table
// as a TSV file.
func (tb *Table) TSV(w io.Writer) error {
	bw := bufio.NewWriter(w)
	fmt.Fprintf(bw, "# sampling fractions\n")
	fmt.Fprintf(bw, "# data saved on: %s\n", time.Now().Format(time.RFC3339))
	tsv := csv.NewWriter(bw)
	tsv.Comma = '\t'
	tsv.UseCRLF = true

	if err := tsv.Write([]string{strconv.FormatFloat(tb.backbone, 'f', 6, 64)}); err != nil {
		return err
	}
	for _, nm := range tb.Species() {
		rec := tb.sp[nm]
		row := []string{
			nm,
			rec.clade,
			strconv.FormatFloat(rec.frac, 'f', 6, 64),
		}
		if err := tsv.Write(row); err != nil {
			return err
		}
	}

	tsv.Flush()
	if err := tsv.Error(); err != nil {
		return fmt.Errorf("while writing data: %v", err)
	}
	return bw.Flush()
}
