// Copyright © 2025 J. Salvador Arias <jsalarias@gmail.com>
// All rights reserved.
// Distributed under BSD2 license that can be found in the LICENSE file.

package ratemat

import (
	"bufio"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"
	"time"
)

var header = []string{
	"type",
	"sample",
	"time",
	"lambda",
	"mu",
	"beta",
}

// TSV writes the matrix as a tab-delimited file,
// one row per sample and time slice.
func (m *Matrix) TSV(w io.Writer) error {
	bw := bufio.NewWriter(w)
	fmt.Fprintf(bw, "# rate through time matrix\n")
	fmt.Fprintf(bw, "# data saved on: %s\n", time.Now().Format(time.RFC3339))
	tab := csv.NewWriter(bw)
	tab.Comma = '\t'
	tab.UseCRLF = true

	if err := tab.Write(header); err != nil {
		return fmt.Errorf("while writing header: %v", err)
	}

	for i := 0; i < m.NSamples(); i++ {
		for j, tm := range m.Times {
			lv, mv, bv := math.NaN(), math.NaN(), math.NaN()
			switch m.Type {
			case Diversification:
				lv = m.Lambda[i][j]
				mv = m.Mu[i][j]
			case Trait:
				bv = m.Beta[i][j]
			}
			row := []string{
				m.Type.String(),
				strconv.Itoa(i + 1),
				strconv.FormatFloat(tm, 'f', 6, 64),
				strconv.FormatFloat(lv, 'f', 6, 64),
				strconv.FormatFloat(mv, 'f', 6, 64),
				strconv.FormatFloat(bv, 'f', 6, 64),
			}
			if err := tab.Write(row); err != nil {
				return err
			}
		}
	}

	tab.Flush()
	if err := tab.Error(); err != nil {
		return fmt.Errorf("while writing data: %v", err)
	}
	return bw.Flush()
}

// ReadTSV reads a rate through time matrix
// from a tab-delimited file
// produced by the TSV method.
func ReadTSV(r io.Reader) (*Matrix, error) {
	tab := csv.NewReader(r)
	tab.Comma = '\t'
	tab.Comment = '#'

	head, err := tab.Read()
	if err != nil {
		return nil, fmt.Errorf("while reading header: %v", err)
	}
	fields := make(map[string]int, len(head))
	for i, h := range head {
		h = strings.ToLower(h)
		fields[h] = i
	}
	for _, h := range header {
		if _, ok := fields[h]; !ok {
			return nil, fmt.Errorf("expecting field %q", h)
		}
	}

	var m *Matrix
	sample := 0
	for {
		row, err := tab.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		ln, _ := tab.FieldPos(0)
		if err != nil {
			return nil, fmt.Errorf("on row %d: %v", ln, err)
		}

		f := "type"
		ty, err := ParseType(strings.ToLower(strings.TrimSpace(row[fields[f]])))
		if err != nil {
			return nil, fmt.Errorf("on row %d: field %q: %v", ln, f, err)
		}
		if m == nil {
			m = &Matrix{Type: ty}
		}
		if ty != m.Type {
			return nil, fmt.Errorf("on row %d: field %q: mixed analysis types", ln, f)
		}

		f = "sample"
		sx, err := strconv.Atoi(strings.TrimSpace(row[fields[f]]))
		if err != nil {
			return nil, fmt.Errorf("on row %d: field %q: %v", ln, f, err)
		}
		if sx < 1 || sx < sample {
			return nil, fmt.Errorf("on row %d: field %q: invalid sample %d", ln, f, sx)
		}
		for sample < sx {
			switch m.Type {
			case Diversification:
				m.Lambda = append(m.Lambda, nil)
				m.Mu = append(m.Mu, nil)
			case Trait:
				m.Beta = append(m.Beta, nil)
			}
			sample++
		}

		vals := make(map[string]float64, 4)
		for _, f := range []string{"time", "lambda", "mu", "beta"} {
			v, err := strconv.ParseFloat(strings.TrimSpace(row[fields[f]]), 64)
			if err != nil {
				return nil, fmt.Errorf("on row %d: field %q: %v", ln, f, err)
			}
			vals[f] = v
		}

		if sample == 1 {
			m.Times = append(m.Times, vals["time"])
		}
		switch m.Type {
		case Diversification:
			m.Lambda[sample-1] = append(m.Lambda[sample-1], vals["lambda"])
			m.Mu[sample-1] = append(m.Mu[sample-1], vals["mu"])
		case Trait:
			m.Beta[sample-1] = append(m.Beta[sample-1], vals["beta"])
		}
	}
	if m == nil {
		return nil, fmt.Errorf("while reading data: %v", io.EOF)
	}

	for i := 0; i < m.NSamples(); i++ {
		var ln int
		switch m.Type {
		case Diversification:
			ln = len(m.Lambda[i])
		case Trait:
			ln = len(m.Beta[i])
		}
		if ln != len(m.Times) {
			return nil, fmt.Errorf("sample %d: got %d slices, want %d", i+1, ln, len(m.Times))
		}
	}
	return m, nil
}
