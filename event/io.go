// Copyright © 2025 J. Salvador Arias <jsalarias@gmail.com>
// All rights reserved.
// Distributed under BSD2 license that can be found in the LICENSE file.

package event

import (
	"bufio"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/cran/BAMMtools/phylo"
)

var header = []string{
	"node",
	"time",
	"lam1",
	"lam2",
	"mu1",
	"mu2",
	"index",
}

// ReadOptions are the options used
// when reading an event data file.
type ReadOptions struct {
	// Burnin is the fraction of samples,
	// at the beginning of the file,
	// discarded as burn-in.
	// It must be in the range [0, 1).
	Burnin float64

	// Thin indicates that only every Thin-th sample
	// will be kept.
	// The zero value is equivalent to 1
	// (all samples kept).
	Thin int
}

// ReadCSV reads a collection of posterior samples
// from an event data file
// for the given tree.
//
// An event data file is a comma separated file
// with the following columns:
//
//   - node, the ID of the node at the tipward end
//     of the branch with the event
//   - time, the absolute origin time of the event
//   - lam1, lam2, the speciation (or trait) rate parameters
//   - mu1, mu2, the extinction rate parameters
//   - index, the sample that contains the event
//
// Rows with the same index belong to the same sample.
//
// Here is an example file:
//
//	node,time,lam1,lam2,mu1,mu2,index
//	5,0.000000,0.100000,0.000000,0.050000,0.000000,1
//	7,1.250000,0.300000,-0.020000,0.050000,0.000000,1
//	5,0.000000,0.120000,0.000000,0.040000,0.000000,2
func ReadCSV(r io.Reader, t *phylo.Tree, o ReadOptions) ([]Sample, error) {
	if o.Burnin < 0 || o.Burnin >= 1 {
		return nil, fmt.Errorf("invalid burn-in fraction %.6f", o.Burnin)
	}
	if o.Thin < 0 {
		return nil, fmt.Errorf("invalid thinning value %d", o.Thin)
	}
	if o.Thin == 0 {
		o.Thin = 1
	}

	tab := csv.NewReader(r)
	tab.Comment = '#'

	head, err := tab.Read()
	if err != nil {
		return nil, fmt.Errorf("while reading header: %v", err)
	}
	fields := make(map[string]int, len(head))
	for i, h := range head {
		h = strings.ToLower(strings.TrimSpace(h))
		fields[h] = i
	}
	for _, h := range header {
		if _, ok := fields[h]; !ok {
			return nil, fmt.Errorf("expecting field %q", h)
		}
	}

	var raw [][]Event
	var indexes []int
	byIndex := make(map[int]int)
	for {
		row, err := tab.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		ln, _ := tab.FieldPos(0)
		if err != nil {
			return nil, fmt.Errorf("on row %d: %v", ln, err)
		}

		f := "node"
		n, err := strconv.Atoi(strings.TrimSpace(row[fields[f]]))
		if err != nil {
			return nil, fmt.Errorf("on row %d: field %q: %v", ln, f, err)
		}

		var e Event
		e.Node = n
		for _, p := range []struct {
			field string
			val   *float64
		}{
			{"time", &e.Time},
			{"lam1", &e.Lam1},
			{"lam2", &e.Lam2},
			{"mu1", &e.Mu1},
			{"mu2", &e.Mu2},
		} {
			v, err := strconv.ParseFloat(strings.TrimSpace(row[fields[p.field]]), 64)
			if err != nil {
				return nil, fmt.Errorf("on row %d: field %q: %v", ln, p.field, err)
			}
			*p.val = v
		}

		f = "index"
		ix, err := strconv.Atoi(strings.TrimSpace(row[fields[f]]))
		if err != nil {
			return nil, fmt.Errorf("on row %d: field %q: %v", ln, f, err)
		}
		si, ok := byIndex[ix]
		if !ok {
			si = len(raw)
			byIndex[ix] = si
			raw = append(raw, nil)
			indexes = append(indexes, ix)
		}
		raw[si] = append(raw[si], e)
	}
	if len(raw) == 0 {
		return nil, fmt.Errorf("while reading data: %v", io.EOF)
	}

	skip := int(o.Burnin * float64(len(raw)))
	var samples []Sample
	for i := skip; i < len(raw); i += o.Thin {
		s, err := Assign(t, raw[i])
		if err != nil {
			return nil, fmt.Errorf("sample %d: %v", indexes[i], err)
		}
		samples = append(samples, s)
	}
	return samples, nil
}

// WriteCSV writes a collection of posterior samples
// as an event data file.
// Samples are numbered from 1,
// in the given order,
// on the index column.
func WriteCSV(w io.Writer, samples []Sample) error {
	bw := bufio.NewWriter(w)
	fmt.Fprintf(bw, "# event data\n")
	fmt.Fprintf(bw, "# data saved on: %s\n", time.Now().Format(time.RFC3339))
	tab := csv.NewWriter(bw)

	if err := tab.Write(header); err != nil {
		return fmt.Errorf("while writing header: %v", err)
	}

	for i, s := range samples {
		for _, e := range s.Events {
			row := []string{
				strconv.Itoa(e.Node),
				strconv.FormatFloat(e.Time, 'f', 6, 64),
				strconv.FormatFloat(e.Lam1, 'f', 6, 64),
				strconv.FormatFloat(e.Lam2, 'f', 6, 64),
				strconv.FormatFloat(e.Mu1, 'f', 6, 64),
				strconv.FormatFloat(e.Mu2, 'f', 6, 64),
				strconv.Itoa(i + 1),
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
