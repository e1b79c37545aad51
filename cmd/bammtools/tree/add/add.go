// Copyright © 2025 J. Salvador Arias <jsalarias@gmail.com>
// All rights reserved.
// Distributed under BSD2 license that can be found in the LICENSE file.

// Package add implements a command to add trees
// to a BammTools project.
package add

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/cran/BAMMtools/phylo"
	"github.com/cran/BAMMtools/project"
	"github.com/js-arias/command"
	"github.com/js-arias/timetree"
)

var Command = &command.Command{
	Usage: `add [-f|--file <tree-file>]
	[--newick <name>] [--age <value>]
	<project-file> [<tree-file>...]`,
	Short: "add phylogenetic trees to a BammTools project",
	Long: `
Command add reads one or more time calibrated trees and adds them to a
BammTools project. Any analysis of rate shift events needs at least one tree
in the project.

The first argument of the command is the name of the project file. If the
project file does not exist, a new project will be created.

The remaining arguments are tree files. If no tree file is given, the trees
will be read from the standard input.

Tree files are expected to be tab-delimited tree files. To import a newick
(parenthetical) tree, use the flag --newick with a name for the imported
trees; branch lengths must be in million years. In a newick tree, the age of
the root is taken as the largest distance between the root and a terminal;
use the flag --age, in million years, to set an older root.

The trees will be stored in the tree file defined for the project, or in a
new file called 'trees.tab' if the project has none. The flag --file, or -f,
stores the trees in a file with a different name; trees already defined in
the project will be kept and copied to the new file.
	`,
	SetFlags: setFlags,
	Run:      run,
}

var treeFile string
var newickName string
var rootAge float64

func setFlags(c *command.Command) {
	c.Flags().StringVar(&treeFile, "file", "", "")
	c.Flags().StringVar(&treeFile, "f", "", "")
	c.Flags().StringVar(&newickName, "newick", "", "")
	c.Flags().Float64Var(&rootAge, "age", 0, "")
}

func run(c *command.Command, args []string) error {
	if len(args) < 1 {
		return c.UsageError("expecting project file")
	}
	p, err := openProject(args[0])
	if err != nil {
		return err
	}

	tc := timetree.NewCollection()
	if tf := p.Path(project.Trees); tf != "" {
		tc, err = readCollection(nil, tf)
		if err != nil {
			return fmt.Errorf("on project %q: %v", tf, err)
		}
	}

	args = args[1:]
	if len(args) == 0 {
		args = append(args, "-")
	}
	for i, a := range args {
		nc, err := readTrees(c.Stdin(), a, i)
		if err != nil {
			return err
		}
		for _, tn := range nc.Names() {
			if err := tc.Add(nc.Tree(tn)); err != nil {
				return fmt.Errorf("when adding trees from %q: %v", a, err)
			}
		}
	}

	if treeFile == "" {
		treeFile = p.Path(project.Trees)
		if treeFile == "" {
			treeFile = "trees.tab"
		}
	}

	if err := writeTrees(tc); err != nil {
		return err
	}
	p.Add(project.Trees, treeFile)
	if err := p.Write(); err != nil {
		return err
	}

	return nil
}

func openProject(name string) (*project.Project, error) {
	p, err := project.Read(name)
	if errors.Is(err, os.ErrNotExist) {
		p := project.New()
		p.SetName(name)
		return p, nil
	}
	if err != nil {
		return nil, fmt.Errorf("unable to open project %q: %v", name, err)
	}
	return p, nil
}

// readTrees reads the trees of an input file,
// either a tab-delimited tree file
// or a newick file
// if the --newick flag was given.
// The file "-" is the standard input.
func readTrees(r io.Reader, name string, pos int) (*timetree.Collection, error) {
	if name == "-" {
		name = ""
	}
	if newickName == "" {
		return readCollection(r, name)
	}

	tn := newickName
	if pos > 0 {
		tn = fmt.Sprintf("%s.%d", newickName, pos)
	}
	return readNewick(r, name, tn)
}

func readCollection(r io.Reader, name string) (*timetree.Collection, error) {
	if name != "" {
		f, err := os.Open(name)
		if err != nil {
			return nil, err
		}
		defer f.Close()
		r = f
	} else {
		name = "stdin"
	}

	c, err := timetree.ReadTSV(r)
	if err != nil {
		return nil, fmt.Errorf("while reading file %q: %v", name, err)
	}
	return c, nil
}

func readNewick(r io.Reader, name, treeName string) (*timetree.Collection, error) {
	if name != "" {
		f, err := os.Open(name)
		if err != nil {
			return nil, err
		}
		defer f.Close()
		r = f
	} else {
		name = "stdin"
	}

	c, err := timetree.Newick(r, treeName, int64(rootAge*phylo.MillionYears))
	if err != nil {
		return nil, fmt.Errorf("while reading file %q: %v", name, err)
	}
	return c, nil
}

func writeTrees(tc *timetree.Collection) (err error) {
	f, err := os.Create(treeFile)
	if err != nil {
		return err
	}
	defer func() {
		e := f.Close()
		if e != nil && err == nil {
			err = e
		}
	}()

	if err := tc.TSV(f); err != nil {
		return fmt.Errorf("while writing to %q: %v", treeFile, err)
	}
	return nil
}
