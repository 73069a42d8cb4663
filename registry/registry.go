// Package registry enumerates the leaves of a graph and builds reports
// from their records.
package registry

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/sarchlab/nodestat"
)

// A Leaf is a leaf node together with its qualified path.
type Leaf struct {
	Path string
	Node *nodestat.Node
}

// A RecordSource provides the record of a leaf node.
type RecordSource interface {
	Record(n *nodestat.Node) (nodestat.Record, bool)
}

// EnumerateLeaves returns every node of g without children, in depth-first
// order. A leaf's path joins the names of its ancestors below the root;
// unnamed children are named by their index. A child whose name a previous
// sibling already uses gets its index appended. A node reachable along
// several paths is listed once, under the first path. A graph that is a
// single leaf yields one entry whose path is the root's name.
func EnumerateLeaves(g *nodestat.Node) []Leaf {
	if g == nil {
		return nil
	}

	if g.IsLeaf() {
		return []Leaf{{Path: g.Name, Node: g}}
	}

	var leaves []Leaf
	seen := map[*nodestat.Node]bool{g: true}
	walk(g, nil, seen, &leaves)

	return leaves
}

func walk(
	n *nodestat.Node,
	prefix []string,
	seen map[*nodestat.Node]bool,
	leaves *[]Leaf,
) {
	names := make(map[string]bool, len(n.Children))

	for i, child := range n.Children {
		name := n.ChildName(i)
		for names[name] {
			name = name + "_" + strconv.Itoa(i)
		}
		names[name] = true

		if seen[child] {
			continue
		}
		seen[child] = true

		path := append(prefix[:len(prefix):len(prefix)], name)
		if child.IsLeaf() {
			*leaves = append(*leaves, Leaf{
				Path: strings.Join(path, "."),
				Node: child,
			})
			continue
		}

		walk(child, path, seen, leaves)
	}
}

// BuildReport returns a copy of the record of every leaf of g, in
// depth-first order, with totals. It returns ErrNotInstrumented if a leaf
// has no record.
func BuildReport(g *nodestat.Node, src RecordSource) (nodestat.Report, error) {
	leaves := EnumerateLeaves(g)
	entries := make([]nodestat.Entry, 0, len(leaves))

	for _, leaf := range leaves {
		rec, ok := src.Record(leaf.Node)
		if !ok {
			return nodestat.Report{}, fmt.Errorf("%s: %w",
				leaf.Path, nodestat.ErrNotInstrumented)
		}

		entries = append(entries, nodestat.Entry{
			Path:   leaf.Path,
			Kind:   leaf.Node.Kind(),
			Record: rec,
		})
	}

	return nodestat.NewReport(entries), nil
}
