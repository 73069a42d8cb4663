package registry

import (
	"strings"

	"github.com/sarchlab/nodestat"
)

// Rollup merges the entries of a report whose paths share their first
// depth segments, so that a composite node is reported as one entry. The
// merged entry sums the counts of its leaves, takes the input shape of its
// first leaf and the output shape of its last leaf. Entries that are
// already shallower than depth are kept as they are. A depth below 1 merges
// the whole report into one entry with an empty path.
func Rollup(r nodestat.Report, depth int) []nodestat.Entry {
	var groups []nodestat.Entry
	index := make(map[string]int)

	for _, e := range r.Entries {
		prefix := truncatePath(e.Path, depth)

		i, ok := index[prefix]
		if !ok {
			index[prefix] = len(groups)
			g := nodestat.Entry{Path: prefix, Kind: e.Kind, Record: e.Record.Clone()}
			groups = append(groups, g)
			continue
		}

		mergeInto(&groups[i], e)
	}

	return groups
}

func truncatePath(path string, depth int) string {
	if depth < 1 {
		return ""
	}

	segments := strings.Split(path, ".")
	if len(segments) <= depth {
		return path
	}

	return strings.Join(segments[:depth], ".")
}

func mergeInto(g *nodestat.Entry, e nodestat.Entry) {
	g.Kind = nodestat.KindComposite
	g.OutputShape = append([]int{}, e.OutputShape...)
	g.ParameterCount += e.ParameterCount
	g.InferenceMemoryMB += e.InferenceMemoryMB
	g.DurationSeconds += e.DurationSeconds
	g.MultiplyAdds += e.MultiplyAdds
	g.Flops += e.Flops
	g.ConvFlops += e.ConvFlops
	g.MemoryReadBytes += e.MemoryReadBytes
	g.MemoryWriteBytes += e.MemoryWriteBytes
}
