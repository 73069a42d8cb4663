package nodestat

import "errors"

// ErrAlreadyInstrumented is returned when a graph is instrumented twice
// without being detached in between.
var ErrAlreadyInstrumented = errors.New("graph is already instrumented")

// ErrNotInstrumented is returned when a report is requested for a graph
// whose leaves carry no records.
var ErrNotInstrumented = errors.New("graph is not instrumented")

// A Record holds the figures measured on the most recent invocation of a
// leaf node.
type Record struct {
	InputShape        []int
	OutputShape       []int
	ParameterCount    int64
	InferenceMemoryMB float64
	DurationSeconds   float64
	MultiplyAdds      int64
	Flops             int64
	ConvFlops         int64
	MemoryReadBytes   int64
	MemoryWriteBytes  int64
}

// Clone returns a copy of the record that shares no memory with it.
func (r *Record) Clone() Record {
	c := *r
	c.InputShape = append([]int{}, r.InputShape...)
	c.OutputShape = append([]int{}, r.OutputShape...)

	return c
}

// An Entry is the record of one leaf, identified by its qualified path.
type Entry struct {
	Path string
	Kind Kind
	Record
}

// Totals aggregates the records of all leaves.
type Totals struct {
	ParameterCount    int64
	MultiplyAdds      int64
	Flops             int64
	ConvFlops         int64
	InferenceMemoryMB float64
	DurationSeconds   float64
	MemoryReadBytes   int64
	MemoryWriteBytes  int64
}

// Add accumulates a record into the totals.
func (t *Totals) Add(r Record) {
	t.ParameterCount += r.ParameterCount
	t.MultiplyAdds += r.MultiplyAdds
	t.Flops += r.Flops
	t.ConvFlops += r.ConvFlops
	t.InferenceMemoryMB += r.InferenceMemoryMB
	t.DurationSeconds += r.DurationSeconds
	t.MemoryReadBytes += r.MemoryReadBytes
	t.MemoryWriteBytes += r.MemoryWriteBytes
}

// A Report lists leaf records in depth-first order.
type Report struct {
	Entries []Entry
	Totals  Totals
}

// NewReport builds a report from entries and computes the totals.
func NewReport(entries []Entry) Report {
	r := Report{Entries: entries}
	for _, e := range entries {
		r.Totals.Add(e.Record)
	}

	return r
}

// Lookup returns the entry with the given path.
func (r Report) Lookup(path string) (Entry, bool) {
	for _, e := range r.Entries {
		if e.Path == path {
			return e, true
		}
	}

	return Entry{}, false
}

// Paths returns the leaf paths in report order.
func (r Report) Paths() []string {
	paths := make([]string, len(r.Entries))
	for i, e := range r.Entries {
		paths[i] = e.Path
	}

	return paths
}
