package registry

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/dustin/go-humanize"
	"github.com/sarchlab/nodestat"
)

var tableHeaders = []string{
	"module name", "kind", "input shape", "output shape", "params",
	"memory(MB)", "MAdd", "Flops", "MemRead(B)", "MemWrite(B)",
	"duration(ms)", "duration[%]",
}

// FormatTable renders entries as a table followed by a total row computed
// from totals. Pass Report.Entries for a per-leaf table or the result of
// Rollup for a coarser one.
func FormatTable(entries []nodestat.Entry, totals nodestat.Totals) string {
	t := table.New().
		Border(lipgloss.NormalBorder()).
		Headers(tableHeaders...)

	for _, e := range entries {
		t.Row(
			e.Path,
			string(e.Kind),
			shapeString(e.InputShape),
			shapeString(e.OutputShape),
			humanize.Comma(e.ParameterCount),
			strconv.FormatFloat(e.InferenceMemoryMB, 'f', 2, 64),
			humanize.Comma(e.MultiplyAdds),
			humanize.Comma(e.Flops),
			humanize.Comma(e.MemoryReadBytes),
			humanize.Comma(e.MemoryWriteBytes),
			strconv.FormatFloat(e.DurationSeconds*1e3, 'f', 3, 64),
			percent(e.DurationSeconds, totals.DurationSeconds),
		)
	}

	t.Row(
		"total", "", "", "",
		humanize.Comma(totals.ParameterCount),
		strconv.FormatFloat(totals.InferenceMemoryMB, 'f', 2, 64),
		humanize.Comma(totals.MultiplyAdds),
		humanize.Comma(totals.Flops),
		humanize.Comma(totals.MemoryReadBytes),
		humanize.Comma(totals.MemoryWriteBytes),
		strconv.FormatFloat(totals.DurationSeconds*1e3, 'f', 3, 64),
		"100.00%",
	)

	return t.String()
}

func shapeString(shape []int) string {
	tokens := make([]string, len(shape))
	for i, d := range shape {
		tokens[i] = strconv.Itoa(d)
	}

	return strings.Join(tokens, "x")
}

func percent(part, whole float64) string {
	if whole <= 0 {
		return "0.00%"
	}

	return fmt.Sprintf("%.2f%%", part/whole*100)
}
