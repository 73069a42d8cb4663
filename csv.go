package nodestat

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

var csvHeader = []string{
	"path", "kind", "input_shape", "output_shape", "parameters",
	"inference_memory_mb", "duration_s", "madd", "flops", "conv_flops",
	"memory_read_bytes", "memory_write_bytes",
}

// A ReportWriter stores a report as a CSV file.
type ReportWriter struct {
	// The file the report is written to.
	Path string
}

// Write writes the report, one row per leaf, after a header row.
func (w *ReportWriter) Write(r Report) error {
	absPath, err := filepath.Abs(w.Path)
	if err != nil {
		return err
	}

	f, err := os.Create(absPath)
	if err != nil {
		return err
	}

	writer := csv.NewWriter(f)
	records := make([][]string, 0, len(r.Entries)+1)
	records = append(records, csvHeader)
	for _, e := range r.Entries {
		records = append(records, formatEntry(e))
	}

	err = writer.WriteAll(records)
	if err != nil {
		f.Close()
		return err
	}

	return f.Close()
}

func formatEntry(e Entry) []string {
	return []string{
		e.Path,
		string(e.Kind),
		formatShape(e.InputShape),
		formatShape(e.OutputShape),
		strconv.FormatInt(e.ParameterCount, 10),
		strconv.FormatFloat(e.InferenceMemoryMB, 'g', -1, 64),
		strconv.FormatFloat(e.DurationSeconds, 'g', -1, 64),
		strconv.FormatInt(e.MultiplyAdds, 10),
		strconv.FormatInt(e.Flops, 10),
		strconv.FormatInt(e.ConvFlops, 10),
		strconv.FormatInt(e.MemoryReadBytes, 10),
		strconv.FormatInt(e.MemoryWriteBytes, 10),
	}
}

func formatShape(shape []int) string {
	tokens := make([]string, len(shape))
	for i, d := range shape {
		tokens[i] = strconv.Itoa(d)
	}

	return "[" + strings.Join(tokens, ";") + "]"
}

// A ReportLoader loads a report from a CSV file written by ReportWriter.
type ReportLoader struct {
	// The file the report is read from.
	Path string
}

// Load loads the report and recomputes its totals.
func (l *ReportLoader) Load() (Report, error) {
	absPath, err := filepath.Abs(l.Path)
	if err != nil {
		return Report{}, err
	}

	f, err := os.Open(absPath)
	if err != nil {
		return Report{}, err
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.Comma = ','
	reader.TrimLeadingSpace = true

	records, err := reader.ReadAll()
	if err != nil {
		return Report{}, err
	}

	entries := make([]Entry, 0, len(records))
	for i, record := range records {
		if i == 0 {
			continue
		}

		entry, err := parseEntry(record)
		if err != nil {
			return Report{}, fmt.Errorf("line %d: %w", i+1, err)
		}
		entries = append(entries, entry)
	}

	return NewReport(entries), nil
}

func parseEntry(record []string) (Entry, error) {
	if len(record) != len(csvHeader) {
		return Entry{}, fmt.Errorf("expected %d fields, got %d",
			len(csvHeader), len(record))
	}

	var err error
	e := Entry{
		Path: record[0],
		Kind: Kind(record[1]),
	}

	e.InputShape, err = parseShapeList(record[2])
	if err != nil {
		return Entry{}, err
	}

	e.OutputShape, err = parseShapeList(record[3])
	if err != nil {
		return Entry{}, err
	}

	e.InferenceMemoryMB, err = strconv.ParseFloat(record[5], 64)
	if err != nil {
		return Entry{}, err
	}

	e.DurationSeconds, err = strconv.ParseFloat(record[6], 64)
	if err != nil {
		return Entry{}, err
	}

	ints := []*int64{
		&e.ParameterCount, nil, nil, &e.MultiplyAdds, &e.Flops,
		&e.ConvFlops, &e.MemoryReadBytes, &e.MemoryWriteBytes,
	}
	for i, dst := range ints {
		if dst == nil {
			continue
		}

		*dst, err = strconv.ParseInt(record[4+i], 10, 64)
		if err != nil {
			return Entry{}, err
		}
	}

	return e, nil
}

func parseShapeList(str string) ([]int, error) {
	delimiter := ";"

	str = strings.Trim(str, "[]")
	str = strings.ReplaceAll(str, " ", "")
	tokens := strings.Split(str, delimiter)

	if len(tokens) == 1 && tokens[0] == "" {
		return []int{}, nil
	}

	shape := make([]int, len(tokens))
	for i, token := range tokens {
		d, err := strconv.Atoi(token)
		if err != nil {
			return nil, err
		}
		shape[i] = d
	}

	return shape, nil
}
