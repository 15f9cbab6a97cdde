// Package report renders analysis results as CSV tables and reads marker
// tables back for offline re-analysis.
package report

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/xaionaro-go/audiolat/pkg/latency"
	"github.com/xaionaro-go/audiolat/pkg/level"
	"github.com/xaionaro-go/audiolat/pkg/pairing"
	"github.com/xaionaro-go/audiolat/pkg/scanner"
	"github.com/xaionaro-go/audiolat/pkg/transient"
)

var (
	MarkersHeader    = []string{"sample", "time", "correlation", "reference"}
	TransientsHeader = []string{"sample", "time", "local max level", "file max level", "rms"}
	PairsHeader      = []string{"timestamp", "latency", "label", "leading time", "leading label", "level", "leading level"}
	SummariesHeader  = []string{"file", "average", "stddev", "samples"}
)

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', 6, 64)
}

func formatLevel(v float64) string {
	return strconv.FormatFloat(v, 'f', 2, 64)
}

func writeAll(w io.Writer, header []string, rows [][]string) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(header); err != nil {
		return fmt.Errorf("unable to write the header: %w", err)
	}
	if err := cw.WriteAll(rows); err != nil {
		return fmt.Errorf("unable to write the rows: %w", err)
	}
	return nil
}

func WriteMarkers(w io.Writer, markers []scanner.Marker) error {
	rows := make([][]string, 0, len(markers))
	for _, m := range markers {
		rows = append(rows, []string{
			strconv.FormatInt(m.SampleOffset, 10),
			formatFloat(m.Time),
			strconv.Itoa(m.Confidence),
			m.Label,
		})
	}
	return writeAll(w, MarkersHeader, rows)
}

// ReadMarkers parses a table written by WriteMarkers. The columns are looked
// up by the header, so extra columns and another order are fine.
func ReadMarkers(r io.Reader) ([]scanner.Marker, error) {
	records, err := csv.NewReader(r).ReadAll()
	if err != nil {
		return nil, fmt.Errorf("unable to parse CSV: %w", err)
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("no header")
	}

	columns := map[string]int{}
	for idx, name := range records[0] {
		columns[strings.TrimSpace(name)] = idx
	}
	for _, name := range MarkersHeader {
		if _, ok := columns[name]; !ok {
			return nil, fmt.Errorf("column '%s' is missing", name)
		}
	}

	markers := make([]scanner.Marker, 0, len(records)-1)
	for lineIdx, record := range records[1:] {
		var (
			m   scanner.Marker
			err error
		)
		m.SampleOffset, err = strconv.ParseInt(record[columns["sample"]], 10, 64)
		if err != nil {
			return nil, fmt.Errorf("line %d: invalid sample: %w", lineIdx+2, err)
		}
		m.Time, err = strconv.ParseFloat(record[columns["time"]], 64)
		if err != nil {
			return nil, fmt.Errorf("line %d: invalid time: %w", lineIdx+2, err)
		}
		m.Confidence, err = strconv.Atoi(record[columns["correlation"]])
		if err != nil {
			return nil, fmt.Errorf("line %d: invalid correlation: %w", lineIdx+2, err)
		}
		m.Label = record[columns["reference"]]
		markers = append(markers, m)
	}
	return markers, nil
}

// WriteTransients writes the transient events together with the levels of
// the file they were found in.
func WriteTransients(w io.Writer, events []transient.Event, levels level.Levels) error {
	rows := make([][]string, 0, len(events))
	for _, ev := range events {
		rows = append(rows, []string{
			strconv.FormatInt(ev.SampleOffset, 10),
			formatFloat(ev.Time),
			formatLevel(ev.PeakLevelDB),
			formatLevel(levels.PeakDB),
			formatLevel(levels.RMSDB),
		})
	}
	return writeAll(w, TransientsHeader, rows)
}

func WritePairs(w io.Writer, pairs []pairing.MatchedPair) error {
	rows := make([][]string, 0, len(pairs))
	for _, p := range pairs {
		rows = append(rows, []string{
			formatFloat(p.Timestamp),
			formatFloat(p.Latency),
			p.Label,
			formatFloat(p.LeadingTime),
			p.LeadingLabel,
			formatLevel(p.LevelDB),
			formatLevel(p.LeadingLevelDB),
		})
	}
	return writeAll(w, PairsHeader, rows)
}

type NamedSummary struct {
	Name string
	latency.Summary
}

// WriteSummaries writes a line per summary; the statistics of a summary
// without samples are left empty.
func WriteSummaries(w io.Writer, summaries []NamedSummary) error {
	rows := make([][]string, 0, len(summaries))
	for _, s := range summaries {
		row := []string{s.Name, "", "", strconv.Itoa(s.SampleCount)}
		if s.SampleCount > 0 {
			row[1] = formatFloat(s.Mean)
			row[2] = formatFloat(s.StdDev)
		}
		rows = append(rows, row)
	}
	return writeAll(w, SummariesHeader, rows)
}
