package main

import (
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/danjacka/mbrainz-importer/internal/importer"
)

var summaryAligns = []columnAlignment{
	alignLeft, alignRight, alignRight, alignRight,
	alignRight, alignRight, alignRight, alignRight, alignRight,
}

func renderRunSummary(w io.Writer, s *importer.RunSummary) {
	headers := []string{
		"TYPE", "RECORDS", "FRAGMENTS", "UNITS",
		"COMMITTED", "SKIPPED", "ENTITIES", "DATOMS", "TIME",
	}
	rows := make([][]string, 0, len(s.Types))
	for _, ts := range s.Types {
		rows = append(rows, []string{
			ts.Type,
			strconv.Itoa(ts.Records),
			strconv.Itoa(ts.Fragments),
			strconv.Itoa(ts.Units),
			strconv.Itoa(ts.Committed),
			strconv.Itoa(ts.Skipped),
			strconv.Itoa(ts.Entities),
			strconv.Itoa(ts.Asserted),
			formatDuration(ts.Duration),
		})
	}

	if isTerminal(w) {
		fmt.Fprintln(w, renderTable(headers, rows, summaryAligns))
	} else {
		writePlainRows(w, headers, rows)
	}

	for _, ts := range s.Types {
		for _, failure := range ts.Failures {
			fmt.Fprintf(w, "failure [%s] %s\n", failure.Category, failure.Error())
		}
	}

	verdict := "completed"
	if s.Failed() {
		verdict = "failed"
	}
	fmt.Fprintf(w, "run %s %s: %d types in %s\n",
		s.RunID, verdict, len(s.Types), formatDuration(s.Duration))
}

func renderImportStatus(w io.Writer, storeKind string, status *importer.Status) {
	fmt.Fprintf(w, "Database: %s (%s)\n", status.Database, storeKind)

	headers := []string{"TYPE", "COMMITTED UNITS"}
	rows := make([][]string, 0, len(status.Types))
	for _, ts := range status.Types {
		rows = append(rows, []string{ts.Type, strconv.Itoa(ts.Units)})
	}
	if isTerminal(w) {
		fmt.Fprintln(w, renderTable(headers, rows, []columnAlignment{alignLeft, alignRight}))
	} else {
		writePlainRows(w, headers, rows)
	}
}

func formatDuration(d time.Duration) string {
	switch {
	case d >= time.Minute:
		return d.Round(time.Second).String()
	case d >= time.Second:
		return d.Round(10 * time.Millisecond).String()
	default:
		return d.Round(time.Millisecond).String()
	}
}
