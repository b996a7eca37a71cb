// Package report renders sync-run history in exportable formats.
package report

import (
	"encoding/csv"
	"io"
	"strconv"
	"time"

	"github.com/ppiankov/cissync/internal/history"
)

var csvHeader = []string{
	"at", "processed", "created", "skipped", "failed", "durationMs", "dryRun",
}

// WriteCSV writes run summaries as CSV rows to w.
func WriteCSV(w io.Writer, runs []history.RunSummary) error {
	cw := csv.NewWriter(w)

	if err := cw.Write(csvHeader); err != nil {
		return err
	}

	for i := range runs {
		r := &runs[i]
		row := []string{
			r.At.UTC().Format(time.RFC3339),
			strconv.Itoa(r.Processed),
			strconv.Itoa(r.Created),
			strconv.Itoa(r.Skipped),
			strconv.Itoa(r.Failed),
			strconv.FormatInt(r.DurationMS, 10),
			strconv.FormatBool(r.DryRun),
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}

	cw.Flush()
	return cw.Error()
}
