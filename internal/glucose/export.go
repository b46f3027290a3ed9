package glucose

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"strconv"

	"github.com/natefinch/atomic"
)

// exportHeader is the column set of the CSV export, one row per
// response record.
var exportHeader = []string{
	"Timestamp",
	"Note",
	"Initial Glucose (mmol/L)",
	"Initial Glucose (mg/dL)",
	"Peak (mmol/L)",
	"Peak (mg/dL)",
	"Peak Time",
	"Postprandial (mmol/L)",
	"Postprandial (mg/dL)",
	"Postprandial Time",
	"Delta (mmol/L)",
	"Delta (mg/dL)",
	"High Peak",
	"High Postprandial",
}

// ExportCSV writes one row per response record plus a summary footer,
// replacing path atomically so a failed run never leaves a truncated
// export behind.
func ExportCSV(path string, records []ResponseRecord, summary Summary) error {
	var buf bytes.Buffer

	w := csv.NewWriter(&buf)

	rows := [][]string{exportHeader}
	for _, rec := range records {
		rows = append(rows, exportRow(rec))
	}

	rows = append(rows, summaryFooter(summary)...)

	if err := w.WriteAll(rows); err != nil {
		return fmt.Errorf("encode export: %w", err)
	}

	if err := atomic.WriteFile(path, &buf); err != nil {
		return fmt.Errorf("write export: %w", err)
	}

	return nil
}

func exportRow(rec ResponseRecord) []string {
	return []string{
		rec.Meal.Time.Format(TimeLayout),
		rec.Meal.Note,
		formatMmol(rec.Meal.Initial),
		strconv.Itoa(rec.Meal.Initial.MgDL()),
		formatMmol(rec.Peak),
		strconv.Itoa(rec.Peak.MgDL()),
		rec.PeakTime.Format(TimeLayout),
		formatMmol(rec.Postprandial),
		strconv.Itoa(rec.Postprandial.MgDL()),
		rec.PostprandialTime.Format(TimeLayout),
		fmt.Sprintf("%+.1f", float64(rec.Delta)),
		fmt.Sprintf("%+d", rec.Delta.MgDL()),
		strconv.FormatBool(rec.HighPeak),
		strconv.FormatBool(rec.HighPostprandial),
	}
}

// summaryFooter renders the aggregate averages below the records, one
// labelled row per category.
func summaryFooter(summary Summary) [][]string {
	rows := [][]string{{"", "SUMMARY STATISTICS"}}

	for _, c := range []struct {
		label string
		avg   Average
	}{
		{"Average Fasting Glucose", summary.Fasting},
		{"Average Overnight Glucose", summary.Overnight},
		{"Average Peak Glucose", summary.Peak},
		{"Average Postprandial Glucose", summary.Postprandial},
	} {
		mmol, mgdl := "N/A", "N/A"
		if c.avg.Available {
			mmol = formatMmol(c.avg.Value)
			mgdl = strconv.Itoa(c.avg.Value.MgDL())
		}

		rows = append(rows, []string{"", c.label, mmol, mgdl})
	}

	return rows
}

func formatMmol(v Value) string {
	return strconv.FormatFloat(float64(v), 'f', 1, 64)
}
