package cli

import (
	"fmt"
	"strings"

	"glucoflow/internal/glucose"

	"github.com/mattn/go-runewidth"
)

// blockWidth is the width of the per-record separator and the summary
// rules, matching the report's fixed-width layout.
const blockWidth = 50

// printReport renders every response record as a fixed-width console
// block, then the summary statistics.
func printReport(o *IO, records []glucose.ResponseRecord, summary glucose.Summary) {
	for _, rec := range records {
		printRecord(o, rec)
	}

	printSummary(o, summary)
}

func printRecord(o *IO, rec glucose.ResponseRecord) {
	o.Printf("Time: %s\n", rec.Meal.Time.Format(glucose.TimeLayout))
	o.Printf("Note: %s\n", noteColumn(rec.Meal.Note))
	o.Printf("Initial Glucose: %s\n", formatValue(rec.Meal.Initial))
	o.Printf("Peak (2h): %s%s\n", formatValue(rec.Peak), flagMarker(rec.HighPeak))
	o.Printf("Postprandial (2h): %s%s\n", formatValue(rec.Postprandial), flagMarker(rec.HighPostprandial))
	o.Printf("Delta: %s\n", formatDelta(rec.Delta))
	o.Println(strings.Repeat("-", blockWidth))
}

func printSummary(o *IO, summary glucose.Summary) {
	o.Println("")
	o.Println("SUMMARY STATISTICS")
	o.Println(strings.Repeat("=", blockWidth))
	o.Printf("Average Fasting Glucose: %s\n", formatAverage(summary.Fasting))
	o.Printf("Average Overnight Glucose: %s\n", formatAverage(summary.Overnight))
	o.Printf("Average Peak Glucose: %s\n", formatAverage(summary.Peak))
	o.Printf("Average Postprandial Glucose: %s\n", formatAverage(summary.Postprandial))
	o.Println(strings.Repeat("=", blockWidth))
}

// noteColumn fits the note into the block, measuring display cells
// rather than bytes so wide-rune notes keep the blocks aligned.
func noteColumn(note string) string {
	width := blockWidth - len("Note: ")
	if runewidth.StringWidth(note) <= width {
		return note
	}

	return runewidth.Truncate(note, width, "...")
}

func formatValue(v glucose.Value) string {
	return fmt.Sprintf("%.1f mmol/L (%d mg/dL)", float64(v), v.MgDL())
}

func formatDelta(v glucose.Value) string {
	return fmt.Sprintf("%+.1f mmol/L (%+d mg/dL)", float64(v), v.MgDL())
}

func formatAverage(a glucose.Average) string {
	if !a.Available {
		return "N/A"
	}

	return formatValue(a.Value)
}

func flagMarker(high bool) string {
	if high {
		return " ***"
	}

	return ""
}
