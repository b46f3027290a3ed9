// Package cli wires the glucose analysis pipeline to the command line:
// flag parsing, configuration, report rendering and exit codes.
package cli

import (
	"errors"
	"fmt"
	"io"
	"time"

	"glucoflow/internal/glucose"

	flag "github.com/spf13/pflag"
)

// Run is the main entry point. Returns the exit code: 0 when the
// analysis completed (recovered warnings included), 1 on malformed
// input, a missing file or bad usage.
func Run(_ io.Reader, out io.Writer, errOut io.Writer, args []string, env map[string]string) int {
	opts, fs, err := parseFlags(args)
	if err != nil {
		fprintln(errOut, "error:", err)
		printUsage(errOut)

		return 1
	}

	if opts.help {
		printUsage(out)

		return 0
	}

	if opts.input == "" {
		fprintln(errOut, "error: input CSV path is required")
		printUsage(errOut)

		return 1
	}

	cfg, err := glucose.LoadConfig(opts.configPath, env)
	if err != nil {
		fprintln(errOut, "error:", err)

		return 1
	}

	applyOverrides(&cfg, opts, fs)

	if err := cfg.Validate(); err != nil {
		fprintln(errOut, "error:", err)

		return 1
	}

	ioCtx := NewIO(out, errOut)

	store, rowWarnings, err := glucose.LoadFile(opts.input, cfg)
	if err != nil {
		fprintln(errOut, "error:", err)

		return 1
	}

	for _, w := range rowWarnings {
		ioCtx.Warn("line %d: %s", w.Line, w.Msg)
	}

	meals := glucose.ExtractMeals(store)
	if opts.combineNotes > 0 {
		meals = glucose.CombineMeals(meals, time.Duration(opts.combineNotes)*time.Minute)
	}

	thresholds := cfg.Thresholds()

	var records []glucose.ResponseRecord

	for _, meal := range meals {
		record, err := glucose.AnalyzeResponse(meal, store, thresholds)
		if err != nil {
			ioCtx.Warn("skipped: %v", err)

			continue
		}

		records = append(records, record)
	}

	summary, noData := glucose.Summarize(store, meals, records)
	for _, err := range noData {
		ioCtx.Warn("%v", err)
	}

	printReport(ioCtx, records, summary)

	if opts.output != "" {
		if err := glucose.ExportCSV(opts.output, records, summary); err != nil {
			fprintln(errOut, "error:", err)

			return 1
		}

		ioCtx.Printf("\nCSV export saved to: %s\n", opts.output)
	}

	ioCtx.Finish()

	return 0
}

// options holds the parsed command line.
type options struct {
	input                 string
	output                string
	configPath            string
	peakThreshold         float64
	postprandialThreshold float64
	delimiter             string
	timestampColumn       string
	glucoseColumns        []string
	notesColumn           string
	combineNotes          int
	help                  bool
}

func parseFlags(args []string) (options, *flag.FlagSet, error) {
	fs := flag.NewFlagSet("glucoflow", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	var opts options

	fs.StringVar(&opts.output, "output", "", "CSV export path")
	fs.StringVar(&opts.configPath, "config", "", "Config file path")
	fs.Float64Var(&opts.peakThreshold, "peak-threshold", glucose.DefaultPeakThreshold,
		"High-peak flag threshold in mmol/L")
	fs.Float64Var(&opts.postprandialThreshold, "postprandial-threshold", glucose.DefaultPostprandialThreshold,
		"High post-prandial flag threshold in mmol/L")
	fs.StringVar(&opts.delimiter, "delimiter", "", "Input CSV delimiter")
	fs.StringVar(&opts.timestampColumn, "timestamp-column", "", "Timestamp column name")
	fs.StringArrayVar(&opts.glucoseColumns, "glucose-column", nil,
		"Glucose value column, repeatable; per row the first non-empty wins")
	fs.StringVar(&opts.notesColumn, "notes-column", "", "Notes column name")
	fs.IntVar(&opts.combineNotes, "combine-notes", 0,
		"Merge notes within a rolling window of this many minutes, 0 disables")
	fs.BoolVarP(&opts.help, "help", "h", false, "Show usage")

	if err := fs.Parse(args[1:]); err != nil {
		return options{}, nil, err
	}

	positional := fs.Args()

	if len(positional) > 1 {
		return options{}, nil, fmt.Errorf("unexpected argument: %s", positional[1])
	}

	if len(positional) == 1 {
		opts.input = positional[0]
	}

	if opts.combineNotes < 0 {
		return options{}, nil, errors.New("--combine-notes must be non-negative")
	}

	return opts, fs, nil
}

// applyOverrides layers flags over the loaded config. Only flags the
// user actually set win over the file and environment.
func applyOverrides(cfg *glucose.Config, opts options, fs *flag.FlagSet) {
	if fs.Changed("peak-threshold") {
		cfg.PeakThreshold = opts.peakThreshold
	}

	if fs.Changed("postprandial-threshold") {
		cfg.PostprandialThreshold = opts.postprandialThreshold
	}

	if fs.Changed("delimiter") {
		cfg.Delimiter = opts.delimiter
	}

	if fs.Changed("timestamp-column") {
		cfg.TimestampColumn = opts.timestampColumn
	}

	if fs.Changed("glucose-column") {
		cfg.GlucoseColumns = opts.glucoseColumns
	}

	if fs.Changed("notes-column") {
		cfg.NotesColumn = opts.notesColumn
	}
}

func fprintln(w io.Writer, a ...any) {
	_, _ = fmt.Fprintln(w, a...)
}

func printUsage(w io.Writer) {
	fprintln(w, `glucoflow - per-meal glycemic response reports from CGM exports

Usage: glucoflow <input-csv> [options]

The input is a CSV export of timestamped glucose readings with free-text
meal notes (.gz compressed inputs are read transparently). Column names,
delimiter and timestamp layout are configurable via .glucoflow.json.

Options:
  --output <path>                    Write a CSV export of all response records
  --peak-threshold <mmol/L>          High-peak flag threshold [default: 10.0]
  --postprandial-threshold <mmol/L>  High post-prandial flag threshold [default: 7.8]
  --config <path>                    Config file [default: .glucoflow.json]
  --delimiter <char>                 Input CSV delimiter
  --timestamp-column <name>          Timestamp column name
  --glucose-column <name>            Glucose column, repeatable; first non-empty wins
  --notes-column <name>              Notes column name
  --combine-notes <minutes>          Merge notes within a rolling window [default: off]
  -h, --help                         Show this help`)
}
