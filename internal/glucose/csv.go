package glucose

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/klauspost/compress/gzip"
)

// RowWarning describes a recovered per-row problem found during load.
type RowWarning struct {
	Line int
	Msg  string
}

// LoadFile reads a CGM export, optionally gzip-compressed (by .gz
// suffix), and returns the ordered reading store.
func LoadFile(path string, cfg Config) (*Store, []RowWarning, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("cannot open input: %w", err)
	}
	defer f.Close()

	var r io.Reader = f

	if strings.HasSuffix(path, ".gz") {
		zr, err := gzip.NewReader(f)
		if err != nil {
			return nil, nil, fmt.Errorf("%w: %s is not a gzip stream: %v", ErrMalformedInput, path, err)
		}
		defer zr.Close()

		r = zr
	}

	return ReadCSV(r, cfg)
}

// columnIndexes holds resolved header positions for the schema.
type columnIndexes struct {
	timestamp int
	glucose   []int
	notes     int
}

// ReadCSV parses readings from r according to the configured schema.
// A row with an unparseable timestamp or glucose value aborts the load
// with ErrMalformedInput; rows carrying neither a glucose value nor a
// note are device event rows and are skipped. A row with a note but no
// glucose value cannot back a meal event and is skipped with a warning.
func ReadCSV(r io.Reader, cfg Config) (*Store, []RowWarning, error) {
	cr := csv.NewReader(r)
	cr.Comma = delimiterRune(cfg.Delimiter)
	cr.FieldsPerRecord = -1

	line := 0

	for i := 0; i < cfg.SkipLines; i++ {
		if _, err := cr.Read(); err != nil {
			return nil, nil, fmt.Errorf("%w: missing header: %v", ErrMalformedInput, err)
		}

		line++
	}

	header, err := cr.Read()
	if err != nil {
		return nil, nil, fmt.Errorf("%w: missing header: %v", ErrMalformedInput, err)
	}

	line++

	cols, err := resolveColumns(header, cfg)
	if err != nil {
		return nil, nil, err
	}

	var (
		readings []Reading
		warnings []RowWarning
	)

	for {
		record, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}

		line++

		if err != nil {
			return nil, nil, fmt.Errorf("%w: line %d: %v", ErrMalformedInput, line, err)
		}

		reading, keep, warn, err := parseRow(record, line, cols, cfg)
		if err != nil {
			return nil, nil, err
		}

		if warn != nil {
			warnings = append(warnings, *warn)
		}

		if keep {
			readings = append(readings, reading)
		}
	}

	store, err := NewStore(readings)
	if err != nil {
		return nil, nil, err
	}

	return store, warnings, nil
}

func parseRow(record []string, line int, cols columnIndexes, cfg Config) (Reading, bool, *RowWarning, error) {
	note := field(record, cols.notes)

	raw := ""
	for _, idx := range cols.glucose {
		if v := strings.TrimSpace(field(record, idx)); v != "" {
			raw = v

			break
		}
	}

	if raw == "" {
		if strings.TrimSpace(note) != "" {
			return Reading{}, false, &RowWarning{
				Line: line,
				Msg:  fmt.Sprintf("note %q has no glucose value, skipped", strings.TrimSpace(note)),
			}, nil
		}

		// Device event row (sensor start, alarms, ...).
		return Reading{}, false, nil, nil
	}

	ts := strings.TrimSpace(field(record, cols.timestamp))

	t, err := time.ParseInLocation(cfg.TimestampLayout, ts, time.Local)
	if err != nil {
		return Reading{}, false, nil, fmt.Errorf("%w: line %d: unparseable timestamp %q", ErrMalformedInput, line, ts)
	}

	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return Reading{}, false, nil, fmt.Errorf("%w: line %d: unparseable glucose value %q", ErrMalformedInput, line, raw)
	}

	return Reading{Time: t, Value: Value(v), Note: note}, true, nil, nil
}

func resolveColumns(header []string, cfg Config) (columnIndexes, error) {
	byName := make(map[string]int, len(header))
	for i, name := range header {
		byName[strings.TrimSpace(name)] = i
	}

	cols := columnIndexes{timestamp: -1, notes: -1}

	idx, ok := byName[cfg.TimestampColumn]
	if !ok {
		return columnIndexes{}, fmt.Errorf("%w: %q", ErrUnknownColumn, cfg.TimestampColumn)
	}

	cols.timestamp = idx

	idx, ok = byName[cfg.NotesColumn]
	if !ok {
		return columnIndexes{}, fmt.Errorf("%w: %q", ErrUnknownColumn, cfg.NotesColumn)
	}

	cols.notes = idx

	// Firmware versions differ in which value columns they emit; one
	// resolved column is enough.
	for _, name := range cfg.GlucoseColumns {
		if idx, ok := byName[name]; ok {
			cols.glucose = append(cols.glucose, idx)
		}
	}

	if len(cols.glucose) == 0 {
		return columnIndexes{}, fmt.Errorf("%w: none of %s", ErrUnknownColumn, strings.Join(cfg.GlucoseColumns, ", "))
	}

	return cols, nil
}

func field(record []string, idx int) string {
	if idx < 0 || idx >= len(record) {
		return ""
	}

	return record[idx]
}

// delimiterRune returns the configured delimiter. Config validation
// guarantees exactly one rune.
func delimiterRune(s string) rune {
	for _, r := range s {
		return r
	}

	return ','
}
