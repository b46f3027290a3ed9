// Package glucose implements the glycemic response pipeline: loading
// CGM readings, extracting meal events from note annotations, computing
// 2-hour post-prandial response windows, flagging high excursions and
// aggregating summary statistics.
package glucose

import (
	"fmt"
	"math"
	"sort"
	"time"
)

// TimeLayout is the timestamp format used in reports and exports.
const TimeLayout = "2006-01-02 15:04"

// mgdlPerMmol converts mmol/L to mg/dL.
const mgdlPerMmol = 18.0

// Value is a glucose concentration in mmol/L, the canonical unit.
type Value float64

// MgDL returns the derived mg/dL representation, rounded to the nearest
// integer. The mmol/L value stays the source of truth.
func (v Value) MgDL() int {
	return int(math.Round(float64(v) * mgdlPerMmol))
}

// Reading is a single CGM measurement. Immutable once loaded.
type Reading struct {
	Time  time.Time
	Value Value
	Note  string
}

// Store holds readings ordered by timestamp.
type Store struct {
	readings []Reading
}

// NewStore validates that timestamps are non-decreasing and returns a
// store over the given readings.
func NewStore(readings []Reading) (*Store, error) {
	for i := 1; i < len(readings); i++ {
		if readings[i].Time.Before(readings[i-1].Time) {
			return nil, fmt.Errorf("%w: reading %d at %s is earlier than the one before it",
				ErrMalformedInput, i+1, readings[i].Time.Format(TimeLayout))
		}
	}

	return &Store{readings: readings}, nil
}

// All returns the readings in timestamp order. Callers must not mutate
// the returned slice.
func (s *Store) All() []Reading {
	return s.readings
}

// Len returns the number of readings.
func (s *Store) Len() int {
	return len(s.readings)
}

// FindNearest returns the reading whose timestamp has the minimum
// absolute difference from t. Ties are broken by the earlier timestamp.
// Returns ErrEmptyStore when the store has no readings.
func (s *Store) FindNearest(t time.Time) (Reading, error) {
	if len(s.readings) == 0 {
		return Reading{}, ErrEmptyStore
	}

	// Index of the first reading at or after t.
	idx := sort.Search(len(s.readings), func(i int) bool {
		return !s.readings[i].Time.Before(t)
	})

	if idx == 0 {
		return s.readings[0], nil
	}

	if idx == len(s.readings) {
		return s.readings[len(s.readings)-1], nil
	}

	before := s.readings[idx-1]
	after := s.readings[idx]

	// Earlier wins on an exact tie.
	if t.Sub(before.Time) <= after.Time.Sub(t) {
		return before, nil
	}

	return after, nil
}

// between returns the contiguous readings with from <= time <= to.
func (s *Store) between(from, to time.Time) []Reading {
	lo := sort.Search(len(s.readings), func(i int) bool {
		return !s.readings[i].Time.Before(from)
	})
	hi := sort.Search(len(s.readings), func(i int) bool {
		return s.readings[i].Time.After(to)
	})

	return s.readings[lo:hi]
}

// nearestWithin returns the reading nearest to t, or
// ErrInsufficientData if the nearest one is more than tolerance away.
func (s *Store) nearestWithin(t time.Time, tolerance time.Duration) (Reading, error) {
	r, err := s.FindNearest(t)
	if err != nil {
		return Reading{}, err
	}

	d := r.Time.Sub(t)
	if d < 0 {
		d = -d
	}

	if d > tolerance {
		return Reading{}, ErrInsufficientData
	}

	return r, nil
}
