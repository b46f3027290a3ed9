package glucose

import (
	"fmt"
	"time"
)

const (
	// responseWindow is the post-prandial observation period.
	responseWindow = 2 * time.Hour

	// postprandialTolerance bounds how far from the exact 2-hour mark
	// the post-prandial reading may sit. Sampling intervals rarely
	// align with the mark exactly.
	postprandialTolerance = 15 * time.Minute
)

// Default high-excursion thresholds in mmol/L, matching common
// clinical post-meal targets.
const (
	DefaultPeakThreshold         = 10.0
	DefaultPostprandialThreshold = 7.8
)

// Thresholds holds the high-excursion cutoffs in mmol/L.
type Thresholds struct {
	Peak         Value
	Postprandial Value
}

// DefaultThresholds returns the clinical default cutoffs.
func DefaultThresholds() Thresholds {
	return Thresholds{
		Peak:         DefaultPeakThreshold,
		Postprandial: DefaultPostprandialThreshold,
	}
}

// HighPeak reports whether v is at or above the peak cutoff.
func (t Thresholds) HighPeak(v Value) bool {
	return v >= t.Peak
}

// HighPostprandial reports whether v is at or above the post-prandial
// cutoff.
func (t Thresholds) HighPostprandial(v Value) bool {
	return v >= t.Postprandial
}

// ResponseRecord is the glycemic response of a single meal.
type ResponseRecord struct {
	Meal             MealEvent
	Peak             Value
	PeakTime         time.Time
	Postprandial     Value
	PostprandialTime time.Time

	// Delta is post-prandial minus initial glucose.
	Delta Value

	HighPeak         bool
	HighPostprandial bool
}

// AnalyzeResponse computes the 2-hour response window for one meal:
// the peak reading inside [start, start+2h] (ties broken by earliest
// occurrence) and the reading nearest the exact 2-hour mark.
//
// Returns ErrInsufficientData when the window holds no readings or
// when no reading falls within the tolerance of the 2-hour mark, i.e.
// the window runs past the end of the available data. Callers skip the
// record and continue.
func AnalyzeResponse(meal MealEvent, store *Store, thresholds Thresholds) (ResponseRecord, error) {
	start := meal.WindowStart
	end := start.Add(responseWindow)

	window := store.between(start, end)
	if len(window) == 0 {
		return ResponseRecord{}, fmt.Errorf("%w: no readings at or after meal %q at %s",
			ErrInsufficientData, meal.Note, start.Format(TimeLayout))
	}

	peak := window[0]
	for _, r := range window[1:] {
		if r.Value > peak.Value {
			peak = r
		}
	}

	postprandial, err := store.nearestWithin(end, postprandialTolerance)
	if err != nil {
		return ResponseRecord{}, fmt.Errorf("%w: meal %q at %s has no reading near the 2h mark",
			ErrInsufficientData, meal.Note, start.Format(TimeLayout))
	}

	return ResponseRecord{
		Meal:             meal,
		Peak:             peak.Value,
		PeakTime:         peak.Time,
		Postprandial:     postprandial.Value,
		PostprandialTime: postprandial.Time,
		Delta:            postprandial.Value - meal.Initial,
		HighPeak:         thresholds.HighPeak(peak.Value),
		HighPostprandial: thresholds.HighPostprandial(postprandial.Value),
	}, nil
}
