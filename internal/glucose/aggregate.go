package glucose

import "fmt"

// overnightEndHour bounds the overnight clock window [00:00, 06:00).
const overnightEndHour = 6

// Average is a mean that may be unavailable when its category had no
// contributing readings. An unavailable average is reported as such,
// never as zero.
type Average struct {
	Value     Value
	Available bool
}

// Summary holds the aggregate averages of one analysis run.
type Summary struct {
	// Fasting is the mean of readings outside every meal's 2-hour
	// window.
	Fasting Average

	// Overnight is the mean of readings with clock time in
	// [00:00, 06:00) local time.
	Overnight Average

	// Peak is the mean of all record peak values.
	Peak Average

	// Postprandial is the mean of all record post-prandial values.
	Postprandial Average
}

// Summarize computes the four summary averages over a completed run.
// Each category with no contributing readings yields a wrapped
// ErrNoData in the returned slice and is marked unavailable. The
// result is independent of record order.
func Summarize(store *Store, meals []MealEvent, records []ResponseRecord) (Summary, []error) {
	var (
		summary Summary
		errs    []error
	)

	var fasting, overnight, peaks, postprandials []Value

	for _, r := range store.All() {
		if !inMealWindow(r, meals) {
			fasting = append(fasting, r.Value)
		}

		if r.Time.Hour() < overnightEndHour {
			overnight = append(overnight, r.Value)
		}
	}

	for _, rec := range records {
		peaks = append(peaks, rec.Peak)
		postprandials = append(postprandials, rec.Postprandial)
	}

	for _, c := range []struct {
		name   string
		values []Value
		avg    *Average
	}{
		{"fasting", fasting, &summary.Fasting},
		{"overnight", overnight, &summary.Overnight},
		{"peak", peaks, &summary.Peak},
		{"postprandial", postprandials, &summary.Postprandial},
	} {
		if len(c.values) == 0 {
			errs = append(errs, fmt.Errorf("%w: no %s readings, average unavailable", ErrNoData, c.name))

			continue
		}

		*c.avg = Average{Value: mean(c.values), Available: true}
	}

	return summary, errs
}

// inMealWindow reports whether r falls inside [meal.Time, +2h] of any
// meal. Meal windows may overlap.
func inMealWindow(r Reading, meals []MealEvent) bool {
	for _, m := range meals {
		if r.Time.Before(m.Time) {
			// Meals are in timestamp order; no later meal can
			// contain r either.
			return false
		}

		if !r.Time.After(m.Time.Add(responseWindow)) {
			return true
		}
	}

	return false
}

func mean(values []Value) Value {
	var sum Value
	for _, v := range values {
		sum += v
	}

	return sum / Value(len(values))
}
