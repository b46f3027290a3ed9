package glucose

import (
	"strings"
	"time"
)

// DefaultCombineWindow groups notes logged within an hour of a meal's
// first note as courses of that meal.
const DefaultCombineWindow = time.Hour

// MealEvent is a meal annotation bound to its nearest glucose reading.
type MealEvent struct {
	// Time is the timestamp of the note that opened the meal.
	Time time.Time

	// Note is the trimmed annotation text. Combined meals join their
	// notes with " | ".
	Note string

	// Initial is the value of the nearest reading to Time.
	Initial Value

	// MatchOffset is the matched reading's offset from Time. Zero for
	// co-located notes, which is every note in a CGM export.
	MatchOffset time.Duration

	// WindowStart anchors the 2-hour response window. Equal to Time
	// except for combined meals, where it is the last note of the
	// group (the response is measured from the end of eating).
	WindowStart time.Time
}

// ExtractMeals returns a meal event for every reading whose note is
// non-empty after trimming whitespace, in timestamp order. The initial
// glucose is bound via nearest-timestamp search over the whole store;
// with co-located notes this resolves to the meal's own reading.
func ExtractMeals(store *Store) []MealEvent {
	var meals []MealEvent

	for _, r := range store.All() {
		note := strings.TrimSpace(r.Note)
		if note == "" {
			continue
		}

		nearest, err := store.FindNearest(r.Time)
		if err != nil {
			// Unreachable: the store contains r itself.
			continue
		}

		meals = append(meals, MealEvent{
			Time:        r.Time,
			Note:        note,
			Initial:     nearest.Value,
			MatchOffset: nearest.Time.Sub(r.Time),
			WindowStart: r.Time,
		})
	}

	return meals
}

// CombineMeals merges meal events that fall within window of the first
// event of a rolling group: one course logged as several notes becomes
// one meal. The merged event keeps the first note's time and initial
// value; WindowStart moves to the last note of the group. A window of
// zero or less disables combining.
func CombineMeals(meals []MealEvent, window time.Duration) []MealEvent {
	if window <= 0 || len(meals) == 0 {
		return meals
	}

	var out []MealEvent

	cur := meals[0]
	windowEnd := cur.Time.Add(window)

	for _, m := range meals[1:] {
		if !m.Time.After(windowEnd) {
			cur.Note += " | " + m.Note
			cur.WindowStart = m.Time

			continue
		}

		out = append(out, cur)

		cur = m
		windowEnd = cur.Time.Add(window)
	}

	return append(out, cur)
}
