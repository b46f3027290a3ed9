package glucose_test

import (
	"testing"
	"time"

	"glucoflow/internal/glucose"

	"github.com/stretchr/testify/require"
)

// at builds a timestamp on a fixed test day.
func at(t *testing.T, hour, minute int) time.Time {
	t.Helper()

	return time.Date(2024, 2, 1, hour, minute, 0, 0, time.Local)
}

// reading builds a note-less reading.
func reading(t *testing.T, hour, minute int, value float64) glucose.Reading {
	t.Helper()

	return glucose.Reading{Time: at(t, hour, minute), Value: glucose.Value(value)}
}

// noted builds a reading carrying a meal note.
func noted(t *testing.T, hour, minute int, value float64, note string) glucose.Reading {
	t.Helper()

	return glucose.Reading{Time: at(t, hour, minute), Value: glucose.Value(value), Note: note}
}

func mkStore(t *testing.T, readings ...glucose.Reading) *glucose.Store {
	t.Helper()

	store, err := glucose.NewStore(readings)
	require.NoError(t, err)

	return store
}
