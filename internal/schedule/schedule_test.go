package schedule

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/v0xg/teetime/internal/config"
)

var names = []string{"Monday", "Tuesday", "Wednesday", "Thursday", "Friday", "Saturday", "Sunday"}

func TestNextDateForWeekdayAllCombinations(t *testing.T) {
	// 2026-10-12 is a Monday; cover a full week of "today" values.
	start := time.Date(2026, time.October, 12, 9, 30, 0, 0, time.UTC)
	for i := 0; i < 7; i++ {
		today := start.AddDate(0, 0, i)
		for _, name := range names {
			got, err := NextDateForWeekday(name, today)
			require.NoError(t, err)

			assert.True(t, got.After(today), "%s from %s: %s not after today", name, today.Weekday(), got)
			assert.LessOrEqual(t, got.Sub(today), 7*24*time.Hour)
			assert.Equal(t, name, got.Weekday().String())
		}
	}
}

func TestNextDateForWeekdaySameDayIsNextWeek(t *testing.T) {
	tuesday := time.Date(2026, time.October, 13, 7, 0, 0, 0, time.UTC)
	got, err := NextDateForWeekday("tuesday", tuesday)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, time.October, 20, 7, 0, 0, 0, time.UTC), got)
}

func TestNextDateForWeekdayCaseInsensitive(t *testing.T) {
	today := time.Date(2026, time.October, 18, 0, 0, 0, 0, time.UTC) // Sunday
	for _, name := range []string{"MONDAY", "monday", " Monday "} {
		got, err := NextDateForWeekday(name, today)
		require.NoError(t, err)
		assert.Equal(t, 19, got.Day())
	}
}

func TestNextDateForWeekdayUnknown(t *testing.T) {
	_, err := NextDateForWeekday("Funday", time.Now())
	require.Error(t, err)
	assert.True(t, config.IsError(err))
	assert.Contains(t, err.Error(), "Funday")
}
