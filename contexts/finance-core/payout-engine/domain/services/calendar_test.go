package services

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestDaysBetweenRoundsPartialDaysUp(t *testing.T) {
	require.EqualValues(t, 0, DaysBetween(day0, day0))
	require.EqualValues(t, 0, DaysBetween(day0.AddDate(0, 0, 1), day0))
	require.EqualValues(t, 1, DaysBetween(day0, day0.Add(time.Minute)))
	require.EqualValues(t, 2, DaysBetween(day0.Add(13*time.Hour), day0.AddDate(0, 0, 2)))
}

func TestCampaignSpanIsAtLeastOneDay(t *testing.T) {
	campaign := campaignFixture(10, day0.Add(3*time.Hour), day0.Add(20*time.Hour))
	require.EqualValues(t, 1, CampaignSpanDays(campaign))
}

func TestCycleScheduleNext(t *testing.T) {
	schedule := DefaultCycleSchedule()
	// day0 is a Monday.
	require.Equal(t, time.Monday, day0.Weekday())

	require.True(t, day0.AddDate(0, 0, 7).Equal(schedule.Next(day0)))
	require.True(t, day0.AddDate(0, 0, 7).Equal(schedule.Next(day0.Add(time.Second))))
	require.True(t, day0.Equal(schedule.Next(day0.Add(-time.Second))))
	require.True(t, day0.AddDate(0, 0, 7).Equal(schedule.Next(day0.AddDate(0, 0, 3))))
}

func TestCycleScheduleNextInLocation(t *testing.T) {
	saoPaulo := time.FixedZone("BRT", -3*60*60)
	schedule := CycleSchedule{Anchor: time.Friday, Location: saoPaulo}

	next := schedule.Next(day0)
	require.Equal(t, time.UTC, next.Location())
	local := next.In(saoPaulo)
	require.Equal(t, time.Friday, local.Weekday())
	require.Zero(t, local.Hour())
	require.True(t, next.After(day0))
}

func TestParseWeekday(t *testing.T) {
	weekday, ok := ParseWeekday(" Thursday ")
	require.True(t, ok)
	require.Equal(t, time.Thursday, weekday)

	_, ok = ParseWeekday("someday")
	require.False(t, ok)
}
