package services

import (
	"strings"
	"time"

	"clipay/contexts/finance-core/payout-engine/domain/entities"
)

const day = 24 * time.Hour

// DaysBetween counts whole days from a to b, rounding partial days up.
// It never goes below zero.
func DaysBetween(from time.Time, to time.Time) int64 {
	diff := to.UTC().Sub(from.UTC())
	if diff <= 0 {
		return 0
	}
	days := int64(diff / day)
	if diff%day != 0 {
		days++
	}
	return days
}

// CampaignSpanDays is the original campaign length, at least one day.
func CampaignSpanDays(campaign entities.Campaign) int64 {
	return max(1, DaysBetween(entities.CalendarDate(campaign.StartDate), entities.CalendarDate(campaign.EndDate)))
}

// DaysRemaining counts the days left until the campaign end date.
func DaysRemaining(campaign entities.Campaign, today time.Time) int64 {
	return DaysBetween(today, entities.CalendarDate(campaign.EndDate))
}

// CycleSchedule places payout boundaries at 00:00 of an anchor weekday.
type CycleSchedule struct {
	Anchor   time.Weekday
	Location *time.Location
}

func DefaultCycleSchedule() CycleSchedule {
	return CycleSchedule{Anchor: time.Monday, Location: time.UTC}
}

// Next returns the first boundary strictly after now, in UTC.
func (s CycleSchedule) Next(now time.Time) time.Time {
	loc := s.Location
	if loc == nil {
		loc = time.UTC
	}
	local := now.In(loc)
	midnight := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, loc)
	offset := (int(s.Anchor) - int(midnight.Weekday()) + 7) % 7
	candidate := midnight.AddDate(0, 0, offset)
	if !candidate.After(local) {
		candidate = candidate.AddDate(0, 0, 7)
	}
	return candidate.UTC()
}

// ParseWeekday accepts English weekday names, case-insensitively.
func ParseWeekday(value string) (time.Weekday, bool) {
	normalized := strings.ToLower(strings.TrimSpace(value))
	for weekday := time.Sunday; weekday <= time.Saturday; weekday++ {
		if strings.ToLower(weekday.String()) == normalized {
			return weekday, true
		}
	}
	return time.Sunday, false
}
