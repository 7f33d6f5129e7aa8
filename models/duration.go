package models

import (
	"strings"
	"time"
)

// DurationPeriod is the unit of an enrollment duration.
type DurationPeriod string

const (
	PeriodMinutes DurationPeriod = "minutes"
	PeriodHours   DurationPeriod = "hours"
	PeriodDays    DurationPeriod = "days"
	PeriodWeeks   DurationPeriod = "weeks"
	PeriodMonths  DurationPeriod = "months"
	PeriodYears   DurationPeriod = "years"
)

// IsValid returns true if p is one of the allowed constants.
func (p DurationPeriod) IsValid() bool {
	switch DurationPeriod(strings.ToLower(string(p))) {
	case PeriodMinutes, PeriodHours, PeriodDays, PeriodWeeks, PeriodMonths, PeriodYears:
		return true
	}
	return false
}

// Duration is an optional validity duration carried by enrollment methods and
// access requests. A zero value means "open-ended".
type Duration struct {
	DurationValue  float64        `gorm:"column:duration_value" json:"duration_value"`
	DurationPeriod DurationPeriod `gorm:"column:duration_period" json:"duration_period"`
}

// IsZero reports whether no duration is configured.
func (d Duration) IsZero() bool {
	return d.DurationPeriod == "" || d.DurationValue == 0
}

// AddTo adds the duration to the given timestamp. Minutes, hours, days and
// weeks add fixed time deltas. Months add calendar months, clamping the
// day-of-month to the last valid day of the target month. Years add calendar
// years, clamping Feb-29 to Feb-28 in non-leap target years. Unknown periods
// return the timestamp unchanged.
func (d Duration) AddTo(t time.Time) time.Time {
	switch DurationPeriod(strings.ToLower(string(d.DurationPeriod))) {
	case PeriodMinutes:
		return t.Add(time.Duration(d.DurationValue * float64(time.Minute)))
	case PeriodHours:
		return t.Add(time.Duration(d.DurationValue * float64(time.Hour)))
	case PeriodDays:
		return t.Add(time.Duration(d.DurationValue * 24 * float64(time.Hour)))
	case PeriodWeeks:
		return t.Add(time.Duration(d.DurationValue * 7 * 24 * float64(time.Hour)))
	case PeriodMonths:
		totalMonths := int(t.Month()) + int(d.DurationValue)
		yearInc := (totalMonths - 1) / 12
		newMonth := time.Month((totalMonths-1)%12 + 1)
		newYear := t.Year() + yearInc

		day := t.Day()
		if last := lastDayOfMonth(newYear, newMonth); day > last {
			day = last
		}
		return time.Date(newYear, newMonth, day, t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), t.Location())
	case PeriodYears:
		newYear := t.Year() + int(d.DurationValue)
		day := t.Day()
		if t.Month() == time.February && day == 29 && !isLeapYear(newYear) {
			day = 28
		}
		return time.Date(newYear, t.Month(), day, t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), t.Location())
	default:
		return t
	}
}

// lastDayOfMonth returns the number of days in the given month.
func lastDayOfMonth(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

func isLeapYear(year int) bool {
	return year%4 == 0 && (year%100 != 0 || year%400 == 0)
}
