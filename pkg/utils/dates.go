package utils

import "time"

// ToDay truncates a timestamp to its calendar day in UTC
func ToDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// NightsBetween returns the number of charged nights between check-in and
// check-out. A [2025-06-01, 2025-06-03) stay is 2 nights.
func NightsBetween(checkIn, checkOut time.Time) int {
	return int(ToDay(checkOut).Sub(ToDay(checkIn)) / (24 * time.Hour))
}

// DaysBetween returns every calendar day from from to to, inclusive
func DaysBetween(from, to time.Time) []time.Time {
	if from.After(to) {
		return nil
	}

	days := make([]time.Time, 0)
	for d := ToDay(from); !d.After(ToDay(to)); d = d.AddDate(0, 0, 1) {
		days = append(days, d)
	}

	return days
}

// Nights returns every charged night of a stay, i.e. every day in
// [checkIn, checkOut)
func Nights(checkIn, checkOut time.Time) []time.Time {
	out := ToDay(checkOut)
	nights := make([]time.Time, 0)
	for d := ToDay(checkIn); d.Before(out); d = d.AddDate(0, 0, 1) {
		nights = append(nights, d)
	}
	return nights
}

// WeekdayIndex returns the day-of-week index used by restrictions,
// 0 = Sunday through 6 = Saturday
func WeekdayIndex(d time.Time) int {
	return int(d.Weekday())
}
