package models

import "time"

// MinutesPerDay is the length of the minute-of-day axis.
const MinutesPerDay = 1440

// Interval is a half-open [Start, End) minute range on a single day.
type Interval struct {
	Start int `json:"start"`
	End   int `json:"end"`
}

// Overlaps reports whether both ranges share at least one minute.
func (i Interval) Overlaps(other Interval) bool {
	return i.Start < other.End && other.Start < i.End
}

// Length returns the number of minutes in the interval.
func (i Interval) Length() int {
	if i.End <= i.Start {
		return 0
	}
	return i.End - i.Start
}

// TimeWindow is a half-open [Start, End) range of simulated time.
type TimeWindow struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// Overlaps reports whether both windows intersect.
func (w TimeWindow) Overlaps(other TimeWindow) bool {
	return w.Start.Before(other.End) && other.Start.Before(w.End)
}

// Contains reports whether t lies inside the window.
func (w TimeWindow) Contains(t time.Time) bool {
	return !t.Before(w.Start) && t.Before(w.End)
}

// ClipToDay projects the window onto the minute axis of date.
func (w TimeWindow) ClipToDay(date time.Time) (Interval, bool) {
	dayStart := DateOf(date)
	dayEnd := dayStart.Add(24 * time.Hour)
	if !w.Overlaps(TimeWindow{Start: dayStart, End: dayEnd}) {
		return Interval{}, false
	}
	start := 0
	if w.Start.After(dayStart) {
		start = int(w.Start.Sub(dayStart) / time.Minute)
	}
	end := MinutesPerDay
	if w.End.Before(dayEnd) {
		end = int((w.End.Sub(dayStart) + time.Minute - 1) / time.Minute)
	}
	if end <= start {
		return Interval{}, false
	}
	return Interval{Start: start, End: end}, true
}

// DateOf truncates t to midnight UTC of its calendar day.
func DateOf(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// MinuteOfDay returns the minute offset of t from its UTC midnight.
func MinuteOfDay(t time.Time) int {
	t = t.UTC()
	return t.Hour()*60 + t.Minute()
}

// At returns the instant minute minutes after midnight of date.
func At(date time.Time, minute int) time.Time {
	return DateOf(date).Add(time.Duration(minute) * time.Minute)
}

// DaysBetween counts calendar days from a to b.
func DaysBetween(a, b time.Time) int {
	return int(DateOf(b).Sub(DateOf(a)).Hours() / 24)
}
