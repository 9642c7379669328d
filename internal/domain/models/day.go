package models

import (
	"fmt"
	"strings"
	"time"
)

// DayLayout is the boundary representation of a calendar day.
const DayLayout = "2006-01-02"

// Day is a timezone-naive calendar day in YYYY-MM-DD form. The string form
// sorts chronologically, which storage range scans rely on.
type Day string

// ParseDay validates a plain YYYY-MM-DD day. Timestamps are rejected: they
// must be bucketed with DayOf in the station's zone instead.
func ParseDay(value string) (Day, error) {
	value = strings.TrimSpace(value)
	t, err := time.Parse(DayLayout, value)
	if err != nil {
		return "", &ValidationError{Field: "date", Reason: fmt.Sprintf("malformed date %q", value)}
	}
	return Day(t.Format(DayLayout)), nil
}

// MustDay is ParseDay for literals known to be valid.
func MustDay(value string) Day {
	d, err := ParseDay(value)
	if err != nil {
		panic(err)
	}
	return d
}

// DayOf buckets a timestamp into the calendar day observed in loc.
func DayOf(t time.Time, loc *time.Location) Day {
	if loc == nil {
		loc = time.UTC
	}
	return Day(t.In(loc).Format(DayLayout))
}

// Time returns midnight UTC of the day.
func (d Day) Time() time.Time {
	t, _ := time.Parse(DayLayout, string(d))
	return t
}

// Start returns local midnight of the day in loc.
func (d Day) Start(loc *time.Location) time.Time {
	if loc == nil {
		loc = time.UTC
	}
	t := d.Time()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, loc)
}

// AddDays shifts the day by n calendar days.
func (d Day) AddDays(n int) Day {
	return Day(d.Time().AddDate(0, 0, n).Format(DayLayout))
}

func (d Day) Before(other Day) bool { return d < other }
func (d Day) After(other Day) bool  { return d > other }
func (d Day) IsZero() bool          { return d == "" }
func (d Day) String() string        { return string(d) }

// Period is an inclusive range of days.
type Period struct {
	Start Day `json:"start"`
	End   Day `json:"end"`
}

// NewPeriod validates that start is not after end.
func NewPeriod(start, end Day) (Period, error) {
	if start.IsZero() || end.IsZero() {
		return Period{}, &ValidationError{Field: "period", Reason: "start and end are required"}
	}
	if start.After(end) {
		return Period{}, &ValidationError{Field: "period", Reason: fmt.Sprintf("start %s is after end %s", start, end)}
	}
	return Period{Start: start, End: end}, nil
}

// Contains reports whether d falls inside the period.
func (p Period) Contains(d Day) bool {
	return !d.Before(p.Start) && !d.After(p.End)
}

// WeekOf returns the Monday..Sunday week containing d.
func WeekOf(d Day) Period {
	t := d.Time()
	daysSinceMonday := (int(t.Weekday()) + 6) % 7
	start := d.AddDays(-daysSinceMonday)
	return Period{Start: start, End: start.AddDays(6)}
}

// MonthOf returns the calendar month containing d.
func MonthOf(d Day) Period {
	t := d.Time()
	first := time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
	last := first.AddDate(0, 1, -1)
	return Period{Start: Day(first.Format(DayLayout)), End: Day(last.Format(DayLayout))}
}
