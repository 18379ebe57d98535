package domain

import (
	"fmt"
	"time"
)

const (
	dateLayout      = "2006-01-02"
	yearMonthLayout = "2006-01"
)

// Date returns the civil date y-m-d as a UTC midnight timestamp.
// All trade dates in the system use this representation.
func Date(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

// DateOf truncates t to its calendar date in t's own location.
func DateOf(t time.Time) time.Time {
	y, m, d := t.Date()
	return Date(y, m, d)
}

// ParseDate parses an ISO date (YYYY-MM-DD).
func ParseDate(s string) (time.Time, error) {
	t, err := time.Parse(dateLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q: %w", s, err)
	}
	return t, nil
}

// FormatDate renders a civil date as YYYY-MM-DD.
func FormatDate(t time.Time) string {
	return t.Format(dateLayout)
}

// DaysBetween returns the number of calendar days from a to b.
func DaysBetween(a, b time.Time) int64 {
	return int64(DateOf(b).Sub(DateOf(a)).Hours() / 24)
}

// YearMonth is a calendar month.
type YearMonth struct {
	Year  int
	Month time.Month
}

// YearMonthOf returns the calendar month containing t.
func YearMonthOf(t time.Time) YearMonth {
	return YearMonth{Year: t.Year(), Month: t.Month()}
}

// ParseYearMonth parses YYYY-MM.
func ParseYearMonth(s string) (YearMonth, error) {
	t, err := time.Parse(yearMonthLayout, s)
	if err != nil {
		return YearMonth{}, fmt.Errorf("invalid year-month %q: %w", s, err)
	}
	return YearMonthOf(t), nil
}

func (ym YearMonth) String() string {
	return fmt.Sprintf("%04d-%02d", ym.Year, int(ym.Month))
}

// Start returns the first day of the month.
func (ym YearMonth) Start() time.Time {
	return Date(ym.Year, ym.Month, 1)
}

// Range returns [first day, first day of next month).
func (ym YearMonth) Range() DateRange {
	start := ym.Start()
	return DateRange{Start: start, End: start.AddDate(0, 1, 0)}
}

// Before reports whether ym is strictly earlier than other.
func (ym YearMonth) Before(other YearMonth) bool {
	if ym.Year != other.Year {
		return ym.Year < other.Year
	}
	return ym.Month < other.Month
}

// DateRange is the half-open interval [Start, End) of civil dates.
// The zero value is unbounded and matches every date.
type DateRange struct {
	Start time.Time
	End   time.Time
}

// YearRange returns [Jan 1 of year, Jan 1 of year+1).
func YearRange(year int) DateRange {
	start := Date(year, time.January, 1)
	return DateRange{Start: start, End: start.AddDate(1, 0, 0)}
}

// DayRange returns the range holding exactly one day.
func DayRange(day time.Time) DateRange {
	start := DateOf(day)
	return DateRange{Start: start, End: start.AddDate(0, 0, 1)}
}

// IsZero reports whether the range is unbounded.
func (r DateRange) IsZero() bool {
	return r.Start.IsZero() && r.End.IsZero()
}

// Contains reports whether d falls inside the range.
func (r DateRange) Contains(d time.Time) bool {
	if r.IsZero() {
		return true
	}
	d = DateOf(d)
	return !d.Before(r.Start) && d.Before(r.End)
}
