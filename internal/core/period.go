package core

import (
	"errors"
	"fmt"
	"time"
)

const (
	dateLayout   = "2006-01-02"
	periodLayout = "2006-01"
)

type (
	Date struct {
		time.Time
	}

	// Period is a calendar-month bucket rendered as "YYYY-MM".
	Period struct {
		Year  int
		Month time.Month
	}
)

var (
	ErrInvalidDay    = errors.New("invalid day")
	ErrInvalidMonth  = errors.New("invalid month")
	ErrInvalidPeriod = errors.New("invalid period")
)

// NewDate creates a new Date from year, month, day
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

// ParseDate parses a date string in YYYY-MM-DD format.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(dateLayout, s)
	if err != nil {
		return Date{}, err
	}
	return Date{Time: t}, nil
}

func (d Date) Validate() error {
	if d.IsZero() {
		return errors.New("date cannot be zero")
	}
	_, month, day := d.Date()
	if day < 1 || day > 31 {
		return ErrInvalidDay
	}
	if month < 1 || month > 12 {
		return ErrInvalidMonth
	}
	return nil
}

// IsEmpty returns true if the date is zero (optional dates).
func (d Date) IsEmpty() bool {
	return d.IsZero()
}

func (d Date) String() string {
	if d.IsZero() {
		return ""
	}
	return d.Format(dateLayout)
}

// AddMonths rolls the date forward n calendar months. When the target month
// is shorter than the source day, the day is clamped to the month's last day
// (Jan 31 + 1 month -> Feb 28/29). Clamping is computed from the receiver's
// own day, so rolling a Jan 31 date by 2 months lands on Mar 31.
func (d Date) AddMonths(n int) Date {
	if d.IsZero() {
		return d
	}
	y, m, day := d.Date()
	first := time.Date(y, m+time.Month(n), 1, 0, 0, 0, 0, time.UTC)
	if last := daysIn(first.Year(), first.Month()); day > last {
		day = last
	}
	return NewDate(first.Year(), int(first.Month()), day)
}

// Period returns the month bucket the date falls in.
func (d Date) Period() Period {
	return Period{Year: d.Year(), Month: d.Month()}
}

func daysIn(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

// NewPeriod builds a period from year and month.
func NewPeriod(year int, month time.Month) Period {
	return Period{Year: year, Month: month}
}

// ParsePeriod parses "YYYY-MM".
func ParsePeriod(s string) (Period, error) {
	t, err := time.Parse(periodLayout, s)
	if err != nil {
		return Period{}, fmt.Errorf("%w: %q", ErrInvalidPeriod, s)
	}
	return Period{Year: t.Year(), Month: t.Month()}, nil
}

func (p Period) Valid() bool {
	return p.Year > 0 && p.Month >= time.January && p.Month <= time.December
}

func (p Period) IsZero() bool {
	return p == Period{}
}

func (p Period) String() string {
	return fmt.Sprintf("%04d-%02d", p.Year, int(p.Month))
}

// AddMonths moves the period n months forward (or back when n < 0).
func (p Period) AddMonths(n int) Period {
	t := time.Date(p.Year, p.Month+time.Month(n), 1, 0, 0, 0, 0, time.UTC)
	return Period{Year: t.Year(), Month: t.Month()}
}

// Compare returns -1, 0 or +1.
func (p Period) Compare(o Period) int {
	switch {
	case p.Year < o.Year, p.Year == o.Year && p.Month < o.Month:
		return -1
	case p == o:
		return 0
	default:
		return 1
	}
}

// FirstDay returns the first calendar day of the period.
func (p Period) FirstDay() Date {
	return NewDate(p.Year, int(p.Month), 1)
}

// MonthsBetween returns how many months o is after p.
func (p Period) MonthsBetween(o Period) int {
	return (o.Year-p.Year)*12 + int(o.Month) - int(p.Month)
}
