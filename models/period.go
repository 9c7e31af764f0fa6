package models

import (
	"fmt"
	"regexp"
	"strconv"
	"time"
)

// Period is a half-month reporting window, formatted YYYY-MM-A (days 1-15)
// or YYYY-MM-B (day 16 to month end).
type Period struct {
	Year  int
	Month time.Month
	Half  byte
}

var periodPattern = regexp.MustCompile(`^(\d{4})-(\d{2})-([AB])$`)

func ParsePeriod(s string) (Period, error) {
	m := periodPattern.FindStringSubmatch(s)
	if m == nil {
		return Period{}, fmt.Errorf("%w: %q", ErrInvalidPeriod, s)
	}
	year, _ := strconv.Atoi(m[1])
	month, _ := strconv.Atoi(m[2])
	if month < 1 || month > 12 {
		return Period{}, fmt.Errorf("%w: %q", ErrInvalidPeriod, s)
	}
	return Period{Year: year, Month: time.Month(month), Half: m[3][0]}, nil
}

// PeriodAt returns the period containing t in loc.
func PeriodAt(t time.Time, loc *time.Location) Period {
	local := t.In(loc)
	half := byte('A')
	if local.Day() > 15 {
		half = 'B'
	}
	return Period{Year: local.Year(), Month: local.Month(), Half: half}
}

func (p Period) String() string {
	return fmt.Sprintf("%04d-%02d-%c", p.Year, int(p.Month), p.Half)
}

func (p Period) Label() string {
	half := "前半"
	if p.Half == 'B' {
		half = "後半"
	}
	return fmt.Sprintf("%d年%d月 %s", p.Year, int(p.Month), half)
}

// Range returns the first day and the last day (inclusive) of the period.
func (p Period) Range(loc *time.Location) (time.Time, time.Time) {
	if p.Half == 'A' {
		return time.Date(p.Year, p.Month, 1, 0, 0, 0, 0, loc), time.Date(p.Year, p.Month, 15, 0, 0, 0, 0, loc)
	}
	lastDay := time.Date(p.Year, p.Month+1, 0, 0, 0, 0, 0, loc)
	return time.Date(p.Year, p.Month, 16, 0, 0, 0, 0, loc), lastDay
}

func (p Period) Next() Period {
	if p.Half == 'A' {
		return Period{Year: p.Year, Month: p.Month, Half: 'B'}
	}
	first := time.Date(p.Year, p.Month+1, 1, 0, 0, 0, 0, time.UTC)
	return Period{Year: first.Year(), Month: first.Month(), Half: 'A'}
}

func (p Period) Previous() Period {
	if p.Half == 'B' {
		return Period{Year: p.Year, Month: p.Month, Half: 'A'}
	}
	prev := time.Date(p.Year, p.Month, 0, 0, 0, 0, 0, time.UTC)
	return Period{Year: prev.Year(), Month: prev.Month(), Half: 'B'}
}
