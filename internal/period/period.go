// Package period turns report period names and custom ranges into date windows.
package period

import (
	"errors"
	"fmt"
	"time"

	"github.com/ssandy33/ado-pulse/internal/domain"
)

const (
	ThisMonth  = "this-month"
	LastMonth  = "last-month"
	ThisWeek   = "this-week"
	LastWeek   = "last-week"
	Last7Days  = "last-7-days"
	Last30Days = "last-30-days"
	Custom     = "custom"

	dateLayout = "2006-01-02"
)

var ErrInvalid = errors.New("invalid period")

// Period is an inclusive range of calendar days. Start and End are midnight
// of the first and last included day.
type Period struct {
	Name  string
	Start time.Time
	End   time.Time
	Label string
}

// Days counts calendar days, both ends included.
func (p Period) Days() int {
	return int(p.Until().Sub(p.Start).Hours()/24 + 0.5)
}

// Until is the exclusive upper bound: midnight after End.
func (p Period) Until() time.Time { return p.End.AddDate(0, 0, 1) }

func (p Period) Info() domain.PeriodInfo {
	return domain.PeriodInfo{Start: p.Start, End: p.End, Days: p.Days(), Label: p.Label}
}

// Parse resolves a named period, or a custom range when start or end is set.
func Parse(name, start, end string, now time.Time) (Period, error) {
	if start != "" || end != "" {
		return Range(start, end, now.Location())
	}
	if name == "" {
		name = ThisMonth
	}
	return Named(name, now)
}

func Named(name string, now time.Time) (Period, error) {
	today := midnight(now)
	switch name {
	case ThisMonth:
		first := time.Date(today.Year(), today.Month(), 1, 0, 0, 0, 0, today.Location())
		return Period{Name: name, Start: first, End: today, Label: first.Format("January 2006") + " (to date)"}, nil
	case LastMonth:
		first := time.Date(today.Year(), today.Month()-1, 1, 0, 0, 0, 0, today.Location())
		last := first.AddDate(0, 1, -1)
		return Period{Name: name, Start: first, End: last, Label: first.Format("January 2006")}, nil
	case ThisWeek:
		mon := monday(today)
		return Period{Name: name, Start: mon, End: today, Label: "Week of " + mon.Format("Jan 2, 2006")}, nil
	case LastWeek:
		mon := monday(today).AddDate(0, 0, -7)
		return Period{Name: name, Start: mon, End: mon.AddDate(0, 0, 6), Label: "Week of " + mon.Format("Jan 2, 2006")}, nil
	case Last7Days:
		return Period{Name: name, Start: today.AddDate(0, 0, -6), End: today, Label: "Last 7 days"}, nil
	case Last30Days:
		return Period{Name: name, Start: today.AddDate(0, 0, -29), End: today, Label: "Last 30 days"}, nil
	}
	return Period{}, fmt.Errorf("%w: unknown period %q", ErrInvalid, name)
}

// Range builds a custom period from YYYY-MM-DD dates. A missing end means
// the same day as start.
func Range(start, end string, loc *time.Location) (Period, error) {
	if loc == nil {
		loc = time.UTC
	}
	if start == "" {
		return Period{}, fmt.Errorf("%w: start date required", ErrInvalid)
	}
	s, err := time.ParseInLocation(dateLayout, start, loc)
	if err != nil {
		return Period{}, fmt.Errorf("%w: start: %v", ErrInvalid, err)
	}
	e := s
	if end != "" {
		if e, err = time.ParseInLocation(dateLayout, end, loc); err != nil {
			return Period{}, fmt.Errorf("%w: end: %v", ErrInvalid, err)
		}
	}
	if e.Before(s) {
		return Period{}, fmt.Errorf("%w: end %s is before start %s", ErrInvalid, end, start)
	}
	return Period{Name: Custom, Start: s, End: e, Label: s.Format("Jan 2, 2006") + " – " + e.Format("Jan 2, 2006")}, nil
}

func midnight(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

func monday(t time.Time) time.Time {
	wd := int(t.Weekday())
	if wd == 0 {
		wd = 7
	}
	return t.AddDate(0, 0, -(wd - 1))
}
