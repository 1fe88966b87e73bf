// Package governance derives time-logging compliance for a team and period.
package governance

import (
	"math"
	"time"

	"github.com/ssandy33/ado-pulse/internal/domain"
)

const (
	HoursPerDay  = 8
	CompliantPct = 95.0
)

// Compute expects only the members that count toward the team's metrics.
func Compute(active []domain.MemberTimeEntry, businessDays int) domain.GovernanceSnapshot {
	var actual float64
	for _, m := range active {
		actual += m.TotalHours
	}
	expected := float64(businessDays * HoursPerDay * len(active))
	pct := 0.0
	if expected > 0 {
		pct = math.Round(actual/expected*10000) / 100
	}
	return domain.GovernanceSnapshot{
		BusinessDays:  businessDays,
		HoursPerDay:   HoursPerDay,
		ActiveMembers: len(active),
		ExpectedHours: expected,
		ActualHours:   math.Round(actual*100) / 100,
		CompliancePct: pct,
		IsCompliant:   pct >= CompliantPct,
	}
}

// BusinessDays counts Monday through Friday between start and end, both
// inclusive, comparing calendar dates only.
func BusinessDays(start, end time.Time) int {
	s := time.Date(start.Year(), start.Month(), start.Day(), 0, 0, 0, 0, time.UTC)
	e := time.Date(end.Year(), end.Month(), end.Day(), 0, 0, 0, 0, time.UTC)
	n := 0
	for d := s; !d.After(e); d = d.AddDate(0, 0, 1) {
		if wd := d.Weekday(); wd != time.Saturday && wd != time.Sunday {
			n++
		}
	}
	return n
}
