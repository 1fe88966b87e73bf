package aggregate

import "github.com/ssandy33/ado-pulse/internal/domain"

// Summarize totals the non-excluded members.
func Summarize(members []domain.MemberTimeEntry) domain.Summary {
	var s domain.Summary
	for _, m := range members {
		if m.IsExcluded {
			continue
		}
		s.TotalHours += m.TotalHours
		s.CapExHours += m.CapExHours
		s.OpExHours += m.OpExHours
		s.UnclassifiedHours += m.UnclassifiedHours
		s.WrongLevelHours += m.WrongLevelHours
		s.WrongLevelCount += m.WrongLevelCount
		if m.TotalHours > 0 {
			s.MembersLogging++
		} else {
			s.MembersNotLogging++
		}
	}
	s.TotalHours = Round2(s.TotalHours)
	s.CapExHours = Round2(s.CapExHours)
	s.OpExHours = Round2(s.OpExHours)
	s.UnclassifiedHours = Round2(s.UnclassifiedHours)
	s.WrongLevelHours = Round2(s.WrongLevelHours)
	if s.TotalHours > 0 {
		s.CapExPct = Round2(s.CapExHours / s.TotalHours * 100)
	}
	return s
}

// Active returns the members that count toward team metrics.
func Active(members []domain.MemberTimeEntry) []domain.MemberTimeEntry {
	out := make([]domain.MemberTimeEntry, 0, len(members))
	for _, m := range members {
		if !m.IsExcluded {
			out = append(out, m)
		}
	}
	return out
}
