// Package aggregate folds raw time entries into per-member CapEx/OpEx totals.
package aggregate

import (
	"context"
	"fmt"
	"math"
	"sort"

	"github.com/ssandy33/ado-pulse/internal/domain"
)

// Resolver resolves work items to their owning Feature and exposes the
// items it has already seen.
type Resolver interface {
	Resolve(ctx context.Context, workItemID int) (domain.ResolvedFeature, error)
	WorkItem(id int) (domain.WorkItem, bool)
	UnitType() string
}

type Result struct {
	Members    []domain.MemberTimeEntry
	WrongLevel []domain.WrongLevelEntry
	// Matched counts entries that belonged to a roster member.
	Matched int
}

type memberAcc struct {
	member   domain.Member
	order    int
	excluded bool
	role     string

	total, capex, opex, unclassified float64
	wrongHours                       float64
	wrongCount, entries              int

	features map[string]*domain.FeatureBreakdown
	keys     []string
}

// Aggregate attributes every entry to its roster member and Feature. Entries
// of people outside the roster are dropped. Hours are rounded to two
// decimals only once, on output.
func Aggregate(ctx context.Context, roster []domain.Member, exclusions []domain.Exclusion, entries []domain.TimeEntry, r Resolver) (Result, error) {
	excl := make(map[domain.Identity]domain.Exclusion, len(exclusions))
	for _, x := range exclusions {
		excl[domain.NewIdentity(x.UniqueName)] = x
	}

	accs := make(map[domain.Identity]*memberAcc, len(roster))
	ordered := make([]*memberAcc, 0, len(roster))
	for i, m := range roster {
		id := m.Identity()
		if _, dup := accs[id]; dup {
			continue
		}
		acc := &memberAcc{member: m, order: i, features: map[string]*domain.FeatureBreakdown{}}
		if x, ok := excl[id]; ok {
			acc.excluded = x.ExcludeFromMetrics
			acc.role = x.Role
		}
		accs[id] = acc
		ordered = append(ordered, acc)
	}

	var res Result
	for _, e := range entries {
		acc, ok := accs[e.Identity()]
		if !ok || e.Hours < 0 {
			continue
		}
		res.Matched++

		rf := domain.NoFeature()
		wrong := false
		var origin domain.WorkItem
		if e.WorkItemID != nil {
			var err error
			rf, err = r.Resolve(ctx, *e.WorkItemID)
			if err != nil {
				return Result{}, err
			}
			wi, known := r.WorkItem(*e.WorkItemID)
			if !known {
				wi = domain.WorkItem{ID: *e.WorkItemID, Title: fmt.Sprintf("Work Item %d", *e.WorkItemID), Type: domain.UnknownItemType}
			}
			origin = wi
			wrong = wi.Type != r.UnitType()
		}

		acc.add(e.Hours, rf, wrong, origin)
		if wrong {
			res.WrongLevel = append(res.WrongLevel, domain.WrongLevelEntry{
				WorkItemID:    origin.ID,
				WorkItemTitle: origin.Title,
				WorkItemType:  origin.Type,
				MemberName:    acc.member.DisplayName,
				Hours:         Round2(e.Hours),
				FeatureID:     rf.FeatureID,
				FeatureTitle:  rf.FeatureTitle,
				Timestamp:     e.Timestamp,
			})
		}
	}

	res.Members = make([]domain.MemberTimeEntry, 0, len(ordered))
	for _, acc := range ordered {
		res.Members = append(res.Members, acc.finalize())
	}
	sort.SliceStable(res.Members, func(i, j int) bool {
		a, b := res.Members[i], res.Members[j]
		if a.IsExcluded != b.IsExcluded {
			return !a.IsExcluded
		}
		return a.TotalHours > b.TotalHours
	})
	sort.SliceStable(res.WrongLevel, func(i, j int) bool {
		a, b := res.WrongLevel[i], res.WrongLevel[j]
		if a.Hours != b.Hours {
			return a.Hours > b.Hours
		}
		if !a.Timestamp.Equal(b.Timestamp) {
			return a.Timestamp.Before(b.Timestamp)
		}
		return a.WorkItemID < b.WorkItemID
	})
	return res, nil
}

func (a *memberAcc) add(hours float64, rf domain.ResolvedFeature, wrong bool, origin domain.WorkItem) {
	a.entries++
	a.total += hours
	switch rf.ExpenseType {
	case domain.CapEx:
		a.capex += hours
	case domain.OpEx:
		a.opex += hours
	default:
		a.unclassified += hours
	}
	if wrong {
		a.wrongHours += hours
		a.wrongCount++
	}

	key := rf.Key()
	fb, ok := a.features[key]
	if !ok {
		fb = &domain.FeatureBreakdown{FeatureID: rf.FeatureID, FeatureTitle: rf.FeatureTitle, ExpenseType: rf.ExpenseType}
		a.features[key] = fb
		a.keys = append(a.keys, key)
	}
	fb.Hours += hours
	if wrong {
		fb.IsWrongLevel = true
		if fb.OriginalWorkItemID == nil {
			id := origin.ID
			fb.OriginalWorkItemID = &id
			fb.OriginalWorkItemType = origin.Type
		}
	}
}

func (a *memberAcc) finalize() domain.MemberTimeEntry {
	out := domain.MemberTimeEntry{
		ID:                a.member.ID,
		DisplayName:       a.member.DisplayName,
		UniqueName:        a.member.UniqueName,
		TotalHours:        Round2(a.total),
		CapExHours:        Round2(a.capex),
		OpExHours:         Round2(a.opex),
		UnclassifiedHours: Round2(a.unclassified),
		WrongLevelHours:   Round2(a.wrongHours),
		WrongLevelCount:   a.wrongCount,
		EntryCount:        a.entries,
		IsExcluded:        a.excluded,
		Role:              a.role,
		Features:          make([]domain.FeatureBreakdown, 0, len(a.keys)),
	}
	for _, k := range a.keys {
		fb := *a.features[k]
		fb.Hours = Round2(fb.Hours)
		out.Features = append(out.Features, fb)
	}
	sort.SliceStable(out.Features, func(i, j int) bool { return out.Features[i].Hours > out.Features[j].Hours })
	return out
}

// Round2 rounds half-up to two decimals.
func Round2(v float64) float64 {
	return math.Floor(v*100+0.5) / 100
}
