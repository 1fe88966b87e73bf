// Package diagnostics summarizes intermediate pipeline state for a report run.
package diagnostics

import (
	"github.com/ssandy33/ado-pulse/internal/domain"
	"github.com/ssandy33/ado-pulse/internal/worklogs"
)

const (
	IdentitySampleSize = 10
	WorklogSampleSize  = 5
)

type Input struct {
	RunID   string
	Users   []domain.TrackerUser
	Roster  []domain.Member
	Results []worklogs.MemberResult
	Matched int
}

// Build is read-only over its input.
func Build(in Input) domain.Diagnostics {
	d := domain.Diagnostics{
		RunID:              in.RunID,
		TrackerUserCount:   len(in.Users),
		IdentitySample:     make([]domain.IdentityMapping, 0, min(len(in.Users), IdentitySampleSize)),
		RosterSize:         len(in.Roster),
		MatchedRecordCount: in.Matched,
		WorklogSample:      []domain.WorklogSample{},
	}
	for _, u := range in.Users {
		if len(d.IdentitySample) == IdentitySampleSize {
			break
		}
		d.IdentitySample = append(d.IdentitySample, domain.IdentityMapping{
			UserID: u.ID, UniqueName: u.UniqueName, DisplayName: u.DisplayName,
		})
	}

	for _, r := range in.Results {
		if !r.Matched() {
			d.UnmatchedMembers = append(d.UnmatchedMembers, r.Member.UniqueName)
			continue
		}
		d.RawRecordCount += r.RawCount
		d.Pagination.TotalPages += r.Pagination.PagesFetched
		d.Pagination.TotalRecords += len(r.Worklogs)
		if r.Pagination.HitSafetyCap {
			d.Pagination.AnyHitSafetyCap = true
			d.Pagination.MembersAtCap = append(d.Pagination.MembersAtCap, r.Member.UniqueName)
		}
		for _, e := range r.Worklogs {
			if len(d.WorklogSample) == WorklogSampleSize {
				break
			}
			d.WorklogSample = append(d.WorklogSample, domain.WorklogSample{
				ID:         e.ID,
				UserID:     e.UserID,
				Identity:   string(e.Identity()),
				WorkItemID: e.WorkItemID,
				Hours:      e.Hours,
				Timestamp:  e.Timestamp,
			})
		}
	}
	return d
}
