// Package worklogs fetches raw time entries for every roster member.
package worklogs

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/ssandy33/ado-pulse/internal/batch"
	"github.com/ssandy33/ado-pulse/internal/domain"
)

const DefaultConcurrency = 5

// Source is the time-tracking system. Worklogs paginates internally and
// reports how many pages it read and whether it stopped at its page cap.
type Source interface {
	Users(ctx context.Context) ([]domain.TrackerUser, error)
	Worklogs(ctx context.Context, userID string, from, to time.Time) (domain.WorklogBatch, error)
}

type Pagination struct {
	PagesFetched int  `json:"pagesFetched"`
	HitSafetyCap bool `json:"hitSafetyCap"`
}

type MemberResult struct {
	Member     domain.Member
	UserID     string
	Worklogs   []domain.TimeEntry
	RawCount   int
	Pagination Pagination
}

// Matched reports whether the member has an account in the tracker.
func (r MemberResult) Matched() bool { return r.UserID != "" }

type Fetcher struct {
	src         Source
	concurrency int
	log         zerolog.Logger
}

func NewFetcher(src Source, concurrency int, log zerolog.Logger) *Fetcher {
	if concurrency <= 0 {
		concurrency = DefaultConcurrency
	}
	return &Fetcher{src: src, concurrency: concurrency, log: log}
}

// FetchAll returns one result per roster member, in roster order. Members
// without a tracker account get an empty result. Any member failure fails
// the whole call.
func (f *Fetcher) FetchAll(ctx context.Context, roster []domain.Member, users []domain.TrackerUser, from, to time.Time) ([]MemberResult, error) {
	dir := NewDirectory(users)
	tasks := make([]batch.Task[MemberResult], 0, len(roster))
	for _, m := range roster {
		m := m
		tasks = append(tasks, func(ctx context.Context) (MemberResult, error) {
			return f.fetchMember(ctx, dir, m, from, to)
		})
	}
	return batch.Run(ctx, tasks, f.concurrency)
}

func (f *Fetcher) fetchMember(ctx context.Context, dir Directory, m domain.Member, from, to time.Time) (MemberResult, error) {
	res := MemberResult{Member: m}
	u, ok := dir.ByIdentity(m.Identity())
	if !ok {
		f.log.Debug().Str("member", m.UniqueName).Msg("no tracker account for member")
		return res, nil
	}
	res.UserID = u.ID

	b, err := f.src.Worklogs(ctx, u.ID, from, to)
	if err != nil {
		return MemberResult{}, fmt.Errorf("worklogs for %s: %w", m.UniqueName, err)
	}
	for i := range b.Entries {
		e := &b.Entries[i]
		if e.UniqueName == "" {
			if owner, ok := dir.ByID(e.UserID); ok {
				e.UniqueName = owner.UniqueName
			} else {
				e.UniqueName = u.UniqueName
			}
		}
	}
	res.Worklogs = b.Entries
	res.RawCount = len(b.Entries)
	res.Pagination = Pagination{PagesFetched: b.Pages, HitSafetyCap: b.HitSafetyCap}
	if b.HitSafetyCap {
		f.log.Warn().Str("member", m.UniqueName).Int("pages", b.Pages).Msg("worklog pagination hit safety cap")
	}
	return res, nil
}

// Flatten concatenates the worklogs of all results.
func Flatten(results []MemberResult) []domain.TimeEntry {
	n := 0
	for _, r := range results {
		n += len(r.Worklogs)
	}
	out := make([]domain.TimeEntry, 0, n)
	for _, r := range results {
		out = append(out, r.Worklogs...)
	}
	return out
}

// WorkItemIDs returns the distinct work item ids referenced by entries.
func WorkItemIDs(entries []domain.TimeEntry) []int {
	seen := map[int]struct{}{}
	var out []int
	for _, e := range entries {
		if e.WorkItemID == nil {
			continue
		}
		if _, ok := seen[*e.WorkItemID]; ok {
			continue
		}
		seen[*e.WorkItemID] = struct{}{}
		out = append(out, *e.WorkItemID)
	}
	return out
}
