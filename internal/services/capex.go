package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/ssandy33/ado-pulse/internal/aggregate"
	"github.com/ssandy33/ado-pulse/internal/diagnostics"
	"github.com/ssandy33/ado-pulse/internal/domain"
	"github.com/ssandy33/ado-pulse/internal/governance"
	"github.com/ssandy33/ado-pulse/internal/hierarchy"
	"github.com/ssandy33/ado-pulse/internal/period"
	"github.com/ssandy33/ado-pulse/internal/worklogs"
)

type ReportRequest struct {
	Team        string
	Period      period.Period
	Diagnostics bool
}

// CapexReport runs the whole aggregation pipeline for one team and period.
// Any upstream failure fails the run; no partial report is returned.
func (s *Service) CapexReport(ctx context.Context, req ReportRequest) (domain.Report, error) {
	runID := uuid.NewString()
	log := s.log.With().Str("run", runID).Str("team", req.Team).Logger()
	p := req.Period

	rep := domain.Report{
		RunID:             runID,
		GeneratedAt:       s.now().UTC(),
		Period:            p.Info(),
		Team:              domain.TeamInfo{Name: req.Team},
		Members:           []domain.MemberTimeEntry{},
		WrongLevelEntries: []domain.WrongLevelEntry{},
	}
	businessDays := governance.BusinessDays(p.Start, p.End)

	if s.worklogs == nil {
		log.Info().Msg("worklog source not configured; degraded report")
		rep.Governance = governance.Compute(nil, businessDays)
		return rep, nil
	}
	users, err := s.worklogs.Users(ctx)
	if errors.Is(err, domain.ErrNotConfigured) {
		log.Info().Msg("worklog source not configured; degraded report")
		rep.Governance = governance.Compute(nil, businessDays)
		return rep, nil
	}
	if err != nil {
		return domain.Report{}, fmt.Errorf("tracker users: %w", err)
	}
	rep.TrackerConnected = true

	roster, err := s.roster.TeamMembers(ctx, req.Team)
	if err != nil {
		return domain.Report{}, fmt.Errorf("team roster: %w", err)
	}
	roster = uniqueRoster(roster)
	log.Debug().Int("members", len(roster)).Int("tracker_users", len(users)).Msg("roster loaded")

	excl, err := s.exclusions(ctx)
	if err != nil {
		return domain.Report{}, fmt.Errorf("exclusions: %w", err)
	}

	// stage 1: fetch worklogs, then every work item they reference and its ancestors
	results, err := worklogs.NewFetcher(s.worklogs, s.cfg.WorkersWorklog, log).FetchAll(ctx, roster, users, p.Start, p.Until())
	if err != nil {
		return domain.Report{}, err
	}
	entries := worklogs.Flatten(results)

	featureType := s.cfg.FeatureType
	if featureType == "" {
		featureType = domain.FeatureType
	}
	cache := hierarchy.NewCache()
	fetcher := hierarchy.NewBatchFetcher(s.workItems, s.cfg.WorkItemBatchSize, s.cfg.WorkersWorkItem, log)
	if err := fetcher.Prefetch(ctx, worklogs.WorkItemIDs(entries), cache, featureType); err != nil {
		return domain.Report{}, err
	}
	log.Debug().Int("entries", len(entries)).Int("work_items", cache.Len()).Msg("fetch stage done")

	// stage 2: resolve and aggregate over the warm cache
	resolver := hierarchy.NewResolver(s.workItems, cache, featureType)
	agg, err := aggregate.Aggregate(ctx, roster, excl, entries, resolver)
	if err != nil {
		return domain.Report{}, err
	}

	active := aggregate.Active(agg.Members)
	rep.Members = agg.Members
	rep.WrongLevelEntries = agg.WrongLevel
	rep.Summary = aggregate.Summarize(agg.Members)
	rep.Team.ActiveMembers = len(active)
	rep.Team.RosterSize = len(roster)
	rep.Governance = governance.Compute(active, businessDays)
	if rep.WrongLevelEntries == nil {
		rep.WrongLevelEntries = []domain.WrongLevelEntry{}
	}
	if req.Diagnostics {
		d := diagnostics.Build(diagnostics.Input{RunID: runID, Users: users, Roster: roster, Results: results, Matched: agg.Matched})
		rep.Diagnostics = &d
	}

	log.Info().
		Int("members", len(rep.Members)).
		Int("entries", len(entries)).
		Float64("total_hours", rep.Summary.TotalHours).
		Float64("compliance_pct", rep.Governance.CompliancePct).
		Int("wrong_level", rep.Summary.WrongLevelCount).
		Msg("capex report built")
	return rep, nil
}

func uniqueRoster(roster []domain.Member) []domain.Member {
	seen := make(map[domain.Identity]struct{}, len(roster))
	out := make([]domain.Member, 0, len(roster))
	for _, m := range roster {
		id := m.Identity()
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, m)
	}
	return out
}
