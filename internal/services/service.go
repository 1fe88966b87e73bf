/* Copyright (c) 2025 Hamed Shams <https://hamedshams.com>
 * SPDX-License-Identifier: BSD-3-Clause */
package services

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"github.com/ssandy33/ado-pulse/internal/config"
	"github.com/ssandy33/ado-pulse/internal/domain"
	"github.com/ssandy33/ado-pulse/internal/hierarchy"
	"github.com/ssandy33/ado-pulse/internal/worklogs"
)

// ErrNoStore is returned by persistence-backed operations when the service
// runs without a database.
var ErrNoStore = errors.New("no database configured")

var ErrInvalidExclusion = errors.New("exclusion needs a unique name")

type RosterSource interface {
	TeamMembers(ctx context.Context, team string) ([]domain.Member, error)
}

type Store interface {
	Exclusions(ctx context.Context) ([]domain.Exclusion, error)
	UpsertExclusion(ctx context.Context, e domain.Exclusion) (domain.Exclusion, error)
	DeleteExclusion(ctx context.Context, uniqueName string) error
	StartJobRun(ctx context.Context, runID string, teams []string) (int64, error)
	FinishJobRun(ctx context.Context, id int64, membersProcessed, snapshots int, success bool, errStr string) error
	GetLastRun(ctx context.Context) (*domain.JobRun, error)
	SaveComplianceSnapshot(ctx context.Context, s domain.ComplianceSnapshot) error
	ComplianceHistory(ctx context.Context, team string, limit int) ([]domain.ComplianceSnapshot, error)
}

type LLM interface {
	Narrate(ctx context.Context, payload any) (string, error)
}

type Notifier interface {
	SendMessagePlain(ctx context.Context, chatID int64, text string) error
	SendMarkdownV2(ctx context.Context, chatID int64, text string) error
}

// Deps are the collaborators of a Service. Worklogs, Store, LLM and
// Notifier may be nil.
type Deps struct {
	Roster    RosterSource
	WorkItems hierarchy.Source
	Worklogs  worklogs.Source
	Store     Store
	LLM       LLM
	Notifier  Notifier
	Now       func() time.Time
}

type Service struct {
	cfg       config.Config
	log       zerolog.Logger
	roster    RosterSource
	workItems hierarchy.Source
	worklogs  worklogs.Source
	store     Store
	llm       LLM
	tg        Notifier
	now       func() time.Time
}

func New(cfg config.Config, log zerolog.Logger, d Deps) *Service {
	now := d.Now
	if now == nil {
		now = time.Now
	}
	return &Service{
		cfg:       cfg,
		log:       log,
		roster:    d.Roster,
		workItems: d.WorkItems,
		worklogs:  d.Worklogs,
		store:     d.Store,
		llm:       d.LLM,
		tg:        d.Notifier,
		now:       now,
	}
}

// Now is the service clock in the configured timezone.
func (s *Service) Now() time.Time { return s.now() }

func (s *Service) GetLastRun(ctx context.Context) (*domain.JobRun, error) {
	if s.store == nil {
		return nil, ErrNoStore
	}
	return s.store.GetLastRun(ctx)
}

func (s *Service) ComplianceHistory(ctx context.Context, team string, limit int) ([]domain.ComplianceSnapshot, error) {
	if s.store == nil {
		return nil, ErrNoStore
	}
	return s.store.ComplianceHistory(ctx, team, limit)
}

func (s *Service) ListExclusions(ctx context.Context) ([]domain.Exclusion, error) {
	if s.store == nil {
		return nil, ErrNoStore
	}
	return s.store.Exclusions(ctx)
}

func (s *Service) SetExclusion(ctx context.Context, e domain.Exclusion) (domain.Exclusion, error) {
	if s.store == nil {
		return domain.Exclusion{}, ErrNoStore
	}
	if domain.NewIdentity(e.UniqueName) == "" {
		return domain.Exclusion{}, ErrInvalidExclusion
	}
	return s.store.UpsertExclusion(ctx, e)
}

func (s *Service) RemoveExclusion(ctx context.Context, uniqueName string) error {
	if s.store == nil {
		return ErrNoStore
	}
	return s.store.DeleteExclusion(ctx, uniqueName)
}

func (s *Service) exclusions(ctx context.Context) ([]domain.Exclusion, error) {
	if s.store == nil {
		return nil, nil
	}
	return s.store.Exclusions(ctx)
}
