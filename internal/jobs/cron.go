package jobs

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"github.com/ssandy33/ado-pulse/internal/config"
	"github.com/ssandy33/ado-pulse/internal/repo"
)

const runTimeout = 10 * time.Minute

type service interface {
	RunWeeklyDigest(ctx context.Context) error
}

// Locker runs fn while holding a cluster-wide lock; it reports false when
// another instance holds it.
type Locker interface {
	WithAdvisoryLock(ctx context.Context, key int64, fn func(ctx context.Context) error) (bool, error)
}

type Cron struct {
	cfg  config.Config
	log  zerolog.Logger
	svc  service
	lock Locker
	c    *cron.Cron
}

// NewCron schedules the weekly digest. lock may be nil when running
// without a database; runs are then not coordinated across instances.
func NewCron(cfg config.Config, log zerolog.Logger, svc service, lock Locker) (*Cron, error) {
	loc := time.Local
	if cfg.TZ != "" {
		l, err := time.LoadLocation(cfg.TZ)
		if err != nil {
			return nil, fmt.Errorf("cron timezone: %w", err)
		}
		loc = l
	}
	c := cron.New(cron.WithLocation(loc), cron.WithParser(cron.NewParser(cron.Minute|cron.Hour|cron.Dom|cron.Month|cron.Dow)))
	cr := &Cron{cfg: cfg, log: log, svc: svc, lock: lock, c: c}
	if _, err := c.AddFunc(cfg.DigestCron, cr.Trigger); err != nil {
		return nil, fmt.Errorf("digest schedule %q: %w", cfg.DigestCron, err)
	}
	return cr, nil
}

func (cr *Cron) Start() { cr.c.Start() }

// Stop waits for a running job to finish or ctx to expire.
func (cr *Cron) Stop(ctx context.Context) {
	select {
	case <-cr.c.Stop().Done():
	case <-ctx.Done():
	}
}

// Trigger runs the weekly digest once, under the digest lock.
func (cr *Cron) Trigger() {
	ctx, cancel := context.WithTimeout(context.Background(), runTimeout)
	defer cancel()
	cr.run(ctx)
}

func (cr *Cron) run(ctx context.Context) {
	digest := func(ctx context.Context) error {
		cr.log.Info().Msg("cron: weekly digest")
		return cr.svc.RunWeeklyDigest(ctx)
	}
	if cr.lock == nil {
		if err := digest(ctx); err != nil {
			cr.log.Error().Err(err).Msg("cron: digest failed")
		}
		return
	}
	ok, err := cr.lock.WithAdvisoryLock(ctx, repo.DigestLockKey, digest)
	if err != nil {
		cr.log.Error().Err(err).Msg("cron: digest failed")
		return
	}
	if !ok {
		cr.log.Info().Msg("cron: already running elsewhere")
	}
}
