package repo

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"

	"github.com/ssandy33/ado-pulse/internal/config"
	"github.com/ssandy33/ado-pulse/internal/domain"
)

//go:embed schema.sql
var schema string

// DigestLockKey guards the scheduled digest across replicas.
const DigestLockKey int64 = 424242

var ErrNotFound = errors.New("not found")

type DB struct {
	Pool *pgxpool.Pool
	log  zerolog.Logger
}

func Open(ctx context.Context, cfg config.Config, log zerolog.Logger) (*DB, error) {
	pool, err := pgxpool.New(ctx, cfg.DBDSN)
	if err != nil {
		return nil, fmt.Errorf("db connect: %w", err)
	}
	ctx2, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := pool.Ping(ctx2); err != nil {
		pool.Close()
		return nil, fmt.Errorf("db ping: %w", err)
	}
	return &DB{Pool: pool, log: log}, nil
}

func MustOpen(ctx context.Context, cfg config.Config, log zerolog.Logger) *DB {
	d, err := Open(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("db open failed")
	}
	return d
}

func (d *DB) Close() { d.Pool.Close() }

// Migrate applies the embedded schema. Every statement is idempotent.
func (d *DB) Migrate(ctx context.Context) error {
	if _, err := d.Pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	return nil
}

type Repository struct {
	db  *DB
	log zerolog.Logger
}

func NewRepository(d *DB, log zerolog.Logger) *Repository { return &Repository{db: d, log: log} }

// WithAdvisoryLock runs fn while holding a session advisory lock on one
// pooled connection. It returns false without calling fn when another
// session holds the lock.
func (r *Repository) WithAdvisoryLock(ctx context.Context, key int64, fn func(ctx context.Context) error) (bool, error) {
	conn, err := r.db.Pool.Acquire(ctx)
	if err != nil {
		return false, fmt.Errorf("acquire conn: %w", err)
	}
	defer conn.Release()

	var ok bool
	if err := conn.QueryRow(ctx, "SELECT pg_try_advisory_lock($1)", key).Scan(&ok); err != nil {
		return false, err
	}
	if !ok {
		return false, nil
	}
	defer func() {
		var unlocked bool
		if err := conn.QueryRow(context.Background(), "SELECT pg_advisory_unlock($1)", key).Scan(&unlocked); err != nil || !unlocked {
			r.log.Error().Err(err).Int64("key", key).Msg("advisory unlock failed")
		}
	}()
	return true, fn(ctx)
}

// Exclusions

func (r *Repository) Exclusions(ctx context.Context) ([]domain.Exclusion, error) {
	const q = `SELECT unique_name, role, exclude_from_metrics, updated_at FROM member_exclusions ORDER BY unique_name`
	rows, err := r.db.Pool.Query(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("list exclusions: %w", err)
	}
	defer rows.Close()
	out := []domain.Exclusion{}
	for rows.Next() {
		var e domain.Exclusion
		if err := rows.Scan(&e.UniqueName, &e.Role, &e.ExcludeFromMetrics, &e.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func (r *Repository) UpsertExclusion(ctx context.Context, e domain.Exclusion) (domain.Exclusion, error) {
	const q = `INSERT INTO member_exclusions(unique_name, role, exclude_from_metrics, updated_at)
		VALUES($1, $2, $3, now())
		ON CONFLICT(unique_name) DO UPDATE SET
			role=EXCLUDED.role,
			exclude_from_metrics=EXCLUDED.exclude_from_metrics,
			updated_at=now()
		RETURNING unique_name, role, exclude_from_metrics, updated_at`
	key := domain.NewIdentity(e.UniqueName).String()
	var out domain.Exclusion
	err := r.db.Pool.QueryRow(ctx, q, key, e.Role, e.ExcludeFromMetrics).
		Scan(&out.UniqueName, &out.Role, &out.ExcludeFromMetrics, &out.UpdatedAt)
	if err != nil {
		return domain.Exclusion{}, fmt.Errorf("upsert exclusion: %w", err)
	}
	return out, nil
}

func (r *Repository) DeleteExclusion(ctx context.Context, uniqueName string) error {
	tag, err := r.db.Pool.Exec(ctx, `DELETE FROM member_exclusions WHERE unique_name=$1`, domain.NewIdentity(uniqueName).String())
	if err != nil {
		return fmt.Errorf("delete exclusion: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// Job runs

func (r *Repository) StartJobRun(ctx context.Context, runID string, teams []string) (int64, error) {
	const q = `INSERT INTO job_runs(run_id, started_at, teams, success) VALUES($1, now(), $2, false) RETURNING id`
	if teams == nil {
		teams = []string{}
	}
	var id int64
	if err := r.db.Pool.QueryRow(ctx, q, runID, teams).Scan(&id); err != nil {
		return 0, err
	}
	return id, nil
}

func (r *Repository) FinishJobRun(ctx context.Context, id int64, membersProcessed, snapshots int, success bool, errStr string) error {
	const q = `UPDATE job_runs SET finished_at=now(), members_processed=$2, snapshots=$3, success=$4, error=$5 WHERE id=$1`
	_, err := r.db.Pool.Exec(ctx, q, id, membersProcessed, snapshots, success, errStr)
	return err
}

func (r *Repository) GetLastRun(ctx context.Context) (*domain.JobRun, error) {
	const q = `SELECT id, run_id, started_at, finished_at, teams, members_processed, snapshots, success, error
		FROM job_runs ORDER BY id DESC LIMIT 1`
	lr := &domain.JobRun{}
	err := r.db.Pool.QueryRow(ctx, q).Scan(&lr.ID, &lr.RunID, &lr.StartedAt, &lr.FinishedAt, &lr.Teams,
		&lr.MembersProcessed, &lr.Snapshots, &lr.Success, &lr.Error)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return lr, nil
}

// Compliance snapshots

func (r *Repository) SaveComplianceSnapshot(ctx context.Context, s domain.ComplianceSnapshot) error {
	const q = `INSERT INTO compliance_snapshots(run_id, team, period_start, period_end, business_days, active_members,
			expected_hours, actual_hours, compliance_pct, is_compliant, capex_hours, opex_hours, unclassified_hours, wrong_level_count)
		VALUES($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14)
		ON CONFLICT (team, period_start, period_end, run_id) DO NOTHING`
	_, err := r.db.Pool.Exec(ctx, q, s.RunID, s.Team, s.PeriodStart, s.PeriodEnd, s.BusinessDays, s.ActiveMembers,
		s.ExpectedHours, s.ActualHours, s.CompliancePct, s.IsCompliant, s.CapExHours, s.OpExHours, s.UnclassifiedHours, s.WrongLevelCount)
	if err != nil {
		return fmt.Errorf("save snapshot: %w", err)
	}
	return nil
}

// ComplianceHistory returns the newest snapshots for team first.
func (r *Repository) ComplianceHistory(ctx context.Context, team string, limit int) ([]domain.ComplianceSnapshot, error) {
	if limit <= 0 {
		limit = 12
	}
	const q = `SELECT run_id, team, period_start, period_end, business_days, active_members, expected_hours, actual_hours,
			compliance_pct, is_compliant, capex_hours, opex_hours, unclassified_hours, wrong_level_count, created_at
		FROM compliance_snapshots WHERE team=$1 ORDER BY created_at DESC, id DESC LIMIT $2`
	rows, err := r.db.Pool.Query(ctx, q, team, limit)
	if err != nil {
		return nil, fmt.Errorf("compliance history: %w", err)
	}
	defer rows.Close()
	out := []domain.ComplianceSnapshot{}
	for rows.Next() {
		var s domain.ComplianceSnapshot
		if err := rows.Scan(&s.RunID, &s.Team, &s.PeriodStart, &s.PeriodEnd, &s.BusinessDays, &s.ActiveMembers,
			&s.ExpectedHours, &s.ActualHours, &s.CompliancePct, &s.IsCompliant, &s.CapExHours, &s.OpExHours,
			&s.UnclassifiedHours, &s.WrongLevelCount, &s.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}
