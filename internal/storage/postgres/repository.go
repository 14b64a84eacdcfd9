package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/drop-plan-generator/internal/config"
	"github.com/drop-plan-generator/internal/models"
	"github.com/drop-plan-generator/internal/plan"
	"github.com/drop-plan-generator/internal/storage"
	"github.com/drop-plan-generator/pkg/logger"
	"github.com/lib/pq"
)

const uniqueViolation = "23505"

const schema = `
CREATE TABLE IF NOT EXISTS plans (
	plan_id    TEXT PRIMARY KEY,
	created_at TIMESTAMPTZ NOT NULL,
	expires_at TIMESTAMPTZ,
	drops      INTEGER NOT NULL,
	sessions   TEXT[] NOT NULL,
	input      TEXT NOT NULL,
	output     TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS plans_created_at_idx ON plans (created_at DESC);`

// live filters out expired rows.
const live = `(expires_at IS NULL OR expires_at > NOW())`

// Repository implements PlanRepository using PostgreSQL
type Repository struct {
	db      *sql.DB
	logger  *logger.Logger
	timeout time.Duration
	ttl     time.Duration
}

// Open connects to PostgreSQL, verifies the connection and creates the schema
func Open(cfg config.PostgresConfig, ttl time.Duration, log *logger.Logger) (*Repository, error) {
	db, err := sql.Open("postgres", cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("failed to open PostgreSQL: %w", err)
	}

	r := New(db, cfg.Timeout, ttl, log)

	ctx, cancel := r.queryContext(context.Background())
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to PostgreSQL: %w", err)
	}
	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	log.Info("Connected to PostgreSQL")
	return r, nil
}

// New wraps an open database whose schema already exists
func New(db *sql.DB, timeout, ttl time.Duration, log *logger.Logger) *Repository {
	return &Repository{db: db, logger: log, timeout: timeout, ttl: ttl}
}

// Close closes the connection pool
func (r *Repository) Close() error {
	r.logger.Info("PostgreSQL connection closed")
	return r.db.Close()
}

func (r *Repository) queryContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if _, hasDeadline := ctx.Deadline(); hasDeadline || r.timeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, r.timeout)
}

// SavePlan inserts a new plan
func (r *Repository) SavePlan(ctx context.Context, p *models.PlanRecord) error {
	ctx, cancel := r.queryContext(ctx)
	defer cancel()

	var expiresAt sql.NullTime
	if r.ttl > 0 {
		expiresAt = sql.NullTime{Time: p.CreatedAt.Add(r.ttl), Valid: true}
	}

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO plans (plan_id, created_at, expires_at, drops, sessions, input, output)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		p.ID, p.CreatedAt, expiresAt, p.Drops, pq.Array(p.Sessions), p.Input, p.Output)
	if err != nil {
		if isUniqueViolation(err) {
			return storage.ErrPlanExists
		}
		r.logger.Error("Failed to save plan in PostgreSQL",
			logger.F("plan_id", p.ID),
			logger.F("error", err.Error()))
		return fmt.Errorf("failed to save plan: %w", err)
	}

	r.logger.Debug("Plan saved", logger.F("plan_id", p.ID))
	return nil
}

// GetPlan retrieves a plan by ID
func (r *Repository) GetPlan(ctx context.Context, planID string) (*models.PlanRecord, error) {
	ctx, cancel := r.queryContext(ctx)
	defer cancel()

	row := r.db.QueryRowContext(ctx, `
		SELECT plan_id, created_at, drops, sessions, input, output
		FROM plans
		WHERE plan_id = $1 AND `+live, planID)

	p, err := scanPlan(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, storage.ErrPlanNotFound
		}
		return nil, fmt.Errorf("failed to get plan: %w", err)
	}
	return p, nil
}

// ListPlans returns the newest plans first
func (r *Repository) ListPlans(ctx context.Context, limit int) ([]*models.PlanRecord, error) {
	ctx, cancel := r.queryContext(ctx)
	defer cancel()

	// LIMIT NULL returns every row.
	var n sql.NullInt64
	if limit > 0 {
		n = sql.NullInt64{Int64: int64(limit), Valid: true}
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT plan_id, created_at, drops, sessions, input, output
		FROM plans
		WHERE `+live+`
		ORDER BY created_at DESC, plan_id DESC
		LIMIT $1`, n)
	if err != nil {
		return nil, fmt.Errorf("failed to list plans: %w", err)
	}
	defer rows.Close()

	plans := []*models.PlanRecord{}
	for rows.Next() {
		p, err := scanPlan(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan plan: %w", err)
		}
		plans = append(plans, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list plans: %w", err)
	}

	return plans, nil
}

// DeletePlan removes a plan
func (r *Repository) DeletePlan(ctx context.Context, planID string) error {
	ctx, cancel := r.queryContext(ctx)
	defer cancel()

	res, err := r.db.ExecContext(ctx, `DELETE FROM plans WHERE plan_id = $1 AND `+live, planID)
	if err != nil {
		return fmt.Errorf("failed to delete plan: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to delete plan: %w", err)
	}
	if n == 0 {
		return storage.ErrPlanNotFound
	}
	return nil
}

// PurgeExpired deletes expired plans and reports how many were removed
func (r *Repository) PurgeExpired(ctx context.Context) (int64, error) {
	ctx, cancel := r.queryContext(ctx)
	defer cancel()

	res, err := r.db.ExecContext(ctx, `DELETE FROM plans WHERE expires_at IS NOT NULL AND expires_at <= NOW()`)
	if err != nil {
		return 0, fmt.Errorf("failed to purge plans: %w", err)
	}
	return res.RowsAffected()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanPlan(s scanner) (*models.PlanRecord, error) {
	var p models.PlanRecord
	if err := s.Scan(&p.ID, &p.CreatedAt, &p.Drops, pq.Array(&p.Sessions), &p.Input, &p.Output); err != nil {
		return nil, err
	}
	p.Rows = plan.SplitTable(p.Output)
	return &p, nil
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == uniqueViolation
}
