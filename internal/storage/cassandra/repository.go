package cassandra

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/drop-plan-generator/internal/models"
	"github.com/drop-plan-generator/internal/plan"
	"github.com/drop-plan-generator/internal/storage"
	"github.com/drop-plan-generator/pkg/logger"
	"github.com/gocql/gocql"
)

// maxListDays bounds how many day partitions ListPlans walks back.
const maxListDays = 30

// Repository implements PlanRepository using Cassandra
type Repository struct {
	client  *Client
	logger  *logger.Logger
	timeout time.Duration
	ttl     time.Duration
}

// NewRepository creates a new Cassandra-based plan repository. A positive ttl
// is applied to every written row.
func NewRepository(client *Client, log *logger.Logger, timeout, ttl time.Duration) *Repository {
	return &Repository{
		client:  client,
		logger:  log,
		timeout: timeout,
		ttl:     ttl,
	}
}

// queryContext applies the configured timeout when ctx has no deadline.
func (r *Repository) queryContext(ctx context.Context) (context.Context, context.CancelFunc, error) {
	queryCtx, cancel := ctx, context.CancelFunc(func() {})
	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		queryCtx, cancel = context.WithTimeout(ctx, r.timeout)
	}

	select {
	case <-queryCtx.Done():
		cancel()
		return nil, nil, fmt.Errorf("context cancelled: %w", queryCtx.Err())
	default:
	}
	return queryCtx, cancel, nil
}

// SavePlan inserts a plan and its recency index entry
func (r *Repository) SavePlan(ctx context.Context, p *models.PlanRecord) error {
	queryCtx, cancel, err := r.queryContext(ctx)
	if err != nil {
		return err
	}
	defer cancel()

	ttl := int(r.ttl.Seconds())
	query := fmt.Sprintf(`
		INSERT INTO %s.plans (plan_id, created_at, drops, sessions, input, output)
		VALUES (?, ?, ?, ?, ?, ?)
		IF NOT EXISTS
		USING TTL ?`, r.client.Keyspace())

	err = applyCAS(r.client.Session().Query(query,
		p.ID,
		p.CreatedAt,
		p.Drops,
		p.Sessions,
		p.Input,
		p.Output,
		ttl,
	).WithContext(queryCtx))
	if errors.Is(err, storage.ErrPlanExists) {
		return err
	}
	if err != nil {
		r.logger.Error("Failed to save plan in Cassandra",
			logger.F("plan_id", p.ID),
			logger.F("error", err.Error()))
		return fmt.Errorf("failed to save plan: %w", err)
	}

	indexQuery := fmt.Sprintf(`
		INSERT INTO %s.plans_by_day (day, created_at, plan_id)
		VALUES (?, ?, ?)
		USING TTL ?`, r.client.Keyspace())

	if err := r.client.Session().Query(indexQuery, dayKey(p.CreatedAt), p.CreatedAt, p.ID, ttl).
		WithContext(queryCtx).Exec(); err != nil {
		return fmt.Errorf("failed to index plan: %w", err)
	}

	r.logger.Debug("Plan saved", logger.F("plan_id", p.ID))
	return nil
}

// GetPlan retrieves a plan by ID
func (r *Repository) GetPlan(ctx context.Context, planID string) (*models.PlanRecord, error) {
	queryCtx, cancel, err := r.queryContext(ctx)
	if err != nil {
		return nil, err
	}
	defer cancel()

	query := fmt.Sprintf(`
		SELECT plan_id, created_at, drops, sessions, input, output
		FROM %s.plans
		WHERE plan_id = ?`, r.client.Keyspace())

	var p models.PlanRecord
	err = r.client.Session().Query(query, planID).WithContext(queryCtx).Scan(
		&p.ID,
		&p.CreatedAt,
		&p.Drops,
		&p.Sessions,
		&p.Input,
		&p.Output,
	)
	if err != nil {
		if errors.Is(err, gocql.ErrNotFound) {
			return nil, storage.ErrPlanNotFound
		}
		r.logger.Error("Failed to get plan from Cassandra",
			logger.F("plan_id", planID),
			logger.F("error", err.Error()))
		return nil, fmt.Errorf("failed to get plan: %w", err)
	}

	p.Rows = plan.SplitTable(p.Output)
	return &p, nil
}

// ListPlans walks the day partitions from today backwards and returns the
// newest plans first
func (r *Repository) ListPlans(ctx context.Context, limit int) ([]*models.PlanRecord, error) {
	queryCtx, cancel, err := r.queryContext(ctx)
	if err != nil {
		return nil, err
	}
	defer cancel()

	query := fmt.Sprintf(`
		SELECT plan_id FROM %s.plans_by_day
		WHERE day = ?`, r.client.Keyspace())

	var ids []string
	today := time.Now().UTC()
	for d := 0; d < maxListDays; d++ {
		if limit > 0 && len(ids) >= limit {
			break
		}

		iter := r.client.Session().Query(query, dayKey(today.AddDate(0, 0, -d))).WithContext(queryCtx).Iter()
		var id string
		for iter.Scan(&id) {
			ids = append(ids, id)
		}
		if err := iter.Close(); err != nil {
			r.logger.Error("Failed to list plans from Cassandra", logger.F("error", err.Error()))
			return nil, fmt.Errorf("failed to list plans: %w", err)
		}
	}

	if limit > 0 && len(ids) > limit {
		ids = ids[:limit]
	}

	plans := make([]*models.PlanRecord, 0, len(ids))
	for _, id := range ids {
		p, err := r.GetPlan(queryCtx, id)
		if errors.Is(err, storage.ErrPlanNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		plans = append(plans, p)
	}

	return plans, nil
}

// DeletePlan removes a plan and its index entry
func (r *Repository) DeletePlan(ctx context.Context, planID string) error {
	p, err := r.GetPlan(ctx, planID)
	if err != nil {
		return err
	}

	queryCtx, cancel, err := r.queryContext(ctx)
	if err != nil {
		return err
	}
	defer cancel()

	batch := r.client.Session().NewBatch(gocql.LoggedBatch).WithContext(queryCtx)
	batch.Query(fmt.Sprintf(`DELETE FROM %s.plans WHERE plan_id = ?`, r.client.Keyspace()), planID)
	batch.Query(fmt.Sprintf(`DELETE FROM %s.plans_by_day WHERE day = ? AND created_at = ? AND plan_id = ?`, r.client.Keyspace()),
		dayKey(p.CreatedAt), p.CreatedAt, planID)

	if err := r.client.Session().ExecuteBatch(batch); err != nil {
		r.logger.Error("Failed to delete plan from Cassandra",
			logger.F("plan_id", planID),
			logger.F("error", err.Error()))
		return fmt.Errorf("failed to delete plan: %w", err)
	}

	r.logger.Debug("Plan deleted", logger.F("plan_id", planID))
	return nil
}

// dayKey returns the UTC day partition for t
func dayKey(t time.Time) string {
	return t.UTC().Format("2006-01-02")
}

// casScanner is the part of *gocql.Query used by conditional writes.
type casScanner interface {
	MapScanCAS(dest map[string]interface{}) (bool, error)
}

// applyCAS runs a conditional insert. When it is not applied Cassandra
// returns the existing row, which is scanned into a throwaway map.
func applyCAS(q casScanner) error {
	applied, err := q.MapScanCAS(map[string]interface{}{})
	if err != nil {
		return err
	}
	if !applied {
		return storage.ErrPlanExists
	}
	return nil
}
