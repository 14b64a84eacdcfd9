package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/drop-plan-generator/internal/config"
	"github.com/drop-plan-generator/internal/models"
	"github.com/drop-plan-generator/internal/storage"
	"github.com/drop-plan-generator/pkg/logger"
	goredis "github.com/redis/go-redis/v9"
)

// recentKey is a sorted set of plan IDs scored by creation time.
const recentKey = "plans:recent"

// Store implements PlanRepository using Redis.
// Plans are stored as JSON with a TTL for automatic cleanup.
type Store struct {
	client *goredis.Client
	ttl    time.Duration // 0 = no expiration
	logger *logger.Logger
}

// NewStore connects to Redis and verifies the connection.
func NewStore(cfg config.RedisConfig, ttl time.Duration, log *logger.Logger) (*Store, error) {
	client := goredis.NewClient(&goredis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	log.Info("Connected to Redis", logger.F("addr", cfg.Addr))
	return NewStoreWithClient(client, ttl, log), nil
}

// NewStoreWithClient wraps an existing client.
func NewStoreWithClient(client *goredis.Client, ttl time.Duration, log *logger.Logger) *Store {
	return &Store{client: client, ttl: ttl, logger: log}
}

// Close closes the underlying client
func (s *Store) Close() error {
	return s.client.Close()
}

// SavePlan stores a new plan and indexes it by creation time.
func (s *Store) SavePlan(ctx context.Context, plan *models.PlanRecord) error {
	data, err := encodePlan(plan)
	if err != nil {
		return err
	}

	created, err := s.client.SetNX(ctx, planKey(plan.ID), data, s.ttl).Result()
	if err != nil {
		return fmt.Errorf("failed to store plan: %w", err)
	}
	if !created {
		return storage.ErrPlanExists
	}

	member := goredis.Z{Score: float64(plan.CreatedAt.UnixMilli()), Member: plan.ID}
	if err := s.client.ZAdd(ctx, recentKey, member).Err(); err != nil {
		return fmt.Errorf("failed to index plan: %w", err)
	}

	s.logger.Debug("Plan stored in Redis", logger.F("plan_id", plan.ID))
	return nil
}

// GetPlan retrieves a plan by ID.
func (s *Store) GetPlan(ctx context.Context, planID string) (*models.PlanRecord, error) {
	data, err := s.client.Get(ctx, planKey(planID)).Result()
	if err != nil {
		if errors.Is(err, goredis.Nil) {
			return nil, storage.ErrPlanNotFound
		}
		return nil, fmt.Errorf("failed to get plan: %w", err)
	}

	return decodePlan(data)
}

// ListPlans returns the newest plans. IDs whose record has expired are
// dropped from the index as they are found.
func (s *Store) ListPlans(ctx context.Context, limit int) ([]*models.PlanRecord, error) {
	stop := int64(-1)
	if limit > 0 {
		stop = int64(limit - 1)
	}

	ids, err := s.client.ZRevRange(ctx, recentKey, 0, stop).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list plans: %w", err)
	}
	if len(ids) == 0 {
		return []*models.PlanRecord{}, nil
	}

	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = planKey(id)
	}
	values, err := s.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to load plans: %w", err)
	}

	plans := make([]*models.PlanRecord, 0, len(values))
	var stale []interface{}
	for i, value := range values {
		data, ok := value.(string)
		if !ok {
			stale = append(stale, ids[i])
			continue
		}
		plan, err := decodePlan(data)
		if err != nil {
			return nil, err
		}
		plans = append(plans, plan)
	}

	if len(stale) > 0 {
		if err := s.client.ZRem(ctx, recentKey, stale...).Err(); err != nil {
			s.logger.Warn("Failed to prune expired plans", logger.F("error", err.Error()))
		}
	}

	return plans, nil
}

// DeletePlan deletes a plan and its index entry.
func (s *Store) DeletePlan(ctx context.Context, planID string) error {
	removed, err := s.client.Del(ctx, planKey(planID)).Result()
	if err != nil {
		return fmt.Errorf("failed to delete plan: %w", err)
	}
	if err := s.client.ZRem(ctx, recentKey, planID).Err(); err != nil {
		return fmt.Errorf("failed to unindex plan: %w", err)
	}
	if removed == 0 {
		return storage.ErrPlanNotFound
	}
	return nil
}

func encodePlan(plan *models.PlanRecord) ([]byte, error) {
	data, err := json.Marshal(plan)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal plan: %w", err)
	}
	return data, nil
}

func decodePlan(data string) (*models.PlanRecord, error) {
	var plan models.PlanRecord
	if err := json.Unmarshal([]byte(data), &plan); err != nil {
		return nil, fmt.Errorf("failed to unmarshal plan: %w", err)
	}
	return &plan, nil
}

// planKey generates a Redis key for a plan.
func planKey(id string) string {
	return fmt.Sprintf("plan:%s", id)
}
