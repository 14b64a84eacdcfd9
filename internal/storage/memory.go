package storage

import (
	"context"
	"sort"
	"sync"

	"github.com/drop-plan-generator/internal/models"
)

// PlanRepository defines operations on generated plans with context support.
// It is implemented by the in-memory, Redis, Cassandra and Postgres storage.
type PlanRepository interface {
	SavePlan(ctx context.Context, plan *models.PlanRecord) error
	GetPlan(ctx context.Context, planID string) (*models.PlanRecord, error)
	// ListPlans returns at most limit plans, newest first. limit <= 0 means all.
	ListPlans(ctx context.Context, limit int) ([]*models.PlanRecord, error)
	DeletePlan(ctx context.Context, planID string) error
}

// MemoryStorage provides in-memory storage for plans
type MemoryStorage struct {
	mu    sync.RWMutex
	plans map[string]*models.PlanRecord
}

// NewMemoryStorage creates a new in-memory storage
func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{
		plans: make(map[string]*models.PlanRecord),
	}
}

// SavePlan stores a new plan
func (s *MemoryStorage) SavePlan(ctx context.Context, plan *models.PlanRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.plans[plan.ID]; exists {
		return ErrPlanExists
	}

	s.plans[plan.ID] = plan
	return nil
}

// GetPlan retrieves a plan by ID
func (s *MemoryStorage) GetPlan(ctx context.Context, planID string) (*models.PlanRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	plan, exists := s.plans[planID]
	if !exists {
		return nil, ErrPlanNotFound
	}

	return plan, nil
}

// ListPlans returns stored plans ordered by creation time, newest first
func (s *MemoryStorage) ListPlans(ctx context.Context, limit int) ([]*models.PlanRecord, error) {
	s.mu.RLock()
	plans := make([]*models.PlanRecord, 0, len(s.plans))
	for _, plan := range s.plans {
		plans = append(plans, plan)
	}
	s.mu.RUnlock()

	SortNewestFirst(plans)
	if limit > 0 && len(plans) > limit {
		plans = plans[:limit]
	}

	return plans, nil
}

// DeletePlan removes a plan
func (s *MemoryStorage) DeletePlan(ctx context.Context, planID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.plans[planID]; !exists {
		return ErrPlanNotFound
	}

	delete(s.plans, planID)
	return nil
}

// SortNewestFirst orders plans by creation time descending, ties broken by ID
func SortNewestFirst(plans []*models.PlanRecord) {
	sort.Slice(plans, func(i, j int) bool {
		if plans[i].CreatedAt.Equal(plans[j].CreatedAt) {
			return plans[i].ID > plans[j].ID
		}
		return plans[i].CreatedAt.After(plans[j].CreatedAt)
	})
}

// Errors
var (
	ErrPlanNotFound = &StorageError{Message: "plan not found"}
	ErrPlanExists   = &StorageError{Message: "plan already exists"}
)

// StorageError represents a storage error
type StorageError struct {
	Message string
}

func (e *StorageError) Error() string {
	return e.Message
}
