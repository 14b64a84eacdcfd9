package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/drop-plan-generator/internal/models"
	"github.com/drop-plan-generator/internal/plan"
	"github.com/drop-plan-generator/internal/storage"
	"github.com/drop-plan-generator/pkg/logger"
	"github.com/google/uuid"
)

// ErrTooManyDrops is returned when a request asks for more drops than allowed
var ErrTooManyDrops = errors.New("number of drops exceeds the maximum")

// PlanService handles plan generation and the stored plan lifecycle
type PlanService struct {
	storage      storage.PlanRepository
	defaultDrops int
	maxDrops     int
	logger       *logger.Logger
	now          func() time.Time
}

// NewPlanService creates a new plan service
func NewPlanService(storage storage.PlanRepository, defaultDrops, maxDrops int, log *logger.Logger) *PlanService {
	return &PlanService{
		storage:      storage,
		defaultDrops: defaultDrops,
		maxDrops:     maxDrops,
		logger:       log,
		now:          time.Now,
	}
}

// ResolveDrops applies the default to 0 and rejects counts outside 1..max
func (s *PlanService) ResolveDrops(drops int) (int, error) {
	switch {
	case drops == 0:
		return s.defaultDrops, nil
	case drops < 0:
		return 0, plan.ErrInvalidDrops
	case drops > s.maxDrops:
		return 0, fmt.Errorf("%w: %d > %d", ErrTooManyDrops, drops, s.maxDrops)
	}
	return drops, nil
}

// Generate parses input, generates drops rows and stores the result.
// Nothing is stored when parsing or generation fails.
func (s *PlanService) Generate(ctx context.Context, input string, drops int) (*models.PlanRecord, error) {
	drops, err := s.ResolveDrops(drops)
	if err != nil {
		return nil, err
	}

	parsed, err := plan.Parse(input)
	if err != nil {
		return nil, err
	}

	result, err := plan.Generate(parsed, drops)
	if err != nil {
		return nil, err
	}

	record := &models.PlanRecord{
		ID:        "plan_" + uuid.New().String(),
		CreatedAt: s.now().UTC(),
		Drops:     drops,
		Sessions:  result.Sessions,
		Input:     input,
		Rows:      result.Table(),
		Output:    result.String(),
	}

	if err := s.storage.SavePlan(ctx, record); err != nil {
		return nil, fmt.Errorf("failed to save plan: %w", err)
	}

	s.logger.Info("Plan generated",
		logger.F("plan_id", record.ID),
		logger.F("sessions", strconv.Itoa(len(record.Sessions))),
		logger.F("drops", strconv.Itoa(drops)))

	return record, nil
}

// Preview parses input and summarizes each session without generating
func (s *PlanService) Preview(input string) ([]models.SessionSummary, error) {
	parsed, err := plan.Parse(input)
	if err != nil {
		return nil, err
	}

	infos, err := plan.Describe(parsed)
	if err != nil {
		return nil, err
	}

	summaries := make([]models.SessionSummary, len(infos))
	for i, info := range infos {
		summaries[i] = Summarize(info)
	}
	return summaries, nil
}

// Summarize converts a parsed session description to its API form
func Summarize(info plan.SessionInfo) models.SessionSummary {
	summary := models.SessionSummary{
		Name:         info.Name,
		Step:         info.Step,
		Limit:        info.Limit,
		HistoryCount: info.HistoryCount,
		Paused:       make([]string, len(info.Paused)),
		NextStart:    info.NextStart,
	}
	if info.LastIssued != nil {
		summary.LastIssued = info.LastIssued.String()
	}
	for i, p := range info.Paused {
		summary.Paused[i] = p.String()
	}
	return summary
}

// GetPlan retrieves a stored plan by ID
func (s *PlanService) GetPlan(ctx context.Context, planID string) (*models.PlanRecord, error) {
	if planID == "" {
		return nil, storage.ErrPlanNotFound
	}
	return s.storage.GetPlan(ctx, planID)
}

// ListPlans returns the most recent plans
func (s *PlanService) ListPlans(ctx context.Context, limit int) ([]*models.PlanRecord, error) {
	plans, err := s.storage.ListPlans(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list plans: %w", err)
	}
	return plans, nil
}

// DeletePlan removes a stored plan
func (s *PlanService) DeletePlan(ctx context.Context, planID string) error {
	if err := s.storage.DeletePlan(ctx, planID); err != nil {
		return err
	}
	s.logger.Info("Plan deleted", logger.F("plan_id", planID))
	return nil
}
