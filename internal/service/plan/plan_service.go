// internal/service/plan/plan_service.go
package plan

import (
	"context"
	"fmt"
	"strings"

	"mattepass-service/internal/domain/plan"
	xerrors "mattepass-service/internal/pkg/errors"

	"go.uber.org/zap"
)

type PlanRepository interface {
	Create(ctx context.Context, p *plan.Plan) error
	FindByID(ctx context.Context, id int64) (*plan.Plan, error)
	List(ctx context.Context) ([]plan.Plan, error)
	Update(ctx context.Context, p *plan.Plan) error
	Delete(ctx context.Context, id int64) error
	CountSubscriptions(ctx context.Context, planID int64, activeOnly bool) (int64, error)
}

// PlanCache is a read-through cache in front of the catalog. Any error is treated as a miss.
type PlanCache interface {
	GetList(ctx context.Context) ([]plan.Plan, error)
	SetList(ctx context.Context, plans []plan.Plan) error
	Get(ctx context.Context, id int64) (*plan.Plan, error)
	Set(ctx context.Context, p *plan.Plan) error
	Invalidate(ctx context.Context, id int64) error
}

type PlanService struct {
	planRepo PlanRepository
	cache    PlanCache
	logger   *zap.Logger
}

func NewPlanService(planRepo PlanRepository, cache PlanCache, logger *zap.Logger) *PlanService {
	return &PlanService{
		planRepo: planRepo,
		cache:    cache,
		logger:   logger,
	}
}

// ListPlans returns the catalog ordered by price
func (s *PlanService) ListPlans(ctx context.Context) ([]plan.Plan, error) {
	if plans, err := s.cache.GetList(ctx); err == nil {
		return plans, nil
	}

	plans, err := s.planRepo.List(ctx)
	if err != nil {
		return nil, err
	}
	if err := s.cache.SetList(ctx, plans); err != nil {
		s.logger.Warn("failed to cache plan list", zap.Error(err))
	}
	return plans, nil
}

// GetPlan retrieves a plan by ID
func (s *PlanService) GetPlan(ctx context.Context, id int64) (*plan.Plan, error) {
	if p, err := s.cache.Get(ctx, id); err == nil {
		return p, nil
	}

	p, err := s.planRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.cache.Set(ctx, p); err != nil {
		s.logger.Warn("failed to cache plan", zap.Int64("plan_id", id), zap.Error(err))
	}
	return p, nil
}

// CreatePlan adds a plan to the catalog
func (s *PlanService) CreatePlan(ctx context.Context, req *plan.CreatePlanRequest) (*plan.Plan, error) {
	p := &plan.Plan{
		Name:          strings.TrimSpace(req.Name),
		Description:   req.Description,
		Price:         req.Price,
		ItemAQuantity: req.ItemAQuantity,
		ItemBQuantity: req.ItemBQuantity,
	}
	if err := validate(p); err != nil {
		return nil, err
	}

	if err := s.planRepo.Create(ctx, p); err != nil {
		s.logger.Error("failed to create plan", zap.Error(err))
		return nil, err
	}
	s.invalidate(ctx, p.ID)

	s.logger.Info("plan created",
		zap.Int64("plan_id", p.ID),
		zap.String("name", p.Name),
	)
	return p, nil
}

// UpdatePlan edits a plan. Price and allowances are frozen while active subscribers exist.
func (s *PlanService) UpdatePlan(ctx context.Context, id int64, req *plan.UpdatePlanRequest) (*plan.Plan, error) {
	p, err := s.planRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if req.ChangesAllowance(p) {
		active, err := s.planRepo.CountSubscriptions(ctx, id, true)
		if err != nil {
			return nil, err
		}
		if active > 0 {
			return nil, fmt.Errorf("%w: %d active subscriptions", xerrors.ErrPlanInUse, active)
		}
	}

	req.Apply(p)
	p.Name = strings.TrimSpace(p.Name)
	if err := validate(p); err != nil {
		return nil, err
	}

	if err := s.planRepo.Update(ctx, p); err != nil {
		return nil, err
	}
	s.invalidate(ctx, id)

	s.logger.Info("plan updated", zap.Int64("plan_id", id))
	return p, nil
}

// DeletePlan removes a plan no subscription has ever referenced
func (s *PlanService) DeletePlan(ctx context.Context, id int64) error {
	if _, err := s.planRepo.FindByID(ctx, id); err != nil {
		return err
	}

	refs, err := s.planRepo.CountSubscriptions(ctx, id, false)
	if err != nil {
		return err
	}
	if refs > 0 {
		return fmt.Errorf("%w: %d subscriptions", xerrors.ErrPlanInUse, refs)
	}

	if err := s.planRepo.Delete(ctx, id); err != nil {
		return err
	}
	s.invalidate(ctx, id)

	s.logger.Info("plan deleted", zap.Int64("plan_id", id))
	return nil
}

func (s *PlanService) invalidate(ctx context.Context, id int64) {
	if err := s.cache.Invalidate(ctx, id); err != nil {
		s.logger.Warn("failed to invalidate plan cache", zap.Int64("plan_id", id), zap.Error(err))
	}
}

func validate(p *plan.Plan) error {
	switch {
	case p.Name == "":
		return fmt.Errorf("%w: name is required", xerrors.ErrInvalidInput)
	case p.Price.IsNegative():
		return fmt.Errorf("%w: price must not be negative", xerrors.ErrInvalidInput)
	case p.ItemAQuantity < 0 || p.ItemBQuantity < 0:
		return fmt.Errorf("%w: quantities must not be negative", xerrors.ErrInvalidInput)
	}
	return nil
}
