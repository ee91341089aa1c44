// internal/service/subscription/subscription_service.go
package subscription

import (
	"context"
	"fmt"
	"time"

	"mattepass-service/internal/domain/plan"
	"mattepass-service/internal/domain/subscription"
	"mattepass-service/internal/metrics"
	"mattepass-service/internal/pkg/clock"
	xerrors "mattepass-service/internal/pkg/errors"

	"github.com/jackc/pgx/v5"
	"github.com/oklog/ulid/v2"
	"go.uber.org/zap"
)

type Transactor interface {
	WithTx(ctx context.Context, fn func(tx pgx.Tx) error) error
	LockKeyWithTx(ctx context.Context, tx pgx.Tx, key int64) error
}

type SubscriptionRepository interface {
	CreateWithTx(ctx context.Context, tx pgx.Tx, sub *subscription.Subscription) error
	FindActiveByUserWithTx(ctx context.Context, tx pgx.Tx, userID int64) (*subscription.Subscription, error)
	FindActiveViewByUser(ctx context.Context, userID int64) (*subscription.ActiveSubscriptionView, error)
	FindByIDForUpdate(ctx context.Context, tx pgx.Tx, id int64) (*subscription.Subscription, error)
	UpdateStatusWithTx(ctx context.Context, tx pgx.Tx, id int64, status subscription.SubscriptionStatus, autoRenew bool) error
	UpdateAutoRenewWithTx(ctx context.Context, tx pgx.Tx, id int64, autoRenew bool) error
	ExtendWithTx(ctx context.Context, tx pgx.Tx, id int64, endDate time.Time) error
	ListDue(ctx context.Context, now time.Time, limit int) ([]subscription.Subscription, error)
}

type PaymentRepository interface {
	CreateWithTx(ctx context.Context, tx pgx.Tx, p *subscription.Payment) error
	LatestMethodWithTx(ctx context.Context, tx pgx.Tx, subscriptionID int64) (subscription.PaymentMethod, error)
	ListHistoryByUser(ctx context.Context, userID int64) ([]subscription.PaymentHistoryEntry, error)
}

type PlanFinder interface {
	FindByIDWithTx(ctx context.Context, tx pgx.Tx, id int64) (*plan.Plan, error)
}

type SubscriptionService struct {
	db               Transactor
	subscriptionRepo SubscriptionRepository
	paymentRepo      PaymentRepository
	planRepo         PlanFinder
	clock            clock.Clock
	logger           *zap.Logger
}

func NewSubscriptionService(
	db Transactor,
	subscriptionRepo SubscriptionRepository,
	paymentRepo PaymentRepository,
	planRepo PlanFinder,
	clk clock.Clock,
	logger *zap.Logger,
) *SubscriptionService {
	return &SubscriptionService{
		db:               db,
		subscriptionRepo: subscriptionRepo,
		paymentRepo:      paymentRepo,
		planRepo:         planRepo,
		clock:            clk,
		logger:           logger,
	}
}

// Subscribe starts a 30 day subscription and records its simulated payment
func (s *SubscriptionService) Subscribe(ctx context.Context, userID int64, req *subscription.SubscribeRequest) (*subscription.SubscribeResult, error) {
	if !req.PaymentMethod.Valid() {
		return nil, fmt.Errorf("%w: payment method must be card or pix", xerrors.ErrInvalidInput)
	}

	now := s.clock.Now()
	result := &subscription.SubscribeResult{}

	err := s.db.WithTx(ctx, func(tx pgx.Tx) error {
		if err := s.db.LockKeyWithTx(ctx, tx, userID); err != nil {
			return err
		}

		existing, err := s.subscriptionRepo.FindActiveByUserWithTx(ctx, tx, userID)
		if err != nil && !xerrors.Is(err, xerrors.ErrNotFound) {
			return fmt.Errorf("failed to check active subscription: %w", err)
		}
		if existing != nil {
			return xerrors.ErrActiveSubscriptionExists
		}

		p, err := s.planRepo.FindByIDWithTx(ctx, tx, req.PlanID)
		if err != nil {
			return err
		}

		sub := &subscription.Subscription{
			UserID:    userID,
			PlanID:    p.ID,
			Status:    subscription.StatusActive,
			StartDate: now,
			EndDate:   now.Add(subscription.Period),
			AutoRenew: true,
		}
		if err := s.subscriptionRepo.CreateWithTx(ctx, tx, sub); err != nil {
			return err
		}

		payment := newPayment(sub, p, req.PaymentMethod)
		if err := s.paymentRepo.CreateWithTx(ctx, tx, payment); err != nil {
			return err
		}

		result.Subscription = sub
		result.Payment = payment
		return nil
	})
	if err != nil {
		return nil, err
	}

	metrics.IncSubscriptionTransition("created")
	s.logger.Info("subscription created",
		zap.Int64("subscription_id", result.Subscription.ID),
		zap.Int64("user_id", userID),
		zap.Int64("plan_id", req.PlanID),
		zap.String("transaction_id", result.Payment.TransactionID),
	)
	return result, nil
}

// Cancel ends the user's active subscription immediately and stops renewals
func (s *SubscriptionService) Cancel(ctx context.Context, userID int64) error {
	var subID int64
	err := s.db.WithTx(ctx, func(tx pgx.Tx) error {
		sub, err := s.activeWithTx(ctx, tx, userID)
		if err != nil {
			return err
		}
		subID = sub.ID
		return s.subscriptionRepo.UpdateStatusWithTx(ctx, tx, sub.ID, subscription.StatusCancelled, false)
	})
	if err != nil {
		return err
	}

	metrics.IncSubscriptionTransition("cancelled")
	s.logger.Info("subscription cancelled",
		zap.Int64("subscription_id", subID),
		zap.Int64("user_id", userID),
	)
	return nil
}

// SetAutoRenew toggles renewal on the user's active subscription
func (s *SubscriptionService) SetAutoRenew(ctx context.Context, userID int64, autoRenew bool) error {
	return s.db.WithTx(ctx, func(tx pgx.Tx) error {
		sub, err := s.activeWithTx(ctx, tx, userID)
		if err != nil {
			return err
		}
		return s.subscriptionRepo.UpdateAutoRenewWithTx(ctx, tx, sub.ID, autoRenew)
	})
}

// GetActive returns the active subscription with its plan allowances
func (s *SubscriptionService) GetActive(ctx context.Context, userID int64) (*subscription.ActiveSubscriptionView, error) {
	view, err := s.subscriptionRepo.FindActiveViewByUser(ctx, userID)
	if xerrors.Is(err, xerrors.ErrNotFound) {
		return nil, xerrors.ErrNoActiveSubscription
	}
	if err != nil {
		return nil, err
	}
	return view, nil
}

// PaymentHistory lists the user's payments newest first
func (s *SubscriptionService) PaymentHistory(ctx context.Context, userID int64) ([]subscription.PaymentHistoryEntry, error) {
	return s.paymentRepo.ListHistoryByUser(ctx, userID)
}

func (s *SubscriptionService) activeWithTx(ctx context.Context, tx pgx.Tx, userID int64) (*subscription.Subscription, error) {
	sub, err := s.subscriptionRepo.FindActiveByUserWithTx(ctx, tx, userID)
	if xerrors.Is(err, xerrors.ErrNotFound) {
		return nil, xerrors.ErrNoActiveSubscription
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load subscription: %w", err)
	}
	return sub, nil
}

func newPayment(sub *subscription.Subscription, p *plan.Plan, method subscription.PaymentMethod) *subscription.Payment {
	return &subscription.Payment{
		UserID:         sub.UserID,
		SubscriptionID: sub.ID,
		Amount:         p.Price,
		PaymentMethod:  method,
		Status:         subscription.PaymentStatusApproved,
		TransactionID:  ulid.Make().String(),
	}
}
