// internal/service/subscription/lifecycle.go
package subscription

import (
	"context"
	"fmt"
	"time"

	"mattepass-service/internal/domain/subscription"
	"mattepass-service/internal/metrics"
	xerrors "mattepass-service/internal/pkg/errors"
	"mattepass-service/internal/pkg/lock"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"
)

const (
	sweepLockName = "lock:subscription:lifecycle"
	sweepLockTTL  = 5 * time.Minute
	sweepBatch    = 500
)

// Locker grants a cluster-wide mutex. Failing to acquire returns an error.
type Locker interface {
	TryLock(ctx context.Context, name string, ttl time.Duration) (func(context.Context) error, error)
}

type LifecycleService struct {
	db               Transactor
	subscriptionRepo SubscriptionRepository
	paymentRepo      PaymentRepository
	planRepo         PlanFinder
	locker           Locker
	logger           *zap.Logger
}

func NewLifecycleService(
	db Transactor,
	subscriptionRepo SubscriptionRepository,
	paymentRepo PaymentRepository,
	planRepo PlanFinder,
	locker Locker,
	logger *zap.Logger,
) *LifecycleService {
	return &LifecycleService{
		db:               db,
		subscriptionRepo: subscriptionRepo,
		paymentRepo:      paymentRepo,
		planRepo:         planRepo,
		locker:           locker,
		logger:           logger,
	}
}

type outcome int

const (
	outcomeSkipped outcome = iota
	outcomeRenewed
	outcomeExpired
)

// ProcessDue renews or expires every active subscription whose term ended by now.
func (s *LifecycleService) ProcessDue(ctx context.Context, now time.Time) (*subscription.SweepResult, error) {
	release, err := s.locker.TryLock(ctx, sweepLockName, sweepLockTTL)
	if err != nil {
		if xerrors.Is(err, lock.ErrNotAcquired) {
			metrics.IncLifecycleSweep("skipped")
		} else {
			metrics.IncLifecycleSweep("error")
		}
		return nil, err
	}
	defer func() {
		if err := release(ctx); err != nil {
			s.logger.Warn("failed to release lifecycle lock", zap.Error(err))
		}
	}()

	due, err := s.subscriptionRepo.ListDue(ctx, now, sweepBatch)
	if err != nil {
		metrics.IncLifecycleSweep("error")
		return nil, fmt.Errorf("failed to list due subscriptions: %w", err)
	}

	result := &subscription.SweepResult{}
	for _, sub := range due {
		out, err := s.processOne(ctx, sub.ID, now)
		if err != nil {
			result.Failed++
			s.logger.Error("failed to process subscription",
				zap.Int64("subscription_id", sub.ID),
				zap.Int64("user_id", sub.UserID),
				zap.Error(err),
			)
			continue
		}
		switch out {
		case outcomeRenewed:
			result.Renewed++
		case outcomeExpired:
			result.Expired++
		}
	}

	metrics.AddSubscriptionTransitions("renewed", result.Renewed)
	metrics.AddSubscriptionTransitions("expired", result.Expired)
	metrics.IncLifecycleSweep("ok")
	s.logger.Info("subscription lifecycle sweep completed",
		zap.Int("due", len(due)),
		zap.Int("renewed", result.Renewed),
		zap.Int("expired", result.Expired),
		zap.Int("failed", result.Failed),
	)
	return result, nil
}

func (s *LifecycleService) processOne(ctx context.Context, id int64, now time.Time) (outcome, error) {
	out := outcomeSkipped
	err := s.db.WithTx(ctx, func(tx pgx.Tx) error {
		sub, err := s.subscriptionRepo.FindByIDForUpdate(ctx, tx, id)
		if err != nil {
			return err
		}
		// changed since it was listed
		if !sub.IsActive() || sub.EndDate.After(now) {
			return nil
		}

		if !sub.AutoRenew {
			if err := s.subscriptionRepo.UpdateStatusWithTx(ctx, tx, sub.ID, subscription.StatusExpired, false); err != nil {
				return err
			}
			out = outcomeExpired
			return nil
		}

		p, err := s.planRepo.FindByIDWithTx(ctx, tx, sub.PlanID)
		if err != nil {
			return err
		}

		method, err := s.paymentRepo.LatestMethodWithTx(ctx, tx, sub.ID)
		if xerrors.Is(err, xerrors.ErrNotFound) {
			method = subscription.PaymentMethodCard
		} else if err != nil {
			return err
		}

		base := sub.EndDate
		if now.After(base) {
			base = now
		}
		if err := s.subscriptionRepo.ExtendWithTx(ctx, tx, sub.ID, base.Add(subscription.Period)); err != nil {
			return err
		}
		if err := s.paymentRepo.CreateWithTx(ctx, tx, newPayment(sub, p, method)); err != nil {
			return err
		}
		out = outcomeRenewed
		return nil
	})
	if err != nil {
		return outcomeSkipped, err
	}
	return out, nil
}
