// internal/service/quota/issuer.go
package quota

import (
	"context"
	"fmt"
	"time"

	"mattepass-service/internal/domain/dailycode"
	"mattepass-service/internal/domain/redemption"
	"mattepass-service/internal/metrics"
	"mattepass-service/internal/pkg/clock"
	xerrors "mattepass-service/internal/pkg/errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"
)

// Issuer hands out the one daily code a subscriber holds per UTC day.
type Issuer struct {
	db       Transactor
	subs     SubscriptionFinder
	plans    PlanFinder
	codes    DailyCodeStore
	ledger   RedemptionLedger
	newToken func() string
	logger   *zap.Logger
}

func NewIssuer(
	db Transactor,
	subs SubscriptionFinder,
	plans PlanFinder,
	codes DailyCodeStore,
	ledger RedemptionLedger,
	logger *zap.Logger,
) *Issuer {
	return &Issuer{
		db:       db,
		subs:     subs,
		plans:    plans,
		codes:    codes,
		ledger:   ledger,
		newToken: uuid.NewString,
		logger:   logger,
	}
}

// IssueOrGet returns the user's code for the day of now, creating it on first request.
// A losing insert in a creation race is retried once and then sees the winner's code.
func (s *Issuer) IssueOrGet(ctx context.Context, userID int64, now time.Time) (*dailycode.CodeResult, error) {
	result, err := s.issueOrGet(ctx, userID, now)
	if xerrors.Is(err, xerrors.ErrDuplicateCodeRace) {
		s.logger.Warn("daily code created concurrently, retrying", zap.Int64("user_id", userID))
		result, err = s.issueOrGet(ctx, userID, now)
	}
	if err != nil {
		if xerrors.Is(err, xerrors.ErrQuotaExhausted) {
			metrics.IncDailyCode("exhausted")
		}
		return nil, err
	}

	if result.Created {
		metrics.IncDailyCode("created")
		s.logger.Info("daily code issued",
			zap.Int64("user_id", userID),
			zap.Time("valid_until", result.ValidUntil),
		)
	} else {
		metrics.IncDailyCode("reused")
	}
	return result, nil
}

func (s *Issuer) issueOrGet(ctx context.Context, userID int64, now time.Time) (*dailycode.CodeResult, error) {
	day := clock.StartOfDay(now)

	var result *dailycode.CodeResult
	err := s.db.WithTx(ctx, func(tx pgx.Tx) error {
		sub, err := s.subs.FindActiveByUserWithTx(ctx, tx, userID)
		if xerrors.Is(err, xerrors.ErrNotFound) {
			return xerrors.ErrNoActiveSubscription
		}
		if err != nil {
			return fmt.Errorf("failed to load subscription: %w", err)
		}

		p, err := s.plans.FindByIDWithTx(ctx, tx, sub.PlanID)
		if err != nil {
			return fmt.Errorf("failed to load plan: %w", err)
		}

		if err := s.db.LockKeyWithTx(ctx, tx, userID); err != nil {
			return err
		}

		code, err := s.codes.FindByUserAndDayWithTx(ctx, tx, userID, day)
		if xerrors.Is(err, xerrors.ErrNotFound) {
			code = &dailycode.DailyCode{
				UserID:     userID,
				Token:      s.newToken(),
				ValidDay:   day,
				CreatedAt:  now,
				ValidUntil: day.AddDate(0, 0, 1),
			}
			if err := s.codes.CreateWithTx(ctx, tx, code); err != nil {
				return err
			}

			itemA, itemB := redemption.Tally{}.Balances(p)
			result = &dailycode.CodeResult{
				Code:       code.Token,
				ValidUntil: code.ValidUntil,
				ItemA:      itemA,
				ItemB:      itemB,
				Created:    true,
			}
			return nil
		}
		if err != nil {
			return fmt.Errorf("failed to find daily code: %w", err)
		}

		tally, err := s.ledger.SumByCodeWithTx(ctx, tx, code.ID)
		if err != nil {
			return err
		}
		if tally.Exhausted(p) {
			return &xerrors.QuotaExhaustedError{
				ItemARedeemed: tally.ItemA,
				ItemATotal:    p.ItemAQuantity,
				ItemBRedeemed: tally.ItemB,
				ItemBTotal:    p.ItemBQuantity,
			}
		}

		itemA, itemB := tally.Balances(p)
		result = &dailycode.CodeResult{
			Code:       code.Token,
			ValidUntil: code.ValidUntil,
			ItemA:      itemA,
			ItemB:      itemB,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}
