// internal/service/quota/accountant.go
package quota

import (
	"context"
	"fmt"
	"time"

	"mattepass-service/internal/domain/redemption"
	"mattepass-service/internal/metrics"
	xerrors "mattepass-service/internal/pkg/errors"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"
)

// RedeemCommand is one vendor hand-out against a daily code.
type RedeemCommand struct {
	Token    string
	ItemA    int
	ItemB    int
	VendorID int64
	Now      time.Time
}

// Accountant records redemptions and derives balances from their history.
type Accountant struct {
	db     Transactor
	subs   SubscriptionFinder
	plans  PlanFinder
	users  UserFinder
	codes  DailyCodeStore
	ledger RedemptionLedger
	logger *zap.Logger
}

func NewAccountant(
	db Transactor,
	subs SubscriptionFinder,
	plans PlanFinder,
	users UserFinder,
	codes DailyCodeStore,
	ledger RedemptionLedger,
	logger *zap.Logger,
) *Accountant {
	return &Accountant{
		db:     db,
		subs:   subs,
		plans:  plans,
		users:  users,
		codes:  codes,
		ledger: ledger,
		logger: logger,
	}
}

// ComputeBalance sums every redemption recorded against a code.
func (s *Accountant) ComputeBalance(ctx context.Context, codeID int64) (redemption.Tally, error) {
	return s.ledger.SumByCode(ctx, codeID)
}

// Redeem validates and records a redemption. The daily code row stays locked until commit,
// so concurrent redeems of the same code see each other's writes.
func (s *Accountant) Redeem(ctx context.Context, cmd RedeemCommand) (*redemption.Result, error) {
	if cmd.ItemA < 0 || cmd.ItemB < 0 {
		return nil, fmt.Errorf("%w: quantities must not be negative", xerrors.ErrInvalidInput)
	}

	var result *redemption.Result
	err := s.db.WithTx(ctx, func(tx pgx.Tx) error {
		code, err := s.codes.FindByTokenForUpdate(ctx, tx, cmd.Token)
		if xerrors.Is(err, xerrors.ErrNotFound) {
			return xerrors.ErrInvalidCode
		}
		if err != nil {
			return fmt.Errorf("failed to load daily code: %w", err)
		}

		if code.ExpiredAt(cmd.Now) {
			return xerrors.ErrCodeExpired
		}

		sub, err := s.subs.FindActiveByUserWithTx(ctx, tx, code.UserID)
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

		tally, err := s.ledger.SumByCodeWithTx(ctx, tx, code.ID)
		if err != nil {
			return err
		}

		availableA, availableB := tally.Remaining(p)
		if cmd.ItemA > availableA {
			return &xerrors.InsufficientBalanceError{Item: redemption.ItemA, Available: max(availableA, 0), Requested: cmd.ItemA}
		}
		if cmd.ItemB > availableB {
			return &xerrors.InsufficientBalanceError{Item: redemption.ItemB, Available: max(availableB, 0), Requested: cmd.ItemB}
		}

		rec := &redemption.Redemption{
			DailyCodeID:   code.ID,
			VendorID:      cmd.VendorID,
			ItemAQuantity: cmd.ItemA,
			ItemBQuantity: cmd.ItemB,
			RedeemedAt:    cmd.Now,
		}
		if err := s.ledger.CreateWithTx(ctx, tx, rec); err != nil {
			return err
		}

		tally.ItemA += cmd.ItemA
		tally.ItemB += cmd.ItemB
		itemA, itemB := tally.Balances(p)
		result = &redemption.Result{
			Redemption: rec,
			UserID:     code.UserID,
			PlanName:   p.Name,
			ItemA:      itemA,
			ItemB:      itemB,
		}
		return nil
	})
	if err != nil {
		metrics.IncRedemption(redeemOutcome(err))
		return nil, err
	}

	if u, err := s.users.FindByID(ctx, result.UserID); err == nil {
		result.Username = u.Username
	} else {
		s.logger.Warn("failed to resolve redeemed user", zap.Int64("user_id", result.UserID), zap.Error(err))
	}

	metrics.IncRedemption("ok")
	metrics.AddRedeemedItems(cmd.ItemA, cmd.ItemB)
	s.logger.Info("redemption recorded",
		zap.Int64("redemption_id", result.Redemption.ID),
		zap.Int64("vendor_id", cmd.VendorID),
		zap.Int64("user_id", result.UserID),
		zap.Int("item_a", cmd.ItemA),
		zap.Int("item_b", cmd.ItemB),
	)
	return result, nil
}

func redeemOutcome(err error) string {
	switch {
	case xerrors.Is(err, xerrors.ErrInvalidCode):
		return "invalid_code"
	case xerrors.Is(err, xerrors.ErrCodeExpired):
		return "expired"
	case xerrors.Is(err, xerrors.ErrInsufficientBalance):
		return "insufficient"
	case xerrors.Is(err, xerrors.ErrNoActiveSubscription):
		return "no_subscription"
	default:
		return "error"
	}
}
