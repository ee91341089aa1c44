// internal/service/quota/quota.go
package quota

import (
	"context"
	"time"

	"mattepass-service/internal/domain/auth"
	"mattepass-service/internal/domain/dailycode"
	"mattepass-service/internal/domain/plan"
	"mattepass-service/internal/domain/redemption"
	"mattepass-service/internal/domain/subscription"

	"github.com/jackc/pgx/v5"
)

// Transactor runs work inside a database transaction.
type Transactor interface {
	WithTx(ctx context.Context, fn func(tx pgx.Tx) error) error
	LockKeyWithTx(ctx context.Context, tx pgx.Tx, key int64) error
}

type SubscriptionFinder interface {
	FindActiveByUserWithTx(ctx context.Context, tx pgx.Tx, userID int64) (*subscription.Subscription, error)
}

type UserFinder interface {
	FindByID(ctx context.Context, id int64) (*auth.User, error)
}

type PlanFinder interface {
	FindByIDWithTx(ctx context.Context, tx pgx.Tx, id int64) (*plan.Plan, error)
}

type DailyCodeStore interface {
	FindByUserAndDayWithTx(ctx context.Context, tx pgx.Tx, userID int64, day time.Time) (*dailycode.DailyCode, error)
	CreateWithTx(ctx context.Context, tx pgx.Tx, code *dailycode.DailyCode) error
	FindByTokenForUpdate(ctx context.Context, tx pgx.Tx, token string) (*dailycode.DailyCode, error)
}

// RedemptionLedger is append only.
type RedemptionLedger interface {
	CreateWithTx(ctx context.Context, tx pgx.Tx, r *redemption.Redemption) error
	SumByCodeWithTx(ctx context.Context, tx pgx.Tx, codeID int64) (redemption.Tally, error)
	SumByCode(ctx context.Context, codeID int64) (redemption.Tally, error)
}
