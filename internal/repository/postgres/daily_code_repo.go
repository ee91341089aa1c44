// internal/repository/postgres/daily_code_repo.go
package postgres

import (
	"context"
	"fmt"
	"time"

	"mattepass-service/internal/domain/dailycode"
	xerrors "mattepass-service/internal/pkg/errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type DailyCodeRepository struct {
	db *pgxpool.Pool
}

func NewDailyCodeRepository(db *pgxpool.Pool) *DailyCodeRepository {
	return &DailyCodeRepository{db: db}
}

const dailyCodeColumns = `id, user_id, token, valid_day, created_at, valid_until`

func scanDailyCode(row pgx.Row) (*dailycode.DailyCode, error) {
	var c dailycode.DailyCode
	if err := row.Scan(&c.ID, &c.UserID, &c.Token, &c.ValidDay, &c.CreatedAt, &c.ValidUntil); err != nil {
		return nil, err
	}
	return &c, nil
}

// FindByUserAndDayWithTx looks up the code a user holds for a UTC day
func (r *DailyCodeRepository) FindByUserAndDayWithTx(ctx context.Context, tx pgx.Tx, userID int64, day time.Time) (*dailycode.DailyCode, error) {
	query := `SELECT ` + dailyCodeColumns + ` FROM daily_codes WHERE user_id = $1 AND valid_day = $2`

	code, err := scanDailyCode(tx.QueryRow(ctx, query, userID, day))
	if err != nil {
		return nil, notFoundOr(err, "failed to find daily code")
	}
	return code, nil
}

// CreateWithTx inserts a new daily code. A second code for the same user-day is reported as ErrDuplicateCodeRace.
func (r *DailyCodeRepository) CreateWithTx(ctx context.Context, tx pgx.Tx, code *dailycode.DailyCode) error {
	query := `
		INSERT INTO daily_codes (user_id, token, valid_day, created_at, valid_until)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id
	`

	err := tx.QueryRow(ctx, query, code.UserID, code.Token, code.ValidDay, code.CreatedAt, code.ValidUntil).Scan(&code.ID)
	if isUniqueViolation(err) {
		return xerrors.ErrDuplicateCodeRace
	}
	if err != nil {
		return fmt.Errorf("failed to create daily code: %w", err)
	}
	return nil
}

// FindByTokenForUpdate loads a code by token and holds its row lock until the transaction ends
func (r *DailyCodeRepository) FindByTokenForUpdate(ctx context.Context, tx pgx.Tx, token string) (*dailycode.DailyCode, error) {
	query := `SELECT ` + dailyCodeColumns + ` FROM daily_codes WHERE token = $1 FOR UPDATE`

	code, err := scanDailyCode(tx.QueryRow(ctx, query, token))
	if err != nil {
		return nil, notFoundOr(err, "failed to find daily code")
	}
	return code, nil
}
