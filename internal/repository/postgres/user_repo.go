// internal/repository/postgres/user_repo.go
package postgres

import (
	"context"
	"fmt"

	"mattepass-service/internal/domain/auth"
	xerrors "mattepass-service/internal/pkg/errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type UserRepository struct {
	db *pgxpool.Pool
}

func NewUserRepository(db *pgxpool.Pool) *UserRepository {
	return &UserRepository{db: db}
}

const userColumns = `id, username, email, password_hash, role, created_at`

func scanUser(row pgx.Row) (*auth.User, error) {
	var u auth.User
	if err := row.Scan(&u.ID, &u.Username, &u.Email, &u.PasswordHash, &u.Role, &u.CreatedAt); err != nil {
		return nil, err
	}
	return &u, nil
}

// Create inserts a user
func (r *UserRepository) Create(ctx context.Context, u *auth.User) error {
	return r.create(ctx, r.db, u)
}

// CreateWithTx inserts a user within a transaction
func (r *UserRepository) CreateWithTx(ctx context.Context, tx pgx.Tx, u *auth.User) error {
	return r.create(ctx, tx, u)
}

type queryRower interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

func (r *UserRepository) create(ctx context.Context, q queryRower, u *auth.User) error {
	query := `
		INSERT INTO users (username, email, password_hash, role)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at
	`

	err := q.QueryRow(ctx, query, u.Username, u.Email, u.PasswordHash, u.Role).Scan(&u.ID, &u.CreatedAt)
	if isUniqueViolation(err) {
		return xerrors.ErrDuplicateEntry
	}
	if err != nil {
		return fmt.Errorf("failed to create user: %w", err)
	}
	return nil
}

// FindByID retrieves a user by ID
func (r *UserRepository) FindByID(ctx context.Context, id int64) (*auth.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`

	u, err := scanUser(r.db.QueryRow(ctx, query, id))
	if err != nil {
		return nil, notFoundOr(err, "failed to find user")
	}
	return u, nil
}

// FindByUsername retrieves a user by username
func (r *UserRepository) FindByUsername(ctx context.Context, username string) (*auth.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE username = $1`

	u, err := scanUser(r.db.QueryRow(ctx, query, username))
	if err != nil {
		return nil, notFoundOr(err, "failed to find user")
	}
	return u, nil
}

// ListByRole lists users holding a role, oldest first
func (r *UserRepository) ListByRole(ctx context.Context, role auth.Role) ([]auth.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE role = $1 ORDER BY id`

	rows, err := r.db.Query(ctx, query, role)
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	defer rows.Close()

	users := []auth.User{}
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan user: %w", err)
		}
		users = append(users, *u)
	}
	return users, rows.Err()
}

// CountByRoleWithTx counts users holding a role
func (r *UserRepository) CountByRoleWithTx(ctx context.Context, tx pgx.Tx, role auth.Role) (int64, error) {
	var count int64
	if err := tx.QueryRow(ctx, `SELECT COUNT(*) FROM users WHERE role = $1`, role).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count users: %w", err)
	}
	return count, nil
}

// UpdateRole changes a user's role
func (r *UserRepository) UpdateRole(ctx context.Context, id int64, role auth.Role) error {
	result, err := r.db.Exec(ctx, `UPDATE users SET role = $1 WHERE id = $2`, role, id)
	if err != nil {
		return fmt.Errorf("failed to update role: %w", err)
	}
	if result.RowsAffected() == 0 {
		return xerrors.ErrNotFound
	}
	return nil
}
