package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"
	"github.com/safar/storefront-api/internal/apperr"
	"github.com/safar/storefront-api/internal/models"
)

const userColumns = `id, name, email, role, is_active, created_at, updated_at`

func scanUser(row interface{ Scan(...any) error }) (*models.User, error) {
	user := &models.User{}
	err := row.Scan(
		&user.ID,
		&user.Name,
		&user.Email,
		&user.Role,
		&user.IsActive,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return user, nil
}

func CreateUser(ctx context.Context, db *sql.DB, name, email string, role models.UserRole) (*models.User, error) {
	if name == "" || email == "" {
		return nil, apperr.Validationf("user name and email are required")
	}

	query := `
		INSERT INTO users (id, name, email, role, is_active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, true, NOW(), NOW())
		RETURNING ` + userColumns

	user, err := scanUser(db.QueryRowContext(ctx, query, newID(), name, email, role))
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" {
			return nil, apperr.Conflictf("email %s is already in use", email)
		}
		return nil, fmt.Errorf("create user: %w", err)
	}

	return user, nil
}

func GetUser(ctx context.Context, db *sql.DB, id string) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`

	user, err := scanUser(db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperr.NotFoundf("user not found")
		}
		return nil, fmt.Errorf("get user: %w", err)
	}

	return user, nil
}

func GetUserByEmail(ctx context.Context, db *sql.DB, email string) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE email = $1`

	user, err := scanUser(db.QueryRowContext(ctx, query, email))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperr.NotFoundf("user not found")
		}
		return nil, fmt.Errorf("get user by email: %w", err)
	}

	return user, nil
}

func ListUsers(ctx context.Context, db *sql.DB, page, limit int) (*OffsetPage, error) {
	var total int64
	if err := db.QueryRowContext(ctx, `SELECT COUNT(*) FROM users`).Scan(&total); err != nil {
		return nil, fmt.Errorf("count users: %w", err)
	}

	query := `
		SELECT ` + userColumns + `
		FROM users
		ORDER BY created_at DESC
		LIMIT $1 OFFSET $2`

	rows, err := db.QueryContext(ctx, query, limit, (page-1)*limit)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	defer rows.Close()

	var users []models.User
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("scan user: %w", err)
		}
		users = append(users, *user)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return newOffsetPage(users, total, page, limit), nil
}

type UpdateUserParams struct {
	Name     *string
	Email    *string
	Role     *models.UserRole
	IsActive *bool
}

func UpdateUser(ctx context.Context, db *sql.DB, id string, params UpdateUserParams) (*models.User, error) {
	user, err := GetUser(ctx, db, id)
	if err != nil {
		return nil, err
	}

	if params.Name != nil {
		user.Name = *params.Name
	}
	if params.Email != nil {
		user.Email = *params.Email
	}
	if params.Role != nil {
		user.Role = *params.Role
	}
	if params.IsActive != nil {
		user.IsActive = *params.IsActive
	}

	query := `
		UPDATE users
		SET name = $1, email = $2, role = $3, is_active = $4, updated_at = NOW()
		WHERE id = $5
		RETURNING ` + userColumns

	updated, err := scanUser(db.QueryRowContext(ctx, query,
		user.Name, user.Email, user.Role, user.IsActive, id))
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" {
			return nil, apperr.Conflictf("email %s is already in use", user.Email)
		}
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperr.NotFoundf("user not found")
		}
		return nil, fmt.Errorf("update user: %w", err)
	}

	return updated, nil
}

func DeleteUser(ctx context.Context, db *sql.DB, id string) error {
	result, err := db.ExecContext(ctx, `DELETE FROM users WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete user: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return apperr.NotFoundf("user not found")
	}

	return nil
}
