package db

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/vdavid/vcode/internal/models"
)

// ErrUserNotFound is returned when no user has the given ID.
var ErrUserNotFound = errors.New("user not found")

// CreateUser inserts a user, or updates the role of an existing one, and returns its ID.
func CreateUser(ctx context.Context, pool *pgxpool.Pool, username string, role models.Role) (int64, error) {
	var userID int64

	err := pool.QueryRow(ctx, `
		INSERT INTO users (username, role)
		VALUES ($1, $2)
		ON CONFLICT (username) DO UPDATE SET role = EXCLUDED.role
		RETURNING id
	`, username, string(role)).Scan(&userID)
	if err != nil {
		return 0, fmt.Errorf("failed to create user: %w", err)
	}

	return userID, nil
}

// GetUserRole returns the role of a user.
func GetUserRole(ctx context.Context, pool *pgxpool.Pool, userID int64) (models.Role, error) {
	var role string
	err := pool.QueryRow(ctx, `SELECT role FROM users WHERE id = $1`, userID).Scan(&role)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", ErrUserNotFound
		}
		return "", fmt.Errorf("failed to get user role: %w", err)
	}
	return models.Role(role), nil
}

// AuthorizeEmail adds an address to the global allowlist.
func AuthorizeEmail(ctx context.Context, pool *pgxpool.Pool, email string) error {
	_, err := pool.Exec(ctx, `
		INSERT INTO authorized_emails (email) VALUES ($1)
		ON CONFLICT (email) DO NOTHING
	`, strings.ToLower(email))
	if err != nil {
		return fmt.Errorf("failed to authorize email: %w", err)
	}
	return nil
}

// IsEmailAuthorized reports whether the address is on the global allowlist.
func IsEmailAuthorized(ctx context.Context, pool *pgxpool.Pool, email string) (bool, error) {
	var exists bool
	err := pool.QueryRow(ctx, `
		SELECT EXISTS (SELECT 1 FROM authorized_emails WHERE email = $1)
	`, strings.ToLower(email)).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check authorized email: %w", err)
	}
	return exists, nil
}

// GrantEmail gives a user access to one address.
func GrantEmail(ctx context.Context, pool *pgxpool.Pool, userID int64, email string) error {
	_, err := pool.Exec(ctx, `
		INSERT INTO user_email_grants (user_id, email) VALUES ($1, $2)
		ON CONFLICT DO NOTHING
	`, userID, strings.ToLower(email))
	if err != nil {
		return fmt.Errorf("failed to grant email: %w", err)
	}
	return nil
}

// HasEmailGrant reports whether the user was granted the address.
func HasEmailGrant(ctx context.Context, pool *pgxpool.Pool, userID int64, email string) (bool, error) {
	var exists bool
	err := pool.QueryRow(ctx, `
		SELECT EXISTS (SELECT 1 FROM user_email_grants WHERE user_id = $1 AND email = $2)
	`, userID, strings.ToLower(email)).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check email grant: %w", err)
	}
	return exists, nil
}

// GetGrantedEmails returns every address granted to the user.
func GetGrantedEmails(ctx context.Context, pool *pgxpool.Pool, userID int64) ([]string, error) {
	return queryStrings(ctx, pool, `
		SELECT email FROM user_email_grants WHERE user_id = $1 ORDER BY email
	`, userID)
}

// GrantSubject gives a user access to one subject keyword of a platform.
func GrantSubject(ctx context.Context, pool *pgxpool.Pool, userID int64, platform, subject string) error {
	_, err := pool.Exec(ctx, `
		INSERT INTO user_subject_grants (user_id, platform, subject) VALUES ($1, $2, $3)
		ON CONFLICT DO NOTHING
	`, userID, platform, subject)
	if err != nil {
		return fmt.Errorf("failed to grant subject: %w", err)
	}
	return nil
}

// GetGrantedSubjects returns the subject keywords granted to the user for a platform.
func GetGrantedSubjects(ctx context.Context, pool *pgxpool.Pool, userID int64, platform string) ([]string, error) {
	return queryStrings(ctx, pool, `
		SELECT subject FROM user_subject_grants
		WHERE user_id = $1 AND platform = $2
		ORDER BY subject
	`, userID, platform)
}

func queryStrings(ctx context.Context, pool *pgxpool.Pool, query string, args ...any) ([]string, error) {
	rows, err := pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query: %w", err)
	}
	defer rows.Close()

	out := []string{}
	for rows.Next() {
		var s string
		if err := rows.Scan(&s); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}
	return out, nil
}
