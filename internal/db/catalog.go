package db

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/vdavid/vcode/internal/models"
)

// ErrPlatformNotFound is returned when a platform has no subjects.
var ErrPlatformNotFound = errors.New("platform not found")

// GetPlatformSubjects returns the subject keywords of one platform in catalog order.
func GetPlatformSubjects(ctx context.Context, pool *pgxpool.Pool, platform string) ([]string, error) {
	rows, err := pool.Query(ctx, `
		SELECT subject FROM platform_subjects
		WHERE platform = $1
		ORDER BY position ASC, id ASC
	`, platform)
	if err != nil {
		return nil, fmt.Errorf("failed to query platform subjects: %w", err)
	}
	defer rows.Close()

	var subjects []string
	for rows.Next() {
		var s string
		if err := rows.Scan(&s); err != nil {
			return nil, fmt.Errorf("failed to scan subject: %w", err)
		}
		subjects = append(subjects, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating subjects: %w", err)
	}

	if len(subjects) == 0 {
		return nil, ErrPlatformNotFound
	}
	return subjects, nil
}

// ListPlatforms returns every platform with its subjects.
func ListPlatforms(ctx context.Context, pool *pgxpool.Pool) ([]models.Platform, error) {
	rows, err := pool.Query(ctx, `
		SELECT platform, display_name, subject FROM platform_subjects
		ORDER BY platform ASC, position ASC, id ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query platforms: %w", err)
	}
	defer rows.Close()

	platforms := []models.Platform{}
	for rows.Next() {
		var key, name, subject string
		if err := rows.Scan(&key, &name, &subject); err != nil {
			return nil, fmt.Errorf("failed to scan platform: %w", err)
		}
		if n := len(platforms); n == 0 || platforms[n-1].Key != key {
			platforms = append(platforms, models.Platform{Key: key, Name: name})
		}
		last := &platforms[len(platforms)-1]
		last.Subjects = append(last.Subjects, subject)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating platforms: %w", err)
	}

	return platforms, nil
}

// AddPlatformSubject appends a subject keyword to a platform.
func AddPlatformSubject(ctx context.Context, pool *pgxpool.Pool, platform, displayName, subject string) error {
	_, err := pool.Exec(ctx, `
		INSERT INTO platform_subjects (platform, display_name, subject, position)
		VALUES ($1, $2, $3, COALESCE((SELECT MAX(position) + 1 FROM platform_subjects WHERE platform = $1), 0))
		ON CONFLICT (platform, subject) DO NOTHING
	`, platform, displayName, subject)
	if err != nil {
		return fmt.Errorf("failed to add platform subject: %w", err)
	}
	return nil
}
