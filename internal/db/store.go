package db

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/vdavid/vcode/internal/models"
	"github.com/vdavid/vcode/internal/permission"
	"github.com/vdavid/vcode/internal/search"
)

// Store binds the package functions to one pool so the search engine and the
// permission filter can depend on interfaces.
type Store struct {
	pool *pgxpool.Pool
}

var (
	_ permission.Store     = (*Store)(nil)
	_ search.ServerSource  = (*Store)(nil)
	_ search.SubjectCatalog = (*Store)(nil)
)

func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

func (s *Store) EnabledServers(ctx context.Context) ([]models.MailServer, error) {
	return ListEnabledServers(ctx, s.pool)
}

// PlatformSubjects maps an unknown platform to search.ErrUnknownPlatform.
func (s *Store) PlatformSubjects(ctx context.Context, platform string) ([]string, error) {
	subjects, err := GetPlatformSubjects(ctx, s.pool, platform)
	if errors.Is(err, ErrPlatformNotFound) {
		return nil, search.ErrUnknownPlatform
	}
	return subjects, err
}

func (s *Store) Platforms(ctx context.Context) ([]models.Platform, error) {
	return ListPlatforms(ctx, s.pool)
}

func (s *Store) UserRole(ctx context.Context, userID int64) (models.Role, error) {
	return GetUserRole(ctx, s.pool, userID)
}

func (s *Store) IsEmailAuthorized(ctx context.Context, email string) (bool, error) {
	return IsEmailAuthorized(ctx, s.pool, email)
}

func (s *Store) HasEmailGrant(ctx context.Context, userID int64, email string) (bool, error) {
	return HasEmailGrant(ctx, s.pool, userID, email)
}

func (s *Store) GrantedEmails(ctx context.Context, userID int64) ([]string, error) {
	return GetGrantedEmails(ctx, s.pool, userID)
}

func (s *Store) GrantedSubjects(ctx context.Context, userID int64, platform string) ([]string, error) {
	return GetGrantedSubjects(ctx, s.pool, userID, platform)
}

// Settings loads the engine settings; see LoadSettings.
func (s *Store) Settings(ctx context.Context) (models.Settings, []string, error) {
	return LoadSettings(ctx, s.pool)
}
