// Package permission decides which mailboxes and subject keywords a user may search.
// Every storage failure on the search path denies access.
package permission

import (
	"context"
	"strings"

	"github.com/vdavid/vcode/internal/logger"
	"github.com/vdavid/vcode/internal/models"
	"go.uber.org/zap"
)

// Store is the read side of the authorization tables.
type Store interface {
	UserRole(ctx context.Context, userID int64) (models.Role, error)
	IsEmailAuthorized(ctx context.Context, email string) (bool, error)
	HasEmailGrant(ctx context.Context, userID int64, email string) (bool, error)
	GrantedEmails(ctx context.Context, userID int64) ([]string, error)
	GrantedSubjects(ctx context.Context, userID int64, platform string) ([]string, error)
}

// Decision is the outcome of an authorization check.
type Decision struct {
	Allowed bool
	Reason  string
}

func allow() Decision { return Decision{Allowed: true} }

func deny(reason string) Decision { return Decision{Reason: reason} }

// Filter applies the email and subject restrictions of a settings snapshot.
type Filter struct {
	settings models.Settings
	store    Store
	log      *zap.Logger
}

// NewFilter creates a Filter.
func NewFilter(settings models.Settings, store Store, log *zap.Logger) *Filter {
	if log == nil {
		log = zap.NewNop()
	}
	return &Filter{settings: settings, store: store, log: log.Named("permission")}
}

// CheckEmailAccess decides whether userID may search the given mailbox.
func (f *Filter) CheckEmailAccess(ctx context.Context, userID int64, email string) Decision {
	if !f.settings.EmailAuthEnabled {
		return allow()
	}

	log := f.log.With(zap.Int64("user_id", userID), zap.String("email", logger.MaskEmail(email)))

	role, err := f.store.UserRole(ctx, userID)
	if err != nil {
		log.Warn("role lookup failed, denying", zap.Error(err))
		return deny("could not verify permissions")
	}
	if role.IsAdminTier() {
		return allow()
	}

	authorized, err := f.store.IsEmailAuthorized(ctx, email)
	if err != nil {
		log.Warn("authorized email lookup failed, denying", zap.Error(err))
		return deny("could not verify permissions")
	}
	if !authorized {
		return deny("this email address is not authorized")
	}

	if !f.settings.PerUserEmailRestriction {
		return allow()
	}

	granted, err := f.store.HasEmailGrant(ctx, userID, email)
	if err != nil {
		log.Warn("email grant lookup failed, denying", zap.Error(err))
		return deny("could not verify permissions")
	}
	if !granted {
		return deny("you do not have access to this email address")
	}
	return allow()
}

// ResolveAuthorizedSubjects narrows the platform subjects to what userID may search.
// An empty grant set is a denial with zero subjects.
func (f *Filter) ResolveAuthorizedSubjects(ctx context.Context, userID int64, platform string, all []string) ([]string, Decision) {
	if len(all) == 0 {
		return nil, deny("platform has no subjects configured")
	}
	if !f.settings.EmailAuthEnabled || !f.settings.SubjectRestriction {
		return all, allow()
	}

	log := f.log.With(zap.Int64("user_id", userID), zap.String("platform", platform))

	role, err := f.store.UserRole(ctx, userID)
	if err != nil {
		log.Warn("role lookup failed, denying", zap.Error(err))
		return nil, deny("could not verify permissions")
	}
	if role.IsAdminTier() {
		return all, allow()
	}

	granted, err := f.store.GrantedSubjects(ctx, userID, platform)
	if err != nil {
		log.Warn("subject grant lookup failed, denying", zap.Error(err))
		return nil, deny("could not verify permissions")
	}

	subjects := intersect(all, granted)
	if len(subjects) == 0 {
		return nil, deny("you have no authorized subjects for this platform")
	}
	return subjects, allow()
}

// SubjectsForDisplay is the listing variant used by the platforms endpoint.
// Unlike ResolveAuthorizedSubjects it falls back to the full list both when the
// user holds no grants and when the lookup fails.
func (f *Filter) SubjectsForDisplay(ctx context.Context, userID int64, platform string, all []string) []string {
	if !f.settings.EmailAuthEnabled || !f.settings.SubjectRestriction {
		return all
	}

	role, err := f.store.UserRole(ctx, userID)
	if err != nil {
		f.log.Debug("role lookup failed, showing all subjects", zap.Int64("user_id", userID), zap.Error(err))
		return all
	}
	if role.IsAdminTier() {
		return all
	}

	granted, err := f.store.GrantedSubjects(ctx, userID, platform)
	if err != nil {
		f.log.Debug("subject grant lookup failed, showing all subjects", zap.Int64("user_id", userID), zap.Error(err))
		return all
	}
	if subjects := intersect(all, granted); len(subjects) > 0 {
		return subjects
	}
	return all
}

// Grant summarises what userID may search across the given platforms.
func (f *Filter) Grant(ctx context.Context, userID int64, platforms []models.Platform) (models.PermissionGrant, error) {
	grant := models.PermissionGrant{
		UserID:             userID,
		SubjectsByPlatform: make(map[string][]string, len(platforms)),
	}
	for _, p := range platforms {
		grant.SubjectsByPlatform[p.Key] = f.SubjectsForDisplay(ctx, userID, p.Key, p.Subjects)
	}

	if !f.settings.EmailAuthEnabled {
		grant.AllEmails = true
		return grant, nil
	}

	role, err := f.store.UserRole(ctx, userID)
	if err != nil {
		return grant, err
	}
	if role.IsAdminTier() || !f.settings.PerUserEmailRestriction {
		grant.AllEmails = true
		return grant, nil
	}

	emails, err := f.store.GrantedEmails(ctx, userID)
	if err != nil {
		return grant, err
	}
	grant.Emails = emails
	return grant, nil
}

// intersect keeps the entries of all that appear in granted, compared case-insensitively.
func intersect(all, granted []string) []string {
	if len(granted) == 0 {
		return nil
	}
	set := make(map[string]struct{}, len(granted))
	for _, g := range granted {
		set[strings.ToLower(strings.TrimSpace(g))] = struct{}{}
	}

	var out []string
	for _, s := range all {
		if _, ok := set[strings.ToLower(strings.TrimSpace(s))]; ok {
			out = append(out, s)
		}
	}
	return out
}
