package api

import (
	"context"
	"net/http"

	"github.com/vdavid/vcode/internal/models"
	"go.uber.org/zap"
)

// PlatformLister lists the subject catalog.
type PlatformLister interface {
	Platforms(ctx context.Context) ([]models.Platform, error)
}

// Granter summarises what a user may search.
type Granter interface {
	Grant(ctx context.Context, userID int64, platforms []models.Platform) (models.PermissionGrant, error)
}

// PlatformsHandler lists the platforms and the subjects visible to the caller.
type PlatformsHandler struct {
	catalog PlatformLister
	grants  Granter
	log     *zap.Logger
}

func NewPlatformsHandler(catalog PlatformLister, grants Granter, log *zap.Logger) *PlatformsHandler {
	return &PlatformsHandler{
		catalog: catalog,
		grants:  grants,
		log:     loggerOrNop(log).Named("api.platforms"),
	}
}

// PlatformsResponse is the body of GET /api/v1/platforms.
type PlatformsResponse struct {
	Platforms []models.Platform `json:"platforms"`
	AllEmails bool              `json:"all_emails"`
	Emails    []string          `json:"emails,omitempty"`
}

// GetPlatforms handles GET /api/v1/platforms.
func (h *PlatformsHandler) GetPlatforms(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	userID, ok := requireUserID(ctx, w)
	if !ok {
		return
	}

	platforms, err := h.catalog.Platforms(ctx)
	if err != nil {
		h.log.Error("failed to list platforms", zap.Error(err))
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	grant, err := h.grants.Grant(ctx, userID, platforms)
	if err != nil {
		h.log.Error("failed to resolve grant", zap.Int64("user_id", userID), zap.Error(err))
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	visible := make([]models.Platform, 0, len(platforms))
	for _, p := range platforms {
		visible = append(visible, models.Platform{
			Key:      p.Key,
			Name:     p.Name,
			Subjects: grant.SubjectsByPlatform[p.Key],
		})
	}

	WriteJSONResponse(w, http.StatusOK, PlatformsResponse{
		Platforms: visible,
		AllEmails: grant.AllEmails,
		Emails:    grant.Emails,
	})
}
