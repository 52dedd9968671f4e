package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/vdavid/vcode/internal/cache"
	"github.com/vdavid/vcode/internal/models"
	"go.uber.org/zap"
)

// ResultReader reads the last cached result of a user.
type ResultReader interface {
	Get(ctx context.Context, userID int64) (models.CacheEntry, error)
}

// LastResultHandler serves the detail of the last successful search.
type LastResultHandler struct {
	cache   ResultReader
	metrics Recorder
	log     *zap.Logger
}

func NewLastResultHandler(cache ResultReader, metrics Recorder, log *zap.Logger) *LastResultHandler {
	return &LastResultHandler{
		cache:   cache,
		metrics: recorderOrNop(metrics),
		log:     loggerOrNop(log).Named("api.last"),
	}
}

// GetLast handles GET /api/v1/codes/last.
func (h *LastResultHandler) GetLast(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	userID, ok := requireUserID(ctx, w)
	if !ok {
		return
	}

	entry, err := h.cache.Get(ctx, userID)
	if errors.Is(err, cache.ErrNotFound) {
		h.metrics.CacheLookup(false)
		http.Error(w, "No recent result", http.StatusNotFound)
		return
	}
	if err != nil {
		h.log.Error("failed to read cached result", zap.Int64("user_id", userID), zap.Error(err))
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	h.metrics.CacheLookup(true)
	WriteJSONResponse(w, http.StatusOK, entry)
}
