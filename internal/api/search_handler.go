package api

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/vdavid/vcode/internal/logger"
	"github.com/vdavid/vcode/internal/models"
	"go.uber.org/zap"
)

const maxSearchBodyBytes = 4 << 10

// Searcher runs one code search.
type Searcher interface {
	Search(ctx context.Context, req models.SearchRequest) *models.SearchResult
}

// SearchHandler handles code search requests.
type SearchHandler struct {
	searcher Searcher
	limiter  *UserLimiter
	metrics  Recorder
	log      *zap.Logger
}

// NewSearchHandler creates a new SearchHandler. A nil limiter disables rate limiting.
func NewSearchHandler(searcher Searcher, limiter *UserLimiter, metrics Recorder, log *zap.Logger) *SearchHandler {
	return &SearchHandler{
		searcher: searcher,
		limiter:  limiter,
		metrics:  recorderOrNop(metrics),
		log:      loggerOrNop(log).Named("api.search"),
	}
}

type searchRequestBody struct {
	Email        string `json:"email"`
	Platform     string `json:"platform"`
	TelegramMode bool   `json:"telegram_mode"`
}

// Search handles POST /api/v1/codes/search.
func (h *SearchHandler) Search(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	userID, ok := requireUserID(ctx, w)
	if !ok {
		return
	}

	if h.limiter != nil && !h.limiter.Allow(userID) {
		h.metrics.RateLimited()
		h.log.Info("search rate limited", zap.Int64("user_id", userID))
		w.Header().Set("Retry-After", "10")
		http.Error(w, "Too many searches, try again shortly", http.StatusTooManyRequests)
		return
	}

	var body searchRequestBody
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxSearchBodyBytes)).Decode(&body); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	result := h.searcher.Search(ctx, models.SearchRequest{
		Email:        body.Email,
		Platform:     body.Platform,
		UserID:       userID,
		TelegramMode: body.TelegramMode,
	})

	h.log.Debug("search answered",
		zap.Int64("user_id", userID),
		zap.String("email", logger.MaskEmail(body.Email)),
		zap.String("result", string(result.Type)))

	WriteJSONResponse(w, StatusForResult(result.Type), result)
}
