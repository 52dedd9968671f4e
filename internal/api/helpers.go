package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"

	"github.com/vdavid/vcode/internal/auth"
	"github.com/vdavid/vcode/internal/models"
	"go.uber.org/zap"
)

// Recorder receives API-level metrics.
type Recorder interface {
	CacheLookup(hit bool)
	RateLimited()
}

type nopRecorder struct{}

func (nopRecorder) CacheLookup(bool) {}
func (nopRecorder) RateLimited()     {}

func recorderOrNop(r Recorder) Recorder {
	if r == nil {
		return nopRecorder{}
	}
	return r
}

func loggerOrNop(log *zap.Logger) *zap.Logger {
	if log == nil {
		return zap.NewNop()
	}
	return log
}

// requireUserID returns the authenticated user ID or writes 401.
func requireUserID(ctx context.Context, w http.ResponseWriter) (int64, bool) {
	userID, ok := auth.GetUserIDFromContext(ctx)
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return 0, false
	}
	return userID, true
}

// WriteJSONResponse encodes v into a buffer first so an encoding failure never
// leaves a half-written body. Returns false if nothing usable was sent.
func WriteJSONResponse(w http.ResponseWriter, status int, v any) bool {
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(v); err != nil {
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return false
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if _, err := w.Write(buf.Bytes()); err != nil {
		return false
	}
	return true
}

// StatusForResult maps a result type to the HTTP status of the search endpoint.
// Outcomes of a well-formed search that simply found nothing are still 200.
func StatusForResult(t models.ResultType) int {
	switch t {
	case models.ResultSuccess, models.ResultNotFound, models.ResultFoundButUnprocessable:
		return http.StatusOK
	case models.ResultInvalidRequest:
		return http.StatusBadRequest
	case models.ResultAccessDenied:
		return http.StatusForbidden
	case models.ResultConnectionError:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
