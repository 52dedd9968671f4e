package api

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/vdavid/vcode/internal/auth"
	"github.com/vdavid/vcode/internal/cache"
	"github.com/vdavid/vcode/internal/models"
)

// createRequestWithUser creates an HTTP request with the user ID in context.
func createRequestWithUser(method, url string, userID int64, body string) *http.Request {
	req := httptest.NewRequest(method, url, bytes.NewBufferString(body))
	return req.WithContext(auth.WithUserID(req.Context(), userID))
}

// VerifyAuthCheck verifies that the handler returns 401 Unauthorized when no user is in context.
func VerifyAuthCheck(t *testing.T, handlerFunc http.HandlerFunc, method, url string) {
	t.Helper()
	req := httptest.NewRequest(method, url, nil)
	rr := httptest.NewRecorder()
	handlerFunc(rr, req)
	assert.Equal(t, http.StatusUnauthorized, rr.Code, "Expected status 401 when no user in context")
}

type fakeSearcher struct {
	mu       sync.Mutex
	requests []models.SearchRequest
	result   *models.SearchResult
}

func (f *fakeSearcher) Search(_ context.Context, req models.SearchRequest) *models.SearchResult {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requests = append(f.requests, req)
	return f.result
}

type fakeRecorder struct {
	hits, misses, limited int
}

func (f *fakeRecorder) CacheLookup(hit bool) {
	if hit {
		f.hits++
	} else {
		f.misses++
	}
}

func (f *fakeRecorder) RateLimited() { f.limited++ }

type fakeResultReader struct {
	entries map[int64]models.CacheEntry
	err     error
}

func (f *fakeResultReader) Get(_ context.Context, userID int64) (models.CacheEntry, error) {
	if f.err != nil {
		return models.CacheEntry{}, f.err
	}
	entry, ok := f.entries[userID]
	if !ok {
		return models.CacheEntry{}, cache.ErrNotFound
	}
	return entry, nil
}

type fakeCatalog struct {
	platforms []models.Platform
	err       error
}

func (f *fakeCatalog) Platforms(context.Context) ([]models.Platform, error) {
	return f.platforms, f.err
}

type fakeGranter struct {
	grant models.PermissionGrant
	err   error
}

func (f *fakeGranter) Grant(_ context.Context, userID int64, _ []models.Platform) (models.PermissionGrant, error) {
	g := f.grant
	g.UserID = userID
	return g, f.err
}
