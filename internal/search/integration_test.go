package search

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vdavid/vcode/internal/extract"
	"github.com/vdavid/vcode/internal/imap"
	"github.com/vdavid/vcode/internal/models"
	"github.com/vdavid/vcode/internal/testutil"
)

// TestSearch_EndToEnd runs the real dialer, strategy and extractor against the
// in-memory IMAP server:
// 1. The first server in priority order is unreachable
// 2. The second holds an old and a fresh sign-in mail for the mailbox
// 3. The fresh code is returned and the message stays unread
func TestSearch_EndToEnd(t *testing.T) {
	server := testutil.NewTestIMAPServer(t)
	defer server.Close()
	server.EnsureINBOX(t)

	now := time.Now()
	server.AddMessage(t, "shared@example.com", "Netflix: Your sign-in code",
		"Your Netflix sign-in code is 111111.", now.Add(-3*time.Hour))
	fresh := server.AddMessage(t, "shared@example.com", "Netflix: Your sign-in code",
		"Your Netflix sign-in code is 482913. It expires in 15 minutes.", now.Add(-2*time.Minute))
	server.AddMessage(t, "shared@example.com", "Weekly newsletter",
		"Nothing to see here 777777.", now.Add(-time.Minute))

	down := server.MailServer(t, "down", 1)
	down.Port = 1
	up := server.MailServer(t, "up", 2)

	recorder := &fakeRecorder{}
	cache := &fakeCache{}
	orchestrator := NewOrchestrator(models.DefaultSettings(), Deps{
		Servers:   fakeServers{servers: []models.MailServer{down, up}},
		Catalog:   fakeCatalog{"netflix": {"sign-in code"}},
		Access:    allowAll(),
		Opener:    imap.NewDialer(testutil.GetTestEncryptor(t), 2*time.Second, true, nil),
		Extractor: extract.New(nil),
		Cache:     cache,
		Metrics:   recorder,
	})

	result := orchestrator.Search(context.Background(), models.SearchRequest{
		Email:    "shared@example.com",
		Platform: "netflix",
		UserID:   7,
	})

	require.Equal(t, models.ResultSuccess, result.Type, result.Message)
	assert.True(t, result.Found)
	assert.Equal(t, "up", result.Server)

	best, ok := result.Best()
	require.True(t, ok)
	assert.Equal(t, models.ArtifactCode, best.Artifact.Kind)
	assert.Equal(t, "482913", best.Artifact.Value)
	assert.Equal(t, fresh, best.Candidate.UID)

	assert.Equal(t, OutcomeConnectionError, recorder.attempts["down"])
	assert.Equal(t, OutcomeSuccess, recorder.attempts["up"])
	assert.Contains(t, cache.puts, int64(7))

	assert.False(t, server.IsSeen(t, fresh), "search must not mark mail as read")
}

func TestSearch_EndToEndNotFound(t *testing.T) {
	server := testutil.NewTestIMAPServer(t)
	defer server.Close()
	server.EnsureINBOX(t)

	server.AddMessage(t, "shared@example.com", "Netflix: Your sign-in code",
		"Your Netflix sign-in code is 111111.", time.Now().Add(-3*time.Hour))

	orchestrator := NewOrchestrator(models.DefaultSettings(), Deps{
		Servers:   fakeServers{servers: []models.MailServer{server.MailServer(t, "only", 1)}},
		Catalog:   fakeCatalog{"netflix": {"sign-in code"}},
		Access:    allowAll(),
		Opener:    imap.NewDialer(testutil.GetTestEncryptor(t), 2*time.Second, true, nil),
		Extractor: extract.New(nil),
	})

	result := orchestrator.Search(context.Background(), models.SearchRequest{
		Email:    "shared@example.com",
		Platform: "netflix",
		UserID:   7,
	})

	assert.Equal(t, models.ResultNotFound, result.Type)
	assert.False(t, result.Found)
}
