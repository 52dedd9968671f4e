package db

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vdavid/vcode/internal/models"
	"github.com/vdavid/vcode/internal/search"
	"github.com/vdavid/vcode/internal/testutil"
)

func TestMailServers(t *testing.T) {
	pool := testutil.NewTestDB(t)
	defer pool.Close()

	ctx := context.Background()

	save := func(name string, priority int, enabled bool) *models.MailServer {
		s := &models.MailServer{
			Name:              name,
			Host:              "imap." + name + ".test",
			Port:              993,
			Username:          "inbox@" + name + ".test",
			EncryptedPassword: []byte("ciphertext"),
			UseTLS:            true,
			Enabled:           enabled,
			Priority:          priority,
		}
		require.NoError(t, SaveMailServer(ctx, pool, s))
		return s
	}

	second := save("second", 20, true)
	first := save("first", 10, true)
	save("off", 0, false)

	t.Run("lists enabled servers by priority", func(t *testing.T) {
		servers, err := ListEnabledServers(ctx, pool)
		require.NoError(t, err)
		require.Len(t, servers, 2)
		assert.Equal(t, first.ID, servers[0].ID)
		assert.Equal(t, second.ID, servers[1].ID)
		assert.Equal(t, []byte("ciphertext"), servers[0].EncryptedPassword)
	})

	t.Run("saving by name updates in place", func(t *testing.T) {
		updated := save("first", 30, true)
		assert.Equal(t, first.ID, updated.ID)

		servers, err := ListEnabledServers(ctx, pool)
		require.NoError(t, err)
		require.Len(t, servers, 2)
		assert.Equal(t, "second", servers[0].Name)
	})
}

func TestSettings(t *testing.T) {
	pool := testutil.NewTestDB(t)
	defer pool.Close()

	ctx := context.Background()

	t.Run("seeded rows load as defaults", func(t *testing.T) {
		settings, rejected, err := LoadSettings(ctx, pool)
		require.NoError(t, err)
		assert.Empty(t, rejected)
		assert.Equal(t, models.DefaultSettings(), settings)
	})

	t.Run("overrides and rejects", func(t *testing.T) {
		require.NoError(t, SetSetting(ctx, pool, models.SettingEarlyStop, "false"))
		require.NoError(t, SetSetting(ctx, pool, models.SettingLookbackHours, "48"))
		require.NoError(t, SetSetting(ctx, pool, models.SettingMaxMessagesToCheck, "-3"))
		require.NoError(t, SetSetting(ctx, pool, models.SettingConnectionTimeout, "5"))

		settings, rejected, err := LoadSettings(ctx, pool)
		require.NoError(t, err)
		assert.False(t, settings.EarlyStop)
		assert.Equal(t, 48, settings.LookbackHours)
		assert.Equal(t, models.DefaultSettings().MaxMessagesToCheck, settings.MaxMessagesToCheck)
		assert.Equal(t, 5*time.Second, settings.ConnectionTimeout)
		assert.Equal(t, []string{models.SettingMaxMessagesToCheck}, rejected)
	})

	t.Run("get missing key", func(t *testing.T) {
		_, err := GetSetting(ctx, pool, "no_such_key")
		assert.ErrorIs(t, err, ErrSettingNotFound)
	})
}

func TestApplySettings(t *testing.T) {
	base := models.DefaultSettings()

	got, rejected := ApplySettings(base, map[string]string{
		models.SettingEmailAuthEnabled:        "true",
		models.SettingReceivedWindowMinutes:   "abc",
		models.SettingSubjectRestriction:      "maybe",
		models.SettingPerUserEmailRestriction: "1",
	})

	assert.True(t, got.EmailAuthEnabled)
	assert.True(t, got.PerUserEmailRestriction)
	assert.False(t, got.SubjectRestriction)
	assert.Equal(t, base.ReceivedWindowMinutes, got.ReceivedWindowMinutes)
	assert.ElementsMatch(t, []string{models.SettingReceivedWindowMinutes, models.SettingSubjectRestriction}, rejected)
}

func TestCatalog(t *testing.T) {
	pool := testutil.NewTestDB(t)
	defer pool.Close()

	ctx := context.Background()
	store := NewStore(pool)

	t.Run("seeded platform", func(t *testing.T) {
		subjects, err := store.PlatformSubjects(ctx, "netflix")
		require.NoError(t, err)
		assert.NotEmpty(t, subjects)
	})

	t.Run("unknown platform", func(t *testing.T) {
		_, err := store.PlatformSubjects(ctx, "myspace")
		assert.ErrorIs(t, err, search.ErrUnknownPlatform)
	})

	t.Run("added subject is listed last", func(t *testing.T) {
		require.NoError(t, AddPlatformSubject(ctx, pool, "netflix", "Netflix", "Tu código"))

		subjects, err := GetPlatformSubjects(ctx, pool, "netflix")
		require.NoError(t, err)
		assert.Equal(t, "Tu código", subjects[len(subjects)-1])
	})

	t.Run("platforms are grouped", func(t *testing.T) {
		platforms, err := store.Platforms(ctx)
		require.NoError(t, err)

		keys := make([]string, 0, len(platforms))
		for _, p := range platforms {
			keys = append(keys, p.Key)
			assert.NotEmpty(t, p.Subjects, p.Key)
		}
		assert.Equal(t, []string{"disney", "max", "netflix", "prime"}, keys)
	})
}

func TestUsersAndGrants(t *testing.T) {
	pool := testutil.NewTestDB(t)
	defer pool.Close()

	ctx := context.Background()
	store := NewStore(pool)

	userID, err := CreateUser(ctx, pool, "alice", models.RoleUser)
	require.NoError(t, err)

	t.Run("role", func(t *testing.T) {
		role, err := store.UserRole(ctx, userID)
		require.NoError(t, err)
		assert.Equal(t, models.RoleUser, role)

		again, err := CreateUser(ctx, pool, "alice", models.RoleAdmin)
		require.NoError(t, err)
		assert.Equal(t, userID, again)

		role, err = store.UserRole(ctx, userID)
		require.NoError(t, err)
		assert.Equal(t, models.RoleAdmin, role)
	})

	t.Run("missing user", func(t *testing.T) {
		_, err := store.UserRole(ctx, userID+1000)
		assert.ErrorIs(t, err, ErrUserNotFound)
	})

	t.Run("authorized emails ignore case", func(t *testing.T) {
		require.NoError(t, AuthorizeEmail(ctx, pool, "Family@Example.com"))

		ok, err := store.IsEmailAuthorized(ctx, "family@example.COM")
		require.NoError(t, err)
		assert.True(t, ok)

		ok, err = store.IsEmailAuthorized(ctx, "stranger@example.com")
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("email grants", func(t *testing.T) {
		require.NoError(t, GrantEmail(ctx, pool, userID, "b@example.com"))
		require.NoError(t, GrantEmail(ctx, pool, userID, "A@example.com"))
		require.NoError(t, GrantEmail(ctx, pool, userID, "a@example.com"))

		emails, err := store.GrantedEmails(ctx, userID)
		require.NoError(t, err)
		assert.Equal(t, []string{"a@example.com", "b@example.com"}, emails)

		ok, err := store.HasEmailGrant(ctx, userID, "B@EXAMPLE.COM")
		require.NoError(t, err)
		assert.True(t, ok)
	})

	t.Run("subject grants are per platform", func(t *testing.T) {
		require.NoError(t, GrantSubject(ctx, pool, userID, "netflix", "Tu código de acceso temporal"))
		require.NoError(t, GrantSubject(ctx, pool, userID, "disney", "Your one-time passcode"))

		subjects, err := store.GrantedSubjects(ctx, userID, "netflix")
		require.NoError(t, err)
		assert.Equal(t, []string{"Tu código de acceso temporal"}, subjects)

		none, err := store.GrantedSubjects(ctx, userID, "prime")
		require.NoError(t, err)
		assert.Empty(t, none)
	})
}

func TestResultCacheRows(t *testing.T) {
	pool := testutil.NewTestDB(t)
	defer pool.Close()

	ctx := context.Background()
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	t.Run("missing row", func(t *testing.T) {
		_, _, err := GetCachedResult(ctx, pool, 1, "search_result")
		assert.ErrorIs(t, err, ErrCacheEntryNotFound)
	})

	t.Run("put replaces", func(t *testing.T) {
		require.NoError(t, PutCachedResult(ctx, pool, 1, "search_result", []byte(`{"n":1}`), now))
		require.NoError(t, PutCachedResult(ctx, pool, 1, "search_result", []byte(`{"n":2}`), now.Add(time.Second)))

		payload, createdAt, err := GetCachedResult(ctx, pool, 1, "search_result")
		require.NoError(t, err)
		assert.JSONEq(t, `{"n":2}`, string(payload))
		assert.True(t, createdAt.Equal(now.Add(time.Second)))
	})

	t.Run("delete before cutoff", func(t *testing.T) {
		require.NoError(t, PutCachedResult(ctx, pool, 2, "search_result", []byte(`{}`), now.Add(-time.Hour)))

		deleted, err := DeleteCachedResultsBefore(ctx, pool, now)
		require.NoError(t, err)
		assert.Equal(t, int64(1), deleted)

		_, _, err = GetCachedResult(ctx, pool, 1, "search_result")
		assert.NoError(t, err)
		_, _, err = GetCachedResult(ctx, pool, 2, "search_result")
		assert.ErrorIs(t, err, ErrCacheEntryNotFound)
	})
}
