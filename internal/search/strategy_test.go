package search

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vdavid/vcode/internal/imap"
	"github.com/vdavid/vcode/internal/models"
)

func header(uid uint32, subject string, at time.Time) imap.Header {
	return imap.Header{UID: uid, Subject: subject, Date: at.Format(time.RFC1123Z)}
}

func settingsWith(earlyStop bool) models.Settings {
	s := models.DefaultSettings()
	s.EarlyStop = earlyStop
	return s
}

var subjects = []string{"sign-in code"}

func TestStrategy_ReceivedWindow(t *testing.T) {
	cutoff := fixedNow.Add(-15 * time.Minute)
	session := &fakeSession{
		dated: []uint32{1, 2, 3},
		headers: map[uint32]imap.Header{
			1: header(1, "Your sign-in code", cutoff),
			2: header(2, "Your sign-in code", cutoff.Add(-time.Second)),
			3: header(3, "Weekly digest", fixedNow.Add(-time.Minute)),
		},
	}

	s := NewStrategy(settingsWith(false), clock, nil)
	got, err := s.FindMatchingMessages(context.Background(), session, "shared@example.com", subjects, false)
	require.NoError(t, err)

	require.Len(t, got, 1)
	assert.Equal(t, uint32(1), got[0].UID)
	assert.Equal(t, "Your sign-in code", got[0].Subject)
	assert.True(t, cutoff.Equal(got[0].ReceivedAt))
}

func TestStrategy_DatedSearchUsesLookback(t *testing.T) {
	session := &fakeSession{dated: []uint32{}, undated: []uint32{}}
	s := NewStrategy(settingsWith(true), clock, nil)

	_, err := s.FindMatchingMessages(context.Background(), session, "shared@example.com", subjects, false)
	require.NoError(t, err)

	require.Len(t, session.sinceCalls, 2)
	require.NotNil(t, session.sinceCalls[0])
	assert.Equal(t, fixedNow.Add(-24*time.Hour), *session.sinceCalls[0])
	assert.Nil(t, session.sinceCalls[1])
	assert.Empty(t, session.fetchedUIDs)
}

func TestStrategy_UndatedFallbackKeepsNewestThirty(t *testing.T) {
	session := &fakeSession{headers: map[uint32]imap.Header{}}
	for uid := uint32(1); uid <= 45; uid++ {
		session.undated = append(session.undated, uid)
	}
	session.headers[45] = header(45, "Your sign-in code", fixedNow.Add(-2*time.Minute))

	s := NewStrategy(settingsWith(true), clock, nil)
	got, err := s.FindMatchingMessages(context.Background(), session, "shared@example.com", subjects, false)
	require.NoError(t, err)

	require.Len(t, session.fetchedUIDs, 1)
	fetched := session.fetchedUIDs[0]
	assert.Len(t, fetched, UnboundedFallbackLimit)
	assert.Equal(t, uint32(45), fetched[0])
	assert.Equal(t, uint32(16), fetched[len(fetched)-1])
	require.Len(t, got, 1)
}

func TestStrategy_CapsHeaderFetches(t *testing.T) {
	session := &fakeSession{headers: map[uint32]imap.Header{}}
	for uid := uint32(1); uid <= 60; uid++ {
		session.dated = append(session.dated, uid)
	}

	settings := settingsWith(true)
	settings.MaxMessagesToCheck = 40
	s := NewStrategy(settings, clock, nil)
	_, err := s.FindMatchingMessages(context.Background(), session, "shared@example.com", subjects, false)
	require.NoError(t, err)

	require.Len(t, session.fetchedUIDs, 1)
	assert.Len(t, session.fetchedUIDs[0], 40)
	assert.Equal(t, uint32(60), session.fetchedUIDs[0][0])
}

func TestStrategy_ReturnPolicy(t *testing.T) {
	// UID order deliberately disagrees with the Date headers.
	newSession := func() *fakeSession {
		return &fakeSession{
			dated: []uint32{10, 11, 12},
			headers: map[uint32]imap.Header{
				10: header(10, "Your sign-in code", fixedNow.Add(-1*time.Minute)),
				11: header(11, "Your sign-in code", fixedNow.Add(-5*time.Minute)),
				12: header(12, "Your sign-in code", fixedNow.Add(-3*time.Minute)),
			},
		}
	}

	t.Run("early stop returns the first match by recency", func(t *testing.T) {
		s := NewStrategy(settingsWith(true), clock, nil)
		got, err := s.FindMatchingMessages(context.Background(), newSession(), "a@example.com", subjects, false)
		require.NoError(t, err)
		require.Len(t, got, 1)
		assert.Equal(t, uint32(10), got[0].UID)
	})

	t.Run("without early stop all matches newest first", func(t *testing.T) {
		s := NewStrategy(settingsWith(false), clock, nil)
		got, err := s.FindMatchingMessages(context.Background(), newSession(), "a@example.com", subjects, false)
		require.NoError(t, err)
		require.Len(t, got, 3)
		assert.Equal(t, []uint32{10, 12, 11}, []uint32{got[0].UID, got[1].UID, got[2].UID})
	})

	t.Run("telegram mode returns only the most recent", func(t *testing.T) {
		s := NewStrategy(settingsWith(false), clock, nil)
		got, err := s.FindMatchingMessages(context.Background(), newSession(), "a@example.com", subjects, true)
		require.NoError(t, err)
		require.Len(t, got, 1)
		assert.Equal(t, uint32(10), got[0].UID)
	})
}

func TestStrategy_Timestamps(t *testing.T) {
	session := &fakeSession{
		dated: []uint32{1, 2},
		headers: map[uint32]imap.Header{
			1: {UID: 1, Subject: "Your sign-in code", Date: "not a date"},
			2: {UID: 2, Subject: "Your sign-in code", InternalDate: fixedNow.Add(-time.Minute)},
		},
	}
	s := NewStrategy(settingsWith(false), clock, nil)
	got, err := s.FindMatchingMessages(context.Background(), session, "a@example.com", subjects, false)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, uint32(2), got[0].UID)
}

func TestStrategy_SearchError(t *testing.T) {
	session := &fakeSession{searchErr: errors.New("BAD command")}
	s := NewStrategy(settingsWith(true), clock, nil)
	_, err := s.FindMatchingMessages(context.Background(), session, "a@example.com", subjects, false)
	assert.ErrorContains(t, err, "BAD command")
}
