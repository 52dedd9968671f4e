package search

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/vdavid/vcode/internal/imap"
	"github.com/vdavid/vcode/internal/logger"
	"github.com/vdavid/vcode/internal/models"
	"go.uber.org/zap"
)

// UnboundedFallbackLimit caps the UIDs considered by the undated recipient search.
const UnboundedFallbackLimit = 30

// CandidateFinder locates candidate messages inside one open session.
type CandidateFinder interface {
	FindMatchingMessages(ctx context.Context, session imap.Session, email string, subjects []string, telegramMode bool) ([]models.MessageCandidate, error)
}

// Strategy runs the two-tier discovery: a dated recipient search first and an
// undated one when the first finds nothing, both funnelled through the same
// time and subject filter.
type Strategy struct {
	settings models.Settings
	now      func() time.Time
	log      *zap.Logger
}

// NewStrategy creates a Strategy bound to a settings snapshot.
func NewStrategy(settings models.Settings, now func() time.Time, log *zap.Logger) *Strategy {
	if now == nil {
		now = time.Now
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Strategy{settings: settings, now: now, log: log.Named("strategy")}
}

// FindMatchingMessages returns matching candidates, newest first.
// With early stop on, or in telegram mode, at most one candidate is returned.
func (s *Strategy) FindMatchingMessages(ctx context.Context, session imap.Session, email string, subjects []string, telegramMode bool) ([]models.MessageCandidate, error) {
	log := s.log.With(zap.String("email", logger.MaskEmail(email)))

	since := s.now().Add(-s.settings.Lookback())
	uids, err := session.SearchByRecipient(ctx, email, &since)
	if err != nil {
		return nil, fmt.Errorf("dated recipient search failed: %w", err)
	}

	if len(uids) == 0 {
		log.Debug("dated search empty, falling back to undated search")
		uids, err = session.SearchByRecipient(ctx, email, nil)
		if err != nil {
			return nil, fmt.Errorf("undated recipient search failed: %w", err)
		}
		uids = newestUIDs(uids, UnboundedFallbackLimit)
	}

	if len(uids) == 0 {
		return nil, nil
	}
	return s.filter(ctx, session, uids, subjects, telegramMode)
}

type datedHeader struct {
	header imap.Header
	at     time.Time
}

// filter applies the received window and subject match to the given UIDs.
func (s *Strategy) filter(ctx context.Context, session imap.Session, uids []uint32, subjects []string, telegramMode bool) ([]models.MessageCandidate, error) {
	uids = newestUIDs(uids, s.settings.MaxMessagesToCheck)

	headers, err := session.FetchHeaders(ctx, uids)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch headers: %w", err)
	}

	cutoff := s.now().Add(-s.settings.ReceivedWindow())

	dated := make([]datedHeader, 0, len(headers))
	for _, h := range headers {
		at, ok := s.timestamp(h)
		if !ok {
			continue
		}
		// The cutoff itself is still inside the window.
		if at.Before(cutoff) {
			continue
		}
		dated = append(dated, datedHeader{header: h, at: at})
	}

	sort.SliceStable(dated, func(i, j int) bool {
		if dated[i].at.Equal(dated[j].at) {
			return dated[i].header.UID > dated[j].header.UID
		}
		return dated[i].at.After(dated[j].at)
	})

	var candidates []models.MessageCandidate
	for _, d := range dated {
		subject := DecodeSubject(d.header.Subject)
		if !matchesAny(subject, subjects) {
			continue
		}

		c := models.MessageCandidate{
			UID:        d.header.UID,
			ReceivedAt: d.at,
			RawSubject: d.header.Subject,
			Subject:    subject,
		}
		if !telegramMode && s.settings.EarlyStop {
			return []models.MessageCandidate{c}, nil
		}
		candidates = append(candidates, c)
	}

	if telegramMode && len(candidates) > 0 {
		return []models.MessageCandidate{mostRecent(candidates)}, nil
	}
	return candidates, nil
}

// timestamp prefers the Date header and uses INTERNALDATE only when the header is absent.
func (s *Strategy) timestamp(h imap.Header) (time.Time, bool) {
	if h.Date == "" {
		if h.InternalDate.IsZero() {
			return time.Time{}, false
		}
		return h.InternalDate, true
	}

	at, err := ParseTimestamp(h.Date)
	if err != nil {
		s.log.Debug("discarding message with unparseable date", zap.Uint32("uid", h.UID), zap.Error(err))
		return time.Time{}, false
	}
	return at, true
}

func mostRecent(candidates []models.MessageCandidate) models.MessageCandidate {
	best := candidates[0]
	for _, c := range candidates[1:] {
		if c.ReceivedAt.After(best.ReceivedAt) {
			best = c
		}
	}
	return best
}

// newestUIDs sorts descending and keeps at most limit entries. A limit of zero keeps all.
func newestUIDs(uids []uint32, limit int) []uint32 {
	sorted := append([]uint32(nil), uids...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] > sorted[j] })
	if limit > 0 && len(sorted) > limit {
		sorted = sorted[:limit]
	}
	return sorted
}
