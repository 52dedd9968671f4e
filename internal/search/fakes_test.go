package search

import (
	"context"
	"errors"
	"time"

	"github.com/vdavid/vcode/internal/imap"
	"github.com/vdavid/vcode/internal/models"
	"github.com/vdavid/vcode/internal/permission"
)

var fixedNow = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

func clock() time.Time { return fixedNow }

type fakeSession struct {
	name        string
	dated       []uint32
	undated     []uint32
	headers     map[uint32]imap.Header
	bodies      map[uint32][]byte
	searchErr   error
	sinceCalls  []*time.Time
	fetchedUIDs [][]uint32
	bodyCalls   []uint32
	closed      bool
}

func (s *fakeSession) SearchByRecipient(_ context.Context, _ string, since *time.Time) ([]uint32, error) {
	s.sinceCalls = append(s.sinceCalls, since)
	if s.searchErr != nil {
		return nil, s.searchErr
	}
	if since != nil {
		return s.dated, nil
	}
	return s.undated, nil
}

func (s *fakeSession) FetchHeaders(_ context.Context, uids []uint32) ([]imap.Header, error) {
	s.fetchedUIDs = append(s.fetchedUIDs, uids)
	var out []imap.Header
	for _, uid := range uids {
		if h, ok := s.headers[uid]; ok {
			out = append(out, h)
		}
	}
	return out, nil
}

func (s *fakeSession) FetchHeader(ctx context.Context, uid uint32) (imap.Header, error) {
	hs, _ := s.FetchHeaders(ctx, []uint32{uid})
	if len(hs) == 0 {
		return imap.Header{}, errors.New("not found")
	}
	return hs[0], nil
}

func (s *fakeSession) FetchBody(_ context.Context, uid uint32) ([]byte, error) {
	s.bodyCalls = append(s.bodyCalls, uid)
	b, ok := s.bodies[uid]
	if !ok {
		return nil, errors.New("no body")
	}
	return b, nil
}

func (s *fakeSession) Close() error {
	s.closed = true
	return nil
}

type fakeOpener struct {
	sessions map[string]*fakeSession
	errs     map[string]error
	opened   []string
}

func (o *fakeOpener) Open(_ context.Context, server models.MailServer) (imap.Session, error) {
	o.opened = append(o.opened, server.Name)
	if err := o.errs[server.Name]; err != nil {
		return nil, err
	}
	return o.sessions[server.Name], nil
}

type finderResult struct {
	candidates []models.MessageCandidate
	err        error
	panics     bool
}

type fakeFinder struct {
	results map[string]finderResult
	calls   int
}

func (f *fakeFinder) FindMatchingMessages(_ context.Context, session imap.Session, _ string, _ []string, _ bool) ([]models.MessageCandidate, error) {
	f.calls++
	r := f.results[session.(*fakeSession).name]
	if r.panics {
		panic("boom")
	}
	return r.candidates, r.err
}

// fakeExtractor treats the body as a directive: a code, "none" or "error".
type fakeExtractor struct{}

func (fakeExtractor) ExtractMessage(raw []byte, _ string) (models.ExtractedArtifact, string, error) {
	switch string(raw) {
	case "none":
		return models.NoArtifact(), "", nil
	case "error":
		return models.NoArtifact(), "", errors.New("bad mime")
	}
	return models.ExtractedArtifact{
		Kind:       models.ArtifactCode,
		Value:      string(raw),
		Confidence: models.ConfidenceHigh,
	}, "preview " + string(raw), nil
}

type fakeCatalog map[string][]string

func (c fakeCatalog) PlatformSubjects(_ context.Context, platform string) ([]string, error) {
	s, ok := c[platform]
	if !ok {
		return nil, ErrUnknownPlatform
	}
	return s, nil
}

type fakeServers struct {
	servers []models.MailServer
	err     error
}

func (s fakeServers) EnabledServers(context.Context) ([]models.MailServer, error) {
	return s.servers, s.err
}

type fakeAccess struct {
	email    permission.Decision
	subjects []string
	subject  permission.Decision
}

func (a fakeAccess) CheckEmailAccess(context.Context, int64, string) permission.Decision {
	return a.email
}

func (a fakeAccess) ResolveAuthorizedSubjects(_ context.Context, _ int64, _ string, all []string) ([]string, permission.Decision) {
	if a.subjects != nil || !a.subject.Allowed {
		return a.subjects, a.subject
	}
	return all, a.subject
}

func allowAll() fakeAccess {
	return fakeAccess{
		email:   permission.Decision{Allowed: true},
		subject: permission.Decision{Allowed: true},
	}
}

type fakeCache struct {
	puts map[int64]*models.SearchResult
	err  error
}

func (c *fakeCache) Put(_ context.Context, userID int64, r *models.SearchResult) error {
	if c.puts == nil {
		c.puts = map[int64]*models.SearchResult{}
	}
	c.puts[userID] = r
	return c.err
}

type fakeRecorder struct {
	completed []models.ResultType
	attempts  map[string]string
}

func (r *fakeRecorder) SearchCompleted(_ string, t models.ResultType, _ time.Duration) {
	r.completed = append(r.completed, t)
}

func (r *fakeRecorder) ServerAttempt(server, outcome string) {
	if r.attempts == nil {
		r.attempts = map[string]string{}
	}
	r.attempts[server] = outcome
}
