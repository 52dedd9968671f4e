// Package search finds the most recent verification mail for a mailbox across the
// shared server pool and extracts its code or link.
package search

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"time"

	"github.com/google/uuid"
	"github.com/vdavid/vcode/internal/imap"
	"github.com/vdavid/vcode/internal/logger"
	"github.com/vdavid/vcode/internal/models"
	"github.com/vdavid/vcode/internal/permission"
	"go.uber.org/zap"
)

// ErrUnknownPlatform is returned by a SubjectCatalog for platforms it does not know.
var ErrUnknownPlatform = errors.New("unknown platform")

// ServerSource lists the enabled servers in priority order.
type ServerSource interface {
	EnabledServers(ctx context.Context) ([]models.MailServer, error)
}

// SubjectCatalog returns the subject keywords configured for a platform.
type SubjectCatalog interface {
	PlatformSubjects(ctx context.Context, platform string) ([]string, error)
}

// Authorizer is the permission filter as seen by the orchestrator.
type Authorizer interface {
	CheckEmailAccess(ctx context.Context, userID int64, email string) permission.Decision
	ResolveAuthorizedSubjects(ctx context.Context, userID int64, platform string, all []string) ([]string, permission.Decision)
}

// MessageExtractor extracts an artifact and a preview from a raw message.
type MessageExtractor interface {
	ExtractMessage(raw []byte, subject string) (models.ExtractedArtifact, string, error)
}

// ResultStore keeps the last successful result per user.
type ResultStore interface {
	Put(ctx context.Context, userID int64, result *models.SearchResult) error
}

// Recorder receives search metrics.
type Recorder interface {
	SearchCompleted(platform string, result models.ResultType, elapsed time.Duration)
	ServerAttempt(server string, outcome string)
}

// Server attempt outcomes reported to the Recorder.
const (
	OutcomeConnectionError = "connection_error"
	OutcomeSearchError     = "search_error"
	OutcomeNoMatch         = "no_match"
	OutcomeUnprocessable   = "unprocessable"
	OutcomeSuccess         = "success"
)

type nopRecorder struct{}

func (nopRecorder) SearchCompleted(string, models.ResultType, time.Duration) {}
func (nopRecorder) ServerAttempt(string, string)                            {}

// Deps are the collaborators of an Orchestrator. Finder defaults to a Strategy
// built from the settings; Cache, Metrics, Log and Now are optional.
type Deps struct {
	Servers   ServerSource
	Catalog   SubjectCatalog
	Access    Authorizer
	Opener    imap.Opener
	Finder    CandidateFinder
	Extractor MessageExtractor
	Cache     ResultStore
	Metrics   Recorder
	Log       *zap.Logger
	Now       func() time.Time
}

// Orchestrator runs one search at a time per call and holds no per-search state.
// A settings reload builds a new Orchestrator.
type Orchestrator struct {
	settings models.Settings
	deps     Deps
	log      *zap.Logger
}

// NewOrchestrator binds collaborators to a settings snapshot.
func NewOrchestrator(settings models.Settings, deps Deps) *Orchestrator {
	if deps.Now == nil {
		deps.Now = time.Now
	}
	if deps.Log == nil {
		deps.Log = zap.NewNop()
	}
	if deps.Metrics == nil {
		deps.Metrics = nopRecorder{}
	}
	if deps.Finder == nil {
		deps.Finder = NewStrategy(settings, deps.Now, deps.Log)
	}
	return &Orchestrator{settings: settings, deps: deps, log: deps.Log.Named("search")}
}

// Settings returns the snapshot this orchestrator was built with.
func (o *Orchestrator) Settings() models.Settings {
	return o.settings
}

// Search runs the whole pipeline. It always returns a typed result.
func (o *Orchestrator) Search(ctx context.Context, req models.SearchRequest) *models.SearchResult {
	started := o.deps.Now()
	id := uuid.NewString()
	log := o.log.With(
		zap.String("search_id", id),
		zap.Int64("user_id", req.UserID),
		zap.String("email", logger.MaskEmail(req.Email)),
		zap.String("platform", req.Platform),
	)

	result := o.search(ctx, req, log)
	result.ID = id
	result.Email = req.Email
	result.Platform = req.Platform
	result.CompletedAt = o.deps.Now()

	elapsed := result.CompletedAt.Sub(started)
	o.deps.Metrics.SearchCompleted(req.Platform, result.Type, elapsed)

	if result.Type == models.ResultSuccess && o.deps.Cache != nil {
		if err := o.deps.Cache.Put(ctx, req.UserID, result); err != nil {
			log.Warn("failed to cache result", zap.Error(err))
		}
	}

	log.Info("search finished",
		zap.String("result", string(result.Type)),
		zap.Int("candidates", result.CandidatesFound),
		zap.String("server", result.Server),
		zap.Duration("elapsed", elapsed))
	return result
}

func (o *Orchestrator) search(ctx context.Context, req models.SearchRequest, log *zap.Logger) *models.SearchResult {
	if err := ValidateEmail(req.Email); err != nil {
		return failure(models.ResultInvalidRequest, "Invalid email address: %v", err)
	}
	if req.Platform == "" {
		return failure(models.ResultInvalidRequest, "Platform is required")
	}

	all, err := o.deps.Catalog.PlatformSubjects(ctx, req.Platform)
	switch {
	case errors.Is(err, ErrUnknownPlatform) || (err == nil && len(all) == 0):
		return failure(models.ResultInvalidRequest, "Unknown platform %q", req.Platform)
	case err != nil:
		log.Error("failed to load subject catalog", zap.Error(err))
		return failure(models.ResultConfigError, "Could not load the platform configuration")
	}

	if d := o.deps.Access.CheckEmailAccess(ctx, req.UserID, req.Email); !d.Allowed {
		return failure(models.ResultAccessDenied, "Access denied: %s", d.Reason)
	}
	subjects, d := o.deps.Access.ResolveAuthorizedSubjects(ctx, req.UserID, req.Platform, all)
	if !d.Allowed || len(subjects) == 0 {
		return failure(models.ResultAccessDenied, "Access denied: %s", d.Reason)
	}
	req = req.WithSubjects(subjects)

	servers, err := o.deps.Servers.EnabledServers(ctx)
	if err != nil {
		log.Error("failed to load mail servers", zap.Error(err))
		return failure(models.ResultConfigError, "Could not load the mail server configuration")
	}
	if len(servers) == 0 {
		return failure(models.ResultConfigError, "No mail servers are enabled")
	}

	var (
		searched, connFailed  int
		unprocessedServers    int
		unprocessedCandidates int
	)
	for _, server := range servers {
		if ctx.Err() != nil {
			log.Warn("search cancelled", zap.Error(ctx.Err()))
			break
		}

		out := o.tryServer(ctx, server, req, log)
		o.deps.Metrics.ServerAttempt(server.Name, out.outcome())

		switch {
		case out.openErr != nil:
			connFailed++
			log.Warn("could not open mail server", zap.String("server", server.Name), zap.Error(out.openErr))
			continue
		case out.searchErr != nil:
			log.Warn("search failed on mail server", zap.String("server", server.Name), zap.Error(out.searchErr))
			continue
		}
		searched++

		if len(out.matches) > 0 {
			best := out.matches[0].Artifact
			return &models.SearchResult{
				Found:           true,
				Type:            models.ResultSuccess,
				Message:         fmt.Sprintf("Found a %s on %s", describe(best), server.Name),
				CandidatesFound: out.candidates,
				ServersInvolved: 1,
				Server:          server.Name,
				Matches:         out.matches,
			}
		}
		if out.candidates > 0 {
			unprocessedServers++
			unprocessedCandidates += out.candidates
		}
	}

	switch {
	case unprocessedServers > 0:
		return &models.SearchResult{
			Type: models.ResultFoundButUnprocessable,
			Message: fmt.Sprintf("Found %d matching message(s) on %d server(s) but could not read a code or link from them",
				unprocessedCandidates, unprocessedServers),
			CandidatesFound: unprocessedCandidates,
			ServersInvolved: unprocessedServers,
		}
	case searched > 0:
		return failure(models.ResultNotFound, "No recent verification email found for this address")
	case connFailed == len(servers):
		return failure(models.ResultConnectionError, "Could not connect to any mail server")
	default:
		return failure(models.ResultSearchError, "Searching the mail servers failed")
	}
}

type serverOutcome struct {
	openErr    error
	searchErr  error
	candidates int
	matches    []models.Match
}

func (s serverOutcome) outcome() string {
	switch {
	case s.openErr != nil:
		return OutcomeConnectionError
	case s.searchErr != nil:
		return OutcomeSearchError
	case len(s.matches) > 0:
		return OutcomeSuccess
	case s.candidates > 0:
		return OutcomeUnprocessable
	default:
		return OutcomeNoMatch
	}
}

// tryServer opens one session and closes it on every path. A panic inside a
// single server attempt is turned into a search error.
func (o *Orchestrator) tryServer(ctx context.Context, server models.MailServer, req models.SearchRequest, log *zap.Logger) (out serverOutcome) {
	defer func() {
		if r := recover(); r != nil {
			out = serverOutcome{searchErr: fmt.Errorf("panic while searching %s: %v", server.Name, r)}
		}
	}()

	session, err := o.deps.Opener.Open(ctx, server)
	if err != nil {
		return serverOutcome{openErr: err}
	}
	defer func() {
		if err := session.Close(); err != nil {
			log.Debug("failed to close session", zap.String("server", server.Name), zap.Error(err))
		}
	}()

	candidates, err := o.deps.Finder.FindMatchingMessages(ctx, session, req.Email, req.Subjects, req.TelegramMode)
	if err != nil {
		return serverOutcome{searchErr: err}
	}
	return serverOutcome{
		candidates: len(candidates),
		matches:    o.extractCandidates(ctx, session, server, candidates, log),
	}
}

// extractCandidates fetches and extracts up to MaxMatches candidates, skipping
// any that fail.
func (o *Orchestrator) extractCandidates(ctx context.Context, session imap.Session, server models.MailServer, candidates []models.MessageCandidate, log *zap.Logger) []models.Match {
	var matches []models.Match
	for _, c := range candidates[:min(len(candidates), models.MaxMatches)] {
		raw, err := session.FetchBody(ctx, c.UID)
		if err != nil {
			log.Debug("failed to fetch body", zap.String("server", server.Name), zap.Uint32("uid", c.UID), zap.Error(err))
			continue
		}

		artifact, preview, err := o.deps.Extractor.ExtractMessage(raw, c.Subject)
		if err != nil {
			log.Debug("failed to extract", zap.String("server", server.Name), zap.Uint32("uid", c.UID), zap.Error(err))
			continue
		}
		if !artifact.Found() {
			continue
		}

		c.ServerName = server.Name
		c.BodyPreview = preview
		matches = append(matches, models.Match{Candidate: c, Artifact: artifact})
	}
	return matches
}

func describe(a models.ExtractedArtifact) string {
	if a.Kind == models.ArtifactLink {
		return "link"
	}
	return "code"
}

func failure(t models.ResultType, format string, args ...any) *models.SearchResult {
	return &models.SearchResult{Type: t, Message: fmt.Sprintf(format, args...)}
}

var emailPattern = regexp.MustCompile(`^[a-zA-Z0-9][a-zA-Z0-9._%+-]*@[a-zA-Z0-9][a-zA-Z0-9-]*(\.[a-zA-Z0-9][a-zA-Z0-9-]*)*\.[a-zA-Z]{2,}$`)

// Validation errors returned by ValidateEmail.
var (
	ErrEmailEmpty   = errors.New("email is empty")
	ErrEmailTooLong = fmt.Errorf("email is longer than %d characters", models.MaxEmailLength)
	ErrEmailInvalid = errors.New("email format is invalid")
)

// ValidateEmail checks syntax and the length limit.
func ValidateEmail(email string) error {
	switch {
	case email == "":
		return ErrEmailEmpty
	case len(email) > models.MaxEmailLength:
		return ErrEmailTooLong
	case !emailPattern.MatchString(email):
		return ErrEmailInvalid
	}
	return nil
}
