package models

import "time"

// ResultType classifies the outcome of a search.
type ResultType string

const (
	ResultSuccess               ResultType = "success"
	ResultNotFound              ResultType = "not_found"
	ResultFoundButUnprocessable ResultType = "found_but_unprocessable"
	ResultConnectionError       ResultType = "connection_error"
	ResultSearchError           ResultType = "search_error"
	ResultAccessDenied          ResultType = "access_denied"
	ResultInvalidRequest        ResultType = "invalid_request"
	ResultConfigError           ResultType = "config_error"
)

// MaxEmailLength is the longest mailbox address a search accepts.
const MaxEmailLength = 50

// MaxMatches is the number of extracted matches a result carries at most.
const MaxMatches = 3

// SearchRequest is one invocation of the engine.
type SearchRequest struct {
	Email        string   `json:"email"`
	Platform     string   `json:"platform"`
	UserID       int64    `json:"user_id"`
	Subjects     []string `json:"subjects,omitempty"`
	TelegramMode bool     `json:"telegram_mode"`
}

// WithSubjects returns a copy of the request carrying the resolved subject list.
func (r SearchRequest) WithSubjects(subjects []string) SearchRequest {
	r.Subjects = append([]string(nil), subjects...)
	return r
}

// MessageCandidate is a message that passed the time and subject filter on one server.
type MessageCandidate struct {
	ServerName  string    `json:"server_name"`
	UID         uint32    `json:"uid"`
	ReceivedAt  time.Time `json:"received_at"`
	RawSubject  string    `json:"raw_subject"`
	Subject     string    `json:"subject"`
	RawBody     []byte    `json:"-"`
	BodyPreview string    `json:"body_preview,omitempty"`
}

// Match pairs a candidate with what was extracted from it.
type Match struct {
	Candidate MessageCandidate  `json:"candidate"`
	Artifact  ExtractedArtifact `json:"artifact"`
}

// SearchResult is what callers receive and what the result cache stores.
type SearchResult struct {
	ID              string     `json:"id"`
	Found           bool       `json:"found"`
	Type            ResultType `json:"type"`
	Message         string     `json:"message"`
	Email           string     `json:"email"`
	Platform        string     `json:"platform"`
	CandidatesFound int        `json:"candidates_found"`
	ServersInvolved int        `json:"servers_involved"`
	Server          string     `json:"server,omitempty"`
	Matches         []Match    `json:"matches,omitempty"`
	CompletedAt     time.Time  `json:"completed_at"`
}

// Best returns the first (most recent) match, if any.
func (r *SearchResult) Best() (Match, bool) {
	if r == nil || len(r.Matches) == 0 {
		return Match{}, false
	}
	return r.Matches[0], true
}
