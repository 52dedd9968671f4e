package imap

import (
	"context"
	"fmt"
	"io"
	"sort"
	"time"

	"github.com/emersion/go-imap"
	"github.com/emersion/go-imap/client"
	"go.uber.org/zap"
)

type session struct {
	client *client.Client
	stop   func() bool
	server string
	log    *zap.Logger
	closed bool
}

// SearchByRecipient runs UID SEARCH TO <email> [SINCE <date>].
func (s *session) SearchByRecipient(ctx context.Context, email string, since *time.Time) ([]uint32, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	criteria := imap.NewSearchCriteria()
	criteria.Header.Add("To", email)
	if since != nil {
		criteria.Since = *since
	}

	uids, err := s.client.UidSearch(criteria)
	if err != nil {
		return nil, fmt.Errorf("failed to search IMAP: %w", err)
	}

	sort.Slice(uids, func(i, j int) bool { return uids[i] > uids[j] })
	return uids, nil
}

// FetchHeaders fetches Subject, Date and To plus INTERNALDATE for the given UIDs.
func (s *session) FetchHeaders(ctx context.Context, uids []uint32) ([]Header, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if len(uids) == 0 {
		return []Header{}, nil
	}

	seqSet := new(imap.SeqSet)
	seqSet.AddNum(uids...)

	section := headerSection()
	items := []imap.FetchItem{imap.FetchUid, imap.FetchInternalDate, section.FetchItem()}

	messages := make(chan *imap.Message, len(uids))
	done := make(chan error, 1)

	go func() {
		done <- s.client.UidFetch(seqSet, items, messages)
	}()

	headers := make([]Header, 0, len(uids))
	for msg := range messages {
		h, err := parseHeader(msg, section)
		if err != nil {
			s.log.Debug("skipping unparseable header", zap.Uint32("uid", msg.Uid), zap.Error(err))
			continue
		}
		headers = append(headers, h)
	}

	if err := <-done; err != nil {
		return nil, fmt.Errorf("failed to fetch headers: %w", err)
	}
	return headers, nil
}

// FetchHeader fetches a single message header.
func (s *session) FetchHeader(ctx context.Context, uid uint32) (Header, error) {
	headers, err := s.FetchHeaders(ctx, []uint32{uid})
	if err != nil {
		return Header{}, err
	}
	for _, h := range headers {
		if h.UID == uid {
			return h, nil
		}
	}
	return Header{}, fmt.Errorf("server did not return message %d", uid)
}

// FetchBody fetches BODY.PEEK[] so the \Seen flag is left alone.
func (s *session) FetchBody(ctx context.Context, uid uint32) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	seqSet := new(imap.SeqSet)
	seqSet.AddNum(uid)

	section := &imap.BodySectionName{Peek: true}
	items := []imap.FetchItem{imap.FetchUid, section.FetchItem()}

	messages := make(chan *imap.Message, 1)
	done := make(chan error, 1)

	go func() {
		done <- s.client.UidFetch(seqSet, items, messages)
	}()

	var body []byte
	var readErr error
	for msg := range messages {
		if body != nil || msg.Uid != uid {
			continue
		}
		literal := msg.GetBody(section)
		if literal == nil {
			readErr = fmt.Errorf("server returned no body for message %d", uid)
			continue
		}
		body, readErr = io.ReadAll(literal)
	}

	if err := <-done; err != nil {
		return nil, fmt.Errorf("failed to fetch message: %w", err)
	}
	if readErr != nil {
		return nil, readErr
	}
	if body == nil {
		return nil, fmt.Errorf("server did not return message %d", uid)
	}
	return body, nil
}

// Close logs out. It is safe to call more than once.
func (s *session) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true
	s.stop()

	if err := s.client.Logout(); err != nil {
		_ = s.client.Terminate()
		return fmt.Errorf("failed to log out from %s: %w", s.server, err)
	}
	return nil
}
