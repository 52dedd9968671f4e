package imap

import (
	"context"
	"time"

	"github.com/vdavid/vcode/internal/models"
)

// Header is the subset of a message header the search needs.
// Subject and Date are raw, undecoded header values.
type Header struct {
	UID          uint32
	Subject      string
	Date         string
	To           string
	InternalDate time.Time
}

// Session is one read-only mailbox connection with INBOX examined.
// It is not safe for concurrent use.
type Session interface {
	// SearchByRecipient returns UIDs of messages addressed to email, optionally
	// bounded to messages received since the given time.
	SearchByRecipient(ctx context.Context, email string, since *time.Time) ([]uint32, error)

	// FetchHeaders fetches headers for a batch of UIDs. Order is not guaranteed.
	FetchHeaders(ctx context.Context, uids []uint32) ([]Header, error)

	// FetchHeader fetches the header of a single message.
	FetchHeader(ctx context.Context, uid uint32) (Header, error)

	// FetchBody fetches the full raw message without setting \Seen.
	FetchBody(ctx context.Context, uid uint32) ([]byte, error)

	// Close logs out and releases the connection.
	Close() error
}

// Opener opens sessions against configured mail servers.
type Opener interface {
	Open(ctx context.Context, server models.MailServer) (Session, error)
}

// Ensure Dialer implements Opener.
var _ Opener = (*Dialer)(nil)
