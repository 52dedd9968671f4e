package imap

import (
	"context"
	"errors"
	"fmt"
	"net"
	"time"

	"github.com/emersion/go-imap/client"
	"github.com/vdavid/vcode/internal/logger"
	"github.com/vdavid/vcode/internal/models"
	"go.uber.org/zap"
)

// DefaultTimeout bounds dialing and every command when no timeout is configured.
const DefaultTimeout = 10 * time.Second

// ErrPlaintextRefused is returned when a server without TLS is opened outside test mode.
var ErrPlaintextRefused = errors.New("plaintext IMAP is only allowed in test mode")

// Decrypter turns a stored mail server password back into plain text.
type Decrypter interface {
	Decrypt(ciphertext []byte) (string, error)
}

// Dialer opens read-only sessions with a bounded timeout.
type Dialer struct {
	secrets        Decrypter
	timeout        time.Duration
	allowPlaintext bool
	log            *zap.Logger
}

// NewDialer creates a Dialer. allowPlaintext permits non-TLS servers and is meant for tests.
func NewDialer(secrets Decrypter, timeout time.Duration, allowPlaintext bool, log *zap.Logger) *Dialer {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Dialer{
		secrets:        secrets,
		timeout:        timeout,
		allowPlaintext: allowPlaintext,
		log:            log.Named("imap"),
	}
}

// Open dials the server, logs in and examines INBOX.
// Any failure closes the connection before returning.
func (d *Dialer) Open(ctx context.Context, server models.MailServer) (Session, error) {
	if !server.UseTLS && !d.allowPlaintext {
		return nil, ErrPlaintextRefused
	}

	password, err := d.secrets.Decrypt(server.EncryptedPassword)
	if err != nil {
		return nil, fmt.Errorf("failed to decrypt password for %s: %w", server.Name, err)
	}

	c, err := connect(ctx, server.Address(), server.UseTLS, d.timeout)
	if err != nil {
		return nil, err
	}
	c.Timeout = d.timeout

	// Cancelling the context tears the connection down so blocked commands return.
	stop := context.AfterFunc(ctx, func() { _ = c.Terminate() })

	if err := c.Login(server.Username, password); err != nil {
		stop()
		_ = c.Terminate()
		return nil, fmt.Errorf("failed to authenticate: %w", err)
	}

	if _, err := c.Select("INBOX", true); err != nil {
		stop()
		_ = c.Logout()
		return nil, fmt.Errorf("failed to examine INBOX: %w", err)
	}

	d.log.Debug("session opened",
		zap.String("server", server.Name),
		zap.String("user", logger.MaskEmail(server.Username)))

	return &session{client: c, stop: stop, server: server.Name, log: d.log}, nil
}

func connect(ctx context.Context, addr string, useTLS bool, timeout time.Duration) (*client.Client, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	dialer := &net.Dialer{Timeout: timeout}
	if deadline, ok := ctx.Deadline(); ok {
		dialer.Deadline = deadline
	}

	if useTLS {
		c, err := client.DialWithDialerTLS(dialer, addr, nil)
		if err != nil {
			return nil, fmt.Errorf("failed to dial with TLS: %w", err)
		}
		return c, nil
	}

	// Non-TLS connection for testing
	c, err := client.DialWithDialer(dialer, addr)
	if err != nil {
		return nil, fmt.Errorf("failed to dial: %w", err)
	}
	return c, nil
}
