// Package imap implements a Transport that stores messages in an IMAP
// mailbox with APPEND, typically as drafts for later review.
package imap

import (
	"bytes"
	"context"
	"crypto/tls"
	"fmt"
	"log/slog"
	"net"
	"time"

	goimap "github.com/emersion/go-imap"
	"github.com/emersion/go-imap/client"

	"github.com/shineum/supermail/internal/compose"
)

const defaultMailbox = "Drafts"

const defaultTimeout = 30 * time.Second

// Config holds the IMAP server settings.
type Config struct {
	Addr     string
	Username string
	Password string
	Mailbox  string

	// Plaintext dials without TLS, for local test servers only.
	Plaintext bool
	Timeout   time.Duration
}

// appender is the subset of the IMAP client used by the transport.
type appender interface {
	Login(username, password string) error
	Append(mbox string, flags []string, date time.Time, msg goimap.Literal) error
	Logout() error
}

// Transport appends rendered messages to an IMAP mailbox flagged as drafts.
type Transport struct {
	cfg  Config
	dial func(cfg Config) (appender, error)
	now  func() time.Time
}

// New creates a Transport. A connection is opened per message.
func New(cfg Config) *Transport {
	if cfg.Mailbox == "" {
		cfg.Mailbox = defaultMailbox
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = defaultTimeout
	}
	return &Transport{cfg: cfg, dial: dial, now: time.Now}
}

func dial(cfg Config) (appender, error) {
	d := &net.Dialer{Timeout: cfg.Timeout}

	var (
		c   *client.Client
		err error
	)
	if cfg.Plaintext {
		c, err = client.DialWithDialer(d, cfg.Addr)
	} else {
		host, _, splitErr := net.SplitHostPort(cfg.Addr)
		if splitErr != nil {
			host = cfg.Addr
		}
		c, err = client.DialWithDialerTLS(d, cfg.Addr, &tls.Config{ServerName: host})
	}
	if err != nil {
		return nil, err
	}
	c.Timeout = cfg.Timeout
	return c, nil
}

// Send renders msg and appends it to the configured mailbox with the
// \Draft and \Seen flags.
func (t *Transport) Send(ctx context.Context, msg *compose.Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	raw, err := msg.Bytes()
	if err != nil {
		return fmt.Errorf("failed to render message: %w", err)
	}

	c, err := t.dial(t.cfg)
	if err != nil {
		return fmt.Errorf("failed to connect to IMAP server %s: %w", t.cfg.Addr, err)
	}
	defer func() {
		if err := c.Logout(); err != nil {
			slog.Debug("IMAP logout failed", "error", err)
		}
	}()

	if err := c.Login(t.cfg.Username, t.cfg.Password); err != nil {
		return fmt.Errorf("IMAP login failed: %w", err)
	}

	date := msg.Date
	if date.IsZero() {
		date = t.now()
	}

	flags := []string{goimap.DraftFlag, goimap.SeenFlag}
	if err := c.Append(t.cfg.Mailbox, flags, date, bytes.NewBuffer(raw)); err != nil {
		return fmt.Errorf("IMAP append to %s failed: %w", t.cfg.Mailbox, err)
	}

	slog.Debug("email appended via IMAP", "mailbox", t.cfg.Mailbox, "bytes", len(raw))
	return nil
}

// Name returns the transport name.
func (t *Transport) Name() string {
	return "imap"
}
