// Package smtp implements a Transport that relays messages to an SMTP
// server through gopkg.in/mail.v2.
package smtp

import (
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"gopkg.in/mail.v2"

	"github.com/shineum/supermail/internal/compose"
)

// addressHeaders are set from the message address lists so the relay
// envelope can be derived from them.
var addressHeaders = map[string]bool{
	"from":     true,
	"to":       true,
	"cc":       true,
	"reply-to": true,
}

// Config holds the relay settings.
type Config struct {
	Host     string
	Port     int
	Username string
	Password string

	// Sender is used when the message has no From address.
	Sender string

	// InsecureSkipVerify disables certificate checks, for local relays only.
	InsecureSkipVerify bool
	Timeout            time.Duration
}

// Transport relays composed messages to an SMTP server.
type Transport struct {
	sender string
	send   func(m ...*mail.Message) error
}

// New creates a Transport that dials the configured relay for each message.
func New(cfg Config) *Transport {
	d := mail.NewDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password)
	if cfg.Timeout > 0 {
		d.Timeout = cfg.Timeout
	}
	if cfg.InsecureSkipVerify {
		d.TLSConfig = &tls.Config{ServerName: cfg.Host, InsecureSkipVerify: true}
	}
	return &Transport{sender: cfg.Sender, send: d.DialAndSend}
}

// NewWithSender creates a Transport that hands messages to s, used for
// testing.
func NewWithSender(sender string, s mail.Sender) *Transport {
	return &Transport{
		sender: sender,
		send: func(m ...*mail.Message) error {
			return mail.Send(s, m...)
		},
	}
}

// Send relays msg. The mail library does not accept a context, so
// cancellation is only observed before dialing.
func (t *Transport) Send(ctx context.Context, msg *compose.Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	m := buildMessage(t.sender, msg)
	if err := t.send(m); err != nil {
		return fmt.Errorf("smtp relay failed: %w", err)
	}

	slog.Debug("email relayed via SMTP",
		"to", strings.Join(msg.To, ", "),
		"recipients", len(msg.Recipients()),
	)
	return nil
}

// Name returns the transport name.
func (t *Transport) Name() string {
	return "smtp"
}

// buildMessage converts a composed message into a mail.v2 message. Bcc is
// set for the envelope only; the library never writes it out.
func buildMessage(sender string, msg *compose.Message) *mail.Message {
	m := mail.NewMessage()

	from := msg.From
	if len(from) == 0 && sender != "" {
		from = []string{sender}
	}
	setAddresses(m, "From", from)
	setAddresses(m, "To", msg.To)
	setAddresses(m, "Cc", msg.Cc)
	setAddresses(m, "Bcc", msg.Bcc)
	setAddresses(m, "Reply-To", msg.ReplyTo)

	for _, f := range msg.Header.Fields() {
		if addressHeaders[strings.ToLower(f.Name)] {
			continue
		}
		m.SetHeader(f.Name, f.Value)
	}
	if !msg.Date.IsZero() {
		m.SetDateHeader("Date", msg.Date)
	}

	m.SetBody("text/plain", msg.Body.Text.Content)
	if msg.Body.IsMultipart() {
		m.AddAlternative("text/html", msg.Body.HTML.Content)
	}

	for _, att := range msg.Attachments {
		content := att.Content
		m.Attach(att.Filename,
			mail.SetCopyFunc(func(w io.Writer) error {
				_, err := w.Write(content)
				return err
			}),
			mail.SetHeader(map[string][]string{
				"Content-Type": {att.ContentType},
			}),
		)
	}

	return m
}

// setAddresses copies addrs since SetHeader encodes its values in place.
func setAddresses(m *mail.Message, field string, addrs []string) {
	if len(addrs) > 0 {
		m.SetHeader(field, append([]string(nil), addrs...)...)
	}
}
