// Package postmark implements a Transport backed by the Postmark API.
package postmark

import (
	"context"
	"encoding/base64"
	"fmt"
	"log/slog"
	"strings"

	"github.com/keighl/postmark"

	"github.com/shineum/supermail/internal/compose"
)

// nativeHeaders are carried by dedicated Postmark fields rather than the
// Headers list.
var nativeHeaders = map[string]bool{
	"from":     true,
	"to":       true,
	"cc":       true,
	"reply-to": true,
	"subject":  true,
}

// Config holds the configuration for creating a Transport.
type Config struct {
	ServerToken  string
	AccountToken string

	// Sender is used when the message has no From address.
	Sender string

	Tag        string
	TrackOpens bool
}

// EmailSender is the subset of the Postmark client used by the transport.
type EmailSender interface {
	SendEmail(email postmark.Email) (postmark.EmailResponse, error)
}

// Transport sends emails through Postmark.
type Transport struct {
	client EmailSender
	cfg    Config
	logger *slog.Logger
}

// New creates a Transport with a Postmark API client.
func New(cfg Config, logger *slog.Logger) *Transport {
	return NewWithClient(cfg, postmark.NewClient(cfg.ServerToken, cfg.AccountToken), logger)
}

// NewWithClient creates a Transport with the given client.
func NewWithClient(cfg Config, client EmailSender, logger *slog.Logger) *Transport {
	if logger == nil {
		logger = slog.Default()
	}
	return &Transport{client: client, cfg: cfg, logger: logger}
}

// Send delivers msg. The Postmark client does not accept a context, so
// cancellation is only observed before the request starts.
func (t *Transport) Send(ctx context.Context, msg *compose.Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	res, err := t.client.SendEmail(buildEmail(t.cfg, msg))
	if err != nil {
		t.logger.Error("failed to send email via Postmark",
			slog.String("to", strings.Join(msg.To, ", ")),
			slog.String("error", err.Error()),
		)
		return fmt.Errorf("postmark send failed: %w", err)
	}

	t.logger.Info("email sent via Postmark",
		slog.String("to", strings.Join(msg.To, ", ")),
		slog.String("message_id", res.MessageID),
	)
	return nil
}

// Name returns the transport name.
func (t *Transport) Name() string {
	return "postmark"
}

// buildEmail maps a composed message onto a Postmark email.
func buildEmail(cfg Config, msg *compose.Message) postmark.Email {
	from := cfg.Sender
	if len(msg.From) > 0 {
		from = strings.Join(msg.From, ", ")
	}

	e := postmark.Email{
		From:       from,
		To:         strings.Join(msg.To, ", "),
		Cc:         strings.Join(msg.Cc, ", "),
		Bcc:        strings.Join(msg.Bcc, ", "),
		ReplyTo:    strings.Join(msg.ReplyTo, ", "),
		Subject:    msg.Subject,
		TextBody:   msg.Body.Text.Content,
		Tag:        cfg.Tag,
		TrackOpens: cfg.TrackOpens,
	}
	if msg.Body.IsMultipart() {
		e.HtmlBody = msg.Body.HTML.Content
	}

	for _, f := range msg.Header.Fields() {
		if nativeHeaders[strings.ToLower(f.Name)] {
			continue
		}
		e.Headers = append(e.Headers, postmark.Header{Name: f.Name, Value: f.Value})
	}

	for _, att := range msg.Attachments {
		e.Attachments = append(e.Attachments, postmark.Attachment{
			Name:        att.Filename,
			Content:     base64.StdEncoding.EncodeToString(att.Content),
			ContentType: att.ContentType,
		})
	}

	return e
}
