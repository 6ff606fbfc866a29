// Package ses implements a Transport that sends emails via AWS SES v2.
package ses

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	sesv2 "github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/aws/aws-sdk-go-v2/service/sesv2/types"

	"github.com/shineum/supermail/internal/compose"
	"github.com/shineum/supermail/internal/transport/retry"
)

// maxRetries is the maximum number of retry attempts for transient failures.
const maxRetries = 3

// baseRetryDelay is the initial delay for exponential backoff.
const baseRetryDelay = 1 * time.Second

// simpleHeaders are the header fields the SES simple content format can
// carry. Any other field forces a raw message.
var simpleHeaders = map[string]bool{
	"from":     true,
	"to":       true,
	"cc":       true,
	"reply-to": true,
	"subject":  true,
}

// Config holds the configuration for creating a Transport.
type Config struct {
	Region          string
	AccessKeyID     string
	SecretAccessKey string

	// Sender is used when the message has no From address.
	Sender string
}

// Transport sends emails via the AWS SES v2 API.
type Transport struct {
	sender     string
	client     SendEmailAPI
	retryDelay time.Duration
}

// SendEmailAPI is the interface for the SES v2 SendEmail operation.
// Used for testing with mock implementations.
type SendEmailAPI interface {
	SendEmail(ctx context.Context, params *sesv2.SendEmailInput, optFns ...func(*sesv2.Options)) (*sesv2.SendEmailOutput, error)
}

// New creates a new Transport with the given configuration.
func New(ctx context.Context, cfg Config) (*Transport, error) {
	var opts []func(*awsconfig.LoadOptions) error

	opts = append(opts, awsconfig.WithRegion(cfg.Region))

	if cfg.AccessKeyID != "" && cfg.SecretAccessKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	return &Transport{
		sender:     cfg.Sender,
		client:     sesv2.NewFromConfig(awsCfg),
		retryDelay: baseRetryDelay,
	}, nil
}

// NewWithClient creates a Transport with a custom client, used for testing.
func NewWithClient(sender string, client SendEmailAPI) *Transport {
	return &Transport{
		sender:     sender,
		client:     client,
		retryDelay: baseRetryDelay,
	}
}

// Send delivers a message via AWS SES v2.
// Messages with attachments or extra header fields are sent as raw MIME;
// everything else uses the SES simple email format.
func (s *Transport) Send(ctx context.Context, msg *compose.Message) error {
	var input *sesv2.SendEmailInput

	if needsRaw(msg) {
		var err error
		input, err = buildRawInput(s.sender, msg)
		if err != nil {
			return fmt.Errorf("failed to build raw message: %w", err)
		}
	} else {
		input = buildSimpleInput(s.sender, msg)
	}

	err := retry.Do(ctx, s.retryPolicy(), func(ctx context.Context, _ int) error {
		out, err := s.client.SendEmail(ctx, input)
		if err != nil {
			return err
		}
		if out != nil && out.MessageId != nil {
			slog.Debug("SES accepted message", "ses_message_id", *out.MessageId)
		}
		return nil
	})

	var exhausted *retry.ExhaustedError
	if errors.As(err, &exhausted) {
		return fmt.Errorf("SES API request failed after %d retries: %w", maxRetries, exhausted.Err)
	}
	return err
}

func (s *Transport) retryPolicy() retry.Policy {
	return retry.Policy{
		Retries: maxRetries,
		Base:    s.retryDelay,
		OnRetry: func(attempt int, wait time.Duration, err error) {
			slog.Warn("SES API error, retrying",
				"attempt", attempt,
				"max_retries", maxRetries,
				"delay", wait,
				"error", err,
			)
		},
	}
}

// Name returns the transport name.
func (s *Transport) Name() string {
	return "ses"
}

// needsRaw reports whether the message cannot be expressed as SES simple
// content.
func needsRaw(msg *compose.Message) bool {
	if len(msg.Attachments) > 0 {
		return true
	}
	for _, f := range msg.Header.Fields() {
		if !simpleHeaders[strings.ToLower(f.Name)] {
			return true
		}
	}
	return false
}

// fromAddress returns the message's first From address or the default sender.
func fromAddress(sender string, msg *compose.Message) string {
	if len(msg.From) > 0 {
		return msg.From[0]
	}
	return sender
}

func destination(msg *compose.Message) *types.Destination {
	return &types.Destination{
		ToAddresses:  msg.To,
		CcAddresses:  msg.Cc,
		BccAddresses: msg.Bcc,
	}
}

// buildSimpleInput creates a SES SendEmailInput using simple content.
func buildSimpleInput(sender string, msg *compose.Message) *sesv2.SendEmailInput {
	body := &types.Body{
		Text: &types.Content{
			Data:    aws.String(msg.Body.Text.Content),
			Charset: aws.String("UTF-8"),
		},
	}
	if msg.Body.IsMultipart() {
		body.Html = &types.Content{
			Data:    aws.String(msg.Body.HTML.Content),
			Charset: aws.String("UTF-8"),
		}
	}

	return &sesv2.SendEmailInput{
		FromEmailAddress: aws.String(fromAddress(sender, msg)),
		Destination:      destination(msg),
		ReplyToAddresses: msg.ReplyTo,
		Content: &types.EmailContent{
			Simple: &types.Message{
				Subject: &types.Content{
					Data:    aws.String(msg.Subject),
					Charset: aws.String("UTF-8"),
				},
				Body: body,
			},
		},
	}
}

// buildRawInput renders the message as MIME and wraps it in a raw
// SendEmailInput. The destination is passed explicitly so Bcc recipients,
// which are not rendered, still receive the message.
func buildRawInput(sender string, msg *compose.Message) (*sesv2.SendEmailInput, error) {
	if !msg.Header.Has("From") {
		msg = msg.Clone()
		msg.Header.Set("From", sender)
	}

	raw, err := msg.Bytes()
	if err != nil {
		return nil, err
	}

	return &sesv2.SendEmailInput{
		FromEmailAddress: aws.String(fromAddress(sender, msg)),
		Destination:      destination(msg),
		Content: &types.EmailContent{
			Raw: &types.RawMessage{
				Data: raw,
			},
		},
	}, nil
}
