package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/shineum/supermail/internal/config"
	"github.com/shineum/supermail/internal/transport"
	"github.com/shineum/supermail/internal/transport/graph"
	"github.com/shineum/supermail/internal/transport/imap"
	"github.com/shineum/supermail/internal/transport/mbox"
	"github.com/shineum/supermail/internal/transport/postmark"
	"github.com/shineum/supermail/internal/transport/ses"
	"github.com/shineum/supermail/internal/transport/smtp"
	"github.com/shineum/supermail/internal/transport/stdout"
)

// selectTransport chooses the delivery backend named by cfg.Transport.
// The stdout transport writes to out.
func selectTransport(ctx context.Context, cfg *config.Config, out io.Writer) (transport.Transport, error) {
	switch cfg.Transport {
	case "ses":
		if !cfg.SESConfigured() {
			return nil, errors.New("SES transport selected but SES_REGION and SES_SENDER are required")
		}
		slog.Info("using AWS SES transport",
			"region", cfg.SES.Region,
			"sender", cfg.SES.Sender,
		)
		t, err := ses.New(ctx, ses.Config{
			Region:          cfg.SES.Region,
			AccessKeyID:     cfg.SES.AccessKeyID,
			SecretAccessKey: cfg.SES.SecretAccessKey,
			Sender:          cfg.SES.Sender,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create SES transport: %w", err)
		}
		return t, nil

	case "graph":
		if !cfg.GraphConfigured() {
			return nil, errors.New("Graph transport selected but GRAPH_TENANT_ID, GRAPH_CLIENT_ID, GRAPH_CLIENT_SECRET, and GRAPH_SENDER are required")
		}
		slog.Info("using Microsoft Graph transport",
			"sender", cfg.Graph.Sender,
		)
		return graph.New(graph.Config{
			TenantID:     cfg.Graph.TenantID,
			ClientID:     cfg.Graph.ClientID,
			ClientSecret: cfg.Graph.ClientSecret,
			Sender:       cfg.Graph.Sender,
		}), nil

	case "postmark":
		if !cfg.PostmarkConfigured() {
			return nil, errors.New("Postmark transport selected but POSTMARK_SERVER_TOKEN is required")
		}
		sender := cfg.Postmark.Sender
		if sender == "" {
			sender = cfg.Defaults.From
		}
		slog.Info("using Postmark transport", "sender", sender)
		return postmark.New(postmark.Config{
			ServerToken:  cfg.Postmark.ServerToken,
			AccountToken: cfg.Postmark.AccountToken,
			Sender:       sender,
			Tag:          cfg.Postmark.Tag,
			TrackOpens:   cfg.Postmark.TrackOpens,
		}, slog.Default()), nil

	case "smtp":
		if !cfg.SMTPConfigured() {
			return nil, errors.New("SMTP transport selected but SMTP_HOST and SMTP_PORT are required")
		}
		sender := cfg.SMTP.Sender
		if sender == "" {
			sender = cfg.Defaults.From
		}
		slog.Info("using SMTP relay transport",
			"host", cfg.SMTP.Host,
			"port", cfg.SMTP.Port,
		)
		return smtp.New(smtp.Config{
			Host:               cfg.SMTP.Host,
			Port:               cfg.SMTP.Port,
			Username:           cfg.SMTP.Username,
			Password:           cfg.SMTP.Password,
			Sender:             sender,
			InsecureSkipVerify: cfg.SMTP.InsecureSkipVerify,
		}), nil

	case "mbox":
		if cfg.Mbox.Path == "" {
			return nil, errors.New("mbox transport selected but MBOX_PATH is required")
		}
		slog.Info("using mbox transport", "path", cfg.Mbox.Path)
		return mbox.New(cfg.Mbox.Path), nil

	case "imap":
		if !cfg.IMAPConfigured() {
			return nil, errors.New("IMAP transport selected but IMAP_ADDR, IMAP_USERNAME and IMAP_PASSWORD are required")
		}
		slog.Info("using IMAP drafts transport",
			"addr", cfg.IMAP.Addr,
			"mailbox", cfg.IMAP.Mailbox,
		)
		return imap.New(imap.Config{
			Addr:      cfg.IMAP.Addr,
			Username:  cfg.IMAP.Username,
			Password:  cfg.IMAP.Password,
			Mailbox:   cfg.IMAP.Mailbox,
			Plaintext: cfg.IMAP.Plaintext,
		}), nil

	case "stdout", "":
		slog.Debug("using stdout transport")
		return stdout.NewWithWriter(out), nil

	default:
		return nil, fmt.Errorf("unknown transport %q", cfg.Transport)
	}
}
