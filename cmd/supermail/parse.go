package main

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/shineum/supermail/internal/email"
	"github.com/shineum/supermail/internal/parser"
)

// parsedMessage is the YAML view printed by the parse command.
type parsedMessage struct {
	To          []string          `yaml:"to,omitempty"`
	From        []string          `yaml:"from,omitempty"`
	ReplyTo     []string          `yaml:"reply_to,omitempty"`
	ReturnPath  string            `yaml:"return_path,omitempty"`
	Cc          []string          `yaml:"cc,omitempty"`
	Subject     string            `yaml:"subject,omitempty"`
	Date        string            `yaml:"date,omitempty"`
	MessageID   string            `yaml:"message_id,omitempty"`
	InReplyTo   string            `yaml:"in_reply_to,omitempty"`
	References  []string          `yaml:"references,omitempty"`
	Headers     map[string]string `yaml:"headers,omitempty"`
	Text        string            `yaml:"text,omitempty"`
	HTML        string            `yaml:"html,omitempty"`
	Attachments []parsedFile      `yaml:"attachments,omitempty"`
}

type parsedFile struct {
	Filename    string `yaml:"filename"`
	ContentType string `yaml:"content_type"`
	Size        int    `yaml:"size"`
}

func newParseCmd(_ *app) *cobra.Command {
	return &cobra.Command{
		Use:   "parse <file.eml|->",
		Short: "Parse an RFC 5322 message and print its fields as YAML",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var (
				raw []byte
				err error
			)
			if args[0] == "-" {
				raw, err = io.ReadAll(cmd.InOrStdin())
			} else {
				raw, err = os.ReadFile(args[0])
			}
			if err != nil {
				return fmt.Errorf("failed to read message: %w", err)
			}

			fields, err := parser.Parse(raw)
			if err != nil {
				return err
			}

			enc := yaml.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent(2)
			if err := enc.Encode(toParsedMessage(fields)); err != nil {
				return err
			}
			return enc.Close()
		},
	}
}

func toParsedMessage(f email.Fields) parsedMessage {
	p := parsedMessage{
		To:         f.To,
		From:       f.From,
		ReplyTo:    f.ReplyTo,
		ReturnPath: f.ReturnPath,
		Cc:         f.Cc,
		Subject:    f.Subject,
		MessageID:  f.MessageID,
		InReplyTo:  f.InReplyTo,
		References: f.References,
		Headers:    f.Headers,
		Text:       f.TextBody,
		HTML:       f.HTMLBody,
	}
	if !f.Date.IsZero() {
		p.Date = f.Date.Format(time.RFC1123Z)
	}
	for _, a := range f.Attachments {
		p.Attachments = append(p.Attachments, parsedFile{
			Filename:    a.Filename,
			ContentType: a.MediaType(),
			Size:        len(a.Content),
		})
	}
	return p
}
