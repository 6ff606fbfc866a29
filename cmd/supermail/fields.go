package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/araddon/dateparse"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/shineum/supermail/internal/email"
)

// fieldsFile is the YAML form of a field set. Attachment entries are file
// paths, resolved relative to the YAML file.
type fieldsFile struct {
	To          []string          `yaml:"to,omitempty"`
	From        []string          `yaml:"from,omitempty"`
	ReplyTo     []string          `yaml:"reply_to,omitempty"`
	ReturnPath  string            `yaml:"return_path,omitempty"`
	Cc          []string          `yaml:"cc,omitempty"`
	Bcc         []string          `yaml:"bcc,omitempty"`
	Subject     string            `yaml:"subject,omitempty"`
	Date        string            `yaml:"date,omitempty"`
	MessageID   string            `yaml:"message_id,omitempty"`
	InReplyTo   string            `yaml:"in_reply_to,omitempty"`
	References  []string          `yaml:"references,omitempty"`
	Headers     map[string]string `yaml:"headers,omitempty"`
	Text        string            `yaml:"text,omitempty"`
	HTML        string            `yaml:"html,omitempty"`
	Attachments []string          `yaml:"attachments,omitempty"`
}

// fieldFlags are the message flags shared by send, mailto and render.
type fieldFlags struct {
	file       string
	to         []string
	from       []string
	replyTo    []string
	returnPath string
	cc         []string
	bcc        []string
	subject    string
	date       string
	messageID  string
	inReplyTo  string
	references []string
	headers    []string
	text       string
	html       string
	attach     []string
}

func (ff *fieldFlags) register(cmd *cobra.Command) {
	f := cmd.Flags()
	f.StringVarP(&ff.file, "file", "f", "", "YAML file with message fields; flags override it")
	f.StringSliceVar(&ff.to, "to", nil, "recipient address (repeatable)")
	f.StringSliceVar(&ff.from, "from", nil, "sender address (repeatable)")
	f.StringSliceVar(&ff.replyTo, "reply-to", nil, "reply-to address (repeatable)")
	f.StringVar(&ff.returnPath, "return-path", "", "return path address")
	f.StringSliceVar(&ff.cc, "cc", nil, "carbon copy address (repeatable)")
	f.StringSliceVar(&ff.bcc, "bcc", nil, "blind carbon copy address (repeatable)")
	f.StringVarP(&ff.subject, "subject", "s", "", "subject line")
	f.StringVar(&ff.date, "date", "", "message date, in any common format")
	f.StringVar(&ff.messageID, "message-id", "", "Message-ID header")
	f.StringVar(&ff.inReplyTo, "in-reply-to", "", "In-Reply-To header")
	f.StringSliceVar(&ff.references, "references", nil, "References message ids (repeatable)")
	f.StringArrayVarP(&ff.headers, "header", "H", nil, `custom header as "Name: value" (repeatable)`)
	f.StringVar(&ff.text, "text", "", "plain text body")
	f.StringVar(&ff.html, "html", "", "HTML body")
	f.StringArrayVarP(&ff.attach, "attach", "a", nil, "file to attach (repeatable)")
}

// build assembles a field set from the YAML file, if any, and then the
// flags that were set explicitly. defaultFrom applies when no sender is
// given.
func (ff *fieldFlags) build(cmd *cobra.Command, defaultFrom string) (email.Fields, error) {
	var (
		doc     fieldsFile
		baseDir string
	)
	if ff.file != "" {
		data, err := os.ReadFile(ff.file)
		if err != nil {
			return email.Fields{}, fmt.Errorf("failed to read fields file: %w", err)
		}
		if err := yaml.Unmarshal(data, &doc); err != nil {
			return email.Fields{}, fmt.Errorf("failed to parse fields file: %w", err)
		}
		baseDir = filepath.Dir(ff.file)
	}

	changed := cmd.Flags().Changed
	if changed("to") {
		doc.To = ff.to
	}
	if changed("from") {
		doc.From = ff.from
	}
	if changed("reply-to") {
		doc.ReplyTo = ff.replyTo
	}
	if changed("return-path") {
		doc.ReturnPath = ff.returnPath
	}
	if changed("cc") {
		doc.Cc = ff.cc
	}
	if changed("bcc") {
		doc.Bcc = ff.bcc
	}
	if changed("subject") {
		doc.Subject = ff.subject
	}
	if changed("date") {
		doc.Date = ff.date
	}
	if changed("message-id") {
		doc.MessageID = ff.messageID
	}
	if changed("in-reply-to") {
		doc.InReplyTo = ff.inReplyTo
	}
	if changed("references") {
		doc.References = ff.references
	}
	if changed("text") {
		doc.Text = ff.text
	}
	if changed("html") {
		doc.HTML = ff.html
	}
	for _, h := range ff.headers {
		name, value, ok := strings.Cut(h, ":")
		if !ok || strings.TrimSpace(name) == "" {
			return email.Fields{}, fmt.Errorf("invalid header %q, want \"Name: value\"", h)
		}
		if doc.Headers == nil {
			doc.Headers = map[string]string{}
		}
		doc.Headers[strings.TrimSpace(name)] = strings.TrimSpace(value)
	}

	if len(doc.From) == 0 && defaultFrom != "" {
		doc.From = []string{defaultFrom}
	}

	fields, err := doc.toFields(baseDir)
	if err != nil {
		return email.Fields{}, err
	}

	// Attachments given on the command line are relative to the working
	// directory and come after those from the file.
	for _, path := range ff.attach {
		content, err := os.ReadFile(path)
		if err != nil {
			return email.Fields{}, fmt.Errorf("failed to read attachment: %w", err)
		}
		fields.Attachments = append(fields.Attachments, email.Attachment{
			Filename: filepath.Base(path),
			Content:  content,
		})
	}

	return fields, nil
}

// toFields converts the document into a normalized field set.
func (d fieldsFile) toFields(baseDir string) (email.Fields, error) {
	opts := []email.Option{
		email.Subject(d.Subject),
		email.Text(d.Text),
		email.HTML(d.HTML),
		email.ReturnPath(d.ReturnPath),
		email.MessageID(d.MessageID),
		email.InReplyTo(d.InReplyTo),
	}
	if len(d.To) > 0 {
		opts = append(opts, email.To(d.To...))
	}
	if len(d.From) > 0 {
		opts = append(opts, email.From(d.From...))
	}
	if len(d.ReplyTo) > 0 {
		opts = append(opts, email.ReplyTo(d.ReplyTo...))
	}
	if len(d.Cc) > 0 {
		opts = append(opts, email.Cc(d.Cc...))
	}
	if len(d.Bcc) > 0 {
		opts = append(opts, email.Bcc(d.Bcc...))
	}
	if len(d.References) > 0 {
		opts = append(opts, email.References(d.References...))
	}
	for name, value := range d.Headers {
		opts = append(opts, email.Header(name, value))
	}

	if d.Date != "" {
		t, err := dateparse.ParseAny(d.Date)
		if err != nil {
			return email.Fields{}, fmt.Errorf("invalid date %q: %w", d.Date, err)
		}
		opts = append(opts, email.Date(t))
	}

	for _, path := range d.Attachments {
		if !filepath.IsAbs(path) && baseDir != "" {
			path = filepath.Join(baseDir, path)
		}
		content, err := os.ReadFile(path)
		if err != nil {
			return email.Fields{}, fmt.Errorf("failed to read attachment: %w", err)
		}
		opts = append(opts, email.Attach(filepath.Base(path), content))
	}

	return email.New(opts...), nil
}
