// Package email defines the field set that describes an email message.
package email

import (
	"bytes"
	"mime"
	"path/filepath"
	"time"
)

// defaultContentType is used for attachments whose type cannot be inferred.
const defaultContentType = "application/octet-stream"

// Mailer is implemented by any type that can describe an email. The
// composer and the mailto encoder depend only on this interface.
type Mailer interface {
	// Fields returns a snapshot of the email's fields. Callers may keep
	// and modify the returned value.
	Fields() Fields
}

// Fields is the logical record of an email: addressing, metadata, bodies,
// custom headers and attachments. Zero values mean "absent".
type Fields struct {
	To         []string
	From       []string
	ReplyTo    []string
	ReturnPath string
	Cc         []string
	Bcc        []string

	Subject    string
	Date       time.Time
	MessageID  string
	InReplyTo  string
	References []string

	// Headers holds raw custom headers, one value per name.
	Headers map[string]string

	TextBody string
	HTMLBody string

	Attachments []Attachment
}

// Attachment is a file attached to an email message.
type Attachment struct {
	Filename string
	Content  []byte

	// ContentType is optional. When empty it is inferred from the filename.
	ContentType string
}

// MediaType returns the attachment's content type, inferring it from the
// filename extension when it was not given.
func (a Attachment) MediaType() string {
	if a.ContentType != "" {
		return a.ContentType
	}
	if ct := mime.TypeByExtension(filepath.Ext(a.Filename)); ct != "" {
		return ct
	}
	return defaultContentType
}

// New returns a field set with empty Cc, Bcc, Headers and Attachments,
// then applies opts in order.
func New(opts ...Option) Fields {
	f := Fields{
		Cc:          []string{},
		Bcc:         []string{},
		Headers:     map[string]string{},
		Attachments: []Attachment{},
	}
	for _, opt := range opts {
		opt(&f)
	}
	return f
}

// Fields returns a deep copy, so a bare Fields value satisfies Mailer.
func (f Fields) Fields() Fields {
	return f.Clone()
}

// Clone returns a deep copy of the field set. Nil collections stay nil.
func (f Fields) Clone() Fields {
	c := f
	c.To = cloneStrings(f.To)
	c.From = cloneStrings(f.From)
	c.ReplyTo = cloneStrings(f.ReplyTo)
	c.Cc = cloneStrings(f.Cc)
	c.Bcc = cloneStrings(f.Bcc)
	c.References = cloneStrings(f.References)

	if f.Headers != nil {
		c.Headers = make(map[string]string, len(f.Headers))
		for k, v := range f.Headers {
			c.Headers[k] = v
		}
	}

	if f.Attachments != nil {
		c.Attachments = make([]Attachment, len(f.Attachments))
		for i, a := range f.Attachments {
			a.Content = bytes.Clone(a.Content)
			c.Attachments[i] = a
		}
	}
	return c
}

// Validate checks the preconditions for dispatching the email.
func (f Fields) Validate() error {
	if len(f.To) == 0 {
		return &ValidationError{Field: "to", Err: ErrMissingRecipient}
	}
	return nil
}

func cloneStrings(s []string) []string {
	if s == nil {
		return nil
	}
	return append(make([]string, 0, len(s)), s...)
}
