// Package compose turns an email field set into a structured, transport
// ready message. Composition is pure: it performs no I/O, never fails and
// produces the same message for the same fields.
package compose

import (
	"bytes"
	"sort"
	"strings"
	"time"

	"github.com/shineum/supermail/internal/email"
)

// Content types of the body parts.
const (
	TextContentType = "text/plain; charset=UTF-8"
	HTMLContentType = "text/html; charset=UTF-8"
)

// Message is a composed email. It is owned by the caller that requested
// composition.
type Message struct {
	// Header is the rendered header block, without MIME content headers.
	// Bcc is never part of it.
	Header Header

	From       []string
	To         []string
	Cc         []string
	Bcc        []string
	ReplyTo    []string
	ReturnPath string
	Subject    string
	Date       time.Time
	MessageID  string

	Body        Body
	Attachments []Attachment
}

// Part is a single body part.
type Part struct {
	ContentType string
	Content     string
}

// Body is either plain (HTML is nil) or multipart with a text and an HTML
// alternative.
type Body struct {
	Text Part
	HTML *Part
}

// IsMultipart reports whether the body carries an HTML alternative.
func (b Body) IsMultipart() bool {
	return b.HTML != nil
}

// Attachment is an attachment part.
type Attachment struct {
	Filename    string
	ContentType string
	Content     []byte
}

// Compose builds a Message from the fields described by m. A missing
// recipient is tolerated here; it is a dispatch precondition. The message
// shares no memory with the fields.
func Compose(m email.Mailer) *Message {
	f := m.Fields()

	msg := &Message{
		From:       cloneStrings(f.From),
		To:         cloneStrings(f.To),
		Cc:         nonNil(cloneStrings(f.Cc)),
		Bcc:        nonNil(cloneStrings(f.Bcc)),
		ReplyTo:    cloneStrings(f.ReplyTo),
		ReturnPath: f.ReturnPath,
		Subject:    f.Subject,
		Date:       f.Date,
		MessageID:  f.MessageID,
	}

	setList(&msg.Header, "From", f.From)
	setList(&msg.Header, "To", f.To)
	setList(&msg.Header, "Cc", f.Cc)
	setList(&msg.Header, "Reply-To", f.ReplyTo)
	if f.ReturnPath != "" {
		msg.Header.Set("Return-Path", f.ReturnPath)
	}
	if !f.Date.IsZero() {
		msg.Header.Set("Date", f.Date.Format(time.RFC1123Z))
	}
	if f.MessageID != "" {
		msg.Header.Set("Message-ID", f.MessageID)
	}
	if f.InReplyTo != "" {
		msg.Header.Set("In-Reply-To", f.InReplyTo)
	}
	if len(f.References) > 0 {
		msg.Header.Set("References", strings.Join(f.References, " "))
	}

	names := make([]string, 0, len(f.Headers))
	for name := range f.Headers {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		msg.Header.Set(name, f.Headers[name])
	}

	if f.Subject != "" {
		msg.Header.Set("Subject", f.Subject)
	}
	// A custom Subject header stands in for an empty Subject field.
	msg.Subject = msg.Header.Get("Subject")

	msg.Body = composeBody(f.TextBody, f.HTMLBody)

	msg.Attachments = make([]Attachment, 0, len(f.Attachments))
	for _, att := range f.Attachments {
		msg.Attachments = append(msg.Attachments, Attachment{
			Filename:    att.Filename,
			ContentType: att.MediaType(),
			Content:     bytes.Clone(att.Content),
		})
	}

	return msg
}

// composeBody picks a multipart body only when the HTML has non-blank
// content. The trimmed form decides the branch; the parts keep the
// original content.
func composeBody(text, html string) Body {
	body := Body{Text: Part{ContentType: TextContentType, Content: text}}
	if strings.TrimSpace(html) != "" {
		body.HTML = &Part{ContentType: HTMLContentType, Content: html}
	}
	return body
}

// Recipients returns every envelope recipient: To, Cc and Bcc.
func (m *Message) Recipients() []string {
	rcpts := make([]string, 0, len(m.To)+len(m.Cc)+len(m.Bcc))
	rcpts = append(rcpts, m.To...)
	rcpts = append(rcpts, m.Cc...)
	return append(rcpts, m.Bcc...)
}

// SetMessageID sets the Message-ID on the message and its header block.
func (m *Message) SetMessageID(id string) {
	m.MessageID = id
	m.Header.Set("Message-ID", id)
}

// SetDate sets the Date on the message and its header block.
func (m *Message) SetDate(t time.Time) {
	m.Date = t
	m.Header.Set("Date", t.Format(time.RFC1123Z))
}

// Clone returns a deep copy of the message.
func (m *Message) Clone() *Message {
	c := *m
	c.Header = Header{fields: m.Header.Fields()}
	c.From = cloneStrings(m.From)
	c.To = cloneStrings(m.To)
	c.Cc = cloneStrings(m.Cc)
	c.Bcc = cloneStrings(m.Bcc)
	c.ReplyTo = cloneStrings(m.ReplyTo)
	if m.Body.HTML != nil {
		html := *m.Body.HTML
		c.Body.HTML = &html
	}
	if m.Attachments != nil {
		c.Attachments = make([]Attachment, len(m.Attachments))
		for i, a := range m.Attachments {
			a.Content = bytes.Clone(a.Content)
			c.Attachments[i] = a
		}
	}
	return &c
}

func setList(h *Header, name string, addrs []string) {
	if len(addrs) > 0 {
		h.Set(name, strings.Join(addrs, ", "))
	}
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

func cloneStrings(s []string) []string {
	if s == nil {
		return nil
	}
	return append(make([]string, 0, len(s)), s...)
}
