package compose

import (
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shineum/supermail/internal/email"
)

// welcomeEmail is a caller-defined type describing an email.
type welcomeEmail struct {
	user string
}

func (w welcomeEmail) Fields() email.Fields {
	return email.New(
		email.To(w.user),
		email.From("website@example.com"),
		email.Subject("Welcome"),
		email.Text("Hi "+w.user),
	)
}

func TestCompose_PlainBody(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		text string
		html string
		want string
	}{
		{"text only", "Hello", "", "Hello"},
		{"no bodies", "", "", ""},
		{"blank html", "Hello", "   \n\t", "Hello"},
		{"whitespace text kept", "  ", "", "  "},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg := Compose(email.New(email.Text(tt.text), email.HTML(tt.html)))
			assert.False(t, msg.Body.IsMultipart())
			assert.Nil(t, msg.Body.HTML)
			assert.Equal(t, tt.want, msg.Body.Text.Content)
		})
	}
}

func TestCompose_MultipartBody(t *testing.T) {
	t.Parallel()

	msg := Compose(email.New(
		email.Text(""),
		email.HTML("  <h1>Hello</h1>\n"),
	))

	require.True(t, msg.Body.IsMultipart())
	assert.Equal(t, "", msg.Body.Text.Content)
	assert.Equal(t, "  <h1>Hello</h1>\n", msg.Body.HTML.Content)
	assert.Contains(t, msg.Body.HTML.ContentType, "text/html")
	assert.Contains(t, msg.Body.HTML.ContentType, "charset=UTF-8")
}

func TestCompose_Header(t *testing.T) {
	t.Parallel()

	date := time.Date(2024, 5, 6, 7, 8, 9, 0, time.UTC)
	msg := Compose(email.New(
		email.To("a@example.com", "b@example.com"),
		email.From("sender@example.com"),
		email.Cc("cc@example.com"),
		email.Bcc("hidden@example.com"),
		email.ReplyTo("reply@example.com"),
		email.ReturnPath("bounce@example.com"),
		email.Date(date),
		email.MessageID("<m1@example.com>"),
		email.InReplyTo("<m0@example.com>"),
		email.References("<r1@example.com>", "<m0@example.com>"),
		email.Subject("Status"),
		email.Header("X-Mailer", "supermail"),
	))

	h := &msg.Header
	assert.Equal(t, "sender@example.com", h.Get("From"))
	assert.Equal(t, "a@example.com, b@example.com", h.Get("To"))
	assert.Equal(t, "cc@example.com", h.Get("Cc"))
	assert.Equal(t, "reply@example.com", h.Get("Reply-To"))
	assert.Equal(t, "bounce@example.com", h.Get("Return-Path"))
	assert.Equal(t, date.Format(time.RFC1123Z), h.Get("Date"))
	assert.Equal(t, "<m1@example.com>", h.Get("message-id"))
	assert.Equal(t, "<m0@example.com>", h.Get("In-Reply-To"))
	assert.Equal(t, "<r1@example.com> <m0@example.com>", h.Get("References"))
	assert.Equal(t, "supermail", h.Get("X-Mailer"))
	assert.Equal(t, "Status", h.Get("Subject"))
	assert.False(t, h.Has("Bcc"))

	assert.Equal(t, []string{"hidden@example.com"}, msg.Bcc)
	assert.Equal(t,
		[]string{"a@example.com", "b@example.com", "cc@example.com", "hidden@example.com"},
		msg.Recipients())
}

func TestCompose_AbsentFieldsStayUnset(t *testing.T) {
	t.Parallel()

	msg := Compose(email.New(email.Text("x")))

	assert.Nil(t, msg.From)
	assert.Nil(t, msg.To)
	assert.Nil(t, msg.ReplyTo)
	assert.NotNil(t, msg.Cc)
	assert.NotNil(t, msg.Bcc)
	assert.NotNil(t, msg.Attachments)
	assert.Empty(t, msg.Header.Fields())
}

func TestCompose_CustomHeadersOverwrite(t *testing.T) {
	t.Parallel()

	msg := Compose(email.New(
		email.To("a@example.com"),
		email.Header("X-Priority", "1"),
		email.Header("To", "override@example.com"),
		email.Header("Subject", "from header"),
		email.Subject("from field"),
	))

	assert.Equal(t, "override@example.com", msg.Header.Get("To"))
	assert.Equal(t, "from field", msg.Header.Get("Subject"))
	assert.Equal(t, "from field", msg.Subject)
	assert.Equal(t, "1", msg.Header.Get("X-Priority"))

	count := 0
	for _, f := range msg.Header.Fields() {
		if strings.EqualFold(f.Name, "To") {
			count++
		}
	}
	assert.Equal(t, 1, count)
}

func TestCompose_SubjectHeaderKeptWithoutSubjectField(t *testing.T) {
	t.Parallel()

	msg := Compose(email.New(email.Header("Subject", "from header")))
	assert.Equal(t, "from header", msg.Header.Get("Subject"))
	assert.Equal(t, "from header", msg.Subject)
}

func TestCompose_AttachmentsInOrder(t *testing.T) {
	t.Parallel()

	f := email.New(
		email.Attach("b.txt", []byte("second?")),
		email.Attach("a.pdf", []byte("%PDF")),
	)
	f.Attachments = append(f.Attachments, email.Attachment{
		Filename: "raw.bin", Content: []byte{0, 1, 2}, ContentType: "application/x-custom",
	})

	msg := Compose(f)

	require.Len(t, msg.Attachments, 3)
	assert.Equal(t, "b.txt", msg.Attachments[0].Filename)
	assert.Equal(t, []byte("second?"), msg.Attachments[0].Content)
	assert.Contains(t, msg.Attachments[0].ContentType, "text/plain")
	assert.Equal(t, "a.pdf", msg.Attachments[1].Filename)
	assert.Equal(t, "application/pdf", msg.Attachments[1].ContentType)
	assert.Equal(t, "application/x-custom", msg.Attachments[2].ContentType)
	assert.Equal(t, []byte{0, 1, 2}, msg.Attachments[2].Content)
}

func TestCompose_Deterministic(t *testing.T) {
	t.Parallel()

	f := email.New(
		email.To("a@example.com"),
		email.Subject("Same"),
		email.Text("text"),
		email.HTML("<p>html</p>"),
		email.Header("X-B", "2"),
		email.Header("X-A", "1"),
		email.Header("X-C", "3"),
		email.Attach("a.txt", []byte("a")),
	)

	first := Compose(f)
	second := Compose(f)
	assert.Equal(t, first, second)
}

func TestCompose_DoesNotMutateOrAliasFields(t *testing.T) {
	t.Parallel()

	f := email.New(
		email.To("a@example.com"),
		email.Attach("a.txt", []byte("abc")),
	)
	msg := Compose(f)

	msg.To[0] = "changed@example.com"
	msg.Attachments[0].Content[0] = 'z'

	assert.Equal(t, "a@example.com", f.To[0])
	assert.Equal(t, []byte("abc"), f.Attachments[0].Content)
}

func TestCompose_MailerInterface(t *testing.T) {
	t.Parallel()

	msg := Compose(welcomeEmail{user: "user@example.com"})

	assert.Equal(t, []string{"user@example.com"}, msg.To)
	assert.Equal(t, "Welcome", msg.Subject)
	assert.Equal(t, "Hi user@example.com", msg.Body.Text.Content)
}

func TestCompose_Concurrent(t *testing.T) {
	t.Parallel()

	f := email.New(email.To("a@example.com"), email.HTML("<b>x</b>"))
	want := Compose(f)

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.Equal(t, want, Compose(f))
		}()
	}
	wg.Wait()
}

func TestMessage_CloneAndSetMessageID(t *testing.T) {
	t.Parallel()

	msg := Compose(email.New(email.To("a@example.com"), email.HTML("<p>x</p>")))
	c := msg.Clone()
	c.SetMessageID("<new@example.com>")
	c.Body.HTML.Content = "changed"

	assert.Equal(t, "<new@example.com>", c.Header.Get("Message-ID"))
	assert.Equal(t, "<new@example.com>", c.MessageID)
	assert.False(t, msg.Header.Has("Message-ID"))
	assert.Equal(t, "<p>x</p>", msg.Body.HTML.Content)
}

func TestHeader_SetKeepsPosition(t *testing.T) {
	t.Parallel()

	var h Header
	h.Set("A", "1")
	h.Set("B", "2")
	h.Set("a", "3")

	assert.Equal(t, []Field{{Name: "a", Value: "3"}, {Name: "B", Value: "2"}}, h.Fields())
	assert.Equal(t, "", h.Get("C"))
}

func TestMessage_SetDate(t *testing.T) {
	t.Parallel()

	msg := Compose(email.New(email.To("a@example.com"), email.Subject("hi")))
	require.False(t, msg.Header.Has("Date"))

	when := time.Date(2024, 3, 9, 14, 5, 0, 0, time.UTC)
	msg.SetDate(when)

	assert.Equal(t, when, msg.Date)
	assert.Equal(t, "Sat, 09 Mar 2024 14:05:00 +0000", msg.Header.Get("Date"))
}
