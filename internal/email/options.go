package email

import "time"

// Option configures a field set built by New.
type Option func(*Fields)

func To(addrs ...string) Option {
	return func(f *Fields) { f.To = append(f.To, addrs...) }
}

func From(addrs ...string) Option {
	return func(f *Fields) { f.From = append(f.From, addrs...) }
}

func ReplyTo(addrs ...string) Option {
	return func(f *Fields) { f.ReplyTo = append(f.ReplyTo, addrs...) }
}

func ReturnPath(addr string) Option {
	return func(f *Fields) { f.ReturnPath = addr }
}

func Cc(addrs ...string) Option {
	return func(f *Fields) { f.Cc = append(f.Cc, addrs...) }
}

func Bcc(addrs ...string) Option {
	return func(f *Fields) { f.Bcc = append(f.Bcc, addrs...) }
}

func Subject(s string) Option {
	return func(f *Fields) { f.Subject = s }
}

func Date(t time.Time) Option {
	return func(f *Fields) { f.Date = t }
}

func MessageID(id string) Option {
	return func(f *Fields) { f.MessageID = id }
}

func InReplyTo(id string) Option {
	return func(f *Fields) { f.InReplyTo = id }
}

func References(ids ...string) Option {
	return func(f *Fields) { f.References = append(f.References, ids...) }
}

// Text sets the plain-text body.
func Text(body string) Option {
	return func(f *Fields) { f.TextBody = body }
}

// HTML sets the HTML body.
func HTML(body string) Option {
	return func(f *Fields) { f.HTMLBody = body }
}

// Header sets a custom header. A later call with the same name replaces
// the earlier value.
func Header(name, value string) Option {
	return func(f *Fields) {
		if f.Headers == nil {
			f.Headers = map[string]string{}
		}
		f.Headers[name] = value
	}
}

// Attach appends an attachment; the content type is inferred from the
// filename.
func Attach(filename string, content []byte) Option {
	return func(f *Fields) {
		f.Attachments = append(f.Attachments, Attachment{Filename: filename, Content: content})
	}
}
