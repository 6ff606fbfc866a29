package compose

import (
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/mail"
	"net/textproto"
	"strings"
)

// base64LineLength is the maximum encoded line length per RFC 2045.
const base64LineLength = 76

// ErrInvalidHeader is returned when a header field name is malformed or a
// value contains a line break.
var ErrInvalidHeader = errors.New("compose: invalid header field")

// addressFields are encoded address by address so only display names
// become encoded-words.
var addressFields = map[string]bool{
	"from":     true,
	"to":       true,
	"cc":       true,
	"reply-to": true,
}

// ValidateHeader returns the first header field error Bytes would hit.
func (m *Message) ValidateHeader() error {
	for _, f := range m.Header.fields {
		if err := checkField(f); err != nil {
			return err
		}
	}
	return nil
}

func checkField(f Field) error {
	if !validFieldName(f.Name) {
		return fmt.Errorf("%w: bad name %q", ErrInvalidHeader, f.Name)
	}
	if strings.ContainsAny(f.Value, "\r\n") {
		return fmt.Errorf("%w: line break in %s", ErrInvalidHeader, f.Name)
	}
	return nil
}

// formatField renders one header line, CRLF terminated.
func formatField(f Field) (string, error) {
	if err := checkField(f); err != nil {
		return "", err
	}

	value := f.Value
	if addressFields[strings.ToLower(f.Name)] {
		value = encodeAddressList(value)
	} else {
		value = mime.QEncoding.Encode("UTF-8", value)
	}
	return f.Name + ": " + value + "\r\n", nil
}

// validFieldName reports whether name is printable ASCII without a colon
// (RFC 5322 section 2.2).
func validFieldName(name string) bool {
	if name == "" {
		return false
	}
	for i := 0; i < len(name); i++ {
		if c := name[i]; c < '!' || c > '~' || c == ':' {
			return false
		}
	}
	return true
}

// encodeAddressList leaves ASCII lists untouched and re-formats the rest
// with net/mail, which encodes non-ASCII display names.
func encodeAddressList(v string) string {
	if isASCII(v) {
		return v
	}
	list, err := mail.ParseAddressList(v)
	if err != nil {
		return mime.QEncoding.Encode("UTF-8", v)
	}
	parts := make([]string, len(list))
	for i, a := range list {
		if a.Name == "" {
			parts[i] = a.Address
			continue
		}
		parts[i] = a.String()
	}
	return strings.Join(parts, ", ")
}

func isASCII(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] >= 0x80 {
			return false
		}
	}
	return true
}

// Bytes renders the message as an RFC 5322 document with MIME parts.
// Plain messages are a single text/plain part, HTML bodies become
// multipart/alternative, and attachments wrap the body in multipart/mixed.
// Non-ASCII header values are RFC 2047 encoded. A header that would break
// the header block fails with ErrInvalidHeader.
func (m *Message) Bytes() ([]byte, error) {
	var buf bytes.Buffer

	for _, f := range m.Header.Fields() {
		line, err := formatField(f)
		if err != nil {
			return nil, err
		}
		buf.WriteString(line)
	}
	buf.WriteString("MIME-Version: 1.0\r\n")

	if len(m.Attachments) == 0 {
		contentType, content, err := renderBody(m.Body)
		if err != nil {
			return nil, err
		}
		fmt.Fprintf(&buf, "Content-Type: %s\r\n", contentType)
		if !m.Body.IsMultipart() {
			buf.WriteString("Content-Transfer-Encoding: 8bit\r\n")
		}
		buf.WriteString("\r\n")
		buf.Write(content)
		return buf.Bytes(), nil
	}

	writer := multipart.NewWriter(&buf)
	fmt.Fprintf(&buf, "Content-Type: multipart/mixed; boundary=%q\r\n\r\n", writer.Boundary())

	contentType, content, err := renderBody(m.Body)
	if err != nil {
		return nil, err
	}
	bodyHeader := make(textproto.MIMEHeader)
	bodyHeader.Set("Content-Type", contentType)
	if !m.Body.IsMultipart() {
		bodyHeader.Set("Content-Transfer-Encoding", "8bit")
	}
	part, err := writer.CreatePart(bodyHeader)
	if err != nil {
		return nil, fmt.Errorf("failed to create body part: %w", err)
	}
	if _, err := part.Write(content); err != nil {
		return nil, fmt.Errorf("failed to write body part: %w", err)
	}

	for _, att := range m.Attachments {
		attHeader := make(textproto.MIMEHeader)
		attHeader.Set("Content-Type", att.ContentType)
		attHeader.Set("Content-Transfer-Encoding", "base64")
		attHeader.Set("Content-Disposition",
			mime.FormatMediaType("attachment", map[string]string{"filename": att.Filename}))

		part, err := writer.CreatePart(attHeader)
		if err != nil {
			return nil, fmt.Errorf("failed to create attachment part: %w", err)
		}
		if _, err := io.WriteString(part, encodeBase64WithLineBreaks(att.Content)); err != nil {
			return nil, fmt.Errorf("failed to write attachment %q: %w", att.Filename, err)
		}
	}

	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("failed to close multipart message: %w", err)
	}
	return buf.Bytes(), nil
}

// WriteTo writes the rendered message to w.
func (m *Message) WriteTo(w io.Writer) (int64, error) {
	raw, err := m.Bytes()
	if err != nil {
		return 0, err
	}
	n, err := w.Write(raw)
	return int64(n), err
}

// renderBody returns the content type and encoded content of the body:
// the text part itself, or a multipart/alternative of text and HTML.
func renderBody(body Body) (string, []byte, error) {
	if !body.IsMultipart() {
		return body.Text.ContentType, []byte(body.Text.Content), nil
	}

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	for _, p := range []Part{body.Text, *body.HTML} {
		h := make(textproto.MIMEHeader)
		h.Set("Content-Type", p.ContentType)
		h.Set("Content-Transfer-Encoding", "8bit")
		part, err := writer.CreatePart(h)
		if err != nil {
			return "", nil, fmt.Errorf("failed to create alternative part: %w", err)
		}
		if _, err := io.WriteString(part, p.Content); err != nil {
			return "", nil, fmt.Errorf("failed to write alternative part: %w", err)
		}
	}
	if err := writer.Close(); err != nil {
		return "", nil, fmt.Errorf("failed to close alternative part: %w", err)
	}

	contentType := mime.FormatMediaType("multipart/alternative", map[string]string{"boundary": writer.Boundary()})
	return contentType, buf.Bytes(), nil
}

// encodeBase64WithLineBreaks encodes bytes to base64 with 76-character line breaks per RFC 2045.
func encodeBase64WithLineBreaks(data []byte) string {
	encoded := base64.StdEncoding.EncodeToString(data)
	var lines []string
	for i := 0; i < len(encoded); i += base64LineLength {
		end := i + base64LineLength
		if end > len(encoded) {
			end = len(encoded)
		}
		lines = append(lines, encoded[i:end])
	}
	return strings.Join(lines, "\r\n")
}
