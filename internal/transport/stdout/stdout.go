// Package stdout implements a Transport that prints emails to standard output.
package stdout

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/shineum/supermail/internal/compose"
)

const separator = "========================================\n"

// Transport prints composed messages in a human-readable format, or as the
// raw RFC 5322 document when Raw is set.
type Transport struct {
	writer io.Writer

	// Raw switches the output to the rendered MIME message.
	Raw bool
}

// New creates a stdout Transport that writes to os.Stdout.
func New() *Transport {
	return &Transport{writer: os.Stdout}
}

// NewWithWriter creates a Transport that writes to w.
func NewWithWriter(w io.Writer) *Transport {
	return &Transport{writer: w}
}

// Send prints the message. Only write and render errors are returned.
func (t *Transport) Send(_ context.Context, msg *compose.Message) error {
	if t.Raw {
		if _, err := msg.WriteTo(t.writer); err != nil {
			return fmt.Errorf("failed to write message: %w", err)
		}
		_, err := io.WriteString(t.writer, "\n")
		return err
	}

	var b strings.Builder

	b.WriteString(separator)
	for _, f := range msg.Header.Fields() {
		fmt.Fprintf(&b, "%s: %s\n", f.Name, f.Value)
	}
	if len(msg.Bcc) > 0 {
		fmt.Fprintf(&b, "Bcc: %s\n", strings.Join(msg.Bcc, ", "))
	}

	if msg.Body.IsMultipart() {
		fmt.Fprintf(&b, "Body (text):\n%s\n", msg.Body.Text.Content)
		fmt.Fprintf(&b, "Body (html):\n%s\n", msg.Body.HTML.Content)
	} else {
		fmt.Fprintf(&b, "Body:\n%s\n", msg.Body.Text.Content)
	}

	if len(msg.Attachments) > 0 {
		attachments := make([]string, 0, len(msg.Attachments))
		for _, att := range msg.Attachments {
			attachments = append(attachments, fmt.Sprintf("%s (%s)", att.Filename, formatSize(len(att.Content))))
		}
		fmt.Fprintf(&b, "Attachments: %s\n", strings.Join(attachments, ", "))
	}

	b.WriteString(separator)

	if _, err := io.WriteString(t.writer, b.String()); err != nil {
		return fmt.Errorf("failed to write message: %w", err)
	}
	return nil
}

// Name returns the transport name.
func (t *Transport) Name() string {
	return "stdout"
}

// formatSize formats a byte count into a human-readable string.
func formatSize(bytes int) string {
	const (
		kb = 1024
		mb = kb * 1024
	)

	switch {
	case bytes >= mb:
		return fmt.Sprintf("%.1f MB", float64(bytes)/float64(mb))
	case bytes >= kb:
		return fmt.Sprintf("%.1f KB", float64(bytes)/float64(kb))
	default:
		return fmt.Sprintf("%d B", bytes)
	}
}
