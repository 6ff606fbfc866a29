// Package mbox implements a Transport that appends messages to a local
// mbox file. It is meant for development and archiving.
package mbox

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"net/mail"
	"os"
	"sync"
	"time"

	"github.com/emersion/go-mbox"

	"github.com/shineum/supermail/internal/compose"
)

// defaultEnvelopeSender is used on the "From " line when the message has
// no parseable From address.
const defaultEnvelopeSender = "MAILER-DAEMON"

// Transport appends rendered messages to an mbox file. Appends are
// serialised, so one Transport may be shared by many goroutines.
type Transport struct {
	mu   sync.Mutex
	path string
	now  func() time.Time
}

// New creates a Transport writing to path. The file is created on first use.
func New(path string) *Transport {
	return &Transport{path: path, now: time.Now}
}

// Send renders msg and appends it to the mbox file.
func (t *Transport) Send(ctx context.Context, msg *compose.Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	raw, err := msg.Bytes()
	if err != nil {
		return fmt.Errorf("failed to render message: %w", err)
	}
	raw = bytes.ReplaceAll(raw, []byte("\r\n"), []byte("\n"))

	date := msg.Date
	if date.IsZero() {
		date = t.now()
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	f, err := os.OpenFile(t.path, os.O_WRONLY|os.O_CREATE|os.O_APPEND, 0o600)
	if err != nil {
		return fmt.Errorf("failed to open mbox %s: %w", t.path, err)
	}

	w := mbox.NewWriter(f)
	mw, err := w.CreateMessage(envelopeSender(msg), date)
	if err != nil {
		f.Close()
		return fmt.Errorf("failed to start mbox message: %w", err)
	}
	if _, err := mw.Write(raw); err != nil {
		f.Close()
		return fmt.Errorf("failed to write mbox message: %w", err)
	}
	if err := w.Close(); err != nil {
		f.Close()
		return fmt.Errorf("failed to finish mbox message: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("failed to close mbox %s: %w", t.path, err)
	}

	slog.Debug("email appended to mbox", "path", t.path, "bytes", len(raw))
	return nil
}

// Name returns the transport name.
func (t *Transport) Name() string {
	return "mbox"
}

func envelopeSender(msg *compose.Message) string {
	if len(msg.From) == 0 {
		return defaultEnvelopeSender
	}
	addr, err := mail.ParseAddress(msg.From[0])
	if err != nil {
		return defaultEnvelopeSender
	}
	return addr.Address
}
