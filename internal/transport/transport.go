// Package transport defines the interface for email delivery backends.
package transport

import (
	"context"

	"github.com/shineum/supermail/internal/compose"
)

// Transport is the interface that email delivery backends must implement.
// Each transport hands a composed message to the target service (e.g.,
// stdout, SES, Postmark, an SMTP relay or an mbox file).
type Transport interface {
	// Send delivers a composed message through this transport.
	// It returns an error if the delivery fails.
	Send(ctx context.Context, msg *compose.Message) error

	// Name returns the human-readable name of this transport.
	Name() string
}

// Func adapts a function to the Transport interface.
type Func func(ctx context.Context, msg *compose.Message) error

// Send calls f(ctx, msg).
func (f Func) Send(ctx context.Context, msg *compose.Message) error {
	return f(ctx, msg)
}

// Name returns "func".
func (f Func) Name() string {
	return "func"
}
