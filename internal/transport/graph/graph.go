// Package graph implements a Transport that sends emails through the
// Microsoft Graph sendMail API with OAuth2 client credentials.
package graph

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/shineum/supermail/internal/compose"
	"github.com/shineum/supermail/internal/transport/retry"
)

// Config holds the configuration for creating a Transport.
type Config struct {
	TenantID     string
	ClientID     string
	ClientSecret string
	Sender       string
}

const (
	maxRetries     = 3
	baseRetryDelay = time.Second
	requestTimeout = 30 * time.Second

	// maxErrorBody caps how much of an error response is read.
	maxErrorBody = 64 << 10
)

// Transport sends emails from the configured sender's mailbox via the
// Microsoft Graph API.
type Transport struct {
	sendURL    string
	client     *http.Client
	tokens     *tokenSource
	retryDelay time.Duration
}

// New creates a new Transport with the given configuration.
func New(cfg Config) *Transport {
	return newTransport(cfg,
		"https://graph.microsoft.com/v1.0",
		"https://login.microsoftonline.com/"+url.PathEscape(cfg.TenantID)+"/oauth2/v2.0/token",
		&http.Client{Timeout: requestTimeout},
	)
}

// newTransport wires a Transport against the given API base and token
// endpoint. Tests point both at httptest servers.
func newTransport(cfg Config, apiBase, tokenURL string, base *http.Client) *Transport {
	tokens := newTokenSource(tokenURL, cfg.ClientID, cfg.ClientSecret, base)
	return &Transport{
		sendURL:    apiBase + "/users/" + url.PathEscape(cfg.Sender) + "/sendMail",
		client:     authorizedClient(base, tokens),
		tokens:     tokens,
		retryDelay: baseRetryDelay,
	}
}

// Send posts msg to sendMail. Transient failures are retried with backoff,
// a 429 waits for Retry-After and a 401 fetches a new token once.
func (g *Transport) Send(ctx context.Context, msg *compose.Message) error {
	payload, err := json.Marshal(buildSendMailRequest(msg))
	if err != nil {
		return fmt.Errorf("failed to marshal request body: %w", err)
	}

	refreshed := false
	policy := retry.Policy{
		Retries: maxRetries,
		Base:    g.retryDelay,
		OnRetry: func(attempt int, wait time.Duration, err error) {
			slog.Info("retrying Graph sendMail",
				"attempt", attempt,
				"delay", wait,
				"error", err,
			)
		},
	}

	err = retry.Do(ctx, policy, func(ctx context.Context, _ int) error {
		err := g.post(ctx, payload)

		var tokErr *tokenError
		var apiErr *sendError
		switch {
		case err == nil:
			return nil
		case errors.As(err, &tokErr):
			return retry.Permanent(tokErr)
		case !errors.As(err, &apiErr):
			return err
		case apiErr.statusCode == http.StatusUnauthorized && !refreshed:
			refreshed = true
			g.tokens.Reset()
			return retry.After(0, apiErr)
		case apiErr.statusCode == http.StatusTooManyRequests && apiErr.retryAfter > 0:
			return retry.After(apiErr.retryAfter, apiErr)
		case apiErr.Temporary():
			return apiErr
		default:
			return retry.Permanent(apiErr)
		}
	})

	var exhausted *retry.ExhaustedError
	if errors.As(err, &exhausted) {
		return fmt.Errorf("Graph sendMail failed after %d retries: %w", maxRetries, exhausted.Err)
	}
	return err
}

// Name returns the transport name.
func (g *Transport) Name() string {
	return "msgraph"
}

// post performs one sendMail request. Graph answers 202 Accepted on
// success.
func (g *Transport) post(ctx context.Context, payload []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.sendURL, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := g.client.Do(req)
	if err != nil {
		return fmt.Errorf("sendMail request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusAccepted || resp.StatusCode == http.StatusOK {
		io.Copy(io.Discard, resp.Body)
		return nil
	}

	body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	return newSendError(resp, body)
}

// sendError is a non-success answer from sendMail.
type sendError struct {
	statusCode int
	code       string
	message    string
	retryAfter time.Duration
}

func newSendError(resp *http.Response, body []byte) *sendError {
	e := &sendError{
		statusCode: resp.StatusCode,
		message:    string(body),
		retryAfter: parseRetryAfter(resp.Header.Get("Retry-After")),
	}

	var parsed graphErrorResponse
	if err := json.Unmarshal(body, &parsed); err == nil && parsed.Error.Message != "" {
		e.code = parsed.Error.Code
		e.message = parsed.Error.Message
	}
	return e
}

func (e *sendError) Error() string {
	if e.code != "" {
		return fmt.Sprintf("Graph API error (HTTP %d, %s): %s", e.statusCode, e.code, e.message)
	}
	return fmt.Sprintf("Graph API error (HTTP %d): %s", e.statusCode, e.message)
}

// Temporary reports whether resending the same request may succeed.
func (e *sendError) Temporary() bool {
	switch {
	case e.statusCode == http.StatusUnauthorized,
		e.statusCode == http.StatusTooManyRequests,
		e.statusCode >= 500:
		return true
	}
	return false
}

// parseRetryAfter reads a Retry-After header given in seconds. Zero means
// "use the backoff delay".
func parseRetryAfter(v string) time.Duration {
	seconds, err := strconv.Atoi(v)
	if err != nil || seconds <= 0 {
		return 0
	}
	return time.Duration(seconds) * time.Second
}
