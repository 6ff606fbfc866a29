package graph

import (
	"context"
	"net/http"
	"sync"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"
)

// graphScope is the OAuth2 scope for application permissions on Graph.
const graphScope = "https://graph.microsoft.com/.default"

// tokenSource is a client-credentials token source that can drop its cached
// token when Graph rejects it before expiry.
type tokenSource struct {
	cfg *clientcredentials.Config
	ctx context.Context

	mu  sync.Mutex
	src oauth2.TokenSource
}

// tokenError marks a failure to obtain an access token, as opposed to a
// failure talking to Graph itself.
type tokenError struct {
	err error
}

func (e *tokenError) Error() string { return "failed to get access token: " + e.err.Error() }
func (e *tokenError) Unwrap() error { return e.err }

// newTokenSource returns a token source for the tenant's token endpoint.
// Token requests go through httpClient, never through the authorized client.
func newTokenSource(tokenURL, clientID, clientSecret string, httpClient *http.Client) *tokenSource {
	cfg := &clientcredentials.Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		TokenURL:     tokenURL,
		Scopes:       []string{graphScope},
		AuthStyle:    oauth2.AuthStyleInParams,
	}
	ctx := context.WithValue(context.Background(), oauth2.HTTPClient, httpClient)

	return &tokenSource{cfg: cfg, ctx: ctx, src: cfg.TokenSource(ctx)}
}

// Token implements oauth2.TokenSource. Tokens are reused until shortly
// before they expire.
func (s *tokenSource) Token() (*oauth2.Token, error) {
	s.mu.Lock()
	src := s.src
	s.mu.Unlock()

	tok, err := src.Token()
	if err != nil {
		return nil, &tokenError{err: err}
	}
	return tok, nil
}

// Reset discards the cached token; the next Token call requests a new one.
func (s *tokenSource) Reset() {
	s.mu.Lock()
	s.src = s.cfg.TokenSource(s.ctx)
	s.mu.Unlock()
}

// authorizedClient returns a copy of base whose requests carry a bearer
// token from src.
func authorizedClient(base *http.Client, src oauth2.TokenSource) *http.Client {
	rt := base.Transport
	if rt == nil {
		rt = http.DefaultTransport
	}
	return &http.Client{
		Timeout:   base.Timeout,
		Transport: &oauth2.Transport{Source: src, Base: rt},
	}
}
