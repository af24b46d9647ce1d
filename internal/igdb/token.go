package igdb

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"
)

// tokenExpiryBuffer refreshes the app token this long before it actually expires
const tokenExpiryBuffer = 60 * time.Second

// TokenProvider supplies app access tokens for the catalog API
type TokenProvider interface {
	ClientID() string
	Token(ctx context.Context) (string, error)
	// Invalidate drops any cached token so the next call fetches a fresh one
	Invalidate()
}

// TwitchTokenProvider obtains client-credentials tokens from the Twitch OAuth
// endpoint and shares one valid token across the process. At most one fetch
// is in flight; callers waiting on it give up when their context ends.
type TwitchTokenProvider struct {
	cfg        clientcredentials.Config
	httpClient *http.Client
	now        func() time.Time

	fetching chan struct{} // holds one slot while a caller owns the cache
	mu       sync.Mutex
	tok      *oauth2.Token
}

// NewTwitchTokenProvider creates a provider for the given app credentials
func NewTwitchTokenProvider(clientID, clientSecret, tokenURL string, timeout time.Duration) *TwitchTokenProvider {
	return &TwitchTokenProvider{
		cfg: clientcredentials.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			TokenURL:     tokenURL,
			AuthStyle:    oauth2.AuthStyleInParams,
		},
		httpClient: &http.Client{Timeout: timeout},
		now:        time.Now,
		fetching:   make(chan struct{}, 1),
	}
}

// ClientID returns the app client id sent alongside every request
func (p *TwitchTokenProvider) ClientID() string {
	return p.cfg.ClientID
}

// Token returns a valid access token, fetching a new one on the caller's
// context when the cached one is missing or inside the expiry buffer
func (p *TwitchTokenProvider) Token(ctx context.Context) (string, error) {
	if tok := p.cached(); tok != "" {
		return tok, nil
	}

	select {
	case p.fetching <- struct{}{}:
	case <-ctx.Done():
		return "", fmt.Errorf("fetching app token: %w", ctx.Err())
	}
	defer func() { <-p.fetching }()

	// Another caller may have refreshed while we waited
	if tok := p.cached(); tok != "" {
		return tok, nil
	}

	tok, err := p.cfg.Token(context.WithValue(ctx, oauth2.HTTPClient, p.httpClient))
	if err != nil {
		return "", fmt.Errorf("fetching app token: %w", err)
	}

	p.mu.Lock()
	p.tok = tok
	p.mu.Unlock()
	return tok.AccessToken, nil
}

func (p *TwitchTokenProvider) cached() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.tok == nil || p.tok.AccessToken == "" {
		return ""
	}
	if !p.tok.Expiry.IsZero() && !p.now().Add(tokenExpiryBuffer).Before(p.tok.Expiry) {
		return ""
	}
	return p.tok.AccessToken
}

// Invalidate forgets the cached token
func (p *TwitchTokenProvider) Invalidate() {
	p.mu.Lock()
	p.tok = nil
	p.mu.Unlock()
}
