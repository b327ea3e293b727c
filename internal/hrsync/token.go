package hrsync

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"
)

// ErrAuthFailed indicates the HR API rejected our credentials.
var ErrAuthFailed = errors.New("hrsync: authentication failed")

// TokenSource maintains an OAuth2 access token using the refresh-token
// grant. Tokens are cached until shortly before expiry.
type TokenSource struct {
	TokenURL     string
	ClientID     string
	ClientSecret string
	RefreshToken string
	HTTPClient   *http.Client

	now func() time.Time

	mu      sync.Mutex
	access  string
	expires time.Time
}

// NewTokenSource builds a token source for the refresh-token grant.
func NewTokenSource(tokenURL, clientID, clientSecret, refreshToken string) *TokenSource {
	return &TokenSource{
		TokenURL:     tokenURL,
		ClientID:     clientID,
		ClientSecret: clientSecret,
		RefreshToken: refreshToken,
		HTTPClient:   &http.Client{Timeout: 15 * time.Second},
		now:          time.Now,
	}
}

// Token returns a valid access token, refreshing when the cached one
// is missing or about to expire.
func (t *TokenSource) Token(ctx context.Context) (string, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.access != "" && t.now().Before(t.expires.Add(-30*time.Second)) {
		return t.access, nil
	}
	return t.refreshLocked(ctx)
}

// Invalidate drops the cached token so the next call refreshes.
func (t *TokenSource) Invalidate() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.access = ""
}

func (t *TokenSource) refreshLocked(ctx context.Context) (string, error) {
	form := url.Values{
		"grant_type":    {"refresh_token"},
		"refresh_token": {t.RefreshToken},
		"client_id":     {t.ClientID},
		"client_secret": {t.ClientSecret},
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.TokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := t.HTTPClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("hrsync: token refresh: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusBadRequest {
		return "", ErrAuthFailed
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("hrsync: token refresh: unexpected status %d", resp.StatusCode)
	}

	var payload struct {
		AccessToken string `json:"access_token"`
		ExpiresIn   int64  `json:"expires_in"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return "", fmt.Errorf("hrsync: token refresh: decode: %w", err)
	}
	if payload.AccessToken == "" {
		return "", ErrAuthFailed
	}
	t.access = payload.AccessToken
	if payload.ExpiresIn <= 0 {
		payload.ExpiresIn = 3600
	}
	t.expires = t.now().Add(time.Duration(payload.ExpiresIn) * time.Second)
	return t.access, nil
}
