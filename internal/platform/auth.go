package platform

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

// CredentialSource yields a bearer token for platform API calls. The two
// deployment variants are a service credential (PAT or OAuth M2M, shared by
// all requests) and a per-request credential (the caller's own forwarded
// token).
type CredentialSource interface {
	Token(ctx context.Context) (string, error)
}

// patSource is a static personal access token.
type patSource struct {
	token string
}

func (s *patSource) Token(ctx context.Context) (string, error) {
	return s.token, nil
}

// forwardedSource uses the caller's token carried in the request context.
type forwardedSource struct{}

func (s *forwardedSource) Token(ctx context.Context) (string, error) {
	token := UserTokenFromContext(ctx)
	if token == "" {
		return "", fmt.Errorf("per-request auth enabled but no forwarded token on request")
	}
	return token, nil
}

// oauthRefreshMargin renews the cached M2M token slightly before expiry so
// an in-flight call never carries a token that lapses mid-request.
const oauthRefreshMargin = time.Minute

// oauthSource exchanges client credentials at the OAuth token endpoint and
// caches the result until shortly before expiry. Concurrent refreshes
// collapse into one exchange.
type oauthSource struct {
	tokenURL     string
	clientID     string
	clientSecret string
	httpc        *http.Client

	mu     sync.Mutex
	token  string
	expiry time.Time

	group singleflight.Group
}

func newOAuthSource(host, clientID, clientSecret string, httpc *http.Client) *oauthSource {
	return &oauthSource{
		tokenURL:     host + "/oidc/v1/token",
		clientID:     clientID,
		clientSecret: clientSecret,
		httpc:        httpc,
	}
}

func (s *oauthSource) Token(ctx context.Context) (string, error) {
	s.mu.Lock()
	if s.token != "" && time.Until(s.expiry) > oauthRefreshMargin {
		token := s.token
		s.mu.Unlock()
		return token, nil
	}
	s.mu.Unlock()

	v, err, _ := s.group.Do("token", func() (any, error) {
		// Re-check under the flight: a concurrent caller may have
		// refreshed while this one waited.
		s.mu.Lock()
		if s.token != "" && time.Until(s.expiry) > oauthRefreshMargin {
			token := s.token
			s.mu.Unlock()
			return token, nil
		}
		s.mu.Unlock()

		token, expiry, err := s.exchange(ctx)
		if err != nil {
			return "", err
		}

		s.mu.Lock()
		s.token = token
		s.expiry = expiry
		s.mu.Unlock()
		return token, nil
	})
	if err != nil {
		return "", err
	}
	return v.(string), nil
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int    `json:"expires_in"`
}

func (s *oauthSource) exchange(ctx context.Context) (string, time.Time, error) {
	form := url.Values{}
	form.Set("grant_type", "client_credentials")
	form.Set("scope", "all-apis")

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.tokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return "", time.Time{}, fmt.Errorf("failed to build token request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.SetBasicAuth(s.clientID, s.clientSecret)

	resp, err := s.httpc.Do(req)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("token exchange failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 4<<10))
		return "", time.Time{}, fmt.Errorf("token exchange failed with status %d: %s", resp.StatusCode, strings.TrimSpace(string(data)))
	}

	var tr tokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&tr); err != nil {
		return "", time.Time{}, fmt.Errorf("failed to decode token response: %w", err)
	}
	if tr.AccessToken == "" {
		return "", time.Time{}, fmt.Errorf("token endpoint returned empty access token")
	}

	return tr.AccessToken, time.Now().Add(time.Duration(tr.ExpiresIn) * time.Second), nil
}
