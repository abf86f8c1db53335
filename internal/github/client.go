// Package github performs the OAuth authorization-code exchange against
// GitHub and looks up the authenticated user's identity.
package github

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"golang.org/x/oauth2"
	githuboauth "golang.org/x/oauth2/github"
)

// ErrMissingUserID reports that GitHub's user-info endpoint returned no id.
var ErrMissingUserID = errors.New("user id not found from github")

// Config holds OAuth credentials. APIBaseURL and TokenURL are only set in
// tests to point the client at a local server.
type Config struct {
	ClientID     string
	ClientSecret string
	CallbackURL  string
	APIBaseURL   string
	AuthURL      string
	TokenURL     string
}

// UserInfo is the provider identity consumed by the rest of the service:
// the numeric GitHub id normalized to a string, plus the login name.
type UserInfo struct {
	ID    string
	Login string
}

type Client struct {
	oauth      *oauth2.Config
	apiBaseURL string
	httpClient *http.Client
}

func NewClient(cfg Config) *Client {
	endpoint := githuboauth.Endpoint
	if cfg.AuthURL != "" {
		endpoint.AuthURL = cfg.AuthURL
	}
	if cfg.TokenURL != "" {
		endpoint.TokenURL = cfg.TokenURL
	}

	apiBaseURL := cfg.APIBaseURL
	if apiBaseURL == "" {
		apiBaseURL = "https://api.github.com"
	}

	return &Client{
		oauth: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.CallbackURL,
			Endpoint:     endpoint,
		},
		apiBaseURL: apiBaseURL,
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
}

// AuthCodeURL returns the GitHub authorize URL the login route redirects to.
func (c *Client) AuthCodeURL(state string) string {
	return c.oauth.AuthCodeURL(state)
}

// Exchange trades an authorization code for an access token.
func (c *Client) Exchange(ctx context.Context, code string) (string, error) {
	ctx = context.WithValue(ctx, oauth2.HTTPClient, c.httpClient)
	token, err := c.oauth.Exchange(ctx, code)
	if err != nil {
		return "", fmt.Errorf("exchange authorization code: %w", err)
	}
	return token.AccessToken, nil
}

// User fetches the authenticated user's identity from the provider's
// user-info endpoint. Returns ErrMissingUserID when no id comes back.
func (c *Client) User(ctx context.Context, accessToken string) (UserInfo, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.apiBaseURL+"/user", nil)
	if err != nil {
		return UserInfo{}, fmt.Errorf("build user request: %w", err)
	}
	req.Header.Set("Authorization", "token "+accessToken)
	req.Header.Set("Accept", "application/vnd.github+json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return UserInfo{}, fmt.Errorf("fetch github user: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return UserInfo{}, fmt.Errorf("fetch github user: status %d", resp.StatusCode)
	}

	var payload struct {
		ID    int64  `json:"id"`
		Login string `json:"login"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return UserInfo{}, fmt.Errorf("decode github user: %w", err)
	}
	if payload.ID == 0 {
		return UserInfo{}, ErrMissingUserID
	}

	return UserInfo{
		ID:    strconv.FormatInt(payload.ID, 10),
		Login: payload.Login,
	}, nil
}
