// Package github implements the GitHub OAuth 2.0 adapter. GitHub returns
// numeric user ids, which are normalized to strings here.
package github

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/pronounhub/pronounhub/internal/provider"
)

const (
	authEndpoint  = "https://github.com/login/oauth/authorize"
	tokenEndpoint = "https://github.com/login/oauth/access_token"
	userEndpoint  = "https://api.github.com/user"
)

type Adapter struct {
	cfg provider.Config

	// UserEndpoint is overridable for tests.
	UserEndpoint string

	http *http.Client
}

func New(clientID, clientSecret string) *Adapter {
	return &Adapter{
		cfg: provider.Config{
			Platform:     "github",
			Version:      provider.Version2,
			ClientID:     clientID,
			ClientSecret: clientSecret,
			AuthorizeURL: authEndpoint,
			TokenURL:     tokenEndpoint,
			Scopes:       []string{"read:user"},
		},
		UserEndpoint: userEndpoint,
		http:         &http.Client{Timeout: 10 * time.Second},
	}
}

func (a *Adapter) Config() provider.Config { return a.cfg }

type userInfo struct {
	ID    int64  `json:"id"`
	Login string `json:"login"`
	Name  string `json:"name"`
}

func (a *Adapter) GetSelf(ctx context.Context, creds provider.Credentials) (*provider.ExternalIdentity, error) {
	req, err := http.NewRequestWithContext(ctx, "GET", a.UserEndpoint, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+creds.AccessToken)
	req.Header.Set("Accept", "application/vnd.github+json")

	resp, err := a.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("github api error: status %d", resp.StatusCode)
	}

	var info userInfo
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		return nil, fmt.Errorf("failed to decode user info: %w", err)
	}
	if info.ID == 0 {
		return nil, fmt.Errorf("github api returned no user id")
	}

	name := info.Name
	if name == "" {
		name = info.Login
	}
	return &provider.ExternalIdentity{
		Platform: a.cfg.Platform,
		ID:       strconv.FormatInt(info.ID, 10),
		Name:     name,
	}, nil
}
