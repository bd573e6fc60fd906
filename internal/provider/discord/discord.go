// Package discord implements the Discord OAuth 2.0 adapter.
package discord

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/pronounhub/pronounhub/internal/provider"
)

const (
	authEndpoint  = "https://discord.com/api/oauth2/authorize"
	tokenEndpoint = "https://discord.com/api/oauth2/token"
	userEndpoint  = "https://discord.com/api/users/@me"
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
			Platform:     "discord",
			Version:      provider.Version2,
			ClientID:     clientID,
			ClientSecret: clientSecret,
			AuthorizeURL: authEndpoint,
			TokenURL:     tokenEndpoint,
			Scopes:       []string{"identify"},
		},
		UserEndpoint: userEndpoint,
		http:         &http.Client{Timeout: 10 * time.Second},
	}
}

func (a *Adapter) Config() provider.Config { return a.cfg }

type userInfo struct {
	ID            string `json:"id"`
	Username      string `json:"username"`
	Discriminator string `json:"discriminator"`
}

func (a *Adapter) GetSelf(ctx context.Context, creds provider.Credentials) (*provider.ExternalIdentity, error) {
	req, err := http.NewRequestWithContext(ctx, "GET", a.UserEndpoint, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+creds.AccessToken)
	req.Header.Set("Accept", "application/json")

	resp, err := a.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("discord api error: status %d", resp.StatusCode)
	}

	var info userInfo
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		return nil, fmt.Errorf("failed to decode user info: %w", err)
	}
	if info.ID == "" {
		return nil, fmt.Errorf("discord api returned no user id")
	}

	name := info.Username
	// Legacy accounts still carry a non-zero discriminator.
	if info.Discriminator != "" && info.Discriminator != "0" {
		name = info.Username + "#" + info.Discriminator
	}
	return &provider.ExternalIdentity{
		Platform: a.cfg.Platform,
		ID:       info.ID,
		Name:     name,
	}, nil
}
