// Package twitch implements the Twitch OAuth 2.0 adapter. Helix requires
// the Client-Id header alongside the bearer token, and wraps the user
// record in a data array.
package twitch

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/pronounhub/pronounhub/internal/provider"
)

const (
	authEndpoint  = "https://id.twitch.tv/oauth2/authorize"
	tokenEndpoint = "https://id.twitch.tv/oauth2/token"
	userEndpoint  = "https://api.twitch.tv/helix/users"
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
			Platform:     "twitch",
			Version:      provider.Version2,
			ClientID:     clientID,
			ClientSecret: clientSecret,
			AuthorizeURL: authEndpoint,
			TokenURL:     tokenEndpoint,
		},
		UserEndpoint: userEndpoint,
		http:         &http.Client{Timeout: 10 * time.Second},
	}
}

func (a *Adapter) Config() provider.Config { return a.cfg }

type usersResponse struct {
	Data []struct {
		ID          string `json:"id"`
		Login       string `json:"login"`
		DisplayName string `json:"display_name"`
	} `json:"data"`
}

func (a *Adapter) GetSelf(ctx context.Context, creds provider.Credentials) (*provider.ExternalIdentity, error) {
	req, err := http.NewRequestWithContext(ctx, "GET", a.UserEndpoint, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+creds.AccessToken)
	req.Header.Set("Client-Id", a.cfg.ClientID)

	resp, err := a.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("twitch api error: status %d", resp.StatusCode)
	}

	var users usersResponse
	if err := json.NewDecoder(resp.Body).Decode(&users); err != nil {
		return nil, fmt.Errorf("failed to decode users response: %w", err)
	}
	if len(users.Data) == 0 || users.Data[0].ID == "" {
		return nil, fmt.Errorf("twitch api returned no user")
	}

	u := users.Data[0]
	name := u.DisplayName
	if name == "" {
		name = u.Login
	}
	return &provider.ExternalIdentity{
		Platform: a.cfg.Platform,
		ID:       u.ID,
		Name:     name,
	}, nil
}
