// Package twitter implements the Twitter adapter. Twitter still runs the
// OAuth 1.0a three-legged flow, so every API call is HMAC-SHA1 signed
// rather than bearer-authenticated.
package twitter

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/pronounhub/pronounhub/internal/oauth1"
	"github.com/pronounhub/pronounhub/internal/provider"
)

const (
	requestTokenEndpoint = "https://api.twitter.com/oauth/request_token"
	authEndpoint         = "https://api.twitter.com/oauth/authenticate"
	tokenEndpoint        = "https://api.twitter.com/oauth/access_token"
	verifyEndpoint       = "https://api.twitter.com/1.1/account/verify_credentials.json"
)

type Adapter struct {
	cfg provider.Config

	// VerifyEndpoint is overridable for tests.
	VerifyEndpoint string

	signer *oauth1.Signer
}

func New(consumerKey, consumerSecret string) *Adapter {
	return &Adapter{
		cfg: provider.Config{
			Platform:        "twitter",
			Version:         provider.Version1,
			ClientID:        consumerKey,
			ClientSecret:    consumerSecret,
			AuthorizeURL:    authEndpoint,
			TokenURL:        tokenEndpoint,
			RequestTokenURL: requestTokenEndpoint,
		},
		VerifyEndpoint: verifyEndpoint,
		signer:         oauth1.NewSigner(),
	}
}

func (a *Adapter) Config() provider.Config { return a.cfg }

type userInfo struct {
	IDStr      string `json:"id_str"`
	ScreenName string `json:"screen_name"`
}

func (a *Adapter) GetSelf(ctx context.Context, creds provider.Credentials) (*provider.ExternalIdentity, error) {
	tok := oauth1.Token{
		ConsumerKey:    a.cfg.ClientID,
		ConsumerSecret: a.cfg.ClientSecret,
		Token:          creds.AccessToken,
		TokenSecret:    creds.TokenSecret,
	}
	_, resp, err := a.signer.Do(ctx, http.MethodGet, a.VerifyEndpoint, nil, tok)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("twitter api error: status %d", resp.StatusCode)
	}

	var info userInfo
	if err := json.Unmarshal(resp.Body, &info); err != nil {
		return nil, fmt.Errorf("failed to decode user info: %w", err)
	}
	if info.IDStr == "" {
		return nil, fmt.Errorf("twitter api returned no user id")
	}
	return &provider.ExternalIdentity{
		Platform: a.cfg.Platform,
		ID:       info.IDStr,
		Name:     info.ScreenName,
	}, nil
}
