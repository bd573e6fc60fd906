// Package minecraft implements the Minecraft adapter. Entry is a plain
// Microsoft OAuth 2.0 code flow; GetSelf then walks the Xbox Live chain:
// Microsoft token -> XBL user token -> XSTS token -> Minecraft services
// token -> profile. Any rung can fail with an account-state error the
// user has to fix on their side, which is surfaced as a stable code.
package minecraft

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/pronounhub/pronounhub/internal/codes"
	"github.com/pronounhub/pronounhub/internal/provider"
)

const (
	authEndpoint  = "https://login.live.com/oauth20_authorize.srf"
	tokenEndpoint = "https://login.live.com/oauth20_token.srf"

	xblAuthEndpoint   = "https://user.auth.xboxlive.com/user/authenticate"
	xstsAuthEndpoint  = "https://xsts.auth.xboxlive.com/xsts/authorize"
	mcLoginEndpoint   = "https://api.minecraftservices.com/authentication/login_with_xbox"
	mcProfileEndpoint = "https://api.minecraftservices.com/minecraft/profile"
)

// XSTS XErr values for account states that block the chain.
const (
	xerrNoXboxAccount = 2148916233
	xerrRegionBlocked = 2148916235
	xerrChildAccount  = 2148916238
)

type Adapter struct {
	cfg provider.Config

	// Endpoints are overridable for tests.
	XBLAuthEndpoint   string
	XSTSAuthEndpoint  string
	MCLoginEndpoint   string
	MCProfileEndpoint string

	http *http.Client
}

func New(clientID, clientSecret string) *Adapter {
	return &Adapter{
		cfg: provider.Config{
			Platform:     "minecraft",
			Version:      provider.Version2,
			ClientID:     clientID,
			ClientSecret: clientSecret,
			AuthorizeURL: authEndpoint,
			TokenURL:     tokenEndpoint,
			Scopes:       []string{"XboxLive.signin"},
		},
		XBLAuthEndpoint:   xblAuthEndpoint,
		XSTSAuthEndpoint:  xstsAuthEndpoint,
		MCLoginEndpoint:   mcLoginEndpoint,
		MCProfileEndpoint: mcProfileEndpoint,
		http:              &http.Client{Timeout: 10 * time.Second},
	}
}

func (a *Adapter) Config() provider.Config { return a.cfg }

func (a *Adapter) GetSelf(ctx context.Context, creds provider.Credentials) (*provider.ExternalIdentity, error) {
	xblToken, uhs, err := a.xblAuthenticate(ctx, creds.AccessToken)
	if err != nil {
		return nil, err
	}
	xstsToken, err := a.xstsAuthorize(ctx, xblToken)
	if err != nil {
		return nil, err
	}
	mcToken, err := a.minecraftLogin(ctx, uhs, xstsToken)
	if err != nil {
		return nil, err
	}
	return a.profile(ctx, mcToken)
}

// xblAuthenticate trades the Microsoft access token for an Xbox Live user
// token plus the user hash the later steps need.
func (a *Adapter) xblAuthenticate(ctx context.Context, msToken string) (token, uhs string, err error) {
	payload := map[string]any{
		"Properties": map[string]any{
			"AuthMethod": "RPS",
			"SiteName":   "user.auth.xboxlive.com",
			"RpsTicket":  "d=" + msToken,
		},
		"RelyingParty": "http://auth.xboxlive.com",
		"TokenType":    "JWT",
	}
	var out xboxTokenResponse
	if err := a.postJSON(ctx, a.XBLAuthEndpoint, payload, http.StatusOK, &out); err != nil {
		return "", "", fmt.Errorf("xbl authenticate: %w", err)
	}
	uhs = out.userHash()
	if out.Token == "" || uhs == "" {
		return "", "", fmt.Errorf("xbl authenticate: missing token or user hash")
	}
	return out.Token, uhs, nil
}

// xstsAuthorize trades the XBL token for an XSTS token. A 401 here is not
// a transport failure but an account state, reported through XErr.
func (a *Adapter) xstsAuthorize(ctx context.Context, xblToken string) (string, error) {
	payload := map[string]any{
		"Properties": map[string]any{
			"SandboxId":  "RETAIL",
			"UserTokens": []string{xblToken},
		},
		"RelyingParty": "rp://api.minecraftservices.com/",
		"TokenType":    "JWT",
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return "", err
	}
	req, err := http.NewRequestWithContext(ctx, "POST", a.XSTSAuthEndpoint, bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := a.http.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized {
		var denial struct {
			XErr int64 `json:"XErr"`
		}
		_ = json.NewDecoder(resp.Body).Decode(&denial)
		switch denial.XErr {
		case xerrNoXboxAccount:
			return "", codes.E(codes.XboxNoAccount)
		case xerrRegionBlocked:
			return "", codes.E(codes.XboxRegion)
		case xerrChildAccount:
			return "", codes.E(codes.XboxChildAccount)
		}
		return "", fmt.Errorf("xsts authorize denied: xerr %d", denial.XErr)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("xsts authorize: status %d", resp.StatusCode)
	}

	var out xboxTokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("xsts authorize: %w", err)
	}
	if out.Token == "" {
		return "", fmt.Errorf("xsts authorize: missing token")
	}
	return out.Token, nil
}

func (a *Adapter) minecraftLogin(ctx context.Context, uhs, xstsToken string) (string, error) {
	payload := map[string]any{
		"identityToken": "XBL3.0 x=" + uhs + ";" + xstsToken,
	}
	var out struct {
		AccessToken string `json:"access_token"`
	}
	if err := a.postJSON(ctx, a.MCLoginEndpoint, payload, http.StatusOK, &out); err != nil {
		return "", fmt.Errorf("minecraft login: %w", err)
	}
	if out.AccessToken == "" {
		return "", fmt.Errorf("minecraft login: missing access token")
	}
	return out.AccessToken, nil
}

// profile fetches the Minecraft profile. Accounts that own Xbox but not
// the game get a profile without an id.
func (a *Adapter) profile(ctx context.Context, mcToken string) (*provider.ExternalIdentity, error) {
	req, err := http.NewRequestWithContext(ctx, "GET", a.MCProfileEndpoint, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+mcToken)
	req.Header.Set("Accept", "application/json")

	resp, err := a.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, codes.E(codes.XboxNoMCLicense)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("minecraft profile: status %d", resp.StatusCode)
	}

	var prof struct {
		ID   string `json:"id"`
		Name string `json:"name"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&prof); err != nil {
		return nil, fmt.Errorf("minecraft profile: %w", err)
	}
	if prof.ID == "" {
		return nil, codes.E(codes.XboxNoMCLicense)
	}
	return &provider.ExternalIdentity{
		Platform: a.cfg.Platform,
		ID:       dashifyUUID(prof.ID),
		Name:     prof.Name,
	}, nil
}

func (a *Adapter) postJSON(ctx context.Context, endpoint string, payload any, wantStatus int, out any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, "POST", endpoint, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := a.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != wantStatus {
		return fmt.Errorf("status %d", resp.StatusCode)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

type xboxTokenResponse struct {
	Token         string `json:"Token"`
	DisplayClaims struct {
		XUI []struct {
			UHS string `json:"uhs"`
		} `json:"xui"`
	} `json:"DisplayClaims"`
}

func (x *xboxTokenResponse) userHash() string {
	if len(x.DisplayClaims.XUI) == 0 {
		return ""
	}
	return x.DisplayClaims.XUI[0].UHS
}

// dashifyUUID turns the compact 32-hex profile id into canonical
// 8-4-4-4-12 form. Anything else passes through untouched.
func dashifyUUID(s string) string {
	if len(s) != 32 || strings.Contains(s, "-") {
		return s
	}
	return s[0:8] + "-" + s[8:12] + "-" + s[12:16] + "-" + s[16:20] + "-" + s[20:32]
}
