package flow

import (
	"encoding/json"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/pronounhub/pronounhub/internal/codes"
	"github.com/pronounhub/pronounhub/internal/metrics"
	"github.com/pronounhub/pronounhub/internal/observability/logger"
	"github.com/pronounhub/pronounhub/internal/provider"
)

// OAuth2 drives the authorization-code flow for one platform:
// authorize -> provider redirect -> callback -> token exchange ->
// identity fetch -> account resolution.
type OAuth2 struct {
	adapter provider.Adapter
	cfg     provider.Config
	opt     Options
	http    *http.Client
}

func NewOAuth2(a provider.Adapter, opt Options) *OAuth2 {
	return &OAuth2{
		adapter: a,
		cfg:     a.Config(),
		opt:     opt,
		http:    &http.Client{Timeout: 10 * time.Second},
	}
}

// Authorize handles GET /{platform}/authorize?intent=...
func (d *OAuth2) Authorize(w http.ResponseWriter, r *http.Request) {
	intent, ok := ParseIntent(r.URL.Query().Get("intent"))
	if !ok {
		redirectHome(w, r)
		return
	}
	if _, ok := d.opt.precheck(w, r, intent); !ok {
		return
	}

	state := randToken(16)
	d.opt.Pending.Put(d.cfg.Platform+"-"+state, PendingExchange{}, PendingTTL)

	path := callbackPath(d.cfg.Platform)
	setFlowCookie(w, d.opt.Cookies, cookieState, state, path, d.opt.SecureCookies)
	setFlowCookie(w, d.opt.Cookies, cookieIntent, string(intent), path, d.opt.SecureCookies)
	if ap, ok := d.adapter.(provider.AuxDataProvider); ok {
		if aux := ap.AuxData(r); aux != "" {
			setFlowCookie(w, d.opt.Cookies, cookieAux, aux, path, d.opt.SecureCookies)
		}
	}

	u, err := url.Parse(d.cfg.AuthorizeURL)
	if err != nil {
		redirectError(w, r, d.cfg.Platform, codes.OAuthGeneric)
		return
	}
	q := u.Query()
	q.Set("state", state)
	q.Set("response_type", "code")
	q.Set("scope", strings.Join(d.cfg.Scopes, " "))
	q.Set("client_id", d.cfg.ClientID)
	q.Set("redirect_uri", d.opt.callbackURL(d.cfg.Platform))
	u.RawQuery = q.Encode()

	metrics.FlowsStarted.WithLabelValues(d.cfg.Platform, string(intent)).Inc()
	http.Redirect(w, r, u.String(), http.StatusFound)
}

// Callback handles GET /{platform}/callback?code=...&state=...
func (d *OAuth2) Callback(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	state := q.Get("state")
	code := q.Get("code")

	if q.Get("error") != "" || code == "" || state == "" {
		redirectError(w, r, d.cfg.Platform, codes.OAuthGeneric)
		return
	}

	cookieStateVal, ok1 := readFlowCookie(r, d.opt.Cookies, cookieState)
	intentVal, ok2 := readFlowCookie(r, d.opt.Cookies, cookieIntent)
	if !ok1 || !ok2 {
		rejectCallback(w, r, d.cfg.Platform, "missing or unsigned flow cookies")
		return
	}
	intent, ok := ParseIntent(intentVal)
	if !ok || cookieStateVal != state {
		rejectCallback(w, r, d.cfg.Platform, "state/intent mismatch")
		return
	}

	// Read-once: the entry is gone before any network call, so a failed
	// downstream call can never revalidate it.
	if _, ok := d.opt.Pending.Take(d.cfg.Platform + "-" + state); !ok {
		rejectCallback(w, r, d.cfg.Platform, "unknown or replayed state")
		return
	}

	accessToken, err := d.exchangeCode(r, code)
	if err != nil {
		logger.From(r.Context()).Warn("token exchange failed",
			logger.Platform(d.cfg.Platform), logger.Err(err))
		redirectError(w, r, d.cfg.Platform, codes.OAuthGeneric)
		return
	}

	creds := provider.Credentials{AccessToken: accessToken}
	if aux, ok := readFlowCookie(r, d.opt.Cookies, cookieAux); ok {
		creds.Aux = aux
	}
	ident, err := d.adapter.GetSelf(r.Context(), creds)
	if err != nil {
		redirectError(w, r, d.cfg.Platform, codes.FromError(err))
		return
	}
	if ident == nil {
		redirectError(w, r, d.cfg.Platform, codes.OAuthGeneric)
		return
	}

	d.opt.finish(w, r, *ident, intent)
}

type oauth2TokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	Scope       string `json:"scope"`
	Error       string `json:"error,omitempty"`
}

// exchangeCode swaps the authorization code for an access token. The
// redirect_uri must byte-match the one sent at authorize time.
func (d *OAuth2) exchangeCode(r *http.Request, code string) (string, error) {
	form := url.Values{}
	form.Set("client_id", d.cfg.ClientID)
	form.Set("client_secret", d.cfg.ClientSecret)
	form.Set("grant_type", "authorization_code")
	form.Set("code", code)
	form.Set("redirect_uri", d.opt.callbackURL(d.cfg.Platform))

	req, err := http.NewRequestWithContext(r.Context(), http.MethodPost, d.cfg.TokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")

	resp, err := d.http.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode/100 != 2 {
		return "", errStatus(resp.StatusCode)
	}

	var tr oauth2TokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&tr); err != nil {
		return "", err
	}
	if tr.Error != "" || tr.AccessToken == "" {
		return "", errNoToken
	}
	return tr.AccessToken, nil
}
