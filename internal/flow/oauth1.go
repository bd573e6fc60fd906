package flow

import (
	"net/http"
	"net/url"

	"github.com/pronounhub/pronounhub/internal/codes"
	"github.com/pronounhub/pronounhub/internal/metrics"
	"github.com/pronounhub/pronounhub/internal/oauth1"
	"github.com/pronounhub/pronounhub/internal/observability/logger"
	"github.com/pronounhub/pronounhub/internal/provider"
)

// OAuth1 drives the three-legged OAuth 1.0a flow for one platform,
// layered on the request signer: request-token -> provider redirect ->
// callback -> access-token exchange -> identity fetch.
type OAuth1 struct {
	adapter provider.Adapter
	cfg     provider.Config
	opt     Options
	signer  *oauth1.Signer
}

func NewOAuth1(a provider.Adapter, signer *oauth1.Signer, opt Options) *OAuth1 {
	if signer == nil {
		signer = oauth1.NewSigner()
	}
	return &OAuth1{adapter: a, cfg: a.Config(), opt: opt, signer: signer}
}

func (d *OAuth1) consumer() oauth1.Token {
	return oauth1.Token{ConsumerKey: d.cfg.ClientID, ConsumerSecret: d.cfg.ClientSecret}
}

// Authorize handles GET /{platform}/authorize?intent=...
func (d *OAuth1) Authorize(w http.ResponseWriter, r *http.Request) {
	intent, ok := ParseIntent(r.URL.Query().Get("intent"))
	if !ok {
		redirectHome(w, r)
		return
	}
	if _, ok := d.opt.precheck(w, r, intent); !ok {
		return
	}

	form := url.Values{"oauth_callback": {d.opt.callbackURL(d.cfg.Platform)}}
	nonce, resp, err := d.signer.Post(r.Context(), d.cfg.RequestTokenURL, form, d.consumer())
	if err != nil || resp.StatusCode/100 != 2 {
		logger.From(r.Context()).Warn("request token failed",
			logger.Platform(d.cfg.Platform), logger.Err(err))
		redirectError(w, r, d.cfg.Platform, codes.OAuthGeneric)
		return
	}

	vals, err := url.ParseQuery(string(resp.Body))
	if err != nil || vals.Get("oauth_callback_confirmed") != "true" {
		redirectError(w, r, d.cfg.Platform, codes.OAuthGeneric)
		return
	}
	requestToken := vals.Get("oauth_token")
	requestSecret := vals.Get("oauth_token_secret")
	if requestToken == "" || requestSecret == "" {
		redirectError(w, r, d.cfg.Platform, codes.OAuthGeneric)
		return
	}

	d.opt.Pending.Put(d.cfg.Platform+"-"+requestToken,
		PendingExchange{Nonce: nonce, Secret: requestSecret}, PendingTTL)

	path := callbackPath(d.cfg.Platform)
	setFlowCookie(w, d.opt.Cookies, cookieNonce, nonce, path, d.opt.SecureCookies)
	setFlowCookie(w, d.opt.Cookies, cookieIntent, string(intent), path, d.opt.SecureCookies)

	metrics.FlowsStarted.WithLabelValues(d.cfg.Platform, string(intent)).Inc()
	http.Redirect(w, r, d.cfg.AuthorizeURL+"?oauth_token="+url.QueryEscape(requestToken), http.StatusFound)
}

// Callback handles GET /{platform}/callback?oauth_token=...&oauth_verifier=...
// (or ?denied=... when the user refused authorization).
func (d *OAuth1) Callback(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	if denied := q.Get("denied"); denied != "" {
		d.opt.Pending.Delete(d.cfg.Platform + "-" + denied)
		redirectError(w, r, d.cfg.Platform, codes.OAuthGeneric)
		return
	}

	requestToken := q.Get("oauth_token")
	verifier := q.Get("oauth_verifier")
	if requestToken == "" || verifier == "" {
		redirectError(w, r, d.cfg.Platform, codes.OAuthGeneric)
		return
	}

	nonceVal, ok1 := readFlowCookie(r, d.opt.Cookies, cookieNonce)
	intentVal, ok2 := readFlowCookie(r, d.opt.Cookies, cookieIntent)
	if !ok1 || !ok2 {
		rejectCallback(w, r, d.cfg.Platform, "missing or unsigned flow cookies")
		return
	}
	intent, ok := ParseIntent(intentVal)
	if !ok {
		rejectCallback(w, r, d.cfg.Platform, "bad intent cookie")
		return
	}

	entry, found := d.opt.Pending.Take(d.cfg.Platform + "-" + requestToken)
	if !found {
		rejectCallback(w, r, d.cfg.Platform, "unknown or replayed request token")
		return
	}
	// The cookie nonce must match the nonce recorded when this request
	// token was minted; a forged callback replaying another flow's token
	// fails here.
	if entry.Nonce != nonceVal {
		rejectCallback(w, r, d.cfg.Platform, "nonce mismatch")
		return
	}

	tok := d.consumer()
	tok.Token = requestToken
	tok.TokenSecret = entry.Secret
	form := url.Values{"oauth_verifier": {verifier}}
	_, resp, err := d.signer.Post(r.Context(), d.cfg.TokenURL, form, tok)
	if err != nil || resp.StatusCode/100 != 2 {
		logger.From(r.Context()).Warn("access token exchange failed",
			logger.Platform(d.cfg.Platform), logger.Err(err))
		redirectError(w, r, d.cfg.Platform, codes.OAuthGeneric)
		return
	}

	vals, err := url.ParseQuery(string(resp.Body))
	if err != nil {
		redirectError(w, r, d.cfg.Platform, codes.OAuthGeneric)
		return
	}
	accessToken := vals.Get("oauth_token")
	accessSecret := vals.Get("oauth_token_secret")
	if accessToken == "" || accessSecret == "" {
		redirectError(w, r, d.cfg.Platform, codes.OAuthGeneric)
		return
	}

	ident, err := d.adapter.GetSelf(r.Context(), provider.Credentials{
		AccessToken: accessToken,
		TokenSecret: accessSecret,
	})
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
