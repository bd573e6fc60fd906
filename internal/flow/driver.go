package flow

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/pronounhub/pronounhub/internal/codes"
	"github.com/pronounhub/pronounhub/internal/metrics"
	"github.com/pronounhub/pronounhub/internal/oauth1"
	"github.com/pronounhub/pronounhub/internal/observability/logger"
	"github.com/pronounhub/pronounhub/internal/provider"
)

// Cookie names shared by both drivers. state/nonce and intent are scoped
// to the callback path; the session token cookie is site-wide.
const (
	cookieState   = "state"
	cookieNonce   = "nonce"
	cookieIntent  = "intent"
	cookieAux     = "aux"
	cookieSession = "token"
)

// DefaultSessionTTL is roughly one year, matching the session cookie the
// browser extension relies on.
const DefaultSessionTTL = 365 * 24 * time.Hour

// Sessions verifies and mints the broker's session credential. The flow
// drivers only need these two operations; the session package owns the
// token format.
type Sessions interface {
	// AccountID returns the authenticated account id for the request,
	// or "" when the request carries no valid session.
	AccountID(r *http.Request) string
	// Issue mints a session credential bound to the account id.
	Issue(accountID string) (string, error)
}

// Resolver performs the login/register/link decision for a normalized
// external identity. Conflicts come back as *codes.Error values.
type Resolver interface {
	Resolve(ctx context.Context, ident provider.ExternalIdentity, intent Intent, currentAccountID string) (accountID string, err error)
}

// Options carries the dependencies and knobs shared by both drivers.
type Options struct {
	Pending  PendingStore
	Cookies  *CookieSigner
	Sessions Sessions
	Accounts Resolver

	// BaseURL is the externally visible origin (no trailing slash) used
	// to build redirect_uri values; these must byte-match between the
	// authorize and token-exchange calls.
	BaseURL string

	// SessionTTL defaults to DefaultSessionTTL.
	SessionTTL time.Duration

	// SecureCookies marks all cookies Secure. Off for local http dev.
	SecureCookies bool
}

func (o Options) sessionTTL() time.Duration {
	if o.SessionTTL > 0 {
		return o.SessionTTL
	}
	return DefaultSessionTTL
}

func (o Options) callbackURL(platform string) string {
	return o.BaseURL + callbackPath(platform)
}

func callbackPath(platform string) string {
	return "/" + platform + "/callback"
}

// Flow is what the router mounts per platform: the two ends of a driver.
type Flow interface {
	Authorize(w http.ResponseWriter, r *http.Request)
	Callback(w http.ResponseWriter, r *http.Request)
}

// New builds the driver matching the adapter's OAuth version.
func New(a provider.Adapter, signer *oauth1.Signer, opt Options) Flow {
	if a.Config().Version == provider.Version1 {
		return NewOAuth1(a, signer, opt)
	}
	return NewOAuth2(a, opt)
}

// redirect targets. Protocol/CSRF failures go home silently; everything
// the user can act on goes home with an error code; success lands on the
// account page.
func redirectHome(w http.ResponseWriter, r *http.Request) {
	http.Redirect(w, r, "/", http.StatusFound)
}

func redirectMe(w http.ResponseWriter, r *http.Request) {
	http.Redirect(w, r, "/me", http.StatusFound)
}

func redirectError(w http.ResponseWriter, r *http.Request, platform, code string) {
	metrics.FlowErrors.WithLabelValues(platform, code).Inc()
	http.Redirect(w, r, "/?error="+code, http.StatusFound)
}

// rejectCallback is the terminal for adversarial or stale conditions:
// missing/forged cookies, unknown or replayed correlation tokens. Never a
// 5xx, never an error code the page would render.
func rejectCallback(w http.ResponseWriter, r *http.Request, platform, reason string) {
	metrics.FlowRejects.WithLabelValues(platform).Inc()
	logger.From(r.Context()).Warn("callback rejected",
		logger.Platform(platform),
		logger.String("reason", reason),
	)
	redirectHome(w, r)
}

// precheck enforces the authorize preconditions: an authenticated caller
// may only link, an unauthenticated caller may not link.
func (o Options) precheck(w http.ResponseWriter, r *http.Request, intent Intent) (string, bool) {
	accountID := o.Sessions.AccountID(r)
	if accountID != "" && intent != IntentLink {
		redirectMe(w, r)
		return "", false
	}
	if accountID == "" && intent == IntentLink {
		redirectHome(w, r)
		return "", false
	}
	return accountID, true
}

// finish hands the recovered identity to account resolution and, on
// success, issues the session cookie and redirects to the account page.
func (o Options) finish(w http.ResponseWriter, r *http.Request, ident provider.ExternalIdentity, intent Intent) {
	currentID := o.Sessions.AccountID(r)
	accountID, err := o.Accounts.Resolve(r.Context(), ident, intent, currentID)
	if err != nil {
		redirectError(w, r, ident.Platform, codes.FromError(err))
		return
	}

	token, err := o.Sessions.Issue(accountID)
	if err != nil {
		logger.From(r.Context()).Error("session issue failed",
			logger.Platform(ident.Platform), logger.Err(err))
		redirectError(w, r, ident.Platform, codes.OAuthGeneric)
		return
	}
	http.SetCookie(w, &http.Cookie{
		Name:     cookieSession,
		Value:    token,
		Path:     "/",
		MaxAge:   int(o.sessionTTL().Seconds()),
		Expires:  time.Now().Add(o.sessionTTL()).UTC(),
		Secure:   o.SecureCookies,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})

	metrics.FlowsCompleted.WithLabelValues(ident.Platform, string(intent)).Inc()
	logger.From(r.Context()).Info("flow completed",
		logger.Platform(ident.Platform),
		logger.Intent(string(intent)),
		logger.AccountID(accountID),
	)
	redirectMe(w, r)
}

// randToken returns a fresh opaque correlation token (base64url, no
// padding).
func randToken(nBytes int) string {
	b := make([]byte, nBytes)
	_, _ = rand.Read(b)
	return base64.RawURLEncoding.EncodeToString(b)
}

var errNoToken = errors.New("flow: no access token in provider response")

func errStatus(code int) error {
	return fmt.Errorf("flow: provider returned status %d", code)
}
