package http

import (
	"net/http"
	"strings"
	"unicode/utf8"

	"github.com/go-chi/chi/v5"

	"github.com/pronounhub/pronounhub/internal/account"
	"github.com/pronounhub/pronounhub/internal/observability/logger"
	"github.com/pronounhub/pronounhub/internal/provider"
	"github.com/pronounhub/pronounhub/internal/session"
)

// SessionReader is the slice of the session issuer the API needs.
type SessionReader interface {
	AccountID(r *http.Request) string
}

const maxPronounsLen = 64

type API struct {
	Accounts account.Repository
	Sessions SessionReader
	Registry *provider.Registry
	Secure   bool
}

// Lookup is the public read path: pronouns by external identity.
func (a *API) Lookup(w http.ResponseWriter, r *http.Request) {
	platform := strings.TrimSpace(r.URL.Query().Get("platform"))
	id := strings.TrimSpace(r.URL.Query().Get("id"))
	if platform == "" || id == "" {
		WriteError(w, http.StatusBadRequest, "invalid_request", "platform and id are required")
		return
	}

	acct, err := a.Accounts.FindByIdentity(r.Context(), platform, id)
	if err == account.ErrNotFound {
		WriteError(w, http.StatusNotFound, "not_found", "no account for that identity")
		return
	}
	if err != nil {
		logger.From(r.Context()).Error("lookup failed", logger.Platform(platform), logger.Err(err))
		WriteError(w, http.StatusInternalServerError, "internal_error", "lookup failed")
		return
	}
	WriteJSON(w, http.StatusOK, map[string]string{"pronouns": acct.Pronouns})
}

func (a *API) Me(w http.ResponseWriter, r *http.Request) {
	acct, ok := a.requireAccount(w, r)
	if !ok {
		return
	}
	WriteJSON(w, http.StatusOK, acct)
}

func (a *API) SetPronouns(w http.ResponseWriter, r *http.Request) {
	acct, ok := a.requireAccount(w, r)
	if !ok {
		return
	}

	var in struct {
		Pronouns string `json:"pronouns"`
	}
	if !ReadJSON(w, r, &in) {
		return
	}
	in.Pronouns = strings.TrimSpace(in.Pronouns)
	if in.Pronouns == "" || utf8.RuneCountInString(in.Pronouns) > maxPronounsLen {
		WriteError(w, http.StatusBadRequest, "invalid_request", "pronouns must be 1-64 characters")
		return
	}

	if err := a.Accounts.SetPronouns(r.Context(), acct.ID, in.Pronouns); err != nil {
		logger.From(r.Context()).Error("set pronouns failed", logger.AccountID(acct.ID), logger.Err(err))
		WriteError(w, http.StatusInternalServerError, "internal_error", "update failed")
		return
	}
	WriteJSON(w, http.StatusOK, map[string]string{"pronouns": in.Pronouns})
}

func (a *API) Unlink(w http.ResponseWriter, r *http.Request) {
	acct, ok := a.requireAccount(w, r)
	if !ok {
		return
	}
	platform := chi.URLParam(r, "platform")
	externalID := chi.URLParam(r, "id")

	err := a.Accounts.RemoveIdentity(r.Context(), acct.ID, platform, externalID)
	switch err {
	case nil:
		w.WriteHeader(http.StatusNoContent)
	case account.ErrLastLink:
		WriteError(w, http.StatusConflict, "last_link", "cannot unlink the last linked account")
	case account.ErrNotFound:
		WriteError(w, http.StatusNotFound, "not_found", "no such linked account")
	default:
		logger.From(r.Context()).Error("unlink failed",
			logger.AccountID(acct.ID), logger.Platform(platform), logger.Err(err))
		WriteError(w, http.StatusInternalServerError, "internal_error", "unlink failed")
	}
}

type providerInfo struct {
	Platform     string `json:"platform"`
	OAuthVersion int    `json:"oauth_version"`
	AuthorizeURL string `json:"authorize_url"`
}

// Providers lists the mounted platforms so the frontend can render the
// login buttons without hardcoding them.
func (a *API) Providers(w http.ResponseWriter, r *http.Request) {
	platforms := a.Registry.Platforms()
	out := make([]providerInfo, 0, len(platforms))
	for _, p := range platforms {
		info := providerInfo{Platform: p, AuthorizeURL: "/" + p + "/authorize"}
		if ad := a.Registry.Get(p); ad != nil {
			info.OAuthVersion = ad.Config().Version
		}
		out = append(out, info)
	}
	WriteJSON(w, http.StatusOK, map[string]any{"providers": out})
}

func (a *API) Logout(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, &http.Cookie{
		Name:     session.CookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		Secure:   a.Secure,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	w.WriteHeader(http.StatusNoContent)
}

func (a *API) Healthz(w http.ResponseWriter, r *http.Request) {
	WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (a *API) Readyz(w http.ResponseWriter, r *http.Request) {
	if err := a.Accounts.Ping(r.Context()); err != nil {
		WriteError(w, http.StatusServiceUnavailable, "not_ready", "storage unavailable")
		return
	}
	WriteJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

func (a *API) requireAccount(w http.ResponseWriter, r *http.Request) (*account.Account, bool) {
	id := a.Sessions.AccountID(r)
	if id == "" {
		WriteError(w, http.StatusUnauthorized, "unauthorized", "login required")
		return nil, false
	}
	acct, err := a.Accounts.GetByID(r.Context(), id)
	if err == account.ErrNotFound {
		// valid session for a deleted account
		WriteError(w, http.StatusUnauthorized, "unauthorized", "login required")
		return nil, false
	}
	if err != nil {
		WriteError(w, http.StatusInternalServerError, "internal_error", "account load failed")
		return nil, false
	}
	return acct, true
}
