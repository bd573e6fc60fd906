package flow

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"net/http"
	"strings"
	"time"
)

// CookieSigner is an explicit HMAC-SHA256 sign/verify pair for the
// short-lived flow cookies. The MAC covers the cookie name as well as the
// value so a signed value cannot be replayed under a different name
// (e.g. an intent value presented as a state).
type CookieSigner struct {
	secret []byte
}

func NewCookieSigner(secret string) *CookieSigner {
	return &CookieSigner{secret: []byte(secret)}
}

func (s *CookieSigner) mac(name, value string) string {
	m := hmac.New(sha256.New, s.secret)
	m.Write([]byte(name))
	m.Write([]byte{0})
	m.Write([]byte(value))
	return base64.RawURLEncoding.EncodeToString(m.Sum(nil))
}

// Sign returns value + "." + mac. The MAC is base64url and dot-free, so
// Verify can split at the last dot even when the value contains dots.
func (s *CookieSigner) Sign(name, value string) string {
	return value + "." + s.mac(name, value)
}

// Verify checks the signature and returns the embedded value.
func (s *CookieSigner) Verify(name, signed string) (string, bool) {
	i := strings.LastIndexByte(signed, '.')
	if i < 0 {
		return "", false
	}
	value, gotMAC := signed[:i], signed[i+1:]
	if !hmac.Equal([]byte(gotMAC), []byte(s.mac(name, value))) {
		return "", false
	}
	return value, true
}

// setFlowCookie writes a signed, HttpOnly cookie scoped to the callback
// path with the pending-exchange TTL.
func setFlowCookie(w http.ResponseWriter, signer *CookieSigner, name, value, path string, secure bool) {
	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    signer.Sign(name, value),
		Path:     path,
		MaxAge:   int(PendingTTL.Seconds()),
		Expires:  time.Now().Add(PendingTTL).UTC(),
		Secure:   secure,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}

// readFlowCookie reads and verifies a signed flow cookie. Absent or
// tampered cookies both come back as not-ok; callers treat either as a
// CSRF-class condition.
func readFlowCookie(r *http.Request, signer *CookieSigner, name string) (string, bool) {
	c, err := r.Cookie(name)
	if err != nil || c.Value == "" {
		return "", false
	}
	return signer.Verify(name, c.Value)
}
