// Package session issues and verifies the long-lived browser session as
// a signed JWT carried in a cookie.
package session

import (
	"errors"
	"net/http"
	"time"

	jwtv5 "github.com/golang-jwt/jwt/v5"
)

// CookieName is the session cookie. The auth flows set it on success and
// the API middleware reads it back.
const CookieName = "token"

// DefaultTTL is roughly one year, matching the cookie lifetime.
const DefaultTTL = 365 * 24 * time.Hour

var (
	ErrNoSession      = errors.New("session: no session cookie")
	ErrInvalidSession = errors.New("session: invalid or expired token")
)

// Issuer signs session tokens with HMAC-SHA256.
type Issuer struct {
	Iss    string
	TTL    time.Duration
	secret []byte
	now    func() time.Time
}

func NewIssuer(iss string, secret []byte, ttl time.Duration) *Issuer {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Issuer{Iss: iss, TTL: ttl, secret: secret, now: time.Now}
}

// Issue signs a session token for an account id.
func (i *Issuer) Issue(accountID string) (string, error) {
	now := i.now().UTC()
	claims := jwtv5.MapClaims{
		"iss": i.Iss,
		"sub": accountID,
		"iat": now.Unix(),
		"nbf": now.Unix(),
		"exp": now.Add(i.TTL).Unix(),
	}
	tk := jwtv5.NewWithClaims(jwtv5.SigningMethodHS256, claims)
	return tk.SignedString(i.secret)
}

// Verify parses a session token and returns the account id it was
// issued for.
func (i *Issuer) Verify(token string) (string, error) {
	parsed, err := jwtv5.Parse(token, func(t *jwtv5.Token) (any, error) {
		if _, ok := t.Method.(*jwtv5.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return i.secret, nil
	},
		jwtv5.WithValidMethods([]string{"HS256"}),
		jwtv5.WithIssuer(i.Iss),
		jwtv5.WithExpirationRequired(),
		jwtv5.WithTimeFunc(func() time.Time { return i.now() }),
	)
	if err != nil || !parsed.Valid {
		return "", ErrInvalidSession
	}
	sub, err := parsed.Claims.GetSubject()
	if err != nil || sub == "" {
		return "", ErrInvalidSession
	}
	return sub, nil
}

// AccountID extracts the session from a request's cookie. Returns "" when
// the cookie is missing or the token does not verify, so callers can
// treat both as "not logged in".
func (i *Issuer) AccountID(r *http.Request) string {
	c, err := r.Cookie(CookieName)
	if err != nil || c.Value == "" {
		return ""
	}
	id, err := i.Verify(c.Value)
	if err != nil {
		return ""
	}
	return id
}
