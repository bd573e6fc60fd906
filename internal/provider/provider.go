// Package provider defines the pluggable platform adapter contract the
// OAuth drivers are written against.
//
// Each supported platform ships one adapter in a sub-package: static
// endpoint/credential configuration plus a GetSelf identity resolver that
// normalizes whatever the platform returns into an ExternalIdentity.
// Adapters never see cookies, pending state, or redirects; the drivers own
// the protocol, adapters own the platform quirks.
package provider

import (
	"context"
	"net/http"
)

// OAuth protocol versions.
const (
	Version1 = 1
	Version2 = 2
)

// Config is the immutable per-platform configuration. One instance per
// platform, constructed at wiring time, alive for the process lifetime.
type Config struct {
	// Platform is the unique key ("discord", "twitter", ...) used in
	// routes, pending-exchange keys, and linked-account records.
	Platform string

	// Version selects the driver: Version1 (three-legged + signer) or
	// Version2 (authorization code).
	Version int

	ClientID     string
	ClientSecret string

	// AuthorizeURL is where the user agent is redirected.
	AuthorizeURL string
	// TokenURL exchanges the code (v2) or request token (v1) for an
	// access token.
	TokenURL string
	// RequestTokenURL is the OAuth 1.0a pre-step endpoint. Empty for v2.
	RequestTokenURL string

	// Scopes requested at authorize time, in order. v2 only.
	Scopes []string
}

// Credentials is what the driver recovered from the token exchange.
type Credentials struct {
	AccessToken string
	// TokenSecret is set for OAuth 1.0a platforms only.
	TokenSecret string
	// Aux is auxiliary flow data the adapter stashed at authorize time
	// (see AuxDataProvider), verified by the driver's cookie signature.
	Aux string
}

// ExternalIdentity is the normalized output of an adapter: the platform's
// durable account identifier (never the username, which can change) plus
// a display name.
type ExternalIdentity struct {
	Platform string `json:"platform"`
	ID       string `json:"id"`
	Name     string `json:"name"`
}

// Adapter is the closed interface every platform implements.
//
// GetSelf returns the identity on success. Failures with a precise user
// meaning return a *codes.Error carrying the stable client code; any other
// error collapses into the generic OAuth error at the driver boundary.
type Adapter interface {
	Config() Config
	GetSelf(ctx context.Context, creds Credentials) (*ExternalIdentity, error)
}

// AuxDataProvider is an optional adapter extension for platforms that
// need extra request-derived data carried across the redirect. The driver
// stores the value in its own signed cookie and hands it back through
// Credentials.Aux; the state value itself stays opaque.
type AuxDataProvider interface {
	AuxData(r *http.Request) string
}
