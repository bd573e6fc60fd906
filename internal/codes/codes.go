// Package codes defines the stable error identifiers surfaced to clients
// in the `error` query parameter of flow redirects. They are contract, not
// free text: the extension/frontend maps each code to human copy, so the
// strings here must never change once shipped.
package codes

import "errors"

const (
	// Generic provider/protocol failure. Anything the user cannot act on
	// beyond restarting the flow collapses into this one.
	OAuthGeneric = "ERR_OAUTH_GENERIC"

	// Account resolution conflicts. Always recoverable by the user.
	NotFound      = "ERR_NOT_FOUND"
	AlreadyExists = "ERR_ALREADY_EXISTS"
	AlreadyLinked = "ERR_ALREADY_LINKED"

	// Minecraft / Xbox Live pipeline. Distinct so the client can show
	// accurate guidance instead of a generic failure.
	XboxNoAccount    = "ERR_XLIVE_NO_ACCOUNT"
	XboxRegion       = "ERR_XLIVE_REGION"
	XboxChildAccount = "ERR_XLIVE_CHILD_ACCOUNT"
	XboxNoMCLicense  = "ERR_XLIVE_NO_MC_LICENSE"
)

// Error is a flow-terminal error carrying a stable client code. Provider
// adapters and the account resolver return *Error when the failure has a
// precise meaning for the user; plain errors degrade to OAuthGeneric.
type Error struct {
	Code string
}

func (e *Error) Error() string { return e.Code }

// E builds a coded error.
func E(code string) *Error { return &Error{Code: code} }

// FromError extracts the client code from err, falling back to
// OAuthGeneric for anything that is not a coded error.
func FromError(err error) string {
	var ce *Error
	if errors.As(err, &ce) {
		return ce.Code
	}
	return OAuthGeneric
}

// Is reports whether err carries the given code.
func Is(err error, code string) bool {
	var ce *Error
	return errors.As(err, &ce) && ce.Code == code
}
