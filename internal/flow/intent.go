// Package flow implements the OAuth 2.0 and OAuth 1.0a flow drivers: the
// state machines between /{platform}/authorize and /{platform}/callback.
// Drivers are generic over provider.Adapter; all shared mutable state (the
// pending-exchange store) is constructor-injected.
package flow

// Intent declares what the caller wants out of a completed flow.
type Intent string

const (
	IntentLogin    Intent = "login"
	IntentRegister Intent = "register"
	IntentLink     Intent = "link"
)

// ParseIntent maps the query/cookie value to an Intent. The empty string
// defaults to login; anything else unknown is rejected.
func ParseIntent(s string) (Intent, bool) {
	switch Intent(s) {
	case "":
		return IntentLogin, true
	case IntentLogin, IntentRegister, IntentLink:
		return Intent(s), true
	default:
		return "", false
	}
}
