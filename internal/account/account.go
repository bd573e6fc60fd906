// Package account owns the internal identity records: the accounts users
// register, the external identities linked to them, and the declared
// pronoun data the lookup API serves.
package account

import (
	"context"
	"errors"
	"time"
)

var (
	ErrNotFound = errors.New("account: not found")
	ErrConflict = errors.New("account: conflict")
	ErrLastLink = errors.New("account: cannot remove last linked identity")
)

// DefaultPronouns is what a fresh account declares until the user says
// otherwise.
const DefaultPronouns = "unspecified"

// Linked is one external identity attached to an account. ID is the
// platform's durable identifier, so links survive renames.
type Linked struct {
	Platform string `json:"platform"`
	ID       string `json:"id"`
	Name     string `json:"name"`
}

// Account is the internal identity record. Accounts is ordered and
// de-duplicated by {Platform, ID}; the repository enforces that a given
// pair is linked to at most one account.
type Account struct {
	ID        string    `json:"id"`
	Pronouns  string    `json:"pronouns"`
	Accounts  []Linked  `json:"accounts"`
	CreatedAt time.Time `json:"created_at"`
}

// Repository is the persistence contract. Implementations: memory (dev,
// tests) and Postgres.
type Repository interface {
	Ping(ctx context.Context) error

	GetByID(ctx context.Context, id string) (*Account, error)
	// FindByIdentity resolves the account a {platform, externalID} pair
	// is linked to, or ErrNotFound.
	FindByIdentity(ctx context.Context, platform, externalID string) (*Account, error)

	// Create stores a new account with its initial linked identities.
	// An identity already linked elsewhere is ErrConflict.
	Create(ctx context.Context, a *Account) error
	// AddIdentity appends a linked identity. ErrConflict when the pair
	// is already linked anywhere, ErrNotFound for an unknown account.
	AddIdentity(ctx context.Context, accountID string, l Linked) error
	// RemoveIdentity unlinks one {platform, externalID} pair from an
	// account. An account must retain at least one identity (ErrLastLink).
	RemoveIdentity(ctx context.Context, accountID, platform, externalID string) error

	SetPronouns(ctx context.Context, accountID, pronouns string) error
}
