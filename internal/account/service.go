package account

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/pronounhub/pronounhub/internal/codes"
	"github.com/pronounhub/pronounhub/internal/flow"
	"github.com/pronounhub/pronounhub/internal/provider"
)

// Service resolves a verified external identity into an internal account
// per the requested intent. It is the flow.Resolver wired into every
// provider flow.
type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service { return &Service{repo: repo} }

func (s *Service) Repository() Repository { return s.repo }

// Resolve applies the intent rules:
//
//	login:    the identity must already be linked somewhere.
//	register: the identity must not be linked; a new account is created.
//	link:     the identity must not be linked anywhere, including to the
//	          caller's own account, and is attached to the caller.
func (s *Service) Resolve(ctx context.Context, ident provider.ExternalIdentity, intent flow.Intent, currentAccountID string) (string, error) {
	existing, err := s.repo.FindByIdentity(ctx, ident.Platform, ident.ID)
	if err != nil && err != ErrNotFound {
		return "", fmt.Errorf("resolve %s identity: %w", ident.Platform, err)
	}

	switch intent {
	case flow.IntentLogin:
		if existing == nil {
			return "", codes.E(codes.NotFound)
		}
		return existing.ID, nil

	case flow.IntentRegister:
		if existing != nil {
			return "", codes.E(codes.AlreadyExists)
		}
		a := &Account{
			ID:       uuid.NewString(),
			Pronouns: DefaultPronouns,
			Accounts: []Linked{{Platform: ident.Platform, ID: ident.ID, Name: ident.Name}},
		}
		if err := s.repo.Create(ctx, a); err != nil {
			if err == ErrConflict {
				return "", codes.E(codes.AlreadyExists)
			}
			return "", fmt.Errorf("create account: %w", err)
		}
		return a.ID, nil

	case flow.IntentLink:
		if existing != nil {
			// Already linked anywhere, the caller's own account included.
			return "", codes.E(codes.AlreadyLinked)
		}
		err := s.repo.AddIdentity(ctx, currentAccountID, Linked{Platform: ident.Platform, ID: ident.ID, Name: ident.Name})
		if err == ErrConflict {
			return "", codes.E(codes.AlreadyLinked)
		}
		if err != nil {
			return "", fmt.Errorf("link %s identity: %w", ident.Platform, err)
		}
		return currentAccountID, nil

	default:
		return "", codes.E(codes.OAuthGeneric)
	}
}
