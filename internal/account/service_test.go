package account

import (
	"context"
	"testing"

	"github.com/pronounhub/pronounhub/internal/codes"
	"github.com/pronounhub/pronounhub/internal/flow"
	"github.com/pronounhub/pronounhub/internal/provider"
)

func ident(platform, id, name string) provider.ExternalIdentity {
	return provider.ExternalIdentity{Platform: platform, ID: id, Name: name}
}

func TestResolve_RegisterThenLogin(t *testing.T) {
	svc := NewService(NewMemoryRepository())
	ctx := context.Background()

	id, err := svc.Resolve(ctx, ident("discord", "1234", "blair"), flow.IntentRegister, "")
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if id == "" {
		t.Fatal("register returned empty account id")
	}

	got, err := svc.Resolve(ctx, ident("discord", "1234", "blair"), flow.IntentLogin, "")
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if got != id {
		t.Fatalf("login resolved %q, want %q", got, id)
	}

	a, err := svc.Repository().GetByID(ctx, id)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if a.Pronouns != DefaultPronouns {
		t.Fatalf("new account pronouns = %q, want %q", a.Pronouns, DefaultPronouns)
	}
}

func TestResolve_LoginUnknownIdentity(t *testing.T) {
	svc := NewService(NewMemoryRepository())

	_, err := svc.Resolve(context.Background(), ident("github", "999", "nobody"), flow.IntentLogin, "")
	if !codes.Is(err, codes.NotFound) {
		t.Fatalf("err = %v, want code %s", err, codes.NotFound)
	}
}

func TestResolve_RegisterExistingIdentity(t *testing.T) {
	repo := NewMemoryRepository()
	svc := NewService(repo)
	ctx := context.Background()

	first, err := svc.Resolve(ctx, ident("twitch", "42", "streamer"), flow.IntentRegister, "")
	if err != nil {
		t.Fatalf("first register: %v", err)
	}

	_, err = svc.Resolve(ctx, ident("twitch", "42", "streamer"), flow.IntentRegister, "")
	if !codes.Is(err, codes.AlreadyExists) {
		t.Fatalf("err = %v, want code %s", err, codes.AlreadyExists)
	}

	// The failed register must not have touched the existing account.
	a, err := repo.GetByID(ctx, first)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if len(a.Accounts) != 1 {
		t.Fatalf("account has %d links, want 1", len(a.Accounts))
	}
}

func TestResolve_Link(t *testing.T) {
	svc := NewService(NewMemoryRepository())
	ctx := context.Background()

	id, err := svc.Resolve(ctx, ident("discord", "1", "blair"), flow.IntentRegister, "")
	if err != nil {
		t.Fatalf("register: %v", err)
	}

	got, err := svc.Resolve(ctx, ident("github", "2", "blair-gh"), flow.IntentLink, id)
	if err != nil {
		t.Fatalf("link: %v", err)
	}
	if got != id {
		t.Fatalf("link resolved %q, want %q", got, id)
	}

	a, _ := svc.Repository().GetByID(ctx, id)
	if len(a.Accounts) != 2 {
		t.Fatalf("account has %d links, want 2", len(a.Accounts))
	}
}

func TestResolve_LinkSecondIdentityOnSamePlatform(t *testing.T) {
	svc := NewService(NewMemoryRepository())
	ctx := context.Background()

	id, err := svc.Resolve(ctx, ident("discord", "1", "main"), flow.IntentRegister, "")
	if err != nil {
		t.Fatalf("register: %v", err)
	}

	// The conflict rule is per {platform, id} pair, so a second discord
	// identity on the same account is an ordinary link.
	got, err := svc.Resolve(ctx, ident("discord", "2", "alt"), flow.IntentLink, id)
	if err != nil {
		t.Fatalf("link second discord identity: %v", err)
	}
	if got != id {
		t.Fatalf("link resolved %q, want %q", got, id)
	}

	a, _ := svc.Repository().GetByID(ctx, id)
	if len(a.Accounts) != 2 {
		t.Fatalf("account has %d links, want 2", len(a.Accounts))
	}
	if err := svc.Repository().RemoveIdentity(ctx, id, "discord", "2"); err != nil {
		t.Fatalf("unlink alt identity: %v", err)
	}
	a, _ = svc.Repository().GetByID(ctx, id)
	if len(a.Accounts) != 1 || a.Accounts[0].ID != "1" {
		t.Fatalf("remaining links = %+v", a.Accounts)
	}
}

func TestResolve_LinkAlreadyLinkedIdentity(t *testing.T) {
	svc := NewService(NewMemoryRepository())
	ctx := context.Background()

	a1, _ := svc.Resolve(ctx, ident("discord", "1", "a"), flow.IntentRegister, "")
	a2, _ := svc.Resolve(ctx, ident("github", "2", "b"), flow.IntentRegister, "")

	// Linked to a different account.
	_, err := svc.Resolve(ctx, ident("discord", "1", "a"), flow.IntentLink, a2)
	if !codes.Is(err, codes.AlreadyLinked) {
		t.Fatalf("cross-account link err = %v, want code %s", err, codes.AlreadyLinked)
	}

	// Linked to the caller's own account counts too.
	_, err = svc.Resolve(ctx, ident("discord", "1", "a"), flow.IntentLink, a1)
	if !codes.Is(err, codes.AlreadyLinked) {
		t.Fatalf("self link err = %v, want code %s", err, codes.AlreadyLinked)
	}
}

func TestMemoryRepository_RemoveIdentity(t *testing.T) {
	repo := NewMemoryRepository()
	ctx := context.Background()

	a := &Account{ID: "acct-1", Accounts: []Linked{
		{Platform: "discord", ID: "1", Name: "a"},
		{Platform: "github", ID: "2", Name: "b"},
	}}
	if err := repo.Create(ctx, a); err != nil {
		t.Fatalf("Create: %v", err)
	}

	if err := repo.RemoveIdentity(ctx, "acct-1", "github", "2"); err != nil {
		t.Fatalf("RemoveIdentity: %v", err)
	}
	if err := repo.RemoveIdentity(ctx, "acct-1", "discord", "1"); err != ErrLastLink {
		t.Fatalf("removing last link err = %v, want ErrLastLink", err)
	}
	if err := repo.RemoveIdentity(ctx, "acct-1", "discord", "9"); err != ErrNotFound {
		t.Fatalf("removing wrong id err = %v, want ErrNotFound", err)
	}
	if err := repo.RemoveIdentity(ctx, "acct-1", "twitter", "1"); err != ErrNotFound {
		t.Fatalf("removing unlinked platform err = %v, want ErrNotFound", err)
	}

	// The freed identity can be re-linked.
	if err := repo.AddIdentity(ctx, "acct-1", Linked{Platform: "github", ID: "2", Name: "b"}); err != nil {
		t.Fatalf("re-link: %v", err)
	}
}
