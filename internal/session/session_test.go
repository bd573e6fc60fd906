package session

import (
	"net/http/httptest"
	"testing"
	"time"
)

func TestIssueAndVerify(t *testing.T) {
	iss := NewIssuer("pronounhub", []byte("test-secret"), time.Hour)

	tok, err := iss.Issue("acct-123")
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	got, err := iss.Verify(tok)
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if got != "acct-123" {
		t.Fatalf("Verify subject = %q, want acct-123", got)
	}
}

func TestVerify_WrongSecret(t *testing.T) {
	a := NewIssuer("pronounhub", []byte("secret-a"), time.Hour)
	b := NewIssuer("pronounhub", []byte("secret-b"), time.Hour)

	tok, _ := a.Issue("acct-123")
	if _, err := b.Verify(tok); err == nil {
		t.Fatal("token signed with another secret verified")
	}
}

func TestVerify_Expired(t *testing.T) {
	iss := NewIssuer("pronounhub", []byte("test-secret"), time.Minute)
	tok, _ := iss.Issue("acct-123")

	iss.now = func() time.Time { return time.Now().Add(2 * time.Minute) }
	if _, err := iss.Verify(tok); err == nil {
		t.Fatal("expired token verified")
	}
}

func TestAccountID_FromRequest(t *testing.T) {
	iss := NewIssuer("pronounhub", []byte("test-secret"), time.Hour)
	tok, _ := iss.Issue("acct-123")

	r := httptest.NewRequest("GET", "/api/v1/me", nil)
	r.Header.Set("Cookie", CookieName+"="+tok)
	if got := iss.AccountID(r); got != "acct-123" {
		t.Fatalf("AccountID = %q, want acct-123", got)
	}

	bare := httptest.NewRequest("GET", "/api/v1/me", nil)
	if got := iss.AccountID(bare); got != "" {
		t.Fatalf("AccountID without cookie = %q, want empty", got)
	}

	bad := httptest.NewRequest("GET", "/api/v1/me", nil)
	bad.Header.Set("Cookie", CookieName+"=garbage")
	if got := iss.AccountID(bad); got != "" {
		t.Fatalf("AccountID with garbage cookie = %q, want empty", got)
	}
}
