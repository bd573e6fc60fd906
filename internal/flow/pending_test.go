package flow

import (
	"testing"
	"time"
)

func TestMemoryPending_TakeIsReadOnce(t *testing.T) {
	p := NewMemoryPending()
	p.Put("discord-abc", PendingExchange{Nonce: "n1", Secret: "s1"}, PendingTTL)

	e, ok := p.Take("discord-abc")
	if !ok {
		t.Fatal("first Take missed")
	}
	if e.Nonce != "n1" || e.Secret != "s1" {
		t.Fatalf("entry = %+v", e)
	}

	if _, ok := p.Take("discord-abc"); ok {
		t.Fatal("second Take succeeded, entry was not consumed")
	}
}

func TestMemoryPending_Expiry(t *testing.T) {
	p := NewMemoryPending()
	p.Put("twitter-xyz", PendingExchange{}, 10*time.Millisecond)

	time.Sleep(30 * time.Millisecond)
	if _, ok := p.Take("twitter-xyz"); ok {
		t.Fatal("expired entry still takeable")
	}
}

func TestMemoryPending_DeleteAbsentIsNoop(t *testing.T) {
	p := NewMemoryPending()
	p.Delete("never-existed")

	p.Put("k", PendingExchange{}, PendingTTL)
	p.Delete("k")
	p.Delete("k")
	if _, ok := p.Take("k"); ok {
		t.Fatal("deleted entry still takeable")
	}
}

func TestMemoryPending_KeysAreIndependent(t *testing.T) {
	p := NewMemoryPending()
	p.Put("discord-tok", PendingExchange{Nonce: "a"}, PendingTTL)
	p.Put("twitter-tok", PendingExchange{Nonce: "b"}, PendingTTL)

	if e, ok := p.Take("twitter-tok"); !ok || e.Nonce != "b" {
		t.Fatalf("twitter entry = %+v ok=%v", e, ok)
	}
	if e, ok := p.Take("discord-tok"); !ok || e.Nonce != "a" {
		t.Fatalf("discord entry = %+v ok=%v", e, ok)
	}
}
