package flow

import (
	"sync"
	"time"

	gocache "github.com/patrickmn/go-cache"
)

// PendingTTL bounds how long a started flow may wait for its callback.
// Signed flow cookies use the same horizon.
const PendingTTL = 300 * time.Second

// PendingExchange correlates a callback with the authorize request that
// started the flow. For OAuth 1.0a, Nonce is the signer's per-request
// nonce from the request-token call and Secret the request token secret;
// OAuth 2.0 entries are empty markers whose existence is the proof.
type PendingExchange struct {
	Nonce  string `json:"nonce,omitempty"`
	Secret string `json:"secret,omitempty"`
}

// PendingStore is the short-lived correlation map shared by all in-flight
// flows. Keys are `{platform}-{token}` so tokens can never collide across
// platforms.
//
// Take is read-once: the existence check and the delete are one atomic
// step, which is what makes replaying a consumed callback impossible.
// Delete of an absent key is a no-op, so expiry racing a legitimate
// consumption is harmless.
type PendingStore interface {
	Put(key string, e PendingExchange, ttl time.Duration)
	Take(key string) (PendingExchange, bool)
	Delete(key string)
}

// MemoryPending is the single-process store, a TTL cache guarded by a
// mutex so Take stays atomic across concurrent callbacks.
type MemoryPending struct {
	mu sync.Mutex
	c  *gocache.Cache
}

func NewMemoryPending() *MemoryPending {
	return &MemoryPending{c: gocache.New(PendingTTL, time.Minute)}
}

func (m *MemoryPending) Put(key string, e PendingExchange, ttl time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.c.Set(key, e, ttl)
}

func (m *MemoryPending) Take(key string) (PendingExchange, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.c.Get(key)
	if !ok {
		return PendingExchange{}, false
	}
	m.c.Delete(key)
	e, ok := v.(PendingExchange)
	return e, ok
}

func (m *MemoryPending) Delete(key string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.c.Delete(key)
}
