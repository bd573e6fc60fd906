package provider

import (
	"fmt"
	"sort"
	"sync"
)

// Registry holds the configured adapters, keyed by platform. Registration
// happens once at wiring time; lookups are concurrent after that.
type Registry struct {
	mu       sync.RWMutex
	adapters map[string]Adapter
}

func NewRegistry() *Registry {
	return &Registry{adapters: make(map[string]Adapter)}
}

// Register adds an adapter. A duplicate platform key is a wiring bug.
func (r *Registry) Register(a Adapter) error {
	cfg := a.Config()
	if cfg.Platform == "" {
		return fmt.Errorf("provider: adapter with empty platform key")
	}
	if cfg.Version != Version1 && cfg.Version != Version2 {
		return fmt.Errorf("provider: %s: unsupported oauth version %d", cfg.Platform, cfg.Version)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, dup := r.adapters[cfg.Platform]; dup {
		return fmt.Errorf("provider: duplicate platform %q", cfg.Platform)
	}
	r.adapters[cfg.Platform] = a
	return nil
}

// Get returns the adapter for a platform, or nil.
func (r *Registry) Get(platform string) Adapter {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.adapters[platform]
}

// Platforms returns the registered platform keys, sorted.
func (r *Registry) Platforms() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.adapters))
	for k := range r.adapters {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
