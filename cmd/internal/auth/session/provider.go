package session

import (
	"context"
	"sync"
)

// State is the snapshot a Provider exposes to views.
type State struct {
	User      *Claims
	IsLoading bool
}

// Provider holds the current user for a client view, populated once per mount.
// It never caches verification across mounts: every Load re-verifies through the bridge.
type Provider struct {
	bridge *Bridge

	mu      sync.RWMutex
	user    *Claims
	loading bool
}

// NewProvider returns a Provider in the loading state.
func NewProvider(bridge *Bridge) *Provider {
	return &Provider{bridge: bridge, loading: true}
}

// Load reads and verifies the local copy. An invalid token is cleared by the bridge
// and leaves the provider anonymous.
func (p *Provider) Load(ctx context.Context) (State, error) {
	p.mu.Lock()
	p.loading = true
	p.mu.Unlock()

	claims, ok, err := p.bridge.Current(ctx)

	p.mu.Lock()
	defer p.mu.Unlock()
	p.loading = false
	p.user = nil
	if err == nil && ok {
		p.user = &claims
	}
	return p.stateLocked(), err
}

// State returns the latest snapshot.
func (p *Provider) State() State {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.stateLocked()
}

// Logout clears both stores and resets the user. It does not contact any server.
func (p *Provider) Logout(ctx context.Context) error {
	err := p.bridge.Clear(ctx)

	p.mu.Lock()
	p.user = nil
	p.loading = false
	p.mu.Unlock()
	return err
}

func (p *Provider) stateLocked() State {
	st := State{IsLoading: p.loading}
	if p.user != nil {
		u := *p.user
		st.User = &u
	}
	return st
}
