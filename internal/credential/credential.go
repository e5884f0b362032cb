// Package credential resolves provider API keys from durable, session-only
// and environment sources.
package credential

import (
	"fmt"
	"os"
	"strings"
	"sync"
)

// Store reads and writes secrets keyed by provider id. Get returns "" with a
// nil error when no secret is stored.
type Store interface {
	Get(providerID string) (string, error)
	Set(providerID, secret string) error
	Delete(providerID string) error
}

// Memory keeps secrets for the lifetime of the process.
type Memory struct {
	mu      sync.RWMutex
	secrets map[string]string
}

// NewMemory returns an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{secrets: make(map[string]string)}
}

func (m *Memory) Get(providerID string) (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.secrets[providerID], nil
}

func (m *Memory) Set(providerID, secret string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.secrets[providerID] = secret
	return nil
}

func (m *Memory) Delete(providerID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.secrets, providerID)
	return nil
}

// Backend is the subset of db.Store used for durable secrets.
type Backend interface {
	Credential(providerID string) (string, bool, error)
	SetCredential(providerID, secret string) error
	DeleteCredential(providerID string) error
}

// Durable stores secrets in the database.
type Durable struct {
	backend Backend
}

// NewDurable wraps a database backend.
func NewDurable(backend Backend) *Durable {
	return &Durable{backend: backend}
}

func (d *Durable) Get(providerID string) (string, error) {
	secret, _, err := d.backend.Credential(providerID)
	if err != nil {
		return "", fmt.Errorf("read credential %s: %w", providerID, err)
	}
	return secret, nil
}

func (d *Durable) Set(providerID, secret string) error {
	return d.backend.SetCredential(providerID, secret)
}

func (d *Durable) Delete(providerID string) error {
	return d.backend.DeleteCredential(providerID)
}

// Env reads DICTATE_API_KEY_<ID> variables. It is read-only.
type Env struct {
	lookup func(string) (string, bool)
}

// NewEnv reads from the process environment.
func NewEnv() *Env {
	return &Env{lookup: os.LookupEnv}
}

// EnvName returns the variable consulted for a provider id.
func EnvName(providerID string) string {
	name := strings.ToUpper(providerID)
	name = strings.Map(func(r rune) rune {
		if (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') {
			return r
		}
		return '_'
	}, name)
	return "DICTATE_API_KEY_" + name
}

func (e *Env) Get(providerID string) (string, error) {
	v, _ := e.lookup(EnvName(providerID))
	return strings.TrimSpace(v), nil
}

func (e *Env) Set(providerID, _ string) error {
	return fmt.Errorf("environment credentials are read-only; export %s instead", EnvName(providerID))
}

func (e *Env) Delete(string) error { return nil }

// Chain reads from each store in order and writes to the first.
type Chain struct {
	stores []Store
}

// NewChain builds a chain. The first store receives writes.
func NewChain(stores ...Store) *Chain {
	return &Chain{stores: stores}
}

func (c *Chain) Get(providerID string) (string, error) {
	for _, s := range c.stores {
		secret, err := s.Get(providerID)
		if err != nil {
			return "", err
		}
		if secret != "" {
			return secret, nil
		}
	}
	return "", nil
}

func (c *Chain) Set(providerID, secret string) error {
	if len(c.stores) == 0 {
		return fmt.Errorf("no credential store configured")
	}
	return c.stores[0].Set(providerID, secret)
}

func (c *Chain) Delete(providerID string) error {
	for _, s := range c.stores {
		if err := s.Delete(providerID); err != nil {
			return err
		}
	}
	return nil
}
