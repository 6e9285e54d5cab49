// Package store is the external key-value store scrape results and session cookies are
// persisted to: repository-scoped variables (readable) and secrets (write only).
package store

import (
	"context"
	"errors"
	"sync"
)

var ErrVariableNotFound = errors.New("variable not found")

// Store reads and writes named values. Writes always overwrite.
type Store interface {
	GetVariable(ctx context.Context, name string) (string, error)
	SetVariable(ctx context.Context, name, value string) error
	PutSecret(ctx context.Context, name, value string) error
}

// Memory is a Store held in process memory.
type Memory struct {
	mu        sync.Mutex
	variables map[string]string
	secrets   map[string]string
}

func NewMemory() *Memory {
	return &Memory{
		variables: map[string]string{},
		secrets:   map[string]string{},
	}
}

func (m *Memory) GetVariable(_ context.Context, name string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	value, ok := m.variables[name]
	if !ok {
		return "", ErrVariableNotFound
	}
	return value, nil
}

func (m *Memory) SetVariable(_ context.Context, name, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.variables[name] = value
	return nil
}

func (m *Memory) PutSecret(_ context.Context, name, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.secrets[name] = value
	return nil
}

// Secret returns a secret value, secrets of the real stores cannot be read back so this
// only exists on Memory.
func (m *Memory) Secret(name string) (string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	value, ok := m.secrets[name]
	return value, ok
}

// Variables returns a copy of every variable.
func (m *Memory) Variables() map[string]string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[string]string, len(m.variables))
	for k, v := range m.variables {
		out[k] = v
	}
	return out
}
