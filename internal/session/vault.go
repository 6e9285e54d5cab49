package session

import (
	"context"
	"fmt"

	"github.com/Hamza5/InteractiveCV/internal/components/assert"
	"github.com/Hamza5/InteractiveCV/internal/store"
)

// Vault is where a CookieSet lives between runs.
type Vault interface {
	Load(ctx context.Context) (CookieSet, error)
	Save(ctx context.Context, cookies CookieSet) error
}

// VariableVault keeps the cookies in a readable store variable.
type VariableVault struct {
	store store.Store
	name  string
}

func NewVariableVault(s store.Store, name string) VariableVault {
	assert.NotNil(s)
	assert.NotEmptyStr(name)
	return VariableVault{store: s, name: name}
}

func (v VariableVault) Load(ctx context.Context) (CookieSet, error) {
	value, err := v.store.GetVariable(ctx, v.name)
	if err != nil {
		return nil, fmt.Errorf("read variable %s: %w", v.name, err)
	}
	return ParseCookieSet([]byte(value))
}

func (v VariableVault) Save(ctx context.Context, cookies CookieSet) error {
	encoded, err := cookies.Encode()
	if err != nil {
		return err
	}
	return v.store.SetVariable(ctx, v.name, encoded)
}

// SecretVault keeps the cookies in a store secret. Secrets cannot be read back through
// the store, the current value is handed to the process (usually through the
// environment) and passed in as initial.
type SecretVault struct {
	store   store.Store
	name    string
	initial string
}

func NewSecretVault(s store.Store, name, initial string) SecretVault {
	assert.NotNil(s)
	assert.NotEmptyStr(name)
	return SecretVault{store: s, name: name, initial: initial}
}

func (v SecretVault) Load(context.Context) (CookieSet, error) {
	if v.initial == "" {
		return nil, fmt.Errorf("secret %s was not provided to the process", v.name)
	}
	return ParseCookieSet([]byte(v.initial))
}

func (v SecretVault) Save(ctx context.Context, cookies CookieSet) error {
	encoded, err := cookies.Encode()
	if err != nil {
		return err
	}
	return v.store.PutSecret(ctx, v.name, encoded)
}
