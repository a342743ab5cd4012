// Package secrets resolves credentials from HashiCorp Vault with a fallback
// to the process environment.
package secrets

import (
	"context"
	"errors"
)

var (
	ErrSecretNotFound = errors.New("secret not found")
	ErrNoVaultToken   = errors.New("no vault token provided")
	ErrNoVaultAddress = errors.New("no vault address provided")
)

// Manager provides access to secrets.
type Manager interface {
	// GetSecret retrieves a secret by key.
	GetSecret(ctx context.Context, key string) (string, error)

	// GetSecretWithDefault retrieves a secret with a default value if not found.
	GetSecretWithDefault(ctx context.Context, key, defaultValue string) string
}

// Resolve returns the secret stored under key, or current when the manager
// has nothing for it. A nil manager returns current.
func Resolve(ctx context.Context, m Manager, key, current string) string {
	if m == nil {
		return current
	}
	return m.GetSecretWithDefault(ctx, key, current)
}
