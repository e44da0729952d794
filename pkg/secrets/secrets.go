package secrets

import (
	"context"
)

// DatabasePasswordKey names the database password in Vault and, upper-cased,
// in the environment
const DatabasePasswordKey = "db_password"

// Manager provides access to secrets from various sources
type Manager interface {
	// GetSecret retrieves a secret by key
	GetSecret(ctx context.Context, key string) (string, error)

	// GetSecretWithDefault retrieves a secret with a default value if not found
	GetSecretWithDefault(ctx context.Context, key, defaultValue string) string
}

// ResolveDatabasePassword returns the database password held by m, or
// configured when m has none
func ResolveDatabasePassword(ctx context.Context, m Manager, configured string) string {
	if m == nil {
		return configured
	}
	return m.GetSecretWithDefault(ctx, DatabasePasswordKey, configured)
}
