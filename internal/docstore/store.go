package docstore

import (
	"context"
	"encoding/json"
	"strings"

	pkgerrors "github.com/angelmondragon/mycms-backend/pkg/errors"
)

const tenantKeyPrefix = "user:"

// Store is an opaque JSON document store with read-modify-write semantics.
// Get returns (nil, nil) when the key is absent. There is no compare-and-swap;
// concurrent writers to the same key race and the last Put wins.
type Store interface {
	Get(ctx context.Context, key string) (json.RawMessage, error)
	Put(ctx context.Context, key string, value json.RawMessage) error
}

// Pinger is implemented by backends that can report readiness.
type Pinger interface {
	Ping(ctx context.Context) error
}

// NormalizeEmail lower-cases and trims an email address.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// TenantKey returns the store key for a tenant email.
func TenantKey(email string) string {
	return tenantKeyPrefix + NormalizeEmail(email)
}

// EmailFromKey strips the tenant prefix from a key, normalizing what remains.
func EmailFromKey(key string) string {
	return NormalizeEmail(strings.TrimPrefix(strings.TrimSpace(key), tenantKeyPrefix))
}

func validateKey(key string) error {
	if strings.TrimSpace(key) == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "document key is required")
	}
	return nil
}

func validateValue(value json.RawMessage) error {
	if len(value) == 0 || !json.Valid(value) {
		return pkgerrors.New(pkgerrors.CodeValidation, "document body must be valid json")
	}
	return nil
}

func dependencyError(err error, op string) error {
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "document store "+op+" failed")
}
