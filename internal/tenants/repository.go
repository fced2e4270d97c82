package tenants

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/angelmondragon/mycms-backend/internal/docstore"
	pkgerrors "github.com/angelmondragon/mycms-backend/pkg/errors"
)

// Repository reads and writes typed tenant documents over a Store.
type Repository struct {
	store docstore.Store
}

func NewRepository(store docstore.Store) (*Repository, error) {
	if store == nil {
		return nil, errors.New("document store is required")
	}
	return &Repository{store: store}, nil
}

// Find returns the document stored under key, or nil when absent.
func (r *Repository) Find(ctx context.Context, key string) (*Document, error) {
	raw, err := r.store.Get(ctx, key)
	if err != nil {
		return nil, err
	}
	if raw == nil {
		return nil, nil
	}
	var doc Document
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, fmt.Sprintf("tenant document %s is not readable", key))
	}
	doc.normalize()
	return &doc, nil
}

// Load is Find that fails with TENANT_NOT_FOUND when the key is absent.
func (r *Repository) Load(ctx context.Context, key string) (*Document, error) {
	doc, err := r.Find(ctx, key)
	if err != nil {
		return nil, err
	}
	if doc == nil {
		return nil, pkgerrors.New(pkgerrors.CodeTenantNotFound, "tenant not found").
			WithDetails(map[string]any{"key": key})
	}
	return doc, nil
}

// Save writes the whole document under key.
func (r *Repository) Save(ctx context.Context, key string, doc *Document) error {
	if doc == nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "tenant document is required")
	}
	doc.normalize()
	raw, err := json.Marshal(doc)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "encode tenant document")
	}
	return r.store.Put(ctx, key, raw)
}
