// Package repo defines the generic entity Repository and its graph-backed
// implementation.
package repo

import (
	"context"

	"github.com/WessleyAI/fleetgraph/engine/domain"
)

// Repository is the CRUD surface shared by every entity kind.
type Repository[T domain.Entity] interface {
	// Create upserts e on its identity key. Repeating it is a no-op.
	Create(ctx context.Context, e T) (T, error)
	// FindByKey reports absence through found=false, not an error.
	FindByKey(ctx context.Context, key string) (e T, found bool, err error)
	// FindAll returns at most limit entities in the kind's default order.
	FindAll(ctx context.Context, limit int) ([]T, error)
	// Update replaces an existing entity and fails with NotFoundError when absent.
	Update(ctx context.Context, e T) (T, error)
	// Delete removes the entity and its relationships, reporting whether it existed.
	Delete(ctx context.Context, key string) (bool, error)
}

// Decoder builds an entity from stored node properties.
type Decoder[T any] func(props map[string]any) (T, error)

// Pair is one (source, target) traversal row.
type Pair[A, B any] struct {
	From A
	To   B
}
