package ports

import (
	"context"

	"github.com/aretw0/flow/pkg/domain"
	"github.com/google/uuid"
)

// GraphStore defines the interface for persisting graph definitions.
type GraphStore interface {
	// Save persists the definition under its ID, replacing any previous version.
	Save(ctx context.Context, def *domain.GraphDefinition) error

	// Load retrieves the definition with the given ID.
	// Returns domain.ErrGraphNotFound if it does not exist.
	Load(ctx context.Context, id uuid.UUID) (*domain.GraphDefinition, error)

	// Delete removes the definition. Deleting a missing ID is not an error.
	Delete(ctx context.Context, id uuid.UUID) error

	// List returns the IDs of all stored definitions.
	List(ctx context.Context) ([]uuid.UUID, error)
}

// GraphSource defines a read-only collection of graph definitions.
type GraphSource interface {
	// Graphs returns every definition the source holds.
	Graphs(ctx context.Context) ([]*domain.GraphDefinition, error)
}

// Watchable is implemented by sources that can signal changes.
type Watchable interface {
	// Watch emits the ID of each changed document until ctx is done.
	Watch(ctx context.Context) (<-chan string, error)
}
