package ports

import (
	"context"
	"testing"

	"github.com/aretw0/flow/pkg/domain"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func contractDefinition(name string) *domain.GraphDefinition {
	return &domain.GraphDefinition{
		ID:   uuid.New(),
		Name: name,
		Doc:  "contract fixture",
		Nodes: []domain.NodeDescription{
			{"type": "Value", "value": "hello", "out": 1},
			{"type": "Control/Branch", "in": 2, "in_value": 1, "out": map[string]any{"hello": 3}},
		},
	}
}

// RunGraphStoreContract runs a suite of tests to verify that a GraphStore implementation
// adheres to the defined interface contract.
func RunGraphStoreContract(t *testing.T, store GraphStore) {
	ctx := context.Background()

	t.Run("Save and Load", func(t *testing.T) {
		// 1. Create a definition
		def := contractDefinition("contract")

		// 2. Save
		err := store.Save(ctx, def)
		require.NoError(t, err, "Save should not return error")

		// 3. Load
		loaded, err := store.Load(ctx, def.ID)
		require.NoError(t, err, "Load should not return error")
		assert.Equal(t, def.ID, loaded.ID)
		assert.Equal(t, def.Name, loaded.Name)
		assert.Equal(t, def.Doc, loaded.Doc)
		require.Len(t, loaded.Nodes, 2)
		assert.Equal(t, "Control/Branch", loaded.Nodes[1].Kind())
		// Numbers may come back as float64 or json.Number depending on the encoding.
		ref, err := domain.ToInt(loaded.Nodes[0]["out"])
		require.NoError(t, err)
		assert.Equal(t, 1, ref)
	})

	t.Run("Save Replaces", func(t *testing.T) {
		def := contractDefinition("before")
		require.NoError(t, store.Save(ctx, def))

		def.Name = "after"
		def.Nodes = def.Nodes[:1]
		require.NoError(t, store.Save(ctx, def))

		loaded, err := store.Load(ctx, def.ID)
		require.NoError(t, err)
		assert.Equal(t, "after", loaded.Name)
		assert.Len(t, loaded.Nodes, 1)
	})

	t.Run("Load Non-Existent", func(t *testing.T) {
		_, err := store.Load(ctx, uuid.New())
		assert.ErrorIs(t, err, domain.ErrGraphNotFound)
	})

	t.Run("Delete", func(t *testing.T) {
		// Setup
		def := contractDefinition("doomed")
		require.NoError(t, store.Save(ctx, def))

		// Delete
		err := store.Delete(ctx, def.ID)
		require.NoError(t, err, "Delete should not return error")

		// Verify gone
		_, err = store.Load(ctx, def.ID)
		assert.ErrorIs(t, err, domain.ErrGraphNotFound, "Load after Delete should return ErrGraphNotFound")

		// Deleting again is fine
		assert.NoError(t, store.Delete(ctx, def.ID))
	})

	t.Run("List", func(t *testing.T) {
		// Setup: Create 2 definitions
		d1 := contractDefinition("one")
		d2 := contractDefinition("two")
		require.NoError(t, store.Save(ctx, d1))
		require.NoError(t, store.Save(ctx, d2))

		// Ensure cleanup
		defer func() {
			_ = store.Delete(ctx, d1.ID)
			_ = store.Delete(ctx, d2.ID)
		}()

		// List
		ids, err := store.List(ctx)
		require.NoError(t, err)
		assert.Contains(t, ids, d1.ID)
		assert.Contains(t, ids, d2.ID)
	})
}
