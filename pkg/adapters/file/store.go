package file

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/aretw0/flow/pkg/domain"
	"github.com/google/uuid"
	"gopkg.in/yaml.v3"
)

// Store implements ports.GraphStore using the local filesystem.
// Saved definitions are JSON files named <id>.json in BasePath.
// Hand-written YAML or JSON files in the same directory are picked up by Graphs.
type Store struct {
	BasePath string
}

// NewStore creates a new Store with the given base path.
// If basePath is empty, it defaults to ".flow/graphs".
func NewStore(basePath string) *Store {
	if basePath == "" {
		basePath = filepath.Join(".flow", "graphs")
	}
	return &Store{BasePath: basePath}
}

func (f *Store) path(id uuid.UUID) string {
	return filepath.Join(f.BasePath, id.String()+".json")
}

// Save persists the definition to a JSON file.
func (f *Store) Save(ctx context.Context, def *domain.GraphDefinition) error {
	if def.ID == uuid.Nil {
		return fmt.Errorf("graph %q: id cannot be empty", def.Name)
	}

	// Ensure directory exists
	if err := os.MkdirAll(f.BasePath, 0755); err != nil {
		return fmt.Errorf("failed to ensure graph directory: %w", err)
	}

	data, err := json.MarshalIndent(def, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal graph: %w", err)
	}

	// Write to a sibling temp file and rename, so readers never see a partial file
	tmp := f.path(def.ID) + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("failed to write graph file: %w", err)
	}
	if err := os.Rename(tmp, f.path(def.ID)); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("failed to write graph file: %w", err)
	}
	return nil
}

// Load retrieves the definition from its JSON file.
func (f *Store) Load(ctx context.Context, id uuid.UUID) (*domain.GraphDefinition, error) {
	data, err := os.ReadFile(f.path(id))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, domain.ErrGraphNotFound
		}
		return nil, fmt.Errorf("failed to read graph file: %w", err)
	}

	var def domain.GraphDefinition
	if err := json.Unmarshal(data, &def); err != nil {
		return nil, fmt.Errorf("failed to unmarshal graph %s: %w", id, err)
	}
	return &def, nil
}

// Delete removes the graph file.
func (f *Store) Delete(ctx context.Context, id uuid.UUID) error {
	err := os.Remove(f.path(id))
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete graph file: %w", err)
	}
	return nil
}

// List returns the IDs of all saved definitions.
func (f *Store) List(ctx context.Context) ([]uuid.UUID, error) {
	entries, err := os.ReadDir(f.BasePath)
	if err != nil {
		if os.IsNotExist(err) {
			return []uuid.UUID{}, nil
		}
		return nil, fmt.Errorf("failed to list graphs: %w", err)
	}

	var ids []uuid.UUID
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || filepath.Ext(name) != ".json" {
			continue
		}
		id, err := uuid.Parse(strings.TrimSuffix(name, ".json"))
		if err != nil {
			continue // hand-written file
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// Graphs reads every .json, .yaml and .yml file in BasePath, sorted by file name.
// Files sharing an ID are rejected.
func (f *Store) Graphs(ctx context.Context) ([]*domain.GraphDefinition, error) {
	entries, err := os.ReadDir(f.BasePath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to list graphs: %w", err)
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name() < entries[j].Name() })

	seen := make(map[uuid.UUID]string)
	var defs []*domain.GraphDefinition
	for _, entry := range entries {
		if entry.IsDir() || !IsGraphFile(entry.Name()) {
			continue
		}
		def, err := ReadFile(filepath.Join(f.BasePath, entry.Name()))
		if err != nil {
			return nil, err
		}
		if other, ok := seen[def.ID]; ok {
			return nil, fmt.Errorf("collision detected: graph ID %s is defined in both '%s' and '%s'", def.ID, other, entry.Name())
		}
		seen[def.ID] = entry.Name()
		defs = append(defs, def)
	}
	return defs, nil
}

// IsGraphFile reports whether the name has a graph file extension.
func IsGraphFile(name string) bool {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".json", ".yaml", ".yml":
		return true
	}
	return false
}

// ReadFile parses a graph file. The format follows the extension.
func ReadFile(path string) (*domain.GraphDefinition, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read graph file: %w", err)
	}
	base := filepath.Base(path)
	def, err := Parse(base, data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return def, nil
}

// Parse decodes a definition from JSON or YAML according to name's extension.
// A missing name defaults to the file name without extension; a missing ID is
// derived from the name.
func Parse(name string, data []byte) (*domain.GraphDefinition, error) {
	var def domain.GraphDefinition
	switch strings.ToLower(filepath.Ext(name)) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &def); err != nil {
			return nil, fmt.Errorf("invalid yaml: %w", err)
		}
	default:
		dec := json.NewDecoder(strings.NewReader(string(data)))
		dec.UseNumber()
		if err := dec.Decode(&def); err != nil {
			return nil, fmt.Errorf("invalid json: %w", err)
		}
	}

	if def.Name == "" {
		def.Name = strings.TrimSuffix(name, filepath.Ext(name))
	}
	if def.ID == uuid.Nil {
		def.ID = domain.StableID(def.Name)
	}
	for i, desc := range def.Nodes {
		if desc.Kind() == "" {
			return nil, fmt.Errorf("node %d: missing %q", i, domain.KindKey)
		}
	}
	return &def, nil
}
