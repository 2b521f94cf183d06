package loam

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/aretw0/flow/pkg/domain"
	"github.com/aretw0/loam"
	"github.com/google/uuid"
)

// Source adapts a Loam repository to ports.GraphSource.
// Every document (Markdown with frontmatter, JSON or YAML) is one graph.
type Source struct {
	Repo *loam.TypedRepository[GraphMetadata]
}

// New creates a new Loam adapter.
func New(repo *loam.TypedRepository[GraphMetadata]) *Source {
	return &Source{
		Repo: repo,
	}
}

// Open initializes a strict, read-only Loam repository at path and wraps it.
func Open(path string) (*Source, error) {
	repo, err := loam.Init(path,
		loam.WithStrict(true),
		loam.WithReadOnly(true),
		loam.WithVersioning(false),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to open loam repository %s: %w", path, err)
	}
	return New(loam.NewTypedRepository[GraphMetadata](repo)), nil
}

// Graphs lists every document as a graph definition.
func (s *Source) Graphs(ctx context.Context) ([]*domain.GraphDefinition, error) {
	docs, err := s.Repo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("loam list failed: %w", err)
	}

	seen := make(map[uuid.UUID]string)
	defs := make([]*domain.GraphDefinition, 0, len(docs))
	for _, doc := range docs {
		def, err := toDefinition(doc.ID, doc.Data, doc.Content)
		if err != nil {
			return nil, err
		}

		// Collision Detection
		if existing, ok := seen[def.ID]; ok {
			return nil, fmt.Errorf("collision detected: graph '%s' is defined in both '%s' and '%s'", def.Name, existing, doc.ID)
		}
		seen[def.ID] = doc.ID
		defs = append(defs, def)
	}
	return defs, nil
}

func toDefinition(docID string, meta GraphMetadata, content string) (*domain.GraphDefinition, error) {
	def := &domain.GraphDefinition{
		Name: meta.Name,
		Doc:  meta.Doc,
	}
	if def.Name == "" {
		def.Name = trimExtension(docID)
	}
	if def.Doc == "" {
		def.Doc = strings.TrimSpace(content)
	}

	switch {
	case meta.ID == "":
		def.ID = domain.StableID(def.Name)
	default:
		id, err := uuid.Parse(meta.ID)
		if err != nil {
			return nil, fmt.Errorf("%s: invalid id %q: %w", docID, meta.ID, err)
		}
		def.ID = id
	}

	def.Nodes = make([]domain.NodeDescription, len(meta.Nodes))
	for i, n := range meta.Nodes {
		desc := domain.NodeDescription(n)
		if desc.Kind() == "" {
			return nil, fmt.Errorf("%s: node %d: missing %q", docID, i, domain.KindKey)
		}
		def.Nodes[i] = desc
	}
	return def, nil
}

func trimExtension(id string) string {
	ext := filepath.Ext(id)
	if ext != "" {
		return filepath.ToSlash(strings.TrimSuffix(id, ext))
	}
	return filepath.ToSlash(id)
}

// Watch implements ports.Watchable.
func (s *Source) Watch(ctx context.Context) (<-chan string, error) {
	// Watch for all relevant files (recursive) using the doublestar pattern supported by Loam
	events, err := s.Repo.Watch(ctx, "**/*.{md,json,yaml,yml}")
	if err != nil {
		return nil, fmt.Errorf("failed to start loam watcher: %w", err)
	}

	ch := make(chan string, 1)

	go func() {
		defer close(ch)
		for {
			select {
			case <-ctx.Done():
				return
			case evt, ok := <-events:
				if !ok {
					return
				}
				// Pass the changed ID up the chain, respecting context cancellation.
				select {
				case ch <- evt.ID:
				case <-ctx.Done():
					return
				}
			}
		}
	}()

	return ch, nil
}
