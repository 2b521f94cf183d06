package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"

	"github.com/aretw0/flow/pkg/domain"
	"github.com/google/uuid"
	backend "github.com/redis/go-redis/v9"
)

const defaultPrefix = "flow:graph:"

// Store implements ports.GraphStore using Redis.
// Each definition is a JSON string under prefix+id; the set prefix+"index" tracks IDs.
type Store struct {
	client *backend.Client
	prefix string
}

// Option configures the Store.
type Option func(*Store)

// WithPrefix sets the key prefix (default "flow:graph:").
func WithPrefix(prefix string) Option {
	return func(s *Store) {
		s.prefix = prefix
	}
}

// New creates a Store connected to the given address.
func New(addr, password string, db int, opts ...Option) *Store {
	client := backend.NewClient(&backend.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	return NewFromClient(client, opts...)
}

// NewFromClient creates a Store over an existing client.
func NewFromClient(client *backend.Client, opts ...Option) *Store {
	s := &Store{
		client: client,
		prefix: defaultPrefix,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Client exposes the underlying client (shared with the Locker).
func (s *Store) Client() *backend.Client { return s.client }

func (s *Store) key(id uuid.UUID) string { return s.prefix + id.String() }

func (s *Store) indexKey() string { return s.prefix + "index" }

// Save writes the definition and indexes its ID in one transaction.
func (s *Store) Save(ctx context.Context, def *domain.GraphDefinition) error {
	data, err := json.Marshal(def)
	if err != nil {
		return fmt.Errorf("failed to marshal graph %s: %w", def.ID, err)
	}

	pipe := s.client.TxPipeline()
	pipe.Set(ctx, s.key(def.ID), data, 0)
	pipe.SAdd(ctx, s.indexKey(), def.ID.String())
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis error saving graph %s: %w", def.ID, err)
	}
	return nil
}

// Load reads the definition.
func (s *Store) Load(ctx context.Context, id uuid.UUID) (*domain.GraphDefinition, error) {
	data, err := s.client.Get(ctx, s.key(id)).Bytes()
	if errors.Is(err, backend.Nil) {
		return nil, domain.ErrGraphNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("redis error loading graph %s: %w", id, err)
	}

	var def domain.GraphDefinition
	if err := json.Unmarshal(data, &def); err != nil {
		return nil, fmt.Errorf("failed to unmarshal graph %s: %w", id, err)
	}
	return &def, nil
}

// Delete removes the definition and its index entry.
func (s *Store) Delete(ctx context.Context, id uuid.UUID) error {
	pipe := s.client.TxPipeline()
	pipe.Del(ctx, s.key(id))
	pipe.SRem(ctx, s.indexKey(), id.String())
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis error deleting graph %s: %w", id, err)
	}
	return nil
}

// List returns the indexed IDs, sorted. Malformed index entries are skipped.
func (s *Store) List(ctx context.Context) ([]uuid.UUID, error) {
	members, err := s.client.SMembers(ctx, s.indexKey()).Result()
	if err != nil {
		return nil, fmt.Errorf("redis error listing graphs: %w", err)
	}
	sort.Strings(members)

	ids := make([]uuid.UUID, 0, len(members))
	for _, m := range members {
		id, err := uuid.Parse(m)
		if err != nil {
			continue
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// Graphs loads every indexed definition with a single pipeline round trip.
func (s *Store) Graphs(ctx context.Context) ([]*domain.GraphDefinition, error) {
	ids, err := s.List(ctx)
	if err != nil {
		return nil, err
	}

	pipe := s.client.Pipeline()
	cmds := make([]*backend.StringCmd, len(ids))
	for i, id := range ids {
		cmds[i] = pipe.Get(ctx, s.key(id))
	}
	if _, err := pipe.Exec(ctx); err != nil && !errors.Is(err, backend.Nil) {
		return nil, fmt.Errorf("redis error loading graphs: %w", err)
	}

	defs := make([]*domain.GraphDefinition, 0, len(ids))
	for i, cmd := range cmds {
		data, err := cmd.Bytes()
		if errors.Is(err, backend.Nil) {
			continue // index entry outlived its key
		}
		if err != nil {
			return nil, fmt.Errorf("redis error loading graph %s: %w", ids[i], err)
		}
		var def domain.GraphDefinition
		if err := json.Unmarshal(data, &def); err != nil {
			return nil, fmt.Errorf("failed to unmarshal graph %s: %w", ids[i], err)
		}
		defs = append(defs, &def)
	}
	return defs, nil
}
