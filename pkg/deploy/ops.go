package deploy

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aretw0/flow/pkg/domain"
	"github.com/aretw0/flow/pkg/nodes/util"
	"github.com/aretw0/flow/pkg/ports"
	"github.com/aretw0/flow/pkg/runtime"
	"github.com/google/uuid"
)

// Trigger emits ref on the deployed graph and runs the control chain to
// completion. Triggers on one graph are serialized in process.
func (m *Manager) Trigger(ctx context.Context, id uuid.UUID, ref domain.PortRef) error {
	d, err := m.Get(id)
	if err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	start := time.Now()
	err = m.withLocal(id, func() error {
		return d.Scope.Trigger(ref)
	})
	if m.metrics != nil {
		m.metrics.ObserveTrigger(d.Graph.Name, start, err)
	}
	if err != nil {
		return fmt.Errorf("graph %q: trigger %s: %w", d.Graph.Name, ref, err)
	}
	return nil
}

// Read pulls ref from the deployed graph.
func (m *Manager) Read(ctx context.Context, id uuid.UUID, ref domain.PortRef) (any, error) {
	d, err := m.Get(id)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var v any
	err = m.withLocal(id, func() error {
		var err error
		v, err = d.Scope.Read(ref)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("graph %q: read %s: %w", d.Graph.Name, ref, err)
	}
	return v, nil
}

// Probes returns what every Util/Probe of the deployed graph observed so far.
// Readings are taken between triggers, never during one.
func (m *Manager) Probes(id uuid.UUID) ([]util.Reading, error) {
	d, err := m.Get(id)
	if err != nil {
		return nil, err
	}
	var readings []util.Reading
	_ = m.withLocal(id, func() error {
		readings = d.Probes()
		return nil
	})
	return readings, nil
}

// Probes returns what every Util/Probe of the deployment observed so far.
// It must not run concurrently with a trigger on the same scope.
func (d *Deployment) Probes() []util.Reading {
	probes := util.Probes(d.Graph)
	readings := make([]util.Reading, len(probes))
	for i, p := range probes {
		readings[i] = p.Read(d.Scope)
	}
	return readings
}

// Close shuts the deployment's scope down.
func (d *Deployment) Close() error {
	return d.Graph.Shutdown(d.Scope)
}

// Instantiate initializes def in a fresh scope bound to ctx without deploying
// or storing it. Composite nodes resolve against the deployed graphs. The
// caller owns the returned deployment and must Close it.
func (m *Manager) Instantiate(ctx context.Context, def *domain.GraphDefinition) (*Deployment, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return m.start(def, runtime.WithContext(ctx))
}

// Restore deploys every definition held by the store.
func (m *Manager) Restore(ctx context.Context) error {
	ids, err := m.store.List(ctx)
	if err != nil {
		return fmt.Errorf("failed to list graphs: %w", err)
	}
	defs := make([]*domain.GraphDefinition, 0, len(ids))
	for _, id := range ids {
		def, err := m.store.Load(ctx, id)
		if errors.Is(err, domain.ErrGraphNotFound) {
			continue // deleted meanwhile
		}
		if err != nil {
			return fmt.Errorf("failed to load graph %s: %w", id, err)
		}
		defs = append(defs, def)
	}
	return m.deployAll(ctx, defs)
}

// Import deploys (and so persists) every definition of source.
func (m *Manager) Import(ctx context.Context, source ports.GraphSource) error {
	defs, err := source.Graphs(ctx)
	if err != nil {
		return err
	}
	return m.deployAll(ctx, defs)
}

// deployAll deploys defs in as many passes as needed for composite graphs to
// find the graphs they embed. What still fails when a pass makes no progress
// is reported together.
func (m *Manager) deployAll(ctx context.Context, defs []*domain.GraphDefinition) error {
	pending := defs
	for len(pending) > 0 {
		var failed []*domain.GraphDefinition
		var errs []error
		for _, def := range pending {
			if err := m.Update(ctx, def); err != nil {
				failed = append(failed, def)
				errs = append(errs, err)
			}
		}
		if len(failed) == len(pending) {
			return errors.Join(errs...)
		}
		pending = failed
	}
	return nil
}
