package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/aretw0/flow/internal/config"
	"github.com/aretw0/flow/pkg/adapters/file"
	"github.com/aretw0/flow/pkg/adapters/loam"
	"github.com/aretw0/flow/pkg/domain"
	"github.com/aretw0/flow/pkg/nodes/nesting"
	"github.com/aretw0/flow/pkg/ports"
	"github.com/aretw0/flow/pkg/runtime"
)

// SignalContext wraps a context and captures the signal that cancelled it.
type SignalContext struct {
	context.Context
	Cancel func()
	start  sync.Once
	stop   sync.Once
	sigCh  chan os.Signal
	sigVal os.Signal
	mu     sync.Mutex
}

// NewSignalContext creates a context that is cancelled on SIGINT or SIGTERM.
// It acts as a drop-in replacement for signal.NotifyContext but allows retrieving the signal.
func NewSignalContext(parent context.Context) *SignalContext {
	ctx, cancel := context.WithCancel(parent)
	sc := &SignalContext{
		Context: ctx,
		Cancel:  cancel,
		sigCh:   make(chan os.Signal, 1),
	}

	sc.start.Do(func() {
		signal.Notify(sc.sigCh, os.Interrupt, syscall.SIGTERM)
		go func() {
			select {
			case sig := <-sc.sigCh:
				sc.mu.Lock()
				sc.sigVal = sig
				sc.mu.Unlock()
				sc.Cancel()
			case <-sc.Context.Done():
			}
			sc.stop.Do(func() {
				signal.Stop(sc.sigCh)
			})
		}()
	})

	return sc
}

// Signal returns the signal that caused the context to be cancelled, or nil.
func (sc *SignalContext) Signal() os.Signal {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	return sc.sigVal
}

// OpenSource returns the graph files of dir: a Loam repository when the
// configured store is loam, plain YAML/JSON files otherwise. A missing
// directory yields nil.
func OpenSource(cfg config.Config, dir string) (ports.GraphSource, error) {
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		return nil, nil
	}
	if cfg.Store == config.StoreLoam {
		src, err := loam.Open(dir)
		if err != nil {
			return nil, fmt.Errorf("failed to open loam repository %s: %w", dir, err)
		}
		return src, nil
	}
	return file.NewStore(dir), nil
}

// LoadDefinition reads one graph file.
func LoadDefinition(path string) (*domain.GraphDefinition, error) {
	def, err := file.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load %s: %w", path, err)
	}
	return def, nil
}

// FindTrigger returns the ref of the control input exported as name. With an
// empty name, a graph exporting exactly one control input uses that one and a
// graph exporting none yields domain.Unwired.
func FindTrigger(def *domain.GraphDefinition, name string) (domain.PortRef, error) {
	var found []domain.PortRef
	var names []string
	for _, desc := range def.Nodes {
		if desc.Kind() != nesting.KindControlInput {
			continue
		}
		var n nesting.ControlInput
		if err := runtime.Decode(map[string]any(desc), &n); err != nil {
			return domain.Unwired, err
		}
		if name == "" || n.Name == name || n.ExternalKey() == name {
			found = append(found, n.Out)
		}
		names = append(names, n.Name)
	}

	switch {
	case len(found) == 1:
		return found[0], nil
	case name != "" && len(found) == 0:
		return domain.Unwired, fmt.Errorf("graph %q has no control input %q (have %v)", def.Name, name, names)
	case name == "" && len(found) == 0:
		return domain.Unwired, nil
	}
	return domain.Unwired, fmt.Errorf("graph %q: choose a control input among %v", def.Name, names)
}
