// Package drawers runs the optional debug drawers a client can open next to the live feeds. Each open drawer owns a
// refresh loop for that client only and pushes html through a Sink.
package drawers

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
)

var ErrUnknownDrawer = errors.New("unknown drawer")

// Sink receives html to patch into one client's page.
type Sink func(html string)

type Lifecycle interface {
	Start(ctx context.Context, sink Sink) error
	Stop()
}

// Factory builds a fresh Lifecycle for each client that opens the drawer.
type Factory func() Lifecycle

type Registry struct {
	logger *slog.Logger

	mu        sync.Mutex
	factories map[string]Factory
	open      map[string]map[string]Lifecycle // clientID -> drawerID -> running drawer
}

func NewRegistry(logger *slog.Logger) *Registry {
	return &Registry{
		logger:    logger,
		factories: make(map[string]Factory),
		open:      make(map[string]map[string]Lifecycle),
	}
}

func (r *Registry) Register(id string, factory Factory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.factories[id] = factory
}

// IDs returns the registered drawer ids in a stable order.
func (r *Registry) IDs() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	ids := make([]string, 0, len(r.factories))
	for id := range r.factories {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Open starts drawer id for clientID. It returns false without error when the drawer is already open for that client.
// ctx bounds the drawer's lifetime and should outlive the request that opened it.
func (r *Registry) Open(ctx context.Context, clientID, id string, sink Sink) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	factory, ok := r.factories[id]
	if !ok {
		return false, fmt.Errorf("%w: %q", ErrUnknownDrawer, id)
	}
	if _, running := r.open[clientID][id]; running {
		return false, nil
	}

	drawer := factory()
	if err := drawer.Start(ctx, sink); err != nil {
		return false, fmt.Errorf("start drawer %s: %w", id, err)
	}
	if r.open[clientID] == nil {
		r.open[clientID] = make(map[string]Lifecycle)
	}
	r.open[clientID][id] = drawer
	r.logger.Debug("drawer opened", "drawer", id, "client", clientID)
	return true, nil
}

// Close stops drawer id for clientID. It returns false without error when the drawer was not open.
func (r *Registry) Close(clientID, id string) (bool, error) {
	r.mu.Lock()
	if _, ok := r.factories[id]; !ok {
		r.mu.Unlock()
		return false, fmt.Errorf("%w: %q", ErrUnknownDrawer, id)
	}
	drawer, running := r.open[clientID][id]
	if running {
		delete(r.open[clientID], id)
		if len(r.open[clientID]) == 0 {
			delete(r.open, clientID)
		}
	}
	r.mu.Unlock()

	if !running {
		return false, nil
	}
	drawer.Stop()
	r.logger.Debug("drawer closed", "drawer", id, "client", clientID)
	return true, nil
}

// CloseAll stops every drawer clientID has open and returns how many were stopped.
func (r *Registry) CloseAll(clientID string) int {
	r.mu.Lock()
	running := r.open[clientID]
	delete(r.open, clientID)
	r.mu.Unlock()

	for _, drawer := range running {
		drawer.Stop()
	}
	if len(running) > 0 {
		r.logger.Debug("drawers closed for client", "client", clientID, "count", len(running))
	}
	return len(running)
}

func (r *Registry) IsOpen(clientID, id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.open[clientID][id]
	return ok
}

// OpenIDs returns the drawers clientID currently has open.
func (r *Registry) OpenIDs(clientID string) []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	ids := make([]string, 0, len(r.open[clientID]))
	for id := range r.open[clientID] {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
