// Package registry owns the process records for the lifetime of a run.
// Everything else (queue, workers, report, HTTP API) holds non-owning
// handles obtained from here.
package registry

import (
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"github.com/me/coresim/pkg/model"
)

// Registry is a thread-safe name -> process mapping with at-most-one
// registration per name. FINISHED processes stay registered until
// program exit so listings and reports can see them.
type Registry struct {
	mu     sync.Mutex
	byName map[string]*model.Process
	logger *slog.Logger
}

// New creates an empty Registry.
func New(logger *slog.Logger) *Registry {
	return &Registry{
		byName: make(map[string]*model.Process),
		logger: logger.With("component", "registry"),
	}
}

// Register adds a process, failing with ErrDuplicateName if the name is
// taken. On failure the registry is unchanged.
func (r *Registry) Register(p *model.Process) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.byName[p.Name()]; exists {
		return fmt.Errorf("register %q: %w", p.Name(), model.ErrDuplicateName)
	}
	r.byName[p.Name()] = p
	r.logger.Debug("process registered", "name", p.Name(), "pid", p.ID())
	return nil
}

// Lookup returns the process registered under name.
func (r *Registry) Lookup(name string) (*model.Process, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.byName[name]
	return p, ok
}

// Snapshot returns a consistent copy of the registered handles, ordered
// by process id, suitable for listing and reporting.
func (r *Registry) Snapshot() []*model.Process {
	r.mu.Lock()
	procs := make([]*model.Process, 0, len(r.byName))
	for _, p := range r.byName {
		procs = append(procs, p)
	}
	r.mu.Unlock()

	sort.Slice(procs, func(i, j int) bool { return procs[i].ID() < procs[j].ID() })
	return procs
}

// Len returns the number of registered processes.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.byName)
}
