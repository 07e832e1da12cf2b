// SPDX-License-Identifier: Apache-2.0

// Package plugin owns the optional plugin runtime: a registry of named
// plugins and the bootstrap that brings the runtime up at process start and
// tears it down at shutdown.
package plugin

import (
	"context"
	"sync"

	"github.com/joomcode/errorx"
)

// Plugin is the narrow interface the bootstrap needs from a plugin. The
// registry stores plugins, it does not interpret them.
type Plugin interface {
	// Name uniquely identifies the plugin within the registry.
	Name() string

	// Init prepares the plugin for use. It runs once during bootstrap,
	// before the scheduler starts.
	Init(ctx context.Context) error

	// Refresh re-syncs the plugin's cached state. The recurring job calls it
	// periodically; it must be safe to call repeatedly.
	Refresh(ctx context.Context) error
}

// Registry holds the registered plugins in registration order.
type Registry struct {
	mu      sync.RWMutex
	plugins map[string]Plugin
	order   []string
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{plugins: make(map[string]Plugin)}
}

// Register adds a plugin. Registering two plugins under the same name is an
// error.
func (r *Registry) Register(p Plugin) error {
	if p == nil {
		return errorx.IllegalArgument.New("plugin is required")
	}
	if p.Name() == "" {
		return errorx.IllegalArgument.New("plugin name is required")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, dup := r.plugins[p.Name()]; dup {
		return DuplicatePluginError.New("plugin %q is already registered", p.Name())
	}

	r.plugins[p.Name()] = p
	r.order = append(r.order, p.Name())
	return nil
}

// Get returns the plugin registered under name.
func (r *Registry) Get(name string) (Plugin, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	p, ok := r.plugins[name]
	return p, ok
}

// Plugins returns all plugins in registration order.
func (r *Registry) Plugins() []Plugin {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Plugin, 0, len(r.order))
	for _, name := range r.order {
		out = append(out, r.plugins[name])
	}
	return out
}

// Len returns the number of registered plugins.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.order)
}
