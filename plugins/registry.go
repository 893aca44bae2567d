package plugins

import (
	"sync"

	"github.com/go-kratos/kratos/v2/log"
)

// pluginEntry is the registry's record for one plugin name.
type pluginEntry struct {
	// plugin is the shared handle to the plugin's metadata/capability
	// surface. The registry never owns the plugin exclusively.
	plugin Plugin

	// lifecycle is non-nil only when the plugin was registered through
	// RegisterWithLifecycle; it gives access to the lifecycle hooks.
	lifecycle LifecyclePlugin

	// state is the plugin's current lifecycle state.
	state PluginState
}

// Registry is the central store for all plugins.
//
// It tracks registration, capability providers, the dependency graph, and
// lifecycle state transitions. A Registry is safe for concurrent use: the
// plugin store, capability index, and both graph directions are each guarded
// by their own reader/writer lock, and no lock is ever held across a
// lifecycle hook invocation.
//
// There is deliberately no cross-map transaction. A concurrent reader may
// observe a registration's capability entry before its graph edges; this
// window is narrow and accepted, since registration itself makes no state
// visible to capability consumers (plugins are invisible until enabled).
type Registry struct {
	mu      sync.RWMutex
	plugins map[string]*pluginEntry

	capMu sync.RWMutex
	caps  map[Capability][]string

	// deps maps a plugin to its required dependencies; dependents is the
	// exact transpose restricted to registered plugins. Both are mutated
	// together under their write locks.
	depMu sync.RWMutex
	deps  map[string][]string

	revMu      sync.RWMutex
	dependents map[string][]string

	logger *log.Helper
}

// Option configures a Registry.
type Option func(*Registry)

// WithLogger sets the logger used for lifecycle transition logging.
func WithLogger(logger log.Logger) Option {
	return func(r *Registry) { r.logger = log.NewHelper(logger) }
}

// NewRegistry creates an empty registry.
func NewRegistry(opts ...Option) *Registry {
	r := &Registry{
		plugins:    make(map[string]*pluginEntry),
		caps:       make(map[Capability][]string),
		deps:       make(map[string][]string),
		dependents: make(map[string][]string),
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.logger == nil {
		r.logger = log.NewHelper(log.DefaultLogger)
	}
	return r
}

// Register adds a plugin to the registry in StateRegistered. Lifecycle hooks
// are not retained even if the plugin implements them; use
// RegisterWithLifecycle for hook-aware registration.
//
// Registering the same name with the same version again is a no-op. The
// stored handle is not replaced. Registering the same name with a different
// version fails with *VersionConflictError and mutates nothing.
func (r *Registry) Register(p Plugin) error {
	return r.register(p, nil)
}

// RegisterWithLifecycle registers a plugin and retains its lifecycle surface
// so that OnLoad/OnEnable/OnDisable/OnUnload are invoked on transitions.
func (r *Registry) RegisterWithLifecycle(p LifecyclePlugin) error {
	return r.register(p, p)
}

func (r *Registry) register(p Plugin, lc LifecyclePlugin) error {
	meta := p.Metadata()
	if meta == nil || meta.Name == "" || meta.Version == nil {
		return NewPluginError("", "register", "plugin metadata is missing a name or version", nil)
	}
	name := meta.Name

	r.mu.RLock()
	existing, ok := r.plugins[name]
	if ok {
		existingVersion := existing.plugin.Metadata().Version
		r.mu.RUnlock()
		if !existingVersion.Equal(meta.Version) {
			return &VersionConflictError{
				Plugin:   name,
				Existing: existingVersion.String(),
				New:      meta.Version.String(),
			}
		}
		// Already registered with the same version.
		return nil
	}
	r.mu.RUnlock()

	r.capMu.Lock()
	for _, cap := range p.Capabilities() {
		r.caps[cap] = append(r.caps[cap], name)
	}
	r.capMu.Unlock()

	r.depMu.Lock()
	r.revMu.Lock()
	for _, dep := range meta.Dependencies {
		if dep.Optional {
			continue
		}
		r.deps[name] = append(r.deps[name], dep.Name)
		r.dependents[dep.Name] = append(r.dependents[dep.Name], name)
	}
	r.revMu.Unlock()
	r.depMu.Unlock()

	r.mu.Lock()
	r.plugins[name] = &pluginEntry{plugin: p, lifecycle: lc, state: StateRegistered}
	r.mu.Unlock()

	r.logger.Debugw("msg", "plugin registered", "plugin", name, "version", meta.Version.String())
	return nil
}

// Get returns the plugin registered under name.
func (r *Registry) Get(name string) (Plugin, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	entry, ok := r.plugins[name]
	if !ok {
		return nil, false
	}
	return entry.plugin, true
}

// State returns the current lifecycle state of the named plugin.
func (r *Registry) State(name string) (PluginState, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	entry, ok := r.plugins[name]
	if !ok {
		return 0, false
	}
	return entry.state, true
}

// IsRegistered reports whether a plugin with the given name exists.
func (r *Registry) IsRegistered(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.plugins[name]
	return ok
}

// IsEnabled reports whether the named plugin is currently enabled.
func (r *Registry) IsEnabled(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	entry, ok := r.plugins[name]
	return ok && entry.state == StateEnabled
}

// PluginNames returns the names of all registered plugins, in no particular
// order.
func (r *Registry) PluginNames() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.plugins))
	for name := range r.plugins {
		names = append(names, name)
	}
	return names
}

// Len returns the number of registered plugins.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.plugins)
}

// IsEmpty reports whether no plugins are registered.
func (r *Registry) IsEmpty() bool {
	return r.Len() == 0
}

// CapabilityProviders returns the plugins that provide the given capability
// and are currently enabled. Plugins that are registered but not yet enabled
// are invisible to capability consumers so that a consumer can never obtain
// an uninitialized provider.
func (r *Registry) CapabilityProviders(cap Capability) []Plugin {
	r.capMu.RLock()
	names := r.caps[cap]
	r.mu.RLock()
	providers := make([]Plugin, 0, len(names))
	for _, name := range names {
		if entry, ok := r.plugins[name]; ok && entry.state == StateEnabled {
			providers = append(providers, entry.plugin)
		}
	}
	r.mu.RUnlock()
	r.capMu.RUnlock()
	return providers
}

// EnabledWithCapability is an alias for CapabilityProviders.
func (r *Registry) EnabledWithCapability(cap Capability) []Plugin {
	return r.CapabilityProviders(cap)
}

// setState updates the stored state of a plugin. It is the only internal
// mutation path for lifecycle state.
func (r *Registry) setState(name string, state PluginState) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	entry, ok := r.plugins[name]
	if !ok {
		return &NotFoundError{Plugin: name}
	}
	entry.state = state
	return nil
}

// stateAndLifecycle fetches the current state and lifecycle handle without
// holding the store lock afterwards, so hooks can be invoked lock-free.
func (r *Registry) stateAndLifecycle(name string) (PluginState, LifecyclePlugin, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	entry, ok := r.plugins[name]
	if !ok {
		return 0, nil, &NotFoundError{Plugin: name}
	}
	return entry.state, entry.lifecycle, nil
}
