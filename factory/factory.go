// Package factory provides name-based plugin construction for the Petal
// framework. Bundled plugins register a constructor in their init function;
// the bootstrap resolves configured plugin names through the global factory.
package factory

import (
	"fmt"
	"sort"
	"sync"

	"github.com/go-petal/petal/plugins"
)

// Creator constructs a fresh plugin instance.
type Creator func() plugins.Plugin

// PluginFactory maps plugin names to constructors.
type PluginFactory struct {
	mu       sync.RWMutex
	creators map[string]Creator
}

// New creates an empty factory.
func New() *PluginFactory {
	return &PluginFactory{creators: make(map[string]Creator)}
}

var (
	globalOnce    sync.Once
	globalFactory *PluginFactory
)

// Global returns the process-wide factory instance used by bundled plugins.
func Global() *PluginFactory {
	globalOnce.Do(func() {
		globalFactory = New()
	})
	return globalFactory
}

// RegisterPlugin adds a constructor under the given name. Registering a name
/// twice panics: duplicate constructors indicate conflicting plugin packages
// linked into the same binary.
func (f *PluginFactory) RegisterPlugin(name string, creator Creator) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, exists := f.creators[name]; exists {
		panic(fmt.Sprintf("factory: plugin %q is already registered", name))
	}
	f.creators[name] = creator
}

// UnregisterPlugin removes a constructor.
func (f *PluginFactory) UnregisterPlugin(name string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.creators, name)
}

// CreatePlugin instantiates a new plugin by name.
func (f *PluginFactory) CreatePlugin(name string) (plugins.Plugin, error) {
	f.mu.RLock()
	creator, ok := f.creators[name]
	f.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("factory: no plugin registered under %q", name)
	}
	p := creator()
	if p == nil {
		return nil, fmt.Errorf("factory: constructor for %q returned nil", name)
	}
	return p, nil
}

// HasPlugin reports whether a constructor exists for name.
func (f *PluginFactory) HasPlugin(name string) bool {
	f.mu.RLock()
	defer f.mu.RUnlock()
	_, ok := f.creators[name]
	return ok
}

// PluginNames returns the registered constructor names, sorted.
func (f *PluginFactory) PluginNames() []string {
	f.mu.RLock()
	defer f.mu.RUnlock()
	names := make([]string, 0, len(f.creators))
	for name := range f.creators {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
