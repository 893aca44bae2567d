// Package plugins provides the core plugin system for the Petal framework.
//
// The central type is Registry, which tracks registered plugins, resolves
// their declared dependencies into a safe activation order, and drives each
// plugin through its lifecycle (register, load, enable, disable, unregister).
package plugins

import "context"

// PluginState represents the current lifecycle state of a registered plugin.
type PluginState int

const (
	// StateRegistered indicates that the plugin is known to the registry
	// but has not yet been loaded. This is the initial state after a
	// successful Register or RegisterWithLifecycle call.
	StateRegistered PluginState = iota

	// StateLoaded indicates that the plugin has completed its load phase
	// (OnLoad hook, if any) and is ready to be enabled.
	StateLoaded

	// StateEnabled indicates that the plugin is active. Only enabled
	// plugins are visible to capability consumers.
	StateEnabled

	// StateDisabled indicates that the plugin has been deactivated. A
	// disabled plugin can be re-enabled or unregistered.
	StateDisabled
)

// String returns the lowercase name of the state.
func (s PluginState) String() string {
	switch s {
	case StateRegistered:
		return "registered"
	case StateLoaded:
		return "loaded"
	case StateEnabled:
		return "enabled"
	case StateDisabled:
		return "disabled"
	default:
		return "unknown"
	}
}

// Plugin is the minimal interface every plugin must implement.
//
// A plugin exposes read-only metadata (name, version, dependency specs) and
// the set of capability tags it provides. Plugins that need to react to
// lifecycle transitions additionally implement LifecyclePlugin and are
// registered through Registry.RegisterWithLifecycle.
type Plugin interface {
	// Metadata returns the plugin's descriptor. The returned value is
	// shared between the registry and any caller holding a lookup result
	// and must not be mutated after registration.
	Metadata() *PluginMetadata

	// Capabilities returns the capability tags this plugin provides.
	Capabilities() []Capability
}

// LifecyclePlugin extends Plugin with lifecycle hooks.
//
// Each hook receives the caller's context plus the ambient PluginContext and
// may perform arbitrary work, including I/O. The registry never holds an
// internal lock while a hook is running. Hook errors from OnLoad and
// OnEnable abort the transition; errors from OnDisable and OnUnload are
// logged and otherwise ignored so that teardown always makes progress.
type LifecyclePlugin interface {
	Plugin

	// OnLoad is invoked when the plugin transitions from registered to
	// loaded. Returning an error leaves the plugin in its current state.
	OnLoad(ctx context.Context, pctx *PluginContext) error

	// OnEnable is invoked when the plugin transitions from loaded to
	// enabled. All required dependencies are already enabled at this
	// point. Returning an error leaves the plugin in its current state.
	OnEnable(ctx context.Context, pctx *PluginContext) error

	// OnDisable is invoked when the plugin transitions to disabled.
	// Errors are logged but do not prevent the state change.
	OnDisable(ctx context.Context, pctx *PluginContext) error

	// OnUnload is invoked immediately before the plugin is removed from
	// the registry. Errors are logged but do not prevent removal.
	OnUnload(ctx context.Context, pctx *PluginContext) error
}
