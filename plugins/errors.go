package plugins

import (
	"errors"
	"fmt"
)

// ErrCircularDependency indicates that the registered plugins contain a
// dependency cycle. It carries no further detail; callers needing the cycle
// members must re-derive them from the dependency queries.
var ErrCircularDependency = errors.New("circular dependency detected among registered plugins")

// VersionConflictError is returned when a plugin name is re-registered with
// a version different from the one already in the registry.
type VersionConflictError struct {
	Plugin   string
	Existing string
	New      string
}

func (e *VersionConflictError) Error() string {
	return fmt.Sprintf("plugin %s already registered with version %s, cannot register version %s",
		e.Plugin, e.Existing, e.New)
}

// MissingDependencyError is returned when a plugin requires a dependency
// that is not registered, or (during enable) not yet enabled.
type MissingDependencyError struct {
	Plugin     string
	Dependency string
}

func (e *MissingDependencyError) Error() string {
	return fmt.Sprintf("plugin %s requires dependency %s which is not available", e.Plugin, e.Dependency)
}

// IncompatibleVersionError is returned when a registered dependency does not
// satisfy the version range a dependent plugin declared for it.
type IncompatibleVersionError struct {
	Plugin     string
	Dependency string
	Required   string
	Actual     string
}

func (e *IncompatibleVersionError) Error() string {
	return fmt.Sprintf("plugin %s requires %s version %s, but %s is registered",
		e.Plugin, e.Dependency, e.Required, e.Actual)
}

// NotFoundError is returned when an operation names a plugin that is not
// registered.
type NotFoundError struct {
	Plugin string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("plugin %s not found", e.Plugin)
}

// InvalidStateTransitionError is returned when a lifecycle operation is not
// permitted from the plugin's current state, such as unregistering a plugin
// that is still enabled.
type InvalidStateTransitionError struct {
	Plugin string
	From   PluginState
	To     PluginState
}

func (e *InvalidStateTransitionError) Error() string {
	return fmt.Sprintf("plugin %s: invalid state transition from %s to %s", e.Plugin, e.From, e.To)
}

// PluginError is the generic structured error for plugin operations that do
// not fit a more specific kind, including recursion-depth exhaustion during
// cascading disable.
type PluginError struct {
	// Plugin identifies the plugin the error relates to.
	Plugin string

	// Op names the operation that failed, e.g. "disable".
	Op string

	// Message describes the failure.
	Message string

	// Err is the underlying cause, if any.
	Err error
}

func (e *PluginError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("plugin %s: %s failed: %s (%v)", e.Plugin, e.Op, e.Message, e.Err)
	}
	return fmt.Sprintf("plugin %s: %s failed: %s", e.Plugin, e.Op, e.Message)
}

// Unwrap returns the underlying cause for errors.Is/errors.As chains.
func (e *PluginError) Unwrap() error {
	return e.Err
}

// NewPluginError creates a PluginError with the given details.
func NewPluginError(plugin, op, message string, err error) *PluginError {
	return &PluginError{Plugin: plugin, Op: op, Message: message, Err: err}
}
