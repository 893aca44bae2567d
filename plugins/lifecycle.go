package plugins

import (
	"context"
	"fmt"
)

// maxDisableDepth caps the cascade recursion in DisablePlugin so that a
// corrupted dependents graph cannot overflow the stack.
const maxDisableDepth = 64

// LoadAll loads every registered plugin in dependency order, invoking the
// OnLoad hook of lifecycle-aware plugins. It stops on the first error.
func (r *Registry) LoadAll(ctx context.Context, pctx *PluginContext) error {
	order, err := r.EnableOrder()
	if err != nil {
		return err
	}
	for _, name := range order {
		if err := r.LoadPlugin(ctx, name, pctx); err != nil {
			return err
		}
	}
	return nil
}

// LoadPlugin transitions a single plugin to StateLoaded. If the plugin is
// lifecycle-aware its OnLoad hook runs first; a hook error is returned and
// the state is left unchanged.
func (r *Registry) LoadPlugin(ctx context.Context, name string, pctx *PluginContext) error {
	_, lifecycle, err := r.stateAndLifecycle(name)
	if err != nil {
		return err
	}
	if lifecycle != nil {
		if err := lifecycle.OnLoad(ctx, pctx); err != nil {
			return err
		}
	}
	if err := r.setState(name, StateLoaded); err != nil {
		return err
	}
	r.logger.Infow("msg", "plugin loaded", "plugin", name)
	return nil
}

// EnableAll enables every loaded plugin in dependency order, invoking the
// OnEnable hook of lifecycle-aware plugins. Plugins that are not in
// StateLoaded are skipped. It stops on the first error.
func (r *Registry) EnableAll(ctx context.Context, pctx *PluginContext) error {
	order, err := r.EnableOrder()
	if err != nil {
		return err
	}
	for _, name := range order {
		if state, ok := r.State(name); ok && state == StateLoaded {
			if err := r.EnablePlugin(ctx, name, pctx); err != nil {
				return err
			}
		}
	}
	return nil
}

// EnablePlugin transitions a single plugin to StateEnabled. Every required
// dependency must already be enabled; otherwise *MissingDependencyError is
// returned and nothing changes. A failing OnEnable hook likewise leaves the
// state unchanged.
func (r *Registry) EnablePlugin(ctx context.Context, name string, pctx *PluginContext) error {
	for _, dep := range r.Dependencies(name) {
		if !r.IsEnabled(dep) {
			return &MissingDependencyError{Plugin: name, Dependency: dep}
		}
	}

	_, lifecycle, err := r.stateAndLifecycle(name)
	if err != nil {
		return err
	}
	if lifecycle != nil {
		if err := lifecycle.OnEnable(ctx, pctx); err != nil {
			return err
		}
	}
	if err := r.setState(name, StateEnabled); err != nil {
		return err
	}
	r.logger.Infow("msg", "plugin enabled", "plugin", name)
	return nil
}

// DisablePlugin disables the named plugin after first disabling, innermost
// dependent first, every enabled plugin that transitively depends on it.
//
// A visited set keeps a plugin from being processed twice within one
// cascade, guarding against a dependents graph made inconsistent by
// concurrent mutation; a detected repeat is logged and that branch skipped.
// The recursion depth is capped at maxDisableDepth; exceeding it returns a
// *PluginError. OnDisable hook errors are logged but never block the state
// transition, so teardown always makes forward progress.
func (r *Registry) DisablePlugin(ctx context.Context, name string, pctx *PluginContext) error {
	visited := make(map[string]struct{})
	return r.disableCascade(ctx, name, pctx, visited, 0)
}

func (r *Registry) disableCascade(ctx context.Context, name string, pctx *PluginContext, visited map[string]struct{}, depth int) error {
	if _, seen := visited[name]; seen {
		r.logger.Warnw("msg", "cycle detected in dependents graph during disable, skipping", "plugin", name)
		return nil
	}
	visited[name] = struct{}{}
	if depth > maxDisableDepth {
		return NewPluginError(name, "disable",
			fmt.Sprintf("maximum cascade depth (%d) exceeded", maxDisableDepth), nil)
	}

	// Dependents go down before the plugin they rely on.
	for _, dependent := range r.Dependents(name) {
		if r.IsEnabled(dependent) {
			if err := r.disableCascade(ctx, dependent, pctx, visited, depth+1); err != nil {
				return err
			}
		}
	}

	_, lifecycle, err := r.stateAndLifecycle(name)
	if err != nil {
		return err
	}
	if lifecycle != nil {
		if err := lifecycle.OnDisable(ctx, pctx); err != nil {
			r.logger.Warnw("msg", "plugin OnDisable hook returned error", "plugin", name, "err", err)
		}
	}
	if err := r.setState(name, StateDisabled); err != nil {
		return err
	}
	r.logger.Infow("msg", "plugin disabled", "plugin", name)
	return nil
}

// Unregister removes a plugin and every trace of it from the capability
// index and both graph directions. It is allowed from StateRegistered,
// StateLoaded, or StateDisabled; an enabled plugin must be disabled first
// and is rejected with *InvalidStateTransitionError.
//
// If the plugin is lifecycle-aware, OnUnload is invoked before removal; its
// error is logged but does not block removal.
func (r *Registry) Unregister(ctx context.Context, name string, pctx *PluginContext) error {
	state, lifecycle, err := r.stateAndLifecycle(name)
	if err != nil {
		return err
	}
	if state == StateEnabled {
		return &InvalidStateTransitionError{Plugin: name, From: state, To: StateRegistered}
	}

	if lifecycle != nil {
		if err := lifecycle.OnUnload(ctx, pctx); err != nil {
			r.logger.Warnw("msg", "plugin OnUnload hook returned error", "plugin", name, "err", err)
		}
	}

	r.capMu.Lock()
	for cap, providers := range r.caps {
		r.caps[cap] = removeName(providers, name)
	}
	r.capMu.Unlock()

	r.depMu.Lock()
	r.revMu.Lock()
	delete(r.deps, name)
	delete(r.dependents, name)
	for plugin, deps := range r.deps {
		r.deps[plugin] = removeName(deps, name)
	}
	for plugin, dependents := range r.dependents {
		r.dependents[plugin] = removeName(dependents, name)
	}
	r.revMu.Unlock()
	r.depMu.Unlock()

	r.mu.Lock()
	delete(r.plugins, name)
	r.mu.Unlock()

	r.logger.Infow("msg", "plugin unregistered", "plugin", name)
	return nil
}

func removeName(names []string, name string) []string {
	out := names[:0]
	for _, n := range names {
		if n != name {
			out = append(out, n)
		}
	}
	return out
}
