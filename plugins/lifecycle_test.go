package plugins

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// hookPlugin records lifecycle hook invocations and can be told to fail any
// of them.
type hookPlugin struct {
	*testPlugin

	loadErr    error
	enableErr  error
	disableErr error
	unloadErr  error

	mu    sync.Mutex
	calls []string
}

func newHookPlugin(t testing.TB, name, version string, deps ...string) *hookPlugin {
	return &hookPlugin{testPlugin: newTestPlugin(t, name, version, deps...)}
}

func (p *hookPlugin) record(hook string) {
	p.mu.Lock()
	p.calls = append(p.calls, hook)
	p.mu.Unlock()
}

func (p *hookPlugin) callLog() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, len(p.calls))
	copy(out, p.calls)
	return out
}

func (p *hookPlugin) OnLoad(ctx context.Context, pctx *PluginContext) error {
	p.record("load")
	return p.loadErr
}

func (p *hookPlugin) OnEnable(ctx context.Context, pctx *PluginContext) error {
	p.record("enable")
	return p.enableErr
}

func (p *hookPlugin) OnDisable(ctx context.Context, pctx *PluginContext) error {
	p.record("disable")
	return p.disableErr
}

func (p *hookPlugin) OnUnload(ctx context.Context, pctx *PluginContext) error {
	p.record("unload")
	return p.unloadErr
}

func mustState(t *testing.T, r *Registry, name string) PluginState {
	t.Helper()
	state, ok := r.State(name)
	require.True(t, ok, "plugin %q not registered", name)
	return state
}

func TestLoadPluginRunsHookThenTransitions(t *testing.T) {
	r := NewRegistry()
	p := newHookPlugin(t, "core", "1.0.0")
	require.NoError(t, r.RegisterWithLifecycle(p))

	require.NoError(t, r.LoadPlugin(context.Background(), "core", nil))
	assert.Equal(t, StateLoaded, mustState(t, r, "core"))
	assert.Equal(t, []string{"load"}, p.callLog())
}

func TestLoadPluginNotFound(t *testing.T) {
	r := NewRegistry()
	err := r.LoadPlugin(context.Background(), "nope", nil)
	var nf *NotFoundError
	assert.ErrorAs(t, err, &nf)
}

func TestLoadAllFollowsDependencyOrder(t *testing.T) {
	r := NewRegistry()
	core := newHookPlugin(t, "core", "1.0.0")
	auth := newHookPlugin(t, "auth", "1.0.0", "core")
	api := newHookPlugin(t, "api", "1.0.0", "auth")
	for _, p := range []*hookPlugin{api, core, auth} {
		require.NoError(t, r.RegisterWithLifecycle(p))
	}

	require.NoError(t, r.LoadAll(context.Background(), nil))
	for _, name := range []string{"core", "auth", "api"} {
		assert.Equal(t, StateLoaded, mustState(t, r, name))
	}
}

func TestLoadAllPropagatesCycle(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Register(newTestPlugin(t, "a", "1.0.0", "b")))
	require.NoError(t, r.Register(newTestPlugin(t, "b", "1.0.0", "a")))

	err := r.LoadAll(context.Background(), nil)
	assert.ErrorIs(t, err, ErrCircularDependency)
}

func TestOnLoadFailureLeavesStateUnchanged(t *testing.T) {
	r := NewRegistry()
	p := newHookPlugin(t, "core", "1.0.0")
	p.loadErr = fmt.Errorf("missing config")
	require.NoError(t, r.RegisterWithLifecycle(p))

	err := r.LoadPlugin(context.Background(), "core", nil)
	assert.ErrorIs(t, err, p.loadErr)
	assert.Equal(t, StateRegistered, mustState(t, r, "core"))
}

func TestEnablePluginRequiresEnabledDependencies(t *testing.T) {
	r := NewRegistry()
	core := newHookPlugin(t, "core", "1.0.0")
	auth := newHookPlugin(t, "auth", "1.0.0", "core")
	require.NoError(t, r.RegisterWithLifecycle(core))
	require.NoError(t, r.RegisterWithLifecycle(auth))
	require.NoError(t, r.LoadAll(context.Background(), nil))

	// core is only loaded, not enabled.
	err := r.EnablePlugin(context.Background(), "auth", nil)
	var missing *MissingDependencyError
	require.ErrorAs(t, err, &missing)
	assert.Equal(t, "auth", missing.Plugin)
	assert.Equal(t, "core", missing.Dependency)
	assert.Equal(t, StateLoaded, mustState(t, r, "auth"))
	assert.Empty(t, auth.callLog()[1:], "OnEnable must not run when a dependency is down")

	require.NoError(t, r.EnablePlugin(context.Background(), "core", nil))
	require.NoError(t, r.EnablePlugin(context.Background(), "auth", nil))
	assert.True(t, r.IsEnabled("auth"))
}

func TestEnableAllSkipsUnloadedPlugins(t *testing.T) {
	r := NewRegistry()
	core := newHookPlugin(t, "core", "1.0.0")
	auth := newHookPlugin(t, "auth", "1.0.0")
	require.NoError(t, r.RegisterWithLifecycle(core))
	require.NoError(t, r.RegisterWithLifecycle(auth))
	require.NoError(t, r.LoadPlugin(context.Background(), "core", nil))

	require.NoError(t, r.EnableAll(context.Background(), nil))
	assert.Equal(t, StateEnabled, mustState(t, r, "core"))
	assert.Equal(t, StateRegistered, mustState(t, r, "auth"))
	assert.Empty(t, auth.callLog())
}

func TestOnEnableFailureLeavesStateLoaded(t *testing.T) {
	r := NewRegistry()
	p := newHookPlugin(t, "core", "1.0.0")
	p.enableErr = fmt.Errorf("secret not configured")
	require.NoError(t, r.RegisterWithLifecycle(p))
	require.NoError(t, r.LoadPlugin(context.Background(), "core", nil))

	err := r.EnablePlugin(context.Background(), "core", nil)
	assert.ErrorIs(t, err, p.enableErr)
	assert.Equal(t, StateLoaded, mustState(t, r, "core"))
}

func TestDisablePluginSingle(t *testing.T) {
	r := NewRegistry()
	p := newHookPlugin(t, "core", "1.0.0")
	require.NoError(t, r.RegisterWithLifecycle(p))
	require.NoError(t, r.LoadPlugin(context.Background(), "core", nil))
	require.NoError(t, r.EnablePlugin(context.Background(), "core", nil))

	require.NoError(t, r.DisablePlugin(context.Background(), "core", nil))
	assert.Equal(t, StateDisabled, mustState(t, r, "core"))
	assert.Equal(t, []string{"load", "enable", "disable"}, p.callLog())
}

func TestDisablePluginNotFound(t *testing.T) {
	r := NewRegistry()
	err := r.DisablePlugin(context.Background(), "nope", nil)
	var nf *NotFoundError
	assert.ErrorAs(t, err, &nf)
}

func TestDisableCascadesToDependents(t *testing.T) {
	r := NewRegistry()
	core := newHookPlugin(t, "core", "1.0.0")
	auth := newHookPlugin(t, "auth", "1.0.0", "core")
	api := newHookPlugin(t, "api", "1.0.0", "auth")
	for _, p := range []*hookPlugin{core, auth, api} {
		require.NoError(t, r.RegisterWithLifecycle(p))
	}
	require.NoError(t, r.LoadAll(context.Background(), nil))
	require.NoError(t, r.EnableAll(context.Background(), nil))

	require.NoError(t, r.DisablePlugin(context.Background(), "core", nil))
	for _, name := range []string{"core", "auth", "api"} {
		assert.Equal(t, StateDisabled, mustState(t, r, name))
	}
}

func TestDisableSkipsAlreadyDisabledDependents(t *testing.T) {
	r := NewRegistry()
	core := newHookPlugin(t, "core", "1.0.0")
	auth := newHookPlugin(t, "auth", "1.0.0", "core")
	require.NoError(t, r.RegisterWithLifecycle(core))
	require.NoError(t, r.RegisterWithLifecycle(auth))
	require.NoError(t, r.LoadAll(context.Background(), nil))
	require.NoError(t, r.EnableAll(context.Background(), nil))

	require.NoError(t, r.DisablePlugin(context.Background(), "auth", nil))
	require.NoError(t, r.DisablePlugin(context.Background(), "core", nil))

	// auth's OnDisable ran exactly once across both cascades.
	assert.Equal(t, []string{"load", "enable", "disable"}, auth.callLog())
}

func TestOnDisableFailureStillDisables(t *testing.T) {
	r := NewRegistry()
	p := newHookPlugin(t, "core", "1.0.0")
	p.disableErr = fmt.Errorf("flush failed")
	require.NoError(t, r.RegisterWithLifecycle(p))
	require.NoError(t, r.LoadPlugin(context.Background(), "core", nil))
	require.NoError(t, r.EnablePlugin(context.Background(), "core", nil))

	require.NoError(t, r.DisablePlugin(context.Background(), "core", nil))
	assert.Equal(t, StateDisabled, mustState(t, r, "core"))
}

func TestDisableDepthCap(t *testing.T) {
	r := NewRegistry()
	const chain = maxDisableDepth + 6

	prev := ""
	for i := 0; i < chain; i++ {
		name := fmt.Sprintf("p%d", i)
		var p *testPlugin
		if prev == "" {
			p = newTestPlugin(t, name, "1.0.0")
		} else {
			p = newTestPlugin(t, name, "1.0.0", prev)
		}
		require.NoError(t, r.Register(p))
		require.NoError(t, r.setState(name, StateEnabled))
		prev = name
	}

	err := r.DisablePlugin(context.Background(), "p0", nil)
	var perr *PluginError
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, "disable", perr.Op)
}

func TestUnregisterEnabledPluginFails(t *testing.T) {
	r := NewRegistry()
	p := newHookPlugin(t, "core", "1.0.0")
	require.NoError(t, r.RegisterWithLifecycle(p))
	require.NoError(t, r.LoadPlugin(context.Background(), "core", nil))
	require.NoError(t, r.EnablePlugin(context.Background(), "core", nil))

	err := r.Unregister(context.Background(), "core", nil)
	var invalid *InvalidStateTransitionError
	require.ErrorAs(t, err, &invalid)
	assert.Equal(t, "core", invalid.Plugin)
	assert.Equal(t, StateEnabled, invalid.From)
	assert.True(t, r.IsRegistered("core"))
}

func TestUnregisterRemovesEveryTrace(t *testing.T) {
	r := NewRegistry()
	core := newTestPlugin(t, "core", "1.0.0")
	auth := newTestPlugin(t, "auth", "1.0.0", "core").withCaps(CapabilityAuth)
	require.NoError(t, r.Register(core))
	require.NoError(t, r.Register(auth))

	require.NoError(t, r.Unregister(context.Background(), "auth", nil))

	assert.False(t, r.IsRegistered("auth"))
	assert.Empty(t, r.Dependents("core"))
	assert.Empty(t, r.Dependencies("auth"))
	assert.Empty(t, r.CapabilityProviders(CapabilityAuth))

	// Re-registration after removal starts a fresh record.
	require.NoError(t, r.Register(newTestPlugin(t, "auth", "2.0.0")))
	assert.Equal(t, StateRegistered, mustState(t, r, "auth"))
}

func TestUnregisterNotFound(t *testing.T) {
	r := NewRegistry()
	err := r.Unregister(context.Background(), "nope", nil)
	var nf *NotFoundError
	assert.ErrorAs(t, err, &nf)
}

func TestUnregisterRunsOnUnloadAndToleratesItsError(t *testing.T) {
	r := NewRegistry()
	p := newHookPlugin(t, "core", "1.0.0")
	p.unloadErr = fmt.Errorf("cleanup failed")
	require.NoError(t, r.RegisterWithLifecycle(p))

	require.NoError(t, r.Unregister(context.Background(), "core", nil))
	assert.False(t, r.IsRegistered("core"))
	assert.Equal(t, []string{"unload"}, p.callLog())
}

func TestReenableAfterDisable(t *testing.T) {
	r := NewRegistry()
	p := newHookPlugin(t, "core", "1.0.0")
	require.NoError(t, r.RegisterWithLifecycle(p))
	require.NoError(t, r.LoadPlugin(context.Background(), "core", nil))
	require.NoError(t, r.EnablePlugin(context.Background(), "core", nil))
	require.NoError(t, r.DisablePlugin(context.Background(), "core", nil))

	require.NoError(t, r.EnablePlugin(context.Background(), "core", nil))
	assert.True(t, r.IsEnabled("core"))
	assert.Equal(t, []string{"load", "enable", "disable", "enable"}, p.callLog())
}

func TestRegisterIgnoresLifecycleWithoutOptIn(t *testing.T) {
	r := NewRegistry()
	p := newHookPlugin(t, "core", "1.0.0")
	require.NoError(t, r.Register(p))

	require.NoError(t, r.LoadPlugin(context.Background(), "core", nil))
	assert.Equal(t, StateLoaded, mustState(t, r, "core"))
	assert.Empty(t, p.callLog(), "hooks must not run for plain registration")
}
