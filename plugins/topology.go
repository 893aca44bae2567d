package plugins

// ValidateDependencies checks every required dependency edge. It fails with
// *MissingDependencyError if a dependency is not registered, or with
// *IncompatibleVersionError if the registered version does not satisfy the
// dependent's declared range. The first failing edge found determines the
// returned error; the scan order across edges is unspecified.
//
// This is a pure read and performs no mutation.
func (r *Registry) ValidateDependencies() error {
	r.depMu.RLock()
	defer r.depMu.RUnlock()
	r.mu.RLock()
	defer r.mu.RUnlock()

	for pluginName, dependencies := range r.deps {
		entry, ok := r.plugins[pluginName]
		if !ok {
			// Stale edge from a concurrent unregister; the graph
			// self-heals on the next write, skip it here.
			continue
		}
		meta := entry.plugin.Metadata()

		for _, depName := range dependencies {
			depEntry, ok := r.plugins[depName]
			if !ok {
				return &MissingDependencyError{Plugin: pluginName, Dependency: depName}
			}
			spec, ok := meta.Dependency(depName)
			if !ok || spec.VersionReq == nil {
				continue
			}
			actual := depEntry.plugin.Metadata().Version
			if !spec.VersionReq.Check(actual) {
				return &IncompatibleVersionError{
					Plugin:     pluginName,
					Dependency: depName,
					Required:   spec.VersionReq.String(),
					Actual:     actual.String(),
				}
			}
		}
	}
	return nil
}

// EnableOrder computes an activation order in which every required
// dependency precedes its dependents, using Kahn's algorithm. The tie-break
// among concurrently-ready plugins is unspecified; callers must not assume a
// stable order.
//
// Edges to plugins that are no longer registered are not counted, so the
// order self-heals after a partial unregister. If any registered plugins
// remain unordered a cycle exists among them and ErrCircularDependency is
// returned. This is the sole cycle detector in the system.
func (r *Registry) EnableOrder() ([]string, error) {
	r.depMu.RLock()
	defer r.depMu.RUnlock()
	r.revMu.RLock()
	defer r.revMu.RUnlock()
	r.mu.RLock()
	defer r.mu.RUnlock()

	// In-degree = number of still-registered required dependencies.
	inDegree := make(map[string]int, len(r.plugins))
	for name := range r.plugins {
		inDegree[name] = 0
	}
	for pluginName, dependencies := range r.deps {
		if _, ok := inDegree[pluginName]; !ok {
			continue
		}
		n := 0
		for _, dep := range dependencies {
			if _, ok := r.plugins[dep]; ok {
				n++
			}
		}
		inDegree[pluginName] = n
	}

	queue := make([]string, 0, len(inDegree))
	for name, degree := range inDegree {
		if degree == 0 {
			queue = append(queue, name)
		}
	}

	result := make([]string, 0, len(r.plugins))
	for len(queue) > 0 {
		name := queue[len(queue)-1]
		queue = queue[:len(queue)-1]
		result = append(result, name)

		for _, dependent := range r.dependents[name] {
			if degree, ok := inDegree[dependent]; ok {
				inDegree[dependent] = degree - 1
				if degree-1 == 0 {
					queue = append(queue, dependent)
				}
			}
		}
	}

	if len(result) != len(r.plugins) {
		return nil, ErrCircularDependency
	}
	return result, nil
}

// Dependents returns the names of plugins that directly require the named
// plugin. The result is a copy and safe to retain.
func (r *Registry) Dependents(name string) []string {
	r.revMu.RLock()
	defer r.revMu.RUnlock()
	deps := r.dependents[name]
	if len(deps) == 0 {
		return nil
	}
	out := make([]string, len(deps))
	copy(out, deps)
	return out
}

// Dependencies returns the names of the plugins the named plugin directly
// requires. The result is a copy and safe to retain.
func (r *Registry) Dependencies(name string) []string {
	r.depMu.RLock()
	defer r.depMu.RUnlock()
	deps := r.deps[name]
	if len(deps) == 0 {
		return nil
	}
	out := make([]string, len(deps))
	copy(out, deps)
	return out
}
