package plugins

import (
	"fmt"

	"github.com/Masterminds/semver/v3"
)

// DependencySpec declares a dependency on another plugin by name, together
// with an acceptable version range. Optional dependencies never participate
// in graph construction: they do not gate activation and cannot form cycles.
type DependencySpec struct {
	// Name is the unique name of the required plugin.
	Name string

	// VersionReq constrains which versions of the dependency satisfy this
	// spec, e.g. "^1.0.0" or ">=2.1.0 <3.0.0".
	VersionReq *semver.Constraints

	// Optional marks the dependency as non-blocking.
	Optional bool
}

// PluginMetadata describes a plugin: its unique name, semantic version, and
// declared dependencies. Instances are immutable once built and are shared
// between the registry and any caller holding a lookup result.
type PluginMetadata struct {
	// Name uniquely identifies the plugin across the registry.
	Name string

	// Version is the plugin's semantic version.
	Version *semver.Version

	// Description is an optional human-readable summary.
	Description string

	// Author is the optional plugin author or publisher.
	Author string

	// Trust determines the plugin's permission envelope.
	Trust TrustLevel

	// Dependencies lists the plugins this plugin depends on, in
	// declaration order.
	Dependencies []DependencySpec
}

// Dependency returns the spec for the named dependency, if declared.
func (m *PluginMetadata) Dependency(name string) (DependencySpec, bool) {
	for _, d := range m.Dependencies {
		if d.Name == name {
			return d, true
		}
	}
	return DependencySpec{}, false
}

// MetadataBuilder assembles a PluginMetadata. Version strings are validated
// when Build is called; the first invalid input reports an error.
type MetadataBuilder struct {
	meta PluginMetadata
	deps []rawDep
	err  error
}

type rawDep struct {
	name     string
	req      string
	optional bool
}

// NewMetadata starts a builder for a plugin with the given name and
// semantic version.
func NewMetadata(name, version string) *MetadataBuilder {
	b := &MetadataBuilder{}
	b.meta.Name = name
	if name == "" {
		b.err = fmt.Errorf("plugin name cannot be empty")
		return b
	}
	v, err := semver.NewVersion(version)
	if err != nil {
		b.err = fmt.Errorf("invalid version %q for plugin %s: %w", version, name, err)
		return b
	}
	b.meta.Version = v
	return b
}

// WithDescription sets the plugin description.
func (b *MetadataBuilder) WithDescription(desc string) *MetadataBuilder {
	b.meta.Description = desc
	return b
}

// WithAuthor sets the plugin author.
func (b *MetadataBuilder) WithAuthor(author string) *MetadataBuilder {
	b.meta.Author = author
	return b
}

// WithTrust sets the plugin trust level. The default is TrustUntrusted.
func (b *MetadataBuilder) WithTrust(t TrustLevel) *MetadataBuilder {
	b.meta.Trust = t
	return b
}

// DependsOn declares a required dependency with a version range expression.
func (b *MetadataBuilder) DependsOn(name, versionReq string) *MetadataBuilder {
	b.deps = append(b.deps, rawDep{name: name, req: versionReq})
	return b
}

// OptionallyDependsOn declares an optional dependency. Optional dependencies
// are excluded from the dependency graph entirely.
func (b *MetadataBuilder) OptionallyDependsOn(name, versionReq string) *MetadataBuilder {
	b.deps = append(b.deps, rawDep{name: name, req: versionReq, optional: true})
	return b
}

// Build validates the accumulated inputs and returns the metadata.
func (b *MetadataBuilder) Build() (*PluginMetadata, error) {
	if b.err != nil {
		return nil, b.err
	}
	meta := b.meta
	meta.Dependencies = make([]DependencySpec, 0, len(b.deps))
	for _, d := range b.deps {
		req, err := semver.NewConstraint(d.req)
		if err != nil {
			return nil, fmt.Errorf("invalid version requirement %q for dependency %s of plugin %s: %w",
				d.req, d.name, meta.Name, err)
		}
		meta.Dependencies = append(meta.Dependencies, DependencySpec{
			Name:       d.name,
			VersionReq: req,
			Optional:   d.optional,
		})
	}
	return &meta, nil
}

// MustBuild is Build for static plugin declarations; it panics on invalid
// input.
func (b *MetadataBuilder) MustBuild() *PluginMetadata {
	meta, err := b.Build()
	if err != nil {
		panic(err)
	}
	return meta
}
