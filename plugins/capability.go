package plugins

import "strings"

// Capability is an opaque tag a plugin advertises as "provided". Consumers
// use capabilities to discover active providers through the registry.
//
// A small vocabulary of core capabilities is predefined below; any other
// string is treated as a custom capability defined by a third-party plugin.
type Capability string

// Core capabilities defined by the framework.
const (
	// CapabilityMiddleware marks plugins that provide request middleware.
	CapabilityMiddleware Capability = "middleware"
	// CapabilityModels marks plugins that provide data models and migrations.
	CapabilityModels Capability = "models"
	// CapabilityCommands marks plugins that provide CLI management commands.
	CapabilityCommands Capability = "commands"
	// CapabilityViewSets marks plugins that provide REST API view sets.
	CapabilityViewSets Capability = "viewsets"
	// CapabilitySignals marks plugins that define or emit custom signals.
	CapabilitySignals Capability = "signals"
	// CapabilityServices marks plugins that register injectable services.
	CapabilityServices Capability = "services"
	// CapabilityAuth marks plugins that provide authentication backends.
	CapabilityAuth Capability = "auth"
	// CapabilityTemplates marks plugins that extend template rendering.
	CapabilityTemplates Capability = "templates"
	// CapabilityStaticFiles marks plugins that serve or process static files.
	CapabilityStaticFiles Capability = "static_files"
	// CapabilityRouting marks plugins that register custom routes.
	CapabilityRouting Capability = "routing"
	// CapabilityHandlers marks plugins that handle requests directly.
	CapabilityHandlers Capability = "handlers"
	// CapabilityNetworkAccess marks plugins that make external requests.
	CapabilityNetworkAccess Capability = "network_access"
	// CapabilityDatabaseAccess marks plugins that execute database queries.
	CapabilityDatabaseAccess Capability = "database_access"
	// CapabilityObservability marks plugins that export traces or metrics.
	CapabilityObservability Capability = "observability"
)

var coreCapabilities = map[Capability]struct{}{
	CapabilityMiddleware:     {},
	CapabilityModels:         {},
	CapabilityCommands:       {},
	CapabilityViewSets:       {},
	CapabilitySignals:        {},
	CapabilityServices:       {},
	CapabilityAuth:           {},
	CapabilityTemplates:      {},
	CapabilityStaticFiles:    {},
	CapabilityRouting:        {},
	CapabilityHandlers:       {},
	CapabilityNetworkAccess:  {},
	CapabilityDatabaseAccess: {},
	CapabilityObservability:  {},
}

// CoreCapabilities returns the set of framework-defined capabilities.
func CoreCapabilities() []Capability {
	out := make([]Capability, 0, len(coreCapabilities))
	for c := range coreCapabilities {
		out = append(out, c)
	}
	return out
}

// ParseCapability normalizes a capability string. Known core spellings are
// canonicalized; anything else becomes a custom capability as-is.
func ParseCapability(s string) Capability {
	c := Capability(strings.ToLower(strings.TrimSpace(s)))
	switch c {
	case "staticfiles":
		return CapabilityStaticFiles
	case "networkaccess":
		return CapabilityNetworkAccess
	case "databaseaccess":
		return CapabilityDatabaseAccess
	}
	return c
}

// IsCore reports whether the capability belongs to the framework-defined set.
func (c Capability) IsCore() bool {
	_, ok := coreCapabilities[c]
	return ok
}

func (c Capability) String() string { return string(c) }

// TrustLevel controls what a plugin is permitted to touch. Higher levels
// reduce restrictions; only first-party plugins should be fully trusted.
type TrustLevel int

const (
	// TrustUntrusted is the default: no network, database, or filesystem
	// access regardless of declared capabilities.
	TrustUntrusted TrustLevel = iota

	// TrustVerified allows network and database access (when the matching
	// capability is declared) but no filesystem access. Requires
	// signature verification by the installer.
	TrustVerified

	// TrustTrusted removes all restrictions. First-party plugins only.
	TrustTrusted
)

// ParseTrustLevel parses a trust level name. Unknown names map to
// TrustUntrusted, the safe default.
func ParseTrustLevel(s string) TrustLevel {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "verified", "signed":
		return TrustVerified
	case "trusted", "full":
		return TrustTrusted
	default:
		return TrustUntrusted
	}
}

func (t TrustLevel) String() string {
	switch t {
	case TrustVerified:
		return "verified"
	case TrustTrusted:
		return "trusted"
	default:
		return "untrusted"
	}
}

// AllowsNetwork reports whether plugins at this level may make external
// requests. The plugin must also declare CapabilityNetworkAccess.
func (t TrustLevel) AllowsNetwork() bool { return t != TrustUntrusted }

// AllowsDatabase reports whether plugins at this level may execute queries.
// The plugin must also declare CapabilityDatabaseAccess.
func (t TrustLevel) AllowsDatabase() bool { return t != TrustUntrusted }

// AllowsFilesystem reports whether plugins at this level may access the
// filesystem. Only fully trusted plugins may.
func (t TrustLevel) AllowsFilesystem() bool { return t == TrustTrusted }

// RequiresVerification reports whether the installer must check a signature
// before activating plugins at this level.
func (t TrustLevel) RequiresVerification() bool { return t == TrustVerified }
