// Package boot wires a Petal application together: it loads the YAML
// configuration, configures logging, constructs the plugin registry,
// instantiates the configured plugins through the factory, and drives the
// registry through validation, load, and enable. Teardown runs the same
// pipeline in reverse on a best-effort basis.
package boot

import (
	"context"
	"fmt"
	"os"

	"github.com/go-kratos/kratos/v2/config"
	"github.com/go-kratos/kratos/v2/config/file"
	kratoslog "github.com/go-kratos/kratos/v2/log"

	"github.com/go-petal/petal/factory"
	"github.com/go-petal/petal/log"
	"github.com/go-petal/petal/plugins"
)

// Config is the bootstrap section of the application configuration, stored
// under the top-level "petal" key.
type Config struct {
	// Root is the project root directory handed to plugins via the
	// PluginContext. Defaults to the current working directory.
	Root string `json:"root"`

	// LogLevel selects the global log level: debug, info, warn, error.
	LogLevel string `json:"log_level"`

	// Plugins names the plugins to construct via the factory and
	// register at startup, e.g. ["auth", "tracer"].
	Plugins []string `json:"plugins"`
}

// Bootstrap owns the application-level plugin machinery.
type Bootstrap struct {
	conf     config.Config
	bc       Config
	registry *plugins.Registry
	pctx     *plugins.PluginContext
	logger   *kratoslog.Helper
}

// Option configures the bootstrap.
type Option func(*options)

type options struct {
	factory *factory.PluginFactory
}

// WithFactory overrides the plugin factory; the global factory is used by
// default.
func WithFactory(f *factory.PluginFactory) Option {
	return func(o *options) { o.factory = f }
}

// New loads the configuration file at confPath and prepares the registry:
// every plugin named in petal.plugins is constructed and registered. No
// lifecycle hook runs yet; call Run to load and enable.
func New(confPath string, opts ...Option) (*Bootstrap, error) {
	o := options{factory: factory.Global()}
	for _, opt := range opts {
		opt(&o)
	}

	c := config.New(config.WithSource(file.NewSource(confPath)))
	if err := c.Load(); err != nil {
		return nil, fmt.Errorf("boot: load config %s: %w", confPath, err)
	}

	var bc Config
	if err := c.Value("petal").Scan(&bc); err != nil {
		return nil, fmt.Errorf("boot: missing petal config section: %w", err)
	}
	if bc.Root == "" {
		wd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("boot: resolve working directory: %w", err)
		}
		bc.Root = wd
	}
	log.Init(os.Stderr, parseLevel(bc.LogLevel))

	registry := plugins.NewRegistry(plugins.WithLogger(log.Logger()))
	pctx := plugins.NewPluginContext(bc.Root,
		plugins.WithConfig(c),
		plugins.WithContextLogger(log.Logger()),
	)

	b := &Bootstrap{
		conf:     c,
		bc:       bc,
		registry: registry,
		pctx:     pctx,
		logger:   log.Helper(),
	}

	for _, name := range bc.Plugins {
		p, err := o.factory.CreatePlugin(name)
		if err != nil {
			return nil, fmt.Errorf("boot: construct plugin %s: %w", name, err)
		}
		if lc, ok := p.(plugins.LifecyclePlugin); ok {
			err = registry.RegisterWithLifecycle(lc)
		} else {
			err = registry.Register(p)
		}
		if err != nil {
			return nil, fmt.Errorf("boot: register plugin %s: %w", name, err)
		}
	}
	return b, nil
}

// Run validates the dependency graph and drives every registered plugin
// through load and enable, in dependency order. It returns the first
// structural or hook error encountered.
func (b *Bootstrap) Run(ctx context.Context) error {
	if err := b.registry.ValidateDependencies(); err != nil {
		return err
	}
	if err := b.registry.LoadAll(ctx, b.pctx); err != nil {
		return err
	}
	if err := b.registry.EnableAll(ctx, b.pctx); err != nil {
		return err
	}
	b.logger.Infof("petal started with %d plugins", b.registry.Len())
	return nil
}

// Shutdown disables every enabled plugin in reverse activation order and
// unregisters all plugins. Teardown is best-effort: individual failures are
// logged and the remaining plugins still processed.
func (b *Bootstrap) Shutdown(ctx context.Context) error {
	order, err := b.registry.EnableOrder()
	if err != nil {
		// A cycle appeared after startup; fall back to whatever order
		// the store yields. The cascade guards make this safe.
		order = b.registry.PluginNames()
	}
	for i := len(order) - 1; i >= 0; i-- {
		name := order[i]
		if !b.registry.IsEnabled(name) {
			continue
		}
		if err := b.registry.DisablePlugin(ctx, name, b.pctx); err != nil {
			b.logger.Warnf("disable %s during shutdown: %v", name, err)
		}
	}
	for _, name := range order {
		if !b.registry.IsRegistered(name) {
			continue
		}
		if err := b.registry.Unregister(ctx, name, b.pctx); err != nil {
			b.logger.Warnf("unregister %s during shutdown: %v", name, err)
		}
	}
	return b.conf.Close()
}

// Registry exposes the underlying plugin registry.
func (b *Bootstrap) Registry() *plugins.Registry { return b.registry }

// Context returns the ambient plugin context handed to lifecycle hooks.
func (b *Bootstrap) Context() *plugins.PluginContext { return b.pctx }

func parseLevel(s string) log.Level {
	switch s {
	case "debug":
		return log.DebugLevel
	case "warn":
		return log.WarnLevel
	case "error":
		return log.ErrorLevel
	default:
		return log.InfoLevel
	}
}
