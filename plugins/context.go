package plugins

import (
	"github.com/go-kratos/kratos/v2/config"
	"github.com/go-kratos/kratos/v2/log"
)

// PluginContext carries the ambient data handed to every lifecycle hook: the
// project root, the application configuration, a logger, and arbitrary
// string-keyed values supplied by the driver. The registry itself treats the
// context as opaque and simply passes it through.
type PluginContext struct {
	root   string
	conf   config.Config
	logger log.Logger
	values map[string]any
}

// ContextOption configures a PluginContext at construction time.
type ContextOption func(*PluginContext)

// WithConfig attaches the application configuration to the context.
func WithConfig(conf config.Config) ContextOption {
	return func(c *PluginContext) { c.conf = conf }
}

// WithContextLogger attaches a logger for hooks to use.
func WithContextLogger(logger log.Logger) ContextOption {
	return func(c *PluginContext) { c.logger = logger }
}

// NewPluginContext creates a context rooted at the given project directory.
func NewPluginContext(root string, opts ...ContextOption) *PluginContext {
	c := &PluginContext{
		root:   root,
		logger: log.DefaultLogger,
		values: make(map[string]any),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Root returns the project root directory.
func (c *PluginContext) Root() string { return c.root }

// Config returns the application configuration, or nil if none was attached.
func (c *PluginContext) Config() config.Config { return c.conf }

// Logger returns the context logger.
func (c *PluginContext) Logger() log.Logger { return c.logger }

// Value returns the value stored under key, if present.
func (c *PluginContext) Value(key string) (any, bool) {
	v, ok := c.values[key]
	return v, ok
}

// WithValue returns a copy of the context with key set to value. The
// original context is unchanged, so a context shared across concurrent hook
// invocations stays safe to read.
func (c *PluginContext) WithValue(key string, value any) *PluginContext {
	next := &PluginContext{
		root:   c.root,
		conf:   c.conf,
		logger: c.logger,
		values: make(map[string]any, len(c.values)+1),
	}
	for k, v := range c.values {
		next.values[k] = v
	}
	next.values[key] = value
	return next
}
