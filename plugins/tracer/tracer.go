// Package tracer provides the bundled OpenTelemetry tracing plugin. When
// enabled it installs a global tracer provider exporting spans over OTLP
// gRPC; when disabled it flushes and shuts the provider down.
package tracer

import (
	"context"
	"fmt"
	"net"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/sdk/resource"
	tracesdk "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
	"google.golang.org/grpc"

	"github.com/go-petal/petal/factory"
	"github.com/go-petal/petal/plugins"
)

const (
	// Name is the plugin's registry name.
	Name = "tracer"
	// Version is the plugin's semantic version.
	Version = "1.0.0"

	confKey = "petal.tracer"

	defaultEndpoint    = "localhost:4317"
	defaultSampleRatio = 1.0
	shutdownTimeout    = 5 * time.Second
)

func init() {
	factory.Global().RegisterPlugin(Name, func() plugins.Plugin {
		return New()
	})
}

// Config holds the tracer settings, read from the application configuration
// under "petal.tracer" during OnLoad.
type Config struct {
	Endpoint    string  `json:"endpoint"`
	ServiceName string  `json:"service_name"`
	SampleRatio float64 `json:"sample_ratio"`
	Insecure    bool    `json:"insecure"`
}

// Plugin wires span export behind the "observability" capability.
type Plugin struct {
	meta *plugins.PluginMetadata

	mu          sync.Mutex
	endpoint    string
	serviceName string
	sampleRatio float64
	insecure    bool
	provider    *tracesdk.TracerProvider
}

// New creates the tracer plugin with defaults: localhost OTLP endpoint,
// full sampling, insecure transport.
func New() *Plugin {
	return &Plugin{
		meta: plugins.NewMetadata(Name, Version).
			WithDescription("OpenTelemetry trace export over OTLP gRPC").
			WithTrust(plugins.TrustTrusted).
			MustBuild(),
		endpoint:    defaultEndpoint,
		serviceName: "petal",
		sampleRatio: defaultSampleRatio,
		insecure:    true,
	}
}

// Metadata implements plugins.Plugin.
func (p *Plugin) Metadata() *plugins.PluginMetadata { return p.meta }

// Capabilities implements plugins.Plugin.
func (p *Plugin) Capabilities() []plugins.Capability {
	return []plugins.Capability{plugins.CapabilityObservability, plugins.CapabilityNetworkAccess}
}

// OnLoad reads and validates the tracer configuration.
func (p *Plugin) OnLoad(ctx context.Context, pctx *plugins.PluginContext) error {
	conf := pctx.Config()
	if conf == nil {
		return nil
	}
	var c Config
	if err := conf.Value(confKey).Scan(&c); err != nil {
		return nil
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if c.Endpoint != "" {
		if _, _, err := net.SplitHostPort(c.Endpoint); err != nil {
			return fmt.Errorf("tracer: endpoint %q is not host:port: %w", c.Endpoint, err)
		}
		p.endpoint = c.Endpoint
	}
	if c.ServiceName != "" {
		p.serviceName = c.ServiceName
	}
	if c.SampleRatio != 0 {
		if c.SampleRatio < 0 || c.SampleRatio > 1 {
			return fmt.Errorf("tracer: sample_ratio %v out of range [0,1]", c.SampleRatio)
		}
		p.sampleRatio = c.SampleRatio
	}
	p.insecure = c.Insecure
	return nil
}

// OnEnable builds the OTLP exporter and installs the tracer provider as the
// global OpenTelemetry provider.
func (p *Plugin) OnEnable(ctx context.Context, pctx *plugins.PluginContext) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	opts := []otlptracegrpc.Option{
		otlptracegrpc.WithEndpoint(p.endpoint),
		otlptracegrpc.WithDialOption(grpc.WithUserAgent("petal-tracer/" + Version)),
	}
	if p.insecure {
		opts = append(opts, otlptracegrpc.WithInsecure())
	}
	exporter, err := otlptracegrpc.New(ctx, opts...)
	if err != nil {
		return fmt.Errorf("tracer: create exporter: %w", err)
	}

	res, err := resource.Merge(resource.Default(), resource.NewSchemaless(
		attribute.String("service.name", p.serviceName),
		attribute.String("service.root", pctx.Root()),
	))
	if err != nil {
		return fmt.Errorf("tracer: build resource: %w", err)
	}

	p.provider = tracesdk.NewTracerProvider(
		tracesdk.WithBatcher(exporter),
		tracesdk.WithResource(res),
		tracesdk.WithSampler(tracesdk.ParentBased(tracesdk.TraceIDRatioBased(p.sampleRatio))),
	)
	otel.SetTracerProvider(p.provider)
	return nil
}

// OnDisable flushes and shuts down the tracer provider.
func (p *Plugin) OnDisable(ctx context.Context, pctx *plugins.PluginContext) error {
	p.mu.Lock()
	provider := p.provider
	p.provider = nil
	p.mu.Unlock()
	if provider == nil {
		return nil
	}
	shutdownCtx, cancel := context.WithTimeout(ctx, shutdownTimeout)
	defer cancel()
	return provider.Shutdown(shutdownCtx)
}

// OnUnload is a no-op; OnDisable already released the provider.
func (p *Plugin) OnUnload(ctx context.Context, pctx *plugins.PluginContext) error {
	return nil
}

// Tracer returns a named tracer from the installed provider, or the global
// no-op tracer if the plugin is not enabled.
func (p *Plugin) Tracer(name string) trace.Tracer {
	p.mu.Lock()
	provider := p.provider
	p.mu.Unlock()
	if provider == nil {
		return otel.Tracer(name)
	}
	return provider.Tracer(name)
}
