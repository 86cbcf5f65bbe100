// Package telemetry wires OpenTelemetry tracing for model and tool calls.
// A process-wide default Manager keeps call sites one-liners: StartSpan and
// EndSpan degrade to no-ops until a manager is installed.
package telemetry

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

// Config describes how the telemetry pipeline is assembled.
type Config struct {
	ServiceName    string
	ServiceVersion string
	Environment    string
	// OTLPEndpoint enables the OTLP HTTP exporter when non-empty,
	// e.g. "localhost:4318". Spans stay in-process otherwise.
	OTLPEndpoint string
	// Mask replaces values matched by the secret filter. Defaults to "***".
	Mask string
}

// Manager owns the tracer provider and the attribute masking filter.
type Manager struct {
	provider *sdktrace.TracerProvider
	tracer   trace.Tracer
	mask     string
}

var defaultManager atomic.Pointer[Manager]

// NewManager builds a Manager from cfg.
func NewManager(cfg Config) (*Manager, error) {
	name := strings.TrimSpace(cfg.ServiceName)
	if name == "" {
		return nil, fmt.Errorf("telemetry: service name is required")
	}
	mask := cfg.Mask
	if mask == "" {
		mask = "***"
	}

	var opts []sdktrace.TracerProviderOption
	res, err := resource.Merge(resource.Default(), resource.NewWithAttributes(
		semconv.SchemaURL,
		semconv.ServiceName(name),
		semconv.ServiceVersion(cfg.ServiceVersion),
		attribute.String("deployment.environment", cfg.Environment),
	))
	if err != nil {
		return nil, fmt.Errorf("telemetry: build resource: %w", err)
	}
	opts = append(opts, sdktrace.WithResource(res))

	if endpoint := strings.TrimSpace(cfg.OTLPEndpoint); endpoint != "" {
		exporter, err := otlptracehttp.New(context.Background(),
			otlptracehttp.WithEndpoint(endpoint),
			otlptracehttp.WithInsecure(),
		)
		if err != nil {
			return nil, fmt.Errorf("telemetry: create otlp exporter: %w", err)
		}
		opts = append(opts, sdktrace.WithBatcher(exporter))
	}

	provider := sdktrace.NewTracerProvider(opts...)
	return &Manager{
		provider: provider,
		tracer:   provider.Tracer(name),
		mask:     mask,
	}, nil
}

// SetDefault installs mgr as the process-wide manager used by the package
// helpers.
func SetDefault(mgr *Manager) {
	defaultManager.Store(mgr)
}

// Default returns the installed manager, or nil.
func Default() *Manager {
	return defaultManager.Load()
}

// Shutdown flushes pending spans.
func (m *Manager) Shutdown(ctx context.Context) error {
	if m == nil || m.provider == nil {
		return nil
	}
	return m.provider.Shutdown(ctx)
}

// StartSpan begins a span on the manager's tracer.
func (m *Manager) StartSpan(ctx context.Context, name string, opts ...trace.SpanStartOption) (context.Context, trace.Span) {
	if m == nil || m.tracer == nil {
		return noopSpan(ctx)
	}
	return m.tracer.Start(ctx, name, opts...)
}

// StartSpan begins a span on the default manager, or a no-op span when no
// manager is installed.
func StartSpan(ctx context.Context, name string, opts ...trace.SpanStartOption) (context.Context, trace.Span) {
	if mgr := Default(); mgr != nil {
		return mgr.StartSpan(ctx, name, opts...)
	}
	return noopSpan(ctx)
}

// EndSpan records err (when non-nil) and ends the span.
func EndSpan(span trace.Span, err error) {
	if span == nil {
		return
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}

func noopSpan(ctx context.Context) (context.Context, trace.Span) {
	return noop.NewTracerProvider().Tracer("").Start(ctx, "")
}

var secretMu sync.RWMutex

// secretMarkers flag attribute values that must never reach an exporter.
var secretMarkers = []string{"api_key", "apikey", "authorization", "secret", "token", "sk-"}

// SanitizeAttributes masks attribute values that look like credentials.
func SanitizeAttributes(attrs ...attribute.KeyValue) []attribute.KeyValue {
	mask := "***"
	if mgr := Default(); mgr != nil {
		mask = mgr.mask
	}
	secretMu.RLock()
	markers := secretMarkers
	secretMu.RUnlock()

	out := make([]attribute.KeyValue, 0, len(attrs))
	for _, kv := range attrs {
		value := kv.Value.Emit()
		lowerKey := strings.ToLower(string(kv.Key))
		lowerVal := strings.ToLower(value)
		masked := false
		for _, marker := range markers {
			if strings.Contains(lowerKey, marker) || strings.Contains(lowerVal, marker) {
				masked = true
				break
			}
		}
		if masked {
			out = append(out, attribute.String(string(kv.Key), mask))
			continue
		}
		out = append(out, kv)
	}
	return out
}
