package otel

import (
	"context"
	"fmt"
	"os"
	"strconv"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	"go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.24.0"
	"go.uber.org/zap"
)

// Settings holds the standard OTEL_* variables this service honours.
type Settings struct {
	Disabled    bool
	ServiceName string
	Protocol    string
	Endpoint    string
	Sampler     string
	SamplerArg  string
}

// SettingsFromEnv reads Settings through lookup, normally os.Getenv.
func SettingsFromEnv(lookup func(string) string) Settings {
	s := Settings{
		Disabled:    lookup("OTEL_SDK_DISABLED") == "true",
		ServiceName: lookup("OTEL_SERVICE_NAME"),
		Protocol:    lookup("OTEL_EXPORTER_OTLP_PROTOCOL"),
		Endpoint:    lookup("OTEL_EXPORTER_OTLP_TRACES_ENDPOINT"),
		Sampler:     lookup("OTEL_TRACES_SAMPLER"),
		SamplerArg:  lookup("OTEL_TRACES_SAMPLER_ARG"),
	}
	if s.ServiceName == "" {
		s.ServiceName = "journalapi"
	}
	if s.Protocol == "" {
		s.Protocol = "grpc"
	}
	if s.Endpoint == "" {
		s.Endpoint = lookup("OTEL_EXPORTER_OTLP_ENDPOINT")
	}
	if s.Sampler == "" {
		s.Sampler = "parentbased_traceidratio"
	}
	if s.SamplerArg == "" {
		s.SamplerArg = "1.0"
	}
	return s
}

func noop() func(context.Context) error {
	return func(context.Context) error { return nil }
}

// Init installs the global tracer provider with an OTLP exporter. When tracing is
// disabled or the exporter cannot be built, only the propagator is installed and
// the returned shutdown is a no-op.
func Init(ctx context.Context, logger *zap.Logger) (func(context.Context) error, error) {
	return InitWith(ctx, SettingsFromEnv(os.Getenv), logger)
}

// InitWith is Init with explicit settings.
func InitWith(ctx context.Context, s Settings, logger *zap.Logger) (func(context.Context) error, error) {
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(propagation.TraceContext{}, propagation.Baggage{}))

	if s.Disabled {
		logger.Info("tracing configured", zap.Bool("tracing_enabled", false))
		return noop(), nil
	}

	exporter, err := newExporter(ctx, s.Protocol)
	if err != nil {
		logger.Error("tracing init failed", zap.Error(err))
		return noop(), nil
	}

	res, err := resource.New(ctx,
		resource.WithAttributes(semconv.ServiceNameKey.String(s.ServiceName)),
		resource.WithFromEnv(),
		resource.WithProcess(),
		resource.WithTelemetrySDK(),
		resource.WithHost(),
	)
	if err != nil {
		_ = exporter.Shutdown(ctx)
		return nil, fmt.Errorf("create resource: %w", err)
	}

	tp := trace.NewTracerProvider(
		trace.WithBatcher(exporter),
		trace.WithResource(res),
		trace.WithSampler(Sampler(s.Sampler, s.SamplerArg)),
	)
	otel.SetTracerProvider(tp)

	logger.Info("tracing configured",
		zap.Bool("tracing_enabled", true),
		zap.String("otlp_protocol", s.Protocol),
		zap.String("otlp_endpoint", s.Endpoint),
		zap.String("sampler", s.Sampler),
		zap.String("sampler_arg", s.SamplerArg),
	)
	return tp.Shutdown, nil
}

func newExporter(ctx context.Context, protocol string) (*otlptrace.Exporter, error) {
	switch protocol {
	case "grpc":
		return otlptracegrpc.New(ctx)
	case "http/protobuf":
		return otlptracehttp.New(ctx)
	default:
		return nil, fmt.Errorf("unsupported OTLP protocol: %s", protocol)
	}
}

// Sampler maps OTEL_TRACES_SAMPLER names to SDK samplers. Unknown names sample
// everything under a parent-based policy. A bad ratio counts as 1.
func Sampler(name, arg string) trace.Sampler {
	ratio, err := strconv.ParseFloat(arg, 64)
	if err != nil {
		ratio = 1
	}

	switch name {
	case "always_on":
		return trace.AlwaysSample()
	case "always_off":
		return trace.NeverSample()
	case "traceidratio":
		return trace.TraceIDRatioBased(ratio)
	case "parentbased_always_off":
		return trace.ParentBased(trace.NeverSample())
	case "parentbased_traceidratio":
		return trace.ParentBased(trace.TraceIDRatioBased(ratio))
	default:
		return trace.ParentBased(trace.AlwaysSample())
	}
}
