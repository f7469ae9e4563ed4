package metrics

import (
	logging "github.com/ipfs/go-log/v2"
	"go.opentelemetry.io/otel/exporters/jaeger"
	"go.opentelemetry.io/otel/sdk/resource"
	tracesdk "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.7.0"
)

var log = logging.Logger("suigov/metrics")

// NewJaegerTraceProvider returns a TracerProvider exporting spans of upgrade runs to a jaeger collector.
func NewJaegerTraceProvider(serviceName, collectorEndpoint string, sampleRatio float64) (*tracesdk.TracerProvider, error) {
	log.Infow("creating jaeger trace provider", "serviceName", serviceName, "ratio", sampleRatio, "endpoint", collectorEndpoint)

	exp, err := jaeger.New(jaeger.WithCollectorEndpoint(jaeger.WithEndpoint(collectorEndpoint)))
	if err != nil {
		return nil, err
	}
	return tracesdk.NewTracerProvider(
		tracesdk.WithBatcher(exp),
		tracesdk.WithSampler(Sampler(sampleRatio)),
		tracesdk.WithResource(resource.NewWithAttributes(
			semconv.SchemaURL,
			semconv.ServiceNameKey.String(serviceName),
		)),
	), nil
}

// Sampler maps a ratio to a sampler. Ratios outside (0, 1] sample nothing.
func Sampler(ratio float64) tracesdk.Sampler {
	switch {
	case ratio == 1:
		return tracesdk.AlwaysSample()
	case ratio > 0 && ratio < 1:
		return tracesdk.ParentBased(tracesdk.TraceIDRatioBased(ratio))
	default:
		return tracesdk.NeverSample()
	}
}
