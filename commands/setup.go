package commands

import (
	"fmt"
	"net/http"
	"net/http/pprof"
	"strings"
	"time"

	"contrib.go.opencensus.io/exporter/prometheus"
	logging "github.com/ipfs/go-log/v2"
	prom "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.opencensus.io/stats/view"
	"go.opencensus.io/zpages"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/bridge/opencensus"
	tracesdk "go.opentelemetry.io/otel/sdk/trace"

	"github.com/wormhole-foundation/suigov/metrics"
	"github.com/wormhole-foundation/suigov/version"
)

var log = logging.Logger("suigov/commands")

type LogOpts struct {
	LogLevel      string
	LogLevelNamed string
}

var LogFlags LogOpts

type TracingOpts struct {
	Enabled            bool
	ServiceName        string
	ProviderURL        string
	JaegerSamplerParam float64
}

var TracingFlags TracingOpts

type MetricOpts struct {
	PrometheusPort string
}

var MetricFlags MetricOpts

func setupLogging(flags LogOpts) error {
	ll := flags.LogLevel
	if err := logging.SetLogLevel("*", ll); err != nil {
		return fmt.Errorf("set log level: %w", err)
	}

	llnamed := flags.LogLevelNamed
	if llnamed != "" {
		for _, llname := range strings.Split(llnamed, ",") {
			parts := strings.Split(llname, ":")
			if len(parts) != 2 {
				return fmt.Errorf("invalid named log level format: %q", llname)
			}
			if err := logging.SetLogLevel(parts[0], parts[1]); err != nil {
				return fmt.Errorf("set named log level %q to %q: %w", parts[0], parts[1], err)
			}
		}
	}

	log.Debugf("suigov version:%s", version.String())

	return nil
}

// setupMetrics registers the views and serves them on the prometheus port. An
// empty port disables the endpoint.
func setupMetrics(flags MetricOpts) error {
	if flags.PrometheusPort == "" {
		return nil
	}

	registry := prom.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	pe, err := prometheus.NewExporter(prometheus.Options{
		Namespace: "suigov",
		Registry:  registry,
	})
	if err != nil {
		return err
	}

	// register prometheus with opencensus
	view.RegisterExporter(pe)
	view.SetReportingPeriod(2 * time.Second)

	if err := view.Register(metrics.DefaultViews...); err != nil {
		return err
	}

	go func() {
		mux := http.NewServeMux()
		zpages.Handle(mux, "/debug")
		mux.Handle("/metrics", pe)
		mux.HandleFunc("/debug/pprof/", pprof.Index)
		mux.HandleFunc("/debug/pprof/profile", pprof.Profile)
		mux.Handle("/debug/pprof/goroutine", pprof.Handler("goroutine"))
		mux.Handle("/debug/pprof/heap", pprof.Handler("heap"))
		log.Infof("serving metrics on %s", flags.PrometheusPort)
		srv := &http.Server{Addr: flags.PrometheusPort, Handler: mux, ReadHeaderTimeout: 10 * time.Second}
		if err := srv.ListenAndServe(); err != nil {
			log.Errorf("failed to run prometheus /metrics endpoint: %v", err)
		}
	}()
	return nil
}

// setupTracing installs a jaeger backed tracer provider. The returned provider is
// nil when tracing is disabled; callers shut it down to flush spans.
func setupTracing(flags TracingOpts) (*tracesdk.TracerProvider, error) {
	if !flags.Enabled {
		return nil, nil
	}

	tp, err := metrics.NewJaegerTraceProvider(flags.ServiceName, flags.ProviderURL, flags.JaegerSamplerParam)
	if err != nil {
		return nil, fmt.Errorf("setup tracing: %w", err)
	}
	otel.SetTracerProvider(tp)
	// spans of libraries still on OpenCensus end up in the same traces.
	opencensus.InstallTraceBridge(opencensus.WithTracerProvider(tp))

	return tp, nil
}
