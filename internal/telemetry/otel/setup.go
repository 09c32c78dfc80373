// Package otel wires the OTLP exporters that back request tracing, RPC metrics, and pool events.
package otel

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlplog/otlploggrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	sdklog "go.opentelemetry.io/otel/sdk/log"
	"go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.39.0"
)

// metricExportInterval is how often pool and RPC metrics are pushed to the collector.
const metricExportInterval = 10 * time.Second

// Providers bundles what cmd/server needs: tracer and meter for otelgrpc, logger for pool events.
type Providers struct {
	TracerProvider *sdktrace.TracerProvider
	MeterProvider  *metric.MeterProvider
	LoggerProvider *sdklog.LoggerProvider
	Shutdown       func(context.Context) error
}

// collector is the dial target of the OTLP collector.
type collector struct {
	host      string
	plaintext bool
}

// otlpTarget reduces OTLP_ENDPOINT to host:port. A value without a scheme is plain http, and
// anything other than https dials without TLS unless forcePlaintext already asks for it.
func otlpTarget(endpoint string, forcePlaintext bool) (string, bool, error) {
	if !strings.Contains(endpoint, "://") {
		endpoint = "http://" + endpoint
	}
	u, err := url.Parse(endpoint)
	if err != nil {
		return "", false, fmt.Errorf("invalid OTLP endpoint %q: %w", endpoint, err)
	}
	if u.Host == "" {
		return "", false, fmt.Errorf("invalid OTLP endpoint %q: missing host", endpoint)
	}
	return u.Host, forcePlaintext || u.Scheme != "https", nil
}

// NewProviders builds the three providers for serviceName. An empty endpoint disables export:
// the providers still work locally and Shutdown does nothing.
func NewProviders(ctx context.Context, endpoint, serviceName string, forcePlaintext bool, log logrus.FieldLogger) (*Providers, error) {
	endpoint = strings.TrimSpace(endpoint)
	if endpoint == "" {
		return &Providers{
			TracerProvider: sdktrace.NewTracerProvider(),
			MeterProvider:  metric.NewMeterProvider(),
			LoggerProvider: sdklog.NewLoggerProvider(),
			Shutdown:       func(context.Context) error { return nil },
		}, nil
	}

	host, plaintext, err := otlpTarget(endpoint, forcePlaintext)
	if err != nil {
		return nil, err
	}
	c := collector{host: host, plaintext: plaintext}

	res, err := resource.Merge(resource.Default(),
		resource.NewWithAttributes(semconv.SchemaURL, semconv.ServiceNameKey.String(serviceName)))
	if err != nil {
		return nil, err
	}

	stack := &shutdownStack{log: log}
	tp, err := c.tracerProvider(ctx, res)
	if err != nil {
		return nil, err
	}
	stack.push(tp.Shutdown)

	mp, err := c.meterProvider(ctx, res)
	if err != nil {
		_ = stack.shutdown(ctx)
		return nil, err
	}
	stack.push(mp.Shutdown)

	lp, err := c.loggerProvider(ctx, res)
	if err != nil {
		_ = stack.shutdown(ctx)
		return nil, err
	}
	stack.push(lp.Shutdown)

	return &Providers{
		TracerProvider: tp,
		MeterProvider:  mp,
		LoggerProvider: lp,
		Shutdown:       stack.shutdown,
	}, nil
}

func (c collector) tracerProvider(ctx context.Context, res *resource.Resource) (*sdktrace.TracerProvider, error) {
	opts := []otlptracegrpc.Option{otlptracegrpc.WithEndpoint(c.host)}
	if c.plaintext {
		opts = append(opts, otlptracegrpc.WithInsecure())
	}
	exp, err := otlptracegrpc.New(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("otlp trace exporter: %w", err)
	}
	return sdktrace.NewTracerProvider(sdktrace.WithBatcher(exp), sdktrace.WithResource(res)), nil
}

func (c collector) meterProvider(ctx context.Context, res *resource.Resource) (*metric.MeterProvider, error) {
	opts := []otlpmetricgrpc.Option{otlpmetricgrpc.WithEndpoint(c.host)}
	if c.plaintext {
		opts = append(opts, otlpmetricgrpc.WithInsecure())
	}
	exp, err := otlpmetricgrpc.New(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("otlp metric exporter: %w", err)
	}
	reader := metric.NewPeriodicReader(exp, metric.WithInterval(metricExportInterval))
	return metric.NewMeterProvider(metric.WithResource(res), metric.WithReader(reader)), nil
}

func (c collector) loggerProvider(ctx context.Context, res *resource.Resource) (*sdklog.LoggerProvider, error) {
	opts := []otlploggrpc.Option{otlploggrpc.WithEndpoint(c.host)}
	if c.plaintext {
		opts = append(opts, otlploggrpc.WithInsecure())
	}
	exp, err := otlploggrpc.New(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("otlp log exporter: %w", err)
	}
	return sdklog.NewLoggerProvider(sdklog.WithProcessor(sdklog.NewBatchProcessor(exp)), sdklog.WithResource(res)), nil
}

// shutdownStack stops providers newest first so pool events flush before the tracer goes away.
type shutdownStack struct {
	fns []func(context.Context) error
	log logrus.FieldLogger
}

func (s *shutdownStack) push(fn func(context.Context) error) { s.fns = append(s.fns, fn) }

// shutdown runs every function even after a failure and returns the last error seen.
func (s *shutdownStack) shutdown(ctx context.Context) error {
	var lastErr error
	for i := len(s.fns) - 1; i >= 0; i-- {
		if err := s.fns[i](ctx); err != nil {
			if s.log != nil {
				s.log.WithError(err).Warn("telemetry: provider shutdown failed")
			}
			lastErr = err
		}
	}
	return lastErr
}

// SetGlobal installs the tracer and meter providers for otelgrpc. The logger provider stays
// local; NewEventEmitter takes it explicitly.
func (p *Providers) SetGlobal() {
	if p.TracerProvider != nil {
		otel.SetTracerProvider(p.TracerProvider)
	}
	if p.MeterProvider != nil {
		otel.SetMeterProvider(p.MeterProvider)
	}
}
