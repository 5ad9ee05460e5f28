/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

// Package sdk is the public entry point: configuration and shutdown of the
// export pipeline, trace outcome marking, experiments, and the provider
// integration registry.
package sdk

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"

	"github.com/chainguard-dev/clog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	otelsemconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"golang.org/x/sync/errgroup"

	"chainguard.dev/llmtrace/rootspan"
	"chainguard.dev/llmtrace/semconv"
	"chainguard.dev/llmtrace/tracectx"
)

var (
	// ErrMissingToken reports a Configure call without a collector token.
	ErrMissingToken = errors.New("missing collector token")

	// ErrNotConfigured reports use of an API that requires a prior
	// successful Configure.
	ErrNotConfigured = errors.New("llmtrace is not configured")

	// ErrNoRootSpan reports an outcome mark with no instrumented call in
	// scope. Marking only makes sense inside a wrapped function.
	ErrNoRootSpan = errors.New("no root span in context")
)

var configured atomic.Bool

// SDK owns the tracer provider built by Configure.
type SDK struct {
	tp *sdktrace.TracerProvider
}

// Configure validates cfg, builds the OTLP export pipeline authenticated with
// the configured token, installs the root-span processor ahead of the export
// batcher, applies default metadata, and registers the tracer provider
// globally. Fatal on a missing token: there is no unauthenticated mode.
func Configure(ctx context.Context, cfg Config) (*SDK, error) {
	if cfg.Token == "" {
		return nil, ErrMissingToken
	}

	res, err := resource.New(ctx,
		resource.WithAttributes(otelsemconv.ServiceNameKey.String(cfg.ServiceName)),
	)
	if err != nil {
		return nil, fmt.Errorf("creating resource: %w", err)
	}

	exp, err := otlptracehttp.New(ctx,
		otlptracehttp.WithEndpointURL(cfg.Endpoint),
		otlptracehttp.WithHeaders(map[string]string{
			"Authorization": "Bearer " + cfg.Token,
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("creating trace exporter: %w", err)
	}

	// The root-span processor registers first: provenance and outcome
	// defaults must be on the span before any export-side processing
	// observes it.
	tp := sdktrace.NewTracerProvider(
		sdktrace.WithResource(res),
		sdktrace.WithSpanProcessor(rootspan.New(ctx)),
		sdktrace.WithBatcher(exp),
	)
	otel.SetTracerProvider(tp)

	if len(cfg.Metadata) > 0 {
		tracectx.SetGlobal(ctx, cfg.Metadata)
	}

	configured.Store(true)
	clog.FromContext(ctx).Infof("llmtrace configured for service %q", cfg.ServiceName)
	return &SDK{tp: tp}, nil
}

// Shutdown tears down the SDK: installed integrations uninstall and the span
// pipeline flushes concurrently, then the provider shuts down.
func (s *SDK) Shutdown(ctx context.Context) error {
	eg, ctx := errgroup.WithContext(ctx)
	eg.Go(func() error { return uninstallAll(ctx) })
	eg.Go(func() error { return s.tp.ForceFlush(ctx) })
	if err := eg.Wait(); err != nil {
		return err
	}
	configured.Store(false)
	return s.tp.Shutdown(ctx)
}

// MarkSuccess marks the current trace's root span as succeeded.
func MarkSuccess(ctx context.Context) error {
	return mark(ctx, semconv.OutcomeSuccess)
}

// MarkFailure marks the current trace's root span as failed.
func MarkFailure(ctx context.Context) error {
	return mark(ctx, semconv.OutcomeFailure)
}

func mark(ctx context.Context, outcome int64) error {
	root := tracectx.FromContext(ctx).RootSpan
	if root == nil {
		return ErrNoRootSpan
	}
	root.SetAttributes(attribute.Int64(semconv.OutcomeMark, outcome))
	return nil
}

// SetMetadata merges md into the scope's metadata and stamps the active span.
func SetMetadata(ctx context.Context, md map[string]string) context.Context {
	return tracectx.SetMetadata(ctx, md)
}

// ClearMetadata drops the scope's metadata override.
func ClearMetadata(ctx context.Context) context.Context {
	return tracectx.ClearMetadata(ctx)
}

// WithSuppression returns a context under which no spans are created.
func WithSuppression(ctx context.Context) context.Context {
	return tracectx.WithSuppression(ctx, true)
}
