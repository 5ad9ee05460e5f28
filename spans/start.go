/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package spans

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"chainguard.dev/llmtrace/semconv"
	"chainguard.dev/llmtrace/tracectx"
)

// Start runs fn inside a new child span named name, passing a Writer over it
// and the span-bearing context. The span always ends when fn returns, even on
// panic. The result and error of fn pass through unchanged; an error also
// records on the span and sets its status.
//
// When the ambient scope has no root span yet, this span becomes it. Under
// suppression no span is created and fn runs against a non-recording writer.
func Start[T any](ctx context.Context, name string, fn func(context.Context, *Writer) (T, error)) (T, error) {
	if tracectx.FromContext(ctx).Suppress {
		return fn(ctx, NewWriter(trace.SpanFromContext(ctx)))
	}

	tracer := otel.Tracer(TracerName)
	ctx, span := tracer.Start(ctx, name,
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(attribute.String(semconv.SpanKindKey, semconv.SpanKindChain)))
	defer span.End()
	ctx = tracectx.WithRootSpan(ctx, span)

	out, err := fn(ctx, NewWriter(span))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	return out, err
}
