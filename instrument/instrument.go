/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

// Package instrument wraps application functions so each invocation runs
// inside its own span. The first wrapped call in a chain becomes the chain's
// root span; nested wrapped calls inherit it and report as descendants.
package instrument

import (
	"context"
	"reflect"
	"runtime"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"chainguard.dev/llmtrace/spans"
	"chainguard.dev/llmtrace/tracectx"
)

// AnonymousName is the span name used when a function's identifier cannot be
// resolved, notably closures.
const AnonymousName = "anonymous"

// Wrap returns fn wrapped to run inside a span with the given name. Per
// invocation the wrapper:
//
//   - checks suppression first: a suppressed scope calls fn directly with no
//     span and no context change;
//   - starts a child span of whatever is ambient;
//   - binds the span as the chain's root unless one is already bound;
//   - records a returned error on the span and returns it unchanged, errors
//     are never swallowed;
//   - ends the span exactly once, on every path.
//
// A wrapped call that never returns leaks its span; there is no timeout
// closure. Callers own the lifetime of what they wrap.
func Wrap[T any](name string, fn func(context.Context) (T, error)) func(context.Context) (T, error) {
	return func(ctx context.Context) (T, error) {
		if tracectx.FromContext(ctx).Suppress {
			return fn(ctx)
		}

		ctx, span := otel.Tracer(spans.TracerName).Start(ctx, name,
			trace.WithSpanKind(trace.SpanKindInternal))
		defer span.End()
		ctx = tracectx.WithRootSpan(ctx, span)

		out, err := fn(ctx)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		return out, err
	}
}

// WrapFunc is Wrap with the span name derived from fn's identifier, falling
// back to AnonymousName for functions without a resolvable one.
func WrapFunc[T any](fn func(context.Context) (T, error)) func(context.Context) (T, error) {
	return Wrap(FuncName(fn), fn)
}

// FuncName resolves a function's bare identifier: package path and receiver
// stripped, compiler suffixes for closures treated as anonymous.
func FuncName(fn any) string {
	pc := reflect.ValueOf(fn).Pointer()
	f := runtime.FuncForPC(pc)
	if f == nil {
		return AnonymousName
	}
	name := f.Name()
	if i := strings.LastIndex(name, "/"); i >= 0 {
		name = name[i+1:]
	}
	if i := strings.Index(name, "."); i >= 0 {
		name = name[i+1:]
	}
	// Closures compile to parent.funcN; there is no caller-meaningful name.
	if name == "" || strings.Contains(name, ".func") || strings.HasPrefix(name, "func") {
		return AnonymousName
	}
	name = strings.TrimSuffix(name, "-fm")
	if i := strings.LastIndex(name, "."); i >= 0 {
		name = name[i+1:]
	}
	return name
}
